package callback

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/pipelinecrm/go-auth-client/session"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const (
	defaultConnectErrorDelay   = 3 * time.Second
	defaultConnectSuccessDelay = 2 * time.Second

	routeOAuthCallback = "/integrations/oauth/callback"
)

// ConnectHandler completes the integration-connect redirect, where the
// provider returns an authorization code that must be exchanged through the
// backend callback endpoint. Exactly one exchange request is made per page
// lifetime; there is no retry on failure - the user re-initiates manually.
type ConnectHandler struct {
	redirector
	baseURL          string
	client           session.Doer
	integrationsPath string
	errorDelay       time.Duration
	successDelay     time.Duration
	log              zerolog.Logger
}

// ConnectHandlerOption defines a function type to modify the ConnectHandler.
type ConnectHandlerOption func(*ConnectHandler)

// WithConnectHTTPClient sets the HTTP client used for the code exchange.
func WithConnectHTTPClient(client session.Doer) ConnectHandlerOption {
	return func(h *ConnectHandler) {
		h.client = client
	}
}

// WithIntegrationsPath overrides the integrations list path redirected to
// after either outcome.
func WithIntegrationsPath(path string) ConnectHandlerOption {
	return func(h *ConnectHandler) {
		h.integrationsPath = path
	}
}

// WithConnectDelays overrides the error and success redirect delays.
func WithConnectDelays(errorDelay, successDelay time.Duration) ConnectHandlerOption {
	return func(h *ConnectHandler) {
		h.errorDelay = errorDelay
		h.successDelay = successDelay
	}
}

// WithConnectLogger sets the handler's logger.
func WithConnectLogger(log zerolog.Logger) ConnectHandlerOption {
	return func(h *ConnectHandler) {
		h.log = log
	}
}

// NewConnectHandler initializes a handler exchanging codes against the API
// at baseURL and navigating through nav. Call Close when the page is torn
// down.
func NewConnectHandler(baseURL string, nav Navigator, options ...ConnectHandlerOption) (*ConnectHandler, error) {
	if baseURL == "" {
		return nil, errors.New("[NewConnectHandler] baseURL is required")
	}
	if nav == nil {
		return nil, errors.New("[NewConnectHandler] navigator is required")
	}

	h := &ConnectHandler{
		redirector:       redirector{nav: nav},
		baseURL:          baseURL,
		client:           http.DefaultClient,
		integrationsPath: "/integrations",
		errorDelay:       defaultConnectErrorDelay,
		successDelay:     defaultConnectSuccessDelay,
		log:              zerolog.Nop(),
	}

	for _, opt := range options {
		opt(h)
	}

	return h, nil
}

// Handle runs the state machine once over the redirect parameters. A
// provider-side error or missing code/integration fails without touching the
// network; otherwise one exchange request decides the outcome. Both outcomes
// schedule a redirect back to the integrations list, the success one sooner.
func (h *ConnectHandler) Handle(ctx context.Context, params url.Values) Result {
	if errMsg := params.Get("error"); errMsg != "" {
		return h.fail(fmt.Sprintf("Connection failed: %s", errMsg))
	}

	code := params.Get("code")
	integration := params.Get("integration")
	if code == "" || integration == "" {
		return h.fail("Missing callback parameters")
	}

	if err := h.exchange(ctx, code, params.Get("state"), integration); err != nil {
		h.log.Err(err).Str("integration", integration).Msg("integration callback: code exchange failed")
		return h.fail(fmt.Sprintf("Failed to connect %s", integration))
	}

	h.schedule(h.integrationsPath, h.successDelay)
	return Result{
		Status:  StatusSuccess,
		Message: fmt.Sprintf("%s connected", integration),
	}
}

func (h *ConnectHandler) exchange(ctx context.Context, code, state, integration string) error {
	payload := struct {
		Code          string `json:"code"`
		State         string `json:"state,omitempty"`
		IntegrationID string `json:"integrationId"`
	}{Code: code, State: state, IntegrationID: integration}

	return postJSON(ctx, h.client, h.baseURL+routeOAuthCallback, payload)
}

func (h *ConnectHandler) fail(message string) Result {
	h.schedule(h.integrationsPath, h.errorDelay)
	return Result{Status: StatusError, Message: message}
}
