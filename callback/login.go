package callback

import (
	"net/url"
	"time"

	"github.com/pipelinecrm/go-auth-client/session"
	"github.com/pipelinecrm/go-auth-client/tokenstore"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const defaultErrorRedirectDelay = 3 * time.Second

// LoginHandler completes the primary login redirect, where the provider
// delivers token, refreshToken and user directly as redirect parameters.
type LoginHandler struct {
	redirector
	store       tokenstore.Store
	loginPath   string
	landingPath string
	errorDelay  time.Duration
	log         zerolog.Logger
}

// LoginHandlerOption defines a function type to modify the LoginHandler.
type LoginHandlerOption func(*LoginHandler)

// WithLoginPaths overrides the login and landing paths.
func WithLoginPaths(loginPath, landingPath string) LoginHandlerOption {
	return func(h *LoginHandler) {
		h.loginPath = loginPath
		h.landingPath = landingPath
	}
}

// WithLoginErrorDelay overrides the delay before an error redirects back to
// the login page.
func WithLoginErrorDelay(delay time.Duration) LoginHandlerOption {
	return func(h *LoginHandler) {
		h.errorDelay = delay
	}
}

// WithLoginLogger sets the handler's logger.
func WithLoginLogger(log zerolog.Logger) LoginHandlerOption {
	return func(h *LoginHandler) {
		h.log = log
	}
}

// NewLoginHandler initializes a handler persisting through store and
// navigating through nav. Call Close when the page is torn down.
func NewLoginHandler(store tokenstore.Store, nav Navigator, options ...LoginHandlerOption) (*LoginHandler, error) {
	if store == nil {
		return nil, errors.New("[NewLoginHandler] token store is required")
	}
	if nav == nil {
		return nil, errors.New("[NewLoginHandler] navigator is required")
	}

	h := &LoginHandler{
		redirector:  redirector{nav: nav},
		store:       store,
		loginPath:   "/login",
		landingPath: "/dashboard",
		errorDelay:  defaultErrorRedirectDelay,
		log:         zerolog.Nop(),
	}

	for _, opt := range options {
		opt(h)
	}

	return h, nil
}

// Handle runs the state machine once over the redirect parameters. On
// success the triple is persisted and navigation to the landing page is
// immediate; every error schedules a delayed redirect back to login and the
// store is never touched.
func (h *LoginHandler) Handle(params url.Values) Result {
	if errMsg := params.Get("error"); errMsg != "" {
		return h.fail(errMsg)
	}

	accessToken := params.Get("token")
	refreshToken := params.Get("refreshToken")
	rawUser := params.Get("user")
	if accessToken == "" || refreshToken == "" || rawUser == "" {
		return h.fail("Missing authentication data")
	}

	// The profile must decode before anything is persisted. A malformed
	// payload is an error state, not a crash.
	if _, err := session.DecodeProfile(rawUser); err != nil {
		h.log.Err(err).Msg("login callback: malformed user payload")
		return h.fail("Malformed user profile")
	}

	h.store.SetAll(tokenstore.Session{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         rawUser,
	})

	h.nav.Navigate(h.landingPath)
	return Result{Status: StatusSuccess}
}

func (h *LoginHandler) fail(message string) Result {
	h.schedule(h.loginPath, h.errorDelay)
	return Result{Status: StatusError, Message: message}
}
