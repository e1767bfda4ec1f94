package callback

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

// UnknownIntegrationErr is returned when no provider is registered for the
// requested integration.
var UnknownIntegrationErr = errors.New("unknown integration")

// ConnectStarter begins the integration-connect flow that ConnectHandler
// later completes: it builds the provider authorization URL the user is sent
// to, with a fresh state parameter per attempt.
type ConnectStarter struct {
	providers map[string]oauth2.Config
}

// NewConnectStarter registers the provider configurations, keyed by
// integration identifier (the same identifier the callback carries back).
func NewConnectStarter(providers map[string]oauth2.Config) *ConnectStarter {
	if providers == nil {
		providers = make(map[string]oauth2.Config)
	}
	return &ConnectStarter{providers: providers}
}

// AuthorizeURL returns the provider authorization URL for the integration
// and the state parameter embedded in it. The caller hands the state to the
// backend so the exchange can be validated when the redirect returns.
func (cs *ConnectStarter) AuthorizeURL(integration string) (authorizeURL, state string, err error) {
	cfg, ok := cs.providers[integration]
	if !ok {
		return "", "", errors.Wrap(UnknownIntegrationErr, integration)
	}

	state = uuid.New().String()
	return cfg.AuthCodeURL(state, oauth2.AccessTypeOffline), state, nil
}
