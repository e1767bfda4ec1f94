// Package guard decides, once per navigation, whether the current route is
// accessible given session state.
package guard

import (
	"net/url"

	"github.com/pipelinecrm/go-auth-client/tokenstore"
	"github.com/pkg/errors"
)

// State is the outcome of a navigation evaluation. Every navigation starts
// in StateUnknown; nothing is rendered until the guard reaches a decision,
// and protected content is only mounted in StateAllowed. StateDenied means a
// redirect is in flight.
type State int

const (
	StateUnknown State = iota
	StateAllowed
	StateDenied
)

func (s State) String() string {
	switch s {
	case StateAllowed:
		return "allowed"
	case StateDenied:
		return "denied"
	default:
		return "unknown"
	}
}

// Decision is derived fresh on every route change and never cached across
// navigations, since session state can change asynchronously underneath it.
// RedirectTo is set only when State is StateDenied.
type Decision struct {
	State      State
	RedirectTo string
}

// Authenticator reports session presence. *session.Service satisfies it.
type Authenticator interface {
	IsAuthenticated() bool
}

// Guard evaluates route access against a statically known set of public
// paths and the current session state.
type Guard struct {
	auth          Authenticator
	store         tokenstore.Store
	publicPaths   map[string]struct{}
	authOnlyPaths map[string]struct{}
	loginPath     string
	landingPath   string
}

// GuardOption defines a function type to modify the Guard instance.
type GuardOption func(*Guard)

// WithPublicPaths replaces the set of paths reachable without a session.
func WithPublicPaths(paths ...string) GuardOption {
	return func(g *Guard) {
		g.publicPaths = pathSet(paths)
	}
}

// WithAuthOnlyPaths replaces the public paths that an authenticated user is
// bounced away from (login and register by default).
func WithAuthOnlyPaths(paths ...string) GuardOption {
	return func(g *Guard) {
		g.authOnlyPaths = pathSet(paths)
	}
}

// WithLoginPath sets the path unauthenticated users are redirected to.
func WithLoginPath(path string) GuardOption {
	return func(g *Guard) {
		g.loginPath = path
	}
}

// WithLandingPath sets the default authenticated landing page.
func WithLandingPath(path string) GuardOption {
	return func(g *Guard) {
		g.landingPath = path
	}
}

// New initializes a Guard. The store records the intended path when an
// unauthenticated navigation is bounced to login.
func New(auth Authenticator, store tokenstore.Store, options ...GuardOption) (*Guard, error) {
	if auth == nil {
		return nil, errors.New("[guard.New] authenticator is required")
	}
	if store == nil {
		return nil, errors.New("[guard.New] token store is required")
	}

	g := &Guard{
		auth:          auth,
		store:         store,
		publicPaths:   pathSet([]string{"/login", "/register", "/forgot-password", "/auth/callback"}),
		authOnlyPaths: pathSet([]string{"/login", "/register"}),
		loginPath:     "/login",
		landingPath:   "/dashboard",
	}

	for _, opt := range options {
		opt(g)
	}

	return g, nil
}

// Evaluate runs the decision procedure for one navigation.
func (g *Guard) Evaluate(path string) Decision {
	if !g.auth.IsAuthenticated() {
		if _, public := g.publicPaths[path]; public {
			return Decision{State: StateAllowed}
		}
		g.store.SetIntendedPath(path)
		return Decision{
			State:      StateDenied,
			RedirectTo: g.loginPath + "?redirect=" + url.QueryEscape(path),
		}
	}

	if _, authOnly := g.authOnlyPaths[path]; authOnly {
		return Decision{State: StateDenied, RedirectTo: g.landingPath}
	}

	return Decision{State: StateAllowed}
}

func pathSet(paths []string) map[string]struct{} {
	set := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		set[p] = struct{}{}
	}
	return set
}
