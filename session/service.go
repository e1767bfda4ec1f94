package session

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/pipelinecrm/go-auth-client/tokenstore"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Route paths on the external auth API.
const (
	routeLogin    = "/auth/login"
	routeRegister = "/auth/register"
	routeLogout   = "/auth/logout"
	routeRefresh  = "/auth/refresh"
	routeProfile  = "/auth/profile"
	routeMe       = "/auth/me"
)

// Service orchestrates the session lifecycle against the external auth API.
// It owns all writes to the token store: within any one call the store is
// fully updated before the result is returned, so other readers never see a
// partial session.
type Service struct {
	baseURL string
	client  Doer
	store   tokenstore.Store
	log     zerolog.Logger
}

// ServiceOption defines a function type to modify the Service instance.
type ServiceOption func(*Service)

// WithHTTPClient sets the HTTP client used for auth API requests
// (primarily for testing).
func WithHTTPClient(client Doer) ServiceOption {
	return func(s *Service) {
		s.client = client
	}
}

// WithLogger sets the logger used for suppressed failures such as a failed
// remote logout.
func WithLogger(log zerolog.Logger) ServiceOption {
	return func(s *Service) {
		s.log = log
	}
}

// NewService initializes a Service talking to the auth API at baseURL and
// persisting through store.
func NewService(baseURL string, store tokenstore.Store, options ...ServiceOption) (*Service, error) {
	if baseURL == "" {
		return nil, errors.New("[NewService] baseURL is required")
	}
	if store == nil {
		return nil, errors.New("[NewService] token store is required")
	}

	service := &Service{
		baseURL: baseURL,
		client:  http.DefaultClient,
		store:   store,
		log:     zerolog.Nop(),
	}

	for _, opt := range options {
		opt(service)
	}

	return service, nil
}

// Login exchanges credentials for a session. On success the full triple is
// persisted before returning; on failure the API error is propagated
// unchanged and the store is untouched.
func (s *Service) Login(ctx context.Context, credentials Credentials) (*Session, error) {
	var sess Session
	if err := s.doJSON(ctx, http.MethodPost, routeLogin, credentials, &sess); err != nil {
		return nil, errors.Wrap(err, "[Service.Login]")
	}
	if err := s.persistSession(&sess); err != nil {
		return nil, errors.Wrap(err, "[Service.Login]")
	}
	return &sess, nil
}

// Register creates an account and logs it in. Same contract as Login.
func (s *Service) Register(ctx context.Context, registration Registration) (*Session, error) {
	var sess Session
	if err := s.doJSON(ctx, http.MethodPost, routeRegister, registration, &sess); err != nil {
		return nil, errors.Wrap(err, "[Service.Register]")
	}
	if err := s.persistSession(&sess); err != nil {
		return nil, errors.Wrap(err, "[Service.Register]")
	}
	return &sess, nil
}

// Logout invalidates the session remotely and clears the local store. The
// store is cleared whatever the remote call does: a failed server-side
// invalidation must never leave the client believing it is still
// authenticated. Remote failures are logged, not surfaced.
func (s *Service) Logout(ctx context.Context) {
	defer s.store.Clear()

	if err := s.doJSON(ctx, http.MethodPost, routeLogout, nil, nil); err != nil {
		s.log.Err(err).Msg("remote logout failed, clearing local session anyway")
	}
}

// RefreshToken exchanges the stored refresh token for a new token pair and
// returns the new access token. With nothing stored it fails fast with
// NoRefreshTokenErr and makes no network call. On exchange failure the stale
// tokens are left in place; forcing a logout is the transport's policy
// decision, not this service's.
func (s *Service) RefreshToken(ctx context.Context) (string, error) {
	refreshToken, ok := s.store.Get(tokenstore.FieldRefreshToken)
	if !ok {
		return "", NoRefreshTokenErr
	}

	request := struct {
		RefreshToken string `json:"refreshToken"`
	}{RefreshToken: refreshToken}

	var pair struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	}
	if err := s.doJSON(ctx, http.MethodPost, routeRefresh, request, &pair); err != nil {
		return "", errors.Wrap(err, "[Service.RefreshToken] exchange")
	}

	s.store.SetTokens(pair.AccessToken, pair.RefreshToken)
	return pair.AccessToken, nil
}

// GetProfile fetches the profile from the auth API and overwrites the cached
// copy, keeping the local profile authoritative after server-side changes.
func (s *Service) GetProfile(ctx context.Context) (*UserProfile, error) {
	return s.fetchProfile(ctx, routeProfile)
}

// GetCurrentUser is GetProfile against the /auth/me endpoint.
func (s *Service) GetCurrentUser(ctx context.Context) (*UserProfile, error) {
	return s.fetchProfile(ctx, routeMe)
}

func (s *Service) fetchProfile(ctx context.Context, route string) (*UserProfile, error) {
	var profile UserProfile
	if err := s.doJSON(ctx, http.MethodGet, route, nil, &profile); err != nil {
		return nil, errors.Wrap(err, "[Service.fetchProfile]")
	}

	raw, err := json.Marshal(profile)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.fetchProfile] encoding profile")
	}
	s.store.SetUser(string(raw))

	return &profile, nil
}

// CachedUser returns the locally cached profile, if a well-formed one is
// stored. No network call is made.
func (s *Service) CachedUser() (*UserProfile, bool) {
	raw, ok := s.store.Get(tokenstore.FieldUser)
	if !ok {
		return nil, false
	}
	profile, err := DecodeProfile(raw)
	if err != nil {
		return nil, false
	}
	return profile, true
}

// IsAuthenticated reports whether an access token is present. This is a
// liveness heuristic, not a validity guarantee: an expired token still reads
// as authenticated until a request fails and triggers a refresh.
func (s *Service) IsAuthenticated() bool {
	_, ok := s.store.Get(tokenstore.FieldAccessToken)
	return ok
}

// persistSession writes the full triple, reconciling to complete-or-nothing
// before control returns to the caller.
func (s *Service) persistSession(sess *Session) error {
	raw, err := json.Marshal(sess.User)
	if err != nil {
		s.store.Clear()
		return errors.Wrap(err, "encoding user profile")
	}

	s.store.SetAll(tokenstore.Session{
		AccessToken:  sess.AccessToken,
		RefreshToken: sess.RefreshToken,
		User:         string(raw),
	})
	return nil
}
