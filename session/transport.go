package session

import (
	"net/http"

	"github.com/pipelinecrm/go-auth-client/tokenstore"
	"github.com/pkg/errors"
)

// Transport is an http.RoundTripper that attaches the stored access token to
// outgoing API requests and, on a 401, performs exactly one refresh-and-retry.
// The refresh-failure policy lives here rather than in the Service: when the
// exchange itself fails the store is cleared, forcing a logout, and the
// original 401 is returned for the caller to act on.
type Transport struct {
	service *Service
	base    http.RoundTripper
}

// NewTransport wraps base (http.DefaultTransport when nil) with bearer
// injection and the single-refresh retry policy.
func NewTransport(service *Service, base http.RoundTripper) *Transport {
	return &Transport{service: service, base: base}
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.send(req)
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}

	accessToken, refreshErr := t.service.RefreshToken(req.Context())
	if refreshErr != nil {
		t.service.store.Clear()
		t.service.log.Err(refreshErr).Msg("token refresh failed, session cleared")
		return resp, nil
	}

	retry, retryErr := replayableClone(req)
	if retryErr != nil {
		return resp, nil
	}
	resp.Body.Close()

	retry.Header.Set("Authorization", "Bearer "+accessToken)
	return t.transport().RoundTrip(retry)
}

func (t *Transport) send(req *http.Request) (*http.Response, error) {
	// RoundTrip must not mutate the caller's request.
	clone := req.Clone(req.Context())
	if token, ok := t.service.store.Get(tokenstore.FieldAccessToken); ok {
		clone.Header.Set("Authorization", "Bearer "+token)
	}
	return t.transport().RoundTrip(clone)
}

func (t *Transport) transport() http.RoundTripper {
	if t.base != nil {
		return t.base
	}
	return http.DefaultTransport
}

// replayableClone rebuilds the request with a fresh body for the retry.
// Requests whose body cannot be replayed are not retried.
func replayableClone(req *http.Request) (*http.Request, error) {
	clone := req.Clone(req.Context())
	if req.Body == nil {
		return clone, nil
	}
	if req.GetBody == nil {
		return nil, errors.New("request body cannot be replayed")
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, err
	}
	clone.Body = body
	return clone, nil
}
