package session

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/pipelinecrm/go-auth-client/tokenstore"
	"github.com/pkg/errors"
)

// Doer issues HTTP requests. *http.Client satisfies it; tests substitute
// counting or failing implementations.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// doJSON performs one request against the auth API. A non-2xx response is
// returned as *APIError carrying whatever message the server sent.
func (s *Service) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "[Service.doJSON] encoding request body")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return errors.Wrap(err, "[Service.doJSON] building request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token, ok := s.store.Get(tokenstore.FieldAccessToken); ok {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "[Service.doJSON] request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apiErrorFromResponse(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return errors.Wrap(err, "[Service.doJSON] decoding response body")
		}
	}
	return nil
}

// apiErrorFromResponse extracts the server's error message where possible.
// NestJS-style APIs send {"message": "..."} or {"message": ["...", ...]}.
func apiErrorFromResponse(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return apiErr
	}

	var payload struct {
		Message json.RawMessage `json:"message"`
		Error   string          `json:"error"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		apiErr.Message = strings.TrimSpace(string(raw))
		return apiErr
	}

	var single string
	if json.Unmarshal(payload.Message, &single) == nil {
		apiErr.Message = single
		return apiErr
	}
	var many []string
	if json.Unmarshal(payload.Message, &many) == nil && len(many) > 0 {
		apiErr.Message = strings.Join(many, "; ")
		return apiErr
	}
	apiErr.Message = payload.Error
	return apiErr
}
