package session

import (
	"errors"
	"fmt"
)

var (
	// NoRefreshTokenErr is returned by RefreshToken when nothing is stored.
	// No network call is made in that case.
	NoRefreshTokenErr = errors.New("no refresh token stored")

	// ProfileDecodeFailedErr is returned when a profile payload cannot be
	// decoded into a UserProfile.
	ProfileDecodeFailedErr = errors.New("malformed user profile payload")
)

// APIError is a non-2xx response from the auth API, surfaced to the caller
// unchanged so the UI can display the server's message.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("auth api: request failed with status %d", e.Status)
	}
	return fmt.Sprintf("auth api: %s (status %d)", e.Message, e.Status)
}
