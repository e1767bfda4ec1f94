package session

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// Role is a workspace-level user role.
type Role string

const (
	RoleAdmin        Role = "admin"
	RoleManager      Role = "manager"
	RoleCloser       Role = "closer"
	RoleSetter       Role = "setter"
	RoleSalesRep     Role = "sales_rep"
	RoleSupportAgent Role = "support_agent"
)

// UserProfile is the cached profile of the authenticated user. It is only
// ever replaced wholesale - after a login or a profile fetch - never patched
// field by field.
type UserProfile struct {
	ID          int64  `json:"id"`
	Email       string `json:"email"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Role        Role   `json:"role"`
	WorkspaceID int64  `json:"workspaceId"`
	Avatar      string `json:"avatar,omitempty"`
}

// Session is the authenticated triple returned by login, registration and
// refresh exchanges.
type Session struct {
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken"`
	User         UserProfile `json:"user"`
}

// DecodeProfile parses a serialized profile payload. Failures wrap
// ProfileDecodeFailedErr so callers can treat a malformed payload as an
// error state rather than a crash.
func DecodeProfile(raw string) (*UserProfile, error) {
	var profile UserProfile
	if err := json.Unmarshal([]byte(raw), &profile); err != nil {
		return nil, errors.Wrap(ProfileDecodeFailedErr, err.Error())
	}
	return &profile, nil
}

// Credentials are the login request payload.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration is the sign-up request payload.
type Registration struct {
	Email         string `json:"email"`
	Password      string `json:"password"`
	FirstName     string `json:"firstName"`
	LastName      string `json:"lastName"`
	WorkspaceName string `json:"workspaceName,omitempty"`
}
