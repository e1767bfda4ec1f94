package tokenstore

// Field identifies one of the persisted session values.
type Field string

const (
	FieldAccessToken  Field = "access_token"
	FieldRefreshToken Field = "refresh_token"
	FieldUser         Field = "user"
)

// Session is the persisted credential triple. User holds the serialized
// profile exactly as it will be stored; decoding it is the caller's concern.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	User         string `json:"user"`
}

// Complete reports whether all three values of the triple are present.
func (s Session) Complete() bool {
	return s.AccessToken != "" && s.RefreshToken != "" && s.User != ""
}

// Store persists session credentials scoped to the client context.
// Implementations never return errors: in contexts where no persistence is
// available every write is a no-op and every read reports absent. Concurrent
// writers are not coordinated - last write wins.
//
// The intended path is an ephemeral extra key recording where the user was
// headed before being redirected to login. TakeIntendedPath reads and clears
// it in one step.
type Store interface {
	Get(field Field) (string, bool)
	SetAll(session Session)
	SetTokens(accessToken, refreshToken string)
	SetUser(rawProfile string)
	Clear()

	SetIntendedPath(path string)
	TakeIntendedPath() (string, bool)
}
