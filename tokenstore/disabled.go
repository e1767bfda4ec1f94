package tokenstore

var _ Store = Disabled{}

// Disabled is the store used where no client persistence exists, such as
// server-side rendering. Writes are no-ops, reads report absent, nothing
// ever errors or panics.
type Disabled struct{}

func (Disabled) Get(Field) (string, bool)        { return "", false }
func (Disabled) SetAll(Session)                  {}
func (Disabled) SetTokens(string, string)        {}
func (Disabled) SetUser(string)                  {}
func (Disabled) Clear()                          {}
func (Disabled) SetIntendedPath(string)          {}
func (Disabled) TakeIntendedPath() (string, bool) { return "", false }
