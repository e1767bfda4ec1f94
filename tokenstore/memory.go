package tokenstore

import "sync"

var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps session data in process memory. It is the in-browser
// storage analog used by tests and by embedders that manage persistence
// themselves.
type MemoryStore struct {
	mu           sync.RWMutex
	fields       map[Field]string
	intendedPath string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{fields: make(map[Field]string)}
}

func (m *MemoryStore) Get(field Field) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.fields[field]
	if !ok || value == "" {
		return "", false
	}
	return value, true
}

func (m *MemoryStore) SetAll(session Session) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.fields[FieldAccessToken] = session.AccessToken
	m.fields[FieldRefreshToken] = session.RefreshToken
	m.fields[FieldUser] = session.User
}

func (m *MemoryStore) SetTokens(accessToken, refreshToken string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.fields[FieldAccessToken] = accessToken
	m.fields[FieldRefreshToken] = refreshToken
}

func (m *MemoryStore) SetUser(rawProfile string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.fields[FieldUser] = rawProfile
}

func (m *MemoryStore) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.fields = make(map[Field]string)
	m.intendedPath = ""
}

func (m *MemoryStore) SetIntendedPath(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.intendedPath = path
}

func (m *MemoryStore) TakeIntendedPath() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	path := m.intendedPath
	m.intendedPath = ""
	return path, path != ""
}
