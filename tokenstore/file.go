package tokenstore

import (
	"crypto/rand"
	"encoding/json"
	"os"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"
)

const (
	fileSaltLength = 16
	fileMode       = 0o600
)

// scrypt parameters for deriving the file key from the passphrase.
const (
	scryptN = 1 << 15
	scryptR = 8
	scryptP = 1
)

var _ Store = (*FileStore)(nil)

// FileStore persists session data to a single file, encrypted at rest with
// XChaCha20-Poly1305 under a key derived from the passphrase. The whole
// state is rewritten on every mutation; write failures are logged rather
// than surfaced, keeping the Store contract error-free.
type FileStore struct {
	path string
	salt []byte
	key  []byte
	log  zerolog.Logger

	mu    sync.Mutex
	state fileState
}

type fileState struct {
	Fields       map[Field]string `json:"fields"`
	IntendedPath string           `json:"intended_path,omitempty"`
}

// FileStoreOption configures a FileStore.
type FileStoreOption func(*FileStore)

// WithFileLogger sets the logger used to report write failures.
func WithFileLogger(log zerolog.Logger) FileStoreOption {
	return func(fs *FileStore) {
		fs.log = log
	}
}

// NewFileStore opens (or creates) the store at path. An existing file is
// decrypted with the passphrase; a wrong passphrase fails here rather than
// on first read.
func NewFileStore(path string, passphrase []byte, options ...FileStoreOption) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("[NewFileStore] path is required")
	}
	if len(passphrase) == 0 {
		return nil, errors.New("[NewFileStore] passphrase is required")
	}

	fs := &FileStore{
		path:  path,
		log:   zerolog.Nop(),
		state: fileState{Fields: make(map[Field]string)},
	}
	for _, opt := range options {
		opt(fs)
	}

	raw, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		fs.salt = make([]byte, fileSaltLength)
		if _, err := rand.Read(fs.salt); err != nil {
			return nil, errors.Wrap(err, "[NewFileStore] generating salt")
		}
		fs.key, err = deriveKey(passphrase, fs.salt)
		if err != nil {
			return nil, err
		}
	case err != nil:
		return nil, errors.Wrap(err, "[NewFileStore] reading store file")
	default:
		if len(raw) < fileSaltLength+chacha20poly1305.NonceSizeX {
			return nil, errors.New("[NewFileStore] store file truncated")
		}
		fs.salt = raw[:fileSaltLength]
		fs.key, err = deriveKey(passphrase, fs.salt)
		if err != nil {
			return nil, err
		}
		if err := fs.decrypt(raw[fileSaltLength:]); err != nil {
			return nil, err
		}
	}

	return fs, nil
}

func deriveKey(passphrase, salt []byte) ([]byte, error) {
	key, err := scrypt.Key(passphrase, salt, scryptN, scryptR, scryptP, chacha20poly1305.KeySize)
	if err != nil {
		return nil, errors.Wrap(err, "[FileStore] deriving key")
	}
	return key, nil
}

func (fs *FileStore) decrypt(raw []byte) error {
	aead, err := chacha20poly1305.NewX(fs.key)
	if err != nil {
		return errors.Wrap(err, "[FileStore] creating cipher")
	}

	nonce := raw[:chacha20poly1305.NonceSizeX]
	plaintext, err := aead.Open(nil, nonce, raw[chacha20poly1305.NonceSizeX:], nil)
	if err != nil {
		return errors.Wrap(err, "[FileStore] decrypting store (wrong passphrase?)")
	}

	var state fileState
	if err := json.Unmarshal(plaintext, &state); err != nil {
		return errors.Wrap(err, "[FileStore] decoding store")
	}
	if state.Fields == nil {
		state.Fields = make(map[Field]string)
	}
	fs.state = state
	return nil
}

// persist rewrites the file from the current state. Callers hold fs.mu.
func (fs *FileStore) persist() {
	plaintext, err := json.Marshal(fs.state)
	if err != nil {
		fs.log.Err(err).Msg("token store: encoding state")
		return
	}

	aead, err := chacha20poly1305.NewX(fs.key)
	if err != nil {
		fs.log.Err(err).Msg("token store: creating cipher")
		return
	}

	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		fs.log.Err(err).Msg("token store: generating nonce")
		return
	}

	out := make([]byte, 0, fileSaltLength+len(nonce)+len(plaintext)+aead.Overhead())
	out = append(out, fs.salt...)
	out = append(out, nonce...)
	out = aead.Seal(out, nonce, plaintext, nil)

	if err := os.WriteFile(fs.path, out, fileMode); err != nil {
		fs.log.Err(err).Str("path", fs.path).Msg("token store: writing store file")
	}
}

func (fs *FileStore) Get(field Field) (string, bool) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	value, ok := fs.state.Fields[field]
	if !ok || value == "" {
		return "", false
	}
	return value, true
}

func (fs *FileStore) SetAll(session Session) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	fs.state.Fields[FieldAccessToken] = session.AccessToken
	fs.state.Fields[FieldRefreshToken] = session.RefreshToken
	fs.state.Fields[FieldUser] = session.User
	fs.persist()
}

func (fs *FileStore) SetTokens(accessToken, refreshToken string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	fs.state.Fields[FieldAccessToken] = accessToken
	fs.state.Fields[FieldRefreshToken] = refreshToken
	fs.persist()
}

func (fs *FileStore) SetUser(rawProfile string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	fs.state.Fields[FieldUser] = rawProfile
	fs.persist()
}

func (fs *FileStore) Clear() {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	fs.state = fileState{Fields: make(map[Field]string)}
	fs.persist()
}

func (fs *FileStore) SetIntendedPath(path string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	fs.state.IntendedPath = path
	fs.persist()
}

func (fs *FileStore) TakeIntendedPath() (string, bool) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	path := fs.state.IntendedPath
	if path == "" {
		return "", false
	}
	fs.state.IntendedPath = ""
	fs.persist()
	return path, true
}
