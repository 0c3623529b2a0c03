// Package keyring keeps client private keys so that a client configuration
// can be exported again after the peer was created.
// It uses the system keyring when available, falling back to an encrypted
// file in the settings directory when not.
package keyring

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/zalando/go-keyring"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"github.com/yllada/wg-manager/common"
)

// serviceName is the identifier used in the system keyring.
const serviceName = common.CommandName

// Store implements common.KeyStore. Entries are indexed by the client's
// public key. The backend is chosen on first use.
type Store struct {
	dir       string
	localOnly bool

	initOnce  sync.Once
	useLocal  bool
	mu        sync.RWMutex
	local     map[string]string
	localFile string
	aeadKey   []byte
}

var _ common.KeyStore = (*Store)(nil)

// New returns a store that prefers the system keyring. dir holds the
// encrypted fallback file.
func New(dir string) *Store {
	return &Store{dir: dir}
}

// NewFileStore returns a store that only uses the encrypted file in dir.
func NewFileStore(dir string) *Store {
	return &Store{dir: dir, localOnly: true}
}

func (s *Store) init() {
	s.initOnce.Do(func() {
		if !s.localOnly {
			probe := serviceName + "-probe"
			if err := keyring.Set(serviceName, probe, "probe"); err == nil {
				keyring.Delete(serviceName, probe)
				common.LogDebug("Using system keyring for client keys")
				return
			}
			common.LogWarn("System keyring unavailable, storing client keys in an encrypted file")
		}
		s.initLocal()
	})
}

func (s *Store) initLocal() {
	s.useLocal = true
	os.MkdirAll(s.dir, 0700)
	s.localFile = filepath.Join(s.dir, common.KeyStoreFileName)

	hostname, _ := os.Hostname()
	secret := fmt.Sprintf("%s-%s-%s-%d", serviceName, hostname, machineID(), os.Getuid())
	s.aeadKey = make([]byte, chacha20poly1305.KeySize)
	io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte("client-keys")), s.aeadKey)

	s.local = make(map[string]string)
	s.loadLocal()
}

func machineID() string {
	for _, path := range []string{"/etc/machine-id", "/var/lib/dbus/machine-id"} {
		if data, err := os.ReadFile(path); err == nil {
			return strings.TrimSpace(string(data))
		}
	}
	return "default-machine-id"
}

func (s *Store) loadLocal() {
	data, err := os.ReadFile(s.localFile)
	if err != nil {
		return
	}

	plain, err := s.decrypt(data)
	if err != nil {
		common.LogWarn("Cannot decrypt %s: %v", s.localFile, err)
		return
	}

	json.Unmarshal(plain, &s.local)
}

func (s *Store) saveLocal() error {
	s.mu.RLock()
	data, err := json.Marshal(s.local)
	s.mu.RUnlock()
	if err != nil {
		return err
	}

	sealed, err := s.encrypt(data)
	if err != nil {
		return err
	}

	return os.WriteFile(s.localFile, sealed, 0600)
}

func (s *Store) encrypt(plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(s.aeadKey)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	sealed := aead.Seal(nonce, nonce, plaintext, nil)
	return []byte(base64.StdEncoding.EncodeToString(sealed)), nil
}

func (s *Store) decrypt(data []byte) ([]byte, error) {
	sealed, err := base64.StdEncoding.DecodeString(string(data))
	if err != nil {
		return nil, err
	}

	aead, err := chacha20poly1305.NewX(s.aeadKey)
	if err != nil {
		return nil, err
	}

	if len(sealed) < aead.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	return aead.Open(nil, nonce, ciphertext, nil)
}

// Store saves the private key of a client.
func (s *Store) Store(publicKey, privateKey string) error {
	if publicKey == "" || privateKey == "" {
		return fmt.Errorf("%w: empty key", common.ErrKeyStorage)
	}
	s.init()

	if !s.useLocal {
		err := keyring.Set(serviceName, publicKey, privateKey)
		if err == nil {
			return nil
		}
		common.LogWarn("System keyring write failed, falling back to file: %v", err)
		s.mu.Lock()
		s.initLocal()
		s.mu.Unlock()
	}

	s.mu.Lock()
	s.local[publicKey] = privateKey
	s.mu.Unlock()
	if err := s.saveLocal(); err != nil {
		return fmt.Errorf("%w: %w", common.ErrKeyStorage, err)
	}
	return nil
}

// Get retrieves the private key of a client.
func (s *Store) Get(publicKey string) (string, error) {
	s.init()

	if !s.useLocal {
		priv, err := keyring.Get(serviceName, publicKey)
		if err == nil {
			return priv, nil
		}
		if !errors.Is(err, keyring.ErrNotFound) {
			common.LogDebug("System keyring read failed: %v", err)
		}
		return "", common.ErrKeyNotFound
	}

	s.mu.RLock()
	priv, ok := s.local[publicKey]
	s.mu.RUnlock()
	if !ok {
		return "", common.ErrKeyNotFound
	}
	return priv, nil
}

// Delete removes the private key of a client. A missing key is not an error.
func (s *Store) Delete(publicKey string) error {
	s.init()

	if !s.useLocal {
		if err := keyring.Delete(serviceName, publicKey); err != nil && !errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("%w: %w", common.ErrKeyStorage, err)
		}
		return nil
	}

	s.mu.Lock()
	_, ok := s.local[publicKey]
	delete(s.local, publicKey)
	s.mu.Unlock()
	if !ok {
		return nil
	}
	if err := s.saveLocal(); err != nil {
		return fmt.Errorf("%w: %w", common.ErrKeyStorage, err)
	}
	return nil
}
