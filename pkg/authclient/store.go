package authclient

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"net/http"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	stateFilePerm = fs.FileMode(0o600)

	// stateOpenTimeout is the maximum time to wait for the bolt file lock.
	stateOpenTimeout = 5 * time.Second
)

var (
	authBucket = []byte("auth")
	tokenKey   = []byte("access_token")
	authedKey  = []byte("authed")
	cookiesKey = []byte("cookies")
)

// TokenStore is the client-side custody of the access token and the minimal
// session sidecar state: the "was logged in" flag that gates the boot-time
// refresh, and the auth cookies so a restarted process can refresh at all.
//
// Implementations must notify registered listeners on every change so other
// holders of the same store observe logouts instead of silently diverging.
type TokenStore interface {
	Token() string
	SetToken(token string) error
	Clear() error

	Authed() bool
	SetAuthed(v bool) error

	SaveCookies(cookies []*http.Cookie) error
	LoadCookies() []*http.Cookie

	OnChange(fn func())
	Close() error
}

/* ===================== bolt-backed store ===================== */

// BoltStore persists auth state in a bbolt file, scoped to one profile
// directory. Durable across restarts; never synced across machines.
type BoltStore struct {
	db *bolt.DB

	mu        sync.Mutex
	listeners []func()
}

// persistedCookie is the JSON shape cookies take inside bolt. Only fields
// the refresh flow needs survive the round trip.
type persistedCookie struct {
	Name    string    `json:"name"`
	Value   string    `json:"value"`
	Path    string    `json:"path,omitempty"`
	Expires time.Time `json:"expires,omitempty"`
}

// OpenBoltStore opens (creating if needed) the auth state file at path.
func OpenBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, stateFilePerm, &bolt.Options{Timeout: stateOpenTimeout})
	if err != nil {
		return nil, fmt.Errorf("opening auth state db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(authBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing auth state db: %w", err)
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Token() string {
	var token string
	_ = s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(authBucket).Get(tokenKey); v != nil {
			token = string(v)
		}
		return nil
	})
	return token
}

func (s *BoltStore) SetToken(token string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(authBucket).Put(tokenKey, []byte(token))
	})
	if err != nil {
		return err
	}
	s.notify()
	return nil
}

// Clear wipes the token, the authed flag, and the persisted cookies in one
// transaction. Used on logout and on terminal refresh failure.
func (s *BoltStore) Clear() error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(authBucket)
		if err := b.Delete(tokenKey); err != nil {
			return err
		}
		if err := b.Delete(authedKey); err != nil {
			return err
		}
		return b.Delete(cookiesKey)
	})
	if err != nil {
		return err
	}
	s.notify()
	return nil
}

func (s *BoltStore) Authed() bool {
	var authed bool
	_ = s.db.View(func(tx *bolt.Tx) error {
		authed = string(tx.Bucket(authBucket).Get(authedKey)) == "1"
		return nil
	})
	return authed
}

func (s *BoltStore) SetAuthed(v bool) error {
	val := []byte("0")
	if v {
		val = []byte("1")
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(authBucket).Put(authedKey, val)
	})
	if err != nil {
		return err
	}
	s.notify()
	return nil
}

func (s *BoltStore) SaveCookies(cookies []*http.Cookie) error {
	out := make([]persistedCookie, 0, len(cookies))
	for _, ck := range cookies {
		out = append(out, persistedCookie{
			Name:    ck.Name,
			Value:   ck.Value,
			Path:    ck.Path,
			Expires: ck.Expires,
		})
	}
	data, err := json.Marshal(out)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(authBucket).Put(cookiesKey, data)
	})
}

func (s *BoltStore) LoadCookies() []*http.Cookie {
	var data []byte
	_ = s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(authBucket).Get(cookiesKey); v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if data == nil {
		return nil
	}

	var persisted []persistedCookie
	if err := json.Unmarshal(data, &persisted); err != nil {
		return nil
	}

	cookies := make([]*http.Cookie, 0, len(persisted))
	for _, pc := range persisted {
		if !pc.Expires.IsZero() && pc.Expires.Before(time.Now()) {
			continue
		}
		cookies = append(cookies, &http.Cookie{
			Name:    pc.Name,
			Value:   pc.Value,
			Path:    pc.Path,
			Expires: pc.Expires,
		})
	}
	return cookies
}

func (s *BoltStore) OnChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *BoltStore) notify() {
	s.mu.Lock()
	fns := append([]func(){}, s.listeners...)
	s.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

/* ===================== in-memory store ===================== */

// MemoryStore is a TokenStore for tests and short-lived processes.
type MemoryStore struct {
	mu        sync.Mutex
	token     string
	authed    bool
	cookies   []*http.Cookie
	listeners []func()
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (s *MemoryStore) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *MemoryStore) SetToken(token string) error {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	s.notify()
	return nil
}

func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	s.token = ""
	s.authed = false
	s.cookies = nil
	s.mu.Unlock()
	s.notify()
	return nil
}

func (s *MemoryStore) Authed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authed
}

func (s *MemoryStore) SetAuthed(v bool) error {
	s.mu.Lock()
	s.authed = v
	s.mu.Unlock()
	s.notify()
	return nil
}

func (s *MemoryStore) SaveCookies(cookies []*http.Cookie) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cookies = append([]*http.Cookie(nil), cookies...)
	return nil
}

func (s *MemoryStore) LoadCookies() []*http.Cookie {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*http.Cookie(nil), s.cookies...)
}

func (s *MemoryStore) OnChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *MemoryStore) notify() {
	s.mu.Lock()
	fns := append([]func(){}, s.listeners...)
	s.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (s *MemoryStore) Close() error { return nil }
