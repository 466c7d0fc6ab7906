package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/golang/glog"
	"github.com/safar/storefront/internal/database"
)

const (
	keyToken = "token"
	keyRoles = "roles"
)

var ErrNoToken = errors.New("session token is empty")

// Storage is the durable key-value backing of a Store.
type Storage interface {
	Get(ctx context.Context, key string) (string, error)
	PutAll(ctx context.Context, values map[string]string, remove []string) error
}

type Session struct {
	Token string
	Roles []string
}

func (s Session) Authenticated() bool {
	return s.Token != ""
}

// Store holds the process-wide credentials. It is only mutated through
// SetCredentials and Logout, and every mutation is written to storage.
type Store struct {
	storage Storage

	mu      sync.RWMutex
	session Session
}

func NewStore(storage Storage) *Store {
	return &Store{storage: storage}
}

// Load rehydrates the session from storage. A missing token leaves the
// store logged out.
func (s *Store) Load(ctx context.Context) error {
	token, err := s.storage.Get(ctx, keyToken)
	if errors.Is(err, database.ErrKeyNotFound) {
		s.set(Session{})
		return nil
	}
	if err != nil {
		return fmt.Errorf("load token: %w", err)
	}

	var roles []string
	raw, err := s.storage.Get(ctx, keyRoles)
	switch {
	case errors.Is(err, database.ErrKeyNotFound):
	case err != nil:
		return fmt.Errorf("load roles: %w", err)
	default:
		if err := json.Unmarshal([]byte(raw), &roles); err != nil {
			glog.Infof("session: discarding unreadable roles: %v", err)
			roles = nil
		}
	}

	if token == "" {
		roles = nil
	}
	s.set(Session{Token: token, Roles: roles})
	return nil
}

// SetCredentials stores a new token. When roles is empty they are taken
// from the token's roles claim.
func (s *Store) SetCredentials(ctx context.Context, token string, roles []string) error {
	if token == "" {
		return ErrNoToken
	}

	if len(roles) == 0 {
		if claims, err := ParseClaims(token); err == nil {
			roles = claims.Roles
		} else {
			glog.V(1).Infof("session: token carries no readable claims: %v", err)
		}
	}
	roles = slices.Clone(roles)

	rolesJSON, err := json.Marshal(roles)
	if err != nil {
		return fmt.Errorf("encode roles: %w", err)
	}

	err = s.storage.PutAll(ctx, map[string]string{
		keyToken: token,
		keyRoles: string(rolesJSON),
	}, nil)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	s.set(Session{Token: token, Roles: roles})
	glog.V(1).Infof("session: logged in with roles %v", roles)
	return nil
}

// Logout clears the in-memory session before touching storage so no request
// issued afterwards carries the old token, even if the write fails.
func (s *Store) Logout(ctx context.Context) error {
	s.set(Session{})

	if err := s.storage.PutAll(ctx, nil, []string{keyToken, keyRoles}); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.Token
}

// UserID reads the subject of the current token. It is empty when logged
// out or when the token carries no subject.
func (s *Store) UserID() string {
	token := s.Token()
	if token == "" {
		return ""
	}
	claims, err := ParseClaims(token)
	if err != nil {
		return ""
	}
	return claims.UserID
}

func (s *Store) Snapshot() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Session{Token: s.session.Token, Roles: slices.Clone(s.session.Roles)}
}

func (s *Store) HasRole(role string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Contains(s.session.Roles, role)
}

func (s *Store) set(session Session) {
	s.mu.Lock()
	s.session = session
	s.mu.Unlock()
}

// MemoryStorage is a Storage that lives only as long as the process.
type MemoryStorage struct {
	mu     sync.Mutex
	values map[string]string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: make(map[string]string)}
}

func (m *MemoryStorage) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.values[key]
	if !ok {
		return "", database.ErrKeyNotFound
	}
	return value, nil
}

func (m *MemoryStorage) PutAll(ctx context.Context, values map[string]string, remove []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range values {
		m.values[k] = v
	}
	for _, k := range remove {
		delete(m.values, k)
	}
	return nil
}
