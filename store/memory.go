package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/calebforth/sessiongate/internal"
)

// MemoryStore is an in-process Store for tests and single-node
// deployments. All methods serialize on one mutex, which trivially gives
// RotateRefreshHash its single-winner guarantee.
type MemoryStore struct {
	mu sync.Mutex

	users        map[string]*User
	byExternalID map[string]string
	byEmail      map[string]string
	sessions     map[string]*Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:        make(map[string]*User),
		byExternalID: make(map[string]string),
		byEmail:      make(map[string]string),
		sessions:     make(map[string]*Session),
	}
}

func (m *MemoryStore) CreateUser(_ context.Context, input NewUser) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byExternalID[input.ExternalID]; ok {
		return nil, ErrDuplicateUser
	}
	if _, ok := m.byEmail[input.Email]; ok {
		return nil, ErrDuplicateUser
	}

	now := time.Now().UTC()
	user := &User{
		ID:          uuid.NewString(),
		ExternalID:  input.ExternalID,
		Email:       input.Email,
		DisplayName: input.DisplayName,
		AvatarURL:   input.AvatarURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	m.users[user.ID] = user
	m.byExternalID[user.ExternalID] = user.ID
	m.byEmail[user.Email] = user.ID

	out := *user
	return &out, nil
}

func (m *MemoryStore) UserByID(_ context.Context, id string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.userLocked(id)
}

func (m *MemoryStore) UserByExternalID(_ context.Context, externalID string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.byExternalID[externalID]
	if !ok {
		return nil, ErrUserNotFound
	}
	return m.userLocked(id)
}

func (m *MemoryStore) UserByEmail(_ context.Context, email string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.byEmail[email]
	if !ok {
		return nil, ErrUserNotFound
	}
	return m.userLocked(id)
}

func (m *MemoryStore) UpdateUserProfile(_ context.Context, userID, displayName, avatarURL string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	user, ok := m.users[userID]
	if !ok || user.DeletedAt != nil {
		return nil, ErrUserNotFound
	}

	user.DisplayName = displayName
	user.AvatarURL = avatarURL
	user.UpdatedAt = time.Now().UTC()

	out := *user
	return &out, nil
}

func (m *MemoryStore) CreateSession(_ context.Context, userID string, now, expiresAt time.Time) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[userID]; !ok {
		return nil, ErrUserNotFound
	}

	session := &Session{
		ID:        ulid.Make().String(),
		UserID:    userID,
		IsValid:   true,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: expiresAt,
	}
	m.sessions[session.ID] = session

	out := *session
	return &out, nil
}

func (m *MemoryStore) SessionByID(_ context.Context, sessionID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}

	out := *session
	return &out, nil
}

func (m *MemoryStore) SetRefreshHash(_ context.Context, sessionID string, hash [32]byte, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[sessionID]
	if !ok {
		return ErrSessionNotFound
	}

	session.RefreshHash = hash
	session.UpdatedAt = now
	return nil
}

func (m *MemoryStore) RotateRefreshHash(_ context.Context, sessionID string, provided, next [32]byte, now time.Time) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if !session.IsValid || session.DeletedAt != nil {
		return nil, ErrSessionInvalid
	}
	if !now.Before(session.ExpiresAt) {
		session.IsValid = false
		session.UpdatedAt = now
		return nil, ErrSessionExpired
	}
	if !internal.HashEqual(session.RefreshHash, provided) {
		return nil, ErrHashMismatch
	}

	session.RefreshHash = next
	session.UpdatedAt = now

	out := *session
	return &out, nil
}

func (m *MemoryStore) InvalidateSession(_ context.Context, sessionID string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[sessionID]
	if !ok {
		return false, ErrSessionNotFound
	}
	if !session.IsValid {
		return false, nil
	}

	session.IsValid = false
	session.UpdatedAt = now
	return true, nil
}

func (m *MemoryStore) InvalidateSessions(_ context.Context, sessionIDs []string, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	flipped := 0
	for _, id := range sessionIDs {
		session, ok := m.sessions[id]
		if !ok || !session.IsValid {
			continue
		}
		session.IsValid = false
		session.UpdatedAt = now
		flipped++
	}
	return flipped, nil
}

func (m *MemoryStore) ActiveSessionsForUser(_ context.Context, userID string, now time.Time) ([]*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*Session
	for _, session := range m.sessions {
		if session.UserID != userID || !session.Usable(now) {
			continue
		}
		copied := *session
		out = append(out, &copied)
	}

	// ULIDs sort by creation time, ties broken deterministically.
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})

	return out, nil
}

func (m *MemoryStore) userLocked(id string) (*User, error) {
	user, ok := m.users[id]
	if !ok || user.DeletedAt != nil {
		return nil, ErrUserNotFound
	}
	out := *user
	return &out, nil
}
