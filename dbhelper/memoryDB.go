package dbhelper

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/speakcheck/apiv1/models"
	"github.com/speakcheck/apiv1/utils"
)

// MemoryStore mirrors Store's surface on in-process maps, including the
// unique-key behavior of the Mongo indexes. It backs the service and
// handler tests.
type MemoryStore struct {
	mu       sync.Mutex
	users    map[string]*models.User               // keyed by hex id
	sessions map[string]*models.UserSession        // keyed by token
	resets   map[string]*models.PasswordResetToken // keyed by token
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[string]*models.User),
		sessions: make(map[string]*models.UserSession),
		resets:   make(map[string]*models.PasswordResetToken),
	}
}

func copyUser(u *models.User) *models.User {
	c := *u
	return &c
}

func (m *MemoryStore) CreateUser(_ context.Context, user *models.User) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email {
			return "", utils.ErrDuplicateKey
		}
	}
	id := primitive.NewObjectID()
	c := *user
	c.ID = id
	m.users[id.Hex()] = &c
	return id.Hex(), nil
}

func (m *MemoryStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return copyUser(u), nil
		}
	}
	return nil, nil
}

func (m *MemoryStore) GetUserByID(_ context.Context, userID string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[userID]; ok {
		return copyUser(u), nil
	}
	return nil, nil
}

func (m *MemoryStore) UpdateUser(_ context.Context, userID string, fields map[string]interface{}) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return false, nil
	}
	now := time.Now().UTC()
	u.UpdatedAt = &now
	for k, v := range fields {
		switch k {
		case "name":
			u.Name = v.(string)
		case "preferences":
			u.Preferences = v.(map[string]interface{})
		case "profile":
			u.Profile = v.(map[string]interface{})
		case "password_hash":
			u.PasswordHash = v.(string)
		case "is_active":
			u.IsActive = v.(bool)
		case "is_verified":
			u.IsVerified = v.(bool)
		case "verification_code":
			u.VerificationCode = v.(string)
		case "verification_code_expires_at":
			if t, ok := v.(time.Time); ok {
				u.VerificationCodeExpiresAt = &t
			} else {
				u.VerificationCodeExpiresAt = nil
			}
		}
	}
	return true, nil
}

func (m *MemoryStore) UpdateLastLogin(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[userID]; ok {
		now := time.Now().UTC()
		u.LastLogin = &now
	}
	return nil
}

func (m *MemoryStore) CreateSession(_ context.Context, session *models.UserSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[session.Token]; ok {
		return utils.ErrDuplicateKey
	}
	c := *session
	c.ID = primitive.NewObjectID()
	m.sessions[c.Token] = &c
	return nil
}

func (m *MemoryStore) GetActiveSessionByToken(_ context.Context, token string) (*models.UserSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[token]
	if !ok || !s.IsActive || !time.Now().Before(s.ExpiresAt) {
		return nil, nil
	}
	c := *s
	return &c, nil
}

func (m *MemoryStore) InvalidateSession(_ context.Context, token string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[token]
	if !ok || !s.IsActive {
		return false, nil
	}
	s.IsActive = false
	return true, nil
}

func (m *MemoryStore) InvalidateUserSessions(_ context.Context, userID string) (int64, error) {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return 0, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, s := range m.sessions {
		if s.UserID == oid && s.IsActive {
			s.IsActive = false
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) SweepSessions(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	now := time.Now()
	for token, s := range m.sessions {
		if !s.IsActive || !now.Before(s.ExpiresAt) {
			delete(m.sessions, token)
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) CreateResetToken(_ context.Context, token *models.PasswordResetToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.resets[token.Token]; ok {
		return utils.ErrDuplicateKey
	}
	c := *token
	c.ID = primitive.NewObjectID()
	m.resets[c.Token] = &c
	return nil
}

func (m *MemoryStore) GetValidResetToken(_ context.Context, token string) (*models.PasswordResetToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.resets[token]
	if !ok || r.Used || !time.Now().Before(r.ExpiresAt) {
		return nil, nil
	}
	c := *r
	return &c, nil
}

func (m *MemoryStore) MarkResetTokenUsed(_ context.Context, token string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.resets[token]
	if !ok || r.Used {
		return false, nil
	}
	r.Used = true
	return true, nil
}

func (m *MemoryStore) SweepResetTokens(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	now := time.Now()
	for token, r := range m.resets {
		if r.Used || !now.Before(r.ExpiresAt) {
			delete(m.resets, token)
			n++
		}
	}
	return n, nil
}
