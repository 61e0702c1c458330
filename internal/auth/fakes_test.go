package auth

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/taskhive/taskhive-api/internal/user"
)

// memoryUserStore is an in-memory UserStore with the same duplicate and
// secret-stripping behavior as the real repository.
type memoryUserStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]*user.User
}

func newMemoryUserStore() *memoryUserStore {
	return &memoryUserStore{users: map[uuid.UUID]*user.User{}}
}

func (s *memoryUserStore) Create(ctx context.Context, u *user.User) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Email == u.Email {
			return nil, user.ErrDuplicateEmail
		}
	}

	stored := cloneUser(u)
	stored.ID = uuid.New()
	stored.CreatedAt = time.Now()
	stored.UpdatedAt = stored.CreatedAt
	s.users[stored.ID] = stored

	public := cloneUser(stored)
	stripSecrets(public)
	return public, nil
}

func (s *memoryUserStore) GetByEmail(ctx context.Context, email string, withSecrets bool) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Email == email {
			out := cloneUser(existing)
			if !withSecrets {
				stripSecrets(out)
			}
			return out, nil
		}
	}
	return nil, user.ErrNotFound
}

func (s *memoryUserStore) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	out := cloneUser(existing)
	stripSecrets(out)
	return out, nil
}

func (s *memoryUserStore) GetByIDWithSecrets(ctx context.Context, id uuid.UUID) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	return cloneUser(existing), nil
}

func (s *memoryUserStore) Save(ctx context.Context, u *user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[u.ID]; !ok {
		return user.ErrNotFound
	}
	for id, existing := range s.users {
		if id != u.ID && existing.Email == u.Email {
			return user.ErrDuplicateEmail
		}
	}

	stored := cloneUser(u)
	stored.UpdatedAt = time.Now()
	s.users[u.ID] = stored
	return nil
}

// raw returns the stored record without copying, for assertions on
// persisted state.
func (s *memoryUserStore) raw(id uuid.UUID) *user.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[id]
}

func cloneUser(u *user.User) *user.User {
	out := *u
	out.ProfileImageURL = clonePtr(u.ProfileImageURL)
	out.VerificationCodeHash = clonePtr(u.VerificationCodeHash)
	out.VerificationCodeExpiresAt = clonePtr(u.VerificationCodeExpiresAt)
	out.ResetCodeHash = clonePtr(u.ResetCodeHash)
	out.ResetCodeIssuedAt = clonePtr(u.ResetCodeIssuedAt)
	return &out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func stripSecrets(u *user.User) {
	u.PasswordHash = ""
	u.VerificationCodeHash = nil
	u.VerificationCodeExpiresAt = nil
	u.ResetCodeHash = nil
	u.ResetCodeIssuedAt = nil
}

// fakeMailer records sent codes and lets tests control acceptance.
type fakeMailer struct {
	mu sync.Mutex

	acceptNone bool
	failWith   error

	verificationCodes map[string]string // email -> last code
	resetCodes        map[string]string
}

func newFakeMailer() *fakeMailer {
	return &fakeMailer{
		verificationCodes: map[string]string{},
		resetCodes:        map[string]string{},
	}
}

func (m *fakeMailer) SendVerificationCode(ctx context.Context, toEmail, code string) ([]string, error) {
	return m.send(m.verificationCodes, toEmail, code)
}

func (m *fakeMailer) SendResetCode(ctx context.Context, toEmail, code string) ([]string, error) {
	return m.send(m.resetCodes, toEmail, code)
}

func (m *fakeMailer) send(codes map[string]string, toEmail, code string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failWith != nil {
		return nil, m.failWith
	}
	if m.acceptNone {
		return nil, nil
	}
	codes[toEmail] = code
	return []string{toEmail}, nil
}

func (m *fakeMailer) lastVerificationCode(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.verificationCodes[email]
}

func (m *fakeMailer) lastResetCode(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resetCodes[email]
}
