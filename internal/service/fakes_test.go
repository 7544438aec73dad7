package service

import (
	"context"
	"errors"
	"sync"

	"github.com/iliyamo/pathlab-auth/internal/model"
	"github.com/iliyamo/pathlab-auth/internal/repository"
)

type memTokenStore struct {
	mu        sync.Mutex
	records   map[string]model.RefreshToken
	revokeErr error
}

func newMemTokenStore() *memTokenStore {
	return &memTokenStore{records: map[string]model.RefreshToken{}}
}

func (m *memTokenStore) Create(_ context.Context, t model.RefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[t.JTI]; ok {
		return repository.ErrDuplicate
	}
	m.records[t.JTI] = t
	return nil
}

func (m *memTokenStore) FindByJTI(_ context.Context, jti string) (model.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.records[jti]
	if !ok {
		return model.RefreshToken{}, repository.ErrNotFound
	}
	return t, nil
}

func (m *memTokenStore) RevokeByJTI(_ context.Context, jti string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.revokeErr != nil {
		return m.revokeErr
	}
	if t, ok := m.records[jti]; ok {
		t.Revoked = true
		m.records[jti] = t
	}
	return nil
}

func (m *memTokenStore) RevokeAllForUser(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.revokeErr != nil {
		return m.revokeErr
	}
	for k, t := range m.records {
		if t.UserID == userID {
			t.Revoked = true
			m.records[k] = t
		}
	}
	return nil
}

func (m *memTokenStore) get(jti string) model.RefreshToken {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.records[jti]
}

type memPrincipals struct {
	byID    map[string]model.Principal
	byLogin map[string]model.Principal
}

func newMemPrincipals(ps ...model.Principal) *memPrincipals {
	m := &memPrincipals{byID: map[string]model.Principal{}, byLogin: map[string]model.Principal{}}
	for _, p := range ps {
		m.byID[p.PrincipalID()] = p
		m.byLogin[p.SessionView().Email] = p
	}
	return m
}

func (m *memPrincipals) FindByID(_ context.Context, id string) (model.Principal, error) {
	if p, ok := m.byID[id]; ok {
		return p, nil
	}
	return nil, repository.ErrNotFound
}

func (m *memPrincipals) FindByLogin(_ context.Context, login string) (model.Principal, error) {
	if p, ok := m.byLogin[login]; ok {
		return p, nil
	}
	return nil, repository.ErrNotFound
}

type memAdmins struct {
	mu     sync.Mutex
	admins map[string]*model.Admin
}

func newMemAdmins() *memAdmins { return &memAdmins{admins: map[string]*model.Admin{}} }

func (m *memAdmins) ExistsByEmailOrContact(_ context.Context, email, contact string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.admins {
		if a.Email == email || a.ContactNumber == contact {
			return true, nil
		}
	}
	return false, nil
}

func (m *memAdmins) FindByEmail(_ context.Context, email string) (*model.Admin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.admins[email]; ok {
		return a, nil
	}
	return nil, repository.ErrNotFound
}

func (m *memAdmins) Create(_ context.Context, a *model.Admin) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.admins[a.Email]; ok {
		return repository.ErrDuplicate
	}
	if a.ID == "" {
		a.ID = "admin-" + a.Email
	}
	m.admins[a.Email] = a
	return nil
}

type captureNotifier struct {
	mu   sync.Mutex
	sent map[string]string
	err  error
}

func newCaptureNotifier() *captureNotifier { return &captureNotifier{sent: map[string]string{}} }

func (n *captureNotifier) SendVerification(_ context.Context, _, email, otp string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent[email] = otp
	return nil
}

func (n *captureNotifier) code(email string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.sent[email]
}

var errStoreDown = errors.New("store down")

var adminFixture = model.Admin{
	ID:            "existing",
	LabName:       "Old Lab",
	Email:         "old@gmail.com",
	Password:      "hash",
	ContactNumber: "+15559990000",
	IsVerified:    true,
}
