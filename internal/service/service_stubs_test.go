package service

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/patil-rushikesh/FDW-backend/internal/models"
	"github.com/patil-rushikesh/FDW-backend/internal/repository"
)

// stubUsers is an in-memory user directory with an audit sink.
type stubUsers struct {
	mu        sync.Mutex
	users     map[string]*models.User
	auditLogs []*models.AuditLog
	createErr error
}

func newStubUsers(users ...*models.User) *stubUsers {
	s := &stubUsers{users: make(map[string]*models.User)}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *stubUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *user
	return &copied, nil
}

func (s *stubUsers) Create(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	if _, exists := s.users[user.ID]; exists {
		return repository.ErrDuplicateKey
	}
	copied := *user
	s.users[user.ID] = &copied
	return nil
}

func (s *stubUsers) LatestIDWithPrefix(ctx context.Context, prefix string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for id := range s.users {
		if strings.HasPrefix(id, prefix) {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return "", nil
	}
	sort.Strings(ids)
	return ids[len(ids)-1], nil
}

func (s *stubUsers) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	return nil
}

func (s *stubUsers) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auditLogs = append(s.auditLogs, log)
	return nil
}

func (s *stubUsers) auditActions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.auditLogs))
	for i, log := range s.auditLogs {
		out[i] = log.Action
	}
	return out
}

type capturedCredentials struct {
	email, userID, secret, name string
}

type stubNotifier struct {
	mu   sync.Mutex
	sent []capturedCredentials
}

func (n *stubNotifier) SendCredentials(ctx context.Context, email, userID, secret, name string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, capturedCredentials{email: email, userID: userID, secret: secret, name: name})
}

func claims(id string, role models.UserRole, dept models.Department) *models.JWTClaims {
	return &models.JWTClaims{UserID: id, Role: role, Department: dept}
}
