// Package auth implements bearer-token issuance and resolution for the two
// roles the API serves. Tokens live in process memory and expire after a
// fixed TTL; the capability is injected as an interface so handlers can be
// tested with doubles.
package auth

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	RoleDoctor  = "doctor"
	RolePatient = "patient"

	tokenTTL = 8 * time.Hour
)

// Identity is the resolved principal behind a token.
type Identity struct {
	Role     string
	Username string
	Expires  time.Time
}

// Tokens issues and resolves API tokens.
type Tokens interface {
	IssueDoctor(username string) string
	IssuePatient(username string) string
	// Resolve returns the identity for a token, or false when the token is
	// unknown or expired. Expired tokens are purged on resolve.
	Resolve(token string) (Identity, bool)
}

// MemoryTokens is the in-memory Tokens implementation. Safe for concurrent
// use; all tokens are lost on process restart.
type MemoryTokens struct {
	mu     sync.Mutex
	tokens map[string]Identity
	now    func() time.Time
}

func NewMemoryTokens() *MemoryTokens {
	return &MemoryTokens{tokens: make(map[string]Identity), now: time.Now}
}

func (m *MemoryTokens) issue(prefix, role, username string) string {
	token := prefix + strings.ReplaceAll(uuid.NewString(), "-", "")
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[token] = Identity{Role: role, Username: username, Expires: m.now().Add(tokenTTL)}
	return token
}

func (m *MemoryTokens) IssueDoctor(username string) string {
	return m.issue("doc_", RoleDoctor, username)
}

func (m *MemoryTokens) IssuePatient(username string) string {
	return m.issue("pat_", RolePatient, username)
}

func (m *MemoryTokens) Resolve(token string) (Identity, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.tokens[token]
	if !ok {
		return Identity{}, false
	}
	if id.Expires.Before(m.now()) {
		delete(m.tokens, token)
		return Identity{}, false
	}
	return id, true
}
