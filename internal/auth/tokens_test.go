package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTokens_IssueAndResolve(t *testing.T) {
	m := NewMemoryTokens()

	doc := m.IssueDoctor("doctor")
	require.True(t, strings.HasPrefix(doc, "doc_"))

	pat := m.IssuePatient("molly")
	require.True(t, strings.HasPrefix(pat, "pat_"))
	require.NotEqual(t, doc, pat)

	id, ok := m.Resolve(pat)
	require.True(t, ok)
	require.Equal(t, RolePatient, id.Role)
	require.Equal(t, "molly", id.Username)
}

func TestTokens_UnknownToken(t *testing.T) {
	m := NewMemoryTokens()
	_, ok := m.Resolve("pat_nonsense")
	require.False(t, ok)
}

func TestTokens_ExpiryPurges(t *testing.T) {
	m := NewMemoryTokens()
	now := time.Now()
	m.now = func() time.Time { return now }

	tok := m.IssuePatient("molly")

	// Advance past the TTL; the token must be rejected and removed.
	m.now = func() time.Time { return now.Add(9 * time.Hour) }
	_, ok := m.Resolve(tok)
	require.False(t, ok)

	m.mu.Lock()
	_, still := m.tokens[tok]
	m.mu.Unlock()
	require.False(t, still)
}
