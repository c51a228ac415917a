package service

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/domain"
)

func TestSessionStore_CapsRounds(t *testing.T) {
	s := newSessionStore(10, 2)
	for i := 1; i <= 3; i++ {
		s.Append("a", fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i))
	}
	h := s.History("a")
	require.Len(t, h, 4)
	assert.Equal(t, domain.Message{Role: domain.RoleUser, Content: "q2"}, h[0])
	assert.Equal(t, domain.Message{Role: domain.RoleAssistant, Content: "a3"}, h[3])
}

func TestSessionStore_EvictsLeastRecentlyUsed(t *testing.T) {
	s := newSessionStore(2, 5)
	s.Append("a", "q", "a")
	s.Append("b", "q", "a")
	_ = s.History("a")
	s.Append("c", "q", "a")

	assert.Equal(t, 2, s.Len())
	assert.NotEmpty(t, s.History("a"))
	assert.Empty(t, s.History("b"))
	assert.NotEmpty(t, s.History("c"))
}

func TestSessionStore_EmptyIDAndReset(t *testing.T) {
	s := newSessionStore(2, 5)
	s.Append("", "q", "a")
	assert.Zero(t, s.Len())
	assert.Nil(t, s.History(""))

	s.Append("a", "q", "a")
	h := s.History("a")
	h[0].Content = "changed"
	assert.Equal(t, "q", s.History("a")[0].Content)

	s.Reset("a")
	assert.Empty(t, s.History("a"))
}
