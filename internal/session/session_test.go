// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package session

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/research-assistant/pkg/types"
)

func TestManager_Threads(t *testing.T) {
	m := NewManager()
	_, err := uuid.Parse(m.SessionID)
	require.NoError(t, err)

	require.Len(t, m.Threads(), 1)
	assert.Equal(t, "Main", m.Current().Name)

	second := m.Create("")
	assert.Equal(t, "Thread 2", second.Name)
	assert.Equal(t, 1, m.CurrentIndex())
	assert.NotEqual(t, m.Threads()[0].ID, second.ID)

	named := m.Create("  batteries ")
	assert.Equal(t, "batteries", named.Name)

	th, err := m.Switch(1)
	require.NoError(t, err)
	assert.Equal(t, "Main", th.Name)

	_, err = m.Switch(4)
	assert.Error(t, err)
	_, err = m.Switch(0)
	assert.Error(t, err)

	require.NoError(t, m.Rename("Primary"))
	assert.Equal(t, "Primary", m.Current().Name)
	assert.Error(t, m.Rename("   "))
}

func TestManager_Record(t *testing.T) {
	m := NewManager()
	st := types.NewResearchState("solar")
	m.Record("solar", st)

	assert.Equal(t, []string{"solar"}, m.Current().History)
	assert.Same(t, st, m.Current().Last)

	m.Create("other")
	assert.Nil(t, m.Current().Last)
}

func TestIsFollowUp(t *testing.T) {
	tests := []struct {
		query string
		want  bool
	}{
		{"What about costs?", true},
		{"and the risks", true},
		{"Why is it slow", true},
		{"tell me more", true},
		{"is it safe?", true},
		{"how do they compare", true},
		{"quantum computing applications in medicine", false},
		{"this is a very long question about something else entirely", false},
		{"renewable energy", false},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, IsFollowUp(tt.query))
		})
	}
}

func TestThread_Enrich(t *testing.T) {
	th := &Thread{}
	q, ok := th.Enrich("what about costs")
	assert.False(t, ok)
	assert.Equal(t, "what about costs", q)

	th.Last = types.NewResearchState("solar")
	th.Last.ExecutiveSummary = strings.Repeat("x", 600)

	q, ok = th.Enrich("what about costs")
	require.True(t, ok)
	assert.Equal(t, "what about costs (Context: "+strings.Repeat("x", 500)+")", q)

	q, ok = th.Enrich("battery chemistry advances")
	assert.False(t, ok)
	assert.Equal(t, "battery chemistry advances", q)
}

func TestThread_MoreQuery(t *testing.T) {
	th := &Thread{}
	_, ok := th.MoreQuery()
	assert.False(t, ok)

	th.Last = types.NewResearchState("fusion")
	q, ok := th.MoreQuery()
	assert.True(t, ok)
	assert.Equal(t, "More details about: fusion", q)
}
