// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package session manages the conversation threads of an interactive
// research session. Each thread keeps its own query history and the state
// of its last run so follow-up questions can borrow context.
package session

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/pdiddy/research-assistant/pkg/types"
)

// ContextLimit caps the characters of the previous summary added to a
// follow-up query.
const ContextLimit = 500

// Thread is one conversation within a session.
type Thread struct {
	ID      string
	Name    string
	History []string
	Last    *types.ResearchState
}

// Manager holds the threads of one session and tracks the current one.
// It is not safe for concurrent use.
type Manager struct {
	SessionID string

	threads []*Thread
	current int
}

// NewManager starts a session with a single thread named "Main".
func NewManager() *Manager {
	m := &Manager{SessionID: uuid.NewString()}
	m.Create("Main")
	return m
}

// Current returns the active thread.
func (m *Manager) Current() *Thread {
	return m.threads[m.current]
}

// Threads returns every thread in creation order.
func (m *Manager) Threads() []*Thread {
	return m.threads
}

// CurrentIndex returns the zero-based index of the active thread.
func (m *Manager) CurrentIndex() int {
	return m.current
}

// Create adds a thread and makes it current. An empty name becomes
// "Thread N".
func (m *Manager) Create(name string) *Thread {
	name = strings.TrimSpace(name)
	if name == "" {
		name = fmt.Sprintf("Thread %d", len(m.threads)+1)
	}
	t := &Thread{ID: uuid.NewString(), Name: name}
	m.threads = append(m.threads, t)
	m.current = len(m.threads) - 1
	return t
}

// Switch makes the thread at the one-based position n current.
func (m *Manager) Switch(n int) (*Thread, error) {
	if n < 1 || n > len(m.threads) {
		return nil, fmt.Errorf("invalid thread number %d, use 1-%d", n, len(m.threads))
	}
	m.current = n - 1
	return m.Current(), nil
}

// Rename renames the current thread.
func (m *Manager) Rename(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("thread name must not be empty")
	}
	m.Current().Name = name
	return nil
}

// Record stores a finished run on the current thread under the query the
// user typed.
func (m *Manager) Record(input string, st *types.ResearchState) {
	t := m.Current()
	t.History = append(t.History, input)
	t.Last = st
}

var followUpStarters = []string{
	"what about", "how about", "and ", "also ", "but ",
	"tell me more", "more on", "expand on", "elaborate",
	"why", "how does", "what if", "can you explain",
	"regarding", "concerning", "about the", "on the topic",
}

var contextWords = map[string]bool{
	"it": true, "this": true, "that": true, "they": true,
	"them": true, "those": true, "these": true,
}

// IsFollowUp reports whether query reads as a follow-up to earlier
// research: it opens with a follow-up phrase, or it is five words or
// fewer and contains a pronoun.
func IsFollowUp(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	for _, s := range followUpStarters {
		if strings.HasPrefix(q, s) {
			return true
		}
	}

	words := strings.Fields(q)
	if len(words) > 5 {
		return false
	}
	for _, w := range words {
		if contextWords[strings.Trim(w, "?.,!")] {
			return true
		}
	}
	return false
}

// MoreQuery returns the query that expands the thread's last topic.
func (t *Thread) MoreQuery() (string, bool) {
	if t.Last == nil {
		return "", false
	}
	return "More details about: " + t.Last.Query, true
}

// Enrich appends the thread's last summary to input when input looks like
// a follow-up. It reports whether context was added.
func (t *Thread) Enrich(input string) (string, bool) {
	if t.Last == nil || !IsFollowUp(input) {
		return input, false
	}
	ctx := []rune(t.Last.ExecutiveSummary)
	if len(ctx) > ContextLimit {
		ctx = ctx[:ContextLimit]
	}
	return fmt.Sprintf("%s (Context: %s)", input, string(ctx)), true
}
