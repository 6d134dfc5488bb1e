package watch

import (
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModelStartsDisconnected(t *testing.T) {
	m := New("http://127.0.0.1:8080", "key")

	view := m.View()
	assert.Contains(t, view, "CONNECTING")
	assert.Contains(t, view, "http://127.0.0.1:8080")
}

func TestModelConnectsOnHealth(t *testing.T) {
	m := New("http://127.0.0.1:8080", "key")

	updated, _ := m.Update(healthMsg{Status: "ok", UptimeSeconds: 61})
	model, ok := updated.(Model)
	require.True(t, ok)

	view := model.View()
	assert.Contains(t, view, "HEALTHY")
	assert.NotContains(t, view, "CONNECTING")
}

func TestModelDisconnectsOnError(t *testing.T) {
	m := New("http://127.0.0.1:8080", "key")

	updated, _ := m.Update(healthMsg{Status: "ok"})
	updated, _ = updated.(Model).Update(errMsg(errors.New("connection refused")))

	view := updated.(Model).View()
	assert.Contains(t, view, "CONNECTING")
	assert.Contains(t, view, "connection refused")
}

func TestModelRendersHistory(t *testing.T) {
	m := New("http://127.0.0.1:8080", "key")

	updated, _ := m.Update(healthMsg{Status: "ok"})
	updated, _ = updated.(Model).Update(historyMsg{
		{Task: "rename the config package", Outcome: "success", CreatedAt: time.Now()},
		{Task: "broken run", Outcome: "failed", CreatedAt: time.Now()},
	})

	view := updated.(Model).View()
	assert.Contains(t, view, "rename the config package")
	assert.Contains(t, view, "failed")
}

func TestModelQuitKeys(t *testing.T) {
	m := New("http://127.0.0.1:8080", "key")

	for _, key := range []tea.KeyMsg{
		{Type: tea.KeyRunes, Runes: []rune{'q'}},
		{Type: tea.KeyCtrlC},
	} {
		_, cmd := m.Update(key)
		require.NotNil(t, cmd, "key %s should produce a command", key.String())
		assert.IsType(t, tea.QuitMsg{}, cmd())
	}
}

func TestModelTickSchedulesRefresh(t *testing.T) {
	m := New("http://127.0.0.1:8080", "key")

	_, cmd := m.Update(tickMsg(time.Now()))
	require.NotNil(t, cmd, "tick should schedule the next poll cycle")
}
