package watch

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Theme centralizes all styling for the watch TUI.
type Theme struct {
	StatusOK     lipgloss.Style
	StatusFailed lipgloss.Style
	StatusHit    lipgloss.Style

	Border    lipgloss.Style
	Title     lipgloss.Style
	Header    lipgloss.Style
	Dim       lipgloss.Style
	Highlight lipgloss.Style
}

func NewDefaultTheme() Theme {
	purple := lipgloss.Color("#874BFD")

	return Theme{
		StatusOK:     lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00")),
		StatusFailed: lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")),
		StatusHit:    lipgloss.NewStyle().Foreground(lipgloss.Color("#61AFEF")),

		Border: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(purple),
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Padding(0, 1),
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#61AFEF")),
		Dim:       lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")),
		Highlight: lipgloss.NewStyle().Foreground(lipgloss.Color("#E5C07B")),
	}
}

// Model is the main BubbleTea model for the watch TUI.
type Model struct {
	apiURL string
	apiKey string

	width  int
	height int

	health    healthMsg
	stats     statsMsg
	history   []historyRow
	connected bool
	lastError string

	spinner spinner.Model
	theme   Theme
}

// New creates a new watch TUI model.
func New(apiURL, apiKey string) *Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return &Model{
		apiURL:  apiURL,
		apiKey:  apiKey,
		spinner: sp,
		theme:   NewDefaultTheme(),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		func() tea.Msg { return fetchHealth(m.apiURL, m.apiKey) },
		func() tea.Msg { return fetchStats(m.apiURL, m.apiKey) },
		func() tea.Msg { return fetchHistory(m.apiURL, m.apiKey) },
		tea.Tick(2*time.Second, func(t time.Time) tea.Msg { return tickMsg(t) }),
		tea.EnterAltScreen,
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		return m, tea.Batch(
			func() tea.Msg { return fetchHealth(m.apiURL, m.apiKey) },
			func() tea.Msg { return fetchStats(m.apiURL, m.apiKey) },
			func() tea.Msg { return fetchHistory(m.apiURL, m.apiKey) },
			tea.Tick(2*time.Second, func(t time.Time) tea.Msg { return tickMsg(t) }),
		)

	case healthMsg:
		m.health = msg
		m.connected = true
		m.lastError = ""

	case statsMsg:
		m.stats = msg

	case historyMsg:
		m.history = msg

	case errMsg:
		m.connected = false
		m.lastError = msg.Error()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) View() string {
	var b strings.Builder

	title := m.theme.Title.Render(fmt.Sprintf("CODEX BRIDGE WATCH %s", m.spinner.View()))
	b.WriteString(title + "\n\n")

	if !m.connected {
		b.WriteString(m.theme.StatusFailed.Render("CONNECTING") + " " + m.theme.Dim.Render(m.apiURL))
		if m.lastError != "" {
			b.WriteString("\n" + m.theme.Dim.Render(m.lastError))
		}
		b.WriteString("\n\n" + m.theme.Dim.Render("q to quit"))
		return m.theme.Border.Render(b.String())
	}

	uptime := (time.Duration(m.health.UptimeSeconds) * time.Second).String()
	b.WriteString(m.theme.StatusOK.Render("HEALTHY"))
	b.WriteString(m.theme.Dim.Render(fmt.Sprintf("  uptime %s\n\n", uptime)))

	b.WriteString(m.theme.Header.Render("Cache") + "\n")
	b.WriteString(fmt.Sprintf("  entries %d/%d  active %d  expired %d  ttl %ds  oldest %.0fs\n\n",
		m.stats.TotalEntries, m.stats.MaxEntries, m.stats.ActiveEntries,
		m.stats.ExpiredEntries, m.stats.TTLSeconds, m.stats.OldestEntryAge))

	b.WriteString(m.theme.Header.Render("Recent delegations") + "\n")
	if len(m.history) == 0 {
		b.WriteString("  " + m.theme.Dim.Render("none yet") + "\n")
	}
	for _, row := range m.history {
		outcome := m.theme.StatusOK.Render(row.Outcome)
		if row.Outcome != "success" && row.Outcome != "cache_hit" {
			outcome = m.theme.StatusFailed.Render(row.Outcome)
		}
		hit := " "
		if row.CacheHit {
			hit = m.theme.StatusHit.Render("*")
		}
		task := row.Task
		if len(task) > 48 {
			task = task[:48] + "…"
		}
		b.WriteString(fmt.Sprintf("  %s %s %s %s\n",
			m.theme.Dim.Render(row.CreatedAt.Local().Format("15:04:05")),
			outcome, hit, m.theme.Highlight.Render(task)))
	}

	b.WriteString("\n" + m.theme.Dim.Render("q to quit"))
	return m.theme.Border.Render(b.String())
}
