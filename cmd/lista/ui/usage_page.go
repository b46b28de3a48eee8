package ui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"listacerta/internal/usage"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	usageLabelWidth = 22
	usageBarWidth   = 12
	usageDays       = 7
)

// UsagePageModel renders the Gemini usage recorded in the workspace.
type UsagePageModel struct {
	viewport viewport.Model
	tracker  *usage.Tracker
	styles   Styles
	now      func() time.Time
}

// NewUsagePageModel creates a new usage page component.
func NewUsagePageModel(tracker *usage.Tracker, styles Styles) UsagePageModel {
	return UsagePageModel{
		viewport: viewport.New(80, 20),
		tracker:  tracker,
		styles:   styles,
		now:      time.Now,
	}
}

// SetSize updates the size of the viewport.
func (m *UsagePageModel) SetSize(w, h int) {
	m.viewport.Width = w
	m.viewport.Height = h
	m.UpdateContent()
}

// UpdateContent refreshes the viewport from the tracker.
func (m *UsagePageModel) UpdateContent() {
	if m.tracker == nil {
		m.viewport.SetContent(m.styles.Muted.Render("Uso da API indisponível."))
		return
	}

	stats := m.tracker.Stats()
	sections := []string{
		m.styles.Title.Render("Uso do Gemini"),
		m.summary(stats.Total),
		m.breakdown("Por operação", stats.ByOperation, stats.Total.Calls),
		m.breakdown("Por modelo", stats.ByModel, stats.Total.Calls),
		m.breakdown("Por superfície", stats.BySurface, stats.Total.Calls),
		m.days(stats.ByDay),
	}
	var parts []string
	for _, s := range sections {
		if s != "" {
			parts = append(parts, s)
		}
	}
	m.viewport.SetContent(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

func (m UsagePageModel) summary(t usage.TokenCounts) string {
	calls := fmt.Sprintf("Chamadas:  %d (%d falhas)", t.Calls, t.Failures)
	if t.Failures > 0 {
		calls = m.styles.Warning.Render(calls)
	}
	tokens := fmt.Sprintf("Tokens:    %d entrada · %d saída · %d total", t.Input, t.Output, t.Total)
	return calls + "\n" + tokens + "\n"
}

// breakdown lists each key ranked by number of calls, with a bar showing
// its share of all calls. Image calls carry no tokens, so calls are the
// common unit.
func (m UsagePageModel) breakdown(title string, data map[string]usage.TokenCounts, totalCalls int64) string {
	if len(data) == 0 {
		return ""
	}
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := data[keys[i]], data[keys[j]]
		if a.Calls != b.Calls {
			return a.Calls > b.Calls
		}
		return keys[i] < keys[j]
	})

	var sb strings.Builder
	sb.WriteString(m.styles.Bold.Render(title))
	sb.WriteString("\n")
	for _, k := range keys {
		c := data[k]
		line := fmt.Sprintf("  %-*s %s %4d×  %7d tok",
			usageLabelWidth, ellipsize(k, usageLabelWidth), shareBar(c.Calls, totalCalls), c.Calls, c.Total)
		if c.Failures > 0 {
			line += m.styles.Error.Render(fmt.Sprintf("  %d falhas", c.Failures))
		}
		sb.WriteString(line + "\n")
	}
	return sb.String()
}

// days shows the last week of calls, oldest first; days without calls are
// listed as zero.
func (m UsagePageModel) days(byDay map[string]usage.TokenCounts) string {
	if len(byDay) == 0 {
		return ""
	}
	var max int64
	for _, c := range byDay {
		if c.Calls > max {
			max = c.Calls
		}
	}

	var sb strings.Builder
	sb.WriteString(m.styles.Bold.Render("Últimos 7 dias"))
	sb.WriteString("\n")
	today := m.now()
	for i := usageDays - 1; i >= 0; i-- {
		day := today.AddDate(0, 0, -i)
		c := byDay[day.Format("2006-01-02")]
		sb.WriteString(fmt.Sprintf("  %s %s %4d×\n", day.Format("02/01"), shareBar(c.Calls, max), c.Calls))
	}
	return sb.String()
}

func shareBar(n, of int64) string {
	filled := 0
	if of > 0 {
		filled = int((n*usageBarWidth + of - 1) / of)
	}
	if filled > usageBarWidth {
		filled = usageBarWidth
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", usageBarWidth-filled)
}

// ellipsize shortens s to at most n runes.
func ellipsize(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// Update scrolls the viewport.
func (m UsagePageModel) Update(msg tea.Msg) (UsagePageModel, tea.Cmd) {
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the page.
func (m UsagePageModel) View() string {
	return m.viewport.View()
}
