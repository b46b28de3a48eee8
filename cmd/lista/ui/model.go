package ui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"listacerta/internal/logging"
	"listacerta/internal/shopping"
	"listacerta/internal/suggest"
	"listacerta/internal/usage"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

// Tab identifies a page of the interface.
type Tab int

const (
	TabList Tab = iota
	TabHistory
	TabUsage
)

var tabNames = [...]string{"Lista", "Histórico", "Uso"}

func (t Tab) String() string { return tabNames[t] }

// SnapshotMsg delivers a suggestion controller snapshot to the program.
type SnapshotMsg struct {
	Snapshot suggest.Snapshot
}

type itemsMsg struct {
	items  []shopping.Item
	status string
	err    error
}

type historyMsg struct {
	records []shopping.PurchaseRecord
	err     error
}

type compareMsg struct {
	cmp *shopping.Comparison
	err error
}

type purchaseMsg struct {
	rec shopping.PurchaseRecord
	err error
}

// Bridge forwards controller snapshots into a running program. Sends are
// asynchronous because the controller publishes from inside Update; the
// model keeps the highest snapshot version it has seen.
type Bridge struct {
	mu   sync.Mutex
	prog *tea.Program
}

// Attach sets the program snapshots are sent to.
func (b *Bridge) Attach(p *tea.Program) {
	b.mu.Lock()
	b.prog = p
	b.mu.Unlock()
}

// Forward is a suggest.Options.OnChange callback.
func (b *Bridge) Forward(s suggest.Snapshot) {
	b.mu.Lock()
	p := b.prog
	b.mu.Unlock()
	if p != nil {
		go p.Send(SnapshotMsg{Snapshot: s})
	}
}

// Config wires a Model.
type Config struct {
	Service *shopping.Service
	// Controller drives suggestions. Nil when Gemini is not configured.
	Controller *suggest.Controller
	Tracker    *usage.Tracker
	// Location is used for price comparison.
	Location  shopping.Location
	Workspace string
}

// Model is the root bubbletea model.
type Model struct {
	ctx      context.Context
	svc      *shopping.Service
	ctrl     *suggest.Controller
	location shopping.Location
	styles   Styles
	renderer *glamour.TermRenderer

	workspace string
	tab       Tab
	input     textinput.Model
	spinner   spinner.Model
	report    viewport.Model
	usagePage UsagePageModel

	items      []shopping.Item
	cursor     int
	history    []shopping.PurchaseRecord
	histCursor int
	snap       suggest.Snapshot
	pick       int // selected suggestion, -1 for none

	comparing  bool
	showReport bool
	status     string
	err        error

	width    int
	height   int
	ready    bool
	quitting bool
}

// New creates the model. ctx is used for every store and Gemini call.
func New(ctx context.Context, cfg Config) Model {
	styles := DefaultStyles()

	ti := textinput.New()
	ti.Placeholder = "Digite um produto (ex: leite)"
	ti.CharLimit = 80
	ti.Prompt = "🛒 "
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Spinner

	return Model{
		ctx:       ctx,
		svc:       cfg.Service,
		ctrl:      cfg.Controller,
		location:  cfg.Location,
		styles:    styles,
		workspace: cfg.Workspace,
		input:     ti,
		spinner:   sp,
		report:    viewport.New(80, 12),
		usagePage: NewUsagePageModel(cfg.Tracker, styles),
		pick:      -1,
	}
}

// Init loads the list and history.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.spinner.Tick,
		m.loadItems(""),
		m.loadHistory(),
	)
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.input.Width = max(msg.Width-10, 10)
		m.report.Width = max(msg.Width-4, 20)
		m.report.Height = max(msg.Height/2, 5)
		m.usagePage.SetSize(max(msg.Width-4, 20), max(msg.Height-6, 5))
		m.renderer = nil
		return m, nil

	case SnapshotMsg:
		m.applySnapshot(msg.Snapshot)
		return m, nil

	case itemsMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.items = msg.items
		if msg.status != "" {
			m.status = msg.status
		}
		m.cursor = clamp(m.cursor, len(m.items))
		return m, nil

	case historyMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.history = msg.records
		m.histCursor = clamp(m.histCursor, len(m.historyRows()))
		return m, nil

	case compareMsg:
		m.comparing = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.report.SetContent(m.renderMarkdown(msg.cmp.Markdown()))
		m.report.GotoTop()
		m.showReport = true
		if best := msg.cmp.Cheapest(); best != nil {
			m.status = fmt.Sprintf("Mais barato: %s (%s)", best.Name, shopping.FormatBRL(best.TotalCost))
		}
		return m, nil

	case purchaseMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.showReport = false
		m.status = fmt.Sprintf("Compra concluída com %d itens", len(msg.rec.Items))
		return m, tea.Batch(m.loadItems(""), m.loadHistory())

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m.quit()
	case "esc":
		if m.showReport {
			m.showReport = false
			return m, nil
		}
		return m.quit()
	case "tab":
		return m.switchTab((m.tab + 1) % Tab(len(tabNames)))
	case "shift+tab":
		return m.switchTab((m.tab + Tab(len(tabNames)) - 1) % Tab(len(tabNames)))
	case "ctrl+p":
		if m.comparing {
			return m, nil
		}
		m.comparing = true
		m.err = nil
		m.status = ""
		return m, m.compare()
	case "ctrl+f":
		return m, m.completePurchase()
	}

	switch m.tab {
	case TabHistory:
		return m.handleHistoryKey(msg)
	case TabUsage:
		var cmd tea.Cmd
		m.usagePage, cmd = m.usagePage.Update(msg)
		return m, cmd
	default:
		return m.handleListKey(msg)
	}
}

func (m Model) switchTab(t Tab) (tea.Model, tea.Cmd) {
	m.tab = t
	logging.UI("Switched to tab %s", t)
	switch t {
	case TabHistory:
		return m, m.loadHistory()
	case TabUsage:
		m.usagePage.UpdateContent()
	}
	return m, nil
}

func (m Model) handleListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	suggestions := m.snap.Suggestions
	switch msg.String() {
	case "up":
		if len(suggestions) > 0 && m.pick >= 0 {
			m.pick--
		} else if len(suggestions) == 0 && m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case "down":
		if len(suggestions) > 0 {
			if m.pick < len(suggestions)-1 {
				m.pick++
			}
		} else if m.cursor < len(m.items)-1 {
			m.cursor++
		}
		return m, nil
	case "enter":
		return m.submit()
	case "ctrl+t":
		if it, ok := m.currentItem(); ok {
			return m, m.mutate(func() (string, error) {
				updated, err := m.svc.ToggleItem(m.ctx, it.ID)
				if err != nil {
					return "", err
				}
				if updated.Completed {
					return fmt.Sprintf("%s no carrinho", updated.Name), nil
				}
				return fmt.Sprintf("%s desmarcado", updated.Name), nil
			})
		}
		return m, nil
	case "ctrl+x":
		if it, ok := m.currentItem(); ok {
			return m, m.mutate(func() (string, error) {
				if err := m.svc.RemoveItem(m.ctx, it.ID); err != nil {
					return "", err
				}
				return fmt.Sprintf("%s removido", it.Name), nil
			})
		}
		return m, nil
	case "alt+up", "alt+down":
		it, ok := m.currentItem()
		if !ok {
			return m, nil
		}
		qty := it.Quantity + 1
		if msg.String() == "alt+down" {
			qty = it.Quantity - 1
		}
		if qty <= 0 {
			return m, nil
		}
		return m, m.mutate(func() (string, error) {
			_, err := m.svc.SetQuantity(m.ctx, it.ID, qty)
			return "", err
		})
	case "pgup", "pgdown":
		if m.showReport {
			var cmd tea.Cmd
			m.report, cmd = m.report.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if after := m.input.Value(); after != before {
		m.setQuery(after)
	}
	return m, cmd
}

// submit adds the highlighted suggestion, or the typed text as a plain item.
func (m Model) submit() (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	if m.pick >= 0 && m.pick < len(m.snap.Suggestions) {
		sg := m.snap.Suggestions[m.pick]
		cmd = m.mutate(func() (string, error) {
			it, err := m.svc.AddSuggestion(m.ctx, sg, 1)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("%s adicionado", it.Name), nil
		})
	} else if name := strings.TrimSpace(m.input.Value()); name != "" {
		cmd = m.mutate(func() (string, error) {
			it, err := m.svc.AddItem(m.ctx, name, 1, "")
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("%s adicionado", it.Name), nil
		})
	} else {
		return m, nil
	}

	m.input.SetValue("")
	m.setQuery("")
	return m, cmd
}

func (m Model) handleHistoryKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	rows := m.historyRows()
	switch msg.String() {
	case "up", "k":
		if m.histCursor > 0 {
			m.histCursor--
		}
	case "down", "j":
		if m.histCursor < len(rows)-1 {
			m.histCursor++
		}
	case "enter":
		if m.histCursor < len(rows) {
			row := rows[m.histCursor]
			return m, m.mutate(func() (string, error) {
				it, err := m.svc.ReuseItem(m.ctx, row.recordID, row.item.ID)
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("%s de volta na lista", it.Name), nil
			})
		}
	}
	return m, nil
}

// setQuery feeds the input to the controller and shows its state right away.
func (m *Model) setQuery(q string) {
	m.pick = -1
	if m.ctrl == nil {
		return
	}
	m.ctrl.SetQuery(q)
	m.applySnapshot(m.ctrl.Snapshot())
}

// applySnapshot keeps the newest snapshot; older ones arriving late are
// dropped.
func (m *Model) applySnapshot(s suggest.Snapshot) {
	if s.Version <= m.snap.Version {
		return
	}
	m.snap = s
	if m.pick >= len(s.Suggestions) {
		m.pick = -1
	}
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	if m.ctrl != nil {
		m.ctrl.Close()
	}
	m.quitting = true
	logging.UI("Interface closed")
	return m, tea.Quit
}

func (m Model) currentItem() (shopping.Item, bool) {
	if m.cursor < 0 || m.cursor >= len(m.items) {
		return shopping.Item{}, false
	}
	return m.items[m.cursor], true
}

type historyRow struct {
	recordID string
	item     shopping.HistoricItem
}

func (m Model) historyRows() []historyRow {
	var rows []historyRow
	for _, rec := range m.history {
		for _, it := range rec.Items {
			rows = append(rows, historyRow{recordID: rec.ID, item: it})
		}
	}
	return rows
}

// =============================================================================
// COMMANDS
// =============================================================================

func (m Model) loadItems(status string) tea.Cmd {
	svc, ctx := m.svc, m.ctx
	return func() tea.Msg {
		items, err := svc.Items(ctx)
		return itemsMsg{items: items, status: status, err: err}
	}
}

func (m Model) loadHistory() tea.Cmd {
	svc, ctx := m.svc, m.ctx
	return func() tea.Msg {
		recs, err := svc.History(ctx)
		return historyMsg{records: recs, err: err}
	}
}

// mutate runs op and reloads the list.
func (m Model) mutate(op func() (string, error)) tea.Cmd {
	svc, ctx := m.svc, m.ctx
	return func() tea.Msg {
		status, err := op()
		if err != nil {
			return itemsMsg{err: err}
		}
		items, err := svc.Items(ctx)
		return itemsMsg{items: items, status: status, err: err}
	}
}

func (m Model) compare() tea.Cmd {
	svc, ctx, loc := m.svc, m.ctx, m.location
	return func() tea.Msg {
		cmp, err := svc.ComparePrices(ctx, loc)
		return compareMsg{cmp: cmp, err: err}
	}
}

func (m Model) completePurchase() tea.Cmd {
	svc, ctx := m.svc, m.ctx
	return func() tea.Msg {
		rec, err := svc.CompletePurchase(ctx)
		return purchaseMsg{rec: rec, err: err}
	}
}

// renderMarkdown renders with glamour, falling back to plain text.
func (m *Model) renderMarkdown(content string) (result string) {
	defer func() {
		if r := recover(); r != nil {
			result = content
		}
	}()

	if m.renderer == nil {
		wrap := 80
		if m.width > 20 {
			wrap = m.width - 8
		}
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(wrap),
		)
		if err != nil {
			return content
		}
		m.renderer = r
	}
	rendered, err := m.renderer.Render(content)
	if err != nil {
		return content
	}
	return rendered
}

// =============================================================================
// VIEW
// =============================================================================

// View renders the interface.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Carregando..."
	}

	var body string
	switch m.tab {
	case TabHistory:
		body = m.renderHistory()
	case TabUsage:
		body = m.usagePage.View()
	default:
		body = m.renderList()
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.renderHeader(),
		m.styles.Content.Render(body),
		m.renderStatus(),
		m.renderFooter(),
	)
}

func (m Model) renderHeader() string {
	title := m.styles.Header.Render(" 🛒 listacerta ")
	tabs := make([]string, len(tabNames))
	for i, name := range tabNames {
		if Tab(i) == m.tab {
			tabs[i] = m.styles.TabActive.Render(name)
		} else {
			tabs[i] = m.styles.TabInactive.Render(name)
		}
	}
	line := lipgloss.JoinHorizontal(lipgloss.Center, title, "  ", strings.Join(tabs, " "))
	if m.workspace != "" {
		line = lipgloss.JoinHorizontal(lipgloss.Center, line, m.styles.Muted.Render("  📁 "+m.workspace))
	}
	return lipgloss.JoinVertical(lipgloss.Left, line, m.styles.RenderDivider(m.width))
}

func (m Model) renderList() string {
	var sb strings.Builder
	sb.WriteString(m.styles.Input.Render(m.input.View()))
	sb.WriteString("\n")

	if m.ctrl == nil {
		sb.WriteString(m.styles.Muted.Render("Sugestões desativadas (sem chave do Gemini)"))
		sb.WriteString("\n")
	} else {
		sb.WriteString(m.renderSuggestions())
	}

	sb.WriteString(m.styles.RenderDivider(m.width - 4))
	sb.WriteString("\n")

	if len(m.items) == 0 {
		sb.WriteString(m.styles.Muted.Render("A lista está vazia."))
		sb.WriteString("\n")
	}
	done := 0
	for i, it := range m.items {
		marker := "  "
		if i == m.cursor && len(m.snap.Suggestions) == 0 {
			marker = m.styles.Selected.Render("> ")
		}
		box := "[ ]"
		name := m.styles.Body.Render(it.Name)
		if it.Completed {
			done++
			box = "[x]"
			name = m.styles.Completed.Render(it.Name)
		}
		photo := ""
		if it.ImageURL != "" {
			photo = " 📷"
		}
		sb.WriteString(fmt.Sprintf("%s%s %s %s%s\n", marker, box, name,
			m.styles.Muted.Render("x"+formatQuantity(it.Quantity)), photo))
	}
	if len(m.items) > 0 {
		sb.WriteString(m.styles.Muted.Render(fmt.Sprintf("%d itens, %d no carrinho", len(m.items), done)))
		sb.WriteString("\n")
	}

	if m.comparing {
		sb.WriteString("\n" + m.spinner.View() + " Comparando preços...\n")
	}
	if m.showReport {
		sb.WriteString("\n" + m.report.View() + "\n")
	}
	return sb.String()
}

func (m Model) renderSuggestions() string {
	var sb strings.Builder
	switch {
	case m.snap.Loading:
		sb.WriteString(m.spinner.View() + " Buscando sugestões...\n")
	case m.snap.State == suggest.StateScheduled:
		sb.WriteString(m.styles.Muted.Render("..."))
		sb.WriteString("\n")
	case m.snap.State == suggest.StateApplied && len(m.snap.Suggestions) == 0:
		sb.WriteString(m.styles.Muted.Render("Nenhuma sugestão encontrada."))
		sb.WriteString("\n")
	}
	for i, s := range m.snap.Suggestions {
		line := s.Name
		if s.HasImage() {
			line = "📷 " + line
		}
		if i == m.pick {
			sb.WriteString(m.styles.Selected.Render("> " + line))
		} else {
			sb.WriteString("  " + line)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m Model) renderHistory() string {
	if len(m.history) == 0 {
		return m.styles.Muted.Render("Nenhuma compra registrada.")
	}
	var sb strings.Builder
	row := 0
	for _, rec := range m.history {
		header := fmt.Sprintf("%s  (%d itens)", rec.Date.Local().Format("02/01/2006 15:04"), len(rec.Items))
		sb.WriteString(m.styles.Title.Render(header))
		sb.WriteString("\n")
		for _, it := range rec.Items {
			line := fmt.Sprintf("%s x%s", it.Name, formatQuantity(it.Quantity))
			if row == m.histCursor {
				sb.WriteString(m.styles.Selected.Render("> " + line))
			} else {
				sb.WriteString("  " + line)
			}
			sb.WriteString("\n")
			row++
		}
	}
	return sb.String()
}

func (m Model) renderStatus() string {
	if m.err != nil {
		return m.styles.Error.Render("Erro: " + m.err.Error())
	}
	if m.status != "" {
		return m.styles.Success.Render(m.status)
	}
	return ""
}

func (m Model) renderFooter() string {
	var help string
	switch m.tab {
	case TabHistory:
		help = "↑/↓: navegar • Enter: readicionar item • Tab: próxima aba • Esc: sair"
	case TabUsage:
		help = "↑/↓: rolar • Tab: próxima aba • Esc: sair"
	default:
		help = "Enter: adicionar • Ctrl+T: marcar • Ctrl+X: remover • Alt+↑/↓: quantidade • Ctrl+P: comparar preços • Ctrl+F: finalizar compra • Tab: abas • Esc: sair"
	}
	return lipgloss.NewStyle().MarginTop(1).Render(m.styles.Footer.Render(help))
}

// =============================================================================
// HELPERS
// =============================================================================

func formatQuantity(q float64) string {
	return strings.ReplaceAll(strconv.FormatFloat(q, 'f', -1, 64), ".", ",")
}

func clamp(i, n int) int {
	if i >= n {
		i = n - 1
	}
	if i < 0 {
		i = 0
	}
	return i
}
