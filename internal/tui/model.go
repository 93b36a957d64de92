package tui

import (
	"context"
	"errors"
	"slices"
	"time"

	"crypto_dash/internal/app"
	"crypto_dash/internal/detail"
	"crypto_dash/internal/domain"
	"crypto_dash/internal/table"

	tea "github.com/charmbracelet/bubbletea"
)

// Dashboard is the live table lifecycle. *app.Dashboard implements it.
type Dashboard interface {
	Table() *table.Model
	Mount(ctx context.Context) error
	Reload(ctx context.Context) error
	Unmount()
}

// Favorites is the favorites set. *favorites.Store implements it.
type Favorites interface {
	Has(id string) bool
	Toggle(ctx context.Context, id string) (bool, error)
}

type screen int

const (
	screenTable screen = iota
	screenDetail
)

// Notifier coalesces change notifications from the sequencer into at most
// one pending refresh for the UI.
type Notifier struct {
	ch chan struct{}
}

func NewNotifier() *Notifier {
	return &Notifier{ch: make(chan struct{}, 1)}
}

// Notify never blocks.
func (n *Notifier) Notify() {
	select {
	case n.ch <- struct{}{}:
	default:
	}
}

// Message types for Bubble Tea
type (
	refreshMsg      struct{}
	tickMsg         time.Time
	mountedMsg      struct{ err error }
	reloadedMsg     struct{ err error }
	detailLoadedMsg struct{ view *detail.View }
	toggledMsg      struct {
		id     string
		member bool
		err    error
	}
)

// Model is the terminal dashboard.
type Model struct {
	ctx       context.Context
	dash      Dashboard
	favs      Favorites
	newDetail func(id string) *detail.View
	notifier  *Notifier

	screen    screen
	searching bool
	cursor    int
	detail    *detail.View
	status    string
	statusErr bool

	Width  int
	Height int
}

// NewModel builds the UI. notifier may be nil.
func NewModel(ctx context.Context, dash Dashboard, favs Favorites, newDetail func(string) *detail.View, notifier *Notifier) *Model {
	return &Model{
		ctx:       ctx,
		dash:      dash,
		favs:      favs,
		newDetail: newDetail,
		notifier:  notifier,
		screen:    screenTable,
	}
}

// Bubble Tea interface methods
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.mountCmd(), m.waitForRefresh(), tickEvery(time.Second))
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		return m, nil

	case refreshMsg:
		m.clampCursor()
		return m, m.waitForRefresh()

	case tickMsg:
		return m, tickEvery(time.Second)

	case mountedMsg:
		m.setResult(msg.err, "")
		return m, nil

	case reloadedMsg:
		m.setResult(msg.err, "Reloaded")
		m.clampCursor()
		return m, nil

	case detailLoadedMsg:
		return m, nil

	case toggledMsg:
		if msg.err != nil {
			m.setResult(msg.err, "")
		} else if msg.member {
			m.setResult(nil, "★ "+msg.id+" added to favorites")
		} else {
			m.setResult(nil, "☆ "+msg.id+" removed from favorites")
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	}

	return m, nil
}

func (m *Model) setResult(err error, ok string) {
	switch {
	case errors.Is(err, app.ErrStale):
		// superseded, keep the current message
	case err != nil:
		m.status, m.statusErr = err.Error(), true
	default:
		m.status, m.statusErr = ok, false
	}
}

func (m *Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, m.quit()
	}
	if m.screen == screenDetail {
		return m.handleDetailKey(msg)
	}
	if m.searching {
		return m.handleSearchKey(msg)
	}
	return m.handleTableKey(msg)
}

func (m *Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	model := m.dash.Table()
	q := model.View().Query

	switch msg.Type {
	case tea.KeyEnter, tea.KeyEsc:
		m.searching = false
	case tea.KeyBackspace:
		if r := []rune(q); len(r) > 0 {
			model.SetQuery(string(r[:len(r)-1]))
		}
	case tea.KeyRunes, tea.KeySpace:
		model.SetQuery(q + string(msg.Runes))
	}
	m.cursor = 0
	return m, nil
}

func (m *Model) handleTableKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	model := m.dash.Table()

	switch msg.String() {
	case "q":
		return m, m.quit()
	case "/":
		m.searching = true
	case "esc":
		model.SetQuery("")
		m.cursor = 0
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		m.cursor++
		m.clampCursor()
	case "left", "h":
		if v := model.View(); v.PageIndex > 0 {
			model.SetPage(v.PageIndex - 1)
			m.cursor = 0
		}
	case "right", "l":
		v := model.View()
		if v.PageIndex+1 < model.Page(nil).PageCount {
			model.SetPage(v.PageIndex + 1)
			m.cursor = 0
		}
	case "1":
		model.ToggleSort(domain.SortBySymbol)
	case "2":
		model.ToggleSort(domain.SortByName)
	case "3":
		model.ToggleSort(domain.SortByPrice)
	case "4":
		model.ToggleSort(domain.SortByMarketCap)
	case "z":
		sizes := model.PageSizes()
		i := slices.Index(sizes, model.View().PageSize)
		model.SetPageSize(sizes[(i+1)%len(sizes)])
		m.cursor = 0
	case "r":
		m.status, m.statusErr = "Reloading...", false
		return m, m.reloadCmd()
	case "f":
		if row, ok := m.selectedRow(); ok {
			return m, m.toggleCmd(row.ID)
		}
	case "enter":
		if row, ok := m.selectedRow(); ok {
			m.detail = m.newDetail(row.ID)
			m.screen = screenDetail
			return m, m.loadDetailCmd(m.detail)
		}
	}
	return m, nil
}

func (m *Model) handleDetailKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, m.quit()
	case "esc", "backspace":
		m.closeDetail()
	case "f":
		if m.detail != nil {
			return m, m.toggleCmd(m.detail.Snapshot().ID)
		}
	}
	return m, nil
}

func (m *Model) closeDetail() {
	if m.detail != nil {
		m.detail.Close()
		m.detail = nil
	}
	m.screen = screenTable
}

func (m *Model) quit() tea.Cmd {
	m.closeDetail()
	m.dash.Unmount()
	return tea.Quit
}

func (m *Model) selectedRow() (table.Row, bool) {
	page := m.dash.Table().Page(m.favs.Has)
	if m.cursor < 0 || m.cursor >= len(page.Rows) {
		return table.Row{}, false
	}
	return page.Rows[m.cursor], true
}

func (m *Model) clampCursor() {
	n := len(m.dash.Table().Page(nil).Rows)
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func tickEvery(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *Model) waitForRefresh() tea.Cmd {
	if m.notifier == nil {
		return nil
	}
	ch := m.notifier.ch
	return func() tea.Msg {
		<-ch
		return refreshMsg{}
	}
}

func (m *Model) mountCmd() tea.Cmd {
	return func() tea.Msg {
		return mountedMsg{err: m.dash.Mount(m.ctx)}
	}
}

func (m *Model) reloadCmd() tea.Cmd {
	return func() tea.Msg {
		return reloadedMsg{err: m.dash.Reload(m.ctx)}
	}
}

func (m *Model) loadDetailCmd(v *detail.View) tea.Cmd {
	return func() tea.Msg {
		v.Load(m.ctx)
		return detailLoadedMsg{view: v}
	}
}

func (m *Model) toggleCmd(id string) tea.Cmd {
	return func() tea.Msg {
		member, err := m.favs.Toggle(m.ctx, id)
		return toggledMsg{id: id, member: member, err: err}
	}
}
