// Package tui implements the interactive terminal UI for browsing and editing tasks.
package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"taskman/internal/logging"
	"taskman/internal/service"
	"taskman/internal/tasks"
)

// PageSizes are the page sizes the UI cycles through.
var PageSizes = []int{3, 5, 10}

// DefaultPageSize is the page size the UI starts with.
const DefaultPageSize = 3

// mode is what the keyboard currently drives.
type mode int

const (
	modeList mode = iota
	modeSearch
	modeForm
	modeConfirmDelete
)

// Options configure the model.
type Options struct {
	// Logout ends the session. The UI quits once it returns.
	Logout func(ctx context.Context) error

	Logger *log.Logger
}

// Model represents the TUI application state.
// All backend access goes through the store.
type Model struct {
	ctx    context.Context
	store  *tasks.Store
	user   service.User
	opts   Options
	logger *log.Logger

	// Data
	snap   tasks.Snapshot
	cursor int

	// UI state
	mode     mode
	search   textinput.Model

	// pendingDelete is the task a delete confirmation is for.
	pendingDelete service.TaskID

	form     taskForm
	busy     bool
	showHelp bool
	width    int
	height   int

	// Status line
	lastError string
	notice    string

	loggedOut bool
	quitting  bool

	keys   keyMap
	help   help.Model
	styles Styles
}

// Styles contains lipgloss styles for the TUI.
type Styles struct {
	Title       lipgloss.Style
	Subtitle    lipgloss.Style
	Label       lipgloss.Style
	Value       lipgloss.Style
	Error       lipgloss.Style
	Success     lipgloss.Style
	Muted       lipgloss.Style
	Card        lipgloss.Style
	CardActive  lipgloss.Style
	Badge       lipgloss.Style
	Highlighted lipgloss.Style
	Disabled    lipgloss.Style
	Form        lipgloss.Style
}

// DefaultStyles returns the default lipgloss styles.
func DefaultStyles() Styles {
	return Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63")), // Purple
		Subtitle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")), // Gray
		Label: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")),
		Value: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86")), // Cyan
		Error: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196")), // Red
		Success: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("46")), // Green
		Muted: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")),
		Card: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1),
		CardActive: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1),
		Badge: lipgloss.NewStyle().
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("240")).
			Padding(0, 1),
		Highlighted: lipgloss.NewStyle().
			Background(lipgloss.Color("63")).
			Foreground(lipgloss.Color("230")).
			Bold(true).
			Padding(0, 1),
		Disabled: lipgloss.NewStyle().
			Foreground(lipgloss.Color("238")),
		Form: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("86")).
			Padding(0, 1),
	}
}

// NewModel creates the UI model over store. ctx bounds every backend call.
func NewModel(ctx context.Context, store *tasks.Store, user service.User, opts Options) Model {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	search := newTextInput("title or description", 100)
	search.SetValue(store.Query().Search)

	return Model{
		ctx:    ctx,
		store:  store,
		user:   user,
		opts:   opts,
		logger: logger.WithPrefix("tui"),
		snap:   store.Snapshot(),
		search: search,
		keys:   defaultKeyMap(),
		help:   help.New(),
		styles: DefaultStyles(),
	}
}

// Messages produced by commands.

// loadedMsg reports that a fetch finished. Superseded fetches report nil.
type loadedMsg struct {
	err error
}

// mutatedMsg reports the outcome of create, update, complete or delete.
type mutatedMsg struct {
	notice   string
	err      error
	fromForm bool
}

// loggedOutMsg reports that logout finished.
type loggedOutMsg struct {
	err error
}

// Init issues the first fetch.
func (m Model) Init() tea.Cmd {
	return m.fetch(m.store.Refresh())
}

// fetch runs an issued load off the event loop.
func (m Model) fetch(call *tasks.LoadCall) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return loadedMsg{err: call.Do(ctx)}
	}
}

// issue records a fetch that was just issued and returns the command that runs it.
func (m *Model) issue(call *tasks.LoadCall) tea.Cmd {
	m.syncSnapshot()
	return m.fetch(call)
}

// Update handles messages and updates the model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case loadedMsg:
		m.syncSnapshot()
		if msg.err != nil {
			m.lastError = msg.err.Error()
			m.logger.Warn("load failed", "err", msg.err)
		}
		return m, nil

	case mutatedMsg:
		m.busy = false
		m.syncSnapshot()
		if msg.err != nil {
			m.lastError = msg.err.Error()
			m.notice = ""
			if msg.fromForm {
				m.form.err = msg.err.Error()
			}
			return m, nil
		}
		m.lastError = ""
		m.notice = msg.notice
		if msg.fromForm {
			m.mode = modeList
		}
		return m, nil

	case loggedOutMsg:
		m.busy = false
		if msg.err != nil {
			m.logger.Warn("logout incomplete", "err", msg.err)
		}
		m.loggedOut = true
		m.quitting = true
		return m, tea.Quit

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.quitting = true
			return m, tea.Quit
		}
		switch m.mode {
		case modeSearch:
			return m.updateSearch(msg)
		case modeForm:
			return m.updateForm(msg)
		case modeConfirmDelete:
			return m.updateConfirm(msg)
		default:
			return m.updateList(msg)
		}
	}
	return m, nil
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		m.help.ShowAll = m.showHelp

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.snap.Tasks)-1 {
			m.cursor++
		}

	case key.Matches(msg, m.keys.PrevPage):
		if call, ok := m.store.PrevPage(); ok {
			m.cursor = 0
			return m, m.issue(call)
		}

	case key.Matches(msg, m.keys.NextPage):
		if call, ok := m.store.NextPage(); ok {
			m.cursor = 0
			return m, m.issue(call)
		}

	case key.Matches(msg, m.keys.Priority):
		next := cycleFilter(service.Priorities, m.snap.Query.Priority)
		return m, m.issue(m.store.ApplyFilter(service.PriorityFilter(next)))

	case key.Matches(msg, m.keys.Status):
		next := cycleFilter(service.Statuses, m.snap.Query.Status)
		return m, m.issue(m.store.ApplyFilter(service.StatusFilter(next)))

	case key.Matches(msg, m.keys.PageSize):
		next := cycleRequired(PageSizes, m.snap.Query.PageSize, false)
		return m, m.issue(m.store.ApplyFilter(service.PageSizeFilter(next)))

	case key.Matches(msg, m.keys.Search):
		m.mode = modeSearch
		m.search.SetValue(m.snap.Query.Search)
		m.search.CursorEnd()
		m.search.Focus()

	case key.Matches(msg, m.keys.Refresh):
		return m, m.issue(m.store.Refresh())

	case key.Matches(msg, m.keys.New):
		m.form = newCreateForm()
		m.mode = modeForm

	case key.Matches(msg, m.keys.Edit):
		if t, ok := m.selected(); ok {
			m.form = newEditForm(t)
			m.mode = modeForm
		}

	case key.Matches(msg, m.keys.Done):
		if t, ok := m.selected(); ok && !m.busy {
			if t.Status == service.StatusCompleted {
				m.notice = fmt.Sprintf("task %d is already completed", t.ID)
				return m, nil
			}
			m.busy = true
			return m, m.complete(t)
		}

	case key.Matches(msg, m.keys.Delete):
		if t, ok := m.selected(); ok {
			m.mode = modeConfirmDelete
			m.pendingDelete = t.ID
		}

	case key.Matches(msg, m.keys.Logout):
		if m.opts.Logout != nil && !m.busy {
			m.busy = true
			return m, m.logout()
		}
	}
	return m, nil
}

func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.mode = modeList
		m.search.Blur()
		m.cursor = 0
		return m, m.issue(m.store.ApplyFilter(service.SearchFilter(m.search.Value())))
	case tea.KeyEsc:
		m.mode = modeList
		m.search.Blur()
		m.search.SetValue(m.snap.Query.Search)
		return m, nil
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return m, cmd
}

func (m Model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.busy {
		return m, nil
	}
	action, cmd := m.form.update(msg)
	switch action {
	case formCancel:
		m.mode = modeList
		return m, nil
	case formSubmit:
		m.busy = true
		return m, m.save(m.form.task())
	}
	return m, cmd
}

func (m Model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	id := m.pendingDelete
	m.mode = modeList
	m.pendingDelete = 0
	if id == 0 || m.busy {
		return m, nil
	}
	switch msg.String() {
	case "y", "Y", "d":
		m.busy = true
		return m, m.remove(id)
	}
	return m, nil
}

// Mutations run as commands; the store re-fetches before they report back.

func (m Model) save(t service.Task) tea.Cmd {
	ctx, store := m.ctx, m.store
	if t.ID == 0 {
		return func() tea.Msg {
			id, err := store.Create(ctx, t)
			return mutatedMsg{notice: fmt.Sprintf("created task %d", id), err: err, fromForm: true}
		}
	}
	return func() tea.Msg {
		_, err := store.Update(ctx, t)
		return mutatedMsg{notice: fmt.Sprintf("saved task %d", t.ID), err: err, fromForm: true}
	}
}

func (m Model) complete(t service.Task) tea.Cmd {
	ctx, store := m.ctx, m.store
	return func() tea.Msg {
		_, err := store.Complete(ctx, t)
		return mutatedMsg{notice: fmt.Sprintf("completed task %d", t.ID), err: err}
	}
}

func (m Model) remove(id service.TaskID) tea.Cmd {
	ctx, store := m.ctx, m.store
	return func() tea.Msg {
		err := store.Remove(ctx, id)
		return mutatedMsg{notice: fmt.Sprintf("deleted task %d", id), err: err}
	}
}

func (m Model) logout() tea.Cmd {
	ctx, fn := m.ctx, m.opts.Logout
	return func() tea.Msg {
		return loggedOutMsg{err: fn(ctx)}
	}
}

func (m Model) selected() (service.Task, bool) {
	if m.cursor < 0 || m.cursor >= len(m.snap.Tasks) {
		return service.Task{}, false
	}
	return m.snap.Tasks[m.cursor], true
}

// syncSnapshot takes the store's current snapshot. A pending delete
// confirmation follows its task, and is cancelled if the task left the page.
func (m *Model) syncSnapshot() {
	m.snap = m.store.Snapshot()
	m.clampCursor()
	if m.mode != modeConfirmDelete {
		return
	}
	for i, t := range m.snap.Tasks {
		if t.ID == m.pendingDelete {
			m.cursor = i
			return
		}
	}
	m.notice = fmt.Sprintf("task %d is no longer listed, delete cancelled", m.pendingDelete)
	m.mode = modeList
	m.pendingDelete = 0
}

func (m *Model) clampCursor() {
	if m.cursor >= len(m.snap.Tasks) {
		m.cursor = len(m.snap.Tasks) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// LoggedOut reports whether the user logged out from the UI.
func (m Model) LoggedOut() bool {
	return m.loggedOut
}
