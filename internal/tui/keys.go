package tui

import "github.com/charmbracelet/bubbles/key"

// keyMap holds the list-view key bindings.
type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	PrevPage key.Binding
	NextPage key.Binding
	Priority key.Binding
	Status   key.Binding
	Search   key.Binding
	PageSize key.Binding
	New      key.Binding
	Edit     key.Binding
	Done     key.Binding
	Delete   key.Binding
	Refresh  key.Binding
	Logout   key.Binding
	Help     key.Binding
	Quit     key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		PrevPage: key.NewBinding(key.WithKeys("left", "h", "["), key.WithHelp("←/h", "prev page")),
		NextPage: key.NewBinding(key.WithKeys("right", "l", "]"), key.WithHelp("→/l", "next page")),
		Priority: key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "priority filter")),
		Status:   key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "status filter")),
		Search:   key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		PageSize: key.NewBinding(key.WithKeys("z"), key.WithHelp("z", "page size")),
		New:      key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new task")),
		Edit:     key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit")),
		Done:     key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "complete")),
		Delete:   key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		Refresh:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		Logout:   key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "logout")),
		Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more keys")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.New, k.Done, k.Delete, k.Search, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.PrevPage, k.NextPage},
		{k.Priority, k.Status, k.Search, k.PageSize},
		{k.New, k.Edit, k.Done, k.Delete},
		{k.Refresh, k.Logout, k.Help, k.Quit},
	}
}

// formKeyMap holds the bindings active while the task form is open.
type formKeyMap struct {
	Next   key.Binding
	Prev   key.Binding
	Cycle  key.Binding
	Submit key.Binding
	Cancel key.Binding
}

func defaultFormKeyMap() formKeyMap {
	return formKeyMap{
		Next:   key.NewBinding(key.WithKeys("tab", "down"), key.WithHelp("tab", "next field")),
		Prev:   key.NewBinding(key.WithKeys("shift+tab", "up"), key.WithHelp("shift+tab", "prev field")),
		Cycle:  key.NewBinding(key.WithKeys("left", "right", " "), key.WithHelp("←/→", "change")),
		Submit: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "save")),
		Cancel: key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
	}
}

// ShortHelp implements help.KeyMap.
func (k formKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Next, k.Cycle, k.Submit, k.Cancel}
}

// FullHelp implements help.KeyMap.
func (k formKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Next, k.Prev, k.Cycle, k.Submit, k.Cancel}}
}
