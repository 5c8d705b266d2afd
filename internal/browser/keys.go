package browser

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
)

// tableKeys holds key bindings while the table has focus.
type tableKeys struct {
	Up      key.Binding
	Down    key.Binding
	Add     key.Binding
	Edit    key.Binding
	Search  key.Binding
	Refresh key.Binding
	Quit    key.Binding
}

// ShortHelp returns the table bindings for the help bar.
func (k tableKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Add, k.Edit, k.Search, k.Refresh, k.Quit}
}

// FullHelp returns the table bindings grouped for expanded help.
func (k tableKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Edit},
		{k.Add, k.Search, k.Refresh, k.Quit},
	}
}

// searchKeys holds key bindings while the search input has focus.
type searchKeys struct {
	Done  key.Binding
	Clear key.Binding
}

// ShortHelp returns the search bindings for the help bar.
func (k searchKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Done, k.Clear}
}

// FullHelp returns the search bindings grouped for expanded help.
func (k searchKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Done, k.Clear}}
}

// modalKeys holds key bindings while the form dialog is open. Update and
// Delete are only shown in edit mode.
type modalKeys struct {
	Next   key.Binding
	Prev   key.Binding
	Save   key.Binding
	Update key.Binding
	Delete key.Binding
	Close  key.Binding
	edit   bool
}

// ShortHelp returns the modal bindings for the help bar.
func (k modalKeys) ShortHelp() []key.Binding {
	if k.edit {
		return []key.Binding{k.Next, k.Prev, k.Update, k.Delete, k.Close}
	}
	return []key.Binding{k.Next, k.Prev, k.Save, k.Close}
}

// FullHelp returns the modal bindings grouped for expanded help.
func (k modalKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

// TableKeyMap returns the key bindings for the contact table.
func TableKeyMap() tableKeys {
	return tableKeys{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Add: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "add"),
		),
		Edit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "edit"),
		),
		Search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "search"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// SearchKeyMap returns the key bindings for the search input.
func SearchKeyMap() searchKeys {
	return searchKeys{
		Done: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "keep filter"),
		),
		Clear: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "clear"),
		),
	}
}

// ModalKeyMap returns the key bindings for the form dialog.
func ModalKeyMap(state ModalState) modalKeys {
	return modalKeys{
		Next: key.NewBinding(
			key.WithKeys("tab", "down"),
			key.WithHelp("tab", "next field"),
		),
		Prev: key.NewBinding(
			key.WithKeys("shift+tab", "up"),
			key.WithHelp("shift+tab", "prev field"),
		),
		Save: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("ctrl+s", "save"),
		),
		Update: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("ctrl+s", "update"),
		),
		Delete: key.NewBinding(
			key.WithKeys("ctrl+d"),
			key.WithHelp("ctrl+d", "delete"),
		),
		Close: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "close"),
		),
	}.withState(state)
}

// withState enables the bindings that only apply in edit mode.
func (k modalKeys) withState(state ModalState) modalKeys {
	k.edit = state == ModalEdit
	k.Delete.SetEnabled(k.edit)
	k.Save.SetEnabled(!k.edit)
	k.Update.SetEnabled(k.edit)
	return k
}

// HelpBindings returns the help.KeyMap for the current focus.
func HelpBindings(modal ModalState, searching bool) help.KeyMap {
	switch {
	case modal != ModalClosed:
		return ModalKeyMap(modal)
	case searching:
		return SearchKeyMap()
	default:
		return TableKeyMap()
	}
}
