package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up        key.Binding
	Down      key.Binding
	Focus     key.Binding
	Toggle    key.Binding
	Range     key.Binding
	Chain     key.Binding
	SelectAll key.Binding
	ClearSel  key.Binding
	Stage     key.Binding
	Unstage   key.Binding
	Preview   key.Binding
	Refresh   key.Binding
	Server    key.Binding
	VoteUp    key.Binding
	VoteDown  key.Binding
	Approve   key.Binding
	Submit    key.Binding
	Confirm   key.Binding
	Cancel    key.Binding
	Help      key.Binding
	Quit      key.Binding
}

var keys = keyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	Focus: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "switch queue"),
	),
	Toggle: key.NewBinding(
		key.WithKeys(" "),
		key.WithHelp("space", "select"),
	),
	Range: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "range select"),
	),
	Chain: key.NewBinding(
		key.WithKeys("c"),
		key.WithHelp("c", "chain select"),
	),
	SelectAll: key.NewBinding(
		key.WithKeys("a"),
		key.WithHelp("a", "select all"),
	),
	ClearSel: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "clear selection"),
	),
	Stage: key.NewBinding(
		key.WithKeys("l", "right", "enter"),
		key.WithHelp("→/l", "stage"),
	),
	Unstage: key.NewBinding(
		key.WithKeys("h", "left", "backspace"),
		key.WithHelp("←/h", "unstage"),
	),
	Preview: key.NewBinding(
		key.WithKeys("d"),
		key.WithHelp("d", "diff preview"),
	),
	Refresh: key.NewBinding(
		key.WithKeys("R"),
		key.WithHelp("R", "refresh"),
	),
	Server: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "server on/off"),
	),
	VoteUp: key.NewBinding(
		key.WithKeys("+"),
		key.WithHelp("+", "vote +1"),
	),
	VoteDown: key.NewBinding(
		key.WithKeys("-"),
		key.WithHelp("-", "vote -1"),
	),
	Approve: key.NewBinding(
		key.WithKeys("2"),
		key.WithHelp("2", "approve batch"),
	),
	Submit: key.NewBinding(
		key.WithKeys("m"),
		key.WithHelp("m", "submit batch"),
	),
	Confirm: key.NewBinding(
		key.WithKeys("y"),
		key.WithHelp("y", "confirm"),
	),
	Cancel: key.NewBinding(
		key.WithKeys("n", "esc"),
		key.WithHelp("n", "cancel"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "help"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}
