package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Toggle key.Binding
	Reset  key.Binding
	Next   key.Binding
	Focus  key.Binding
	Short  key.Binding
	Long   key.Binding
	Help   key.Binding
	Quit   key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Toggle: key.NewBinding(key.WithKeys(" ", "s"), key.WithHelp("space", "start/pause")),
		Reset:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reset")),
		Next:   key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "next")),
		Focus:  key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "focus")),
		Short:  key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "short")),
		Long:   key.NewBinding(key.WithKeys("3"), key.WithHelp("3", "long")),
		Help:   key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:   key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Reset, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Toggle, k.Reset, k.Next},
		{k.Focus, k.Short, k.Long},
		{k.Help, k.Quit},
	}
}
