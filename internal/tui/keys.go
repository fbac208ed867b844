package tui

import (
	"strings"
	"time"

	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"
)

// keyMap holds key bindings for help bar display.
type keyMap struct {
	Submit    key.Binding
	History   key.Binding
	Results   key.Binding
	Navigate  key.Binding
	Open      key.Binding
	Back      key.Binding
	NewSearch key.Binding
	Scroll    key.Binding
	Cancel    key.Binding
	EscCancel key.Binding
	Quit      key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Submit:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "search")),
		History:   key.NewBinding(key.WithKeys("up", "down"), key.WithHelp("↑/↓", "history")),
		Results:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "results")),
		Navigate:  key.NewBinding(key.WithKeys("up", "down"), key.WithHelp("↑/↓", "move")),
		Open:      key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
		Back:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		NewSearch: key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "new search")),
		Scroll:    key.NewBinding(key.WithKeys("pgup", "pgdown"), key.WithHelp("pgup/pgdn", "scroll")),
		Cancel:    key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "cancel")),
		EscCancel: key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		Quit:      key.NewBinding(key.WithKeys("ctrl+d"), key.WithHelp("ctrl+d", "exit")),
	}
}

func (b *Browser) handleKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	k := msg.Key()

	if k.Mod&tea.ModCtrl != 0 {
		switch k.Code {
		case 'c':
			return b.handleCtrlC()
		case 'd':
			return b, b.cleanup()
		}
	}

	switch b.state {
	case StateInput:
		switch k.Code {
		case tea.KeyEnter:
			return b.handleSubmit()
		case tea.KeyUp:
			return b.navigateHistory(-1)
		case tea.KeyDown:
			return b.navigateHistory(1)
		case tea.KeyEscape:
			// Esc returns to an existing result list
			if len(b.hits) > 0 {
				b.state = StateResults
				b.input.Blur()
				b.rebuildViewportContent()
			}
			return b, nil
		}
		var cmd tea.Cmd
		b.input, cmd = b.input.Update(msg)
		return b, cmd

	case StateSearching:
		if k.Code == tea.KeyEscape {
			b.stopSearch()
			b.state = StateInput
			b.status = "(Canceled)"
			b.rebuildViewportContent()
			return b, b.input.Focus()
		}

	case StateResults:
		switch k.Code {
		case tea.KeyUp, 'k':
			b.moveCursor(-1)
			return b, nil
		case tea.KeyDown, 'j':
			b.moveCursor(1)
			return b, nil
		case tea.KeyEnter:
			return b.openDetail()
		case tea.KeyEscape, '/':
			b.state = StateInput
			b.rebuildViewportContent()
			return b, b.input.Focus()
		case tea.KeyPgUp:
			b.viewport.PageUp()
			return b, nil
		case tea.KeyPgDown:
			b.viewport.PageDown()
			return b, nil
		}

	case StateDetail:
		switch k.Code {
		case tea.KeyEscape, 'q':
			b.state = StateResults
			b.rebuildViewportContent()
			b.viewport.GotoTop()
			return b, nil
		case tea.KeyUp, tea.KeyPgUp, 'k':
			b.viewport.PageUp()
			return b, nil
		case tea.KeyDown, tea.KeyPgDown, 'j':
			b.viewport.PageDown()
			return b, nil
		}
	}

	return b, nil
}

func (b *Browser) handleCtrlC() (tea.Model, tea.Cmd) {
	now := time.Now()

	// Double Ctrl+C within 1 second quits
	if now.Sub(b.lastCtrlC) < time.Second {
		return b, b.cleanup()
	}
	b.lastCtrlC = now

	switch b.state {
	case StateInput:
		b.input.Reset()
		b.status = ""
		b.rebuildViewportContent()
		return b, nil

	case StateSearching:
		b.stopSearch()
		b.state = StateInput
		b.status = "(Canceled)"
		b.rebuildViewportContent()
		return b, b.input.Focus()

	case StateResults, StateDetail:
		b.state = StateInput
		b.rebuildViewportContent()
		return b, b.input.Focus()
	}

	return b, nil
}

func (b *Browser) handleSubmit() (tea.Model, tea.Cmd) {
	query := strings.TrimSpace(b.input.Value())
	if query == "" {
		return b, nil
	}

	b.history = append(b.history, query)
	if len(b.history) > maxHistory {
		b.history = b.history[len(b.history)-maxHistory:]
	}
	b.historyIdx = len(b.history)

	b.query = query
	b.status = ""
	b.input.Reset()

	return b, tea.Batch(
		b.spinner.Tick,
		b.startSearch(query),
	)
}

func (b *Browser) navigateHistory(delta int) (tea.Model, tea.Cmd) {
	if len(b.history) == 0 {
		return b, nil
	}

	b.historyIdx += delta
	if b.historyIdx < 0 {
		b.historyIdx = 0
	}
	if b.historyIdx > len(b.history) {
		b.historyIdx = len(b.history)
	}

	if b.historyIdx == len(b.history) {
		b.input.SetValue("")
	} else {
		b.input.SetValue(b.history[b.historyIdx])
		b.input.CursorEnd()
	}

	return b, nil
}

func (b *Browser) moveCursor(delta int) {
	if len(b.hits) == 0 {
		return
	}
	b.cursor += delta
	if b.cursor < 0 {
		b.cursor = 0
	}
	if b.cursor >= len(b.hits) {
		b.cursor = len(b.hits) - 1
	}
	b.rebuildViewportContent()
}

func (b *Browser) openDetail() (tea.Model, tea.Cmd) {
	if len(b.hits) == 0 {
		return b, nil
	}
	b.state = StateDetail
	b.rebuildViewportContent()
	b.viewport.GotoTop()
	return b, nil
}

// stopSearch cancels the in-flight search, releasing its timer.
func (b *Browser) stopSearch() {
	if b.searchCancel != nil {
		b.searchCancel()
		b.searchCancel = nil
	}
	b.resultCh = nil
}

// cleanup cancels everything and returns the quit command.
func (b *Browser) cleanup() tea.Cmd {
	if b.ctxCancel != nil {
		b.ctxCancel()
		b.ctxCancel = nil
	}
	b.stopSearch()
	return tea.Quit
}
