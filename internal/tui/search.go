package tui

import (
	"context"
	"errors"

	tea "charm.land/bubbletea/v2"

	"github.com/cdelab/curator/internal/store"
)

// searchOutcome carries one finished search over the result channel.
type searchOutcome struct {
	hits []store.ScoredRecord
	err  error
}

// Search message types for Bubble Tea.
type searchStartedMsg struct {
	ch     <-chan searchOutcome
	cancel context.CancelFunc
}

type searchDoneMsg struct {
	hits []store.ScoredRecord
}

type searchErrorMsg struct {
	err error
}

// startSearch creates a command that runs the search on its own
// goroutine and hands the result channel back to the event loop.
// The goroutine exits once it has sent its single outcome; the
// buffered channel means an abandoned search cannot block it.
func (b *Browser) startSearch(query string) tea.Cmd {
	return func() tea.Msg {
		ch := make(chan searchOutcome, 1)
		ctx, cancel := context.WithTimeout(b.ctx, searchTimeout)

		go func() {
			defer close(ch)
			hits, err := b.searcher.Search(ctx, b.collection, query, store.WithLimit(b.limit))
			ch <- searchOutcome{hits: hits, err: err}
		}()

		return searchStartedMsg{ch: ch, cancel: cancel}
	}
}

// listenForResult creates a command that waits for the search outcome.
func listenForResult(ch <-chan searchOutcome) tea.Cmd {
	return func() tea.Msg {
		if ch == nil {
			return nil
		}
		outcome, ok := <-ch
		if !ok {
			return searchErrorMsg{err: errors.New("search ended without a result")}
		}
		if outcome.err != nil {
			return searchErrorMsg{err: outcome.err}
		}
		return searchDoneMsg{hits: outcome.hits}
	}
}
