// Package tui provides the Bubble Tea search browser for collections.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/spinner"
	"charm.land/bubbles/v2/textarea"
	"charm.land/bubbles/v2/viewport"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/cdelab/curator/internal/record"
	"github.com/cdelab/curator/internal/store"
)

// State represents the browser state machine.
type State int

// Browser states.
const (
	StateInput     State = iota // Typing a query
	StateSearching              // Search in flight
	StateResults                // Navigating the hit list
	StateDetail                 // Viewing one object
)

// DefaultLimit caps how many hits one search returns.
const DefaultLimit = 10

// maxHistory bounds stored queries.
const maxHistory = 100

// searchTimeout caps a single search call.
const searchTimeout = 30 * time.Second

// Layout constants for viewport height calculation.
const (
	separatorLines = 2 // Separator above and below the input
	helpLines      = 1 // Help bar height
	promptLines    = 1 // Prompt prefix line
	minViewport    = 3 // Minimum viewport height
)

// Searcher is the slice of the store the browser needs. *store.Store
// satisfies it.
type Searcher interface {
	Search(ctx context.Context, collection, text string, opts ...store.SearchOption) ([]store.ScoredRecord, error)
}

// Browser is the Bubble Tea model for interactive collection search.
type Browser struct {
	// Input (textarea kept to one line; Enter submits)
	input      textarea.Model
	history    []string
	historyIdx int

	// State
	state     State
	lastCtrlC time.Time

	// Search
	searcher   Searcher
	collection string
	limit      int
	query      string
	hits       []store.ScoredRecord
	cursor     int
	status     string

	searchCancel context.CancelFunc
	resultCh     <-chan searchOutcome

	// Output
	spinner  spinner.Model
	viewport viewport.Model
	viewBuf  strings.Builder
	help     help.Model
	keys     keyMap

	ctx       context.Context
	ctxCancel context.CancelFunc

	width  int
	height int

	styles Styles

	// YAML rendering for the detail view (nil degrades to plain text)
	yamlView *yamlRenderer
}

// New creates a browser over one collection.
//
// ctx MUST be the same context passed to tea.WithContext() so
// cancellation behaves consistently.
func New(ctx context.Context, searcher Searcher, collection string, limit int) (*Browser, error) {
	if ctx == nil {
		return nil, errors.New("tui.New: ctx is required")
	}
	if searcher == nil {
		return nil, errors.New("tui.New: searcher is required")
	}
	if collection == "" {
		return nil, errors.New("tui.New: collection is required")
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	ctx, cancel := context.WithCancel(ctx)

	ta := textarea.New()
	ta.Placeholder = "Search " + collection + "..."
	ta.SetHeight(1)
	ta.SetWidth(120) // Updated on WindowSizeMsg
	ta.MaxWidth = 0
	ta.ShowLineNumbers = false

	// Plain text input, no backgrounds
	cleanStyle := textarea.StyleState{
		Base:        lipgloss.NewStyle(),
		Text:        lipgloss.NewStyle(),
		Placeholder: lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		Prompt:      lipgloss.NewStyle(),
	}
	ta.SetStyles(textarea.Styles{Focused: cleanStyle, Blurred: cleanStyle})
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	// Keys are routed explicitly in handleKey, so the viewport's own
	// bindings stay disabled.
	vp := viewport.New(viewport.WithWidth(80), viewport.WithHeight(20))
	vp.MouseWheelEnabled = true
	vp.SoftWrap = true
	vp.KeyMap = viewport.KeyMap{}

	return &Browser{
		searcher:   searcher,
		collection: collection,
		limit:      limit,
		ctx:        ctx,
		ctxCancel:  cancel,
		input:      ta,
		spinner:    sp,
		viewport:   vp,
		help:       help.New(),
		keys:       newKeyMap(),
		styles:     DefaultStyles(),
		history:    make([]string, 0, maxHistory),
		yamlView:   newYAMLRenderer(80),
		width:      80, // Default until WindowSizeMsg arrives
	}, nil
}

// Init implements tea.Model.
func (b *Browser) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		b.spinner.Tick,
		b.input.Focus(),
	)
}

// Update implements tea.Model.
func (b *Browser) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		return b.handleKey(msg)

	case tea.WindowSizeMsg:
		b.width = msg.Width
		b.height = msg.Height

		inputHeight := b.input.Height() + promptLines
		fixedHeight := separatorLines + inputHeight + helpLines
		vpHeight := max(msg.Height-fixedHeight, minViewport)

		b.viewport.SetWidth(msg.Width)
		b.viewport.SetHeight(vpHeight)
		b.input.SetWidth(msg.Width - 4) // Room for the "> " prompt
		b.help.SetWidth(msg.Width)
		b.yamlView.Resize(msg.Width)

		b.rebuildViewportContent()
		return b, nil

	case tea.MouseWheelMsg:
		var cmd tea.Cmd
		b.viewport, cmd = b.viewport.Update(msg)
		return b, cmd

	case spinner.TickMsg:
		var cmd tea.Cmd
		b.spinner, cmd = b.spinner.Update(msg)
		if b.state == StateSearching {
			b.rebuildViewportContent()
		}
		return b, cmd

	case searchStartedMsg:
		b.searchCancel = msg.cancel
		b.resultCh = msg.ch
		b.state = StateSearching
		b.rebuildViewportContent()
		return b, listenForResult(msg.ch)

	case searchDoneMsg:
		b.stopSearch()
		b.hits = msg.hits
		b.cursor = 0
		if len(b.hits) == 0 {
			b.state = StateInput
			b.status = fmt.Sprintf("No matches for %q.", b.query)
			b.rebuildViewportContent()
			return b, b.input.Focus()
		}
		b.state = StateResults
		b.status = ""
		b.input.Blur()
		b.rebuildViewportContent()
		b.viewport.GotoTop()
		return b, nil

	case searchErrorMsg:
		b.stopSearch()
		b.state = StateInput
		if errors.Is(msg.err, context.Canceled) {
			b.status = "(Canceled)"
		} else {
			b.status = "Search failed: " + msg.err.Error()
		}
		b.rebuildViewportContent()
		return b, b.input.Focus()
	}

	var cmd tea.Cmd
	b.input, cmd = b.input.Update(msg)
	return b, cmd
}

// View implements tea.Model. AltScreen with a scrollable viewport above
// the input line.
func (b *Browser) View() tea.View {
	b.viewBuf.Reset()

	_, _ = b.viewBuf.WriteString(b.viewport.View())
	_, _ = b.viewBuf.WriteString("\n")

	_, _ = b.viewBuf.WriteString(b.renderSeparator())
	_, _ = b.viewBuf.WriteString("\n")

	_, _ = b.viewBuf.WriteString(b.styles.Prompt.Render("> "))
	_, _ = b.viewBuf.WriteString(b.input.View())
	_, _ = b.viewBuf.WriteString("\n")

	_, _ = b.viewBuf.WriteString(b.renderSeparator())
	_, _ = b.viewBuf.WriteString("\n")

	_, _ = b.viewBuf.WriteString(b.renderStatusBar())

	v := tea.NewView(b.viewBuf.String())
	v.AltScreen = true
	return v
}

// rebuildViewportContent reconstructs the viewport for the current
// state. Called whenever hits, cursor, status, or dimensions change.
func (b *Browser) rebuildViewportContent() {
	if b.state == StateDetail {
		b.viewport.SetContent(b.renderDetail())
		return
	}

	var sb strings.Builder

	if len(b.hits) == 0 && b.state == StateInput && b.status == "" {
		_, _ = sb.WriteString(b.styles.RenderBanner())
		_, _ = sb.WriteString("\n")
		_, _ = sb.WriteString(b.styles.RenderWelcomeTips(b.collection))
		b.viewport.SetContent(sb.String())
		return
	}

	_, _ = sb.WriteString(b.styles.Header.Render("curator · "+b.collection) + "\n\n")

	if b.status != "" {
		_, _ = sb.WriteString(b.styles.System.Render(b.status))
		_, _ = sb.WriteString("\n\n")
	}

	switch b.state {
	case StateSearching:
		_, _ = sb.WriteString(b.spinner.View())
		_, _ = sb.WriteString(" Searching for " + b.query + "...\n")
	case StateResults, StateInput:
		if len(b.hits) > 0 {
			header := fmt.Sprintf("%d matches for %q", len(b.hits), b.query)
			_, _ = sb.WriteString(b.styles.System.Render(header))
			_, _ = sb.WriteString("\n\n")
			for i, hit := range b.hits {
				_, _ = sb.WriteString(b.renderHitLine(i, hit))
				_, _ = sb.WriteString("\n")
			}
		}
	}

	b.viewport.SetContent(sb.String())
}

// renderHitLine formats one result row: cursor marker, id, label, score.
func (b *Browser) renderHitLine(i int, hit store.ScoredRecord) string {
	marker := "  "
	if i == b.cursor && b.state == StateResults {
		marker = b.styles.Cursor.Render("> ")
	}
	id := hit.ID
	if id == "" {
		id = "(no id)"
	}
	line := fmt.Sprintf("%s%s  %s",
		marker,
		b.styles.ID.Render(fmt.Sprintf("%-16s", id)),
		displayLabel(hit.Record),
	)
	score := b.styles.Score.Render(fmt.Sprintf(" %.3f", hit.Score))
	return line + score
}

// displayLabel picks a human-readable field off a record for the list.
func displayLabel(rec *record.Record) string {
	if rec == nil {
		return ""
	}
	for _, field := range []string{"label", "name", "title"} {
		v, ok := rec.Get(field)
		if !ok {
			continue
		}
		if s, _ := v.Str(); s != "" {
			return s
		}
	}
	return ""
}

// renderSeparator returns a horizontal line across the window.
func (b *Browser) renderSeparator() string {
	width := b.width
	if width <= 0 {
		width = 80
	}
	return b.styles.Separator.Render(strings.Repeat("─", width))
}

// renderStatusBar returns state-appropriate keyboard shortcut help.
func (b *Browser) renderStatusBar() string {
	var bindings []key.Binding
	switch b.state {
	case StateInput:
		bindings = []key.Binding{
			b.keys.Submit, b.keys.History, b.keys.Results,
			b.keys.Cancel, b.keys.Quit,
		}
	case StateSearching:
		bindings = []key.Binding{b.keys.EscCancel, b.keys.Quit}
	case StateResults:
		bindings = []key.Binding{
			b.keys.Navigate, b.keys.Open, b.keys.NewSearch,
			b.keys.Quit,
		}
	case StateDetail:
		bindings = []key.Binding{
			b.keys.Back, b.keys.Scroll, b.keys.Quit,
		}
	}
	return b.help.ShortHelpView(bindings)
}
