package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"gopkg.in/yaml.v3"
)

// yamlRenderer turns an object's YAML into styled terminal output by
// rendering it through glamour as a fenced code block. A nil renderer
// degrades to plain text.
type yamlRenderer struct {
	renderer *glamour.TermRenderer
	width    int
}

func newYAMLRenderer(width int) *yamlRenderer {
	if width <= 0 {
		width = 80
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil
	}
	return &yamlRenderer{renderer: r, width: width}
}

// Resize recreates the renderer when the width actually changed.
func (r *yamlRenderer) Resize(width int) {
	if r == nil || width <= 0 || r.width == width {
		return
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return
	}
	r.renderer = renderer
	r.width = width
}

// Render styles a YAML document, falling back to the raw text when
// rendering is unavailable.
func (r *yamlRenderer) Render(doc string) string {
	if r == nil || r.renderer == nil {
		return doc
	}
	fenced := "```yaml\n" + doc + "```"
	rendered, err := r.renderer.Render(fenced)
	if err != nil {
		return doc
	}
	return strings.TrimSuffix(rendered, "\n")
}

// renderDetail builds the full-object view for the hit under the
// cursor: an id and score header, then the object as YAML.
func (b *Browser) renderDetail() string {
	if b.cursor < 0 || b.cursor >= len(b.hits) {
		return ""
	}
	hit := b.hits[b.cursor]

	id := hit.ID
	if id == "" {
		id = "(no id)"
	}
	header := fmt.Sprintf("%s  score %.3f", b.styles.ID.Render(id), hit.Score)

	body, err := yaml.Marshal(hit.Record)
	if err != nil {
		body = []byte(fmt.Sprintf("rendering object: %v\n", err))
	}

	return header + "\n\n" + b.yamlView.Render(string(body))
}
