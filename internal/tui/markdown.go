package tui

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
)

// markdownWrap is the word-wrap width for rendered markdown.
const markdownWrap = 80

var (
	markdownRenderer     *glamour.TermRenderer //nolint:gochecknoglobals // cached renderer for performance
	markdownRendererOnce sync.Once             //nolint:gochecknoglobals // sync.Once for renderer initialization
)

func getMarkdownRenderer() *glamour.TermRenderer {
	markdownRendererOnce.Do(func() {
		styleOpt := glamour.WithAutoStyle()
		if !HasColorSupport() {
			styleOpt = glamour.WithStandardStyle("notty")
		}
		r, err := glamour.NewTermRenderer(
			styleOpt,
			glamour.WithWordWrap(markdownWrap),
		)
		if err == nil {
			markdownRenderer = r
		}
	})
	return markdownRenderer
}

// RenderMarkdown writes content rendered as markdown, indented by two
// spaces. It falls back to the raw text when rendering fails.
func RenderMarkdown(w io.Writer, content string) {
	text := content
	if renderer := getMarkdownRenderer(); renderer != nil {
		if rendered, err := renderer.Render(content); err == nil {
			text = rendered
		}
	}
	for _, line := range strings.Split(strings.Trim(text, "\n"), "\n") {
		_, _ = fmt.Fprintf(w, "  %s\n", line)
	}
}
