package ui

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"sync"
)

var markupPattern = regexp.MustCompile(`</?b>`)

// StripMarkup removes the <b></b> emphasis tags notices may carry
func StripMarkup(text string) string {
	return markupPattern.ReplaceAllString(text, "")
}

// Notifier prints output device notices as styled lines.
// Safe for concurrent use.
type Notifier struct {
	mu    sync.Mutex
	out   io.Writer
	plain bool
}

// NewNotifier creates a notifier writing to w (os.Stdout when nil).
// Plain notifiers print unstyled text.
func NewNotifier(w io.Writer, plain bool) *Notifier {
	if w == nil {
		w = os.Stdout
	}
	return &Notifier{out: w, plain: plain}
}

// ShowMessage prints text. Bold markup becomes emphasis.
func (n *Notifier) ShowMessage(text string) {
	emphasis := strings.Contains(text, "<b>")
	text = StripMarkup(text)

	var line string
	switch {
	case n.plain:
		line = text
	case emphasis:
		line = NoticeEmphasisStyle.Render("» " + text)
	default:
		line = NoticeStyle.Render("» " + text)
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	_, _ = fmt.Fprintln(n.out, line)
}
