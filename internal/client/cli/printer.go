package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/anonify/internal/client/models"
	"github.com/dmitrijs2005/anonify/internal/client/timeline"
)

// messagePrinter renders timeline messages as they are appended.
type messagePrinter struct {
	w io.Writer
}

func newMessagePrinter(w io.Writer) *messagePrinter {
	return &messagePrinter{w: w}
}

func (p *messagePrinter) onEvent(ev timeline.Event) {
	if ev.Reset {
		return
	}
	p.print(ev.Message)
}

func (p *messagePrinter) print(m models.Message) {
	var b strings.Builder

	who := "you"
	if m.Sender == models.SenderAssistant {
		who = "anonify"
	}
	fmt.Fprintf(&b, "[%s] %s\n", who, m.Content)
	if m.ImageURL != "" {
		fmt.Fprintf(&b, "        image: %s\n", imageLabel(m.ImageURL))
	}
	_, _ = io.WriteString(p.w, b.String())
}

// imageLabel shortens inline data URIs, which are too long to print.
func imageLabel(uri string) string {
	if !strings.HasPrefix(uri, "data:") {
		return uri
	}
	mime, _, _ := strings.Cut(strings.TrimPrefix(uri, "data:"), ";")
	return fmt.Sprintf("inline %s (%d bytes encoded)", mime, len(uri))
}
