package chesspresenter

import (
	"fmt"
	"io"
	"strings"

	"github.com/park285/chess-assistant-bot/pkg/chessdto"
)

// Presenter delivers formatted replies without coupling to the transport.
type Presenter struct {
	formatter   *Formatter
	sendMessage func(message string) error
}

func NewPresenter(formatter *Formatter, sendMessage func(message string) error) *Presenter {
	if formatter == nil {
		formatter = NewFormatter(nil)
	}
	return &Presenter{formatter: formatter, sendMessage: sendMessage}
}

// NewWriterPresenter writes each reply to w followed by a blank line.
func NewWriterPresenter(formatter *Formatter, w io.Writer) *Presenter {
	return NewPresenter(formatter, func(message string) error {
		_, err := fmt.Fprintf(w, "%s\n\n", message)
		return err
	})
}

func (p *Presenter) Reply(r *chessdto.EventReply) error {
	if p == nil || p.sendMessage == nil {
		return nil
	}
	text := p.formatter.Reply(r)
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return p.sendMessage(text)
}

func (p *Presenter) Analysis(a *chessdto.AnalysisResult) error {
	if p == nil || p.sendMessage == nil {
		return nil
	}
	return p.sendMessage(p.formatter.Analysis(a))
}
