package chesspresenter

import (
	"strings"

	"github.com/park285/chess-assistant-bot/internal/msgcat"
	"github.com/park285/chess-assistant-bot/pkg/chessdto"
)

const recentMovesLimit = 6

// Formatter renders API DTOs into chat-friendly text blocks.
type Formatter struct {
	msgs *msgcat.Catalog
}

func NewFormatter(msgs *msgcat.Catalog) *Formatter {
	return &Formatter{msgs: msgcat.Or(msgs)}
}

// Reply renders the dispatcher text followed by board, evaluation and option lines.
func (f *Formatter) Reply(r *chessdto.EventReply) string {
	if r == nil {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(strings.TrimSpace(r.Text))

	if r.Board != nil && r.Board.Success {
		appendLine(&sb, f.boardSummary(r.Board))
	}
	if r.Analysis != nil && r.Analysis.Success {
		appendLine(&sb, f.analysisDetails(r.Analysis))
	}
	if len(r.Options) > 0 {
		appendLine(&sb, f.msgs.Text("presenter.options", map[string]any{"Options": strings.Join(r.Options, " | ")}))
	}
	return sb.String()
}

func (f *Formatter) Board(b *chessdto.BoardResult) string {
	if b == nil {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(b.Message)
	if b.Success {
		appendLine(&sb, f.boardSummary(b))
	}
	return sb.String()
}

func (f *Formatter) Analysis(a *chessdto.AnalysisResult) string {
	if a == nil {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(a.Message)
	if a.Success {
		appendLine(&sb, f.analysisDetails(a))
	}
	return sb.String()
}

func (f *Formatter) boardSummary(b *chessdto.BoardResult) string {
	var sb strings.Builder
	sb.WriteString(b.FEN)
	if b.GameOver {
		appendLine(&sb, f.msgs.Text("presenter.game_over", map[string]any{
			"Result": formatOutcome(b.Outcome),
			"Method": b.Method,
		}))
	} else {
		appendLine(&sb, f.msgs.Text("presenter.turn", map[string]any{"Color": titleCase(b.Turn)}))
		if b.InCheck {
			sb.WriteString(" ")
			sb.WriteString(f.msgs.Text("presenter.check", nil))
		}
	}
	if b.Opening != nil {
		appendLine(&sb, f.msgs.Text("presenter.opening", map[string]any{"Code": b.Opening.Code, "Title": b.Opening.Title}))
	}
	if len(b.History) > 0 {
		appendLine(&sb, formatRecentMoves(b.History))
	}
	return sb.String()
}

func (f *Formatter) analysisDetails(a *chessdto.AnalysisResult) string {
	var sb strings.Builder
	if a.Evaluation != "" {
		text := a.Evaluation
		if a.Perspective != "" {
			text += " (" + a.Perspective + ")"
		}
		sb.WriteString(f.msgs.Text("presenter.evaluation", map[string]any{"Text": text}))
	}
	if len(a.Principal) > 0 {
		appendLine(&sb, f.msgs.Text("presenter.line", map[string]any{"Moves": strings.Join(a.Principal, " ")}))
	}
	return sb.String()
}

func appendLine(sb *strings.Builder, line string) {
	if strings.TrimSpace(line) == "" {
		return
	}
	if sb.Len() > 0 {
		sb.WriteString("\n")
	}
	sb.WriteString(line)
}

func formatRecentMoves(moves []string) string {
	if len(moves) <= recentMovesLimit {
		return strings.Join(moves, " ")
	}
	return "… " + strings.Join(moves[len(moves)-recentMovesLimit:], " ")
}

func formatOutcome(outcome string) string {
	switch strings.TrimSpace(outcome) {
	case "1-0":
		return "White wins"
	case "0-1":
		return "Black wins"
	case "1/2-1/2":
		return "Draw"
	default:
		return "Finished"
	}
}

func titleCase(s string) string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
