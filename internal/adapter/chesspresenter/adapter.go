package chesspresenter

import (
	"github.com/park285/chess-assistant-bot/internal/chess"
	"github.com/park285/chess-assistant-bot/internal/service/assistant"
	"github.com/park285/chess-assistant-bot/internal/service/board"
	"github.com/park285/chess-assistant-bot/internal/service/flow"
	"github.com/park285/chess-assistant-bot/pkg/chessdto"
)

func ToDTOBoard(r *board.Result) *chessdto.BoardResult {
	if r == nil {
		return nil
	}
	out := &chessdto.BoardResult{
		Success:      r.Success,
		Message:      r.Message,
		Reason:       r.Reason,
		FEN:          r.FEN,
		Turn:         r.Turn,
		GameOver:     r.GameOver,
		InCheck:      r.InCheck,
		Outcome:      r.Outcome,
		Method:       r.Method,
		LegalMoves:   append([]string(nil), r.LegalMoves...),
		LastMove:     r.LastMove,
		History:      append([]string{}, r.History...),
		Destinations: append([]string(nil), r.Destinations...),
	}
	if r.Opening != nil {
		out.Opening = &chessdto.Opening{Code: r.Opening.Code, Title: r.Opening.Title}
	}
	return out
}

func ToDTOFlow(r *flow.Result) *chessdto.FlowResult {
	if r == nil {
		return nil
	}
	return &chessdto.FlowResult{
		Success:      r.Success,
		Message:      r.Message,
		NextStep:     string(r.NextStep),
		NeedsButtons: r.NeedsButtons,
		ButtonType:   string(r.ButtonType),
		State: chessdto.FlowState{
			Initialized:   r.State.Initialized,
			Awaiting:      string(r.State.Awaiting),
			CurrentTurn:   string(r.State.CurrentTurn),
			SelectedPiece: string(r.State.SelectedPiece),
			History:       append([]string{}, r.State.History...),
		},
	}
}

func ToDTOAnalysis(r *chess.AnalysisResult) *chessdto.AnalysisResult {
	if r == nil {
		return nil
	}
	out := &chessdto.AnalysisResult{
		Success:     r.Success,
		Message:     r.Message,
		Outcome:     string(r.Outcome),
		BestMove:    r.BestMove,
		Ponder:      r.Ponder,
		HumanMove:   r.HumanMove,
		SAN:         r.SAN,
		Evaluation:  r.EvaluationText,
		Perspective: r.Evaluation.Perspective(),
		Principal:   append([]string(nil), r.PrincipalVariation...),
		Depth:       r.Depth,
		DurationMS:  r.Duration.Milliseconds(),
		RequestID:   r.RequestID,
		Cached:      r.Cached,
		Trace:       r.Trace,
	}
	switch r.Evaluation.Kind {
	case chess.EvalCentipawns:
		out.EvaluationKind = string(r.Evaluation.Kind)
		out.Centipawns = r.Evaluation.Centipawns
	case chess.EvalMate:
		out.EvaluationKind = string(r.Evaluation.Kind)
		out.Mate = r.Evaluation.Mate
	}
	return out
}

func ToDTOReply(r assistant.Reply) *chessdto.EventReply {
	return &chessdto.EventReply{
		Text:           r.Text,
		PromptKind:     string(r.PromptKind),
		RequiredInput:  string(r.RequiredInput),
		NeedsSelection: r.NeedsSelection,
		Options:        append([]string(nil), r.Options...),
		Board:          ToDTOBoard(r.Board),
		Flow:           ToDTOFlow(r.Flow),
		Analysis:       ToDTOAnalysis(r.Analysis),
	}
}
