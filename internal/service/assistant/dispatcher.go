// Package assistant routes chat events to the board, the input flow and
// the analyzer, and builds a single reply for each.
package assistant

import (
	"context"
	"regexp"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/park285/chess-assistant-bot/internal/chess"
	"github.com/park285/chess-assistant-bot/internal/domain"
	"github.com/park285/chess-assistant-bot/internal/msgcat"
	"github.com/park285/chess-assistant-bot/internal/obslog"
	"github.com/park285/chess-assistant-bot/internal/service/board"
	"github.com/park285/chess-assistant-bot/internal/service/flow"
	"github.com/park285/chess-assistant-bot/internal/session"
	"github.com/park285/chess-assistant-bot/internal/tracing"
)

type EventKind string

const (
	EventText     EventKind = "text"
	EventCallback EventKind = "callback"
	EventPhoto    EventKind = "photo"
)

type Event struct {
	UserID string
	Kind   EventKind
	Text   string
}

// Reply carries the text to show plus whatever structured results produced it.
type Reply struct {
	Text           string
	PromptKind     flow.NextStep
	RequiredInput  flow.ButtonType
	NeedsSelection bool
	// Options are callback values the user can pick next.
	Options  []string
	Board    *board.Result
	Flow     *flow.Result
	Analysis *chess.AnalysisResult
}

// Callback values.
const (
	CallbackInitialize = "initialize"
	CallbackHelp       = "help"
	CallbackAnalyze    = "analyze"
	CallbackUndo       = "undo"
	CallbackReset      = "reset"
	CallbackNextMove   = "next_move"

	prefixTurn   = "turn_"
	prefixPiece  = "piece_"
	prefixSquare = "square_"
)

type Sessions interface {
	With(userID string, fn func(*session.Session))
}

type Analyzer interface {
	Analyze(ctx context.Context, req chess.AnalysisRequest) chess.AnalysisResult
}

type Dispatcher struct {
	sessions Sessions
	analyzer Analyzer
	board    *board.Engine
	flow     *flow.Machine
	msgs     *msgcat.Catalog
	tracer   trace.Tracer
	logger   *zap.Logger
}

type Option func(*Dispatcher)

func WithMessages(c *msgcat.Catalog) Option { return func(d *Dispatcher) { d.msgs = c } }
func WithTracer(t trace.Tracer) Option      { return func(d *Dispatcher) { d.tracer = t } }
func WithLogger(l *zap.Logger) Option       { return func(d *Dispatcher) { d.logger = l } }

func New(sessions Sessions, analyzer Analyzer, opts ...Option) *Dispatcher {
	d := &Dispatcher{sessions: sessions, analyzer: analyzer}
	for _, opt := range opts {
		opt(d)
	}
	d.msgs = msgcat.Or(d.msgs)
	d.logger = obslog.Or(d.logger)
	if d.tracer == nil {
		d.tracer = tracing.Noop().Tracer()
	}
	d.board = board.NewEngine(d.msgs)
	d.flow = flow.NewMachine(d.msgs)
	return d
}

// Handle processes one event. It never fails: errors end up in Reply.Text.
func (d *Dispatcher) Handle(ctx context.Context, ev Event) Reply {
	ctx, span := d.tracer.Start(ctx, tracing.SpanDispatch, trace.WithAttributes(
		attribute.String(tracing.AttrUserID, ev.UserID),
		attribute.String(tracing.AttrEventKind, string(ev.Kind)),
	))
	defer span.End()

	var reply Reply
	switch ev.Kind {
	case EventPhoto:
		reply = d.photo(ev.UserID)
	case EventCallback:
		reply = d.callback(ctx, ev.UserID, strings.TrimPrefix(strings.TrimSpace(ev.Text), "Button pressed: "))
	default:
		reply = d.text(ctx, ev.UserID, strings.TrimSpace(ev.Text))
	}

	d.logger.Info("assistant_event",
		zap.String("user_id", ev.UserID),
		zap.String("kind", string(ev.Kind)),
		zap.String("prompt", string(reply.PromptKind)),
		zap.Bool("analysis", reply.Analysis != nil),
	)
	return reply
}

func (d *Dispatcher) callback(ctx context.Context, userID, data string) Reply {
	switch {
	case data == CallbackInitialize:
		return d.start(userID)
	case data == CallbackHelp:
		return d.help(userID)
	case data == CallbackAnalyze, data == "analysis", data == "more_analysis":
		return d.analyze(ctx, userID)
	case data == CallbackUndo:
		return d.undo(userID)
	case data == CallbackReset:
		return d.reset(userID)
	case data == CallbackNextMove:
		return d.nextMove(userID)
	case strings.HasPrefix(data, prefixTurn):
		return d.turn(userID, strings.TrimPrefix(data, prefixTurn))
	case strings.HasPrefix(data, prefixPiece):
		return d.piece(userID, strings.TrimPrefix(data, prefixPiece))
	case strings.HasPrefix(data, prefixSquare):
		return d.square(ctx, userID, strings.TrimPrefix(data, prefixSquare))
	}
	reply := d.prompted(userID, d.msgs.Text("assistant.unknown_callback", map[string]any{"Data": data}))
	reply.Options = []string{CallbackInitialize, CallbackHelp}
	return reply
}

var (
	coordinatePattern = regexp.MustCompile(`^([a-h][1-8])([a-h][1-8])([qrbn])?$`)
	sanPattern        = regexp.MustCompile(`^(?:[KQRBN]?[a-h]?[1-8]?x?[a-h][1-8](?:=?[QRBNqrbn])?|[Oo0]-[Oo0](?:-[Oo0])?)[+#!?]*$`)
)

func (d *Dispatcher) text(ctx context.Context, userID, raw string) Reply {
	lower := strings.ToLower(raw)
	switch lower {
	case "/start", "start":
		return d.start(userID)
	case "help", "/help":
		return d.help(userID)
	case "analyze", "analysis", "/analyze":
		return d.analyze(ctx, userID)
	case "undo":
		return d.undo(userID)
	case "reset":
		return d.reset(userID)
	}
	if strings.HasPrefix(lower, "fen ") {
		return d.loadFEN(userID, strings.TrimSpace(raw[len("fen "):]))
	}

	var awaiting flow.Awaiting
	d.sessions.With(userID, func(s *session.Session) { awaiting = s.Flow.Awaiting })
	switch awaiting {
	case flow.AwaitTurn:
		if _, ok := domain.ParseColor(lower); ok {
			return d.turn(userID, lower)
		}
	case flow.AwaitPiece:
		if _, ok := domain.ParsePieceKind(lower); ok {
			return d.piece(userID, lower)
		}
	case flow.AwaitSquare:
		if _, ok := domain.ParseSquare(lower); ok {
			return d.square(ctx, userID, lower)
		}
	}

	if spec, ok := moveSpec(raw); ok {
		return d.move(userID, spec)
	}
	return d.prompted(userID, d.msgs.Text("assistant.unknown", nil))
}

// moveSpec recognizes SAN and coordinate input. Coordinates fill both the
// notation and the from/to pair.
func moveSpec(raw string) (board.MoveSpec, bool) {
	if m := coordinatePattern.FindStringSubmatch(strings.ToLower(raw)); m != nil {
		return board.MoveSpec{Notation: m[0], From: m[1], To: m[2], Promotion: m[3]}, true
	}
	if sanPattern.MatchString(raw) {
		return board.MoveSpec{Notation: raw}, true
	}
	return board.MoveSpec{}, false
}

func (d *Dispatcher) start(userID string) Reply {
	var reply Reply
	d.sessions.With(userID, func(s *session.Session) {
		b := d.board.Initialize(s.Board)
		f := d.flow.InitGame(s.Flow)
		reply = d.flowReply(f, d.msgs.Text("assistant.welcome", nil)+"\n"+f.Message)
		reply.Board = &b
	})
	return reply
}

func (d *Dispatcher) help(userID string) Reply {
	reply := d.prompted(userID, d.msgs.Text("assistant.help", nil))
	reply.Options = []string{CallbackInitialize, CallbackAnalyze, CallbackUndo, CallbackReset}
	return reply
}

func (d *Dispatcher) photo(userID string) Reply {
	var reply Reply
	d.sessions.With(userID, func(s *session.Session) {
		f := d.flow.NextStep(s.Flow)
		reply = d.flowReply(f, d.msgs.Text("assistant.photo", map[string]any{"Prompt": f.Message}))
	})
	return reply
}

func (d *Dispatcher) turn(userID, value string) Reply {
	var reply Reply
	d.sessions.With(userID, func(s *session.Session) {
		f := d.flow.SetTurn(s.Flow, value)
		reply = d.flowReply(f, f.Message)
	})
	return reply
}

func (d *Dispatcher) piece(userID, value string) Reply {
	var reply Reply
	d.sessions.With(userID, func(s *session.Session) {
		f := d.flow.SelectPiece(s.Flow, value)
		reply = d.flowReply(f, f.Message)
		if !f.Success {
			return
		}
		dests := d.board.Destinations(s.Board, f.State.SelectedPiece)
		if len(dests.Destinations) > 0 {
			reply.Options = prefixed(prefixSquare, dests.Destinations)
		}
	})
	return reply
}

// square records the destination, plays the piece move on the board and,
// when the board accepts it, analyzes the resulting position. A rejected
// move leaves the flow waiting for a square.
func (d *Dispatcher) square(ctx context.Context, userID, value string) Reply {
	var reply Reply
	var fen string
	d.sessions.With(userID, func(s *session.Session) {
		before := *s.Flow
		before.History = append([]string(nil), s.Flow.History...)

		f := d.flow.SelectSquare(s.Flow, value)
		if !f.Success {
			reply = d.flowReply(f, f.Message)
			return
		}
		b := d.board.ApplyPieceMove(s.Board, f.State.SelectedPiece, value)
		if !b.Success {
			// the flow keeps waiting for a square the board accepts
			*s.Flow = before
			next := d.flow.NextStep(s.Flow)
			reply = d.flowReply(next, b.Message+"\n"+next.Message)
			reply.Board = &b
			dests := d.board.Destinations(s.Board, s.Flow.SelectedPiece)
			reply.Options = append(prefixed(prefixSquare, dests.Destinations), CallbackNextMove, CallbackReset)
			return
		}
		reply = d.flowReply(f, f.Message+"\n"+b.Message)
		reply.Board = &b
		fen = b.FEN
	})
	if fen == "" {
		return reply
	}

	res := d.runAnalysis(ctx, fen)
	reply.Analysis = &res
	reply.Text += "\n" + res.Message
	reply.Options = []string{CallbackNextMove, CallbackAnalyze, CallbackUndo, CallbackInitialize}
	return reply
}

func (d *Dispatcher) nextMove(userID string) Reply {
	var reply Reply
	d.sessions.With(userID, func(s *session.Session) {
		f := d.flow.InitGame(s.Flow)
		prompt := d.flow.NextStep(s.Flow).Message
		reply = d.flowReply(f, d.msgs.Text("assistant.next_move", map[string]any{"Prompt": prompt}))
	})
	return reply
}

func (d *Dispatcher) move(userID string, spec board.MoveSpec) Reply {
	var reply Reply
	d.sessions.With(userID, func(s *session.Session) {
		b := d.board.MakeMove(s.Board, spec)
		reply = d.boardReply(s, b)
		if b.Success {
			reply.Options = []string{CallbackAnalyze, CallbackUndo, CallbackInitialize}
		} else {
			reply.Options = []string{CallbackHelp}
		}
	})
	return reply
}

func (d *Dispatcher) undo(userID string) Reply {
	var reply Reply
	d.sessions.With(userID, func(s *session.Session) {
		reply = d.boardReply(s, d.board.Undo(s.Board))
		reply.Options = []string{CallbackAnalyze, CallbackUndo, CallbackInitialize}
	})
	return reply
}

func (d *Dispatcher) loadFEN(userID, fen string) Reply {
	var reply Reply
	d.sessions.With(userID, func(s *session.Session) {
		reply = d.boardReply(s, d.board.LoadFEN(s.Board, fen))
		reply.Options = []string{CallbackAnalyze, CallbackInitialize}
	})
	return reply
}

// reset clears both the board and the input flow.
func (d *Dispatcher) reset(userID string) Reply {
	var reply Reply
	d.sessions.With(userID, func(s *session.Session) {
		b := d.board.Reset(s.Board)
		f := d.flow.ResetGame(s.Flow)
		reply = d.flowReply(f, b.Message+"\n"+f.Message)
		reply.Board = &b
	})
	return reply
}

func (d *Dispatcher) analyze(ctx context.Context, userID string) Reply {
	var fen string
	var reply Reply
	d.sessions.With(userID, func(s *session.Session) {
		fen = s.Board.FEN()
		reply = d.flowReply(d.flow.NextStep(s.Flow), "")
	})

	res := d.runAnalysis(ctx, fen)
	reply.Analysis = &res
	reply.Text = res.Message
	reply.Options = []string{CallbackAnalyze, CallbackUndo, CallbackInitialize}
	return reply
}

// runAnalysis is called without any session lock held.
func (d *Dispatcher) runAnalysis(ctx context.Context, fen string) chess.AnalysisResult {
	if d.analyzer == nil {
		return chess.AnalysisResult{
			Outcome: chess.OutcomeUnavailable,
			Message: d.msgs.Text("analysis.unavailable", nil),
		}
	}
	return d.analyzer.Analyze(ctx, chess.AnalysisRequest{FEN: fen})
}

func (d *Dispatcher) prompted(userID, text string) Reply {
	var reply Reply
	d.sessions.With(userID, func(s *session.Session) {
		reply = d.flowReply(d.flow.NextStep(s.Flow), text)
	})
	return reply
}

func (d *Dispatcher) boardReply(s *session.Session, b board.Result) Reply {
	reply := d.flowReply(d.flow.NextStep(s.Flow), b.Message)
	reply.Board = &b
	return reply
}

func (d *Dispatcher) flowReply(f flow.Result, text string) Reply {
	reply := Reply{
		Text:           text,
		PromptKind:     f.NextStep,
		RequiredInput:  f.ButtonType,
		NeedsSelection: f.NeedsButtons,
		Flow:           &f,
	}
	switch f.ButtonType {
	case flow.ButtonsTurns:
		reply.Options = []string{prefixTurn + string(domain.White), prefixTurn + string(domain.Black)}
	case flow.ButtonsPieces:
		kinds := make([]string, 0, len(domain.PieceKinds))
		for _, k := range domain.PieceKinds {
			kinds = append(kinds, string(k))
		}
		reply.Options = prefixed(prefixPiece, kinds)
	}
	return reply
}

func prefixed(prefix string, values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = prefix + v
	}
	return out
}
