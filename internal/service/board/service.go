package board

import (
	"go.uber.org/zap"

	"github.com/park285/chess-assistant-bot/internal/domain"
	"github.com/park285/chess-assistant-bot/internal/obslog"
)

// Sessions runs fn with the user's board under that user's lock, creating
// the session on first use.
type Sessions interface {
	WithBoard(userID string, fn func(*State))
}

// Service exposes the board operations keyed by user id.
type Service struct {
	engine   *Engine
	sessions Sessions
	logger   *zap.Logger
}

func NewService(engine *Engine, sessions Sessions, logger *zap.Logger) *Service {
	if engine == nil {
		engine = NewEngine(nil)
	}
	return &Service{engine: engine, sessions: sessions, logger: obslog.Or(logger)}
}

func (s *Service) Engine() *Engine { return s.engine }

func (s *Service) do(userID, op string, fn func(*State) Result) Result {
	var res Result
	s.sessions.WithBoard(userID, func(st *State) { res = fn(st) })
	if res.Success {
		s.logger.Debug("board_"+op, zap.String("user_id", userID), zap.String("fen", res.FEN))
	} else {
		s.logger.Info("board_"+op+"_rejected", zap.String("user_id", userID), zap.String("reason", res.Reason))
	}
	return res
}

func (s *Service) Initialize(userID string) Result {
	return s.do(userID, "initialize", s.engine.Initialize)
}

func (s *Service) MakeMove(userID string, spec MoveSpec) Result {
	return s.do(userID, "move", func(st *State) Result { return s.engine.MakeMove(st, spec) })
}

func (s *Service) GetState(userID string) Result {
	return s.do(userID, "state", s.engine.State)
}

func (s *Service) Reset(userID string) Result {
	return s.do(userID, "reset", s.engine.Reset)
}

func (s *Service) Undo(userID string) Result {
	return s.do(userID, "undo", s.engine.Undo)
}

func (s *Service) LoadFEN(userID, fen string) Result {
	return s.do(userID, "load_fen", func(st *State) Result { return s.engine.LoadFEN(st, fen) })
}

func (s *Service) Destinations(userID string, piece domain.PieceKind) Result {
	return s.do(userID, "destinations", func(st *State) Result { return s.engine.Destinations(st, piece) })
}

func (s *Service) ApplyPieceMove(userID string, piece domain.PieceKind, square string) Result {
	return s.do(userID, "piece_move", func(st *State) Result { return s.engine.ApplyPieceMove(st, piece, square) })
}
