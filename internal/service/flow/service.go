package flow

import (
	"go.uber.org/zap"

	"github.com/park285/chess-assistant-bot/internal/obslog"
)

type Sessions interface {
	WithFlow(userID string, fn func(*State))
}

// Service exposes flow actions keyed by user id.
type Service struct {
	machine  *Machine
	sessions Sessions
	logger   *zap.Logger
}

func NewService(machine *Machine, sessions Sessions, logger *zap.Logger) *Service {
	if machine == nil {
		machine = NewMachine(nil)
	}
	return &Service{machine: machine, sessions: sessions, logger: obslog.Or(logger)}
}

func (s *Service) Machine() *Machine { return s.machine }

func (s *Service) do(userID, action string, fn func(*State) Result) Result {
	var res Result
	s.sessions.WithFlow(userID, func(st *State) { res = fn(st) })
	s.logger.Debug("flow_"+action,
		zap.String("user_id", userID),
		zap.Bool("success", res.Success),
		zap.String("awaiting", string(res.State.Awaiting)),
	)
	return res
}

func (s *Service) InitGame(userID string) Result {
	return s.do(userID, "init", s.machine.InitGame)
}

func (s *Service) SetTurn(userID, value string) Result {
	return s.do(userID, "turn", func(st *State) Result { return s.machine.SetTurn(st, value) })
}

func (s *Service) SelectPiece(userID, value string) Result {
	return s.do(userID, "piece", func(st *State) Result { return s.machine.SelectPiece(st, value) })
}

func (s *Service) SelectSquare(userID, value string) Result {
	return s.do(userID, "square", func(st *State) Result { return s.machine.SelectSquare(st, value) })
}

func (s *Service) GetNextStep(userID string) Result {
	return s.do(userID, "next", s.machine.NextStep)
}

func (s *Service) ResetGame(userID string) Result {
	return s.do(userID, "reset", s.machine.ResetGame)
}
