// Package httpapi exposes the board, flow, analysis and chat dispatcher over JSON.
package httpapi

import (
	"context"
	"encoding/json"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/park285/chess-assistant-bot/internal/adapter/chesspresenter"
	"github.com/park285/chess-assistant-bot/internal/chess"
	"github.com/park285/chess-assistant-bot/internal/domain"
	"github.com/park285/chess-assistant-bot/internal/obslog"
	"github.com/park285/chess-assistant-bot/internal/service/assistant"
	"github.com/park285/chess-assistant-bot/internal/service/board"
	"github.com/park285/chess-assistant-bot/internal/service/flow"
	"github.com/park285/chess-assistant-bot/internal/tracing"
	"github.com/park285/chess-assistant-bot/pkg/chessdto"
)

type Analyzer interface {
	Analyze(ctx context.Context, req chess.AnalysisRequest) chess.AnalysisResult
	Available() bool
}

type SessionCounter interface {
	Len() int
}

type Config struct {
	Board      *board.Service
	Flow       *flow.Service
	Analyzer   Analyzer
	Dispatcher *assistant.Dispatcher
	Sessions   SessionCounter
	Tracer     trace.Tracer
	Logger     *zap.Logger
}

type Server struct {
	board      *board.Service
	flow       *flow.Service
	analyzer   Analyzer
	dispatcher *assistant.Dispatcher
	sessions   SessionCounter
	tracer     trace.Tracer
	logger     *zap.Logger

	srv *fasthttp.Server
}

func New(cfg Config) *Server {
	s := &Server{
		board:      cfg.Board,
		flow:       cfg.Flow,
		analyzer:   cfg.Analyzer,
		dispatcher: cfg.Dispatcher,
		sessions:   cfg.Sessions,
		tracer:     cfg.Tracer,
		logger:     obslog.Or(cfg.Logger),
	}
	if s.tracer == nil {
		s.tracer = tracing.Noop().Tracer()
	}
	s.srv = &fasthttp.Server{
		Handler:      s.Handler,
		Name:         "chess-assistant",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}
	return s
}

func (s *Server) ListenAndServe(addr string) error {
	s.logger.Info("http_listen", zap.String("addr", addr))
	return s.srv.ListenAndServe(addr)
}

func (s *Server) Serve(ln net.Listener) error { return s.srv.Serve(ln) }

func (s *Server) Shutdown(ctx context.Context) error { return s.srv.ShutdownWithContext(ctx) }

// Handler routes one request. Domain failures are 200 with success=false;
// only malformed requests get 4xx.
func (s *Server) Handler(rc *fasthttp.RequestCtx) {
	start := time.Now()
	method := string(rc.Method())
	path := string(rc.Request.URI().PathOriginal())
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	route := routeName(path)

	ctx, span := s.tracer.Start(rc, tracing.SpanHTTPRequest, trace.WithAttributes(
		attribute.String(tracing.AttrHTTPMethod, method),
		attribute.String(tracing.AttrHTTPRoute, route),
	))
	defer span.End()

	s.route(ctx, rc, method, path)

	status := rc.Response.StatusCode()
	span.SetAttributes(attribute.Int(tracing.AttrHTTPStatus, status))
	if status >= 500 {
		span.SetStatus(codes.Error, fasthttp.StatusMessage(status))
	}
	s.logger.Debug("http_request",
		zap.String("method", method),
		zap.String("route", route),
		zap.Int("status", status),
		zap.Duration("elapsed", time.Since(start)),
	)
}

func (s *Server) route(ctx context.Context, rc *fasthttp.RequestCtx, method, path string) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	switch {
	case path == "/healthz":
		if !allow(rc, method, fasthttp.MethodGet) {
			return
		}
		s.health(rc)
	case path == "/v1/analyze":
		if !allow(rc, method, fasthttp.MethodPost) {
			return
		}
		s.analyze(ctx, rc)
	case len(parts) >= 4 && parts[0] == "v1" && parts[1] == "users":
		userID, err := url.PathUnescape(parts[2])
		if err != nil || strings.TrimSpace(userID) == "" {
			writeError(rc, fasthttp.StatusBadRequest, chessdto.CodeBadRequest, "user id required")
			return
		}
		switch {
		case parts[3] == "board" && len(parts) == 5:
			s.boardOp(rc, method, userID, parts[4])
		case parts[3] == "flow" && len(parts) == 5:
			s.flowOp(rc, method, userID, parts[4])
		case parts[3] == "events" && len(parts) == 4:
			if !allow(rc, method, fasthttp.MethodPost) {
				return
			}
			s.event(ctx, rc, userID)
		default:
			notFound(rc)
		}
	default:
		notFound(rc)
	}
}

func (s *Server) health(rc *fasthttp.RequestCtx) {
	h := chessdto.Health{Status: "ok"}
	if s.analyzer != nil {
		h.Engine = s.analyzer.Available()
	}
	if s.sessions != nil {
		h.Sessions = s.sessions.Len()
	}
	writeJSON(rc, fasthttp.StatusOK, h)
}

func (s *Server) analyze(ctx context.Context, rc *fasthttp.RequestCtx) {
	var req chessdto.AnalyzeRequest
	if !decode(rc, &req) {
		return
	}
	if s.analyzer == nil {
		writeError(rc, fasthttp.StatusServiceUnavailable, chessdto.CodeInternal, "analyzer not configured")
		return
	}
	res := s.analyzer.Analyze(ctx, chess.AnalysisRequest{
		FEN:       req.FEN,
		Depth:     req.Depth,
		TimeLimit: time.Duration(req.TimeLimitMS) * time.Millisecond,
	})
	writeJSON(rc, fasthttp.StatusOK, chesspresenter.ToDTOAnalysis(&res))
}

func (s *Server) boardOp(rc *fasthttp.RequestCtx, method, userID, op string) {
	if s.board == nil {
		notFound(rc)
		return
	}
	var res board.Result
	switch op {
	case "state":
		if !allow(rc, method, fasthttp.MethodGet) {
			return
		}
		res = s.board.GetState(userID)
	case "destinations":
		if !allow(rc, method, fasthttp.MethodGet) {
			return
		}
		piece, ok := domain.ParsePieceKind(string(rc.QueryArgs().Peek("piece")))
		if !ok {
			writeError(rc, fasthttp.StatusBadRequest, chessdto.CodeBadRequest, "piece must be one of king, queen, rook, bishop, knight, pawn")
			return
		}
		res = s.board.Destinations(userID, piece)
	case "initialize", "reset", "undo", "move", "fen":
		if !allow(rc, method, fasthttp.MethodPost) {
			return
		}
		switch op {
		case "initialize":
			res = s.board.Initialize(userID)
		case "reset":
			res = s.board.Reset(userID)
		case "undo":
			res = s.board.Undo(userID)
		case "move":
			var req chessdto.MoveRequest
			if !decode(rc, &req) {
				return
			}
			res = s.board.MakeMove(userID, board.MoveSpec{
				Notation:  req.Notation,
				From:      req.From,
				To:        req.To,
				Promotion: req.Promotion,
			})
		case "fen":
			var req chessdto.FENRequest
			if !decode(rc, &req) {
				return
			}
			res = s.board.LoadFEN(userID, req.FEN)
		}
	default:
		notFound(rc)
		return
	}
	writeJSON(rc, fasthttp.StatusOK, chesspresenter.ToDTOBoard(&res))
}

func (s *Server) flowOp(rc *fasthttp.RequestCtx, method, userID, op string) {
	if s.flow == nil {
		notFound(rc)
		return
	}
	var res flow.Result
	switch op {
	case "next":
		if !allow(rc, method, fasthttp.MethodGet) {
			return
		}
		res = s.flow.GetNextStep(userID)
	case "init", "reset":
		if !allow(rc, method, fasthttp.MethodPost) {
			return
		}
		if op == "init" {
			res = s.flow.InitGame(userID)
		} else {
			res = s.flow.ResetGame(userID)
		}
	case "turn", "piece", "square":
		if !allow(rc, method, fasthttp.MethodPost) {
			return
		}
		var req chessdto.FlowValueRequest
		if !decode(rc, &req) {
			return
		}
		switch op {
		case "turn":
			res = s.flow.SetTurn(userID, req.Value)
		case "piece":
			res = s.flow.SelectPiece(userID, req.Value)
		default:
			res = s.flow.SelectSquare(userID, req.Value)
		}
	default:
		notFound(rc)
		return
	}
	writeJSON(rc, fasthttp.StatusOK, chesspresenter.ToDTOFlow(&res))
}

func (s *Server) event(ctx context.Context, rc *fasthttp.RequestCtx, userID string) {
	if s.dispatcher == nil {
		notFound(rc)
		return
	}
	var req chessdto.EventRequest
	if !decode(rc, &req) {
		return
	}
	kind := assistant.EventKind(strings.ToLower(strings.TrimSpace(req.Kind)))
	switch kind {
	case "":
		kind = assistant.EventText
	case assistant.EventText, assistant.EventCallback, assistant.EventPhoto:
	default:
		writeError(rc, fasthttp.StatusBadRequest, chessdto.CodeBadRequest, "kind must be text, callback or photo")
		return
	}
	reply := s.dispatcher.Handle(ctx, assistant.Event{UserID: userID, Kind: kind, Text: req.Text})
	writeJSON(rc, fasthttp.StatusOK, chesspresenter.ToDTOReply(reply))
}

// routeName collapses user ids so spans and logs group by endpoint.
func routeName(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) >= 3 && parts[0] == "v1" && parts[1] == "users" {
		parts[2] = "{id}"
	}
	return "/" + strings.Join(parts, "/")
}

func allow(rc *fasthttp.RequestCtx, method, want string) bool {
	if method == want {
		return true
	}
	rc.Response.Header.Set("Allow", want)
	writeError(rc, fasthttp.StatusMethodNotAllowed, chessdto.CodeMethod, "method not allowed")
	return false
}

// decode accepts an empty body as the zero value.
func decode(rc *fasthttp.RequestCtx, out any) bool {
	body := rc.PostBody()
	if len(strings.TrimSpace(string(body))) == 0 {
		return true
	}
	if err := json.Unmarshal(body, out); err != nil {
		writeError(rc, fasthttp.StatusBadRequest, chessdto.CodeBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

func notFound(rc *fasthttp.RequestCtx) {
	writeError(rc, fasthttp.StatusNotFound, chessdto.CodeNotFound, "no route for "+string(rc.Path()))
}

func writeError(rc *fasthttp.RequestCtx, status int, code, message string) {
	writeJSON(rc, status, chessdto.DomainError{Code: code, Message: message, Retryable: status >= 500})
}

func writeJSON(rc *fasthttp.RequestCtx, status int, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		status = fasthttp.StatusInternalServerError
		payload = []byte(`{"code":"internal","message":"encode response"}`)
	}
	rc.SetStatusCode(status)
	rc.SetContentType("application/json")
	rc.SetBody(payload)
}
