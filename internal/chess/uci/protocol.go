package uci

import (
	"bytes"
	"strconv"
	"strings"
)

type LineKind int

const (
	LineOther LineKind = iota
	LineInfo
	LineBestMove
)

type ScoreKind int

const (
	ScoreNone ScoreKind = iota
	ScoreCP
	ScoreMate
)

// Score is an engine evaluation from the side to move's point of view.
type Score struct {
	Kind  ScoreKind
	Value int
	// Bound is "lowerbound", "upperbound" or empty for an exact score.
	Bound string
}

type Info struct {
	Depth    int
	HasDepth bool
	SelDepth int
	MultiPV  int
	Score    Score
	PV       []string
}

// Qualifies reports whether the line is deep enough to replace the current evaluation.
func (i Info) Qualifies(minDepth int) bool {
	return i.HasDepth && i.Depth >= minDepth && len(i.PV) > 0
}

type BestMove struct {
	Move   string
	Ponder string
}

type Line struct {
	Kind     LineKind
	Raw      string
	Info     Info
	BestMove BestMove
}

// ParseLine classifies one line of engine output. Anything that is not a
// well-formed info or bestmove line comes back as LineOther.
func ParseLine(raw string) Line {
	line := Line{Kind: LineOther, Raw: raw}
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return line
	}
	switch fields[0] {
	case "bestmove":
		if len(fields) < 2 {
			return line
		}
		line.Kind = LineBestMove
		line.BestMove.Move = fields[1]
		if len(fields) >= 4 && fields[2] == "ponder" {
			line.BestMove.Ponder = fields[3]
		}
	case "info":
		info, ok := parseInfo(fields[1:])
		if !ok {
			return line
		}
		line.Kind = LineInfo
		line.Info = info
	}
	return line
}

func parseInfo(parts []string) (Info, bool) {
	info := Info{MultiPV: 1}
	for i := 0; i < len(parts); i++ {
		switch parts[i] {
		case "depth":
			if i+1 < len(parts) {
				if v, err := strconv.Atoi(parts[i+1]); err == nil {
					info.Depth = v
					info.HasDepth = true
				}
				i++
			}
		case "seldepth":
			if i+1 < len(parts) {
				if v, err := strconv.Atoi(parts[i+1]); err == nil {
					info.SelDepth = v
				}
				i++
			}
		case "multipv":
			if i+1 < len(parts) {
				if v, err := strconv.Atoi(parts[i+1]); err == nil {
					info.MultiPV = v
				}
				i++
			}
		case "score":
			if i+2 < len(parts) {
				v, err := strconv.Atoi(parts[i+2])
				if err == nil {
					switch parts[i+1] {
					case "cp":
						info.Score = Score{Kind: ScoreCP, Value: v}
					case "mate":
						info.Score = Score{Kind: ScoreMate, Value: v}
					}
				}
				i += 2
				if i+1 < len(parts) && (parts[i+1] == "lowerbound" || parts[i+1] == "upperbound") {
					info.Score.Bound = parts[i+1]
					i++
				}
			}
		case "pv":
			info.PV = append([]string(nil), parts[i+1:]...)
			i = len(parts)
		case "string":
			// free text runs to the end of the line
			i = len(parts)
		}
	}
	if !info.HasDepth && len(info.PV) == 0 && info.Score.Kind == ScoreNone {
		return Info{}, false
	}
	return info, true
}

// LineSplitter turns arbitrary output chunks into complete lines.
type LineSplitter struct {
	pending []byte
}

// Feed appends a chunk and returns every line it completed, without terminators.
func (s *LineSplitter) Feed(chunk []byte) []string {
	s.pending = append(s.pending, chunk...)
	var lines []string
	for {
		idx := bytes.IndexByte(s.pending, '\n')
		if idx < 0 {
			break
		}
		lines = append(lines, strings.TrimRight(string(s.pending[:idx]), "\r"))
		s.pending = s.pending[idx+1:]
	}
	if len(s.pending) == 0 {
		s.pending = nil
	}
	return lines
}

// Flush returns the unterminated remainder, if any.
func (s *LineSplitter) Flush() (string, bool) {
	if len(s.pending) == 0 {
		return "", false
	}
	rest := strings.TrimRight(string(s.pending), "\r")
	s.pending = nil
	return rest, true
}

func buildPositionCommand(fen string) string {
	if strings.TrimSpace(fen) == "" || fen == "startpos" {
		return "position startpos\n"
	}
	return "position fen " + fen + "\n"
}

func buildGoCommand(depth int) string {
	return "go depth " + strconv.Itoa(depth) + "\n"
}

// MinUsefulDepth is the shallowest info depth that may update the evaluation.
func MinUsefulDepth(depth int) int {
	return min(depth, 5)
}
