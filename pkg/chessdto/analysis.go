package chessdto

// AnalysisResult is an engine answer. Failures keep Success false and explain
// themselves in Message.
type AnalysisResult struct {
	Success        bool     `json:"success"`
	Message        string   `json:"message"`
	Outcome        string   `json:"outcome"`
	BestMove       string   `json:"best_move,omitempty"`
	Ponder         string   `json:"ponder,omitempty"`
	HumanMove      string   `json:"human_move,omitempty"`
	SAN            string   `json:"san,omitempty"`
	Evaluation     string   `json:"evaluation,omitempty"`
	EvaluationKind string   `json:"evaluation_kind,omitempty"`
	Centipawns     int      `json:"centipawns,omitempty"`
	Mate           int      `json:"mate,omitempty"`
	Perspective    string   `json:"perspective,omitempty"`
	Principal      []string `json:"principal_variation,omitempty"`
	Depth          int      `json:"depth,omitempty"`
	DurationMS     int64    `json:"duration_ms"`
	RequestID      string   `json:"request_id"`
	Cached         bool     `json:"cached,omitempty"`
	Trace          string   `json:"engine_output,omitempty"`
}
