package chessdto

type EventReply struct {
	Text           string          `json:"text"`
	PromptKind     string          `json:"prompt_kind"`
	RequiredInput  string          `json:"required_input,omitempty"`
	NeedsSelection bool            `json:"needs_selection"`
	Options        []string        `json:"options,omitempty"`
	Board          *BoardResult    `json:"board,omitempty"`
	Flow           *FlowResult     `json:"flow,omitempty"`
	Analysis       *AnalysisResult `json:"analysis,omitempty"`
}

type Health struct {
	Status   string `json:"status"`
	Engine   bool   `json:"engine"`
	Sessions int    `json:"sessions"`
}
