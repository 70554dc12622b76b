package request

// StartRunRequest is the body of POST /api/discovery/runs.
type StartRunRequest struct {
	Topic             string   `json:"topic"`
	PatchID           string   `json:"patch_id"`
	DurationMinutes   int      `json:"duration_minutes"`
	MaxPages          int      `json:"max_pages"`
	HighSignalDomains []string `json:"high_signal_domains,omitempty"`
}
