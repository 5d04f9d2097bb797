package audit

import "time"

// Entry is one line of the audit log: a completed pipeline run.
type Entry struct {
	Seq      uint64    `json:"seq"`
	Time     time.Time `json:"ts"`
	PrevHash string    `json:"prev_hash"`
	RunID    string    `json:"run_id"`
	Origin   string    `json:"origin"`          // "cli" or "mcp"
	Input    string    `json:"input,omitempty"` // operations file, "-" for stdin
	Tools    []string  `json:"tools"`           // requested tool of each operation
	Results  int       `json:"results"`
	Failed   int       `json:"failed"`
	Status   []string  `json:"status"`
	Summary  string    `json:"summary"`
	Duration float64   `json:"duration_ms"`
	Cwd      string    `json:"cwd,omitempty"`
	Hash     string    `json:"hash"` // SHA-256 of this entry with Hash empty
}

// Run carries what the caller knows about a finished run.
type Run struct {
	RunID    string
	Origin   string
	Input    string
	Tools    []string
	Results  int
	Failed   int
	Status   []string
	Summary  string
	Duration time.Duration
}
