package models

// RunMetadata is the file-level provenance block of one collection run.
type RunMetadata struct {
	GeneratedAt string     `json:"generated_at"`
	Generator   Generator  `json:"generator"`
	Source      Source     `json:"source"`
	Run         *RunInfo   `json:"run,omitempty"`
	Inputs      InputsInfo `json:"inputs"`
}

// Generator identifies the tool that produced the file.
type Generator struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Source lists the repositories the issues were collected from.
type Source struct {
	Repositories []string `json:"repositories"`
}

// RunInfo describes the automation run, when there is one.
type RunInfo struct {
	Workflow   string `json:"workflow,omitempty"`
	RunID      string `json:"run_id,omitempty"`
	RunAttempt string `json:"run_attempt,omitempty"`
	Actor      string `json:"actor,omitempty"`
	Ref        string `json:"ref,omitempty"`
	SHA        string `json:"sha,omitempty"`
}

// IsZero reports whether no run field is set.
func (r RunInfo) IsZero() bool {
	return r == RunInfo{}
}

// InputsInfo records the non-sensitive inputs of the run.
type InputsInfo struct {
	ProjectStateMiningEnabled bool `json:"project_state_mining_enabled"`
}
