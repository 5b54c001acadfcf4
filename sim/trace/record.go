// Package trace provides stage-transition recording for pathway analysis.
// Record types carry plain values only, so the package never imports sim.
package trace

// StageRecord captures one entity entering a pathway state.
type StageRecord struct {
	Seq      int64   `json:"seq"`
	Hours    float64 `json:"t_hours"`
	EntityID string  `json:"entity"`
	Kind     string  `json:"kind"`
	Priority string  `json:"priority"`
	Stage    string  `json:"stage"`
	State    string  `json:"state"`
	Detail   string  `json:"detail,omitempty"`
}

// ResourceRecord captures a grant or release at a resource.
type ResourceRecord struct {
	Seq      int64   `json:"seq"`
	Hours    float64 `json:"t_hours"`
	EntityID string  `json:"entity"`
	Resource string  `json:"resource"`
	Action   string  `json:"action"` // "grant" or "release"
	WaitMins float64 `json:"wait_minutes,omitempty"`
	InUse    int     `json:"in_use"`
	Capacity int     `json:"capacity"`
}
