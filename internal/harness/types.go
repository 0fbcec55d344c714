package harness

// WindowTrace is one capture window as the harness saw it.
type WindowTrace struct {
	Seq      int64        `json:"seq"`
	WindowID string       `json:"window_id"`
	Window   string       `json:"window"`
	Outcome  string       `json:"outcome"`
	Groups   []GroupTrace `json:"groups"`
	Restored []int        `json:"restored"`

	// Error is the runtime error code of aborted and failed windows.
	Error string `json:"error,omitempty"`

	// Digest is the window's content hash. It is left out of golden
	// snapshots.
	Digest string `json:"digest,omitempty"`
}

// GroupTrace is one event group of a window.
type GroupTrace struct {
	Type    string `json:"type"`
	World   string `json:"world"`
	Event   string `json:"event,omitempty"`
	Outcome string `json:"outcome"`
	Parent  int    `json:"parent"`
	Nodes   []int  `json:"nodes"`
}

// BlockTrace is one non-air block or tile entity left in the world.
type BlockTrace struct {
	World string `json:"world"`
	X     int    `json:"x"`
	Y     int    `json:"y"`
	Z     int    `json:"z"`
	State string `json:"state"`
	Tile  string `json:"tile,omitempty"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if every expect clause and assertion matched.
	Pass bool `json:"pass"`

	// Trace contains every window in run order.
	Trace []WindowTrace `json:"trace"`

	// Blocks is the final world, world by world in scenario order.
	Blocks []BlockTrace `json:"blocks"`

	// RuleHits counts policy rule applications by rule name.
	RuleHits map[string]int `json:"rule_hits"`

	// Events counts posted events by event name.
	Events map[string]int `json:"events"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:     true,
		Trace:    []WindowTrace{},
		Blocks:   []BlockTrace{},
		RuleHits: make(map[string]int),
		Events:   make(map[string]int),
		Errors:   []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddWindow appends a window to the trace.
func (r *Result) AddWindow(w WindowTrace) {
	r.Trace = append(r.Trace, w)
}

// Window returns the trace of the named window.
func (r *Result) Window(name string) (WindowTrace, bool) {
	for _, w := range r.Trace {
		if w.Window == name {
			return w, true
		}
	}
	return WindowTrace{}, false
}
