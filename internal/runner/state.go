package runner

// State is where a run is in its lifecycle.
type State string

const (
	StateInit          State = "init"
	StateScriptWritten State = "script_written"
	StateLaunched      State = "launched"
	StatePolling       State = "polling"
	StateCompleted     State = "completed"
	StateAborted       State = "aborted"
	StateFailed        State = "failed"
)

var transitions = map[State][]State{
	StateInit:          {StateScriptWritten, StateFailed},
	StateScriptWritten: {StateLaunched, StateFailed},
	StateLaunched:      {StatePolling, StateFailed},
	StatePolling:       {StateCompleted, StateAborted, StateFailed},
}

// IsTerminal reports whether no further transitions are possible.
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateAborted || s == StateFailed
}

func (s State) CanTransitionTo(target State) bool {
	for _, t := range transitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

func (s State) String() string {
	return string(s)
}
