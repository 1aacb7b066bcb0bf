package sim

// State is the stepper's run state.
type State int

const (
	Paused State = iota
	Running
	StepOnce
)

func (s State) String() string {
	switch s {
	case Paused:
		return "paused"
	case Running:
		return "running"
	case StepOnce:
		return "step_once"
	}
	return "unknown"
}
