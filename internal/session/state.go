package session

// StateKind identifies one of the four visible session states.
type StateKind int

const (
	KindInitial StateKind = iota
	KindLoading
	KindLoaded
	KindError
)

func (k StateKind) String() string {
	switch k {
	case KindInitial:
		return "initial"
	case KindLoading:
		return "loading"
	case KindLoaded:
		return "loaded"
	case KindError:
		return "error"
	default:
		return "unknown"
	}
}

// LoadingState is the state shown to the user. Message is only set for
// KindError and carries the load failure reason.
type LoadingState struct {
	Kind    StateKind
	Message string
}

func Initial() LoadingState { return LoadingState{Kind: KindInitial} }
func Loading() LoadingState { return LoadingState{Kind: KindLoading} }
func Loaded() LoadingState  { return LoadingState{Kind: KindLoaded} }

// Failed returns the error state for a load failure.
func Failed(message string) LoadingState {
	return LoadingState{Kind: KindError, Message: message}
}

func (s LoadingState) String() string {
	if s.Kind == KindError {
		return "error(" + s.Message + ")"
	}
	return s.Kind.String()
}

// Button is the label and enablement of the single trigger button.
type Button struct {
	Title   string
	Enabled bool
}

// ButtonFor maps a state to the trigger button.
func ButtonFor(s LoadingState) Button {
	switch s.Kind {
	case KindLoading:
		return Button{Title: "Loading", Enabled: false}
	case KindLoaded:
		return Button{Title: "Show Ad", Enabled: true}
	case KindError:
		return Button{Title: "Retry", Enabled: true}
	default:
		return Button{Title: "Load Ad", Enabled: true}
	}
}

// TapPolicy decides what a tap does while a load is in flight.
type TapPolicy int

const (
	// TapRetries abandons the in-flight load and starts a new one on a
	// fresh handle.
	TapRetries TapPolicy = iota
	// TapIgnored drops taps until the load completes.
	TapIgnored
)

// ParseTapPolicy accepts "retry" and "ignore". Empty selects TapRetries.
func ParseTapPolicy(s string) (TapPolicy, bool) {
	switch s {
	case "", "retry":
		return TapRetries, true
	case "ignore":
		return TapIgnored, true
	default:
		return TapRetries, false
	}
}

func (p TapPolicy) String() string {
	if p == TapIgnored {
		return "ignore"
	}
	return "retry"
}
