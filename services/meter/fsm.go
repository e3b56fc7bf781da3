package meter

// State is a step of one Fetch call.
type State uint8

const (
	Fetching State = iota
	Reconnecting
	Retrying
	Fatal
	Done
)

func (s State) String() string {
	switch s {
	case Fetching:
		return "fetching"
	case Reconnecting:
		return "reconnecting"
	case Retrying:
		return "retrying"
	case Fatal:
		return "fatal"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}

// Event is what happened in the current state.
type Event uint8

const (
	EvOK          Event = iota // attempt returned a value
	EvFailed                   // attempt failed (transport, timeout, parse)
	EvLinkUp                   // reconnect succeeded
	EvLinkDown                 // reconnect failed; still counts
	EvBudgetLeft               // attempts < max
	EvBudgetSpent              // attempts == max
)

type transition struct {
	from State
	on   Event
}

// transitions is the whole acquisition policy. Anything not listed is a bug.
var transitions = map[transition]State{
	{Fetching, EvOK}:           Done,
	{Fetching, EvFailed}:       Reconnecting,
	{Reconnecting, EvLinkUp}:   Retrying,
	{Reconnecting, EvLinkDown}: Retrying,
	{Retrying, EvBudgetLeft}:   Fetching,
	{Retrying, EvBudgetSpent}:  Fatal,
}

// Next returns the successor of s on e. ok is false for an undefined pair.
func Next(s State, e Event) (State, bool) {
	n, ok := transitions[transition{s, e}]
	return n, ok
}
