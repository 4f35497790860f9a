package wifi

// This file implements the association finite state machine. The FSM is a
// pure function over a transition table -- no side effects, no Manager
// dependency. The Manager executes the returned actions (issuing connect
// requests, waiting out retry delays) and feeds the outcomes back in as
// events.
//
// State diagram:
//
//	          Start                ConnectSucceeded
//	  Idle ----------> Connecting -----------------> Connected (terminal)
//	                    |      ^
//	  ConnectFailedRetry|      | RetryElapsed
//	                    v      |
//	                   RetryWait
//	                    |
//	                    | (from Connecting) ConnectFailedFinal
//	                    v
//	                  Exhausted (terminal)

// State represents an association FSM state.
type State uint8

const (
	// StateIdle is the initial state before any attempt has been issued.
	StateIdle State = iota + 1

	// StateConnecting indicates an association request is in flight.
	StateConnecting

	// StateRetryWait indicates a failed attempt is waiting out the
	// retry delay before the next request.
	StateRetryWait

	// StateConnected is the terminal success state.
	StateConnected

	// StateExhausted is the terminal failure state: every allowed
	// attempt has failed.
	StateExhausted
)

// String returns the human-readable name of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateConnecting:
		return "Connecting"
	case StateRetryWait:
		return "RetryWait"
	case StateConnected:
		return "Connected"
	case StateExhausted:
		return "Exhausted"
	default:
		return "Unknown"
	}
}

// Event represents an association FSM event.
type Event uint8

const (
	// EventStart begins the first association attempt.
	EventStart Event = iota + 1

	// EventConnectSucceeded is the outcome of a request the radio accepted.
	EventConnectSucceeded

	// EventConnectFailedRetry is the outcome of a failed request with
	// attempts remaining.
	EventConnectFailedRetry

	// EventConnectFailedFinal is the outcome of a failed request with no
	// attempts remaining.
	EventConnectFailedFinal

	// EventRetryElapsed fires when the retry delay has been waited out.
	EventRetryElapsed
)

// String returns the human-readable name of the event.
func (e Event) String() string {
	switch e {
	case EventStart:
		return "Start"
	case EventConnectSucceeded:
		return "ConnectSucceeded"
	case EventConnectFailedRetry:
		return "ConnectFailedRetry"
	case EventConnectFailedFinal:
		return "ConnectFailedFinal"
	case EventRetryElapsed:
		return "RetryElapsed"
	default:
		return "Unknown"
	}
}

// Action represents a side-effect to execute after an FSM transition.
// Actions are returned as part of Result and executed by the Manager.
// The FSM itself is a pure function.
type Action uint8

const (
	// ActionIssueConnect triggers one association request to the radio.
	ActionIssueConnect Action = iota + 1

	// ActionQueryLinkStatus queries link-level connectivity as a
	// post-success diagnostic. The result never fails the bring-up.
	ActionQueryLinkStatus

	// ActionWaitRetry suspends for the configured retry delay.
	ActionWaitRetry

	// ActionReportExhausted reports that every attempt has failed.
	ActionReportExhausted
)

// String returns the human-readable name of the action.
func (a Action) String() string {
	switch a {
	case ActionIssueConnect:
		return "IssueConnect"
	case ActionQueryLinkStatus:
		return "QueryLinkStatus"
	case ActionWaitRetry:
		return "WaitRetry"
	case ActionReportExhausted:
		return "ReportExhausted"
	default:
		return "Unknown"
	}
}

// stateEvent is the FSM transition table key: current state + incoming event.
type stateEvent struct {
	state State
	event Event
}

// transition describes the target state and side-effects for a single
// FSM transition.
type transition struct {
	newState State
	actions  []Action
}

// Result holds the outcome of applying an event to the FSM.
// The caller inspects Changed to decide whether state-change processing
// (logging, metrics) is needed.
type Result struct {
	// OldState is the state before the event was applied.
	OldState State

	// NewState is the state after the event was applied.
	// Equal to OldState when the event is ignored.
	NewState State

	// Actions lists the side-effects that the caller must execute.
	// Empty when the event is ignored.
	Actions []Action

	// Changed is true when NewState differs from OldState.
	Changed bool
}

// fsmTable is the complete association FSM transition table.
//
// Unlisted (state, event) pairs are silently ignored. Connected and
// Exhausted are terminal: no event leaves them.
//
//nolint:gochecknoglobals // FSM transition table is intentionally package-level.
var fsmTable = map[stateEvent]transition{
	// Idle: the only way forward is starting the first attempt.
	{StateIdle, EventStart}: {
		newState: StateConnecting,
		actions:  []Action{ActionIssueConnect},
	},

	// Connecting: the request outcome decides everything. A successful
	// request additionally queries link status, but only as a
	// diagnostic -- a not-connected answer is logged and the bring-up
	// proceeds.
	{StateConnecting, EventConnectSucceeded}: {
		newState: StateConnected,
		actions:  []Action{ActionQueryLinkStatus},
	},
	{StateConnecting, EventConnectFailedRetry}: {
		newState: StateRetryWait,
		actions:  []Action{ActionWaitRetry},
	},
	{StateConnecting, EventConnectFailedFinal}: {
		newState: StateExhausted,
		actions:  []Action{ActionReportExhausted},
	},

	// RetryWait: once the delay has elapsed, issue the next request.
	{StateRetryWait, EventRetryElapsed}: {
		newState: StateConnecting,
		actions:  []Action{ActionIssueConnect},
	},
}

// ApplyEvent applies an FSM event to the given state and returns the result.
//
// This is a pure function with no side effects. The caller is responsible
// for executing the returned actions. If the (state, event) pair has no
// entry in the transition table, the event is silently ignored and
// Result.Changed is false with an empty action list.
func ApplyEvent(currentState State, event Event) Result {
	key := stateEvent{state: currentState, event: event}

	tr, ok := fsmTable[key]
	if !ok {
		return Result{
			OldState: currentState,
			NewState: currentState,
			Actions:  nil,
			Changed:  false,
		}
	}

	return Result{
		OldState: currentState,
		NewState: tr.newState,
		Actions:  tr.actions,
		Changed:  currentState != tr.newState,
	}
}
