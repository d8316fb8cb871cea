package workflow

// Outcome classifies what a processing stream just produced.
type Outcome int

const (
	// OutcomeParsed: a message decoded cleanly, whatever it carried.
	OutcomeParsed Outcome = iota
	// OutcomeStreamError: the connection dropped, failed to open, or a
	// message would not decode.
	OutcomeStreamError
	// OutcomeBackendError: the backend itself reported failure. This is
	// authoritative, not a transport hiccup.
	OutcomeBackendError
)

// Action is the reconnect policy's decision.
type Action int

const (
	// ActionResume: keep consuming the current stream.
	ActionResume Action = iota
	// ActionReconnect: close the stream, wait the backoff, open a fresh one.
	ActionReconnect
	// ActionFail: give up and mark the workflow failed.
	ActionFail
)

// retryStep is the reconnect policy as a pure transition: given the attempts
// consumed so far and the latest outcome, it returns the new attempt count
// and what to do. Keeping it pure means the whole policy is testable without
// timers or sockets.
//
// Any successfully parsed message resets the counter, so a flaky proxy that
// keeps delivering real messages between drops never exhausts the budget.
func retryStep(attempts int, outcome Outcome, budget int) (int, Action) {
	switch outcome {
	case OutcomeParsed:
		return 0, ActionResume
	case OutcomeStreamError:
		attempts++
		if attempts >= budget {
			return attempts, ActionFail
		}
		return attempts, ActionReconnect
	default:
		return attempts, ActionFail
	}
}
