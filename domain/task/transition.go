package task

// allowedTransitions is the directed status graph. The only backward edge is
// DONE -> TODO. There are no self-loops, so resubmitting the current status is rejected.
var allowedTransitions = map[Status]map[Status]bool{
	StatusTodo: {
		StatusInProgress: true,
		StatusDone:       true,
	},
	StatusInProgress: {
		StatusDone: true,
	},
	StatusDone: {
		StatusTodo: true,
	},
}

// IsTransitionAllowed reports whether a task may move from current to proposed.
func IsTransitionAllowed(current, proposed Status) bool {
	return allowedTransitions[current][proposed]
}

// CheckTransition returns a *TransitionError when the move is not allowed.
func CheckTransition(current, proposed Status) error {
	if !IsTransitionAllowed(current, proposed) {
		return &TransitionError{From: current, To: proposed}
	}
	return nil
}
