package game

// PathState is where a path is in its lifecycle.
type PathState string

const (
	PathPending   PathState = "pending"
	PathNarrating PathState = "narrating"
	PathAwaiting  PathState = "awaiting_step"
	PathSucceeded PathState = "succeeded"
	PathFailed    PathState = "failed"
	PathTimedOut  PathState = "timed_out"
)

// Failed reports whether the path ended without being solved.
func (s PathState) Failed() bool {
	return s == PathFailed || s == PathTimedOut
}

// Outcome is how a quest run ended.
type Outcome string

const (
	OutcomeWon     Outcome = "won"
	OutcomeLost    Outcome = "lost"
	OutcomeAborted Outcome = "aborted"
)
