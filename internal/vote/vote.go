// Package vote holds the per-user vote state machine and the service that
// applies it against the store.
//
// A viewer's standing on a post is one of three states (none, up, down) and
// every cast moves it through a fixed transition table. The table is pure so
// it can be tested without a database; the service in service.go wires it to
// the votes table.
package vote

// State is a viewer's standing vote on a post.
type State string

const (
	None State = "none"
	Up   State = "up"
	Down State = "down"
)

// Valid reports whether s is a castable vote type. None is a derived state,
// never a cast.
func Valid(s State) bool {
	return s == Up || s == Down
}

// Outcome describes what a cast did to the standing vote.
type Outcome int

const (
	// Recorded: there was no standing vote, one was created.
	Recorded Outcome = iota
	// Cleared: the cast repeated the standing vote, which retracted it.
	Cleared
	// Flipped: the cast was the opposite of the standing vote, which
	// switched it in one step.
	Flipped
)

// Apply returns the state after casting cast while standing at cur.
// The cycle is none -> up -> none (and none -> down -> none); casting the
// opposite type flips directly without passing through none.
func Apply(cur, cast State) (State, Outcome) {
	switch {
	case cur == cast:
		return None, Cleared
	case cur == None:
		return cast, Recorded
	default:
		return cast, Flipped
	}
}
