package voice

import "github.com/disgoorg/snowflake/v2"

// Transition classifies a presence change relative to the staging
// channel. The staging channel is the transient hop used by
// create-your-own-room flows and never counts as a leave/join boundary.
type Transition int

const (
	// TransitionNone covers events that neither start nor end tracked
	// presence, including hops into the staging channel from nowhere.
	TransitionNone Transition = iota
	// TransitionJoin starts tracked presence in a trackable channel.
	TransitionJoin
	// TransitionSwitch moves tracked presence between trackable
	// channels. Cumulative progress is preserved. A repeated event for
	// the same channel classifies as a switch too, so duplicate
	// gateway events recreate the session instead of dropping it.
	TransitionSwitch
	// TransitionLeave ends tracked presence.
	TransitionLeave
)

// Classify maps (previous, next) channel IDs to a transition. A zero
// ID means the user was or is in no voice channel.
func Classify(previous, next, staging snowflake.ID) Transition {
	trackedBefore := previous != 0 && previous != staging
	trackedAfter := next != 0 && next != staging

	switch {
	case trackedAfter && !trackedBefore:
		return TransitionJoin
	case trackedBefore && trackedAfter:
		return TransitionSwitch
	case trackedBefore && !trackedAfter:
		return TransitionLeave
	default:
		return TransitionNone
	}
}
