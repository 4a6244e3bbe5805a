package playback

import "github.com/cockroachdb/errors"

// Trigger represents the origin of an advance.
type Trigger int

const (
	TriggerUserNext             Trigger = iota // Explicit "next" command
	TriggerPlayerNearlyFinished                // Front end is about to run out of buffered audio
	TriggerPlayerFailed                        // Front end failed to play the audible song
)

// String returns the string representation of the trigger.
func (t Trigger) String() string {
	switch t {
	case TriggerUserNext:
		return "user_next"
	case TriggerPlayerNearlyFinished:
		return "player_nearly_finished"
	case TriggerPlayerFailed:
		return "player_failed"
	default:
		return "unknown"
	}
}

// ParseTrigger parses the string representation of a trigger.
func ParseTrigger(s string) (Trigger, error) {
	switch s {
	case "user_next", "next":
		return TriggerUserNext, nil
	case "player_nearly_finished", "nearly_finished":
		return TriggerPlayerNearlyFinished, nil
	case "player_failed", "failed":
		return TriggerPlayerFailed, nil
	default:
		return 0, errors.Wrapf(ErrInvalidTrigger, "%q", s)
	}
}
