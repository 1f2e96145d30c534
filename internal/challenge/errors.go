package challenge

import "errors"

// ErrChallengeCanceled is returned when the user cancels a prompt rather
// than answering it. Every caller that issues a challenge must accept this
// and roll back to the prior mode rather than half-apply a transition.
var ErrChallengeCanceled = errors.New("challenge: canceled by user")
