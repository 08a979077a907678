package session

import (
	"time"

	"github.com/DoyleJ11/shapes-interaction/internal/trials"
	"github.com/DoyleJ11/shapes-interaction/internal/types"
)

// Session is everything the server knows about one connected actor. Fields
// are filled in as the connection moves through its phases.
type Session struct {
	ConnID        string
	ParticipantID string
	Phase         Phase // empty until the actor identifies itself
	Role          Role

	// Set together at pairing and identical on both sides of a pair.
	PartnerID      string
	PairID         string
	Shapes         []string
	Correspondence trials.Correspondence
	Trials         []trials.Trial
	TrialCounter   int

	// Expecting is the response this actor owes next, if any.
	Expecting types.ResponseType
	// Label is the director's label for the trial in progress.
	Label string

	LastHeardFrom time.Time
}

func (s Session) Paired() bool {
	return s.PartnerID != ""
}

// Current returns the trial at TrialCounter, or false once the sequence is done.
func (s Session) Current() (trials.Trial, bool) {
	if s.TrialCounter < 0 || s.TrialCounter >= len(s.Trials) {
		return trials.Trial{}, false
	}
	return s.Trials[s.TrialCounter], true
}
