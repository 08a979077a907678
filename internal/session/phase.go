package session

import (
	"errors"
	"fmt"
)

var ErrTerminalPhase = errors.New("phase has no successor")

type Phase string

const (
	PhaseStart            Phase = "Start"
	PhasePairParticipants Phase = "PairParticipants"
	PhaseInteraction      Phase = "Interaction"
	PhaseEnd              Phase = "End"
)

// Phases lists every phase in the order a connection moves through them.
var Phases = []Phase{PhaseStart, PhasePairParticipants, PhaseInteraction, PhaseEnd}

var successor = map[Phase]Phase{
	PhaseStart:            PhasePairParticipants,
	PhasePairParticipants: PhaseInteraction,
	PhaseInteraction:      PhaseEnd,
}

func (p Phase) Next() (Phase, error) {
	next, ok := successor[p]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrTerminalPhase, p)
	}
	return next, nil
}
