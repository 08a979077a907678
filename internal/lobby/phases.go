package lobby

import (
	"go.uber.org/zap"

	"github.com/DoyleJ11/shapes-interaction/internal/pairing"
	"github.com/DoyleJ11/shapes-interaction/internal/session"
	"github.com/DoyleJ11/shapes-interaction/internal/types"
)

const instructionInteraction = "Interaction"

func (l *Lobby) enter(s *session.Session, p session.Phase) {
	s.Phase = p
	l.log.Info("phase", zap.String("conn", s.ConnID), zap.String("phase", string(p)))
	l.onEnter[p](s)
}

// advance moves s to its successor phase. End has none and stays put.
func (l *Lobby) advance(s *session.Session) {
	next, err := s.Phase.Next()
	if err != nil {
		l.log.Warn("advance", zap.String("conn", s.ConnID), zap.Error(err))
		return
	}
	l.enter(s, next)
}

func (l *Lobby) enterStart(s *session.Session) {
	l.advance(s)
}

// enterPairParticipants puts s in the waiting room. The second arrival of a
// pair forms it and moves both sides on in the same step.
func (l *Lobby) enterPairParticipants(s *session.Session) {
	if !l.send(s.ConnID, types.NewDirective(types.CmdWaitingRoomPairing)) {
		return
	}

	first, second, paired := l.queue.Push(s.ConnID)
	if !paired {
		return
	}
	a, okA := l.sessions.Get(first)
	b, okB := l.sessions.Get(second)
	if !okA || !okB {
		// disconnects leave the queue, so this is a bookkeeping bug
		l.log.Error("queued session missing", zap.String("first", first), zap.String("second", second))
		return
	}

	pair, err := l.former.Form(l.rng)
	if err != nil {
		l.log.Error("form pair", zap.Error(err),
			zap.String("first", a.ParticipantID), zap.String("second", b.ParticipantID))
		for _, id := range []string{first, second} {
			l.send(id, types.NewError("could not build trial list"))
			l.drop(id, "pair formation failed")
		}
		return
	}

	pairID := pairing.PairID(a.ParticipantID, b.ParticipantID)
	install(a, b.ConnID, pairID, pair)
	install(b, a.ConnID, pairID, pair)
	l.log.Info("paired",
		zap.String("pair", pairID),
		zap.String("condition", string(pair.Condition)),
		zap.Strings("shapes", pair.Shapes),
		zap.Int("trials", len(pair.Trials)))

	l.advance(a)
	if !l.sessions.Connected(a.ConnID) {
		// a timed out on its first send and b has been told
		return
	}
	l.advance(b)
}

func install(s *session.Session, partner, pairID string, p pairing.Pair) {
	s.PartnerID = partner
	s.PairID = pairID
	s.Shapes = p.Shapes
	s.Correspondence = p.Correspondence
	s.Trials = p.Trials
	s.TrialCounter = 0
}

func (l *Lobby) enterInteraction(s *session.Session) {
	if !l.send(s.ConnID, types.PairIDMessage{Type: types.CmdPairID, PairID: s.PairID}) {
		return
	}
	s.Role = session.RoleReadingInstructions
	s.Expecting = types.RespInstructionsComplete
	l.send(s.ConnID, types.InstructionsMessage{Type: types.CmdInstructions, InstructionType: instructionInteraction})
}

func (l *Lobby) enterEnd(s *session.Session) {
	s.Expecting = ""
	l.send(s.ConnID, types.NewDirective(types.CmdEndExperiment))
}
