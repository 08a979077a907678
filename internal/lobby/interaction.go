package lobby

import (
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/DoyleJ11/shapes-interaction/internal/results"
	"github.com/DoyleJ11/shapes-interaction/internal/session"
	"github.com/DoyleJ11/shapes-interaction/internal/trials"
	"github.com/DoyleJ11/shapes-interaction/internal/types"
)

// partner returns the other side of s's pair, stranding s when it is gone.
func (l *Lobby) partner(s *session.Session) (*session.Session, bool) {
	p, ok := l.sessions.Get(s.PartnerID)
	if !ok {
		l.strand(s.ConnID)
	}
	return p, ok
}

// instructionsComplete is the pre-trial handshake. The second side to finish
// its instructions assigns both roles and starts the first trial.
func (l *Lobby) instructionsComplete(s *session.Session) error {
	if err := expect(s, types.RespInstructionsComplete); err != nil {
		return err
	}
	s.Expecting = ""

	p, ok := l.partner(s)
	if !ok {
		return nil
	}
	if !l.send(s.ConnID, types.NewDirective(types.CmdWaitForPartner)) {
		return nil
	}

	if p.Role != session.RoleReadyToInteract {
		s.Role = session.RoleReadyToInteract
		return nil
	}

	if l.rng.IntN(2) == 0 {
		s.Role, p.Role = session.RoleDirector, session.RoleMatcher
	} else {
		s.Role, p.Role = session.RoleMatcher, session.RoleDirector
	}
	l.log.Info("interaction started", zap.String("pair", s.PairID))
	l.startTrial(s.ConnID, p.ConnID)
	return nil
}

// startTrial shows the current trial to whichever side is Director, or ends
// the interaction for both once the sequence is used up.
func (l *Lobby) startTrial(a, b string) {
	if !l.sessions.Connected(a, b) {
		l.strand(a, b)
		return
	}
	director, matcher := l.roles(a, b)
	if director == nil {
		l.log.Error("no director in pair", zap.String("a", a), zap.String("b", b))
		return
	}

	trial, ok := director.Current()
	if !ok {
		l.log.Info("interaction finished", zap.String("pair", director.PairID))
		l.advance(director)
		l.advance(matcher)
		return
	}

	director.Expecting = types.RespResponse
	director.Label = ""
	matcher.Expecting = ""

	l.log.Debug("trial",
		zap.String("pair", director.PairID),
		zap.Int("trial", director.TrialCounter+1),
		zap.Int("block", trial.Block),
		zap.String("target", trial.Target))

	sent := l.send(director.ConnID, types.DirectorMessage{
		Type:          types.CmdDirector,
		TargetMeaning: trial.Target,
		ContextArray:  trials.Shuffled(l.rng, trial.Items()),
		LabelChoices:  slices.Clone(director.Shapes),
		BlockN:        trial.Block,
		TrialN:        director.TrialCounter + 1,
		MaxTrialN:     len(director.Trials),
		PartnerID:     matcher.ParticipantID,
	})
	if !sent {
		return
	}
	l.send(matcher.ConnID, types.NewDirective(types.CmdWaitForPartner))
}

// roles sorts a pair by role. director is nil if neither side holds it.
func (l *Lobby) roles(a, b string) (director, matcher *session.Session) {
	sa, _ := l.sessions.Get(a)
	sb, _ := l.sessions.Get(b)
	switch {
	case sa.Role == session.RoleDirector:
		return sa, sb
	case sb.Role == session.RoleDirector:
		return sb, sa
	default:
		return nil, nil
	}
}

func (l *Lobby) response(s *session.Session, rawRole, resp string) error {
	role, err := session.ParseRole(rawRole)
	if err != nil {
		return err
	}
	if role != s.Role || (role != session.RoleDirector && role != session.RoleMatcher) {
		return fmt.Errorf("%w: sent %s, session is %s", ErrWrongRole, role, s.Role)
	}
	if err := expect(s, types.RespResponse); err != nil {
		return err
	}
	if resp == "" {
		return ErrEmptyResponse
	}

	if role == session.RoleDirector {
		l.relay(s, resp)
	} else {
		l.score(s, resp)
	}
	return nil
}

// relay passes the director's label on to the matcher.
func (l *Lobby) relay(director *session.Session, label string) {
	matcher, ok := l.partner(director)
	if !ok {
		return
	}
	trial, _ := director.Current()

	director.Label = label
	director.Expecting = ""
	matcher.Expecting = types.RespResponse

	sent := l.send(matcher.ConnID, types.MatcherMessage{
		Type:           types.CmdMatcher,
		TargetMeaning:  trial.Target,
		DirectorLabel:  label,
		MeaningChoices: trials.Shuffled(l.rng, trial.Items()),
		BlockN:         trial.Block,
		TrialN:         director.TrialCounter + 1,
		MaxTrialN:      len(director.Trials),
		PartnerID:      director.ParticipantID,
	})
	if !sent {
		return
	}
	l.send(director.ConnID, types.NewDirective(types.CmdWaitForPartner))
}

// score grades the matcher's guess and shows the same feedback to both sides.
func (l *Lobby) score(matcher *session.Session, guess string) {
	director, ok := l.partner(matcher)
	if !ok {
		return
	}
	trial, _ := director.Current()
	trialN := director.TrialCounter + 1

	score := 0
	if guess == trial.Target {
		score = 1
	}
	fb := types.FeedbackMessage{
		Type:         types.CmdFeedback,
		Score:        score,
		Target:       trial.Target,
		Guess:        guess,
		BreakAllowed: slices.Contains(l.cfg.BreakTrials, trialN),
	}

	matcher.Expecting = types.RespFinishedFeedback
	director.Expecting = types.RespFinishedFeedback

	l.recorder.Record(results.Outcome{
		PairID:     director.PairID,
		TrialN:     trialN,
		Block:      trial.Block,
		DirectorID: director.ParticipantID,
		MatcherID:  matcher.ParticipantID,
		Target:     trial.Target,
		Label:      director.Label,
		Guess:      guess,
		Score:      score,
		RecordedAt: l.now(),
	})

	if !l.send(matcher.ConnID, fb) {
		return
	}
	l.send(director.ConnID, fb)
}

// finishedFeedback is the role-swap barrier. The first side to arrive waits
// as WaitingToSwitch; the second advances both counters, swaps the roles and
// starts the next trial.
func (l *Lobby) finishedFeedback(s *session.Session) error {
	if err := expect(s, types.RespFinishedFeedback); err != nil {
		return err
	}
	s.Expecting = ""

	p, ok := l.partner(s)
	if !ok {
		return nil
	}
	if p.Role != session.RoleWaitingToSwitch {
		s.Role = session.RoleWaitingToSwitch
		return nil
	}

	next, ok := s.Role.Opposite()
	if !ok {
		return fmt.Errorf("%w: %s at the role swap", session.ErrUnknownRole, s.Role)
	}
	s.TrialCounter++
	p.TrialCounter++
	p.Role = s.Role
	s.Role = next
	l.startTrial(s.ConnID, p.ConnID)
	return nil
}
