package lobby

import (
	"go.uber.org/zap"

	"github.com/DoyleJ11/shapes-interaction/internal/session"
	"github.com/DoyleJ11/shapes-interaction/internal/types"
)

func (l *Lobby) timedOut(s *session.Session) bool {
	return l.now().Sub(s.LastHeardFrom) > l.cfg.Timeout
}

// send delivers cmd unless the recipient is gone or has been silent past the
// timeout, in which case it is dropped instead. It reports whether the
// command went out.
func (l *Lobby) send(connID string, cmd types.Command) bool {
	s, ok := l.sessions.Get(connID)
	if !ok {
		return false
	}
	if l.timedOut(s) {
		l.drop(connID, "timed out")
		return false
	}
	l.transport.Send(connID, cmd)
	return true
}

// drop removes a session and closes its connection. A partner still in the
// experiment is told it has been stranded.
func (l *Lobby) drop(connID, reason string) {
	// removed first so nothing below can reach it again
	s, ok := l.sessions.Remove(connID)
	if !ok {
		return
	}
	l.queue.Remove(connID)
	l.transport.Close(connID)
	l.log.Info("session dropped",
		zap.String("conn", connID),
		zap.String("participant", s.ParticipantID),
		zap.String("phase", string(s.Phase)),
		zap.String("reason", reason))

	if s.Paired() && s.Phase != session.PhaseEnd {
		l.strand(s.PartnerID)
	}
}

// strand tells every listed session that is still here that its partner is gone.
func (l *Lobby) strand(connIDs ...string) {
	for _, id := range connIDs {
		s, ok := l.sessions.Get(id)
		if !ok {
			continue
		}
		l.log.Warn("partner dropout", zap.String("conn", id), zap.String("pair", s.PairID))
		l.send(id, types.NewDirective(types.CmdPartnerDropout))
	}
}

func (l *Lobby) sweep() {
	for _, id := range l.sessions.IDs() {
		if s, ok := l.sessions.Get(id); ok && l.timedOut(s) {
			l.drop(id, "timed out")
		}
	}
}
