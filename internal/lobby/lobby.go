// Package lobby runs the experiment. One goroutine owns every session, the
// waiting room and both protocol barriers; transport events reach it through
// the inbox and are handled one at a time.
package lobby

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/DoyleJ11/shapes-interaction/internal/pairing"
	"github.com/DoyleJ11/shapes-interaction/internal/results"
	"github.com/DoyleJ11/shapes-interaction/internal/session"
	"github.com/DoyleJ11/shapes-interaction/internal/types"
)

var (
	ErrUnexpectedResponse = errors.New("response not expected now")
	ErrUnknownResponse    = errors.New("unknown response type")
	ErrWrongRole          = errors.New("role does not match session")
	ErrAlreadyIdentified  = errors.New("client already identified")
	ErrEmptyParticipantID = errors.New("empty participant id")
	ErrEmptyResponse      = errors.New("empty response")
)

type Msg interface{ isLobbyMsg() }

// Connect registers a new transport connection.
type Connect struct{ ConnID string }

func (Connect) isLobbyMsg() {}

// Disconnect tears the connection's session down.
type Disconnect struct{ ConnID string }

func (Disconnect) isLobbyMsg() {}

type FromClient struct {
	ConnID string
	Msg    types.ClientMessage
}

func (FromClient) isLobbyMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isLobbyMsg() {}

type Shutdown struct{}

func (Shutdown) isLobbyMsg() {}

// View is a point-in-time copy of the lobby, safe to read off the loop.
type View struct {
	NumSessions  int                        `json:"num_sessions"`
	Unidentified int                        `json:"unidentified"`
	Waiting      int                        `json:"waiting"`
	Pairs        int                        `json:"pairs"`
	Phases       map[session.Phase]int      `json:"phases"`
	Sessions     map[string]session.Session `json:"-"`
}

// Transport delivers commands to connections. Both calls must return
// without waiting on the remote end.
type Transport interface {
	Send(connID string, cmd types.Command)
	Close(connID string)
}

// Recorder receives every scored trial.
type Recorder interface {
	Record(o results.Outcome)
}

type nopRecorder struct{}

func (nopRecorder) Record(results.Outcome) {}

type Config struct {
	// Timeout is how long a session may stay silent before a send to it
	// tears it down instead.
	Timeout time.Duration
	// SweepInterval enables a periodic timeout check when positive.
	SweepInterval time.Duration
	// BreakTrials are the 1-based trial numbers after which a break is offered.
	BreakTrials []int
}

type Option func(*Lobby)

func WithClock(now func() time.Time) Option { return func(l *Lobby) { l.now = now } }
func WithRand(rng *rand.Rand) Option        { return func(l *Lobby) { l.rng = rng } }
func WithRecorder(r Recorder) Option        { return func(l *Lobby) { l.recorder = r } }
func WithLogger(log *zap.Logger) Option     { return func(l *Lobby) { l.log = log } }

type Lobby struct {
	inbox     chan Msg
	cfg       Config
	sessions  *session.Registry
	queue     *pairing.Queue
	former    *pairing.Former
	transport Transport
	recorder  Recorder
	rng       *rand.Rand
	now       func() time.Time
	log       *zap.Logger
	onEnter   map[session.Phase]func(*session.Session)
	ctx       context.Context
	cancel    context.CancelFunc
	stopped   chan struct{}
}

func NewLobby(parent context.Context, cfg Config, former *pairing.Former, transport Transport, opts ...Option) *Lobby {
	ctx, cancel := context.WithCancel(parent)

	l := &Lobby{
		inbox:     make(chan Msg, 256),
		cfg:       cfg,
		sessions:  session.NewRegistry(),
		queue:     &pairing.Queue{},
		former:    former,
		transport: transport,
		recorder:  nopRecorder{},
		rng:       rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		now:       time.Now,
		log:       zap.NewNop(),
		ctx:       ctx,
		cancel:    cancel,
		stopped:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.onEnter = map[session.Phase]func(*session.Session){
		session.PhaseStart:            l.enterStart,
		session.PhasePairParticipants: l.enterPairParticipants,
		session.PhaseInteraction:      l.enterInteraction,
		session.PhaseEnd:              l.enterEnd,
	}

	go l.loop()
	return l
}

// Inbox is where the transport posts events.
func (l *Lobby) Inbox() chan<- Msg { return l.inbox }

// Done is closed once the loop has stopped and every connection has been
// closed.
func (l *Lobby) Done() <-chan struct{} { return l.stopped }

// State asks the loop for a View.
func (l *Lobby) State(ctx context.Context) (View, error) {
	reply := make(chan View, 1)
	select {
	case l.inbox <- GetState{Reply: reply}:
	case <-ctx.Done():
		return View{}, ctx.Err()
	case <-l.ctx.Done():
		return View{}, l.ctx.Err()
	}
	select {
	case v := <-reply:
		return v, nil
	case <-ctx.Done():
		return View{}, ctx.Err()
	case <-l.ctx.Done():
		return View{}, l.ctx.Err()
	}
}

func (l *Lobby) loop() {
	defer close(l.stopped)

	var sweep <-chan time.Time
	if l.cfg.SweepInterval > 0 {
		t := time.NewTicker(l.cfg.SweepInterval)
		defer t.Stop()
		sweep = t.C
	}

	for {
		select {
		case <-l.ctx.Done():
			l.shutdown()
			return

		case <-sweep:
			l.sweep()

		case m := <-l.inbox:
			switch msg := m.(type) {
			case Connect:
				l.sessions.Add(msg.ConnID, l.now())
				l.log.Debug("connected", zap.String("conn", msg.ConnID))

			case Disconnect:
				l.drop(msg.ConnID, "disconnected")

			case FromClient:
				l.handle(msg.ConnID, msg.Msg)

			case GetState:
				msg.Reply <- l.view()

			case Shutdown:
				l.shutdown()
				return
			}
		}
	}
}

func (l *Lobby) shutdown() {
	for _, id := range l.sessions.IDs() {
		l.sessions.Remove(id)
		l.transport.Close(id)
	}
	l.cancel()
}

func (l *Lobby) view() View {
	v := View{
		NumSessions: l.sessions.Len(),
		Waiting:     l.queue.Len(),
		Phases:      make(map[session.Phase]int, len(session.Phases)),
		Sessions:    l.sessions.Snapshot(),
	}
	for id, s := range v.Sessions {
		if s.Phase == "" {
			v.Unidentified++
			continue
		}
		v.Phases[s.Phase]++
		// count each live pair once, from its lexically smaller side
		if s.Paired() && id < s.PartnerID && l.sessions.Connected(s.PartnerID) {
			v.Pairs++
		}
	}
	return v
}

// handle runs one inbound message to completion.
func (l *Lobby) handle(connID string, msg types.ClientMessage) {
	s, ok := l.sessions.Get(connID)
	if !ok {
		return
	}
	s.LastHeardFrom = l.now()

	if msg.Type != types.RespPong && s.Paired() {
		l.send(s.PartnerID, types.NewDirective(types.CmdPing))
	}

	if err := l.dispatch(s, msg); err != nil {
		l.log.Warn("rejected response",
			zap.String("conn", connID),
			zap.String("response_type", string(msg.Type)),
			zap.Error(err))
		l.send(connID, types.NewError(err.Error()))
	}
}

func (l *Lobby) dispatch(s *session.Session, msg types.ClientMessage) error {
	switch msg.Type {
	case types.RespPing:
		l.send(s.ConnID, types.NewDirective(types.CmdPong))
		return nil
	case types.RespPong:
		return nil
	case types.RespClientInfo:
		return l.identify(s, msg.ClientInfo)
	case types.RespInstructionsComplete, types.RespResponse, types.RespFinishedFeedback,
		types.RespNonresponsivePartner, types.RespAfterTrainingTimeout:
		// handled below once the session has identified itself
	default:
		return fmt.Errorf("%w: %q", ErrUnknownResponse, msg.Type)
	}

	if s.Phase == "" {
		return fmt.Errorf("%w: %s before %s", ErrUnexpectedResponse, msg.Type, types.RespClientInfo)
	}

	switch msg.Type {
	case types.RespInstructionsComplete:
		return l.instructionsComplete(s)
	case types.RespResponse:
		return l.response(s, msg.Role, msg.Response)
	case types.RespFinishedFeedback:
		return l.finishedFeedback(s)
	case types.RespNonresponsivePartner:
		l.log.Info("client reports nonresponsive partner",
			zap.String("participant", s.ParticipantID), zap.String("pair", s.PairID))
	case types.RespAfterTrainingTimeout:
		l.queue.Remove(s.ConnID)
		l.log.Info("client gave up waiting for a partner",
			zap.String("participant", s.ParticipantID))
	}
	return nil
}

func (l *Lobby) identify(s *session.Session, info string) error {
	if s.Phase != "" {
		return ErrAlreadyIdentified
	}
	pid := norm.NFC.String(strings.TrimSpace(info))
	if pid == "" {
		return ErrEmptyParticipantID
	}
	s.ParticipantID = pid
	l.log.Info("client identified", zap.String("conn", s.ConnID), zap.String("participant", pid))
	l.enter(s, session.PhaseStart)
	return nil
}

func expect(s *session.Session, t types.ResponseType) error {
	if s.Expecting != t {
		return fmt.Errorf("%w: %s while expecting %q", ErrUnexpectedResponse, t, s.Expecting)
	}
	return nil
}
