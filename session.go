package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"gomana/being"
	"gomana/beingrecv"
	"gomana/clnet"
	"gomana/playerinfo"
	"gomana/playerrecv"
	"gomana/roster"
	"gomana/world"
)

// errStreamBroken is returned once the framer has hit an opcode it cannot
// size. Nothing after that point can be framed.
var errStreamBroken = errors.New("server stream out of sync")

// session holds the mirrored world for one server stream. It is driven by
// a single goroutine.
type session struct {
	name string
	cfg  Settings
	log  *zap.SugaredLogger

	registry *being.Registry
	player   *being.LocalPlayer
	world    *world.World
	info     *playerinfo.Store
	roster   *roster.Roster

	beings   *beingrecv.Reconciler
	self     *playerrecv.Receiver
	dispatch *clnet.Dispatcher
	sender   *clnet.Sender
	framer   clnet.Framer

	now         time.Time
	start, last time.Time
	packets     int
	bytes       int
	broken      error
	notices     []string
}

// newSession wires a session. Client packets are written to w, which may be
// nil for read-only streams. db may be nil to keep the roster in memory.
func newSession(name string, cfg Settings, db *gorm.DB, w io.Writer, log *zap.SugaredLogger) (*session, error) {
	charset, err := serverCharset(cfg.ServerEncoding)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	s := &session{
		name:     name,
		cfg:      cfg,
		log:      log.With("session", name),
		registry: being.NewRegistry(),
		info:     playerinfo.New(),
	}
	s.player = being.NewLocalPlayer(being.ID(cfg.LocalPlayerID), 0)
	s.player.Name = cfg.LocalPlayerName
	s.player.Imitate = cfg.ImitatePlayer
	s.registry.Adopt(s.player.Being)
	s.world = world.New(s.registry, s.player, cfg.MapSizes)

	s.roster = roster.New(db, func(id being.ID) bool { return s.registry.Find(id) != nil }, s.log)
	s.roster.SetClock(s.clock)
	if db != nil {
		if err := s.roster.Load(); err != nil {
			return nil, err
		}
	}

	s.sender = clnet.NewSender(w, clnet.NewLimiter(clnet.DefaultLimits))
	s.sender.SetClock(s.clock)

	s.dispatch = clnet.NewDispatcher(charset, s.log)
	s.beings = beingrecv.New(beingrecv.Deps{
		Registry:         s.registry,
		Player:           s.player,
		Roster:           s.roster,
		Features:         s,
		Relations:        s,
		Notifier:         s,
		Portals:          s.world,
		Names:            s.sender,
		Log:              s.log,
		Now:              s.clock,
		Sync:             cfg.Sync,
		LogPlayerActions: cfg.LogPlayerActions,
	})
	s.beings.Register(s.dispatch)
	s.self = playerrecv.New(playerrecv.Deps{
		Player:   s.player,
		World:    s.world,
		Info:     s.info,
		Notifier: s,
		Roster:   s.roster,
		Log:      s.log,
		Now:      s.clock,
	})
	s.self.Register(s.dispatch)
	return s, nil
}

// clock is the session time: wall time for live streams, capture time for
// replays.
func (s *session) clock() time.Time {
	if s.now.IsZero() {
		return time.Now()
	}
	return s.now
}

// HaveMove3 reports whether the server sends move3 paths.
func (s *session) HaveMove3() bool { return s.cfg.HaveMove3 }

// AllowEmote rejects emotes from ignored players.
func (s *session) AllowEmote(b *being.Being) bool {
	return !b.IsPlayer() || !s.cfg.ignored(b.Name)
}

// PlayerRemoved reports a player leaving view.
func (s *session) PlayerRemoved(name string, cause beingrecv.RemovalCause) {
	var msg string
	switch cause {
	case beingrecv.CauseDied:
		msg = fmt.Sprintf("Player %s died.", name)
	case beingrecv.CauseLoggedOut:
		msg = fmt.Sprintf("Player %s logged out.", name)
	case beingrecv.CauseWarped:
		msg = fmt.Sprintf("Player %s warped away.", name)
	case beingrecv.CauseTrickDead:
		msg = fmt.Sprintf("Player %s is playing dead.", name)
	default:
		msg = fmt.Sprintf("Player %s is gone (%s).", name, cause)
	}
	s.Notice(msg)
}

// Notice records a message for the player.
func (s *session) Notice(msg string) {
	s.notices = append(s.notices, msg)
	s.log.Info(msg)
}

// feed frames data received at the given time and dispatches every complete
// packet. Beings are advanced to at before and after.
func (s *session) feed(data []byte, at time.Time) error {
	if s.broken != nil {
		return s.broken
	}
	s.tick(at)
	s.framer.Feed(data)
	for {
		pkt, err := s.framer.Next()
		if err != nil {
			s.broken = fmt.Errorf("%w: %w", errStreamBroken, err)
			logError("%s: %v", s.name, err)
			return s.broken
		}
		if pkt == nil {
			break
		}
		s.dispatchMessage(pkt)
	}
	s.advance()
	return nil
}

func (s *session) tick(at time.Time) {
	if at.IsZero() {
		at = time.Now()
	}
	s.now = at
	if s.start.IsZero() {
		s.start = at
	}
	if at.After(s.last) {
		s.last = at
	}
}

// advance walks every being along its path up to the session clock.
func (s *session) advance() {
	now := s.clock()
	s.registry.Each(func(b *being.Being) {
		b.Advance(now)
	})
}

// finish persists the roster.
func (s *session) finish() error {
	if s.framer.Buffered() > 0 {
		s.log.Debugf("%d trailing bytes left unframed", s.framer.Buffered())
	}
	return s.roster.Save()
}
