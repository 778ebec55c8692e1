// Package beingrecv applies server being messages to the client's mirror of
// the world.
package beingrecv

import (
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"gomana/being"
)

// Roster tracks players for the social list.
type Roster interface {
	Refresh()
	Seen(id being.ID, name string)
}

// Features reports optional server capabilities.
type Features interface {
	HaveMove3() bool
}

// Relations decides which beings the player accepts emotes from.
type Relations interface {
	AllowEmote(b *being.Being) bool
}

// Notifier shows player removal notices.
type Notifier interface {
	PlayerRemoved(name string, cause RemovalCause)
}

// Portals records named portal tiles on the current map. AddPortal reports
// false when no map is loaded.
type Portals interface {
	AddPortal(name string, at being.Position) bool
}

// NameRequester asks the server for a being's name.
type NameRequester interface {
	RequestName(id uint32) (bool, error)
}

// Deps are the collaborators a Reconciler works against. Registry is
// required; any other nil field disables the behaviour that needs it.
type Deps struct {
	Registry  *being.Registry
	Player    *being.LocalPlayer
	Roster    Roster
	Features  Features
	Relations Relations
	Notifier  Notifier
	Portals   Portals
	Names     NameRequester
	Log       *zap.SugaredLogger
	Now       func() time.Time

	// Sync lets server stops override the local player's position.
	Sync bool
	// LogPlayerActions enables removal notices for players.
	LogPlayerActions bool
}

// Reconciler applies one decoded message at a time. It borrows beings from
// the registry only for the duration of a call and is not safe for
// concurrent use.
type Reconciler struct {
	Deps

	badSteps *rate.Limiter
	stats    Stats
}

// Stats counts what the reconciler did, for the session summary.
type Stats struct {
	Missing    int
	BadSteps   int
	Corrected  int
	Unhandled  int
	Removed    int
	Died       int
	Spawned    int
	NameLookup int
}

// New returns a reconciler over deps.
func New(deps Deps) *Reconciler {
	if deps.Registry == nil {
		deps.Registry = being.NewRegistry()
	}
	if deps.Log == nil {
		deps.Log = zap.NewNop().Sugar()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Reconciler{
		Deps:     deps,
		badSteps: rate.NewLimiter(rate.Every(time.Second), 5),
	}
}

// Stats returns the counters collected so far.
func (r *Reconciler) Stats() Stats { return r.stats }

func (r *Reconciler) find(id being.ID) *being.Being {
	b := r.Registry.Find(id)
	if b == nil {
		r.stats.Missing++
	}
	return b
}

func (r *Reconciler) isLocal(b *being.Being) bool {
	return r.Player.Is(b)
}

func (r *Reconciler) localID() being.ID {
	if r.Player == nil || r.Player.Being == nil {
		return 0
	}
	return r.Player.ID()
}

func (r *Reconciler) clearTarget(b *being.Being) {
	if r.Player != nil && r.Player.Target() == b {
		r.Player.StopAttack()
	}
}
