package beingrecv

import (
	"fmt"

	"gomana/being"
)

// RemovalCause is the reason the server gives for a being leaving view.
type RemovalCause uint8

const (
	CauseServerRemove RemovalCause = iota
	CauseDied
	CauseLoggedOut
	CauseWarped
	CauseTrickDead
)

func (c RemovalCause) String() string {
	switch c {
	case CauseServerRemove:
		return "removed"
	case CauseDied:
		return "died"
	case CauseLoggedOut:
		return "logged out"
	case CauseWarped:
		return "warped"
	case CauseTrickDead:
		return "trick dead"
	}
	return fmt.Sprintf("unknown cause %d", uint8(c))
}

// ActionType is the sub type of a being action message.
type ActionType uint8

const (
	ActionHit      ActionType = 0x00
	ActionPickup   ActionType = 0x01
	ActionSit      ActionType = 0x02
	ActionStand    ActionType = 0x03
	ActionReflect  ActionType = 0x04
	ActionMulti    ActionType = 0x08
	ActionCritical ActionType = 0x0a
	ActionFlee     ActionType = 0x0b
)

// IsAttack reports whether t carries damage.
func (t ActionType) IsAttack() bool {
	switch t {
	case ActionHit, ActionCritical, ActionMulti, ActionReflect, ActionFlee:
		return true
	}
	return false
}

// ProcessRemoval handles a being leaving view or dying.
func (r *Reconciler) ProcessRemoval(id being.ID, cause RemovalCause) {
	if r.Player == nil {
		return
	}
	b := r.find(id)
	if b == nil {
		return
	}
	r.clearTarget(b)

	switch {
	case cause == CauseDied:
		if b.Action() != being.ActionDead {
			b.SetAction(being.ActionDead, r.Now())
			b.RecalcSpritesOrder()
			r.stats.Died++
		}
	case cause == CauseServerRemove && b.IsNPC():
		r.Registry.Destroy(b)
		r.stats.Removed++
	default:
		if b.IsPlayer() {
			if r.Roster != nil {
				r.Roster.Refresh()
			}
			if b.Name != "" && r.LogPlayerActions && r.Notifier != nil {
				r.Notifier.PlayerRemoved(b.Name, cause)
			}
		}
		r.Registry.Destroy(b)
		r.stats.Removed++
	}
}

// ProcessAction applies an attack or a sit/stand change. Source and
// destination are looked up independently; a missing one only skips its own
// side.
func (r *Reconciler) ProcessAction(srcID, dstID being.ID, srcSpeed, dstSpeed int, param1 int, typ ActionType) {
	src := r.find(srcID)
	dst := r.find(dstID)
	now := r.Now()

	switch {
	case typ.IsAttack():
		if src != nil {
			if srcSpeed != 0 && src.IsPlayer() {
				src.SetAttackDelay(srcSpeed)
			}
			src.HandleAttack(dst, param1, 1, now)
			if src.IsPlayer() {
				src.AttackTime = now
			}
		}
		if dst != nil {
			dst.TakeDamage(src, param1, being.DamageType(typ), now)
		}
	case typ == ActionPickup:
	case typ == ActionSit, typ == ActionStand:
		if src == nil {
			return
		}
		a := being.ActionSit
		if typ == ActionStand {
			a = being.ActionStand
		}
		src.SetAction(a, now)
		if src.IsPlayer() {
			src.MoveTime = now
			if r.Player != nil {
				r.Player.ImitateAction(src, a, now)
			}
		}
	default:
		r.stats.Unhandled++
		r.Log.Debugf("unimplemented being action type %d from %d", typ, srcID)
	}
}

// ProcessEmotion shows an emote over a being when relations allow it.
func (r *Reconciler) ProcessEmotion(id being.ID, emote uint8) {
	if r.Player == nil {
		return
	}
	b := r.find(id)
	if b == nil {
		return
	}
	if emote != 0 && (r.Relations == nil || r.Relations.AllowEmote(b)) {
		b.Emote = emote
		r.Player.ImitateEmote(b, emote)
	}
	if b.IsPlayer() {
		b.OtherTime = r.Now()
	}
}

// ProcessStop places a being on the tile where the server stopped it. The
// local player is only corrected in sync mode.
func (r *Reconciler) ProcessStop(id being.ID, x, y int) {
	if r.Player == nil {
		return
	}
	if !r.Sync && id == r.localID() {
		return
	}
	b := r.find(id)
	if b == nil {
		return
	}
	b.SetTileCoords(x, y)
	if b.Action() == being.ActionMove {
		b.SetAction(being.ActionStand, r.Now())
	}
}

// ProcessMove3 applies a compact step path. The walk is rebuilt from the
// being's cached tile; when it does not end on the declared tile the being is
// moved there first.
func (r *Reconciler) ProcessMove3(id being.ID, speed int, declared being.Position, steps []byte) {
	if r.Features == nil || !r.Features.HaveMove3() {
		return
	}
	b := r.find(id)
	if b == nil || r.isLocal(b) {
		return
	}
	b.SetWalkSpeed(speed)

	path, end, invalid := DecodePath(b.Cached(), steps)
	if invalid > 0 {
		r.stats.BadSteps += invalid
		if r.badSteps.AllowN(r.Now(), 1) {
			r.Log.Debugf("bad move packet for %d: %d invalid steps in % x", id, invalid, steps)
		}
	}
	drift := end != declared
	if len(path) == 0 {
		if drift {
			b.SetTileCoords(declared.X, declared.Y)
			r.stats.Corrected++
		}
		return
	}

	now := r.Now()
	b.SetAction(being.ActionStand, now)
	if drift {
		b.SetTileCoords(declared.X, declared.Y)
		r.stats.Corrected++
	}
	b.SetDestination(declared.X, declared.Y)
	b.SetPath(path, now)
}
