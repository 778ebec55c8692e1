package beingrecv

import "gomana/being"

// ghostID is the first id the server uses for job 0 placeholders that are
// never shown.
const ghostID = 110000000

// Visible is a being coming into view.
type Visible struct {
	ID        being.ID
	Job       int
	Speed     int
	HP, MaxHP int
	Pos       being.Position
	Dir       being.Direction
}

// ProcessVisible creates or refreshes a being in view. A dead monster that is
// announced again is replaced by a fresh one.
func (r *Reconciler) ProcessVisible(v Visible) {
	b := r.Registry.Find(v.ID)
	if b != nil && b.IsMonster() && !b.IsAlive() {
		r.Registry.Destroy(b)
		b = nil
	}

	if b == nil {
		if v.Job == 0 && v.ID >= ghostID {
			return
		}
		if r.Registry.IsBlocked(v.ID) {
			return
		}
		if b = r.Registry.Create(v.ID, v.Job); b == nil {
			return
		}
		r.stats.Spawned++
		if b.IsPlayer() || b.IsNPC() || b.IsPortal() {
			r.requestName(v.ID)
		}
	} else if b.IsNPC() {
		r.requestName(v.ID)
	}

	now := r.Now()
	if b.IsPlayer() {
		b.MoveTime = now
	}
	b.ClearPath()
	b.SetAction(being.ActionStand, now)
	b.SetWalkSpeed(v.Speed)

	if b.IsMonster() && v.HP != 0 && v.MaxHP != 0 {
		b.MaxHP = v.MaxHP
		if b.HP == 0 || b.HP > v.HP {
			b.HP = v.HP
		}
	}
	b.SetTileCoords(v.Pos.X, v.Pos.Y)
	if v.Dir != 0 {
		b.Direction = v.Dir
	}
}

func (r *Reconciler) requestName(id being.ID) {
	if r.Names == nil {
		return
	}
	r.stats.NameLookup++
	if _, err := r.Names.RequestName(uint32(id)); err != nil {
		r.Log.Warnf("request name for %d: %v", id, err)
	}
}

// ProcessMove2 starts a walk between two tiles announced by the server.
func (r *Reconciler) ProcessMove2(id being.ID, src, dst being.Position) {
	b := r.find(id)
	if b == nil {
		return
	}
	now := r.Now()
	b.SetAction(being.ActionStand, now)
	b.SetTileCoords(src.X, src.Y)
	b.SetDestination(dst.X, dst.Y)
	b.SetPath(being.StepsTo(src, dst), now)
	if b.IsPlayer() {
		b.MoveTime = now
	}
}

// ProcessChangeDirection turns a being.
func (r *Reconciler) ProcessChangeDirection(id being.ID, dir being.Direction) {
	b := r.find(id)
	if b == nil {
		return
	}
	b.Direction = dir
	if r.Player != nil {
		r.Player.ImitateDirection(b, dir)
	}
}

// ProcessResurrect brings a being back. Flag 1 means it stands up.
func (r *Reconciler) ProcessResurrect(id being.ID, flag int) {
	if r.Player == nil {
		return
	}
	b := r.find(id)
	if b == nil {
		return
	}
	r.clearTarget(b)
	if flag == 1 {
		b.SetAction(being.ActionStand, r.Now())
	}
}

// ProcessNameResponse names a being. The server answers name requests for
// the player's own id as a ping.
func (r *Reconciler) ProcessNameResponse(id being.ID, name string) {
	if r.Player == nil {
		return
	}
	b := r.find(id)
	if b == nil {
		return
	}
	if id == r.localID() {
		r.Player.PingResponse(r.Now())
		return
	}
	if b.IsPortal() {
		if r.Portals == nil || !r.Portals.AddPortal(name, b.Pos()) {
			r.Log.Debugf("portal %q at %v with no map loaded", name, b.Pos())
		}
	} else {
		b.Name = name
	}
	if b.IsPlayer() && r.Roster != nil {
		r.Roster.Seen(id, name)
	}
}
