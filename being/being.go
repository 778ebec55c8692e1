package being

import (
	"fmt"
	"time"
)

// ID is the server assigned entity id. It is unique within a session.
type ID uint32

// Kind is decided once when the being is created and never re-derived.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindPlayer
	KindNPC
	KindMonster
	KindPortal
)

func (k Kind) String() string {
	switch k {
	case KindPlayer:
		return "player"
	case KindNPC:
		return "npc"
	case KindMonster:
		return "monster"
	case KindPortal:
		return "portal"
	}
	return "unknown"
}

// PortalJob is the job code the server uses for warp portals.
const PortalJob = 45

// KindFromJob maps the server "job" (class) code to a being kind.
func KindFromJob(job int) Kind {
	switch {
	case job <= 25 || (job >= 4001 && job <= 4049):
		return KindPlayer
	case job >= 46 && job <= 1000:
		return KindNPC
	case job > 1000 && job <= 2000:
		return KindMonster
	case job == PortalJob:
		return KindPortal
	}
	return KindUnknown
}

// Action is the animation state of a being.
type Action uint8

const (
	ActionStand Action = iota
	ActionMove
	ActionSit
	ActionDead
	ActionSpawn
	ActionAttack
	ActionHurt
)

var actionNames = [...]string{"stand", "move", "sit", "dead", "spawn", "attack", "hurt"}

func (a Action) String() string {
	if int(a) < len(actionNames) {
		return actionNames[a]
	}
	return fmt.Sprintf("action(%d)", uint8(a))
}

// Direction is a bitmask of the four screen directions.
type Direction uint8

const (
	DirDown  Direction = 1
	DirLeft  Direction = 2
	DirUp    Direction = 4
	DirRight Direction = 8
)

// Position is a tile coordinate on the current map.
type Position struct {
	X, Y int
}

func (p Position) String() string { return fmt.Sprintf("(%d,%d)", p.X, p.Y) }

// Path is an ordered list of waypoints, oldest first.
type Path []Position

// DamageType tags a damage record with the attack family that caused it.
type DamageType uint8

// Damage is the last hit a being received.
type Damage struct {
	Source ID
	Amount int
	Type   DamageType
	At     time.Time
}

// DefaultWalkSpeed is used when the server announces a zero speed.
const DefaultWalkSpeed = 150 * time.Millisecond

// Being is the client side mirror of one entity. Beings are owned by a
// Registry; handlers only borrow them for the duration of one message.
type Being struct {
	id   ID
	kind Kind
	job  int

	Name      string
	Direction Direction
	Emote     uint8
	WalkSpeed time.Duration

	pos     Position
	cached  Position
	dest    Position
	hasDest bool
	path    Path

	action     Action
	actionTime time.Time

	AttackDelay  time.Duration
	AttackTime   time.Time
	AttackTarget ID
	AttackCount  int
	AttackAmount int
	AttackSkill  int
	LastDamage   Damage
	HP, MaxHP    int

	MoveTime  time.Time
	OtherTime time.Time

	// SpriteOrderRecalcs counts sprite reorder requests; the renderer
	// consumes them.
	SpriteOrderRecalcs int
}

func newBeing(id ID, job int) *Being {
	return &Being{
		id:        id,
		kind:      KindFromJob(job),
		job:       job,
		WalkSpeed: DefaultWalkSpeed,
	}
}

func (b *Being) ID() ID     { return b.id }
func (b *Being) Kind() Kind { return b.kind }
func (b *Being) Job() int   { return b.job }

func (b *Being) IsPlayer() bool  { return b.kind == KindPlayer }
func (b *Being) IsNPC() bool     { return b.kind == KindNPC }
func (b *Being) IsMonster() bool { return b.kind == KindMonster }
func (b *Being) IsPortal() bool  { return b.kind == KindPortal }

// IsAlive reports whether the being is not in the Dead action.
func (b *Being) IsAlive() bool { return b.action != ActionDead }

func (b *Being) Pos() Position         { return b.pos }
func (b *Being) Cached() Position      { return b.cached }
func (b *Being) Destination() Position { return b.dest }
func (b *Being) Action() Action        { return b.action }
func (b *Being) ActionTime() time.Time { return b.actionTime }

// Path returns a copy of the waypoints still to be walked.
func (b *Being) Path() Path {
	if len(b.path) == 0 {
		return nil
	}
	return append(Path(nil), b.path...)
}

// SetTileCoords moves the being and refreshes its cached anchor.
func (b *Being) SetTileCoords(x, y int) {
	b.pos = Position{X: x, Y: y}
	b.cached = b.pos
}

// SetDestination records where the current walk must end. When the path
// runs out the being is placed there even if the waypoints disagree.
func (b *Being) SetDestination(x, y int) {
	b.dest = Position{X: x, Y: y}
	b.hasDest = true
}

// SetAction changes the animation state and restarts its clock.
func (b *Being) SetAction(a Action, now time.Time) {
	b.action = a
	b.actionTime = now
}

// SetWalkSpeed stores the per-tile walk time announced by the server, in
// milliseconds. Zero falls back to DefaultWalkSpeed.
func (b *Being) SetWalkSpeed(ms int) {
	if ms <= 0 {
		b.WalkSpeed = DefaultWalkSpeed
		return
	}
	b.WalkSpeed = time.Duration(ms) * time.Millisecond
}

// SetPath replaces the pending waypoints. An empty path is ignored. A being
// that is neither moving nor dead starts walking immediately.
func (b *Being) SetPath(p Path, now time.Time) {
	if len(p) == 0 {
		return
	}
	b.path = append(b.path[:0], p...)
	if b.action != ActionMove && b.action != ActionDead {
		b.SetAction(ActionMove, now)
	}
}

// ClearPath drops any pending waypoints and destination.
func (b *Being) ClearPath() {
	b.path = b.path[:0]
	b.hasDest = false
}

// Advance walks the being along its path, one tile per WalkSpeed since the
// last step. It returns the number of tiles taken.
func (b *Being) Advance(now time.Time) int {
	if b.action != ActionMove {
		return 0
	}
	steps := 0
	for len(b.path) > 0 && now.Sub(b.actionTime) >= b.WalkSpeed {
		next := b.path[0]
		b.path = b.path[1:]
		b.pos = next
		b.actionTime = b.actionTime.Add(b.WalkSpeed)
		steps++
	}
	if len(b.path) == 0 {
		if b.hasDest {
			b.pos = b.dest
			b.hasDest = false
		}
		b.cached = b.pos
		b.SetAction(ActionStand, now)
	}
	return steps
}

// StepsTo returns the single-tile walk from one tile to another, moving
// diagonally first. The start tile is not included.
func StepsTo(from, to Position) Path {
	var p Path
	for cur := from; cur != to; {
		cur.X += sign(to.X - cur.X)
		cur.Y += sign(to.Y - cur.Y)
		p = append(p, cur)
	}
	return p
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

// RecalcSpritesOrder asks the renderer to re-sort the being's sprites.
func (b *Being) RecalcSpritesOrder() { b.SpriteOrderRecalcs++ }

// SetAttackDelay records the server attack speed for player sources.
func (b *Being) SetAttackDelay(ms int) {
	b.AttackDelay = time.Duration(ms) * time.Millisecond
}

// HandleAttack records an outgoing attack. skillID is always 1 for plain
// attacks.
func (b *Being) HandleAttack(target *Being, amount, skillID int, now time.Time) {
	if target != nil {
		b.AttackTarget = target.ID()
		if target != b {
			b.Direction = directionTo(b.pos, target.pos, b.Direction)
		}
	} else {
		b.AttackTarget = 0
	}
	b.AttackCount++
	b.AttackAmount = amount
	b.AttackSkill = skillID
	b.SetAction(ActionAttack, now)
}

// TakeDamage applies a hit. A zero amount is a miss and leaves HP alone.
func (b *Being) TakeDamage(src *Being, amount int, typ DamageType, now time.Time) {
	d := Damage{Amount: amount, Type: typ, At: now}
	if src != nil {
		d.Source = src.ID()
	}
	b.LastDamage = d
	if amount > 0 && b.MaxHP > 0 {
		b.HP -= amount
		if b.HP < 0 {
			b.HP = 0
		}
	}
	if amount > 0 && b.action != ActionDead {
		b.SetAction(ActionHurt, now)
	}
}

func directionTo(from, to Position, fallback Direction) Direction {
	var d Direction
	switch {
	case to.X > from.X:
		d |= DirRight
	case to.X < from.X:
		d |= DirLeft
	}
	switch {
	case to.Y > from.Y:
		d |= DirDown
	case to.Y < from.Y:
		d |= DirUp
	}
	if d == 0 {
		return fallback
	}
	return d
}
