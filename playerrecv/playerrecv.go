// Package playerrecv applies server messages about the local player: warps
// and stat updates.
package playerrecv

import (
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"gomana/being"
	"gomana/clnet"
	"gomana/playerinfo"
	"gomana/world"
)

// Notifier shows a one line message to the player.
type Notifier interface {
	Notice(msg string)
}

// Roster is refreshed when a map change drops the beings in view.
type Roster interface {
	Refresh()
}

// Deps are the receiver's collaborators. World and Info are required.
type Deps struct {
	Player   *being.LocalPlayer
	World    *world.World
	Info     *playerinfo.Store
	Notifier Notifier
	Roster   Roster
	Log      *zap.SugaredLogger
	Now      func() time.Time
}

// Receiver handles local player packets.
type Receiver struct {
	Deps
	dead bool
}

// New returns a receiver over deps.
func New(deps Deps) *Receiver {
	if deps.Info == nil {
		deps.Info = playerinfo.New()
	}
	if deps.Log == nil {
		deps.Log = zap.NewNop().Sugar()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Receiver{Deps: deps}
}

func (r *Receiver) notice(msg string) {
	if r.Notifier != nil {
		r.Notifier.Notice(msg)
	}
}

// ProcessWarp moves the local player to a tile on a possibly new map. The
// target is cleared first because changing map drops every other being.
func (r *Receiver) ProcessWarp(mapName string, x, y int) {
	r.Log.Infof("warping to %s (%d, %d)", mapName, x, y)
	if r.Player == nil {
		r.Log.Warn("warp with no local player")
		return
	}
	r.Player.StopAttack()
	if r.World == nil {
		return
	}
	m, _ := r.World.ChangeMap(mapName, x, y)
	if r.Roster != nil {
		r.Roster.Refresh()
	}
	x, y = m.Clamp(x, y)

	r.Player.SetAction(being.ActionStand, r.Now())
	r.Player.SetTileCoords(x, y)
	r.Player.ClearPath()
}

// ProcessStatUpdate1 applies a 32 bit stat. Walk speed and HP also change
// the local player's being.
func (r *Receiver) ProcessStatUpdate1(typ, value int) {
	if r.Player == nil {
		return
	}
	r.setStat(playerinfo.Attr(typ), value)
	switch playerinfo.Attr(typ) {
	case playerinfo.WalkSpeed:
		r.Player.SetWalkSpeed(value)
	case playerinfo.MaxHP:
		r.Player.MaxHP = value
	case playerinfo.HP:
		r.Player.HP = value
	}
	if r.Info.Attribute(playerinfo.HP) == 0 && r.Info.Attribute(playerinfo.MaxHP) > 0 {
		if !r.dead {
			r.dead = true
			r.Player.SetAction(being.ActionDead, r.Now())
			r.notice("You are dead.")
		}
	} else {
		r.dead = false
	}
}

// ProcessStatUpdate2 applies experience and money. Money changes are
// announced.
func (r *Receiver) ProcessStatUpdate2(typ, value int) {
	a := playerinfo.Attr(typ)
	if a != playerinfo.Money {
		r.setStat(a, value)
		return
	}
	old := r.Info.SetAttribute(playerinfo.Money, value)
	switch {
	case value > old:
		r.notice("You picked up " + humanize.Comma(int64(value-old)) + " GP.")
	case value < old:
		r.notice("You spent " + humanize.Comma(int64(old-value)) + " GP.")
	}
}

// ProcessStatUpdate3 sets base and bonus of a primary stat.
func (r *Receiver) ProcessStatUpdate3(typ, base, bonus int) {
	a := playerinfo.Attr(typ)
	r.Info.SetStatBase(a, base)
	r.Info.SetStatMod(a, bonus)
}

// ProcessStatUpdate4 acknowledges a stat raise. When the server refuses it
// the points spent locally are given back.
func (r *Receiver) ProcessStatUpdate4(typ int, ok bool, value int) {
	a := playerinfo.Attr(typ)
	if !ok {
		oldValue := r.Info.Stat(a).Base
		points := r.Info.Attribute(playerinfo.CharPoints) + oldValue - value
		r.Info.SetAttribute(playerinfo.CharPoints, points)
		r.notice("Cannot raise skill!")
	}
	r.setStat(a, value)
}

// ProcessStatUpdate6 applies an 8 bit stat.
func (r *Receiver) ProcessStatUpdate6(typ, value int) {
	r.setStat(playerinfo.Attr(typ), value)
}

// ProcessPvpMapMode sets the PvP mode of the current map.
func (r *Receiver) ProcessPvpMapMode(mode int) {
	if r.World == nil || !r.World.SetPvpMode(mode) {
		r.Log.Debugf("pvp mode %d with no map loaded", mode)
	}
}

func (r *Receiver) setStat(a playerinfo.Attr, value int) {
	if !r.Info.Apply(a, value) {
		r.Log.Debugf("unimplemented stat %s = %d", a, value)
	}
}

// Register installs the player handlers on d.
func (r *Receiver) Register(d *clnet.Dispatcher) {
	d.Register(clnet.SMSGPlayerWarp, "player warp", func(m *clnet.MessageIn) {
		name := m.ReadString(16, "map name")
		x := m.ReadInt16("x")
		y := m.ReadInt16("y")
		r.ProcessWarp(name, int(x), int(y))
	})
	d.Register(clnet.SMSGPlayerStatUpdate1, "player stat update 1", func(m *clnet.MessageIn) {
		typ := m.ReadInt16("type")
		value := m.ReadInt32("value")
		r.ProcessStatUpdate1(int(typ), int(value))
	})
	d.Register(clnet.SMSGPlayerStatUpdate2, "player stat update 2", func(m *clnet.MessageIn) {
		typ := m.ReadInt16("type")
		value := m.ReadInt32("value")
		r.ProcessStatUpdate2(int(typ), int(value))
	})
	d.Register(clnet.SMSGPlayerStatUpdate3, "player stat update 3", func(m *clnet.MessageIn) {
		typ := m.ReadInt32("type")
		base := m.ReadInt32("base")
		bonus := m.ReadInt32("bonus")
		r.ProcessStatUpdate3(int(typ), int(base), int(bonus))
	})
	d.Register(clnet.SMSGPlayerStatUpdate4, "player stat update 4", func(m *clnet.MessageIn) {
		typ := m.ReadInt16("type")
		ok := m.ReadUInt8("flag")
		value := m.ReadUInt8("value")
		r.ProcessStatUpdate4(int(typ), ok == 1, int(value))
	})
	d.Register(clnet.SMSGPlayerStatUpdate6, "player stat update 6", func(m *clnet.MessageIn) {
		typ := m.ReadInt16("type")
		value := m.ReadUInt8("value")
		r.ProcessStatUpdate6(int(typ), int(value))
	})
	d.Register(clnet.SMSGPvpMapMode, "pvp map mode", func(m *clnet.MessageIn) {
		r.ProcessPvpMapMode(int(m.ReadInt16("mode")))
	})
}
