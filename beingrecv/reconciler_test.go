package beingrecv

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gomana/being"
	"gomana/clnet"
)

const localID being.ID = 150000

type fakeRoster struct {
	refreshed int
	seen      map[being.ID]string
}

func (f *fakeRoster) Refresh() { f.refreshed++ }
func (f *fakeRoster) Seen(id being.ID, name string) {
	if f.seen == nil {
		f.seen = map[being.ID]string{}
	}
	f.seen[id] = name
}

type move3 bool

func (m move3) HaveMove3() bool { return bool(m) }

type denyList map[string]bool

func (d denyList) AllowEmote(b *being.Being) bool { return !d[b.Name] }

type notice struct {
	name  string
	cause RemovalCause
}

type fakeNotifier struct{ got []notice }

func (f *fakeNotifier) PlayerRemoved(name string, cause RemovalCause) {
	f.got = append(f.got, notice{name, cause})
}

type fakePortals map[string]being.Position

func (f fakePortals) AddPortal(name string, at being.Position) bool {
	f[name] = at
	return true
}

type fakeNames struct{ asked []uint32 }

func (f *fakeNames) RequestName(id uint32) (bool, error) {
	f.asked = append(f.asked, id)
	return true, nil
}

type fixture struct {
	r        *Reconciler
	reg      *being.Registry
	player   *being.LocalPlayer
	roster   *fakeRoster
	notifier *fakeNotifier
	portals  fakePortals
	names    *fakeNames
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		reg:      being.NewRegistry(),
		player:   being.NewLocalPlayer(localID, 0),
		roster:   &fakeRoster{},
		notifier: &fakeNotifier{},
		portals:  fakePortals{},
		names:    &fakeNames{},
		now:      time.Unix(1700000000, 0),
	}
	f.reg.Adopt(f.player.Being)
	f.r = New(Deps{
		Registry:         f.reg,
		Player:           f.player,
		Roster:           f.roster,
		Features:         move3(true),
		Relations:        denyList{"Spammer": true},
		Notifier:         f.notifier,
		Portals:          f.portals,
		Names:            f.names,
		Now:              func() time.Time { return f.now },
		LogPlayerActions: true,
	})
	return f
}

func (f *fixture) spawn(t *testing.T, id being.ID, job int, x, y int) *being.Being {
	t.Helper()
	b := f.reg.Create(id, job)
	require.NotNil(t, b)
	b.SetTileCoords(x, y)
	return b
}

func TestMove3Example(t *testing.T) {
	f := newFixture(t)
	b := f.spawn(t, 2000, 1002, 10, 10)

	f.r.ProcessMove3(2000, 200, being.Position{X: 12, Y: 9}, []byte{0x00, 0x07})

	assert.Equal(t, being.Position{X: 12, Y: 9}, b.Pos())
	assert.Equal(t, being.Path{{X: 10, Y: 11}, {X: 11, Y: 12}}, b.Path())
	assert.Equal(t, being.ActionMove, b.Action())
	assert.Equal(t, 200*time.Millisecond, b.WalkSpeed)
	assert.Equal(t, 1, f.r.Stats().Corrected)

	b.Advance(f.now.Add(time.Second))
	assert.Equal(t, being.Position{X: 12, Y: 9}, b.Pos())
	assert.Equal(t, being.ActionStand, b.Action())
}

func TestMove3MatchingDestinationKeepsPosition(t *testing.T) {
	f := newFixture(t)
	b := f.spawn(t, 2000, 1002, 10, 10)

	f.r.ProcessMove3(2000, 150, being.Position{X: 11, Y: 12}, []byte{0x00, 0x07})
	assert.Equal(t, being.Position{X: 10, Y: 10}, b.Pos())
	assert.Zero(t, f.r.Stats().Corrected)

	b.Advance(f.now.Add(time.Second))
	assert.Equal(t, being.Position{X: 11, Y: 12}, b.Pos())
}

func TestMove3AllInvalidOnlyCorrects(t *testing.T) {
	f := newFixture(t)
	b := f.spawn(t, 2000, 1002, 10, 10)

	f.r.ProcessMove3(2000, 150, being.Position{X: 20, Y: 21}, []byte{8, 9})
	assert.Equal(t, being.Position{X: 20, Y: 21}, b.Pos())
	assert.Equal(t, being.Position{X: 20, Y: 21}, b.Cached())
	assert.Nil(t, b.Path())
	assert.Equal(t, being.ActionStand, b.Action())
	assert.Equal(t, 2, f.r.Stats().BadSteps)
}

func TestMove3SkippedForLocalPlayerAndWithoutFeature(t *testing.T) {
	f := newFixture(t)
	f.player.SetTileCoords(4, 4)
	f.r.ProcessMove3(localID, 150, being.Position{X: 9, Y: 9}, []byte{6, 6})
	assert.Equal(t, being.Position{X: 4, Y: 4}, f.player.Pos())
	assert.Nil(t, f.player.Path())

	b := f.spawn(t, 2000, 1002, 1, 1)
	f.r.Features = move3(false)
	f.r.ProcessMove3(2000, 150, being.Position{X: 9, Y: 9}, []byte{6})
	assert.Equal(t, being.Position{X: 1, Y: 1}, b.Pos())

	f.r.Features = nil
	f.r.ProcessMove3(2000, 150, being.Position{X: 9, Y: 9}, []byte{6})
	assert.Equal(t, being.Position{X: 1, Y: 1}, b.Pos())
}

func TestStopLocalPlayerNeedsSync(t *testing.T) {
	f := newFixture(t)
	f.player.SetTileCoords(4, 4)
	f.r.ProcessStop(localID, 7, 7)
	assert.Equal(t, being.Position{X: 4, Y: 4}, f.player.Pos())

	f.r.Sync = true
	f.r.ProcessStop(localID, 7, 7)
	assert.Equal(t, being.Position{X: 7, Y: 7}, f.player.Pos())
}

func TestStopEndsWalk(t *testing.T) {
	f := newFixture(t)
	b := f.spawn(t, 9, 1, 0, 0)
	b.SetPath(being.Path{{X: 1, Y: 0}}, f.now)
	require.Equal(t, being.ActionMove, b.Action())

	f.r.ProcessStop(9, 3, 2)
	assert.Equal(t, being.Position{X: 3, Y: 2}, b.Pos())
	assert.Equal(t, being.ActionStand, b.Action())

	b.SetAction(being.ActionSit, f.now)
	f.r.ProcessStop(9, 4, 2)
	assert.Equal(t, being.ActionSit, b.Action())
}

func TestRemovalDiedIsIdempotent(t *testing.T) {
	f := newFixture(t)
	b := f.spawn(t, 2000, 1002, 0, 0)
	f.player.SetTarget(b)

	f.r.ProcessRemoval(2000, CauseDied)
	f.r.ProcessRemoval(2000, CauseDied)

	assert.Nil(t, f.player.Target())
	assert.Equal(t, being.ActionDead, b.Action())
	assert.Equal(t, 1, b.SpriteOrderRecalcs)
	assert.Same(t, b, f.reg.Find(2000))
}

func TestRemovalDestroysAndNotifies(t *testing.T) {
	f := newFixture(t)
	p := f.spawn(t, 3, 1, 0, 0)
	p.Name = "Alice"
	f.spawn(t, 4, 1, 0, 0)
	f.spawn(t, 5, 1002, 0, 0)

	f.r.ProcessRemoval(3, CauseWarped)
	f.r.ProcessRemoval(4, CauseLoggedOut)
	f.r.ProcessRemoval(5, CauseServerRemove)

	assert.Nil(t, f.reg.Find(3))
	assert.Nil(t, f.reg.Find(4))
	assert.Nil(t, f.reg.Find(5))
	assert.Equal(t, 2, f.roster.refreshed)
	assert.Equal(t, []notice{{"Alice", CauseWarped}}, f.notifier.got)
}

func TestRemovalNpcServerRemove(t *testing.T) {
	f := newFixture(t)
	f.spawn(t, 6, 100, 0, 0)
	f.r.ProcessRemoval(6, CauseServerRemove)
	assert.Nil(t, f.reg.Find(6))
	assert.Zero(t, f.roster.refreshed)
}

func TestMissingBeingsAreIgnored(t *testing.T) {
	f := newFixture(t)
	other := f.spawn(t, 7, 1002, 2, 2)
	before := *other

	f.r.ProcessRemoval(99, CauseLoggedOut)
	f.r.ProcessAction(99, 98, 100, 100, 10, ActionHit)
	f.r.ProcessAction(99, 98, 0, 0, 0, ActionSit)
	f.r.ProcessEmotion(99, 3)
	f.r.ProcessStop(99, 1, 1)
	f.r.ProcessMove3(99, 150, being.Position{X: 1, Y: 1}, []byte{1})
	f.r.ProcessMove2(99, being.Position{}, being.Position{X: 1})
	f.r.ProcessChangeDirection(99, being.DirUp)
	f.r.ProcessResurrect(99, 1)
	f.r.ProcessNameResponse(99, "ghost")

	assert.Equal(t, before, *other)
	assert.Equal(t, 2, f.reg.Len())
}

func TestActionAttack(t *testing.T) {
	f := newFixture(t)
	src := f.spawn(t, 3, 1, 0, 0)
	dst := f.spawn(t, 2000, 1002, 1, 0)
	dst.HP, dst.MaxHP = 50, 50

	f.r.ProcessAction(3, 2000, 400, 0, 12, ActionCritical)
	assert.Equal(t, 400*time.Millisecond, src.AttackDelay)
	assert.Equal(t, being.ID(2000), src.AttackTarget)
	assert.Equal(t, 1, src.AttackSkill)
	assert.Equal(t, f.now, src.AttackTime)
	assert.Equal(t, being.DirRight, src.Direction)
	assert.Equal(t, 38, dst.HP)
	assert.Equal(t, being.DamageType(ActionCritical), dst.LastDamage.Type)
	assert.Equal(t, being.ID(3), dst.LastDamage.Source)
}

func TestActionAttackDelayOnlyForPlayers(t *testing.T) {
	f := newFixture(t)
	mob := f.spawn(t, 2000, 1002, 0, 0)
	f.r.ProcessAction(2000, 77, 500, 0, 3, ActionHit)
	assert.Zero(t, mob.AttackDelay)
	assert.True(t, mob.AttackTime.IsZero())
	assert.Equal(t, 1, mob.AttackCount)

	p := f.spawn(t, 3, 1, 0, 0)
	p.SetAttackDelay(300)
	f.r.ProcessAction(3, 2000, 0, 0, 3, ActionFlee)
	assert.Equal(t, 300*time.Millisecond, p.AttackDelay)
}

func TestActionSitStandImitates(t *testing.T) {
	f := newFixture(t)
	leader := f.spawn(t, 3, 1, 0, 0)
	leader.Name = "Leader"
	f.player.Imitate = "Leader"

	f.r.ProcessAction(3, 0, 0, 0, 0, ActionSit)
	assert.Equal(t, being.ActionSit, leader.Action())
	assert.Equal(t, f.now, leader.MoveTime)
	assert.Equal(t, being.ActionSit, f.player.Action())

	f.r.ProcessAction(3, 0, 0, 0, 0, ActionStand)
	assert.Equal(t, being.ActionStand, f.player.Action())
}

func TestActionUnknownType(t *testing.T) {
	f := newFixture(t)
	b := f.spawn(t, 3, 1, 0, 0)
	f.r.ProcessAction(3, 0, 0, 0, 0, ActionType(0x33))
	assert.Equal(t, being.ActionStand, b.Action())
	assert.Equal(t, 1, f.r.Stats().Unhandled)
}

func TestEmotionRelations(t *testing.T) {
	f := newFixture(t)
	friend := f.spawn(t, 3, 1, 0, 0)
	friend.Name = "Friend"
	spam := f.spawn(t, 4, 1, 0, 0)
	spam.Name = "Spammer"

	f.r.ProcessEmotion(3, 5)
	f.r.ProcessEmotion(4, 5)
	assert.Equal(t, uint8(5), friend.Emote)
	assert.Zero(t, spam.Emote)
	assert.Equal(t, f.now, spam.OtherTime)

	f.r.ProcessEmotion(3, 0)
	assert.Equal(t, uint8(5), friend.Emote)
}

func TestVisibleCreatesByJob(t *testing.T) {
	f := newFixture(t)
	f.r.ProcessVisible(Visible{ID: 10, Job: 1002, Speed: 0, HP: 30, MaxHP: 40, Pos: being.Position{X: 5, Y: 6}, Dir: being.DirLeft})
	f.r.ProcessVisible(Visible{ID: 11, Job: 1, Speed: 120})
	f.r.ProcessVisible(Visible{ID: 12, Job: 45})
	f.r.ProcessVisible(Visible{ID: 110000001, Job: 0})

	mob := f.reg.Find(10)
	require.NotNil(t, mob)
	assert.True(t, mob.IsMonster())
	assert.Equal(t, being.DefaultWalkSpeed, mob.WalkSpeed)
	assert.Equal(t, 30, mob.HP)
	assert.Equal(t, being.Position{X: 5, Y: 6}, mob.Pos())
	assert.Equal(t, being.DirLeft, mob.Direction)

	assert.True(t, f.reg.Find(11).IsPlayer())
	assert.True(t, f.reg.Find(12).IsPortal())
	assert.Nil(t, f.reg.Find(110000001))
	assert.Equal(t, []uint32{11, 12}, f.names.asked)
}

func TestVisibleReplacesDeadMonster(t *testing.T) {
	f := newFixture(t)
	old := f.spawn(t, 10, 1002, 0, 0)
	old.SetAction(being.ActionDead, f.now)

	f.r.ProcessVisible(Visible{ID: 10, Job: 1002, Pos: being.Position{X: 2, Y: 2}})
	fresh := f.reg.Find(10)
	require.NotNil(t, fresh)
	assert.NotSame(t, old, fresh)
	assert.True(t, fresh.IsAlive())
}

func TestVisibleBlocked(t *testing.T) {
	f := newFixture(t)
	f.reg.Block(10)
	f.r.ProcessVisible(Visible{ID: 10, Job: 1002})
	assert.Nil(t, f.reg.Find(10))
}

func TestMove2WalksToDestination(t *testing.T) {
	f := newFixture(t)
	b := f.spawn(t, 3, 1, 0, 0)
	f.r.ProcessMove2(3, being.Position{X: 1, Y: 1}, being.Position{X: 3, Y: 1})
	assert.Equal(t, being.Position{X: 1, Y: 1}, b.Pos())
	assert.Equal(t, being.Position{X: 3, Y: 1}, b.Destination())
	assert.Equal(t, being.Path{{X: 2, Y: 1}, {X: 3, Y: 1}}, b.Path())
	assert.Equal(t, f.now, b.MoveTime)
}

func TestResurrectAndDirection(t *testing.T) {
	f := newFixture(t)
	b := f.spawn(t, 3, 1, 0, 0)
	b.Name = "Leader"
	f.player.Imitate = "Leader"
	b.SetAction(being.ActionDead, f.now)
	f.player.SetTarget(b)

	f.r.ProcessResurrect(3, 1)
	assert.Equal(t, being.ActionStand, b.Action())
	assert.Nil(t, f.player.Target())

	f.r.ProcessChangeDirection(3, being.DirUp)
	assert.Equal(t, being.DirUp, b.Direction)
	assert.Equal(t, being.DirUp, f.player.Direction)
}

func TestNameResponse(t *testing.T) {
	f := newFixture(t)
	f.spawn(t, 3, 1, 0, 0)
	f.spawn(t, 12, 45, 8, 9)

	f.r.ProcessNameResponse(3, "Alice")
	f.r.ProcessNameResponse(12, "to town")
	f.r.ProcessNameResponse(localID, "me")

	assert.Equal(t, "Alice", f.reg.Find(3).Name)
	assert.Equal(t, "Alice", f.roster.seen[3])
	assert.Equal(t, being.Position{X: 8, Y: 9}, f.portals["to town"])
	assert.Empty(t, f.reg.Find(12).Name)
	assert.Equal(t, f.now, f.player.LastPing)
	assert.Empty(t, f.player.Name)
}

func TestDispatchedMessages(t *testing.T) {
	f := newFixture(t)
	d := clnet.NewDispatcher(nil, nil)
	f.r.Register(d)

	visible := clnet.NewMessageOut(clnet.SMSGBeingVisible).
		WriteInt32(10).WriteInt16(0).WriteInt16(0).WriteInt16(0).WriteInt16(0).
		WriteInt16(1002).WriteInt8(0).WriteInt8(0).
		WriteInt16(0).WriteInt16(0).WriteInt16(0).WriteInt16(0).WriteInt16(0).
		WriteInt8(0).WriteInt8(0).WriteInt16(0).
		WriteInt32(20).WriteInt32(25).
		WriteInt16(0).WriteInt16(0).WriteInt8(0).WriteInt8(0).
		WriteCoordinates(10, 10, 4).WriteBytes(make([]byte, 5)).Bytes()
	require.Len(t, visible, 54)
	require.True(t, d.Dispatch(visible))

	mob := f.reg.Find(10)
	require.NotNil(t, mob)
	assert.Equal(t, being.Position{X: 10, Y: 10}, mob.Pos())
	assert.Equal(t, being.DirUp, mob.Direction)
	assert.Equal(t, 20, mob.HP)

	move := clnet.NewVariableMessageOut(clnet.SMSGBeingMove3).
		WriteInt32(10).WriteInt16(150).WriteInt16(12).WriteInt16(9).
		WriteBytes([]byte{0x00, 0x07}).Bytes()
	require.True(t, d.Dispatch(move))
	assert.Equal(t, being.Position{X: 12, Y: 9}, mob.Pos())
	assert.Equal(t, being.Path{{X: 10, Y: 11}, {X: 11, Y: 12}}, mob.Path())

	attack := clnet.NewMessageOut(clnet.SMSGBeingAction).
		WriteInt32(int32(localID)).WriteInt32(10).WriteInt32(0).
		WriteInt32(350).WriteInt32(0).
		WriteInt16(5).WriteInt16(0).WriteInt8(uint8(ActionHit)).WriteInt16(0).Bytes()
	require.True(t, d.Dispatch(attack))
	assert.Equal(t, 15, mob.HP)
	assert.Equal(t, 350*time.Millisecond, f.player.AttackDelay)

	name := clnet.NewMessageOut(clnet.SMSGBeingNameResponse).WriteInt32(10).WriteString("Scorpion", 24).Bytes()
	require.True(t, d.Dispatch(name))
	assert.Equal(t, "Scorpion", mob.Name)

	remove := clnet.NewMessageOut(clnet.SMSGBeingRemove).WriteInt32(10).WriteInt8(uint8(CauseDied)).Bytes()
	require.True(t, d.Dispatch(remove))
	assert.Equal(t, being.ActionDead, mob.Action())

	for _, st := range d.Stats() {
		assert.True(t, st.Handled, "op %#04x", st.Op)
	}
}

func TestHandleMove3ShortPacket(t *testing.T) {
	f := newFixture(t)
	f.spawn(t, 10, 1002, 1, 1)
	pkt := clnet.NewVariableMessageOut(clnet.SMSGBeingMove3).WriteInt32(10).Bytes()
	m := clnet.NewMessageIn(pkt, nil, nil)
	f.r.handleMove3(m)
	assert.True(t, m.Short())
	assert.Equal(t, being.Position{X: 1, Y: 1}, f.reg.Find(10).Pos())
}
