package beingrecv

import (
	"gomana/being"
	"gomana/clnet"
)

// Register installs the being handlers on d.
func (r *Reconciler) Register(d *clnet.Dispatcher) {
	d.Register(clnet.SMSGBeingVisible, "being visible", r.handleVisible)
	d.Register(clnet.SMSGBeingRemove, "being remove", r.handleRemove)
	d.Register(clnet.SMSGBeingMove2, "being move2", r.handleMove2)
	d.Register(clnet.SMSGPlayerStop, "player stop", r.handleStop)
	d.Register(clnet.SMSGBeingAction, "being action", r.handleAction)
	d.Register(clnet.SMSGBeingNameResponse, "being name response", r.handleNameResponse)
	d.Register(clnet.SMSGBeingChangeDirection, "being change direction", r.handleChangeDirection)
	d.Register(clnet.SMSGBeingEmotion, "being emotion", r.handleEmotion)
	d.Register(clnet.SMSGBeingResurrect, "being resurrect", r.handleResurrect)
	d.Register(clnet.SMSGBeingMove3, "being move3", r.handleMove3)
}

func readID(m *clnet.MessageIn, name string) being.ID {
	return being.ID(m.ReadUInt32(name))
}

func direction(code uint8) being.Direction {
	d, _ := clnet.FromServerDirection(code & 0x0f)
	return being.Direction(d)
}

func (r *Reconciler) handleVisible(m *clnet.MessageIn) {
	var v Visible
	v.ID = readID(m, "being id")
	v.Speed = int(m.ReadInt16("speed"))
	m.ReadInt16("opt1")
	m.ReadInt16("opt2")
	m.ReadInt16("option")
	v.Job = int(m.ReadInt16("class"))
	m.ReadUInt8("hair style")
	m.ReadUInt8("look")
	m.ReadInt16("weapon")
	m.ReadInt16("head bottom")
	m.ReadInt16("shield")
	m.ReadInt16("head top")
	m.ReadInt16("head mid")
	m.ReadUInt8("hair color")
	m.ReadUInt8("unused")
	m.ReadInt16("shoes / clothes color")
	if being.KindFromJob(v.Job) == being.KindMonster {
		v.HP = int(m.ReadInt32("hp"))
		v.MaxHP = int(m.ReadInt32("max hp"))
	} else {
		m.ReadInt16("gloves / head dir")
		m.ReadInt32("guild")
		m.ReadInt16("guild emblem")
	}
	m.ReadInt16("manner")
	m.ReadInt16("opt3")
	m.ReadUInt8("karma")
	m.ReadUInt8("gender")
	x, y, dir := m.ReadCoordinates("position")
	m.Skip(5, "unknown")
	v.Pos = being.Position{X: int(x), Y: int(y)}
	v.Dir = direction(dir)
	r.ProcessVisible(v)
}

func (r *Reconciler) handleRemove(m *clnet.MessageIn) {
	id := readID(m, "being id")
	cause := RemovalCause(m.ReadUInt8("remove flag"))
	r.ProcessRemoval(id, cause)
}

func (r *Reconciler) handleMove2(m *clnet.MessageIn) {
	id := readID(m, "being id")
	sx, sy, dx, dy := m.ReadCoordinatePair("move path")
	m.Skip(1, "sub tile")
	m.ReadInt32("tick")
	r.ProcessMove2(id,
		being.Position{X: int(sx), Y: int(sy)},
		being.Position{X: int(dx), Y: int(dy)})
}

func (r *Reconciler) handleStop(m *clnet.MessageIn) {
	id := readID(m, "account id")
	x := m.ReadUInt16("x")
	y := m.ReadUInt16("y")
	r.ProcessStop(id, int(x), int(y))
}

func (r *Reconciler) handleAction(m *clnet.MessageIn) {
	src := readID(m, "src being id")
	dst := readID(m, "dst being id")
	m.ReadInt32("tick")
	srcSpeed := m.ReadInt32("src speed")
	dstSpeed := m.ReadInt32("dst speed")
	param1 := m.ReadInt16("param1")
	m.ReadInt16("param 2")
	typ := ActionType(m.ReadUInt8("type"))
	m.ReadInt16("param 3")
	r.ProcessAction(src, dst, int(srcSpeed), int(dstSpeed), int(param1), typ)
}

func (r *Reconciler) handleNameResponse(m *clnet.MessageIn) {
	id := readID(m, "being id")
	name := m.ReadString(24, "name")
	r.ProcessNameResponse(id, name)
}

func (r *Reconciler) handleChangeDirection(m *clnet.MessageIn) {
	id := readID(m, "being id")
	m.ReadInt16("unused")
	dir := direction(m.ReadUInt8("direction"))
	r.ProcessChangeDirection(id, dir)
}

func (r *Reconciler) handleEmotion(m *clnet.MessageIn) {
	id := readID(m, "being id")
	emote := m.ReadUInt8("emote")
	r.ProcessEmotion(id, emote)
}

func (r *Reconciler) handleResurrect(m *clnet.MessageIn) {
	id := readID(m, "being id")
	flag := m.ReadInt16("flag?")
	r.ProcessResurrect(id, int(flag))
}

func (r *Reconciler) handleMove3(m *clnet.MessageIn) {
	n := int(m.ReadInt16("len")) - 14
	id := readID(m, "being id")
	speed := m.ReadInt16("speed")
	x := m.ReadInt16("x")
	y := m.ReadInt16("y")
	var steps []byte
	if n > 0 {
		steps = m.ReadBytes(n, "moving path")
	}
	if m.Short() {
		return
	}
	r.ProcessMove3(id, int(speed), being.Position{X: int(x), Y: int(y)}, steps)
}
