package being

import "time"

// LocalPlayer is the being controlled by this client. Its movement is
// predicted locally, so most server corrections skip it.
type LocalPlayer struct {
	*Being

	target *Being

	// Imitate names a player whose sit, stand, emotes and turns are
	// mirrored onto the local player. Empty disables imitation.
	Imitate string

	LastPing time.Time
}

// NewLocalPlayer creates the local player being. It is not registered; call
// Registry.Adopt to make it visible to lookups.
func NewLocalPlayer(id ID, job int) *LocalPlayer {
	return &LocalPlayer{Being: newBeing(id, job)}
}

// Is reports whether b is the local player's own being.
func (l *LocalPlayer) Is(b *Being) bool {
	return l != nil && b != nil && b == l.Being
}

// Target returns the being currently attacked or selected, or nil.
func (l *LocalPlayer) Target() *Being { return l.target }

func (l *LocalPlayer) SetTarget(b *Being) { l.target = b }

// StopAttack clears the current target.
func (l *LocalPlayer) StopAttack() {
	l.target = nil
}

// PingResponse records a name response for the player's own id, which the
// server uses as a ping reply.
func (l *LocalPlayer) PingResponse(now time.Time) { l.LastPing = now }

func (l *LocalPlayer) imitating(src *Being) bool {
	return l.Imitate != "" && src != nil && src != l.Being && src.Name == l.Imitate
}

// ImitateAction mirrors sit and stand from the followed player.
func (l *LocalPlayer) ImitateAction(src *Being, a Action, now time.Time) {
	if !l.imitating(src) {
		return
	}
	if a != ActionSit && a != ActionStand {
		return
	}
	if l.Action() == ActionDead || l.Action() == ActionMove {
		return
	}
	l.SetAction(a, now)
}

// ImitateEmote mirrors an emote from the followed player.
func (l *LocalPlayer) ImitateEmote(src *Being, emote uint8) {
	if !l.imitating(src) || emote == 0 {
		return
	}
	l.Emote = emote
}

// ImitateDirection mirrors a turn from the followed player.
func (l *LocalPlayer) ImitateDirection(src *Being, dir Direction) {
	if !l.imitating(src) || dir == 0 {
		return
	}
	l.Direction = dir
}
