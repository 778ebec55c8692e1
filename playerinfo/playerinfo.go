// Package playerinfo keeps the local player's attributes and stats as the
// server reports them.
package playerinfo

import (
	"fmt"
	"sort"
	"sync"
)

// Attr is a server stat type code.
type Attr int

const (
	WalkSpeed    Attr = 0x0000
	Exp          Attr = 0x0001
	JobExp       Attr = 0x0002
	Manner       Attr = 0x0004
	HP           Attr = 0x0005
	MaxHP        Attr = 0x0006
	MP           Attr = 0x0007
	MaxMP        Attr = 0x0008
	CharPoints   Attr = 0x0009
	Level        Attr = 0x000b
	SkillPoints  Attr = 0x000c
	Str          Attr = 0x000d
	Agi          Attr = 0x000e
	Vit          Attr = 0x000f
	Int          Attr = 0x0010
	Dex          Attr = 0x0011
	Luk          Attr = 0x0012
	Money        Attr = 0x0014
	ExpNeeded    Attr = 0x0016
	JobExpNeeded Attr = 0x0017
	TotalWeight  Attr = 0x0018
	MaxWeight    Attr = 0x0019
	Atk          Attr = 0x0029
	AtkMod       Attr = 0x002a
	Matk         Attr = 0x002b
	MatkMod      Attr = 0x002c
	Def          Attr = 0x002d
	DefMod       Attr = 0x002e
	Mdef         Attr = 0x002f
	MdefMod      Attr = 0x0030
	Hit          Attr = 0x0031
	Flee         Attr = 0x0032
	FleeMod      Attr = 0x0033
	Crit         Attr = 0x0034
	AttackSpeed  Attr = 0x0035
	Job          Attr = 0x0037
	GMLevel      Attr = 500
)

var attrNames = map[Attr]string{
	WalkSpeed: "walk speed", Exp: "exp", JobExp: "job exp", Manner: "manner",
	HP: "hp", MaxHP: "max hp", MP: "mp", MaxMP: "max mp",
	CharPoints: "char points", Level: "level", SkillPoints: "skill points",
	Str: "str", Agi: "agi", Vit: "vit", Int: "int", Dex: "dex", Luk: "luk",
	Money: "money", ExpNeeded: "exp needed", JobExpNeeded: "job exp needed",
	TotalWeight: "weight", MaxWeight: "max weight",
	Atk: "atk", Matk: "matk", Def: "def", Mdef: "mdef", Hit: "hit",
	Flee: "flee", Crit: "crit", AttackSpeed: "attack speed", Job: "job",
	GMLevel: "gm level",
}

func (a Attr) String() string {
	if n, ok := attrNames[a]; ok {
		return n
	}
	return fmt.Sprintf("stat %#04x", int(a))
}

// modOf maps the codes that carry a bonus to the stat they modify.
var modOf = map[Attr]Attr{
	AtkMod:  Atk,
	MatkMod: Matk,
	DefMod:  Def,
	MdefMod: Mdef,
	FleeMod: Flee,
}

// Stat is a stat split into base value and equipment bonus.
type Stat struct {
	Base int
	Mod  int
}

// Total is base plus bonus.
func (s Stat) Total() int { return s.Base + s.Mod }

// Store holds the local player's numbers. It is safe for concurrent use so
// the summary can read it while packets are applied.
type Store struct {
	mu    sync.RWMutex
	attrs map[Attr]int
	stats map[Attr]Stat
}

// New returns an empty store.
func New() *Store {
	return &Store{
		attrs: make(map[Attr]int),
		stats: make(map[Attr]Stat),
	}
}

// Attribute returns a plain value such as HP or money.
func (s *Store) Attribute(a Attr) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.attrs[a]
}

// SetAttribute stores a plain value and returns the previous one.
func (s *Store) SetAttribute(a Attr, v int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	old := s.attrs[a]
	s.attrs[a] = v
	return old
}

// Stat returns a base/bonus stat.
func (s *Store) Stat(a Attr) Stat {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats[a]
}

func (s *Store) SetStatBase(a Attr, v int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.stats[a]
	st.Base = v
	s.stats[a] = st
}

func (s *Store) SetStatMod(a Attr, v int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.stats[a]
	st.Mod = v
	s.stats[a] = st
}

// Apply stores value under the server stat code typ. Codes that name a
// bonus update the Mod of the stat they belong to, primary and combat stats
// update a Base, everything else is a plain attribute. It reports false for
// codes the client does not track.
func (s *Store) Apply(typ Attr, value int) bool {
	if base, ok := modOf[typ]; ok {
		s.SetStatMod(base, value)
		return true
	}
	switch typ {
	case WalkSpeed, AttackSpeed:
		s.SetStatBase(typ, value)
		s.SetStatMod(typ, 0)
	case Str, Agi, Vit, Int, Dex, Luk,
		Atk, Matk, Def, Mdef, Hit, Flee, Crit, Job:
		s.SetStatBase(typ, value)
	case Manner:
	case Exp, JobExp, HP, MaxHP, MP, MaxMP, CharPoints, Level, SkillPoints,
		Money, ExpNeeded, JobExpNeeded, TotalWeight, MaxWeight, GMLevel:
		s.SetAttribute(typ, value)
	default:
		return false
	}
	return true
}

// Entry is one row of Snapshot.
type Entry struct {
	Attr  Attr
	Value int
	Mod   int
}

// Snapshot lists every known value ordered by code.
func (s *Store) Snapshot() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, 0, len(s.attrs)+len(s.stats))
	for a, v := range s.attrs {
		out = append(out, Entry{Attr: a, Value: v})
	}
	for a, st := range s.stats {
		out = append(out, Entry{Attr: a, Value: st.Base, Mod: st.Mod})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Attr < out[j].Attr })
	return out
}
