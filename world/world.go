// Package world tracks the map the local player is on.
package world

import (
	"path"
	"sort"
	"strings"
	"sync"

	"gomana/being"
)

// Size is a map's extent in tiles.
type Size struct {
	Width  int `mapstructure:"width"`
	Height int `mapstructure:"height"`
}

// Map is the currently loaded map.
type Map struct {
	Name    string
	Size    Size
	PvpMode int

	portals map[string]being.Position
}

// Clamp moves a tile inside the map. Unknown sizes only clamp negatives.
func (m *Map) Clamp(x, y int) (int, int) {
	if m.Size.Width > 0 && x >= m.Size.Width {
		x = m.Size.Width - 1
	}
	if m.Size.Height > 0 && y >= m.Size.Height {
		y = m.Size.Height - 1
	}
	if x < 0 {
		x = 0
	}
	if y < 0 {
		y = 0
	}
	return x, y
}

// Portal returns the tile of a named portal.
func (m *Map) Portal(name string) (being.Position, bool) {
	p, ok := m.portals[name]
	return p, ok
}

// Portals lists portal names in order.
func (m *Map) Portals() []string {
	names := make([]string, 0, len(m.portals))
	for n := range m.portals {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Link records a warp from one map to a tile on another.
type Link struct {
	From string
	To   string
	X, Y int
}

// World owns the current map and the beings on it.
type World struct {
	registry *being.Registry
	player   *being.LocalPlayer
	sizes    map[string]Size

	mu    sync.Mutex
	cur   *Map
	links []Link
}

// New creates a world with known map sizes keyed by map name.
func New(reg *being.Registry, player *being.LocalPlayer, sizes map[string]Size) *World {
	return &World{registry: reg, player: player, sizes: sizes}
}

// MapName strips directories and the extension from a server map path.
func MapName(p string) string {
	p = path.Base(strings.TrimSpace(p))
	if i := strings.LastIndexByte(p, '.'); i > 0 {
		p = p[:i]
	}
	return p
}

// Current returns the loaded map or nil.
func (w *World) Current() *Map {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cur
}

// ChangeMap loads name, dropping every being except the local player. It
// reports whether the map actually changed.
func (w *World) ChangeMap(name string, x, y int) (*Map, bool) {
	name = MapName(name)
	w.mu.Lock()
	defer w.mu.Unlock()

	var keep being.ID
	if w.player != nil && w.player.Being != nil {
		keep = w.player.ID()
	}
	if w.registry != nil {
		w.registry.Clear(keep)
	}

	from := ""
	if w.cur != nil {
		from = w.cur.Name
		if from == name {
			w.cur.portals = make(map[string]being.Position)
			return w.cur, false
		}
	}
	w.cur = &Map{Name: name, Size: w.sizes[name], portals: make(map[string]being.Position)}
	w.addLink(from, name, x, y)
	return w.cur, true
}

func (w *World) addLink(from, to string, x, y int) {
	if from == "" || to == "" || from == to {
		return
	}
	for _, l := range w.links {
		if l.From == from && l.To == to {
			return
		}
	}
	w.links = append(w.links, Link{From: from, To: to, X: x, Y: y})
}

// Links returns the warps seen this session.
func (w *World) Links() []Link {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]Link(nil), w.links...)
}

// AddPortal names a portal tile on the current map.
func (w *World) AddPortal(name string, at being.Position) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cur == nil {
		return false
	}
	w.cur.portals[name] = at
	return true
}

// SetPvpMode sets the PvP mode of the current map.
func (w *World) SetPvpMode(mode int) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cur == nil {
		return false
	}
	w.cur.PvpMode = mode
	return true
}
