// Package roster remembers the players seen during a session and persists
// them to SQLite.
package roster

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"gomana/being"
)

// Player is one named player the client has seen.
type Player struct {
	Name      string `gorm:"primaryKey"`
	BeingID   uint32 `gorm:"index"`
	FirstSeen time.Time
	LastSeen  time.Time
	Sightings int
	Online    bool `gorm:"-"`
}

// OpenDB opens the roster database at path. An empty path keeps it in
// memory.
func OpenDB(path string) (*gorm.DB, error) {
	dsn := path
	if dsn == "" {
		dsn = "file::memory:"
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open roster db %q: %w", path, err)
	}
	if path == "" {
		// every new connection to :memory: is a separate database
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("open roster db: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}
	if err := db.AutoMigrate(&Player{}); err != nil {
		return nil, fmt.Errorf("migrate roster db: %w", err)
	}
	return db, nil
}

// Roster tracks players by name. Online status is derived from present,
// which reports whether a being id is still in view.
type Roster struct {
	mu      sync.RWMutex
	players map[string]*Player
	db      *gorm.DB
	present func(being.ID) bool
	stale   bool
	dirty   bool

	refreshes int
	log       *zap.SugaredLogger
	now       func() time.Time
}

// New creates a roster backed by db, which may be nil for memory only.
func New(db *gorm.DB, present func(being.ID) bool, log *zap.SugaredLogger) *Roster {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Roster{
		players: make(map[string]*Player),
		db:      db,
		present: present,
		log:     log,
		now:     time.Now,
	}
}

// SetClock replaces the time source for first and last seen stamps.
func (r *Roster) SetClock(now func() time.Time) {
	r.mu.Lock()
	r.now = now
	r.mu.Unlock()
}

// Load reads previously saved players.
func (r *Roster) Load() error {
	if r.db == nil {
		return nil
	}
	var list []Player
	if err := r.db.Find(&list).Error; err != nil {
		return fmt.Errorf("load roster: %w", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range list {
		p := list[i]
		r.players[p.Name] = &p
	}
	r.stale = true
	return nil
}

// Seen records a named player being in view.
func (r *Roster) Seen(id being.ID, name string) {
	if name == "" {
		return
	}
	now := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.players[name]
	if !ok {
		p = &Player{Name: name, FirstSeen: now}
		r.players[name] = p
	}
	p.BeingID = uint32(id)
	p.LastSeen = now
	p.Sightings++
	p.Online = true
	r.dirty = true
}

// Refresh marks online status for recomputation. It is called whenever a
// player leaves view.
func (r *Roster) Refresh() {
	r.mu.Lock()
	r.stale = true
	r.refreshes++
	r.mu.Unlock()
}

// Refreshes returns how many times Refresh ran.
func (r *Roster) Refreshes() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.refreshes
}

func (r *Roster) recompute() {
	if !r.stale {
		return
	}
	for _, p := range r.players {
		p.Online = r.present != nil && p.BeingID != 0 && r.present(being.ID(p.BeingID))
	}
	r.stale = false
}

// Players returns every known player sorted by name.
func (r *Roster) Players() []Player {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recompute()
	out := make([]Player, 0, len(r.players))
	for _, p := range r.players {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Online counts players currently in view.
func (r *Roster) Online() int {
	n := 0
	for _, p := range r.Players() {
		if p.Online {
			n++
		}
	}
	return n
}

// Save writes changed players to the database.
func (r *Roster) Save() error {
	if r.db == nil {
		return nil
	}
	r.mu.Lock()
	if !r.dirty {
		r.mu.Unlock()
		return nil
	}
	list := make([]Player, 0, len(r.players))
	for _, p := range r.players {
		list = append(list, *p)
	}
	r.dirty = false
	r.mu.Unlock()

	if len(list) == 0 {
		return nil
	}
	err := r.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&list).Error
	if err != nil {
		r.mu.Lock()
		r.dirty = true
		r.mu.Unlock()
		return fmt.Errorf("save roster: %w", err)
	}
	r.log.Debugf("saved %d players", len(list))
	return nil
}
