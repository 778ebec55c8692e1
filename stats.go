package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/hako/durafmt"

	"gomana/being"
)

var shortUnits, _ = durafmt.DefaultUnitsCoder.Decode("y:yrs,wk:wks,d:d,h:h,m:m,s:s,ms:ms,us:us")

// formatDuration renders d with its two largest units, e.g. "3 m 12 s".
func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "0 s"
	}
	return durafmt.Parse(d).LimitFirstN(2).Format(shortUnits)
}

// summary describes what a session saw, for the end of a run.
func (s *session) summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s packets, %s over %s\n",
		s.name,
		humanize.Comma(int64(s.packets)),
		humanize.Bytes(uint64(s.bytes)),
		formatDuration(s.last.Sub(s.start)))

	kinds := make(map[being.Kind]int)
	s.registry.Each(func(bg *being.Being) { kinds[bg.Kind()]++ })
	created, removed := s.registry.Counts()
	fmt.Fprintf(&b, "  beings: %d in view (%d players, %d npcs, %d monsters, %d portals), %s created, %s removed\n",
		s.registry.Len(), kinds[being.KindPlayer], kinds[being.KindNPC], kinds[being.KindMonster], kinds[being.KindPortal],
		humanize.Comma(int64(created)), humanize.Comma(int64(removed)))

	st := s.beings.Stats()
	fmt.Fprintf(&b, "  reconciler: %d spawned, %d died, %d removed, %d corrected paths, %d bad steps, %d unknown ids, %d unhandled actions\n",
		st.Spawned, st.Died, st.Removed, st.Corrected, st.BadSteps, st.Missing, st.Unhandled)
	fmt.Fprintf(&b, "  roster: %d players known, %d online; %d name requests (%d throttled)\n",
		len(s.roster.Players()), s.roster.Online(), st.NameLookup, s.sender.Dropped())
	if m := s.world.Current(); m != nil {
		fmt.Fprintf(&b, "  map: %s\n", m.Name)
	}

	for _, ps := range s.dispatch.Stats() {
		name := ps.Name
		if !ps.Handled {
			name = "unimplemented"
		}
		fmt.Fprintf(&b, "  %#04x %-22s %8s %10s\n", ps.Op, name, humanize.Comma(int64(ps.Count)), humanize.Bytes(uint64(ps.Bytes)))
	}
	if s.broken != nil {
		fmt.Fprintf(&b, "  stopped: %v\n", s.broken)
	}
	return b.String()
}
