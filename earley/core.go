package earley

import (
	"sort"

	"github.com/cnf/structhash"

	"github.com/earley-go/yaep/arena"
)

// A core is the hash-consed situation list of a parse set: the set minus
// its distances. Two parse sets at different input positions frequently
// contain the same situations, differing only in where those situations
// started; all of them share one core record.
//
// Core items are kept in canonical order: start situations (dot > 0,
// these carry a distance) sorted by (sid, origin), followed by predicted situations (dot == 0, distance implicitly
// the set's own position) sorted by sid.
type core struct {
	id        int
	startSids []int
	predSids  []int
	// transitions: symbol id -> positions (into the canonical item list)
	// of situations that advance over that symbol
	transitions map[int][]int
}

// items returns the number of situations in the core.
func (c *core) items() int {
	return len(c.startSids) + len(c.predSids)
}

// sidAt returns the sid of the canonical item at position pos.
func (c *core) sidAt(pos int) int {
	if pos < len(c.startSids) {
		return c.startSids[pos]
	}
	return c.predSids[pos-len(c.startSids)]
}

// coreTable hash-conses cores. Per-parse state; the id lists and distance
// vectors live in a bulk-freed int arena owned by the table.
type coreTable struct {
	sits  *sitTable
	index map[string]*core
	cores []*core
	ints  *arena.Ints
}

func newCoreTable(sits *sitTable) *coreTable {
	return &coreTable{
		sits:  sits,
		index: make(map[string]*core),
		ints:  arena.NewInts(0),
	}
}

type coreKey struct {
	Start []int
	Pred  []int
}

func (t *coreTable) intern(startSids, predSids []int) *core {
	key := string(structhash.Dump(coreKey{Start: startSids, Pred: predSids}, 1))
	if c, ok := t.index[key]; ok {
		return c
	}
	c := &core{
		id:          len(t.cores),
		startSids:   startSids,
		predSids:    predSids,
		transitions: make(map[int][]int),
	}
	for pos := 0; pos < c.items(); pos++ {
		sit := t.sits.get(c.sidAt(pos))
		if sit.next != nil {
			c.transitions[sit.next.ID] = append(c.transitions[sit.next.ID], pos)
		}
	}
	t.index[key] = c
	t.cores = append(t.cores, c)
	return c
}

// --- Parse sets ------------------------------------------------------------

// leoItem memoizes the topmost situation of a deterministic right-recursive
// completion chain for one nonterminal (see leo.go). Leo items are kept
// per input position in Parser.leo, neither on the core nor on the
// hash-consed parseSet record.
type leoItem struct {
	top       *situation
	topOrigin int
}

// parseSet is one entry of the parse list: a core plus the distance vector
// of its start situations. Parse sets are hash-consed by (core id,
// distances), so identical sets at different positions share storage;
// Leo items therefore live on the parser's per-position table, not here.
type parseSet struct {
	core  *core
	dists []int // origins of core.startSids, aligned
}

// each calls f for every item of the set, given the set's own position.
func (ps *parseSet) each(sits *sitTable, pos int, f func(s *situation, origin int)) {
	for i, sid := range ps.core.startSids {
		f(sits.get(sid), ps.dists[i])
	}
	for _, sid := range ps.core.predSids {
		f(sits.get(sid), pos)
	}
}

// originAt returns the origin of the canonical item at position itemPos,
// for a set located at input position pos.
func (ps *parseSet) originAt(itemPos, pos int) int {
	if itemPos < len(ps.dists) {
		return ps.dists[itemPos]
	}
	return pos
}

// setTable hash-conses parse sets. Per-parse state.
type setTable struct {
	index map[string]*parseSet
}

func newSetTable() *setTable {
	return &setTable{index: make(map[string]*parseSet)}
}

type setKey struct {
	Core  int
	Dists []int
}

func (t *setTable) intern(c *core, dists []int) *parseSet {
	key := string(structhash.Dump(setKey{Core: c.id, Dists: dists}, 1))
	if ps, ok := t.index[key]; ok {
		return ps
	}
	ps := &parseSet{core: c, dists: dists}
	t.index[key] = ps
	return ps
}

// --- Set construction ------------------------------------------------------

// item is a situation plus its origin: one Earley item while a set is
// still under construction.
type item struct {
	sit    *situation
	origin int
}

type itemKey struct {
	sid, origin int
}

// setBuilder accumulates the items of one parse set. Lookup is O(1)
// expected via the dedup index; the item slice doubles as the work queue
// during closure.
type setBuilder struct {
	pos   int // input position of the set under construction
	items []item
	dedup map[itemKey]bool
}

func newSetBuilder(pos int) *setBuilder {
	return &setBuilder{
		pos:   pos,
		dedup: make(map[itemKey]bool),
	}
}

// add inserts (sit, origin) unless already present; reports insertion.
func (sb *setBuilder) add(sit *situation, origin int) bool {
	key := itemKey{sit.sid, origin}
	if sb.dedup[key] {
		return false
	}
	sb.dedup[key] = true
	sb.items = append(sb.items, item{sit, origin})
	return true
}

func (sb *setBuilder) empty() bool {
	return len(sb.items) == 0
}

// finalize canonicalizes the builder into a hash-consed parse set.
func (sb *setBuilder) finalize(cores *coreTable, sets *setTable) *parseSet {
	var start, pred []item
	for _, it := range sb.items {
		if it.sit.dot > 0 {
			start = append(start, it)
		} else {
			pred = append(pred, it)
		}
	}
	sort.Slice(start, func(i, j int) bool {
		if start[i].sit.sid != start[j].sit.sid {
			return start[i].sit.sid < start[j].sit.sid
		}
		return start[i].origin < start[j].origin
	})
	sort.Slice(pred, func(i, j int) bool {
		return pred[i].sit.sid < pred[j].sit.sid
	})
	startSids := cores.ints.Make(len(start))
	dists := cores.ints.Make(len(start))
	for i, it := range start {
		startSids[i] = it.sit.sid
		dists[i] = it.origin
	}
	predSids := cores.ints.Make(len(pred))
	for i, it := range pred {
		predSids[i] = it.sit.sid
	}
	c := cores.intern(startSids, predSids)
	return sets.intern(c, dists)
}
