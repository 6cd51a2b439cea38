package earley

import (
	"github.com/earley-go/yaep/grammar"
)

// ctxPool layers per-parse dynamic lookahead contexts on top of the
// grammar's static context pool. Context ids below the static count are
// resolved by the analysis; ids above it live in this pool. Id 0 is the
// "any" context and resolves to nil.
type ctxPool struct {
	a       *grammar.Analysis
	base    int
	extra   []*grammar.TermSet
	index   map[string]int
	follows map[int]int // parent sid -> interned context id
	firsts  map[sitKey]*grammar.TermSet
}

func newCtxPool(a *grammar.Analysis) *ctxPool {
	return &ctxPool{
		a:       a,
		base:    a.ContextCount(),
		index:   make(map[string]int),
		follows: make(map[int]int),
		firsts:  make(map[sitKey]*grammar.TermSet),
	}
}

// get resolves a context id to its terminal set; nil means "any".
func (cp *ctxPool) get(id int) *grammar.TermSet {
	if id == 0 {
		return nil
	}
	if id < cp.base {
		return cp.a.Context(id)
	}
	return cp.extra[id-cp.base]
}

// intern deduplicates a dynamic context against both the static pool and
// previously interned dynamic ones.
func (cp *ctxPool) intern(ts *grammar.TermSet) int {
	if id, ok := cp.a.FindContext(ts); ok {
		return id
	}
	key := ts.Key()
	if id, ok := cp.index[key]; ok {
		return id
	}
	id := cp.base + len(cp.extra)
	cp.extra = append(cp.extra, ts)
	cp.index[key] = id
	return id
}

// follow computes the dynamic context of predictions made from parent
// [B -> gamma . C delta / ctxB]: FIRST(delta · ctxB). A result covering
// every continuation degrades to the "any" context.
func (cp *ctxPool) follow(parent *situation) int {
	if id, ok := cp.follows[parent.sid]; ok {
		return id
	}
	g := cp.a.Grammar()
	ts := grammar.NewTermSet(g.TermCount())
	rest := parent.rule.RHS()[parent.dot+1:]
	if cp.a.SeqFirst(rest, ts) {
		parentCtx := cp.get(parent.ctx)
		if parentCtx == nil {
			// tail is nullable and the parent accepts anything
			cp.follows[parent.sid] = 0
			return 0
		}
		ts.OrInto(parentCtx)
	}
	id := cp.intern(ts)
	cp.follows[parent.sid] = id
	return id
}

// ruleFirst returns FIRST(rhs(r) · ctx), or nil when the set places no
// restriction. Cached per (rule, ctx).
func (cp *ctxPool) ruleFirst(r *grammar.Rule, ctx int) *grammar.TermSet {
	key := sitKey{rule: r.Serial, dot: -1, ctx: ctx}
	if ts, ok := cp.firsts[key]; ok {
		return ts
	}
	g := cp.a.Grammar()
	ts := grammar.NewTermSet(g.TermCount())
	if cp.a.SeqFirst(r.RHS(), ts) {
		ctxSet := cp.get(ctx)
		if ctxSet == nil {
			cp.firsts[key] = nil
			return nil
		}
		ts.OrInto(ctxSet)
	}
	cp.firsts[key] = ts
	return ts
}
