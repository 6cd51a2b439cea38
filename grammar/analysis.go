package grammar

// Static grammar analysis: reachability, derivability, loop detection,
// nullable closure, FIRST/FOLLOW sets and the pool of static lookahead
// contexts. Computed once when the grammar is frozen.
//
// Refer to "Crafting A Compiler" by Charles N. Fisher & Richard J.
// LeBlanc, Jr., section 4.5, for FIRST/FOLLOW construction.

// Analysis holds the results of analyzing a frozen grammar. It is
// read-only after construction and may be shared by any number of
// consecutive parses.
type Analysis struct {
	g        *Grammar
	contexts []*TermSet     // context pool; index 0 is the "any" context (nil)
	ctxIndex map[string]int // TermSet.Key() -> pool index
	static   [][]int        // rule serial -> dot -> static context id
	tails    [][]bool       // rule serial -> dot -> rhs[dot:] is nullable
}

// Analyze runs the full static analysis. In strict mode unreachable
// nonterminals are an error; otherwise they are only traced.
func Analyze(g *Grammar, strict bool) (*Analysis, error) {
	a := &Analysis{
		g:        g,
		contexts: []*TermSet{nil},
		ctxIndex: make(map[string]int),
	}
	a.markAccessible()
	a.markDerivable()
	for _, sym := range g.symbols {
		if sym.term {
			continue
		}
		if !sym.accessible {
			if strict {
				return nil, newError(ErrUnreachableNonterminal,
					"nonterminal %q is unreachable from the start symbol", sym.Name)
			}
			tracer().Infof("nonterminal %q is unreachable", sym.Name)
			continue
		}
		if !sym.derivable {
			return nil, newError(ErrNonderivableNonterminal,
				"nonterminal %q derives no terminal string", sym.Name)
		}
	}
	a.markNullable()
	if loop := a.findLoop(); loop != nil {
		return nil, newError(ErrLoopInGrammar, "nonterminal %q derives itself", loop.Name)
	}
	a.computeFirst()
	a.computeFollow()
	a.computeContexts()
	return a, nil
}

// Grammar returns the grammar this analysis belongs to.
func (a *Analysis) Grammar() *Grammar {
	return a.g
}

// --- Flags -----------------------------------------------------------------

func (a *Analysis) markAccessible() {
	a.g.start.accessible = true
	changed := true
	for changed {
		changed = false
		for _, r := range a.g.rules {
			if !r.LHS.accessible {
				continue
			}
			for _, sym := range r.rhs {
				if !sym.accessible {
					sym.accessible = true
					changed = true
				}
			}
		}
	}
}

func (a *Analysis) markDerivable() {
	changed := true
	for changed {
		changed = false
		for _, r := range a.g.rules {
			if r.LHS.derivable {
				continue
			}
			all := true
			for _, sym := range r.rhs {
				if !sym.term && !sym.derivable {
					all = false
					break
				}
			}
			if all {
				r.LHS.derivable = true
				changed = true
			}
		}
	}
}

func (a *Analysis) markNullable() {
	changed := true
	for changed {
		changed = false
		for _, r := range a.g.rules {
			if r.LHS.nullable {
				continue
			}
			all := true
			for _, sym := range r.rhs {
				if sym.term || !sym.nullable {
					all = false
					break
				}
			}
			if all {
				r.LHS.nullable = true
				changed = true
			}
		}
	}
}

// DerivesEpsilon reports whether sym derives the empty string.
func (a *Analysis) DerivesEpsilon(sym *Symbol) bool {
	return !sym.term && sym.nullable
}

// --- Loop detection --------------------------------------------------------

// findLoop searches for a nonterminal N with N =>+ N. Such a derivation
// exists iff the "unit derivation" graph (A -> B whenever A has a rule in
// which B appears and every other RHS symbol is nullable) has a cycle.
func (a *Analysis) findLoop() *Symbol {
	succs := make(map[*Symbol][]*Symbol)
	for _, r := range a.g.rules {
		for i, sym := range r.rhs {
			if sym.term {
				continue
			}
			unit := true
			for j, other := range r.rhs {
				if j == i {
					continue
				}
				if other.term || !other.nullable {
					unit = false
					break
				}
			}
			if unit {
				succs[r.LHS] = append(succs[r.LHS], sym)
			}
		}
	}
	const (
		white = 0
		grey  = 1
		black = 2
	)
	color := make(map[*Symbol]int)
	var visit func(*Symbol) *Symbol
	visit = func(n *Symbol) *Symbol {
		color[n] = grey
		for _, s := range succs[n] {
			switch color[s] {
			case grey:
				return s
			case white:
				if loop := visit(s); loop != nil {
					return loop
				}
			}
		}
		color[n] = black
		return nil
	}
	for _, sym := range a.g.symbols {
		if sym.term || color[sym] != white {
			continue
		}
		if loop := visit(sym); loop != nil {
			return loop
		}
	}
	return nil
}

// --- FIRST / FOLLOW --------------------------------------------------------

func (a *Analysis) computeFirst() {
	n := a.g.TermCount()
	for _, sym := range a.g.symbols {
		if !sym.term {
			sym.first = NewTermSet(n)
		}
	}
	changed := true
	for changed {
		changed = false
		for _, r := range a.g.rules {
			acc := NewTermSet(n)
			a.firstOfSeq(r.rhs, acc)
			if r.LHS.first.OrInto(acc) {
				changed = true
			}
		}
	}
}

// firstOfSeq accumulates FIRST(syms) into acc and reports whether the
// whole sequence is nullable.
func (a *Analysis) firstOfSeq(syms []*Symbol, acc *TermSet) bool {
	for _, sym := range syms {
		if sym.term {
			acc.Set(sym.tindex)
			return false
		}
		if sym.first != nil {
			acc.OrInto(sym.first)
		}
		if !sym.nullable {
			return false
		}
	}
	return true
}

func (a *Analysis) computeFollow() {
	n := a.g.TermCount()
	for _, sym := range a.g.symbols {
		if !sym.term {
			sym.follow = NewTermSet(n)
		}
	}
	changed := true
	for changed {
		changed = false
		for _, r := range a.g.rules {
			for i, sym := range r.rhs {
				if sym.term {
					continue
				}
				rest := NewTermSet(n)
				if a.firstOfSeq(r.rhs[i+1:], rest) {
					rest.OrInto(r.LHS.follow)
				}
				if sym.follow.OrInto(rest) {
					changed = true
				}
			}
		}
	}
}

// SeqFirst accumulates FIRST of a symbol sequence into acc and reports
// whether the whole sequence is nullable. Used by the parser to compute
// dynamic lookahead contexts.
func (a *Analysis) SeqFirst(syms []*Symbol, acc *TermSet) bool {
	return a.firstOfSeq(syms, acc)
}

// First returns the FIRST set of a symbol. For terminals this is the
// singleton set containing the terminal itself.
func (a *Analysis) First(sym *Symbol) *TermSet {
	if sym.term {
		ts := NewTermSet(a.g.TermCount())
		ts.Set(sym.tindex)
		return ts
	}
	return sym.first
}

// Follow returns the FOLLOW set of a nonterminal.
func (a *Analysis) Follow(sym *Symbol) *TermSet {
	return sym.follow
}

// --- Static lookahead contexts ---------------------------------------------

// computeContexts interns, for every (rule, dot), the terminal set
// FIRST(rhs[dot:] · FOLLOW(lhs)). Context 0 is reserved for "any".
func (a *Analysis) computeContexts() {
	n := a.g.TermCount()
	a.static = make([][]int, len(a.g.rules))
	a.tails = make([][]bool, len(a.g.rules))
	for _, r := range a.g.rules {
		dots := len(r.rhs) + 1
		a.static[r.Serial] = make([]int, dots)
		a.tails[r.Serial] = make([]bool, dots)
		for dot := 0; dot < dots; dot++ {
			ts := NewTermSet(n)
			tail := a.firstOfSeq(r.rhs[dot:], ts)
			a.tails[r.Serial][dot] = tail
			if tail {
				ts.OrInto(r.LHS.follow)
			}
			a.static[r.Serial][dot] = a.internContext(ts)
		}
	}
	tracer().Debugf("interned %d static lookahead contexts", len(a.contexts)-1)
}

func (a *Analysis) internContext(ts *TermSet) int {
	key := ts.Key()
	if id, ok := a.ctxIndex[key]; ok {
		return id
	}
	id := len(a.contexts)
	a.contexts = append(a.contexts, ts)
	a.ctxIndex[key] = id
	return id
}

// StaticContext returns the interned context id for (rule, dot).
func (a *Analysis) StaticContext(r *Rule, dot int) int {
	return a.static[r.Serial][dot]
}

// EmptyTail reports whether rhs[dot:] of the rule is nullable.
func (a *Analysis) EmptyTail(r *Rule, dot int) bool {
	return a.tails[r.Serial][dot]
}

// Context returns the terminal set of a static context id; nil for the
// "any" context 0.
func (a *Analysis) Context(id int) *TermSet {
	return a.contexts[id]
}

// ContextCount returns the number of interned static contexts, including
// the "any" context.
func (a *Analysis) ContextCount() int {
	return len(a.contexts)
}

// FindContext looks up an interned context with the same terminal set.
func (a *Analysis) FindContext(ts *TermSet) (int, bool) {
	id, ok := a.ctxIndex[ts.Key()]
	return id, ok
}
