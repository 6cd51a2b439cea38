package forest

import (
	"fmt"
	"sort"

	"github.com/cnf/structhash"
	"github.com/earley-go/yaep/earley"
	"github.com/earley-go/yaep/grammar"
)

// Config selects how ambiguity and costs shape the translation.
type Config struct {
	OneParse bool // build a single tree instead of an Alt-chained DAG
	Cost     bool // Anode costs include children; keep only minimum-cost derivations
}

// Builder projects a finished parse list into a translation DAG. Create
// one per parse via Build.
type Builder struct {
	p          *earley.Parser
	g          *grammar.Grammar
	cfg        Config
	arena      *Arena
	memo       map[string]*Node
	inProgress map[string]bool
	completed  map[string][]*grammar.Rule // (sym, from, to) -> completed rules
	nilNode    *Node
	errNode    *Node
	ambiguous  bool
}

// Build walks the parse list backwards from the accepting situation and
// returns the root of the translation DAG plus the ambiguity flag. Nodes
// are allocated from ar; pass nil for a private arena.
func Build(p *earley.Parser, cfg Config, ar *Arena) (*Node, bool, error) {
	if !p.Accepted() {
		return nil, false, fmt.Errorf("translation requested for unaccepted parse")
	}
	if ar == nil {
		ar = NewArena()
	}
	b := &Builder{
		p:          p,
		g:          p.Grammar(),
		cfg:        cfg,
		arena:      ar,
		memo:       make(map[string]*Node),
		inProgress: make(map[string]bool),
		completed:  make(map[string][]*grammar.Rule),
	}
	b.indexCompletions()
	axiom := b.g.Rule(0).RHS()[0]
	final := p.SetCount() - 1
	root := b.derive(axiom, 0, final-1)
	if root == nil {
		return nil, false, fmt.Errorf("no derivation for %s over the whole input", axiom.Name)
	}
	tracer().Debugf("translation root: %s", root)
	return root, b.ambiguous, nil
}

type spanKey struct {
	Sym, From, To int
}

func span(sym *grammar.Symbol, from, to int) string {
	return string(structhash.Dump(spanKey{Sym: sym.ID, From: from, To: to}, 1))
}

// indexCompletions collects every completed item of every parse set into
// a (symbol, origin, end) index, the ground truth for the backward walk.
func (b *Builder) indexCompletions() {
	for pos := 0; pos < b.p.SetCount(); pos++ {
		end := pos
		b.p.EachItem(pos, func(rule *grammar.Rule, dot, origin int) {
			if dot != len(rule.RHS()) {
				return
			}
			key := span(rule.LHS, origin, end)
			for _, r := range b.completed[key] {
				if r == rule {
					return
				}
			}
			b.completed[key] = append(b.completed[key], rule)
		})
	}
}

// derive returns the translation of nonterminal sym over input span
// [from, to), or nil if no derivation exists. Results are memoized per
// span, which makes the DAG shared: every parent referencing the same
// (nonterminal, span) receives the same node.
func (b *Builder) derive(sym *grammar.Symbol, from, to int) *Node {
	key := span(sym, from, to)
	if n, ok := b.memo[key]; ok {
		return n
	}
	if b.inProgress[key] {
		return nil
	}
	b.inProgress[key] = true
	defer delete(b.inProgress, key)

	rules := append([]*grammar.Rule(nil), b.completed[key]...)
	sort.Slice(rules, func(i, j int) bool { return rules[i].Serial < rules[j].Serial })
	var alts []*Node
	for _, r := range rules {
		alts = append(alts, b.derivations(r, from, to, true)...)
	}
	if len(alts) == 0 && from < to {
		// The chart may lack inner items of a completion chain collapsed
		// by the Leo optimization; reconstruct by trying the rules
		// directly against the input.
		for _, r := range sym.Rules() {
			alts = append(alts, b.derivations(r, from, to, false)...)
		}
	}
	if len(alts) > 1 {
		// multiple derivations, even if some collapse to one translation
		b.ambiguous = true
	}
	alts = dedupNodes(alts)
	if len(alts) == 0 {
		b.memo[key] = nil
		return nil
	}
	if b.cfg.Cost {
		alts = minimalCost(alts)
	}
	var result *Node
	switch {
	case b.cfg.OneParse || len(alts) == 1:
		result = alts[0]
	default:
		result = b.altChain(alts)
	}
	b.memo[key] = result
	return result
}

// derivations enumerates the valid split vectors of rule r over [from,
// to) and assembles one candidate node per split, in ascending
// lexicographic split order. With strictChart set, nonterminal children
// must be backed by a completed chart item.
func (b *Builder) derivations(r *grammar.Rule, from, to int, strictChart bool) []*Node {
	rhs := r.RHS()
	var out []*Node
	var rec func(k, pos int, children []*Node)
	rec = func(k, pos int, children []*Node) {
		if k == len(rhs) {
			if pos == to {
				if n := b.assemble(r, children); n != nil {
					out = append(out, n)
				}
			}
			return
		}
		sym := rhs[k]
		if sym.IsTerminal() {
			if pos < to && b.termMatches(pos, sym) {
				rec(k+1, pos+1, appendChild(children, b.termNode(pos)))
			}
			return
		}
		lo, hi := pos, to
		if k == len(rhs)-1 {
			lo, hi = to, to // the last child must reach the rule's end
		}
		for q := lo; q <= hi; q++ {
			if strictChart && !b.chartHas(sym, pos, q) {
				continue
			}
			child := b.derive(sym, pos, q)
			if child == nil {
				continue
			}
			rec(k+1, q, appendChild(children, child))
		}
	}
	rec(0, from, nil)
	return out
}

func appendChild(children []*Node, n *Node) []*Node {
	next := make([]*Node, len(children)+1)
	copy(next, children)
	next[len(children)] = n
	return next
}

func (b *Builder) chartHas(sym *grammar.Symbol, from, to int) bool {
	return len(b.completed[span(sym, from, to)]) > 0
}

// termMatches reports whether the token consumed at pos is terminal sym.
func (b *Builder) termMatches(pos int, sym *grammar.Symbol) bool {
	tok := b.p.TokenAt(pos)
	switch tok.Code {
	case grammar.EofCode:
		return sym == b.g.Eof()
	case grammar.ErrorTokCode:
		return sym == b.g.ErrorTerminal()
	}
	return b.g.Terminal(tok.Code) == sym
}

// termNode builds the node for the token consumed at pos. The synthetic
// error token of a recovery maps to the Error singleton.
func (b *Builder) termNode(pos int) *Node {
	tok := b.p.TokenAt(pos)
	if tok.Code == grammar.ErrorTokCode {
		return b.errorNode()
	}
	n := b.arena.alloc()
	n.Kind = Term
	n.Code = tok.Code
	n.Attr = tok.Attr
	return n
}

// assemble applies the rule's translation descriptor to the children of
// one split.
func (b *Builder) assemble(r *grammar.Rule, children []*Node) *Node {
	tr := r.Transl
	switch tr.Kind {
	case grammar.TransEmpty:
		return b.nilN()
	case grammar.TransChild:
		return children[tr.Child]
	case grammar.TransNode:
		n := b.arena.alloc()
		n.Kind = Anode
		n.Name = tr.Name
		n.Cost = tr.Cost
		n.Children = make([]*Node, len(tr.Args))
		for i, argpos := range tr.Args {
			if argpos == grammar.NilSpot {
				n.Children[i] = b.nilN()
				continue
			}
			n.Children[i] = children[argpos]
			if b.cfg.Cost {
				n.Cost += NodeCost(children[argpos])
			}
		}
		return n
	}
	return nil
}

func (b *Builder) nilN() *Node {
	if b.nilNode == nil {
		b.nilNode = b.arena.alloc()
		b.nilNode.Kind = Nil
	}
	return b.nilNode
}

func (b *Builder) errorNode() *Node {
	if b.errNode == nil {
		b.errNode = b.arena.alloc()
		b.errNode.Kind = Error
	}
	return b.errNode
}

// altChain links alternatives into an Alt chain, first alternative first.
func (b *Builder) altChain(alts []*Node) *Node {
	var chain *Node
	for i := len(alts) - 1; i >= 0; i-- {
		n := b.arena.alloc()
		n.Kind = Alt
		n.Child = alts[i]
		n.Next = chain
		chain = n
	}
	return chain
}

// dedupNodes removes pointer-identical alternatives, keeping first
// occurrences in order.
func dedupNodes(alts []*Node) []*Node {
	seen := make(map[*Node]bool, len(alts))
	out := alts[:0]
	for _, n := range alts {
		if seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

// minimalCost keeps only the cheapest alternatives, preserving order.
func minimalCost(alts []*Node) []*Node {
	min := NodeCost(alts[0])
	for _, n := range alts[1:] {
		if c := NodeCost(n); c < min {
			min = c
		}
	}
	out := alts[:0]
	for _, n := range alts {
		if NodeCost(n) == min {
			out = append(out, n)
		}
	}
	return out
}
