/*
Package earley implements an Earley recognizer over analyzed grammars,
with optional lookahead filtering, the Leo right-recursion optimization
and bounded error recovery.

Earley parsers operate by constructing a sequence of sets, sometimes
called Earley sets or parse sets. Given an input x1 x2 … xn, the parser
builds n+1 sets: an initial set S0 and one set Si for each input symbol
xi. Elements of these sets are items (here: situations), consisting of a
grammar rule, a position in the right-hand side of the rule indicating how
much of that rule has been seen, and a pointer to an earlier parse set.
See "Practical Earley Parsing" by John Aycock and R. Nigel Horspool, 2002
(http://citeseerx.ist.psu.edu/viewdoc/download?doi=10.1.1.12.4254&rep=rep1&type=pdf).

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.
*/
package earley

import (
	"fmt"

	"github.com/earley-go/yaep/grammar"
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'yaep.earley'.
func tracer() tracing.Trace {
	return tracing.Select("yaep.earley")
}

// situation is a dotted rule with a lookahead context: the core of an
// Earley item, without its origin. Situations are interned per parse, so
// identical (rule, dot, context) triples share one record and compare by
// sid.
type situation struct {
	sid       int
	rule      *grammar.Rule
	dot       int
	ctx       int             // lookahead context id; 0 is "any"
	next      *grammar.Symbol // symbol after the dot, nil if completed
	emptyTail bool            // rhs[dot:] is nullable
}

// completed reports whether the dot is behind the whole RHS.
func (s *situation) completed() bool {
	return s.next == nil
}

func (s *situation) String() string {
	str := s.rule.LHS.Name + " -> "
	for i, sym := range s.rule.RHS() {
		if i == s.dot {
			str += "."
		}
		str += sym.Name + " "
	}
	if s.dot == len(s.rule.RHS()) {
		str += "."
	}
	if s.ctx != 0 {
		str += fmt.Sprintf(" /%d", s.ctx)
	}
	return str
}

type sitKey struct {
	rule, dot, ctx int
}

// sitTable interns situations by (rule, dot, context). It is per-parse
// state.
type sitTable struct {
	analysis *grammar.Analysis
	index    map[sitKey]int
	sits     []*situation
}

func newSitTable(a *grammar.Analysis) *sitTable {
	return &sitTable{
		analysis: a,
		index:    make(map[sitKey]int),
	}
}

// intern returns the unique situation for (rule, dot, ctx).
func (t *sitTable) intern(r *grammar.Rule, dot, ctx int) *situation {
	key := sitKey{r.Serial, dot, ctx}
	if sid, ok := t.index[key]; ok {
		return t.sits[sid]
	}
	s := &situation{
		sid:       len(t.sits),
		rule:      r,
		dot:       dot,
		ctx:       ctx,
		emptyTail: t.analysis.EmptyTail(r, dot),
	}
	if dot < len(r.RHS()) {
		s.next = r.RHS()[dot]
	}
	t.index[key] = s.sid
	t.sits = append(t.sits, s)
	return s
}

// get returns the situation with the given sid.
func (t *sitTable) get(sid int) *situation {
	return t.sits[sid]
}

// advance returns the situation one dot position further, keeping the
// lookahead context discipline of the given level: with static contexts
// the context is a function of (rule, dot); with dynamic contexts it is
// carried along unchanged.
func (t *sitTable) advance(s *situation, level int) *situation {
	ctx := s.ctx
	if level == 1 {
		ctx = t.analysis.StaticContext(s.rule, s.dot+1)
	}
	return t.intern(s.rule, s.dot+1, ctx)
}
