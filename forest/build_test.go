package forest

import (
	"fmt"
	"strings"
	"testing"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"

	"github.com/earley-go/yaep/earley"
	"github.com/earley-go/yaep/grammar"
)

func parse(t *testing.T, g *grammar.Grammar, ecfg earley.Config, codes []int) *earley.Parser {
	p := earley.NewParser(g.Analysis(), ecfg)
	if err := p.Run(earley.TokensFromCodes(codes)); err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	return p
}

func runes(input string) []int {
	codes := make([]int, 0, len(input))
	for _, r := range input {
		codes = append(codes, int(r))
	}
	return codes
}

// S -> 'a' S 'b' | epsilon, with the default abstract-node translation.
func balancedGrammar(t *testing.T) *grammar.Grammar {
	b := grammar.NewBuilder("Balanced")
	b.LHS("S").T("a", 'a').N("S").T("b", 'b').End()
	b.LHS("S").Epsilon()
	g, err := b.Grammar()
	if err != nil {
		t.Fatalf("cannot build grammar: %v", err)
	}
	return g
}

// E -> E '+' E # Add(0 2) | E '*' E # Mul(0 2) | 'a' # 0
func ambiguousExprGrammar(t *testing.T) *grammar.Grammar {
	b := grammar.NewBuilder("AmbExpr")
	b.LHS("E").N("E").T("+", 43).N("E").Transl(grammar.Node("Add", 0, 0, 2)).End()
	b.LHS("E").N("E").T("*", 42).N("E").Transl(grammar.Node("Mul", 0, 0, 2)).End()
	b.LHS("E").T("a", 'a').Transl(grammar.PassChild(0)).End()
	g, err := b.Grammar()
	if err != nil {
		t.Fatalf("cannot build grammar: %v", err)
	}
	return g
}

func TestBalancedTreeShape(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "yaep.forest")
	defer teardown()
	//
	g := balancedGrammar(t)
	p := parse(t, g, earley.Config{}, runes("aabb"))
	root, ambiguous, err := Build(p, Config{OneParse: true}, nil)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if ambiguous {
		t.Errorf("balanced grammar is unambiguous")
	}
	want := fmt.Sprintf("S['%d' S['%d' S[] '%d'] '%d']", 'a', 'a', 'b', 'b')
	if got := root.String(); got != want {
		t.Errorf("tree shape mismatch:\n got  %s\n want %s", got, want)
	}
}

func TestAmbiguityAllParses(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "yaep.forest")
	defer teardown()
	//
	g := ambiguousExprGrammar(t)
	p := parse(t, g, earley.Config{}, []int{'a', 43, 'a', 42, 'a'})
	root, ambiguous, err := Build(p, Config{OneParse: false}, nil)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if !ambiguous {
		t.Errorf("a + a * a should be ambiguous")
	}
	if root.Kind != Alt {
		t.Fatalf("root should be an Alt chain, is %s", root.Kind)
	}
	alts := Alternatives(root)
	if len(alts) != 2 {
		t.Fatalf("expected exactly 2 alternatives at the top, got %d", len(alts))
	}
	if alts[0].Name != "Add" || alts[1].Name != "Mul" {
		t.Errorf("expected [Add Mul] in rule order, got [%s %s]", alts[0].Name, alts[1].Name)
	}
}

func TestAmbiguityOneParse(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "yaep.forest")
	defer teardown()
	//
	g := ambiguousExprGrammar(t)
	p := parse(t, g, earley.Config{}, []int{'a', 43, 'a', 42, 'a'})
	root, ambiguous, err := Build(p, Config{OneParse: true}, nil)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if !ambiguous {
		t.Errorf("ambiguity must be reported even in one-parse mode")
	}
	if root.Kind != Anode || root.Name != "Add" {
		t.Errorf("one-parse should pick the lowest rule serial (Add), got %s", root)
	}
}

func TestDAGSharing(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "yaep.forest")
	defer teardown()
	//
	g := ambiguousExprGrammar(t)
	p := parse(t, g, earley.Config{}, []int{'a', 43, 'a', 42, 'a'})
	root, _, err := Build(p, Config{OneParse: false}, nil)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	alts := Alternatives(root)
	add, mul := alts[0], alts[1]
	// the leading 'a' is the same (nonterminal, span) in both parses and
	// must be one shared node
	inner := mul.Children[0] // Add(a, a) over tokens 0..2
	if inner.Kind != Anode || len(inner.Children) == 0 {
		t.Fatalf("unexpected shape of second alternative: %s", mul)
	}
	if add.Children[0] != inner.Children[0] {
		t.Errorf("leading 'a' node should be shared between both parses")
	}
}

func TestCostSelection(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "yaep.forest")
	defer teardown()
	//
	b := grammar.NewBuilder("Costly")
	b.LHS("S").N("A").Transl(grammar.PassChild(0)).End()
	b.LHS("A").T("x", 'x').Transl(grammar.Node("Pick", 5, 0)).End()
	b.LHS("A").T("x", 'x').Transl(grammar.Node("Pick", 7, 0)).End()
	g, err := b.Grammar()
	if err != nil {
		t.Fatalf("cannot build grammar: %v", err)
	}
	p := parse(t, g, earley.Config{}, []int{'x'})
	root, ambiguous, err := Build(p, Config{OneParse: false, Cost: true}, nil)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if !ambiguous {
		t.Errorf("two derivations should set the ambiguity flag")
	}
	if root.Kind != Anode {
		t.Fatalf("cost selection should leave a single derivation, got %s", root)
	}
	if root.Cost != 5 {
		t.Errorf("expected the cost-5 derivation, got cost %d", root.Cost)
	}
}

func TestCostAccumulates(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "yaep.forest")
	defer teardown()
	//
	b := grammar.NewBuilder("CostSum")
	b.LHS("S").N("A").N("A").Transl(grammar.Node("Pair", 1, 0, 1)).End()
	b.LHS("A").T("x", 'x').Transl(grammar.Node("Leaf", 2, 0)).End()
	g, err := b.Grammar()
	if err != nil {
		t.Fatalf("cannot build grammar: %v", err)
	}
	p := parse(t, g, earley.Config{}, []int{'x', 'x'})
	root, _, err := Build(p, Config{OneParse: true, Cost: true}, nil)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if root.Cost != 1+2+2 {
		t.Errorf("root cost should include children (1+2+2), got %d", root.Cost)
	}
}

func TestNullableHeavyNilSharing(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "yaep.forest")
	defer teardown()
	//
	b := grammar.NewBuilder("Nullable")
	rb := b.LHS("S")
	for i := 0; i < 10; i++ {
		rb = rb.N(fmt.Sprintf("N%d", i))
	}
	rb.End()
	for i := 0; i < 10; i++ {
		name := fmt.Sprintf("N%d", i)
		b.LHS(name).Transl(grammar.Empty()).Epsilon()
		b.LHS(name).T(fmt.Sprintf("t%d", i), 100+i).Transl(grammar.PassChild(0)).End()
	}
	g, err := b.Grammar()
	if err != nil {
		t.Fatalf("cannot build grammar: %v", err)
	}
	p := parse(t, g, earley.Config{}, nil)
	root, ambiguous, err := Build(p, Config{OneParse: true}, nil)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if ambiguous {
		t.Errorf("empty input has a single derivation")
	}
	if root.Kind != Anode || len(root.Children) != 10 {
		t.Fatalf("expected S with 10 children, got %s", root)
	}
	first := root.Children[0]
	if first.Kind != Nil {
		t.Fatalf("children of the empty parse should be Nil, got %s", first)
	}
	for i, c := range root.Children {
		if c != first {
			t.Errorf("child %d is not the shared Nil singleton", i)
		}
	}
}

// Cons list over a right-recursive rule: Leo on and off must produce the
// identical translation.
func TestLeoEquivalentTranslation(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "yaep.forest")
	defer teardown()
	//
	b := grammar.NewBuilder("Chain")
	b.LHS("A").T("a", 'a').N("A").Transl(grammar.Node("Cons", 0, 0, 1)).End()
	b.LHS("A").T("a", 'a').Transl(grammar.PassChild(0)).End()
	g, err := b.Grammar()
	if err != nil {
		t.Fatalf("cannot build grammar: %v", err)
	}
	for _, n := range []int{1, 2, 7, 30} {
		input := runes(strings.Repeat("a", n))
		withLeo := parse(t, g, earley.Config{Leo: true}, input)
		without := parse(t, g, earley.Config{Leo: false}, input)
		r1, amb1, err1 := Build(withLeo, Config{OneParse: true}, nil)
		r2, amb2, err2 := Build(without, Config{OneParse: true}, nil)
		if err1 != nil || err2 != nil {
			t.Fatalf("build failed for n=%d: %v / %v", n, err1, err2)
		}
		if amb1 != amb2 {
			t.Errorf("n=%d: Leo changes the ambiguity flag", n)
		}
		if r1.String() != r2.String() {
			t.Errorf("n=%d: Leo changes the translation:\n with    %s\n without %s",
				n, r1, r2)
		}
	}
}

func TestLeoLongChainBuilds(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "yaep.forest")
	defer teardown()
	//
	b := grammar.NewBuilder("Chain")
	b.LHS("A").T("a", 'a').N("A").Transl(grammar.Node("Cons", 0, 0, 1)).End()
	b.LHS("A").T("a", 'a').Transl(grammar.PassChild(0)).End()
	g, err := b.Grammar()
	if err != nil {
		t.Fatalf("cannot build grammar: %v", err)
	}
	p := parse(t, g, earley.Config{Leo: true}, runes(strings.Repeat("a", 1000)))
	root, ambiguous, err := Build(p, Config{OneParse: true}, nil)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if ambiguous {
		t.Errorf("the chain grammar is unambiguous")
	}
	depth := 0
	for n := root; n.Kind == Anode; n = n.Children[1] {
		depth++
	}
	if depth != 999 {
		t.Errorf("expected a Cons chain of depth 999, got %d", depth)
	}
}

// The terminals of a translation, read left to right, must be exactly
// the input (soundness).
func TestTranslationYieldsInput(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "yaep.forest")
	defer teardown()
	//
	g := balancedGrammar(t)
	input := "aaabbb"
	p := parse(t, g, earley.Config{}, runes(input))
	root, _, err := Build(p, Config{OneParse: true}, nil)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	var yield []int
	var walk func(n *Node)
	walk = func(n *Node) {
		switch n.Kind {
		case Term:
			yield = append(yield, n.Code)
		case Anode:
			for _, c := range n.Children {
				walk(c)
			}
		case Alt:
			walk(n.Child)
		}
	}
	walk(root)
	want := runes(input)
	if len(yield) != len(want) {
		t.Fatalf("yield %v does not match input %v", yield, want)
	}
	for i := range want {
		if yield[i] != want[i] {
			t.Fatalf("yield %v does not match input %v", yield, want)
		}
	}
}

// With one-parse off, both groupings of a + a * a must be present in the
// DAG (completeness).
func TestCompletenessOfAltChain(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "yaep.forest")
	defer teardown()
	//
	g := ambiguousExprGrammar(t)
	p := parse(t, g, earley.Config{}, []int{'a', 43, 'a', 42, 'a'})
	root, _, err := Build(p, Config{OneParse: false}, nil)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	alts := Alternatives(root)
	if len(alts) != 2 {
		t.Fatalf("expected 2 alternatives, got %d", len(alts))
	}
	// right-grouped: Add(a, Mul(a, a)); left-grouped: Mul(Add(a, a), a)
	add, mul := alts[0], alts[1]
	if add.Children[1].Name != "Mul" {
		t.Errorf("first alternative should contain the Mul subtree, is %s", add)
	}
	if mul.Children[0].Name != "Add" {
		t.Errorf("second alternative should contain the Add subtree, is %s", mul)
	}
}

func TestReparseIdempotence(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "yaep.forest")
	defer teardown()
	//
	g := ambiguousExprGrammar(t)
	input := []int{'a', 43, 'a', 42, 'a', 43, 'a'}
	var first string
	for run := 0; run < 3; run++ {
		p := parse(t, g, earley.Config{Lookahead: 1}, input)
		root, _, err := Build(p, Config{OneParse: false}, nil)
		if err != nil {
			t.Fatalf("build failed: %v", err)
		}
		if run == 0 {
			first = root.String()
			continue
		}
		if root.String() != first {
			t.Errorf("run %d produced a different DAG", run)
		}
	}
}

func TestFreeVisitsTerminals(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "yaep.forest")
	defer teardown()
	//
	g := balancedGrammar(t)
	p := parse(t, g, earley.Config{}, runes("aabb"))
	root, _, err := Build(p, Config{OneParse: true}, nil)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	freed := 0
	Free(root, func(code int, attr interface{}) {
		freed++
	})
	if freed != 4 {
		t.Errorf("expected 4 terminal releases, got %d", freed)
	}
}

func TestErrorNodeAfterRecovery(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "yaep.forest")
	defer teardown()
	//
	b := grammar.NewBuilder("Recovery")
	b.LHS("prog").N("prog").N("stmt").End()
	b.LHS("prog").N("stmt").End()
	b.LHS("stmt").T("i", 'i').N("expr").T(";", ';').End()
	b.LHS("stmt").Err().T(";", ';').End()
	b.LHS("expr").T("e", 'e').End()
	b.Terminal("x", 'x')
	g, err := b.Grammar()
	if err != nil {
		t.Fatalf("cannot build grammar: %v", err)
	}
	p := earley.NewParser(g.Analysis(), earley.Config{Recovery: true})
	if err := p.Run(earley.TokensFromCodes(runes("ie;ix;ie;"))); err != nil {
		t.Fatalf("recovery parse failed: %v", err)
	}
	root, _, err := Build(p, Config{OneParse: true}, nil)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	errors := 0
	var count func(n *Node, seen map[*Node]bool)
	count = func(n *Node, seen map[*Node]bool) {
		if n == nil || seen[n] {
			return
		}
		seen[n] = true
		if n.Kind == Error {
			errors++
		}
		for _, c := range n.Children {
			count(c, seen)
		}
		count(n.Child, seen)
		count(n.Next, seen)
	}
	count(root, make(map[*Node]bool))
	if errors != 1 {
		t.Errorf("translation should contain exactly one Error node, got %d", errors)
	}
}
