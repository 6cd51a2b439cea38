package earley

import (
	"testing"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"

	"github.com/earley-go/yaep/grammar"
)

// Statement-list grammar with a recovery point:
//
//     prog : prog stmt | stmt
//     stmt : 'i' expr ';' | error ';'
//     expr : 'e'
//
func makeRecoveryGrammar(t *testing.T) *grammar.Grammar {
	b := grammar.NewBuilder("Recovery")
	b.LHS("prog").N("prog").N("stmt").End()
	b.LHS("prog").N("stmt").End()
	b.LHS("stmt").T("i", 'i').N("expr").T(";", ';').End()
	b.LHS("stmt").Err().T(";", ';').End()
	b.LHS("expr").T("e", 'e').End()
	b.Terminal("x", 'x') // declared but fits no expr rule
	g, err := b.Grammar()
	if err != nil {
		t.Fatalf("cannot build grammar: %v", err)
	}
	return g
}

type errRecord struct {
	pos, firstIgnored, firstRecovered int
}

func runRecovery(t *testing.T, g *grammar.Grammar, cfg Config, input string) (*Parser, []errRecord, error) {
	p := NewParser(g.Analysis(), cfg)
	var calls []errRecord
	p.Error = func(errPos int, errTok Token, firstIgnored, firstRecovered int) {
		calls = append(calls, errRecord{errPos, firstIgnored, firstRecovered})
	}
	err := p.Run(TokensFromCodes(codesOf(input)))
	return p, calls, err
}

func TestRecoveryDisabled(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "yaep.earley")
	defer teardown()
	//
	g := makeRecoveryGrammar(t)
	_, calls, err := runRecovery(t, g, Config{}, "ix;")
	if err == nil {
		t.Fatalf("malformed input should fail without recovery")
	}
	if len(calls) != 1 {
		t.Fatalf("expected exactly one error callback, got %d", len(calls))
	}
	if calls[0].firstIgnored != -1 || calls[0].firstRecovered != -1 {
		t.Errorf("without recovery the ignored markers must be negative, got %+v", calls[0])
	}
}

func TestRecoveryMidStream(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "yaep.earley")
	defer teardown()
	//
	g := makeRecoveryGrammar(t)
	// token positions:  0    1    2    3    4    5    6    7    8
	//                   i    e    ;    i    x    ;    i    e    ;
	p, calls, err := runRecovery(t, g, Config{Recovery: true}, "ie;ix;ie;")
	if err != nil {
		t.Fatalf("recovery should rescue the parse: %v", err)
	}
	if !p.Accepted() {
		t.Fatalf("input should be accepted after recovery")
	}
	if len(calls) != 1 {
		t.Fatalf("expected exactly one error callback, got %d", len(calls))
	}
	c := calls[0]
	if c.pos != 4 {
		t.Errorf("error should be reported at token 4, got %d", c.pos)
	}
	if c.firstIgnored != 4 || c.firstRecovered != 5 {
		t.Errorf("minimal recovery ignores exactly token 4, got %+v", c)
	}
}

func TestRecoveryMinimality(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "yaep.earley")
	defer teardown()
	//
	g := makeRecoveryGrammar(t)
	// two junk tokens must both be ignored; no shorter recovery exists
	_, calls, err := runRecovery(t, g, Config{Recovery: true}, "ixx;")
	if err != nil {
		t.Fatalf("recovery should rescue the parse: %v", err)
	}
	if len(calls) != 1 {
		t.Fatalf("expected exactly one error callback, got %d", len(calls))
	}
	c := calls[0]
	if got := c.firstRecovered - c.firstIgnored; got != 2 {
		t.Errorf("minimal recovery ignores 2 tokens, reported %d (%+v)", got, c)
	}
}

func TestRecoveryReplaysTokens(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "yaep.earley")
	defer teardown()
	//
	g := makeRecoveryGrammar(t)
	p, _, err := runRecovery(t, g, Config{Recovery: true}, "ix;ie;")
	if err != nil {
		t.Fatalf("recovery should rescue the parse: %v", err)
	}
	// the token stream after recovery must contain the synthetic error
	// transition followed by the replayed real tokens
	sawError := false
	for i := 0; i < p.SetCount()-1; i++ {
		if p.TokenAt(i).Code == grammar.ErrorTokCode {
			sawError = true
		}
	}
	if !sawError {
		t.Errorf("parse list should contain a synthetic error transition")
	}
}

func TestRecoveryFailsWithoutCandidates(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "yaep.earley")
	defer teardown()
	//
	// no rule mentions 'error': recovery must give up cleanly
	b := grammar.NewBuilder("NoCand")
	b.LHS("S").T("a", 'a').End()
	g, err := b.Grammar()
	if err != nil {
		t.Fatalf("cannot build grammar: %v", err)
	}
	p := NewParser(g.Analysis(), Config{Recovery: true})
	perr := p.Run(TokensFromCodes([]int{'a', 'a'}))
	pe, ok := perr.(*ParseError)
	if !ok || pe.Code != grammar.ErrSyntaxError {
		t.Errorf("expected syntax error, got %v", perr)
	}
}
