package syntax

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/earley-go/yaep/grammar"
)

func build(t *testing.T, src string) (*grammar.Grammar, error) {
	b := grammar.NewBuilder("T")
	if err := Parse(src, b); err != nil {
		return nil, err
	}
	return b.Grammar()
}

func TestDescriptionBasics(t *testing.T) {
	g, err := build(t, `
		NUM = 48
		PLUS = 43;
		E : E PLUS E # Add(0 2)
		  | NUM # 0
		  ;
	`)
	assert.NoError(t, err)
	assert.NotNil(t, g.Terminal(48))
	assert.Equal(t, "NUM", g.Terminal(48).Name)
	assert.Len(t, g.Rules(), 3) // start rule + 2
	add := g.Rule(1)
	assert.Equal(t, grammar.TransNode, add.Transl.Kind)
	assert.Equal(t, "Add", add.Transl.Name)
	assert.Equal(t, []int{0, 2}, add.Transl.Args)
	num := g.Rule(2)
	assert.Equal(t, grammar.TransChild, num.Transl.Kind)
	assert.Equal(t, 0, num.Transl.Child)
}

func TestCharLiterals(t *testing.T) {
	g, err := build(t, `S : 'a' S 'b' | ; `)
	assert.NoError(t, err)
	a := g.Symbol("'a'")
	assert.NotNil(t, a)
	assert.True(t, a.IsTerminal())
	assert.Equal(t, int('a'), a.Code)
	// the epsilon alternative defaults to an abstract node named S
	eps := g.Rule(2)
	assert.Equal(t, grammar.TransNode, eps.Transl.Kind)
	assert.Len(t, eps.Transl.Args, 0)
}

func TestAutoCodes(t *testing.T) {
	g, err := build(t, `
		A
		B = 300
		C
		S : A B C ;
	`)
	assert.NoError(t, err)
	assert.Equal(t, 256, g.Symbol("A").Code)
	assert.Equal(t, 300, g.Symbol("B").Code)
	assert.Equal(t, 257, g.Symbol("C").Code)
}

func TestTranslationClauses(t *testing.T) {
	g, err := build(t, `
		X = 1
		S : X X      # Pair 3 (0 1)
		  | X        #
		  | X X      # -
		  | X X X    # Wide(0 - 2)
		  ;
	`)
	assert.NoError(t, err)
	pair := g.Rule(1).Transl
	assert.Equal(t, grammar.TransNode, pair.Kind)
	assert.Equal(t, 3, pair.Cost)
	bare := g.Rule(2).Transl
	assert.Equal(t, grammar.TransChild, bare.Kind, "bare # on a single symbol passes it through")
	empty := g.Rule(3).Transl
	assert.Equal(t, grammar.TransEmpty, empty.Kind)
	wide := g.Rule(4).Transl
	assert.Equal(t, []int{0, grammar.NilSpot, 2}, wide.Args)
}

func TestErrorTerminalInRules(t *testing.T) {
	g, err := build(t, `
		I = 1; SEMI = 2
		stmt : I SEMI | error SEMI ;
	`)
	assert.NoError(t, err)
	rec := g.Rule(2)
	assert.Equal(t, g.ErrorTerminal(), rec.RHS()[0])
}

func TestDescriptionErrors(t *testing.T) {
	cases := []struct {
		name string
		src  string
		code grammar.ErrorCode
	}{
		{"missing semicolon", `X = 1 S : X `, grammar.ErrDescriptionSyntax},
		{"missing rule head", `X = 1 ; : X ;`, grammar.ErrDescriptionSyntax},
		{"bad code", `X = ; S : X ;`, grammar.ErrDescriptionSyntax},
		{"stray input", `X = 1 S : X ; @`, grammar.ErrDescriptionSyntax},
		{"invalid utf8", "S : \xff ;", grammar.ErrInvalidUtf8},
		{"reserved decl", `error = 5 S : error ;`, grammar.ErrReservedNameUse},
	}
	for _, c := range cases {
		b := grammar.NewBuilder("T")
		err := Parse(c.src, b)
		if err == nil {
			_, err = b.Grammar()
		}
		assert.Error(t, err, c.name)
		assert.Equal(t, c.code, grammar.CodeOf(err), c.name)
	}
}

func TestComments(t *testing.T) {
	_, err := build(t, `
		/* terminals */
		X = 1
		/* rules */
		S : X ; /* trailing */
	`)
	assert.NoError(t, err)
}

func TestTokenizeLine(t *testing.T) {
	g, err := build(t, `
		NUM = 48
		E : E '+' E | NUM # 0 ;
	`)
	assert.NoError(t, err)
	codes, err := TokenizeLine(g, "NUM + NUM")
	assert.NoError(t, err)
	assert.Equal(t, []int{48, '+', 48}, codes)
	// runs of character literals decompose rune by rune
	codes, err = TokenizeLine(g, "++")
	assert.NoError(t, err)
	assert.Equal(t, []int{'+', '+'}, codes)
	_, err = TokenizeLine(g, "nonsense")
	assert.Error(t, err)
}
