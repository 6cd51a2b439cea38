/*
Package yaep is a general context-free parser: given a grammar (possibly
ambiguous, possibly with empty productions) and a token stream, it
produces either a single translation tree, all translation trees as a
shared packed forest, and on syntax errors performs bounded error
recovery that minimizes ignored input.

The engine is an Earley recognizer with optional lookahead filtering and
the Leo right-recursion optimization, followed by a translation builder
that projects the parse sets into a DAG of translation nodes.

Typical usage:

    g := yaep.NewGrammar("expr")
    err := g.LoadDescription(`
        NUM = 48;
        E : E '+' E  # Add(0 2)
          | NUM      # 0
        ;`)
    ...
    root, ambiguous, err := g.Parse(reader)

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.
*/
package yaep

import (
	"unicode/utf8"

	"github.com/earley-go/yaep/earley"
	"github.com/earley-go/yaep/forest"
	"github.com/earley-go/yaep/grammar"
	"github.com/earley-go/yaep/syntax"
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'yaep'.
func tracer() tracing.Trace {
	return tracing.Select("yaep")
}

// Code identifies an error condition; see the grammar package for the
// full taxonomy.
type Code = grammar.ErrorCode

// Frequently tested codes, re-exported for convenience.
const (
	NoError        = grammar.NoError
	ErrSyntaxError = grammar.ErrSyntaxError
)

// Token re-exports the parser's token type: a terminal code plus an
// opaque attribute.
type Token = earley.Token

// TokenReader delivers the input token stream; see earley.TokenReader.
type TokenReader = earley.TokenReader

// SyntaxErrorHandler is called on syntax errors; see
// earley.SyntaxErrorHandler.
type SyntaxErrorHandler = earley.SyntaxErrorHandler

// maxErrMsg caps the stored error message; longer messages are truncated
// at a rune boundary and marked with an ellipsis.
const maxErrMsg = 4096

// Grammar is the public handle for one grammar: populated once, analyzed
// and frozen, then parsed against any number of times. A Grammar confines
// all mutable state (options, error fields) to itself, so distinct
// Grammars may be used concurrently from different goroutines.
type Grammar struct {
	name    string
	g       *grammar.Grammar
	Options Options
	// OnSyntaxError, if set, is invoked for syntax errors during Parse.
	OnSyntaxError SyntaxErrorHandler

	errCode Code
	errMsg  string
}

// NewGrammar creates an empty grammar handle with default options.
func NewGrammar(name string) *Grammar {
	return &Grammar{
		name:    name,
		Options: DefaultOptions(),
	}
}

// Load populates the grammar from enumerating callbacks: first every
// terminal declaration, then every rule. The grammar is analyzed and
// frozen before Load returns.
func (yg *Grammar) Load(terms grammar.TerminalReader, rules grammar.RuleReader) error {
	b := grammar.NewBuilder(yg.name)
	if err := b.Load(terms, rules); err != nil {
		return yg.setErr(err)
	}
	g, err := b.Grammar()
	if err != nil {
		return yg.setErr(err)
	}
	yg.g = g
	yg.clearErr()
	return nil
}

// LoadDescription populates the grammar from a textual grammar
// description (see package syntax for the language).
func (yg *Grammar) LoadDescription(src string) error {
	if !utf8.ValidString(src) {
		return yg.setErr(grammar.NewError(grammar.ErrInvalidUtf8,
			"grammar description is not valid UTF-8"))
	}
	b := grammar.NewBuilder(yg.name)
	if err := syntax.Parse(src, b); err != nil {
		return yg.setErr(err)
	}
	g, err := b.Grammar()
	if err != nil {
		return yg.setErr(err)
	}
	yg.g = g
	yg.clearErr()
	return nil
}

// Use installs an already built grammar.
func (yg *Grammar) Use(g *grammar.Grammar) {
	yg.g = g
	yg.clearErr()
}

// Tables returns the underlying symbol and rule tables, or nil before a
// successful Load.
func (yg *Grammar) Tables() *grammar.Grammar {
	return yg.g
}

// Parse consumes the full token stream and returns the root of the
// translation DAG plus the ambiguity flag. Error conditions are also
// recorded in the grammar's error fields (ErrCode, ErrMessage).
func (yg *Grammar) Parse(reader TokenReader) (root *forest.Node, ambiguous bool, err error) {
	if yg.g == nil {
		return nil, false, yg.setErr(grammar.NewError(grammar.ErrUndefinedGrammar,
			"parse attempted before grammar population"))
	}
	opts := yg.Options
	cfg := earley.Config{
		Lookahead:     opts.LookaheadLevel,
		Leo:           true,
		Recovery:      opts.ErrorRecovery,
		RecoveryMatch: opts.RecoveryMatch,
	}
	if opts.DebugLevel > 0 {
		tracer().Infof("parse with %q: lookahead=%d recovery=%v", yg.name,
			cfg.Clamp().Lookahead, cfg.Recovery)
	}
	p := earley.NewParser(yg.g.Analysis(), cfg)
	p.Error = yg.OnSyntaxError
	if err := p.Run(reader); err != nil {
		return nil, false, yg.setErr(err)
	}
	root, ambiguous, err = forest.Build(p, forest.Config{
		OneParse: opts.OneParse,
		Cost:     opts.Cost,
	}, opts.TreeArena)
	p.Release()
	if err != nil {
		return nil, false, yg.setErr(err)
	}
	yg.clearErr()
	return root, ambiguous, nil
}

// FreeTree releases a translation tree. termFree, if non-nil, is called
// once for every Term node so callers can release attached attributes.
func FreeTree(root *forest.Node, termFree func(code int, attr interface{})) {
	forest.Free(root, termFree)
}

// ErrCode returns the error code of the last failed operation, or
// NoError.
func (yg *Grammar) ErrCode() Code {
	return yg.errCode
}

// ErrMessage returns the message of the last failed operation.
func (yg *Grammar) ErrMessage() string {
	return yg.errMsg
}

func (yg *Grammar) clearErr() {
	yg.errCode = NoError
	yg.errMsg = ""
}

func (yg *Grammar) setErr(err error) error {
	switch e := err.(type) {
	case *grammar.Error:
		yg.errCode = e.Code
	case *earley.ParseError:
		yg.errCode = e.Code
	default:
		yg.errCode = ErrSyntaxError
	}
	yg.errMsg = truncate(err.Error(), maxErrMsg)
	tracer().Errorf("%s: %s", yg.errCode, yg.errMsg)
	return err
}

// truncate shortens s to at most max bytes, cutting at a rune boundary
// and appending an ellipsis when something was dropped.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "…"
}
