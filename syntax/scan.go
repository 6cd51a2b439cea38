/*
Package syntax implements the textual grammar description front-end.

A description consists of terminal declarations, followed by rules:

    NUM = 48; PLUS = 43
    E : E PLUS E  # Add(0 2)
      | NUM      # 0
      ;

Terminal declarations are `NAME [= code]`, separated by whitespace or
semicolons; without a code one is assigned automatically. Each rule lists
alternatives separated by '|', each alternative a sequence of symbol
names and character literals, optionally followed by a translation clause
`# [number | - | ident [cost] ( positions )]`. Character literals carry
the code of the rune they contain. The reserved terminal `error` marks
recovery points.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.
*/
package syntax

import (
	"fmt"

	"github.com/npillmayer/schuko/tracing"
	"github.com/timtadh/lexmachine"
	"github.com/timtadh/lexmachine/machines"

	"github.com/earley-go/yaep/grammar"
)

// tracer traces with key 'yaep.syntax'.
func tracer() tracing.Trace {
	return tracing.Select("yaep.syntax")
}

// Token kinds of the description language.
const (
	tIdent = iota
	tNumber
	tChar
	tColon
	tSemi
	tPipe
	tHash
	tLParen
	tRParen
	tEq
	tDash
	tEOF
)

type token struct {
	kind      int
	text      string
	line, col int
}

func (t token) String() string {
	return fmt.Sprintf("%q@%d:%d", t.text, t.line, t.col)
}

// lexer is the compiled description scanner, built once.
var lexer *lexmachine.Lexer

func init() {
	lexer = lexmachine.NewLexer()
	skip := func(*lexmachine.Scanner, *machines.Match) (interface{}, error) {
		return nil, nil
	}
	mk := func(kind int) lexmachine.Action {
		return func(s *lexmachine.Scanner, m *machines.Match) (interface{}, error) {
			return token{
				kind: kind,
				text: string(m.Bytes),
				line: m.StartLine,
				col:  m.StartColumn,
			}, nil
		}
	}
	lexer.Add([]byte(`( |\t|\n|\r)+`), skip)
	lexer.Add([]byte(`/\*([^*]|\*+[^*/])*\*+/`), skip)
	lexer.Add([]byte(`[a-zA-Z_][a-zA-Z0-9_]*`), mk(tIdent))
	lexer.Add([]byte(`[0-9]+`), mk(tNumber))
	lexer.Add([]byte(`'(\\.|[^'\\])'`), mk(tChar))
	lexer.Add([]byte(`:`), mk(tColon))
	lexer.Add([]byte(`;`), mk(tSemi))
	lexer.Add([]byte(`\|`), mk(tPipe))
	lexer.Add([]byte(`#`), mk(tHash))
	lexer.Add([]byte(`\(`), mk(tLParen))
	lexer.Add([]byte(`\)`), mk(tRParen))
	lexer.Add([]byte(`=`), mk(tEq))
	lexer.Add([]byte(`-`), mk(tDash))
	if err := lexer.Compile(); err != nil {
		panic(fmt.Sprintf("cannot compile description scanner: %v", err))
	}
}

// scan tokenizes a grammar description.
func scan(src string) ([]token, error) {
	s, err := lexer.Scanner([]byte(src))
	if err != nil {
		return nil, grammar.NewError(grammar.ErrDescriptionSyntax, "scanner: %v", err)
	}
	var toks []token
	for tok, err, eof := s.Next(); !eof; tok, err, eof = s.Next() {
		if err != nil {
			if ue, ok := err.(*machines.UnconsumedInput); ok {
				return nil, grammar.NewError(grammar.ErrDescriptionSyntax,
					"line %d: unexpected input %q", ue.StartLine,
					string(ue.Text[ue.StartTC:ue.FailTC]))
			}
			return nil, grammar.NewError(grammar.ErrDescriptionSyntax, "%v", err)
		}
		if tok == nil {
			continue
		}
		toks = append(toks, tok.(token))
	}
	tracer().Debugf("description scanned into %d tokens", len(toks))
	return append(toks, token{kind: tEOF, text: "<eof>"}), nil
}

// charCode returns the rune code of a character literal token like 'a'
// or '\n'.
func charCode(text string) int {
	runes := []rune(text)
	body := runes[1 : len(runes)-1]
	if body[0] != '\\' {
		return int(body[0])
	}
	switch body[1] {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case 'r':
		return '\r'
	default:
		return int(body[1])
	}
}
