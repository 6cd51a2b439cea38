package syntax

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/earley-go/yaep/grammar"
)

// autoCodeBase is the first token code assigned to terminals declared
// without an explicit `= code`.
const autoCodeBase = 256

// Parse reads a grammar description and feeds it into the builder.
// Callers finish with b.Grammar().
func Parse(src string, b *grammar.Builder) error {
	if !utf8.ValidString(src) {
		return grammar.NewError(grammar.ErrInvalidUtf8, "grammar description is not valid UTF-8")
	}
	toks, err := scan(src)
	if err != nil {
		return err
	}
	p := &parser{toks: toks, b: b, used: make(map[int]bool), nextCode: autoCodeBase}
	return p.parse()
}

type parser struct {
	toks     []token
	pos      int
	b        *grammar.Builder
	used     map[int]bool
	nextCode int
}

func (p *parser) cur() token {
	return p.toks[p.pos]
}

func (p *parser) peek(i int) token {
	if p.pos+i >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+i]
}

func (p *parser) next() token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) fail(t token, format string, args ...interface{}) error {
	msg := "line %d col %d: " + format
	all := append([]interface{}{t.line, t.col}, args...)
	return grammar.NewError(grammar.ErrDescriptionSyntax, msg, all...)
}

func (p *parser) parse() error {
	if err := p.declarations(); err != nil {
		return err
	}
	for p.cur().kind == tIdent {
		if err := p.rule(); err != nil {
			return err
		}
	}
	if p.cur().kind != tEOF {
		return p.fail(p.cur(), "expected a rule, got %q", p.cur().text)
	}
	return nil
}

// declarations reads terminal declarations until a rule head (IDENT ':')
// comes up.
func (p *parser) declarations() error {
	for {
		switch {
		case p.cur().kind == tSemi:
			p.next()
		case p.cur().kind == tIdent && p.peek(1).kind != tColon:
			name := p.next()
			code := -1
			if p.cur().kind == tEq {
				p.next()
				if p.cur().kind != tNumber {
					return p.fail(p.cur(), "expected terminal code after '='")
				}
				n, _ := strconv.Atoi(p.next().text)
				code = n
			}
			if code < 0 {
				code = p.autoCode()
			}
			p.used[code] = true
			if _, err := p.b.Terminal(name.text, code); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

func (p *parser) autoCode() int {
	for p.used[p.nextCode] {
		p.nextCode++
	}
	return p.nextCode
}

// rule reads `lhs : alt | alt | ... ;`.
func (p *parser) rule() error {
	lhs := p.next()
	if p.cur().kind != tColon {
		return p.fail(p.cur(), "expected ':' after rule head %q", lhs.text)
	}
	p.next()
	for {
		if err := p.alternative(lhs.text); err != nil {
			return err
		}
		if p.cur().kind == tPipe {
			p.next()
			continue
		}
		break
	}
	if p.cur().kind != tSemi {
		return p.fail(p.cur(), "expected ';' after rule for %q", lhs.text)
	}
	p.next()
	return nil
}

// alternative reads one sequence of symbols plus its optional
// translation clause.
func (p *parser) alternative(lhs string) error {
	var rhs []string
	for {
		switch p.cur().kind {
		case tIdent:
			rhs = append(rhs, p.next().text)
			continue
		case tChar:
			t := p.next()
			if _, err := p.b.Terminal(t.text, charCode(t.text)); err != nil {
				return err
			}
			rhs = append(rhs, t.text)
			continue
		}
		break
	}
	tr, err := p.translation(lhs, len(rhs))
	if err != nil {
		return err
	}
	return p.b.AddRule(lhs, rhs, tr)
}

// translation reads the optional clause after '#'. Without a clause the
// rule gets the default translation: an abstract node named after the
// LHS covering every RHS position. A bare '#' passes through a single
// RHS symbol, or yields the empty translation otherwise.
func (p *parser) translation(lhs string, arity int) (grammar.Translation, error) {
	if p.cur().kind != tHash {
		args := make([]int, arity)
		for i := range args {
			args[i] = i
		}
		return grammar.Node(lhs, 0, args...), nil
	}
	p.next()
	switch p.cur().kind {
	case tNumber:
		n, _ := strconv.Atoi(p.next().text)
		return grammar.PassChild(n), nil
	case tDash:
		p.next()
		return grammar.Empty(), nil
	case tIdent:
		name := p.next().text
		cost := 0
		if p.cur().kind == tNumber {
			cost, _ = strconv.Atoi(p.next().text)
		}
		if p.cur().kind != tLParen {
			return grammar.Translation{}, p.fail(p.cur(),
				"expected '(' after abstract node %q", name)
		}
		p.next()
		var args []int
		for {
			if p.cur().kind == tNumber {
				n, _ := strconv.Atoi(p.next().text)
				args = append(args, n)
				continue
			}
			if p.cur().kind == tDash {
				p.next()
				args = append(args, grammar.NilSpot)
				continue
			}
			break
		}
		if p.cur().kind != tRParen {
			return grammar.Translation{}, p.fail(p.cur(),
				"expected ')' closing abstract node %q", name)
		}
		p.next()
		return grammar.Node(name, cost, args...), nil
	default:
		// bare '#'
		if arity == 1 {
			return grammar.PassChild(0), nil
		}
		return grammar.Empty(), nil
	}
}

// --- Input tokenization helper ---------------------------------------------

// TokenizeLine turns a whitespace-separated input line into token codes
// against a built grammar: fields name declared terminals, are character
// literals, or decompose rune by rune into character-literal terminals.
// Intended for interactive use, not as a scanner service.
func TokenizeLine(g *grammar.Grammar, line string) ([]int, error) {
	var codes []int
	for _, field := range strings.Fields(line) {
		if sym := g.Symbol(field); sym != nil && sym.IsTerminal() {
			codes = append(codes, sym.Code)
			continue
		}
		if strings.HasPrefix(field, "'") && strings.HasSuffix(field, "'") && len(field) >= 3 {
			if sym := g.Symbol(field); sym != nil && sym.IsTerminal() {
				codes = append(codes, sym.Code)
				continue
			}
		}
		ok := true
		var runeCodes []int
		for _, r := range field {
			lit := "'" + string(r) + "'"
			sym := g.Symbol(lit)
			if sym == nil || !sym.IsTerminal() {
				ok = false
				break
			}
			runeCodes = append(runeCodes, sym.Code)
		}
		if !ok {
			return nil, grammar.NewError(grammar.ErrInvalidTokenCode,
				"cannot tokenize %q against grammar %q", field, g.Name)
		}
		codes = append(codes, runeCodes...)
	}
	return codes, nil
}
