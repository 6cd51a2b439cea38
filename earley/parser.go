package earley

import (
	"fmt"

	"github.com/earley-go/yaep/grammar"
)

// Token is one unit of input: a terminal code plus an opaque attribute
// which travels unchanged onto the Term nodes of the translation.
type Token struct {
	Code int
	Attr interface{}
}

// TokenReader delivers the input token stream. Next is called once per
// position, strictly monotonically, except that during error recovery the
// parser may peek further into the stream; peeked tokens are buffered and
// replayed internally.
type TokenReader interface {
	Next() (tok Token, ok bool)
}

// SyntaxErrorHandler is called on syntax errors. errPos is the position of
// the offending token, errTok the token itself. With error recovery
// enabled, firstIgnored/firstRecovered delimit the ignored token range;
// without it both are -1.
type SyntaxErrorHandler func(errPos int, errTok Token, firstIgnored, firstRecovered int)

// Config collects the options the driver honors. The zero value means: no
// lookahead, no Leo, no error recovery.
type Config struct {
	Lookahead     int  // 0 = none, 1 = static contexts, 2 = dynamic contexts
	Leo           bool // Leo right-recursion optimization
	Recovery      bool // bounded error recovery
	RecoveryMatch int  // consecutive scans required to accept a recovery
}

// DefaultRecoveryMatch is the default number of consecutive successful
// scans required to accept an error recovery.
const DefaultRecoveryMatch = 3

// Clamp normalizes the configuration: lookahead is forced into 0..2 and
// the recovery match count defaulted.
func (c Config) Clamp() Config {
	if c.Lookahead < 0 {
		c.Lookahead = 0
	}
	if c.Lookahead > 2 {
		c.Lookahead = 2
	}
	if c.RecoveryMatch <= 0 {
		c.RecoveryMatch = DefaultRecoveryMatch
	}
	return c
}

// ParseError reports a failed parse.
type ParseError struct {
	Code grammar.ErrorCode
	Pos  int
	Tok  Token
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s at token %d (code %d)", e.Code, e.Pos, e.Tok.Code)
}

// Parser drives the Earley state machine. Create one with NewParser, run
// it once with Run, then hand it to the translation builder. A Parser is
// single-use: all interning tables are per-parse state.
type Parser struct {
	analysis *grammar.Analysis
	g        *grammar.Grammar
	cfg      Config
	Error    SyntaxErrorHandler

	sits   *sitTable
	cores  *coreTable
	sets   *setTable
	ctxs   *ctxPool
	list   []*parseSet
	leo    []map[int]leoItem // per set; entries nil when Leo is off
	tokens []Token           // tokens[i] labels the transition i -> i+1
	reader *lookahead
	accept bool
}

// NewParser creates a parser for an analyzed grammar.
func NewParser(a *grammar.Analysis, cfg Config) *Parser {
	sits := newSitTable(a)
	return &Parser{
		analysis: a,
		g:        a.Grammar(),
		cfg:      cfg.Clamp(),
		sits:     sits,
		cores:    newCoreTable(sits),
		sets:     newSetTable(),
		ctxs:     newCtxPool(a),
	}
}

// Run consumes the full token stream and builds the parse list. It
// returns nil iff the input was accepted (possibly after recovery).
func (p *Parser) Run(reader TokenReader) error {
	p.reader = newLookahead(reader)
	p.list = p.list[:0]
	p.leo = p.leo[:0]
	p.tokens = p.tokens[:0]
	p.accept = false

	sb := newSetBuilder(0)
	sb.add(p.sits.intern(p.g.Rule(0), 0, 0), 0)
	p.closure(sb, p.lookaheadTerm())
	p.push(sb)

	for {
		i := len(p.list) - 1
		tok := p.reader.peek(0)
		term := p.terminalOf(tok)
		if term == nil {
			return &ParseError{Code: grammar.ErrInvalidTokenCode, Pos: i, Tok: tok}
		}
		next := p.scan(p.list[i], i, term)
		if next.empty() {
			if p.cfg.Recovery && p.recover(i, tok) {
				continue
			}
			if p.Error != nil && !p.cfg.Recovery {
				p.Error(i, tok, -1, -1)
			}
			return &ParseError{Code: grammar.ErrSyntaxError, Pos: i, Tok: tok}
		}
		p.reader.consume(1)
		p.tokens = append(p.tokens, tok)
		p.closure(next, p.lookaheadTerm())
		p.push(next)
		if term == p.g.Eof() {
			break
		}
	}
	if !p.checkAccept() {
		last := len(p.list) - 1
		if p.Error != nil {
			p.Error(last, Token{Code: grammar.EofCode}, -1, -1)
		}
		return &ParseError{Code: grammar.ErrSyntaxError, Pos: last, Tok: Token{Code: grammar.EofCode}}
	}
	p.accept = true
	return nil
}

// terminalOf maps a token to its terminal symbol, or nil for unknown
// codes. The end-of-input sentinel maps to $eof.
func (p *Parser) terminalOf(tok Token) *grammar.Symbol {
	if tok.Code == grammar.EofCode {
		return p.g.Eof()
	}
	return p.g.Terminal(tok.Code)
}

// push finalizes a builder into the parse list.
func (p *Parser) push(sb *setBuilder) {
	ps := sb.finalize(p.cores, p.sets)
	p.list = append(p.list, ps)
	if p.cfg.Leo {
		p.leo = append(p.leo, p.buildLeo(ps, len(p.list)-1))
	} else {
		p.leo = append(p.leo, nil)
	}
	dumpSet(p.sits, ps, len(p.list)-1)
}

// --- Scanner ---------------------------------------------------------------

// scan advances every situation of ps expecting terminal term into a new
// builder for position pos+1. Situations are grouped by next-terminal in
// the core's transition table, so the whole batch moves as a block
// (Aycock-Horspool batching).
func (p *Parser) scan(ps *parseSet, pos int, term *grammar.Symbol) *setBuilder {
	next := newSetBuilder(pos + 1)
	for _, itemPos := range ps.core.transitions[term.ID] {
		sit := p.sits.get(ps.core.sidAt(itemPos))
		origin := ps.originAt(itemPos, pos)
		next.add(p.sits.advance(sit, p.cfg.Lookahead), origin)
	}
	return next
}

// --- Closure: Completer and Predictor --------------------------------------

// closure runs prediction and completion over sb to fixpoint. The item
// slice doubles as the work queue; appended items are processed in turn.
// la is the terminal index of the upcoming token, -1 for "don't filter".
func (p *Parser) closure(sb *setBuilder, la int) {
	for n := 0; n < len(sb.items); n++ {
		it := sb.items[n]
		if it.sit.completed() {
			p.complete(sb, it, la)
			continue
		}
		if B := it.sit.next; !B.IsTerminal() {
			p.predict(sb, it, B, la)
		}
	}
}

// lookaheadTerm returns the terminal index of the upcoming token, or -1
// when lookahead filtering is off or the token is unknown.
func (p *Parser) lookaheadTerm() int {
	if p.cfg.Lookahead == 0 {
		return -1
	}
	term := p.terminalOf(p.reader.peek(0))
	if term == nil {
		return -1
	}
	return term.TermIndex()
}

// predict adds [C -> .beta] for every rule of C, filtered by lookahead:
// a prediction whose FIRST(rhs · context) misses the upcoming terminal is
// suppressed, except that with error recovery on a rule that can begin
// with 'error' is always kept as a recovery candidate. If C is nullable the waiting situation is advanced
// immediately (Aycock-Horspool), which keeps the completer sound for
// empty derivations inside the set under construction.
func (p *Parser) predict(sb *setBuilder, it item, C *grammar.Symbol, la int) {
	for _, r := range C.Rules() {
		ctx := 0
		switch p.cfg.Lookahead {
		case 1:
			ctx = p.analysis.StaticContext(r, 0)
		case 2:
			ctx = p.ctxs.follow(it.sit)
		}
		if la >= 0 {
			ts := p.ctxs.ruleFirst(r, ctx)
			keep := p.cfg.Recovery && ts != nil && ts.Test(p.g.ErrorTerminal().TermIndex())
			if ts != nil && !ts.Test(la) && !keep {
				continue
			}
		}
		sb.add(p.sits.intern(r, 0, ctx), sb.pos)
	}
	if p.analysis.DerivesEpsilon(C) {
		sb.add(p.sits.advance(it.sit, p.cfg.Lookahead), it.origin)
	}
}

// complete advances, for a completed situation [A -> alpha ., j], every
// situation of set j waiting on A. Completions cascade because advanced
// items re-enter the work queue. A Leo item at set j short-circuits the
// whole deterministic chain.
func (p *Parser) complete(sb *setBuilder, it item, la int) {
	A := it.sit.rule.LHS
	j := it.origin
	if p.cfg.Lookahead == 2 && it.sit.ctx != 0 && la >= 0 {
		if ts := p.ctxs.get(it.sit.ctx); ts != nil && !ts.Test(la) {
			return
		}
	}
	if p.cfg.Leo && j < len(p.leo) && p.leo[j] != nil {
		if l, ok := p.leo[j][A.ID]; ok {
			sb.add(l.top, l.topOrigin)
			return
		}
	}
	if j == sb.pos {
		// waiters live in the set under construction
		for n := 0; n < len(sb.items); n++ {
			w := sb.items[n]
			if w.sit.next == A {
				sb.add(p.sits.advance(w.sit, p.cfg.Lookahead), w.origin)
			}
		}
		return
	}
	ps := p.list[j]
	for _, itemPos := range ps.core.transitions[A.ID] {
		sit := p.sits.get(ps.core.sidAt(itemPos))
		origin := ps.originAt(itemPos, j)
		sb.add(p.sits.advance(sit, p.cfg.Lookahead), origin)
	}
}

// --- Acceptance ------------------------------------------------------------

// checkAccept searches the final set for $start -> S $eof . with origin 0.
func (p *Parser) checkAccept() bool {
	last := p.list[len(p.list)-1]
	found := false
	last.each(p.sits, len(p.list)-1, func(s *situation, origin int) {
		if s.rule.Serial == 0 && s.completed() && origin == 0 {
			found = true
		}
	})
	return found
}

// --- Result surface (consumed by the translation builder) ------------------

// Accepted reports whether the last Run accepted its input.
func (p *Parser) Accepted() bool {
	return p.accept
}

// SetCount returns the length of the parse list.
func (p *Parser) SetCount() int {
	return len(p.list)
}

// TokenAt returns the token consumed between set pos and pos+1.
func (p *Parser) TokenAt(pos int) Token {
	return p.tokens[pos]
}

// EachItem iterates over the items of set pos.
func (p *Parser) EachItem(pos int, f func(rule *grammar.Rule, dot, origin int)) {
	p.list[pos].each(p.sits, pos, func(s *situation, origin int) {
		f(s.rule, s.dot, origin)
	})
}

// Grammar returns the grammar the parser ran against.
func (p *Parser) Grammar() *grammar.Grammar {
	return p.g
}

// Release bulk-frees the per-parse scratch tables. Call it after the
// translation has been built; the parser is unusable afterwards.
func (p *Parser) Release() {
	p.list = nil
	p.leo = nil
	p.tokens = nil
	p.cores.ints.FreeAll()
}
