/*
Package grammar implements symbol and rule tables for context-free grammars,
together with the static analysis a chart parser needs: reachability,
derivability, nullability, FIRST/FOLLOW sets and precomputed lookahead
contexts.

Grammars are specified using a grammar builder object. Clients add rules,
consisting of non-terminal symbols and terminals. Terminals carry a token
code of type int. Grammars may contain epsilon-productions.

Example:

    b := grammar.NewBuilder("G")
    b.LHS("S").T("a", 'a').N("S").T("b", 'b').End()  // S  ->  a S b
    b.LHS("S").Epsilon()                             // S  ->
    g, err := b.Grammar()

Building the grammar freezes it and runs the analysis; a start rule
$start -> S $eof is injected automatically.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.
*/
package grammar

import (
	"github.com/emirpasic/gods/lists/arraylist"
	"github.com/emirpasic/gods/sets/treeset"
	"github.com/emirpasic/gods/utils"
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'yaep.grammar'.
func tracer() tracing.Trace {
	return tracing.Select("yaep.grammar")
}

// Reserved symbol names. Users may reference "error" in rules to mark
// recovery points, but must not declare any of these themselves.
const (
	StartName = "$start"
	EofName   = "$eof"
	ErrorName = "error"
)

// Token codes of the reserved terminals. User terminal codes are
// non-negative, so these can never collide.
const (
	EofCode      = -1 // end-of-input terminal $eof
	ErrorTokCode = -2 // reserved 'error' terminal
)

// --- Symbols ---------------------------------------------------------------

// Symbol is a terminal or nonterminal of a grammar. Symbols are interned:
// within one grammar, symbols of equal name are pointer-identical.
type Symbol struct {
	ID    int    // dense id, unique per grammar
	Name  string // printable representation, unique per kind
	Code  int    // token code, terminals only
	tindex int   // dense terminal index for bitsets, terminals only
	term  bool
	rules []*Rule // rules with this symbol as LHS, nonterminals only

	// analysis results, nonterminals only
	first      *TermSet
	follow     *TermSet
	accessible bool
	derivable  bool
	nullable   bool
}

// IsTerminal reports whether s is a terminal.
func (s *Symbol) IsTerminal() bool {
	return s.term
}

// TermIndex returns the dense terminal index of a terminal symbol.
func (s *Symbol) TermIndex() int {
	return s.tindex
}

// Rules returns all rules with s as their left-hand side.
func (s *Symbol) Rules() []*Rule {
	return s.rules
}

// IsNullable reports whether a nonterminal derives the empty string.
// Valid after analysis.
func (s *Symbol) IsNullable() bool {
	return s.nullable
}

func (s *Symbol) String() string {
	return s.Name
}

// --- Translations ----------------------------------------------------------

// NilSpot is the reserved translation position denoting the empty translation.
const NilSpot = -1

// TransKind selects between the translation variants of a rule.
type TransKind int

// Translation kinds.
const (
	TransNode  TransKind = iota // construct an abstract node
	TransChild                  // the i-th child is the whole translation
	TransEmpty                  // the translation is empty (Nil)
)

// Translation describes how a reduced rule projects into the translation
// DAG: either "take child i as the whole translation", the empty
// translation, or "construct an abstract node named Name with cost Cost and
// children drawn from the rhs positions in Args". An Args entry of NilSpot
// produces an empty child slot.
type Translation struct {
	Kind  TransKind
	Child int // rhs position, TransChild only
	Name  string
	Cost  int
	Args  []int
}

// PassChild returns a passthrough translation of rhs position i.
func PassChild(i int) Translation {
	return Translation{Kind: TransChild, Child: i}
}

// Empty returns the empty translation.
func Empty() Translation {
	return Translation{Kind: TransEmpty}
}

// Node returns an abstract-node translation.
func Node(name string, cost int, args ...int) Translation {
	return Translation{Kind: TransNode, Name: name, Cost: cost, Args: args}
}

// --- Rules -----------------------------------------------------------------

// Rule is a production of a grammar: an ordered (LHS, RHS, translation).
// The RHS may be empty.
type Rule struct {
	Serial int // ordinal number of this rule within the grammar
	LHS    *Symbol
	rhs    []*Symbol
	Transl Translation
}

// RHS returns the right-hand side symbols of the rule.
func (r *Rule) RHS() []*Symbol {
	return r.rhs
}

func (r *Rule) String() string {
	s := r.LHS.Name + " ::= ["
	for i, sym := range r.rhs {
		if i > 0 {
			s += " "
		}
		s += sym.Name
	}
	return s + "]"
}

// --- Grammar ---------------------------------------------------------------

// Grammar is a frozen set of symbols and rules. Create one with a Builder.
// After Builder.Grammar() returned successfully the grammar is analyzed and
// immutable; it may then be parsed against concurrently from one goroutine
// per grammar.
type Grammar struct {
	Name     string
	symbols  []*Symbol
	symmap   map[string]*Symbol
	terms    []*Symbol // dense terminal-index order
	codemap  map[int]*Symbol
	rules    []*Rule
	start    *Symbol // $start
	eof      *Symbol // $eof
	errterm  *Symbol // reserved 'error' terminal
	analysis *Analysis
}

// Symbol returns the symbol named name, or nil.
func (g *Grammar) Symbol(name string) *Symbol {
	return g.symmap[name]
}

// SymbolByID returns the symbol with dense id id.
func (g *Grammar) SymbolByID(id int) *Symbol {
	return g.symbols[id]
}

// SymbolCount returns the total number of symbols, including the
// reserved ones.
func (g *Grammar) SymbolCount() int {
	return len(g.symbols)
}

// Terminal returns the terminal with token code code, or nil. Reserved
// terminals are not found this way.
func (g *Grammar) Terminal(code int) *Symbol {
	return g.codemap[code]
}

// TermCount returns the size of the terminal alphabet, including $eof and
// the reserved 'error' terminal.
func (g *Grammar) TermCount() int {
	return len(g.terms)
}

// TerminalByIndex returns the terminal with dense terminal index i.
func (g *Grammar) TerminalByIndex(i int) *Symbol {
	return g.terms[i]
}

// Rule returns the rule with the given serial number.
func (g *Grammar) Rule(serial int) *Rule {
	return g.rules[serial]
}

// Rules returns all rules. Rule 0 is always $start -> S $eof.
func (g *Grammar) Rules() []*Rule {
	return g.rules
}

// Start returns the injected start symbol $start.
func (g *Grammar) Start() *Symbol {
	return g.start
}

// Eof returns the reserved end-of-input terminal.
func (g *Grammar) Eof() *Symbol {
	return g.eof
}

// ErrorTerminal returns the reserved 'error' terminal used to mark
// recovery points.
func (g *Grammar) ErrorTerminal() *Symbol {
	return g.errterm
}

// Analysis returns the grammar analysis computed when the grammar was
// frozen.
func (g *Grammar) Analysis() *Analysis {
	return g.analysis
}

// EachSymbol applies f to every symbol of the grammar, in id order.
func (g *Grammar) EachSymbol(f func(*Symbol)) {
	for _, sym := range g.symbols {
		f(sym)
	}
}

// Dump logs the grammar's rules to the tracer (debug level).
func (g *Grammar) Dump() {
	tracer().Debugf("grammar %q with %d rules:", g.Name, len(g.rules))
	for _, r := range g.rules {
		tracer().Debugf("%3d: %s", r.Serial, r)
	}
}

// --- Builder ---------------------------------------------------------------

// Builder collects terminals, nonterminals and rules and finally produces a
// frozen, analyzed Grammar. A Builder must not be reused after Grammar()
// has been called.
type Builder struct {
	name    string
	symmap  map[string]*Symbol
	symbols *arraylist.List // of *Symbol, in declaration order
	rules   *arraylist.List // of *Rule
	strict  bool
	errterm *Symbol
	err     error // first error; sticky
}

// NewBuilder creates a grammar builder. The reserved 'error' terminal is
// pre-declared.
func NewBuilder(name string) *Builder {
	b := &Builder{
		name:    name,
		symmap:  make(map[string]*Symbol),
		symbols: arraylist.New(),
		rules:   arraylist.New(),
	}
	b.errterm = &Symbol{Name: ErrorName, Code: ErrorTokCode, term: true}
	b.symmap[ErrorName] = b.errterm
	b.symbols.Add(b.errterm)
	return b
}

// Strict makes unreachable nonterminals an error instead of a warning.
func (b *Builder) Strict(on bool) *Builder {
	b.strict = on
	return b
}

func (b *Builder) fail(code ErrorCode, format string, args ...interface{}) error {
	e := newError(code, format, args...)
	if b.err == nil {
		b.err = e
	}
	return e
}

// Terminal declares a terminal with a token code. Re-declaring a terminal
// with the same code is a no-op; a conflicting code is an error.
func (b *Builder) Terminal(name string, code int) (*Symbol, error) {
	if name == StartName || name == EofName || name == ErrorName {
		return nil, b.fail(ErrReservedNameUse, "%q is a reserved name", name)
	}
	if code < 0 {
		return nil, b.fail(ErrNegativeTerminalCode, "terminal %q has negative code %d", name, code)
	}
	if sym, ok := b.symmap[name]; ok {
		if !sym.term {
			return nil, b.fail(ErrDuplicateTerminal, "%q already declared as nonterminal", name)
		}
		if sym.Code != code {
			return nil, b.fail(ErrDuplicateTerminalCode,
				"terminal %q re-declared with code %d, was %d", name, code, sym.Code)
		}
		return sym, nil
	}
	for _, other := range b.symmap {
		if other.term && other.Code == code && other.Code >= 0 {
			return nil, b.fail(ErrDuplicateTerminalCode,
				"terminals %q and %q share code %d", other.Name, name, code)
		}
	}
	sym := &Symbol{Name: name, Code: code, term: true}
	b.symmap[name] = sym
	b.symbols.Add(sym)
	return sym, nil
}

// Nonterminal declares (or finds) a nonterminal.
func (b *Builder) Nonterminal(name string) (*Symbol, error) {
	if name == StartName || name == EofName || name == ErrorName {
		return nil, b.fail(ErrReservedNameUse, "%q is a reserved name", name)
	}
	if sym, ok := b.symmap[name]; ok {
		if sym.term {
			return nil, b.fail(ErrDuplicateTerminal, "%q already declared as terminal", name)
		}
		return sym, nil
	}
	sym := &Symbol{Name: name}
	b.symmap[name] = sym
	b.symbols.Add(sym)
	return sym, nil
}

// AddRule adds a rule for lhs with the given right-hand side and
// translation. Unknown rhs names are implicitly nonterminals.
func (b *Builder) AddRule(lhs string, rhs []string, tr Translation) error {
	if s, ok := b.symmap[lhs]; ok && s.term {
		return b.fail(ErrTerminalOnLhs, "terminal %q on left-hand side", lhs)
	}
	lsym, err := b.Nonterminal(lhs)
	if err != nil {
		return err
	}
	rsyms := make([]*Symbol, len(rhs))
	for i, name := range rhs {
		if sym, ok := b.symmap[name]; ok {
			rsyms[i] = sym
			continue
		}
		sym, err := b.Nonterminal(name)
		if err != nil {
			return err
		}
		rsyms[i] = sym
	}
	return b.addRule(lsym, rsyms, tr)
}

func (b *Builder) addRule(lhs *Symbol, rhs []*Symbol, tr Translation) error {
	if lhs.term {
		return b.fail(ErrTerminalOnLhs, "terminal %q on left-hand side", lhs.Name)
	}
	if err := b.checkTranslation(len(rhs), &tr); err != nil {
		return err
	}
	rule := &Rule{LHS: lhs, rhs: rhs, Transl: tr}
	b.rules.Add(rule)
	return nil
}

func (b *Builder) checkTranslation(arity int, tr *Translation) error {
	switch tr.Kind {
	case TransEmpty:
		return nil
	case TransChild:
		if tr.Child == NilSpot {
			tr.Kind = TransEmpty
			return nil
		}
		if tr.Child < 0 || tr.Child >= arity {
			return b.fail(ErrBadTranslationIndex,
				"translation index %d out of range 0..%d", tr.Child, arity-1)
		}
		return nil
	case TransNode:
		if tr.Cost < 0 {
			return b.fail(ErrNegativeCost, "abstract node %q has negative cost %d", tr.Name, tr.Cost)
		}
		if tr.Name == "" {
			// null node name: at most one child position is allowed
			if len(tr.Args) > 1 {
				return b.fail(ErrBadTranslation,
					"translation without node name must have at most one position")
			}
			if len(tr.Args) == 0 || tr.Args[0] == NilSpot {
				tr.Kind = TransEmpty
			} else {
				tr.Kind = TransChild
				tr.Child = tr.Args[0]
			}
			return b.checkTranslation(arity, tr)
		}
		for _, p := range tr.Args {
			if p == NilSpot {
				continue
			}
			if p < 0 || p >= arity {
				return b.fail(ErrBadTranslationIndex,
					"translation index %d out of range 0..%d", p, arity-1)
			}
		}
		return nil
	}
	return b.fail(ErrBadTranslation, "unknown translation kind %d", tr.Kind)
}

// Grammar freezes the builder into an analyzed grammar. The start rule
// $start -> S $eof is injected, S being the first-declared nonterminal.
func (b *Builder) Grammar() (*Grammar, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.rules.Size() == 0 {
		return nil, newError(ErrNoRules, "grammar %q has no rules", b.name)
	}
	g := &Grammar{
		Name:    b.name,
		symmap:  b.symmap,
		codemap: make(map[int]*Symbol),
		errterm: b.errterm,
	}
	// reserved symbols first
	g.start = &Symbol{Name: StartName}
	g.eof = &Symbol{Name: EofName, Code: EofCode, term: true}
	g.symmap[StartName] = g.start
	g.symmap[EofName] = g.eof

	// the user's first-declared nonterminal becomes the axiom
	var axiom *Symbol
	it := b.symbols.Iterator()
	for it.Next() {
		if sym := it.Value().(*Symbol); !sym.term {
			axiom = sym
			break
		}
	}
	if axiom == nil {
		return nil, newError(ErrNoRules, "grammar %q declares no nonterminal", b.name)
	}

	// dense symbol ids: $start, $eof, then declaration order
	g.symbols = append(g.symbols, g.start, g.eof)
	it = b.symbols.Iterator()
	for it.Next() {
		g.symbols = append(g.symbols, it.Value().(*Symbol))
	}
	for id, sym := range g.symbols {
		sym.ID = id
	}

	// dense terminal indices; keep an ordered registry for stable iteration
	ordered := treeset.NewWith(func(a, c interface{}) int {
		return utils.IntComparator(a.(*Symbol).ID, c.(*Symbol).ID)
	})
	for _, sym := range g.symbols {
		if sym.term {
			ordered.Add(sym)
		}
	}
	tit := ordered.Iterator()
	for tit.Next() {
		sym := tit.Value().(*Symbol)
		sym.tindex = len(g.terms)
		g.terms = append(g.terms, sym)
		if sym.Code >= 0 {
			g.codemap[sym.Code] = sym
		}
	}

	// inject rule 0: $start -> axiom $eof
	startRule := &Rule{
		LHS:    g.start,
		rhs:    []*Symbol{axiom, g.eof},
		Transl: PassChild(0),
	}
	g.rules = append(g.rules, startRule)
	rit := b.rules.Iterator()
	for rit.Next() {
		g.rules = append(g.rules, rit.Value().(*Rule))
	}
	for serial, r := range g.rules {
		r.Serial = serial
		r.LHS.rules = append(r.LHS.rules, r)
	}

	tracer().Infof("grammar %q: %d symbols, %d terminals, %d rules",
		g.Name, len(g.symbols), len(g.terms), len(g.rules))
	a, err := Analyze(g, b.strict)
	if err != nil {
		return nil, err
	}
	g.analysis = a
	return g, nil
}

// --- Fluent rule construction ----------------------------------------------

// RuleBuilder adds a single rule symbol by symbol. Create one with
// Builder.LHS(), finish with End() or Epsilon().
type RuleBuilder struct {
	b    *Builder
	lhs  *Symbol
	rhs  []*Symbol
	tr   *Translation
}

// LHS starts a new rule for the named nonterminal.
func (b *Builder) LHS(name string) *RuleBuilder {
	sym, err := b.Nonterminal(name)
	if err != nil {
		tracer().Errorf("LHS %q: %v", name, err)
	}
	return &RuleBuilder{b: b, lhs: sym}
}

// N appends a nonterminal to the rule's RHS.
func (rb *RuleBuilder) N(name string) *RuleBuilder {
	sym, err := rb.b.Nonterminal(name)
	if err != nil {
		tracer().Errorf("N %q: %v", name, err)
		return rb
	}
	rb.rhs = append(rb.rhs, sym)
	return rb
}

// T appends a terminal with the given token code to the rule's RHS.
func (rb *RuleBuilder) T(name string, code int) *RuleBuilder {
	sym, err := rb.b.Terminal(name, code)
	if err != nil {
		tracer().Errorf("T %q: %v", name, err)
		return rb
	}
	rb.rhs = append(rb.rhs, sym)
	return rb
}

// Err appends the reserved 'error' terminal, marking a recovery point.
func (rb *RuleBuilder) Err() *RuleBuilder {
	rb.rhs = append(rb.rhs, rb.b.errterm)
	return rb
}

// Transl sets the rule's translation. Without it the rule defaults to an
// abstract node named after the LHS spanning every RHS position.
func (rb *RuleBuilder) Transl(tr Translation) *RuleBuilder {
	rb.tr = &tr
	return rb
}

// End finishes the rule.
func (rb *RuleBuilder) End() error {
	if rb.lhs == nil {
		return rb.b.err
	}
	tr := rb.defaultTranslation()
	return rb.b.addRule(rb.lhs, rb.rhs, tr)
}

// Epsilon finishes the rule with an empty right-hand side.
func (rb *RuleBuilder) Epsilon() error {
	rb.rhs = nil
	return rb.End()
}

func (rb *RuleBuilder) defaultTranslation() Translation {
	if rb.tr != nil {
		return *rb.tr
	}
	args := make([]int, len(rb.rhs))
	for i := range args {
		args[i] = i
	}
	return Node(rb.lhs.Name, 0, args...)
}

// --- Callback ingestion ----------------------------------------------------

// TerminalReader enumerates terminal declarations. It returns ok=false when
// the enumeration is exhausted.
type TerminalReader func() (name string, code int, ok bool)

// RuleReader enumerates rule declarations. Translation indices reference
// rhs positions; NilSpot means "empty translation". An empty anode name
// requires at most one index. It returns ok=false when exhausted.
type RuleReader func() (lhs string, rhs []string, anode string, cost int, transl []int, ok bool)

// Load populates the builder from enumerating callbacks, the programmatic
// alternative to the textual grammar description.
func (b *Builder) Load(terms TerminalReader, rules RuleReader) error {
	if terms != nil {
		for {
			name, code, ok := terms()
			if !ok {
				break
			}
			if _, err := b.Terminal(name, code); err != nil {
				return err
			}
		}
	}
	if rules == nil {
		return nil
	}
	for {
		lhs, rhs, anode, cost, transl, ok := rules()
		if !ok {
			break
		}
		var tr Translation
		switch {
		case anode != "":
			tr = Node(anode, cost, transl...)
		case len(transl) == 0:
			tr = Empty()
		case len(transl) == 1:
			tr = PassChild(transl[0])
		default:
			return b.fail(ErrBadTranslation,
				"rule for %q: translation without node name must have at most one position", lhs)
		}
		if err := b.AddRule(lhs, rhs, tr); err != nil {
			return err
		}
	}
	return nil
}
