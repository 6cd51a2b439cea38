package earley

import (
	"github.com/earley-go/yaep/grammar"
)

// lookahead wraps a TokenReader with an unbounded peek buffer. The error
// recovery module peeks ahead to validate resynchronization; tokens
// buffered this way are replayed to the main driver afterwards, so the
// underlying reader still sees exactly one Next call per position.
type lookahead struct {
	r    TokenReader
	buf  []Token
	done bool
}

func newLookahead(r TokenReader) *lookahead {
	return &lookahead{r: r}
}

// peek returns the token j positions ahead of the cursor. Beyond the end
// of input it returns the end-of-input sentinel.
func (l *lookahead) peek(j int) Token {
	for !l.done && len(l.buf) <= j {
		tok, ok := l.r.Next()
		if !ok {
			l.done = true
			break
		}
		l.buf = append(l.buf, tok)
	}
	if j < len(l.buf) {
		return l.buf[j]
	}
	return Token{Code: grammar.EofCode}
}

// consume drops n tokens from the front of the buffer.
func (l *lookahead) consume(n int) {
	if n <= 0 {
		return
	}
	l.peek(n - 1)
	if n > len(l.buf) {
		n = len(l.buf)
	}
	l.buf = l.buf[n:]
}

// TokensFromSlice adapts a fixed token slice to the TokenReader contract.
func TokensFromSlice(toks []Token) TokenReader {
	return &sliceReader{toks: toks}
}

type sliceReader struct {
	toks []Token
	pos  int
}

func (r *sliceReader) Next() (Token, bool) {
	if r.pos >= len(r.toks) {
		return Token{}, false
	}
	tok := r.toks[r.pos]
	r.pos++
	return tok, true
}

// TokensFromCodes adapts a fixed code slice (no attributes) to the
// TokenReader contract.
func TokensFromCodes(codes []int) TokenReader {
	toks := make([]Token, len(codes))
	for i, c := range codes {
		toks[i] = Token{Code: c}
	}
	return TokensFromSlice(toks)
}
