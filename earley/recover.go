package earley

import (
	"sort"

	"github.com/earley-go/yaep/grammar"
)

// Error recovery by bounded exploratory re-parsing. When a scan produces
// no successor set, the driver searches for a way to resume: a situation
// waiting on the reserved 'error' terminal is advanced over a synthetic
// error token, some prefix of the remaining input is ignored, and the
// resumption must then survive a number of consecutive scans before it is
// accepted. Among all successful resumptions the one ignoring the fewest
// tokens wins.

// maxRecoveryTrials bounds the exploration: candidates x prefix lengths.
const maxRecoveryTrials = 256

// recover attempts to resynchronize after a failed scan of the token at
// position errPos. On success the parse list is rewound to the recovery
// point, a synthetic error transition is appended, the ignored tokens are
// consumed, and true is returned; the main loop then resumes scanning.
func (p *Parser) recover(errPos int, errTok Token) bool {
	tracer().Infof("syntax error at %d, starting recovery", errPos)
	any := false
	for h := errPos; h >= 0 && !any; h-- {
		any = len(p.candidates(h)) > 0
	}
	if !any {
		tracer().Infof("no recovery candidates, giving up")
		return false
	}
	trials := 0
	for k := 0; ; k++ {
		if k > 0 && p.reader.peek(k-1).Code == grammar.EofCode {
			break // cannot ignore past the end of input
		}
		for h := errPos; h >= 0; h-- {
			for _, c := range p.candidates(h) {
				trials++
				if trials > maxRecoveryTrials {
					tracer().Infof("recovery abandoned after %d trials", trials-1)
					return false
				}
				if p.tryRecovery(h, c, k) {
					p.commitRecovery(h, c, k, errPos, errTok)
					return true
				}
			}
		}
	}
	return false
}

// candidates returns the items of set h waiting on the 'error' terminal,
// ordered by origin, then rule serial.
func (p *Parser) candidates(h int) []item {
	errterm := p.g.ErrorTerminal()
	var cands []item
	p.list[h].each(p.sits, h, func(s *situation, origin int) {
		if s.next == errterm {
			cands = append(cands, item{s, origin})
		}
	})
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].origin != cands[j].origin {
			return cands[i].origin < cands[j].origin
		}
		return cands[i].sit.rule.Serial < cands[j].sit.rule.Serial
	})
	return cands
}

// tryRecovery re-parses exploratively: candidate c of set h is advanced
// over 'error', tokens errPos..errPos+k-1 are skipped, and the parse must
// then scan RecoveryMatch tokens in a row (or run to accepted end of
// input). The parse list is restored afterwards regardless of outcome;
// tokens are only peeked, never consumed.
func (p *Parser) tryRecovery(h int, c item, k int) bool {
	saveList, saveLeo := p.list, p.leo
	defer func() { p.list, p.leo = saveList, saveLeo }()
	p.list = append([]*parseSet(nil), saveList[:h+1]...)
	p.leo = append([]map[int]leoItem(nil), saveLeo[:h+1]...)

	sb := newSetBuilder(h + 1)
	sb.add(p.sits.advance(c.sit, p.cfg.Lookahead), c.origin)
	p.closure(sb, -1)
	p.push(sb)

	matched := 0
	for matched < p.cfg.RecoveryMatch {
		pos := len(p.list) - 1
		tok := p.reader.peek(k + matched)
		term := p.terminalOf(tok)
		if term == nil {
			return false
		}
		next := p.scan(p.list[pos], pos, term)
		if next.empty() {
			return false
		}
		p.closure(next, -1)
		p.push(next)
		if term == p.g.Eof() {
			return p.checkAccept()
		}
		matched++
	}
	return true
}

// commitRecovery rewinds the parse list to set h, appends the error
// transition for the chosen candidate, consumes the ignored tokens and
// reports the recovery through the syntax-error callback.
func (p *Parser) commitRecovery(h int, c item, k, errPos int, errTok Token) {
	tracer().Infof("recovery: candidate %v at set %d, %d token(s) ignored", c.sit, h, k)
	p.list = append([]*parseSet(nil), p.list[:h+1]...)
	p.leo = append([]map[int]leoItem(nil), p.leo[:h+1]...)
	p.tokens = append([]Token(nil), p.tokens[:h]...)
	p.reader.consume(k)

	sb := newSetBuilder(h + 1)
	sb.add(p.sits.advance(c.sit, p.cfg.Lookahead), c.origin)
	p.tokens = append(p.tokens, Token{Code: grammar.ErrorTokCode})
	p.closure(sb, p.lookaheadTerm())
	p.push(sb)

	if p.Error != nil {
		p.Error(errPos, errTok, errPos, errPos+k)
	}
}
