package earley

// Leo right-recursion optimization, after Joop M. I. M. Leo, "A general
// context-free parsing algorithm running in linear time on every LR(k)
// grammar without using lookahead", Theoretical Computer Science 82
// (1991). Deterministic completion chains of right-recursive rules are
// collapsed: instead of walking the chain item by item on every
// completion, the topmost item is memoized per (parse set, nonterminal)
// and inserted directly.
//
// The precondition applied here is conservative: a Leo item for N is
// installed only if exactly one situation in the set waits on N, nothing
// non-nullable follows N in that situation's rule, and the rule is
// directly right-recursive (its LHS is N itself). Rebuilding the table
// after each set is closed means a second waiter automatically suppresses
// the item, so no separate invalidation is needed.

// buildLeo computes the Leo items of a freshly finalized parse set.
// Returns nil if the set admits none.
func (p *Parser) buildLeo(ps *parseSet, pos int) map[int]leoItem {
	type waiter struct {
		sit    *situation
		origin int
		count  int
	}
	waiters := make(map[int]*waiter)
	ps.each(p.sits, pos, func(s *situation, origin int) {
		if s.next == nil || s.next.IsTerminal() {
			return
		}
		w := waiters[s.next.ID]
		if w == nil {
			w = &waiter{}
			waiters[s.next.ID] = w
		}
		w.count++
		w.sit = s
		w.origin = origin
	})
	var leo map[int]leoItem
	for nid, w := range waiters {
		if w.count != 1 {
			continue
		}
		adv := p.sits.advance(w.sit, p.cfg.Lookahead)
		if !adv.emptyTail {
			continue // something non-nullable follows N; chain not collapsible
		}
		if w.sit.rule.LHS.ID != nid {
			continue // only direct right recursion, conservatively
		}
		if leo == nil {
			leo = make(map[int]leoItem)
		}
		// inherit the topmost item of the chain, if the waiter's own
		// origin set already carries one
		if w.origin < len(p.leo) && p.leo[w.origin] != nil {
			if inherited, ok := p.leo[w.origin][nid]; ok {
				leo[nid] = inherited
				continue
			}
		}
		leo[nid] = leoItem{top: adv, topOrigin: w.origin}
	}
	if leo != nil {
		tracer().Debugf("set %d carries %d Leo item(s)", pos, len(leo))
	}
	return leo
}
