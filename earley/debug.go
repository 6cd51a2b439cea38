package earley

// dumpSet traces the items of a parse set, one line each.
func dumpSet(sits *sitTable, ps *parseSet, pos int) {
	tracer().Debugf("--- set %04d ------------------------------------", pos)
	n := 1
	ps.each(sits, pos, func(s *situation, origin int) {
		tracer().Debugf("[%2d] %s (%d)", n, s, origin)
		n++
	})
}
