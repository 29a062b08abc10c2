package domain

// OpenWindow opens a counter window for an already-validated play. The card
// itself has been moved to the discard pile by the caller; only the effect is
// held open.
func OpenWindow(g *Game, p *Pending, now int64, windowSeconds, capSeconds int) {
	p.WindowDeadline = now + int64(windowSeconds)
	p.WindowCap = now + int64(capSeconds)
	g.Pending = p
	g.TurnPhase = TurnResolving
	g.BumpTurnSeq()
}

// PushNope records a counter against the open window and restarts the
// remaining time, clamped to the window cap so a nope volley cannot stall the
// room forever.
func PushNope(g *Game, seatIdx int, now int64, windowSeconds int) {
	p := g.Pending
	p.Nopes = append(p.Nopes, seatIdx)
	deadline := now + int64(windowSeconds)
	if deadline > p.WindowCap {
		deadline = p.WindowCap
	}
	if deadline > p.WindowDeadline {
		p.WindowDeadline = deadline
	}
}

// WindowExpired reports whether the open window's deadline has passed.
func WindowExpired(g *Game, now int64) bool {
	return g.Pending != nil && now >= g.Pending.WindowDeadline
}
