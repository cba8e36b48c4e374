package engine

// Round is one phase of play. Exactly one round is active at a time; it
// computes the legal-action set for the current player and applies submitted
// actions through the move ledger. Process reports whether the round has
// concluded; the game manager then constructs the successor round.
type Round interface {
	// Name identifies the round for logs and snapshots.
	Name() string
	// PossibleActions returns the cached legal-action set for the current
	// player. Calling it twice without an intervening Process yields the
	// identical set.
	PossibleActions(g *Game) []Action
	// Process validates and applies one action. On a validation failure the
	// returned error wraps ErrInvalidAction and state is unchanged.
	Process(g *Game, a Action) (done bool, err error)
	// CurrentPlayer returns the player whose turn it is.
	CurrentPlayer(g *Game) *Player

	invalidate()
}

// baseRound carries the legal-action cache shared by all round types.
type baseRound struct {
	cached []Action
}

func (b *baseRound) invalidate() { b.cached = nil }

func (b *baseRound) cache(compute func() []Action) []Action {
	if b.cached == nil {
		b.cached = compute()
	}
	return b.cached
}

// nextSeat returns the seat after idx in the configured turn rotation.
// Rotation is cyclic; variants may rotate the other way.
func nextSeat(g *Game, idx int) int {
	n := len(g.Players)
	rot := g.Options.TurnRotation
	if rot == 0 {
		rot = 1
	}
	return ((idx+rot)%n + n) % n
}
