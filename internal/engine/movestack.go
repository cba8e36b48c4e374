package engine

import (
	"fmt"

	"github.com/rs/zerolog"
)

// MoveSet groups the moves produced by one player action into an atomic,
// undoable unit.
type MoveSet struct {
	Description string
	moves       []Move
}

// Len returns the number of moves in the set.
func (s *MoveSet) Len() int { return len(s.moves) }

// MoveStack records every state mutation as a reversible move. All mutation
// of game entities goes through Record, so every effect is also an undoable
// record. The stack is cleared at round boundaries (the undo horizon).
type MoveStack struct {
	open   *MoveSet
	closed []*MoveSet
	rev    int
	log    zerolog.Logger
}

// NewMoveStack creates an empty move stack logging through the given logger.
func NewMoveStack(log zerolog.Logger) *MoveStack {
	return &MoveStack{log: log}
}

// StartSet opens a new atomic group. Called once per top-level player action.
// An already-open set is closed first.
func (s *MoveStack) StartSet(description string) {
	if s.open != nil {
		s.CloseSet()
	}
	s.open = &MoveSet{Description: description}
}

// Record applies the move and appends it to the open set. If no set is open
// an implicit one is created (setup moves). A move that fails to apply is
// not recorded.
func (s *MoveStack) Record(m Move) error {
	if s.open == nil {
		s.open = &MoveSet{Description: "implicit"}
	}
	if err := m.Apply(); err != nil {
		return err
	}
	s.open.moves = append(s.open.moves, m)
	s.rev++
	s.log.Debug().Str("move", m.String()).Str("set", s.open.Description).Msg("move recorded")
	return nil
}

// CloseSet closes the open set and pushes it onto the undo stack. Empty sets
// are discarded.
func (s *MoveStack) CloseSet() {
	if s.open == nil {
		return
	}
	if len(s.open.moves) > 0 {
		s.closed = append(s.closed, s.open)
	}
	s.open = nil
}

// RollbackOpen reverses every move of the open set in LIFO order and discards
// it. Used when an action fails partway so no partial mutation stays visible.
func (s *MoveStack) RollbackOpen() error {
	if s.open == nil {
		return nil
	}
	set := s.open
	s.open = nil
	for i := len(set.moves) - 1; i >= 0; i-- {
		if err := set.moves[i].Revert(); err != nil {
			return fmt.Errorf("rollback of %q: %w", set.Description, err)
		}
		s.rev++
	}
	return nil
}

// Undo reverses the most recently closed move set, strict LIFO. Returns
// ErrNothingToUndo when the stack is empty. A revert failure wraps ErrCorrupt
// and leaves the game unusable.
func (s *MoveStack) Undo() error {
	if s.open != nil && len(s.open.moves) > 0 {
		s.CloseSet()
	}
	if len(s.closed) == 0 {
		return ErrNothingToUndo
	}
	set := s.closed[len(s.closed)-1]
	s.closed = s.closed[:len(s.closed)-1]
	for i := len(set.moves) - 1; i >= 0; i-- {
		if err := set.moves[i].Revert(); err != nil {
			return fmt.Errorf("undo of %q: %w", set.Description, err)
		}
		s.rev++
	}
	s.log.Info().Str("set", set.Description).Int("moves", len(set.moves)).Msg("move set undone")
	return nil
}

// Clear discards all closed history. Called at round boundaries; moves past
// the horizon can no longer be undone.
func (s *MoveStack) Clear() {
	s.closed = nil
}

// Depth returns the number of undoable sets.
func (s *MoveStack) Depth() int { return len(s.closed) }

// Revision increases with every applied or reverted move. Derived models use
// it to invalidate cached values.
func (s *MoveStack) Revision() int { return s.rev }

// LastSet returns the most recently closed set, or nil.
func (s *MoveStack) LastSet() *MoveSet {
	if len(s.closed) == 0 {
		return nil
	}
	return s.closed[len(s.closed)-1]
}
