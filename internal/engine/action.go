package engine

import (
	"errors"
	"fmt"
)

// ErrInvalidAction is returned when a submitted action is not in the current
// legal set or fails a precondition. The action is rejected, state is
// unchanged and the player keeps the turn.
var ErrInvalidAction = errors.New("invalid action")

// ActionType enumerates the closed set of player actions.
type ActionType string

const (
	ActionBuyStartItem ActionType = "buy_start_item"
	ActionBidStartItem ActionType = "bid_start_item"
	ActionPass         ActionType = "pass"
	ActionStartCompany ActionType = "start_company"
	ActionBuyShare     ActionType = "buy_share"
	ActionSellShares   ActionType = "sell_shares"
	ActionLayTile      ActionType = "lay_tile"
	ActionLayToken     ActionType = "lay_token"
	ActionRunTrains    ActionType = "run_trains"
	ActionPayout       ActionType = "payout"
	ActionWithhold     ActionType = "withhold"
	ActionBuyTrain     ActionType = "buy_train"
)

// Action is one submitted player choice, carrying only the data its type
// needs. Actions serialize to JSON for the persisted action log; replaying
// the accepted sequence from setup reproduces identical state.
type Action struct {
	Type    ActionType `json:"type"`
	Player  string     `json:"player,omitempty"`
	Company string     `json:"company,omitempty"`
	Item    string     `json:"item,omitempty"`
	Source  string     `json:"source,omitempty"`
	Train   string     `json:"train,omitempty"`
	Hex     string     `json:"hex,omitempty"`
	Count   int        `json:"count,omitempty"`
	Amount  int        `json:"amount,omitempty"`
	Row     int        `json:"row,omitempty"`
}

// String renders the action for logs and user-facing messages.
func (a Action) String() string {
	switch a.Type {
	case ActionBuyStartItem:
		return fmt.Sprintf("%s buys %s", a.Player, a.Item)
	case ActionBidStartItem:
		return fmt.Sprintf("%s bids %d on %s", a.Player, a.Amount, a.Item)
	case ActionPass:
		return fmt.Sprintf("%s passes", a.Player)
	case ActionStartCompany:
		return fmt.Sprintf("%s starts %s at par row %d", a.Player, a.Company, a.Row)
	case ActionBuyShare:
		return fmt.Sprintf("%s buys a share of %s from %s", a.Player, a.Company, a.Source)
	case ActionSellShares:
		return fmt.Sprintf("%s sells %d share(s) of %s", a.Player, a.Count, a.Company)
	case ActionLayTile:
		return fmt.Sprintf("%s lays a tile on %s", a.Company, a.Hex)
	case ActionLayToken:
		return fmt.Sprintf("%s places a token on %s", a.Company, a.Hex)
	case ActionRunTrains:
		return fmt.Sprintf("%s runs trains for %d", a.Company, a.Amount)
	case ActionPayout:
		return fmt.Sprintf("%s pays out %d", a.Company, a.Amount)
	case ActionWithhold:
		return fmt.Sprintf("%s withholds %d", a.Company, a.Amount)
	case ActionBuyTrain:
		return fmt.Sprintf("%s buys a %s train", a.Company, a.Train)
	}
	return string(a.Type)
}

// matches reports whether a submitted action corresponds to a legal one.
// Free-valued fields (bid amount, tile hex) are checked by the round's
// process step, not by set membership.
func (a Action) matches(legal Action) bool {
	if a.Type != legal.Type {
		return false
	}
	if legal.Player != "" && a.Player != legal.Player {
		return false
	}
	if legal.Company != "" && a.Company != legal.Company {
		return false
	}
	if legal.Item != "" && a.Item != legal.Item {
		return false
	}
	if legal.Source != "" && a.Source != legal.Source {
		return false
	}
	if legal.Train != "" && a.Train != legal.Train {
		return false
	}
	if legal.Count != 0 && a.Count != legal.Count {
		return false
	}
	if legal.Row != 0 || a.Type == ActionStartCompany {
		if a.Row != legal.Row {
			return false
		}
	}
	return true
}

// containsAction reports whether the action matches any entry of the legal
// set.
func containsAction(legal []Action, a Action) bool {
	for _, l := range legal {
		if a.matches(l) {
			return true
		}
	}
	return false
}

func invalidf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrInvalidAction}, args...)...)
}
