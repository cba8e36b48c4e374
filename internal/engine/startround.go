package engine

import (
	"fmt"
)

// StartItem is one slot of the start packet: a private company at a posted
// price, possibly carrying a standing high bid.
type StartItem struct {
	Private    *PrivateCompany
	Price      int
	Sold       bool
	SoldTo     int // seat index of the buyer, -1 while unsold
	HighBid    int
	HighBidder int // seat index, -1 when no bid stands
}

// startTermination decides when a start round concludes. The 1835-style
// variant falls back to an interleaved operating round when nobody can
// afford any remaining item; a pluggable predicate keeps that out of the
// core machine.
type startTermination func(r *StartRound, g *Game) (done, fallback bool)

var startTerminations = map[string]startTermination{
	"all-sold": func(r *StartRound, g *Game) (bool, bool) {
		return r.allSold(), false
	},
	"operating-fallback": func(r *StartRound, g *Game) (bool, bool) {
		if r.allSold() {
			return true, false
		}
		if r.allPass && !r.anyoneCanAfford(g) {
			return true, true
		}
		return false, false
	},
}

// StartRound auctions the start packet. The current player may buy the
// cheapest unsold item at its posted price, place a bid on a later item, or
// pass. When every player passes in turn the cheapest item's price drops.
type StartRound struct {
	baseRound
	items    []*StartItem
	current  int // seat index
	passes   int
	allPass  bool // transient: set while handling the pass that closed a full circle
	fallback bool
	ended    bool
}

// NewStartRound lays out the start packet from the game options.
func NewStartRound(g *Game) *StartRound {
	r := &StartRound{current: g.priority}
	for _, pc := range g.Privates {
		r.items = append(r.items, &StartItem{
			Private:    pc,
			Price:      pc.Price,
			SoldTo:     -1,
			HighBidder: -1,
		})
	}
	g.Log.Info().Int("items", len(r.items)).Msg("start round begins")
	return r
}

// Name implements Round.
func (r *StartRound) Name() string { return "Start Round" }

// CurrentPlayer implements Round.
func (r *StartRound) CurrentPlayer(g *Game) *Player { return g.Players[r.current] }

// Items exposes the packet state for snapshots.
func (r *StartRound) Items() []*StartItem {
	out := make([]*StartItem, len(r.items))
	copy(out, r.items)
	return out
}

func (r *StartRound) allSold() bool {
	for _, it := range r.items {
		if !it.Sold {
			return false
		}
	}
	return true
}

func (r *StartRound) cheapest() *StartItem {
	for _, it := range r.items {
		if !it.Sold {
			return it
		}
	}
	return nil
}

func (r *StartRound) itemByName(name string) *StartItem {
	for _, it := range r.items {
		if it.Private.Name == name {
			return it
		}
	}
	return nil
}

func (r *StartRound) anyoneCanAfford(g *Game) bool {
	it := r.cheapest()
	if it == nil {
		return false
	}
	for _, p := range g.Players {
		if p.Account.FreeCash() >= it.Price {
			return true
		}
	}
	return false
}

// PossibleActions implements Round.
func (r *StartRound) PossibleActions(g *Game) []Action {
	return r.cache(func() []Action {
		player := g.Players[r.current]
		var actions []Action

		cheapest := r.cheapest()
		if cheapest != nil && player.Account.FreeCash() >= cheapest.Price {
			actions = append(actions, Action{
				Type:   ActionBuyStartItem,
				Player: player.Name,
				Item:   cheapest.Private.Name,
				Amount: cheapest.Price,
			})
		}
		// bids on any unsold item after the cheapest
		seen := false
		for _, it := range r.items {
			if it.Sold {
				continue
			}
			if !seen {
				seen = true // cheapest slot is bought, not bid on
				continue
			}
			min := it.Price + g.Options.BidIncrement
			if it.HighBid > 0 {
				min = it.HighBid + g.Options.BidIncrement
			}
			if player.Account.FreeCash() >= min && it.HighBidder != player.Index {
				actions = append(actions, Action{
					Type:   ActionBidStartItem,
					Player: player.Name,
					Item:   it.Private.Name,
					Amount: min, // minimum; higher bids accepted
				})
			}
		}
		actions = append(actions, Action{Type: ActionPass, Player: player.Name})
		return actions
	})
}

// Process implements Round.
func (r *StartRound) Process(g *Game, a Action) (bool, error) {
	defer r.invalidate()
	player := g.Players[r.current]

	switch a.Type {
	case ActionBuyStartItem:
		it := r.cheapest()
		if it == nil || it.Private.Name != a.Item {
			return false, invalidf("%s is not the cheapest unsold item", a.Item)
		}
		if err := r.sellItem(g, it, player, it.Price); err != nil {
			return false, err
		}
		if err := g.Moves.Record(newIntMove("start round passes", &r.passes, 0)); err != nil {
			return false, err
		}
		if err := r.resolveBids(g); err != nil {
			return false, err
		}

	case ActionBidStartItem:
		it := r.itemByName(a.Item)
		if it == nil {
			return false, invalidf("no start item named %s", a.Item)
		}
		if it.Sold || it == r.cheapest() {
			return false, invalidf("%s cannot be bid on", a.Item)
		}
		min := it.Price + g.Options.BidIncrement
		if it.HighBid > 0 {
			min = it.HighBid + g.Options.BidIncrement
		}
		if a.Amount < min {
			return false, invalidf("bid on %s must be at least %d", a.Item, min)
		}
		if player.Account.FreeCash() < a.Amount {
			return false, invalidf("%s cannot afford a bid of %d", player.Name, a.Amount)
		}
		// release the previous bidder's blocked cash, block the new bid
		if it.HighBidder >= 0 {
			if err := UnblockCash(g.Moves, g.Players[it.HighBidder].Account, it.HighBid); err != nil {
				return false, err
			}
		}
		if err := BlockCash(g.Moves, player.Account, a.Amount); err != nil {
			return false, err
		}
		if err := g.Moves.Record(newIntMove("high bid on "+a.Item, &it.HighBid, a.Amount)); err != nil {
			return false, err
		}
		if err := g.Moves.Record(newIntMove("high bidder on "+a.Item, &it.HighBidder, player.Index)); err != nil {
			return false, err
		}
		if err := g.Moves.Record(newIntMove("start round passes", &r.passes, 0)); err != nil {
			return false, err
		}

	case ActionPass:
		if err := g.Moves.Record(newIntMove("start round passes", &r.passes, r.passes+1)); err != nil {
			return false, err
		}
		if r.passes >= len(g.Players) {
			r.allPass = true
			if err := r.allPassed(g); err != nil {
				return false, err
			}
		}

	default:
		return false, invalidf("%s is not a start round action", a.Type)
	}

	if err := g.Moves.Record(newIntMove("start round turn", &r.current, nextSeat(g, r.current))); err != nil {
		return false, err
	}

	terminate := startTerminations[g.Options.StartTermination]
	done, fallback := terminate(r, g)
	r.allPass = false
	if fallback {
		r.fallback = true
		g.Log.Info().Msg("nobody can afford a start item, interleaving an operating round")
	}
	r.ended = done || fallback
	return r.ended, nil
}

// sellItem hands the private to the buyer and settles cash, releasing any
// blocked bid the buyer held on it.
func (r *StartRound) sellItem(g *Game, it *StartItem, buyer *Player, price int) error {
	if it.HighBidder == buyer.Index && it.HighBid > 0 {
		if err := UnblockCash(g.Moves, buyer.Account, it.HighBid); err != nil {
			return err
		}
	}
	if err := TransferCash(g.Moves, buyer.Account, g.Bank.Account, price); err != nil {
		return invalidf("%v", err)
	}
	if err := TransferPrivate(g.Moves, it.Private, g.Bank.IPO, buyer.Portfolio); err != nil {
		return err
	}
	if err := g.Moves.Record(newBoolMove(it.Private.Name+" sold", &it.Sold, true)); err != nil {
		return err
	}
	if err := g.Moves.Record(newIntMove(it.Private.Name+" buyer", &it.SoldTo, buyer.Index)); err != nil {
		return err
	}
	g.Log.Info().Str("player", buyer.Name).Str("item", it.Private.Name).Int("price", price).Msg("start item bought")
	return nil
}

// resolveBids sells every item that has become the cheapest unsold slot and
// carries a standing bid, repeatedly, at the bid price.
func (r *StartRound) resolveBids(g *Game) error {
	for {
		it := r.cheapest()
		if it == nil || it.HighBidder < 0 {
			return nil
		}
		bidder := g.Players[it.HighBidder]
		if err := r.sellItem(g, it, bidder, it.HighBid); err != nil {
			return err
		}
	}
}

// allPassed reduces the cheapest item's price. At zero the item stays on
// offer as a free take.
func (r *StartRound) allPassed(g *Game) error {
	it := r.cheapest()
	if it == nil {
		return nil
	}
	next := it.Price - 5
	if next < 0 {
		next = 0
	}
	if next != it.Price {
		if err := g.Moves.Record(newIntMove("price of "+it.Private.Name, &it.Price, next)); err != nil {
			return err
		}
		g.Log.Info().Str("item", it.Private.Name).Int("price", next).Msg("all passed, start item price reduced")
	}
	return g.Moves.Record(newIntMove("start round passes", &r.passes, 0))
}

func (r *StartRound) String() string {
	return fmt.Sprintf("start round (%d items)", len(r.items))
}
