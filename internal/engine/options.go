package engine

import (
	"errors"
	"fmt"
)

// ErrConfiguration indicates malformed or missing game-rule data at setup
// time. Fatal: game initialization aborts before any round starts.
var ErrConfiguration = errors.New("game configuration error")

// PrivateSpec describes a start-packet private company.
type PrivateSpec struct {
	Name    string `mapstructure:"name" json:"name"`
	Price   int    `mapstructure:"price" json:"price"`
	Revenue int    `mapstructure:"revenue" json:"revenue"`
}

// CompanySpec describes a public share company.
type CompanySpec struct {
	Symbol      string `mapstructure:"symbol" json:"symbol"`
	Name        string `mapstructure:"name" json:"name"`
	TotalShares int    `mapstructure:"total_shares" json:"total_shares"`
}

// TrainSpec describes one train type. Buying the first train of a type
// advances the game phase; trains named by Rusts are scrapped at that moment.
type TrainSpec struct {
	Name    string `mapstructure:"name" json:"name"`
	Price   int    `mapstructure:"price" json:"price"`
	Revenue int    `mapstructure:"revenue" json:"revenue"`
	Count   int    `mapstructure:"count" json:"count"`
	Rusts   string `mapstructure:"rusts" json:"rusts"`
}

// Options is the injected rule configuration for one game variant. The round
// machine and market branch on these values instead of hardcoded constants.
type Options struct {
	Variant          string        `mapstructure:"variant" json:"variant"`
	BankCash         int           `mapstructure:"bank_cash" json:"bank_cash"`
	StartingCash     map[int]int   `mapstructure:"starting_cash" json:"starting_cash"`
	CertLimit        map[int]int   `mapstructure:"cert_limit" json:"cert_limit"`
	PoolShareLimit   int           `mapstructure:"pool_share_limit" json:"pool_share_limit"`
	NoSaleInFirstSR  bool          `mapstructure:"no_sale_in_first_sr" json:"no_sale_in_first_sr"`
	TurnRotation     int           `mapstructure:"turn_rotation" json:"turn_rotation"`
	OperatingRounds  int           `mapstructure:"operating_rounds" json:"operating_rounds"`
	FloatShares      int           `mapstructure:"float_shares" json:"float_shares"`
	TokenCost        int           `mapstructure:"token_cost" json:"token_cost"`
	BidIncrement     int           `mapstructure:"bid_increment" json:"bid_increment"`
	StartTermination string        `mapstructure:"start_termination" json:"start_termination"`
	ParColumn        int           `mapstructure:"par_column" json:"par_column"`
	ParRows          []int         `mapstructure:"par_rows" json:"par_rows"`
	Market           [][]int       `mapstructure:"market" json:"market"`
	Privates         []PrivateSpec `mapstructure:"privates" json:"privates"`
	Companies        []CompanySpec `mapstructure:"companies" json:"companies"`
	Trains           []TrainSpec   `mapstructure:"trains" json:"trains"`
}

// Validate checks the option set for the holes that would crash setup.
func (o Options) Validate() error {
	if o.BankCash <= 0 {
		return fmt.Errorf("%w: bank cash must be positive", ErrConfiguration)
	}
	if len(o.Market) == 0 {
		return fmt.Errorf("%w: empty stock market grid", ErrConfiguration)
	}
	if len(o.Companies) == 0 {
		return fmt.Errorf("%w: no public companies defined", ErrConfiguration)
	}
	for _, c := range o.Companies {
		if c.TotalShares <= 0 || 100%c.TotalShares != 0 {
			return fmt.Errorf("%w: company %s has invalid share count %d", ErrConfiguration, c.Symbol, c.TotalShares)
		}
	}
	if len(o.StartingCash) == 0 {
		return fmt.Errorf("%w: no starting cash table", ErrConfiguration)
	}
	if o.FloatShares <= 0 {
		return fmt.Errorf("%w: float threshold must be positive", ErrConfiguration)
	}
	for _, r := range o.ParRows {
		if r < 0 || r >= len(o.Market) {
			return fmt.Errorf("%w: par row %d outside market grid", ErrConfiguration, r)
		}
	}
	if _, ok := startTerminations[o.StartTermination]; !ok {
		return fmt.Errorf("%w: unknown start termination policy %q", ErrConfiguration, o.StartTermination)
	}
	return nil
}

// variants is a closed registry of known rule sets, keyed by the tag supplied
// through configuration. A registry of factories replaces open-ended dynamic
// loading.
var variants = map[string]func() Options{
	"1830": options1830,
	"1835": options1835,
}

// VariantOptions resolves a configuration tag to its rule set.
func VariantOptions(tag string) (Options, error) {
	factory, ok := variants[tag]
	if !ok {
		return Options{}, fmt.Errorf("%w: unknown game variant %q", ErrConfiguration, tag)
	}
	return factory(), nil
}

// Variants lists the known variant tags.
func Variants() []string {
	out := make([]string, 0, len(variants))
	for tag := range variants {
		out = append(out, tag)
	}
	return out
}

func baseMarket() [][]int {
	return [][]int{
		{60, 70, 80, 90, 100, 112, 126, 142, 160, 180, 200, 225, 250},
		{55, 65, 75, 85, 95, 107, 120, 135, 150, 170, 190, 212, 240},
		{50, 60, 70, 80, 90, 100, 111, 125, 140, 155, 175, 200, 225},
		{45, 55, 65, 75, 85, 95, 105, 117, 130, 145, 160, 180, 200},
		{40, 50, 60, 70, 80, 90, 100, 110, 120, 130, 0, 0, 0},
		{30, 40, 50, 60, 70, 80, 90, 100, 0, 0, 0, 0, 0},
		{20, 30, 40, 50, 60, 70, 80, 0, 0, 0, 0, 0, 0},
		{10, 20, 30, 40, 50, 60, 0, 0, 0, 0, 0, 0, 0},
	}
}

func baseTrains() []TrainSpec {
	return []TrainSpec{
		{Name: "2", Price: 80, Revenue: 30, Count: 6, Rusts: ""},
		{Name: "3", Price: 180, Revenue: 60, Count: 5, Rusts: ""},
		{Name: "4", Price: 300, Revenue: 100, Count: 4, Rusts: "2"},
		{Name: "5", Price: 450, Revenue: 150, Count: 3, Rusts: ""},
		{Name: "6", Price: 630, Revenue: 200, Count: 2, Rusts: "3"},
		{Name: "D", Price: 1100, Revenue: 300, Count: 6, Rusts: "4"},
	}
}

func options1830() Options {
	return Options{
		Variant:  "1830",
		BankCash: 12000,
		StartingCash: map[int]int{
			2: 1200, 3: 800, 4: 600, 5: 480, 6: 400,
		},
		CertLimit: map[int]int{
			2: 28, 3: 20, 4: 16, 5: 13, 6: 11,
		},
		PoolShareLimit:   5,
		NoSaleInFirstSR:  true,
		TurnRotation:     1,
		OperatingRounds:  2,
		FloatShares:      6,
		TokenCost:        40,
		BidIncrement:     5,
		StartTermination: "all-sold",
		ParColumn:        4,
		ParRows:          []int{0, 1, 2, 3},
		Market:           baseMarket(),
		Privates: []PrivateSpec{
			{Name: "Schuylkill Valley", Price: 20, Revenue: 5},
			{Name: "Champlain & St.Lawrence", Price: 40, Revenue: 10},
			{Name: "Delaware & Hudson", Price: 70, Revenue: 15},
			{Name: "Mohawk & Hudson", Price: 110, Revenue: 20},
			{Name: "Camden & Amboy", Price: 160, Revenue: 25},
			{Name: "Baltimore & Ohio", Price: 220, Revenue: 30},
		},
		Companies: []CompanySpec{
			{Symbol: "PRR", Name: "Pennsylvania", TotalShares: 10},
			{Symbol: "NYC", Name: "New York Central", TotalShares: 10},
			{Symbol: "CPR", Name: "Canadian Pacific", TotalShares: 10},
			{Symbol: "B&O", Name: "Baltimore & Ohio", TotalShares: 10},
			{Symbol: "C&O", Name: "Chesapeake & Ohio", TotalShares: 10},
			{Symbol: "ERIE", Name: "Erie", TotalShares: 10},
			{Symbol: "NYNH", Name: "New York, New Haven & Hartford", TotalShares: 10},
			{Symbol: "B&M", Name: "Boston & Maine", TotalShares: 10},
		},
		Trains: baseTrains(),
	}
}

// options1835 keeps the same economic skeleton but swaps the start-round
// termination policy: when nobody can afford any remaining start item, an
// operating round is interleaved instead of stalling the auction.
func options1835() Options {
	o := options1830()
	o.Variant = "1835"
	o.NoSaleInFirstSR = false
	o.StartTermination = "operating-fallback"
	o.StartingCash = map[int]int{
		3: 600, 4: 475, 5: 390, 6: 340, 7: 310,
	}
	o.CertLimit = map[int]int{
		3: 19, 4: 15, 5: 12, 6: 11, 7: 9,
	}
	return o
}
