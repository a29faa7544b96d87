// Package pricing turns (level, pages, urgency) into a price breakdown.
// Referral discounts and wallet offsets are applied by callers afterwards.
package pricing

import (
	"FlashGrade/internal/core/domain"
	"fmt"
	"math"
)

// ReferralDiscountRate is the share of the priced total knocked off by a valid code.
const ReferralDiscountRate = 0.10

// Tier is an urgency option as shown to customers.
type Tier struct {
	ID         domain.UrgencyTier
	Label      string
	Multiplier float64
}

// Level is an academic level as shown to customers.
type Level struct {
	ID      domain.AcademicLevel
	Label   string
	PerPage float64
}

// Table is the full set of rates an Engine prices with.
type Table struct {
	Levels []Level
	Tiers  []Tier
}

// DefaultTable is the graduated urgency table with the five academic levels.
func DefaultTable() Table {
	return Table{
		Levels: []Level{
			{ID: domain.LevelCollege, Label: "Collège", PerPage: 12},
			{ID: domain.LevelHighSchool, Label: "Lycée", PerPage: 16},
			{ID: domain.LevelUniversity, Label: "Université", PerPage: 22},
			{ID: domain.LevelMaster, Label: "Master", PerPage: 28},
			{ID: domain.LevelPhD, Label: "Doctorat", PerPage: 38},
		},
		Tiers: []Tier{
			{ID: domain.UrgencySixHours, Label: "6 heures", Multiplier: 1.8},
			{ID: domain.UrgencyTwelveHours, Label: "12 heures", Multiplier: 1.7},
			{ID: domain.UrgencyTwentyFourHours, Label: "24 heures", Multiplier: 1.5},
			{ID: domain.UrgencyFortyEightHours, Label: "48 heures", Multiplier: 1.3},
			{ID: domain.UrgencyThreeDays, Label: "3 jours", Multiplier: 1.2},
			{ID: domain.UrgencySevenDays, Label: "7 jours", Multiplier: 1.0},
			{ID: domain.UrgencyFourteenDays, Label: "14 jours", Multiplier: 0.9},
		},
	}
}

// Engine prices orders. It is immutable and safe for concurrent use.
type Engine struct {
	levels    []Level
	tiers     []Tier
	levelByID map[domain.AcademicLevel]Level
	tierByID  map[domain.UrgencyTier]Tier
}

// NewEngine builds an engine from a table.
func NewEngine(table Table) (*Engine, error) {
	if len(table.Levels) == 0 || len(table.Tiers) == 0 {
		return nil, fmt.Errorf("pricing table needs at least one level and one tier")
	}
	e := &Engine{
		levels:    table.Levels,
		tiers:     table.Tiers,
		levelByID: make(map[domain.AcademicLevel]Level, len(table.Levels)),
		tierByID:  make(map[domain.UrgencyTier]Tier, len(table.Tiers)),
	}
	for _, l := range table.Levels {
		if l.PerPage <= 0 {
			return nil, fmt.Errorf("level %s: per-page rate must be positive", l.ID)
		}
		e.levelByID[l.ID] = l
	}
	for _, t := range table.Tiers {
		if t.Multiplier <= 0 {
			return nil, fmt.Errorf("tier %s: multiplier must be positive", t.ID)
		}
		e.tierByID[t.ID] = t
	}
	return e, nil
}

// MustDefault returns an engine over DefaultTable.
func MustDefault() *Engine {
	e, err := NewEngine(DefaultTable())
	if err != nil {
		panic(err)
	}
	return e
}

// Price computes base = rate × pages and final = round(base × multiplier).
func (e *Engine) Price(level domain.AcademicLevel, pages int, urgency domain.UrgencyTier) (domain.PriceBreakdown, error) {
	l, ok := e.levelByID[level]
	if !ok {
		return domain.PriceBreakdown{}, fmt.Errorf("%w: %q", domain.ErrUnknownLevel, level)
	}
	t, ok := e.tierByID[urgency]
	if !ok {
		return domain.PriceBreakdown{}, fmt.Errorf("%w: %q", domain.ErrUnknownUrgency, urgency)
	}
	if !domain.ValidPages(pages) {
		return domain.PriceBreakdown{}, fmt.Errorf("%w: %d", domain.ErrInvalidPageCount, pages)
	}

	base := l.PerPage * float64(pages)
	return domain.PriceBreakdown{
		BasePrice:         base,
		UrgencyMultiplier: t.Multiplier,
		FinalPrice:        math.Round(base * t.Multiplier),
	}, nil
}

// Levels returns the levels in display order.
func (e *Engine) Levels() []Level { return e.levels }

// Tiers returns the urgency tiers in display order.
func (e *Engine) Tiers() []Tier { return e.tiers }

// Level looks up a level.
func (e *Engine) Level(id domain.AcademicLevel) (Level, bool) {
	l, ok := e.levelByID[id]
	return l, ok
}

// Tier looks up an urgency tier.
func (e *Engine) Tier(id domain.UrgencyTier) (Tier, bool) {
	t, ok := e.tierByID[id]
	return t, ok
}

// ReferralDiscount is 10% of the priced total, rounded to cents.
func ReferralDiscount(final float64) float64 {
	return domain.RoundMoney(final * ReferralDiscountRate)
}

// WalletOffset is the part of balance that can be spent on an order of final.
func WalletOffset(balance, final float64) float64 {
	if balance <= 0 || final <= 0 {
		return 0
	}
	return domain.RoundMoney(math.Min(balance, final))
}

// Commission is 10 units per full 100 spent.
func Commission(final float64) float64 {
	if final <= 0 {
		return 0
	}
	return math.Floor(final/100) * 10
}
