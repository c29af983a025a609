// Package card defines the card and deck records that the rest of cardforge consumes.
//
// Cards are plain values. Constructors and [Card.Normalize] enforce the one
// structural invariant: a card carries [Stats] if and only if it is a unit.
package card

import (
	"strings"

	"github.com/matzehuels/cardforge/pkg/errors"
)

// Type is the kind of a card.
type Type string

// Card types.
const (
	TypeUnit      Type = "unit"
	TypeTactic    Type = "tactic"
	TypeEquipment Type = "equipment"
	TypeEvent     Type = "event"
	TypeThematic  Type = "thematic"
)

// Types lists every known card type in display order.
var Types = []Type{TypeUnit, TypeTactic, TypeEquipment, TypeEvent, TypeThematic}

// Valid reports whether t is a known card type.
func (t Type) Valid() bool {
	for _, known := range Types {
		if t == known {
			return true
		}
	}
	return false
}

// ParseType converts s to a Type, case-insensitively.
func ParseType(s string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", errors.Invalid(errors.ErrCodeInvalidCard, "type", "unknown card type %q", s)
	}
	return t, nil
}

// Stat names in persistence and template order.
const (
	StatATK  = "atk"
	StatDEF  = "def"
	StatSTB  = "stb"
	StatInit = "init"
	StatRng  = "rng"
	StatMove = "move"
)

// StatNames lists every stat key in column order.
var StatNames = []string{StatATK, StatDEF, StatSTB, StatInit, StatRng, StatMove}

// Stats holds the combat values of a unit.
type Stats struct {
	ATK  int `json:"atk"`
	DEF  int `json:"def"`
	STB  int `json:"stb"`
	Init int `json:"init"`
	Rng  int `json:"rng"`
	Move int `json:"move"`
}

// Get returns the stat with the given name.
func (s Stats) Get(name string) (int, bool) {
	switch name {
	case StatATK:
		return s.ATK, true
	case StatDEF:
		return s.DEF, true
	case StatSTB:
		return s.STB, true
	case StatInit:
		return s.Init, true
	case StatRng:
		return s.Rng, true
	case StatMove:
		return s.Move, true
	}
	return 0, false
}

// Set assigns the stat with the given name. Unknown names are ignored.
func (s *Stats) Set(name string, v int) {
	switch name {
	case StatATK:
		s.ATK = v
	case StatDEF:
		s.DEF = v
	case StatSTB:
		s.STB = v
	case StatInit:
		s.Init = v
	case StatRng:
		s.Rng = v
	case StatMove:
		s.Move = v
	}
}

// Card is a single trading card record.
type Card struct {
	Name        string
	Type        Type
	Cost        int
	CostType    string
	Description string
	ImagePath   string // optional raster asset
	Stats       *Stats // set iff Type == TypeUnit
}

// New builds a normalized card. Units without stats get zeroed stats and
// stats passed for any other type are dropped.
func New(name string, t Type, cost int, costType string, stats *Stats) Card {
	c := Card{Name: name, Type: t, Cost: cost, CostType: costType, Stats: stats}
	c.Normalize()
	return c
}

// Normalize enforces the stats invariant in place.
func (c *Card) Normalize() {
	if c.Type == TypeUnit {
		if c.Stats == nil {
			c.Stats = &Stats{}
		} else {
			s := *c.Stats
			c.Stats = &s
		}
		return
	}
	c.Stats = nil
}

// Validate checks the fields that cannot be normalized away.
func (c Card) Validate() error {
	if !c.Type.Valid() {
		return errors.Invalid(errors.ErrCodeInvalidCard, "type", "unknown card type %q", c.Type)
	}
	if c.Cost < 0 {
		return errors.Invalid(errors.ErrCodeInvalidCard, "cost", "must be >= 0, got %d", c.Cost)
	}
	if (c.Type == TypeUnit) != (c.Stats != nil) {
		return errors.Invalid(errors.ErrCodeInvalidCard, "stats", "stats must be present iff type is unit")
	}
	return nil
}

func (c Card) IsUnit() bool      { return c.Type == TypeUnit }
func (c Card) IsTactic() bool    { return c.Type == TypeTactic }
func (c Card) IsEquipment() bool { return c.Type == TypeEquipment }
func (c Card) IsEvent() bool     { return c.Type == TypeEvent }
func (c Card) IsThematic() bool  { return c.Type == TypeThematic }

// Equal reports whether two cards hold the same values.
func (c Card) Equal(o Card) bool {
	if c.Name != o.Name || c.Type != o.Type || c.Cost != o.Cost || c.CostType != o.CostType ||
		c.Description != o.Description || c.ImagePath != o.ImagePath {
		return false
	}
	if c.Stats == nil || o.Stats == nil {
		return c.Stats == nil && o.Stats == nil
	}
	return *c.Stats == *o.Stats
}
