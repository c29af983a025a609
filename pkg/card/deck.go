package card

// DefaultDeckColor is the deck colour used when none is given.
const DefaultDeckColor = "#7B1F1F"

// Deck is an ordered collection of cards sharing styling metadata.
// Duplicate names are allowed; lookups by name return the first match.
type Deck struct {
	Name  string
	Cards []Card
	Color string
}

// NewDeck creates an empty deck with the default colour.
func NewDeck(name string) *Deck {
	return &Deck{Name: name, Color: DefaultDeckColor}
}

// Add appends a normalized copy of c.
func (d *Deck) Add(c Card) {
	c.Normalize()
	d.Cards = append(d.Cards, c)
}

// Remove deletes the first card equal to c and reports whether one was found.
func (d *Deck) Remove(c Card) bool {
	for i := range d.Cards {
		if d.Cards[i].Equal(c) {
			d.Cards = append(d.Cards[:i], d.Cards[i+1:]...)
			return true
		}
	}
	return false
}

// ByName returns the first card with the given name.
func (d *Deck) ByName(name string) (Card, bool) {
	for _, c := range d.Cards {
		if c.Name == name {
			return c, true
		}
	}
	return Card{}, false
}

// ByType returns the cards of type t in deck order.
func (d *Deck) ByType(t Type) []Card {
	var out []Card
	for _, c := range d.Cards {
		if c.Type == t {
			out = append(out, c)
		}
	}
	return out
}

// Count returns the number of cards.
func (d *Deck) Count() int { return len(d.Cards) }

// CountByType returns the number of cards of type t.
func (d *Deck) CountByType(t Type) int {
	n := 0
	for _, c := range d.Cards {
		if c.Type == t {
			n++
		}
	}
	return n
}
