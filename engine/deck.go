package engine

import "fmt"

// DeckSize is the number of cards in a full deck.
const DeckSize = 108

// Deck owns the card catalog, the draw pile and the discard pile. The last
// element of each pile is its top.
type Deck struct {
	catalog [DeckSize]Card
	Draw    []CardID
	Discard []CardID
	rng     uint64
}

// NewDeck builds the 108-card catalog and a shuffled draw pile.
func NewDeck(seed uint64) *Deck {
	d := &Deck{rng: seed}
	if d.rng == 0 {
		d.rng = 1 // xorshift can't start at 0
	}

	id := 0
	add := func(c Color, r Rank) {
		d.catalog[id] = Card{ID: CardID(id), Color: c, Rank: r}
		id++
	}
	// Per color: one zero, two each of 1-9, Reverse, Skip and DrawTwo.
	for _, c := range PlayableColors {
		add(c, 0)
		for r := Rank(1); r <= RankDrawTwo; r++ {
			add(c, r)
			add(c, r)
		}
	}
	for i := 0; i < 4; i++ {
		add(ColorBlack, RankWild)
	}
	for i := 0; i < 4; i++ {
		add(ColorBlack, RankWildDrawFour)
	}

	d.Draw = make([]CardID, DeckSize)
	for i := range d.Draw {
		d.Draw[i] = CardID(i)
	}
	d.Discard = make([]CardID, 0, DeckSize)
	d.shuffle(d.Draw)
	return d
}

// ---------------------------------------------------------------------------
// Shuffle source: xorshift64, seeded per deck
// ---------------------------------------------------------------------------

func (d *Deck) nextRand() uint64 {
	x := d.rng
	x ^= x << 13
	x ^= x >> 7
	x ^= x << 17
	d.rng = x
	return x
}

// randN returns a random number in [0, n).
func (d *Deck) randN(n uint64) uint64 {
	return d.nextRand() % n
}

// shuffle is a Fisher-Yates shuffle in place.
func (d *Deck) shuffle(ids []CardID) {
	for i := len(ids) - 1; i > 0; i-- {
		j := int(d.randN(uint64(i + 1)))
		ids[i], ids[j] = ids[j], ids[i]
	}
}

// CardByID returns the catalog entry for id.
func (d *Deck) CardByID(id CardID) (Card, bool) {
	if int(id) >= DeckSize {
		return NoCard, false
	}
	return d.catalog[id], true
}

// TopCard returns the discard top, or NoCard before the first card is placed.
func (d *Deck) TopCard() Card {
	if len(d.Discard) == 0 {
		return NoCard
	}
	return d.catalog[d.Discard[len(d.Discard)-1]]
}

// Available is the number of cards a deal can reach: the draw pile plus every
// discard except the top.
func (d *Deck) Available() int {
	n := len(d.Draw)
	if len(d.Discard) > 1 {
		n += len(d.Discard) - 1
	}
	return n
}

// DealTopN removes and returns n cards from the draw pile, recycling the
// discard pile beneath its top card when the draw pile runs short.
func (d *Deck) DealTopN(n int) ([]CardID, error) {
	if n < 0 {
		return nil, fmt.Errorf("cannot deal %d cards", n)
	}
	if n > d.Available() {
		return nil, &InternalError{
			Kind: KindInsufficientCards,
			Err:  fmt.Errorf("%w: want %d, have %d", ErrInsufficientCards, n, d.Available()),
		}
	}
	out := make([]CardID, 0, n)
	for len(out) < n {
		if len(d.Draw) == 0 {
			d.recycle()
		}
		last := len(d.Draw) - 1
		out = append(out, d.Draw[last])
		d.Draw = d.Draw[:last]
	}
	return out, nil
}

// recycle moves all discard cards except the top back into the draw pile and
// shuffles it.
func (d *Deck) recycle() {
	if len(d.Discard) <= 1 {
		return
	}
	top := d.Discard[len(d.Discard)-1]
	d.Draw = append(d.Draw, d.Discard[:len(d.Discard)-1]...)
	d.Discard = append(d.Discard[:0], top)
	d.shuffle(d.Draw)
}

// PlaceStartingCard flips draw cards onto the discard pile until the top is
// not black. Black cards flipped on the way stay beneath it.
func (d *Deck) PlaceStartingCard() (Card, error) {
	for {
		ids, err := d.DealTopN(1)
		if err != nil {
			return NoCard, err
		}
		d.Discard = append(d.Discard, ids[0])
		if top := d.catalog[ids[0]]; !top.IsBlack() {
			return top, nil
		}
	}
}

// Play pushes id onto the discard pile. The caller has already removed it
// from a hand.
func (d *Deck) Play(id CardID) {
	d.Discard = append(d.Discard, id)
}

// Fold returns cards to the discard pile beneath the current top, leaving
// the top card unchanged.
func (d *Deck) Fold(ids []CardID) {
	if len(ids) == 0 {
		return
	}
	if len(d.Discard) == 0 {
		d.Discard = append(d.Discard, ids...)
		return
	}
	top := d.Discard[len(d.Discard)-1]
	d.Discard = append(d.Discard[:len(d.Discard)-1], ids...)
	d.Discard = append(d.Discard, top)
}

// DrawLen returns the draw pile size.
func (d *Deck) DrawLen() int { return len(d.Draw) }

// DiscardLen returns the discard pile size.
func (d *Deck) DiscardLen() int { return len(d.Discard) }

// clone returns a deep copy.
func (d *Deck) clone() *Deck {
	c := *d
	c.Draw = append([]CardID(nil), d.Draw...)
	c.Discard = append(make([]CardID, 0, DeckSize), d.Discard...)
	return &c
}
