package engine

// PlayerID identifies a player within one game. IDs count up from 1 and are
// never reused, even across a leave.
type PlayerID uint32

// NoPlayer is the zero PlayerID.
const NoPlayer PlayerID = 0

// PlayerState holds one participant's hand and per-player flags. Only the
// game state mutates it.
type PlayerState struct {
	ID               PlayerID
	Name             string
	Hand             []CardID
	DeclaredLastCard bool
	PunishmentDraws  int
	Finished         bool
	Rank             int // 0 until the player is ranked
	Privileged       bool
}

func newPlayerState(id PlayerID, name string) *PlayerState {
	return &PlayerState{ID: id, Name: name, Hand: make([]CardID, 0, 16)}
}

// AddCards appends ids to the hand.
func (p *PlayerState) AddCards(ids []CardID) {
	p.Hand = append(p.Hand, ids...)
}

// HasCard reports whether id is in the hand.
func (p *PlayerState) HasCard(id CardID) bool {
	for _, c := range p.Hand {
		if c == id {
			return true
		}
	}
	return false
}

// RemoveCard takes id out of the hand.
func (p *PlayerState) RemoveCard(id CardID) error {
	for i, c := range p.Hand {
		if c == id {
			p.Hand = append(p.Hand[:i], p.Hand[i+1:]...)
			return nil
		}
	}
	return reject(KindCardNotHeld, "%s does not hold card %d", p.Name, id)
}

// HandSize returns the number of cards held.
func (p *PlayerState) HandSize() int { return len(p.Hand) }

func (p *PlayerState) String() string { return p.Name }

func (p *PlayerState) clone() *PlayerState {
	c := *p
	c.Hand = append(make([]CardID, 0, len(p.Hand)), p.Hand...)
	return &c
}
