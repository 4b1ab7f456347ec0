package battle

import (
	"slices"

	"github.com/Iron-Ham/cypher/internal/errors"
)

// TurnOrder selects which participant speaks first in each round.
// It is declared once per session and never changes.
type TurnOrder string

const (
	// OrderFixed puts A first in every round.
	OrderFixed TurnOrder = "fixed"

	// OrderAlternating puts A first in odd rounds and B first in even rounds.
	OrderAlternating TurnOrder = "alternating"
)

// Style selects the generation prompt family.
type Style string

const (
	// StyleBattle is a classic diss battle: each verse attacks the opponent.
	StyleBattle Style = "battle"

	// StyleAnswer requires each verse to answer the previous one directly.
	StyleAnswer Style = "answer"

	// StyleFreestyle keeps verses on topic without direct rebuttal.
	StyleFreestyle Style = "freestyle"
)

// ValidTurnOrders returns the accepted turn order policies.
func ValidTurnOrders() []string {
	return []string{string(OrderFixed), string(OrderAlternating)}
}

// ValidStyles returns the accepted generation styles.
func ValidStyles() []string {
	return []string{string(StyleBattle), string(StyleAnswer), string(StyleFreestyle)}
}

// Format holds the fixed shape of a battle.
type Format struct {
	// TurnsPerParticipant is the number of verses each side delivers.
	// One round holds one turn per participant, so this is also the round count.
	TurnsPerParticipant int       `json:"turns_per_participant"`
	BarsPerTurn         int       `json:"bars_per_turn"`
	TurnOrder           TurnOrder `json:"turn_order"`
	Style               Style     `json:"style"`
}

// Rounds returns the number of rounds.
func (f Format) Rounds() int {
	return f.TurnsPerParticipant
}

// TotalTurns returns the number of turns across the session.
func (f Format) TotalTurns() int {
	return f.TurnsPerParticipant * 2
}

// Validate checks the format bounds.
func (f Format) Validate() error {
	if f.TurnsPerParticipant < 1 || f.TurnsPerParticipant > 10 {
		return errors.NewValidationError("turns per participant must be between 1 and 10").
			WithField("turns_per_participant").WithValue(f.TurnsPerParticipant)
	}
	if f.BarsPerTurn < 1 || f.BarsPerTurn > 32 {
		return errors.NewValidationError("bars per turn must be between 1 and 32").
			WithField("bars_per_turn").WithValue(f.BarsPerTurn)
	}
	if !slices.Contains(ValidTurnOrders(), string(f.TurnOrder)) {
		return errors.NewValidationError("unknown turn order").
			WithField("turn_order").WithValue(f.TurnOrder)
	}
	if !slices.Contains(ValidStyles(), string(f.Style)) {
		return errors.NewValidationError("unknown style").
			WithField("style").WithValue(f.Style)
	}
	return nil
}

// RoundOrder returns the speaking order for a 1-based round index.
func (o TurnOrder) RoundOrder(round int) [2]Side {
	if o == OrderAlternating && round%2 == 0 {
		return [2]Side{SideB, SideA}
	}
	return [2]Side{SideA, SideB}
}

// Slot is one scheduled turn position.
type Slot struct {
	Round int
	Index int // 1-based across the whole session
	Side  Side
	Last  bool // last slot of its round
}

// Schedule expands the format into its ordered list of turn slots.
func (f Format) Schedule() []Slot {
	slots := make([]Slot, 0, f.TotalTurns())
	index := 0
	for round := 1; round <= f.Rounds(); round++ {
		order := f.TurnOrder.RoundOrder(round)
		for pos, side := range order {
			index++
			slots = append(slots, Slot{
				Round: round,
				Index: index,
				Side:  side,
				Last:  pos == len(order)-1,
			})
		}
	}
	return slots
}
