// internal/game/player.go
package game

import (
	"encoding/json"
	"fmt"
)

// Player is the per-player state carried in every snapshot. The meaning of
// Ready depends on the current phase (name chosen, answers given, character
// built, introduction done, room finished).
type Player struct {
	Name            string          `json:"name"`
	Ready           bool            `json:"ready"`
	Stats           *PlayerStats    `json:"stats,omitempty"`
	Condition       Condition       `json:"condition"`
	MentalCondition MentalCondition `json:"mental_condition"`
	ArtifactUsed    bool            `json:"artifact_used"`
}

// NewPlayer returns a fresh player record in the pre-lobby default state.
func NewPlayer() Player {
	return Player{
		Condition:       ConditionHale,
		MentalCondition: MentalHale,
	}
}

// Alive reports whether the player can still be targeted by challenges.
func (p *Player) Alive() bool {
	return p.Condition != ConditionDead && p.MentalCondition != MentalPossessed
}

// TakeWound degrades the physical condition one step. Dead is terminal.
func (p *Player) TakeWound() {
	switch p.Condition {
	case ConditionHale:
		p.Condition = ConditionWounded
	case ConditionWounded:
		p.Condition = ConditionCritical
	case ConditionCritical:
		p.Condition = ConditionDead
	}
}

// ResistPossession degrades the mental condition one step. Possessed is terminal.
func (p *Player) ResistPossession() {
	switch p.MentalCondition {
	case MentalHale:
		p.MentalCondition = MentalResisted
	case MentalResisted:
		p.MentalCondition = MentalPossessed
	}
}

// PlayerStats holds the character sheet built during character creation.
type PlayerStats struct {
	Name           string       `json:"name"`
	Speciality     Speciality   `json:"speciality"`
	Reputation     Reputation   `json:"reputation"`
	Heroic         int          `json:"heroic"`
	Booksmart      int          `json:"booksmart"`
	Streetwise     int          `json:"streetwise"`
	ArtifactName   string       `json:"artifact_name"`
	ArtifactOrigin string       `json:"artifact_origin"`
	ArtifactBoon   ArtifactBoon `json:"artifact_boon"`
}

// DefaultStats returns the character sheet the client starts from.
func DefaultStats() PlayerStats {
	return PlayerStats{
		Speciality:   Speciality{Kind: SpecialityReligion},
		Reputation:   Reputation{Kind: ReputationAmbitious},
		Heroic:       3,
		Booksmart:    1,
		Streetwise:   1,
		ArtifactBoon: BoonReroll,
	}
}

// AttributeValue returns the number of base dice for the given attribute.
func (s *PlayerStats) AttributeValue(attr Attribute) int {
	switch attr {
	case AttributeHeroic:
		return s.Heroic
	case AttributeBooksmart:
		return s.Booksmart
	case AttributeStreetwise:
		return s.Streetwise
	}
	return 0
}

// Valid reports whether the sheet satisfies the character creation rules:
// non-empty names, every attribute at least 1 and the three summing to 5.
func (s *PlayerStats) Valid() bool {
	return s.Name != "" &&
		s.ArtifactName != "" &&
		s.ArtifactOrigin != "" &&
		s.Heroic >= 1 && s.Booksmart >= 1 && s.Streetwise >= 1 &&
		s.Heroic+s.Booksmart+s.Streetwise == 5
}

// Attribute identifies one of the three character attributes.
type Attribute string

const (
	AttributeHeroic     Attribute = "heroic"
	AttributeBooksmart  Attribute = "booksmart"
	AttributeStreetwise Attribute = "streetwise"
)

// Valid reports whether the attribute is one of the three known values.
func (a Attribute) Valid() bool {
	switch a {
	case AttributeHeroic, AttributeBooksmart, AttributeStreetwise:
		return true
	}
	return false
}

// Condition is the physical state of a player. Transitions are monotone:
// hale -> wounded -> critical -> dead.
type Condition string

const (
	ConditionHale     Condition = "hale"
	ConditionWounded  Condition = "wounded"
	ConditionCritical Condition = "critical"
	ConditionDead     Condition = "dead"
)

// MentalCondition is the possession state of a player. Transitions are
// monotone: hale -> resisted -> possessed.
type MentalCondition string

const (
	MentalHale      MentalCondition = "hale"
	MentalResisted  MentalCondition = "resisted"
	MentalPossessed MentalCondition = "possessed"
)

// ArtifactBoon is the one-shot power granted by a character's artifact.
type ArtifactBoon string

const (
	BoonReroll           ArtifactBoon = "reroll"
	BoonRollWithPlusTwo  ArtifactBoon = "roll_with_plus_two"
	BoonSuccessOnFive    ArtifactBoon = "success_on_five"
	BoonSuccessOnDoubles ArtifactBoon = "success_on_doubles"
)

// SpecialityKind enumerates the predefined fields of expertise; the "other"
// case carries a free-form payload on the Speciality wrapper.
type SpecialityKind string

const (
	SpecialityReligion           SpecialityKind = "religion"
	SpecialityLinguistics        SpecialityKind = "linguistics"
	SpecialityArchitecture       SpecialityKind = "architecture"
	SpecialityWarAndWeaponry     SpecialityKind = "war_and_weaponry"
	SpecialityGemsAndMetals      SpecialityKind = "gems_and_metals"
	SpecialitySecretSignsSymbols SpecialityKind = "secret_signs_symbols"
	SpecialityOsteology          SpecialityKind = "osteology"
	SpecialityDeathAndBurial     SpecialityKind = "death_and_burial"
	SpecialityOther              SpecialityKind = "other"
)

// Speciality is a speciality choice. Known kinds encode as a bare snake_case
// string; the free-form case encodes as {"other": "..."}.
type Speciality struct {
	Kind  SpecialityKind
	Other string
}

func (s Speciality) MarshalJSON() ([]byte, error) {
	if s.Kind == SpecialityOther {
		return json.Marshal(map[string]string{"other": s.Other})
	}
	return json.Marshal(string(s.Kind))
}

func (s *Speciality) UnmarshalJSON(data []byte) error {
	var kind string
	if err := json.Unmarshal(data, &kind); err == nil {
		switch SpecialityKind(kind) {
		case SpecialityReligion, SpecialityLinguistics, SpecialityArchitecture,
			SpecialityWarAndWeaponry, SpecialityGemsAndMetals,
			SpecialitySecretSignsSymbols, SpecialityOsteology, SpecialityDeathAndBurial:
			s.Kind = SpecialityKind(kind)
			s.Other = ""
			return nil
		}
		return fmt.Errorf("unknown speciality %q", kind)
	}
	var tagged map[string]string
	if err := json.Unmarshal(data, &tagged); err != nil {
		return err
	}
	other, ok := tagged["other"]
	if !ok {
		return fmt.Errorf("invalid speciality payload")
	}
	s.Kind = SpecialityOther
	s.Other = other
	return nil
}

// ReputationKind enumerates the predefined reputations; the "other" case
// carries a free-form payload on the Reputation wrapper.
type ReputationKind string

const (
	ReputationAmbitious    ReputationKind = "ambitious"
	ReputationGenius       ReputationKind = "genius"
	ReputationRuthless     ReputationKind = "ruthless"
	ReputationSenile       ReputationKind = "senile"
	ReputationMadScientist ReputationKind = "mad_scientist"
	ReputationBornLeader   ReputationKind = "born_leader"
	ReputationRulebreaker  ReputationKind = "rulebreaker"
	ReputationObsessive    ReputationKind = "obsessive"
	ReputationOther        ReputationKind = "other"
)

// Reputation is a reputation choice with the same encoding as Speciality.
type Reputation struct {
	Kind  ReputationKind
	Other string
}

func (r Reputation) MarshalJSON() ([]byte, error) {
	if r.Kind == ReputationOther {
		return json.Marshal(map[string]string{"other": r.Other})
	}
	return json.Marshal(string(r.Kind))
}

func (r *Reputation) UnmarshalJSON(data []byte) error {
	var kind string
	if err := json.Unmarshal(data, &kind); err == nil {
		switch ReputationKind(kind) {
		case ReputationAmbitious, ReputationGenius, ReputationRuthless,
			ReputationSenile, ReputationMadScientist, ReputationBornLeader,
			ReputationRulebreaker, ReputationObsessive:
			r.Kind = ReputationKind(kind)
			r.Other = ""
			return nil
		}
		return fmt.Errorf("unknown reputation %q", kind)
	}
	var tagged map[string]string
	if err := json.Unmarshal(data, &tagged); err != nil {
		return err
	}
	other, ok := tagged["other"]
	if !ok {
		return fmt.Errorf("invalid reputation payload")
	}
	r.Kind = ReputationOther
	r.Other = other
	return nil
}
