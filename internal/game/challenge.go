// internal/game/challenge.go
package game

import (
	"github.com/google/uuid"
)

// Challenge is a GM-issued proposition targeting one player with an attribute
// and two optional dice modifiers.
type Challenge struct {
	PlayerID          uuid.UUID `json:"player_id"`
	Attribute         Attribute `json:"attribute"`
	SpecialityApplies bool      `json:"speciality_applies"`
	ReputationApplies bool      `json:"reputation_applies"`
}

// DiceCount returns how many dice the target rolls for this challenge.
func (c *Challenge) DiceCount(stats *PlayerStats) int {
	n := stats.AttributeValue(c.Attribute)
	if c.SpecialityApplies {
		n++
	}
	if c.ReputationApplies {
		n++
	}
	return n
}

// NaturalSuccess is the unmodified success predicate: at least one six.
func NaturalSuccess(rolls []int) bool {
	for _, die := range rolls {
		if die == 6 {
			return true
		}
	}
	return false
}

// BoonSuccess evaluates the success predicate under an applied artifact boon.
// SuccessOnFive and SuccessOnDoubles replace the natural predicate; Reroll and
// RollWithPlusTwo modify the dice instead, so the natural predicate stands.
func BoonSuccess(rolls []int, boon ArtifactBoon) bool {
	switch boon {
	case BoonSuccessOnFive:
		for _, die := range rolls {
			if die == 5 {
				return true
			}
		}
		return false
	case BoonSuccessOnDoubles:
		return hasDuplicate(rolls)
	default:
		return NaturalSuccess(rolls)
	}
}

// Possession reports the possession pattern: at least two ones or two twos.
func Possession(rolls []int) bool {
	var ones, twos int
	for _, die := range rolls {
		switch die {
		case 1:
			ones++
		case 2:
			twos++
		}
	}
	return ones >= 2 || twos >= 2
}

// CanUseArtifact decides whether the targeted player may spend their artifact
// on the rolled dice. An artifact only helps when there is something to fix:
// a failed roll the boon could turn around, or a possession a reroll could
// erase.
func CanUseArtifact(rolls []int, boon ArtifactBoon, used bool) bool {
	if used {
		return false
	}
	success := NaturalSuccess(rolls)
	possession := Possession(rolls)
	switch {
	case success && !possession:
		return false
	case possession && boon == BoonReroll:
		return true
	case !success:
		switch boon {
		case BoonSuccessOnFive:
			for _, die := range rolls {
				if die == 5 {
					return true
				}
			}
			return false
		case BoonSuccessOnDoubles:
			return hasDuplicate(rolls)
		default:
			return true
		}
	default:
		return false
	}
}

func hasDuplicate(rolls []int) bool {
	var seen [7]bool
	for _, die := range rolls {
		if die < 1 || die > 6 {
			continue
		}
		if seen[die] {
			return true
		}
		seen[die] = true
	}
	return false
}

// pendingChallenge tracks the nested challenge sub-state machine shared by
// the room and final battle phases. Rolls is nil until the target accepts;
// Boon is set once the artifact has been spent this challenge.
type pendingChallenge struct {
	Challenge Challenge
	Rolls     []int
	Boon      *ArtifactBoon
	// ClueIdx indexes the remaining clues during the final battle.
	ClueIdx int
}

// Success evaluates the possibly-boon-modified success predicate.
func (pc *pendingChallenge) Success() bool {
	if pc.Boon != nil {
		return BoonSuccess(pc.Rolls, *pc.Boon)
	}
	return NaturalSuccess(pc.Rolls)
}

// rollChallenge produces the initial roll for an accepted challenge, reports
// it to the target and decides whether it resolves immediately. A clean
// success needs no player decision; a success with possession auto-resolves
// only when the artifact is already spent, at the price of a degraded mental
// condition. Every other roll is held for one follow-up decision.
func (s *Session) rollChallenge(pc *pendingChallenge, target *Player) (resolved, success bool) {
	pc.Rolls = s.dice.RollD6(pc.Challenge.DiceCount(target.Stats))
	succ := NaturalSuccess(pc.Rolls)
	poss := Possession(pc.Rolls)

	s.unicast(pc.Challenge.PlayerID, ChallengeResult{
		Cmd:            CmdChallengeResult,
		Rolls:          pc.Rolls,
		Success:        succ,
		Possession:     poss,
		CanUseArtifact: CanUseArtifact(pc.Rolls, target.Stats.ArtifactBoon, target.ArtifactUsed),
	})

	if succ && !poss {
		return true, true
	}
	if succ && poss && target.ArtifactUsed {
		target.ResistPossession()
		return true, true
	}
	return false, false
}

// spendArtifact consumes the target's one-shot boon and transforms the held
// roll. A reroll replaces the dice, roll-with-plus-two appends two fresh
// dice, and the success-on variants leave the dice alone and shift the
// predicate. Returns whether the challenge resolved as a success; otherwise
// the new roll is reported and the decision stays with the target.
func (s *Session) spendArtifact(pc *pendingChallenge, target *Player) (resolved, success bool) {
	target.ArtifactUsed = true
	boon := target.Stats.ArtifactBoon
	pc.Boon = &boon

	switch boon {
	case BoonReroll:
		pc.Rolls = s.dice.RollD6(len(pc.Rolls))
	case BoonRollWithPlusTwo:
		pc.Rolls = append(pc.Rolls, s.dice.RollD6(2)...)
	}

	succ := BoonSuccess(pc.Rolls, boon)
	poss := Possession(pc.Rolls)
	s.unicast(pc.Challenge.PlayerID, ChallengeResult{
		Cmd:        CmdChallengeResult,
		Rolls:      pc.Rolls,
		Success:    succ,
		Possession: poss,
	})
	if succ {
		if poss {
			target.ResistPossession()
		}
		return true, true
	}
	return false, false
}

// acceptWound applies the take-wound choice: the condition degrades one step,
// a lingering possession pattern also degrades the mental condition, and the
// challenge counts as a success.
func acceptWound(pc *pendingChallenge, target *Player) {
	target.TakeWound()
	if Possession(pc.Rolls) {
		target.ResistPossession()
	}
}

// acceptFate finalizes the held roll as-is, returning whether it counts as a
// success. A possession pattern degrades the mental condition either way.
func acceptFate(pc *pendingChallenge, target *Player) bool {
	if Possession(pc.Rolls) {
		target.ResistPossession()
	}
	return pc.Success()
}
