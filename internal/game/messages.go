// internal/game/messages.go
package game

import (
	"github.com/google/uuid"
)

// MessageType is the string discriminator carried in the "cmd" field of every
// frame in both directions.
type MessageType string

// Client -> server commands.
const (
	CmdSetPlayerName        MessageType = "set_player_name"
	CmdReadyForGame         MessageType = "ready_for_game"
	CmdVoteKickPlayer       MessageType = "vote_kick_player"
	CmdRevertVoteKickPlayer MessageType = "revert_vote_kick_player"
	CmdAnswers              MessageType = "answers"
	CmdSetCharacter         MessageType = "set_character"
	CmdRejectClue           MessageType = "reject_clue"
	CmdOfferChallenge       MessageType = "offer_challenge"
	CmdOfferChallengeFinal  MessageType = "offer_challenge_final"
	CmdChallengeAccepted    MessageType = "challenge_accepted"
	CmdChallengeRejected    MessageType = "challenge_rejected"
	CmdUseArtifact          MessageType = "use_artifact"
	CmdTakeWound            MessageType = "take_wound"
	CmdAcceptFate           MessageType = "accept_fate"
)

// Server -> client commands.
const (
	CmdGameIsFull            MessageType = "game_is_full"
	CmdGameIsOngoing         MessageType = "game_is_ongoing"
	CmdPushState             MessageType = "push_state"
	CmdQuestions             MessageType = "questions"
	CmdPushClue              MessageType = "push_clue"
	CmdClueRejectionRejected MessageType = "clue_rejection_rejected"
	CmdReceivedChallenge     MessageType = "received_challenge"
	CmdAbortedChallenge      MessageType = "aborted_challenge"
	CmdChallengeResult       MessageType = "challenge_result"
	CmdEndGame               MessageType = "end_game"
)

// ClientMessage is the decoded form of an inbound frame. All payload fields
// are optional; which ones are meaningful depends on Cmd and on the current
// phase. Messages invalid for the phase or the sender's role are ignored.
type ClientMessage struct {
	Cmd MessageType `json:"cmd"`

	// set_player_name
	Name string `json:"name,omitempty"`
	// vote_kick_player / revert_vote_kick_player
	PlayerID uuid.UUID `json:"player_id,omitempty"`
	// answers
	Answers []string `json:"answers,omitempty"`
	// set_character
	Stats *PlayerStats `json:"stats,omitempty"`
	// offer_challenge / offer_challenge_final
	Challenge *Challenge `json:"challenge,omitempty"`
	// offer_challenge_final
	ClueIdx *int `json:"clue_idx,omitempty"`
}

// ServerMessage is implemented by every outbound frame type.
type ServerMessage interface {
	serverMessage()
}

// Notice is an outbound frame consisting of nothing but a command, used for
// game_is_full, game_is_ongoing, clue_rejection_rejected, aborted_challenge
// and end_game.
type Notice struct {
	Cmd MessageType `json:"cmd"`
}

func (Notice) serverMessage() {}

func notice(cmd MessageType) Notice { return Notice{Cmd: cmd} }

// PushState is the full-state snapshot broadcast after every state-changing
// event. It is the sole mechanism clients use to learn game state.
type PushState struct {
	Cmd             MessageType               `json:"cmd"`
	Players         map[uuid.UUID]Player      `json:"players"`
	GameState       GameState                 `json:"game_state"`
	PlayerKickVotes map[uuid.UUID][]uuid.UUID `json:"player_kick_votes"`
	KnownClues      []Clue                    `json:"known_clues"`
}

func (PushState) serverMessage() {}

// QuestionPrompt pairs a question text with the sender's current answer, if
// any. Sent privately during define-evil and replayed on reconnect.
type QuestionPrompt struct {
	Question string  `json:"question"`
	Answer   *string `json:"answer,omitempty"`
}

// Questions delivers a player's two assigned worldbuilding questions.
type Questions struct {
	Cmd       MessageType      `json:"cmd"`
	Questions []QuestionPrompt `json:"questions"`
}

func (Questions) serverMessage() {}

// PushClue privately hands the current room's clue to the game master.
type PushClue struct {
	Cmd  MessageType `json:"cmd"`
	Clue Clue        `json:"clue"`
}

func (PushClue) serverMessage() {}

// ReceivedChallenge notifies the targeted player of a pending challenge.
type ReceivedChallenge struct {
	Cmd       MessageType `json:"cmd"`
	Challenge Challenge   `json:"challenge"`
	// ClueIdx is set only for final battle challenges.
	ClueIdx *int `json:"clue_idx,omitempty"`
}

func (ReceivedChallenge) serverMessage() {}

// ChallengeResult reports a roll that needs a follow-up decision from the
// targeted player (use artifact, take a wound, or accept fate).
type ChallengeResult struct {
	Cmd            MessageType `json:"cmd"`
	Rolls          []int       `json:"rolls"`
	Success        bool        `json:"success"`
	Possession     bool        `json:"possession"`
	CanUseArtifact bool        `json:"can_use_artifact"`
}

func (ChallengeResult) serverMessage() {}

// Phase tags the current position in the fixed phase sequence.
type Phase string

const (
	PhaseLobby                 Phase = "lobby"
	PhaseDefineEvil            Phase = "define_evil"
	PhaseCharacterCreation     Phase = "character_creation"
	PhaseCharacterIntroduction Phase = "character_introduction"
	PhaseRoom                  Phase = "room"
	PhaseFinalBattle           Phase = "final_battle"
	PhaseVictory               Phase = "victory"
	PhaseFailure               Phase = "failure"
)

// GameState is the phase tag plus its phase-local fields. Exactly one of the
// optional sub-structs is set while the matching phase is active.
type GameState struct {
	Phase       Phase             `json:"phase"`
	Room        *RoomState        `json:"room,omitempty"`
	FinalBattle *FinalBattleState `json:"final_battle,omitempty"`
}

// RoomState is the room-phase portion of a snapshot. Challenge is only
// populated on snapshots sent to the GM and the targeted player.
type RoomState struct {
	RoomIdx   int        `json:"room_idx"`
	GM        uuid.UUID  `json:"gm"`
	Successes int        `json:"successes"`
	Failures  int        `json:"failures"`
	Challenge *Challenge `json:"challenge,omitempty"`
}

// FinalBattleState is the final-battle portion of a snapshot. Challenge and
// ChosenClue are only populated for the GMs and the targeted player.
type FinalBattleState struct {
	GMs             []uuid.UUID `json:"gms"`
	Successes       int         `json:"successes"`
	TargetSuccesses int         `json:"target_successes"`
	RemainingClues  []Clue      `json:"remaining_clues"`
	Challenge       *Challenge  `json:"challenge,omitempty"`
	ChosenClue      *int        `json:"chosen_clue,omitempty"`
}
