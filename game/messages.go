// Package game implements the Player and Game actors and the Lobby
// handshake (spec §4.4-§4.6): the bounded group of Players that make up one
// match, and the two-phase create-game/join-all protocol that starts one.
package game

import (
	"sort"

	"github.com/lguibr/sc2-proxy/sc2types"
)

// PlayerData is derived from a client's join request (spec §3).
type PlayerData struct {
	Race             sc2types.Race
	Name             string
	InterfaceOptions map[string]bool
}

// EndReason distinguishes a normally-completed match from one torn down by
// operator command.
type EndReason string

const (
	EndNormal        EndReason = "Normal"
	EndQuitRequested EndReason = "QuitRequested"
)

// Result is the Game actor's final report (spec §3's GameResult).
type Result struct {
	GameID     uint64
	EndReason  EndReason
	PerPlayer  []sc2types.Outcome
	Survivors  []*Player
}

// toGame is the sealed set of messages a Player sends to its Game (spec
// §4.6's aggregated ToGame channel). Each variant is the tagged payload
// for one terminal or mid-match event a Player can report.
type toGame struct {
	fromIndex int
	kind      toGameKind
	results   []sc2types.PlayerOutcome
}

type toGameKind int

const (
	toGameGameOver toGameKind = iota
	toGameLeftGame
	toGameQuitBeforeLeave
	toGameSC2UnexpectedClose
	toGameUnexpectedClose
	toGamePanicked
	toGameTimeLimitExceeded
)

// fromSupervisor is the Supervisor -> Game control message (spec §9's
// GameHandle.command_tx).
type fromSupervisor struct {
	quit bool
}

// sortedOutcomes returns results sorted by player id ascending, guaranteeing
// that every Player observing the same observation frame reports a
// byte-identical GameOver vector (spec §4.4 step 6, testable property #6).
func sortedOutcomes(results []sc2types.PlayerOutcome) []sc2types.PlayerOutcome {
	out := make([]sc2types.PlayerOutcome, len(results))
	copy(out, results)
	sort.Slice(out, func(i, j int) bool { return out[i].PlayerID < out[j].PlayerID })
	return out
}
