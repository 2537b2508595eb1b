package simulator

import (
	"fmt"
	"math/rand/v2"

	"github.com/okian/matchtrack/internal/domain/model"
)

// Transition weights of the possession sequence, in percent.
const (
	passWeight      = 60
	dribbleWeight   = 20
	firstShirt      = 1
	defaultTeamSize = 11
)

var positions = []string{"GK", "DF", "DF", "DF", "DF", "MF", "MF", "MF", "FW", "FW", "FW"} //nolint:gochecknoglobals // read-only

// Roster builds teamSize players per side with ids unique to matchID.
func Roster(matchID string, teamSize int) []model.Player {
	if teamSize <= 0 {
		teamSize = defaultTeamSize
	}
	players := make([]model.Player, 0, 2*teamSize)
	for _, team := range []model.TeamSide{model.TeamHome, model.TeamAway} {
		for i := 0; i < teamSize; i++ {
			players = append(players, model.Player{
				ID:       fmt.Sprintf("%s-%s-%02d", matchID, team, i+firstShirt),
				Number:   i + firstShirt,
				Name:     fmt.Sprintf("%s player %d", team, i+firstShirt),
				Team:     team,
				Position: positions[i%len(positions)],
			})
		}
	}
	return players
}

// Sequence generates n ball holders. From the current holder the ball is
// passed to a teammate, kept, or lost to the other side.
func Sequence(players []model.Player, n int, seed uint64) []model.Player {
	if n <= 0 || len(players) == 0 {
		return nil
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	bySide := map[model.TeamSide][]model.Player{}
	for _, p := range players {
		bySide[p.Team] = append(bySide[p.Team], p)
	}
	other := func(t model.TeamSide) model.TeamSide {
		if t == model.TeamHome {
			return model.TeamAway
		}
		return model.TeamHome
	}
	pick := func(side []model.Player, not string) model.Player {
		if len(side) == 1 {
			return side[0]
		}
		for {
			p := side[rng.IntN(len(side))]
			if p.ID != not {
				return p
			}
		}
	}

	out := make([]model.Player, 0, n)
	holder := players[rng.IntN(len(players))]
	out = append(out, holder)
	for len(out) < n {
		roll := rng.IntN(100)
		switch {
		case roll < passWeight:
			holder = pick(bySide[holder.Team], holder.ID)
		case roll < passWeight+dribbleWeight:
		default:
			if side := bySide[other(holder.Team)]; len(side) > 0 {
				holder = pick(side, "")
			}
		}
		out = append(out, holder)
	}
	return out
}

// ExpectedMoves counts holder changes. Every change is inferred as a pass
// or an interception regardless of timing.
func ExpectedMoves(seq []model.Player) int {
	moves := 0
	for i := 1; i < len(seq); i++ {
		if seq[i].ID != seq[i-1].ID {
			moves++
		}
	}
	return moves
}
