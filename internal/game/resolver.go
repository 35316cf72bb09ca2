// internal/game/resolver.go
//
// Pop resolution: the pure state transition applied for every shot.
//
// Resolve never mutates its inputs and never fails loudly; a shot that is
// not allowed comes back with Applied=false and a Reason.
//
// Hit on a hazard:
//   - lives -1, streak reset, forced commentary.
//   - at zero lives the table goes to gameover with a cause.
//
// Hit on a normal balloon:
//   - score += points, streak +1.
//   - every streak of exactly StreakPrize shows the teddy and forces
//     commentary; the HasTeddy flag only ever flips once.
//   - score prizes (each at most once per session):
//       score  >= ConsolationScore  → consolation
//       score  >= MiniPrizeScore    → mini prize
//   - when LevelClearRemaining or fewer normal balloons are left the level
//     is complete (forced commentary); otherwise, below the streak prize,
//     a throttled "hit" line is requested.
//
// Hits never spend ammo. A miss spends one round and resets the streak;
// the last round ends the game.

package game

import (
	"fmt"
	"strings"

	"github.com/robalobadob/explosion-station/internal/commentary"
	"github.com/robalobadob/explosion-station/internal/rules"
)

// Outcome is the result of resolving one action.
type Outcome struct {
	Applied  bool
	Reason   error
	State    State
	Balloons []Balloon
	Events   []Event
	Requests []commentary.Request
	// LevelComplete asks the caller to advance the level and regenerate
	// the grid.
	LevelComplete bool
	// Cause is set when this action ended the game.
	Cause string
}

// Resolve applies act to (st, balloons) under rules r.
func Resolve(st State, balloons []Balloon, act Action, r rules.Rules) Outcome {
	out := Outcome{State: st, Balloons: balloons}
	switch {
	case st.Status != StatusPlaying:
		out.Reason = ErrNotPlaying
		return out
	case st.Ammo <= 0:
		out.Reason = ErrNoAmmo
		return out
	}

	switch act.Kind {
	case ActionHit:
		resolveHit(&out, act, r)
	case ActionMiss:
		resolveMiss(&out, act)
	default:
		out.Reason = fmt.Errorf("%w: action %q", ErrInvalidTransition, act.Kind)
	}
	return out
}

func resolveHit(out *Outcome, act Action, r rules.Rules) {
	idx := -1
	for i := range out.Balloons {
		if out.Balloons[i].ID == act.BalloonID {
			idx = i
			break
		}
	}
	if idx < 0 {
		out.Reason = ErrUnknownBalloon
		return
	}
	if out.Balloons[idx].Popped {
		out.Reason = ErrAlreadyPopped
		return
	}

	next := make([]Balloon, len(out.Balloons))
	copy(next, out.Balloons)
	next[idx].Popped = true
	b := next[idx]

	out.Applied = true
	out.Balloons = next
	st := &out.State

	if b.Kind == KindHazard {
		st.Lives--
		st.Streak = 0
		out.emit(EventLifeLost, "💔 -1 LIFE", act.At, "")
		if st.Lives <= 0 {
			st.Lives = 0
			st.Status = StatusGameOver
			out.Cause = fmt.Sprintf("THE CHAMP IS GONE! You finally paid the full Junnel Tax, %s.", st.PlayerName)
			out.request(fmt.Sprintf("%s hit a final boom and lost their last life. Mock them!", st.PlayerName), st.Score, st.Ammo, true)
			return
		}
		out.emit(EventBoom, "💥 BOOM!", act.At, "")
		out.request(fmt.Sprintf("Hit a boom! Only %d lives left. Loser Energy!", st.Lives), st.Score, st.Ammo, true)
		return
	}

	st.Score += b.Points
	st.Streak++
	out.emit(EventScore, fmt.Sprintf("+%d", b.Points), act.At, "")

	if st.Streak == r.StreakPrize {
		st.HasTeddy = true
		out.emit(EventPrize, "🧸 BIG TEDDY WON!", act.At, PrizeTeddy)
		out.request(fmt.Sprintf("Player actually hit a %d streak? I guess %s earned the bear...", st.Streak, st.PlayerName), st.Score, st.Ammo, true)
	}
	if st.Score >= r.ConsolationScore && !st.HasConsolation {
		st.HasConsolation = true
		out.emit(EventPrize, "🤖 SOFT TOY WON!", act.At, PrizeConsolation)
	}
	if st.Score >= r.MiniPrizeScore && !st.HasMiniPrize {
		st.HasMiniPrize = true
		out.emit(EventPrize, "🐟 MINI PRIZE WON!", act.At, PrizeMini)
	}

	if remainingNormal(next) <= r.LevelClearRemaining {
		out.LevelComplete = true
		out.emit(EventLevelComplete, fmt.Sprintf("LEVEL %d CLEARED!", st.Level), act.At, "")
		out.request("Stage cleared? My pockets are still fatter than yours!", st.Score, r.InitialAmmo, true)
		return
	}
	if st.Streak < r.StreakPrize {
		out.request("Hit a balloon. Big deal.", st.Score, st.Ammo, false)
	}
}

func resolveMiss(out *Outcome, act Action) {
	out.Applied = true
	st := &out.State
	st.Ammo--
	st.Streak = 0
	out.emit(EventMiss, "MISS", act.At, "")

	if st.Ammo <= 0 {
		st.Ammo = 0
		st.Status = StatusGameOver
		out.Cause = fmt.Sprintf("TIME IS MONEY, %s! You're out of ammo and patience!", strings.ToUpper(st.PlayerName))
		out.request("Out of ammo. Another loser for the pile!", st.Score, 0, true)
		return
	}
	out.request("MISS! Did you leave your brain in the lobby?", st.Score, st.Ammo, false)
}

// remainingNormal counts un-popped normal balloons; hazards never count.
func remainingNormal(bs []Balloon) int {
	n := 0
	for _, b := range bs {
		if b.Kind == KindNormal && !b.Popped {
			n++
		}
	}
	return n
}

func (o *Outcome) emit(kind EventKind, text string, at Point, prize Prize) {
	o.Events = append(o.Events, Event{Kind: kind, Text: text, At: at, Prize: prize})
}

func (o *Outcome) request(event string, score, ammo int, force bool) {
	o.Requests = append(o.Requests, commentary.Request{
		Event:      event,
		Score:      score,
		Ammo:       ammo,
		PlayerName: o.State.PlayerName,
		Force:      force,
	})
}
