// internal/game/engine.go
//
// Session state machine for a single gallery table.
// Responsibilities:
//   - Own the authoritative State and balloon grid.
//   - Drive transitions: start → playing → gameover, playing → playing
//     (level complete), any → start (go home).
//   - Run the resolver for every shot and apply its outcome.
//   - Hand commentary requests to the table's Narrator.
//
// Notes:
//   - Every exported method is a critical section; transitions are applied
//     one at a time and counted by Seq.
//   - The Narrator runs its fetches asynchronously and only ever touches
//     commentary, never State.

package game

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/explosion-station/internal/commentary"
	"github.com/robalobadob/explosion-station/internal/rules"
)

// Narrator is the commentary side of a table. *commentary.Throttler
// satisfies it.
type Narrator interface {
	Request(req commentary.Request) bool
	Intro(playerName string)
	Reset()
	Close()
	Status() commentary.Status
}

// Engine is one table's game session.
type Engine struct {
	ID string

	rules    rules.Rules
	narrator Narrator
	now      func() time.Time

	mu       sync.Mutex
	rng      *rand.Rand
	state    State
	balloons []Balloon
	cause    string
	seq      uint64
	touched  time.Time
}

// Option customises an Engine.
type Option func(*Engine)

// WithRand seeds grid generation.
func WithRand(r *rand.Rand) Option {
	return func(e *Engine) { e.rng = r }
}

// WithClock replaces time.Now for activity tracking.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewID returns a fresh table identifier.
func NewID() string { return uuid.NewString() }

// New constructs a table in the start state.
func New(id string, r rules.Rules, n Narrator, opts ...Option) *Engine {
	e := &Engine{
		ID:       id,
		rules:    r,
		narrator: n,
		now:      time.Now,
		rng:      rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, o := range opts {
		o(e)
	}
	e.state = e.initialState()
	e.touched = e.now()
	return e
}

func (e *Engine) initialState() State {
	return State{
		Ammo:   e.rules.InitialAmmo,
		Lives:  e.rules.InitialLives,
		Level:  1,
		Status: StatusStart,
		Weapon: WeaponRifle,
	}
}

// Start seats a player and begins level 1. Allowed from start and gameover.
func (e *Engine) Start(name string) error {
	name = strings.TrimSpace(name)
	e.mu.Lock()
	defer e.mu.Unlock()

	if name == "" {
		return ErrEmptyName
	}
	if e.state.Status == StatusPlaying {
		return fmt.Errorf("%w: start while playing", ErrInvalidTransition)
	}

	e.state = e.initialState()
	e.state.PlayerName = name
	e.state.Status = StatusPlaying
	e.balloons = GenerateGrid(e.state.Level, e.rules, e.rng)
	e.cause = ""
	e.bump()

	e.narrator.Reset()
	e.narrator.Intro(name)

	log.Info().Str("sid", e.ID).Str("player", name).Msg("game started")
	return nil
}

// GoHome abandons the current game and returns to the start state.
// It is a no-op on the start screen.
func (e *Engine) GoHome() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.Status == StatusStart {
		return
	}
	e.state = e.initialState()
	e.balloons = nil
	e.cause = ""
	e.bump()
	e.narrator.Reset()

	log.Info().Str("sid", e.ID).Msg("returned home")
}

// SelectWeapon swaps the cosmetic weapon. Needs a seated player.
func (e *Engine) SelectWeapon(name string) error {
	w, err := ParseWeapon(name)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.Status == StatusStart {
		return fmt.Errorf("%w: no player seated", ErrInvalidTransition)
	}
	e.state.Weapon = w
	e.bump()
	e.narrator.Request(commentary.Request{
		Event:      fmt.Sprintf("Switched to %s. Won't help your loser energy.", w),
		Score:      e.state.Score,
		Ammo:       e.state.Ammo,
		PlayerName: e.state.PlayerName,
		Force:      true,
	})
	return nil
}

// Result reports what a shot did.
type Result struct {
	Applied       bool
	Reason        error
	Events        []Event
	LevelComplete bool
	GameOver      bool
}

// Hit fires at balloon id.
func (e *Engine) Hit(id string, at Point) Result { return e.apply(Hit(id, at)) }

// Miss fires at empty space.
func (e *Engine) Miss(at Point) Result { return e.apply(Miss(at)) }

func (e *Engine) apply(act Action) Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := Resolve(e.state, e.balloons, act, e.rules)
	if !out.Applied {
		log.Debug().Str("sid", e.ID).Str("action", string(act.Kind)).Err(out.Reason).Msg("shot ignored")
		return Result{Reason: out.Reason}
	}

	e.state = out.State
	e.balloons = out.Balloons
	if out.Cause != "" {
		e.cause = out.Cause
	}
	if out.LevelComplete {
		e.completeLevel()
	}
	e.bump()

	for _, req := range out.Requests {
		e.narrator.Request(req)
	}

	ev := log.Debug()
	if e.state.Status == StatusGameOver {
		ev = log.Info()
	}
	ev.Str("sid", e.ID).
		Str("action", string(act.Kind)).
		Str("status", string(e.state.Status)).
		Int("score", e.state.Score).
		Int("ammo", e.state.Ammo).
		Int("lives", e.state.Lives).
		Int("level", e.state.Level).
		Msg("shot resolved")

	return Result{
		Applied:       true,
		Events:        out.Events,
		LevelComplete: out.LevelComplete,
		GameOver:      e.state.Status == StatusGameOver,
	}
}

// completeLevel advances to the next level with a fresh grid and a full
// magazine. Callers hold e.mu.
func (e *Engine) completeLevel() {
	e.state.Level++
	e.state.Ammo = e.rules.InitialAmmo
	e.state.Streak = 0
	e.balloons = GenerateGrid(e.state.Level, e.rules, e.rng)
}

// bump records an applied transition. Callers hold e.mu.
func (e *Engine) bump() {
	e.seq++
	e.touched = e.now()
}

// Snapshot is a deep copy of the table for rendering.
type Snapshot struct {
	ID         string            `json:"id"`
	Seq        uint64            `json:"seq"`
	State      State             `json:"state"`
	Balloons   []Balloon         `json:"balloons"`
	Cause      string            `json:"cause,omitempty"`
	Commentary commentary.Status `json:"commentary"`
}

// Snapshot returns the current table for the client.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	bs := make([]Balloon, len(e.balloons))
	copy(bs, e.balloons)
	return Snapshot{
		ID:         e.ID,
		Seq:        e.seq,
		State:      e.state,
		Balloons:   bs,
		Cause:      e.cause,
		Commentary: e.narrator.Status(),
	}
}

// Commentary returns only the speech bubble.
func (e *Engine) Commentary() commentary.Status { return e.narrator.Status() }

// IdleSince reports when the table last changed.
func (e *Engine) IdleSince() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.touched
}

// Close tears the table down; pending commentary is discarded.
func (e *Engine) Close() { e.narrator.Close() }
