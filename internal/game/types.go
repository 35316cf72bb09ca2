// internal/game/types.go
//
// Core type definitions for the gallery engine.
// Defines:
//   - Balloon: one grid cell (normal or hazard).
//   - State: the authoritative per-table game state.
//   - Action: a player shot (hit on a balloon id, or a miss).
//   - Event: presentation feedback emitted by the resolver.

package game

import "errors"

// Kind classifies a balloon.
type Kind string

const (
	KindNormal Kind = "normal"
	KindHazard Kind = "hazard"
)

// Balloon is one grid cell's contents.
type Balloon struct {
	ID     string `json:"id"`
	Kind   Kind   `json:"kind"`
	Points int    `json:"points"`
	Color  string `json:"color"`
	Popped bool   `json:"popped"`
	Row    int    `json:"row"`
	Col    int    `json:"col"`
}

// Status is the table's position in the start → playing → gameover cycle.
type Status string

const (
	StatusStart    Status = "start"
	StatusPlaying  Status = "playing"
	StatusGameOver Status = "gameover"
)

// Weapon is cosmetic; it never changes odds or scoring.
type Weapon string

const (
	WeaponRifle   Weapon = "rifle"
	WeaponAK47    Weapon = "ak47"
	WeaponSniper  Weapon = "sniper"
	WeaponHandgun Weapon = "handgun"
)

// ParseWeapon validates a weapon name from the client.
func ParseWeapon(s string) (Weapon, error) {
	switch w := Weapon(s); w {
	case WeaponRifle, WeaponAK47, WeaponSniper, WeaponHandgun:
		return w, nil
	}
	return "", ErrUnknownWeapon
}

// State holds the scoreboard and progression for one table.
type State struct {
	PlayerName     string `json:"playerName"`
	Score          int    `json:"score"`
	Ammo           int    `json:"ammo"`
	Lives          int    `json:"lives"`
	Level          int    `json:"level"`
	Status         Status `json:"status"`
	Streak         int    `json:"streak"`
	HasTeddy       bool   `json:"hasTeddy"`
	HasConsolation bool   `json:"hasConsolation"`
	HasMiniPrize   bool   `json:"hasMiniPrize"`
	Weapon         Weapon `json:"weapon"`
}

// Point is a client-side coordinate, echoed back on events.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ActionKind distinguishes hits from misses.
type ActionKind string

const (
	ActionHit  ActionKind = "hit"
	ActionMiss ActionKind = "miss"
)

// Action is one shot.
type Action struct {
	Kind      ActionKind
	BalloonID string // only for hits
	At        Point
}

// Hit builds a hit action.
func Hit(id string, at Point) Action { return Action{Kind: ActionHit, BalloonID: id, At: at} }

// Miss builds a miss action.
func Miss(at Point) Action { return Action{Kind: ActionMiss, At: at} }

// EventKind tags presentation feedback.
type EventKind string

const (
	EventScore         EventKind = "score"
	EventLifeLost      EventKind = "life_lost"
	EventBoom          EventKind = "boom"
	EventPrize         EventKind = "prize"
	EventMiss          EventKind = "miss"
	EventLevelComplete EventKind = "level_complete"
)

// Prize names the unlock carried by a prize event.
type Prize string

const (
	PrizeTeddy       Prize = "teddy"
	PrizeConsolation Prize = "consolation"
	PrizeMini        Prize = "mini"
)

// Event is a floating effect the client shows near the shot.
type Event struct {
	Kind  EventKind `json:"kind"`
	Text  string    `json:"text"`
	At    Point     `json:"at"`
	Prize Prize     `json:"prize,omitempty"`
}

var (
	ErrNotPlaying        = errors.New("game is not in progress")
	ErrNoAmmo            = errors.New("out of ammo")
	ErrUnknownBalloon    = errors.New("no such balloon")
	ErrAlreadyPopped     = errors.New("balloon already popped")
	ErrEmptyName         = errors.New("player name is required")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrUnknownWeapon     = errors.New("unknown weapon")
)
