// internal/commentary/types.go
//
// Stall-owner commentary: the line currently on display, the mood it was
// delivered in, and the external generator contract.

package commentary

import (
	"context"
	"errors"
)

// Mood is the stall owner's delivery for a line.
type Mood string

const (
	MoodHappy        Mood = "happy"
	MoodCheeky       Mood = "cheeky"
	MoodImpressed    Mood = "impressed"
	MoodDisappointed Mood = "disappointed"
)

// Valid reports whether m is one of the known moods.
func (m Mood) Valid() bool {
	switch m {
	case MoodHappy, MoodCheeky, MoodImpressed, MoodDisappointed:
		return true
	}
	return false
}

// Commentary is one displayed line.
type Commentary struct {
	Text string `json:"text"`
	Mood Mood   `json:"mood"`
}

// Request asks for a reaction to a game event.
// Force bypasses the cooldown.
type Request struct {
	Event      string
	Score      int
	Ammo       int
	PlayerName string
	Force      bool
}

// Service generates stall-owner lines. Implementations may block on the
// network and must honor ctx.
type Service interface {
	GenerateReaction(ctx context.Context, event string, score, ammo int, playerName string) (Commentary, error)
	GenerateIntro(ctx context.Context, playerName string) (string, error)
}

// ErrUnavailable is returned by services that cannot produce text at all.
var ErrUnavailable = errors.New("commentary service unavailable")

// Offline is a Service that always fails, leaving the throttler to serve
// canned lines. Used when no API key is configured.
type Offline struct{}

func (Offline) GenerateReaction(context.Context, string, int, int, string) (Commentary, error) {
	return Commentary{}, ErrUnavailable
}

func (Offline) GenerateIntro(context.Context, string) (string, error) {
	return "", ErrUnavailable
}
