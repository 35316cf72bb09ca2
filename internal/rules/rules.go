// internal/rules/rules.go
//
// Gallery rules: grid dimensions, hazard odds, ammo/lives allotments,
// prize thresholds and commentary pacing.
//
// Loading behavior (Load):
//   1. If RULES_FILE is set, read that YAML file.
//   2. Otherwise use the embedded assets/rules.yaml.
//   Fields missing from the document fall back to Default().
//   Canned fallback lines and the intro manifesto come from the embedded
//   assets unless the YAML overrides them.
//
// Environment variables:
//   RULES_FILE=/path/to/rules.yaml

package rules

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/robalobadob/explosion-station/assets"
)

// Rules is the full tunable rule set for one gallery.
type Rules struct {
	Rows              int      `yaml:"rows"`
	Cols              int      `yaml:"cols"`
	HazardProbability float64  `yaml:"hazardProbability"`
	Palette           []string `yaml:"palette"`

	InitialAmmo  int `yaml:"initialAmmo"`
	InitialLives int `yaml:"initialLives"`

	// LevelClearRemaining is the number of un-popped normal balloons at or
	// below which the level is complete.
	LevelClearRemaining int `yaml:"levelClearRemaining"`
	StreakPrize         int `yaml:"streakPrize"`
	ConsolationScore    int `yaml:"consolationScore"`
	MiniPrizeScore      int `yaml:"miniPrizeScore"`

	Commentary Commentary `yaml:"commentary"`
}

// Commentary holds the stall-owner pacing and offline content.
type Commentary struct {
	CooldownMs       int      `yaml:"cooldownMs"`
	RequestTimeoutMs int      `yaml:"requestTimeoutMs"`
	FallbackLines    []string `yaml:"fallbackLines"`
	IntroManifesto   string   `yaml:"introManifesto"`
}

// Cooldown is the minimum spacing between non-forced commentary requests.
func (c Commentary) Cooldown() time.Duration {
	return time.Duration(c.CooldownMs) * time.Millisecond
}

// RequestTimeout bounds a single call to the commentary service.
func (c Commentary) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMs) * time.Millisecond
}

// Default returns the stock carnival rules.
func Default() Rules {
	return Rules{
		Rows:                6,
		Cols:                10,
		HazardProbability:   0.30,
		Palette:             []string{"#ef4444", "#22c55e", "#3b82f6", "#eab308", "#d946ef", "#f97316", "#a855f7"},
		InitialAmmo:         5,
		InitialLives:        5,
		LevelClearRemaining: 5,
		StreakPrize:         5,
		ConsolationScore:    10,
		MiniPrizeScore:      25,
		Commentary: Commentary{
			CooldownMs:       5000,
			RequestTimeoutMs: 8000,
		},
	}
}

// Load reads RULES_FILE (or the embedded default), applies defaults for
// anything left out and validates the result.
func Load() (Rules, error) {
	var (
		data []byte
		src  = "embedded rules.yaml"
		err  error
	)
	if path := os.Getenv("RULES_FILE"); path != "" {
		src = path
		data, err = os.ReadFile(path)
	} else {
		data, err = assets.RulesYAML()
	}
	if err != nil {
		return Rules{}, fmt.Errorf("read %s: %w", src, err)
	}
	r, err := Parse(data)
	if err != nil {
		return Rules{}, fmt.Errorf("%s: %w", src, err)
	}
	return r, nil
}

// Parse decodes a rules document on top of Default().
func Parse(data []byte) (Rules, error) {
	r := Default()
	if err := yaml.Unmarshal(data, &r); err != nil {
		return Rules{}, fmt.Errorf("parse rules yaml: %w", err)
	}
	if err := r.fillContent(); err != nil {
		return Rules{}, err
	}
	if err := r.Validate(); err != nil {
		return Rules{}, fmt.Errorf("invalid rules: %w", err)
	}
	return r, nil
}

// fillContent pulls canned text from the embedded assets when the document
// did not provide its own.
func (r *Rules) fillContent() error {
	if len(r.Commentary.FallbackLines) == 0 {
		lines, err := assets.FallbackLines()
		if err != nil {
			return fmt.Errorf("load fallback lines: %w", err)
		}
		r.Commentary.FallbackLines = lines
	}
	if r.Commentary.IntroManifesto == "" {
		m, err := assets.Manifesto()
		if err != nil {
			return fmt.Errorf("load manifesto: %w", err)
		}
		r.Commentary.IntroManifesto = m
	}
	return nil
}

// Validate rejects rule sets the engine cannot play.
func (r Rules) Validate() error {
	switch {
	case r.Rows <= 0 || r.Cols <= 0:
		return fmt.Errorf("grid must be at least 1x1, got %dx%d", r.Rows, r.Cols)
	case r.HazardProbability < 0 || r.HazardProbability > 1:
		return fmt.Errorf("hazardProbability %v outside [0,1]", r.HazardProbability)
	case len(r.Palette) == 0:
		return errors.New("palette is empty")
	case r.InitialAmmo <= 0:
		return errors.New("initialAmmo must be positive")
	case r.InitialLives <= 0:
		return errors.New("initialLives must be positive")
	case r.LevelClearRemaining < 0:
		return errors.New("levelClearRemaining must not be negative")
	case r.StreakPrize <= 0 || r.ConsolationScore <= 0 || r.MiniPrizeScore <= 0:
		return errors.New("prize thresholds must be positive")
	case r.Commentary.CooldownMs < 0:
		return errors.New("commentary.cooldownMs must not be negative")
	case r.Commentary.RequestTimeoutMs <= 0:
		return errors.New("commentary.requestTimeoutMs must be positive")
	case len(r.Commentary.FallbackLines) == 0:
		return errors.New("commentary.fallbackLines is empty")
	}
	return nil
}
