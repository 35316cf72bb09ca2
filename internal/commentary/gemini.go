// internal/commentary/gemini.go
//
// Gemini is a Service backed by the Google Gen AI SDK talking to the
// Gemini API (models.generateContent).
//
// Reactions ask for structured JSON ({text, mood}); a body that does not
// parse is still shown, delivered in the cheeky mood. Transport errors and
// API errors are returned to the caller.

package commentary

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"
)

const DefaultGeminiModel = "gemini-3-flash-preview"

// Gemini calls the Gemini API through a genai client.
type Gemini struct {
	Model     string
	Manifesto string

	client *genai.Client
}

// NewGemini builds a client for apiKey. An empty key yields a Gemini whose
// calls all fail with ErrUnavailable. baseURL overrides the API endpoint
// and may be empty.
func NewGemini(ctx context.Context, apiKey, model, baseURL, manifesto string) (*Gemini, error) {
	if model == "" {
		model = DefaultGeminiModel
	}
	g := &Gemini{Model: model, Manifesto: manifesto}
	if apiKey == "" {
		return g, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  &http.Client{Timeout: 15 * time.Second},
		HTTPOptions: genai.HTTPOptions{BaseURL: baseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	g.client = client
	return g, nil
}

var reactionSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"text": {Type: genai.TypeString},
		"mood": {
			Type: genai.TypeString,
			Enum: []string{string(MoodHappy), string(MoodCheeky), string(MoodImpressed), string(MoodDisappointed)},
		},
	},
	Required: []string{"text", "mood"},
}

// GenerateReaction asks the stall owner to react to event.
func (g *Gemini) GenerateReaction(ctx context.Context, event string, score, ammo int, playerName string) (Commentary, error) {
	prompt := fmt.Sprintf(`The player just: %s. Total score: %d. Bullets left: %d. Player name: %s.
You are Junnel Danger, the arrogant owner of "Junnel Danger's Explosion Station", a rigged carnival balloon stall.
You live off the "Junnel Tax", the 70%% of players who walk away with nothing.
Address %s by name and mock their "Loser Energy" as if they are uniquely incompetent.
Stay under 15 words. Reply with your line and your mood.`, event, score, ammo, playerName, playerName)

	text, err := g.generate(ctx, prompt, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   reactionSchema,
	})
	if err != nil {
		return Commentary{}, err
	}

	taxLine := fmt.Sprintf("That's just the Junnel Tax at work, %s!", playerName)
	var c Commentary
	if err := json.Unmarshal([]byte(text), &c); err != nil {
		if strings.TrimSpace(text) == "" {
			text = taxLine
		}
		return Commentary{Text: text, Mood: MoodCheeky}, nil
	}
	if c.Text == "" {
		c.Text = taxLine
	}
	if !c.Mood.Valid() {
		c.Mood = MoodCheeky
	}
	return c, nil
}

// GenerateIntro paraphrases the stall manifesto for a new player.
func (g *Gemini) GenerateIntro(ctx context.Context, playerName string) (string, error) {
	prompt := fmt.Sprintf(`You are Junnel Danger. Rewrite this manifesto for a new player named %s: %q.
Use exactly 5 sentences. Aim every insult at %s and be as rude and annoying as possible.
Mention the 30%% Boom Game and the Junnel Tax.`, playerName, g.Manifesto, playerName)
	text, err := g.generate(ctx, prompt, nil)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// generate performs one generateContent call and returns the first
// candidate's text. No candidates is an empty string, not an error.
func (g *Gemini) generate(ctx context.Context, prompt string, cfg *genai.GenerateContentConfig) (string, error) {
	if g.client == nil {
		return "", ErrUnavailable
	}
	res, err := g.client.Models.GenerateContent(ctx, g.Model, genai.Text(prompt), cfg)
	if err != nil {
		return "", fmt.Errorf("gemini call: %w", err)
	}
	return res.Text(), nil
}
