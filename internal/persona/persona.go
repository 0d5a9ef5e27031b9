package persona

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"
)

const defaultAPIURL = "https://api.openai.com/v1/chat/completions"

const (
	maxNameLen      = 50
	maxArchetypeLen = 30
	maxTauntLen     = 200
)

// ErrUnavailable covers missing configuration, timeouts and non-success
// responses from the completion API.
var ErrUnavailable = errors.New("persona service unavailable")

// Persona is a generated rival identity. Fields are length-capped before
// they reach storage.
type Persona struct {
	Name      string `json:"name"`
	Archetype string `json:"archetype"`
	Taunt     string `json:"taunt"`
}

// Generator produces rival personas from an OpenAI-compatible
// chat-completions endpoint.
type Generator struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

func NewGenerator(apiKey, model, baseURL string) *Generator {
	if baseURL == "" {
		baseURL = defaultAPIURL
	}
	return &Generator{
		apiKey:  apiKey,
		model:   model,
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Generate asks the model for a persona matching the personality and the
// user's quest context. The caller decides what to do on failure; this
// method never returns a partially validated persona.
func (g *Generator) Generate(ctx context.Context, questContext, personalityType string, traits []string) (*Persona, error) {
	if g.apiKey == "" {
		return nil, fmt.Errorf("%w: api key not configured", ErrUnavailable)
	}

	prompt := fmt.Sprintf(`You are creating a competitive AI rival for a gamified habit tracker called RivalQuest.

Personality Type: %s
Personality Traits: %s

Context about the user:
%s

Generate a rival persona. Requirements:
1. Name: a fantasy/gaming-inspired name (5-12 characters) fitting the personality
2. Archetype: one word (Warrior, Mage, Rogue, Berserker, Paladin, ...)
3. Taunt: a short motivational message (20-80 characters) matching the personality

The rival should be competitive but motivating, reference quests and streaks, and use gaming terminology.

Respond with valid JSON only:
{"name": "RivalName", "archetype": "Archetype", "taunt": "Your taunt message here!"}`,
		personalityType, strings.Join(traits, ", "), questContext)

	reqBody := &chatRequest{
		Model: g.model,
		Messages: []chatMessage{
			{Role: "system", Content: "You are a creative AI that generates competitive gaming personas. Always respond with valid JSON only."},
			{Role: "user", Content: prompt},
		},
		MaxTokens:   150,
		Temperature: 0.8,
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal persona request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build persona request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d: %s", ErrUnavailable, resp.StatusCode, respBody)
	}

	chatResp := &chatResponse{}
	if err := json.Unmarshal(respBody, chatResp); err != nil {
		return nil, fmt.Errorf("failed to decode persona response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty completion", ErrUnavailable)
	}

	return ParsePersona(chatResp.Choices[0].Message.Content)
}

// ParsePersona decodes and validates the model's JSON output, truncating
// over-long fields to their storage caps.
func ParsePersona(content string) (*Persona, error) {
	p := &Persona{}
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), p); err != nil {
		return nil, fmt.Errorf("failed to parse persona JSON: %w", err)
	}
	if p.Name == "" || p.Archetype == "" || p.Taunt == "" {
		return nil, fmt.Errorf("persona missing required fields")
	}

	p.Name = truncate(p.Name, maxNameLen)
	p.Archetype = truncate(p.Archetype, maxArchetypeLen)
	p.Taunt = truncate(p.Taunt, maxTauntLen)
	return p, nil
}

// truncate caps s at limit bytes without splitting a rune.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
