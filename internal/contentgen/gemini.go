package contentgen

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

	"go.uber.org/zap"

	"github.com/DoyleJ11/buzzer-backend/internal/content"
)

var ErrNotConfigured = errors.New("content generation is not configured")
var ErrBadResponse = errors.New("bad response from content generator")

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel   = "gemini-2.0-flash"
	DefaultPrompt  = "Generate a game on general knowledge topics"
)

const systemInstruction = `You are a professional quiz writer for a Jeopardy-style game.
Write interesting, varied questions.

STRICT STRUCTURE:
1. Round 1: exactly 5 categories, each with exactly 5 questions valued 100, 200, 300, 400, 500.
2. Round 2: exactly 5 categories, each with exactly 5 questions valued 200, 400, 600, 800, 1000.
3. Round 3: exactly 5 categories, each with exactly 5 questions valued 300, 600, 900, 1200, 1500.
4. Final: 1 category with 1 question, value 0, and "type": "final" on the round.

Output strictly JSON, no Markdown:
{"rounds":[{"name":"Round 1","categories":[{"title":"...","questions":[{"text":"...","answer":"...","value":100}]}]},
 {"name":"Final","type":"final","categories":[{"title":"...","questions":[{"text":"...","answer":"...","value":0}]}]}]}`

//go:generate mockgen -package=mocks -destination=mocks/mock_generator.go github.com/DoyleJ11/buzzer-backend/internal/contentgen Generator
type Generator interface {
	// Generate turns a free-text topic prompt into a game document that
	// has passed content validation.
	Generate(ctx context.Context, prompt string) (*content.GameData, error)
}

type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
	Logger  *zap.Logger
}

// Gemini generates games with the Gemini generateContent REST endpoint.
type Gemini struct {
	cfg    Config
	client *http.Client
	log    *zap.Logger
}

func NewGemini(cfg Config) *Gemini {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 90 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Gemini{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		log:    cfg.Logger,
	}
}

func (g *Gemini) Generate(ctx context.Context, prompt string) (*content.GameData, error) {
	if g.cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}
	if strings.TrimSpace(prompt) == "" {
		prompt = DefaultPrompt
	}

	text, err := g.call(ctx, prompt+" (generate the FULL game, all 76 questions)")
	if err != nil {
		g.log.Error("gemini call failed", zap.Error(err))
		return nil, err
	}

	data, err := content.Parse([]byte(stripFences(text)))
	if err != nil {
		g.log.Error("gemini returned unusable game data", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrBadResponse, err)
	}
	return data, nil
}

type part struct {
	Text string `json:"text"`
}

type contentBlock struct {
	Parts []part `json:"parts"`
}

type generateRequest struct {
	SystemInstruction contentBlock      `json:"systemInstruction"`
	Contents          []contentBlock    `json:"contents"`
	GenerationConfig  map[string]string `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content contentBlock `json:"content"`
	} `json:"candidates"`
}

func (g *Gemini) call(ctx context.Context, prompt string) (string, error) {
	reqBody := generateRequest{
		SystemInstruction: contentBlock{Parts: []part{{Text: systemInstruction}}},
		Contents:          []contentBlock{{Parts: []part{{Text: prompt}}}},
		GenerationConfig:  map[string]string{"responseMimeType": "application/json"},
	}
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", strings.TrimRight(g.cfg.BaseURL, "/"), g.cfg.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	// The key stays out of the URL so transport errors never carry it.
	req.Header.Set("x-goog-api-key", g.cfg.APIKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", ErrBadResponse, resp.StatusCode)
	}

	var gr generateResponse
	if err := json.Unmarshal(body, &gr); err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	if len(gr.Candidates) > 0 && len(gr.Candidates[0].Content.Parts) > 0 {
		return gr.Candidates[0].Content.Parts[0].Text, nil
	}
	return "", fmt.Errorf("%w: empty response", ErrBadResponse)
}

// stripFences removes a markdown code fence around the model output.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}
