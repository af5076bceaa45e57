// Package agent drives one turn of an LLM player: it sends the player skill
// and the current state to an OpenAI-compatible chat endpoint and extracts the
// JSON action from the reply.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/cenkalti/backoff/v5"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Config controls the chat endpoint and skill lookup
type Config struct {
	APIURL    string `env:"OPENROUTER_API_URL" envDefault:"https://openrouter.ai/api/v1/chat/completions"`
	Model     string `env:"OPENROUTER_MODEL" envDefault:"openai/gpt-4o-mini"`
	APIKey    string `env:"OPENROUTER_API_KEY"`
	SkillsDir string `env:"SANDBOX_SKILLS_DIR" envDefault:"/workspace/skills"`

	Timeout         time.Duration `env:"AGENT_TIMEOUT" envDefault:"30s"`
	MaxTries        uint          `env:"AGENT_MAX_TRIES" envDefault:"3"`
	InitialInterval time.Duration `env:"AGENT_RETRY_INTERVAL" envDefault:"500ms"`
}

// ConfigFromEnv reads the driver configuration
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Driver asks the model for actions
type Driver struct {
	cfg    Config
	client openai.Client
}

// New creates a driver. The endpoint may be given as the full
// chat/completions URL or as the API base.
func New(cfg Config, httpClient *http.Client) (*Driver, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("OPENROUTER_API_KEY is required")
	}
	if cfg.MaxTries == 0 {
		cfg.MaxTries = 1
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	client := openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(baseURL(cfg.APIURL)),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	)
	return &Driver{cfg: cfg, client: client}, nil
}

func baseURL(apiURL string) string {
	base := strings.TrimSuffix(strings.TrimSpace(apiURL), "/")
	base = strings.TrimSuffix(base, "/chat/completions")
	return base + "/"
}

// LoadSkill reads <envType>-player.md from dir
func LoadSkill(dir, envType string) (string, error) {
	if envType == "" {
		return "", errors.New("input JSON must include env_type")
	}
	if strings.ContainsAny(envType, `/\`) || envType == ".." {
		return "", fmt.Errorf("invalid env_type %q", envType)
	}
	data, err := os.ReadFile(filepath.Join(dir, envType+"-player.md"))
	if err != nil {
		return "", fmt.Errorf("read skill: %w", err)
	}
	return string(data), nil
}

// UserPrompt renders the state with sorted keys under the fixed instructions
func UserPrompt(state map[string]any) (string, error) {
	encoded, err := json.Marshal(state)
	if err != nil {
		return "", fmt.Errorf("encode state: %w", err)
	}
	return "You are selecting the next action for an agent sandbox environment.\n" +
		"Return ONLY a JSON object describing the action.\n\n" +
		"State:\n" + string(encoded), nil
}

// TakeTurn loads the skill for the state's env_type and returns the action
// the model picked.
func (d *Driver) TakeTurn(ctx context.Context, state map[string]any) (map[string]any, error) {
	envType, _ := state["env_type"].(string)
	skill, err := LoadSkill(d.cfg.SkillsDir, envType)
	if err != nil {
		return nil, err
	}
	prompt, err := UserPrompt(state)
	if err != nil {
		return nil, err
	}
	reply, err := d.complete(ctx, skill, prompt)
	if err != nil {
		return nil, err
	}
	return ExtractJSONObject(reply)
}

func (d *Driver) complete(ctx context.Context, system, user string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(d.cfg.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
	}
	bo := backoff.NewExponentialBackOff()
	if d.cfg.InitialInterval > 0 {
		bo.InitialInterval = d.cfg.InitialInterval
	}
	return backoff.Retry(ctx, func() (string, error) {
		resp, err := d.client.Chat.Completions.New(ctx, params)
		if err != nil {
			if retryable(err) {
				return "", err
			}
			return "", backoff.Permanent(err)
		}
		if len(resp.Choices) == 0 {
			return "", backoff.Permanent(errors.New("chat completion returned no choices"))
		}
		return resp.Choices[0].Message.Content, nil
	}, backoff.WithBackOff(bo), backoff.WithMaxTries(d.cfg.MaxTries))
}

// retryable reports whether a failed request may succeed when repeated
func retryable(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

var fenced = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// ExtractJSONObject finds the action object in a model reply: a fenced json
// block, the whole reply, or the outermost braces.
func ExtractJSONObject(raw string) (map[string]any, error) {
	text := strings.TrimSpace(raw)
	if m := fenced.FindStringSubmatch(text); m != nil {
		text = strings.TrimSpace(m[1])
	}

	var parsed map[string]any
	if err := json.Unmarshal([]byte(text), &parsed); err == nil && parsed != nil {
		return parsed, nil
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start != -1 && end > start {
		parsed = nil
		if err := json.Unmarshal([]byte(text[start:end+1]), &parsed); err != nil {
			return nil, fmt.Errorf("decode action: %w", err)
		}
		if parsed != nil {
			return parsed, nil
		}
	}
	return nil, errors.New("LLM response did not contain a JSON object action")
}
