package nlu

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	log "log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"parle/internal/intent"
)

const (
	DefaultBaseURL = "https://api.groq.com/openai/v1"
	DefaultModel   = "llama-3.1-8b-instant"
	DefaultTimeout = 15 * time.Second

	temperature = 0.1
	maxTokens   = 200
)

var (
	ErrNoCredential  = errors.New("no API key configured")
	ErrEmptyResponse = errors.New("empty completion")
)

type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Classifier asks an OpenAI-compatible chat completion endpoint to turn a
// command into an intent. A Classifier without credentials answers every
// call with an error intent.
type Classifier struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

func New(cfg Config) *Classifier {
	c := &Classifier{
		model:   cfg.Model,
		timeout: cfg.Timeout,
	}
	if c.model == "" {
		c.model = DefaultModel
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}

	if cfg.APIKey == "" {
		log.Warn("Remote classifier disabled", "err", ErrNoCredential)
		return c
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(baseURL),
		option.WithMaxRetries(0),
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	client := openai.NewClient(opts...)
	c.client = &client

	return c
}

// Enabled reports whether the classifier has credentials.
func (c *Classifier) Enabled() bool {
	return c.client != nil
}

// Classify never fails: any problem yields intent.Failed.
func (c *Classifier) Classify(ctx context.Context, text string) intent.Intent {
	out, err := c.analyze(ctx, text)
	if err != nil {
		log.Warn("Remote classification failed", "err", err)
		return intent.Failed(intent.Remote)
	}

	log.Debug("Remote intent", "action", out.Action, "target", out.Target,
		"search", out.Search, "confidence", out.Confidence)

	return out
}

func (c *Classifier) analyze(ctx context.Context, text string) (intent.Intent, error) {
	if c.client == nil {
		return intent.Intent{}, ErrNoCredential
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(text),
		},
		Model: openai.ChatModel(c.model),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
		Temperature: openai.Float(temperature),
		MaxTokens:   openai.Int(maxTokens),
	})
	if err != nil {
		return intent.Intent{}, fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return intent.Intent{}, fmt.Errorf("no choices: %w", ErrEmptyResponse)
	}

	content := resp.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return intent.Intent{}, ErrEmptyResponse
	}

	log.Debug("Processed", "data", content)

	return Parse(content)
}

// Parse decodes the JSON object produced by the model. Unknown or malformed
// fields degrade to their zero value; only a body that is not a JSON object
// is an error.
func Parse(content string) (intent.Intent, error) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(stripCodeFences(content)), &raw); err != nil {
		return intent.Intent{}, fmt.Errorf("unmarshal intent: %w (raw: %s)", err, content)
	}

	action := strings.ToLower(stringField(raw, "action"))
	if action == "" {
		action = string(intent.Unknown)
	}

	return intent.Intent{
		Action:     intent.Action(action),
		Target:     stringField(raw, "target"),
		Platform:   stringField(raw, "platform"),
		Search:     stringField(raw, "search"),
		Confidence: confidence(raw["confidence"]),
		Origin:     intent.Remote,
	}, nil
}

func stringField(raw map[string]any, key string) string {
	s, ok := raw[key].(string)
	if !ok {
		return ""
	}

	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "null") || strings.EqualFold(s, "none") {
		return ""
	}

	return s
}

func confidence(v any) float64 {
	var f float64

	switch x := v.(type) {
	case float64:
		f = x
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}

	switch {
	case math.IsNaN(f), f < 0:
		return 0
	case f > 1:
		return 1
	}

	return f
}

// stripCodeFences removes a markdown fence some models wrap JSON in.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		}
		if idx := strings.LastIndex(s, "```"); idx != -1 {
			s = s[:idx]
		}
	}
	return strings.TrimSpace(s)
}
