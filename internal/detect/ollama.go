package detect

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/eivindbakke/merkelapp/internal/common"
	"github.com/eivindbakke/merkelapp/internal/model"
	"github.com/eivindbakke/merkelapp/internal/service"

	"github.com/ollama/ollama/api"
)

// detectionPrompt instructs the vision model to report objects from the
// Norwegian vocabulary as strict JSON.
const detectionPrompt = `You are an object detector for Norwegian package-delivery photos.

Look for these object types:
- pakke (a package or parcel)
- postkasse (a mailbox)
- etikett (a shipping label or sticker)
- postkasseskilt (a mailbox nameplate or sign)
- pakke i postkasse (a package lying inside an open mailbox)
- pakke ved inngangsparti (a package left at an entrance or doorstep)
- inngangsparti (an entrance, doorway, or front door area)

Return JSON only:
{
  "objects": [
    {"name": "pakke", "confidence": 0.92}
  ],
  "description": "short factual sentence"
}

HARD RULES
- One entry per object instance; repeat the name when several are visible.
- Confidence values lie in [0,1].
- Use the Norwegian names above for matching objects; anything else may be named in plain English.
- If nothing relevant is visible, return {"objects": [], "description": "what the photo shows"}.
- JSON only. No markdown, no code fences, no comments, no trailing commas.`

// Config holds settings for the Ollama detector.
type Config struct {
	Host        string
	Model       string
	Temperature float64
	Timeout     time.Duration
	MaxRetries  int
	RetryDelay  time.Duration
}

// DefaultConfig returns detector settings for a local Ollama install.
func DefaultConfig() Config {
	return Config{
		Host:        "http://localhost:11434",
		Model:       "llava:13b",
		Temperature: 0.1,
		Timeout:     5 * time.Minute,
		MaxRetries:  3,
		RetryDelay:  time.Second,
	}
}

// OllamaDetector detects objects in photos using an Ollama vision model.
type OllamaDetector struct {
	client    *api.Client
	config    Config
	retryOpts service.RetryOptions
}

// NewOllamaDetector creates a detector talking to the configured Ollama host.
func NewOllamaDetector(cfg Config) (*OllamaDetector, error) {
	defaults := DefaultConfig()
	if cfg.Host == "" {
		cfg.Host = defaults.Host
	}
	if cfg.Model == "" {
		cfg.Model = defaults.Model
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}
	if !strings.Contains(cfg.Host, "://") {
		cfg.Host = "http://" + cfg.Host
	}

	parsed, err := url.Parse(cfg.Host)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama host %q: %w", cfg.Host, err)
	}
	base := &url.URL{Scheme: parsed.Scheme, Host: parsed.Host}

	return &OllamaDetector{
		client: api.NewClient(base, http.DefaultClient),
		config: cfg,
		retryOpts: service.RetryOptions{
			MaxAttempts:  cfg.MaxRetries,
			InitialDelay: cfg.RetryDelay,
			MaxDelay:     30 * time.Second,
			Multiplier:   2.0,
		},
	}, nil
}

// DetectObjects sends the image to the vision model and returns the detected
// objects with their names resolved into the vocabulary. Transient chat and
// parse failures are retried; a fresh sample often yields parseable JSON.
func (d *OllamaDetector) DetectObjects(ctx context.Context, imagePath string) (*model.DetectionResult, error) {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidImage, err)
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.config.Timeout)
		defer cancel()
	}

	var result *model.DetectionResult
	err = common.WithRetry(ctx, func() error {
		content, chatErr := d.chat(ctx, data)
		if chatErr != nil {
			var status api.StatusError
			if errors.As(chatErr, &status) && status.StatusCode == http.StatusNotFound {
				return common.Permanent(fmt.Errorf("model %q not available, pull it with: ollama pull %s", d.config.Model, d.config.Model))
			}
			return fmt.Errorf("%w: %v", common.ErrDetectorUnavailable, chatErr)
		}
		if strings.TrimSpace(content) == "" {
			return fmt.Errorf("empty response from model %s", d.config.Model)
		}
		parsed, parseErr := parseDetection(content)
		if parseErr != nil {
			return parseErr
		}
		result = parsed
		return nil
	}, d.retryOpts)
	if err != nil {
		return nil, fmt.Errorf("detection failed for %s: %w", imagePath, err)
	}

	result.Model = d.config.Model
	for i, obj := range result.Objects {
		result.Objects[i].Name = CanonicalLabel(obj.Name)
	}
	return result, nil
}

func (d *OllamaDetector) chat(ctx context.Context, image []byte) (string, error) {
	stream := false
	req := &api.ChatRequest{
		Model: d.config.Model,
		Messages: []api.Message{
			{
				Role:    "user",
				Content: detectionPrompt,
				Images:  []api.ImageData{api.ImageData(image)},
			},
		},
		Stream:  &stream,
		Options: map[string]any{"temperature": d.config.Temperature},
	}

	var content strings.Builder
	err := d.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		content.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", err
	}
	return content.String(), nil
}
