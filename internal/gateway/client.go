// Package gateway talks to Gemini: product name suggestions, product photos
// and supermarket price comparisons.
package gateway

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"listacerta/internal/logging"
	"listacerta/internal/shopping"
	"listacerta/internal/suggest"
	"listacerta/internal/usage"

	"google.golang.org/genai"
)

// Default models.
const (
	DefaultModel      = "gemini-2.5-flash"
	DefaultImageModel = "imagen-4.0-generate-001"
	DefaultTimeout    = 60 * time.Second
)

var (
	// ErrMissingAPIKey is returned by New without a key.
	ErrMissingAPIKey = errors.New("gemini API key is required (set GEMINI_API_KEY)")
	// ErrMalformedResponse means the model's JSON did not match the schema.
	ErrMalformedResponse = errors.New("malformed model response")
	// ErrNoImage means the image model returned nothing usable.
	ErrNoImage = errors.New("no image generated")
)

var (
	_ suggest.Gateway        = (*Client)(nil)
	_ shopping.PriceComparer = (*Client)(nil)
)

// Config configures a Client.
type Config struct {
	APIKey     string
	Model      string
	ImageModel string
	// Timeout bounds each call. Zero means DefaultTimeout.
	Timeout time.Duration
	// BaseURL overrides the Gemini endpoint.
	BaseURL    string
	HTTPClient *http.Client
}

// Client wraps the genai client with the prompts and schemas of the app.
type Client struct {
	genai      *genai.Client
	model      string
	imageModel string
	timeout    time.Duration
	tracker    *usage.Tracker
}

// New creates a Client. tracker may be nil, in which case a tracker carried
// on the call context (usage.NewContext) is used when present.
func New(ctx context.Context, cfg Config, tracker *usage.Tracker) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.ImageModel == "" {
		cfg.ImageModel = DefaultImageModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  cfg.HTTPClient,
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.BaseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	logging.API("Gemini client ready (model=%s, image_model=%s, timeout=%v)", cfg.Model, cfg.ImageModel, cfg.Timeout)
	return &Client{
		genai:      gc,
		model:      cfg.Model,
		imageModel: cfg.ImageModel,
		timeout:    cfg.Timeout,
		tracker:    tracker,
	}, nil
}

// Suggest returns up to suggest.MaxCandidates product names for query.
func (c *Client) Suggest(ctx context.Context, query string) ([]string, error) {
	timer := logging.StartTimer(logging.CategoryAPI, "Suggest")
	defer timer.Stop()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.genai.Models.GenerateContent(ctx, c.model, genai.Text(suggestionPrompt(query)), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   suggestionSchema(),
	})
	if err != nil {
		c.trackFailure(ctx, c.model, usage.OpSuggest)
		logging.APIWarn("Suggest(%q) failed: %v", query, err)
		return nil, fmt.Errorf("suggest %q: %w", query, err)
	}
	c.track(ctx, c.model, usage.OpSuggest, resp.UsageMetadata)

	names, err := decodeSuggestions(resp.Text())
	if err != nil {
		logging.APIWarn("Suggest(%q) returned unusable JSON: %v", query, err)
		return nil, err
	}
	logging.APIDebug("Suggest(%q) -> %d names", query, len(names))
	return names, nil
}

// GenerateImage returns a data URL with a product photo for name.
func (c *Client) GenerateImage(ctx context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("empty product name: %w", ErrNoImage)
	}
	timer := logging.StartTimer(logging.CategoryAPI, "GenerateImage")
	defer timer.Stop()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.genai.Models.GenerateImages(ctx, c.imageModel, imagePrompt(name), &genai.GenerateImagesConfig{
		NumberOfImages: 1,
		OutputMIMEType: "image/jpeg",
		AspectRatio:    "1:1",
	})
	if err != nil {
		c.trackFailure(ctx, c.imageModel, usage.OpImage)
		return "", fmt.Errorf("generate image for %q: %w", name, err)
	}
	c.track(ctx, c.imageModel, usage.OpImage, nil)

	if resp == nil || len(resp.GeneratedImages) == 0 {
		return "", fmt.Errorf("image for %q: %w", name, ErrNoImage)
	}
	img := resp.GeneratedImages[0]
	if img == nil || img.Image == nil || len(img.Image.ImageBytes) == 0 {
		reason := ""
		if img != nil {
			reason = img.RAIFilteredReason
		}
		return "", fmt.Errorf("image for %q (filtered: %q): %w", name, reason, ErrNoImage)
	}
	return dataURL(img.Image.MIMEType, img.Image.ImageBytes), nil
}

// ComparePrices asks the model to quote items at three supermarkets near loc.
func (c *Client) ComparePrices(ctx context.Context, items []shopping.Item, loc shopping.Location) (*shopping.Comparison, error) {
	timer := logging.StartTimer(logging.CategoryAPI, "ComparePrices")
	defer timer.Stop()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.genai.Models.GenerateContent(ctx, c.model, genai.Text(comparisonPrompt(items, loc)), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   comparisonSchema(),
	})
	if err != nil {
		c.trackFailure(ctx, c.model, usage.OpCompare)
		return nil, fmt.Errorf("price comparison request: %w", err)
	}
	c.track(ctx, c.model, usage.OpCompare, resp.UsageMetadata)

	cmp, err := decodeComparison(resp.Text())
	if err != nil {
		return nil, err
	}
	logging.API("ComparePrices: %d items, %d supermarkets", len(items), len(cmp.Supermarkets))
	return cmp, nil
}

func (c *Client) trackerFor(ctx context.Context) *usage.Tracker {
	if c.tracker != nil {
		return c.tracker
	}
	return usage.FromContext(ctx)
}

func (c *Client) track(ctx context.Context, model, op string, md *genai.GenerateContentResponseUsageMetadata) {
	var in, out int
	if md != nil {
		in, out = int(md.PromptTokenCount), int(md.CandidatesTokenCount)
	}
	c.trackerFor(ctx).Track(ctx, model, op, in, out)
}

func (c *Client) trackFailure(ctx context.Context, model, op string) {
	c.trackerFor(ctx).TrackFailure(ctx, model, op)
}

func dataURL(mime string, b []byte) string {
	if mime == "" {
		mime = "image/jpeg"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(b)
}
