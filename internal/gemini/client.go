package gemini

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/KetonAI/backend/internal/infrastructure/tracing"
	"github.com/KetonAI/backend/internal/relay"
)

const (
	DefaultBaseURL    = "https://generativelanguage.googleapis.com/"
	DefaultAPIVersion = "v1beta"
)

// ErrMissingAPIKey is returned by New when no API key is configured.
var ErrMissingAPIKey = errors.New("gemini: API key is required")

// Config configures the Gemini client.
type Config struct {
	APIKey     string
	BaseURL    string
	APIVersion string
	// Timeout bounds a whole call including the streamed body. Zero means
	// the call lives as long as the inbound request.
	Timeout time.Duration
}

// Client opens GenerateContentStream calls against the Gemini API.
// It is safe for concurrent use.
type Client struct {
	models  *genai.Models
	timeout time.Duration
	logger  *zap.Logger
}

var _ relay.Backend = (*Client)(nil)

// New creates a Gemini client
func New(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAPIVersion
	}

	// Pooled transport only; a relayed stream is never retried.
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 0
	retryClient.Logger = nil

	httpClient := retryClient.HTTPClient
	httpClient.Transport = tracing.Transport(httpClient.Transport)

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
		HTTPOptions: genai.HTTPOptions{
			BaseURL:    cfg.BaseURL,
			APIVersion: cfg.APIVersion,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &Client{
		models:  client.Models,
		timeout: cfg.Timeout,
		logger:  logger,
	}, nil
}

// Open starts a streaming generation and waits for the first response, so
// an upstream refusal is reported here rather than by the stream.
// Cancelling ctx aborts the call.
func (c *Client) Open(ctx context.Context, req *relay.GenerationRequest) (relay.Stream, error) {
	var cancel context.CancelFunc
	if c.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}

	contents, config := newGenerateContent(req)
	s := newStream(c.models.GenerateContentStream(ctx, req.Model, contents, config), cancel)

	if err := s.prime(); err != nil {
		s.Close()
		c.logger.Debug("gemini rejected stream",
			zap.String("model", req.Model),
			zap.Error(err),
		)
		return nil, err
	}
	return s, nil
}

func newGenerateContent(req *relay.GenerationRequest) ([]*genai.Content, *genai.GenerateContentConfig) {
	contents := make([]*genai.Content, 0, len(req.Contents))
	for _, c := range req.Contents {
		parts := make([]*genai.Part, 0, len(c.Parts))
		for _, p := range c.Parts {
			parts = append(parts, genai.NewPartFromText(p.Text))
		}
		contents = append(contents, genai.NewContentFromParts(parts, genai.Role(c.Role)))
	}

	config := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(req.Temperature),
		ResponseMIMEType: req.ResponseMIMEType,
	}
	if req.SystemInstruction != "" {
		config.SystemInstruction = genai.NewContentFromText(req.SystemInstruction, genai.RoleUser)
	}
	return contents, config
}
