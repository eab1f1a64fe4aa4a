package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/text/unicode/norm"

	"server/internal/domain"
)

// Options configures a caption Client.
type Options struct {
	Broker     Broker
	ProviderID string
	HTTPClient *http.Client
	Logger     zerolog.Logger
	// MaxTokens bounds the completion length; defaults to captionMaxTokens.
	MaxTokens int
}

// Client generates meme captions through a compute-network provider.
type Client struct {
	broker     Broker
	providerID string
	client     *http.Client
	logger     zerolog.Logger
	maxTokens  int
}

const (
	captionMaxTokens      = 100
	captionTemperature    = 0.8
	completionTimeout     = 60 * time.Second
	captionPromptTemplate = `Create a funny meme caption about: %q. The caption should be humorous, viral-worthy, and under 100 characters. Return ONLY the caption text, no explanations.`
)

// NewClient builds a caption client.
func NewClient(opts Options) (*Client, error) {
	if opts.Broker == nil {
		return nil, errors.New("inference: broker is required")
	}
	if strings.TrimSpace(opts.ProviderID) == "" {
		return nil, errors.New("inference: provider id is required")
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: completionTimeout}
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = captionMaxTokens
	}
	return &Client{
		broker:     opts.Broker,
		providerID: strings.TrimSpace(opts.ProviderID),
		client:     client,
		logger:     opts.Logger,
		maxTokens:  maxTokens,
	}, nil
}

// Caption requests one caption for prompt. Settlement failure does not
// invalidate the result: the caption is still returned, flagged Valid=false
// with the failure note attached.
func (c *Client) Caption(ctx context.Context, prompt string) (*domain.GenerationResult, error) {
	// Re-acknowledgement is harmless, so an acknowledgement failure is
	// logged and ignored.
	if err := c.broker.Acknowledge(ctx, c.providerID); err != nil {
		c.logger.Debug().Err(err).Str("provider", c.providerID).Msg("inference: provider acknowledgement note")
	}

	meta, err := c.broker.ServiceMetadata(ctx, c.providerID)
	if err != nil {
		return nil, fmt.Errorf("%w: service metadata: %v", domain.ErrProviderUnavailable, err)
	}

	captionPrompt := fmt.Sprintf(captionPromptTemplate, prompt)
	headers, err := c.broker.RequestHeaders(ctx, c.providerID, captionPrompt)
	if err != nil {
		return nil, fmt.Errorf("%w: request headers: %v", domain.ErrProviderUnavailable, err)
	}

	content, correlationID, err := c.complete(ctx, meta, captionPrompt, headers)
	if err != nil {
		return nil, err
	}
	caption := norm.NFC.String(strings.TrimSpace(content))
	if caption == "" {
		return nil, domain.ErrNoContentReturned
	}
	if correlationID == "" {
		correlationID = uuid.NewString()
	}

	result := &domain.GenerationResult{
		Caption:       caption,
		Prompt:        prompt,
		Provider:      c.providerID,
		Valid:         true,
		CorrelationID: correlationID,
	}

	valid, err := c.broker.Settle(ctx, c.providerID, caption, correlationID)
	if err != nil {
		result.Valid = false
		result.SettlementNote = fmt.Sprintf("settlement failed: %v", err)
		c.logger.Warn().Err(err).Str("correlation_id", correlationID).Msg("inference: settlement failed, response kept")
	} else if !valid {
		result.Valid = false
		result.SettlementNote = "settlement rejected by provider"
	}
	return result, nil
}

// CaptionOptions requests count independent caption variations concurrently.
// Failed slots are dropped from the result; only when every slot fails does
// the call error with domain.ErrAllOptionsFailed.
func (c *Client) CaptionOptions(ctx context.Context, prompt string, count int) ([]string, error) {
	if count <= 0 {
		count = 3
	}
	results := make([]*domain.GenerationResult, count)
	errs := make([]error, count)
	var wg sync.WaitGroup
	for i := 0; i < count; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			variation := fmt.Sprintf("%s - variation %d", prompt, slot+1)
			results[slot], errs[slot] = c.Caption(ctx, variation)
		}(i)
	}
	wg.Wait()

	var options []string
	for i, res := range results {
		if errs[i] != nil {
			c.logger.Warn().Err(errs[i]).Int("slot", i+1).Msg("inference: caption option failed")
			continue
		}
		if res != nil && res.Caption != "" {
			options = append(options, res.Caption)
		}
	}
	if len(options) == 0 {
		return nil, fmt.Errorf("%w: %v", domain.ErrAllOptionsFailed, errors.Join(errs...))
	}
	return options, nil
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *Client) complete(ctx context.Context, meta ServiceMetadata, prompt string, headers map[string]string) (string, string, error) {
	payload := chatRequest{
		Model:       meta.Model,
		MaxTokens:   c.maxTokens,
		Temperature: captionTemperature,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return "", "", fmt.Errorf("inference: encode completion request: %w", err)
	}
	endpoint := strings.TrimRight(meta.Endpoint, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return "", "", fmt.Errorf("inference: build completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("%w: completion request: %v", domain.ErrProviderUnavailable, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 300 {
		return "", "", fmt.Errorf("%w: completion status %d", domain.ErrProviderUnavailable, resp.StatusCode)
	}
	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", "", fmt.Errorf("%w: decode completion: %v", domain.ErrProviderUnavailable, err)
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return "", "", domain.ErrNoContentReturned
	}
	return parsed.Choices[0].Message.Content, parsed.ID, nil
}
