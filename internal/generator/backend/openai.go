package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/whoneedsawriter/platform/internal/config"
	generatordomain "github.com/whoneedsawriter/platform/internal/generator/domain"
)

type Params struct {
	fx.In

	Config config.Config
	Log    *zap.Logger
}

// Client generates articles through OpenAI chat completions and hands
// bulk batches to the external worker pipeline over a webhook.
type Client struct {
	openai  *openai.Client
	model   openai.ChatModel
	http    *http.Client
	bulkURL string
	bulkKey string
	log     *zap.Logger
}

func New(p Params) generatordomain.Backend {
	client := openai.NewClient(option.WithAPIKey(p.Config.OpenAIAPIKey))

	model := openai.ChatModel(p.Config.OpenAIModel)
	if p.Config.OpenAIModel == "" {
		model = openai.ChatModelGPT4_1Nano
	}

	return &Client{
		openai:  &client,
		model:   model,
		http:    &http.Client{Timeout: 60 * time.Second},
		bulkURL: p.Config.BulkWebhookURL,
		bulkKey: p.Config.BulkWebhookAuth,
		log:     p.Log.Named("generator.backend"),
	}
}

func (c *Client) GenerateSync(ctx context.Context, prompt string) (string, error) {
	resp, err := c.openai.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from openai")
	}

	return stripHTMLFence(resp.Choices[0].Message.Content), nil
}

func (c *Client) GenerateBulk(ctx context.Context, jobs []generatordomain.BulkJob) error {
	payload, err := json.Marshal(map[string]any{"jobs": jobs})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.bulkURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.bulkKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.bulkKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("bulk webhook error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("bulk webhook returned %d", resp.StatusCode)
	}

	c.log.Info("bulk batch queued", zap.Int("jobs", len(jobs)))
	return nil
}

// stripHTMLFence removes the markdown code fence the model sometimes
// wraps HTML output in.
func stripHTMLFence(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```html")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}
