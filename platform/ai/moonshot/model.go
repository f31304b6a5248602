// Package moonshot adapts Moonshot's OpenAI-compatible chat API to the ADK
// model interface so agents can run against Kimi models.
package moonshot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"net/http"
	"strings"
	"time"

	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

// Config for the Kimi model adapter.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

// KimiModel adapts Moonshot to the ADK model.LLM interface.
type KimiModel struct {
	config Config
	client *http.Client
}

func NewModel(cfg Config) *KimiModel {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.moonshot.ai/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "kimi-k2-turbo-preview"
	}
	return &KimiModel{
		config: cfg,
		client: &http.Client{Timeout: 60 * time.Second},
	}
}

func (m *KimiModel) Name() string {
	return m.config.Model
}

// GenerateContent adapts ADK requests to Kimi's OpenAI-compatible API.
func (m *KimiModel) GenerateContent(ctx context.Context, req *model.LLMRequest, stream bool) iter.Seq2[*model.LLMResponse, error] {
	return func(yield func(*model.LLMResponse, error) bool) {
		resp, err := m.generate(ctx, req)
		yield(resp, err)
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error interface{} `json:"error"`
}

func (m *KimiModel) generate(ctx context.Context, req *model.LLMRequest) (*model.LLMResponse, error) {
	payload := map[string]interface{}{
		"model":    m.config.Model,
		"messages": m.convertMessages(req.Contents),
	}
	if req.Config != nil && req.Config.Temperature != nil {
		payload["temperature"] = float64(*req.Config.Temperature)
	}

	jsonBody, _ := json.Marshal(payload)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.config.BaseURL+"/chat/completions", bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+m.config.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode kimi response: %v", err)
	}
	if result.Error != nil {
		return nil, fmt.Errorf("kimi api error: %v", result.Error)
	}
	if len(result.Choices) == 0 {
		return nil, fmt.Errorf("kimi api error: empty choices")
	}

	text := strings.TrimSpace(result.Choices[0].Message.Content)
	return &model.LLMResponse{
		Content: &genai.Content{
			Role:  genai.RoleModel,
			Parts: []*genai.Part{genai.NewPartFromText(text)},
		},
	}, nil
}

func (m *KimiModel) convertMessages(contents []*genai.Content) []chatMessage {
	messages := make([]chatMessage, 0, len(contents))
	for _, content := range contents {
		if content == nil {
			continue
		}

		role := "user"
		if content.Role == "model" {
			role = "assistant"
		}

		var builder strings.Builder
		for _, part := range content.Parts {
			if part == nil || strings.TrimSpace(part.Text) == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(part.Text)
		}

		if builder.Len() > 0 {
			messages = append(messages, chatMessage{Role: role, Content: builder.String()})
		}
	}
	return messages
}
