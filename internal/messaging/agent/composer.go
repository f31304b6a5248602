// Package agent holds the ADK-based reply composer that drafts outbound
// messages for leads whose AI assistant is enabled.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/adk/agent"
	"google.golang.org/adk/agent/llmagent"
	"google.golang.org/adk/runner"
	"google.golang.org/adk/session"
	"google.golang.org/genai"

	"github.com/google/uuid"

	leadrepo "nurture_backend/internal/leads/repository"
	"nurture_backend/internal/messaging/repository"
	"nurture_backend/platform/ai/moonshot"
	"nurture_backend/platform/apperr"
)

// ReplyResult is the composer's parsed output.
type ReplyResult struct {
	Reply                string `json:"reply"`
	AppointmentIntent    bool   `json:"appointmentIntent"`
	PropertySearchIntent bool   `json:"propertySearchIntent"`
}

// ReplyComposer drafts conversational replies with the Kimi model.
type ReplyComposer struct {
	agent          agent.Agent
	runner         *runner.Runner
	sessionService session.Service
	appName        string
}

// NewReplyComposer builds the ADK agent and runner.
func NewReplyComposer(apiKey string) (*ReplyComposer, error) {
	kimi := moonshot.NewModel(moonshot.Config{APIKey: apiKey})

	adkAgent, err := llmagent.New(llmagent.Config{
		Name:        "ReplyComposer",
		Model:       kimi,
		Description: "Drafts short conversational SMS replies to real estate leads.",
		Instruction: composerInstruction(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ADK agent: %w", err)
	}

	appName := "reply_composer"
	sessionService := session.InMemoryService()
	r, err := runner.New(runner.Config{
		AppName:        appName,
		Agent:          adkAgent,
		SessionService: sessionService,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ADK runner: %w", err)
	}

	return &ReplyComposer{
		agent:          adkAgent,
		runner:         r,
		sessionService: sessionService,
		appName:        appName,
	}, nil
}

// Compose drafts the next reply for a lead given the recent conversation.
func (rc *ReplyComposer) Compose(ctx context.Context, lead leadrepo.Lead, conversation []repository.Message) (ReplyResult, error) {
	if rc.runner == nil || rc.sessionService == nil {
		return ReplyResult{}, apperr.Generation("reply composer is not initialized", nil)
	}

	userMessage := &genai.Content{
		Role: "user",
		Parts: []*genai.Part{
			{Text: buildConversationPrompt(lead, conversation)},
		},
	}

	userID := "lead-" + lead.ID.String()
	sessionID := uuid.New().String()

	_, err := rc.sessionService.Create(ctx, &session.CreateRequest{
		AppName:   rc.appName,
		UserID:    userID,
		SessionID: sessionID,
	})
	if err != nil {
		return ReplyResult{}, fmt.Errorf("failed to create session: %w", err)
	}
	defer func() {
		_ = rc.sessionService.Delete(ctx, &session.DeleteRequest{
			AppName:   rc.appName,
			UserID:    userID,
			SessionID: sessionID,
		})
	}()

	var output string
	for event, err := range rc.runner.Run(ctx, userID, sessionID, userMessage, agent.RunConfig{StreamingMode: agent.StreamingModeNone}) {
		if err != nil {
			return ReplyResult{}, apperr.Generation("reply generation failed", err)
		}
		if event.Content != nil {
			for _, part := range event.Content.Parts {
				output += part.Text
			}
		}
	}

	return parseReplyResult(output)
}

func parseReplyResult(output string) (ReplyResult, error) {
	cleaned := strings.TrimSpace(output)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	// Models occasionally wrap the object in prose; recover the outermost
	// braces before giving up.
	if !strings.HasPrefix(cleaned, "{") {
		start := strings.Index(cleaned, "{")
		end := strings.LastIndex(cleaned, "}")
		if start == -1 || end <= start {
			return ReplyResult{}, apperr.Generation("model output is not valid JSON", nil)
		}
		cleaned = cleaned[start : end+1]
	}

	var result ReplyResult
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		return ReplyResult{}, apperr.Generation("failed to parse model output", err)
	}
	if strings.TrimSpace(result.Reply) == "" {
		return ReplyResult{}, apperr.Generation("model returned an empty reply", nil)
	}
	return result, nil
}
