package llm

import (
	"context"
	"fmt"

	"github.com/petal-labs/iris/core"
)

// IrisClient adapts a core.Provider to the Client interface.
type IrisClient struct {
	provider core.Provider
}

// NewIrisClient creates an adapter for the given provider.
func NewIrisClient(provider core.Provider) *IrisClient {
	return &IrisClient{provider: provider}
}

// Complete sends a completion request to the underlying provider.
func (c *IrisClient) Complete(ctx context.Context, req Request) (Response, error) {
	chatResp, err := c.provider.Chat(ctx, c.toChatRequest(req))
	if err != nil {
		return Response{}, fmt.Errorf("provider chat failed: %w", err)
	}

	return Response{
		Text:     chatResp.Output,
		Model:    string(chatResp.Model),
		Provider: c.provider.ID(),
		Usage: TokenUsage{
			InputTokens:  chatResp.Usage.PromptTokens,
			OutputTokens: chatResp.Usage.CompletionTokens,
			TotalTokens:  chatResp.Usage.TotalTokens,
		},
	}, nil
}

// ProviderID returns the underlying provider's ID.
func (c *IrisClient) ProviderID() string {
	return c.provider.ID()
}

func (c *IrisClient) toChatRequest(req Request) *core.ChatRequest {
	messages := make([]core.Message, 0, len(req.Messages)+1)
	for _, m := range req.Messages {
		messages = append(messages, core.Message{
			Role:    toRole(m.Role),
			Content: m.Content,
		})
	}
	if req.Prompt != "" {
		messages = append(messages, core.Message{
			Role:    core.RoleUser,
			Content: req.Prompt,
		})
	}

	chatReq := &core.ChatRequest{
		Model:        core.ModelID(req.Model),
		Messages:     messages,
		Instructions: req.Instructions,
	}
	if req.Temperature != nil {
		temp := float32(*req.Temperature)
		chatReq.Temperature = &temp
	}
	if req.MaxTokens != nil {
		chatReq.MaxTokens = req.MaxTokens
	}
	return chatReq
}

func toRole(role string) core.Role {
	switch role {
	case "system":
		return core.RoleSystem
	case "assistant":
		return core.RoleAssistant
	case "tool":
		return core.RoleTool
	default:
		return core.RoleUser
	}
}

// Ensure interface compliance at compile time.
var _ Client = (*IrisClient)(nil)
