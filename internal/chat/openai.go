package chat

import (
	"context"
	"fmt"

	openai "github.com/openai/openai-go/v3"
)

const defaultPersona = `You are Aide, a personal voice assistant.
Answers are spoken aloud, so keep them short, conversational and free of
markdown or lists. Be direct and a little warm.`

// OpenAI is the chat completion backend.
type OpenAI struct {
	client  openai.Client
	model   string
	persona string
}

// NewOpenAI builds a backend on the given client and model.
func NewOpenAI(client openai.Client, model string) *OpenAI {
	return &OpenAI{client: client, model: model, persona: defaultPersona}
}

// SetPersona overrides the system prompt.
func (o *OpenAI) SetPersona(persona string) {
	if persona != "" {
		o.persona = persona
	}
}

// Complete sends the history and prompt to the model.
func (o *OpenAI) Complete(ctx context.Context, history []Turn, prompt string) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+2)
	messages = append(messages, openai.SystemMessage(o.persona))
	for _, t := range history {
		switch t.Role {
		case RoleAssistant:
			messages = append(messages, openai.AssistantMessage(t.Text))
		default:
			messages = append(messages, openai.UserMessage(t.Text))
		}
	}
	messages = append(messages, openai.UserMessage(prompt))

	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: messages,
		Model:    openai.ChatModel(o.model),
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("%w: empty completion", ErrUnavailable)
	}
	return resp.Choices[0].Message.Content, nil
}
