package intent

import (
	"context"
	"encoding/json"
	log "log/slog"
	"strings"

	openai "github.com/openai/openai-go/v3"
)

const fallbackPrompt = `
You are the intent classifier for a personal voice assistant.
Convert the user's utterance into minimal structured JSON.

GENERAL RULES:
1. Do NOT converse.
2. Do NOT answer the question.
3. Output ONLY JSON. No markdown.

OUTPUT FORMAT:
{
  "kind": "<string>",
  "params": { ... }
}

KINDS (canonical, snake_case):
- "chat"            general conversation or a question to answer
- "open_app"        params: {"app": "<name>"}
- "web_search"      params: {"query": "<terms>"}
- "set_preference"  params: {"key": "<what>", "value": "<value>"}
- "unrecognized"    if the utterance is not classifiable

Never invent parameters that are not in the utterance.
Reminder phrasing is handled elsewhere; classify it as "chat".
`

type fallbackResult struct {
	Kind   string            `json:"kind"`
	Params map[string]string `json:"params"`
}

// NewModelFallback classifies rule-missed utterances with a chat model.
// Any transport or parse failure simply declines so the deterministic
// default applies.
func NewModelFallback(client openai.Client, model string) Fallback {
	return func(ctx context.Context, utterance string) (Intent, bool) {
		resp, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.SystemMessage(fallbackPrompt),
				openai.UserMessage(utterance),
			},
			Model: openai.ChatModel(model),
		})
		if err != nil {
			log.Warn("intent fallback call failed", "err", err)
			return Intent{}, false
		}
		if len(resp.Choices) == 0 {
			return Intent{}, false
		}

		content := strings.TrimSpace(resp.Choices[0].Message.Content)
		var out fallbackResult
		if err := json.Unmarshal([]byte(content), &out); err != nil {
			log.Warn("intent fallback returned non-JSON", "raw", content)
			return Intent{}, false
		}

		switch Kind(out.Kind) {
		case OpenApp, WebSearch, SetPreference, Unrecognized:
			return Intent{Kind: Kind(out.Kind), Params: out.Params}, true
		default:
			return Intent{}, false
		}
	}
}
