package composer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openaisdk "github.com/openai/openai-go"
	"github.com/rs/zerolog/log"

	contractx "github.com/autopitch/callflow/agent/contract"
	statex "github.com/autopitch/callflow/agent/state"
)

const composeSystemPrompt = `You phrase the next line for an outbound sales assistant called Autopitch AI.
You are given the decided action and a summary of the conversation. Write one short,
natural spoken reply that carries out the action. Never mention internal systems,
errors, or that you are an AI pipeline. Respond with the reply text only.`

// OpenAI phrases replies with a chat model. On any model failure it falls
// back to the canned template so the prospect never hears an error.
type OpenAI struct {
	client   *openaisdk.Client
	model    string
	fallback *Template
}

func NewOpenAI(client *openaisdk.Client, model string) (*OpenAI, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: openai client is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("%w: composer model is required", contractx.ErrValidation)
	}
	return &OpenAI{
		client:   client,
		model:    strings.TrimSpace(model),
		fallback: NewTemplate(),
	}, nil
}

func (c *OpenAI) Compose(ctx context.Context, st *statex.ConversationState, action contractx.Action) (string, error) {
	if st == nil {
		return "", fmt.Errorf("%w: conversation state is nil", contractx.ErrValidation)
	}

	payload := map[string]any{
		"action":    action,
		"phase":     st.Phase,
		"lead_name": st.Lead.Name,
		"company":   st.Lead.Company,
		"history":   recentText(st, 6),
	}
	if s := st.Slot(statex.SlotMeetingTime); s.Status != statex.SlotAbsent {
		payload["meeting_time"] = s
	}
	input, err := json.Marshal(payload)
	if err != nil {
		return c.fallback.Compose(ctx, st, action)
	}

	resp, err := c.client.Chat.Completions.New(ctx, openaisdk.ChatCompletionNewParams{
		Model: openaisdk.ChatModel(c.model),
		Messages: []openaisdk.ChatCompletionMessageParamUnion{
			openaisdk.SystemMessage(composeSystemPrompt),
			openaisdk.UserMessage(string(input)),
		},
	})
	if err != nil || len(resp.Choices) == 0 {
		log.Warn().Err(err).Str("session_id", st.SessionID).Msg("composer model failed, using template")
		return c.fallback.Compose(ctx, st, action)
	}

	reply := strings.TrimSpace(resp.Choices[0].Message.Content)
	if reply == "" {
		return c.fallback.Compose(ctx, st, action)
	}
	return reply, nil
}

func recentText(st *statex.ConversationState, n int) []map[string]string {
	tail := st.HistoryTail(n)
	out := make([]map[string]string, 0, len(tail))
	for _, t := range tail {
		out = append(out, map[string]string{"role": string(t.Role), "text": t.Text})
	}
	return out
}
