package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openaisdk "github.com/openai/openai-go"

	contractx "github.com/autopitch/callflow/agent/contract"
	statex "github.com/autopitch/callflow/agent/state"
)

const classifySystemPrompt = `You classify one prospect utterance from a sales call.
Respond with a single JSON object and nothing else:
{"intent":"interested|not_interested|busy|question|confirming|other","tone":"friendly|rushed|skeptical|neutral","confidence":0.0}
Reconcile any mixed signals yourself and return exactly one intent and one tone.`

type llmClassification struct {
	Intent     string  `json:"intent"`
	Tone       string  `json:"tone"`
	Confidence float64 `json:"confidence"`
}

// OpenAI classifies via a chat model behind the OpenAI-compatible API.
// Failures surface as ErrClassification; the orchestrator degrades to the
// previous turn's classification rather than aborting the turn.
type OpenAI struct {
	client *openaisdk.Client
	model  string
}

func NewOpenAI(client *openaisdk.Client, model string) (*OpenAI, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: openai client is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(model) == "" {
		return nil, fmt.Errorf("%w: classifier model is required", contractx.ErrValidation)
	}
	return &OpenAI{client: client, model: strings.TrimSpace(model)}, nil
}

func (c *OpenAI) Classify(ctx context.Context, utterance string, historyTail []statex.Turn) (contractx.Classification, error) {
	payload := map[string]any{
		"utterance": utterance,
		"history":   summarizeTail(historyTail),
	}
	input, err := json.Marshal(payload)
	if err != nil {
		return contractx.Classification{}, fmt.Errorf("%w: marshal classify payload: %v", contractx.ErrClassification, err)
	}

	resp, err := c.client.Chat.Completions.New(ctx, openaisdk.ChatCompletionNewParams{
		Model: openaisdk.ChatModel(c.model),
		Messages: []openaisdk.ChatCompletionMessageParamUnion{
			openaisdk.SystemMessage(classifySystemPrompt),
			openaisdk.UserMessage(string(input)),
		},
		Temperature: openaisdk.Float(0),
	})
	if err != nil {
		return contractx.Classification{}, fmt.Errorf("%w: %v", contractx.ErrClassification, err)
	}
	if len(resp.Choices) == 0 {
		return contractx.Classification{}, fmt.Errorf("%w: empty completion", contractx.ErrClassification)
	}

	var out llmClassification
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		return contractx.Classification{}, fmt.Errorf("%w: decode %q: %v", contractx.ErrClassification, content, err)
	}

	return contractx.Classification{
		Intent:     statex.NormalizeIntent(out.Intent),
		Tone:       statex.NormalizeTone(out.Tone),
		Confidence: out.Confidence,
	}, nil
}

func summarizeTail(tail []statex.Turn) []map[string]string {
	if len(tail) == 0 {
		return nil
	}
	out := make([]map[string]string, 0, len(tail))
	for _, t := range tail {
		out = append(out, map[string]string{
			"role": string(t.Role),
			"text": t.Text,
		})
	}
	return out
}
