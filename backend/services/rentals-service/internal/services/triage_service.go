package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-models"
	"github.com/AkoshBTC024242/palmsestate-my-copy-sub001/backend/shared/go-utils"
)

const triageFunctionName = "triage_maintenance_request"

// TriageResult mirrors the JSON the model returns through the tool call.
type TriageResult struct {
	Category models.MaintenanceCategory `json:"category"`
	Priority models.MaintenancePriority `json:"priority"`
	Summary  string                     `json:"summary"`
}

type Triager interface {
	Triage(ctx context.Context, title, description string) (*TriageResult, error)
}

// OpenAITriager classifies maintenance requests. A nil client means triage
// is disabled and requests keep the defaults.
type OpenAITriager struct {
	client *openai.Client
}

func NewOpenAITriager(apiKey string, enabled bool) *OpenAITriager {
	if apiKey == "" || !enabled {
		return &OpenAITriager{client: nil}
	}
	c := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAITriager{client: &c}
}

func (s *OpenAITriager) Triage(ctx context.Context, title, description string) (*TriageResult, error) {
	if s.client == nil {
		return &TriageResult{Category: models.MaintenanceOther, Priority: models.PriorityNormal}, nil
	}

	categories := make([]string, 0, len(models.MaintenanceCategories))
	for _, c := range models.MaintenanceCategories {
		categories = append(categories, string(c))
	}
	priorities := make([]string, 0, len(models.MaintenancePriorities))
	for _, p := range models.MaintenancePriorities {
		priorities = append(priorities, string(p))
	}

	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"category": map[string]any{"type": "string", "enum": categories},
			"priority": map[string]any{"type": "string", "enum": priorities},
			"summary":  map[string]string{"type": "string"},
		},
		"required":             []string{"category", "priority", "summary"},
		"additionalProperties": false,
	}

	fn := shared.FunctionDefinitionParam{
		Name:        triageFunctionName,
		Description: openai.String("Classify a residential maintenance request."),
		Strict:      openai.Bool(true),
		Parameters:  schema,
	}

	prompt := fmt.Sprintf(`A tenant filed this maintenance request.

Title: %s
Description: %s

Call %s(strict).
Rules:
1. priority = emergency only for active water leaks, gas smell, no heat in freezing weather, electrical hazards or anything unsafe.
2. priority = high when a core appliance or utility is out but nobody is at risk.
3. summary is one sentence a property owner can act on.`, title, description, triageFunctionName)

	req := openai.ChatCompletionNewParams{
		Model:    shared.ChatModelGPT4oMini,
		Messages: []openai.ChatCompletionMessageParamUnion{openai.UserMessage(prompt)},
		Tools: []openai.ChatCompletionToolParam{{
			Function: fn,
		}},
		ToolChoice: openai.ChatCompletionToolChoiceOptionUnionParam{
			OfChatCompletionNamedToolChoice: &openai.ChatCompletionNamedToolChoiceParam{
				Function: openai.ChatCompletionNamedToolChoiceFunctionParam{
					Name: triageFunctionName,
				},
			},
		},
	}

	resp, err := s.client.Chat.Completions.New(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: openai: %v", utils.ErrExternalServiceFailure, err)
	}
	if len(resp.Choices) == 0 || len(resp.Choices[0].Message.ToolCalls) == 0 {
		return nil, fmt.Errorf("openai: no function call returned")
	}

	var out TriageResult
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.ToolCalls[0].Function.Arguments), &out); err != nil {
		return nil, fmt.Errorf("unmarshal triage result: %w", err)
	}
	out.Summary = strings.TrimSpace(out.Summary)
	if !utils.Contains(models.MaintenanceCategories, out.Category) {
		out.Category = models.MaintenanceOther
	}
	if !utils.Contains(models.MaintenancePriorities, out.Priority) {
		out.Priority = models.PriorityNormal
	}
	return &out, nil
}
