// Package oracle talks to the language model that plans phases and
// generates shell commands. It is the only package that knows about the
// model API; everything else consumes the Client interface.
package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"

	"github.com/rcoury/aish/internal/models"
)

// Config selects the model endpoint. BaseURL allows OpenAI-compatible
// local servers (ollama, llama.cpp, vllm).
type Config struct {
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	APIKey      string  `yaml:"api_key"`
	Temperature float64 `yaml:"temperature"`
}

// DefaultTemperature keeps command generation close to deterministic.
const DefaultTemperature = 0.2

// StepsRequest carries everything the model needs to produce the next
// batch of commands for a phase.
type StepsRequest struct {
	Task         string
	Phase        *models.Phase
	History      string // execution log summary
	Environment  string // target environment brief
	ExtraContext string // user-supplied context file content
	Guidance     string // recovery guidance after a failure, if any
}

// DecomposeRequest asks the model to split a task into phases.
type DecomposeRequest struct {
	Task         string
	Environment  string
	ExtraContext string
}

// Client is the planning surface the agent depends on.
type Client interface {
	DecomposeTask(ctx context.Context, req DecomposeRequest) (*models.PhasePlan, error)
	PlanSteps(ctx context.Context, req StepsRequest) (*models.PlanResponse, error)
}

// Oracle implements Client over an OpenAI-compatible chat endpoint.
type Oracle struct {
	llm         llms.Model
	temperature float64
}

// New builds the model client from config.
func New(cfg Config) (*Oracle, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("oracle: model is required")
	}
	opts := []openai.Option{
		openai.WithModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	if cfg.APIKey != "" {
		opts = append(opts, openai.WithToken(cfg.APIKey))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("oracle: create client: %w", err)
	}
	temp := cfg.Temperature
	if temp == 0 {
		temp = DefaultTemperature
	}
	return &Oracle{llm: llm, temperature: temp}, nil
}

// NewWithModel wires an existing llms.Model, used by tests.
func NewWithModel(llm llms.Model, temperature float64) *Oracle {
	if temperature == 0 {
		temperature = DefaultTemperature
	}
	return &Oracle{llm: llm, temperature: temperature}
}

func (o *Oracle) complete(ctx context.Context, system, user string) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeSystem, system),
		llms.TextParts(schema.ChatMessageTypeHuman, user),
	}
	resp, err := o.llm.GenerateContent(ctx, messages, llms.WithTemperature(o.temperature))
	if err != nil {
		return "", fmt.Errorf("oracle: generate: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("oracle: empty response")
	}
	return resp.Choices[0].Content, nil
}

// DecomposeTask splits the task into ordered phases with dependencies.
func (o *Oracle) DecomposeTask(ctx context.Context, req DecomposeRequest) (*models.PhasePlan, error) {
	raw, err := o.complete(ctx, decomposeSystemPrompt, decomposeUserPrompt(req))
	if err != nil {
		return nil, err
	}
	var plan models.PhasePlan
	if err := decodeJSON(raw, &plan); err != nil {
		return nil, fmt.Errorf("oracle: decompose response: %w", err)
	}
	if err := plan.Validate(); err != nil {
		return nil, fmt.Errorf("oracle: decompose response: %w", err)
	}
	return &plan, nil
}

// PlanSteps asks for the next commands toward the phase goal. An empty
// step list with is_complete=true means the phase goal is already met.
func (o *Oracle) PlanSteps(ctx context.Context, req StepsRequest) (*models.PlanResponse, error) {
	raw, err := o.complete(ctx, stepsSystemPrompt, stepsUserPrompt(req))
	if err != nil {
		return nil, err
	}
	var plan models.PlanResponse
	if err := decodeJSON(raw, &plan); err != nil {
		return nil, fmt.Errorf("oracle: steps response: %w", err)
	}
	if err := plan.Validate(); err != nil {
		return nil, fmt.Errorf("oracle: steps response: %w", err)
	}
	return &plan, nil
}

// decodeJSON tolerates markdown code fences and prose around the JSON
// object, which chat models produce despite instructions.
func decodeJSON(raw string, v any) error {
	cleaned := extractJSON(raw)
	if cleaned == "" {
		return fmt.Errorf("no JSON object in response")
	}
	return json.Unmarshal([]byte(cleaned), v)
}

func extractJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if i := strings.Index(s, "```"); i >= 0 {
		s = s[i+3:]
		s = strings.TrimPrefix(s, "json")
		if j := strings.Index(s, "```"); j >= 0 {
			s = s[:j]
		}
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}
