package oracle

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"

	"github.com/rcoury/aish/internal/models"
)

// scriptedModel returns canned completions in order.
type scriptedModel struct {
	responses []string
	calls     int
	lastUser  string
}

func (m *scriptedModel) GenerateContent(_ context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	for _, msg := range messages {
		if msg.Role == schema.ChatMessageTypeHuman {
			for _, part := range msg.Parts {
				if text, ok := part.(llms.TextContent); ok {
					m.lastUser = text.Text
				}
			}
		}
	}
	resp := m.responses[m.calls%len(m.responses)]
	m.calls++
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: resp}},
	}, nil
}

func (m *scriptedModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	resp, err := m.GenerateContent(ctx, []llms.MessageContent{llms.TextParts(schema.ChatMessageTypeHuman, prompt)}, options...)
	if err != nil {
		return "", err
	}
	return resp.Choices[0].Content, nil
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare object", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"plain fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"surrounding prose", "Sure, here you go:\n{\"a\":1}\nHope that helps!", `{"a":1}`},
		{"no object", "I cannot help with that.", ""},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractJSON(tt.in))
		})
	}
}

func TestPlanSteps(t *testing.T) {
	model := &scriptedModel{responses: []string{`{
		"thought": "need to inspect the service first",
		"steps": [
			{"description": "check service state", "command": "systemctl status nginx"}
		],
		"is_complete": false
	}`}}
	o := NewWithModel(model, 0)

	plan, err := o.PlanSteps(context.Background(), StepsRequest{
		Task:    "restart nginx",
		Phase:   &models.Phase{ID: 1, Name: "diagnose", Goal: "find out why nginx is down"},
		History: "no execution history",
	})
	require.NoError(t, err)
	require.Len(t, plan.Steps, 1)
	assert.Equal(t, "systemctl status nginx", plan.Steps[0].Command)
	assert.False(t, plan.IsComplete)

	assert.Contains(t, model.lastUser, "restart nginx")
	assert.Contains(t, model.lastUser, "diagnose")
	assert.Contains(t, model.lastUser, "no execution history")
}

func TestPlanStepsCompleteWithNoSteps(t *testing.T) {
	model := &scriptedModel{responses: []string{`{"thought":"done","steps":[],"is_complete":true}`}}
	o := NewWithModel(model, 0)

	plan, err := o.PlanSteps(context.Background(), StepsRequest{Task: "noop"})
	require.NoError(t, err)
	assert.True(t, plan.IsComplete)
	assert.Empty(t, plan.Steps)
}

func TestPlanStepsRejectsEmptyIncompletePlan(t *testing.T) {
	model := &scriptedModel{responses: []string{`{"thought":"stuck","steps":[],"is_complete":false}`}}
	o := NewWithModel(model, 0)

	_, err := o.PlanSteps(context.Background(), StepsRequest{Task: "anything"})
	require.Error(t, err)
}

func TestPlanStepsRecoveryGuidanceReachesModel(t *testing.T) {
	model := &scriptedModel{responses: []string{`{"thought":"retry with sudo","steps":[{"description":"retry","command":"sudo apt install jq"}],"is_complete":false}`}}
	o := NewWithModel(model, 0)

	_, err := o.PlanSteps(context.Background(), StepsRequest{
		Task:     "install jq",
		Guidance: "The previous command failed with permission denied.",
	})
	require.NoError(t, err)
	assert.Contains(t, model.lastUser, "permission denied")
}

func TestDecomposeTask(t *testing.T) {
	model := &scriptedModel{responses: []string{"```json\n" + `{
		"task_analysis": "multi-step deployment",
		"complexity": "moderate",
		"phases": [
			{"phase_id": 1, "name": "install", "goal": "install packages", "dependencies": [], "success_criteria": "packages present"},
			{"phase_id": 2, "name": "configure", "goal": "write config", "dependencies": [1], "success_criteria": "service configured"}
		]
	}` + "\n```"}}
	o := NewWithModel(model, 0)

	plan, err := o.DecomposeTask(context.Background(), DecomposeRequest{Task: "deploy the app"})
	require.NoError(t, err)
	require.Len(t, plan.Phases, 2)
	assert.Equal(t, "install", plan.Phases[0].Name)
	assert.Equal(t, []int{1}, plan.Phases[1].Dependencies)
	assert.Contains(t, model.lastUser, "deploy the app")
}

func TestDecomposeTaskMalformedResponse(t *testing.T) {
	model := &scriptedModel{responses: []string{"sorry, no JSON here"}}
	o := NewWithModel(model, 0)

	_, err := o.DecomposeTask(context.Background(), DecomposeRequest{Task: "anything"})
	require.Error(t, err)
}

func TestNewRequiresModel(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
}
