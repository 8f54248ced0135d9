package oracle

import (
	"fmt"
	"strings"
)

const decomposeSystemPrompt = `You are a task planner for a command-line automation agent.
Split the user's task into sequential phases. Each phase has a clear goal and
verifiable success criteria. Keep the plan minimal: simple tasks get a single
phase. Respond with ONLY a JSON object, no prose, in this form:
{
  "task_analysis": "one-sentence reading of the task",
  "complexity": "simple|moderate|complex",
  "phases": [
    {
      "phase_id": 1,
      "name": "short name",
      "goal": "what this phase accomplishes",
      "dependencies": [],
      "success_criteria": "how to tell the phase succeeded"
    }
  ]
}
Dependencies list phase_ids that must succeed first. Never create cycles.`

const stepsSystemPrompt = `You are a shell command generator for a command-line automation agent.
Given a phase goal and the execution history, produce the next commands to
run. Rules:
- Commands must be non-interactive. Never use editors, pagers, or prompts.
- One logical action per step. Prefer short, verifiable commands.
- Use the execution history: do not repeat work that already succeeded.
- If the history shows the phase goal is already met, return an empty steps
  list with "is_complete": true.
Respond with ONLY a JSON object, no prose, in this form:
{
  "thought": "brief reasoning",
  "steps": [
    {"description": "what this does", "command": "the exact command"}
  ],
  "is_complete": false
}`

func decomposeUserPrompt(req DecomposeRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task: %s\n", req.Task)
	if req.Environment != "" {
		fmt.Fprintf(&b, "\nTarget environment:\n%s\n", req.Environment)
	}
	if req.ExtraContext != "" {
		fmt.Fprintf(&b, "\nAdditional context:\n%s\n", req.ExtraContext)
	}
	return b.String()
}

func stepsUserPrompt(req StepsRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task: %s\n", req.Task)
	if req.Phase != nil {
		fmt.Fprintf(&b, "\nCurrent phase: %s\nGoal: %s\n", req.Phase.Name, req.Phase.Goal)
		if req.Phase.SuccessCriteria != "" {
			fmt.Fprintf(&b, "Success criteria: %s\n", req.Phase.SuccessCriteria)
		}
	}
	if req.Environment != "" {
		fmt.Fprintf(&b, "\nTarget environment:\n%s\n", req.Environment)
	}
	if req.History != "" {
		fmt.Fprintf(&b, "\nExecution history:\n%s\n", req.History)
	}
	if req.ExtraContext != "" {
		fmt.Fprintf(&b, "\nAdditional context:\n%s\n", req.ExtraContext)
	}
	if req.Guidance != "" {
		fmt.Fprintf(&b, "\nRecovery guidance:\n%s\n", req.Guidance)
	}
	return b.String()
}
