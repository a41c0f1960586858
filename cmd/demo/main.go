// Command demo wires an Agent and a small SupervisorAgent topology against
// the Anthropic provider adapter and runs one turn end to end.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/paragon-intelligence/agentle4j-sub001/providers/anthropic"
	"github.com/paragon-intelligence/agentle4j-sub001/runtime/agent"
	"github.com/paragon-intelligence/agentle4j-sub001/runtime/orchestrator"
)

func main() {
	ctx := context.Background()

	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		fmt.Println("ANTHROPIC_API_KEY not set; nothing to run")
		return
	}

	client, err := anthropic.NewFromAPIKey(apiKey, anthropic.Options{MaxTokens: 1024})
	if err != nil {
		panic(err)
	}

	researcher, err := agent.New("researcher", client,
		agent.WithModel("claude-sonnet-4-5"),
		agent.WithInstructions("You answer research questions concisely."),
	)
	if err != nil {
		panic(err)
	}

	coordinator, err := orchestrator.NewSupervisor("coordinator", client, []orchestrator.Worker{
		{Name: "researcher", Description: "answers research questions", Target: researcher},
	}, agent.WithModel("claude-sonnet-4-5"), agent.WithInstructions("You delegate research tasks to your team."))
	if err != nil {
		panic(err)
	}

	res, err := coordinator.Interact(ctx, agent.TextInput("What is the capital of France, and why?"))
	if err != nil {
		panic(err)
	}
	if succ, ok := res.Success(); ok {
		fmt.Println("Assistant:", succ.Output)
		return
	}
	if errRes, ok := res.Error(); ok {
		fmt.Println("Run failed:", errRes.Cause)
	}
}
