package llm

import (
	"context"
	"fmt"
)

const generatorSystemPrompt = "You are a helpful assistant who answers questions on biomedical queries. " +
	"Please provide an ANSWER to the QUESTION based on the information given in CONTEXT. " +
	"Please just provide a short answer."

// Generator samples answers to a question grounded on a context passage.
type Generator struct {
	client *Client
}

func NewGenerator(c *Client) *Generator {
	return &Generator{client: c}
}

func (g *Generator) Generate(ctx context.Context, question, passage string) ([]string, error) {
	n := g.client.cfg.Generations
	if n <= 0 {
		n = 1
	}
	return g.client.complete(ctx, completion{
		model:     g.client.cfg.Model,
		system:    generatorSystemPrompt,
		user:      generatorPrompt(question, passage),
		n:         n,
		maxTokens: g.client.cfg.MaxTokens,
	})
}

func generatorPrompt(question, passage string) string {
	return fmt.Sprintf("CONTEXT: %s\nQUESTION: %s\nANSWER:", passage, question)
}
