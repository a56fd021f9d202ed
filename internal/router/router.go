// Package router turns a free-text chat message into one prompt operation
// and returns that operation's reply.
package router

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/aceteam-ai/skillcraft/internal/completion"
	"github.com/aceteam-ai/skillcraft/internal/jobs"
	"go.uber.org/zap"
)

// selectionMaxTokens bounds the model's answer when it picks an operation.
const selectionMaxTokens = 8

// HelpText is returned for messages with nothing to route.
const HelpText = "Puedo ayudarte con: `classify <tarea>`, `plan <tarea>` o `upskill <tema>`."

var mentionPattern = regexp.MustCompile(`<@[A-Z0-9]+(\|[^>]*)?>`)

// Router dispatches messages to jobs handlers.
type Router struct {
	completer completion.Completer
	registry  *jobs.Registry
	fallback  jobs.Operation
	logger    *zap.Logger
}

// New returns a Router. A nil registry uses jobs.DefaultRegistry().
func New(c completion.Completer, registry *jobs.Registry, logger *zap.Logger) *Router {
	if registry == nil {
		registry = jobs.DefaultRegistry()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		completer: c,
		registry:  registry,
		fallback:  jobs.OpClassify,
		logger:    logger,
	}
}

// Route selects an operation for message and runs it.
func (r *Router) Route(ctx context.Context, message string) (string, error) {
	op, text, err := r.Select(ctx, message)
	if err != nil {
		return "", err
	}
	if text == "" {
		return HelpText, nil
	}
	return r.Run(ctx, op, text)
}

// Run executes op directly on text.
func (r *Router) Run(ctx context.Context, op jobs.Operation, text string) (string, error) {
	h, ok := r.registry.Get(op)
	if !ok {
		return "", fmt.Errorf("no handler registered for operation %q", op)
	}
	r.logger.Info("running operation", zap.String("operation", op.String()), zap.Int("chars", len(text)))
	return h.Execute(ctx, r.completer, text)
}

// Select decides which operation handles message and returns the text the
// operation should receive. An explicit "op:" or "op " prefix wins; otherwise
// the model is asked to choose. Empty input yields an empty text and no
// model call.
func (r *Router) Select(ctx context.Context, message string) (jobs.Operation, string, error) {
	text := Clean(message)
	if text == "" {
		return r.fallback, "", nil
	}

	if op, rest, ok := explicitOperation(text); ok {
		return op, rest, nil
	}

	answer, err := r.completer.Complete(ctx, selectionPrompt(text), selectionMaxTokens)
	if err != nil {
		return "", "", fmt.Errorf("select operation: %w", err)
	}

	op, ok := parseSelection(answer)
	if !ok {
		r.logger.Debug("unrecognised operation choice, using fallback",
			zap.String("answer", answer), zap.String("fallback", r.fallback.String()))
		op = r.fallback
	}
	return op, text, nil
}

// Clean strips Slack user mentions and surrounding whitespace.
func Clean(message string) string {
	return strings.TrimSpace(mentionPattern.ReplaceAllString(message, ""))
}

func explicitOperation(text string) (jobs.Operation, string, bool) {
	head, rest, found := strings.Cut(text, ":")
	if found {
		if op, err := jobs.ParseOperation(head); err == nil {
			return op, strings.TrimSpace(rest), true
		}
	}

	fields := strings.Fields(text)
	if len(fields) > 1 {
		if op, err := jobs.ParseOperation(fields[0]); err == nil {
			return op, strings.TrimSpace(strings.TrimPrefix(text, fields[0])), true
		}
	}
	return "", "", false
}

func selectionPrompt(text string) string {
	return "Elige la herramienta adecuada para la petición del usuario. " +
		"Responde solo con una palabra: classify, plan o upskill.\n" +
		"- classify: resumir o clasificar un mensaje o tarea\n" +
		"- plan: plan paso a paso para automatizar algo\n" +
		"- upskill: recomendar cursos para aprender algo\n" +
		"Petición: " + text + "\nHerramienta:"
}

func parseSelection(answer string) (jobs.Operation, bool) {
	for _, word := range strings.FieldsFunc(strings.ToLower(answer), func(r rune) bool {
		return !(r >= 'a' && r <= 'z')
	}) {
		if op, err := jobs.ParseOperation(word); err == nil {
			return op, true
		}
	}
	return "", false
}
