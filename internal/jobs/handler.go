package jobs

import (
	"context"
	"fmt"

	"github.com/aceteam-ai/skillcraft/internal/completion"
)

// Handler is implemented once per Operation.
type Handler interface {
	Operation() Operation
	Prompt(text string) string
	MaxTokens() int
	Execute(ctx context.Context, c completion.Completer, text string) (string, error)
}

// templateHandler renders a fixed prompt template and completes it.
type templateHandler struct {
	op        Operation
	maxTokens int
	render    func(text string) string
}

func (h *templateHandler) Operation() Operation { return h.op }

func (h *templateHandler) MaxTokens() int { return h.maxTokens }

func (h *templateHandler) Prompt(text string) string { return h.render(text) }

func (h *templateHandler) Execute(ctx context.Context, c completion.Completer, text string) (string, error) {
	return c.Complete(ctx, h.Prompt(text), h.maxTokens)
}

// ClassifyHandler summarizes a Slack message for quick classification.
func ClassifyHandler() Handler {
	return &templateHandler{
		op:        OpClassify,
		maxTokens: 64,
		render: func(text string) string {
			return fmt.Sprintf("Clasifica la siguiente tarea en menos de 30 palabras:\n%s", text)
		},
	}
}

// PlanHandler asks for a bullet-list automation plan of at most 7 steps.
func PlanHandler() Handler {
	return &templateHandler{
		op:        OpPlan,
		maxTokens: 256,
		render: func(text string) string {
			return "Eres un experto DevOps. Genera un plan paso a paso (bullet list) para automatizar: " +
				text + ". Usa máximo 7 bullets."
		},
	}
}

// UpskillHandler asks for three concrete online courses.
func UpskillHandler() Handler {
	return &templateHandler{
		op:        OpUpskill,
		maxTokens: 128,
		render: func(text string) string {
			return "Sugiere 3 cursos online concretos (título – plataforma – duración) para dominar: " + text
		},
	}
}

// Registry maps operations to their handlers.
type Registry struct {
	handlers map[Operation]Handler
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[Operation]Handler)}
}

// DefaultRegistry registers the classify, plan and upskill handlers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(ClassifyHandler())
	r.Register(PlanHandler())
	r.Register(UpskillHandler())
	return r
}

// Register adds h, replacing any handler for the same operation.
func (r *Registry) Register(h Handler) {
	r.handlers[h.Operation()] = h
}

// Get returns the handler for op.
func (r *Registry) Get(op Operation) (Handler, bool) {
	h, ok := r.handlers[op]
	return h, ok
}
