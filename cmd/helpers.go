// cmd/helpers.go
package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/aceteam-ai/skillcraft/internal/completion"
	"github.com/aceteam-ai/skillcraft/internal/config"
	"github.com/aceteam-ai/skillcraft/internal/jobs"
	"github.com/aceteam-ai/skillcraft/internal/router"
	"github.com/aceteam-ai/skillcraft/internal/usage"
	"github.com/aceteam-ai/skillcraft/internal/watsonx"
)

// newBilledRouter wires the watsonx client, the usage log and the router.
// Every completion it issues is appended to cfg.CostFile.
func newBilledRouter(cfg *config.Config) (*router.Router, *usage.Log, error) {
	wx, err := watsonx.NewClient(watsonx.Config{
		URL:       cfg.Watsonx.URL,
		IAMURL:    cfg.Watsonx.IAMURL,
		APIKey:    cfg.Watsonx.APIKey,
		ProjectID: cfg.Watsonx.ProjectID,
		ModelID:   cfg.Watsonx.ModelID,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create watsonx client: %w", err)
	}

	log := usage.OpenLog(cfg.CostFile)
	client := completion.NewClient(wx, log, completion.WithLogger(logger.Named("completion")))
	return router.New(client, jobs.DefaultRegistry(), logger.Named("router")), log, nil
}

// promptPrinter is a Completer that prints prompts instead of sending them.
// Nothing is generated, so nothing is billed.
type promptPrinter struct {
	out io.Writer
}

func (p promptPrinter) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	fmt.Fprintf(p.out, "--- prompt (max %d tokens) ---\n%s\n\n", maxTokens, prompt)
	return "", nil
}

var _ completion.Completer = promptPrinter{}
