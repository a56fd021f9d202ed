// cmd/ask.go
package cmd

import (
	"fmt"
	"strings"

	"github.com/aceteam-ai/skillcraft/internal/jobs"
	"github.com/aceteam-ai/skillcraft/internal/router"
	"github.com/aceteam-ai/skillcraft/internal/tui/spinner"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var askOp string
var askDryRun bool

var askCmd = &cobra.Command{
	Use:   "ask <message...>",
	Short: "Route one message from the terminal, as a Slack mention would be",
	Long: `Routes a message through the same operation selection the Slack bot uses
and prints the reply. Each model call is billed to the usage log.

With --op the selection step is skipped. With --dry-run the prompts are
printed instead of sent, and nothing is logged.`,
	Example: `  # Let the model pick the operation
  skillcraft ask "quiero automatizar el reporte semanal de ventas"

  # Force an operation
  skillcraft ask --op upskill "Kubernetes"

  # Inspect the prompts without calling the model
  skillcraft ask --dry-run plan: migrar la base de datos`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func runAsk(cmd *cobra.Command, args []string) error {
	message := strings.Join(args, " ")

	var op jobs.Operation
	if askOp != "" {
		parsed, err := jobs.ParseOperation(askOp)
		if err != nil {
			return err
		}
		op = parsed
	}

	var r *router.Router
	if askDryRun {
		r = router.New(promptPrinter{out: cmd.OutOrStdout()}, jobs.DefaultRegistry(), logger.Named("router"))
	} else {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		r, _, err = newBilledRouter(cfg)
		if err != nil {
			return err
		}
	}

	progress := spinner.New(spinner.WaitingMessages)
	if !askDryRun {
		progress.Start()
	}

	var reply string
	var err error
	if op != "" {
		text := router.Clean(message)
		if text == "" {
			reply = router.HelpText
		} else {
			reply, err = r.Run(cmd.Context(), op, text)
		}
	} else {
		reply, err = r.Route(cmd.Context(), message)
	}
	progress.Stop()
	if err != nil {
		logger.Error("ask failed", zap.Error(err))
		return fmt.Errorf("could not answer: %w", err)
	}

	if !askDryRun || reply == router.HelpText {
		fmt.Fprintln(cmd.OutOrStdout(), reply)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringVar(&askOp, "op", "", "run this operation directly (classify, plan, upskill)")
	askCmd.Flags().BoolVar(&askDryRun, "dry-run", false, "print the prompts instead of calling the model")
}
