// cmd/scrape.go
package cmd

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aceteam-ai/skillcraft/internal/scrape"
	"github.com/aceteam-ai/skillcraft/internal/tui/spinner"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	scrapePages int
	scrapeOut   string
	scrapeQuery string
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Collect GitHub issues into a JSONL dataset",
	Long: `Pages through the GitHub issue search API, one page per second, and writes
one JSON object per issue. Set GITHUB_TOKEN to raise the API rate limit.`,
	Example: `  # Default query, up to 30 pages
  skillcraft scrape

  # A small sample of Go issues
  skillcraft scrape --pages 2 --query 'label:"good first issue" state:open language:go' --out /tmp/go.jsonl`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s := scrape.NewGitHubScraper(scrape.Config{
			Query:    scrapeQuery,
			MaxPages: scrapePages,
			Token:    os.Getenv("GITHUB_TOKEN"),
			Logger:   logger.Named("scrape"),
		})

		progress := spinner.New(spinner.ScrapingMessages)
		progress.Start()
		issues, err := s.Scrape(cmd.Context())
		if err != nil {
			if len(issues) == 0 {
				progress.StopWithError(err.Error())
				return err
			}
			logger.Warn("scrape stopped early, writing partial dataset", zap.Error(err), zap.Int("issues", len(issues)))
		}

		progress.StopWithSuccess(fmt.Sprintf("%d issues descargados", len(issues)))

		if err := os.MkdirAll(filepath.Dir(scrapeOut), 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		f, err := os.Create(scrapeOut)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", scrapeOut, err)
		}
		defer f.Close()

		w := bufio.NewWriter(f)
		if err := scrape.WriteJSONL(w, issues); err != nil {
			return fmt.Errorf("failed to write dataset: %w", err)
		}
		if err := w.Flush(); err != nil {
			return fmt.Errorf("failed to write dataset: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d issues to %s\n", len(issues), scrapeOut)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scrapeCmd)
	scrapeCmd.Flags().IntVar(&scrapePages, "pages", scrape.DefaultMaxPages, "maximum pages to fetch")
	scrapeCmd.Flags().StringVar(&scrapeOut, "out", scrape.DefaultOutput, "output JSONL path")
	scrapeCmd.Flags().StringVar(&scrapeQuery, "query", scrape.DefaultQuery, "GitHub issue search query")
}
