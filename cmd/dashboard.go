// cmd/dashboard.go
package cmd

import (
	"time"

	"github.com/aceteam-ai/skillcraft/internal/tui/dashboard"
	"github.com/aceteam-ai/skillcraft/internal/usage"
	"github.com/spf13/cobra"
)

var dashboardInterval time.Duration

var dashboardCmd = &cobra.Command{
	Use:     "dashboard",
	Aliases: []string{"dash"},
	Short:   "Show usage totals and the latest calls in a terminal dashboard",
	Long: `Opens a read-only terminal dashboard over the usage log: total resource
units, total compute unit hours and the most recent 25 calls. The log is
re-read on every refresh.

Keys: r refresh, a toggle auto-refresh, q quit.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		agg := usage.NewAggregator(usage.OpenLog(cfg.CostFile))
		d := dashboard.NewTviewDashboard("SkillCraft · KPIs de uso", dashboardInterval, func() (usage.Snapshot, error) {
			return agg.Snapshot(dashboard.RecentRows)
		})
		return d.Run()
	},
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
	dashboardCmd.Flags().DurationVar(&dashboardInterval, "interval", dashboard.DefaultRefreshInterval, "auto-refresh interval")
}
