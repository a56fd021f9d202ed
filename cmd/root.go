// cmd/root.go
/*
Copyright © 2025 AceTeam <dev@aceteam.ai>
*/
package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aceteam-ai/skillcraft/internal/config"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var cfgFile string
var costFile string
var debugMode bool
var noColor bool

// logger is built once per invocation in PersistentPreRunE.
var logger = zap.NewNop()

// debugLogPath returns ~/.skillcraft/logs/debug.log, creating the directory.
func debugLogPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	logDir := filepath.Join(homeDir, ".skillcraft", "logs")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return "", err
	}
	return filepath.Join(logDir, "debug.log"), nil
}

func buildLogger(cmd *cobra.Command) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if debugMode {
		zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		if path, err := debugLogPath(); err == nil {
			zc.OutputPaths = append(zc.OutputPaths, path)
		}
	}
	// The dashboard owns the terminal; only the debug file may receive logs.
	if cmd.Name() == "dashboard" {
		if !debugMode {
			return zap.NewNop(), nil
		}
		zc.OutputPaths = zc.OutputPaths[1:]
	}
	return zc.Build()
}

// commandLine reconstructs the invocation for the debug log.
func commandLine(cmd *cobra.Command, args []string) string {
	full := cmd.CommandPath()
	cmd.Flags().Visit(func(f *pflag.Flag) {
		if f.Name == "debug" {
			return
		}
		if f.Value.Type() == "bool" {
			full += " --" + f.Name
		} else {
			full += " --" + f.Name + "=" + f.Value.String()
		}
	})
	if len(args) > 0 {
		full += " " + strings.Join(args, " ")
	}
	return full
}

// loadConfig resolves the config file and applies the --cost-file override.
func loadConfig() (*config.Config, error) {
	path, explicit := cfgFile, cfgFile != ""
	if !explicit {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path, explicit)
	if err != nil {
		return nil, err
	}
	if costFile != "" {
		cfg.CostFile = costFile
	}
	return cfg, nil
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "skillcraft",
	Short: "SkillCraft routes Slack questions to watsonx and tracks what they cost",
	Long: `SkillCraft is a Slack assistant for task triage. A mention is routed to one
of three prompts (classify, plan, upskill) on the hosted watsonx model, and
every successful completion is appended to a CSV usage log that the summary,
dashboard and /usage endpoint read back.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if noColor {
			color.NoColor = true
		}
		l, err := buildLogger(cmd)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logger = l
		logger.Debug("command", zap.String("cmdline", commandLine(cmd, args)))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.skillcraft/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&costFile, "cost-file", "", "usage log path (overrides SKILLCRAFT_COST_FILE)")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable color output")
}
