// cmd/preflight/main.go
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hostdiag/preflight/internal/checks"
	"github.com/hostdiag/preflight/internal/cli"
	"github.com/hostdiag/preflight/internal/config"
	"github.com/hostdiag/preflight/internal/server"
	"github.com/hostdiag/preflight/internal/store"
)

var (
	configPath string
	appDir     string
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:   "preflight",
	Short: "Deployment diagnostics for Node.js hosting",
	Long: `preflight checks a Node.js application directory for deployment
problems: runtime versions, build artifacts, hosting environment,
network and permission issues. It also serves a diagnostics dashboard
with live progress and automated fix suggestions.`,
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the diagnostics dashboard server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if appDir != "" {
			cfg.BaseDir = appDir
		}

		srv, err := server.NewServer(cfg)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return srv.Run(ctx)
	},
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Quick diagnosis of the application directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		summary := checks.RunAll(cmd.Context(), resolveDir())
		printer := cli.NewPrinter(os.Stdout)

		if jsonOutput {
			if err := printer.PrintJSON(summary); err != nil {
				return err
			}
		} else {
			printer.PrintSummary(summary)
		}

		if summary.CriticalIssues > 0 {
			os.Exit(1)
		}
		return nil
	},
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Detailed report with every check",
	RunE: func(cmd *cobra.Command, args []string) error {
		summary := checks.RunAll(cmd.Context(), resolveDir())
		printer := cli.NewPrinter(os.Stdout)

		if jsonOutput {
			if err := printer.PrintJSON(summary); err != nil {
				return err
			}
		} else {
			printer.PrintReport(summary)
		}

		if summary.CriticalIssues > 0 {
			os.Exit(1)
		}
		return nil
	},
}

var detectHostCmd = &cobra.Command{
	Use:   "detect-host",
	Short: "Detect the hosting environment",
	RunE: func(cmd *cobra.Command, args []string) error {
		provider := checks.NewPlatformProvider(resolveDir())
		env := provider.DetectEnvironment(cmd.Context())
		printer := cli.NewPrinter(os.Stdout)

		if jsonOutput {
			return printer.PrintJSON(env)
		}
		printer.PrintEnvironment(env)
		return nil
	},
}

var diagnosisCmd = &cobra.Command{
	Use:   "diagnosis <id>",
	Short: "Show a stored dashboard diagnosis report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		db, err := store.NewDB(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()

		report, err := db.GetReport(args[0])
		if err != nil {
			return err
		}

		printer := cli.NewPrinter(os.Stdout)
		if jsonOutput {
			return printer.PrintJSON(report)
		}
		printer.PrintDiagnosisReport(report)
		return nil
	},
}

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Capture server and npm logs",
	RunE: func(cmd *cobra.Command, args []string) error {
		cli.NewPrinter(os.Stdout).CaptureLogs(cmd.Context())
		return nil
	},
}

func loadConfig() (*config.ServerConfig, error) {
	if configPath == "" {
		return config.DefaultServerConfig(), nil
	}
	cfg, err := config.LoadServerConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func resolveDir() string {
	if appDir != "" {
		return appDir
	}
	dir, _ := os.Getwd()
	return dir
}

func init() {
	rootCmd.PersistentFlags().StringVar(&appDir, "dir", "", "application directory (default: working directory)")

	serveCmd.Flags().StringVar(&configPath, "config", "", "path to YAML config file")
	diagnosisCmd.Flags().StringVar(&configPath, "config", "", "path to YAML config file")

	for _, cmd := range []*cobra.Command{checkCmd, reportCmd, detectHostCmd, diagnosisCmd} {
		cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	}

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(detectHostCmd)
	rootCmd.AddCommand(diagnosisCmd)
	rootCmd.AddCommand(captureCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
