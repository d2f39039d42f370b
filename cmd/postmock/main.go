// Package main provides the postmock CLI.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/lipgloss"
	"github.com/gogpu/gg"
	"github.com/spf13/cobra"

	"github.com/blackmichael/postmock/internal/config"
	"github.com/blackmichael/postmock/internal/studio"
)

// Build info set via ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// buildVersion returns the full version string including commit and date.
func buildVersion() string {
	if commit == "none" && date == "unknown" {
		return version
	}
	shortCommit := commit
	if len(commit) > 7 {
		shortCommit = commit[:7]
	}
	return fmt.Sprintf("%s (%s, %s)", version, shortCommit, date)
}

func main() {
	os.Exit(run())
}

func run() int {
	cmd := newRootCmd()
	if err := fang.Execute(context.Background(), cmd, fang.WithVersion(buildVersion())); err != nil {
		return 1
	}
	return 0
}

// newRootCmd creates the root command for the postmock CLI.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "postmock",
		Short: "Render social media post mockups",
		Long: `postmock renders mockups of short social media posts as PNG images.

Posts are described in YAML, filled from a profile lookup, or built by an
agent through the MCP server. Configuration comes from the same POSTMOCK_*
environment variables the web server reads.`,
		Version:       buildVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().Bool("verbose", false, "Log debug output to stderr")

	lipgloss.SetHasDarkBackground(true)

	cmd.AddCommand(newRenderCmd())
	cmd.AddCommand(newFormatCmd())
	cmd.AddCommand(newMCPCmd())

	return cmd
}

// openStudio builds a studio from the environment. Logs go to stderr so
// stdout stays free for command output and the MCP transport.
func openStudio(cmd *cobra.Command) (*studio.Studio, func() error, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	level := cfg.LogLevel
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	gg.SetLogger(logger)

	return studio.FromConfig(cfg, logger)
}

// isTTY reports whether w is a terminal.
func isTTY(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	stat, err := file.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) != 0
}
