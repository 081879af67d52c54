// Command talkctl manages the talk catalog from the command line.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/talkshelf/internal/application"
	"github.com/JonMunkholm/talkshelf/internal/config"
	"github.com/JonMunkholm/talkshelf/internal/logging"
)

func main() {
	// Load .env file if it exists; explicit env vars win.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := execute(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// cli carries the state shared by every subcommand.
type cli struct {
	app *application.App
}

// execute runs one talkctl invocation and releases storage afterwards.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	c := &cli{}
	root := c.rootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if c.app != nil {
		if cerr := c.app.Close(); cerr != nil {
			slog.Warn("close storage", "error", cerr)
		}
	}
	return err
}

func (c *cli) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "talkctl",
		Short:         "Manage the talk catalog",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logging.SetupWriter(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)

			app, err := application.Open(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			c.app = app
			return nil
		},
	}

	root.AddCommand(
		c.importCmd(),
		c.exportCmd(),
		c.fetchCmd(),
		c.listCmd(),
		c.historyCmd(),
		c.resetCmd(),
	)
	return root
}
