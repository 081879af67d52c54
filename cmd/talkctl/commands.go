package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/google/renameio/v2"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/talkshelf/internal/core"
)

// resetTimeout bounds the reset command.
const resetTimeout = 30 * time.Second

func (c *cli) importCmd() *cobra.Command {
	var (
		preview bool
		format  string
	)

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Import talks from a CSV or JSON file",
		Long: "Import talks from a CSV or JSON file. The format is taken from the file\n" +
			"extension unless --format is given. A JSON settings export restores the\n" +
			"Sessionize URL and custom fields.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]

			f, ok := core.FormatForFile(path)
			if format != "" {
				f, ok = core.LookupFormat(format)
			}
			if !ok {
				return fmt.Errorf("%w: %s", core.ErrUnknownFormat, path)
			}

			file, err := os.Open(path)
			if err != nil {
				return err
			}
			defer file.Close()

			data, err := core.ReadUpload(file, c.app.Config.Import.MaxFileSize)
			if err != nil {
				return err
			}

			req := core.ImportRequest{Format: f.Key, FileName: filepath.Base(path), Data: data}
			var result *core.ImportResult
			if preview {
				result, err = c.app.Service.PreviewImport(cmd.Context(), req)
			} else {
				result, err = c.app.Service.Import(cmd.Context(), req)
			}
			if err != nil {
				return err
			}
			printImportResult(cmd.OutOrStdout(), result)
			return nil
		},
	}

	cmd.Flags().BoolVar(&preview, "preview", false, "Report what would be imported without saving")
	cmd.Flags().StringVar(&format, "format", "", "Import format: csv or json (default: from extension)")
	return cmd
}

func printImportResult(w io.Writer, result *core.ImportResult) {
	verb := "imported"
	if result.Preview {
		verb = "would import"
	}
	fmt.Fprintf(w, "%s %d talks, skipped %d duplicates, rejected %d rows\n",
		verb, result.Added, result.Skipped, result.Rejected)
	if result.Settings {
		fmt.Fprintln(w, "settings updated")
	}
	for _, row := range result.RejectedRows {
		fmt.Fprintf(w, "  row %d: %s\n", row.Row, row.Reason)
	}
}

func (c *cli) exportCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:       "export csv|json|settings",
		Short:     "Export talks or settings",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"csv", "json", "settings"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var (
				data []byte
				err  error
			)
			switch args[0] {
			case "csv":
				var text string
				text, err = c.app.Service.ExportCSV(ctx)
				data = []byte(text)
			case "json":
				data, err = c.app.Service.ExportJSON(ctx)
			case "settings":
				data, err = c.app.Service.ExportSettings(ctx)
			}
			if err != nil {
				return err
			}

			if output == "" || output == "-" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := renameio.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to FILE instead of stdout")
	return cmd
}

func (c *cli) fetchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fetch",
		Short: "Import talks from the configured Sessionize URL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := c.app.Service.FetchSessionize(cmd.Context())
			if err != nil {
				return err
			}
			printImportResult(cmd.OutOrStdout(), result)
			return nil
		},
	}
}

func (c *cli) listCmd() *cobra.Command {
	var (
		level       string
		maxDuration int
		asJSON      bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored talks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			talks, err := c.app.Service.FilterTalks(cmd.Context(), level, maxDuration)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(talks)
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "#\tTITLE\tLEVEL\tDURATION")
			for i, t := range talks {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%d\n", i, t.Title, t.Level, t.Duration)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&level, "level", "", "Only talks at this level")
	cmd.Flags().IntVar(&maxDuration, "max-duration", 0, "Only talks of at most this many minutes")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func (c *cli) historyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Show recent imports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := c.app.Service.ImportHistory(cmd.Context())
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "AT\tSOURCE\tFILE\tADDED\tSKIPPED\tREJECTED")
			for _, r := range records {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\n",
					r.At.Local().Format(time.DateTime), r.Source, r.FileName, r.Added, r.Skipped, r.Rejected)
			}
			return tw.Flush()
		},
	}
}

// resetCmd deletes every stored talk. It refuses to run without --yes.
func (c *cli) resetCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete all stored talks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("reset deletes every talk; pass --yes to confirm")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), resetTimeout)
			defer cancel()

			n, err := c.app.Service.DeleteAllTalks(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d talks\n", n)
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm deleting all talks")
	return cmd
}
