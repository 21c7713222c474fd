package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/macinv/internal/core"
)

func newImportCmd() *cobra.Command {
	var (
		actor      core.Actor
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Import devices from a workbook",
		Long: `Import devices from the first sheet of an .xlsx workbook.

Rows whose MAC is already registered are reported as duplicates; invalid
rows are reported with every problem found. The run is recorded in the
audit log under the given actor.

  macinv import devices.xlsx --actor-id u-7 --actor-name "Luis" --actor-role ADMIN
  macinv import devices.xlsx --ap "Bonanza 1" --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			app, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			actor.Role = strings.ToUpper(strings.TrimSpace(actor.Role))
			ctx := core.ContextWithActor(cmd.Context(), actor)
			ctx = core.ContextWithUserAgent(ctx, "macinv-cli")

			result, importErr := app.Service.ImportDevices(ctx, data, site)
			if result != nil {
				if jsonOutput {
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					if err := enc.Encode(result); err != nil {
						return err
					}
				} else {
					printImportResult(cmd.OutOrStdout(), result)
				}
			}
			return importErr
		},
	}

	cmd.Flags().StringVar(&actor.ID, "actor-id", "", "id of the user performing the import")
	cmd.Flags().StringVar(&actor.Name, "actor-name", "", "display name recorded in the audit log")
	cmd.Flags().StringVar(&actor.Role, "actor-role", "", "role recorded in the audit log")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "JSON output")
	_ = cmd.MarkFlagRequired("actor-id")
	return cmd
}

func printImportResult(w io.Writer, r *core.ImportResult) {
	s := r.Summary
	fmt.Fprintf(w, "Rows: %d  Valid: %d  Inserted: %d  Duplicates: %d  Failed: %d\n",
		s.TotalRows, s.ParsedValid, s.Inserted, s.Duplicates, s.Failed)

	for _, d := range r.Duplicates {
		fmt.Fprintf(w, "  row %d duplicate %s: %s\n", d.Row, d.Mac, d.Message)
	}
	for _, f := range r.Failed {
		fmt.Fprintf(w, "  row %d: %s\n", f.Row, strings.Join(f.Errors, "; "))
	}
}
