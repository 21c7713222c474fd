package main

import (
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/macinv/internal/application"
	"github.com/JonMunkholm/macinv/internal/core"
)

func newTemplateCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "template",
		Short: "Write the import template workbook",
		Long: `Write the import template. With --ap the site column is
prefilled and restricted to that site; otherwise every catalog site is
offered.

Does not connect to the database.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			catalog, err := application.Catalog(&cfg.Catalog)
			if err != nil {
				return err
			}
			data, err := core.BuildTemplate(catalog, site)
			if err != nil {
				return err
			}
			return writeOutput(cmd, output, core.TemplateFileName(site), data)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file, - for stdout (default: the download name)")
	return cmd
}
