package main

import (
	"github.com/spf13/cobra"

	"thumbsmith/internal/catalog"
)

func newCatalogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "Print the style, tone and placement options as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := catalog.Default().YAML()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}
