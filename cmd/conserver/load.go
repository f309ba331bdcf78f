package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Write the link, storage and chain definitions of the config into Redis",
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer b.Close()

		err = b.cfg.Validate()
		if err != nil {
			return err
		}

		err = b.cfg.Apply(cmd.Context(), b.chains)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "loaded %d links, %d storages and %d chains\n",
			len(b.cfg.Links), len(b.cfg.Storages), len(b.cfg.Chains))

		return nil
	},
}
