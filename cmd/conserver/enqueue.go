package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var enqueueCmd = &cobra.Command{
	Use:   "enqueue <ingress> <vcon-id>...",
	Short: "Push vCon ids onto an ingress list",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer b.Close()

		err = b.queue.Push(cmd.Context(), args[0], args[1:]...)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "pushed %d ids onto %s\n", len(args)-1, args[0])
		return nil
	},
}
