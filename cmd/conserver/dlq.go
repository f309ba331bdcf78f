package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var dlqCmd = &cobra.Command{
	Use:   "dlq",
	Short: "Inspect and reprocess dead letter queues",
}

var dlqLengthCmd = &cobra.Command{
	Use:   "length <ingress>",
	Short: "Print the number of records in the dead letter queue of an ingress list or topic",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer b.Close()

		n, err := b.engine().DLQLength(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), n)
		return nil
	},
}

var dlqListCmd = &cobra.Command{
	Use:   "list <ingress>",
	Short: "Print the records in the dead letter queue of an ingress list or topic",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer b.Close()

		values, err := b.engine().DeadLettered(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		for _, v := range values {
			fmt.Fprintln(cmd.OutOrStdout(), v)
		}

		return nil
	},
}

var dlqReprocessCmd = &cobra.Command{
	Use:   "reprocess <ingress>",
	Short: "Move every record in the dead letter queue back onto its ingress list or topic",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer b.Close()

		n, err := b.engine().ReprocessDLQ(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "reprocessed %d records from %s\n", n, args[0])
		return nil
	},
}

func init() {
	dlqCmd.AddCommand(dlqLengthCmd, dlqListCmd, dlqReprocessCmd)
}
