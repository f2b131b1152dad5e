package cli

import (
	"github.com/spf13/cobra"
	"github.com/telhawk-systems/feishu-trigger/internal/output"
	"github.com/telhawk-systems/feishu-trigger/internal/trigger"
)

var describeCmd = &cobra.Command{
	Use:   "describe",
	Short: "Print the node descriptor",
	Long:  `Prints the descriptor a workflow host uses to register the trigger node.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return output.Write(cmd.OutOrStdout(), outputFormat, trigger.Description())
	},
}

func init() {
	rootCmd.AddCommand(describeCmd)
}
