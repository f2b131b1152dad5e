package cli

import (
	"github.com/spf13/cobra"
	"github.com/telhawk-systems/feishu-trigger/internal/config"
	"github.com/telhawk-systems/feishu-trigger/internal/host"
	"github.com/telhawk-systems/feishu-trigger/internal/output"
	"github.com/telhawk-systems/feishu-trigger/internal/shaper"
	"github.com/telhawk-systems/feishu-trigger/internal/trigger"
)

var shapeCmd = &cobra.Command{
	Use:   "shape",
	Short: "Preview the workflow item a payload produces",
	Long: `Reads a gateway payload and prints the workflow items the trigger would
emit for it. Parameters left unset use the node defaults.

Examples:
  feishu-trigger shape -f event.json
  cat event.json | feishu-trigger shape --event-type im.message.receive_v1 --simplify=false`,
	Args: cobra.NoArgs,
	RunE: runShape,
}

func init() {
	shapeCmd.Flags().StringP("file", "f", "", "payload file (default: stdin)")
	shapeCmd.Flags().String("event-type", "", `event type filter ("all" accepts every event)`)
	shapeCmd.Flags().Bool("simplify", true, "flatten the event into a single record")
	rootCmd.AddCommand(shapeCmd)
}

func runShape(cmd *cobra.Command, args []string) error {
	file, _ := cmd.Flags().GetString("file")
	body, err := readPayload(file, cmd.InOrStdin())
	if err != nil {
		return err
	}

	tc := config.DefaultTrigger()
	tc.Name = "shape"
	if cmd.Flags().Changed("event-type") {
		eventType, _ := cmd.Flags().GetString("event-type")
		tc.EventType = &eventType
	}
	if cmd.Flags().Changed("simplify") {
		simplify, _ := cmd.Flags().GetBool("simplify")
		tc.Simplify = &simplify
	}

	resp, kind, err := trigger.New().WebhookOutcome(cmd.Context(), body, host.NewFunctions(tc, trigger.Description()))
	if err != nil {
		return err
	}
	if kind == shaper.Suppressed {
		output.Warn(cmd.ErrOrStderr(), "event ignored by the event type filter")
		return nil
	}

	return output.Write(cmd.OutOrStdout(), outputFormat, resp.WorkflowData[0])
}
