package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/telhawk-systems/feishu-trigger/internal/gateway"
	"github.com/telhawk-systems/feishu-trigger/internal/output"
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Forward a Feishu event to a trigger webhook",
	Long: `Wraps a raw Feishu event in a gateway envelope and posts it to a trigger
webhook, the way the gateway does.

The event type is read from the event header unless --event-type is given.
With --card the payload is sent as a card action callback.

Examples:
  feishu-trigger send -f message.json --url http://localhost:5678/webhook/feishu-webhook
  feishu-trigger send -f click.json --card`,
	Args: cobra.NoArgs,
	RunE: runSend,
}

func init() {
	sendCmd.Flags().StringP("file", "f", "", "Feishu event file (default: stdin)")
	sendCmd.Flags().String("url", "", "trigger webhook URL (default: gateway.webhook_url)")
	sendCmd.Flags().String("event-type", "", "event type (default: header.event_type of the payload)")
	sendCmd.Flags().Bool("card", false, "send as a card action callback")
	sendCmd.Flags().Duration("timeout", 0, "request timeout (default: gateway.timeout)")
	rootCmd.AddCommand(sendCmd)
}

func runSend(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	file, _ := cmd.Flags().GetString("file")
	raw, err := readPayload(file, cmd.InOrStdin())
	if err != nil {
		return err
	}

	url := cfg.Gateway.WebhookURL
	if cmd.Flags().Changed("url") {
		url, _ = cmd.Flags().GetString("url")
	}
	timeout := cfg.Gateway.Timeout
	if cmd.Flags().Changed("timeout") {
		timeout, _ = cmd.Flags().GetDuration("timeout")
	}

	var env gateway.Envelope
	if card, _ := cmd.Flags().GetBool("card"); card {
		env = gateway.NewCardAction(raw, time.Now())
	} else {
		eventType := gateway.EventTypeOf(raw)
		if cmd.Flags().Changed("event-type") {
			eventType, _ = cmd.Flags().GetString("event-type")
		}
		env = gateway.NewEnvelope(eventType, raw, time.Now())
	}

	if err := gateway.NewForwarder(url, timeout).Forward(cmd.Context(), env); err != nil {
		return fmt.Errorf("send: %w", err)
	}

	output.Success(cmd.OutOrStdout(), "Forwarded %s event to %s", env.EventType, url)
	return nil
}
