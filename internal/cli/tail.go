package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/telhawk-systems/feishu-trigger/internal/dispatch"
	"github.com/telhawk-systems/feishu-trigger/internal/messaging"
	natsclient "github.com/telhawk-systems/feishu-trigger/internal/messaging/nats"
	"github.com/telhawk-systems/feishu-trigger/internal/output"
)

var tailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Print workflow items as they are dispatched",
	Long: `Subscribes to the workflow item subjects on NATS and prints each item.

By default every trigger is followed. With --queue the command joins the
workflow worker queue group and consumes items instead of observing them.`,
	Args: cobra.NoArgs,
	RunE: runTail,
}

func init() {
	tailCmd.Flags().String("trigger", "", "only follow this trigger")
	tailCmd.Flags().Bool("queue", false, "consume as a member of the workflow worker queue group")
	rootCmd.AddCommand(tailCmd)
}

func runTail(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	natsCfg := natsclient.DefaultConfig()
	natsCfg.URL = cfg.NATS.URL
	natsCfg.Name = cfg.NATS.Name + "-tail"
	natsCfg.Timeout = cfg.NATS.Timeout

	client, err := natsclient.NewClient(natsCfg)
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	name, _ := cmd.Flags().GetString("trigger")
	queue, _ := cmd.Flags().GetBool("queue")
	sub, err := subscribeItems(client, cfg.NATS.SubjectPrefix, name, queue, func(env dispatch.Envelope) error {
		return output.Write(cmd.OutOrStdout(), outputFormat, env)
	})
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	output.Info(cmd.ErrOrStderr(), "Following %s on %s", sub.Subject(), cfg.NATS.URL)
	<-ctx.Done()
	return nil
}

// subscribeItems subscribes to dispatched workflow items and decodes each
// message into an Envelope before handing it to fn.
func subscribeItems(sub messaging.Subscriber, prefix, triggerName string, queue bool, fn func(dispatch.Envelope) error) (messaging.Subscription, error) {
	subject := messaging.AllTriggersSubject(prefix)
	if triggerName != "" {
		subject = messaging.TriggerSubject(prefix, triggerName)
	}

	handler := func(ctx context.Context, msg *messaging.Message) error {
		var env dispatch.Envelope
		if err := json.Unmarshal(msg.Data, &env); err != nil {
			return fmt.Errorf("decode item on %s: %w", msg.Subject, err)
		}
		if env.RequestID == "" {
			env.RequestID = msg.Header(messaging.HeaderRequestID)
		}
		return fn(env)
	}

	if queue {
		return sub.QueueSubscribe(subject, messaging.QueueWorkflowWorkers, handler)
	}
	return sub.Subscribe(subject, handler)
}
