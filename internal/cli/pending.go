package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/telhawk-systems/feishu-trigger/internal/dispatch"
	"github.com/telhawk-systems/feishu-trigger/internal/output"
)

// ErrPostgresDisabled is returned by pending when the outbox table is not configured.
var ErrPostgresDisabled = errors.New("postgres dispatch is not enabled")

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List workflow items waiting in the postgres outbox",
	Long: `Prints the unclaimed workflow items a trigger has written to the
postgres outbox table, oldest first.

Requires postgres.enabled. Without --trigger the first configured trigger
is listed.`,
	Args: cobra.NoArgs,
	RunE: runPending,
}

func init() {
	pendingCmd.Flags().String("trigger", "", "trigger name (default: first configured trigger)")
	pendingCmd.Flags().Int("limit", 50, "maximum number of items to print")
	rootCmd.AddCommand(pendingCmd)
}

type pendingLister interface {
	Pending(ctx context.Context, triggerName string, limit int) ([]dispatch.Envelope, error)
}

func runPending(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.Postgres.Enabled {
		return ErrPostgresDisabled
	}

	name, _ := cmd.Flags().GetString("trigger")
	if name == "" {
		name = cfg.Triggers[0].Name
	}
	limit, _ := cmd.Flags().GetInt("limit")

	d, err := dispatch.NewPostgresDispatcher(cmd.Context(), cfg.Postgres.URL)
	if err != nil {
		return err
	}
	defer d.Close()

	return listPending(cmd.Context(), d, name, limit, cmd.OutOrStdout())
}

func listPending(ctx context.Context, lister pendingLister, triggerName string, limit int, w io.Writer) error {
	if limit <= 0 {
		return fmt.Errorf("limit must be positive, got %d", limit)
	}
	items, err := lister.Pending(ctx, triggerName, limit)
	if err != nil {
		return err
	}
	if items == nil {
		items = []dispatch.Envelope{}
	}
	return output.Write(w, outputFormat, items)
}
