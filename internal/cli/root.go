// Package cli implements the feishu-trigger command line.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/telhawk-systems/feishu-trigger/internal/config"
	"github.com/telhawk-systems/feishu-trigger/internal/shaper"
)

var (
	cfgFile      string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "feishu-trigger",
	Short: "Feishu webhook trigger for workflow automation",
	Long: `feishu-trigger receives Feishu events forwarded by the gateway, shapes
them into workflow items and hands them to the workflow engine.

Run "feishu-trigger serve" to host the trigger webhooks, or use "shape" to
preview the item a payload produces.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml or /etc/feishu-trigger/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "json", "output format: json, yaml")
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// readPayload reads a JSON object from file, or from in when file is "" or "-".
func readPayload(file string, in io.Reader) (shaper.Event, error) {
	var (
		raw []byte
		err error
	)
	if file == "" || file == "-" {
		raw, err = io.ReadAll(in)
	} else {
		raw, err = os.ReadFile(file)
	}
	if err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}

	body, err := shaper.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}
	return body, nil
}
