package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/newtron-network/bgpsum/pkg/bgp"
	"github.com/newtron-network/bgpsum/pkg/cli"
	"github.com/newtron-network/bgpsum/pkg/device"
	"github.com/newtron-network/bgpsum/pkg/util"
)

var showJSON bool

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show BGP neighbors for each device",
	Long: `Connect to each selected device, learn its BGP state, and print one row
per neighbor followed by the number of sessions in the filter state.

Examples:
  bgpsum -t workshop.yaml show
  bgpsum -t workshop.yaml -d leaf1 -d leaf2 show
  bgpsum -t workshop.yaml -f active show --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		failed, total := 0, 0

		tb, err := requireTestbed()
		if err != nil {
			return err
		}
		err = withDevices(ctx, tb, func(dev *device.Device, connErr error) error {
			total++
			if err := showDevice(ctx, dev, connErr); err != nil {
				failed++
				util.WithDevice(dev.Name).Errorf("%v", err)
				fmt.Fprintf(os.Stderr, "%s: %s\n", dev.Name, cli.Red(err.Error()))
			}
			return nil
		})
		if err != nil {
			return err
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d devices failed", failed, total)
		}
		return nil
	},
}

func showDevice(ctx context.Context, dev *device.Device, connErr error) error {
	if connErr != nil {
		return connErr
	}

	platform, err := dev.LearnPlatform(ctx)
	if err != nil {
		return fmt.Errorf("learning platform: %w", err)
	}
	state, err := dev.LearnBGP(ctx)
	if err != nil {
		return fmt.Errorf("learning bgp: %w", err)
	}
	summary, err := bgp.ExtractNeighbors(state, stateFilter)
	if err != nil {
		return err
	}

	if showJSON {
		return renderJSON(os.Stdout, dev.Name, platform, summary)
	}
	renderSummary(os.Stdout, platform, summary)
	return nil
}

func init() {
	showCmd.Flags().BoolVar(&showJSON, "json", false, "JSON output")
}
