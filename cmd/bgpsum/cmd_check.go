package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/newtron-network/bgpsum/pkg/bgp"
	"github.com/newtron-network/bgpsum/pkg/check"
	"github.com/newtron-network/bgpsum/pkg/device"
)

var (
	checkMinEstablished int
	checkJUnitPath      string
	checkReportPath     string
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run pass/fail BGP checks on each device",
	Long: `Run BGP checks against each selected device:

  learn-bgp          learning BGP state succeeds
  bgp-has-neighbors  at least one neighbor is configured
  bgp-established    at least --min-established sessions in the filter state

Exit status is 0 when every device passes, 1 on a check failure, and 2
when a device could not be reached or its state could not be read.

Examples:
  bgpsum -t workshop.yaml check
  bgpsum -t workshop.yaml check --min-established 2 --junit out/bgp.xml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		runner := check.NewRunner(stateFilter, checkMinEstablished)

		tb, err := requireTestbed()
		if err != nil {
			return err
		}

		var results []*check.DeviceResult
		err = withDevices(ctx, tb, func(dev *device.Device, connErr error) error {
			var learner check.Learner = dev
			if connErr != nil {
				learner = check.LearnerFunc(func(context.Context) (bgp.BGPState, error) {
					return nil, connErr
				})
			}
			results = append(results, runner.Run(ctx, dev.Name, learner))
			return nil
		})
		if err != nil {
			return err
		}

		gen := &check.ReportGenerator{
			Testbed: testbedTitle(tb),
			Results: results,
		}
		gen.PrintConsole(os.Stdout)

		if checkReportPath != "" {
			if err := gen.WriteMarkdown(checkReportPath); err != nil {
				return fmt.Errorf("writing report: %w", err)
			}
		}
		if checkJUnitPath != "" {
			if err := gen.WriteJUnit(checkJUnitPath); err != nil {
				return fmt.Errorf("writing junit: %w", err)
			}
		}

		if code := exitCode(results); code != 0 {
			return &exitError{code: code}
		}
		return nil
	},
}

// exitCode is 2 if any device errored, 1 if any failed, else 0.
func exitCode(results []*check.DeviceResult) int {
	code := 0
	for _, r := range results {
		switch r.Status {
		case check.StatusError:
			return 2
		case check.StatusFailed, check.StatusSkipped:
			code = 1
		}
	}
	return code
}

func init() {
	checkCmd.Flags().IntVar(&checkMinEstablished, "min-established", 0, "minimum sessions in the filter state (0 disables the check)")
	checkCmd.Flags().StringVar(&checkJUnitPath, "junit", "", "JUnit XML output path")
	checkCmd.Flags().StringVar(&checkReportPath, "report", "", "markdown report output path")
}
