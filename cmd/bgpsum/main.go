// bgpsum - BGP neighbor summaries for SONiC testbeds
//
// Learns BGP state from each testbed device and prints one row per
// neighbor along with a count of sessions in a chosen state.
//
// Context flags:
//
//	-t, --testbed   Testbed YAML (or set default via: bgpsum settings set default_testbed <path>)
//	-d, --device    Device name or alias; repeatable, default all devices
//	-f, --filter    Session state to count (default "established")
//
// Examples:
//
//	bgpsum -t workshop.yaml show                  # Every device
//	bgpsum -t workshop.yaml -d leaf1 show --json  # One device, JSON rows
//	bgpsum -t workshop.yaml check --min-established 2 --junit out/bgp.xml
//	bgpsum extract learned-bgp.yaml               # Offline, no device
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/newtron-network/bgpsum/pkg/cli"
	"github.com/newtron-network/bgpsum/pkg/device"
	"github.com/newtron-network/bgpsum/pkg/settings"
	"github.com/newtron-network/bgpsum/pkg/testbed"
	"github.com/newtron-network/bgpsum/pkg/util"
	"github.com/newtron-network/bgpsum/pkg/version"
)

var (
	// Global context flags
	testbedPath string   // -t, --testbed
	deviceNames []string // -d, --device
	stateFilter string   // -f, --filter

	// Global option flags
	verbose bool
	noColor bool
	logJSON bool
	logFile string

	// Global state
	userSettings *settings.Settings
)

// exitError carries a process exit code out of a command without printing.
type exitError struct{ code int }

func (e *exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

func main() {
	if err := rootCmd.Execute(); err != nil {
		if e, ok := err.(*exitError); ok {
			os.Exit(e.code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:               "bgpsum",
	Short:             "BGP neighbor summaries for SONiC testbeds",
	SilenceUsage:      true,
	SilenceErrors:     true,
	CompletionOptions: cobra.CompletionOptions{HiddenDefaultCmd: true},
	Long: `bgpsum learns BGP state from the devices of a testbed and prints one row
per neighbor, followed by the number of sessions in the filter state.

  bgpsum -t <testbed.yaml> [-d <device>]... show|check [flags]`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Set log level: quiet by default, verbose on -v
		if verbose {
			util.SetLogLevel("debug")
		} else {
			util.SetLogLevel("warn")
		}

		if noColor {
			cli.SetColor(false)
		}
		if logJSON {
			util.SetJSONFormat()
		}
		if logFile != "" {
			f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
			if err != nil {
				return fmt.Errorf("opening log file: %w", err)
			}
			util.SetLogOutput(f)
		}

		if isSettingsOrHelp(cmd) {
			return nil
		}

		// Load user settings
		var err error
		userSettings, err = settings.Load()
		if err != nil {
			util.Warnf("Could not load settings: %v", err)
			userSettings = &settings.Settings{}
		}

		// Apply defaults from settings
		testbedPath = userSettings.GetTestbed(testbedPath)
		stateFilter = userSettings.GetStateFilter(stateFilter)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&testbedPath, "testbed", "t", "", "Testbed YAML file")
	rootCmd.PersistentFlags().StringArrayVarP(&deviceNames, "device", "d", nil, "Device name or alias (repeatable, default all)")
	rootCmd.PersistentFlags().StringVarP(&stateFilter, "filter", "f", "", "Session state to count (default \"established\")")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output (same as NO_COLOR)")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Emit logs as JSON")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Append logs to a file instead of stderr")

	rootCmd.AddGroup(
		&cobra.Group{ID: "query", Title: "BGP Operations:"},
		&cobra.Group{ID: "meta", Title: "Configuration & Meta:"},
	)

	for _, cmd := range []*cobra.Command{showCmd, checkCmd, extractCmd} {
		cmd.GroupID = "query"
		rootCmd.AddCommand(cmd)
	}
	for _, cmd := range []*cobra.Command{settingsCmd, versionCmd} {
		cmd.GroupID = "meta"
		rootCmd.AddCommand(cmd)
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.Line("bgpsum"))
		if verbose {
			fmt.Println("  " + version.Info())
		}
	},
}

// isSettingsOrHelp reports whether cmd runs without settings defaults.
func isSettingsOrHelp(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "settings", "help", "version":
			return true
		}
	}
	return false
}

// ============================================================================
// Context Helpers
// ============================================================================

// requireTestbed loads the testbed named by -t or the default_testbed setting.
func requireTestbed() (*testbed.Testbed, error) {
	if testbedPath == "" {
		return nil, fmt.Errorf("testbed required: use -t <testbed.yaml> or 'bgpsum settings set default_testbed <path>'")
	}
	tb, err := testbed.Load(testbedPath)
	if err != nil {
		return nil, fmt.Errorf("loading testbed: %w", err)
	}
	util.WithField("testbed", tb.Path()).Debugf("loaded %d devices", len(tb.Devices))
	util.Infof("Using testbed %s", testbedTitle(tb))
	return tb, nil
}

// testbedTitle is the testbed's declared name, or its file name without
// extension when the file does not set one.
func testbedTitle(tb *testbed.Testbed) string {
	if tb.Info.Name != "" {
		return tb.Info.Name
	}
	base := filepath.Base(tb.Path())
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// withDevices connects to every selected device in turn, calls fn, and
// disconnects. Connection failures are passed to fn as connErr so that
// callers can report them per device and carry on.
func withDevices(ctx context.Context, tb *testbed.Testbed, fn func(dev *device.Device, connErr error) error) error {
	entries, err := tb.Select(deviceNames)
	if err != nil {
		return err
	}

	prompter := testbed.TerminalPrompter{}
	for _, entry := range entries {
		dev := device.NewDevice(entry)
		connErr := entry.ResolvePassword(prompter)
		if connErr == nil {
			connErr = dev.Connect(ctx)
		}
		err := fn(dev, connErr)
		if dev.IsConnected() {
			if derr := dev.Disconnect(); derr != nil {
				util.Errorf("%s: disconnect: %v", dev.Name, derr)
			}
		}
		if err != nil {
			return err
		}
	}
	return nil
}
