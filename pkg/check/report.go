package check

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/newtron-network/bgpsum/pkg/cli"
)

// DateTimeFormat is the timestamp layout used in report headings.
const DateTimeFormat = "2006-01-02 15:04:05"

// ReportGenerator produces reports from device results.
type ReportGenerator struct {
	Testbed string
	Results []*DeviceResult
}

// dotWidth is the padded width of check names in console output.
const dotWidth = 40

// PrintConsole writes one line per check, grouped by device, and a
// closing tally.
func (g *ReportGenerator) PrintConsole(w io.Writer) {
	passed := 0
	for _, r := range g.Results {
		fmt.Fprintf(w, "\n  %s  %s  (%s)\n", cli.Bold(r.Device), colorStatus(r.Status), formatDuration(r.Duration))
		for _, c := range r.Checks {
			fmt.Fprintf(w, "    %s %s\n", cli.DotPad(c.Name, dotWidth), colorStatus(c.Status))
			if c.Status != StatusPassed && c.Message != "" {
				fmt.Fprintf(w, "         %s\n", cli.Dim(c.Message))
			}
		}
		if r.Passed() {
			passed++
		}
	}

	tally := fmt.Sprintf("%d/%d devices passed", passed, len(g.Results))
	if passed == len(g.Results) {
		tally = cli.Green(tally)
	} else {
		tally = cli.Red(tally)
	}
	fmt.Fprintf(w, "\n  %s\n\n", tally)
}

func colorStatus(s Status) string {
	switch s {
	case StatusPassed:
		return cli.Green(string(s))
	case StatusFailed, StatusError:
		return cli.Red(string(s))
	case StatusSkipped:
		return cli.Yellow(string(s))
	default:
		return string(s)
	}
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(100 * time.Millisecond).String()
}

// WriteMarkdown writes a markdown report to the given path.
func (g *ReportGenerator) WriteMarkdown(path string) error {
	return writeFile(path, func(w io.Writer) error {
		g.markdown(w, time.Now())
		return nil
	})
}

func (g *ReportGenerator) markdown(w io.Writer, at time.Time) {
	fmt.Fprintf(w, "# bgpsum Report: %s (%s)\n\n", g.Testbed, at.Format(DateTimeFormat))

	fmt.Fprintln(w, "| Device | Result | Neighbors | Matching | States | Duration |")
	fmt.Fprintln(w, "|--------|--------|-----------|----------|--------|----------|")
	for _, r := range g.Results {
		fmt.Fprintf(w, "| %s | %s | %d | %d | %s | %s |\n",
			mdEscape(r.Device), r.Status, r.Neighbors, r.Matching, formatStates(r.States), r.Duration.Round(time.Millisecond))
	}

	hasFailures := false
	for _, r := range g.Results {
		if r.Status != StatusFailed && r.Status != StatusError {
			continue
		}
		if !hasFailures {
			fmt.Fprintf(w, "\n## Failures\n")
			hasFailures = true
		}
		fmt.Fprintf(w, "\n### %s\n", mdEscape(r.Device))
		for _, c := range r.Checks {
			if c.Status == StatusFailed || c.Status == StatusError {
				fmt.Fprintf(w, "Check %s (%s): %s\n", c.Name, c.Status, mdEscape(c.Message))
			}
		}
	}
}

// mdEscape keeps s from breaking markdown table cells.
func mdEscape(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// formatStates renders state counts as "established=2 idle=1", sorted by
// state, or "-" when there are none.
func formatStates(states map[string]int) string {
	if len(states) == 0 {
		return "-"
	}
	keys := make([]string, 0, len(states))
	for k := range states {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%d", k, states[k])
	}
	return mdEscape(strings.Join(parts, " "))
}

// WriteJUnit writes a JUnit XML report for CI integration. Each device is
// a test suite and each check a test case.
func (g *ReportGenerator) WriteJUnit(path string) error {
	return writeFile(path, g.junit)
}

func (g *ReportGenerator) junit(w io.Writer) error {
	suites := junitTestSuites{}

	for _, r := range g.Results {
		suite := junitTestSuite{
			Name: r.Device,
			Time: r.Duration.Seconds(),
		}

		for _, c := range r.Checks {
			suite.Tests++
			tc := junitTestCase{
				Name:      c.Name,
				ClassName: r.Device,
				Time:      c.Duration.Seconds(),
			}

			switch c.Status {
			case StatusFailed:
				suite.Failures++
				tc.Failure = &junitFailure{Message: c.Message, Type: c.Name}
			case StatusSkipped:
				suite.Skipped++
				tc.Skipped = &junitSkipped{Message: c.Message}
			case StatusError:
				suite.Errors++
				tc.Error = &junitError{Message: c.Message, Type: c.Name}
			}

			suite.Cases = append(suite.Cases, tc)
		}

		suites.Suites = append(suites.Suites, suite)
	}

	data, err := xml.MarshalIndent(suites, "", "  ")
	if err != nil {
		return err
	}
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	_, err = w.Write(append(data, '\n'))
	return err
}

func writeFile(path string, fn func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// JUnit XML types

type junitTestSuites struct {
	XMLName xml.Name         `xml:"testsuites"`
	Suites  []junitTestSuite `xml:"testsuite"`
}

type junitTestSuite struct {
	Name     string          `xml:"name,attr"`
	Tests    int             `xml:"tests,attr"`
	Failures int             `xml:"failures,attr"`
	Errors   int             `xml:"errors,attr"`
	Skipped  int             `xml:"skipped,attr"`
	Time     float64         `xml:"time,attr"`
	Cases    []junitTestCase `xml:"testcase"`
}

type junitTestCase struct {
	Name      string        `xml:"name,attr"`
	ClassName string        `xml:"classname,attr"`
	Time      float64       `xml:"time,attr"`
	Failure   *junitFailure `xml:"failure,omitempty"`
	Skipped   *junitSkipped `xml:"skipped,omitempty"`
	Error     *junitError   `xml:"error,omitempty"`
}

type junitFailure struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
}

type junitSkipped struct {
	Message string `xml:"message,attr"`
}

type junitError struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
}
