// Package check runs pass/fail BGP checks against learned device state
// and writes markdown and JUnit reports of the outcome.
package check

import "time"

// Status is the outcome of a check or device.
type Status string

const (
	StatusPassed  Status = "PASS"
	StatusFailed  Status = "FAIL"
	StatusSkipped Status = "SKIP"
	StatusError   Status = "ERROR"
)

// severity orders statuses for roll-up: the worst check decides the device.
func (s Status) severity() int {
	switch s {
	case StatusError:
		return 3
	case StatusFailed:
		return 2
	case StatusSkipped:
		return 1
	default:
		return 0
	}
}

// Names of the checks a Runner executes.
const (
	CheckLearnBGP       = "learn-bgp"
	CheckHasNeighbors   = "bgp-has-neighbors"
	CheckEstablishedMin = "bgp-established"
)

// Result is the outcome of a single check.
type Result struct {
	Name     string
	Status   Status
	Message  string
	Duration time.Duration
}

// DeviceResult holds every check result for one device.
type DeviceResult struct {
	Device   string
	Status   Status
	Duration time.Duration
	Checks   []Result

	// Neighbors is the number of neighbor rows learned, Matching the number
	// in the runner's filter state. Both are zero if learning failed.
	Neighbors int
	Matching  int

	// States counts neighbors per lower-cased session state.
	States map[string]int
}

// Passed reports whether every check passed.
func (r *DeviceResult) Passed() bool {
	return r.Status == StatusPassed
}

func (r *DeviceResult) add(res Result) {
	r.Checks = append(r.Checks, res)
	if res.Status.severity() > r.Status.severity() {
		r.Status = res.Status
	}
}
