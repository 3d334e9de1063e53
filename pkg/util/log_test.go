package util

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

// captureLog redirects the global logger to a buffer at the given level and
// restores it when the test ends.
func captureLog(t *testing.T, level string) *bytes.Buffer {
	t.Helper()
	out, lvl, formatter := Logger.Out, Logger.Level, Logger.Formatter
	t.Cleanup(func() {
		Logger.SetOutput(out)
		Logger.SetLevel(lvl)
		Logger.SetFormatter(formatter)
	})

	var buf bytes.Buffer
	SetLogOutput(&buf)
	if err := SetLogLevel(level); err != nil {
		t.Fatalf("SetLogLevel(%q): %v", level, err)
	}
	return &buf
}

func TestSetLogLevel(t *testing.T) {
	captureLog(t, "warn")

	for _, lvl := range []string{"debug", "info", "warn", "error"} {
		if err := SetLogLevel(lvl); err != nil {
			t.Errorf("SetLogLevel(%q) = %v", lvl, err)
		}
	}
	if err := SetLogLevel("chatty"); err == nil {
		t.Error("SetLogLevel(chatty) should fail")
	}
	if Logger.Level != logrus.ErrorLevel {
		t.Errorf("failed SetLogLevel changed level to %s", Logger.Level)
	}
}

func TestDefaultLevelIsQuiet(t *testing.T) {
	buf := captureLog(t, "warn")

	Debugf("tunnel dial %s", "127.0.0.1:6379")
	Infof("Using testbed %s", "workshop")
	if buf.Len() != 0 {
		t.Errorf("debug/info should be hidden at warn, got %q", buf.String())
	}

	Warnf("Could not load settings: %s", "permission denied")
	Errorf("%s: disconnect: %s", "leaf1", "broken pipe")
	out := buf.String()
	for _, want := range []string{"Could not load settings: permission denied", "leaf1: disconnect: broken pipe"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q: %q", want, out)
		}
	}
}

func TestVerboseShowsDebug(t *testing.T) {
	buf := captureLog(t, "debug")

	Debugf("SSH tunnel to %s", "10.0.0.11:22")
	Infof("Using testbed %s", "workshop")
	out := buf.String()
	if !strings.Contains(out, "SSH tunnel to 10.0.0.11:22") || !strings.Contains(out, "Using testbed workshop") {
		t.Errorf("debug output = %q", out)
	}
}

func TestJSONFormatCarriesFields(t *testing.T) {
	buf := captureLog(t, "debug")
	SetJSONFormat()

	WithFields(map[string]interface{}{
		"device": "leaf1",
		"check":  "bgp-established",
		"filter": "established",
	}).Debugf("%s: %s", "PASS", "2 of 2 neighbors established")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	want := map[string]string{
		"device": "leaf1",
		"check":  "bgp-established",
		"filter": "established",
		"msg":    "PASS: 2 of 2 neighbors established",
		"level":  "debug",
	}
	for k, v := range want {
		if entry[k] != v {
			t.Errorf("entry[%q] = %v, want %q", k, entry[k], v)
		}
	}
}

func TestScopedLoggers(t *testing.T) {
	tests := []struct {
		name  string
		entry *logrus.Entry
		want  logrus.Fields
	}{
		{"WithField", WithField("testbed", "lab.yaml"), logrus.Fields{"testbed": "lab.yaml"}},
		{"WithDevice", WithDevice("leaf1"), logrus.Fields{"device": "leaf1"}},
		{"WithCheck", WithCheck("leaf1", "learn-bgp"), logrus.Fields{"device": "leaf1", "check": "learn-bgp"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if len(tt.entry.Data) != len(tt.want) {
				t.Errorf("Data = %v, want %v", tt.entry.Data, tt.want)
			}
			for k, v := range tt.want {
				if tt.entry.Data[k] != v {
					t.Errorf("Data[%q] = %v, want %v", k, tt.entry.Data[k], v)
				}
			}
		})
	}
}
