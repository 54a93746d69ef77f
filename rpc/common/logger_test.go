package common

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/lni/dragonboat/v4/logger"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want logger.LogLevel
	}{
		{"", logger.INFO},
		{"debug", logger.DEBUG},
		{"INFO", logger.INFO},
		{"warn", logger.WARNING},
		{"Warning", logger.WARNING},
		{"error", logger.ERROR},
	}
	for _, tt := range tests {
		got, err := ParseLogLevel(tt.in)
		if err != nil {
			t.Errorf("ParseLogLevel(%q) failed: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLogLevel(%q) = %v, expected %v", tt.in, got, tt.want)
		}
	}

	if _, err := ParseLogLevel("verbose"); err == nil {
		t.Error("expected an error for an unknown level")
	}
}

func TestPackageLoggerFormat(t *testing.T) {
	var buf bytes.Buffer
	SetLogOutput(&buf)
	t.Cleanup(func() { SetLogOutput(os.Stderr) })

	l := CreateLogger("rpc")
	l.Debugf("hidden at info")
	l.Infof("session %d active", 3)

	l.SetLevel(logger.WARNING)
	l.Infof("hidden at warning")
	l.Warningf("outbox full")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("messages below the level were written:\n%s", out)
	}
	for _, want := range []string{"INFO  [rpc] session 3 active\n", "WARN  [rpc] outbox full\n"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestPackageLoggerPanics(t *testing.T) {
	var buf bytes.Buffer
	SetLogOutput(&buf)
	t.Cleanup(func() { SetLogOutput(os.Stderr) })

	defer func() {
		if r := recover(); r != "broken 1" {
			t.Errorf("expected panic value %q, got %v", "broken 1", r)
		}
		if !strings.Contains(buf.String(), "CRIT  [store] broken 1") {
			t.Errorf("panic message was not logged:\n%s", buf.String())
		}
	}()
	CreateLogger("store").Panicf("broken %d", 1)
}
