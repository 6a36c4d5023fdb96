package logging

import (
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitialize_SilentByDefault(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "")

	if err := Initialize(""); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	if GetLogger().Core().Enabled(zapcore.ErrorLevel) {
		t.Error("logger should be silent when no level is configured")
	}
}

func TestInitialize_FromEnv(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "debug")
	defer SetLogger(nil)

	if err := Initialize(""); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	if !GetLogger().Core().Enabled(zapcore.DebugLevel) {
		t.Error("debug level should be enabled from environment")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"verbose", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := parseLevel(tt.in); got != tt.want {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestLogDiscovery_Fields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	SetLogger(zap.New(core))
	defer SetLogger(nil)

	LogDiscovery("added", "HP_OfficeJet_Pro", "192.168.1.100:631")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("got %d log entries, want 1", len(entries))
	}

	fields := entries[0].ContextMap()
	if fields["event"] != "added" {
		t.Errorf("event = %v, want added", fields["event"])
	}
	if fields["name"] != "HP_OfficeJet_Pro" {
		t.Errorf("name = %v, want HP_OfficeJet_Pro", fields["name"])
	}
}

func TestLogRawBytes_SkippedAboveDebug(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	SetLogger(zap.New(core))
	defer SetLogger(nil)

	LogRawBytes("payload", []byte{0xff, 0xd8})

	if logs.Len() != 0 {
		t.Errorf("got %d entries, want none at info level", logs.Len())
	}
}

func TestDumps_Truncate(t *testing.T) {
	data := make([]byte, maxDumpBytes+10)
	for i := range data {
		data[i] = 'A'
	}

	if got := hexDump(data); !strings.HasSuffix(got, "...") {
		t.Errorf("hexDump should mark truncation, got suffix %q", got[len(got)-5:])
	}
	if got := asciiDump(data); len(got) != maxDumpBytes {
		t.Errorf("asciiDump length = %d, want %d", len(got), maxDumpBytes)
	}
	if got := asciiDump([]byte{0x00, 'a'}); got != ".a" {
		t.Errorf("asciiDump = %q, want %q", got, ".a")
	}
}
