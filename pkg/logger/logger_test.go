package logger

import (
	"booking-service/pkg/handlers/slogpretty"
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestSetup(t *testing.T) {
	tests := []struct {
		env        string
		wantPretty bool
		wantDebug  bool
	}{
		{env: EnvLocal, wantPretty: true, wantDebug: true},
		{env: EnvDev, wantDebug: true},
		{env: EnvProd},
		{env: "staging"},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			var buf bytes.Buffer
			log := Setup(tt.env, &buf)

			_, pretty := log.Handler().(*slogpretty.PrettyHandler)
			if pretty != tt.wantPretty {
				t.Errorf("expected pretty=%v, got %T", tt.wantPretty, log.Handler())
			}
			if got := log.Enabled(context.Background(), slog.LevelDebug); got != tt.wantDebug {
				t.Errorf("expected debug enabled=%v, got %v", tt.wantDebug, got)
			}
		})
	}
}

func TestSetup_JSONGoesToWriter(t *testing.T) {
	var buf bytes.Buffer
	Setup(EnvProd, &buf).Info("migration applied", slog.String("name", "001_schedule"))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected one JSON line, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "migration applied" || entry["name"] != "001_schedule" {
		t.Errorf("unexpected entry %v", entry)
	}
}
