package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
)

func parseEntries(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("malformed log line %q: %v", line, err)
		}
		entries = append(entries, entry)
	}
	return entries
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewLoggerWithWriter("warn", &buf)

	ctx := context.Background()
	log.Debug(ctx, "d")
	log.Info(ctx, "i")
	log.Warn(ctx, "w")
	log.Error(ctx, "e")

	entries := parseEntries(t, &buf)
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2 at level warn", len(entries))
	}
	if entries[0]["level"] != "warn" || entries[1]["level"] != "error" {
		t.Errorf("levels = %v, %v", entries[0]["level"], entries[1]["level"])
	}
}

func TestLogger_SecretFieldsRedacted(t *testing.T) {
	var buf bytes.Buffer
	log := NewLoggerWithWriter("debug", &buf)

	log.Info(context.Background(), "minted credential",
		F("token", "super-secret-value"),
		F("authorization", "Bearer abc"),
		F("api_key", "k-123"),
		F("scope", "read"),
	)

	raw := buf.String()
	for _, secret := range []string{"super-secret-value", "Bearer abc", "k-123"} {
		if strings.Contains(raw, secret) {
			t.Errorf("secret %q reached the log sink", secret)
		}
	}

	entries := parseEntries(t, &buf)
	if entries[0]["token"] != "[REDACTED]" {
		t.Errorf("token = %v, want [REDACTED]", entries[0]["token"])
	}
	if entries[0]["scope"] != "read" {
		t.Errorf("scope = %v, want the plain value", entries[0]["scope"])
	}
}

func TestLogger_WithOpAttachesContext(t *testing.T) {
	var buf bytes.Buffer
	log := NewLoggerWithWriter("info", &buf)

	opLog := log.WithOp(OpMeta{
		Adapter:  "github",
		Name:     "list_repos",
		Target:   "api.github.com",
		Category: "core",
	})
	opLog.Info(context.Background(), "sending")

	entries := parseEntries(t, &buf)
	e := entries[0]
	if e["op.name"] != "list_repos" || e["op.adapter"] != "github" {
		t.Errorf("entry missing operation context: %v", e)
	}
	if e["op.target"] != "api.github.com" || e["op.category"] != "core" {
		t.Errorf("entry missing target/category: %v", e)
	}

	// The parent logger is untouched.
	buf.Reset()
	log.Info(context.Background(), "plain")
	if e := parseEntries(t, &buf)[0]; e["op.name"] != nil {
		t.Error("WithOp leaked attributes into the parent logger")
	}
}

func TestLogger_ConcurrentUse(t *testing.T) {
	var buf bytes.Buffer
	log := NewLoggerWithWriter("info", &buf)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Info(context.Background(), "concurrent", F("n", 1))
		}()
	}
	wg.Wait()

	if entries := parseEntries(t, &buf); len(entries) != 20 {
		t.Errorf("entries = %d, want 20 intact lines", len(entries))
	}
}

func TestConfig_Validate(t *testing.T) {
	cases := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"minimal", Config{ServiceName: "svc"}, false},
		{"missing service name", Config{}, true},
		{"bad sample pct", Config{
			ServiceName: "svc",
			Tracing:     TracingConfig{Enabled: true, Exporter: ExporterStdout, SamplePct: 1.5},
		}, true},
		{"bad tracing exporter", Config{
			ServiceName: "svc",
			Tracing:     TracingConfig{Enabled: true, Exporter: Exporter("bogus")},
		}, true},
		{"prometheus metrics", Config{
			ServiceName: "svc",
			Metrics:     MetricsConfig{Enabled: true, Exporter: ExporterPrometheus},
		}, false},
		{"bad log level", Config{
			ServiceName: "svc",
			Logging:     LoggingConfig{Enabled: true, Level: "loud"},
		}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestNopObserver(t *testing.T) {
	obs := NopObserver()
	if obs.Tracer() == nil || obs.Meter() == nil || obs.Logger() == nil {
		t.Error("noop observer must return usable primitives")
	}
	if err := obs.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}
