package output

import (
	"testing"

	"downguard/risk"
)

func TestResolveOtelEndpointPrecedence(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_LOGS_ENDPOINT", "http://env-logs:4318")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://env-generic:4318")

	if got := resolveOtelEndpoint(Options{OtelEndpoint: "http://explicit:4318", OtelFromEnv: true}); got != "http://explicit:4318" {
		t.Fatalf("explicit endpoint should win, got %q", got)
	}
	if got := resolveOtelEndpoint(Options{OtelFromEnv: true}); got != "http://env-logs:4318" {
		t.Fatalf("logs env var should beat the generic one, got %q", got)
	}
	t.Setenv("OTEL_EXPORTER_OTLP_LOGS_ENDPOINT", "")
	if got := resolveOtelEndpoint(Options{OtelFromEnv: true}); got != "http://env-generic:4318" {
		t.Fatalf("generic env var not used, got %q", got)
	}
	if got := resolveOtelEndpoint(Options{}); got != "" {
		t.Fatalf("env lookup must be opt-in, got %q", got)
	}
}

func TestNewOtelLoggerDisabledWithoutEndpoint(t *testing.T) {
	o, err := newOtelLogger(Options{})
	if err != nil {
		t.Fatalf("no endpoint should be a quiet no-op: %v", err)
	}
	if o != nil {
		t.Fatal("expected nil logger when export is unconfigured")
	}
	// nil receivers are safe.
	o.Emit("scan_result", risk.ScanResult{})
	o.Shutdown()
	if o.Endpoint() != "" {
		t.Fatal("nil logger should report no endpoint")
	}
}

func TestNewOtelLoggerRejectsSchemelessEndpoint(t *testing.T) {
	if _, err := newOtelLogger(Options{OtelEndpoint: "collector:4318"}); err == nil {
		t.Fatal("expected an error for an endpoint without a scheme")
	}
}

func TestSanitizeResultStripsFilePaths(t *testing.T) {
	o := &otelLogger{includePaths: false}

	res := o.sanitizeResult(risk.ScanResult{Kind: risk.KindFile, Subject: "/home/pat/Downloads/a.exe"})
	if res.Subject != "a.exe" {
		t.Fatalf("expected base name only, got %q", res.Subject)
	}

	url := o.sanitizeResult(risk.ScanResult{Kind: risk.KindURL, Subject: "https://example.com/x"})
	if url.Subject != "https://example.com/x" {
		t.Fatalf("URL subjects must pass through, got %q", url.Subject)
	}

	o.includePaths = true
	res = o.sanitizeResult(risk.ScanResult{Kind: risk.KindFile, Subject: "/home/pat/Downloads/a.exe"})
	if res.Subject != "/home/pat/Downloads/a.exe" {
		t.Fatalf("opt-in should keep the full path, got %q", res.Subject)
	}
}
