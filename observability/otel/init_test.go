package otel

import (
	"context"
	"errors"
	"testing"
)

func TestParseHeaders(t *testing.T) {
	headers := ParseHeaders(" x-api-key = abc ,broken, =skip,tenant=swap ")
	if len(headers) != 2 || headers["x-api-key"] != "abc" || headers["tenant"] != "swap" {
		t.Fatalf("unexpected headers %+v", headers)
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://collector:4318")
	t.Setenv("OTEL_EXPORTER_OTLP_INSECURE", "true")
	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", "tenant=swap")
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "0.25")
	cfg := FromEnv("swapd", "test")
	if cfg.Endpoint != "collector:4318" || !cfg.Insecure || !cfg.Traces || !cfg.Metrics {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.SampleRatio != 0.25 || cfg.Headers["tenant"] != "swap" {
		t.Fatalf("unexpected sampling or headers %+v", cfg)
	}

	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	if disabled := FromEnv("swapd", "test"); disabled.Traces || disabled.Metrics {
		t.Fatalf("expected exporters disabled without endpoint")
	}
}

func TestInitRequiresServiceName(t *testing.T) {
	if _, err := Init(context.Background(), Config{}); !errors.Is(err, ErrServiceName) {
		t.Fatalf("expected ErrServiceName, got %v", err)
	}
	shutdown, err := Init(context.Background(), Config{ServiceName: "swapd"})
	if err != nil {
		t.Fatalf("init without exporters: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestResourceCarriesAttributes(t *testing.T) {
	cfg := Config{
		ServiceName:    "swapd",
		ServiceVersion: "1.2.0",
		Environment:    "dev",
		Attributes:     map[string]string{"smartswap.campaign.skr-season-1": "abc", " ": "dropped"},
	}
	res, err := cfg.resource()
	if err != nil {
		t.Fatalf("resource: %v", err)
	}
	found := map[string]string{}
	for _, kv := range res.Attributes() {
		found[string(kv.Key)] = kv.Value.Emit()
	}
	if found["service.name"] != "swapd" || found["service.version"] != "1.2.0" || found["deployment.environment"] != "dev" {
		t.Fatalf("unexpected resource attributes %+v", found)
	}
	if found["smartswap.campaign.skr-season-1"] != "abc" {
		t.Fatalf("expected campaign attribute, got %+v", found)
	}
	if _, ok := found[""]; ok {
		t.Fatalf("blank attribute keys must be dropped")
	}
}

func TestTracerIsNoopWithoutInit(t *testing.T) {
	_, span := Tracer().Start(context.Background(), "swap")
	defer span.End()
	if span.SpanContext().IsSampled() {
		t.Fatalf("expected no-op span before traces are enabled")
	}
}
