package config

import (
	"strings"
	"testing"
)

func TestParseConfigPayloadJSON(t *testing.T) {
	data := []byte(`{"server":{"port":8080,"log_level":"debug"},"thresholds":{"outbox_batch_size":20}}`)
	cfg, err := parseConfigPayload("pool-server.json", data)
	if err != nil {
		t.Fatalf("parse json: %v", err)
	}
	if cfg.Server.Port != 8080 || cfg.Server.LogLevel != "debug" {
		t.Fatalf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Thresholds["outbox_batch_size"] != 20 {
		t.Fatalf("thresholds not parsed: %v", cfg.Thresholds)
	}
}

func TestParseConfigPayloadYAML(t *testing.T) {
	data := []byte("server:\n  port: 9090\ngame:\n  start_threshold: 3\n")
	cfg, err := parseConfigPayload("pool-server.yaml", data)
	if err != nil {
		t.Fatalf("parse yaml: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Fatalf("port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Game.StartThreshold != 3 {
		t.Fatalf("start_threshold = %d, want 3", cfg.Game.StartThreshold)
	}
}

func TestParseConfigPayloadUnknownExtFallback(t *testing.T) {
	// 扩展名无法识别时先尝试 YAML，再尝试 JSON
	cfg, err := parseConfigPayload("pool-server", []byte("server:\n  port: 7070\n"))
	if err != nil {
		t.Fatalf("yaml fallback: %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Fatalf("port = %d, want 7070", cfg.Server.Port)
	}

	cfg, err = parseConfigPayload("pool-server", []byte(`{"server":{"port":6060}}`))
	if err != nil {
		t.Fatalf("json fallback: %v", err)
	}
	if cfg.Server.Port != 6060 {
		t.Fatalf("port = %d, want 6060", cfg.Server.Port)
	}
}

func TestParseConfigPayloadInvalid(t *testing.T) {
	_, err := parseConfigPayload("pool-server.json", []byte("{not json"))
	if err == nil || !strings.Contains(err.Error(), "JSON") {
		t.Fatalf("expected JSON parse error, got %v", err)
	}
	_, err = parseConfigPayload("pool-server", []byte(":\t:{{not anything"))
	if err == nil {
		t.Fatal("expected error for unparseable payload")
	}
}
