package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadAppliesDefaults(t *testing.T) {
	cfg, err := Read(writeConfig(t, `{"Token": "secret"}`))
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Token != "secret" || cfg.MessageCacheSize != 100 || cfg.MaxMissedHeartbeats != 3 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if !cfg.SelfContained || cfg.SqlitePath != "./archive.db" || cfg.LogLevel != "info" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestReadValidates(t *testing.T) {
	tests := []struct {
		name    string
		content string
		valid   bool
	}{
		{"missing token", `{}`, false},
		{"bad api url", `{"Token": "t", "APIURL": "not a url"}`, false},
		{"bad log level", `{"Token": "t", "LogLevel": "verbose"}`, false},
		{"zero cache", `{"Token": "t", "MessageCacheSize": 0}`, false},
		{"redis required", `{"Token": "t", "SelfContained": false}`, false},
		{"redis given", `{"Token": "t", "SelfContained": false, "RedisAddress": "localhost:6379"}`, true},
		{"mysql archive without database", `{"Token": "t", "SelfContained": false, "RedisAddress": "localhost:6379", "Archive": true}`, false},
		{"mysql archive", `{"Token": "t", "SelfContained": false, "RedisAddress": "localhost:6379", "Archive": true, "DbAddress": "localhost", "DbDatabase": "chat"}`, true},
		{"sqlite archive", `{"Token": "t", "Archive": true}`, true},
		{"status address", `{"Token": "t", "StatusAddress": "127.0.0.1:8080"}`, true},
		{"bad status address", `{"Token": "t", "StatusAddress": "8080"}`, false},
		{"not json", `Token: t`, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Read(writeConfig(t, tc.content))
			if tc.valid && err != nil {
				t.Errorf("expected a valid config, got %v", err)
			}
			if !tc.valid && err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestReadMissingFile(t *testing.T) {
	if _, err := Read(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}
