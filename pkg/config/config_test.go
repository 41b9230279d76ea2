package config

import (
    "os"
    "path/filepath"
    "testing"
)

func TestDefaultsValidate(t *testing.T) {
    cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
    if err == nil {
        t.Fatalf("explicit missing file accepted: %+v", cfg)
    }

    cfg, err = Load("")
    if err != nil { t.Fatalf("load defaults: %v", err) }
    if cfg.Transport.Kind != "tcp" { t.Fatalf("default kind = %q", cfg.Transport.Kind) }
    if cfg.Stream.HighWaterMark != 64*1024 {
        t.Fatalf("default hwm = %d", cfg.Stream.HighWaterMark)
    }
}

func TestLoadYAML(t *testing.T) {
    dir := t.TempDir()
    path := filepath.Join(dir, "flowmux.yaml")
    yaml := `
log:
  level: debug
  format: json
stream:
  high_water_mark: 1024
mux:
  max_frame: 512
  rate_bytes_per_sec: 2048
transport:
  kind: mem
  listen: "inproc://test"
`
    if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
        t.Fatalf("write: %v", err)
    }
    cfg, err := Load(path)
    if err != nil { t.Fatalf("load: %v", err) }
    if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
        t.Fatalf("log = %+v", cfg.Log)
    }
    if cfg.Stream.HighWaterMark != 1024 { t.Fatalf("hwm = %d", cfg.Stream.HighWaterMark) }
    if cfg.Stream.ReadChunk != 4*1024 { t.Fatalf("read_chunk default lost: %d", cfg.Stream.ReadChunk) }
    if cfg.Mux.MaxFrame != 512 || cfg.Mux.RateBytesPerSec != 2048 {
        t.Fatalf("mux = %+v", cfg.Mux)
    }
    if cfg.Transport.Kind != "mem" || cfg.Transport.Listen != "inproc://test" {
        t.Fatalf("transport = %+v", cfg.Transport)
    }
}

func TestEnvOverride(t *testing.T) {
    t.Setenv("FLOWMUX_LOG_LEVEL", "warn")
    t.Setenv("FLOWMUX_TRANSPORT_KIND", "quic")
    cfg, err := Load("")
    if err != nil { t.Fatalf("load: %v", err) }
    if cfg.Log.Level != "warn" { t.Fatalf("level = %q", cfg.Log.Level) }
    if cfg.Transport.Kind != "quic" { t.Fatalf("kind = %q", cfg.Transport.Kind) }
}

func TestRejectsBadValues(t *testing.T) {
    dir := t.TempDir()
    path := filepath.Join(dir, "flowmux.yaml")
    if err := os.WriteFile(path, []byte("transport:\n  kind: carrier-pigeon\n"), 0o644); err != nil {
        t.Fatalf("write: %v", err)
    }
    if _, err := Load(path); err == nil {
        t.Fatalf("bogus transport kind accepted")
    }

    if err := os.WriteFile(path, []byte("log:\n  level: loud\n"), 0o644); err != nil {
        t.Fatalf("write: %v", err)
    }
    if _, err := Load(path); err == nil {
        t.Fatalf("bogus log level accepted")
    }
}
