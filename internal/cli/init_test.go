package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	applog "ledger/internal/log"
)

func TestLoadEnvFile(t *testing.T) {
	if err := LoadEnvFile(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Errorf("missing file should be ignored, got %v", err)
	}

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("LEDGER_CLI_TEST_KEY=from-file\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("LEDGER_CLI_TEST_KEY", "")
	os.Unsetenv("LEDGER_CLI_TEST_KEY")
	if err := LoadEnvFile(path); err != nil {
		t.Fatalf("LoadEnvFile: %v", err)
	}
	if got := os.Getenv("LEDGER_CLI_TEST_KEY"); got != "from-file" {
		t.Errorf("LEDGER_CLI_TEST_KEY = %q", got)
	}
}

func TestLoadAndValidateConfig(t *testing.T) {
	t.Setenv("DATA_BACKEND", "memory")
	t.Setenv("JWT_SECRET", "short")
	if _, err := LoadAndValidateConfig(); err == nil {
		t.Error("short JWT secret should fail validation")
	}

	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")
	cfg, err := LoadAndValidateConfig()
	if err != nil {
		t.Fatalf("LoadAndValidateConfig: %v", err)
	}
	if cfg.DataBackend != "memory" {
		t.Errorf("DataBackend = %q", cfg.DataBackend)
	}
}

func TestOpenBackend(t *testing.T) {
	t.Setenv("DATA_BACKEND", "memory")
	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")
	cfg, err := LoadAndValidateConfig()
	if err != nil {
		t.Fatal(err)
	}
	res, err := OpenBackend(context.Background(), cfg, applog.New(applog.Config{Output: io.Discard}))
	if err != nil {
		t.Fatalf("OpenBackend: %v", err)
	}
	defer res.Cleanup()
	if res.Backend.Store == nil {
		t.Error("store not initialized")
	}
}

func TestShutdownContext_Stop(t *testing.T) {
	ctx, stop := ShutdownContext(context.Background(), applog.New(applog.Config{Output: io.Discard}))
	stop()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context not cancelled by stop")
	}
}
