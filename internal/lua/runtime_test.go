package lua

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jhellqvist/casambid/internal/config"
)

func testRuntime(t *testing.T, cfg *config.Config) *Runtime {
	t.Helper()
	r := NewRuntime(RuntimeDeps{Config: cfg})
	t.Cleanup(r.Close)
	return r
}

func TestLoadScript_RelativeToConfigDir(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "automation.lua")
	if err := os.WriteFile(script, []byte(`loaded = true`), 0o600); err != nil {
		t.Fatal(err)
	}

	// The bare filename does not exist in the working directory, so it
	// must resolve against the config file's directory
	r := testRuntime(t, &config.Config{Script: "automation.lua", BaseDir: dir})
	if err := r.LoadScript("automation.lua"); err != nil {
		t.Fatalf("LoadScript: %v", err)
	}

	if r.LState().GetGlobal("loaded").String() != "true" {
		t.Error("script did not run")
	}
}

func TestLoadScript_MissingFile(t *testing.T) {
	r := testRuntime(t, &config.Config{BaseDir: t.TempDir()})
	if err := r.LoadScript("nope.lua"); err == nil {
		t.Error("missing script should fail to load")
	}
}

func TestRuntimeDoExecutesOnWorker(t *testing.T) {
	r := testRuntime(t, &config.Config{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	done := make(chan struct{})
	if !r.Do(ctx, func(context.Context) { close(done) }) {
		t.Fatal("Do returned false")
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("queued work never ran")
	}
}
