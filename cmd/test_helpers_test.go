package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

type testEnv struct {
	dir      string
	csvPath  string
	settings string
}

// newTestEnv points every file the CLI touches into a temp directory.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	env := &testEnv{
		dir:      dir,
		csvPath:  filepath.Join(dir, "translations.csv"),
		settings: filepath.Join(dir, "settings.json"),
	}
	t.Setenv("ENV_FILE", filepath.Join(dir, "missing.env"))
	t.Setenv("LLM_PROVIDER", "llm")
	t.Setenv("VOCAB_BACKEND", "csv")
	t.Setenv("VOCAB_FILE", env.csvPath)
	t.Setenv("EXPORT_FILE", filepath.Join(dir, "translations.xlsx"))
	t.Setenv("EXPORT_CRON", "")
	t.Setenv("MPV_SOCKET", "")
	t.Setenv("LOG_FILE", "")
	t.Setenv("TEMP_DIR", dir)
	t.Setenv("MEDIA_DIRS", "")
	return env
}

func runCLI(t *testing.T, env *testEnv, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{"--settings", env.settings, "--log-level", "error"}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// installFakeTool writes an executable shell script and returns its path.
func installFakeTool(t *testing.T, name, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake tools are shell scripts")
	}
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

// chatServer answers every chat completion with content and counts calls.
func chatServer(t *testing.T, content string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "x",
			"object":  "chat.completion",
			"created": 1,
			"model":   "m",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]string{"role": "assistant", "content": content},
				"finish_reason": "stop",
			}},
		})
	}))
	t.Cleanup(server.Close)
	return server, &calls
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
