package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"shamal/internal/config"
	"shamal/internal/testsupport"
)

type cliTestEnv struct {
	cfg            *config.Config
	configPath     string
	titleRequests  *atomic.Int32
	seriesRequests *atomic.Int32
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	env := &cliTestEnv{titleRequests: new(atomic.Int32), seriesRequests: new(atomic.Int32)}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/anime-titles.xml.gz":
			env.titleRequests.Add(1)
			_, _ = w.Write([]byte(testsupport.TitlesDump))
		case "/httpapi":
			env.seriesRequests.Add(1)
			if r.URL.Query().Get("aid") == "23" {
				_, _ = w.Write([]byte(testsupport.AnimeDocument))
				return
			}
			_, _ = w.Write([]byte(`<error>Anime not found</error>`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	env.cfg = testsupport.NewConfig(t, append([]testsupport.ConfigOption{testsupport.WithAniDBServer(server.URL)}, opts...)...)
	env.configPath = filepath.Join(testsupport.BaseDir(env.cfg), "shamal.toml")
	writeTestConfig(t, env.configPath, env.cfg)
	return env
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
