package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ivghost/ragtool/internal/domain/analysis"
	"github.com/ivghost/ragtool/internal/infra/config"
	"github.com/ivghost/ragtool/internal/infra/sqlite"
	pkgauth "github.com/ivghost/ragtool/pkg/auth"
)

func runCLI(args ...string) (code int, stdout, stderr string) {
	var out, errOut bytes.Buffer
	code = run(args, &out, &errOut)
	return code, out.String(), errOut.String()
}

// fakeOllama answers /api/generate with reply, or with status when it is
// not 200.
func fakeOllama(t *testing.T, status int, reply string) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		io.Copy(io.Discard, r.Body) //nolint:errcheck
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]any{"response": reply}) //nolint:errcheck
	}))
	t.Cleanup(srv.Close)
	t.Setenv("OLLAMA_BASE_URL", srv.URL)
	t.Setenv("RAGTOOL_PROVIDER", "ollama")
	t.Setenv("RAGTOOL_LOG_LEVEL", "error")
}

func writeCSV(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sales.csv")
	if err := os.WriteFile(path, []byte("region,sales\nnorth,10\nsouth,20\n"), 0o600); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	return path
}

func TestRun_Version(t *testing.T) {
	t.Parallel()

	for _, args := range [][]string{{"version"}, {"--version"}} {
		code, out, _ := runCLI(args...)
		if code != 0 {
			t.Fatalf("%v: expected exit code 0, got %d", args, code)
		}
		if !strings.Contains(out, "ragtool version") {
			t.Fatalf("%v: expected version output, got %q", args, out)
		}
	}
}

func TestRun_Help_PrintsUsage(t *testing.T) {
	t.Parallel()

	code, out, _ := runCLI("--help")
	if code != 0 {
		t.Fatalf("expected exit code 0, got %d", code)
	}
	for _, want := range []string{"Usage:", "serve", "analyze", "mcp", "token"} {
		if !strings.Contains(out, want) {
			t.Errorf("help output missing %q", want)
		}
	}
}

func TestRun_UnknownCommand_Returns1(t *testing.T) {
	t.Parallel()

	code, _, errOut := runCLI("frobnicate")
	if code != 1 {
		t.Fatalf("expected exit code 1, got %d", code)
	}
	if !strings.Contains(errOut, "unknown command") {
		t.Fatalf("expected error on stderr, got %q", errOut)
	}
}

func TestToken(t *testing.T) {
	secret := "cli-test-secret-32-characters-xx"
	t.Setenv("RAGTOOL_AUTH_SECRET", secret)

	code, out, errOut := runCLI("token", "ops")
	if code != 0 {
		t.Fatalf("expected exit code 0, got %d: %s", code, errOut)
	}
	claims, err := pkgauth.ParseJWT([]byte(secret), strings.TrimSpace(out))
	if err != nil {
		t.Fatalf("ParseJWT: %v", err)
	}
	if claims.Subject != "ops" {
		t.Errorf("subject = %q; want ops", claims.Subject)
	}
}

func TestToken_NoSecret(t *testing.T) {
	t.Setenv("RAGTOOL_AUTH_SECRET", "")

	code, _, errOut := runCLI("token", "ops")
	if code != 1 || !strings.Contains(errOut, "RAGTOOL_AUTH_SECRET") {
		t.Fatalf("expected secret error, got %d %q", code, errOut)
	}
}

func TestAnalyze_RequiresMode(t *testing.T) {
	t.Parallel()

	code, _, errOut := runCLI("analyze", "doc.pdf")
	if code != 1 || !strings.Contains(errOut, "--question or --full") {
		t.Fatalf("expected mode error, got %d %q", code, errOut)
	}
}

func TestAnalyze_Question(t *testing.T) {
	fakeOllama(t, http.StatusOK, "South sold more.")

	code, out, errOut := runCLI("analyze", writeCSV(t), "--question", "Who sold more?")
	if code != 0 {
		t.Fatalf("expected exit code 0, got %d: %s", code, errOut)
	}
	if strings.TrimSpace(out) != "South sold more." {
		t.Fatalf("stdout = %q", out)
	}
}

func TestAnalyze_FullJSON(t *testing.T) {
	fakeOllama(t, http.StatusOK, "summary")

	code, out, errOut := runCLI("analyze", writeCSV(t), "--full", "--json", "--model", "llama3")
	if code != 0 {
		t.Fatalf("expected exit code 0, got %d: %s", code, errOut)
	}
	var res analysis.Result
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode result: %v\n%s", err, out)
	}
	if res.Status != analysis.RunOK || res.Mode != analysis.ModeFull || res.Model != "llama3" || res.Chunks != 1 {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestAnalyze_GatewayFailureExits1(t *testing.T) {
	fakeOllama(t, http.StatusInternalServerError, "")

	code, out, errOut := runCLI("analyze", writeCSV(t), "-q", "anything")
	if code != 1 {
		t.Fatalf("expected exit code 1, got %d", code)
	}
	if !strings.Contains(errOut, "status failed") {
		t.Errorf("stderr = %q", errOut)
	}
	if strings.TrimSpace(out) == "" {
		t.Error("expected the failure message on stdout")
	}
}

func TestNewApp(t *testing.T) {
	t.Parallel()

	cfg := config.Defaults()
	cfg.DBPath = sqlite.MemoryPath
	a, err := newApp(cfg, nil)
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	t.Cleanup(func() { a.Close() })

	if a.defaults.Model != "mistral" || string(a.defaults.Provider) != "ollama" {
		t.Errorf("defaults = %+v", a.defaults)
	}
	if err := a.openHistory(context.Background()); err != nil {
		t.Fatalf("openHistory: %v", err)
	}
	if a.runs == nil || a.recorder == nil {
		t.Fatal("history not wired")
	}

	cfg.Provider = "bard"
	if _, err := newApp(cfg, nil); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestOpenHistory_CreatesDataDir(t *testing.T) {
	t.Parallel()

	cfg := config.Defaults()
	cfg.DBPath = filepath.Join(t.TempDir(), "nested", "ragtool.db")
	a, err := newApp(cfg, nil)
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	t.Cleanup(func() { a.Close() })

	if err := a.openHistory(context.Background()); err != nil {
		t.Fatalf("openHistory: %v", err)
	}
	if _, err := os.Stat(cfg.DBPath); err != nil {
		t.Fatalf("database file not created: %v", err)
	}
}
