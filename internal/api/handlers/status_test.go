package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type fakeEngine struct {
	healthErr error
	models    []string
	listErr   error
}

func (f *fakeEngine) Health(context.Context) error { return f.healthErr }

func (f *fakeEngine) ListModels(context.Context) ([]string, error) { return f.models, f.listErr }

func TestStatusHandler_Status(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		engine        *fakeEngine
		wantConnected bool
		wantMessage   string
	}{
		{"connected", &fakeEngine{}, true, "Connected"},
		{"down", &fakeEngine{healthErr: errors.New("connection refused")}, false, "connection refused"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rr := httptest.NewRecorder()
			NewStatusHandler(tt.engine).Status(rr, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))

			if rr.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", rr.Code)
			}
			body := decodeBody(t, rr)
			if body["connected"] != tt.wantConnected {
				t.Errorf("connected = %v, want %v", body["connected"], tt.wantConnected)
			}
			if msg, _ := body["message"].(string); !strings.Contains(msg, tt.wantMessage) {
				t.Errorf("message = %q, want it to contain %q", msg, tt.wantMessage)
			}
		})
	}
}

func TestStatusHandler_Models(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		engine  *fakeEngine
		want    []string
		wantErr bool
	}{
		{"installed", &fakeEngine{models: []string{"mistral", "llama3"}}, []string{"mistral", "llama3"}, false},
		{"none installed", &fakeEngine{models: nil}, []string{NoModelPlaceholder}, false},
		{"engine down", &fakeEngine{listErr: errors.New("dial tcp: refused")}, []string{NoModelPlaceholder}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rr := httptest.NewRecorder()
			NewStatusHandler(tt.engine).Models(rr, httptest.NewRequest(http.MethodGet, "/api/v1/models", nil))

			if rr.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", rr.Code)
			}
			body := decodeBody(t, rr)
			got, _ := body["models"].([]any)
			if len(got) != len(tt.want) {
				t.Fatalf("models = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("models[%d] = %v, want %q", i, got[i], tt.want[i])
				}
			}
			if _, hasErr := body["error"]; hasErr != tt.wantErr {
				t.Errorf("error field present = %v, want %v", hasErr, tt.wantErr)
			}
		})
	}
}
