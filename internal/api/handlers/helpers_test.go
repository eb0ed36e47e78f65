package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
)

// multipartRequest builds a multipart POST. files maps field name to
// {filename, content}.
func multipartRequest(t *testing.T, target string, fields map[string]string, files map[string][2]string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("WriteField(%s): %v", k, err)
		}
	}
	for field, f := range files {
		fw, err := mw.CreateFormFile(field, f[0])
		if err != nil {
			t.Fatalf("CreateFormFile(%s): %v", field, err)
		}
		if _, err := fw.Write([]byte(f[1])); err != nil {
			t.Fatalf("write file %s: %v", field, err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set(headerContentType, mw.FormDataContentType())
	return req
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&out); err != nil {
		t.Fatalf("failed to decode response %q: %v", rr.Body.String(), err)
	}
	return out
}

func TestParsePaginationParams(t *testing.T) {
	t.Parallel()

	tests := []struct {
		query      string
		wantLimit  int
		wantOffset int
	}{
		{"", defaultPaginationLimit, 0},
		{"?limit=5&offset=10", 5, 10},
		{"?limit=1000", maxPaginationLimit, 0},
		{"?limit=-1&offset=-4", defaultPaginationLimit, 0},
		{"?limit=abc", defaultPaginationLimit, 0},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/runs"+tt.query, nil)
		got := parsePaginationParams(req)
		if got.Limit != tt.wantLimit || got.Offset != tt.wantOffset {
			t.Errorf("query %q: got %+v, want limit=%d offset=%d", tt.query, got, tt.wantLimit, tt.wantOffset)
		}
	}
}

func TestFormBool(t *testing.T) {
	t.Parallel()

	tests := []struct {
		value    string
		fallback bool
		want     bool
		wantErr  bool
	}{
		{"", true, true, false},
		{"on", false, true, false},
		{"true", false, true, false},
		{"0", true, false, false},
		{"maybe", false, false, true},
	}
	for _, tt := range tests {
		req := multipartRequest(t, "/", map[string]string{"full": tt.value}, nil)
		if err := req.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("ParseMultipartForm: %v", err)
		}
		got, err := formBool(req, "full", tt.fallback)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("formBool(%q, %v) = %v, %v; want %v, err=%v", tt.value, tt.fallback, got, err, tt.want, tt.wantErr)
		}
	}
}
