package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// ---------------------------------------------------------------------------
// queryInt tests
// ---------------------------------------------------------------------------

func TestQueryInt(t *testing.T) {
	tests := []struct {
		name       string
		url        string
		key        string
		defaultVal int
		want       int
	}{
		{"returns default for missing param", "/test", "page", 1, 1},
		{"parses integer param", "/test?page=3", "page", 1, 3},
		{"returns default for non-integer", "/test?page=abc", "page", 1, 1},
		{"parses zero", "/test?page=0", "page", 1, 0},
		{"parses negative", "/test?page=-5", "page", 1, -5},
		{"returns default for empty value", "/test?page=", "page", 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", tt.url, nil)
			got := queryInt(r, tt.key, tt.defaultVal)
			if got != tt.want {
				t.Errorf("queryInt(%q, %d) = %d, want %d", tt.key, tt.defaultVal, got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// normalizeEmail tests
// ---------------------------------------------------------------------------

func TestNormalizeEmail(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"User@Example.com", "user@example.com"},
		{"  padded@example.com  ", "padded@example.com"},
		{"ALLCAPS@EXAMPLE.COM", "allcaps@example.com"},
		{"already@example.com", "already@example.com"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := normalizeEmail(tt.in); got != tt.want {
			t.Errorf("normalizeEmail(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// ---------------------------------------------------------------------------
// checkRequest tests
// ---------------------------------------------------------------------------

func TestCheckRequest_FieldDetails(t *testing.T) {
	req := signupRequest{
		FullName: "X",
		Email:    "not-an-email",
		Password: "short",
	}

	rr := httptest.NewRecorder()
	if checkRequest(rr, req) {
		t.Fatal("expected validation to fail")
	}

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}

	var resp struct {
		Error struct {
			Message string                 `json:"message"`
			Context map[string]interface{} `json:"context"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}

	// One detail per offending field, keyed by the JSON field name.
	for _, field := range []string{"fullName", "email", "password"} {
		if _, ok := resp.Error.Context[field]; !ok {
			t.Errorf("expected %q in validation context, got %v", field, resp.Error.Context)
		}
	}
}

func TestCheckRequest_Valid(t *testing.T) {
	req := signupRequest{
		FullName: "Valid Name",
		Email:    "valid@example.com",
		Password: "longenoughpassword",
	}

	rr := httptest.NewRecorder()
	if !checkRequest(rr, req) {
		t.Errorf("expected validation to pass, body = %s", rr.Body.String())
	}
}

// ---------------------------------------------------------------------------
// writeError tests
// ---------------------------------------------------------------------------

func TestWriteError_Envelope(t *testing.T) {
	rr := httptest.NewRecorder()
	writeError(rr, http.StatusNotFound, "User not found")

	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var resp struct {
		Error struct {
			Code    int                    `json:"code"`
			Message string                 `json:"message"`
			Context map[string]interface{} `json:"context"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Error.Code != 404 {
		t.Errorf("error.code = %d, want 404", resp.Error.Code)
	}
	if resp.Error.Message != "User not found" {
		t.Errorf("error.message = %q, want User not found", resp.Error.Message)
	}
	if resp.Error.Context != nil {
		t.Errorf("expected context omitted, got %v", resp.Error.Context)
	}
}
