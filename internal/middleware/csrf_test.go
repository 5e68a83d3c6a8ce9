package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCSRFMiddleware_SafeMethodSetsCookie(t *testing.T) {
	mw := NewCSRFMiddleware(CSRFConfig{})
	handler := mw(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var found bool
	for _, c := range w.Result().Cookies() {
		if c.Name == "csrf_token" && c.Value != "" {
			found = true
			if c.HttpOnly {
				t.Error("csrf_token cookie must be readable from the frontend")
			}
		}
	}
	if !found {
		t.Error("GET request should set csrf_token cookie")
	}
}

func TestCSRFMiddleware_UnsafeMethodRequiresMatchingToken(t *testing.T) {
	mw := NewCSRFMiddleware(CSRFConfig{})
	handler := mw(okHandler())

	tests := []struct {
		name       string
		cookie     string
		header     string
		wantStatus int
	}{
		{"トークン一致は許可", "tok-1", "tok-1", http.StatusOK},
		{"Cookieなしは拒否", "", "tok-1", http.StatusForbidden},
		{"ヘッダーなしは拒否", "tok-1", "", http.StatusForbidden},
		{"トークン不一致は拒否", "tok-1", "tok-2", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPut, "/api/expert/predictions/p1/comment", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "csrf_token", Value: tt.cookie})
			}
			if tt.header != "" {
				req.Header.Set("X-CSRF-Token", tt.header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}

func TestCSRFTokenHandler_ReturnsToken(t *testing.T) {
	handler := NewCSRFTokenHandler(CSRFConfig{})

	req := httptest.NewRequest(http.MethodGet, "/api/csrf-token", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body["token"] == "" {
		t.Error("token must be non-empty")
	}
}

func TestCSRFTokenHandler_ReusesExistingCookie(t *testing.T) {
	handler := NewCSRFTokenHandler(CSRFConfig{})

	req := httptest.NewRequest(http.MethodGet, "/api/csrf-token", nil)
	req.AddCookie(&http.Cookie{Name: "csrf_token", Value: "existing-token"})
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body["token"] != "existing-token" {
		t.Errorf("token = %q, want existing-token", body["token"])
	}
}
