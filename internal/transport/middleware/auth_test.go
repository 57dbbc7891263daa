package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/heartmarshall/macrolog-backend/pkg/ctxutil"
)

//go:generate moq -out token_validator_mock_test.go -pkg middleware . tokenValidator

func TestAuth_ValidToken(t *testing.T) {
	userID := uuid.New()
	validator := &tokenValidatorMock{
		ValidateTokenFunc: func(ctx context.Context, token string) (uuid.UUID, error) {
			if token == "valid-token" {
				return userID, nil
			}
			return uuid.Nil, errors.New("invalid token")
		},
	}

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID, ok := ctxutil.UserIDFromCtx(r.Context())
		if !ok {
			t.Error("expected userID in context")
			return
		}
		if gotUserID != userID {
			t.Errorf("expected userID %v, got %v", userID, gotUserID)
		}
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer valid-token")
	rec := httptest.NewRecorder()

	Auth(validator)(handler).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
}

func TestAuth_Rejected(t *testing.T) {
	cases := []struct {
		name      string
		header    string
		wantCalls int
	}{
		{"invalid token", "Bearer invalid-token", 1},
		{"no header", "", 0},
		{"basic auth", "Basic dXNlcjpwYXNz", 0},
		{"empty bearer", "Bearer ", 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			validator := &tokenValidatorMock{
				ValidateTokenFunc: func(ctx context.Context, token string) (uuid.UUID, error) {
					return uuid.Nil, errors.New("invalid token")
				},
			}
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Error("handler should not be called")
			})

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()

			Auth(validator)(handler).ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
			}
			if rec.Header().Get("WWW-Authenticate") == "" {
				t.Error("expected WWW-Authenticate header")
			}
			var body struct {
				Error struct {
					Code string `json:"code"`
				} `json:"error"`
			}
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body.Error.Code != "UNAUTHORIZED" {
				t.Errorf("expected code UNAUTHORIZED, got %q", body.Error.Code)
			}
			if got := len(validator.ValidateTokenCalls()); got != tc.wantCalls {
				t.Errorf("expected %d ValidateToken calls, got %d", tc.wantCalls, got)
			}
		})
	}
}

func TestExtractBearerToken_Cases(t *testing.T) {
	cases := []struct {
		name   string
		header string
		want   string
	}{
		{"empty header", "", ""},
		{"bearer with token", "Bearer valid-token", "valid-token"},
		{"bearer lowercase", "bearer valid-token", "valid-token"},
		{"bearer mixed case", "BEARER valid-token", "valid-token"},
		{"basic auth", "Basic dXNlcjpwYXNz", ""},
		{"bearer no space", "Bearertoken", ""},
		{"bearer empty token", "Bearer ", ""},
		{"just bearer", "Bearer", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			got := extractBearerToken(req)
			if got != tc.want {
				t.Errorf("extractBearerToken(%q) = %q, want %q", tc.header, got, tc.want)
			}
		})
	}
}
