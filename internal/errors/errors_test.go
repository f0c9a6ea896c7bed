package errors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("fetch: %w", Newf(CodeNotFound, "counter %s not found", "c1"))
	assert.True(t, Is(err, ErrNotFound))
	assert.False(t, Is(err, ErrInternal))
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"unavailable", ErrUnavailable, true},
		{"deadline", ErrDeadlineExceeded.WithCause(context.DeadlineExceeded), true},
		{"internal", Internal("boom", nil), true},
		{"permission", ErrPermissionDenied, false},
		{"wrapped transient", fmt.Errorf("op: %w", ErrUnavailable), true},
		{"plain error", New("plain"), false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Retryable(tt.err))
		})
	}
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeWrongPassword, CodeOf(ErrWrongPassword))
	assert.Equal(t, CodeDeadlineExceeded, CodeOf(context.DeadlineExceeded))
	assert.Equal(t, CodeInternal, CodeOf(New("x")))
	assert.Equal(t, Code(""), CodeOf(nil))
}

func TestStatusRoundTrip(t *testing.T) {
	for _, c := range []Code{CodeNotFound, CodeUnauthenticated, CodePermissionDenied, CodeTooManyRequests, CodeUnavailable, CodeDeadlineExceeded, CodeInternal} {
		assert.Equal(t, c, CodeFromStatus(c.HTTPStatus()), c)
	}
	assert.Equal(t, http.StatusBadRequest, ErrWeakPassword.HTTPStatus())
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "パスワードが間違っています", Message(LocaleJA, ErrWrongPassword))
	assert.Equal(t, "Wrong password", Message(LocaleEN, fmt.Errorf("sign in: %w", ErrWrongPassword)))
	assert.Equal(t, "An error occurred: counter missing", Message(LocaleEN, NotFound("counter missing")))
	assert.Equal(t, "エラーが発生しました: disk full", Message("fr", New("disk full")))
	assert.Empty(t, Message(LocaleEN, nil))
}

func TestWrite(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   Code
		wantMsg    string
	}{
		{"coded", ErrEmailInUse, http.StatusConflict, CodeEmailInUse, "email already in use"},
		{"wrapped", fmt.Errorf("create: %w", NotFound("counter not found: c1")), http.StatusNotFound, CodeNotFound, "counter not found: c1"},
		{"plain", New("pq: connection refused"), http.StatusInternalServerError, CodeInternal, "internal error"},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout, CodeDeadlineExceeded, "context deadline exceeded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			Write(rec, tt.err)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d; want %d", rec.Code, tt.wantStatus)
			}
			var body struct {
				Code    Code   `json:"code"`
				Message string `json:"message"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body.Code != tt.wantCode || body.Message != tt.wantMsg {
				t.Errorf("body = %+v; want %s %q", body, tt.wantCode, tt.wantMsg)
			}
		})
	}
}
