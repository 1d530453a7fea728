package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestFromStatus(t *testing.T) {
	tests := []struct {
		code int
		want ErrorType
	}{
		{http.StatusUnauthorized, ErrorTypeAuth},
		{http.StatusForbidden, ErrorTypeAuthorize},
		{http.StatusNotFound, ErrorTypeNotFound},
		{http.StatusTooManyRequests, ErrorTypeRateLimit},
		{http.StatusBadGateway, ErrorTypeUnavailable},
		{http.StatusConflict, ErrorTypeValidation},
	}
	for _, tt := range tests {
		if got := FromStatus(tt.code, "x").Type; got != tt.want {
			t.Errorf("FromStatus(%d) = %s, want %s", tt.code, got, tt.want)
		}
	}
}

func TestPredicatesSeeThroughWrapping(t *testing.T) {
	err := fmt.Errorf("fetch hubs: %w", NewNotFoundError("hub gone", nil))
	if !IsNotFound(err) {
		t.Error("IsNotFound should unwrap")
	}
	if IsValidation(err) || IsAuth(err) || IsTransient(err) {
		t.Error("unexpected predicate match")
	}
	if !IsTransient(NewTransportError("dial", stderrors.New("refused"))) {
		t.Error("transport errors are transient")
	}
	if !IsAuth(FromStatus(http.StatusForbidden, "no")) {
		t.Error("403 should be an auth error")
	}
}

func TestErrorStringAndUnwrap(t *testing.T) {
	cause := stderrors.New("disk full")
	e := NewStorageError("write failed", cause).WithRequestID("req_1")
	if e.Error() != "storage: write failed (internal: disk full)" {
		t.Errorf("Error() = %q", e.Error())
	}
	if !stderrors.Is(e, cause) {
		t.Error("errors.Is should reach the cause")
	}
	if e.RequestID != "req_1" {
		t.Errorf("RequestID = %q", e.RequestID)
	}
}
