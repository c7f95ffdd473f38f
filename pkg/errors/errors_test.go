package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		publicMsg string
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, publicMsg: "validation failed", detailsOK: true},
		{code: CodeUnauthorized, status: http.StatusUnauthorized, publicMsg: "authentication required"},
		{code: CodeForbidden, status: http.StatusForbidden, publicMsg: "access denied"},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found"},
		{code: CodeNoTenant, status: http.StatusForbidden, publicMsg: "user has no tenant"},
		{code: CodeConflict, status: http.StatusConflict, publicMsg: "conflict detected", retryable: true},
		{code: CodeInvalidTransition, status: http.StatusUnprocessableEntity, publicMsg: "state transition disallowed", detailsOK: true},
		{code: CodeQuantityTooSmall, status: http.StatusUnprocessableEntity, publicMsg: "quantity below minimum order quantity", detailsOK: true},
		{code: CodeSelfDealing, status: http.StatusUnprocessableEntity, publicMsg: "buyer and supplier must differ"},
		{code: CodeListingUnavailable, status: http.StatusConflict, publicMsg: "listing unavailable"},
		{code: CodeInsufficientStock, status: http.StatusConflict, publicMsg: "insufficient stock", detailsOK: true},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal server error", retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, publicMsg: "dependency unavailable", retryable: true, detailsOK: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.PublicMessage != tt.publicMsg {
			t.Fatalf("code %s expected public message %q got %q", tt.code, tt.publicMsg, meta.PublicMessage)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeValidation, "missing foo")
	if base.Code() != CodeValidation {
		t.Fatalf("expected validation code, got %s", base.Code())
	}
	if base.Message() != "missing foo" {
		t.Fatalf("unexpected message %q", base.Message())
	}
	if base.Details() != nil {
		t.Fatalf("details should be nil by default")
	}

	detail := map[string]any{"field": "foo"}
	base.WithDetails(detail)
	if base.Details() == nil {
		t.Fatalf("details should be preserved")
	}

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeDependency, cause, "ctx")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if wrapped.Code() != CodeDependency {
		t.Fatalf("unexpected code %s", wrapped.Code())
	}
}

func TestAsReturnsTypedError(t *testing.T) {
	err := New(CodeForbidden, "no entry")
	if got := As(err); got == nil || got.Code() != CodeForbidden {
		t.Fatalf("As failed to return typed error")
	}
	if As(nil) != nil {
		t.Fatalf("As(nil) should return nil")
	}
}

func TestCodeOfFollowsWrappedChain(t *testing.T) {
	inner := New(CodeInsufficientStock, "not enough")
	outer := fmt.Errorf("reserve: %w", inner)
	if got := CodeOf(outer); got != CodeInsufficientStock {
		t.Fatalf("expected insufficient stock code, got %s", got)
	}
	if !Is(outer, CodeInsufficientStock) {
		t.Fatalf("Is should match wrapped code")
	}
	if Is(nil, CodeInternal) {
		t.Fatalf("Is(nil) should be false")
	}
	if got := CodeOf(stdErrors.New("plain")); got != CodeInternal {
		t.Fatalf("untyped errors should map to internal, got %s", got)
	}
}

func TestErrorStringIncludesCause(t *testing.T) {
	err := Wrap(CodeDependency, stdErrors.New("dial tcp: refused"), "load listing")
	if got := err.Error(); got != "DEPENDENCY_ERROR: load listing: dial tcp: refused" {
		t.Fatalf("unexpected error string %q", got)
	}
	if got := Newf(CodeValidation, "quantity %d too large", 7).Message(); got != "quantity 7 too large" {
		t.Fatalf("unexpected formatted message %q", got)
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(fmt.Errorf("tx: %w", New(CodeConflict, "row changed"))) {
		t.Fatal("conflicts should be retryable")
	}
	if IsRetryable(New(CodeInvalidTransition, "shipped")) {
		t.Fatal("invalid transitions should not be retryable")
	}
	if !IsRetryable(stdErrors.New("plain")) {
		t.Fatal("untyped errors map to internal and are retryable")
	}
	if IsRetryable(nil) {
		t.Fatal("nil is not retryable")
	}
}
