package errors

import (
	stdErrors "errors"
	"net/http"
	"testing"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := map[Code]struct {
		status    int
		publicMsg string
		retryable bool
		detailsOK bool
	}{
		CodeValidation:    {status: http.StatusBadRequest, publicMsg: "validation failed", detailsOK: true},
		CodeConfiguration: {status: http.StatusUnprocessableEntity, publicMsg: "configuration incomplete", detailsOK: true},
		CodeNotFound:      {status: http.StatusNotFound, publicMsg: "resource not found"},
		CodeConflict:      {status: http.StatusConflict, publicMsg: "conflict detected"},
		CodeStateConflict: {status: http.StatusUnprocessableEntity, publicMsg: "state transition disallowed", detailsOK: true},
		CodeStrictBlocked: {status: http.StatusUnprocessableEntity, publicMsg: "strict mode rejected the document", detailsOK: true},
		CodeInternal:      {status: http.StatusInternalServerError, publicMsg: "internal server error", retryable: true},
		CodeDependency:    {status: http.StatusServiceUnavailable, publicMsg: "dependency unavailable", retryable: true, detailsOK: true},
	}

	for code, want := range tests {
		t.Run(string(code), func(t *testing.T) {
			meta := MetadataFor(code)
			if meta.HTTPStatus != want.status {
				t.Fatalf("status: want %d got %d", want.status, meta.HTTPStatus)
			}
			if meta.PublicMessage != want.publicMsg {
				t.Fatalf("public message: want %q got %q", want.publicMsg, meta.PublicMessage)
			}
			if meta.Retryable != want.retryable {
				t.Fatalf("retryable: want %v got %v", want.retryable, meta.Retryable)
			}
			if meta.DetailsAllowed != want.detailsOK {
				t.Fatalf("details allowed: want %v got %v", want.detailsOK, meta.DetailsAllowed)
			}
		})
	}
}

func TestMetadataForUnknownCode(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("unknown codes should map to internal, got %d", meta.HTTPStatus)
	}
}

func TestNewAndWithDetails(t *testing.T) {
	err := New(CodeValidation, "missing scenario")
	if err.Code() != CodeValidation {
		t.Fatalf("code: got %s", err.Code())
	}
	if err.Message() != "missing scenario" {
		t.Fatalf("message: got %q", err.Message())
	}
	if err.Details() != nil {
		t.Fatal("details should start nil")
	}

	err.WithDetails(map[string]any{"field": "pricing_scenario"})
	if err.Details() == nil {
		t.Fatal("WithDetails lost the payload")
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stdErrors.New("duplicate key")
	wrapped := Wrap(CodeConflict, cause, "creating sheet")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatal("Wrap dropped the cause")
	}
	if wrapped.Code() != CodeConflict {
		t.Fatalf("code: got %s", wrapped.Code())
	}
}

func TestAsReturnsTypedError(t *testing.T) {
	err := Newf(CodeConfiguration, "no active %s rule", "margin")
	if got := As(err); got == nil || got.Code() != CodeConfiguration {
		t.Fatal("As did not recover the typed error")
	}
	if As(stdErrors.New("plain")) != nil {
		t.Fatal("As matched an untyped error")
	}
	if As(nil) != nil {
		t.Fatal("As(nil) should be nil")
	}
}
