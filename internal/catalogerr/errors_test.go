package catalogerr

import (
	"errors"
	"fmt"
	"testing"
)

func TestReason(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, "ok"},
		{"missing_identity_wrapped", fmt.Errorf("row 3: %w", ErrMissingIdentity), "missing_identity"},
		{"row_error_wrapping_identity", &RowError{Supplier: "acme", Row: 2, Err: ErrMissingIdentity}, "missing_identity"},
		{"unmapped", ErrUnmappedSupplier, "unmapped_supplier"},
		{"config", Configf("Mapping.csv", "missing column %q", "canonical_field"), "config"},
		{"other", errors.New("boom"), "row_error"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Reason(tc.err); got != tc.want {
				t.Fatalf("Reason(%v)=%q want %q", tc.err, got, tc.want)
			}
		})
	}
}

func TestRowErrorMessage(t *testing.T) {
	err := &RowError{Supplier: "acme", File: "a.xlsx", Row: 12, Field: "size", Err: errors.New("bad")}
	want := "supplier=acme file=a.xlsx row=12 field=size: bad"
	if err.Error() != want {
		t.Fatalf("got %q want %q", err.Error(), want)
	}
}

func TestConfigErrorUnwrap(t *testing.T) {
	inner := errors.New("no such file")
	err := fmt.Errorf("startup: %w", &ConfigError{Source: "sizes.json", Err: inner})
	if !IsConfig(err) {
		t.Fatalf("expected IsConfig")
	}
	if !errors.Is(err, inner) {
		t.Fatalf("expected errors.Is to reach the cause")
	}
}
