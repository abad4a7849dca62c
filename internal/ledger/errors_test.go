package ledger

import (
	"testing"

	"boundless/internal/domain"
)

func TestDecodeCodeKnownCodes(t *testing.T) {
	cases := []struct {
		code int
		want domain.Kind
	}{
		{1, domain.KindConflict},
		{3, domain.KindConflict},
		{4, domain.KindNotFound},
		{5, domain.KindInvalidInput},
		{8, domain.KindWindowClosed},
		{9, domain.KindWindowClosed},
		{10, domain.KindConflict},
		{13, domain.KindConflict},
		{14, domain.KindConflict},
		{15, domain.KindConflict},
		{16, domain.KindInsufficientFunds},
		{17, domain.KindConflict},
		{23, domain.KindLedgerRejected},
	}
	for _, c := range cases {
		got := DecodeCode(c.code)
		if got.Kind != c.want {
			t.Errorf("DecodeCode(%d).Kind = %v, want %v", c.code, got.Kind, c.want)
		}
		if got.RawCode != c.code {
			t.Errorf("DecodeCode(%d).RawCode = %d, want %d", c.code, got.RawCode, c.code)
		}
	}
}

func TestDecodeCodeUnmappedPreservesRawCode(t *testing.T) {
	got := DecodeCode(999)
	if got.Kind != domain.KindLedgerRejected {
		t.Fatalf("DecodeCode(999).Kind = %v, want %v", got.Kind, domain.KindLedgerRejected)
	}
	if got.RawCode != 999 {
		t.Fatalf("DecodeCode(999).RawCode = %d, want 999", got.RawCode)
	}
}

func TestDecodedErrorsAreNotRetryable(t *testing.T) {
	for _, code := range []int{4, 16, 23, 999} {
		if DecodeCode(code).Kind.Retryable() {
			t.Errorf("DecodeCode(%d) is retryable, want not retryable", code)
		}
	}
}
