package entity

import (
	"errors"
	"testing"
)

const sampleWallet = "0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045"

func TestNormalizeAddress(t *testing.T) {
	got, err := NormalizeAddress("  0xd8da6bf26964af9d7eed9e03e53415d37aa96045 ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != sampleWallet {
		t.Errorf("NormalizeAddress = %s, want %s", got, sampleWallet)
	}

	for _, bad := range []string{"", "0x123", "d8da6bf26964af9d7eed9e03e53415d37aa96045", "0xzz8da6bf26964af9d7eed9e03e53415d37aa960"} {
		if _, err := NormalizeAddress(bad); !errors.Is(err, ErrInvalidAddress) {
			t.Errorf("NormalizeAddress(%q) = %v, want ErrInvalidAddress", bad, err)
		}
	}
}

func TestShortAddress(t *testing.T) {
	if got := ShortAddress(""); got != "Contract" {
		t.Errorf("ShortAddress(\"\") = %q", got)
	}
	if got := ShortAddress(sampleWallet); got != "0xd8dA6BF2..." {
		t.Errorf("ShortAddress = %q", got)
	}
}
