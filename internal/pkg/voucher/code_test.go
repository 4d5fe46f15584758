package voucher

import (
	"regexp"
	"testing"
)

var codePattern = regexp.MustCompile(`^WIFI-[1-9][0-9]{3}-[0-9A-Z]{4}$`)

func TestGenerateCodeFormat(t *testing.T) {
	for i := 0; i < 100; i++ {
		code, err := GenerateCode()
		if err != nil {
			t.Fatalf("GenerateCode() error: %v", err)
		}
		if !codePattern.MatchString(code) {
			t.Fatalf("GenerateCode() = %q, want format WIFI-NNNN-XXXX", code)
		}
	}
}

func TestGenerateCodeVariety(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		code, err := GenerateCode()
		if err != nil {
			t.Fatalf("GenerateCode() error: %v", err)
		}
		seen[code] = true
	}
	if len(seen) < 45 {
		t.Fatalf("expected near-unique codes, got %d distinct of 50", len(seen))
	}
}
