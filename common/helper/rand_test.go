package helper

import (
	"strings"
	"testing"
)

func TestGenerateDisplayCode(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		code, err := GenerateDisplayCode()
		if err != nil {
			t.Fatalf("generate error: %v", err)
		}
		if len(code) != DisplayCodeLen {
			t.Fatalf("len != %d: %s", DisplayCodeLen, code)
		}
		for j := 0; j < len(code); j++ {
			if !strings.ContainsRune(displayCodeAlphabet, rune(code[j])) {
				t.Fatalf("char outside alphabet: %s", code)
			}
		}
		// 易混淆字符不允许出现
		if strings.ContainsAny(code, "IO01") {
			t.Fatalf("ambiguous char in code: %s", code)
		}
		seen[code] = true
	}
	// 200 个码全部相同几乎不可能，粗略检查随机性在工作
	if len(seen) < 50 {
		t.Fatalf("suspiciously few distinct codes: %d", len(seen))
	}
}

func TestCryptoIntn(t *testing.T) {
	for n := 1; n <= 10; n++ {
		for i := 0; i < 50; i++ {
			v, err := CryptoIntn(n)
			if err != nil {
				t.Fatalf("CryptoIntn(%d): %v", n, err)
			}
			if v < 0 || v >= n {
				t.Fatalf("CryptoIntn(%d) = %d out of range", n, v)
			}
		}
	}
	if _, err := CryptoIntn(0); err == nil {
		t.Fatalf("CryptoIntn(0) should fail")
	}
	if _, err := CryptoIntn(-3); err == nil {
		t.Fatalf("CryptoIntn(-3) should fail")
	}
}
