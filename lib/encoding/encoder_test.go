package encoding

import (
	"errors"
	"strings"
	"testing"
)

func testState() map[string]any {
	return map[string]any{
		"count": 12345,
		"label": "test-file.txt",
		"open":  true,
		"tags":  []any{"a", "b"},
		"nested": map[string]any{
			"price": 9.5,
		},
	}
}

func TestNewEncoder(t *testing.T) {
	// Should work with any key length (derives 32-byte key)
	if _, err := NewEncoder([]byte("short")); err != nil {
		t.Fatalf("NewEncoder with short key failed: %v", err)
	}

	if _, err := NewEncoder([]byte("this-is-a-32-byte-key-for-aes!!!")); err != nil {
		t.Fatalf("NewEncoder with 32-byte key failed: %v", err)
	}
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name      string
		sensitive bool
	}{
		{"signed", false},
		{"encrypted", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc, err := NewEncoder([]byte("test-key"))
			if err != nil {
				t.Fatalf("NewEncoder failed: %v", err)
			}

			token, err := enc.Encode(testState(), tt.sensitive)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			if token == "" {
				t.Fatal("token is empty")
			}
			if hasDot := strings.Contains(token, "."); hasDot == tt.sensitive {
				t.Errorf("token %q: separator present = %v, want %v", token, hasDot, !tt.sensitive)
			}

			got, err := enc.Decode(token, tt.sensitive)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}

			if got["count"] != int64(12345) {
				t.Errorf("count = %#v, want int64(12345)", got["count"])
			}
			if got["label"] != "test-file.txt" {
				t.Errorf("label = %#v, want %q", got["label"], "test-file.txt")
			}
			if got["open"] != true {
				t.Errorf("open = %#v, want true", got["open"])
			}
			tags, ok := got["tags"].([]any)
			if !ok || len(tags) != 2 || tags[1] != "b" {
				t.Errorf("tags = %#v, want [a b]", got["tags"])
			}
			nested, ok := got["nested"].(map[string]any)
			if !ok || nested["price"] != 9.5 {
				t.Errorf("nested = %#v, want price 9.5", got["nested"])
			}
		})
	}
}

func TestSealUsesMode(t *testing.T) {
	enc, err := NewEncoder([]byte("test-key"))
	if err != nil {
		t.Fatalf("NewEncoder failed: %v", err)
	}

	if enc.IsSensitive() {
		t.Error("new encoder should sign by default")
	}
	token, err := enc.Seal(map[string]any{"count": 1})
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}
	if !strings.Contains(token, ".") {
		t.Errorf("signed token %q should contain a separator", token)
	}

	enc.Sensitive()
	token, err = enc.Seal(map[string]any{"count": 1})
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}
	got, err := enc.Open(token)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if got["count"] != int64(1) {
		t.Errorf("count = %#v, want int64(1)", got["count"])
	}
}

func TestSignatureVerificationFailure(t *testing.T) {
	enc, err := NewEncoder([]byte("test-key"))
	if err != nil {
		t.Fatalf("NewEncoder failed: %v", err)
	}

	token, err := enc.Encode(map[string]any{"count": 123}, false)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	// Tamper with the payload half, keeping the signature
	parts := strings.SplitN(token, ".", 2)
	tampered := "AAAA" + parts[0][4:] + "." + parts[1]

	_, err = enc.Decode(tampered, false)
	if !errors.Is(err, ErrSignatureInvalid) && !errors.Is(err, ErrInvalidFormat) {
		t.Errorf("Decode(tampered) error = %v, want signature or format error", err)
	}
}

func TestDecryptionFailure(t *testing.T) {
	enc, err := NewEncoder([]byte("test-key"))
	if err != nil {
		t.Fatalf("NewEncoder failed: %v", err)
	}

	token, err := enc.Encode(map[string]any{"count": 123}, true)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	tampered := token[:len(token)-4] + "AAAA"
	if tampered == token {
		tampered = token[:len(token)-4] + "BBBB"
	}

	if _, err := enc.Decode(tampered, true); err == nil {
		t.Error("Expected error for tampered ciphertext, got nil")
	}
}

func TestInvalidFormat(t *testing.T) {
	enc, err := NewEncoder([]byte("test-key"))
	if err != nil {
		t.Fatalf("NewEncoder failed: %v", err)
	}

	tests := []struct {
		name      string
		token     string
		sensitive bool
	}{
		{"missing separator", "invalidbase64withoutseparator", false},
		{"bad base64", "!!!.!!!", false},
		{"short ciphertext", "AAAA", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := enc.Decode(tt.token, tt.sensitive)
			if !errors.Is(err, ErrInvalidFormat) {
				t.Errorf("Decode(%q) error = %v, want ErrInvalidFormat", tt.token, err)
			}
		})
	}
}

func TestDifferentKeysCannotDecode(t *testing.T) {
	enc1, _ := NewEncoder([]byte("key-one"))
	enc2, _ := NewEncoder([]byte("key-two"))

	token, err := enc1.Encode(map[string]any{"count": 123}, false)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	if _, err := enc2.Decode(token, false); !errors.Is(err, ErrSignatureInvalid) {
		t.Errorf("Decode with other key error = %v, want ErrSignatureInvalid", err)
	}
}

func TestEmptyState(t *testing.T) {
	enc, err := NewEncoder([]byte("test-key"))
	if err != nil {
		t.Fatalf("NewEncoder failed: %v", err)
	}

	token, err := enc.Encode(nil, false)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	got, err := enc.Decode(token, false)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("Decode(empty) = %#v, want empty map", got)
	}
}
