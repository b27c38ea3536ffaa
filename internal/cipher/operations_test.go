package cipher

import (
	"context"
	"testing"
)

func TestBase64Operations(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"simple text", "Hello, World!", "SGVsbG8sIFdvcmxkIQ=="},
		{"json", `{"id":"1"}`, "eyJpZCI6IjEifQ=="},
		{"empty string", "", ""},
	}

	ctx := context.Background()
	encoder, _ := GetOperation("base64_encode")
	decoder, _ := GetOperation("base64_decode")

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded, err := encoder.Execute(ctx, []byte(tt.input), nil)
			if err != nil {
				t.Fatalf("encode failed: %v", err)
			}
			if string(encoded) != tt.expected {
				t.Errorf("encode: expected %q, got %q", tt.expected, string(encoded))
			}

			decoded, err := decoder.Execute(ctx, encoded, nil)
			if err != nil {
				t.Fatalf("decode failed: %v", err)
			}
			if string(decoded) != tt.input {
				t.Errorf("decode: expected %q, got %q", tt.input, string(decoded))
			}
		})
	}
}

func TestURLOperations(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"base64 alphabet", "ab+c/d==", "ab%2Bc%2Fd%3D%3D"},
		{"spaces", "hello world", "hello+world"},
		{"already safe", "simple", "simple"},
	}

	ctx := context.Background()
	encoder, _ := GetOperation("url_encode")
	decoder, _ := GetOperation("url_decode")

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded, err := encoder.Execute(ctx, []byte(tt.input), nil)
			if err != nil {
				t.Fatalf("encode failed: %v", err)
			}
			if string(encoded) != tt.expected {
				t.Errorf("encode: expected %q, got %q", tt.expected, string(encoded))
			}

			decoded, err := decoder.Execute(ctx, encoded, nil)
			if err != nil {
				t.Fatalf("decode failed: %v", err)
			}
			if string(decoded) != tt.input {
				t.Errorf("decode: expected %q, got %q", tt.input, string(decoded))
			}
		})
	}
}

func TestHexOperations(t *testing.T) {
	ctx := context.Background()
	lower, _ := GetOperation("hex_encode")
	upper, _ := GetOperation("hex_upper_encode")
	decoder, _ := GetOperation("hex_decode")

	input := []byte{0xde, 0xad, 0xbe, 0xef}

	got, err := lower.Execute(ctx, input, nil)
	if err != nil {
		t.Fatalf("hex_encode: %v", err)
	}
	if string(got) != "deadbeef" {
		t.Errorf("hex_encode: expected deadbeef, got %q", got)
	}

	got, err = upper.Execute(ctx, input, nil)
	if err != nil {
		t.Fatalf("hex_upper_encode: %v", err)
	}
	if string(got) != "DEADBEEF" {
		t.Errorf("hex_upper_encode: expected DEADBEEF, got %q", got)
	}

	for _, in := range []string{"DEADBEEF", "deadbeef", "0xdeadbeef", "de ad be ef"} {
		decoded, err := decoder.Execute(ctx, []byte(in), nil)
		if err != nil {
			t.Fatalf("hex_decode(%q): %v", in, err)
		}
		if string(decoded) != string(input) {
			t.Errorf("hex_decode(%q): got %x", in, decoded)
		}
	}

	if _, err := decoder.Execute(ctx, []byte("zz"), nil); err == nil {
		t.Error("expected error for invalid hex")
	}
}
