package segment

import "testing"

// TestParseContentStream_Operators checks text recovery from the common
// text-showing operators.
func TestParseContentStream_Operators(t *testing.T) {
	t.Parallel()

	stream := []byte("BT\n/F1 12 Tf\n(Hello ) Tj\n[(wor) -20 (ld)] TJ\n10 0 Td\n(next chunk) Tj\nET\n")
	got := parseContentStream(stream)
	if got != "Hello world next chunk" {
		t.Errorf("unexpected text: %q", got)
	}
}

// TestParseContentStream_NextLineOperator checks the ' operator inserts a break.
func TestParseContentStream_NextLineOperator(t *testing.T) {
	t.Parallel()

	stream := []byte("(first line) Tj\n(second line) '\n")
	got := parseContentStream(stream)
	if got != "first line second line" {
		t.Errorf("unexpected text: %q", got)
	}
}

// TestDecodePDFString_Escapes covers named and octal escapes.
func TestDecodePDFString_Escapes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{`plain`, "plain"},
		{`a\tb`, "a\tb"},
		{`a\\b`, `a\b`},
		{`a\(b\)c`, "a(b)c"},
		{`a\040b`, "a b"},
		{`\101`, "A"},
	}
	for _, tt := range tests {
		if got := decodePDFString([]byte(tt.in)); got != tt.want {
			t.Errorf("decodePDFString(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
