package sse

import (
	"slices"
	"testing"
)

func decodeAll(chunks ...[]byte) []string {
	dec := NewDecoder()
	var out []string
	for _, chunk := range chunks {
		for payload := range dec.Feed(chunk) {
			out = append(out, payload)
		}
	}
	for payload := range dec.Flush() {
		out = append(out, payload)
	}
	return out
}

func TestDecoderFeed(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "empty stream",
			input:    "",
			expected: nil,
		},
		{
			name:     "single data line",
			input:    "data: {\"a\":1}\n\n",
			expected: []string{`{"a":1}`},
		},
		{
			name:     "non data lines are dropped",
			input:    "event: message\nid: 7\n: comment\ndata: x\n\n",
			expected: []string{"x"},
		},
		{
			name:     "crlf terminators",
			input:    "data: one\r\n\r\ndata: two\r\n\r\n",
			expected: []string{"one", "two"},
		},
		{
			name:     "no space after marker",
			input:    "data:compact\n",
			expected: []string{"compact"},
		},
		{
			name:     "only one framing space removed",
			input:    "data:   indented\n",
			expected: []string{"  indented"},
		},
		{
			name:     "unterminated tail is flushed",
			input:    "data: first\ndata: last",
			expected: []string{"first", "last"},
		},
		{
			name:     "unterminated non data tail is dropped",
			input:    "data: first\nretry: 10",
			expected: []string{"first"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := decodeAll([]byte(tt.input))
			if !slices.Equal(got, tt.expected) {
				t.Errorf("decode(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

// Every way of cutting the stream into two or three chunks must produce the
// same payloads as decoding it in one piece.
func TestDecoderChunkingInvariance(t *testing.T) {
	stream := []byte("data: {\"content\":{\"role\":\"model\",\"parts\":[{\"text\":\"héllo ✓\"}]}}\r\n\r\n" +
		": keepalive\n" +
		"data: {\"error\":\"boom\"}\n\n" +
		"data: 日本語のテキスト\n" +
		"data: tail")

	want := decodeAll(stream)
	if len(want) != 4 {
		t.Fatalf("whole-stream decode produced %d payloads, want 4: %q", len(want), want)
	}

	for i := 0; i <= len(stream); i++ {
		got := decodeAll(stream[:i], stream[i:])
		if !slices.Equal(got, want) {
			t.Fatalf("split at %d: got %q, want %q", i, got, want)
		}
	}

	for i := 0; i <= len(stream); i += 3 {
		for j := i; j <= len(stream); j += 5 {
			got := decodeAll(stream[:i], stream[i:j], stream[j:])
			if !slices.Equal(got, want) {
				t.Fatalf("split at %d/%d: got %q, want %q", i, j, got, want)
			}
		}
	}
}

func TestDecoderByteAtATime(t *testing.T) {
	stream := []byte("data: ünïcödé\n\ndata: 🚀 launch\n\n")

	var chunks [][]byte
	for i := range stream {
		chunks = append(chunks, stream[i:i+1])
	}

	got := decodeAll(chunks...)
	want := []string{"ünïcödé", "🚀 launch"}
	if !slices.Equal(got, want) {
		t.Errorf("byte-at-a-time decode = %q, want %q", got, want)
	}
}

func TestDecoderBuffersPartialLine(t *testing.T) {
	dec := NewDecoder()

	var got []string
	for payload := range dec.Feed([]byte("data: par")) {
		got = append(got, payload)
	}
	if len(got) != 0 {
		t.Fatalf("partial line yielded %q", got)
	}
	if dec.Buffered() != len("data: par") {
		t.Errorf("Buffered() = %d, want %d", dec.Buffered(), len("data: par"))
	}

	for payload := range dec.Feed([]byte("tial\n")) {
		got = append(got, payload)
	}
	if !slices.Equal(got, []string{"partial"}) {
		t.Errorf("got %q, want [partial]", got)
	}
	if dec.Buffered() != 0 {
		t.Errorf("Buffered() = %d after complete line, want 0", dec.Buffered())
	}
}

func TestDecoderFlushResets(t *testing.T) {
	dec := NewDecoder()
	for range dec.Feed([]byte("data: a")) {
	}

	first := slices.Collect(dec.Flush())
	second := slices.Collect(dec.Flush())

	if !slices.Equal(first, []string{"a"}) {
		t.Errorf("first Flush() = %q, want [a]", first)
	}
	if len(second) != 0 {
		t.Errorf("second Flush() = %q, want nothing", second)
	}
}
