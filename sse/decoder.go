// Package sse frames a streamed text/event-stream body into event payloads.
//
// The decoder only does framing: it splits the byte stream into lines, keeps
// the trailing partial line buffered between chunks, and yields the payload of
// every "data:" line. Interpreting the payload is left to the protocol package.
//
// # Usage
//
//	dec := sse.NewDecoder()
//	for {
//	    n, err := body.Read(buf)
//	    for payload := range dec.Feed(buf[:n]) {
//	        handle(payload)
//	    }
//	    if err != nil {
//	        break
//	    }
//	}
//	for payload := range dec.Flush() {
//	    handle(payload)
//	}
package sse

import (
	"bytes"
	"iter"
)

// DataPrefix marks a line that carries an event payload.
const DataPrefix = "data:"

// Decoder turns arbitrary-sized chunks into complete event payloads.
// A Decoder is not safe for concurrent use; one stream owns one decoder.
type Decoder struct {
	buf []byte
}

// NewDecoder creates a decoder with an empty line buffer
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Feed appends chunk to the buffered tail and yields the payload of every
// complete data line. The last, possibly incomplete, line stays buffered.
//
// Decoding works on raw bytes: '\n' never appears inside a multi-byte UTF-8
// sequence, so a code point split across chunks is reassembled untouched.
func (d *Decoder) Feed(chunk []byte) iter.Seq[string] {
	d.buf = append(d.buf, chunk...)

	return func(yield func(string) bool) {
		for {
			idx := bytes.IndexByte(d.buf, '\n')
			if idx < 0 {
				return
			}

			line := d.buf[:idx]
			d.buf = d.buf[idx+1:]

			payload, ok := parseLine(line)
			if !ok {
				continue
			}
			if !yield(payload) {
				return
			}
		}
	}
}

// Flush yields the buffered tail if it forms a data line and resets the
// decoder. Call it once the transport reports end of stream.
func (d *Decoder) Flush() iter.Seq[string] {
	tail := d.buf
	d.buf = nil

	return func(yield func(string) bool) {
		if len(tail) == 0 {
			return
		}
		if payload, ok := parseLine(tail); ok {
			yield(payload)
		}
	}
}

// Buffered reports how many bytes are waiting for a line terminator
func (d *Decoder) Buffered() int {
	return len(d.buf)
}

func parseLine(line []byte) (string, bool) {
	line = bytes.TrimSuffix(line, []byte("\r"))
	if !bytes.HasPrefix(line, []byte(DataPrefix)) {
		return "", false
	}

	payload := line[len(DataPrefix):]
	// A single space after the colon belongs to the framing, not the payload
	payload = bytes.TrimPrefix(payload, []byte(" "))

	return string(payload), true
}
