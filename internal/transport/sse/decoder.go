// Package sse decodes the text event stream produced by the answer backend.
package sse

import "bytes"

// DataPrefix marks a payload line inside a frame.
const DataPrefix = "data:"

// MaxFrameSize bounds one frame, delimiter excluded. Larger frames are
// dropped whole and counted, however the stream was chunked.
const MaxFrameSize = 1 << 20

// skipTail is how much of an oversized frame is kept while skipping it:
// enough to match a delimiter split across reads ("\n\r" + "\n").
const skipTail = 2

var (
	frameDelimiter = []byte("\n\n")
	crlf           = []byte("\r\n")
	lf             = []byte("\n")
	dataPrefix     = []byte(DataPrefix)
)

// Decoder splits a chunked byte stream into raw frame payloads.
// A Decoder is owned by a single stream and is not safe for concurrent use.
type Decoder struct {
	buf      []byte
	skipping bool
	dropped  int
}

// NewDecoder creates an empty decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Feed appends chunk and returns the payloads of every frame now fully delimited.
// The trailing incomplete segment is retained for the next call.
func (d *Decoder) Feed(chunk []byte) []string {
	if len(chunk) == 0 {
		return nil
	}
	d.buf = append(d.buf, chunk...)
	// A lone '\r' at the end stays in place and pairs with a '\n' from the next chunk.
	if bytes.Contains(d.buf, crlf) {
		d.buf = bytes.ReplaceAll(d.buf, crlf, lf)
	}

	var frames []string
	for {
		idx := bytes.Index(d.buf, frameDelimiter)
		if idx < 0 {
			break
		}
		switch {
		case d.skipping:
			d.skipping = false
		case idx > MaxFrameSize:
			d.dropped++
		default:
			if payload, ok := extractPayload(d.buf[:idx]); ok {
				frames = append(frames, payload)
			}
		}
		d.buf = d.buf[idx+len(frameDelimiter):]
	}

	// Trailing line breaks may still turn out to be the delimiter, so they do not count yet.
	if !d.skipping && len(bytes.TrimRight(d.buf, "\r\n")) > MaxFrameSize {
		d.skipping = true
		d.dropped++
	}
	if d.skipping && len(d.buf) > skipTail {
		d.buf = d.buf[len(d.buf)-skipTail:]
	}
	d.buf = append([]byte(nil), d.buf...)
	return frames
}

// Flush returns the retained tail as a final frame if it carries a data line.
// It is meant to be called once, after the transport reports end of stream.
func (d *Decoder) Flush() (string, bool) {
	tail := bytes.TrimLeft(d.buf, "\n")
	d.buf = nil
	if d.skipping {
		d.skipping = false
		return "", false
	}
	if !bytes.HasPrefix(tail, dataPrefix) {
		return "", false
	}
	return extractPayload(bytes.TrimRight(tail, "\r\n"))
}

// Buffered returns the number of bytes held for the next frame.
func (d *Decoder) Buffered() int { return len(d.buf) }

// Dropped returns how many oversized frames were discarded so far.
func (d *Decoder) Dropped() int { return d.dropped }

// extractPayload joins the data lines of one frame. Other lines (comments,
// event:, id:, retry:) are discarded.
func extractPayload(segment []byte) (string, bool) {
	var parts [][]byte
	for _, line := range bytes.Split(segment, lf) {
		if !bytes.HasPrefix(line, dataPrefix) {
			continue
		}
		data := line[len(dataPrefix):]
		if len(data) > 0 && data[0] == ' ' {
			data = data[1:]
		}
		parts = append(parts, data)
	}
	if len(parts) == 0 {
		return "", false
	}
	return string(bytes.Join(parts, lf)), true
}
