// Package protocol implements the wire format spoken on chat connections:
// one JSON object per frame, each frame terminated by a single '\n'.
package protocol

import (
	"bufio"
	"bytes"
	"chat-hub/errors"
	stderrors "errors"
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"
)

const (
	Delimiter           = '\n'
	DefaultMaxFrameSize = 64 * 1024
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Encode serializes v as a single frame, delimiter included.
// JSON string encoding escapes control characters, so the delimiter
// never appears inside a frame.
func Encode(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrMalformedFrame, err)
	}
	return append(data, Delimiter), nil
}

// Decoder splits a byte stream into frames.
// Records may span several reads and one read may carry several records.
// Empty lines and lines that are not valid JSON are skipped silently.
type Decoder struct {
	reader       *bufio.Reader
	maxFrameSize int
	dropped      int
}

func NewDecoder(r io.Reader, maxFrameSize int) *Decoder {
	if maxFrameSize <= 0 {
		maxFrameSize = DefaultMaxFrameSize
	}
	// One extra byte for the delimiter itself.
	return &Decoder{
		reader:       bufio.NewReaderSize(r, maxFrameSize+1),
		maxFrameSize: maxFrameSize,
	}
}

// Next returns the next valid frame without its delimiter.
// It returns ErrFrameTooLarge when a record grows past the configured size,
// and the reader's error (io.EOF included) once the stream ends. A trailing
// record with no delimiter is never delivered.
func (d *Decoder) Next() ([]byte, error) {
	for {
		line, err := d.reader.ReadSlice(Delimiter)
		if err != nil {
			if stderrors.Is(err, bufio.ErrBufferFull) {
				return nil, fmt.Errorf("%w: limit is %d bytes", errors.ErrFrameTooLarge, d.maxFrameSize)
			}
			return nil, err
		}

		frame := bytes.TrimSuffix(line, []byte{Delimiter})
		if len(frame) == 0 {
			continue
		}
		if !json.Valid(frame) {
			d.dropped++
			continue
		}

		// ReadSlice hands out the internal buffer, which the next read overwrites.
		out := make([]byte, len(frame))
		copy(out, frame)
		return out, nil
	}
}

// Dropped reports how many malformed frames were skipped so far.
func (d *Decoder) Dropped() int {
	return d.dropped
}
