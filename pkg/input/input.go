// Package input turns raw list bytes into lines without holding the whole
// stream in memory.
package input

import (
	"bufio"
	"errors"
	"io"
)

// DefaultBufferSize is the read buffer used by NewLineReader.
const DefaultBufferSize = 64 * 1024

// LineReader yields '\n' delimited lines from a stream. '\r' is not stripped.
// A final line without a terminating '\n' is still yielded.
type LineReader struct {
	r     *bufio.Reader
	line  []byte
	carry []byte
	err   error
	done  bool
}

// NewLineReader creates a line reader with the default buffer size
func NewLineReader(r io.Reader) *LineReader {
	return NewLineReaderSize(r, DefaultBufferSize)
}

// NewLineReaderSize creates a line reader whose internal buffer holds at least size bytes.
// Lines longer than the buffer are stitched together from several reads.
func NewLineReaderSize(r io.Reader, size int) *LineReader {
	return &LineReader{r: bufio.NewReaderSize(r, size)}
}

// Scan advances to the next line
func (lr *LineReader) Scan() bool {
	if lr.done {
		return false
	}

	lr.carry = lr.carry[:0]
	for {
		chunk, err := lr.r.ReadSlice('\n')
		switch {
		case err == nil:
			chunk = chunk[:len(chunk)-1]
			if len(lr.carry) == 0 {
				lr.line = chunk
			} else {
				lr.carry = append(lr.carry, chunk...)
				lr.line = lr.carry
			}
			return true
		case errors.Is(err, bufio.ErrBufferFull):
			// Line straddles the buffer, keep what we have and read on.
			lr.carry = append(lr.carry, chunk...)
		case errors.Is(err, io.EOF):
			lr.done = true
			lr.carry = append(lr.carry, chunk...)
			if len(lr.carry) == 0 {
				return false
			}
			lr.line = lr.carry
			return true
		default:
			lr.done = true
			lr.err = err
			return false
		}
	}
}

// Bytes returns the current line. The slice is only valid until the next call to Scan.
func (lr *LineReader) Bytes() []byte {
	return lr.line
}

// Err returns the first non-EOF error encountered while reading
func (lr *LineReader) Err() error {
	return lr.err
}
