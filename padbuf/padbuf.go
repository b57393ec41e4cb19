// Package padbuf provides byte buffers with a fixed trailing padding
// margin. Vectorized parsers read input in fixed-size blocks and may
// touch bytes past the logical end of the data; a padded buffer
// guarantees those reads stay inside allocated memory.
package padbuf

import (
	"github.com/keithlinneman/padfetch/internal/xerrors"
)

// Padding is the number of allocated bytes past the logical end of a
// Buffer. Sized to a full vector register so block-wise readers never
// need a bounds check on the final block.
const Padding = 64

// ErrLimit is returned by Builder.Write when an append would push the
// logical length past the builder's configured limit.
var ErrLimit = xerrors.New("padbuf: size limit exceeded")

// Buffer is an immutable byte buffer whose backing allocation extends
// Padding bytes past its logical length. The padding bytes are zero.
type Buffer struct {
	// b has len == logical length, cap >= len + Padding
	b []byte
}

// New copies b into a freshly allocated padded Buffer.
func New(b []byte) *Buffer {
	p := make([]byte, len(b), len(b)+Padding)
	copy(p, b)
	return &Buffer{b: p}
}

// Bytes returns the logical content. Callers must not modify it.
func (p *Buffer) Bytes() []byte { return p.b }

// Len returns the logical content length in bytes.
func (p *Buffer) Len() int { return len(p.b) }

// Padded returns the full allocation: logical content followed by
// Padding zero bytes. This is the slice to hand to a block-wise reader.
func (p *Buffer) Padded() []byte { return p.b[:len(p.b)+Padding] }

// String returns the logical content as a string.
func (p *Buffer) String() string { return string(p.b) }

// Builder accumulates chunks and finalizes them into a padded Buffer.
// It implements io.Writer so a response body can be streamed straight
// into it; a failed Write aborts the surrounding copy, which is how an
// append failure propagates to the transport layer.
//
// A Builder is not safe for concurrent use. Build is terminal: the
// builder must not be written to afterwards.
type Builder struct {
	// Limit caps the logical size in bytes. Zero means unlimited.
	Limit int

	buf []byte
}

// Write appends b, growing the buffer as needed. It never performs a
// short write: the return is (len(b), nil) or (0, error).
func (bl *Builder) Write(b []byte) (int, error) {
	if bl.Limit > 0 && len(bl.buf)+len(b) > bl.Limit {
		return 0, xerrors.Wrapf(ErrLimit, "append of %d bytes at offset %d (limit %d)", len(b), len(bl.buf), bl.Limit)
	}
	bl.buf = append(bl.buf, b...)
	return len(b), nil
}

// Len returns the number of bytes appended so far.
func (bl *Builder) Len() int { return len(bl.buf) }

// Build finalizes the accumulated bytes into a padded Buffer. The
// builder's storage is reused when it already has room for the margin,
// so the builder must be discarded after Build.
func (bl *Builder) Build() *Buffer {
	n := len(bl.buf)
	if cap(bl.buf)-n < Padding {
		grown := make([]byte, n, n+Padding)
		copy(grown, bl.buf)
		bl.buf = grown
	}
	// zero the margin; append may have left stale bytes there
	pad := bl.buf[n : n+Padding]
	for i := range pad {
		pad[i] = 0
	}
	b := &Buffer{b: bl.buf[:n]}
	bl.buf = nil
	return b
}
