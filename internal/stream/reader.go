// Package stream reads little-endian binary data from an in-memory buffer.
//
// Every read is bounds-checked. The first out-of-range access records an
// *Error and every later read returns zero, so a loader can decode a whole
// table and check Err once.
package stream

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ErrMalformed is matched by every error the Reader produces.
var ErrMalformed = errors.New("malformed input")

// Error describes an access outside the buffer.
type Error struct {
	Op     string
	Offset int64
	Size   int64
	Len    int
}

func (e *Error) Error() string {
	return fmt.Sprintf("stream: %s of %d bytes at offset %d exceeds buffer length %d",
		e.Op, e.Size, e.Offset, e.Len)
}

func (e *Error) Is(target error) bool { return target == ErrMalformed }

type Reader struct {
	data []byte
	off  int
	err  error
}

func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Err returns the first failure, or nil.
func (r *Reader) Err() error { return r.err }

func (r *Reader) Len() int { return len(r.data) }

func (r *Reader) Pos() int { return r.off }

func (r *Reader) fail(op string, off, size int64) {
	if r.err == nil {
		r.err = &Error{Op: op, Offset: off, Size: size, Len: len(r.data)}
	}
}

// take returns the next n bytes or nil after recording a failure.
func (r *Reader) take(op string, n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.off+n > len(r.data) {
		r.fail(op, int64(r.off), int64(n))
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

// Seek moves to an absolute offset. off == Len() is valid (end of buffer).
func (r *Reader) Seek(off int64) bool {
	if r.err != nil {
		return false
	}
	if off < 0 || off > int64(len(r.data)) {
		r.fail("seek", off, 0)
		return false
	}
	r.off = int(off)
	return true
}

// SeekTable seeks to off and checks that count records of size bytes fit
// before the end of the buffer. Call it before allocating from a count
// read out of the file.
func (r *Reader) SeekTable(off, count, size uint32) bool {
	total := uint64(count) * uint64(size)
	if r.err != nil {
		return false
	}
	if uint64(off)+total > uint64(len(r.data)) {
		r.fail("table", int64(off), int64(min(total, math.MaxInt64)))
		return false
	}
	return r.Seek(int64(off))
}

func (r *Reader) ReadU8() uint8 {
	b := r.take("read u8", 1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *Reader) ReadU16() uint16 {
	b := r.take("read u16", 2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (r *Reader) ReadI16() int16 {
	return int16(r.ReadU16())
}

func (r *Reader) ReadU32() uint32 {
	b := r.take("read u32", 4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *Reader) ReadI32() int32 {
	return int32(r.ReadU32())
}

func (r *Reader) ReadFloat() float32 {
	return math.Float32frombits(r.ReadU32())
}

// ReadFloats fills dst with consecutive float32 values.
func (r *Reader) ReadFloats(dst []float32) {
	for i := range dst {
		dst[i] = r.ReadFloat()
	}
}

// ReadBytes returns the next n bytes. The slice aliases the buffer.
func (r *Reader) ReadBytes(n int) []byte {
	return r.take("read bytes", n)
}

// ReadName reads a u32 offset and resolves it against a NUL-terminated
// string pool.
func (r *Reader) ReadName(pool []byte) string {
	off := r.ReadU32()
	if r.err != nil {
		return ""
	}
	s, err := Name(pool, off)
	if err != nil {
		r.err = err
	}
	return s
}

// Name returns the NUL-terminated string starting at off in pool.
// A string running to the end of the pool is cut there.
func Name(pool []byte, off uint32) (string, error) {
	if int64(off) >= int64(len(pool)) {
		return "", &Error{Op: "name", Offset: int64(off), Size: 1, Len: len(pool)}
	}
	s := pool[off:]
	for i, b := range s {
		if b == 0 {
			return string(s[:i]), nil
		}
	}
	return string(s), nil
}
