// Package parcel implements the transfer buffer that generated marshalling
// code writes to and reads from.
//
// Every value occupies a whole number of 4-byte units, little endian:
// int, float and byte take one unit, long and double two. Strings and byte
// arrays are an int length (-1 for null) followed by their bytes padded to a
// unit boundary.
package parcel

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/kanengo/parcelgen/internal/umath"
	"github.com/kanengo/parcelgen/runtime/pool"
)

// Unit is the size in bytes of the smallest write.
const Unit = 4

type parcelError struct {
	err error
}

func (e parcelError) Error() string {
	if e.err == nil {
		return "parcel:"
	}
	return "parcel: " + e.err.Error()
}

func (e parcelError) Unwrap() error { return e.err }

func makeParcelError(format string, args ...any) parcelError {
	return parcelError{err: fmt.Errorf(format, args...)}
}

// CatchPanics converts a recovered parcel panic into an error. Any other
// panic is re-raised.
//
//	defer func() { err = parcel.CatchPanics(recover()) }()
func CatchPanics(r any) error {
	if r == nil {
		return nil
	}
	err, ok := r.(error)
	if !ok {
		panic(r)
	}
	if errors.As(err, &parcelError{}) {
		return err
	}
	panic(r)
}

// Parcel is a growable buffer with a single read/write position. Writes
// append at the position; reads consume from it. Read past the end panics
// with an error recognized by CatchPanics.
type Parcel struct {
	buf    []byte
	pos    int
	pooled bool
}

// New returns an empty parcel with room for size bytes.
func New(size ...int) *Parcel {
	n := 128
	if len(size) > 0 {
		n = umath.FindNearestPow2(size[0])
	}
	return &Parcel{buf: make([]byte, 0, n)}
}

// Obtain returns an empty parcel backed by a pooled buffer. Call Recycle
// when done.
func Obtain() *Parcel {
	return &Parcel{buf: *pool.GetBytes(256), pooled: true}
}

// Recycle releases a pooled buffer. The parcel must not be used afterwards.
func (p *Parcel) Recycle() {
	if p.pooled {
		_ = pool.PutBytes(p.buf)
	}
	p.buf, p.pos, p.pooled = nil, 0, false
}

// FromBytes returns a parcel positioned at the start of data.
func FromBytes(data []byte) *Parcel {
	return &Parcel{buf: data}
}

// Marshall returns a copy of the parcel contents.
func (p *Parcel) Marshall() []byte {
	return append([]byte(nil), p.buf...)
}

func (p *Parcel) DataSize() int { return len(p.buf) }
func (p *Parcel) DataPosition() int { return p.pos }
func (p *Parcel) DataAvail() int { return len(p.buf) - p.pos }

// SetDataPosition moves the read/write position.
func (p *Parcel) SetDataPosition(pos int) {
	if pos < 0 || pos > len(p.buf) {
		panic(makeParcelError("position %d out of range [0, %d]", pos, len(p.buf)))
	}
	p.pos = pos
}

// reserve makes room for n bytes at the position and returns them.
func (p *Parcel) reserve(n int) []byte {
	end := p.pos + n
	if end > cap(p.buf) {
		buf := make([]byte, len(p.buf), umath.FindNearestPow2(end))
		copy(buf, p.buf)
		if p.pooled {
			_ = pool.PutBytes(p.buf)
			p.pooled = false
		}
		p.buf = buf
	}
	if end > len(p.buf) {
		p.buf = p.buf[:end]
	}
	b := p.buf[p.pos:end]
	p.pos = end
	return b
}

// consume returns the next n bytes.
func (p *Parcel) consume(n int) []byte {
	if n < 0 || p.DataAvail() < n {
		panic(makeParcelError("not enough data: need %d bytes at %d, have %d", n, p.pos, p.DataAvail()))
	}
	b := p.buf[p.pos : p.pos+n]
	p.pos += n
	return b
}

func (p *Parcel) WriteInt(v int32) {
	binary.LittleEndian.PutUint32(p.reserve(Unit), uint32(v))
}

func (p *Parcel) WriteLong(v int64) {
	binary.LittleEndian.PutUint64(p.reserve(2*Unit), uint64(v))
}

func (p *Parcel) WriteFloat(v float32) {
	binary.LittleEndian.PutUint32(p.reserve(Unit), math.Float32bits(v))
}

func (p *Parcel) WriteDouble(v float64) {
	binary.LittleEndian.PutUint64(p.reserve(2*Unit), math.Float64bits(v))
}

// WriteInt8 writes a byte in one unit.
func (p *Parcel) WriteInt8(v int8) {
	p.WriteInt(int32(v))
}

// WriteString writes a non-null string.
func (p *Parcel) WriteString(s string) {
	p.writeBlob(len(s), func(b []byte) { copy(b, s) })
}

// WriteNullString writes the null string marker.
func (p *Parcel) WriteNullString() {
	p.WriteInt(-1)
}

// WriteByteArray writes b; a nil slice is written as null.
func (p *Parcel) WriteByteArray(b []byte) {
	if b == nil {
		p.WriteInt(-1)
		return
	}
	p.writeBlob(len(b), func(dst []byte) { copy(dst, b) })
}

func (p *Parcel) writeBlob(n int, fill func([]byte)) {
	if n > math.MaxInt32 {
		panic(makeParcelError("unable to encode %d bytes; length doesn't fit in 4 bytes", n))
	}
	p.WriteInt(int32(n))
	dst := p.reserve(umath.AlignUp(n, Unit))
	fill(dst)
	clear(dst[n:])
}

func (p *Parcel) ReadInt() int32 {
	return int32(binary.LittleEndian.Uint32(p.consume(Unit)))
}

func (p *Parcel) ReadLong() int64 {
	return int64(binary.LittleEndian.Uint64(p.consume(2 * Unit)))
}

func (p *Parcel) ReadFloat() float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(p.consume(Unit)))
}

func (p *Parcel) ReadDouble() float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(p.consume(2 * Unit)))
}

func (p *Parcel) ReadInt8() int8 {
	return int8(p.ReadInt())
}

// ReadString returns the next string; ok is false for null.
func (p *Parcel) ReadString() (s string, ok bool) {
	b := p.readBlob()
	if b == nil {
		return "", false
	}
	return string(b), true
}

// ReadByteArray returns the next byte array, nil for null.
func (p *Parcel) ReadByteArray() []byte {
	b := p.readBlob()
	if b == nil {
		return nil
	}
	return append(make([]byte, 0, len(b)), b...)
}

func (p *Parcel) readBlob() []byte {
	n := p.ReadInt()
	if n < 0 {
		return nil
	}
	b := p.consume(umath.AlignUp(int(n), Unit))
	return b[:n:n]
}
