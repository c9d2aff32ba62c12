package axml

import (
	"encoding/binary"

	"apkdebug/internal/apkerr"
)

// cursor reads little-endian fields from a byte slice while tracking
// the offset of every read within that slice, so callers that need to
// patch a specific field in place (the in-place debuggable rewrite) can
// translate it to where that field landed in the original buffer.
type cursor struct {
	buf []byte
	pos int
}

func newCursor(buf []byte) *cursor { return &cursor{buf: buf} }

func (c *cursor) need(n int) error {
	if c.pos+n > len(c.buf) {
		return apkerr.TruncatedChunk
	}
	return nil
}

func (c *cursor) u16() (uint16, error) {
	if err := c.need(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(c.buf[c.pos:])
	c.pos += 2
	return v, nil
}

func (c *cursor) u32() (uint32, error) {
	if err := c.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(c.buf[c.pos:])
	c.pos += 4
	return v, nil
}

func (c *cursor) i32() (int32, error) {
	v, err := c.u32()
	return int32(v), err
}

func (c *cursor) bytes(n int) ([]byte, error) {
	if err := c.need(n); err != nil {
		return nil, err
	}
	b := c.buf[c.pos : c.pos+n]
	c.pos += n
	return b, nil
}

// littleU32At patches the 4 bytes at the given absolute offset of buf
// in place, used for the in-place debuggable data-word rewrite.
func littleU32At(buf []byte, offset int, v uint32) {
	binary.LittleEndian.PutUint32(buf[offset:offset+4], v)
}

// writer accumulates little-endian fields; used by every chunk's encode method.
type writer struct {
	buf []byte
}

func (w *writer) u16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *writer) u32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *writer) i32(v int32) { w.u32(uint32(v)) }

func (w *writer) u8(v uint8) { w.buf = append(w.buf, v) }

func (w *writer) raw(b []byte) { w.buf = append(w.buf, b...) }

// encodeChunk wraps header and data bytes in the generic ResChunk_header
// framing, computing headerSize and the total chunk size from their lengths.
func encodeChunk(chunkType uint16, header, data []byte) []byte {
	w := &writer{}
	w.u16(chunkType)
	w.u16(uint16(8 + len(header)))
	w.u32(uint32(8 + len(header) + len(data)))
	w.raw(header)
	w.raw(data)
	return w.buf
}
