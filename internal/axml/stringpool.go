package axml

import (
	"unicode/utf16"
	"unicode/utf8"

	"apkdebug/internal/apkerr"
)

const (
	poolFlagSorted = 1 << 0
	poolFlagUTF8   = 1 << 8
)

// stringPool is the document's flat, indexed string table. Unlike a
// deduplicating pool, index i always denotes strings[i] directly —
// callers that need to insert a string in the middle (the structural
// debuggable rewrite) call insertAt, which shifts every later index.
type stringPool struct {
	strings []string
	utf8    bool
}

func decodeStringPool(header, data []byte) (*stringPool, error) {
	hc := newCursor(header)
	stringCount, err := hc.u32()
	if err != nil {
		return nil, err
	}
	styleCount, err := hc.u32()
	if err != nil {
		return nil, err
	}
	flags, err := hc.u32()
	if err != nil {
		return nil, err
	}
	stringsStart, err := hc.u32()
	if err != nil {
		return nil, err
	}
	if _, err := hc.u32(); err != nil { // stylesStart, unused: styles are never emitted by this codec
		return nil, err
	}
	if styleCount > 0 {
		return nil, apkerr.TruncatedChunk // style spans are not supported by this codec
	}

	dc := newCursor(data)
	indices := make([]uint32, stringCount)
	for i := range indices {
		v, err := dc.u32()
		if err != nil {
			return nil, err
		}
		indices[i] = v
	}

	// stringsStart is measured from the start of the chunk (generic
	// 8-byte header + this chunk's own 20-byte header); data already
	// begins right after that header, so the offset into `data` is
	// stringsStart - len(header) - 8.
	base := int(stringsStart) - len(header) - 8
	useUTF8 := flags&poolFlagUTF8 != 0

	sp := &stringPool{utf8: useUTF8, strings: make([]string, stringCount)}
	for i, idx := range indices {
		off := base + int(idx)
		if off < 0 || off > len(data) {
			return nil, apkerr.StringIndexOutOfRange
		}
		s, _, err := decodePoolString(data[off:], useUTF8)
		if err != nil {
			return nil, err
		}
		sp.strings[i] = s
	}
	return sp, nil
}

func decodeLength(buf []byte, pos int, wide bool) (length, consumed int, err error) {
	if wide {
		if pos+2 > len(buf) {
			return 0, 0, apkerr.TruncatedChunk
		}
		u0 := int(buf[pos]) | int(buf[pos+1])<<8
		if u0&0x8000 != 0 {
			if pos+4 > len(buf) {
				return 0, 0, apkerr.TruncatedChunk
			}
			u1 := int(buf[pos+2]) | int(buf[pos+3])<<8
			return (u0&0x7fff)<<16 | u1, 4, nil
		}
		return u0, 2, nil
	}
	if pos+1 > len(buf) {
		return 0, 0, apkerr.TruncatedChunk
	}
	b0 := int(buf[pos])
	if b0&0x80 != 0 {
		if pos+2 > len(buf) {
			return 0, 0, apkerr.TruncatedChunk
		}
		b1 := int(buf[pos+1])
		return (b0&0x7f)<<8 | b1, 2, nil
	}
	return b0, 1, nil
}

// decodePoolString decodes one length-prefixed pool string starting at
// buf[0], returning the string and the number of bytes it occupied
// (length prefix + payload + trailing NUL).
func decodePoolString(buf []byte, useUTF8 bool) (string, int, error) {
	if useUTF8 {
		_, n1, err := decodeLength(buf, 0, false) // character count, unused
		if err != nil {
			return "", 0, err
		}
		byteLen, n2, err := decodeLength(buf, n1, false)
		if err != nil {
			return "", 0, err
		}
		start := n1 + n2
		if start+byteLen+1 > len(buf) {
			return "", 0, apkerr.TruncatedChunk
		}
		s := string(buf[start : start+byteLen])
		return s, start + byteLen + 1, nil
	}

	charLen, n1, err := decodeLength(buf, 0, true)
	if err != nil {
		return "", 0, err
	}
	start := n1
	byteLen := charLen * 2
	if start+byteLen+2 > len(buf) {
		return "", 0, apkerr.TruncatedChunk
	}
	units := make([]uint16, charLen)
	for i := range units {
		units[i] = uint16(buf[start+2*i]) | uint16(buf[start+2*i+1])<<8
	}
	s := string(utf16.Decode(units))
	return s, start + byteLen + 2, nil
}

// encodePoolString encodes one string using the pool's chosen encoding,
// including its length prefix(es) and trailing NUL.
func encodePoolString(s string, useUTF8 bool) []byte {
	if useUTF8 {
		charCount := utf8.RuneCountInString(s)
		b := []byte(s)
		out := append(encodeUTF8Length(charCount), encodeUTF8Length(len(b))...)
		out = append(out, b...)
		out = append(out, 0)
		return out
	}
	units := utf16.Encode([]rune(s))
	out := encodeUTF16Length(len(units))
	for _, u := range units {
		out = append(out, byte(u), byte(u>>8))
	}
	out = append(out, 0, 0)
	return out
}

func encodeUTF8Length(n int) []byte {
	if n < 0x80 {
		return []byte{byte(n)}
	}
	return []byte{byte(n>>8) | 0x80, byte(n)}
}

func encodeUTF16Length(n int) []byte {
	if n < 0x8000 {
		return []byte{byte(n), byte(n >> 8)}
	}
	u0 := uint16(n>>16)&0x7fff | 0x8000
	u1 := uint16(n)
	return []byte{byte(u0), byte(u0 >> 8), byte(u1), byte(u1 >> 8)}
}

// find returns the index of str in the pool, if present.
func (sp *stringPool) find(str string) (int, bool) {
	for i, s := range sp.strings {
		if s == str {
			return i, true
		}
	}
	return -1, false
}

// insertAt inserts str as the new element at index, shifting every
// string at or after index one position later. Callers that hold
// other pool indices (e.g. a resource-id table prefix-aligned with
// this pool) must shift their own indices in lockstep.
func (sp *stringPool) insertAt(index int, str string) {
	sp.strings = append(sp.strings[:index:index], append([]string{str}, sp.strings[index:]...)...)
}

func (sp *stringPool) encode() []byte {
	encoded := make([][]byte, len(sp.strings))
	for i, s := range sp.strings {
		encoded[i] = encodePoolString(s, sp.utf8)
	}

	indices := make([]byte, 0, 4*len(encoded))
	offset := 0
	var strData []byte
	for _, e := range encoded {
		indices = append(indices,
			byte(offset), byte(offset>>8), byte(offset>>16), byte(offset>>24))
		strData = append(strData, e...)
		offset += len(e)
	}
	if pad := (4 - len(strData)%4) % 4; pad != 0 {
		strData = append(strData, make([]byte, pad)...)
	}

	const chunkHeaderLen = 20 // stringCount, styleCount, flags, stringsStart, stylesStart
	stringsStart := 8 + chunkHeaderLen + len(indices)

	header := &writer{}
	header.u32(uint32(len(sp.strings)))
	header.u32(0) // styleCount: styles are never emitted
	flags := uint32(0)
	if sp.utf8 {
		flags |= poolFlagUTF8
	}
	header.u32(flags)
	header.u32(uint32(stringsStart))
	header.u32(0) // stylesStart

	data := &writer{}
	data.raw(indices)
	data.raw(strData)

	return encodeChunk(chunkStringPool, header.buf, data.buf)
}
