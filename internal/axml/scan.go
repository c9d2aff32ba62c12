package axml

import "bytes"

// ScanAndPatch is the fallback path used only when Parse fails on a
// manifest entry the pipeline otherwise cannot make sense of. It
// does not understand chunk structure; it looks for the UTF-16LE
// encoding of "debuggable" in the string pool region and, if the
// fixed-size value that should follow it already looks like a false
// boolean (data word 0x00000000), flips it to true in place.
//
// This is a heuristic of last resort: it cannot add the attribute if
// it is absent, and a caller using it must treat the result as
// best-effort, not as confirmation that debuggable is actually set.
func ScanAndPatch(buf []byte) (patched []byte, applied bool) {
	needle := utf16LE("debuggable")
	idx := bytes.Index(buf, needle)
	if idx < 0 {
		return buf, false
	}

	// The boolean value record trails the name string somewhere ahead
	// of it in the attribute stream; scan forward for the first 8-byte
	// Res_value record whose type tag is typeIntBoolean and whose data
	// word is the "false" sentinel, within a bounded window.
	const window = 256
	end := idx + window
	if end > len(buf) {
		end = len(buf)
	}
	for i := idx; i+8 <= end; i++ {
		if buf[i] == 8 && buf[i+1] == 0 && buf[i+3] == typeIntBoolean &&
			buf[i+4] == 0 && buf[i+5] == 0 && buf[i+6] == 0 && buf[i+7] == 0 {
			out := append([]byte(nil), buf...)
			out[i+4], out[i+5], out[i+6], out[i+7] = 0xFF, 0xFF, 0xFF, 0xFF
			return out, true
		}
	}
	return buf, false
}

func utf16LE(s string) []byte {
	out := make([]byte, 0, len(s)*2)
	for _, r := range s {
		out = append(out, byte(r), byte(r>>8))
	}
	return out
}
