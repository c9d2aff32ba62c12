package axml

import "apkdebug/internal/apkerr"

// value is the 8-byte Res_value struct: a size/res0 header fixed at
// 8/0, a one-byte type tag, and a 4-byte data word interpreted per tag
// (spec's "attribute record" data word: boolean 0/-1, string/raw-value
// pool index, or a plain integer).
type value struct {
	dataType uint8
	data     uint32
}

func boolValue(b bool) value {
	if b {
		return value{dataType: typeIntBoolean, data: 0xFFFFFFFF}
	}
	return value{dataType: typeIntBoolean, data: 0}
}

func intValue(i int32) value {
	return value{dataType: typeIntDec, data: uint32(i)}
}

func stringValue(poolIdx uint32) value {
	return value{dataType: typeString, data: poolIdx}
}

func (v value) isBoolean() bool { return v.dataType == typeIntBoolean }
func (v value) isString() bool  { return v.dataType == typeString }
func (v value) isInt() bool     { return v.dataType == typeIntDec || v.dataType == typeIntHex }

func (v value) boolResult() bool { return v.data != 0 }
func (v value) intResult() int32 { return int32(v.data) }

func decodeValue(c *cursor) (value, error) {
	size, err := c.u16()
	if err != nil {
		return value{}, err
	}
	if size != 8 {
		return value{}, apkerr.TruncatedChunk
	}
	packed, err := c.u16() // low byte is res0 (must be 0), high byte is the type tag
	if err != nil {
		return value{}, err
	}
	dataType := uint8(packed >> 8)
	data, err := c.u32()
	if err != nil {
		return value{}, err
	}
	return value{dataType: dataType, data: data}, nil
}

func (v value) encode(w *writer) {
	w.u16(8)
	w.u8(0)
	w.u8(v.dataType)
	w.u32(v.data)
}
