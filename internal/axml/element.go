package axml

import (
	"golang.org/x/exp/errors/fmt"

	"apkdebug/internal/apkerr"
)

// element is satisfied by every chunk that can appear in the element
// stream: start/end namespace, start/end element, and cdata.
type element interface {
	encode() []byte
}

type nodeHeader struct {
	lineNumber int32
	commentIdx int32
}

func decodeNodeHeader(header []byte) (nodeHeader, error) {
	c := newCursor(header)
	line, err := c.i32()
	if err != nil {
		return nodeHeader{}, err
	}
	comment, err := c.i32()
	if err != nil {
		return nodeHeader{}, err
	}
	return nodeHeader{lineNumber: line, commentIdx: comment}, nil
}

func (h nodeHeader) encode(w *writer) {
	w.i32(h.lineNumber)
	w.i32(h.commentIdx)
}

type startNamespace struct {
	nodeHeader
	prefixIdx int32
	uriIdx    int32
}

func decodeStartNamespace(header, data []byte) (*startNamespace, error) {
	h, err := decodeNodeHeader(header)
	if err != nil {
		return nil, err
	}
	c := newCursor(data)
	prefix, err := c.i32()
	if err != nil {
		return nil, err
	}
	uri, err := c.i32()
	if err != nil {
		return nil, err
	}
	return &startNamespace{nodeHeader: h, prefixIdx: prefix, uriIdx: uri}, nil
}

func (n *startNamespace) encode() []byte {
	h := &writer{}
	n.nodeHeader.encode(h)
	d := &writer{}
	d.i32(n.prefixIdx)
	d.i32(n.uriIdx)
	return encodeChunk(chunkStartNS, h.buf, d.buf)
}

type endNamespace struct {
	nodeHeader
	prefixIdx int32
	uriIdx    int32
}

func decodeEndNamespace(header, data []byte) (*endNamespace, error) {
	h, err := decodeNodeHeader(header)
	if err != nil {
		return nil, err
	}
	c := newCursor(data)
	prefix, err := c.i32()
	if err != nil {
		return nil, err
	}
	uri, err := c.i32()
	if err != nil {
		return nil, err
	}
	return &endNamespace{nodeHeader: h, prefixIdx: prefix, uriIdx: uri}, nil
}

func (n *endNamespace) encode() []byte {
	h := &writer{}
	n.nodeHeader.encode(h)
	d := &writer{}
	d.i32(n.prefixIdx)
	d.i32(n.uriIdx)
	return encodeChunk(chunkEndNS, h.buf, d.buf)
}

// attribute is the spec's attribute record: (namespace, name, raw
// value, type tag, data word). rawValueIdx is -1 when the value is
// not a plain string (e.g. a boolean or integer literal).
type attribute struct {
	namespaceIdx int32
	nameIdx      int32
	rawValueIdx  int32
	val          value

	// dataWordOffset is the absolute byte offset of this attribute's
	// 4-byte data word in the buffer it was parsed from. Populated
	// only by decode, used only by the in-place debuggable patch.
	dataWordOffset int
}

func decodeAttribute(c *cursor) (attribute, error) {
	ns, err := c.i32()
	if err != nil {
		return attribute{}, err
	}
	name, err := c.i32()
	if err != nil {
		return attribute{}, err
	}
	raw, err := c.i32()
	if err != nil {
		return attribute{}, err
	}
	valStart := c.pos
	v, err := decodeValue(c)
	if err != nil {
		return attribute{}, err
	}
	return attribute{
		namespaceIdx:   ns,
		nameIdx:        name,
		rawValueIdx:    raw,
		val:            v,
		dataWordOffset: valStart + 4, // size(2)+res0(1)+type(1) precede the data word
	}, nil
}

func (a attribute) encode(w *writer) {
	w.i32(a.namespaceIdx)
	w.i32(a.nameIdx)
	w.i32(a.rawValueIdx)
	a.val.encode(w)
}

type startElement struct {
	nodeHeader
	namespaceIdx int32
	nameIdx      int32
	idIndex      uint16
	classIndex   uint16
	styleIndex   uint16
	attributes   []attribute

	// chunkStart is the absolute offset of this chunk's header in the
	// buffer it was parsed from.
	chunkStart int
}

func decodeStartElement(header, data []byte, chunkStart, dataAbsOffset int) (*startElement, error) {
	h, err := decodeNodeHeader(header)
	if err != nil {
		return nil, err
	}
	c := newCursor(data)
	ns, err := c.i32()
	if err != nil {
		return nil, err
	}
	name, err := c.i32()
	if err != nil {
		return nil, err
	}
	attrStart, err := c.u16()
	if err != nil {
		return nil, err
	}
	attrSize, err := c.u16()
	if err != nil {
		return nil, err
	}
	if attrSize != attributeRecordSize {
		return nil, fmt.Errorf("axml: unsupported attribute record size %d: %w", attrSize, apkerr.TruncatedChunk)
	}
	attrCount, err := c.u16()
	if err != nil {
		return nil, err
	}
	idIndex, err := c.u16()
	if err != nil {
		return nil, err
	}
	classIndex, err := c.u16()
	if err != nil {
		return nil, err
	}
	styleIndex, err := c.u16()
	if err != nil {
		return nil, err
	}

	attrs := make([]attribute, attrCount)
	ac := newCursor(data[attrStart:])
	for i := range attrs {
		a, err := decodeAttribute(ac)
		if err != nil {
			return nil, err
		}
		// decodeAttribute computed dataWordOffset relative to ac's own
		// buffer (data[attrStart:]); translate it to an absolute file offset.
		a.dataWordOffset += dataAbsOffset + int(attrStart)
		attrs[i] = a
	}

	return &startElement{
		nodeHeader:   h,
		namespaceIdx: ns,
		nameIdx:      name,
		idIndex:      idIndex,
		classIndex:   classIndex,
		styleIndex:   styleIndex,
		attributes:   attrs,
		chunkStart:   chunkStart,
	}, nil
}

func (e *startElement) attributeByResourceID(rm *resourceMap, id uint32) (*attribute, bool) {
	idx, ok := rm.indexOf(id)
	if !ok {
		return nil, false
	}
	for i := range e.attributes {
		if int(e.attributes[i].nameIdx) == idx {
			return &e.attributes[i], true
		}
	}
	return nil, false
}

func (e *startElement) encode() []byte {
	h := &writer{}
	e.nodeHeader.encode(h)
	d := &writer{}
	d.i32(e.namespaceIdx)
	d.i32(e.nameIdx)
	d.u16(startElementFixed)
	d.u16(attributeRecordSize)
	d.u16(uint16(len(e.attributes)))
	d.u16(e.idIndex)
	d.u16(e.classIndex)
	d.u16(e.styleIndex)
	for _, a := range e.attributes {
		a.encode(d)
	}
	return encodeChunk(chunkStartElement, h.buf, d.buf)
}

type endElement struct {
	nodeHeader
	namespaceIdx int32
	nameIdx      int32
}

func decodeEndElement(header, data []byte) (*endElement, error) {
	h, err := decodeNodeHeader(header)
	if err != nil {
		return nil, err
	}
	c := newCursor(data)
	ns, err := c.i32()
	if err != nil {
		return nil, err
	}
	name, err := c.i32()
	if err != nil {
		return nil, err
	}
	return &endElement{nodeHeader: h, namespaceIdx: ns, nameIdx: name}, nil
}

func (e *endElement) encode() []byte {
	h := &writer{}
	e.nodeHeader.encode(h)
	d := &writer{}
	d.i32(e.namespaceIdx)
	d.i32(e.nameIdx)
	return encodeChunk(chunkEndElement, h.buf, d.buf)
}

type cdata struct {
	nodeHeader
	dataIdx int32
	val     value
}

func decodeCData(header, data []byte) (*cdata, error) {
	h, err := decodeNodeHeader(header)
	if err != nil {
		return nil, err
	}
	c := newCursor(data)
	idx, err := c.i32()
	if err != nil {
		return nil, err
	}
	v, err := decodeValue(c)
	if err != nil {
		return nil, err
	}
	return &cdata{nodeHeader: h, dataIdx: idx, val: v}, nil
}

func (c *cdata) encode() []byte {
	h := &writer{}
	c.nodeHeader.encode(h)
	d := &writer{}
	d.i32(c.dataIdx)
	c.val.encode(d)
	return encodeChunk(chunkCData, h.buf, d.buf)
}

// rawChunk preserves an unrecognized chunk's exact bytes, so that the
// round-trip invariant (parse then re-encode yields the same buffer)
// holds even for chunk types this codec does not interpret.
type rawChunk struct {
	data []byte
}

func (r *rawChunk) encode() []byte { return r.data }
