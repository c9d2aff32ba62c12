package axml

// resourceMap is the resource-identifier table: ids[i] is the
// attribute resource id for strings[i], for the prefix of strings that
// are attribute names. It carries no chunk-specific header fields.
type resourceMap struct {
	ids []uint32
}

func decodeResourceMap(data []byte) (*resourceMap, error) {
	c := newCursor(data)
	var ids []uint32
	for c.pos < len(data) {
		id, err := c.u32()
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return &resourceMap{ids: ids}, nil
}

func (rm *resourceMap) indexOf(id uint32) (int, bool) {
	for i, v := range rm.ids {
		if v == id {
			return i, true
		}
	}
	return -1, false
}

// insertAt inserts id as the new entry at index, shifting later entries on.
func (rm *resourceMap) insertAt(index int, id uint32) {
	rm.ids = append(rm.ids[:index:index], append([]uint32{id}, rm.ids[index:]...)...)
}

func (rm *resourceMap) encode() []byte {
	data := &writer{}
	for _, id := range rm.ids {
		data.u32(id)
	}
	return encodeChunk(chunkResourceMap, nil, data.buf)
}
