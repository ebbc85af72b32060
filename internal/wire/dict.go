package wire

// maxDictEntries caps the per-connection name dictionary. Entries are never
// evicted; once the cap is reached the codec falls back to literal name
// encoding for any name not already present (§4.1).
const maxDictEntries = 65535

// dictionary is the symmetric name table shared by an Encoder/Decoder pair
// over the lifetime of one connection. The encoder and decoder each keep
// their own instance but populate it identically (same names inserted in
// the same order), so an index assigned by one resolves to the same string
// on the other side.
type dictionary struct {
	names []string
	index map[string]uint16
}

func newDictionary() *dictionary {
	return &dictionary{index: make(map[string]uint16)}
}

// reset clears the table; called at the start of every new logical stream
// (a fresh connection, or an explicit protocol reset).
func (d *dictionary) reset() {
	d.names = d.names[:0]
	for k := range d.index {
		delete(d.index, k)
	}
}

// lookup returns the dictionary index for name and true if present.
func (d *dictionary) lookup(name string) (uint16, bool) {
	idx, ok := d.index[name]
	return idx, ok
}

// insert adds name to the table if there is room, returning the new index
// and true on success. When the table is full it is a no-op.
func (d *dictionary) insert(name string) (uint16, bool) {
	if len(d.names) >= maxDictEntries {
		return 0, false
	}
	idx := uint16(len(d.names))
	d.names = append(d.names, name)
	d.index[name] = idx
	return idx, true
}

// byIndex resolves a previously assigned index back to its name.
func (d *dictionary) byIndex(idx uint16) (string, bool) {
	if int(idx) >= len(d.names) {
		return "", false
	}
	return d.names[idx], true
}
