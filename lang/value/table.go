package value

// Table is an open-addressed hash table with linear probing and tombstoned
// deletion, keyed by interned-string identity (spec.md §4.5). It backs the
// VM's globals table, every class's method table, every instance's field
// table, and the heap's string-intern table.
//
// Table lives in package value, alongside ObjString and Value, rather than
// in its own package: its key type is *ObjString and its value type is
// Value, both native to this package, and a separate table package would
// import value for both while value's ObjClass/ObjInstance need a table type
// for their Methods/Fields fields — an import cycle. Collapsing the table
// algorithm into this package is the same resolution already applied to
// Chunk and OpCode; see DESIGN.md.
type Table struct {
	entries []entry
	count   int // number of live (non-tombstone) entries
}

type entry struct {
	key   *ObjString // nil means empty or tombstone
	value Value
	used  bool // true for both live entries and tombstones; false for never-used slots
}

const tableMaxLoad = 0.75

// NewTable returns an empty Table. The zero value is also usable directly.
func NewTable() *Table { return &Table{} }

// Count returns the number of live entries (tombstones and empty slots are
// not counted).
func (t *Table) Count() int { return t.count }

// Get returns the value for key and whether it was present.
func (t *Table) Get(key *ObjString) (Value, bool) {
	if len(t.entries) == 0 {
		return Nil, false
	}
	e := t.findEntry(t.entries, key)
	if e.key == nil {
		return Nil, false
	}
	return e.value, true
}

// Set inserts or updates key -> val. It returns true if this added a live
// entry where none existed before (a fresh slot or a tombstone reuse), as
// opposed to overwriting an already-live key.
func (t *Table) Set(key *ObjString, val Value) bool {
	if float64(t.count+1) > float64(len(t.entries))*tableMaxLoad {
		t.grow()
	}

	e := t.findEntry(t.entries, key)
	isNewKey := e.key == nil
	if isNewKey {
		// whether e was a never-used slot or a tombstone, it held no live
		// entry, so this insertion grows the live count by one
		t.count++
	}

	e.key = key
	e.value = val
	e.used = true
	return isNewKey
}

// Delete removes key, leaving a tombstone in its slot so later probe
// sequences through it remain intact. Returns whether key was present.
func (t *Table) Delete(key *ObjString) bool {
	if len(t.entries) == 0 {
		return false
	}
	e := t.findEntry(t.entries, key)
	if e.key == nil {
		return false
	}
	// tombstone: key=nil, value=true (a non-nil sentinel distinguishing it
	// from a never-used slot, per spec.md §4.5)
	e.key = nil
	e.value = True
	t.count--
	return true
}

// AddAll copies every entry of src into t (used by OP_INHERIT to copy a
// superclass's method table into a subclass's).
func (t *Table) AddAll(src *Table) {
	for _, e := range src.entries {
		if e.key != nil {
			t.Set(e.key, e.value)
		}
	}
}

// FindString looks up an interned string equal to chars without allocating
// an ObjString first, deduplicating on creation (spec.md §4.5). It compares
// by length, then hash, then bytes.
func (t *Table) FindString(chars string, hash uint32) *ObjString {
	if len(t.entries) == 0 {
		return nil
	}
	mask := uint32(len(t.entries) - 1)
	index := hash & mask
	for {
		e := &t.entries[index]
		if e.key == nil {
			if !e.used {
				return nil
			}
			// tombstone: keep probing
		} else if len(e.key.Chars) == len(chars) && e.key.Hash == hash && e.key.Chars == chars {
			return e.key
		}
		index = (index + 1) & mask
	}
}

// Keys returns every live key, in table (bucket) order. The collector calls
// it on every cycle to mark tables and to prune the intern table;
// sortedStringKeys sorts it for debug dumps.
func (t *Table) Keys() []*ObjString {
	keys := make([]*ObjString, 0, t.count)
	for _, e := range t.entries {
		if e.key != nil {
			keys = append(keys, e.key)
		}
	}
	return keys
}

func (t *Table) findEntry(entries []entry, key *ObjString) *entry {
	mask := uint32(len(entries) - 1)
	index := key.Hash & mask
	var tombstone *entry
	for {
		e := &entries[index]
		switch {
		case e.key == nil && !e.used:
			// empty, non-tombstone: insertion point is the first tombstone seen,
			// if any, else this slot
			if tombstone != nil {
				return tombstone
			}
			return e
		case e.key == nil && e.used:
			if tombstone == nil {
				tombstone = e
			}
		case e.key == key:
			return e
		}
		index = (index + 1) & mask
	}
}

func (t *Table) grow() {
	newCap := 8
	if len(t.entries) > 0 {
		newCap = len(t.entries) * 2
	}
	newEntries := make([]entry, newCap)

	// rehash: tombstones are dropped, count is rebuilt from live entries only
	t.count = 0
	for _, e := range t.entries {
		if e.key == nil {
			continue
		}
		dest := t.findEntry(newEntries, e.key)
		dest.key = e.key
		dest.value = e.value
		dest.used = true
		t.count++
	}
	t.entries = newEntries
}
