package woff

import "fmt"

// Font is the in-memory WOFF/sfnt font model: a flavor and version tag, an
// ordered set of tables, and optional metadata XML and private data. It
// mediates between Reader, Writer and callers.
type Font struct {
	Flavor       uint32
	MajorVersion uint16
	MinorVersion uint16

	tables     []Table
	byTag      map[string]int
	glyphOrder bool

	Metadata    []byte
	PrivateData []byte
}

// NewFont returns an empty font with no tables.
func NewFont(flavor uint32, majorVersion, minorVersion uint16) *Font {
	return &Font{
		Flavor:       flavor,
		MajorVersion: majorVersion,
		MinorVersion: minorVersion,
		byTag:        map[string]int{},
	}
}

// Tags returns tables in insertion (write) order. When the caller has
// opted into GlyphOrder (SetGlyphOrder), the pseudo-tag "GlyphOrder" is
// appended; it is never an on-disk table, and the writer filters it out
// before layout.
func (f *Font) Tags() []string {
	tags := make([]string, 0, len(f.tables)+1)
	for _, t := range f.tables {
		tags = append(tags, t.Tag)
	}
	if f.glyphOrder {
		tags = append(tags, "GlyphOrder")
	}
	return tags
}

// SetTableOrder reorders the tables in place to match order, which must be
// a permutation of the font's current tags (GlyphOrder excluded).
func (f *Font) SetTableOrder(order []string) error {
	if len(order) != len(f.tables) {
		return fmt.Errorf("SetTableOrder: expected %d tags, got %d", len(f.tables), len(order))
	}
	reordered := make([]Table, len(order))
	seen := make(map[string]bool, len(order))
	for i, tag := range order {
		idx, ok := f.byTag[tag]
		if !ok || seen[tag] {
			return fmt.Errorf("SetTableOrder: unknown or duplicate tag %q", tag)
		}
		seen[tag] = true
		reordered[i] = f.tables[idx]
	}
	f.tables = reordered
	f.reindex()
	return nil
}

// SetGlyphOrder toggles exposure of the GlyphOrder pseudo-tag from Tags().
func (f *Font) SetGlyphOrder(v bool) {
	f.glyphOrder = v
}

// GetTableBytes returns the uncompressed bytes of tag, if present.
func (f *Font) GetTableBytes(tag string) ([]byte, bool) {
	idx, ok := f.byTag[tag]
	if !ok {
		return nil, false
	}
	return f.tables[idx].Data, true
}

// SetTableBytes adds or replaces tag's uncompressed bytes.
func (f *Font) SetTableBytes(tag string, data []byte) {
	if idx, ok := f.byTag[tag]; ok {
		f.tables[idx].Data = data
		return
	}
	f.byTag[tag] = len(f.tables)
	f.tables = append(f.tables, Table{Tag: tag, Data: data})
}

// RemoveTable drops tag from the font, if present.
func (f *Font) RemoveTable(tag string) {
	idx, ok := f.byTag[tag]
	if !ok {
		return
	}
	f.tables = append(f.tables[:idx], f.tables[idx+1:]...)
	f.reindex()
}

// HasDSIG reports whether the font carries a DSIG table, which forces the
// writer into DsigRequiresFixedLayout mode: DSIG covers a specific byte
// layout, so reordering or recomputing head's checksum after the fact
// would invalidate any signature the table holds.
func (f *Font) HasDSIG() bool {
	_, ok := f.byTag["DSIG"]
	return ok
}

// SetMetadata sets the uncompressed metadata XML bytes.
func (f *Font) SetMetadata(b []byte) {
	f.Metadata = b
}

// SetMetadataTree sets the metadata from a parsed tree, serialising it
// immediately via SerializeMetadata (which always prepends the XML
// declaration, per §6).
func (f *Font) SetMetadataTree(tree *MetadataElement) {
	f.Metadata = SerializeMetadata(tree)
}

// MetadataTree parses the font's metadata bytes into a tree, or returns
// nil if the font carries no metadata.
func (f *Font) MetadataTree() (*MetadataElement, error) {
	if f.Metadata == nil {
		return nil, nil
	}
	return ParseMetadata(f.Metadata)
}

// SetPrivateData sets the opaque private-data bytes.
func (f *Font) SetPrivateData(b []byte) {
	f.PrivateData = b
}

// ToSFNT assembles the equivalent bare sfnt byte stream: a freshly
// synthesised header and tag-ascending directory, followed by the padded
// table bodies, with head.checkSumAdjustment recomputed.
func (f *Font) ToSFNT() ([]byte, error) {
	return synthesizeSFNT(f.Flavor, f.tables)
}

// Save writes the font through w, a WOFF writer constructed with this
// font's table count, flavor and version. Table write order follows the
// font's own Tags() order unless w.ReorderTables overrides it.
func (f *Font) Save(w *Writer) error {
	for _, t := range f.tables {
		w.SetTable(t.Tag, t.Data)
	}
	if f.Metadata != nil {
		w.SetMetadata(f.Metadata)
	}
	if f.PrivateData != nil {
		w.SetPrivateData(f.PrivateData)
	}
	return w.Close()
}

func (f *Font) reindex() {
	f.byTag = make(map[string]int, len(f.tables))
	for i, t := range f.tables {
		f.byTag[t.Tag] = i
	}
}
