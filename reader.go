package woff

import (
	"fmt"
	"io"
	"sort"

	"github.com/tdewolff/parse/v2"
)

// DirectoryEntry is one parsed WOFF table directory record (§3, §4.1),
// together with its still-compressed body, as returned by
// Reader.CompressedTableEntry.
type DirectoryEntry struct {
	Tag            string
	Offset         uint32
	CompLength     uint32
	OrigLength     uint32
	OrigChecksum   uint32
	CompressedData []byte
}

// Reader parses a WOFF 1.0 byte stream into its header, directory,
// metadata and private-data blocks, yielding table bytes lazily on
// request (§4.4). It buffers its whole input on construction -- WOFF
// files are sub-megabyte typical (§5) -- so no seeking is required past
// that point.
type Reader struct {
	Flavor       uint32
	MajorVersion uint16
	MinorVersion uint16

	// Strict, when true, makes TableBytes raise ErrChecksumMismatch
	// instead of merely returning the (still usable) decompressed bytes.
	Strict bool

	b       []byte
	dir     []DirectoryEntry
	order   []int // indices into dir, ascending by Offset
	metaOff uint32
	metaLen uint32
	metaOL  uint32
	privOff uint32
	privLen uint32
	closer  io.Closer
}

// NewReader parses b as a complete in-memory WOFF file.
func NewReader(b []byte) (*Reader, error) {
	if len(b) < 44 {
		return nil, fmt.Errorf("%w: file shorter than the WOFF header", ErrMalformedHeader)
	}

	r := parse.NewBinaryReader(b)
	signature := r.ReadString(4)
	if signature != "wOFF" {
		return nil, ErrBadSignature
	}
	flavor := r.ReadUint32()
	length := r.ReadUint32()
	numTables := r.ReadUint16()
	reserved := r.ReadUint16()
	_ = r.ReadUint32() // totalSfntSize, recomputed rather than trusted
	majorVersion := r.ReadUint16()
	minorVersion := r.ReadUint16()
	metaOffset := r.ReadUint32()
	metaLength := r.ReadUint32()
	metaOrigLength := r.ReadUint32()
	privOffset := r.ReadUint32()
	privLength := r.ReadUint32()
	if r.EOF() {
		return nil, ErrMalformedHeader
	}
	if reserved != 0 {
		return nil, fmt.Errorf("%w: reserved field must be zero", ErrMalformedHeader)
	}
	if length != uint32(len(b)) {
		return nil, ErrLengthMismatch
	}
	if numTables == 0 {
		return nil, fmt.Errorf("%w: numTables must not be zero", ErrMalformedDirectory)
	}

	dir := make([]DirectoryEntry, numTables)
	var prevTag string
	for i := range dir {
		tag := r.ReadString(4)
		offset := r.ReadUint32()
		compLength := r.ReadUint32()
		origLength := r.ReadUint32()
		origChecksum := r.ReadUint32()
		if r.EOF() {
			return nil, ErrMalformedDirectory
		}
		if compLength > origLength {
			return nil, fmt.Errorf("%w: %q: compLength exceeds origLength", ErrMalformedDirectory, tag)
		}
		if i > 0 && tag <= prevTag {
			return nil, fmt.Errorf("%w: table directory is not in ascending tag order", ErrMalformedDirectory)
		}
		if uint64(offset)+uint64(compLength) > uint64(len(b)) {
			return nil, fmt.Errorf("%w: %q: table extends beyond the file", ErrMalformedDirectory, tag)
		}
		prevTag = tag
		dir[i] = DirectoryEntry{
			Tag:            tag,
			Offset:         offset,
			CompLength:     compLength,
			OrigLength:     origLength,
			OrigChecksum:   origChecksum,
			CompressedData: b[offset : offset+compLength : offset+compLength],
		}
	}
	if (metaOffset == 0) != (metaLength == 0) || (metaOffset == 0) != (metaOrigLength == 0) {
		return nil, fmt.Errorf("%w: metaOffset/metaLength/metaOrigLength must agree on presence", ErrMalformedDirectory)
	}
	if metaOffset != 0 && uint64(metaOffset)+uint64(metaLength) > uint64(len(b)) {
		return nil, fmt.Errorf("%w: metadata block extends beyond the file", ErrMalformedDirectory)
	}
	if (privOffset == 0) != (privLength == 0) {
		return nil, fmt.Errorf("%w: privOffset/privLength must agree on presence", ErrMalformedDirectory)
	}
	if privOffset != 0 && uint64(privOffset)+uint64(privLength) > uint64(len(b)) {
		return nil, fmt.Errorf("%w: private data block extends beyond the file", ErrMalformedDirectory)
	}

	order := make([]int, len(dir))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool { return dir[order[i]].Offset < dir[order[j]].Offset })

	return &Reader{
		Flavor:       flavor,
		MajorVersion: majorVersion,
		MinorVersion: minorVersion,
		b:            b,
		dir:          dir,
		order:        order,
		metaOff:      metaOffset,
		metaLen:      metaLength,
		metaOL:       metaOrigLength,
		privOff:      privOffset,
		privLen:      privLength,
	}, nil
}

// NewReaderFrom reads rc fully (closing it regardless of outcome, per the
// reader's ownership of the byte source, §5) and parses the result.
func NewReaderFrom(rc io.ReadCloser) (*Reader, error) {
	b, err := io.ReadAll(rc)
	closeErr := rc.Close()
	if err != nil {
		return nil, err
	}
	if closeErr != nil {
		return nil, closeErr
	}
	r, err := NewReader(b)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Tags returns the font's table tags in file-offset order, the directory's
// natural on-disk order.
func (r *Reader) Tags() []string {
	tags := make([]string, len(r.order))
	for i, idx := range r.order {
		tags[i] = r.dir[idx].Tag
	}
	return tags
}

// CompressedTableEntry returns tag's directory entry together with its
// still-compressed bytes, or false if tag is not present.
func (r *Reader) CompressedTableEntry(tag string) (DirectoryEntry, bool) {
	for _, e := range r.dir {
		if e.Tag == tag {
			return e, true
		}
	}
	return DirectoryEntry{}, false
}

// TableBytes returns tag's decompressed bytes. When r.Strict is set, a
// checksum mismatch is raised as ErrChecksumMismatch instead of being
// silently ignored.
func (r *Reader) TableBytes(tag string) ([]byte, error) {
	e, ok := r.CompressedTableEntry(tag)
	if !ok {
		return nil, fmt.Errorf("%s: table not present", tag)
	}
	data := e.CompressedData
	if e.CompLength < e.OrigLength {
		inflated, err := inflate(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", tag, err)
		}
		data = inflated
	}
	if uint32(len(data)) != e.OrigLength {
		return nil, fmt.Errorf("%s: %w", tag, ErrLengthMismatch)
	}
	if r.Strict && tableChecksum(tag, data) != e.OrigChecksum {
		return nil, fmt.Errorf("%s: %w", tag, ErrChecksumMismatch)
	}
	return data, nil
}

// Metadata returns the decompressed, parsed metadata tree, or nil if the
// font carries no metadata block.
func (r *Reader) Metadata() (*MetadataElement, error) {
	b, err := r.MetadataBytes()
	if err != nil || b == nil {
		return nil, err
	}
	return ParseMetadata(b)
}

// MetadataBytes returns the decompressed metadata XML bytes, or nil if the
// font carries no metadata block.
func (r *Reader) MetadataBytes() ([]byte, error) {
	if r.metaOff == 0 {
		return nil, nil
	}
	raw := r.b[r.metaOff : r.metaOff+r.metaLen]
	data, err := inflate(raw)
	if err != nil {
		return nil, err
	}
	if uint32(len(data)) != r.metaOL {
		return nil, ErrLengthMismatch
	}
	return data, nil
}

// PrivateData returns the opaque private-data block, or nil if absent.
func (r *Reader) PrivateData() []byte {
	if r.privOff == 0 {
		return nil
	}
	return r.b[r.privOff : r.privOff+r.privLen]
}

// Close releases the underlying byte source if one is still held. Neither
// constructor leaves one open (NewReaderFrom closes its source before
// returning), so for readers built by them Close returns nil.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// ReadFont materialises a full Font model from the parsed WOFF file in one
// call, the common case (§4.4).
func (r *Reader) ReadFont() (*Font, error) {
	f := NewFont(r.Flavor, r.MajorVersion, r.MinorVersion)
	for _, idx := range r.order {
		tag := r.dir[idx].Tag
		data, err := r.TableBytes(tag)
		if err != nil {
			return nil, err
		}
		f.SetTableBytes(tag, data)
	}
	meta, err := r.MetadataBytes()
	if err != nil {
		return nil, err
	}
	if meta != nil {
		f.SetMetadata(meta)
	}
	if priv := r.PrivateData(); priv != nil {
		f.SetPrivateData(priv)
	}
	return f, nil
}

// Parse is the one-shot convenience wrapper around NewReader+ReadFont,
// mirroring the teacher's ParseFont idiom.
func Parse(b []byte) (*Font, error) {
	r, err := NewReader(b)
	if err != nil {
		return nil, err
	}
	return r.ReadFont()
}
