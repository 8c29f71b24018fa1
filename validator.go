package woff

import (
	"encoding/binary"
	"fmt"
)

// Kind classifies a single validator Finding.
type Kind int

const (
	Pass Kind = iota
	Note
	Warning
	Error
	Traceback
)

func (k Kind) String() string {
	switch k {
	case Pass:
		return "PASS"
	case Note:
		return "NOTE"
	case Warning:
		return "WARNING"
	case Error:
		return "ERROR"
	case Traceback:
		return "TRACEBACK"
	}
	return "UNKNOWN"
}

// Finding is a single validator observation.
type Finding struct {
	Kind    Kind
	Message string
	Info    string
}

// TestGroup collects the findings emitted by one named test.
type TestGroup struct {
	Title    string
	Findings []Finding
}

// Report is the output of Validate: findings grouped by test, in the fixed
// registration order of §4.7, plus a flag for whether a fatal structural
// test stopped the pipeline early.
type Report struct {
	Groups        []TestGroup
	HaveReadError bool
}

// Group returns the findings registered under title, or nil if that test
// never ran (because an earlier fatal test stopped the pipeline).
func (r *Report) Group(title string) []Finding {
	for _, g := range r.Groups {
		if g.Title == title {
			return g.Findings
		}
	}
	return nil
}

// HasErrors reports whether any finding anywhere in the report is at Error
// or Traceback severity.
func (r *Report) HasErrors() bool {
	for _, g := range r.Groups {
		for _, f := range g.Findings {
			if f.Kind == Error || f.Kind == Traceback {
				return true
			}
		}
	}
	return false
}

// validation carries the mutable state threaded through the test pipeline:
// the raw bytes, the report under construction, and whatever each test has
// managed to parse so far for the benefit of later tests.
type validation struct {
	b   []byte
	rep *Report
	cur *TestGroup

	hdr   woffHeaderFields
	hdrOK bool
	dir   []woffDirEntryFields
	dirOK bool
	meta  []byte // inflated metadata bytes, once m-decompression passes
	mTree *MetadataElement
}

type woffHeaderFields struct {
	signature      string
	flavor         uint32
	length         uint32
	numTables      uint16
	reserved       uint16
	totalSfntSize  uint32
	majorVersion   uint16
	minorVersion   uint16
	metaOffset     uint32
	metaLength     uint32
	metaOrigLength uint32
	privOffset     uint32
	privLength     uint32
}

type woffDirEntryFields struct {
	tag          string
	offset       uint32
	compLength   uint32
	origLength   uint32
	origChecksum uint32
}

func parseWOFFHeaderFields(b []byte) woffHeaderFields {
	return woffHeaderFields{
		signature:      string(b[0:4]),
		flavor:         binary.BigEndian.Uint32(b[4:8]),
		length:         binary.BigEndian.Uint32(b[8:12]),
		numTables:      binary.BigEndian.Uint16(b[12:14]),
		reserved:       binary.BigEndian.Uint16(b[14:16]),
		totalSfntSize:  binary.BigEndian.Uint32(b[16:20]),
		majorVersion:   binary.BigEndian.Uint16(b[20:22]),
		minorVersion:   binary.BigEndian.Uint16(b[22:24]),
		metaOffset:     binary.BigEndian.Uint32(b[24:28]),
		metaLength:     binary.BigEndian.Uint32(b[28:32]),
		metaOrigLength: binary.BigEndian.Uint32(b[32:36]),
		privOffset:     binary.BigEndian.Uint32(b[36:40]),
		privLength:     binary.BigEndian.Uint32(b[40:44]),
	}
}

func parseWOFFDirEntryFields(b []byte) woffDirEntryFields {
	return woffDirEntryFields{
		tag:          string(b[0:4]),
		offset:       binary.BigEndian.Uint32(b[4:8]),
		compLength:   binary.BigEndian.Uint32(b[8:12]),
		origLength:   binary.BigEndian.Uint32(b[12:16]),
		origChecksum: binary.BigEndian.Uint32(b[16:20]),
	}
}

// Validate runs the fixed test pipeline of §4.7 against b and returns the
// categorised report. It never panics and never materialises a Font model
// -- it works on raw bytes throughout, exactly as the spec requires, since
// a byte stream too malformed to build a Font may still need a report.
func Validate(b []byte) *Report {
	v := &validation{b: b, rep: &Report{}}

	type step struct {
		title string
		run   func() bool
	}
	steps := []step{
		{"h-size", v.testHSize},
		{"h-structure", v.testHStructure},
		{"h-signature", v.testHSignature},
		{"h-flavor", v.testHFlavor},
		{"h-length", v.testHLength},
		{"h-reserved", v.testHReserved},
		{"h-sfntsize", v.testHSfntSize},
		{"h-version", v.testHVersion},
		{"h-numtables", v.testHNumTables},
		{"d-order", v.testDOrder},
		{"d-borders", v.testDBorders},
		{"d-complength", v.testDCompLength},
		{"d-checksum", v.testDChecksum},
		{"t-start", v.testTStart},
		{"t-padding", v.testTPadding},
		{"t-decompression", v.testTDecompression},
		{"t-origlength", v.testTOrigLength},
		{"t-headchecksum", v.testTHeadChecksum},
		{"t-dsig", v.testTDsig},
		{"m-offsetlength", v.testMOffsetLength},
		{"m-decompression", v.testMDecompression},
		{"m-metaOrigLength", v.testMMetaOrigLength},
		{"m-parse", v.testMParse},
		{"m-structure", v.testMStructure},
		{"p-offsetlength", v.testPOffsetLength},
	}

	for _, s := range steps {
		g := TestGroup{Title: s.title}
		v.rep.Groups = append(v.rep.Groups, g)
		cur := &v.rep.Groups[len(v.rep.Groups)-1]
		v.cur = cur
		if !s.run() {
			v.rep.HaveReadError = true
			break
		}
	}
	return v.rep
}

// cur is set by Validate before each step runs; tests append to it via
// pass/note/warn/fail rather than threading a group pointer through every
// call.
func (v *validation) pass(msg string) {
	v.cur.Findings = append(v.cur.Findings, Finding{Kind: Pass, Message: msg})
}
func (v *validation) note(msg, info string) {
	v.cur.Findings = append(v.cur.Findings, Finding{Kind: Note, Message: msg, Info: info})
}
func (v *validation) warn(msg, info string) {
	v.cur.Findings = append(v.cur.Findings, Finding{Kind: Warning, Message: msg, Info: info})
}
func (v *validation) fail(msg, info string) {
	v.cur.Findings = append(v.cur.Findings, Finding{Kind: Error, Message: msg, Info: info})
}

func (v *validation) testHSize() bool {
	if len(v.b) < 44 {
		v.fail("file is smaller than the WOFF header", fmt.Sprintf("%d bytes", len(v.b)))
		return false
	}
	v.pass("file is at least 44 bytes")
	return true
}

func (v *validation) testHStructure() bool {
	hdr := parseWOFFHeaderFields(v.b)
	need := 44 + 20*uint64(hdr.numTables)
	if uint64(len(v.b)) < need {
		v.fail("header + table directory extend beyond the file", fmt.Sprintf("need %d bytes, have %d", need, len(v.b)))
		return false
	}
	v.hdr = hdr
	v.hdrOK = true
	v.pass("header and table directory are within the file")
	return true
}

func (v *validation) testHSignature() bool {
	if v.hdr.signature != "wOFF" {
		v.fail("signature is not 'wOFF'", v.hdr.signature)
		return false
	}
	v.pass("signature is 'wOFF'")
	return true
}

func (v *validation) testHFlavor() bool {
	flavorTag := uint32ToString(v.hdr.flavor)
	hasCFF := false
	for i := 0; i < int(v.hdr.numTables); i++ {
		e := parseWOFFDirEntryFields(v.b[44+20*i:])
		if e.tag == "CFF " {
			hasCFF = true
			break
		}
	}
	switch flavorTag {
	case "OTTO":
		if !hasCFF {
			v.fail("flavor is OTTO but no CFF table is present", "")
			return true
		}
		v.pass("flavor OTTO has a matching CFF table")
	case "true", "\x00\x01\x00\x00":
		if hasCFF {
			v.fail("flavor is TrueType but a CFF table is present", flavorTag)
			return true
		}
		v.pass("flavor is a recognised TrueType tag")
	default:
		v.warn("flavor is not one of the recognised sfnt version tags", fmt.Sprintf("%q", flavorTag))
	}
	return true
}

func (v *validation) testHLength() bool {
	min := uint64(44) + 20*uint64(v.hdr.numTables)
	for i := 0; i < int(v.hdr.numTables); i++ {
		e := parseWOFFDirEntryFields(v.b[44+20*i:])
		min += uint64(pad4(e.compLength))
	}
	if v.hdr.metaLength > 0 {
		if v.hdr.privLength > 0 {
			min += uint64(pad4(v.hdr.metaLength))
		} else {
			min += uint64(v.hdr.metaLength)
		}
	}
	if v.hdr.privLength > 0 {
		min += uint64(v.hdr.privLength)
	}
	if uint64(v.hdr.length) != uint64(len(v.b)) {
		v.fail("header length does not match the actual file size", fmt.Sprintf("header says %d, file is %d bytes", v.hdr.length, len(v.b)))
		return false
	}
	if uint64(v.hdr.length) < min {
		v.fail("header length is smaller than header+directory+tables(+meta+priv)", fmt.Sprintf("declared %d, computed minimum %d", v.hdr.length, min))
		return false
	}
	v.pass("header length matches the file size")
	return true
}

func (v *validation) testHReserved() bool {
	if v.hdr.reserved != 0 {
		v.fail("reserved header field is not zero", fmt.Sprintf("%d", v.hdr.reserved))
		return true
	}
	v.pass("reserved header field is zero")
	return true
}

func (v *validation) testHSfntSize() bool {
	want := uint64(12) + 16*uint64(v.hdr.numTables)
	for i := 0; i < int(v.hdr.numTables); i++ {
		e := parseWOFFDirEntryFields(v.b[44+20*i:])
		want += uint64(pad4(e.origLength))
	}
	if uint64(v.hdr.totalSfntSize) != want {
		v.fail("totalSfntSize does not match the equivalent sfnt size", fmt.Sprintf("header says %d, computed %d", v.hdr.totalSfntSize, want))
		return true
	}
	v.pass("totalSfntSize matches the equivalent sfnt size")
	return true
}

func (v *validation) testHVersion() bool {
	if v.hdr.majorVersion == 0 && v.hdr.minorVersion == 0 {
		v.warn("font version is 0.0", "")
		return true
	}
	v.pass("font version is at least 0.1")
	return true
}

func (v *validation) testHNumTables() bool {
	if v.hdr.numTables < 1 {
		v.fail("numTables must be at least 1", "")
		return false
	}
	dir := make([]woffDirEntryFields, v.hdr.numTables)
	for i := range dir {
		dir[i] = parseWOFFDirEntryFields(v.b[44+20*i:])
	}
	v.dir = dir
	v.dirOK = true
	v.pass("numTables is at least 1 and the directory unpacks")
	return true
}

func (v *validation) testDOrder() bool {
	for i := 1; i < len(v.dir); i++ {
		if v.dir[i].tag <= v.dir[i-1].tag {
			v.fail("table directory is not in strict ascending tag order", fmt.Sprintf("%q then %q", v.dir[i-1].tag, v.dir[i].tag))
			return true
		}
	}
	v.pass("table directory is in strict ascending tag order")
	return true
}

func (v *validation) testDBorders() bool {
	headerEnd := uint32(44 + 20*len(v.dir))
	ok := true
	for _, e := range v.dir {
		end := uint64(e.offset) + uint64(e.compLength)
		if e.offset < headerEnd || end > uint64(v.hdr.length) {
			v.fail("table entry lies outside [headerEnd, length]", fmt.Sprintf("%q: offset=%d compLength=%d", e.tag, e.offset, e.compLength))
			ok = false
		}
	}
	if ok {
		v.pass("every table entry lies within the file")
	}
	return true
}

func (v *validation) testDCompLength() bool {
	ok := true
	for _, e := range v.dir {
		if e.compLength > e.origLength {
			v.fail("compLength exceeds origLength", fmt.Sprintf("%q: compLength=%d origLength=%d", e.tag, e.compLength, e.origLength))
			ok = false
		}
	}
	if ok {
		v.pass("compLength never exceeds origLength")
	}
	return true
}

func (v *validation) testDChecksum() bool {
	ok := true
	for _, e := range v.dir {
		if uint64(e.offset)+uint64(e.compLength) > uint64(len(v.b)) {
			continue // already reported by d-borders
		}
		raw := v.b[e.offset : e.offset+e.compLength]
		data := raw
		if e.compLength < e.origLength {
			inflated, err := inflate(raw)
			if err != nil {
				continue // reported by t-decompression
			}
			data = inflated
		}
		if uint32(len(data)) != e.origLength {
			continue // reported by t-origlength
		}
		if tableChecksum(e.tag, data) != e.origChecksum {
			v.fail("table checksum does not match origChecksum", fmt.Sprintf("%q", e.tag))
			ok = false
		}
	}
	if ok {
		v.pass("every decompressed table's checksum matches origChecksum")
	}
	return true
}

func (v *validation) testTStart() bool {
	if len(v.dir) == 0 {
		return true
	}
	headerEnd := uint32(44 + 20*len(v.dir))
	min := v.dir[0].offset
	for _, e := range v.dir[1:] {
		if e.offset < min {
			min = e.offset
		}
	}
	if min != headerEnd {
		v.fail("the first table body does not start right after the directory", fmt.Sprintf("directory ends at %d, first body at %d", headerEnd, min))
		return true
	}
	v.pass("the first table body starts right after the directory")
	return true
}

func (v *validation) testTPadding() bool {
	ok := true
	for _, e := range v.dir {
		if e.offset%4 != 0 {
			v.fail("table body is not 4-byte aligned", fmt.Sprintf("%q at offset %d", e.tag, e.offset))
			ok = false
		}
	}
	sfntEnd := uint32(44 + 20*len(v.dir))
	for _, e := range v.dir {
		end := e.offset + pad4(e.compLength)
		if end > sfntEnd {
			sfntEnd = end
		}
	}
	boundary := sfntEnd == v.hdr.metaOffset || sfntEnd == v.hdr.privOffset || (v.hdr.metaOffset == 0 && v.hdr.privOffset == 0 && sfntEnd == v.hdr.length)
	if !boundary {
		v.fail("table data does not end on a 4-byte section boundary", fmt.Sprintf("computed end %d", sfntEnd))
		ok = false
	}
	if ok {
		v.pass("every table body is 4-byte aligned and the table section ends cleanly")
	}
	return true
}

func (v *validation) testTDecompression() bool {
	ok := true
	for _, e := range v.dir {
		if e.compLength >= e.origLength {
			continue
		}
		if uint64(e.offset)+uint64(e.compLength) > uint64(len(v.b)) {
			continue
		}
		if _, err := inflate(v.b[e.offset : e.offset+e.compLength]); err != nil {
			v.fail("table fails to decompress", fmt.Sprintf("%q: %v", e.tag, err))
			ok = false
		}
	}
	if ok {
		v.pass("every compressed table decompresses without error")
	}
	return true
}

func (v *validation) testTOrigLength() bool {
	ok := true
	for _, e := range v.dir {
		if e.compLength >= e.origLength || uint64(e.offset)+uint64(e.compLength) > uint64(len(v.b)) {
			continue
		}
		data, err := inflate(v.b[e.offset : e.offset+e.compLength])
		if err != nil {
			continue
		}
		if uint32(len(data)) != e.origLength {
			v.fail("decompressed table length does not match origLength", fmt.Sprintf("%q: got %d, want %d", e.tag, len(data), e.origLength))
			ok = false
		}
	}
	if ok {
		v.pass("every decompressed table's length matches origLength")
	}
	return true
}

func (v *validation) testTHeadChecksum() bool {
	var headEntry *woffDirEntryFields
	for i := range v.dir {
		if v.dir[i].tag == "head" {
			headEntry = &v.dir[i]
			break
		}
	}
	if headEntry == nil {
		v.note("no head table present", "")
		return true
	}
	tables, err := v.decodedTables()
	if err != nil {
		v.note("could not recompute: a table failed to decompress", err.Error())
		return true
	}
	var headData []byte
	for _, t := range tables {
		if t.Tag == "head" {
			headData = t.Data
		}
	}
	if len(headData) < 12 {
		v.fail("head table is too short to hold checkSumAdjustment", "")
		return true
	}
	want, err := headCheckSumAdjustment(v.hdr.flavor, tables)
	if err != nil {
		v.note("could not recompute checkSumAdjustment", err.Error())
		return true
	}
	got := binary.BigEndian.Uint32(headData[8:12])
	if got != want {
		v.fail("head.checkSumAdjustment does not match the derived value", fmt.Sprintf("stored 0x%08X, computed 0x%08X", got, want))
		return true
	}
	v.pass("head.checkSumAdjustment matches the derived value")
	return true
}

func (v *validation) decodedTables() ([]Table, error) {
	tables := make([]Table, 0, len(v.dir))
	for _, e := range v.dir {
		if uint64(e.offset)+uint64(e.compLength) > uint64(len(v.b)) {
			return nil, fmt.Errorf("%q: out of bounds", e.tag)
		}
		raw := v.b[e.offset : e.offset+e.compLength]
		data := raw
		if e.compLength < e.origLength {
			inflated, err := inflate(raw)
			if err != nil {
				return nil, fmt.Errorf("%q: %w", e.tag, err)
			}
			data = inflated
		}
		tables = append(tables, Table{Tag: e.tag, Data: append([]byte(nil), data...)})
	}
	return tables, nil
}

func (v *validation) testTDsig() bool {
	for _, e := range v.dir {
		if e.tag == "DSIG" {
			v.warn("DSIG table present: signatures are not verified", "")
			return true
		}
	}
	v.pass("no DSIG table present")
	return true
}

func (v *validation) testMOffsetLength() bool {
	if (v.hdr.metaOffset == 0) != (v.hdr.metaLength == 0) {
		v.fail("metaOffset and metaLength must both be zero or both be non-zero", "")
		return true
	}
	if v.hdr.metaOffset == 0 {
		v.pass("no metadata block present")
		return true
	}
	lastTableEnd := uint32(44 + 20*len(v.dir))
	for _, e := range v.dir {
		end := e.offset + pad4(e.compLength)
		if end > lastTableEnd {
			lastTableEnd = end
		}
	}
	if v.hdr.metaOffset%4 != 0 {
		v.fail("metaOffset is not 4-byte aligned", fmt.Sprintf("%d", v.hdr.metaOffset))
	} else if v.hdr.metaOffset != lastTableEnd {
		v.fail("metadata does not immediately follow the last table", fmt.Sprintf("table data ends at %d, metaOffset is %d", lastTableEnd, v.hdr.metaOffset))
	} else if uint64(v.hdr.metaOffset)+uint64(v.hdr.metaLength) > uint64(len(v.b)) {
		v.fail("metadata block extends beyond the file", "")
	} else {
		v.pass("metadata block is aligned and immediately follows the table data")
		return true
	}
	return true
}

func (v *validation) testMDecompression() bool {
	if v.hdr.metaOffset == 0 {
		v.note("no metadata to decompress", "")
		return true
	}
	if uint64(v.hdr.metaOffset)+uint64(v.hdr.metaLength) > uint64(len(v.b)) {
		v.fail("metadata block out of bounds", "")
		return true
	}
	raw := v.b[v.hdr.metaOffset : v.hdr.metaOffset+v.hdr.metaLength]
	data, err := inflate(raw)
	if err != nil {
		v.fail("metadata fails to decompress", err.Error())
		return false
	}
	v.meta = data
	v.pass("metadata decompresses without error")
	return true
}

func (v *validation) testMMetaOrigLength() bool {
	if v.meta == nil {
		v.note("no metadata to check", "")
		return true
	}
	if uint32(len(v.meta)) != v.hdr.metaOrigLength {
		v.fail("decompressed metadata length does not match metaOrigLength", fmt.Sprintf("got %d, want %d", len(v.meta), v.hdr.metaOrigLength))
		return true
	}
	v.pass("decompressed metadata length matches metaOrigLength")
	return true
}

func (v *validation) testMParse() bool {
	if v.meta == nil {
		v.note("no metadata to parse", "")
		return true
	}
	tree, err := ParseMetadata(v.meta)
	if err != nil {
		v.fail("metadata XML fails to parse", err.Error())
		return true
	}
	v.mTree = tree
	v.pass("metadata XML parses")
	return true
}

func (v *validation) testMStructure() bool {
	if v.mTree == nil {
		v.note("no metadata tree to check", "")
		return true
	}
	checkMetadataSchema(v.mTree, v)
	return true
}

func (v *validation) testPOffsetLength() bool {
	if (v.hdr.privOffset == 0) != (v.hdr.privLength == 0) {
		v.fail("privOffset and privLength must both be zero or both be non-zero", "")
		return true
	}
	if v.hdr.privOffset == 0 {
		v.pass("no private data block present")
		return true
	}
	var prevEnd uint32
	if v.hdr.metaOffset != 0 {
		prevEnd = pad4(v.hdr.metaOffset + v.hdr.metaLength)
	} else {
		prevEnd = uint32(44 + 20*len(v.dir))
		for _, e := range v.dir {
			end := e.offset + pad4(e.compLength)
			if end > prevEnd {
				prevEnd = end
			}
		}
	}
	if v.hdr.privOffset%4 != 0 {
		v.fail("privOffset is not 4-byte aligned", fmt.Sprintf("%d", v.hdr.privOffset))
	} else if v.hdr.privOffset != prevEnd {
		v.fail("private data does not immediately follow the previous section", fmt.Sprintf("previous section ends at %d, privOffset is %d", prevEnd, v.hdr.privOffset))
	} else if uint64(v.hdr.privOffset)+uint64(v.hdr.privLength) > uint64(len(v.b)) {
		v.fail("private data block extends beyond the file", "")
	} else if uint64(v.hdr.privOffset)+uint64(v.hdr.privLength) != uint64(len(v.b)) {
		v.fail("private data block does not reach the end of the file", "")
	} else {
		v.pass("private data block is aligned and reaches the end of the file")
	}
	return true
}
