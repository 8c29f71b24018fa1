package woff

// ParseWOFF1 parses the WOFF 1.0 font format and returns its contained
// SFNT font format (TTF or OTF), mirroring the signature of ParseWOFF2
// and ParseEOT so all three can sit behind the same format dispatcher
// (see MediaType/ToSFNT in dispatch.go).
func ParseWOFF1(b []byte) ([]byte, error) {
	f, err := Parse(b)
	if err != nil {
		return nil, err
	}
	return f.ToSFNT()
}
