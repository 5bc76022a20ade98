package request

// isWhitespace matches the bytes skipped between the method and the path.
func isWhitespace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\r' || b == '\n'
}

// ExtractPath locates the path token of a request line shaped like
// "<method> <path> <rest>". It skips to the first space, skips any
// whitespace after it, and scans to the next space. The method and the
// rest of the line are not validated.
//
// ok is false when buf ends before the space that closes the path; the
// caller should wait for more bytes. The returned slice aliases buf.
func ExtractPath(buf []byte) (path []byte, ok bool) {
	i := 0
	for i < len(buf) && buf[i] != ' ' {
		i++
	}
	for i < len(buf) && isWhitespace(buf[i]) {
		i++
	}
	start := i
	for i < len(buf) && buf[i] != ' ' {
		i++
	}
	if i >= len(buf) {
		return nil, false
	}
	return buf[start:i], true
}
