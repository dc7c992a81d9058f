package gepg

import "bytes"

// StringWithinTag extracts the exact byte run between the opening and
// closing occurrence of the named tag, both tags included. The gateway
// verifies signatures against this raw substring, so extraction operates
// on the bytes as emitted, never on a re-serialized tree. Returns nil when
// either tag is missing.
func StringWithinTag(body []byte, tag string) (fragment []byte) {
	startTag := []byte("<" + tag + ">")
	endTag := []byte("</" + tag + ">")

	start := bytes.Index(body, startTag)
	end := bytes.Index(body, endTag)
	if start == -1 || end == -1 {
		return nil
	}
	return body[start : end+len(endTag)]
}
