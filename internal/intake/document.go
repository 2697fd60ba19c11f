package intake

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// MaxDocumentBytes bounds uploaded .txt files
const MaxDocumentBytes = 1 << 20

// IsTextFileName reports whether name has a .txt extension
func IsTextFileName(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".txt")
}

// DecodeDocument checks that an uploaded file is plain text and returns its
// content. Invalid UTF-8 sequences are dropped.
func DecodeDocument(name string, data []byte) (string, error) {
	if !IsTextFileName(name) {
		return "", ErrNotTextFile
	}
	if len(data) > MaxDocumentBytes {
		return "", fmt.Errorf("%w: %d bytes", ErrDocumentTooLarge, len(data))
	}

	if !isPlainText(mimetype.Detect(data)) {
		return "", ErrNotTextFile
	}

	return strings.ToValidUTF8(string(data), ""), nil
}

func isPlainText(mt *mimetype.MIME) bool {
	for m := mt; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return true
		}
	}
	return false
}
