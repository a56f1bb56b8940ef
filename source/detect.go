package source

import (
	"io"

	"github.com/gabriel-vasile/mimetype"
)

// sniffLen is how many leading bytes are inspected for the content type.
const sniffLen = 3072

// DetectContentType returns the MIME type of src judged from its leading bytes.
func DetectContentType(src Source) (string, error) {
	n := int64(sniffLen)
	if size := src.Size(); size < n {
		n = size
	}

	buf := make([]byte, n)
	read, err := src.ReadAt(buf, 0)
	if err != nil && err != io.EOF {
		return "", err
	}
	return mimetype.Detect(buf[:read]).String(), nil
}
