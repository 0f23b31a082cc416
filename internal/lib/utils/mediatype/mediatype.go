package mediatype

import (
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Detect sniffs content type of r and reports whether
// it or any of its parents belongs to one of given families,
// e.g. "video", "audio".
func Detect(r io.Reader, families ...string) (string, bool, error) {
	mt, err := mimetype.DetectReader(r)
	if err != nil {
		return "", false, err
	}

	for m := mt; m != nil; m = m.Parent() {
		for _, f := range families {
			if strings.HasPrefix(m.String(), f+"/") {
				return mt.String(), true, nil
			}
		}
	}

	return mt.String(), false, nil
}

// ContentType returns sniffed content type of data.
func ContentType(data []byte) string {
	return mimetype.Detect(data).String()
}
