package moments

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedImageData indicates an odd-length or non-hex image payload.
var ErrMalformedImageData = errors.New("moments: malformed image data")

// ImageSource is a self-contained image reference ready for an <img> src.
type ImageSource struct {
	Format string
	Base64 string
}

// Empty reports whether there is no image to render.
func (s ImageSource) Empty() bool {
	return s.Base64 == ""
}

// String renders the data URI, or an empty string for the placeholder case.
func (s ImageSource) String() string {
	if s.Empty() {
		return ""
	}
	return "data:image/" + s.Format + ";base64," + s.Base64
}

// ImageFormat returns the text after the final dot of filename, or an empty
// tag when the filename has no extension.
func ImageFormat(filename string) string {
	index := strings.LastIndex(filename, ".")
	if index < 0 {
		return ""
	}
	return filename[index+1:]
}

// DecodeHexImage converts a hex string of raw image bytes into a data URI
// source. Empty input yields an empty source and no error.
func DecodeHexImage(hexData, filename string) (ImageSource, error) {
	if hexData == "" {
		return ImageSource{}, nil
	}
	if len(hexData)%2 != 0 {
		return ImageSource{}, fmt.Errorf("%w: odd length %d", ErrMalformedImageData, len(hexData))
	}
	raw, err := hex.DecodeString(hexData)
	if err != nil {
		return ImageSource{}, fmt.Errorf("%w: %v", ErrMalformedImageData, err)
	}
	return ImageSource{
		Format: ImageFormat(filename),
		Base64: base64.StdEncoding.EncodeToString(raw),
	}, nil
}

// EncodeHexImage renders raw bytes in the stored hex representation.
func EncodeHexImage(content []byte) string {
	return hex.EncodeToString(content)
}
