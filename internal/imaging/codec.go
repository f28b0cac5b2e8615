package imaging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"strings"
)

// JPEGQuality matches the lossy quality the editor uses when exporting the
// canvas.
const JPEGQuality = 80

var ErrInvalidDataURL = errors.New("invalid image data url")

// DecodeDataURL parses a base64 data URL ("data:image/png;base64,....") into
// an image. Clients submit the composed canvas in this form.
func DecodeDataURL(dataURL string) (image.Image, error) {
	_, encoded, found := strings.Cut(dataURL, ";base64,")
	if !found || !strings.HasPrefix(dataURL, "data:image/") {
		return nil, ErrInvalidDataURL
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDataURL, err)
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDataURL, err)
	}
	return img, nil
}

// EncodeJPEG compresses an image to the portable storage format.
func EncodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ReencodeDataURL converts a submitted canvas data URL into the JPEG payload
// that goes to object storage.
func ReencodeDataURL(dataURL string) ([]byte, error) {
	img, err := DecodeDataURL(dataURL)
	if err != nil {
		return nil, err
	}
	return EncodeJPEG(img)
}
