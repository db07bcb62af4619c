// Package imaging holds the image value passed between the design provider,
// the AI collaborator and the annotation renderer.
package imaging

import (
	"bytes"
	"encoding/base64"
	"image"
	_ "image/gif"  // register decoder
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"net/http"
	"strings"

	_ "golang.org/x/image/webp" // register decoder

	rigerrors "thoreinstein.com/designcheck/pkg/errors"
)

// Image is an encoded image together with where it came from.
type Image struct {
	Data      []byte
	MediaType string
	SourceURL string
}

// New returns an Image, sniffing the media type from data.
func New(data []byte, sourceURL string) Image {
	return Image{
		Data:      data,
		MediaType: DetectMediaType(data),
		SourceURL: sourceURL,
	}
}

// Base64 returns the standard base64 encoding of the image bytes.
func (i Image) Base64() string {
	return base64.StdEncoding.EncodeToString(i.Data)
}

// DataURL returns the image as a data: URL.
func (i Image) DataURL() string {
	return "data:" + i.mediaType() + ";base64," + i.Base64()
}

// Size decodes only the image header and returns its pixel dimensions.
func (i Image) Size() (width, height int, err error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(i.Data))
	if err != nil {
		return 0, 0, rigerrors.Wrap(err, "failed to decode image header")
	}
	return cfg.Width, cfg.Height, nil
}

// Decode decodes the full image.
func (i Image) Decode() (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(i.Data))
	if err != nil {
		return nil, rigerrors.Wrap(err, "failed to decode image")
	}
	return img, nil
}

// Empty reports whether the image carries no bytes.
func (i Image) Empty() bool {
	return len(i.Data) == 0
}

func (i Image) mediaType() string {
	if i.MediaType != "" {
		return i.MediaType
	}
	return DetectMediaType(i.Data)
}

// DetectMediaType sniffs an image media type, defaulting to image/png when
// the content is not recognizably an image.
func DetectMediaType(data []byte) string {
	mt := http.DetectContentType(data)
	if i := strings.Index(mt, ";"); i >= 0 {
		mt = mt[:i]
	}
	if !strings.HasPrefix(mt, "image/") {
		return "image/png"
	}
	return mt
}
