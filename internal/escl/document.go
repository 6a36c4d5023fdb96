package escl

import (
	"bytes"
	"errors"
	"image"
	_ "image/jpeg" // register decoders for image.Decode
	_ "image/png"

	"github.com/muurk/airscan/internal/registry"
)

// Document is a fetched and decoded scan.
type Document struct {
	Bytes       []byte      // Payload exactly as served by the device
	ContentType string      // Content-Type header of the response
	Format      string      // Decoder that accepted the payload ("jpeg", "png")
	Image       image.Image // Decoded raster
}

// Bounds returns the image bounds.
func (d *Document) Bounds() image.Rectangle {
	if d == nil || d.Image == nil {
		return image.Rectangle{}
	}
	return d.Image.Bounds()
}

// Extension returns a file extension matching the decoded format.
func (d *Document) Extension() string {
	switch d.Format {
	case "png":
		return ".png"
	default:
		return ".jpg"
	}
}

func decodeDocument(dev registry.DeviceRecord, data []byte, contentType string) (*Document, error) {
	if len(data) == 0 {
		return nil, newDecodeError(dev, errors.New("empty payload"))
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, newDecodeError(dev, err)
	}

	return &Document{
		Bytes:       data,
		ContentType: contentType,
		Format:      format,
		Image:       img,
	}, nil
}
