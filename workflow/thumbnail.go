package workflow

import (
	"bytes"
	"image"
	"image/png"
	"path/filepath"
	"strings"

	"github.com/chai2010/webp"
	"github.com/nfnt/resize"
	_ "golang.org/x/image/webp" // webp decode support for image.Decode

	"github.com/Fayeblade1488/venicebridge"
)

// thumbnailMax bounds both edges of a generated preview image.
const thumbnailMax = 256

// writeThumbnail renders a small preview next to the output image as
// <stem>_thumb<ext>, in the same format as the output.
func writeThumbnail(imagePath string, data []byte, format venicebridge.ImageFormat) (string, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", venicebridge.NewDecodeError("decode image for thumbnail", err)
	}

	thumb := resize.Thumbnail(thumbnailMax, thumbnailMax, img, resize.Lanczos3)

	var buf bytes.Buffer
	switch format {
	case venicebridge.FormatWebP:
		err = webp.Encode(&buf, thumb, &webp.Options{Quality: 90})
	default:
		err = png.Encode(&buf, thumb)
	}
	if err != nil {
		return "", venicebridge.NewPersistenceError("encode thumbnail", err)
	}

	ext := filepath.Ext(imagePath)
	path := strings.TrimSuffix(imagePath, ext) + "_thumb" + ext
	if err := writeAtomic(path, buf.Bytes()); err != nil {
		return "", err
	}
	return path, nil
}
