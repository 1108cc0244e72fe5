// Package media turns local image files into the data URLs stored as task
// cover images and avatars.
package media

import (
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	apperrors "smartlife/client/internal/errors"
)

// DefaultMaxBytes caps an encoded image at 5 MiB.
const DefaultMaxBytes = 5 << 20

// EncodeDataURL reads the image at path and returns it as a base64 data URL.
// The type is sniffed from the content, not the extension. maxBytes <= 0
// means DefaultMaxBytes.
func EncodeDataURL(path string, maxBytes int64) (string, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}

	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open image: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return "", apperrors.Validation("image", fmt.Sprintf("image is larger than %d bytes", maxBytes))
	}

	return Encode(data)
}

// Encode returns data as a data URL when it holds an image.
func Encode(data []byte) (string, error) {
	if len(data) == 0 {
		return "", apperrors.Validation("image", "image is empty")
	}
	mime := mimetype.Detect(data)
	contentType, _, _ := strings.Cut(mime.String(), ";")
	if !strings.HasPrefix(contentType, "image/") {
		return "", apperrors.Validation("image", "unsupported file type "+contentType)
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}
