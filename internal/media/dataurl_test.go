package media_test

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matryer/is"

	apperrors "smartlife/client/internal/errors"
	"smartlife/client/internal/media"
)

func writePNG(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	path := filepath.Join(t.TempDir(), "cover.bin")
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		t.Fatalf("write png: %v", err)
	}
	return path
}

func TestEncodeDataURLSniffsContent(t *testing.T) {
	is := is.New(t)

	url, err := media.EncodeDataURL(writePNG(t), 0)
	is.NoErr(err)
	is.True(strings.HasPrefix(url, "data:image/png;base64,"))
}

func TestEncodeDataURLRejectsOversize(t *testing.T) {
	is := is.New(t)

	_, err := media.EncodeDataURL(writePNG(t), 10)
	var validationErr *apperrors.ValidationError
	is.True(errors.As(err, &validationErr))
}

func TestEncodeRejectsNonImages(t *testing.T) {
	is := is.New(t)

	_, err := media.Encode([]byte("just some notes"))
	var validationErr *apperrors.ValidationError
	is.True(errors.As(err, &validationErr))

	_, err = media.Encode(nil)
	is.True(errors.As(err, &validationErr))
}

func TestEncodeDataURLMissingFile(t *testing.T) {
	is := is.New(t)

	_, err := media.EncodeDataURL(filepath.Join(t.TempDir(), "missing.png"), 0)
	is.True(errors.Is(err, os.ErrNotExist))
}
