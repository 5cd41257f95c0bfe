package utils

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	_ "golang.org/x/image/webp"
)

// PostImageDir is the directory under the media root that holds post images.
const PostImageDir = "posts"

var (
	ErrInvalidImage = errors.New("Upload a valid image. The file you uploaded was either not an image or a corrupted image.")
	ErrImageTooBig  = errors.New("The uploaded image is too large.")
	ErrEmptyUpload  = errors.New("The submitted file is empty.")

	unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)
)

// ValidateImage reports whether data decodes as a gif, jpeg, png or webp image.
func ValidateImage(data []byte) error {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil || cfg.Width == 0 || cfg.Height == 0 {
		return ErrInvalidImage
	}
	return nil
}

// ReadUpload loads an uploaded file into memory, refusing files over maxBytes.
// A non-positive maxBytes disables the limit.
func ReadUpload(fh *multipart.FileHeader, maxBytes int64) ([]byte, error) {
	if maxBytes > 0 && fh.Size > maxBytes {
		return nil, ErrImageTooBig
	}
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, ErrEmptyUpload
	}
	return data, nil
}

// SaveImageBytes validates an image and writes it under <root>/posts/.
// It returns the stored path relative to root, e.g. "posts/cat.gif".
// An existing file with the same name gets a random suffix rather than being overwritten.
func SaveImageBytes(root, filename string, data []byte) (string, error) {
	if err := ValidateImage(data); err != nil {
		return "", err
	}
	dir := filepath.Join(root, PostImageDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create media dir: %w", err)
	}

	name := cleanFileName(filename)
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for i := 0; i < 5; i++ {
		f, err := os.OpenFile(filepath.Join(dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, os.ErrExist) {
			name = fmt.Sprintf("%s_%s%s", base, uuid.NewString()[:8], ext)
			continue
		}
		if err != nil {
			return "", err
		}
		if _, err := f.Write(data); err != nil {
			_ = f.Close()
			_ = os.Remove(f.Name())
			return "", err
		}
		if err := f.Close(); err != nil {
			return "", err
		}
		return path.Join(PostImageDir, name), nil
	}
	return "", fmt.Errorf("could not pick a free name for %q", filename)
}

// RemoveMedia deletes a stored file; rel must stay inside root.
func RemoveMedia(root, rel string) error {
	clean := filepath.Clean(filepath.FromSlash(rel))
	if clean == "." || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return fmt.Errorf("refusing to remove %q", rel)
	}
	err := os.Remove(filepath.Join(root, clean))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func cleanFileName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = unsafeNameChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if name == "" {
		name = uuid.NewString()[:8]
	}
	if len(name) > 100 {
		ext := filepath.Ext(name)
		if len(ext) > 10 {
			ext = ""
		}
		name = name[:100-len(ext)] + ext
	}
	return name
}
