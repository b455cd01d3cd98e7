package assets

import (
	"errors"
	"image"
	_ "image/gif"  // register decoder
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/webp" // register decoder
)

// ErrUnsupportedFormat is returned for files whose dimensions cannot be read,
// such as SVG.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// Info describes a copied image.
type Info struct {
	Path   string
	Format string
	Width  int
	Height int
	Size   int64
}

// Inspect reads the header of the image at path. Vector formats report
// ErrUnsupportedFormat with Size still populated.
func Inspect(path string) (Info, error) {
	info := Info{Path: path}

	st, err := os.Stat(path)
	if err != nil {
		return info, err
	}
	info.Size = st.Size()

	if strings.EqualFold(filepath.Ext(path), ".svg") {
		info.Format = "svg"
		return info, ErrUnsupportedFormat
	}

	f, err := os.Open(path)
	if err != nil {
		return info, err
	}
	defer func() {
		_ = f.Close()
	}()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return info, ErrUnsupportedFormat
		}
		return info, err
	}
	info.Format = format
	info.Width = cfg.Width
	info.Height = cfg.Height
	return info, nil
}
