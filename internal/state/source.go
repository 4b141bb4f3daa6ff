package state

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
)

// ImageSource is an image reference handed in by an input handler: the
// original file name plus its encoded bytes.
type ImageSource struct {
	Name string
	Size int64
	Data []byte
}

// NewImageSource wraps already read bytes.
func NewImageSource(name string, data []byte) *ImageSource {
	return &ImageSource{Name: name, Size: int64(len(data)), Data: data}
}

// ReadImageSource reads at most limit bytes from r. A negative limit means no limit.
func ReadImageSource(name string, r io.Reader, limit int64) (*ImageSource, error) {
	if limit >= 0 {
		r = io.LimitReader(r, limit+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	if limit >= 0 && int64(len(data)) > limit {
		return nil, fmt.Errorf("read %s: image larger than %d bytes", name, limit)
	}
	return NewImageSource(name, data), nil
}

// LoadImageSource reads an image file from disk.
func LoadImageSource(path string) (*ImageSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return NewImageSource(filepath.Base(path), data), nil
}

// Key identifies the source by name and byte size. Two different files with
// the same name and size share a key.
func (src *ImageSource) Key() string {
	return src.Name + ":" + strconv.FormatInt(src.Size, 10)
}

func (src *ImageSource) Empty() bool {
	return src == nil || len(src.Data) == 0
}
