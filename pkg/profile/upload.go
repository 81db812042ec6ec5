package profile

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/terraconstructs/blogdesk/pkg/sdk"
)

// ErrNotImage is returned when a selected file is not an image.
var ErrNotImage = errors.New("selected file is not an image")

// PendingUpload is a selected replacement avatar together with a local preview.
// The preview is a temporary file and must be released exactly once.
type PendingUpload struct {
	File       sdk.Upload
	PreviewURI string

	path string
	once sync.Once
}

// NewPendingUpload writes file to a temporary preview location.
func NewPendingUpload(file sdk.Upload) (*PendingUpload, error) {
	if file.ContentType == "" {
		file.ContentType = http.DetectContentType(file.Data)
	}
	if !strings.HasPrefix(file.ContentType, "image/") {
		return nil, fmt.Errorf("%w: %s", ErrNotImage, file.ContentType)
	}

	tmp, err := os.CreateTemp("", "blogdesk-preview-*"+filepath.Ext(file.Filename))
	if err != nil {
		return nil, fmt.Errorf("create preview: %w", err)
	}
	if _, err := tmp.Write(file.Data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("write preview: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("write preview: %w", err)
	}

	return &PendingUpload{
		File:       file,
		PreviewURI: (&url.URL{Scheme: "file", Path: filepath.ToSlash(tmp.Name())}).String(),
		path:       tmp.Name(),
	}, nil
}

// Release removes the preview. Further calls are no-ops.
func (p *PendingUpload) Release() error {
	if p == nil {
		return nil
	}
	var err error
	p.once.Do(func() {
		if rmErr := os.Remove(p.path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			err = rmErr
		}
	})
	return err
}

// LoadUpload reads an image from disk for SelectImage.
func LoadUpload(path string) (sdk.Upload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return sdk.Upload{}, fmt.Errorf("read %s: %w", path, err)
	}

	ct := mime.TypeByExtension(filepath.Ext(path))
	if ct == "" {
		ct = http.DetectContentType(data)
	}
	if mt, _, err := mime.ParseMediaType(ct); err == nil {
		ct = mt
	}

	return sdk.Upload{
		Filename:    filepath.Base(path),
		ContentType: ct,
		Data:        data,
	}, nil
}
