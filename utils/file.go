package utils

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalUploader keeps uploads on disk under Dir; they are served at PublicPrefix.
type LocalUploader struct {
	Dir          string
	PublicPrefix string // e.g. "/uploads"
}

func NewLocalUploader(dir, publicPrefix string) (*LocalUploader, error) {
	if err := EnsureUploadDir(dir); err != nil {
		return nil, err
	}
	return &LocalUploader{Dir: dir, PublicPrefix: strings.TrimRight(publicPrefix, "/")}, nil
}

// EnsureUploadDir creates the uploads directory if it doesn't exist
func EnsureUploadDir(dir string) error {
	return os.MkdirAll(dir, os.ModePerm)
}

func (u *LocalUploader) Upload(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	clean := filepath.Clean("/" + key)[1:]
	if clean == "" {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	if err := SaveFile(body, filepath.Join(u.Dir, clean)); err != nil {
		return "", err
	}
	return u.PublicPrefix + "/" + filepath.ToSlash(clean), nil
}

// SaveFile writes r to destPath, creating parent directories as needed.
func SaveFile(r io.Reader, destPath string) error {
	if err := os.MkdirAll(filepath.Dir(destPath), os.ModePerm); err != nil {
		return err
	}

	dst, err := os.Create(destPath)
	if err != nil {
		return err
	}
	defer dst.Close()

	_, err = io.Copy(dst, r)
	return err
}
