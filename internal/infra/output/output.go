// Package output writes result artifacts to local files, stdout or S3.
package output

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Writer stores one artifact at a fixed destination.
type Writer interface {
	Write(ctx context.Context, body []byte) error
	Destination() string
}

// ForDestination picks a writer for dest: "-" is stdout, "s3://bucket/key" is
// an S3 object, anything else a local file path.
func ForDestination(ctx context.Context, dest string, s3cfg S3Config) (Writer, error) {
	switch {
	case dest == "-":
		return NewStreamWriter(os.Stdout, "stdout"), nil
	case strings.HasPrefix(dest, "s3://"):
		bucket, key, err := ParseS3URL(dest)
		if err != nil {
			return nil, err
		}
		s3cfg.Bucket = bucket
		w, err := NewS3Writer(ctx, s3cfg, key)
		if err != nil {
			return nil, err
		}
		return w, nil
	default:
		return NewFileWriter(dest), nil
	}
}

// FileWriter writes the artifact to a local path, replacing it atomically.
type FileWriter struct {
	path string
}

// NewFileWriter creates a writer for path.
func NewFileWriter(path string) *FileWriter {
	return &FileWriter{path: path}
}

// Write implements Writer.
func (f *FileWriter) Write(ctx context.Context, body []byte) error {
	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(f.path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}
	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", f.path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", f.path, err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("failed to move output into place: %w", err)
	}
	return nil
}

// Destination implements Writer.
func (f *FileWriter) Destination() string {
	return f.path
}

// StreamWriter writes the artifact to an io.Writer.
type StreamWriter struct {
	w    io.Writer
	name string
}

// NewStreamWriter creates a writer around w.
func NewStreamWriter(w io.Writer, name string) *StreamWriter {
	return &StreamWriter{w: w, name: name}
}

// Write implements Writer.
func (s *StreamWriter) Write(ctx context.Context, body []byte) error {
	if _, err := s.w.Write(body); err != nil {
		return fmt.Errorf("failed to write %s: %w", s.name, err)
	}
	return nil
}

// Destination implements Writer.
func (s *StreamWriter) Destination() string {
	return s.name
}
