// Package stream provides JSONL streaming to/from zip archives.
package stream

import (
	"archive/zip"
	"io"

	"github.com/bytedance/sonic"
)

// Writer streams entities as JSONL to a zip archive.
type Writer struct {
	w     io.Writer
	count int
}

// NewWriter creates a JSONL writer for a path within the zip.
func NewWriter(zw *zip.Writer, path string) (*Writer, error) {
	w, err := zw.Create(path)
	if err != nil {
		return nil, err
	}
	return &Writer{w: w}, nil
}

// Write encodes a single entity as a JSON line.
func (w *Writer) Write(entity any) error {
	data, err := sonic.Marshal(entity)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if _, err := w.w.Write(data); err != nil {
		return err
	}
	w.count++
	return nil
}

// Count returns entities written so far.
func (w *Writer) Count() int {
	return w.count
}
