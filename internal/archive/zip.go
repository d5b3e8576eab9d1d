// Package archive packages a finished batch into a single ZIP download.
package archive

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/zip"
)

// Writer streams batch outputs into a ZIP archive. Entries are written in
// the order they are added, so callers can append results as the batch
// engine emits them without buffering the whole set.
type Writer struct {
	zw      *zip.Writer
	entries int
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{zw: zip.NewWriter(w)}
}

// Add appends one named file. JPEG payloads are stored uncompressed since
// deflating them again buys nothing.
func (w *Writer) Add(name string, data []byte) error {
	fw, err := w.zw.CreateHeader(&zip.FileHeader{
		Name:   name,
		Method: zip.Store,
	})
	if err != nil {
		return fmt.Errorf("create zip entry %q: %w", name, err)
	}
	if _, err := fw.Write(data); err != nil {
		return fmt.Errorf("write zip entry %q: %w", name, err)
	}
	w.entries++
	return nil
}

// Entries returns how many files have been added.
func (w *Writer) Entries() int { return w.entries }

// Close finalizes the central directory. The archive is unreadable until
// Close has returned.
func (w *Writer) Close() error {
	return w.zw.Close()
}
