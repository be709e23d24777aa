package cli

import (
	"bytes"
	"io"
	"os"
)

// memFile is an in-memory io.ReadWriteSeeker backing a virtual node's
// content when it is supplied directly (random blob, local file read
// once at startup) rather than written incrementally to disk.
type memFile struct {
	buf  *bytes.Reader
	data []byte
}

func newMemFile(data []byte) *memFile {
	return &memFile{buf: bytes.NewReader(data), data: data}
}

func (m *memFile) Read(p []byte) (int, error) { return m.buf.Read(p) }
func (m *memFile) Seek(offset int64, whence int) (int64, error) {
	return m.buf.Seek(offset, whence)
}
func (m *memFile) Write(p []byte) (int, error) {
	m.data = append(m.data[:0], p...)
	m.buf = bytes.NewReader(m.data)
	return len(p), nil
}

// openContentFile opens path for read/write, creating it if necessary —
// the on-disk backing for join-remote, where fetched content must land
// on the filesystem at the operator-supplied PATH.
func openContentFile(path string) (io.ReadWriteSeeker, error) {
	return os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
}
