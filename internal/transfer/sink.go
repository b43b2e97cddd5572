package transfer

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
)

// Sink stores an incoming file. The receiver calls Begin once per Meta,
// Write for each chunk, then exactly one of Commit or Discard.
type Sink interface {
	Begin(meta Meta) error
	Write(p []byte) error
	Commit() error
	Discard()
}

// File is a completed in-memory transfer.
type File struct {
	Name string
	Data []byte
}

// maxPrealloc bounds how much of a declared size is reserved up front.
const maxPrealloc = 64 << 20

// MemorySink buffers chunks and hands the whole file to Deliver on commit.
type MemorySink struct {
	Deliver func(File)

	name string
	buf  bytes.Buffer
}

func (m *MemorySink) Begin(meta Meta) error {
	m.name = meta.Name
	m.buf.Reset()
	m.buf.Grow(int(min(meta.Size, maxPrealloc)))
	return nil
}

func (m *MemorySink) Write(p []byte) error {
	m.buf.Write(p)
	return nil
}

func (m *MemorySink) Commit() error {
	data := bytes.Clone(m.buf.Bytes())
	if data == nil {
		data = []byte{}
	}
	f := File{Name: m.name, Data: data}
	m.buf.Reset()
	if m.Deliver != nil {
		m.Deliver(f)
	}
	return nil
}

func (m *MemorySink) Discard() {
	m.name = ""
	m.buf.Reset()
}

// DiskSink writes into a temporary file inside Dir and renames it to a free
// name derived from the sender's file name on commit. Name picks the final
// path from the announced name and must return a path inside Dir.
type DiskSink struct {
	Dir  string
	Name func(dir, announced string) string

	// Saved receives the final path after each commit.
	Saved func(path string, size int64)

	file    *os.File
	meta    Meta
	written int64
}

func (d *DiskSink) Begin(meta Meta) error {
	d.Discard()
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return NewFileError("create directory", d.Dir, err)
	}
	f, err := os.CreateTemp(d.Dir, ".roomdrop-*.part")
	if err != nil {
		return NewFileError("create file", meta.Name, err)
	}
	d.file, d.meta, d.written = f, meta, 0
	return nil
}

func (d *DiskSink) Write(p []byte) error {
	if d.file == nil {
		return NewError("write", ErrUnexpectedFrame)
	}
	n, err := d.file.Write(p)
	d.written += int64(n)
	if err != nil {
		return NewFileError("write", d.meta.Name, err)
	}
	return nil
}

func (d *DiskSink) Commit() error {
	if d.file == nil {
		return NewError("commit", ErrUnexpectedFrame)
	}
	tmp := d.file.Name()
	if err := d.file.Close(); err != nil {
		d.file = nil
		os.Remove(tmp)
		return NewFileError("close", d.meta.Name, err)
	}
	d.file = nil

	final := filepath.Join(d.Dir, filepath.Base(d.meta.Name))
	if d.Name != nil {
		final = d.Name(d.Dir, d.meta.Name)
	}
	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return &TransferError{Op: "save", File: d.meta.Name, Err: err, Details: fmt.Sprintf("to %s", final)}
	}
	if d.Saved != nil {
		d.Saved(final, d.written)
	}
	return nil
}

func (d *DiskSink) Discard() {
	if d.file == nil {
		return
	}
	tmp := d.file.Name()
	d.file.Close()
	os.Remove(tmp)
	d.file = nil
}
