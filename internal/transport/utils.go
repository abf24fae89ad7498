package transport

import (
	"io"
)

// bodyCloser remembers whether the body was read to the end, which decides
// if the connection below may be reused.
type bodyCloser struct {
	io.Reader
	eof   bool
	close func() error
}

func (b *bodyCloser) Read(p []byte) (int, error) {
	n, err := b.Reader.Read(p)
	if err == io.EOF {
		b.eof = true
	}
	return n, err
}

func (b *bodyCloser) Close() error {
	return b.close()
}

// fixedReader reads a body of exactly n bytes. A stream that ends before
// that is reported as [io.ErrUnexpectedEOF].
type fixedReader struct {
	r io.Reader
	n int64
}

func (f *fixedReader) Read(p []byte) (int, error) {
	if f.n <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > f.n {
		p = p[:f.n]
	}
	n, err := f.r.Read(p)
	f.n -= int64(n)
	if err == io.EOF && f.n > 0 {
		err = io.ErrUnexpectedEOF
	}
	return n, err
}
