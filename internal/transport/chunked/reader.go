package chunked

import (
	"bufio"
	"errors"
	"io"
)

var (
	ErrMalformed = errors.New("chunked: malformed chunked encoding")
	ErrTooLarge  = errors.New("chunked: chunk length too large")
)

// NewChunkedReader decodes a chunked transfer-coded body. Chunk extensions
// are ignored and trailers are consumed and dropped, leaving r positioned
// right after the message.
func NewChunkedReader(r io.Reader) io.Reader {
	var br *bufio.Reader
	if v, ok := r.(*bufio.Reader); ok {
		br = v
	} else {
		br = bufio.NewReader(r)
	}
	return &chunkedReader{br: br}
}

type chunkedReader struct {
	br        *bufio.Reader
	remaining int64 // bytes left in the current chunk
	inChunk   bool
	done      bool
}

func (c *chunkedReader) readLine() ([]byte, error) {
	var line []byte
	for {
		part, isPrefix, err := c.br.ReadLine()
		if err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return nil, err
		}
		line = append(line, part...)
		if len(line) > 4096 {
			return nil, ErrTooLarge
		}
		if !isPrefix {
			return line, nil
		}
	}
}

func (c *chunkedReader) readChunkHeader() (n int64, err error) {
	line, err := c.readLine()
	if err != nil {
		return 0, err
	}
	digits := 0
	for _, b := range line {
		switch {
		case '0' <= b && b <= '9':
			b = b - '0'
		case 'a' <= b && b <= 'f':
			b = b - 'a' + 10
		case 'A' <= b && b <= 'F':
			b = b - 'A' + 10
		case b == ';' || b == ' ' || b == '\t':
			// chunk extension or whitespace before it
			if digits == 0 {
				return 0, ErrMalformed
			}
			return n, nil
		default:
			return 0, ErrMalformed
		}
		if digits++; digits > 15 {
			return 0, ErrTooLarge
		}
		n = n<<4 | int64(b)
	}
	if digits == 0 {
		return 0, ErrMalformed
	}
	return n, nil
}

func (c *chunkedReader) skipTrailers() error {
	for {
		line, err := c.readLine()
		if err != nil {
			return err
		}
		if len(line) == 0 {
			return nil
		}
	}
}

func (c *chunkedReader) Read(p []byte) (n int, err error) {
	if c.done {
		return 0, io.EOF
	}
	if !c.inChunk {
		size, err := c.readChunkHeader()
		if err != nil {
			return 0, err
		}
		if size == 0 {
			if err := c.skipTrailers(); err != nil {
				return 0, err
			}
			c.done = true
			return 0, io.EOF
		}
		c.remaining, c.inChunk = size, true
	}
	if int64(len(p)) > c.remaining {
		p = p[:c.remaining]
	}
	n, err = c.br.Read(p)
	c.remaining -= int64(n)
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	if err == nil && c.remaining == 0 {
		cr, _ := c.br.ReadByte()
		lf, rerr := c.br.ReadByte()
		if rerr != nil {
			if rerr == io.EOF {
				rerr = io.ErrUnexpectedEOF
			}
			return n, rerr
		}
		if cr != '\r' || lf != '\n' {
			return n, ErrMalformed
		}
		c.inChunk = false
	}
	return n, err
}
