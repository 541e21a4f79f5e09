// Package uni provides a reader that normalizes line endings so tab- and
// comma-delimited files exported from spreadsheets split into rows correctly.
package uni

import "io"

// Reader wraps an io.Reader and converts "\r\n" and lone "\r" line endings
// to "\n". Line counts therefore match the source file.
type Reader struct {
	r io.Reader

	// cr is set when the last byte read was a carriage return, so a "\n"
	// starting the next read belongs to the same line ending.
	cr bool
}

func (r *Reader) Read(buf []byte) (int, error) {
	for {
		n, err := r.r.Read(buf)

		j := 0

		for i := 0; i < n; i++ {
			b := buf[i]

			switch {
			case b == '\n' && r.cr:
				r.cr = false
				continue
			case b == '\r':
				r.cr = true
				b = '\n'
			default:
				r.cr = false
			}

			buf[j] = b
			j++
		}

		// A read holding only the "\n" of a split "\r\n" yields nothing;
		// read again rather than return an empty result.
		if j > 0 || n == 0 || err != nil {
			return j, err
		}
	}
}

// New returns a Reader that wraps the passed io.Reader.
func New(r io.Reader) *Reader {
	return &Reader{r: r}
}
