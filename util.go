package rspdft

import (
	"bytes"
	"io"
)

func newByteReader(b []byte) *bytes.Reader {
	return bytes.NewReader(b)
}

func newReadSeeker(b []byte) io.ReadSeeker {
	return bytes.NewReader(b)
}

func readAll(r io.Reader) ([]byte, error) {
	return io.ReadAll(r)
}
