package proto

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
)

var ErrMalformedRequest = errors.New("malformed request")

var (
	lineDelimiter   = []byte("\r\n")
	headerDelimiter = []byte("\r\n\r\n")
)

// SplitHeaderAndBody splits the first n bytes of buf at the first CRLFCRLF.
// The header part is returned as CRLF-separated lines in wire order and the
// body as the bytes following the delimiter. A buffer without the delimiter is
// rejected; partial headers are never completed by a later read.
func SplitHeaderAndBody(buf []byte, n int) ([]string, []byte, error) {
	if n < 0 || n > len(buf) {
		n = len(buf)
	}

	data := buf[:n]

	cutoff := bytes.Index(data, headerDelimiter)
	if cutoff < 0 {
		return nil, nil, fmt.Errorf("%w: header delimiter not found in %d bytes", ErrMalformedRequest, n)
	}

	lines := strings.Split(string(data[:cutoff]), string(lineDelimiter))
	body := append([]byte(nil), data[cutoff+len(headerDelimiter):]...)

	return lines, body, nil
}

// Assemble joins header lines with CRLF, terminates the header block with
// CRLFCRLF and appends body verbatim.
func Assemble(lines []string, body []byte) []byte {
	header := strings.Join(lines, string(lineDelimiter))

	out := make([]byte, 0, len(header)+len(headerDelimiter)+len(body))
	out = append(out, header...)
	out = append(out, headerDelimiter...)
	out = append(out, body...)

	return out
}
