package scgi

import (
	"bytes"
	"io"
	"strconv"
)

var responseEnd = []byte("</methodResponse>")

// frame wraps body in an SCGI request: a netstring of NUL-separated headers
// followed by the raw body.
func frame(body []byte) []byte {
	header := "CONTENT_LENGTH\x00" + strconv.Itoa(len(body)) + "\x00SCGI\x001\x00"

	var buf bytes.Buffer
	buf.Grow(len(header) + len(body) + 8)
	buf.WriteString(strconv.Itoa(len(header)))
	buf.WriteByte(':')
	buf.WriteString(header)
	buf.WriteByte(',')
	buf.Write(body)
	return buf.Bytes()
}

// readResponse accumulates bytes until the closing methodResponse tag shows
// up or the peer closes. complete reports which of the two ended the read.
func readResponse(r io.Reader) (data []byte, complete bool, err error) {
	chunk := make([]byte, 4096)
	for {
		n, readErr := r.Read(chunk)
		if n > 0 {
			from := len(data) - len(responseEnd)
			if from < 0 {
				from = 0
			}
			data = append(data, chunk[:n]...)
			if bytes.Contains(data[from:], responseEnd) {
				return data, true, nil
			}
		}
		if readErr == io.EOF {
			return data, false, nil
		}
		if readErr != nil {
			return data, false, readErr
		}
	}
}
