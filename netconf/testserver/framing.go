package testserver

import (
	"bufio"
	"bytes"
	"encoding/xml"
	"io"
)

// tokenEOM is the netconf 1.0 end-of-message marker.
var tokenEOM = []byte("]]>]]>")

const maxMessageSize = 1 << 20

// splitEOM is a bufio.SplitFunc that delivers the messages of an end-of-message framed stream.
func splitEOM(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if i := bytes.Index(data, tokenEOM); i >= 0 {
		return i + len(tokenEOM), data[:i], nil
	}
	if atEOF && len(bytes.TrimSpace(data)) > 0 {
		return 0, nil, io.ErrUnexpectedEOF
	}
	return 0, nil, nil
}

func newDecoder(r io.Reader) *bufio.Scanner {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), maxMessageSize)
	s.Split(splitEOM)
	return s
}

type encoder struct {
	w io.Writer
}

// encode writes the xml encoding of msg, followed by the end-of-message marker.
func (e *encoder) encode(msg interface{}) error {
	b, err := xml.Marshal(msg)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	buf.Write(b)
	buf.Write(tokenEOM)
	_, err = e.w.Write(buf.Bytes())
	return err
}
