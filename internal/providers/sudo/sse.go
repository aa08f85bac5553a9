package sudo

import (
	"bufio"
	"bytes"
	"io"
)

// SSEReader parses Server-Sent Events from a stream.
type SSEReader struct {
	reader *bufio.Reader
}

// NewSSEReader creates a new SSE reader from an io.Reader.
func NewSSEReader(r io.Reader) *SSEReader {
	return &SSEReader{
		reader: bufio.NewReader(r),
	}
}

// ReadEvent reads the next event and returns its type and data. Multi-line data
// fields are joined with "\n". Comments and id/retry fields are skipped, as are
// events without data. It returns io.EOF when the stream ends.
func (s *SSEReader) ReadEvent() (string, []byte, error) {
	var eventType string
	var dataLines [][]byte

	for {
		line, err := s.reader.ReadBytes('\n')
		if err != nil && !(err == io.EOF && len(line) > 0) {
			if err == io.EOF && len(dataLines) > 0 {
				return eventType, bytes.Join(dataLines, []byte("\n")), nil
			}
			return "", nil, err
		}

		line = bytes.TrimRight(line, "\r\n")

		if len(line) == 0 {
			if len(dataLines) > 0 {
				return eventType, bytes.Join(dataLines, []byte("\n")), nil
			}
			eventType = ""
			continue
		}

		field, value := splitField(line)
		switch field {
		case "event":
			eventType = string(value)
		case "data":
			dataLines = append(dataLines, value)
		}
	}
}

// splitField splits "field: value", dropping a single space after the colon.
// Lines starting with ':' are comments and yield an empty field.
func splitField(line []byte) (string, []byte) {
	if line[0] == ':' {
		return "", nil
	}
	idx := bytes.IndexByte(line, ':')
	if idx < 0 {
		return string(line), nil
	}
	value := line[idx+1:]
	if len(value) > 0 && value[0] == ' ' {
		value = value[1:]
	}
	return string(line[:idx]), value
}
