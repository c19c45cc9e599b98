// Package logsource defines the narrow boundary between the verifier
// and the packet capture pipeline that feeds it candidate logs. Real
// PCAP capture and parsing is an external collaborator and is
// deliberately not implemented here; this package only gives that
// collaborator a shape to fill in.
package logsource

import (
	"encoding/binary"
	"errors"
	"io"
	"os"
)

// Source yields the packets a verifier treats as its candidate,
// ground-truth log, one at a time in capture order. Next returns
// ok=false (with a nil error) once the log is exhausted.
type Source interface {
	Next() (elem []byte, ok bool, err error)
	Close() error
}

// LengthPrefixedFileSource reads a file of records, each a 4-byte
// little-endian length followed by that many payload bytes — a format
// simple enough to stand in for PCAP framing in tests and local runs
// without pulling in a packet-capture library.
type LengthPrefixedFileSource struct {
	f *os.File
}

// OpenLengthPrefixedFile opens path for reading as a LengthPrefixedFileSource.
func OpenLengthPrefixedFile(path string) (*LengthPrefixedFileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &LengthPrefixedFileSource{f: f}, nil
}

// Next reads the next length-prefixed record.
func (s *LengthPrefixedFileSource) Next() ([]byte, bool, error) {
	var lenBuf [4]byte
	_, err := io.ReadFull(s.f, lenBuf[:])
	if errors.Is(err, io.EOF) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	n := binary.LittleEndian.Uint32(lenBuf[:])
	payload := make([]byte, n)
	if _, err := io.ReadFull(s.f, payload); err != nil {
		return nil, false, err
	}
	return payload, true, nil
}

func (s *LengthPrefixedFileSource) Close() error {
	return s.f.Close()
}

// ReadAll drains a Source into a slice, the shape every accumulator's
// Validate and ProcessBatch consume.
func ReadAll(src Source) ([][]byte, error) {
	var out [][]byte
	for {
		elem, ok, err := src.Next()
		if err != nil {
			return out, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, elem)
	}
}
