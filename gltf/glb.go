package gltf

import (
	"encoding/binary"
	"errors"
	"io"
)

// GLB container constants: a 12-byte header (magic, version, total
// length) followed by chunks, each an 8-byte (length, type) pair
// plus payload. The JSON chunk is mandatory and comes first; the
// BIN chunk is optional.
const (
	glbMagic    = 0x46546c67 // "glTF"
	glbJSONType = 0x4e4f534a // "JSON"
	glbBINType  = 0x004e4942 // "BIN\0"
)

var errNotGLB = errors.New("gltf: not a GLB blob")

func readWords(r io.Reader, out []uint32) error {
	return binary.Read(r, binary.LittleEndian, out)
}

// IsGLB consumes r's 12-byte header and reports whether it is a
// version-2 GLB container.
func IsGLB(r io.Reader) bool {
	var hdr [3]uint32
	if readWords(r, hdr[:]) != nil {
		return false
	}
	return hdr[0] == glbMagic && hdr[1] == 2
}

// readChunk consumes one chunk header and returns the payload
// length after checking the chunk type.
func readChunk(r io.Reader, wantType uint32) (int, error) {
	var hdr [2]uint32
	if err := readWords(r, hdr[:]); err != nil {
		return 0, err
	}
	if hdr[1] != wantType {
		return 0, errors.New("gltf: unexpected GLB chunk type")
	}
	return int(hdr[0]), nil
}

// SeekJSON positions r at the JSON chunk's payload and returns its
// length. With io.SeekStart, r must be at the start of an unread
// GLB blob; with io.SeekCurrent, r must already be at the JSON
// chunk header.
func SeekJSON(r io.Reader, whence int) (int, error) {
	switch whence {
	case io.SeekStart:
		if !IsGLB(r) {
			return 0, errNotGLB
		}
	case io.SeekCurrent:
	default:
		return 0, errors.New("gltf: invalid whence value")
	}
	n, err := readChunk(r, glbJSONType)
	if err == nil && n == 0 {
		err = errors.New("gltf: empty JSON chunk")
	}
	return n, err
}

// SeekBIN positions r at the BIN chunk's payload and returns its
// length. With io.SeekStart the JSON chunk is skipped first; with
// io.SeekCurrent, r must already be at the BIN chunk header. The
// BIN chunk is optional, so io.EOF with a zero length reports its
// absence.
func SeekBIN(r io.Reader, whence int) (int, error) {
	switch whence {
	case io.SeekStart:
		n, err := SeekJSON(r, io.SeekStart)
		if err != nil {
			return 0, err
		}
		if err := skip(r, int64(n)); err != nil {
			return 0, err
		}
	case io.SeekCurrent:
	default:
		return 0, errors.New("gltf: invalid whence value")
	}
	return readChunk(r, glbBINType)
}

func skip(r io.Reader, n int64) error {
	if s, ok := r.(io.Seeker); ok {
		_, err := s.Seek(n, io.SeekCurrent)
		return err
	}
	_, err := io.CopyN(io.Discard, r, n)
	return err
}
