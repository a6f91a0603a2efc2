package proto

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Codec frames and unframes Messages. It is stateless and safe for
// concurrent use — callers each bring their own io.Reader/io.Writer.
type Codec struct{}

// Decode reads exactly one frame from r: type(1) | length(2,BE) |
// payload(length-5) | checksum(2,BE). It never half-consumes on a
// successful return, and never panics on malformed input of a known
// type — every failure mode is a structured error (§4.1.5).
func (Codec) Decode(r io.Reader) (Message, error) {
	var hdr [3]byte
	if _, err := io.ReadFull(r, hdr[:1]); err != nil {
		return Message{}, fmt.Errorf("proto: decode: read type: %w", err)
	}
	t := hdr[0]
	if _, err := io.ReadFull(r, hdr[1:3]); err != nil {
		return Message{}, fmt.Errorf("proto: decode: read length: %w", err)
	}
	length := binary.BigEndian.Uint16(hdr[1:3])
	if length < 5 {
		return Message{}, ErrFraming
	}
	payload := make([]byte, int(length)-5)
	if len(payload) > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return Message{}, fmt.Errorf("proto: decode: read payload: %w", err)
		}
	}
	var cksumBuf [2]byte
	if _, err := io.ReadFull(r, cksumBuf[:]); err != nil {
		return Message{}, fmt.Errorf("proto: decode: read checksum: %w", err)
	}
	declared := binary.BigEndian.Uint16(cksumBuf[:])

	checked := make([]byte, 0, 3+len(payload))
	checked = append(checked, t, hdr[1], hdr[2])
	checked = append(checked, payload...)
	computed := checksum(checked)
	if computed != declared {
		return Message{}, &ChecksumMismatchError{Declared: declared, Computed: computed}
	}

	return decodePayload(MessageType(t), payload)
}

// Encode serializes m into a complete frame. It fails only for a
// structurally ill-formed Message (§4.1.3); it performs no I/O.
func (Codec) Encode(m Message) ([]byte, error) {
	payload, err := encodePayload(m)
	if err != nil {
		return nil, err
	}
	totalLen := len(payload) + 5
	if totalLen > 0xFFFF {
		return nil, ErrFrameTooLarge
	}
	out := make([]byte, 0, totalLen+2)
	out = append(out, byte(m.Type))
	var lb [2]byte
	binary.BigEndian.PutUint16(lb[:], uint16(totalLen))
	out = append(out, lb[:]...)
	out = append(out, payload...)
	cksum := checksum(out)
	var cb [2]byte
	binary.BigEndian.PutUint16(cb[:], cksum)
	return append(out, cb[:]...), nil
}

// EncodeTo builds m's complete frame with Encode and writes it to w in a
// single Write call, returning the number of bytes written.
func (c Codec) EncodeTo(w io.Writer, m Message) (int, error) {
	frame, err := c.Encode(m)
	if err != nil {
		return 0, err
	}
	n, err := w.Write(frame)
	if err != nil {
		return n, fmt.Errorf("proto: encode: write: %w", err)
	}
	return n, nil
}
