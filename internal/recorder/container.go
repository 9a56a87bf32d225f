// ABOUTME: Minimal packet container for recorded sessions
// ABOUTME: Header with codec and format, then length-prefixed packets tagged with their audio position
package recorder

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/Resonate-Protocol/resonate-capture/pkg/audio"
)

var magic = [4]byte{'R', 'C', 'A', 'P'}

const (
	containerVersion = 1
	maxPacketSize    = 1 << 20
	maxCodecLength   = 32
)

// Header describes a recorded session
type Header struct {
	Codec     string
	Format    audio.Format
	SessionID string
}

// Packet is one encoded packet. Position is the audio position of its first
// sample in samples per channel.
type Packet struct {
	Position uint64
	Data     []byte
}

// WriteHeader writes the container header
func WriteHeader(w io.Writer, h Header) error {
	if len(h.Codec) > maxCodecLength || len(h.SessionID) > 255 {
		return fmt.Errorf("header field too long")
	}
	buf := make([]byte, 0, 16+len(h.Codec)+len(h.SessionID))
	buf = append(buf, magic[:]...)
	buf = append(buf, containerVersion)
	buf = append(buf, byte(len(h.Codec)))
	buf = append(buf, h.Codec...)
	buf = binary.BigEndian.AppendUint32(buf, uint32(h.Format.SampleRate))
	buf = append(buf, byte(h.Format.Channels))
	buf = append(buf, byte(len(h.SessionID)))
	buf = append(buf, h.SessionID...)

	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	return nil
}

// WritePacket writes one packet
func WritePacket(w io.Writer, p Packet) error {
	var prefix [12]byte
	binary.BigEndian.PutUint64(prefix[0:8], p.Position)
	binary.BigEndian.PutUint32(prefix[8:12], uint32(len(p.Data)))
	if _, err := w.Write(prefix[:]); err != nil {
		return fmt.Errorf("failed to write packet: %w", err)
	}
	if _, err := w.Write(p.Data); err != nil {
		return fmt.Errorf("failed to write packet: %w", err)
	}
	return nil
}

// ReadHeader reads and validates the container header
func ReadHeader(r io.Reader) (Header, error) {
	var fixed [6]byte
	if _, err := io.ReadFull(r, fixed[:]); err != nil {
		return Header{}, fmt.Errorf("failed to read header: %w", err)
	}
	if [4]byte(fixed[:4]) != magic {
		return Header{}, fmt.Errorf("not a capture recording")
	}
	if fixed[4] != containerVersion {
		return Header{}, fmt.Errorf("unsupported container version %d", fixed[4])
	}

	codec := make([]byte, fixed[5])
	if _, err := io.ReadFull(r, codec); err != nil {
		return Header{}, fmt.Errorf("failed to read codec: %w", err)
	}

	var format [6]byte
	if _, err := io.ReadFull(r, format[:]); err != nil {
		return Header{}, fmt.Errorf("failed to read format: %w", err)
	}
	session := make([]byte, format[5])
	if _, err := io.ReadFull(r, session); err != nil {
		return Header{}, fmt.Errorf("failed to read session id: %w", err)
	}

	return Header{
		Codec: string(codec),
		Format: audio.Format{
			SampleRate: int(binary.BigEndian.Uint32(format[0:4])),
			Channels:   int(format[4]),
		},
		SessionID: string(session),
	}, nil
}

// ReadPacket reads the next packet, returning io.EOF at a clean end
func ReadPacket(r io.Reader) (Packet, error) {
	var prefix [12]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return Packet{}, fmt.Errorf("truncated packet header: %w", err)
		}
		return Packet{}, err
	}
	size := binary.BigEndian.Uint32(prefix[8:12])
	if size > maxPacketSize {
		return Packet{}, fmt.Errorf("packet too large: %d bytes", size)
	}
	data := make([]byte, size)
	if _, err := io.ReadFull(r, data); err != nil {
		return Packet{}, fmt.Errorf("truncated packet: %w", err)
	}
	return Packet{Position: binary.BigEndian.Uint64(prefix[0:8]), Data: data}, nil
}
