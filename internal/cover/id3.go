package cover

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"github.com/desertthunder/lyrebird/internal/shared"
)

const (
	headerSize   = 10
	frameHeader  = 10
	defaultMIME  = "image/jpeg"
	flagExtended = 0x40
)

// Synchsafe decodes a 28-bit ID3 synchsafe integer from the first four bytes of b.
func Synchsafe(b []byte) int {
	if len(b) < 4 {
		return 0
	}
	return int(b[0]&0x7f)<<21 | int(b[1]&0x7f)<<14 | int(b[2]&0x7f)<<7 | int(b[3]&0x7f)
}

// Header is the fixed ID3v2 tag header.
type Header struct {
	Version  byte
	Revision byte
	Flags    byte
	Size     int // tag body size, excluding the 10 byte header
}

// End is the offset one past the tag body.
func (h Header) End() int {
	return headerSize + h.Size
}

// ParseHeader reads the ID3v2 header from the start of b.
func ParseHeader(b []byte) (Header, bool) {
	if len(b) < headerSize || string(b[:3]) != "ID3" {
		return Header{}, false
	}
	return Header{Version: b[3], Revision: b[4], Flags: b[5], Size: Synchsafe(b[6:10])}, true
}

// FindPicture scans the frames of an ID3v2.3 or v2.4 tag in buf and decodes the first APIC frame.
func FindPicture(buf []byte) (Picture, error) {
	h, ok := ParseHeader(buf)
	if !ok {
		return Picture{}, fmt.Errorf("%w: no ID3v2 signature", shared.ErrNotFound)
	}
	if h.Version != 3 && h.Version != 4 {
		return Picture{}, fmt.Errorf("%w: unsupported ID3v2.%d", shared.ErrInvalidInput, h.Version)
	}

	end := min(h.End(), len(buf))
	pos := headerSize

	if h.Flags&flagExtended != 0 {
		if pos+4 > end {
			return Picture{}, fmt.Errorf("%w: truncated extended header", shared.ErrInvalidInput)
		}
		if h.Version == 4 {
			pos += Synchsafe(buf[pos : pos+4])
		} else {
			pos += 4 + int(binary.BigEndian.Uint32(buf[pos:pos+4]))
		}
	}

	for pos+frameHeader <= end {
		id := buf[pos : pos+4]
		if id[0] == 0 {
			break
		}

		var size int
		if h.Version == 4 {
			size = Synchsafe(buf[pos+4 : pos+8])
		} else {
			size = int(binary.BigEndian.Uint32(buf[pos+4 : pos+8]))
		}

		body := pos + frameHeader
		if size < 0 || body+size > end {
			break
		}

		if string(id) == "APIC" {
			return parseAPIC(buf[body : body+size])
		}
		pos = body + size
	}

	return Picture{}, fmt.Errorf("%w: no APIC frame", shared.ErrNotFound)
}

// parseAPIC decodes an attached picture frame body.
func parseAPIC(frame []byte) (Picture, error) {
	if len(frame) < 2 {
		return Picture{}, fmt.Errorf("%w: short APIC frame", shared.ErrInvalidInput)
	}

	enc := frame[0]
	rest := frame[1:]

	width := mimeWidth(enc, rest)
	mimeEnd := terminator(rest, width)
	if mimeEnd < 0 {
		return Picture{}, fmt.Errorf("%w: unterminated MIME type", shared.ErrInvalidInput)
	}
	mime := decodeText(rest[:mimeEnd], enc, width)
	rest = rest[mimeEnd+width:]

	if len(rest) < 1 {
		return Picture{}, fmt.Errorf("%w: missing picture type", shared.ErrInvalidInput)
	}
	kind := rest[0]
	rest = rest[1:]

	descWidth := 1
	if enc == 1 || enc == 2 {
		descWidth = 2
	}
	descEnd := terminator(rest, descWidth)
	if descEnd < 0 {
		return Picture{}, fmt.Errorf("%w: unterminated description", shared.ErrInvalidInput)
	}
	desc := decodeText(rest[:descEnd], enc, descWidth)
	data := rest[descEnd+descWidth:]

	if len(data) == 0 {
		return Picture{}, fmt.Errorf("%w: empty picture data", shared.ErrInvalidInput)
	}
	if mime == "" {
		mime = defaultMIME
	}

	return Picture{
		MIME:        normalizeMIME(mime),
		Description: desc,
		Kind:        PictureKind(kind),
		Data:        bytes.Clone(data),
	}, nil
}

// mimeWidth returns the terminator width of the MIME field. The MIME type is Latin-1 by definition, but
// some writers store it in the frame's UTF-16 encoding; those are recognized by their interleaved zero bytes.
func mimeWidth(enc byte, b []byte) int {
	if (enc == 1 || enc == 2) && len(b) >= 2 && b[0] != 0 && b[1] == 0 {
		return 2
	}
	return 1
}

// terminator finds the first NUL of the given width. Double NULs must fall on an even offset.
func terminator(b []byte, width int) int {
	if width == 1 {
		return bytes.IndexByte(b, 0)
	}
	for i := 0; i+1 < len(b); i += 2 {
		if b[i] == 0 && b[i+1] == 0 {
			return i
		}
	}
	return -1
}

func decodeText(b []byte, enc byte, width int) string {
	if len(b) == 0 {
		return ""
	}

	var dec *encoding.Decoder
	switch {
	case enc == 3:
		return string(b)
	case enc == 1 && width == 2:
		dec = unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder()
	case enc == 2 && width == 2:
		dec = unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewDecoder()
	default:
		dec = charmap.ISO8859_1.NewDecoder()
	}

	out, err := dec.Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(out)
}

func normalizeMIME(m string) string {
	m = strings.ToLower(strings.TrimSpace(m))
	switch m {
	case "jpg", "jpeg", "image/jpg":
		return defaultMIME
	case "png":
		return "image/png"
	}
	if !strings.Contains(m, "/") {
		return defaultMIME
	}
	return m
}

var pictureKinds = []string{
	"Other", "File icon", "Other file icon", "Cover (front)", "Cover (back)", "Leaflet page",
	"Media", "Lead artist", "Artist", "Conductor", "Band", "Composer", "Lyricist",
	"Recording location", "During recording", "During performance", "Movie screen capture",
	"Bright coloured fish", "Illustration", "Band logotype", "Publisher logotype",
}

// PictureKind names an APIC picture type byte.
func PictureKind(b byte) string {
	if int(b) < len(pictureKinds) {
		return pictureKinds[b]
	}
	return "Other"
}
