package verify

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/pykeio/cargo-no-std/pkg/errors"
)

const (
	archiveMagic     = "!<arch>\n"
	memberHeaderSize = 60
	memberTerminator = "`\n"
	bsdNamePrefix    = "#1/"
	gnuLongNames     = "//"
	gnuSymbolTable   = "/"
	gnuSymbolTable64 = "/SYM64/"
	bsdSymbolTable   = "__.SYMDEF"
)

// Member is one file stored in an archive.
type Member struct {
	Name string
	Data []byte
}

// Archive is a parsed ar container. Symbol tables and the GNU long-name
// table are consumed while parsing and are not listed as members.
type Archive struct {
	Members []Member
}

// IsArchive reports whether data starts with the ar magic.
func IsArchive(data []byte) bool {
	return bytes.HasPrefix(data, []byte(archiveMagic))
}

// ParseArchive reads an ar archive in either the GNU or the BSD flavour.
// Member data aliases data.
func ParseArchive(data []byte) (*Archive, error) {
	if !IsArchive(data) {
		return nil, errors.New(errors.ErrCodeArchiveParse, "missing archive magic")
	}

	var (
		a         Archive
		longNames []byte
	)
	off := len(archiveMagic)
	for off < len(data) {
		if len(data)-off < memberHeaderSize {
			return nil, errors.New(errors.ErrCodeArchiveParse, "truncated member header at offset %d", off)
		}
		hdr := data[off : off+memberHeaderSize]
		if string(hdr[58:60]) != memberTerminator {
			return nil, errors.New(errors.ErrCodeArchiveParse, "bad member header terminator at offset %d", off)
		}
		size, err := strconv.ParseUint(strings.TrimSpace(string(hdr[48:58])), 10, 63)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeArchiveParse, err, "bad member size at offset %d", off)
		}
		start := off + memberHeaderSize
		if size > uint64(len(data)-start) {
			return nil, errors.New(errors.ErrCodeArchiveParse, "member at offset %d runs past end of archive", off)
		}
		end := start + int(size)
		body := data[start:end]

		raw := strings.TrimRight(string(hdr[0:16]), " ")
		switch {
		case raw == gnuLongNames:
			longNames = body
		case raw == gnuSymbolTable, raw == gnuSymbolTable64, strings.HasPrefix(raw, bsdSymbolTable):
		default:
			name, content, err := memberName(raw, body, longNames)
			if err != nil {
				return nil, errors.Wrap(errors.ErrCodeArchiveParse, err, "member at offset %d", off)
			}
			if strings.HasPrefix(name, bsdSymbolTable) {
				break
			}
			a.Members = append(a.Members, Member{Name: name, Data: content})
		}

		off = end
		if off%2 == 1 {
			off++
		}
	}
	return &a, nil
}

// memberName decodes a raw header name. BSD long names are stored at the
// front of the member body, which is returned without them.
func memberName(raw string, body, longNames []byte) (string, []byte, error) {
	switch {
	case strings.HasPrefix(raw, bsdNamePrefix):
		n, err := strconv.Atoi(raw[len(bsdNamePrefix):])
		if err != nil || n < 0 || n > len(body) {
			return "", nil, errors.New(errors.ErrCodeArchiveParse, "bad BSD name length %q", raw)
		}
		return strings.TrimRight(string(body[:n]), "\x00"), body[n:], nil

	case strings.HasPrefix(raw, "/"):
		idx, err := strconv.Atoi(raw[1:])
		if err != nil || idx < 0 || idx >= len(longNames) {
			return "", nil, errors.New(errors.ErrCodeArchiveParse, "bad long name reference %q", raw)
		}
		name := longNames[idx:]
		if i := bytes.IndexByte(name, '\n'); i >= 0 {
			name = name[:i]
		}
		return strings.TrimSuffix(string(name), "/"), body, nil
	}
	return strings.TrimSuffix(raw, "/"), body, nil
}

// Objects returns the members that are object files.
func (a *Archive) Objects() []Member {
	var out []Member
	for _, m := range a.Members {
		if strings.HasSuffix(m.Name, ".o") {
			out = append(out, m)
		}
	}
	return out
}
