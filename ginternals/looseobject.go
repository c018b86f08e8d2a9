package ginternals

import (
	"bytes"
	"compress/zlib"
	"io"

	"golang.org/x/xerrors"
)

// LooseObjectPath returns the path, relative to the objects directory,
// at which a loose object with the given identifier would be stored:
// the first 2 hex characters as a directory, the remaining 38 as the
// file name.
func LooseObjectPath(oid Oid) string {
	hex := oid.String()
	return hex[0:2] + "/" + hex[2:]
}

// ParsedLooseObject is the decompressed, header-split form of a loose
// object file.
type ParsedLooseObject struct {
	Type    string
	Size    int
	Content []byte
}

// ParseLooseObject decompresses r (a zlib stream) and splits its
// "<type> <size>\0<content>" framing.
func ParseLooseObject(r io.Reader) (*ParsedLooseObject, error) {
	zr, err := zlib.NewReader(r)
	if err != nil {
		return nil, xerrors.Errorf("opening zlib reader: %w", err)
	}
	defer zr.Close() //nolint:errcheck

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, zr); err != nil {
		return nil, xerrors.Errorf("decompressing loose object: %w", err)
	}
	data := buf.Bytes()

	spc := bytes.IndexByte(data, ' ')
	if spc < 0 {
		return nil, xerrors.Errorf("loose object header missing type/size separator")
	}
	typ := string(data[:spc])

	nul := bytes.IndexByte(data[spc:], 0)
	if nul < 0 {
		return nil, xerrors.Errorf("loose object header missing NUL terminator")
	}
	nul += spc

	sizeStr := data[spc+1 : nul]
	size, err := parseDecimal(sizeStr)
	if err != nil {
		return nil, xerrors.Errorf("invalid loose object size %q: %w", sizeStr, err)
	}

	content := data[nul+1:]
	if len(content) != size {
		return nil, xerrors.Errorf("loose object declares size %d, got %d", size, len(content))
	}

	return &ParsedLooseObject{Type: typ, Size: size, Content: content}, nil
}

func parseDecimal(b []byte) (int, error) {
	if len(b) == 0 {
		return 0, xerrors.Errorf("empty size")
	}
	n := 0
	for _, c := range b {
		if c < '0' || c > '9' {
			return 0, xerrors.Errorf("non-digit byte %q", c)
		}
		n = n*10 + int(c-'0')
	}
	return n, nil
}
