package media

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrNotDataURI     = errors.New("not a base64 data URI")
	ErrWrongMediaType = errors.New("unexpected media type")
	ErrEmptyPayload   = errors.New("empty payload")
)

// File is a decoded data URI such as "data:audio/mpeg;base64,....".
type File struct {
	Type    string
	Subtype string
	Data    []byte
}

// ContentType returns "type/subtype".
func (f File) ContentType() string {
	return f.Type + "/" + f.Subtype
}

// Extension is the subtype with any "+suffix" or "x-" prefix removed.
func (f File) Extension() string {
	ext := f.Subtype
	if i := strings.IndexByte(ext, '+'); i >= 0 {
		ext = ext[:i]
	}
	ext = strings.TrimPrefix(ext, "x-")
	if ext == "mpeg" && f.Type == "audio" {
		return "mp3"
	}
	return ext
}

// Parse decodes a base64 data URI whose top-level media type is wantType.
func Parse(uri, wantType string) (*File, error) {
	if !strings.HasPrefix(uri, "data:") {
		return nil, ErrNotDataURI
	}
	header, payload, ok := strings.Cut(uri[len("data:"):], ",")
	if !ok {
		return nil, ErrNotDataURI
	}

	params := strings.Split(header, ";")
	if len(params) < 2 || params[len(params)-1] != "base64" {
		return nil, ErrNotDataURI
	}

	mediaType, subtype, ok := strings.Cut(strings.ToLower(params[0]), "/")
	if !ok || subtype == "" {
		return nil, ErrNotDataURI
	}
	if wantType != "" && mediaType != wantType {
		return nil, fmt.Errorf("%w: got %s, want %s", ErrWrongMediaType, mediaType, wantType)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode payload: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyPayload
	}

	return &File{Type: mediaType, Subtype: subtype, Data: data}, nil
}

// Key builds a unique object key under prefix.
func Key(prefix, ext string) string {
	name := uuid.NewString()
	if ext != "" {
		name += "." + ext
	}
	if prefix == "" {
		return name
	}
	return strings.TrimRight(prefix, "/") + "/" + name
}
