package richtext

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// DataURIScheme marks an inline image payload.
const DataURIScheme = "data:"

// ErrInvalidDataURI is returned when an inline image cannot be decoded.
var ErrInvalidDataURI = errors.New("invalid data URI")

// DataURI is a decoded RFC 2397 data URI.
type DataURI struct {
	// MediaType is the declared type, empty when the URI declares none.
	MediaType string
	Data      []byte
}

// ParseDataURI decodes s. The payload is the text after the first comma; a
// URI without a comma is treated as one bare base64 payload.
func ParseDataURI(s string) (DataURI, error) {
	if !strings.HasPrefix(s, DataURIScheme) {
		return DataURI{}, fmt.Errorf("%w: missing %q scheme", ErrInvalidDataURI, DataURIScheme)
	}
	rest := s[len(DataURIScheme):]

	header, payload, found := strings.Cut(rest, ",")
	if !found {
		header, payload = "", rest
	}

	var uri DataURI
	isBase64 := !found
	for i, param := range strings.Split(header, ";") {
		param = strings.TrimSpace(param)
		switch {
		case i == 0 && strings.Contains(param, "/"):
			uri.MediaType = strings.ToLower(param)
		case strings.EqualFold(param, "base64"):
			isBase64 = true
		}
	}

	var err error
	if isBase64 {
		uri.Data, err = decodeBase64(payload)
	} else {
		var text string
		text, err = url.PathUnescape(payload)
		uri.Data = []byte(text)
	}
	if err != nil {
		return DataURI{}, fmt.Errorf("%w: %v", ErrInvalidDataURI, err)
	}
	if len(uri.Data) == 0 {
		return DataURI{}, fmt.Errorf("%w: empty payload", ErrInvalidDataURI)
	}
	return uri, nil
}

// decodeBase64 accepts padded and unpadded, standard and URL-safe alphabets,
// ignoring embedded whitespace.
func decodeBase64(payload string) ([]byte, error) {
	payload = strings.Join(strings.Fields(payload), "")

	var firstErr error
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding,
		base64.RawStdEncoding,
		base64.URLEncoding,
		base64.RawURLEncoding,
	} {
		candidate := payload
		if enc == base64.RawStdEncoding || enc == base64.RawURLEncoding {
			candidate = strings.TrimRight(payload, "=")
		}
		data, err := enc.DecodeString(candidate)
		if err == nil {
			return data, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return nil, firstErr
}
