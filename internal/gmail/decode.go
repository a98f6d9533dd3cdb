package gmail

import (
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"
	gmail "google.golang.org/api/gmail/v1"
)

// ErrDecode is matched by every *DecodeError via errors.Is.
var ErrDecode = errors.New("invalid part encoding")

// DecodeError reports part data that is not valid base64url or does not
// decode to valid text.
type DecodeError struct {
	PartID string
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	prefix := "decode part data"
	if e.PartID != "" {
		prefix = fmt.Sprintf("decode part %s", e.PartID)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Reason)
}

// Unwrap returns the underlying decoder error, if any.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrDecode) true for any DecodeError.
func (e *DecodeError) Is(target error) bool {
	return target == ErrDecode
}

// base64URLReplacer maps the URL-safe alphabet onto the standard one and drops
// line breaks some providers fold long payloads with.
var base64URLReplacer = strings.NewReplacer("-", "+", "_", "/", "\r", "", "\n", "")

// decodeBase64URLBytes decodes base64url data with or without padding.
func decodeBase64URLBytes(s string) ([]byte, error) {
	s = strings.TrimRight(base64URLReplacer.Replace(s), "=")
	data, err := base64.RawStdEncoding.DecodeString(s)
	if err != nil {
		return nil, &DecodeError{Reason: "invalid base64url", Err: err}
	}
	return data, nil
}

// DecodeBase64URL decodes a base64url string and interprets the bytes as UTF-8.
// Invalid alphabet characters, truncated input and invalid UTF-8 all return a
// *DecodeError rather than partially decoded text.
func DecodeBase64URL(s string) (string, error) {
	data, err := decodeBase64URLBytes(s)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		return "", &DecodeError{Reason: "invalid utf-8"}
	}
	return string(data), nil
}

// EncodeBase64URL encodes s without padding, the way Gmail emits part data.
func EncodeBase64URL(s string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(s))
}

// DecodePartData decodes the inline data of a part. A charset declared in the
// part's own Content-Type header is transcoded to UTF-8 first; parts without
// one are treated as UTF-8.
func DecodePartData(part *gmail.MessagePart) (string, error) {
	if part == nil || part.Body == nil || part.Body.Data == "" {
		return "", nil
	}

	cs := partCharset(part)
	if isUTF8Charset(cs) {
		text, err := DecodeBase64URL(part.Body.Data)
		return text, withPartID(err, part.PartId)
	}

	raw, err := decodeBase64URLBytes(part.Body.Data)
	if err != nil {
		return "", withPartID(err, part.PartId)
	}

	enc, err := lookupCharset(cs)
	if err != nil {
		return "", &DecodeError{PartID: part.PartId, Reason: "unknown charset " + cs, Err: err}
	}

	decoded, _, err := transform.Bytes(enc.NewDecoder(), raw)
	if err != nil {
		return "", &DecodeError{PartID: part.PartId, Reason: "charset " + cs, Err: err}
	}
	if !utf8.Valid(decoded) {
		return "", &DecodeError{PartID: part.PartId, Reason: "invalid utf-8"}
	}
	return string(decoded), nil
}

func withPartID(err error, partID string) error {
	var de *DecodeError
	if errors.As(err, &de) && de.PartID == "" {
		de.PartID = partID
	}
	return err
}

// partCharset returns the lower-cased charset parameter of the part's
// Content-Type header, or "" when none is declared.
func partCharset(part *gmail.MessagePart) string {
	for _, h := range part.Headers {
		if h == nil || !strings.EqualFold(h.Name, "Content-Type") {
			continue
		}
		_, params, err := mime.ParseMediaType(h.Value)
		if err != nil {
			return ""
		}
		return strings.ToLower(strings.TrimSpace(params["charset"]))
	}
	return ""
}

func isUTF8Charset(cs string) bool {
	switch cs {
	case "", "utf-8", "utf8", "us-ascii", "ascii":
		return true
	}
	return false
}

func lookupCharset(cs string) (encoding.Encoding, error) {
	switch cs {
	case "latin1", "latin-1":
		return charmap.ISO8859_1, nil
	}
	enc, err := ianaindex.IANA.Encoding(cs)
	if err != nil {
		return nil, err
	}
	if enc == nil {
		return nil, fmt.Errorf("charset %q has no decoder", cs)
	}
	return enc, nil
}
