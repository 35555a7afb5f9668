package proxy

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/url"
	"strings"
)

// BodyKind classifies an inbound request body. Every request maps to
// exactly one kind; unsupported content types map to BodyNone.
type BodyKind int

const (
	// BodyNone — no body is forwarded.
	BodyNone BodyKind = iota
	// BodyJSON — application/json, validated and forwarded as JSON.
	BodyJSON
	// BodyForm — application/x-www-form-urlencoded, a flat key/value map.
	BodyForm
	// BodyMultipart — multipart/form-data, passed through byte-for-byte.
	// The raw stream is never decoded so file parts survive intact.
	BodyMultipart
)

// Body is the tagged union of supported request payloads. Exactly one
// of the payload fields is populated, selected by Kind.
type Body struct {
	Kind BodyKind

	// JSON holds the validated JSON document (Kind == BodyJSON).
	JSON json.RawMessage

	// Form holds the parsed form fields (Kind == BodyForm).
	Form url.Values

	// Multipart holds the untouched multipart bytes (Kind == BodyMultipart),
	// and ContentType the original header including the boundary parameter.
	Multipart   []byte
	ContentType string
}

// ParseBody classifies raw according to the declared content type.
// A declared-but-malformed JSON or form body is an error; anything with
// an unrecognized or absent content type yields BodyNone.
func ParseBody(contentType string, raw []byte) (Body, error) {
	mediaType := contentType
	if contentType != "" {
		if mt, _, err := mime.ParseMediaType(contentType); err == nil {
			mediaType = mt
		}
	}

	switch {
	case strings.Contains(mediaType, "application/json"):
		if len(raw) == 0 {
			return Body{Kind: BodyNone}, nil
		}
		if !json.Valid(raw) {
			return Body{}, fmt.Errorf("proxy: invalid JSON body")
		}
		return Body{Kind: BodyJSON, JSON: json.RawMessage(raw)}, nil

	case strings.Contains(mediaType, "application/x-www-form-urlencoded"):
		form, err := url.ParseQuery(string(raw))
		if err != nil {
			return Body{}, fmt.Errorf("proxy: parse form body: %w", err)
		}
		return Body{Kind: BodyForm, Form: form}, nil

	case strings.Contains(mediaType, "multipart/form-data"):
		return Body{Kind: BodyMultipart, Multipart: raw, ContentType: contentType}, nil

	default:
		return Body{Kind: BodyNone}, nil
	}
}

// Encode returns the outbound payload bytes and the content type to
// send with them. BodyNone returns nil bytes and an empty content type.
func (b Body) Encode() ([]byte, string) {
	switch b.Kind {
	case BodyJSON:
		return b.JSON, "application/json"
	case BodyForm:
		return []byte(b.Form.Encode()), "application/x-www-form-urlencoded"
	case BodyMultipart:
		return b.Multipart, b.ContentType
	default:
		return nil, ""
	}
}
