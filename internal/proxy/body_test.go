package proxy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBodyClassification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		contentType string
		raw         string
		want        BodyKind
	}{
		{"json", "application/json", `{"title":"hello"}`, BodyJSON},
		{"json with charset", "application/json; charset=utf-8", `[1,2]`, BodyJSON},
		{"form", "application/x-www-form-urlencoded", "a=1&b=2", BodyForm},
		{"multipart", "multipart/form-data; boundary=xyz", "--xyz--", BodyMultipart},
		{"absent content type", "", "ignored", BodyNone},
		{"unsupported content type", "text/plain", "hello", BodyNone},
		{"octet stream", "application/octet-stream", "\x00\x01", BodyNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			body, err := ParseBody(tt.contentType, []byte(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.want, body.Kind)
		})
	}
}

func TestParseBodyMalformedJSON(t *testing.T) {
	t.Parallel()

	_, err := ParseBody("application/json", []byte(`{"broken`))
	assert.Error(t, err)
}

func TestParseBodyFormFields(t *testing.T) {
	t.Parallel()

	body, err := ParseBody("application/x-www-form-urlencoded", []byte("email=a%40b.com&name=Jo"))
	require.NoError(t, err)
	require.Equal(t, BodyForm, body.Kind)
	assert.Equal(t, "a@b.com", body.Form.Get("email"))
	assert.Equal(t, "Jo", body.Form.Get("name"))
}

func TestParseBodyMultipartUntouched(t *testing.T) {
	t.Parallel()

	raw := []byte("--xyz\r\nContent-Disposition: form-data; name=\"file\"\r\n\r\n\x00binary\xff\r\n--xyz--\r\n")
	contentType := "multipart/form-data; boundary=xyz"

	body, err := ParseBody(contentType, raw)
	require.NoError(t, err)
	require.Equal(t, BodyMultipart, body.Kind)

	// The stream must survive byte-for-byte, boundary included.
	encoded, ct := body.Encode()
	assert.Equal(t, raw, encoded)
	assert.Equal(t, contentType, ct)
}

func TestBodyEncode(t *testing.T) {
	t.Parallel()

	jsonBody, err := ParseBody("application/json", []byte(`{"a":1}`))
	require.NoError(t, err)
	payload, ct := jsonBody.Encode()
	assert.JSONEq(t, `{"a":1}`, string(payload))
	assert.Equal(t, "application/json", ct)

	none, err := ParseBody("", nil)
	require.NoError(t, err)
	payload, ct = none.Encode()
	assert.Nil(t, payload)
	assert.Empty(t, ct)
}
