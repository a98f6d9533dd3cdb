package gmail

import (
	"encoding/base64"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gmail "google.golang.org/api/gmail/v1"
)

func TestDecodeBase64URL(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "ascii without padding",
			input: base64.RawURLEncoding.EncodeToString([]byte("Hello")),
			want:  "Hello",
		},
		{
			name:  "ascii with padding",
			input: base64.URLEncoding.EncodeToString([]byte("Hello")),
			want:  "Hello",
		},
		{
			name:  "url alphabet characters",
			input: base64.RawURLEncoding.EncodeToString([]byte("??>>")),
			want:  "??>>",
		},
		{
			name:  "multi-byte utf-8",
			input: base64.RawURLEncoding.EncodeToString([]byte("Grüße, 世界 👋")),
			want:  "Grüße, 世界 👋",
		},
		{
			name:  "folded lines",
			input: "SGVs\r\nbG8",
			want:  "Hello",
		},
		{
			name:  "empty",
			input: "",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeBase64URL(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeBase64URL_RoundTrip(t *testing.T) {
	inputs := []string{
		"",
		"a",
		"ab",
		"abc",
		"<html><body>ÄÖÜ</body></html>",
		"line1\r\nline2\n",
		"日本語のテキスト",
	}

	for _, s := range inputs {
		got, err := DecodeBase64URL(EncodeBase64URL(s))
		require.NoError(t, err, "input %q", s)
		assert.Equal(t, s, got)
	}
}

func TestDecodeBase64URL_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		reason string
	}{
		{
			name:   "character outside alphabet",
			input:  "SGV$bG8",
			reason: "invalid base64url",
		},
		{
			name:   "truncated quantum",
			input:  "SGVsb",
			reason: "invalid base64url",
		},
		{
			name:   "invalid utf-8",
			input:  base64.RawURLEncoding.EncodeToString([]byte{0xff, 0xfe, 0xfd}),
			reason: "invalid utf-8",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeBase64URL(tt.input)
			require.Error(t, err)
			assert.Empty(t, got)
			assert.True(t, errors.Is(err, ErrDecode))

			var de *DecodeError
			require.True(t, errors.As(err, &de))
			assert.Equal(t, tt.reason, de.Reason)
		})
	}
}

func TestDecodePartData(t *testing.T) {
	withCharset := func(charset string, raw []byte) *gmail.MessagePart {
		return &gmail.MessagePart{
			PartId:   "1",
			MimeType: "text/plain",
			Headers: []*gmail.MessagePartHeader{
				{Name: "Content-Type", Value: "text/plain; charset=\"" + charset + "\""},
			},
			Body: &gmail.MessagePartBody{Data: base64.RawURLEncoding.EncodeToString(raw)},
		}
	}

	tests := []struct {
		name string
		part *gmail.MessagePart
		want string
	}{
		{
			name: "nil part",
			part: nil,
			want: "",
		},
		{
			name: "no body",
			part: &gmail.MessagePart{MimeType: "text/plain"},
			want: "",
		},
		{
			name: "no content type header",
			part: &gmail.MessagePart{MimeType: "text/plain", Body: &gmail.MessagePartBody{Data: EncodeBase64URL("café")}},
			want: "café",
		},
		{
			name: "utf-8 declared",
			part: withCharset("UTF-8", []byte("café")),
			want: "café",
		},
		{
			name: "iso-8859-1",
			part: withCharset("iso-8859-1", []byte("caf\xe9")),
			want: "café",
		},
		{
			name: "latin1 alias",
			part: withCharset("latin1", []byte("na\xefve")),
			want: "naïve",
		},
		{
			name: "windows-1252",
			part: withCharset("windows-1252", []byte("\x80 5")),
			want: "€ 5",
		},
		{
			name: "shift_jis",
			part: withCharset("Shift_JIS", []byte("\x93\xfa\x96\x7b")),
			want: "日本",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodePartData(tt.part)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodePartData_Errors(t *testing.T) {
	t.Run("unknown charset", func(t *testing.T) {
		part := &gmail.MessagePart{
			PartId:   "0.1",
			MimeType: "text/plain",
			Headers:  []*gmail.MessagePartHeader{{Name: "content-type", Value: "text/plain; charset=x-no-such-charset"}},
			Body:     &gmail.MessagePartBody{Data: EncodeBase64URL("abc")},
		}
		_, err := DecodePartData(part)
		require.ErrorIs(t, err, ErrDecode)

		var de *DecodeError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, "0.1", de.PartID)
		assert.Contains(t, err.Error(), "decode part 0.1")
	})

	t.Run("bad base64 carries part id", func(t *testing.T) {
		part := &gmail.MessagePart{
			PartId:   "2",
			MimeType: "text/html",
			Body:     &gmail.MessagePartBody{Data: "!!!"},
		}
		_, err := DecodePartData(part)

		var de *DecodeError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, "2", de.PartID)
		assert.Equal(t, "invalid base64url", de.Reason)
	})
}
