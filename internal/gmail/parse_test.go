package gmail

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	gmailapi "google.golang.org/api/gmail/v1"
)

func b64(s string) string {
	return base64.URLEncoding.EncodeToString([]byte(s))
}

func TestHeaderValue(t *testing.T) {
	payload := &gmailapi.MessagePart{
		Headers: []*gmailapi.MessagePartHeader{
			{Name: "Subject", Value: "Quarterly report"},
			{Name: "From", Value: "Alice <alice@example.com>"},
		},
	}

	assert.Equal(t, "Quarterly report", headerValue(payload, "Subject"))
	assert.Equal(t, "Alice <alice@example.com>", headerValue(payload, "From"))
	assert.Equal(t, "", headerValue(payload, "Date"))
	assert.Equal(t, "", headerValue(nil, "Subject"))
}

func TestExtractBody_PlainAtTopLevel(t *testing.T) {
	payload := &gmailapi.MessagePart{
		MimeType: "text/plain",
		Body:     &gmailapi.MessagePartBody{Data: b64("plain body")},
	}

	assert.Equal(t, "plain body", extractBody(payload))
}

func TestExtractBody_PlainPreferredOverHTML(t *testing.T) {
	payload := &gmailapi.MessagePart{
		MimeType: "multipart/alternative",
		Parts: []*gmailapi.MessagePart{
			{MimeType: "text/html", Body: &gmailapi.MessagePartBody{Data: b64("<p>html</p>")}},
			{MimeType: "text/plain", Body: &gmailapi.MessagePartBody{Data: b64("plain wins")}},
		},
	}

	assert.Equal(t, "plain wins", extractBody(payload))
}

func TestExtractBody_NestedMultipart(t *testing.T) {
	payload := &gmailapi.MessagePart{
		MimeType: "multipart/mixed",
		Parts: []*gmailapi.MessagePart{
			{
				MimeType: "multipart/alternative",
				Parts: []*gmailapi.MessagePart{
					{MimeType: "text/plain", Body: &gmailapi.MessagePartBody{Data: b64("nested plain")}},
				},
			},
			{MimeType: "application/pdf", Body: &gmailapi.MessagePartBody{AttachmentId: "att1"}},
		},
	}

	assert.Equal(t, "nested plain", extractBody(payload))
}

func TestExtractBody_HTMLFallback(t *testing.T) {
	payload := &gmailapi.MessagePart{
		MimeType: "multipart/alternative",
		Parts: []*gmailapi.MessagePart{
			{MimeType: "text/html", Body: &gmailapi.MessagePartBody{Data: b64("<p>only html</p>")}},
		},
	}

	assert.Equal(t, "<p>only html</p>", extractBody(payload))
}

func TestExtractBody_Empty(t *testing.T) {
	assert.Equal(t, "", extractBody(nil))
	assert.Equal(t, "", extractBody(&gmailapi.MessagePart{MimeType: "multipart/mixed"}))
}

func TestDecodeBody_Encodings(t *testing.T) {
	assert.Equal(t, "hello", decodeBody(base64.URLEncoding.EncodeToString([]byte("hello"))))
	assert.Equal(t, "hello", decodeBody(base64.RawURLEncoding.EncodeToString([]byte("hello"))))
	assert.Equal(t, "", decodeBody("!!not base64!!"))
}
