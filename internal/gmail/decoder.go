package gmail

import (
	"encoding/base64"
	"strings"
	"time"

	"google.golang.org/api/gmail/v1"

	"medvault/internal/model"
)

// BuildEmailMessage converts a full-format provider message into the
// decoded form used by classification and attachment collection.
func BuildEmailMessage(msg *gmail.Message) *model.EmailMessage {
	email := &model.EmailMessage{
		ID:   msg.Id,
		Date: time.Unix(msg.InternalDate/1000, 0),
	}

	if msg.Payload == nil {
		return email
	}

	for _, header := range msg.Payload.Headers {
		switch header.Name {
		case "Subject":
			email.Subject = header.Value
		case "From":
			email.From = header.Value
		case "Date":
			if parsed, err := time.Parse(time.RFC1123Z, header.Value); err == nil {
				email.Date = parsed
			}
		}
	}

	email.Body, email.Attachments = DecodePayload(msg.Payload)
	return email
}

// DecodePayload walks a MIME part tree in pre-order, concatenating decoded
// text bodies in encounter order and collecting attachment references. A
// part counts as an attachment when it carries both an attachment id and a
// filename; undecodable body parts are skipped rather than failing the
// whole message.
func DecodePayload(payload *gmail.MessagePart) (string, []model.AttachmentRef) {
	var body strings.Builder
	var attachments []model.AttachmentRef
	walkPart(payload, &body, &attachments)
	return body.String(), attachments
}

func walkPart(part *gmail.MessagePart, body *strings.Builder, attachments *[]model.AttachmentRef) {
	if part == nil {
		return
	}

	if part.Body != nil && part.Body.AttachmentId != "" && part.Filename != "" {
		*attachments = append(*attachments, model.AttachmentRef{
			ID:       part.Body.AttachmentId,
			Filename: part.Filename,
			MimeType: part.MimeType,
		})
	} else if part.Body != nil && part.Body.Data != "" && isTextPart(part.MimeType) {
		if decoded, err := base64.URLEncoding.DecodeString(part.Body.Data); err == nil {
			body.Write(decoded)
		}
	}

	for _, child := range part.Parts {
		walkPart(child, body, attachments)
	}
}

func isTextPart(mimeType string) bool {
	return mimeType == "text/plain" || mimeType == "text/html"
}

// IsPDFAttachment reports whether a reference looks like a PDF, by declared
// mime type or by filename extension.
func IsPDFAttachment(ref model.AttachmentRef) bool {
	if ref.MimeType == "application/pdf" {
		return true
	}
	return strings.HasSuffix(strings.ToLower(ref.Filename), ".pdf")
}
