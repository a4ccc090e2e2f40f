package apiclient

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"strings"

	"github.com/MarcoPoloResearchLab/momentos/internal/moments"
	"github.com/gabriel-vasile/mimetype"
)

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

type formField struct {
	name  string
	value string
}

// encodeMultipart writes text fields in order followed by an optional file part.
func encodeMultipart(fields []formField, image *moments.ImageAttachment) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	for _, field := range fields {
		if err := writer.WriteField(field.name, field.value); err != nil {
			return nil, "", err
		}
	}

	if image != nil {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			quoteEscaper.Replace(string(moments.FieldImage)), quoteEscaper.Replace(image.Filename)))
		header.Set("Content-Type", mimetype.Detect(image.Content).String())
		part, err := writer.CreatePart(header)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(image.Content); err != nil {
			return nil, "", err
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return body, writer.FormDataContentType(), nil
}

func payloadFields(payload moments.Payload) []formField {
	fields := make([]formField, 0, payload.Len())
	for _, field := range payload.Fields() {
		if field == moments.FieldImage {
			continue
		}
		value, _ := payload.Value(field)
		fields = append(fields, formField{name: string(field), value: value})
	}
	return fields
}
