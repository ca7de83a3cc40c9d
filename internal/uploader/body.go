package uploader

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"

	"github.com/google/uuid"
	"github.com/jonno85/video-uploader/internal/domain"
)

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func newBoundary() string {
	return "Boundary-" + uuid.NewString()
}

// multipartBody streams a single-part form: a pre-rendered head, the file content and the closing delimiter.
type multipartBody struct {
	io.Reader
	contentType string
	length      int64
}

func newMultipartBody(req domain.UploadRequest, content io.Reader, size int64, boundary string) (*multipartBody, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.SetBoundary(boundary); err != nil {
		return nil, fmt.Errorf("invalid boundary: %w", err)
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(domain.FormFieldName), quoteEscaper.Replace(req.FileName)))
	header.Set("Content-Type", req.MimeType)
	if _, err := mw.CreatePart(header); err != nil {
		return nil, fmt.Errorf("failed to write part header: %w", err)
	}
	head := bytes.Clone(buf.Bytes())

	buf.Reset()
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to write closing boundary: %w", err)
	}
	tail := bytes.Clone(buf.Bytes())

	return &multipartBody{
		Reader:      io.MultiReader(bytes.NewReader(head), io.LimitReader(content, size), bytes.NewReader(tail)),
		contentType: mw.FormDataContentType(),
		length:      int64(len(head)) + size + int64(len(tail)),
	}, nil
}
