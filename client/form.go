package client

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
)

// Form is a multipart/form-data request body. Field order is preserved.
type Form struct {
	fields []formField
	file   *FormFile
}

type formField struct {
	name, value string
}

// FormFile is a file part of a Form.
type FormFile struct {
	Field    string
	Filename string
	Content  io.Reader
}

// OpenFormFile opens path as the content of a file part named field.
// The caller closes the returned file once the request has been sent.
func OpenFormFile(field, path string) (*FormFile, *os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return &FormFile{Field: field, Filename: filepath.Base(path), Content: f}, f, nil
}

// NewForm returns an empty Form.
func NewForm() *Form { return &Form{} }

// Set appends a text field.
func (f *Form) Set(name, value string) *Form {
	f.fields = append(f.fields, formField{name: name, value: value})
	return f
}

// AttachFile sets the single file part of the form.
func (f *Form) AttachFile(file *FormFile) *Form {
	f.file = file
	return f
}

// encode renders the form once so the same bytes can be replayed on retry.
func (f *Form) encode() ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, field := range f.fields {
		if err := w.WriteField(field.name, field.value); err != nil {
			return nil, "", fmt.Errorf("failed to write form field %s: %w", field.name, err)
		}
	}
	if f.file != nil && f.file.Content != nil {
		part, err := w.CreateFormFile(f.file.Field, f.file.Filename)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create form file %s: %w", f.file.Field, err)
		}
		if _, err := io.Copy(part, f.file.Content); err != nil {
			return nil, "", fmt.Errorf("failed to read form file %s: %w", f.file.Filename, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finalize multipart body: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
