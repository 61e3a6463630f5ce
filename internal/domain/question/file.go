package question

import (
	"encoding/base64"
	"slices"
	"strings"
)

// Upload is a decoded file payload waiting to be written to the blob store.
type Upload struct {
	Data      []byte
	MimeType  string
	Extension string
}

// subtypeExtensions covers mime subtypes whose name is not the usual extension.
var subtypeExtensions = map[string]string{
	"msword":       "doc",
	"vnd.ms-excel": "xls",
	"plain":        "txt",
	"jpeg":         "jpg",
	"svg+xml":      "svg",

	"vnd.openxmlformats-officedocument.wordprocessingml.document": "docx",
	"vnd.openxmlformats-officedocument.spreadsheetml.sheet":       "xlsx",
}

// ParseFilePayload splits "[data:]<mime>;base64,<data>" and decodes the data.
func ParseFilePayload(payload string) (*Upload, error) {
	payload = strings.TrimPrefix(strings.TrimSpace(payload), "data:")
	header, data, ok := strings.Cut(payload, ";base64,")
	if !ok || header == "" {
		return nil, fileErr("file must be encoded as <mime>;base64,<data>")
	}
	mimeType := strings.ToLower(header)
	_, subtype, ok := strings.Cut(mimeType, "/")
	if !ok || subtype == "" {
		return nil, fileErr("invalid mime type %q", header)
	}

	decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fileErr("file content is not valid base64")
	}
	if len(decoded) == 0 {
		return nil, fileErr("file is empty")
	}

	ext := subtype
	if alias, ok := subtypeExtensions[subtype]; ok {
		ext = alias
	}
	return &Upload{Data: decoded, MimeType: mimeType, Extension: ext}, nil
}

func validateFile(s FileSettings, payload string) (Value, *Upload, error) {
	up, err := ParseFilePayload(payload)
	if err != nil {
		return nil, nil, err
	}
	if !slices.ContainsFunc(s.AllowedExtensions, func(e string) bool { return strings.EqualFold(e, up.Extension) }) {
		return nil, nil, fileErr("file type %s is not allowed, allowed types: %s", up.Extension, strings.Join(s.AllowedExtensions, ", "))
	}
	if sizeMB := float64(len(up.Data)) / megabyte; sizeMB > s.MaxFileSize {
		return nil, nil, fileErr("file size %.2fMB exceeds the %gMB limit", sizeMB, s.MaxFileSize)
	}
	return FileValue{Size: int64(len(up.Data)), MimeType: up.MimeType}, up, nil
}
