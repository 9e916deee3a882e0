// utils/validator.go - Input validation
package utils

import (
	"errors"
	"mime"
	"path/filepath"
	"strings"
)

const maxFilenameLength = 255
const maxReasonLength = 2000

// ValidateFilename rejects names that could escape the target directory or
// break the sidecar naming scheme: path separators, NUL bytes, parent
// references, and over-long names.
func ValidateFilename(filename string) error {
	if strings.TrimSpace(filename) == "" {
		return errors.New("filename is required")
	}
	if len(filename) > maxFilenameLength {
		return errors.New("filename is too long")
	}
	if strings.ContainsAny(filename, "/\\") {
		return errors.New("filename must not contain path separators")
	}
	if strings.ContainsRune(filename, 0) {
		return errors.New("filename must not contain NUL bytes")
	}
	if filename == "." || filename == ".." || strings.Contains(filename, "..") {
		return errors.New("filename must not contain parent references")
	}
	return nil
}

// ValidateReason trims and bounds a rejection reason.
func ValidateReason(reason string) (string, error) {
	trimmed := strings.TrimSpace(reason)
	if trimmed == "" {
		return "", errors.New("rejection reason is required")
	}
	if len(trimmed) > maxReasonLength {
		return "", errors.New("rejection reason is too long")
	}
	return trimmed, nil
}

// BaseFilename extracts the final path element, tolerating Windows-style
// separators from clients on the NAS side.
func BaseFilename(path string) string {
	if idx := strings.LastIndexAny(path, "/\\"); idx >= 0 {
		path = path[idx+1:]
	}
	return path
}

// ContentTypeHint guesses a MIME type from the filename extension; empty when
// unknown.
func ContentTypeHint(filename string) string {
	hint := mime.TypeByExtension(filepath.Ext(filename))
	if idx := strings.Index(hint, ";"); idx >= 0 {
		hint = hint[:idx]
	}
	return hint
}

// SanitizeInput removes potentially harmful characters from free-form fields.
func SanitizeInput(input string) string {
	input = strings.TrimSpace(input)
	input = strings.ReplaceAll(input, "\x00", "")
	return input
}
