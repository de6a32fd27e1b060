package storage

import (
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
)

// =============================================================================
// Content Type Detection
// =============================================================================

// DetectContentType determines the MIME type of a file.
//
// Detection priority:
// 1. If providedType is non-empty, use it directly
// 2. Try to detect from file extension using mime.TypeByExtension
// 3. Sniff content from the first 512 bytes of data (if available)
// 4. Fall back to "application/octet-stream"
//
// Parameters:
//   - providedType: Explicitly provided content type (e.g., from HTTP header)
//   - filename: File name used to extract extension for MIME lookup
//   - data: Optional reader for content sniffing (only first 512 bytes are read)
//
// Returns the detected MIME type.
func DetectContentType(providedType, filename string, data io.Reader) string {
	// 1. Use provided type if available
	if providedType != "" {
		return providedType
	}

	// 2. Try extension-based detection
	ext := strings.ToLower(filepath.Ext(filename))
	if contentType := mime.TypeByExtension(ext); contentType != "" {
		return contentType
	}

	// 3. Try content sniffing if data is available
	if data != nil {
		// Read up to 512 bytes for sniffing (http.DetectContentType requirement)
		buffer := make([]byte, 512)
		n, err := io.ReadFull(data, buffer)
		if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
			// If we can't read, fall through to default
		} else {
			// DetectContentType always returns a valid MIME type
			return http.DetectContentType(buffer[:n])
		}
	}

	// 4. Fall back to generic binary type
	return "application/octet-stream"
}

// ContentTypeForFilename resolves a MIME type from a filename's extension.
// Falls back to "application/octet-stream" for unknown extensions.
func ContentTypeForFilename(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if contentType := mime.TypeByExtension(ext); contentType != "" {
		return normalizeContentType(contentType)
	}
	return "application/octet-stream"
}

// =============================================================================
// Content Type Validation
// =============================================================================

// AllowedResourceTypes defines the MIME types accepted for learning resource
// uploads: documents, images, and audio recordings.
var AllowedResourceTypes = map[string]bool{
	// Documents
	"application/pdf":    true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"application/vnd.ms-powerpoint": true,
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": true,
	"application/vnd.oasis.opendocument.text":                                   true,
	"text/plain": true,
	// Images
	"image/jpeg": true,
	"image/jpg":  true, // Some systems use this instead of image/jpeg
	"image/png":  true,
	"image/webp": true,
	// Audio (spoken lessons and pronunciation guides)
	"audio/mpeg": true,
	"audio/ogg":  true,
	"audio/wav":  true,
	"audio/webm": true,
}

// AllowedResourceContentType checks if a content type is accepted for
// learning resource uploads.
func AllowedResourceContentType(contentType string) bool {
	return AllowedResourceTypes[normalizeContentType(contentType)]
}

// IsImage returns true if the content type is any image format.
func IsImage(contentType string) bool {
	return strings.HasPrefix(normalizeContentType(contentType), "image/")
}

// IsPDF returns true if the content type is a PDF document.
func IsPDF(contentType string) bool {
	return normalizeContentType(contentType) == "application/pdf"
}

// normalizeContentType strips parameters (like charset) and lowercases the
// base MIME type.
func normalizeContentType(contentType string) string {
	baseType := strings.Split(contentType, ";")[0]
	return strings.TrimSpace(strings.ToLower(baseType))
}

// =============================================================================
// File Extension Helpers
// =============================================================================

// extensionForContentType returns a common file extension for a MIME type.
// This is useful when generating filenames from content types.
func extensionForContentType(contentType string) string {
	baseType := normalizeContentType(contentType)

	// Common mappings
	extensions := map[string]string{
		"image/jpeg":      ".jpg",
		"image/jpg":       ".jpg",
		"image/png":       ".png",
		"image/webp":      ".webp",
		"application/pdf": ".pdf",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document": ".docx",
		"application/msword": ".doc",
		"audio/mpeg":         ".mp3",
		"audio/ogg":          ".ogg",
	}

	if ext, ok := extensions[baseType]; ok {
		return ext
	}

	// Fall back to using mime package's reverse lookup
	// Get all extensions for this type and return the first one
	exts, err := mime.ExtensionsByType(contentType)
	if err == nil && len(exts) > 0 {
		return exts[0]
	}

	return ".bin"
}
