package domain

import (
	"path/filepath"
	"strings"
)

// maxFilenameLength is the common filesystem limit for one path component.
const maxFilenameLength = 255

// SanitizeFilename makes a client-supplied filename safe to embed in a
// storage key. Path separators, parent references and control characters
// are replaced with underscores so the result can never address anything
// outside the owning video's token namespace. Unicode passes through.
// Empty input degrades to "file".
func SanitizeFilename(name string) string {
	// Keep only the final path component; a name like "a/b/../c" must not
	// survive as structure.
	name = strings.ReplaceAll(name, "\\", "/")
	name = name[strings.LastIndex(name, "/")+1:]

	var sb strings.Builder
	sb.Grow(len(name))
	for _, r := range name {
		if r < 32 || r == 127 || r == '"' || r == ':' {
			sb.WriteRune('_')
		} else {
			sb.WriteRune(r)
		}
	}

	result := strings.TrimSpace(sb.String())
	if result == "" || result == "." || result == ".." || strings.Trim(result, "_") == "" {
		return "file"
	}
	if len(result) > maxFilenameLength {
		result = truncateFilename(result)
	}
	return result
}

// truncateFilename shortens a filename to maxFilenameLength bytes keeping
// the extension when one fits.
func truncateFilename(name string) string {
	ext := filepath.Ext(name)
	if ext == "" || len(ext) >= maxFilenameLength {
		return name[:maxFilenameLength]
	}
	base := name[:len(name)-len(ext)]
	return base[:maxFilenameLength-len(ext)] + ext
}
