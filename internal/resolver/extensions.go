package resolver

import (
	"path/filepath"
	"slices"
)

// canonicalExtensions is the fixed probing order for extensionless aliases.
var canonicalExtensions = []string{
	".ts", ".tsx", ".svelte", ".vue",
	".js", ".jsx", ".mjs", ".cjs",
	".css", ".scss", ".sass", ".less", ".styl",
}

// RecognizedExtensions returns the canonical extension order.
func RecognizedExtensions() []string {
	return slices.Clone(canonicalExtensions)
}

// IsRecognizedExtension reports whether ext is in the canonical list.
func IsRecognizedExtension(ext string) bool {
	return slices.Contains(canonicalExtensions, ext)
}

// HasRecognizedExtension reports whether path ends in a canonical extension.
func HasRecognizedExtension(path string) bool {
	return IsRecognizedExtension(filepath.Ext(path))
}

// FallbackExtensions puts the importer's extension first when it is
// recognized, followed by the rest of the canonical order.
func FallbackExtensions(importerExt string) []string {
	if !IsRecognizedExtension(importerExt) {
		return RecognizedExtensions()
	}
	out := make([]string, 0, len(canonicalExtensions))
	out = append(out, importerExt)
	for _, ext := range canonicalExtensions {
		if ext != importerExt {
			out = append(out, ext)
		}
	}
	return out
}
