// Package surface maps a project's source tree onto the fixed set of
// browser-extension surfaces and classifies every candidate path.
package surface

import "path/filepath"

// ProbeOptions carries the inputs that select variant file names.
type ProbeOptions struct {
	SourceRoot    string
	BrowserTarget string
	RuntimeEnv    string
	IndexFallback bool
}

// Probe returns the ordered candidate paths for a surface. For every
// extension it emits the browser variant, the runtime env variant and the
// bare name, each followed by its directory-index form when IndexFallback is
// set. It never touches the filesystem.
func Probe(name string, exts []string, opts ProbeOptions) []string {
	perExt := 3
	if opts.IndexFallback {
		perExt = 6
	}
	out := make([]string, 0, len(exts)*perExt)

	flat := filepath.Join(opts.SourceRoot, name)
	index := filepath.Join(opts.SourceRoot, name, "index")

	for _, ext := range exts {
		for _, variant := range [...]string{"." + opts.BrowserTarget, "." + opts.RuntimeEnv, ""} {
			out = append(out, flat+variant+ext)
			if opts.IndexFallback {
				out = append(out, index+variant+ext)
			}
		}
	}
	return out
}

// dedupeExtensions keeps the first occurrence of every extension.
func dedupeExtensions(exts ...[]string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, list := range exts {
		for _, ext := range list {
			if _, ok := seen[ext]; ok {
				continue
			}
			seen[ext] = struct{}{}
			out = append(out, ext)
		}
	}
	return out
}

// ScriptExtensions is the accepted set for background, content and sandbox
// entries: TypeScript, then the UI extensions, then plain JavaScript.
func ScriptExtensions(ui []string) []string {
	return dedupeExtensions([]string{".ts"}, ui, []string{".js"})
}
