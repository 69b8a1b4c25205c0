package resolver

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/crxkit/crxkit/internal/domain"
)

// DefaultAliasPrefix maps a specifier onto the source directory.
const DefaultAliasPrefix = "~"

// AliasOptions configure the source-root alias.
type AliasOptions struct {
	Prefix     string
	SourceRoot string
	Checker    domain.FileChecker
}

// AliasResolver rewrites prefixed specifiers to paths under the source root.
type AliasResolver struct {
	prefix  string
	root    string
	checker domain.FileChecker
}

// NewAliasResolver validates opts and creates the resolver.
func NewAliasResolver(opts AliasOptions) (*AliasResolver, error) {
	if opts.Prefix == "" {
		opts.Prefix = DefaultAliasPrefix
	}
	if !filepath.IsAbs(opts.SourceRoot) {
		return nil, domain.NewConfigError("alias source root must be absolute", map[string]any{"source_root": opts.SourceRoot})
	}
	if opts.Checker == nil {
		return nil, domain.NewConfigError("alias resolver requires a file checker", nil)
	}
	return &AliasResolver{
		prefix:  opts.Prefix,
		root:    filepath.Clean(opts.SourceRoot),
		checker: opts.Checker,
	}, nil
}

func (a *AliasResolver) Name() string { return "alias" }

// Resolve rewrites the specifier. A recognized extension is taken verbatim
// and must exist. Anything else is probed as base+ext for every fallback
// extension, then base/index+ext, and declines when nothing exists.
func (a *AliasResolver) Resolve(ctx context.Context, req Request) (Result, bool, error) {
	target, ok := a.target(req.Specifier)
	if !ok {
		return Result{}, false, nil
	}

	if HasRecognizedExtension(target) {
		if a.checker.Stat(target).Regular() {
			return Result{Path: target, Strategy: a.Name()}, true, nil
		}
		return Result{}, false, domain.NewResolutionError(req.Specifier, target, nil).WithContext(ctx, "alias.resolve")
	}

	exts := FallbackExtensions(filepath.Ext(req.Importer))
	for _, ext := range exts {
		if p := target + ext; a.checker.Stat(p).Regular() {
			return Result{Path: p, Strategy: a.Name()}, true, nil
		}
	}
	for _, ext := range exts {
		if p := filepath.Join(target, "index"+ext); a.checker.Stat(p).Regular() {
			return Result{Path: p, Strategy: a.Name()}, true, nil
		}
	}
	return Result{}, false, nil
}

// target maps a specifier to an absolute candidate under the source root.
// Absolute paths already under the root with a recognized extension pass
// through so resolving twice yields the same path.
func (a *AliasResolver) target(specifier string) (string, bool) {
	if rest, ok := strings.CutPrefix(specifier, a.prefix); ok {
		rest = strings.TrimLeft(rest, `/\`)
		return filepath.Join(a.root, rest), true
	}
	if filepath.IsAbs(specifier) && HasRecognizedExtension(specifier) {
		clean := filepath.Clean(specifier)
		if rel, err := filepath.Rel(a.root, clean); err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return clean, true
		}
	}
	return "", false
}
