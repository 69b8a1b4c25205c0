package bundler

import (
	"context"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/crxkit/crxkit/internal/resolver"
)

// PluginName identifies resolver failures in bundler diagnostics.
const PluginName = "crxkit-resolver"

// ResolverPlugin routes every import through s. A declined import falls
// back to the bundler's own resolution; a resolver error fails the import.
func ResolverPlugin(s resolver.Strategy) api.Plugin {
	return api.Plugin{
		Name: PluginName,
		Setup: func(build api.PluginBuild) {
			build.OnResolve(api.OnResolveOptions{Filter: ".*"}, func(args api.OnResolveArgs) (api.OnResolveResult, error) {
				return resolveImport(context.Background(), s, args)
			})
		},
	}
}

func resolveImport(ctx context.Context, s resolver.Strategy, args api.OnResolveArgs) (api.OnResolveResult, error) {
	if args.Kind == api.ResolveEntryPoint || (args.Namespace != "" && args.Namespace != "file") {
		return api.OnResolveResult{}, nil
	}

	res, handled, err := s.Resolve(ctx, resolver.Request{
		Specifier:  args.Path,
		Importer:   args.Importer,
		ResolveDir: args.ResolveDir,
	})
	if err != nil {
		return api.OnResolveResult{}, err
	}
	if !handled {
		return api.OnResolveResult{}, nil
	}
	return api.OnResolveResult{Path: res.Path, Namespace: "file"}, nil
}
