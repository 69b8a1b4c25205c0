// Package envfile locates and merges the dotenv files of a project.
package envfile

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Names returns the dotenv file names for env, highest precedence first.
// The shared .env.local is skipped in test so runs stay reproducible.
func Names(env string) []string {
	names := []string{".env." + env + ".local"}
	if env != "test" {
		names = append(names, ".env.local")
	}
	return append(names, ".env."+env, ".env")
}

// Paths resolves Names under dir.
func Paths(dir, env string) []string {
	names := Names(env)
	out := make([]string, len(names))
	for i, name := range names {
		out[i] = filepath.Join(dir, name)
	}
	return out
}

// Load merges every existing dotenv file for env. Keys from a higher
// precedence file are never overwritten by a lower one. Missing files are
// skipped; a file that exists but cannot be parsed is an error.
func Load(dir, env string) (map[string]string, error) {
	vars := make(map[string]string)
	for _, path := range Paths(dir, env) {
		values, err := godotenv.Read(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, err
		}
		for k, v := range values {
			if _, ok := vars[k]; !ok {
				vars[k] = v
			}
		}
		log.Debug().Str("file", path).Int("keys", len(values)).Msg("Loaded env file")
	}
	return vars, nil
}

// Public returns the subset of vars whose key starts with prefix, merged
// over matching variables of the process environment.
func Public(vars map[string]string, prefix string) map[string]string {
	out := make(map[string]string)
	if prefix == "" {
		return out
	}
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if ok && strings.HasPrefix(k, prefix) {
			out[k] = v
		}
	}
	for k, v := range vars {
		if strings.HasPrefix(k, prefix) {
			if _, fromProcess := out[k]; !fromProcess {
				out[k] = v
			}
		}
	}
	return out
}

// SortedKeys returns the keys of vars in lexical order.
func SortedKeys(vars map[string]string) []string {
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
