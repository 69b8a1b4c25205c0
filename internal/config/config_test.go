package config

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crxkit/crxkit/internal/domain"
)

func TestLoad_DefaultValues(t *testing.T) {
	clearEnvVars()
	defer clearEnvVars()

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, ".", cfg.Project.Dir)
	assert.Empty(t, cfg.Project.SrcDir)
	assert.Equal(t, "assets", cfg.Project.AssetsDir)
	assert.Equal(t, "build", cfg.Project.BuildDir)
	assert.Equal(t, "hacks", cfg.Project.HacksDir)

	assert.Equal(t, "chrome", cfg.Target.Browser)
	assert.Equal(t, "development", cfg.Target.NodeEnv)
	assert.Equal(t, []string{".tsx"}, cfg.Target.UIExtensions)
	assert.Equal(t, "CRXKIT_PUBLIC_", cfg.Target.PublicEnvPrefix)

	assert.Equal(t, "localhost", cfg.HMR.Host)
	assert.Equal(t, 1815, cfg.HMR.Port)
	assert.False(t, cfg.HMR.Secure)
	assert.Equal(t, 30*time.Second, cfg.HMR.PingInterval)

	assert.True(t, cfg.Server.Enabled)
	assert.Equal(t, 1817, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 5*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, 1048576, cfg.Server.BodyLimit)

	assert.Empty(t, cfg.Security.CORSOrigins)
	assert.Equal(t, 50, cfg.Security.RateLimitRPS)
	assert.Equal(t, 100, cfg.Security.RateLimitBurst)

	assert.Equal(t, "~", cfg.Resolver.AliasPrefix)
	assert.Equal(t, 4096, cfg.Resolver.CacheSize)
	assert.Equal(t, 100*time.Millisecond, cfg.Watch.Debounce)
	assert.Empty(t, cfg.Watch.Ignore)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	clearEnvVars()
	defer clearEnvVars()

	os.Setenv("BROWSER_TARGET", "firefox")
	os.Setenv("NODE_ENV", "production")
	os.Setenv("UI_EXTENSIONS", ".tsx,.vue")
	os.Setenv("HMR_PORT", "4000")
	os.Setenv("WATCH_IGNORE", "**/*.log,tmp/**")
	os.Setenv("LOG_LEVEL", "debug")
	os.Setenv("CORS_ORIGINS", "https://example.com,https://test.com")

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "firefox", cfg.Target.Browser)
	assert.Equal(t, "production", cfg.Target.NodeEnv)
	assert.Equal(t, []string{".tsx", ".vue"}, cfg.Target.UIExtensions)
	assert.Equal(t, 4000, cfg.HMR.Port)
	assert.Equal(t, []string{"**/*.log", "tmp/**"}, cfg.Watch.Ignore)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, []string{"https://example.com", "https://test.com"}, cfg.Security.CORSOrigins)
	assert.False(t, cfg.IsDevelopment())
}

func TestLoad_DevelopmentWithoutPort(t *testing.T) {
	clearEnvVars()
	defer clearEnvVars()

	os.Setenv("HMR_PORT", "0")

	_, err := Load()
	require.Error(t, err)
	assert.True(t, domain.HasCode(err, domain.ErrPortMissing))
	assert.Contains(t, err.Error(), "HMR port is not provided")

	os.Setenv("NODE_ENV", "production")
	_, err = Load()
	assert.NoError(t, err)
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	cfg := createValidConfig(t.TempDir())
	cfg.Logging.Level = "invalid"

	err := Validate(cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "Level must be one of: debug info warn error")
	assert.True(t, domain.IsConfigError(err))
}

func TestValidate_BrowserTarget(t *testing.T) {
	for _, target := range []string{"chrome", "firefox", "edge", "safari"} {
		cfg := createValidConfig(t.TempDir())
		cfg.Target.Browser = target
		assert.NoError(t, Validate(cfg), target)
	}

	cfg := createValidConfig(t.TempDir())
	cfg.Target.Browser = "netscape"
	err := Validate(cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "Browser must be one of")
}

func TestValidate_UIExtensions(t *testing.T) {
	tests := []struct {
		name  string
		exts  []string
		valid bool
	}{
		{"single", []string{".tsx"}, true},
		{"several", []string{".tsx", ".svelte", ".vue"}, true},
		{"compound", []string{".module.tsx"}, true},
		{"empty list", []string{}, false},
		{"missing dot", []string{"tsx"}, false},
		{"bare dot", []string{"."}, false},
		{"separator", []string{".a/b"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := createValidConfig(t.TempDir())
			cfg.Target.UIExtensions = tt.exts
			err := Validate(cfg)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidate_HMRPortRange(t *testing.T) {
	tests := []struct {
		port  int
		valid bool
	}{
		{1, true},
		{1815, true},
		{65534, true},
		{65535, false},
		{-1, false},
	}

	for _, tt := range tests {
		t.Run(strconv.Itoa(tt.port), func(t *testing.T) {
			cfg := createValidConfig(t.TempDir())
			cfg.HMR.Port = tt.port
			err := Validate(cfg)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.True(t, domain.IsConfigError(err))
			}
		})
	}
}

func TestValidate_APIPortCollision(t *testing.T) {
	cfg := createValidConfig(t.TempDir())
	cfg.Server.Port = cfg.HMR.Port + 1
	err := Validate(cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "API port collides")

	cfg.Server.Enabled = false
	assert.NoError(t, Validate(cfg))
}

func TestValidate_NodeEnvSeparator(t *testing.T) {
	cfg := createValidConfig(t.TempDir())
	cfg.Target.NodeEnv = "../prod"
	assert.True(t, domain.IsConfigError(Validate(cfg)))
}

func TestValidate_InvalidCORSOrigins(t *testing.T) {
	cfg := createValidConfig(t.TempDir())
	cfg.Security.CORSOrigins = []string{"invalid-origin"}

	err := Validate(cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "CORSOrigins contains invalid origin format")
}

func TestValidate_ValidCORSOrigins(t *testing.T) {
	cfg := createValidConfig(t.TempDir())
	cfg.Security.CORSOrigins = []string{"*", "https://example.com", "http://localhost:3000"}

	assert.NoError(t, Validate(cfg))
}

func TestApply_Overrides(t *testing.T) {
	dir := t.TempDir()
	cfg := createValidConfig(dir)

	require.NoError(t, cfg.Apply(Overrides{Target: "firefox", Env: "production", Project: filepath.Join(dir, "other")}))
	assert.Equal(t, "firefox", cfg.Target.Browser)
	assert.Equal(t, "production", cfg.Target.NodeEnv)
	assert.Equal(t, filepath.Join(dir, "other"), cfg.Project.Dir)

	require.NoError(t, cfg.Apply(Overrides{}))
	assert.Equal(t, "firefox", cfg.Target.Browser)

	assert.Error(t, cfg.Apply(Overrides{Target: "netscape"}))
}

func TestCommonPaths(t *testing.T) {
	dir := t.TempDir()
	cfg := createValidConfig(dir)

	paths, err := cfg.CommonPaths()
	require.NoError(t, err)
	assert.Equal(t, dir, paths.ProjectDirectory)
	assert.Equal(t, dir, paths.SourceDirectory, "falls back to the project directory without src/")
	assert.Equal(t, filepath.Join(dir, "package.json"), paths.PackageFilePath)
	assert.Equal(t, filepath.Join(dir, "assets"), paths.AssetsDirectory)

	require.NoError(t, os.Mkdir(filepath.Join(dir, "src"), 0o755))
	paths, err = cfg.CommonPaths()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "src"), paths.SourceDirectory)

	cfg.Project.SrcDir = "app"
	paths, err = cfg.CommonPaths()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "app"), paths.SourceDirectory)

	cfg.Project.AssetsDir = "/abs/assets"
	paths, err = cfg.CommonPaths()
	require.NoError(t, err)
	assert.Equal(t, "/abs/assets", paths.AssetsDirectory)
}

func TestDerivedDirectories(t *testing.T) {
	dir := t.TempDir()
	cfg := createValidConfig(dir)

	buildDir, err := cfg.BuildDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "build"), buildDir)

	hacksDir, err := cfg.HacksDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "hacks"), hacksDir)

	cfg.Project.HacksDir = ""
	hacksDir, err = cfg.HacksDir()
	require.NoError(t, err)
	assert.Empty(t, hacksDir)

	opts := cfg.BuildOptions()
	assert.Equal(t, "chrome", opts.BrowserTarget)
	assert.Equal(t, "development", opts.RuntimeEnv)
	opts.UIExtensions[0] = ".changed"
	assert.Equal(t, ".tsx", cfg.Target.UIExtensions[0])
}

func TestEnsureDirectories(t *testing.T) {
	tempDir := t.TempDir()
	cfg := createValidConfig(tempDir)

	require.NoError(t, cfg.EnsureDirectories())

	_, err := os.Stat(filepath.Join(tempDir, "build"))
	assert.NoError(t, err)
}

func clearEnvVars() {
	envVars := []string{
		"PROJECT_DIR", "SRC_DIR", "ASSETS_DIR", "BUILD_DIR", "HACKS_DIR",
		"BROWSER_TARGET", "NODE_ENV", "UI_EXTENSIONS", "PUBLIC_ENV_PREFIX",
		"HMR_HOST", "HMR_PORT", "HMR_SECURE", "HMR_PING_INTERVAL",
		"API_ENABLED", "API_PORT", "READ_TIMEOUT", "WRITE_TIMEOUT", "BODY_LIMIT",
		"CORS_ORIGINS", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
		"ALIAS_PREFIX", "RESOLVER_CACHE_SIZE",
		"WATCH_DEBOUNCE", "WATCH_IGNORE",
		"LOG_LEVEL", "LOG_FORMAT",
	}
	for _, v := range envVars {
		os.Unsetenv(v)
	}
}

func createValidConfig(tempDir string) *Config {
	cfg := &Config{}
	cfg.Project.Dir = tempDir
	cfg.Project.AssetsDir = "assets"
	cfg.Project.BuildDir = "build"
	cfg.Project.HacksDir = "hacks"
	cfg.Target.Browser = "chrome"
	cfg.Target.NodeEnv = "development"
	cfg.Target.UIExtensions = []string{".tsx"}
	cfg.Target.PublicEnvPrefix = "CRXKIT_PUBLIC_"
	cfg.HMR.Host = "localhost"
	cfg.HMR.Port = 1815
	cfg.HMR.PingInterval = 30 * time.Second
	cfg.Server.Enabled = true
	cfg.Server.Port = 1817
	cfg.Server.BodyLimit = 1048576
	cfg.Server.ReadTimeout = time.Second
	cfg.Server.WriteTimeout = time.Second
	cfg.Security.CORSOrigins = []string{"*"}
	cfg.Security.RateLimitRPS = 50
	cfg.Security.RateLimitBurst = 100
	cfg.Resolver.AliasPrefix = "~"
	cfg.Resolver.CacheSize = 4096
	cfg.Watch.Debounce = 100 * time.Millisecond
	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"
	return cfg
}
