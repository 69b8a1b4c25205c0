package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/crxkit/crxkit/internal/domain"
	"github.com/crxkit/crxkit/internal/surface"
)

// ModeDevelopment enables the live-update sockets.
const ModeDevelopment = "development"

var supportedBrowsers = domain.BrowserTargets()

var fileExtPattern = regexp.MustCompile(`^\.[A-Za-z0-9][A-Za-z0-9.]*$`)

// Config holds all configuration for crxkit
type Config struct {
	Project struct {
		Dir       string `env:"PROJECT_DIR" envDefault:"." validate:"required"`
		SrcDir    string `env:"SRC_DIR"`
		AssetsDir string `env:"ASSETS_DIR" envDefault:"assets" validate:"required"`
		BuildDir  string `env:"BUILD_DIR" envDefault:"build" validate:"required"`
		HacksDir  string `env:"HACKS_DIR" envDefault:"hacks"`
	}

	Target struct {
		Browser         string   `env:"BROWSER_TARGET" envDefault:"chrome" validate:"browser_target"`
		NodeEnv         string   `env:"NODE_ENV" envDefault:"development" validate:"required"`
		UIExtensions    []string `env:"UI_EXTENSIONS" envSeparator:"," envDefault:".tsx" validate:"min=1,dive,file_ext"`
		PublicEnvPrefix string   `env:"PUBLIC_ENV_PREFIX" envDefault:"CRXKIT_PUBLIC_"`
	}

	HMR struct {
		Host         string        `env:"HMR_HOST" envDefault:"localhost"`
		Port         int           `env:"HMR_PORT" envDefault:"1815" validate:"min=0,max=65534"`
		Secure       bool          `env:"HMR_SECURE" envDefault:"false"`
		PingInterval time.Duration `env:"HMR_PING_INTERVAL" envDefault:"30s"`
	}

	Server struct {
		Enabled      bool          `env:"API_ENABLED" envDefault:"true"`
		Port         int           `env:"API_PORT" envDefault:"1817" validate:"min=1,max=65535"`
		ReadTimeout  time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
		WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"5s"`
		BodyLimit    int           `env:"BODY_LIMIT" envDefault:"1048576" validate:"min=1"` // 1MB
	}

	Security struct {
		CORSOrigins    []string `env:"CORS_ORIGINS" envSeparator:"," validate:"cors_origins"`
		RateLimitRPS   int      `env:"RATE_LIMIT_RPS" envDefault:"50" validate:"min=1"`
		RateLimitBurst int      `env:"RATE_LIMIT_BURST" envDefault:"100" validate:"min=1"`
	}

	Resolver struct {
		AliasPrefix string `env:"ALIAS_PREFIX" envDefault:"~" validate:"required"`
		CacheSize   int    `env:"RESOLVER_CACHE_SIZE" envDefault:"4096" validate:"min=16"`
	}

	Watch struct {
		Debounce time.Duration `env:"WATCH_DEBOUNCE" envDefault:"100ms"`
		Ignore   []string      `env:"WATCH_IGNORE" envSeparator:","`
	}

	Logging struct {
		Level  string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`
		Format string `env:"LOG_FORMAT" envDefault:"json" validate:"oneof=json text"`
	}
}

// Load loads configuration from environment variables and .env files
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Overrides are the command-line flags that take precedence over the environment
type Overrides struct {
	Target  string
	Env     string
	Project string
}

// Apply replaces the non-empty override values and re-validates
func (cfg *Config) Apply(o Overrides) error {
	if o.Target != "" {
		cfg.Target.Browser = o.Target
	}
	if o.Env != "" {
		cfg.Target.NodeEnv = o.Env
	}
	if o.Project != "" {
		cfg.Project.Dir = o.Project
	}
	return Validate(cfg)
}

// Validate validates the configuration using struct tags
func Validate(cfg *Config) error {
	validate := validator.New()

	if err := validate.RegisterValidation("cors_origins", validateCORSOrigins); err != nil {
		return fmt.Errorf("failed to register cors_origins validation: %w", err)
	}
	if err := validate.RegisterValidation("browser_target", validateBrowserTarget); err != nil {
		return fmt.Errorf("failed to register browser_target validation: %w", err)
	}
	if err := validate.RegisterValidation("file_ext", validateFileExt); err != nil {
		return fmt.Errorf("failed to register file_ext validation: %w", err)
	}

	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	if err := validateCustomRules(cfg); err != nil {
		return err
	}

	return nil
}

// validateCORSOrigins validates CORS origins format
func validateCORSOrigins(fl validator.FieldLevel) bool {
	origins := fl.Field().Interface().([]string)
	for _, origin := range origins {
		origin = strings.TrimSpace(origin)
		if origin == "" {
			continue
		}
		if origin != "*" && !strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://") {
			return false
		}
	}
	return true
}

// validateBrowserTarget accepts the known browser families
func validateBrowserTarget(fl validator.FieldLevel) bool {
	target := fl.Field().String()
	for _, b := range supportedBrowsers {
		if target == b {
			return true
		}
	}
	return false
}

// validateFileExt accepts a leading dot followed by an extension
func validateFileExt(fl validator.FieldLevel) bool {
	return fileExtPattern.MatchString(fl.Field().String())
}

// validateCustomRules performs additional validation beyond struct tags
func validateCustomRules(cfg *Config) error {
	if strings.ContainsAny(cfg.Target.NodeEnv, `/\`) {
		return domain.NewConfigError("NODE_ENV must not contain a path separator", map[string]any{"node_env": cfg.Target.NodeEnv})
	}

	if cfg.Target.NodeEnv == ModeDevelopment && cfg.HMR.Port == 0 {
		return domain.NewAppError(domain.ErrPortMissing, "HMR port is not provided", 500, map[string]any{"node_env": cfg.Target.NodeEnv})
	}
	if cfg.HMR.PingInterval < time.Second {
		return domain.NewConfigError("HMR ping interval must be at least 1 second", nil)
	}
	if cfg.Server.Enabled && (cfg.Server.Port == cfg.HMR.Port || cfg.Server.Port == cfg.HMR.Port+1) {
		return domain.NewConfigError("API port collides with the live-update ports", map[string]any{
			"api_port": cfg.Server.Port,
			"hmr_port": cfg.HMR.Port,
		})
	}

	if cfg.Server.ReadTimeout < time.Millisecond {
		return domain.NewConfigError("read timeout must be at least 1ms", nil)
	}
	if cfg.Server.WriteTimeout < time.Millisecond {
		return domain.NewConfigError("write timeout must be at least 1ms", nil)
	}
	if cfg.Watch.Debounce < time.Millisecond {
		return domain.NewConfigError("watch debounce must be at least 1ms", nil)
	}

	return nil
}

// IsDevelopment reports whether the live-update sockets are served
func (cfg *Config) IsDevelopment() bool {
	return cfg.Target.NodeEnv == ModeDevelopment
}

// ProjectDir returns the absolute project directory
func (cfg *Config) ProjectDir() (string, error) {
	dir, err := filepath.Abs(cfg.Project.Dir)
	if err != nil {
		return "", domain.NewAppErrorWithCause(domain.ErrConfigInvalid, "cannot resolve project directory", 500, err, map[string]any{"dir": cfg.Project.Dir})
	}
	return dir, nil
}

func (cfg *Config) underProject(p string) (string, error) {
	project, err := cfg.ProjectDir()
	if err != nil {
		return "", err
	}
	if filepath.IsAbs(p) {
		return filepath.Clean(p), nil
	}
	return filepath.Join(project, p), nil
}

// CommonPaths derives the absolute project locations. Without SRC_DIR the
// source directory is <project>/src when it exists, else the project itself.
func (cfg *Config) CommonPaths() (surface.CommonPaths, error) {
	project, err := cfg.ProjectDir()
	if err != nil {
		return surface.CommonPaths{}, err
	}

	src := project
	if cfg.Project.SrcDir != "" {
		if src, err = cfg.underProject(cfg.Project.SrcDir); err != nil {
			return surface.CommonPaths{}, err
		}
	} else if info, statErr := os.Stat(filepath.Join(project, "src")); statErr == nil && info.IsDir() {
		src = filepath.Join(project, "src")
	}

	assets, err := cfg.underProject(cfg.Project.AssetsDir)
	if err != nil {
		return surface.CommonPaths{}, err
	}

	return surface.CommonPaths{
		ProjectDirectory: project,
		SourceDirectory:  src,
		PackageFilePath:  filepath.Join(project, "package.json"),
		AssetsDirectory:  assets,
	}, nil
}

// BuildOptions returns the catalog options of the configured target
func (cfg *Config) BuildOptions() surface.BuildOptions {
	return surface.BuildOptions{
		BrowserTarget: cfg.Target.Browser,
		RuntimeEnv:    cfg.Target.NodeEnv,
		UIExtensions:  append([]string(nil), cfg.Target.UIExtensions...),
	}
}

// BuildDir returns the absolute build output root
func (cfg *Config) BuildDir() (string, error) {
	return cfg.underProject(cfg.Project.BuildDir)
}

// HacksDir returns the absolute escape-hatch table directory, empty when disabled
func (cfg *Config) HacksDir() (string, error) {
	if cfg.Project.HacksDir == "" {
		return "", nil
	}
	return cfg.underProject(cfg.Project.HacksDir)
}

// EnsureDirectories creates the directories crxkit writes to
func (cfg *Config) EnsureDirectories() error {
	buildDir, err := cfg.BuildDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(buildDir, 0755); err != nil {
		return fmt.Errorf("cannot create directory %s: %w", buildDir, err)
	}
	return nil
}

// formatValidationError formats validation errors into readable messages
func formatValidationError(err error) error {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		var messages []string
		for _, e := range validationErrors {
			switch e.Tag() {
			case "required":
				messages = append(messages, fmt.Sprintf("%s is required", e.Field()))
			case "min":
				messages = append(messages, fmt.Sprintf("%s must be at least %s", e.Field(), e.Param()))
			case "max":
				messages = append(messages, fmt.Sprintf("%s must be at most %s", e.Field(), e.Param()))
			case "oneof":
				messages = append(messages, fmt.Sprintf("%s must be one of: %s", e.Field(), e.Param()))
			case "cors_origins":
				messages = append(messages, fmt.Sprintf("%s contains invalid origin format", e.Field()))
			case "browser_target":
				messages = append(messages, fmt.Sprintf("%s must be one of: %s", e.Field(), strings.Join(supportedBrowsers, " ")))
			case "file_ext":
				messages = append(messages, fmt.Sprintf("%s must be a file extension starting with a dot", e.Field()))
			default:
				messages = append(messages, fmt.Sprintf("%s failed validation: %s", e.Field(), e.Tag()))
			}
		}
		return domain.NewConfigError("validation errors: "+strings.Join(messages, "; "), nil)
	}
	return err
}
