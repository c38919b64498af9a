// Package config loads the bring-up settings from defaults, an optional
// env file and the process environment, in increasing precedence.
//
// envy overloads ./.env into the process environment when it initializes,
// so the settings file uses its own name and is only read, never applied.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/gobuffalo/envy"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/vkngwrapper/bringup/gpu"
)

const (
	KeyAppName          = "BRINGUP_APP_NAME"
	KeyEngineName       = "BRINGUP_ENGINE_NAME"
	KeyAPIVersion       = "BRINGUP_API_VERSION"
	KeyWindowTitle      = "BRINGUP_WINDOW_TITLE"
	KeyWindowWidth      = "BRINGUP_WINDOW_WIDTH"
	KeyWindowHeight     = "BRINGUP_WINDOW_HEIGHT"
	KeyValidation       = "BRINGUP_VALIDATION"
	KeyValidationLayers = "BRINGUP_VALIDATION_LAYERS"
	KeyPortability      = "BRINGUP_PORTABILITY"
	KeyLogLevel         = "BRINGUP_LOG_LEVEL"
	KeyEnvFile          = "BRINGUP_ENV_FILE"
)

const (
	DefaultAppName         = "Vulkan App"
	DefaultEngineName      = "Null Engine"
	DefaultAPIVersion      = "1.2"
	DefaultWindowWidth     = 800
	DefaultWindowHeight    = 600
	DefaultValidationLayer = "VK_LAYER_KHRONOS_validation"
	DefaultEnvFile         = "bringup.env"
)

// Config holds everything the bring-up command needs.
type Config struct {
	AppName    string
	EngineName string
	APIVersion gpu.Version

	WindowTitle  string
	WindowWidth  int
	WindowHeight int

	Validation       bool
	ValidationLayers []string
	Portability      bool

	LogLevel logrus.Level
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		AppName:          DefaultAppName,
		EngineName:       DefaultEngineName,
		APIVersion:       gpu.MakeVersion(1, 2, 0),
		WindowTitle:      DefaultAppName,
		WindowWidth:      DefaultWindowWidth,
		WindowHeight:     DefaultWindowHeight,
		Validation:       validationDefault,
		ValidationLayers: []string{DefaultValidationLayer},
		Portability:      true,
		LogLevel:         logrus.InfoLevel,
	}
}

// EnvFile is the settings file named by BRINGUP_ENV_FILE.
func EnvFile() string {
	envy.Reload()
	return envy.Get(KeyEnvFile, DefaultEnvFile)
}

// Load builds a Config. A missing envFile is not an error.
func Load(envFile string) (Config, error) {
	envy.Reload()

	file := map[string]string{}
	if envFile != "" {
		values, err := godotenv.Read(envFile)
		switch {
		case err == nil:
			file = values
		case errors.Is(err, os.ErrNotExist):
		default:
			return Config{}, errors.Wrapf(err, "read %s", envFile)
		}
	}

	lookup := func(key, fallback string) string {
		if v, ok := file[key]; ok {
			fallback = v
		}
		return strings.TrimSpace(envy.Get(key, fallback))
	}

	cfg := Default()
	cfg.AppName = lookup(KeyAppName, cfg.AppName)
	cfg.EngineName = lookup(KeyEngineName, cfg.EngineName)
	cfg.WindowTitle = lookup(KeyWindowTitle, cfg.AppName)

	var err error
	if cfg.APIVersion, err = ParseAPIVersion(lookup(KeyAPIVersion, DefaultAPIVersion)); err != nil {
		return Config{}, err
	}
	if cfg.WindowWidth, err = parseDimension(KeyWindowWidth, lookup(KeyWindowWidth, strconv.Itoa(cfg.WindowWidth))); err != nil {
		return Config{}, err
	}
	if cfg.WindowHeight, err = parseDimension(KeyWindowHeight, lookup(KeyWindowHeight, strconv.Itoa(cfg.WindowHeight))); err != nil {
		return Config{}, err
	}
	if cfg.Validation, err = parseBool(KeyValidation, lookup(KeyValidation, strconv.FormatBool(cfg.Validation))); err != nil {
		return Config{}, err
	}
	if cfg.Portability, err = parseBool(KeyPortability, lookup(KeyPortability, strconv.FormatBool(cfg.Portability))); err != nil {
		return Config{}, err
	}

	cfg.ValidationLayers = splitList(lookup(KeyValidationLayers, DefaultValidationLayer))
	if cfg.Validation && len(cfg.ValidationLayers) == 0 {
		return Config{}, errors.Newf("%s: validation is enabled but no layers are named", KeyValidationLayers)
	}

	if cfg.LogLevel, err = logrus.ParseLevel(lookup(KeyLogLevel, cfg.LogLevel.String())); err != nil {
		return Config{}, errors.Wrapf(err, "%s", KeyLogLevel)
	}

	return cfg, nil
}

// ParseAPIVersion accepts "major.minor" or "major.minor.patch".
func ParseAPIVersion(s string) (gpu.Version, error) {
	parts := strings.Split(s, ".")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, errors.Newf("%s: malformed version %q", KeyAPIVersion, s)
	}

	var nums [3]uint32
	limits := [3]uint64{0x7f, 0x3ff, 0xfff}
	for i, part := range parts {
		n, err := strconv.ParseUint(part, 10, 32)
		if err != nil || n > limits[i] {
			return 0, errors.Newf("%s: malformed version %q", KeyAPIVersion, s)
		}
		nums[i] = uint32(n)
	}
	if nums[0] != 1 {
		return 0, errors.Newf("%s: unsupported major version in %q", KeyAPIVersion, s)
	}
	return gpu.MakeVersion(nums[0], nums[1], nums[2]), nil
}

// InstanceOptions maps the settings onto instance creation.
func (c Config) InstanceOptions(platformExtensions []string) gpu.InstanceOptions {
	return gpu.InstanceOptions{
		ApplicationName:    c.AppName,
		ApplicationVersion: gpu.MakeVersion(1, 0, 0),
		EngineName:         c.EngineName,
		EngineVersion:      gpu.MakeVersion(1, 0, 0),
		APIVersion:         c.APIVersion,
		PlatformExtensions: platformExtensions,
		EnableDiagnostics:  c.Validation,
		ValidationLayers:   c.ValidationLayers,
		Portability:        c.Portability,
	}
}

// ContextOptions forwards warnings and errors of every message type.
func (c Config) ContextOptions(platformExtensions []string) gpu.Options {
	return gpu.Options{
		Instance:   c.InstanceOptions(platformExtensions),
		Severities: gpu.SeverityWarning | gpu.SeverityError,
		Types:      gpu.MessageAll,
	}
}

func parseDimension(key, s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.Wrapf(err, "%s", key)
	}
	if n <= 0 {
		return 0, errors.Newf("%s: must be positive, got %d", key, n)
	}
	return n, nil
}

func parseBool(key, s string) (bool, error) {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, errors.Wrapf(err, "%s", key)
	}
	return b, nil
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
