package config_test

import (
	"os"
	"path/filepath"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/sirupsen/logrus"

	"github.com/vkngwrapper/bringup/config"
	"github.com/vkngwrapper/bringup/gpu"
)

func writeFile(c *qt.C, dir, name, contents string) string {
	path := filepath.Join(dir, name)
	c.Assert(os.WriteFile(path, []byte(contents), 0o600), qt.IsNil)
	return path
}

func TestLoadDefaults(t *testing.T) {
	c := qt.New(t)
	cfg, err := config.Load(filepath.Join(c.TempDir(), "missing.env"))
	c.Assert(err, qt.IsNil)
	c.Assert(cfg, qt.DeepEquals, config.Default())
	c.Assert(cfg.AppName, qt.Equals, "Vulkan App")
	c.Assert(cfg.EngineName, qt.Equals, "Null Engine")
	c.Assert(cfg.APIVersion, qt.Equals, gpu.MakeVersion(1, 2, 0))
	c.Assert(cfg.ValidationLayers, qt.DeepEquals, []string{"VK_LAYER_KHRONOS_validation"})
	c.Assert(cfg.LogLevel, qt.Equals, logrus.InfoLevel)
}

func TestLoadPrecedence(t *testing.T) {
	c := qt.New(t)
	path := writeFile(c, c.TempDir(), "settings.env", `
BRINGUP_APP_NAME=From File
BRINGUP_ENGINE_NAME=File Engine
BRINGUP_WINDOW_WIDTH=1024
BRINGUP_LOG_LEVEL=debug
`)
	t.Setenv(config.KeyEngineName, "Env Engine")
	t.Setenv(config.KeyAPIVersion, "1.3")

	cfg, err := config.Load(path)
	c.Assert(err, qt.IsNil)
	c.Assert(cfg.AppName, qt.Equals, "From File")
	c.Assert(cfg.WindowTitle, qt.Equals, "From File")
	c.Assert(cfg.EngineName, qt.Equals, "Env Engine")
	c.Assert(cfg.WindowWidth, qt.Equals, 1024)
	c.Assert(cfg.WindowHeight, qt.Equals, config.DefaultWindowHeight)
	c.Assert(cfg.APIVersion, qt.Equals, gpu.MakeVersion(1, 3, 0))
	c.Assert(cfg.LogLevel, qt.Equals, logrus.DebugLevel)
}

// The default settings file sits next to a .env in the working directory;
// the process environment wins over the file and .env is never read.
func TestLoadDefaultFileBelowProcessEnvironment(t *testing.T) {
	c := qt.New(t)
	dir := c.TempDir()
	writeFile(c, dir, config.DefaultEnvFile, "BRINGUP_APP_NAME=FromFile\nBRINGUP_ENGINE_NAME=FileEngine\n")
	writeFile(c, dir, ".env", "BRINGUP_APP_NAME=FromDotEnv\nBRINGUP_LOG_LEVEL=trace\n")
	t.Chdir(dir)
	t.Setenv(config.KeyAppName, "FromProcess")

	c.Assert(config.EnvFile(), qt.Equals, "bringup.env")
	cfg, err := config.Load(config.EnvFile())
	c.Assert(err, qt.IsNil)
	c.Assert(cfg.AppName, qt.Equals, "FromProcess")
	c.Assert(cfg.EngineName, qt.Equals, "FileEngine")
	c.Assert(cfg.LogLevel, qt.Equals, logrus.InfoLevel)
}

func TestEnvFileFromEnvironment(t *testing.T) {
	c := qt.New(t)
	t.Setenv(config.KeyEnvFile, "/etc/bringup/settings.env")
	c.Assert(config.EnvFile(), qt.Equals, "/etc/bringup/settings.env")
}

func TestLoadLists(t *testing.T) {
	c := qt.New(t)
	t.Setenv(config.KeyValidation, "true")
	t.Setenv(config.KeyValidationLayers, " VK_LAYER_KHRONOS_validation, ,VK_LAYER_LUNARG_api_dump ")
	t.Setenv(config.KeyPortability, "false")

	cfg, err := config.Load("")
	c.Assert(err, qt.IsNil)
	c.Assert(cfg.Validation, qt.IsTrue)
	c.Assert(cfg.Portability, qt.IsFalse)
	c.Assert(cfg.ValidationLayers, qt.DeepEquals, []string{"VK_LAYER_KHRONOS_validation", "VK_LAYER_LUNARG_api_dump"})
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		key, value, err string
	}{
		{config.KeyWindowWidth, "wide", `BRINGUP_WINDOW_WIDTH: .*`},
		{config.KeyWindowHeight, "-1", `BRINGUP_WINDOW_HEIGHT: must be positive, got -1`},
		{config.KeyValidation, "maybe", `BRINGUP_VALIDATION: .*`},
		{config.KeyAPIVersion, "2.0", `BRINGUP_API_VERSION: unsupported major version in "2.0"`},
		{config.KeyAPIVersion, "1", `BRINGUP_API_VERSION: malformed version "1"`},
		{config.KeyLogLevel, "loud", `BRINGUP_LOG_LEVEL: .*`},
	}

	for _, tc := range tests {
		t.Run(tc.key+"="+tc.value, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)
			_, err := config.Load("")
			qt.Assert(t, err, qt.ErrorMatches, tc.err)
		})
	}
}

func TestLoadValidationWithoutLayers(t *testing.T) {
	c := qt.New(t)
	t.Setenv(config.KeyValidation, "true")
	t.Setenv(config.KeyValidationLayers, " , ")
	_, err := config.Load("")
	c.Assert(err, qt.ErrorMatches, ".*no layers are named")
}

func TestParseAPIVersion(t *testing.T) {
	c := qt.New(t)
	v, err := config.ParseAPIVersion("1.1.128")
	c.Assert(err, qt.IsNil)
	c.Assert(v.String(), qt.Equals, "1.1.128")

	_, err = config.ParseAPIVersion("1.x")
	c.Assert(err, qt.Not(qt.IsNil))
	_, err = config.ParseAPIVersion("1.2.3.4")
	c.Assert(err, qt.Not(qt.IsNil))
}

func TestContextOptions(t *testing.T) {
	c := qt.New(t)
	cfg := config.Default()
	cfg.Validation = true

	opts := cfg.ContextOptions([]string{"VK_KHR_surface"})
	c.Assert(opts.Instance.ApplicationName, qt.Equals, "Vulkan App")
	c.Assert(opts.Instance.PlatformExtensions, qt.DeepEquals, []string{"VK_KHR_surface"})
	c.Assert(opts.Instance.EnableDiagnostics, qt.IsTrue)
	c.Assert(opts.Instance.Portability, qt.IsTrue)
	c.Assert(opts.Severities, qt.Equals, gpu.SeverityWarning|gpu.SeverityError)
	c.Assert(opts.Types, qt.Equals, gpu.MessageAll)
}
