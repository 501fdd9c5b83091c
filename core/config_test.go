// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core_test

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/devblok/frametech/core"
	"github.com/gobuffalo/envy"
	log "github.com/sirupsen/logrus"
)

func setenv(t *testing.T, key, value string) {
	t.Helper()
	t.Setenv(key, value)
	envy.Reload()
}

func TestDefaultConfiguration(t *testing.T) {
	cfg := core.DefaultConfiguration()
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	if cfg.Renderer.ScreenWidth != 1280 || cfg.Renderer.ScreenHeight != 720 {
		t.Errorf("screen is %dx%d", cfg.Renderer.ScreenWidth, cfg.Renderer.ScreenHeight)
	}
	if cfg.Time.FramesPerSecond != 60 {
		t.Error("fps is", cfg.Time.FramesPerSecond)
	}
	if cfg.LogLevel() != log.InfoLevel {
		t.Error("log level is", cfg.LogLevel())
	}
	if cfg.Instance.Layers() != nil {
		t.Error("layers enabled without debug")
	}
}

func TestLoadConfigurationMissingFile(t *testing.T) {
	cfg, err := core.LoadConfiguration(filepath.Join(t.TempDir(), "none.toml"), "")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Renderer.Shaders != core.DefaultConfiguration().Renderer.Shaders {
		t.Error("missing file changed the defaults")
	}
}

func TestLoadConfigurationFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frametech.toml")
	data := `
[instance]
debug = true
allowlist = ["llvmpipe"]

[time]
fps = 144

[renderer]
width = 1920
height = 1080
shaders = "pack/shaders.kar"

[log]
level = "debug"
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := core.LoadConfiguration(path, "")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Time.FramesPerSecond != 144 {
		t.Error("fps is", cfg.Time.FramesPerSecond)
	}
	if cfg.Renderer.ScreenWidth != 1920 || cfg.Renderer.ScreenHeight != 1080 {
		t.Errorf("screen is %dx%d", cfg.Renderer.ScreenWidth, cfg.Renderer.ScreenHeight)
	}
	if cfg.Renderer.Shaders != "pack/shaders.kar" {
		t.Error("shaders are", cfg.Renderer.Shaders)
	}
	if !cfg.Instance.Debug || len(cfg.Instance.Allowlist) != 1 {
		t.Error("instance section not read:", cfg.Instance)
	}
	if cfg.LogLevel() != log.DebugLevel {
		t.Error("log level is", cfg.LogLevel())
	}
	if cfg.Time.EventPollDelay != 1 {
		t.Error("unset value lost its default:", cfg.Time.EventPollDelay)
	}
}

func TestLoadConfigurationInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.toml")
	if err := os.WriteFile(path, []byte("[time\nfps = "), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := core.LoadConfiguration(path, ""); err == nil {
		t.Error("broken file must fail")
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Cleanup(envy.Reload)
	setenv(t, core.EnvFramesPerSecond, "0")
	setenv(t, core.EnvScreenWidth, "800")
	setenv(t, core.EnvDebug, "true")
	setenv(t, core.EnvShaders, core.BoxShaders)

	cfg, err := core.LoadConfiguration("", "")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Time.FramesPerSecond != 0 {
		t.Error("fps is", cfg.Time.FramesPerSecond)
	}
	if cfg.Renderer.ScreenWidth != 800 || cfg.Renderer.ScreenHeight != 720 {
		t.Errorf("screen is %dx%d", cfg.Renderer.ScreenWidth, cfg.Renderer.ScreenHeight)
	}
	if !cfg.Instance.Debug {
		t.Error("debug not enabled")
	}
	if cfg.Renderer.Shaders != core.BoxShaders {
		t.Error("shaders are", cfg.Renderer.Shaders)
	}
}

func TestEnvironmentOverrideInvalid(t *testing.T) {
	t.Cleanup(envy.Reload)
	setenv(t, core.EnvFramesPerSecond, "fast")
	if _, err := core.LoadConfiguration("", ""); err == nil {
		t.Error("non numeric fps must fail")
	}
}

func TestEnvFile(t *testing.T) {
	t.Cleanup(func() {
		os.Unsetenv(core.EnvScreenHeight)
		envy.Reload()
	})
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte(core.EnvScreenHeight+"=600\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := core.LoadConfiguration("", path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Renderer.ScreenHeight != 600 {
		t.Error("height is", cfg.Renderer.ScreenHeight)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		modify func(*core.Configuration)
	}{
		{"negative fps", func(c *core.Configuration) { c.Time.FramesPerSecond = -1 }},
		{"zero width", func(c *core.Configuration) { c.Renderer.ScreenWidth = 0 }},
		{"zero height", func(c *core.Configuration) { c.Renderer.ScreenHeight = 0 }},
		{"bad log level", func(c *core.Configuration) { c.Log.Level = "loud" }},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			cfg := core.DefaultConfiguration()
			c.modify(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation failure")
			}
		})
	}
}

func TestInstanceExtensions(t *testing.T) {
	cfg := core.DefaultConfiguration().Instance
	exts := cfg.InstanceExtensions([]string{"VK_KHR_surface\x00", "VK_KHR_xlib_surface"})
	if !contains(exts, "VK_KHR_surface") || !contains(exts, "VK_KHR_xlib_surface") {
		t.Error("window extensions missing:", exts)
	}
	if contains(exts, "VK_EXT_debug_report") {
		t.Error("debug extension enabled without debug")
	}

	cfg.Debug = true
	exts = cfg.InstanceExtensions(nil)
	if !contains(exts, "VK_EXT_debug_report") {
		t.Error("debug extension missing:", exts)
	}
	if layers := cfg.Layers(); !contains(layers, "VK_LAYER_KHRONOS_validation") {
		t.Error("validation layer missing:", layers)
	}

	if runtime.GOOS == "darwin" && !contains(exts, "VK_KHR_portability_enumeration") {
		t.Error("portability enumeration missing on darwin")
	}
}

func TestDeviceExtensionNames(t *testing.T) {
	names := core.DefaultConfiguration().Instance.DeviceExtensionNames()
	if !contains(names, "VK_KHR_swapchain") {
		t.Error("swapchain extension missing:", names)
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] > names[i] {
			t.Error("names are not sorted:", names)
		}
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
