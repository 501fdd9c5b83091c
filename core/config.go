// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"os"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"github.com/gobuffalo/envy"
	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	vk "github.com/vulkan-go/vulkan"
)

// Environment variables overriding the configuration file
const (
	EnvFramesPerSecond = "FRAMETECH_FPS"
	EnvScreenWidth     = "FRAMETECH_WIDTH"
	EnvScreenHeight    = "FRAMETECH_HEIGHT"
	EnvDebug           = "FRAMETECH_DEBUG"
	EnvShaders         = "FRAMETECH_SHADERS"
	EnvLogLevel        = "FRAMETECH_LOG_LEVEL"
	EnvMesh            = "FRAMETECH_MESH"
)

// Configuration defines a global engine configuration setting
type Configuration struct {
	Application ApplicationConfiguration `toml:"application"`
	Instance    InstanceConfiguration    `toml:"instance"`
	Time        TimeConfiguration        `toml:"time"`
	Renderer    RendererConfiguration    `toml:"renderer"`
	Log         LogConfiguration         `toml:"log"`
}

// ApplicationConfiguration names the application to the driver
type ApplicationConfiguration struct {
	Name    string  `toml:"name"`
	Version Version `toml:"version"`
}

// InstanceConfiguration lists the layers and extensions to enable.
// Maps go from the name to what it is needed for.
type InstanceConfiguration struct {
	// Debug enables the validation layers and debug extensions
	Debug bool `toml:"debug"`

	Extensions      map[string]string `toml:"extensions"`
	DebugExtensions map[string]string `toml:"debug_extensions"`
	DebugLayers     map[string]string `toml:"debug_layers"`

	DeviceExtensions map[string]string `toml:"device_extensions"`

	// Allowlist names non-discrete devices accepted for rendering
	Allowlist []string `toml:"allowlist"`
}

// TimeConfiguration is used to configure time services
type TimeConfiguration struct {
	// FramesPerSecond caps frames per second that is put out
	// To unlimit, set to 0
	FramesPerSecond int `toml:"fps"`

	// EventPollDelay is the event loop polling interval in milliseconds
	EventPollDelay int `toml:"event_poll_delay"`
}

// RendererConfiguration is used to configure the renderer
type RendererConfiguration struct {
	ScreenWidth  uint32 `toml:"width"`
	ScreenHeight uint32 `toml:"height"`

	// Shaders is a directory of .spv files, a .kar archive or
	// BoxShaders for the shaders embedded in the binary
	Shaders string `toml:"shaders"`

	// Mesh is an optional COLLADA file drawn every frame
	Mesh string `toml:"mesh"`
}

// LogConfiguration sets up logging
type LogConfiguration struct {
	Level string `toml:"level"`
}

// BoxShaders selects the embedded shader box as the shader source
const BoxShaders = "box"

// DefaultConfiguration returns the configuration used when nothing is overridden.
func DefaultConfiguration() Configuration {
	return Configuration{
		Application: ApplicationConfiguration{
			Name:    ApplicationName,
			Version: EngineVersion,
		},
		Instance: InstanceConfiguration{
			Extensions: map[string]string{},
			DebugExtensions: map[string]string{
				vk.ExtDebugReportExtensionName: "validation messages",
			},
			DebugLayers: map[string]string{
				"VK_LAYER_KHRONOS_validation": "API usage validation",
			},
			DeviceExtensions: map[string]string{
				vk.KhrSwapchainExtensionName: "presentation",
			},
		},
		Time: TimeConfiguration{
			FramesPerSecond: 60,
			EventPollDelay:  1,
		},
		Renderer: RendererConfiguration{
			ScreenWidth:  1280,
			ScreenHeight: 720,
			Shaders:      "shaders",
		},
		Log: LogConfiguration{
			Level: log.InfoLevel.String(),
		},
	}
}

// LoadConfiguration reads the TOML file at path over the defaults, then
// applies the .env file and environment overrides. An empty path or a
// missing file keeps the defaults.
func LoadConfiguration(path, envFile string) (Configuration, error) {
	cfg := DefaultConfiguration()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return cfg, errors.Wrap(err, "reading configuration")
		default:
			if err := toml.Unmarshal(data, &cfg); err != nil {
				return cfg, errors.Wrapf(err, "parsing %s", path)
			}
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return cfg, errors.Wrapf(err, "loading %s", envFile)
		}
		envy.Reload()
	}

	if err := cfg.applyEnvironment(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Configuration) applyEnvironment() error {
	if v := envy.Get(EnvFramesPerSecond, ""); v != "" {
		fps, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrap(err, EnvFramesPerSecond)
		}
		c.Time.FramesPerSecond = fps
	}
	if v := envy.Get(EnvScreenWidth, ""); v != "" {
		w, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return errors.Wrap(err, EnvScreenWidth)
		}
		c.Renderer.ScreenWidth = uint32(w)
	}
	if v := envy.Get(EnvScreenHeight, ""); v != "" {
		h, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return errors.Wrap(err, EnvScreenHeight)
		}
		c.Renderer.ScreenHeight = uint32(h)
	}
	if v := envy.Get(EnvDebug, ""); v != "" {
		debug, err := strconv.ParseBool(v)
		if err != nil {
			return errors.Wrap(err, EnvDebug)
		}
		c.Instance.Debug = debug
	}
	if v := envy.Get(EnvShaders, ""); v != "" {
		c.Renderer.Shaders = v
	}
	if v := envy.Get(EnvMesh, ""); v != "" {
		c.Renderer.Mesh = v
	}
	if v := envy.Get(EnvLogLevel, ""); v != "" {
		c.Log.Level = v
	}
	return nil
}

// Validate rejects values the engine cannot run with.
func (c Configuration) Validate() error {
	if c.Time.FramesPerSecond < 0 {
		return errors.Errorf("frames per second must not be negative, got %d", c.Time.FramesPerSecond)
	}
	if c.Renderer.ScreenWidth == 0 || c.Renderer.ScreenHeight == 0 {
		return errors.Errorf("screen size %dx%d is empty", c.Renderer.ScreenWidth, c.Renderer.ScreenHeight)
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return errors.Wrap(err, "log level")
	}
	return nil
}

// LogLevel returns the configured logrus level, info when invalid.
func (c Configuration) LogLevel() log.Level {
	level, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		return log.InfoLevel
	}
	return level
}

// Layers returns the instance layers to enable, sorted by name.
func (c InstanceConfiguration) Layers() []string {
	if !c.Debug {
		return nil
	}
	return names(c.DebugLayers)
}

// InstanceExtensions returns the configured instance extensions merged with
// required, sorted by name. Portability enumeration is added on darwin.
func (c InstanceConfiguration) InstanceExtensions(required []string) []string {
	all := make(map[string]string, len(c.Extensions)+len(required))
	for name, purpose := range c.Extensions {
		all[name] = purpose
	}
	if c.Debug {
		for name, purpose := range c.DebugExtensions {
			all[name] = purpose
		}
	}
	for _, name := range required {
		all[strings.TrimRight(name, "\x00")] = "window surface"
	}
	if runtime.GOOS == "darwin" {
		all["VK_KHR_portability_enumeration"] = "portability enumeration"
		all["VK_KHR_get_physical_device_properties2"] = "portability enumeration"
	}
	return names(all)
}

// DeviceExtensionNames returns the device extensions to enable, sorted by name.
// The portability subset is added on darwin.
func (c InstanceConfiguration) DeviceExtensionNames() []string {
	all := make(map[string]string, len(c.DeviceExtensions)+1)
	for name, purpose := range c.DeviceExtensions {
		all[name] = purpose
	}
	if runtime.GOOS == "darwin" {
		all["VK_KHR_portability_subset"] = "portability"
	}
	return names(all)
}

func names(m map[string]string) []string {
	if len(m) == 0 {
		return nil
	}
	out := make([]string, 0, len(m))
	for name := range m {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
