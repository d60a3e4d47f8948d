package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bryanchriswhite/grab/internal/logger"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// SourceKind selects the media origin variant
type SourceKind string

const (
	SourceDevice SourceKind = "device" // Live camera by index
	SourceClip   SourceKind = "clip"   // Movie file, looped
	SourceStill  SourceKind = "still"  // Image file, decoded on every frame
)

// SourceConfig describes the media origin
type SourceConfig struct {
	Kind   SourceKind `json:"kind" yaml:"kind" mapstructure:"kind"`
	Device int        `json:"device" yaml:"device" mapstructure:"device"`
	Path   string     `json:"path,omitempty" yaml:"path,omitempty" mapstructure:"path"`
}

// MediaConfig holds the post-processing bounds and placeholder geometry
type MediaConfig struct {
	MinScale        float64 `json:"min_scale" yaml:"min_scale" mapstructure:"min_scale"`
	MaxScale        float64 `json:"max_scale" yaml:"max_scale" mapstructure:"max_scale"`
	ScaleStep       float64 `json:"scale_step" yaml:"scale_step" mapstructure:"scale_step"`
	DefaultWidth    int     `json:"default_width" yaml:"default_width" mapstructure:"default_width"`
	DefaultHeight   int     `json:"default_height" yaml:"default_height" mapstructure:"default_height"`
	PlaceholderPath string  `json:"placeholder_path,omitempty" yaml:"placeholder_path,omitempty" mapstructure:"placeholder_path"`
}

// PreviewConfig represents preview window configuration
type PreviewConfig struct {
	Title           string `json:"title" yaml:"title" mapstructure:"title"`
	KeyWaitMS       int    `json:"key_wait_ms" yaml:"key_wait_ms" mapstructure:"key_wait_ms"`
	IndicatorX      int    `json:"indicator_x" yaml:"indicator_x" mapstructure:"indicator_x"`
	IndicatorY      int    `json:"indicator_y" yaml:"indicator_y" mapstructure:"indicator_y"`
	IndicatorRadius int    `json:"indicator_radius" yaml:"indicator_radius" mapstructure:"indicator_radius"`
}

// RecordingConfig controls snapshot and video output
type RecordingConfig struct {
	OutputDir   string  `json:"output_dir" yaml:"output_dir" mapstructure:"output_dir"`
	FPS         float64 `json:"fps" yaml:"fps" mapstructure:"fps"`
	Codec       string  `json:"codec" yaml:"codec" mapstructure:"codec"`
	VideoExt    string  `json:"video_ext" yaml:"video_ext" mapstructure:"video_ext"`
	SnapshotExt string  `json:"snapshot_ext" yaml:"snapshot_ext" mapstructure:"snapshot_ext"`
}

// ControlConfig represents the optional local control API
type ControlConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	Address string `json:"address" yaml:"address" mapstructure:"address"`
	Port    int    `json:"port" yaml:"port" mapstructure:"port"`
}

// Config represents the application configuration
type Config struct {
	Source    SourceConfig    `json:"source" yaml:"source" mapstructure:"source"`
	Media     MediaConfig     `json:"media" yaml:"media" mapstructure:"media"`
	Preview   PreviewConfig   `json:"preview" yaml:"preview" mapstructure:"preview"`
	Recording RecordingConfig `json:"recording" yaml:"recording" mapstructure:"recording"`
	Control   ControlConfig   `json:"control" yaml:"control" mapstructure:"control"`
	LogLevel  string          `json:"log_level" yaml:"log_level" mapstructure:"log_level"`
}

// Defaults returns the built-in configuration
func Defaults() *Config {
	return &Config{
		Source: SourceConfig{
			Kind:   SourceDevice,
			Device: 0,
		},
		Media: MediaConfig{
			MinScale:        0.2,
			MaxScale:        2.0,
			ScaleStep:       0.1,
			DefaultWidth:    640,
			DefaultHeight:   480,
			PlaceholderPath: "Test.bmp",
		},
		Preview: PreviewConfig{
			Title:           "Source",
			KeyWaitMS:       40,
			IndicatorX:      20,
			IndicatorY:      20,
			IndicatorRadius: 10,
		},
		Recording: RecordingConfig{
			OutputDir:   ".",
			FPS:         25,
			Codec:       "MJPG",
			VideoExt:    "avi",
			SnapshotExt: "bmp",
		},
		Control: ControlConfig{
			Enabled: false,
			Address: "127.0.0.1",
			Port:    8088,
		},
		LogLevel: "info",
	}
}

// Validate clamps out-of-range values back to usable ones
func (c *Config) Validate() error {
	d := Defaults()

	switch c.Source.Kind {
	case SourceDevice:
		if c.Source.Device < 0 {
			return fmt.Errorf("invalid device index %d", c.Source.Device)
		}
	case SourceClip, SourceStill:
		if c.Source.Path == "" {
			return fmt.Errorf("source kind %q requires a path", c.Source.Kind)
		}
	case "":
		c.Source.Kind = SourceDevice
	default:
		return fmt.Errorf("unknown source kind %q (use device, clip or still)", c.Source.Kind)
	}

	if c.Media.MinScale <= 0 {
		c.Media.MinScale = d.Media.MinScale
	}
	if c.Media.MaxScale < c.Media.MinScale {
		c.Media.MaxScale = c.Media.MinScale
	}
	if c.Media.ScaleStep <= 0 {
		c.Media.ScaleStep = d.Media.ScaleStep
	}
	if c.Media.DefaultWidth <= 0 {
		c.Media.DefaultWidth = d.Media.DefaultWidth
	}
	if c.Media.DefaultHeight <= 0 {
		c.Media.DefaultHeight = d.Media.DefaultHeight
	}

	if c.Preview.KeyWaitMS <= 0 {
		c.Preview.KeyWaitMS = d.Preview.KeyWaitMS
	}
	if c.Preview.IndicatorRadius <= 0 {
		c.Preview.IndicatorRadius = d.Preview.IndicatorRadius
	}
	if c.Preview.Title == "" {
		c.Preview.Title = d.Preview.Title
	}

	if c.Recording.FPS <= 0 {
		c.Recording.FPS = d.Recording.FPS
	}
	if len(c.Recording.Codec) != 4 {
		c.Recording.Codec = d.Recording.Codec
	}
	if c.Recording.OutputDir == "" {
		c.Recording.OutputDir = d.Recording.OutputDir
	}
	c.Recording.VideoExt = strings.TrimPrefix(c.Recording.VideoExt, ".")
	if c.Recording.VideoExt == "" {
		c.Recording.VideoExt = d.Recording.VideoExt
	}
	c.Recording.SnapshotExt = strings.TrimPrefix(c.Recording.SnapshotExt, ".")
	if c.Recording.SnapshotExt == "" {
		c.Recording.SnapshotExt = d.Recording.SnapshotExt
	}

	if c.Control.Port <= 0 || c.Control.Port > 65535 {
		c.Control.Port = d.Control.Port
	}
	if c.Control.Address == "" {
		c.Control.Address = d.Control.Address
	}

	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	return nil
}

// setDefaults registers every default with viper so env overrides and
// partial files resolve against them
func setDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("source.kind", string(d.Source.Kind))
	v.SetDefault("source.device", d.Source.Device)
	v.SetDefault("source.path", d.Source.Path)
	v.SetDefault("media.min_scale", d.Media.MinScale)
	v.SetDefault("media.max_scale", d.Media.MaxScale)
	v.SetDefault("media.scale_step", d.Media.ScaleStep)
	v.SetDefault("media.default_width", d.Media.DefaultWidth)
	v.SetDefault("media.default_height", d.Media.DefaultHeight)
	v.SetDefault("media.placeholder_path", d.Media.PlaceholderPath)
	v.SetDefault("preview.title", d.Preview.Title)
	v.SetDefault("preview.key_wait_ms", d.Preview.KeyWaitMS)
	v.SetDefault("preview.indicator_x", d.Preview.IndicatorX)
	v.SetDefault("preview.indicator_y", d.Preview.IndicatorY)
	v.SetDefault("preview.indicator_radius", d.Preview.IndicatorRadius)
	v.SetDefault("recording.output_dir", d.Recording.OutputDir)
	v.SetDefault("recording.fps", d.Recording.FPS)
	v.SetDefault("recording.codec", d.Recording.Codec)
	v.SetDefault("recording.video_ext", d.Recording.VideoExt)
	v.SetDefault("recording.snapshot_ext", d.Recording.SnapshotExt)
	v.SetDefault("control.enabled", d.Control.Enabled)
	v.SetDefault("control.address", d.Control.Address)
	v.SetDefault("control.port", d.Control.Port)
	v.SetDefault("log_level", d.LogLevel)
}

// Manager loads configuration. It never writes the file back: settings
// changed at runtime live only for the current run.
type Manager struct {
	v          *viper.Viper
	configPath string
	config     *Config
	mu         sync.RWMutex
}

// NewManager creates a new configuration manager. An empty configFile
// searches $HOME/.config/grab and the working directory for config.yaml;
// a missing file there is not an error.
func NewManager(configFile string) (*Manager, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("GRAB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if homeDir, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(homeDir, ".config", "grab"))
		}
		v.AddConfigPath(".")
	}

	m := &Manager{v: v}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		logger.WithComponent("config").Debug().Msg("No config file found, using defaults")
	} else {
		m.configPath = v.ConfigFileUsed()
	}

	cfg, err := m.decode()
	if err != nil {
		return nil, err
	}
	m.config = cfg

	logger.WithComponent("config").Debug().
		Str("path", m.configPath).
		Str("source", string(cfg.Source.Kind)).
		Msg("Config loaded")

	return m, nil
}

// decode unmarshals and validates the current viper state
func (m *Manager) decode() (*Config, error) {
	var cfg Config
	if err := m.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Get returns a copy of the current configuration
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.config == nil {
		return Defaults()
	}
	cfg := *m.config
	return &cfg
}

// Watch reloads the file on change and hands the new configuration to
// onChange. Only settings that can be applied live should be read from it.
func (m *Manager) Watch(onChange func(*Config)) {
	if m.configPath == "" {
		return
	}
	m.v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := m.decode()
		if err != nil {
			logger.WithComponent("config").Warn().Err(err).Str("path", e.Name).Msg("Ignoring invalid config change")
			return
		}
		m.mu.Lock()
		m.config = cfg
		m.mu.Unlock()
		logger.WithComponent("config").Info().Str("path", e.Name).Msg("Config reloaded")
		onChange(cfg)
	})
	m.v.WatchConfig()
}

// SetDevice overrides the device index for this run
func (m *Manager) SetDevice(index int) error {
	if index < 0 {
		return fmt.Errorf("invalid device index %d", index)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config.Source.Kind = SourceDevice
	m.config.Source.Device = index
	m.config.Source.Path = ""
	return nil
}

// SetLogLevel overrides the log level for this run
func (m *Manager) SetLogLevel(level string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config.LogLevel = level
}

// EnableControl turns the control API on at the given port for this run
func (m *Manager) EnableControl(port int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config.Control.Enabled = true
	if port > 0 && port <= 65535 {
		m.config.Control.Port = port
	}
}

// GetViper exposes the underlying viper instance for key lookups
func (m *Manager) GetViper() *viper.Viper {
	return m.v
}

// GetConfigPath returns the config file in use, or "" when running on defaults
func (m *Manager) GetConfigPath() string {
	return m.configPath
}
