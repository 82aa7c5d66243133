package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"timedesk/internal/inspect"
	appLog "timedesk/internal/log"
	"timedesk/internal/scale"
	"timedesk/internal/session"
	"timedesk/internal/timeline"
)

// Clock modes.
const (
	ClockReal   = "real"
	ClockSeason = "season"
)

// BasicAuthConfig holds HTTP Basic Auth credentials for the page and API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// LayoutConfig is the canvas density and box geometry.
type LayoutConfig struct {
	PixelsPerMinute float64  `yaml:"pixels_per_minute" json:"pixels_per_minute"`
	Zoom            float64  `yaml:"zoom" json:"zoom"`
	MinHeight       float64  `yaml:"min_height" json:"min_height"`
	WidthFull       float64  `yaml:"width_full" json:"width_full"`
	WidthHalf       float64  `yaml:"width_half" json:"width_half"`
	MaxRotation     float64  `yaml:"max_rotation" json:"max_rotation"`
	CalmIDs         []string `yaml:"calm_ids" json:"calm_ids"`
	CalmRotation    float64  `yaml:"calm_rotation" json:"calm_rotation"`
	PairShift       float64  `yaml:"pair_shift" json:"pair_shift"`
	CanvasMargin    float64  `yaml:"canvas_margin" json:"canvas_margin"`
	DefaultDuration float64  `yaml:"default_duration" json:"default_duration"`
	// Cutoff is the "HH:MM" on January 1st where the range ends.
	Cutoff string `yaml:"cutoff" json:"cutoff"`
}

// ViewportConfig covers the responsive threshold and the initial viewport
// used before a browser reports its own.
type ViewportConfig struct {
	NarrowWidth     float64 `yaml:"narrow_width" json:"narrow_width"`
	WheelGain       float64 `yaml:"wheel_gain" json:"wheel_gain"`
	Width           float64 `yaml:"width" json:"width"`
	ContainerHeight float64 `yaml:"container_height" json:"container_height"`
}

type InspectionConfig struct {
	ColumnWidth  float64 `yaml:"column_width" json:"column_width"`
	ColumnGap    float64 `yaml:"column_gap" json:"column_gap"`
	Spacing      float64 `yaml:"spacing" json:"spacing"`
	Top          float64 `yaml:"top" json:"top"`
	BottomMargin float64 `yaml:"bottom_margin" json:"bottom_margin"`
}

type LogConfig struct {
	Level      string `yaml:"level" json:"level"`
	File       string `yaml:"file,omitempty" json:"file,omitempty"`
	MaxSizeMB  int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" json:"max_backups"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the page and API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA zone event times are read in; "Local" uses the
	// host zone.
	Timezone string `yaml:"timezone" json:"timezone"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`

	// EventsFile is a local .json, .yaml/.yml or .ics file.
	EventsFile string `yaml:"events_file" json:"events_file"`
	// EventsURL, when set, is fetched instead of EventsFile.
	EventsURL string `yaml:"events_url,omitempty" json:"events_url,omitempty"`
	// CacheDir keeps the last body fetched from EventsURL.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`
	// WatchEventsFile reloads as soon as EventsFile changes.
	WatchEventsFile bool `yaml:"watch_events_file" json:"watch_events_file"`

	// BaseYear is the December the season starts in; 0 derives it from
	// the clock.
	BaseYear int `yaml:"base_year" json:"base_year"`
	// ClockMode is "real" or "season".
	ClockMode string `yaml:"clock_mode" json:"clock_mode"`

	// RefreshCron is the cron schedule of full reloads.
	RefreshCron string `yaml:"refresh" json:"refresh"`
	// ClockTick is the cron schedule of current-time updates.
	ClockTick string `yaml:"clock_tick" json:"clock_tick"`

	Layout     LayoutConfig     `yaml:"layout" json:"layout"`
	Viewport   ViewportConfig   `yaml:"viewport" json:"viewport"`
	Inspection InspectionConfig `yaml:"inspection" json:"inspection"`
	Log        LogConfig        `yaml:"log" json:"log"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	p := timeline.DefaultParams()
	ip := inspect.DefaultParams()
	return &Config{
		Listen:          "127.0.0.1:8080",
		Timezone:        "Local",
		EventsFile:      "./events.json",
		CacheDir:        "./var/events-cache",
		WatchEventsFile: true,
		ClockMode:       ClockReal,
		RefreshCron:     "*/15 * * * *",
		ClockTick:       "@every 1m",
		Layout: LayoutConfig{
			PixelsPerMinute: p.PixelsPerMinute,
			Zoom:            p.Zoom,
			MinHeight:       p.MinHeight,
			WidthFull:       p.WidthFull,
			WidthHalf:       p.WidthHalf,
			MaxRotation:     p.MaxRotation,
			CalmIDs:         p.CalmIDs,
			CalmRotation:    p.CalmRotation,
			PairShift:       p.PairShift,
			CanvasMargin:    p.CanvasMargin,
			DefaultDuration: p.DefaultDuration,
			Cutoff:          timeline.DefaultCutoff.String(),
		},
		Viewport: ViewportConfig{
			NarrowWidth:     768,
			WheelGain:       1.5,
			Width:           1280,
			ContainerHeight: 900,
		},
		Inspection: InspectionConfig{
			ColumnWidth:  ip.ColumnWidth,
			ColumnGap:    ip.ColumnGap,
			Spacing:      ip.Spacing,
			Top:          ip.Top,
			BottomMargin: ip.BottomMargin,
		},
		Log: LogConfig{Level: "info", MaxSizeMB: 10, MaxBackups: 3},
	}
}

// Normalize fills in missing/zero values with defaults so that partially
// filled configs still behave.
func (c *Config) Normalize() {
	d := DefaultConfig()
	if c.Listen == "" {
		c.Listen = d.Listen
	}
	if c.Timezone == "" {
		c.Timezone = d.Timezone
	}
	if c.CacheDir == "" {
		c.CacheDir = d.CacheDir
	}
	switch c.ClockMode {
	case ClockReal, ClockSeason:
	default:
		c.ClockMode = ClockReal
	}
	if c.RefreshCron == "" {
		c.RefreshCron = d.RefreshCron
	}
	if c.ClockTick == "" {
		c.ClockTick = d.ClockTick
	}

	positive := func(v *float64, def float64) {
		if *v <= 0 {
			*v = def
		}
	}
	l, dl := &c.Layout, d.Layout
	positive(&l.PixelsPerMinute, dl.PixelsPerMinute)
	positive(&l.Zoom, dl.Zoom)
	positive(&l.MinHeight, dl.MinHeight)
	positive(&l.WidthFull, dl.WidthFull)
	positive(&l.WidthHalf, dl.WidthHalf)
	positive(&l.DefaultDuration, dl.DefaultDuration)
	if l.MaxRotation < 0 {
		l.MaxRotation = dl.MaxRotation
	}
	if l.CalmIDs == nil {
		l.CalmIDs = dl.CalmIDs
	}
	if l.CanvasMargin < 0 {
		l.CanvasMargin = dl.CanvasMargin
	}
	if l.Cutoff == "" {
		l.Cutoff = dl.Cutoff
	}

	v, dv := &c.Viewport, d.Viewport
	positive(&v.NarrowWidth, dv.NarrowWidth)
	positive(&v.WheelGain, dv.WheelGain)
	positive(&v.Width, dv.Width)
	positive(&v.ContainerHeight, dv.ContainerHeight)

	i, di := &c.Inspection, d.Inspection
	positive(&i.ColumnWidth, di.ColumnWidth)
	if i.ColumnGap < 0 {
		i.ColumnGap = di.ColumnGap
	}
	if i.Spacing < 0 {
		i.Spacing = di.Spacing
	}
	if i.Top < 0 {
		i.Top = di.Top
	}
	if i.BottomMargin < 0 {
		i.BottomMargin = di.BottomMargin
	}

	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.MaxSizeMB <= 0 {
		c.Log.MaxSizeMB = d.Log.MaxSizeMB
	}
	if c.Log.MaxBackups < 0 {
		c.Log.MaxBackups = d.Log.MaxBackups
	}
}

// Validate checks the fields Normalize cannot repair.
func (c *Config) Validate() error {
	var errs []error
	if _, err := c.Location(); err != nil {
		errs = append(errs, fmt.Errorf("timezone %q: %w", c.Timezone, err))
	}
	if _, err := timeline.ParseCutoff(c.Layout.Cutoff); err != nil {
		errs = append(errs, err)
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(c.RefreshCron); err != nil {
		errs = append(errs, fmt.Errorf("refresh %q: %w", c.RefreshCron, err))
	}
	if _, err := parser.Parse(c.ClockTick); err != nil {
		errs = append(errs, fmt.Errorf("clock_tick %q: %w", c.ClockTick, err))
	}
	if c.EventsFile == "" && c.EventsURL == "" {
		errs = append(errs, errors.New("one of events_file or events_url is required"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// Session builds the session configuration.
func (c *Config) Session() (session.Config, error) {
	loc, err := c.Location()
	if err != nil {
		return session.Config{}, fmt.Errorf("config: timezone %q: %w", c.Timezone, err)
	}
	cutoff, err := timeline.ParseCutoff(c.Layout.Cutoff)
	if err != nil {
		return session.Config{}, fmt.Errorf("config: %w", err)
	}
	l := c.Layout
	return session.Config{
		BaseYear:    c.BaseYear,
		Location:    loc,
		SeasonClock: c.ClockMode == ClockSeason,
		Cutoff:      cutoff,
		Layout: timeline.Params{
			PixelsPerMinute: l.PixelsPerMinute,
			Zoom:            l.Zoom,
			MinHeight:       l.MinHeight,
			WidthFull:       l.WidthFull,
			WidthHalf:       l.WidthHalf,
			MaxRotation:     l.MaxRotation,
			CalmIDs:         l.CalmIDs,
			CalmRotation:    l.CalmRotation,
			PairShift:       l.PairShift,
			CanvasMargin:    l.CanvasMargin,
			DefaultDuration: l.DefaultDuration,
		},
		Scale: scale.Config{
			PixelsPerMinute: l.PixelsPerMinute,
			Zoom:            l.Zoom,
			NarrowWidth:     c.Viewport.NarrowWidth,
			WheelGain:       c.Viewport.WheelGain,
		},
		Viewport: scale.Viewport{
			Width:           c.Viewport.Width,
			ContainerHeight: c.Viewport.ContainerHeight,
		},
		Inspection: inspect.Params{
			ColumnWidth:  c.Inspection.ColumnWidth,
			ColumnGap:    c.Inspection.ColumnGap,
			Spacing:      c.Inspection.Spacing,
			Top:          c.Inspection.Top,
			BottomMargin: c.Inspection.BottomMargin,
		},
	}, nil
}

// LogOptions maps the log section onto the logger options.
func (c *Config) LogOptions() appLog.Options {
	return appLog.Options{
		Level:      appLog.ParseLevel(c.Log.Level),
		File:       c.Log.File,
		MaxSizeMB:  c.Log.MaxSizeMB,
		MaxBackups: c.Log.MaxBackups,
	}
}

// Load loads configuration from the given YAML path. On first run the file
// does not exist yet: a default config is written with 0600 perms and
// returned.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Still hand back the defaults so the caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	// Keys missing from the file keep their defaults.
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return cfg, nil
}

// Save writes cfg to path atomically (temp file + rename) with 0600 perms.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".timedesk-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

func (c *Config) Save(path string) error {
	return Save(path, c)
}
