// Package config defines the structures to configure the viewer: its sensors, how clouds
// are drawn, where profiles and settings live, and the snapshot output.
package config

import (
	"fmt"
	"image/color"
	"path/filepath"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/rigview/logging"
	"go.viam.com/rigview/panel"
	"go.viam.com/rigview/pointcloud"
	"go.viam.com/rigview/rig"
	"go.viam.com/rigview/sensor"
	"go.viam.com/rigview/store"
)

// Defaults applied by Ensure.
const (
	DefaultFrameRate      = 30.0
	DefaultMountCenterMM  = 1000.0
	DefaultSnapshotWidth  = 640
	DefaultSnapshotHeight = 480
	DefaultSnapshotEvery  = 30
	DefaultStoreDir       = "profiles"
	DefaultExportPath     = "merged.pcd"
)

// Config describes a viewer.
type Config struct {
	ConfigFilePath string `json:"-"`

	Primary   sensor.Config  `json:"primary"`
	Secondary *sensor.Config `json:"secondary,omitempty"`

	Stride        int     `json:"stride,omitempty"`
	PointSize     float64 `json:"point_size,omitempty"`
	PrimaryTint   string  `json:"primary_tint,omitempty"`
	SecondaryTint string  `json:"secondary_tint,omitempty"`
	MountCenterMM float64 `json:"mount_center_mm,omitempty"`

	RigScale rig.Scale    `json:"rig_scale"`
	Store    store.Config `json:"store"`
	// Profile names the rig profile saved and loaded by key presses.
	Profile       string `json:"profile,omitempty"`
	SettingsFile  string `json:"settings_file,omitempty"`
	WatchSettings bool   `json:"watch_settings,omitempty"`

	FrameRate  float64  `json:"frame_rate,omitempty"`
	Snapshot   Snapshot `json:"snapshot"`
	ExportPath string   `json:"export_path,omitempty"`

	// Log sets the levels of the viewer's named loggers.
	Log []logging.LoggerPatternConfig `json:"log,omitempty"`
}

// Snapshot configures periodic PNG snapshots of the rendered scene. An empty path turns
// snapshots off.
type Snapshot struct {
	Path   string `json:"path,omitempty"`
	Every  int    `json:"every_frames,omitempty"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// Default returns a config that views a fake sensor, and a second one when withSecondary
// is set.
func Default(withSecondary bool) *Config {
	conf := &Config{
		Primary: sensor.Config{Name: "primary", Model: "fake"},
	}
	if withSecondary {
		conf.Secondary = &sensor.Config{
			Name:       "secondary",
			Model:      "fake",
			Attributes: []byte(`{"sphere_center_mm": {"X": -400, "Y": 100, "Z": 1800}, "swing_mm": 300}`),
		}
	}
	conf.Ensure()
	return conf
}

// Ensure fills in defaults for anything left unset. Paths that are relative are kept
// relative to the working directory.
func (c *Config) Ensure() {
	defaults := panel.DefaultSettings()
	if c.Stride == 0 {
		c.Stride = pointcloud.DefaultStride
	}
	if c.PointSize == 0 {
		c.PointSize = defaults.PointSize
	}
	if c.PrimaryTint == "" {
		c.PrimaryTint = defaults.PrimaryTint
	}
	if c.SecondaryTint == "" {
		c.SecondaryTint = defaults.SecondaryTint
	}
	if c.MountCenterMM == 0 {
		c.MountCenterMM = DefaultMountCenterMM
	}
	def := rig.DefaultScale()
	if c.RigScale.TranslationMM == 0 {
		c.RigScale.TranslationMM = def.TranslationMM
	}
	if c.RigScale.RotationDeg == 0 {
		c.RigScale.RotationDeg = def.RotationDeg
	}
	if c.Store.Type == "" {
		c.Store.Type = store.TypeFile
	}
	if c.Store.Path == "" {
		c.Store.Path = DefaultStoreDir
	}
	if c.Profile == "" {
		c.Profile = rig.DefaultProfile
	}
	if c.SettingsFile == "" {
		c.SettingsFile = panel.DefaultSettingsFile
	}
	if c.FrameRate == 0 {
		c.FrameRate = DefaultFrameRate
	}
	if c.Snapshot.Every == 0 {
		c.Snapshot.Every = DefaultSnapshotEvery
	}
	if c.Snapshot.Width == 0 {
		c.Snapshot.Width = DefaultSnapshotWidth
	}
	if c.Snapshot.Height == 0 {
		c.Snapshot.Height = DefaultSnapshotHeight
	}
	if c.ExportPath == "" {
		c.ExportPath = DefaultExportPath
	}
}

// Validate ensures all parts of the config are valid. Every problem found is reported.
func (c *Config) Validate() error {
	var err error
	err = multierr.Append(err, c.Primary.Validate("primary"))
	if c.Secondary != nil {
		err = multierr.Append(err, c.Secondary.Validate("secondary"))
		if c.Secondary.Name == c.Primary.Name {
			err = multierr.Append(err, errors.Errorf("sensor name %q is not unique", c.Primary.Name))
		}
	}
	if c.Stride < 1 {
		err = multierr.Append(err, errors.Errorf("stride must be at least 1, got %d", c.Stride))
	}
	if c.PointSize < panel.MinPointSize || c.PointSize > panel.MaxPointSize {
		err = multierr.Append(err, errors.Errorf("point_size %v out of range [%v, %v]",
			c.PointSize, panel.MinPointSize, panel.MaxPointSize))
	}
	if _, _, terr := c.Tints(); terr != nil {
		err = multierr.Append(err, terr)
	}
	if c.MountCenterMM < 0 {
		err = multierr.Append(err, errors.Errorf("mount_center_mm cannot be negative, got %v", c.MountCenterMM))
	}
	if c.RigScale.TranslationMM < 0 || c.RigScale.RotationDeg < 0 {
		err = multierr.Append(err, errors.New("rig_scale cannot be negative"))
	}
	err = multierr.Append(err, c.Store.Validate("store"))
	if c.FrameRate <= 0 {
		err = multierr.Append(err, errors.Errorf("frame_rate must be positive, got %v", c.FrameRate))
	}
	err = multierr.Append(err, c.Snapshot.Validate("snapshot"))
	for i, lpc := range c.Log {
		err = multierr.Append(err, lpc.Validate(fmt.Sprintf("log.%d", i)))
	}
	if ext := filepath.Ext(c.ExportPath); ext != ".pcd" && ext != ".las" {
		err = multierr.Append(err, errors.Errorf("export_path %q must end in .pcd or .las", c.ExportPath))
	}
	return err
}

// Validate ensures all parts of the snapshot config are valid.
func (s Snapshot) Validate(path string) error {
	var err error
	if s.Every < 1 {
		err = multierr.Append(err, errors.Errorf("%s: every_frames must be at least 1", path))
	}
	if s.Width < 1 || s.Height < 1 {
		err = multierr.Append(err, errors.Errorf("%s: size %dx%d must be positive", path, s.Width, s.Height))
	}
	if s.Path != "" && filepath.Ext(s.Path) != ".png" {
		err = multierr.Append(err, errors.Errorf("%s: %q is not a .png file", path, s.Path))
	}
	return err
}

// Tints returns the parsed placeholder colors.
func (c *Config) Tints() (primary, secondary color.NRGBA, err error) {
	primary, perr := panel.ParseTint(c.PrimaryTint)
	secondary, serr := panel.ParseTint(c.SecondaryTint)
	return primary, secondary, multierr.Combine(
		errors.Wrap(perr, "primary_tint"),
		errors.Wrap(serr, "secondary_tint"),
	)
}

// SensorConfigs returns the configured sensors, primary first.
func (c *Config) SensorConfigs() []sensor.Config {
	confs := []sensor.Config{c.Primary}
	if c.Secondary != nil {
		confs = append(confs, *c.Secondary)
	}
	return confs
}

func (c *Config) String() string {
	secondary := "none"
	if c.Secondary != nil {
		secondary = fmt.Sprintf("%s (%s)", c.Secondary.Name, c.Secondary.Model)
	}
	return fmt.Sprintf("primary %s (%s), secondary %s, %v fps", c.Primary.Name, c.Primary.Model, secondary, c.FrameRate)
}
