// Package viewer runs the render loop: it owns the sensors, the rig, the view and the
// settings panel, and each tick turns queued input into one rendered frame.
package viewer

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/rigview/config"
	"go.viam.com/rigview/input"
	"go.viam.com/rigview/logging"
	"go.viam.com/rigview/panel"
	"go.viam.com/rigview/pointcloud"
	"go.viam.com/rigview/render/raster"
	"go.viam.com/rigview/rig"
	"go.viam.com/rigview/rimage"
	"go.viam.com/rigview/scene"
	"go.viam.com/rigview/sensor"
	"go.viam.com/rigview/store"
	rutils "go.viam.com/rigview/utils"
	"go.viam.com/rigview/viewport"
)

// Camera steps applied per key press.
const (
	OrbitStepDeg = 5.0
	ZoomStep     = 1.1
	PanStepMM    = 50.0
)

// Slider steps applied per key press.
const (
	TranslationStep = 0.05
	RotationStep    = 0.02
	PivotStepMM     = 50.0
	PointSizeStep   = 1.0
)

type nudge struct {
	slider string
	delta  float64
}

var sliderKeys = map[input.Command]nudge{
	input.CommandDollyIn:       {panel.SliderDolly, TranslationStep},
	input.CommandDollyOut:      {panel.SliderDolly, -TranslationStep},
	input.CommandTruckRight:    {panel.SliderTruck, TranslationStep},
	input.CommandTruckLeft:     {panel.SliderTruck, -TranslationStep},
	input.CommandBoomUp:        {panel.SliderBoom, TranslationStep},
	input.CommandBoomDown:      {panel.SliderBoom, -TranslationStep},
	input.CommandRotateRight:   {panel.SliderRotate, RotationStep},
	input.CommandRotateLeft:    {panel.SliderRotate, -RotationStep},
	input.CommandTiltUp:        {panel.SliderTilt, RotationStep},
	input.CommandTiltDown:      {panel.SliderTilt, -RotationStep},
	input.CommandPivotUp:       {panel.SliderPivotHeight, PivotStepMM},
	input.CommandPivotDown:     {panel.SliderPivotHeight, -PivotStepMM},
	input.CommandPointSizeUp:   {panel.SliderPointSize, PointSizeStep},
	input.CommandPointSizeDown: {panel.SliderPointSize, -PointSizeStep},
}

// Viewer is the whole application minus its process entrypoint. It is driven by a single
// goroutine; input arrives on channels that are drained at the start of every tick.
type Viewer struct {
	conf    *config.Config
	logger  logging.Logger
	loggers *logging.Registry
	clock   clock.Clock

	primary, secondary sensor.Sensor
	rig                *rig.Rig
	view               *viewport.Controller
	camera             *viewport.Camera
	panel              *panel.Panel
	store              store.Store
	canvas             *raster.Canvas
	compositor         *scene.Compositor

	keys    input.KeyMap
	events  <-chan input.Event
	watcher *panel.Watcher

	frames  int
	quit    bool
	last    scene.Stats
	timings *timings

	closeOnce sync.Once
	closeErr  error
}

// New builds a viewer from conf: it opens the sensors and the profile store, restores the
// saved settings and rig profile when present, and logs what it is looking at.
func New(ctx context.Context, conf *config.Config, logger logging.Logger) (v *Viewer, err error) {
	primaryTint, secondaryTint, err := conf.Tints()
	if err != nil {
		return nil, err
	}
	canvas, err := raster.New(conf.Snapshot.Width, conf.Snapshot.Height)
	if err != nil {
		return nil, err
	}

	v = &Viewer{
		conf:    conf,
		logger:  logger,
		loggers: logging.NewRegistry(),
		clock:   clock.New(),
		rig:     rig.New(conf.RigScale),
		view:    viewport.NewController(),
		camera:  viewport.NewCamera(),
		canvas:  canvas,
		keys:    input.DefaultKeyMap,
		timings: newTimings(summaryWindow),
	}
	v.loggers.UpdateConfig(conf.Log, logger)
	v.loggers.Register(logger.Name(), logger)
	v.panel = panel.New(v.sublogger("panel"))
	defer func() {
		if err != nil {
			err = multierr.Combine(err, v.Close(ctx))
		}
	}()

	sensorLogger := v.sublogger("sensor")
	openSensor := func(sc sensor.Config) (sensor.Sensor, error) {
		defer rutils.SlowLogger(ctx, v.clock, "still opening sensor", "sensor", sc.Name, v.logger)()
		return sensor.New(ctx, sc, sensorLogger)
	}
	if v.primary, err = openSensor(conf.Primary); err != nil {
		return nil, errors.Wrap(err, "opening primary sensor")
	}
	if conf.Secondary != nil {
		if v.secondary, err = openSensor(*conf.Secondary); err != nil {
			return nil, errors.Wrap(err, "opening secondary sensor")
		}
	}
	if v.store, err = store.Open(ctx, conf.Store, v.sublogger("store")); err != nil {
		return nil, err
	}

	v.compositor = scene.NewCompositor(canvas, scene.Options{
		Stride:               conf.Stride,
		PointSize:            conf.PointSize,
		MountCenter:          conf.MountCenterMM,
		PrimaryPlaceholder:   primaryTint,
		SecondaryPlaceholder: secondaryTint,
	}, v.sublogger("scene"))

	v.panel.SetTints(primaryTint, secondaryTint)
	if err := v.panel.SetSlider(panel.SliderPointSize, conf.PointSize); err != nil {
		return nil, err
	}
	v.restore(ctx)

	if conf.WatchSettings {
		if v.watcher, err = panel.NewWatcher(conf.SettingsFile, v.sublogger("watcher")); err != nil {
			return nil, err
		}
	}

	v.logStatus()
	return v, nil
}

// restore loads the settings file and the rig profile if they exist. Missing files are
// normal on a first run; anything else is logged and the defaults are kept.
func (v *Viewer) restore(ctx context.Context) {
	if err := v.panel.LoadFromFile(v.conf.SettingsFile); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			v.logger.Debugw("no saved settings", "path", v.conf.SettingsFile)
		} else {
			v.logger.Warnw("could not restore settings", "error", err)
		}
	}
	if err := v.rig.Load(ctx, v.store, v.conf.Profile, v.logger); err != nil {
		if store.IsNotFound(err) {
			v.logger.Debugw("no saved rig profile", "profile", v.conf.Profile)
		} else {
			v.logger.Warnw("could not restore rig profile", "error", err)
		}
		return
	}
	v.panel.SetRig(v.rig.Parameters())
}

// sublogger returns a named child logger whose level follows the configured patterns.
func (v *Viewer) sublogger(name string) logging.Logger {
	sub := v.logger.Sublogger(name)
	return v.loggers.Register(sub.Name(), sub)
}

// Loggers returns the registry of the viewer's named loggers.
func (v *Viewer) Loggers() *logging.Registry {
	return v.loggers
}

type intrinsicsSensor interface {
	Intrinsics() *rimage.PinholeCameraIntrinsics
}

func (v *Viewer) logStatus() {
	for _, s := range v.Sensors() {
		fields := []interface{}{"sensor", s.Name(), "width", s.Width(), "height", s.Height()}
		if is, ok := s.(intrinsicsSensor); ok && is.Intrinsics() != nil {
			intr := is.Intrinsics()
			fields = append(fields, "fx", intr.Fx, "fy", intr.Fy, "ppx", intr.Ppx, "ppy", intr.Ppy)
		}
		v.logger.Infow("sensor ready", fields...)
	}
	if v.secondary == nil {
		v.logger.Info("no secondary sensor, the rig is disabled")
	}
	v.logger.Infow("viewer ready",
		"frame_rate", v.conf.FrameRate,
		"store", v.conf.Store.Path,
		"settings", v.conf.SettingsFile,
		"snapshot", v.conf.Snapshot.Path,
	)
}

// SetClock replaces the clock that paces Run and times frames.
func (v *Viewer) SetClock(clk clock.Clock) {
	v.clock = clk
	v.compositor.SetClock(clk)
}

// SetInput sets the channel input events are read from.
func (v *Viewer) SetInput(events <-chan input.Event) {
	v.events = events
}

// Sensors returns the open sensors, primary first.
func (v *Viewer) Sensors() []sensor.Sensor {
	out := []sensor.Sensor{}
	if v.primary != nil {
		out = append(out, v.primary)
	}
	if v.secondary != nil {
		out = append(out, v.secondary)
	}
	return out
}

// Panel returns the settings panel.
func (v *Viewer) Panel() *panel.Panel {
	return v.panel
}

// Rig returns the camera rig placing the secondary cloud.
func (v *Viewer) Rig() *rig.Rig {
	return v.rig
}

// View returns the view mode controller.
func (v *Viewer) View() *viewport.Controller {
	return v.view
}

// Camera returns the interactive camera.
func (v *Viewer) Camera() *viewport.Camera {
	return v.camera
}

// Canvas returns the render target.
func (v *Viewer) Canvas() *raster.Canvas {
	return v.canvas
}

// Frames returns how many frames have been rendered.
func (v *Viewer) Frames() int {
	return v.frames
}

// LastStats returns the stats of the last rendered frame.
func (v *Viewer) LastStats() scene.Stats {
	return v.last
}

// Run ticks at the configured frame rate until ctx is done or a quit command arrives, then
// logs a timing summary.
func (v *Viewer) Run(ctx context.Context) error {
	period := time.Duration(float64(time.Second) / v.conf.FrameRate)
	ticker := v.clock.Ticker(period)
	defer ticker.Stop()
	defer v.logSummary()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		if err := v.Tick(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if v.quit {
			v.logger.Info("quitting")
			return nil
		}
	}
}

// Tick drains pending input and renders one frame. Only a broken frame, such as an
// unbalanced transform stack, is returned as an error.
func (v *Viewer) Tick(ctx context.Context) error {
	if v.events != nil {
		for _, ev := range input.Drain(v.events) {
			v.handleEvent(ctx, ev)
		}
	}
	if v.watcher != nil {
		select {
		case path := <-v.watcher.Changes():
			if err := v.panel.LoadFromFile(path); err != nil {
				v.logger.Warnw("could not reload settings", "error", err)
			} else {
				v.logger.Infow("reloaded settings", "path", path)
			}
		default:
		}
	}

	v.panel.Apply(v.rig, v.view, v.camera)
	if v.rig.Update() {
		v.logger.Debug("froze rig motion")
	}
	v.view.Tick()
	v.panel.Sync(v.rig, v.view)

	settings := v.panel.Settings()
	v.compositor.SetPointSize(settings.PointSize)
	def := v.compositor.Options()
	v.compositor.SetPlaceholders(v.panel.Tints(def.PrimaryPlaceholder, def.SecondaryPlaceholder))

	v.canvas.Clear()
	stats, err := v.compositor.RenderFrame(ctx, scene.Frame{
		Primary:   v.primary,
		Secondary: v.secondary,
		Rig:       v.rig,
		View:      v.view,
		Camera:    v.camera,
		UseColor:  settings.UseColor,
	})
	if err != nil {
		return errors.Wrapf(err, "rendering frame %d", v.frames)
	}
	v.frames++
	v.last = stats
	v.timings.add(stats.Elapsed, stats.Points())

	if v.conf.Snapshot.Path != "" && v.frames%v.conf.Snapshot.Every == 0 {
		if err := v.canvas.SavePNG(v.conf.Snapshot.Path); err != nil {
			v.logger.Warnw("could not write snapshot", "path", v.conf.Snapshot.Path, "error", err)
		}
	}
	return nil
}

func (v *Viewer) handleEvent(ctx context.Context, ev input.Event) {
	switch ev.Type {
	case input.KeyPress:
		cmd := v.keys.Command(ev.Key)
		if cmd == input.CommandNone {
			v.logger.Debugw("unbound key", "key", string(ev.Key.Key))
			return
		}
		v.Do(ctx, cmd)
	case input.SliderChange:
		if err := v.panel.SetSlider(ev.Slider.Name, ev.Slider.Value); err != nil {
			v.logger.Warnw("ignoring slider", "error", err)
		}
	default:
		v.logger.Debugw("ignoring input event", "type", ev.Type)
	}
}

// Do runs a command. Persistence failures are logged and leave the current state alone.
func (v *Viewer) Do(ctx context.Context, cmd input.Command) {
	v.logger.Debugw("command", "command", cmd.String())
	if n, ok := sliderKeys[cmd]; ok {
		if err := v.panel.NudgeSlider(n.slider, n.delta); err != nil {
			v.logger.Warnw("ignoring slider", "error", err)
		}
		return
	}
	switch cmd {
	case input.CommandSave:
		v.save(ctx)
	case input.CommandLoad:
		v.load(ctx)
	case input.CommandTopView:
		v.panel.SetTopView(!v.panel.Settings().TopView)
	case input.CommandSideView:
		v.panel.SetSideView(!v.panel.Settings().SideView)
	case input.CommandFreeView:
		v.panel.SetFreeView()
	case input.CommandToggleColor:
		v.panel.ToggleUseColor()
	case input.CommandFreeze:
		v.panel.RequestFreeze()
	case input.CommandExport:
		if err := v.Export(v.conf.ExportPath); err != nil {
			v.logger.Warnw("could not export cloud", "error", err)
		}
	case input.CommandToggleOrtho:
		v.panel.ToggleOrtho()
	case input.CommandOrbitLeft:
		v.camera.Orbit(-OrbitStepDeg, 0)
	case input.CommandOrbitRight:
		v.camera.Orbit(OrbitStepDeg, 0)
	case input.CommandOrbitUp:
		v.camera.Orbit(0, OrbitStepDeg)
	case input.CommandOrbitDown:
		v.camera.Orbit(0, -OrbitStepDeg)
	case input.CommandZoomIn:
		v.camera.Zoom(1 / ZoomStep)
	case input.CommandZoomOut:
		v.camera.Zoom(ZoomStep)
	case input.CommandResetCamera:
		v.camera.Reset()
	case input.CommandPanLeft:
		v.camera.Pan(-PanStepMM, 0)
	case input.CommandPanRight:
		v.camera.Pan(PanStepMM, 0)
	case input.CommandPanUp:
		v.camera.Pan(0, PanStepMM)
	case input.CommandPanDown:
		v.camera.Pan(0, -PanStepMM)
	case input.CommandQuit:
		v.quit = true
	case input.CommandNone:
	}
}

// save writes what the panel shows, including slider moves not yet applied this tick.
func (v *Viewer) save(ctx context.Context) {
	v.rig.SetParameters(v.panel.Settings().Rig)
	if err := v.panel.SaveToFile(v.conf.SettingsFile); err != nil {
		v.logger.Warnw("could not save settings", "error", err)
	} else {
		v.logger.Infow("saved settings", "path", v.conf.SettingsFile)
	}
	if err := v.rig.Save(ctx, v.store, v.conf.Profile); err != nil {
		v.logger.Warnw("could not save rig profile", "error", err)
	} else {
		v.logger.Infow("saved rig profile", "profile", v.conf.Profile)
	}
}

// load restores the settings file and then the rig profile, so a saved profile wins over
// the rig values in the settings file.
func (v *Viewer) load(ctx context.Context) {
	if err := v.panel.LoadFromFile(v.conf.SettingsFile); err != nil {
		v.logger.Warnw("could not load settings", "error", err)
	}
	if err := v.rig.Load(ctx, v.store, v.conf.Profile, v.logger); err != nil {
		v.logger.Warnw("could not load rig profile", "error", err)
		return
	}
	v.panel.SetRig(v.rig.Parameters())
	v.logger.Infow("loaded rig profile", "profile", v.conf.Profile, "parameters", v.rig.Parameters())
}

// Export writes the clouds of the last frame, merged in scene space, to path. The format
// follows the extension.
func (v *Viewer) Export(path string) error {
	if v.frames == 0 {
		return errors.New("no frame rendered yet")
	}
	merged := v.compositor.MergedCloud()
	if err := pointcloud.WriteToFile(merged, path); err != nil {
		return errors.Wrapf(err, "exporting cloud to %q", path)
	}
	v.logger.Infow("exported cloud", "path", path, "points", merged.Size())
	return nil
}

// Close stops watching settings and closes the sensors and the store. Later calls return
// the result of the first.
func (v *Viewer) Close(ctx context.Context) error {
	v.closeOnce.Do(func() {
		if v.watcher != nil {
			v.closeErr = multierr.Combine(v.closeErr, v.watcher.Close())
		}
		for _, s := range v.Sensors() {
			v.closeErr = multierr.Combine(v.closeErr, errors.Wrapf(s.Close(ctx), "closing sensor %q", s.Name()))
		}
		if v.store != nil {
			v.closeErr = multierr.Combine(v.closeErr, v.store.Close(ctx))
		}
	})
	return v.closeErr
}
