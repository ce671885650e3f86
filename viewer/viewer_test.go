package viewer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap/zapcore"
	"go.viam.com/test"

	"go.viam.com/rigview/config"
	"go.viam.com/rigview/input"
	"go.viam.com/rigview/logging"
	"go.viam.com/rigview/panel"
	"go.viam.com/rigview/rig"
	"go.viam.com/rigview/sensor"
	_ "go.viam.com/rigview/sensor/register"
	"go.viam.com/rigview/viewport"
)

func testConfig(t *testing.T, secondary bool) *config.Config {
	t.Helper()
	dir := t.TempDir()
	conf := config.Default(secondary)
	conf.Store.Path = filepath.Join(dir, "profiles")
	conf.SettingsFile = filepath.Join(dir, panel.DefaultSettingsFile)
	conf.ExportPath = filepath.Join(dir, "merged.pcd")
	conf.Snapshot.Width = 64
	conf.Snapshot.Height = 48
	conf.Snapshot.Every = 2
	conf.Snapshot.Path = filepath.Join(dir, "scene.png")
	test.That(t, conf.Validate(), test.ShouldBeNil)
	return conf
}

func newTestViewer(t *testing.T, conf *config.Config) (*Viewer, chan input.Event) {
	t.Helper()
	v, err := New(context.Background(), conf, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	t.Cleanup(func() {
		test.That(t, v.Close(context.Background()), test.ShouldBeNil)
	})
	v.SetClock(clock.NewMock())
	events := make(chan input.Event, 16)
	v.SetInput(events)
	return v, events
}

func TestTickRendersBothClouds(t *testing.T) {
	v, _ := newTestViewer(t, testConfig(t, true))
	test.That(t, v.Sensors(), test.ShouldHaveLength, 2)

	test.That(t, v.Tick(context.Background()), test.ShouldBeNil)
	test.That(t, v.Frames(), test.ShouldEqual, 1)
	stats := v.LastStats()
	test.That(t, stats.Primary.Latched, test.ShouldBeTrue)
	test.That(t, stats.Primary.Candidates, test.ShouldEqual, 320*240)
	test.That(t, stats.Primary.Emitted, test.ShouldBeGreaterThan, 0)
	test.That(t, stats.Secondary, test.ShouldNotBeNil)
	test.That(t, stats.Secondary.Emitted, test.ShouldBeGreaterThan, 0)
	test.That(t, v.Canvas().PointsDrawn(), test.ShouldBeGreaterThan, 0)
	test.That(t, v.Canvas().Depth(), test.ShouldEqual, 0)
}

func TestSingleSensor(t *testing.T) {
	conf := testConfig(t, false)
	conf.Log = []logging.LoggerPatternConfig{{Pattern: "scene", Level: "error"}}
	v, _ := newTestViewer(t, conf)
	test.That(t, v.Tick(context.Background()), test.ShouldBeNil)
	test.That(t, v.LastStats().Secondary, test.ShouldBeNil)
	test.That(t, v.Sensors(), test.ShouldHaveLength, 1)

	test.That(t, v.Loggers().Names(), test.ShouldContain, "scene")
	test.That(t, v.Loggers().Names(), test.ShouldContain, "panel")
	scene, ok := v.Loggers().LoggerNamed("scene")
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, scene.AsZap().Desugar().Core().Enabled(zapcore.WarnLevel), test.ShouldBeFalse)
}

func TestCommands(t *testing.T) {
	ctx := context.Background()
	v, events := newTestViewer(t, testConfig(t, true))

	events <- input.NewKeyPress('t')
	test.That(t, v.Tick(ctx), test.ShouldBeNil)
	test.That(t, v.View().Resolve(), test.ShouldEqual, viewport.Top)
	test.That(t, v.LastStats().Mode, test.ShouldEqual, viewport.Top)

	events <- input.NewKeyPress('v')
	test.That(t, v.Tick(ctx), test.ShouldBeNil)
	test.That(t, v.View().Resolve(), test.ShouldEqual, viewport.Side)
	test.That(t, v.View().Top(), test.ShouldBeFalse)

	// pressing the side key again clears it
	events <- input.NewKeyPress('v')
	test.That(t, v.Tick(ctx), test.ShouldBeNil)
	test.That(t, v.View().Resolve(), test.ShouldEqual, viewport.Free)

	events <- input.NewKeyPress('t')
	events <- input.NewKeyPress('f')
	test.That(t, v.Tick(ctx), test.ShouldBeNil)
	test.That(t, v.View().Resolve(), test.ShouldEqual, viewport.Free)

	events <- input.NewKeyPress('c')
	events <- input.NewKeyPress('o')
	events <- input.NewKeyPress('a')
	events <- input.NewKeyPress('w')
	events <- input.NewKeyPress('+')
	events <- input.NewKeyPress('#')
	test.That(t, v.Tick(ctx), test.ShouldBeNil)
	test.That(t, v.Panel().UseColor(), test.ShouldBeTrue)
	test.That(t, v.Camera().Ortho, test.ShouldBeTrue)
	test.That(t, v.Camera().Azimuth, test.ShouldEqual, -OrbitStepDeg)
	test.That(t, v.Camera().Elevation, test.ShouldEqual, OrbitStepDeg)
	test.That(t, v.Camera().Distance, test.ShouldBeLessThan, 3000)

	events <- input.NewKeyPress('r')
	test.That(t, v.Tick(ctx), test.ShouldBeNil)
	test.That(t, v.Camera().Azimuth, test.ShouldEqual, 0.0)
	test.That(t, v.Camera().Ortho, test.ShouldBeTrue)

	events <- input.NewSliderChange(panel.SliderDolly, 5)
	events <- input.NewSliderChange(panel.SliderPivotHeight, 900)
	events <- input.NewSliderChange("zoom", 1)
	test.That(t, v.Tick(ctx), test.ShouldBeNil)
	test.That(t, v.Rig().Parameters(), test.ShouldResemble, rig.Parameters{Dolly: 2, PivotHeight: 900})

	events <- input.NewSliderChange(panel.SliderTilt, 0.5)
	events <- input.NewKeyPress('z')
	test.That(t, v.Tick(ctx), test.ShouldBeNil)
	test.That(t, v.Rig().Parameters(), test.ShouldResemble, rig.Parameters{PivotHeight: 900})
	test.That(t, v.Panel().Settings().Rig, test.ShouldResemble, rig.Parameters{PivotHeight: 900})
}

func TestRigKeys(t *testing.T) {
	ctx := context.Background()
	v, _ := newTestViewer(t, testConfig(t, true))

	tr := input.NewReader(strings.NewReader("iiujyyhn]]]b>HK"), logging.NewTestLogger(t))
	defer func() {
		test.That(t, tr.Close(), test.ShouldBeNil)
	}()
	events := make(chan input.Event, 32)
	for ev := range tr.Events() {
		events <- ev
	}
	close(events)
	v.SetInput(events)

	test.That(t, v.Tick(ctx), test.ShouldBeNil)
	params := v.Rig().Parameters()
	test.That(t, params.Dolly, test.ShouldAlmostEqual, 2*TranslationStep)
	test.That(t, params.Truck, test.ShouldAlmostEqual, 0)
	test.That(t, params.Boom, test.ShouldAlmostEqual, TranslationStep)
	test.That(t, params.Rotate, test.ShouldAlmostEqual, -RotationStep)
	test.That(t, params.Tilt, test.ShouldAlmostEqual, RotationStep)
	test.That(t, params.PivotHeight, test.ShouldEqual, 150)
	test.That(t, v.Panel().Settings().PointSize, test.ShouldEqual, 4.0)
	test.That(t, v.Camera().Target.X(), test.ShouldAlmostEqual, -PanStepMM)
	test.That(t, v.Camera().Target.Y(), test.ShouldAlmostEqual, PanStepMM)
	test.That(t, v.LastStats().Secondary.Emitted, test.ShouldBeGreaterThan, 0)
}

func TestSaveAndRestore(t *testing.T) {
	ctx := context.Background()
	conf := testConfig(t, true)
	v, events := newTestViewer(t, conf)

	events <- input.NewSliderChange(panel.SliderRotate, 0.5)
	events <- input.NewKeyPress('s')
	test.That(t, v.Tick(ctx), test.ShouldBeNil)
	_, err := os.Stat(conf.SettingsFile)
	test.That(t, err, test.ShouldBeNil)

	events <- input.NewSliderChange(panel.SliderRotate, -1)
	test.That(t, v.Tick(ctx), test.ShouldBeNil)
	test.That(t, v.Rig().Parameters().Rotate, test.ShouldEqual, -1.0)

	events <- input.NewKeyPress('l')
	test.That(t, v.Tick(ctx), test.ShouldBeNil)
	test.That(t, v.Rig().Parameters().Rotate, test.ShouldEqual, 0.5)

	// a new viewer over the same files starts where the last one saved
	test.That(t, v.Close(ctx), test.ShouldBeNil)
	again, _ := newTestViewer(t, conf)
	test.That(t, again.Tick(ctx), test.ShouldBeNil)
	test.That(t, again.Rig().Parameters().Rotate, test.ShouldEqual, 0.5)
}

func TestExportAndSnapshot(t *testing.T) {
	ctx := context.Background()
	conf := testConfig(t, true)
	v, _ := newTestViewer(t, conf)

	test.That(t, v.Export(conf.ExportPath), test.ShouldNotBeNil)

	test.That(t, v.Tick(ctx), test.ShouldBeNil)
	_, err := os.Stat(conf.Snapshot.Path)
	test.That(t, os.IsNotExist(err), test.ShouldBeTrue)
	test.That(t, v.Tick(ctx), test.ShouldBeNil)
	_, err = os.Stat(conf.Snapshot.Path)
	test.That(t, err, test.ShouldBeNil)

	v.Do(ctx, input.CommandExport)
	info, err := os.Stat(conf.ExportPath)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, info.Size(), test.ShouldBeGreaterThan, 0)
}

func TestRunQuits(t *testing.T) {
	conf := testConfig(t, false)
	v, events := newTestViewer(t, conf)
	mock := clock.NewMock()
	v.SetClock(mock)
	events <- input.NewKeyPress('q')

	done := make(chan error, 1)
	go func() {
		done <- v.Run(context.Background())
	}()
	period := time.Duration(float64(time.Second) / conf.FrameRate)
	timeout := time.After(5 * time.Second)
	for {
		select {
		case err := <-done:
			test.That(t, err, test.ShouldBeNil)
			test.That(t, v.Frames(), test.ShouldEqual, 1)
			test.That(t, v.Summary().Frames, test.ShouldEqual, 1)
			return
		case <-timeout:
			t.Fatal("viewer did not quit")
		case <-time.After(time.Millisecond):
			mock.Add(period)
		}
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	v, _ := newTestViewer(t, testConfig(t, false))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	test.That(t, v.Run(ctx), test.ShouldBeNil)
	test.That(t, v.Frames(), test.ShouldEqual, 0)
}

func TestWatchSettings(t *testing.T) {
	conf := testConfig(t, false)
	conf.WatchSettings = true
	v, _ := newTestViewer(t, conf)
	test.That(t, v.Panel().UseColor(), test.ShouldBeFalse)

	test.That(t, os.WriteFile(conf.SettingsFile, []byte("use_color: true\n"), 0o600), test.ShouldBeNil)
	deadline := time.Now().Add(5 * time.Second)
	for !v.Panel().UseColor() {
		if time.Now().After(deadline) {
			t.Fatal("settings were not reloaded")
		}
		test.That(t, v.Tick(context.Background()), test.ShouldBeNil)
		time.Sleep(10 * time.Millisecond)
	}
}

func TestNewFailures(t *testing.T) {
	logger := logging.NewTestLogger(t)
	conf := testConfig(t, true)
	conf.Secondary = &sensor.Config{Name: "secondary", Model: "hologram"}
	_, err := New(context.Background(), conf, logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, `unknown sensor model "hologram"`)

	conf = testConfig(t, false)
	conf.PrimaryTint = "nope"
	_, err = New(context.Background(), conf, logger)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestTimings(t *testing.T) {
	tm := newTimings(3)
	test.That(t, tm.summary(), test.ShouldResemble, Summary{})

	tm.add(10*time.Millisecond, 100)
	s := tm.summary()
	test.That(t, s.Frames, test.ShouldEqual, 1)
	test.That(t, s.MeanFrameTime, test.ShouldEqual, 10*time.Millisecond)
	test.That(t, s.StdDevFrameTime, test.ShouldEqual, time.Duration(0))

	tm.add(20*time.Millisecond, 200)
	tm.add(30*time.Millisecond, 300)
	tm.add(40*time.Millisecond, 400)
	s = tm.summary()
	test.That(t, s.Frames, test.ShouldEqual, 3)
	test.That(t, s.MeanFrameTime, test.ShouldEqual, 30*time.Millisecond)
	test.That(t, s.MaxFrameTime, test.ShouldEqual, 40*time.Millisecond)
	test.That(t, s.StdDevFrameTime, test.ShouldEqual, 10*time.Millisecond)
	test.That(t, s.MeanPoints, test.ShouldEqual, 300.0)
}
