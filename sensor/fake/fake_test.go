package fake

import (
	"context"
	"encoding/json"
	"testing"

	"go.viam.com/test"

	"go.viam.com/rigview/logging"
	"go.viam.com/rigview/sensor"
)

func TestFakeScene(t *testing.T) {
	logger := logging.NewTestLogger(t)
	s, err := New("primary", DefaultConfig(), logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s.Width(), test.ShouldEqual, 640)
	test.That(t, s.Height(), test.ShouldEqual, 480)

	// nothing latched yet
	test.That(t, s.DistanceAt(320, 240), test.ShouldEqual, 0)

	test.That(t, s.Latch(context.Background()), test.ShouldBeNil)
	test.That(t, s.Frames(), test.ShouldEqual, 1)

	t.Run("sphere in the middle", func(t *testing.T) {
		test.That(t, s.DistanceAt(320, 240), test.ShouldBeBetween, 1700, 1850)
		test.That(t, s.ColorAt(320, 240), test.ShouldResemble, sphereColor)
	})
	t.Run("wall in the corner", func(t *testing.T) {
		test.That(t, s.DistanceAt(0, 0), test.ShouldEqual, 3500)
		test.That(t, s.ColorAt(0, 0), test.ShouldResemble, wallColor)
	})
	t.Run("floor at the bottom", func(t *testing.T) {
		d := s.DistanceAt(320, 479)
		test.That(t, d, test.ShouldBeBetween, 1900, 2000)
		p := s.WorldCoordinateAt(320, 479)
		test.That(t, p.Y, test.ShouldAlmostEqual, 800, 1)
		test.That(t, p.Z, test.ShouldEqual, float64(d))
	})

	test.That(t, s.Close(context.Background()), test.ShouldBeNil)
	test.That(t, s.Latch(context.Background()), test.ShouldNotBeNil)
}

func TestFakeMaxRange(t *testing.T) {
	conf := DefaultConfig()
	conf.MaxRange = 3000
	s, err := New("near", conf, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s.Latch(context.Background()), test.ShouldBeNil)
	test.That(t, s.DistanceAt(0, 0), test.ShouldEqual, 0)
	test.That(t, s.DistanceAt(320, 240), test.ShouldBeGreaterThan, 0)
}

func TestFakeSwings(t *testing.T) {
	conf := DefaultConfig()
	conf.StepRad = 1
	s, err := New("swing", conf, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	ctx := context.Background()
	test.That(t, s.Latch(ctx), test.ShouldBeNil)
	first := s.DistanceAt(320, 240)
	test.That(t, s.Latch(ctx), test.ShouldBeNil)
	test.That(t, s.DistanceAt(320, 240), test.ShouldNotEqual, first)
}

func TestFakeRegistered(t *testing.T) {
	test.That(t, sensor.RegisteredModels(), test.ShouldContain, Model)

	attrs, err := json.Marshal(map[string]interface{}{"wall_z_mm": 2500})
	test.That(t, err, test.ShouldBeNil)
	s, err := sensor.New(context.Background(), sensor.Config{Name: "cfg", Model: Model, Attributes: attrs}, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s.Name(), test.ShouldEqual, "cfg")
	test.That(t, s.Latch(context.Background()), test.ShouldBeNil)
	test.That(t, s.DistanceAt(0, 0), test.ShouldEqual, 2500)

	_, err = sensor.New(context.Background(), sensor.Config{Name: "bad", Model: Model, Attributes: []byte(`{"wall_z_mm": -1}`)},
		logging.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)

	_, err = sensor.New(context.Background(), sensor.Config{Name: "nope", Model: "kinect9"}, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "unknown sensor model")
}
