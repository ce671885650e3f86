// Package fake implements a depth sensor that ray casts a small synthetic room: a floor,
// a back wall and a sphere that swings left and right between latches.
package fake

import (
	"context"
	"image/color"
	"math"
	"sync"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/rigview/logging"
	"go.viam.com/rigview/rimage"
	"go.viam.com/rigview/sensor"
)

// Model is the registered model name.
const Model = "fake"

func init() {
	sensor.Register(Model, func(ctx context.Context, conf sensor.Config, logger logging.Logger) (sensor.Sensor, error) {
		attrs := DefaultConfig()
		if err := conf.DecodeAttributes(&attrs); err != nil {
			return nil, err
		}
		return New(conf.Name, attrs, logger)
	})
}

// Config is the attribute struct for fake sensors. Distances are millimeters in the sensor
// frame, where y grows downwards.
type Config struct {
	Intrinsics   *rimage.PinholeCameraIntrinsics `json:"intrinsic_parameters,omitempty"`
	FloorY       float64                         `json:"floor_y_mm"`
	WallZ        float64                         `json:"wall_z_mm"`
	MaxRange     float64                         `json:"max_range_mm"`
	SphereRadius float64                         `json:"sphere_radius_mm"`
	SphereCenter r3.Vector                       `json:"sphere_center_mm"`
	// SwingMM is how far the sphere travels to each side.
	SwingMM float64 `json:"swing_mm"`
	// StepRad advances the swing phase on every latch.
	StepRad float64 `json:"step_rad"`
}

// DefaultConfig is a Kinect sized sensor looking at a sphere in front of a wall.
func DefaultConfig() Config {
	return Config{
		Intrinsics:   rimage.KinectV1Intrinsics(),
		FloorY:       800,
		WallZ:        3500,
		MaxRange:     4000,
		SphereRadius: 300,
		SphereCenter: r3.Vector{X: 0, Y: 200, Z: 2000},
		SwingMM:      600,
		StepRad:      0.1,
	}
}

// Validate ensures the scene is well formed.
func (c Config) Validate(path string) error {
	if err := c.Intrinsics.CheckValid(); err != nil {
		return errors.Wrap(err, path)
	}
	if c.WallZ <= 0 || c.MaxRange <= 0 {
		return errors.Errorf("%s: wall_z_mm and max_range_mm must be positive", path)
	}
	if c.SphereRadius < 0 {
		return errors.Errorf("%s: sphere_radius_mm cannot be negative", path)
	}
	return nil
}

var (
	floorColorA = color.NRGBA{90, 90, 90, 255}
	floorColorB = color.NRGBA{170, 170, 170, 255}
	wallColor   = color.NRGBA{60, 90, 160, 255}
	sphereColor = color.NRGBA{220, 40, 40, 255}
)

// Sensor is a synthetic depth sensor.
type Sensor struct {
	*sensor.Latched
	name   string
	conf   Config
	logger logging.Logger

	mu     sync.Mutex
	frame  int
	closed bool
}

// New returns a fake sensor rendering the configured scene.
func New(name string, conf Config, logger logging.Logger) (*Sensor, error) {
	if conf.Intrinsics == nil {
		conf.Intrinsics = rimage.KinectV1Intrinsics()
	}
	if err := conf.Validate(name); err != nil {
		return nil, err
	}
	return &Sensor{
		Latched: sensor.NewLatched(conf.Intrinsics),
		name:    name,
		conf:    conf,
		logger:  logger,
	}, nil
}

// Name returns the sensor name.
func (s *Sensor) Name() string {
	return s.name
}

// Latch renders the next frame of the scene.
func (s *Sensor) Latch(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.Errorf("sensor %q is closed", s.name)
	}
	center := s.conf.SphereCenter
	center.X += s.conf.SwingMM * math.Sin(float64(s.frame)*s.conf.StepRad)
	s.frame++

	depth, img := s.render(center)
	s.SetFrame(depth, img)
	return nil
}

// Frames returns how many frames have been latched.
func (s *Sensor) Frames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frame
}

// Close stops the sensor; later latches fail.
func (s *Sensor) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *Sensor) render(sphere r3.Vector) (*rimage.DepthMap, *rimage.Image) {
	in := s.conf.Intrinsics
	depth := rimage.NewEmptyDepthMap(in.Width, in.Height)
	img := rimage.NewImage(in.Width, in.Height)
	for y := 0; y < in.Height; y++ {
		for x := 0; x < in.Width; x++ {
			// ray with unit z, so the hit parameter is the depth
			ray := r3.Vector{X: (float64(x) - in.Ppx) / in.Fx, Y: (float64(y) - in.Ppy) / in.Fy, Z: 1}
			z, c := s.cast(ray, sphere)
			if z <= 0 || z > s.conf.MaxRange {
				continue
			}
			depth.Set(x, y, rimage.Depth(math.Round(z)))
			img.SetXY(x, y, c)
		}
	}
	return depth, img
}

func (s *Sensor) cast(ray, sphere r3.Vector) (float64, color.NRGBA) {
	best := s.conf.WallZ
	c := wallColor

	if ray.Y > 0 {
		if t := s.conf.FloorY / ray.Y; t > 0 && t < best {
			best = t
			hit := ray.Mul(t)
			if (int(math.Floor(hit.X/250))+int(math.Floor(hit.Z/250)))%2 == 0 {
				c = floorColorA
			} else {
				c = floorColorB
			}
		}
	}

	if t, ok := hitSphere(ray, sphere, s.conf.SphereRadius); ok && t < best {
		best = t
		c = sphereColor
	}
	return best, c
}

// hitSphere returns the nearest positive parameter t where origin + t*ray meets the sphere.
func hitSphere(ray, center r3.Vector, radius float64) (float64, bool) {
	if radius <= 0 {
		return 0, false
	}
	a := ray.Dot(ray)
	b := -2 * ray.Dot(center)
	c := center.Dot(center) - radius*radius
	disc := b*b - 4*a*c
	if disc < 0 {
		return 0, false
	}
	sq := math.Sqrt(disc)
	if t := (-b - sq) / (2 * a); t > 0 {
		return t, true
	}
	if t := (-b + sq) / (2 * a); t > 0 {
		return t, true
	}
	return 0, false
}
