// Package replay implements a depth sensor that plays back frames recorded to disk. Each
// frame is a 16-bit depth image (png, or the raw .dat/.dat.gz format of rimage) with an
// optional color image next to it.
package replay

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/rigview/logging"
	"go.viam.com/rigview/rimage"
	"go.viam.com/rigview/sensor"
)

// Model is the registered model name.
const Model = "replay"

func init() {
	sensor.Register(Model, func(ctx context.Context, conf sensor.Config, logger logging.Logger) (sensor.Sensor, error) {
		var attrs Config
		if err := conf.DecodeAttributes(&attrs); err != nil {
			return nil, err
		}
		return New(ctx, conf.Name, attrs, logger)
	})
}

// FrameFiles names the files of one recorded frame.
type FrameFiles struct {
	Depth string `json:"depth_image_file_path"`
	Color string `json:"color_image_file_path,omitempty"`
}

// Config is the attribute struct for replay sensors.
type Config struct {
	Intrinsics *rimage.PinholeCameraIntrinsics `json:"intrinsic_parameters,omitempty"`
	Frames     []FrameFiles                    `json:"frames"`
	// Once stops at the last frame instead of looping.
	Once bool `json:"once,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (c Config) Validate(path string) error {
	var err error
	if len(c.Frames) == 0 {
		err = multierr.Append(err, errors.Errorf("%s: at least one frame is required", path))
	}
	for i, f := range c.Frames {
		if f.Depth == "" {
			err = multierr.Append(err, errors.Errorf("%s: frame %d has no depth_image_file_path", path, i))
		}
	}
	if c.Intrinsics != nil {
		if ierr := c.Intrinsics.CheckValid(); ierr != nil {
			err = multierr.Append(err, errors.Wrap(ierr, path))
		}
	}
	return err
}

type frame struct {
	depth *rimage.DepthMap
	color *rimage.Image
}

// Sensor replays preloaded frames, advancing one frame per latch.
type Sensor struct {
	*sensor.Latched
	name   string
	once   bool
	frames []frame
	logger logging.Logger

	mu   sync.Mutex
	next int
}

// New loads every frame of conf up front. All frames must share the size of the first
// depth image; color images must match it too.
func New(ctx context.Context, name string, conf Config, logger logging.Logger) (*Sensor, error) {
	if err := conf.Validate(name); err != nil {
		return nil, err
	}
	frames := make([]frame, 0, len(conf.Frames))
	for i, ff := range conf.Frames {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		dm, err := rimage.ParseDepthMap(ff.Depth)
		if err != nil {
			return nil, errors.Wrapf(err, "frame %d", i)
		}
		f := frame{depth: dm}
		if ff.Color != "" {
			img, err := rimage.ReadImageFromFile(ff.Color)
			if err != nil {
				return nil, errors.Wrapf(err, "frame %d", i)
			}
			if img.Width() != dm.Width() || img.Height() != dm.Height() {
				return nil, errors.Errorf("frame %d: color is %dx%d but depth is %dx%d",
					i, img.Width(), img.Height(), dm.Width(), dm.Height())
			}
			f.color = img
		}
		if len(frames) > 0 && (dm.Width() != frames[0].depth.Width() || dm.Height() != frames[0].depth.Height()) {
			return nil, errors.Errorf("frame %d: size %dx%d differs from the first frame", i, dm.Width(), dm.Height())
		}
		frames = append(frames, f)
	}

	intrinsics := conf.Intrinsics
	if intrinsics == nil {
		intrinsics = rimage.KinectV1Intrinsics()
	}
	if intrinsics.Width != frames[0].depth.Width() || intrinsics.Height != frames[0].depth.Height() {
		scaled := *intrinsics
		sx := float64(frames[0].depth.Width()) / float64(intrinsics.Width)
		sy := float64(frames[0].depth.Height()) / float64(intrinsics.Height)
		scaled.Width, scaled.Height = frames[0].depth.Width(), frames[0].depth.Height()
		scaled.Fx, scaled.Ppx = scaled.Fx*sx, scaled.Ppx*sx
		scaled.Fy, scaled.Ppy = scaled.Fy*sy, scaled.Ppy*sy
		logger.Infow("scaling intrinsics to recorded frame size", "width", scaled.Width, "height", scaled.Height)
		intrinsics = &scaled
	}

	logger.Debugw("loaded recording", "frames", len(frames))
	return &Sensor{
		Latched: sensor.NewLatched(intrinsics),
		name:    name,
		once:    conf.Once,
		frames:  frames,
		logger:  logger,
	}, nil
}

// Name returns the sensor name.
func (s *Sensor) Name() string {
	return s.name
}

// Latch makes the next recorded frame current.
func (s *Sensor) Latch(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.frames == nil {
		return errors.Errorf("sensor %q is closed", s.name)
	}
	if s.next >= len(s.frames) {
		if s.once {
			return nil
		}
		s.next = 0
	}
	f := s.frames[s.next]
	s.next++
	s.SetFrame(f.depth, f.color)
	return nil
}

// Close drops the loaded frames.
func (s *Sensor) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = nil
	return nil
}
