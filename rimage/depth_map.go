package rimage

import (
	"bufio"
	"compress/gzip"
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"
)

// Depth is the distance in millimeters from a sensor to the surface seen at a pixel.
// Zero means the sensor got no return.
type Depth uint16

// MaxDepth is the largest representable depth.
const MaxDepth = Depth(^uint16(0))

const maxDimension = 100000

// DepthMap is a row-major grid of depths.
type DepthMap struct {
	width  int
	height int

	data []Depth
}

// NewEmptyDepthMap returns a depth map of the given size with every sample invalid.
func NewEmptyDepthMap(width, height int) *DepthMap {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &DepthMap{width: width, height: height, data: make([]Depth, width*height)}
}

// HasData is true when the map has a non-empty grid.
func (dm *DepthMap) HasData() bool {
	return dm != nil && dm.width > 0 && dm.height > 0 && dm.data != nil
}

// Width returns the number of columns.
func (dm *DepthMap) Width() int {
	if dm == nil {
		return 0
	}
	return dm.width
}

// Height returns the number of rows.
func (dm *DepthMap) Height() int {
	if dm == nil {
		return 0
	}
	return dm.height
}

func (dm *DepthMap) kxy(x, y int) int {
	return (y * dm.width) + x
}

// Contains reports whether (x,y) lies in the grid.
func (dm *DepthMap) Contains(x, y int) bool {
	return dm != nil && x >= 0 && y >= 0 && x < dm.width && y < dm.height
}

// GetDepth returns the depth at (x,y).
func (dm *DepthMap) GetDepth(x, y int) Depth {
	return dm.data[dm.kxy(x, y)]
}

// DistanceAt returns the depth at (x,y) as an int, or 0 outside the grid.
func (dm *DepthMap) DistanceAt(x, y int) int {
	if !dm.Contains(x, y) {
		return 0
	}
	return int(dm.GetDepth(x, y))
}

// Set sets the depth at (x,y).
func (dm *DepthMap) Set(x, y int, val Depth) {
	dm.data[dm.kxy(x, y)] = val
}

// Clone returns an independent copy.
func (dm *DepthMap) Clone() *DepthMap {
	out := &DepthMap{width: dm.width, height: dm.height, data: make([]Depth, len(dm.data))}
	copy(out.data, dm.data)
	return out
}

// MinMax returns the smallest and largest valid depths. Both are zero when no sample is valid.
func (dm *DepthMap) MinMax() (Depth, Depth) {
	var lo, hi Depth
	for _, d := range dm.data {
		if d == 0 {
			continue
		}
		if lo == 0 || d < lo {
			lo = d
		}
		if d > hi {
			hi = d
		}
	}
	return lo, hi
}

// ValidCount returns the number of non-zero samples.
func (dm *DepthMap) ValidCount() int {
	n := 0
	for _, d := range dm.data {
		if d != 0 {
			n++
		}
	}
	return n
}

// ToGray16Picture renders the depth map as a 16-bit grayscale image, one gray level per mm.
func (dm *DepthMap) ToGray16Picture() *image.Gray16 {
	img := image.NewGray16(image.Rect(0, 0, dm.width, dm.height))
	for y := 0; y < dm.height; y++ {
		for x := 0; x < dm.width; x++ {
			img.SetGray16(x, y, color.Gray16{Y: uint16(dm.GetDepth(x, y))})
		}
	}
	return img
}

// ConvertImageToDepthMap reads a 16-bit grayscale image as millimeter depths.
func ConvertImageToDepthMap(img image.Image) (*DepthMap, error) {
	switch ii := img.(type) {
	case *DepthMap:
		return ii, nil
	case *image.Gray16:
		b := ii.Bounds()
		dm := NewEmptyDepthMap(b.Dx(), b.Dy())
		for y := 0; y < dm.height; y++ {
			for x := 0; x < dm.width; x++ {
				dm.Set(x, y, Depth(ii.Gray16At(b.Min.X+x, b.Min.Y+y).Y))
			}
		}
		return dm, nil
	default:
		return nil, errors.Errorf("don't know how to make DepthMap from %T", img)
	}
}

// ColorModel lets DepthMap satisfy image.Image.
func (dm *DepthMap) ColorModel() color.Model {
	return color.Gray16Model
}

// Bounds lets DepthMap satisfy image.Image.
func (dm *DepthMap) Bounds() image.Rectangle {
	return image.Rect(0, 0, dm.width, dm.height)
}

// At lets DepthMap satisfy image.Image.
func (dm *DepthMap) At(x, y int) color.Color {
	return color.Gray16{Y: uint16(dm.DistanceAt(x, y))}
}

// ParseDepthMap reads a depth map from a file. PNG files must be 16-bit grayscale; any
// other extension is read in the raw format written by WriteTo, optionally gzipped.
func ParseDepthMap(fn string) (dm *DepthMap, err error) {
	//nolint:gosec
	f, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()

	if strings.EqualFold(filepath.Ext(fn), ".png") {
		img, err := png.Decode(f)
		if err != nil {
			return nil, errors.Wrapf(err, "decoding depth png %q", fn)
		}
		return ConvertImageToDepthMap(img)
	}

	var r io.Reader = f
	if filepath.Ext(fn) == ".gz" {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, err
		}
		defer utils.UncheckedErrorFunc(gz.Close)
		r = gz
	}
	return ReadDepthMap(bufio.NewReader(r))
}

// ReadDepthMap reads the raw format: little endian uint64 width and height followed by
// width*height little endian uint16 depths in row-major order.
func ReadDepthMap(r io.Reader) (*DepthMap, error) {
	var header [2]uint64
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, errors.Wrap(err, "reading depth map header")
	}
	width, height := int(header[0]), int(header[1])
	if width <= 0 || width >= maxDimension || height <= 0 || height >= maxDimension {
		return nil, errors.Errorf("bad width or height for depth map %v %v", width, height)
	}

	dm := NewEmptyDepthMap(width, height)
	if err := binary.Read(r, binary.LittleEndian, dm.data); err != nil {
		return nil, errors.Wrap(err, "reading depth map samples")
	}
	return dm, nil
}

// WriteTo writes the raw format read by ReadDepthMap.
func (dm *DepthMap) WriteTo(out io.Writer) (int64, error) {
	header := [2]uint64{uint64(dm.width), uint64(dm.height)}
	if err := binary.Write(out, binary.LittleEndian, header); err != nil {
		return 0, err
	}
	if err := binary.Write(out, binary.LittleEndian, dm.data); err != nil {
		return 16, err
	}
	return int64(16 + 2*len(dm.data)), nil
}

// WriteToFile writes the depth map to fn: as a 16-bit PNG for ".png", otherwise raw and
// gzipped when the name ends in ".gz".
func (dm *DepthMap) WriteToFile(fn string) (err error) {
	//nolint:gosec
	f, err := os.Create(fn)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()

	if strings.EqualFold(filepath.Ext(fn), ".png") {
		return png.Encode(f, dm.ToGray16Picture())
	}

	var out io.Writer = f
	if filepath.Ext(fn) == ".gz" {
		gout := gzip.NewWriter(f)
		defer func() {
			err = multierr.Combine(err, gout.Close())
		}()
		out = gout
	}
	_, err = dm.WriteTo(out)
	return err
}
