// Package rimage holds the depth and color frames produced by depth sensors and the
// pinhole model used to unproject them.
package rimage

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

// Image is a row-major color frame aligned pixel for pixel with a DepthMap.
type Image struct {
	data          []color.NRGBA
	width, height int
}

// NewImage returns a black image of the given size.
func NewImage(width, height int) *Image {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Image{data: make([]color.NRGBA, width*height), width: width, height: height}
}

// ConvertImage copies any image into an Image.
func ConvertImage(img image.Image) *Image {
	if ii, ok := img.(*Image); ok {
		return ii
	}
	b := img.Bounds()
	nrgba, ok := img.(*image.NRGBA)
	if !ok {
		nrgba = image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(nrgba, nrgba.Bounds(), img, b.Min, draw.Src)
		b = nrgba.Bounds()
	}
	out := NewImage(b.Dx(), b.Dy())
	for y := 0; y < out.height; y++ {
		for x := 0; x < out.width; x++ {
			out.data[out.kxy(x, y)] = nrgba.NRGBAAt(b.Min.X+x, b.Min.Y+y)
		}
	}
	return out
}

// ReadImageFromFile decodes any format imaging understands into an Image.
func ReadImageFromFile(path string) (*Image, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading color frame %q", path)
	}
	return ConvertImage(img), nil
}

// WriteImageToFile encodes img by file extension.
func WriteImageToFile(path string, img image.Image) error {
	return imaging.Save(img, path)
}

func (i *Image) kxy(x, y int) int {
	return (y * i.width) + x
}

// In reports whether (x,y) lies in the image.
func (i *Image) In(x, y int) bool {
	return i != nil && x >= 0 && y >= 0 && x < i.width && y < i.height
}

// Width returns the number of columns.
func (i *Image) Width() int {
	return i.width
}

// Height returns the number of rows.
func (i *Image) Height() int {
	return i.height
}

// ColorAt returns the color at (x,y), or transparent black outside the image.
func (i *Image) ColorAt(x, y int) color.NRGBA {
	if !i.In(x, y) {
		return color.NRGBA{}
	}
	return i.data[i.kxy(x, y)]
}

// SetXY sets the color at (x,y).
func (i *Image) SetXY(x, y int, c color.NRGBA) {
	i.data[i.kxy(x, y)] = c
}

// Fill sets every pixel to c.
func (i *Image) Fill(c color.NRGBA) {
	for k := range i.data {
		i.data[k] = c
	}
}

// ColorModel lets Image satisfy image.Image.
func (i *Image) ColorModel() color.Model {
	return color.NRGBAModel
}

// Bounds lets Image satisfy image.Image.
func (i *Image) Bounds() image.Rectangle {
	return image.Rect(0, 0, i.width, i.height)
}

// At lets Image satisfy image.Image.
func (i *Image) At(x, y int) color.Color {
	return i.ColorAt(x, y)
}
