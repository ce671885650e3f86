package pointcloud

import (
	"bytes"
	"image/color"
	"path/filepath"
	"strings"
	"testing"

	"github.com/edaniels/lidario"
	"github.com/golang/geo/r3"
	"go.viam.com/test"
	"go.viam.com/utils"

	"go.viam.com/rigview/spatialmath"
)

func makeTestCloud() *PointCloud {
	pc := New()
	pc.Append(NewColoredPoint(NewVector(0, 0, 1000), color.NRGBA{255, 0, 0, 255}))
	pc.Append(NewColoredPoint(NewVector(-500, 250, 1500), color.NRGBA{0, 255, 0, 255}))
	pc.Append(NewColoredPoint(NewVector(100, -100, 2000), color.NRGBA{0, 0, 255, 255}))
	return pc
}

func TestPointCloudBasic(t *testing.T) {
	pc := makeTestCloud()
	test.That(t, pc.Size(), test.ShouldEqual, 3)
	test.That(t, pc.At(1).Position, test.ShouldResemble, NewVector(-500, 250, 1500))

	meta := pc.MetaData()
	test.That(t, meta.MinX, test.ShouldEqual, -500.0)
	test.That(t, meta.MaxY, test.ShouldEqual, 250.0)
	test.That(t, meta.Center(), test.ShouldResemble, NewVector(-200, 75, 1500))

	count := 0
	pc.Iterate(func(p ColoredPoint) bool {
		count++
		return count < 2
	})
	test.That(t, count, test.ShouldEqual, 2)

	pts := pc.Points()
	pts[0] = ColoredPoint{}
	test.That(t, pc.At(0).Position, test.ShouldResemble, NewVector(0, 0, 1000))

	pc.Reset()
	test.That(t, pc.Size(), test.ShouldEqual, 0)
	test.That(t, pc.MetaData(), test.ShouldResemble, NewMetaData())

	var nilCloud *PointCloud
	test.That(t, nilCloud.Size(), test.ShouldEqual, 0)
	test.That(t, nilCloud.Points(), test.ShouldBeNil)
}

func TestTransformedAndMerge(t *testing.T) {
	pc := makeTestCloud()
	moved := pc.Transformed(spatialmath.NewTranslation(r3.Vector{X: 10}))
	test.That(t, moved.Size(), test.ShouldEqual, 3)
	test.That(t, moved.At(0).Position, test.ShouldResemble, NewVector(10, 0, 1000))
	test.That(t, moved.At(0).Color, test.ShouldResemble, pc.At(0).Color)
	test.That(t, pc.At(0).Position, test.ShouldResemble, NewVector(0, 0, 1000))

	merged := Merge(pc, nil, moved)
	test.That(t, merged.Size(), test.ShouldEqual, 6)
	test.That(t, merged.At(3).Position, test.ShouldResemble, NewVector(10, 0, 1000))
}

func TestToPCD(t *testing.T) {
	var buf bytes.Buffer
	test.That(t, ToPCD(makeTestCloud(), &buf, PCDAscii), test.ShouldBeNil)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	test.That(t, lines, test.ShouldHaveLength, 10+3)
	test.That(t, lines[0], test.ShouldEqual, "VERSION .7")
	test.That(t, lines[8], test.ShouldEqual, "POINTS 3")
	test.That(t, lines[9], test.ShouldEqual, "DATA ascii")
	test.That(t, lines[10], test.ShouldEqual, "0.000000 0.000000 1.000000 16711680")

	buf.Reset()
	test.That(t, ToPCD(makeTestCloud(), &buf, PCDBinary), test.ShouldBeNil)
	test.That(t, buf.String(), test.ShouldContainSubstring, "DATA binary\n")

	test.That(t, ToPCD(makeTestCloud(), &buf, PCDType(9)), test.ShouldNotBeNil)
}

// readLASFile reads back a cloud written by WriteToLASFile.
func readLASFile(t *testing.T, fn string) *PointCloud {
	t.Helper()
	lf, err := lidario.NewLasFile(fn, "r")
	test.That(t, err, test.ShouldBeNil)
	defer utils.UncheckedErrorFunc(lf.Close)

	pc := NewWithPrealloc(lf.Header.NumberPoints)
	for i := 0; i < lf.Header.NumberPoints; i++ {
		p, err := lf.LasPoint(i)
		test.That(t, err, test.ShouldBeNil)
		data := p.PointData()
		rgb := p.RgbData()
		test.That(t, rgb, test.ShouldNotBeNil)
		c := color.NRGBA{uint8(rgb.Red / 256), uint8(rgb.Green / 256), uint8(rgb.Blue / 256), 255}
		pc.Append(ColoredPoint{Position: r3.Vector{X: data.X, Y: data.Y, Z: data.Z}, Color: c})
	}
	return pc
}

func TestWriteToFile(t *testing.T) {
	dir := t.TempDir()

	lasPath := filepath.Join(dir, "merged.las")
	test.That(t, WriteToFile(makeTestCloud(), lasPath), test.ShouldBeNil)
	back := readLASFile(t, lasPath)
	test.That(t, back.Size(), test.ShouldEqual, 3)
	test.That(t, back.At(1).Position.X, test.ShouldAlmostEqual, -500, 0.01)
	test.That(t, back.At(1).Position.Z, test.ShouldAlmostEqual, 1500, 0.01)
	test.That(t, back.At(1).Color, test.ShouldResemble, color.NRGBA{0, 255, 0, 255})

	test.That(t, WriteToFile(makeTestCloud(), filepath.Join(dir, "merged.pcd")), test.ShouldBeNil)

	err := WriteToFile(makeTestCloud(), filepath.Join(dir, "merged.ply"))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "do not know")
}
