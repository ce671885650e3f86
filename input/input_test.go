package input

import (
	"io"
	"strings"
	"testing"
	"time"

	"go.viam.com/test"

	"go.viam.com/rigview/logging"
)

func TestKeyMap(t *testing.T) {
	for _, tc := range []struct {
		key  rune
		want Command
	}{
		{'s', CommandSave},
		{'l', CommandLoad},
		{'t', CommandTopView},
		{'v', CommandSideView},
		{'f', CommandFreeView},
		{'c', CommandToggleColor},
		{'z', CommandFreeze},
		{'e', CommandExport},
		{'o', CommandToggleOrtho},
		{'+', CommandZoomIn},
		{'=', CommandZoomIn},
		{'-', CommandZoomOut},
		{'i', CommandDollyIn},
		{'k', CommandDollyOut},
		{'[', CommandPivotDown},
		{']', CommandPivotUp},
		{'H', CommandPanLeft},
		{'>', CommandPointSizeUp},
		{'q', CommandQuit},
		{3, CommandQuit},
		{'?', CommandNone},
	} {
		test.That(t, DefaultKeyMap.Command(KeyEvent{Key: tc.key}), test.ShouldEqual, tc.want)
	}

	test.That(t, CommandToggleColor.String(), test.ShouldEqual, "toggle_color")
	test.That(t, Command(99).String(), test.ShouldEqual, "Command(99)")
}

func TestDrain(t *testing.T) {
	ch := make(chan Event, 4)
	test.That(t, Drain(ch), test.ShouldBeEmpty)

	ch <- NewKeyPress('t')
	ch <- NewSliderChange("tilt", 0.5)
	events := Drain(ch)
	test.That(t, events, test.ShouldResemble, []Event{
		{Type: KeyPress, Key: KeyEvent{Key: 't'}},
		{Type: SliderChange, Slider: SliderEvent{Name: "tilt", Value: 0.5}},
	})

	ch <- NewKeyPress('q')
	close(ch)
	test.That(t, Drain(ch), test.ShouldHaveLength, 1)
}

func TestReader(t *testing.T) {
	tr := NewReader(strings.NewReader("tv\nq"), logging.NewTestLogger(t))
	defer func() {
		test.That(t, tr.Close(), test.ShouldBeNil)
	}()

	var keys []rune
	for ev := range tr.Events() {
		test.That(t, ev.Type, test.ShouldEqual, KeyPress)
		keys = append(keys, ev.Key.Key)
	}
	test.That(t, keys, test.ShouldResemble, []rune{'t', 'v', 'q'})
}

func TestReaderClose(t *testing.T) {
	pr, pw := io.Pipe()
	tr := NewReader(pr, logging.NewTestLogger(t))
	test.That(t, tr.Close(), test.ShouldBeNil)
	test.That(t, tr.Close(), test.ShouldBeNil)

	// a key read after close is not published and ends the reader
	go func() {
		pw.Write([]byte("s"))
	}()
	select {
	case _, ok := <-tr.Events():
		test.That(t, ok, test.ShouldBeFalse)
	case <-time.After(5 * time.Second):
		t.Fatal("reader did not stop")
	}
	test.That(t, pw.Close(), test.ShouldBeNil)
}
