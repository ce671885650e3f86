package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
	"go.viam.com/test"
)

func TestObservedTestLogger(t *testing.T) {
	logger, logs := NewObservedTestLogger(t)

	logger.Debugw("sampled", "points", 3)
	logger.Sublogger("rig").Warnf("clamped %s", "dolly")

	test.That(t, logs.Len(), test.ShouldEqual, 2)
	test.That(t, logs.FilterMessage("sampled").Len(), test.ShouldEqual, 1)
	test.That(t, logs.FilterMessageSnippet("clamped dolly").Len(), test.ShouldEqual, 1)
	test.That(t, logs.All()[1].LoggerName, test.ShouldEqual, "rig")
}

func TestSetLevel(t *testing.T) {
	logger, logs := NewObservedTestLogger(t)
	logger.SetLevel(zapcore.WarnLevel)

	logger.Info("hidden")
	logger.Warn("shown")

	test.That(t, logs.Len(), test.ShouldEqual, 1)
	test.That(t, logs.All()[0].Message, test.ShouldEqual, "shown")
}

func TestGlobal(t *testing.T) {
	prev := Global()
	defer ReplaceGlobal(prev)

	logger := NewBlankLogger("blank")
	ReplaceGlobal(logger)
	test.That(t, Global(), test.ShouldEqual, logger)
}

func TestSubloggerLevels(t *testing.T) {
	logger, logs := NewObservedTestLogger(t)
	scene := logger.Sublogger("rigview").Sublogger("scene")
	test.That(t, scene.Name(), test.ShouldEqual, "rigview.scene")

	scene.SetLevel(zapcore.ErrorLevel)
	scene.Warn("quiet")
	logger.Debug("loud")
	test.That(t, logs.Len(), test.ShouldEqual, 1)
	test.That(t, logs.All()[0].Message, test.ShouldEqual, "loud")
}
