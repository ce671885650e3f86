// Package main runs the point cloud viewer.
package main

import (
	"context"
	"os"

	"go.uber.org/multierr"
	"go.uber.org/zap/zapcore"
	"go.viam.com/utils"

	"go.viam.com/rigview/config"
	"go.viam.com/rigview/input"
	"go.viam.com/rigview/logging"
	// registers all sensor models.
	_ "go.viam.com/rigview/sensor/register"
	"go.viam.com/rigview/viewer"
)

var logger = logging.NewLogger("rigview")

// Arguments for the command.
type Arguments struct {
	ConfigFile string `flag:"config,usage=viewer config file; fake sensors are viewed when unset"`
	Secondary  bool   `flag:"secondary,usage=add a second fake sensor when no config file is given"`
	Single     bool   `flag:"single,usage=view only the primary sensor"`
	NoKeys     bool   `flag:"no-keys,usage=do not read key presses from stdin"`
	Debug      bool   `flag:"debug"`
}

func main() {
	utils.ContextualMain(mainWithArgs, logger)
}

func mainWithArgs(ctx context.Context, args []string, logger logging.Logger) (err error) {
	var argsParsed Arguments
	if err := utils.ParseFlags(args, &argsParsed); err != nil {
		return err
	}
	if argsParsed.Debug {
		logger.SetLevel(zapcore.DebugLevel)
	}

	var conf *config.Config
	if argsParsed.ConfigFile != "" {
		if conf, err = config.Read(ctx, argsParsed.ConfigFile, logger); err != nil {
			return err
		}
	} else {
		conf = config.Default(twoSensors || argsParsed.Secondary)
	}
	if argsParsed.Single {
		conf.Secondary = nil
	}

	v, err := viewer.New(ctx, conf, logger)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, v.Close(context.Background()))
	}()

	if !argsParsed.NoKeys {
		keys, err := input.NewTerminalReader(os.Stdin, logger.Sublogger("input"))
		if err != nil {
			return err
		}
		defer func() {
			err = multierr.Combine(err, keys.Close())
		}()
		v.SetInput(keys.Events())
		logger.Info("keys: s save, l load, t top, v side, f free, c color, z freeze, e export, o ortho, " +
			"a/d/w/x orbit, H/L/K/J pan, +/- zoom, r reset, q quit; rig: i/k dolly, j/u truck, y/h boom, " +
			"n/m rotate, b/g tilt, [/] pivot, </> point size")
	}

	return v.Run(ctx)
}
