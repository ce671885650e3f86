package utils

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"go.viam.com/utils"

	"go.viam.com/rigview/logging"
)

// SlowLogger warns every few seconds until the returned func is called or ctx is done, so a
// stuck blocking call is visible in the logs.
func SlowLogger(ctx context.Context, clk clock.Clock, msg, fieldName, fieldVal string, logger logging.Logger) func() {
	slowTicker := clk.Ticker(2 * time.Second)
	firstTick := true

	ctxWithCancel, cancel := context.WithCancel(ctx)
	startTime := clk.Now()
	done := make(chan struct{})
	utils.PanicCapturingGo(func() {
		defer close(done)
		for {
			select {
			case <-slowTicker.C:
				elapsed := clk.Since(startTime).Round(time.Second).String()
				logger.Warnw(msg, fieldName, fieldVal, "time_elapsed", elapsed)
				if firstTick {
					slowTicker.Reset(3 * time.Second)
					firstTick = false
				} else {
					slowTicker.Reset(5 * time.Second)
				}
			case <-ctxWithCancel.Done():
				return
			}
		}
	})
	return func() {
		slowTicker.Stop()
		cancel()
		<-done
	}
}
