// Package register registers all sensor models.
package register

import (
	// register sensors.
	_ "go.viam.com/rigview/sensor/fake"
	_ "go.viam.com/rigview/sensor/replay"
)
