//go:build usb

package main

import (
	"github.com/google/gousb"

	"rfcapture/internal/endpoint"
	"rfcapture/internal/interfaces"
)

// Default vendor/product ID and interface layout for the capture device;
// override by building a local copy of this file if the hardware differs.
const (
	defaultVID      = 0x1d50
	defaultPID      = 0x6032
	defaultIface    = 0
	defaultAltSet   = 0
	defaultEpInAddr = 0x81
)

func newEndpoint() (interfaces.Endpoint, error) {
	return endpoint.NewUSB(gousb.ID(defaultVID), gousb.ID(defaultPID), defaultIface, defaultAltSet, defaultEpInAddr), nil
}
