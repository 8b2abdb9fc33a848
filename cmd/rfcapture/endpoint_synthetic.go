//go:build !usb

package main

import (
	"rfcapture/internal/constants"
	"rfcapture/internal/endpoint"
	"rfcapture/internal/interfaces"
)

// newEndpoint returns the in-memory synthetic generator when built without
// the usb tag, so the CLI is runnable without hardware or cgo.
func newEndpoint() (interfaces.Endpoint, error) {
	return endpoint.NewSynthetic(512, constants.MaxSingleTransferBytes), nil
}
