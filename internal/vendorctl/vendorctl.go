// Package vendorctl wraps an Endpoint's out-of-band vendor control
// transfers (0xB5 collection start/stop, 0xB6 configure, 0xB7 status
// readback) in the three verbs the capture controller actually calls.
package vendorctl

import (
	"context"
	"fmt"

	"rfcapture/internal/constants"
	"rfcapture/internal/interfaces"
)

// Configuration is the capture bitfield sent to, or read back from, the
// device's 0xB6/0xB7 requests.
type Configuration struct {
	TestPattern bool
	PAL         bool
	DCOffset    bool
}

func (c Configuration) bits() uint16 {
	var v uint16
	if c.TestPattern {
		v |= constants.ConfigureTestPattern
	}
	if c.PAL {
		v |= constants.ConfigurePAL
	}
	if c.DCOffset {
		v |= constants.ConfigureDCOffset
	}
	return v
}

func configurationFromBits(v uint16) Configuration {
	return Configuration{
		TestPattern: v&constants.ConfigureTestPattern != 0,
		PAL:         v&constants.ConfigurePAL != 0,
		DCOffset:    v&constants.ConfigureDCOffset != 0,
	}
}

// Channel is the vendor command channel for one connected endpoint.
type Channel struct {
	ep interfaces.Endpoint
}

// NewChannel wraps ep's vendor command surface.
func NewChannel(ep interfaces.Endpoint) *Channel {
	return &Channel{ep: ep}
}

// StartCollection issues the 0xB5 request with value 1.
func (c *Channel) StartCollection(ctx context.Context) error {
	if err := c.ep.SendVendorCommand(ctx, constants.VendorRequestCollection, 1); err != nil {
		return fmt.Errorf("vendorctl: start collection: %w", err)
	}
	return nil
}

// StopCollection issues the 0xB5 request with value 0.
func (c *Channel) StopCollection(ctx context.Context) error {
	if err := c.ep.SendVendorCommand(ctx, constants.VendorRequestCollection, 0); err != nil {
		return fmt.Errorf("vendorctl: stop collection: %w", err)
	}
	return nil
}

// Configure issues the 0xB6 request with cfg's bitfield.
func (c *Channel) Configure(ctx context.Context, cfg Configuration) error {
	if err := c.ep.SendVendorCommand(ctx, constants.VendorRequestConfigure, cfg.bits()); err != nil {
		return fmt.Errorf("vendorctl: configure: %w", err)
	}
	return nil
}

// QueryStatus issues the 0xB7 read-only request and decodes the returned
// bitfield. This is the status readback the original device firmware
// exposes but the distilled capture spec omits; the capture hot path never
// calls it, and callers reach it through Controller.VendorStatus.
func (c *Channel) QueryStatus(ctx context.Context) (Configuration, error) {
	raw, err := c.ep.QueryStatus(ctx)
	if err != nil {
		return Configuration{}, fmt.Errorf("vendorctl: query status: %w", err)
	}
	return configurationFromBits(raw), nil
}
