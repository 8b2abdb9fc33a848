// Package rfcapture is the host-side engine for an RF capture device's USB
// bulk-IN sample stream: a Controller opens the device, sizes and pins the
// disk-buffer ring, spawns the USB transfer and processing worker
// goroutines, and publishes a TransferResult once the capture ends.
package rfcapture

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"rfcapture/internal/constants"
	"rfcapture/internal/interfaces"
	"rfcapture/internal/logging"
	"rfcapture/internal/pipeline"
	"rfcapture/internal/vendorctl"
	"rfcapture/internal/wire"
)

// StartParams is the Go form of spec.md §4.2's start() parameter list: one
// struct plus this package's constant defaults, grounded on the teacher's
// DeviceParams/DefaultParams pattern.
type StartParams struct {
	// Endpoint is the connected-but-not-yet-Connect()ed device abstraction;
	// the controller calls Connect itself during Start. Required.
	Endpoint interfaces.Endpoint

	FilePath          string
	Format            wire.Format
	PreferredDevice   string
	TestMode          bool
	UseSmallTransfers bool
	UseAsyncIO        bool
	UsbQueueBytes     int
	DiskQueueBytes    int

	Logger   interfaces.Logger
	Observer interfaces.Observer
}

// DefaultStartParams returns a StartParams with the package's sizing
// defaults and ep as the endpoint; callers still need to set FilePath.
func DefaultStartParams(ep interfaces.Endpoint) StartParams {
	return StartParams{
		Endpoint:       ep,
		Format:         wire.Signed16Bit,
		UsbQueueBytes:  constants.DefaultUSBQueueBytes,
		DiskQueueBytes: constants.DefaultDiskQueueBytes,
	}
}

// Controller is the Capture Controller: the single coordinating actor that
// opens the device, allocates and pins buffers, elevates priority, starts
// the transfer and processing workers, and drives stop/forced-abort.
type Controller struct {
	mu    sync.Mutex
	state *captureState

	ep     interfaces.Endpoint
	file   *os.File
	writer pipeline.Writer
	tap    *pipeline.SampleTap
	stats  *pipeline.Stats
	vendor *vendorctl.Channel

	sizing    pipeline.Sizing
	buffers   []*pipeline.DiskBuffer
	slots     []*pipeline.TransferSlot
	transfer  *pipeline.Transfer
	processing *pipeline.Processing

	pin      *pipeline.MemoryPinGuard
	priority *pipeline.PriorityGuard

	logger   interfaces.Logger
	observer interfaces.Observer

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	resultOnce sync.Once
	stopOnce   sync.Once
}

// NewController returns an idle controller. Call Start to begin a capture.
func NewController() *Controller {
	return &Controller{state: newCaptureState()}
}

// Start implements spec.md §4.2's start(): connects the endpoint, opens the
// output file, computes buffer sizing, allocates and pins buffers, and
// spawns the transfer and processing worker goroutines. Returns once both
// workers are running; it never blocks for the capture to finish.
func (c *Controller) Start(ctx context.Context, params StartParams) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.isRunning() {
		return ErrAlreadyRunning
	}
	if params.Endpoint == nil {
		return NewError("start", "controller", ProgramError, "StartParams.Endpoint is required")
	}

	logger := params.Logger
	if logger == nil {
		logger = logging.Default()
	}
	observer := params.Observer
	if observer == nil {
		observer = interfaces.NoOpObserver{}
	}

	maxPacketSizeBytes, maxSingleTransferBytes, err := params.Endpoint.Connect(ctx, params.PreferredDevice)
	if err != nil {
		return WrapError("start", "controller", ConnectionFailure, err)
	}

	diskQueueBytes := params.DiskQueueBytes
	if diskQueueBytes <= 0 {
		diskQueueBytes = constants.DefaultDiskQueueBytes
	}
	usbQueueBytes := params.UsbQueueBytes
	if usbQueueBytes <= 0 {
		usbQueueBytes = constants.DefaultUSBQueueBytes
	}

	sizing, err := pipeline.ComputeSizing(maxPacketSizeBytes, maxSingleTransferBytes, diskQueueBytes, usbQueueBytes,
		params.UseSmallTransfers, constants.SmallTransferSize, constants.MaxSingleTransferBytes)
	if err != nil {
		return WrapError("start", "controller", UsbMemoryLimit, err)
	}

	file, err := os.Create(params.FilePath)
	if err != nil {
		return WrapError("start", "controller", FileCreationError, err)
	}
	writer, err := pipeline.NewWriter(file, params.UseAsyncIO)
	if err != nil {
		file.Close()
		return WrapError("start", "controller", FileCreationError, err)
	}

	buffers := pipeline.NewDiskBuffers(sizing.DiskBufferCount, sizing.DiskBufferSize)
	slots := pipeline.NewTransferSlots(sizing)

	pinRegions := make([][]byte, 0, len(buffers)+1)
	for _, b := range buffers {
		pinRegions = append(pinRegions, b.Data)
	}
	pin := pipeline.PinMemory(logger, pinRegions...)
	priority := pipeline.ElevatePriority(logger)

	stats := &pipeline.Stats{}
	tap := &pipeline.SampleTap{}
	vendor := vendorctl.NewChannel(params.Endpoint)

	transfer := pipeline.NewTransfer(params.Endpoint, buffers, slots, sizing, logger, observer)
	processing := pipeline.NewProcessing(buffers, sizing, params.Format, params.TestMode, writer, tap, stats, logger, observer)

	if err := vendor.StartCollection(ctx); err != nil {
		pin.Release()
		priority.Release()
		writer.Close()
		file.Close()
		return WrapError("start", "controller", ConnectionFailure, err)
	}

	c.ep = params.Endpoint
	c.file = file
	c.writer = writer
	c.tap = tap
	c.stats = stats
	c.vendor = vendor
	c.sizing = sizing
	c.buffers = buffers
	c.slots = slots
	c.transfer = transfer
	c.processing = processing
	c.pin = pin
	c.priority = priority
	c.logger = logger
	c.observer = observer
	c.resultOnce = sync.Once{}
	c.stopOnce = sync.Once{}

	c.ctx, c.cancel = context.WithCancel(ctx)
	c.state = newCaptureState()
	c.state.setRunning(true)

	c.wg.Add(2)
	go func() {
		defer c.wg.Done()
		outcome := transfer.Run(c.ctx)
		c.onWorkerDone(outcomeToResult[string(outcome)])
	}()
	go func() {
		defer c.wg.Done()
		outcome := processing.Run(c.ctx)
		c.onWorkerDone(outcomeToResult[string(outcome)])
	}()

	return nil
}

// onWorkerDone implements the "first-failure wins" latch from spec.md §7:
// the first non-Success result reported by either worker becomes the
// capture's final result; later results (including a graceful Success from
// the other worker) never overwrite it.
func (c *Controller) onWorkerDone(result TransferResult) {
	if result == Success {
		return
	}
	latched := false
	c.resultOnce.Do(func() {
		latched = true
		c.state.setResult(result)
		c.logger.Printf("capture: worker reported %s, requesting stop of the other stage", result)
		c.requestForcedDump()
	})
	if !latched {
		c.logger.Printf("capture: worker reported %s after the result was latched", result)
	}
}

func (c *Controller) requestForcedDump() {
	if c.transfer != nil {
		c.transfer.RequestForcedDump()
	}
	if c.processing != nil {
		c.processing.RequestForcedDump()
	}
}

// Stop implements spec.md §4.2's stop(): idempotent cooperative stop. It
// signals both workers to unwind at the next buffer boundary, waits for
// them, releases pinned memory and priority elevation, and closes the
// device and file. Returns the capture's final TransferResult.
func (c *Controller) Stop(ctx context.Context) (TransferResult, error) {
	c.mu.Lock()
	if !c.state.isRunning() {
		c.mu.Unlock()
		return c.state.getResult(), ErrNotRunning
	}
	transfer, processing := c.transfer, c.processing
	c.mu.Unlock()

	c.stopOnce.Do(func() {
		transfer.RequestStop()
		processing.RequestStop()
	})

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		c.requestForcedDump()
		c.cancel()
		<-done
	case <-time.After(30 * time.Second):
		c.requestForcedDump()
		c.cancel()
		<-done
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.resultOnce.Do(func() { c.state.setResult(Success) })

	_ = c.vendor.StopCollection(context.Background())
	c.pin.Release()
	c.priority.Release()
	if err := c.writer.Close(); err != nil {
		c.logger.Printf("stop: writer close: %v", err)
	}
	if err := c.file.Close(); err != nil {
		c.logger.Printf("stop: file close: %v", err)
	}
	if err := c.ep.Close(); err != nil {
		c.logger.Printf("stop: endpoint close: %v", err)
	}
	c.cancel()

	c.state.setRunning(false)
	return c.state.getResult(), nil
}

// State returns a snapshot of the controller's current progress and result.
func (c *Controller) State() CaptureState {
	c.mu.Lock()
	stats := c.stats
	state := c.state
	transfer := c.transfer
	c.mu.Unlock()
	if state == nil {
		return CaptureState{Result: Running}
	}
	var completed uint64
	if transfer != nil {
		completed = transfer.Completed()
	}
	return state.snapshot(stats, completed)
}

// IsRunning reports whether a capture is currently in progress.
func (c *Controller) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state != nil && c.state.isRunning()
}

// Result returns the latched TransferResult; Running until the capture ends.
func (c *Controller) Result() TransferResult {
	return c.State().Result
}

// QueueSample asks for the next n bytes of raw disk-buffer data, per the
// sample-capture tap (spec.md §4's fifth component). Non-blocking: poll
// with PollSample.
func (c *Controller) QueueSample(n int) error {
	c.mu.Lock()
	tap := c.tap
	c.mu.Unlock()
	if tap == nil {
		return fmt.Errorf("rfcapture: no capture in progress")
	}
	tap.Request(n)
	return nil
}

// PollSample returns the snapshot requested by QueueSample, if the
// processing worker has filled it since.
func (c *Controller) PollSample() ([]byte, bool) {
	c.mu.Lock()
	tap := c.tap
	c.mu.Unlock()
	if tap == nil {
		return nil, false
	}
	return tap.Poll()
}

// VendorStatus reads back the device's current configuration bitfield over
// the 0xB7 vendor request; see vendorctl.Channel.QueryStatus.
func (c *Controller) VendorStatus(ctx context.Context) (vendorctl.Configuration, error) {
	c.mu.Lock()
	vendor := c.vendor
	c.mu.Unlock()
	if vendor == nil {
		return vendorctl.Configuration{}, fmt.Errorf("rfcapture: no capture in progress")
	}
	return vendor.QueryStatus(ctx)
}
