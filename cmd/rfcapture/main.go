// Command rfcapture drives a capture from the command line: connect the
// device, stream its bulk-IN sample output to a file, and stop cleanly on
// Ctrl+C.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/pprof"
	"syscall"
	"time"

	"rfcapture"
	"rfcapture/internal/logging"
	"rfcapture/internal/wire"
)

func main() {
	var (
		out         = flag.String("out", "capture.bin", "output file path")
		format      = flag.String("format", "s16", "output format: s16, u10, or u10-4to1")
		diskQueue   = flag.String("disk-queue", "256M", "total size of the disk-buffer ring (e.g. 64M, 1G)")
		usbQueue    = flag.String("usb-queue", "16M", "total size of the in-flight small-transfer window")
		smallXfer   = flag.Bool("small-transfers", false, "use small USB transfers instead of one-transfer-per-disk-buffer")
		asyncIO     = flag.Bool("async-io", false, "use io_uring for disk writes (Linux only)")
		testMode    = flag.Bool("test-mode", false, "verify the device's test-pattern stream instead of capturing RF")
		device      = flag.String("device", "", "preferred device path/serial, if more than one is attached")
		verbose     = flag.Bool("v", false, "verbose logging")
	)
	flag.Parse()

	logConfig := logging.DefaultConfig()
	if *verbose {
		logConfig.Level = logging.LevelDebug
	}
	logger := logging.NewLogger(logConfig)
	logging.SetDefault(logger)

	diskQueueBytes, err := parseSize(*diskQueue)
	if err != nil {
		logger.Error("invalid -disk-queue", "error", err)
		os.Exit(1)
	}
	usbQueueBytes, err := parseSize(*usbQueue)
	if err != nil {
		logger.Error("invalid -usb-queue", "error", err)
		os.Exit(1)
	}
	wireFormat, err := parseFormat(*format)
	if err != nil {
		logger.Error("invalid -format", "error", err)
		os.Exit(1)
	}

	ep, err := newEndpoint()
	if err != nil {
		logger.Error("failed to construct endpoint", "error", err)
		os.Exit(1)
	}

	params := rfcapture.DefaultStartParams(ep)
	params.FilePath = *out
	params.Format = wireFormat
	params.PreferredDevice = *device
	params.TestMode = *testMode
	params.UseSmallTransfers = *smallXfer
	params.UseAsyncIO = *asyncIO
	params.DiskQueueBytes = int(diskQueueBytes)
	params.UsbQueueBytes = int(usbQueueBytes)
	params.Logger = logger
	params.Observer = rfcapture.NewMetricsObserver(rfcapture.NewMetrics())

	ctrl := rfcapture.NewController()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := ctrl.Start(ctx, params); err != nil {
		logger.Error("failed to start capture", "error", err)
		os.Exit(1)
	}
	logger.Info("capture started", "out", *out, "format", *format)

	stackDumpCh := make(chan os.Signal, 1)
	signal.Notify(stackDumpCh, syscall.SIGUSR1)
	go func() {
		for range stackDumpCh {
			buf := make([]byte, 1<<20)
			n := runtime.Stack(buf, true)
			fmt.Fprintf(os.Stderr, "=== GOROUTINE STACK DUMP ===\n%s\n", buf[:n])
			pprof.Lookup("goroutine").WriteTo(os.Stderr, 2)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	reportTicker := time.NewTicker(2 * time.Second)
	defer reportTicker.Stop()

loop:
	for {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal")
			break loop
		case <-reportTicker.C:
			s := ctrl.State()
			logger.Info("progress", "transfers", s.TransfersCompleted, "bytes_written", s.BytesWritten)
		}
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()
	result, err := ctrl.Stop(stopCtx)
	if err != nil {
		logger.Error("error stopping capture", "error", err)
		os.Exit(1)
	}

	final := ctrl.State()
	logger.Info("capture finished", "result", result,
		"bytes_written", final.BytesWritten, "had_sequence_numbers", final.HadSequenceNumbers)
	if result != rfcapture.Success {
		os.Exit(1)
	}
}

func parseFormat(s string) (wire.Format, error) {
	switch s {
	case "s16":
		return wire.Signed16Bit, nil
	case "u10":
		return wire.Unsigned10Bit, nil
	case "u10-4to1":
		return wire.Unsigned10Bit4to1Decimation, nil
	default:
		return 0, fmt.Errorf("unknown format %q", s)
	}
}

// parseSize parses a size string like "64M", "1G", "512K".
func parseSize(s string) (int64, error) {
	multiplier := int64(1)
	numStr := s
	if n := len(s); n > 0 {
		switch s[n-1] {
		case 'K', 'k':
			multiplier, numStr = 1024, s[:n-1]
		case 'M', 'm':
			multiplier, numStr = 1024*1024, s[:n-1]
		case 'G', 'g':
			multiplier, numStr = 1024*1024*1024, s[:n-1]
		}
	}
	var num int64
	if _, err := fmt.Sscanf(numStr, "%d", &num); err != nil {
		return 0, err
	}
	return num * multiplier, nil
}
