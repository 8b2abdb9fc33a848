package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rfcapture/internal/constants"
	"rfcapture/internal/wire"
)

// memWriter is a trivial non-overlapped Writer double that records every
// submitted chunk, used in place of a real file for unit tests.
type memWriter struct {
	chunks  [][]byte
	offsets []int64
}

func (w *memWriter) Submit(data []byte, offset int64) error {
	cp := make([]byte, len(data))
	copy(cp, data)
	w.chunks = append(w.chunks, cp)
	w.offsets = append(w.offsets, offset)
	return nil
}
func (w *memWriter) Collect() error { return nil }
func (w *memWriter) Close() error   { return nil }

func rawSamples(values []uint16, marker uint8) []byte {
	out := make([]byte, len(values)*2)
	for i, v := range values {
		s := wire.Sample((uint16(marker) << 10) | (v & 0x03FF))
		out[2*i] = byte(s)
		out[2*i+1] = byte(s >> 8)
	}
	return out
}

func newTestProcessing(t *testing.T, data []byte, testMode bool) (*Processing, *DiskBuffer, *memWriter) {
	t.Helper()
	buf := &DiskBuffer{Index: 0, Data: data, Full: NewFlagCond()}
	sizing := Sizing{DiskBufferSize: len(data), DiskBufferCount: 3}
	w := &memWriter{}
	stats := &Stats{}
	p := NewProcessing([]*DiskBuffer{buf}, sizing, wire.Signed16Bit, testMode, w, &SampleTap{}, stats, nil, nil)
	return p, buf, w
}

func TestProcessingSequenceDisabledWhenMarkerConstant(t *testing.T) {
	values := make([]uint16, 20)
	for i := range values {
		values[i] = uint16(i)
	}
	data := rawSamples(values, 5)
	p, buf, w := newTestProcessing(t, data, false)

	outcome := p.processBuffer(buf)
	require.Equal(t, Outcome(""), outcome)
	assert.False(t, p.stats.Snapshot().HadSequenceNums)
	require.Len(t, w.chunks, 1)
}

func TestProcessingSequencePresenceDetectedAndValidated(t *testing.T) {
	n := constants.SequenceBootstrapSamples
	values := make([]uint16, n)
	for i := range values {
		values[i] = uint16(i % 1024)
	}
	markers := make([]byte, n)
	for i := range markers {
		markers[i] = 5
	}
	markers[n-1] = 6 // advance lands exactly on the last sample

	raw := make([]byte, n*2)
	for i := 0; i < n; i++ {
		s := wire.Sample((uint16(markers[i]) << 10) | (values[i] & 0x03FF))
		raw[2*i] = byte(s)
		raw[2*i+1] = byte(s >> 8)
	}

	p, buf, _ := newTestProcessing(t, raw, false)
	outcome := p.processBuffer(buf)
	require.Equal(t, Outcome(""), outcome)
	assert.True(t, p.stats.Snapshot().HadSequenceNums)
}

func TestProcessingSequenceMismatchReturnsOutcome(t *testing.T) {
	values := []uint16{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	markers := []byte{3, 3, 3, 3, 9, 3, 3, 3, 3, 3}
	raw := make([]byte, len(values)*2)
	for i := range values {
		s := wire.Sample((uint16(markers[i]) << 10) | (values[i] & 0x03FF))
		raw[2*i] = byte(s)
		raw[2*i+1] = byte(s >> 8)
	}
	p, buf, _ := newTestProcessing(t, raw, false)
	outcome := p.processBuffer(buf)
	assert.Equal(t, OutcomeSequenceMismatch, outcome)
}

func TestProcessingTestPatternCleanRun(t *testing.T) {
	values := []uint16{100, 101, 102, 103, 104, 105}
	data := rawSamples(values, 0)
	p, buf, _ := newTestProcessing(t, data, true)
	outcome := p.processBuffer(buf)
	assert.Equal(t, Outcome(""), outcome)
}

func TestProcessingTestPatternWrapAt1021(t *testing.T) {
	values := []uint16{1018, 1019, 1020, 0, 1, 2}
	data := rawSamples(values, 0)
	p, buf, _ := newTestProcessing(t, data, true)
	outcome := p.processBuffer(buf)
	require.Equal(t, Outcome(""), outcome)
	snap := p.stats.Snapshot()
	assert.True(t, snap.TestWrapLatched)
	assert.Equal(t, uint16(constants.TestPatternWrapCLV), snap.TestWrapValue)
}

func TestProcessingTestPatternWrapAt1024(t *testing.T) {
	values := []uint16{1021, 1022, 1023, 0, 1, 2}
	data := rawSamples(values, 0)
	p, buf, _ := newTestProcessing(t, data, true)
	outcome := p.processBuffer(buf)
	require.Equal(t, Outcome(""), outcome)
	snap := p.stats.Snapshot()
	assert.True(t, snap.TestWrapLatched)
	assert.Equal(t, uint16(constants.TestPatternWrapCAV), snap.TestWrapValue)
}

func TestProcessingTestPatternMismatchReturnsOutcome(t *testing.T) {
	values := []uint16{5, 6, 8}
	data := rawSamples(values, 0)
	p, buf, _ := newTestProcessing(t, data, true)
	outcome := p.processBuffer(buf)
	assert.Equal(t, OutcomeVerificationError, outcome)
}

func TestProcessingSampleTapCapturesStrippedBytes(t *testing.T) {
	values := []uint16{1, 2, 3, 4}
	data := rawSamples(values, 7)
	tap := &SampleTap{}
	buf := &DiskBuffer{Index: 0, Data: data, Full: NewFlagCond()}
	sizing := Sizing{DiskBufferSize: len(data), DiskBufferCount: 3}
	w := &memWriter{}
	p := NewProcessing([]*DiskBuffer{buf}, sizing, wire.Signed16Bit, false, w, tap, &Stats{}, nil, nil)

	tap.Request(4)
	outcome := p.processBuffer(buf)
	require.Equal(t, Outcome(""), outcome)

	snap, ok := tap.Poll()
	require.True(t, ok)
	require.Len(t, snap, 4)
	assert.Equal(t, uint16(1), wire.Sample(uint16(snap[0])|uint16(snap[1])<<8).Value())
}

func TestProcessingWritesConvertedChunk(t *testing.T) {
	values := []uint16{0, 1023}
	data := rawSamples(values, 0)
	p, buf, w := newTestProcessing(t, data, false)
	outcome := p.processBuffer(buf)
	require.Equal(t, Outcome(""), outcome)
	require.Len(t, w.chunks, 1)
	assert.Equal(t, len(data), len(w.chunks[0]))
	assert.Equal(t, int64(0), w.offsets[0])
}
