package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSampleValueAndMarker(t *testing.T) {
	s := Sample(0x1234)
	assert.Equal(t, uint16(0x1234)&0x03FF, s.Value())
	assert.Equal(t, uint8((0x1234&0xFC00)>>10), s.Marker())
	assert.Equal(t, Sample(0x1234&0x03FF), s.Strip())
}

func TestEncodeSigned16Bit(t *testing.T) {
	src := []byte{0, 0, 0xFF, 0x03} // samples 0 and 1023
	dst := make([]byte, 4)
	n := EncodeSigned16Bit(src, dst)
	require.Equal(t, 4, n)

	got0 := int16(uint16(dst[0]) | uint16(dst[1])<<8)
	got1 := int16(uint16(dst[2]) | uint16(dst[3])<<8)
	assert.Equal(t, int16(-512<<6), got0)
	assert.Equal(t, int16(511<<6), got1)
}

func TestEncodeUnsigned10BitPacksFourSamplesInFiveBytes(t *testing.T) {
	values := []uint16{939, 268, 766, 69}
	src := make([]byte, 8)
	for i, v := range values {
		src[2*i] = byte(v)
		src[2*i+1] = byte(v >> 8)
	}
	dst := make([]byte, 5)
	n := EncodeUnsigned10Bit(src, dst)
	require.Equal(t, 5, n)

	w0, w1, w2, w3 := unpackTen(dst)
	assert.Equal(t, values[0], w0)
	assert.Equal(t, values[1], w1)
	assert.Equal(t, values[2], w2)
	assert.Equal(t, values[3], w3)
}

func TestEncodeUnsigned10BitRoundTrip(t *testing.T) {
	groups := 37
	src := make([]byte, groups*8)
	want := make([]uint16, groups*4)
	for g := 0; g < groups; g++ {
		for j := 0; j < 4; j++ {
			v := uint16((g*4 + j) * 7 % 1024)
			want[g*4+j] = v
			src[g*8+2*j] = byte(v)
			src[g*8+2*j+1] = byte(v >> 8)
		}
	}
	dst := make([]byte, ConversionBufferSize(len(src), Unsigned10Bit))
	n := EncodeUnsigned10Bit(src, dst)
	require.Equal(t, len(dst), n)

	got := make([]uint16, 0, groups*4)
	for g := 0; g < groups; g++ {
		w0, w1, w2, w3 := unpackTen(dst[g*5:])
		got = append(got, w0, w1, w2, w3)
	}
	assert.Equal(t, want, got)
}

func TestEncodeUnsigned10Bit4to1DecimationKeepsExpectedSamples(t *testing.T) {
	const groupSamples = 16
	groups := 5
	src := make([]byte, groups*groupSamples*2)
	for i := 0; i < groups*groupSamples; i++ {
		v := uint16(i % 1024)
		src[2*i] = byte(v)
		src[2*i+1] = byte(v >> 8)
	}
	dst := make([]byte, ConversionBufferSize(len(src), Unsigned10Bit4to1Decimation))
	n := EncodeUnsigned10Bit4to1Decimation(src, dst)
	require.Equal(t, len(dst), n)

	for g := 0; g < groups; g++ {
		w0, w1, w2, w3 := unpackTen(dst[g*5:])
		base := g * groupSamples
		assert.Equal(t, uint16(base+0)%1024, w0)
		assert.Equal(t, uint16(base+4)%1024, w1)
		assert.Equal(t, uint16(base+8)%1024, w2)
		assert.Equal(t, uint16(base+12)%1024, w3)
	}
}

func TestConversionBufferSize(t *testing.T) {
	assert.Equal(t, 2097152, ConversionBufferSize(2097152, Signed16Bit))
	assert.Equal(t, 2097152*5/8, ConversionBufferSize(2097152, Unsigned10Bit))
	assert.Equal(t, 2097152*5/32, ConversionBufferSize(2097152, Unsigned10Bit4to1Decimation))
}
