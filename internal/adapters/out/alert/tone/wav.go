// Package tone synthesizes and plays the proximity beep.
package tone

import (
	"bytes"
	"encoding/binary"
	"math"
	"time"
)

const (
	// Frequency of the beep in Hz.
	Frequency = 880.0
	// Duration of the beep.
	Duration = 200 * time.Millisecond
	// SampleRate of the generated PCM stream.
	SampleRate = 22050

	bitsPerSample = 16
	channels      = 1
	amplitude     = 0.6
	ramp          = 5 * time.Millisecond
)

// Synthesize renders a mono 16-bit PCM WAV sine tone. Short linear ramps at
// both ends keep speakers from clicking.
func Synthesize(freq float64, d time.Duration, sampleRate int) []byte {
	n := int(float64(sampleRate) * d.Seconds())
	rampN := int(float64(sampleRate) * ramp.Seconds())
	if rampN*2 > n {
		rampN = n / 2
	}
	dataSize := n * channels * bitsPerSample / 8

	buf := bytes.NewBuffer(make([]byte, 0, 44+dataSize))
	buf.WriteString("RIFF")
	_ = binary.Write(buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	_ = binary.Write(buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(buf, binary.LittleEndian, uint16(1)) // PCM
	_ = binary.Write(buf, binary.LittleEndian, uint16(channels))
	_ = binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	_ = binary.Write(buf, binary.LittleEndian, uint32(sampleRate*channels*bitsPerSample/8))
	_ = binary.Write(buf, binary.LittleEndian, uint16(channels*bitsPerSample/8))
	_ = binary.Write(buf, binary.LittleEndian, uint16(bitsPerSample))

	buf.WriteString("data")
	_ = binary.Write(buf, binary.LittleEndian, uint32(dataSize))
	for i := range n {
		gain := amplitude
		switch {
		case i < rampN:
			gain *= float64(i) / float64(rampN)
		case i >= n-rampN:
			gain *= float64(n-1-i) / float64(rampN)
		}
		v := gain * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
		_ = binary.Write(buf, binary.LittleEndian, int16(v*math.MaxInt16))
	}
	return buf.Bytes()
}
