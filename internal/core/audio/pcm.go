// Package audio wraps 16-bit little-endian PCM in WAV containers.
package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/orcaman/writerseeker"
)

const (
	// CoachSampleRate is the rate of synthesized coach speech.
	CoachSampleRate = 24000
	// MicSampleRate is what the live model expects from the microphone.
	MicSampleRate = 16000
)

// Duration of mono PCM16 at rate.
func Duration(pcm []byte, rate int) time.Duration {
	if rate <= 0 {
		return 0
	}
	return time.Duration(len(pcm)/2) * time.Second / time.Duration(rate)
}

// WAV wraps mono PCM16 LE samples in a RIFF/WAV container.
func WAV(pcm []byte, rate int) ([]byte, error) {
	data := make([]int, len(pcm)/2)
	for i := range data {
		data[i] = int(int16(binary.LittleEndian.Uint16(pcm[2*i:])))
	}
	buf := &goaudio.IntBuffer{
		Data:           data,
		Format:         &goaudio.Format{SampleRate: rate, NumChannels: 1},
		SourceBitDepth: 16,
	}

	ws := &writerseeker.WriterSeeker{}
	enc := wav.NewEncoder(ws, rate, 16, 1, 1)
	if err := enc.Write(buf); err != nil {
		return nil, fmt.Errorf("wav encode: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("wav close: %w", err)
	}
	return io.ReadAll(ws.Reader())
}
