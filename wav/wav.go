// Package wav provides a wav file source and sink for the pipeline.
package wav

import (
	"errors"
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"pipelined.dev/ringpipe"
	"pipelined.dev/ringpipe/frame"
)

// ErrInvalidWav is returned when the file is not a valid wav file.
var ErrInvalidWav = errors.New("wav is not valid")

// Source reads frames from a wav file. The file is opened and validated
// when the pipe binds the stage, so a missing or corrupt file fails the
// pipe construction, not the stream.
func Source(path string) ringpipe.SourceAllocatorFunc {
	return func(frameSize int) (ringpipe.Source, error) {
		file, err := os.Open(path)
		if err != nil {
			return ringpipe.Source{}, err
		}
		decoder := wav.NewDecoder(file)
		if !decoder.IsValidFile() {
			file.Close()
			return ringpipe.Source{}, ErrInvalidWav
		}

		var (
			channels = decoder.Format().NumChannels
			scale    = float64(uint(1) << (decoder.BitDepth - 1))
			ib       = &audio.IntBuffer{
				Format:         decoder.Format(),
				Data:           make([]int, frameSize*channels),
				SourceBitDepth: int(decoder.BitDepth),
			}
		)
		return ringpipe.Source{
			Output: ringpipe.SignalProperties{
				SampleRate: int(decoder.SampleRate),
				Channels:   channels,
			},
			SourceFunc: func(out *frame.Frame) error {
				ib.Data = ib.Data[:cap(ib.Data)]
				read, err := decoder.PCMBuffer(ib)
				if err != nil {
					return err
				}
				if read == 0 {
					return io.EOF
				}
				for i := 0; i < read; i++ {
					out.Samples[i] = float64(ib.Data[i]) / scale
				}
				// zero-pad the tail of a short final frame
				for i := read; i < len(out.Samples); i++ {
					out.Samples[i] = 0
				}
				return nil
			},
			FlushFunc: file.Close,
		}, nil
	}
}

// Sink writes frames to a wav file with the given bit depth. Sample rate
// and channels are taken from the input signal properties. The encoder is
// finalized when the pipe flushes the stage.
func Sink(path string, bitDepth int) ringpipe.SinkAllocatorFunc {
	return func(frameSize int, input ringpipe.SignalProperties) (ringpipe.Sink, error) {
		file, err := os.Create(path)
		if err != nil {
			return ringpipe.Sink{}, err
		}
		var (
			encoder = wav.NewEncoder(file, input.SampleRate, bitDepth, input.Channels, 1)
			scale   = float64(uint(1)<<(bitDepth-1)) - 1
			ib      = &audio.IntBuffer{
				Format: &audio.Format{
					NumChannels: input.Channels,
					SampleRate:  input.SampleRate,
				},
				SourceBitDepth: bitDepth,
			}
		)
		return ringpipe.Sink{
			SinkFunc: func(f *frame.Frame) error {
				if cap(ib.Data) < len(f.Samples) {
					ib.Data = make([]int, len(f.Samples))
				}
				ib.Data = ib.Data[:len(f.Samples)]
				for i, v := range f.Samples {
					ib.Data[i] = int(v * scale)
				}
				return encoder.Write(ib)
			},
			FlushFunc: func() error {
				if err := encoder.Close(); err != nil {
					file.Close()
					return err
				}
				return file.Close()
			},
		}, nil
	}
}
