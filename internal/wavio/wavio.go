// SPDX-License-Identifier: MIT

// Package wavio reads and writes mono WAV files as float64 sample buffers,
// the interchange format of the enhancement pipeline's offline mode.
package wavio

import (
	"fmt"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const encodeBitDepth = 16

// ReadMono decodes a WAV file into float64 samples in [-1, 1] and returns
// them with the file's sample rate. Multi-channel files are downmixed by
// averaging the channels.
func ReadMono(path string) ([]float64, int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer file.Close()

	dec := wav.NewDecoder(file)
	if !dec.IsValidFile() {
		return nil, 0, fmt.Errorf("wavio: %s is not a valid wav file", path)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("wavio: decode %s: %w", path, err)
	}
	if buf.Format == nil || buf.Format.NumChannels <= 0 {
		return nil, 0, fmt.Errorf("wavio: %s has no channel format", path)
	}

	channels := buf.Format.NumChannels
	scale := 1.0 / float64(int(1)<<(dec.BitDepth-1))

	frames := len(buf.Data) / channels
	samples := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < channels; c++ {
			sum += float64(buf.Data[i*channels+c]) * scale
		}
		samples[i] = sum / float64(channels)
	}

	return samples, buf.Format.SampleRate, nil
}

// WriteMono encodes float64 samples in [-1, 1] as a 16-bit mono WAV file.
// Out-of-range samples are clipped at full scale.
func WriteMono(path string, samples []float64, sampleRate int) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}

	enc := wav.NewEncoder(file, sampleRate, encodeBitDepth, 1, 1)

	const fullScale = 1 << (encodeBitDepth - 1)
	buf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: 1,
			SampleRate:  sampleRate,
		},
		SourceBitDepth: encodeBitDepth,
		Data:           make([]int, len(samples)),
	}
	for i, x := range samples {
		v := int(x * fullScale)
		if v > fullScale-1 {
			v = fullScale - 1
		} else if v < -fullScale {
			v = -fullScale
		}
		buf.Data[i] = v
	}

	if err := enc.Write(buf); err != nil {
		file.Close()
		return fmt.Errorf("wavio: encode %s: %w", path, err)
	}
	if err := enc.Close(); err != nil {
		file.Close()
		return fmt.Errorf("wavio: finalize %s: %w", path, err)
	}
	return file.Close()
}
