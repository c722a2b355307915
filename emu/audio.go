package emu

import "math"

// lpfCutoffHz is the corner of the output filter, roughly the analog
// reconstruction filter of an ESS AudioDrive card.
const lpfCutoffHz = 16000.0

// lowPassAlpha returns the smoothing factor of a first-order RC low-pass
// filter at the given sample rate.
// Derived from: alpha = dt / (RC + dt) where RC = 1/(2*pi*fc).
func lowPassAlpha(rate int) float64 {
	return 1.0 / (float64(rate)/(2*math.Pi*lpfCutoffHz) + 1)
}

// applyLowPass filters the audio buffer in place, one pole per stereo
// channel, with state persisting across frames.
func (e *Emulator) applyLowPass() {
	for i := 0; i < len(e.audioBuffer); i += 2 {
		inL := float64(e.audioBuffer[i])
		inR := float64(e.audioBuffer[i+1])
		e.filterPrevL = e.lpfAlpha*inL + (1-e.lpfAlpha)*e.filterPrevL
		e.filterPrevR = e.lpfAlpha*inR + (1-e.lpfAlpha)*e.filterPrevR
		e.audioBuffer[i] = clampSample(math.Round(e.filterPrevL))
		e.audioBuffer[i+1] = clampSample(math.Round(e.filterPrevR))
	}
}

// GetAudioSamples returns the last frame's audio as 16-bit stereo PCM.
func (e *Emulator) GetAudioSamples() []int16 {
	return e.audioBuffer
}

func clampSample(v float64) int16 {
	if v < -32768 {
		return -32768
	}
	if v > 32767 {
		return 32767
	}
	return int16(v)
}
