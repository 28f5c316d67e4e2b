// Package neuro derives affective coordinates from EEG signals and maps
// them to scent characteristics. It is a collaborator of the formula
// engine: the engine consumes only the final valence/arousal pair.
package neuro

import (
	"math"
	"math/rand"
)

// BandPowers holds mean power in the standard EEG frequency bands.
type BandPowers struct {
	Theta float64 `json:"theta"` // 4-8 Hz
	Alpha float64 `json:"alpha"` // 8-13 Hz
	Beta  float64 `json:"beta"`  // 13-30 Hz
	Gamma float64 `json:"gamma"` // 30-50 Hz
}

// ValenceArousal is a point in Russell's circumplex model of affect.
type ValenceArousal struct {
	Valence    float64 `json:"valence"` // -1 (unpleasant) to 1 (pleasant)
	Arousal    float64 `json:"arousal"` // 0 (calm) to 1 (excited)
	Confidence float64 `json:"confidence"`
}

type band struct {
	low, high float64
}

var bands = map[string]band{
	"theta": {4, 8},
	"alpha": {8, 13},
	"beta":  {13, 30},
	"gamma": {30, 50},
}

// ComputeBandPowers estimates band powers with Welch's method: Hann-windowed
// half-overlapping segments, averaged periodograms, channel-averaged PSD.
func ComputeBandPowers(channels [][]float64, sfreq float64) BandPowers {
	if len(channels) == 0 || sfreq <= 0 {
		return BandPowers{}
	}

	nperseg := int(sfreq * 2)
	psdSum := make([]float64, nperseg/2+1)
	channelsUsed := 0

	for _, samples := range channels {
		psd := welchPSD(samples, sfreq, nperseg)
		if psd == nil {
			continue
		}
		for i := range psd {
			psdSum[i] += psd[i]
		}
		channelsUsed++
	}
	if channelsUsed == 0 {
		return BandPowers{}
	}
	for i := range psdSum {
		psdSum[i] /= float64(channelsUsed)
	}

	freqStep := sfreq / float64(nperseg)
	meanBand := func(b band) float64 {
		var sum float64
		var n int
		for k, p := range psdSum {
			f := float64(k) * freqStep
			if f >= b.low && f <= b.high {
				sum += p
				n++
			}
		}
		if n == 0 {
			return 0
		}
		return sum / float64(n)
	}

	return BandPowers{
		Theta: meanBand(bands["theta"]),
		Alpha: meanBand(bands["alpha"]),
		Beta:  meanBand(bands["beta"]),
		Gamma: meanBand(bands["gamma"]),
	}
}

// welchPSD returns the one-sided power spectral density of one channel.
// Returns nil when the signal is shorter than a single segment.
func welchPSD(samples []float64, sfreq float64, nperseg int) []float64 {
	if len(samples) < nperseg || nperseg < 2 {
		return nil
	}

	window := make([]float64, nperseg)
	var windowPower float64
	for i := range window {
		window[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(nperseg-1)))
		windowPower += window[i] * window[i]
	}

	step := nperseg / 2
	psd := make([]float64, nperseg/2+1)
	segments := 0

	for start := 0; start+nperseg <= len(samples); start += step {
		segment := make([]float64, nperseg)
		for i := range segment {
			segment[i] = samples[start+i] * window[i]
		}

		for k := 0; k <= nperseg/2; k++ {
			var re, im float64
			for n, x := range segment {
				angle := -2 * math.Pi * float64(k) * float64(n) / float64(nperseg)
				re += x * math.Cos(angle)
				im += x * math.Sin(angle)
			}
			power := (re*re + im*im) / (sfreq * windowPower)
			if k > 0 && k < nperseg/2 {
				power *= 2
			}
			psd[k] += power
		}
		segments++
	}

	for k := range psd {
		psd[k] /= float64(segments)
	}
	return psd
}

// FrontalAlphaAsymmetry computes FAA = ln(right) - ln(left) over frontal
// alpha powers. Positive values indicate approach motivation (positive
// valence). Returns 0 when either power is non-positive.
func FrontalAlphaAsymmetry(leftAlpha, rightAlpha float64) float64 {
	if leftAlpha <= 0 || rightAlpha <= 0 {
		return 0
	}
	return math.Log(rightAlpha) - math.Log(leftAlpha)
}

// ComputeValenceArousal maps band powers to valence/arousal coordinates.
// Arousal comes from the beta/alpha ratio. Valence uses FAA when supplied
// (higher confidence), otherwise a theta-reduction heuristic.
func ComputeValenceArousal(bp BandPowers, faa *float64) ValenceArousal {
	arousalRaw := 1.0
	if bp.Alpha > 0 {
		arousalRaw = bp.Beta / bp.Alpha
	}
	arousal := clamp((arousalRaw-0.5)/2.5, 0, 1)

	var valence, confidence float64
	if faa != nil {
		valence = clamp(*faa/2.0, -1, 1)
		confidence = 0.8
	} else {
		thetaNorm := bp.Theta / (bp.Alpha + 0.001)
		valence = clamp(1.0-math.Min(2.0, thetaNorm), -1, 1)
		confidence = 0.5
	}

	return ValenceArousal{
		Valence:    round3(valence),
		Arousal:    round3(arousal),
		Confidence: math.Round(confidence*100) / 100,
	}
}

// Process runs the full pipeline on raw channel data: band powers, FAA from
// the first two channels when present, then valence/arousal.
func Process(channels [][]float64, sfreq float64) ValenceArousal {
	bp := ComputeBandPowers(channels, sfreq)

	var faa *float64
	if len(channels) > 1 {
		left := ComputeBandPowers(channels[0:1], sfreq)
		right := ComputeBandPowers(channels[1:2], sfreq)
		f := FrontalAlphaAsymmetry(left.Alpha, right.Alpha)
		faa = &f
	}

	return ComputeValenceArousal(bp, faa)
}

// SimulateEEG produces synthetic 4-channel EEG for a mood, for demos and
// tests. Moods: "happy", "calm", "focused", "stressed".
func SimulateEEG(mood string, durationSec, sfreq float64) [][]float64 {
	nSamples := int(durationSec * sfreq)

	var thetaAmp, alphaAmp, betaAmp, gammaAmp float64
	switch mood {
	case "happy":
		thetaAmp, alphaAmp, betaAmp, gammaAmp = 0.5, 1.5, 1.2, 0.8
	case "calm":
		thetaAmp, alphaAmp, betaAmp, gammaAmp = 0.8, 2.0, 0.6, 0.4
	case "focused":
		thetaAmp, alphaAmp, betaAmp, gammaAmp = 0.6, 1.0, 1.8, 1.0
	case "stressed":
		thetaAmp, alphaAmp, betaAmp, gammaAmp = 1.2, 0.5, 2.0, 0.6
	default:
		thetaAmp, alphaAmp, betaAmp, gammaAmp = 1, 1, 1, 1
	}

	channels := make([][]float64, 4)
	for ch := range channels {
		channels[ch] = make([]float64, nSamples)
		for i := 0; i < nSamples; i++ {
			t := float64(i) / sfreq
			channels[ch][i] = thetaAmp*math.Sin(2*math.Pi*6*t) +
				alphaAmp*math.Sin(2*math.Pi*10*t) +
				betaAmp*math.Sin(2*math.Pi*20*t) +
				gammaAmp*math.Sin(2*math.Pi*40*t) +
				rand.NormFloat64()*0.3
		}
	}
	return channels
}

func clamp(x, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, x))
}

func round3(x float64) float64 { return math.Round(x*1000) / 1000 }
