package flight

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

const (
	// minPSDSamples is the shortest signal worth a spectrogram.
	minPSDSamples = 512
	// maxPSDFreq caps the displayed frequency axis in Hz.
	maxPSDFreq = 500.0
)

// accelPSD builds a power spectral density spectrogram per raw
// accelerometer axis. Logs sampled too sparsely produce no figures.
func (b *builder) accelPSD() []Figure {
	sc := b.lg.Find("sensor_combined", 0)
	if sc == nil || len(sc.TimestampUS) < minPSDSamples {
		return nil
	}

	times := sc.Times()
	fs := sampleRate(times)
	if fs <= 0 {
		return nil
	}

	var figs []Figure
	for i, axis := range []string{"X", "Y", "Z"} {
		field := fmt.Sprintf("accelerometer_m_s2[%d]", i)
		if !sc.Has(field) {
			continue
		}
		hm := spectrogram(times, sc.Fields[field], fs)
		if hm == nil {
			continue
		}
		figs = append(figs, Figure{
			Key:     fmt.Sprintf("accel_psd_%s", axis),
			Title:   fmt.Sprintf("Acceleration Power Spectral Density (%s)", axis),
			XLabel:  "[s]",
			YLabel:  "[Hz]",
			Heatmap: hm,
		})
	}
	return figs
}

// sampleRate estimates the mean sampling frequency from timestamps in seconds.
func sampleRate(times []float64) float64 {
	if len(times) < 2 {
		return 0
	}
	span := times[len(times)-1] - times[0]
	if span <= 0 {
		return 0
	}
	return float64(len(times)-1) / span
}

// spectrogram computes windowed periodograms over the signal with 50%
// overlap and returns power in dB, frequency capped below the Nyquist
// limit and maxPSDFreq.
func spectrogram(times, values []float64, fs float64) *Heatmap {
	n := len(values)
	if n < minPSDSamples {
		return nil
	}

	nperseg := 256
	if n/4 < nperseg {
		nperseg = n / 4
	}
	step := nperseg / 2
	if step < 1 {
		return nil
	}

	window := hann(nperseg)
	var windowPower float64
	for _, w := range window {
		windowPower += w * w
	}

	fft := fourier.NewFFT(nperseg)
	nfreq := nperseg/2 + 1

	freqCap := math.Min(fs/2, maxPSDFreq)
	keep := 0
	for k := 0; k < nfreq; k++ {
		if float64(k)*fs/float64(nperseg) <= freqCap {
			keep = k + 1
		}
	}

	hm := &Heatmap{Freqs: make([]float64, keep)}
	for k := 0; k < keep; k++ {
		hm.Freqs[k] = float64(k) * fs / float64(nperseg)
	}

	seg := make([]float64, nperseg)
	for start := 0; start+nperseg <= n; start += step {
		for i := range seg {
			v := values[start+i]
			if math.IsNaN(v) {
				v = 0
			}
			seg[i] = v * window[i]
		}
		coeffs := fft.Coefficients(nil, seg)

		row := make([]float64, keep)
		for k := 0; k < keep; k++ {
			// One-sided PSD estimate scaled by sampling rate and window power.
			p := real(coeffs[k])*real(coeffs[k]) + imag(coeffs[k])*imag(coeffs[k])
			p /= fs * windowPower
			if k > 0 && k < nfreq-1 {
				p *= 2
			}
			row[k] = 10 * math.Log10(p+1e-20)
		}
		hm.Values = append(hm.Values, row)
		hm.Times = append(hm.Times, times[start+nperseg/2])
	}

	if len(hm.Values) == 0 {
		return nil
	}
	return hm
}

func hann(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
	}
	return w
}
