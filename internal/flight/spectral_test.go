package flight

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/skylark-data/flightdeck/internal/ulog"
)

// sineDataset samples sine waves at fs Hz on the accelerometer fields.
func sineDataset(n int, fs float64, freqs [3]float64) *ulog.Dataset {
	ds := &ulog.Dataset{
		Name:        "sensor_combined",
		TimestampUS: make([]uint64, n),
		Fields:      map[string][]float64{},
	}
	dtUS := 1e6 / fs
	for axis := 0; axis < 3; axis++ {
		field := []string{"accelerometer_m_s2[0]", "accelerometer_m_s2[1]", "accelerometer_m_s2[2]"}[axis]
		vals := make([]float64, n)
		for i := 0; i < n; i++ {
			t := float64(i) / fs
			vals[i] = math.Sin(2 * math.Pi * freqs[axis] * t)
		}
		ds.Fields[field] = vals
	}
	for i := 0; i < n; i++ {
		ds.TimestampUS[i] = uint64(float64(i) * dtUS)
	}
	return ds
}

func TestAccelPSDSkipsShortLogs(t *testing.T) {
	sc := sineDataset(100, 200, [3]float64{10, 20, 30})
	figs := (&builder{lg: testLog(sc), max: 100}).accelPSD()
	require.Empty(t, figs)
}

func TestAccelPSDOneFigurePerAxis(t *testing.T) {
	sc := sineDataset(2048, 200, [3]float64{10, 20, 30})
	figs := (&builder{lg: testLog(sc), max: 100}).accelPSD()

	require.Len(t, figs, 3)
	require.Equal(t, "accel_psd_X", figs[0].Key)
	require.Equal(t, "accel_psd_Z", figs[2].Key)
	for _, f := range figs {
		require.NotNil(t, f.Heatmap)
		require.NotEmpty(t, f.Heatmap.Values)
		require.Equal(t, len(f.Heatmap.Times), len(f.Heatmap.Values))
		require.Equal(t, len(f.Heatmap.Freqs), len(f.Heatmap.Values[0]))
	}
}

func TestSpectrogramPeakAtSignalFrequency(t *testing.T) {
	fs := 200.0
	sc := sineDataset(4096, fs, [3]float64{25, 25, 25})
	times := sc.Times()

	hm := spectrogram(times, sc.Fields["accelerometer_m_s2[0]"], fs)
	require.NotNil(t, hm)

	// The strongest bin of each window must sit at the tone frequency.
	for _, row := range hm.Values {
		best := 0
		for k, p := range row {
			if p > row[best] {
				best = k
			}
		}
		require.InDelta(t, 25, hm.Freqs[best], fs/256)
	}
}

func TestSpectrogramFrequencyCap(t *testing.T) {
	fs := 2000.0
	sc := sineDataset(2048, fs, [3]float64{100, 100, 100})

	hm := spectrogram(sc.Times(), sc.Fields["accelerometer_m_s2[0]"], fs)
	require.NotNil(t, hm)
	require.LessOrEqual(t, hm.Freqs[len(hm.Freqs)-1], maxPSDFreq)
}

func TestSampleRate(t *testing.T) {
	times := []float64{0, 0.01, 0.02, 0.03, 0.04}
	require.InDelta(t, 100, sampleRate(times), 1e-9)
	require.Zero(t, sampleRate([]float64{1}))
	require.Zero(t, sampleRate([]float64{2, 2, 2}))
}

func TestHannWindowEndpoints(t *testing.T) {
	w := hann(256)
	require.InDelta(t, 0, w[0], 1e-12)
	require.InDelta(t, 0, w[255], 1e-12)
	require.InDelta(t, 1, w[128], 1e-3)
}
