// Package ulog reads PX4 ULog flight logs: the binary container format
// written by the flight controller's logger. It decodes the definitions
// section (message formats, info fields, parameters) and the data section
// (subscriptions and sampled messages) into column-oriented datasets ready
// for plotting. All numeric columns are widened to float64; timestamps stay
// in integer microseconds on the dataset and are converted to seconds at the
// access boundary.
package ulog

import (
	"fmt"
	"sort"

	"github.com/skylark-data/flightdeck/internal/series"
)

// Dataset holds the decoded samples of one logged topic instance as columns.
type Dataset struct {
	// Name is the topic name, e.g. "vehicle_attitude".
	Name string
	// MultiID distinguishes multiple instances of the same topic.
	MultiID uint8
	// TimestampUS is the per-sample timestamp column in microseconds.
	TimestampUS []uint64
	// Fields maps flattened field names (e.g. "q[0]", "pos.x") to sample
	// columns. The timestamp column is excluded; use Times.
	Fields map[string][]float64
}

// Key returns the "name_multiID" identifier used by the explorer UI.
func (d *Dataset) Key() string { return fmt.Sprintf("%s_%d", d.Name, d.MultiID) }

// Len returns the number of decoded samples.
func (d *Dataset) Len() int { return len(d.TimestampUS) }

// Times returns the timestamp column converted to seconds.
func (d *Dataset) Times() []float64 {
	t := make([]float64, len(d.TimestampUS))
	for i, us := range d.TimestampUS {
		t[i] = float64(us) / 1e6
	}
	return t
}

// Series returns the named field paired with timestamps in seconds.
func (d *Dataset) Series(field string) (series.TimeSeries, bool) {
	vals, ok := d.Fields[field]
	if !ok {
		return series.TimeSeries{}, false
	}
	return series.TimeSeries{Times: d.Times(), Values: vals}, true
}

// Has reports whether the named field was logged for this topic.
func (d *Dataset) Has(field string) bool {
	_, ok := d.Fields[field]
	return ok
}

// FieldNames returns the sorted flattened field names.
func (d *Dataset) FieldNames() []string {
	names := make([]string, 0, len(d.Fields))
	for name := range d.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoggedMessage is one 'L' text message emitted by the flight stack.
type LoggedMessage struct {
	Level       uint8
	TimestampUS uint64
	Text        string
}

// Log is a fully decoded ULog file.
type Log struct {
	Version uint8
	// StartUS is the logging start timestamp from the file header.
	StartUS uint64
	// LastUS is the largest data timestamp seen while decoding.
	LastUS uint64

	Datasets []*Dataset
	// Info holds the typed info messages; values are string, int64 or
	// float64 depending on the declared key type.
	Info map[string]any
	// Params holds the initial parameter values.
	Params map[string]float64
	// Messages are the logged text messages in file order.
	Messages []LoggedMessage
	// Dropouts counts logger dropout markers seen in the data section.
	Dropouts int
}

// DurationS returns the log duration in seconds.
func (l *Log) DurationS() float64 {
	if l.LastUS <= l.StartUS {
		return 0
	}
	return float64(l.LastUS-l.StartUS) / 1e6
}

// Find locates a dataset by topic name, preferring an exact multi-instance
// match and falling back to the first instance of that name. Returns nil if
// the topic was never logged.
func (l *Log) Find(name string, multiID int) *Dataset {
	for _, d := range l.Datasets {
		if d.Name == name && int(d.MultiID) == multiID {
			return d
		}
	}
	for _, d := range l.Datasets {
		if d.Name == name {
			return d
		}
	}
	return nil
}

// TopicKeys returns the sorted "name_multiID" keys of all datasets.
func (l *Log) TopicKeys() []string {
	keys := make([]string, 0, len(l.Datasets))
	for _, d := range l.Datasets {
		keys = append(keys, d.Key())
	}
	sort.Strings(keys)
	return keys
}

// ByKey locates a dataset by its "name_multiID" key.
func (l *Log) ByKey(key string) *Dataset {
	for _, d := range l.Datasets {
		if d.Key() == key {
			return d
		}
	}
	return nil
}

// InfoString returns the info value for key rendered as a string, or
// fallback when the key is absent.
func (l *Log) InfoString(key, fallback string) string {
	v, ok := l.Info[key]
	if !ok {
		return fallback
	}
	switch t := v.(type) {
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}

// InfoInt returns an integer info value.
func (l *Log) InfoInt(key string) (int64, bool) {
	v, ok := l.Info[key]
	if !ok {
		return 0, false
	}
	i, ok := v.(int64)
	return i, ok
}
