// Package metrics records timing events for warp and read operations as
// JSON lines.
package metrics

import (
	"bytes"
	"encoding/json"
	"time"
)

type WarpInfo struct {
	Duration    time.Duration `json:"duration"`
	Resampling  string        `json:"resampling"`
	Destination string        `json:"destination_srs"`
}

type ReadInfo struct {
	Duration time.Duration `json:"duration"`
	Band     string        `json:"band"`
	NumFiles int           `json:"num_files"`
	Mosaic   bool          `json:"mosaic"`
}

type MetricsInfo struct {
	ReqTime     string        `json:"req_time"`
	ReqDuration time.Duration `json:"req_duration"`
	Product     string        `json:"product"`
	Warp        *WarpInfo     `json:"warp,omitempty"`
	Read        *ReadInfo     `json:"read,omitempty"`
}

type MetricsCollector struct {
	Info   *MetricsInfo
	logger Logger
}

func NewMetricsCollector(logger Logger) *MetricsCollector {
	return &MetricsCollector{
		Info: &MetricsInfo{
			ReqTime: time.Now().UTC().Format(time.RFC3339),
			Warp:    &WarpInfo{},
			Read:    &ReadInfo{},
		},
		logger: logger,
	}
}

func (m *MetricsCollector) Log() {
	if m != nil && m.logger != nil {
		m.logger.Log(m.Info)
	}
}

func (i *MetricsInfo) ToJSON() (string, error) {
	buf := new(bytes.Buffer)
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	err := enc.Encode(i)
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
