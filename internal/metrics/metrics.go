// Package metrics implements Prometheus metrics.
package metrics

import (
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Operation label values for CodecOpsTotal.
const (
	OpEncode = "encode"
	OpDecode = "decode"
)

var (
	// CodecOpsTotal counts successful encodes and decodes by layer
	CodecOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pktbuilder_codec_ops_total",
			Help: "Total number of header encode/decode operations",
		},
		[]string{"layer", "op"},
	)

	// DecodeErrorsTotal counts decode failures by layer and error kind
	DecodeErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pktbuilder_decode_errors_total",
			Help: "Total number of decode failures",
		},
		[]string{"layer", "kind"},
	)

	// ChecksumMismatchTotal counts decoded headers whose checksum did not verify
	ChecksumMismatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pktbuilder_checksum_mismatch_total",
			Help: "Total number of decoded headers with a bad checksum",
		},
		[]string{"layer"},
	)

	// PayloadBytes measures the payload size of built and decoded packets
	PayloadBytes = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pktbuilder_payload_bytes",
			Help:    "Payload size in bytes",
			Buckets: prometheus.ExponentialBuckets(16, 2, 12), // 16 .. 32768
		},
		[]string{"op"},
	)
)

// ObserveEncode records one successful encode at layer.
func ObserveEncode(layer string) {
	CodecOpsTotal.WithLabelValues(layer, OpEncode).Inc()
}

// ObserveDecode records one successful decode at layer.
func ObserveDecode(layer string) {
	CodecOpsTotal.WithLabelValues(layer, OpDecode).Inc()
}

// ObserveDecodeError records a decode failure.
func ObserveDecodeError(layer, kind string) {
	DecodeErrorsTotal.WithLabelValues(layer, kind).Inc()
}

// Sample is one counter series flattened for display.
type Sample struct {
	Name   string
	Labels map[string]string
	Value  float64
}

// Snapshot gathers the pktbuilder counters from g, sorted by name.
// Histograms are skipped.
func Snapshot(g prometheus.Gatherer) ([]Sample, error) {
	families, err := g.Gather()
	if err != nil {
		return nil, err
	}

	var out []Sample
	for _, mf := range families {
		if mf.GetType() != dto.MetricType_COUNTER {
			continue
		}
		if !strings.HasPrefix(mf.GetName(), "pktbuilder_") {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := make(map[string]string, len(m.GetLabel()))
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			out = append(out, Sample{
				Name:   mf.GetName(),
				Labels: labels,
				Value:  m.GetCounter().GetValue(),
			})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// WriteTextfile writes the default registry in the text exposition format,
// for node_exporter's textfile collector.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
