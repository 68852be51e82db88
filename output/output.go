// Package output writes scan reports as NDJSON and optionally mirrors each
// record to an OTLP log endpoint.
package output

import (
	"bufio"
	"encoding/json"
	"os"
	"sync"
	"time"

	"downguard/logger"
	"downguard/risk"
	"downguard/sysinfo"
)

const SchemaVersion = "1.0"

// Metrics summarizes one report. It is emitted as the final record.
type Metrics struct {
	StartTime      string `json:"start_time"`
	EndTime        string `json:"end_time"`
	FilesScanned   int    `json:"files_scanned"`
	URLsScanned    int    `json:"urls_scanned"`
	SafeResults    int    `json:"safe_results"`
	CautionResults int    `json:"caution_results"`
	DangerResults  int    `json:"danger_results"`
}

// Options configures a report Writer.
type Options struct {
	Path string
	Host *sysinfo.Summary

	// OTLP log export. Empty endpoint with FromEnv false disables it.
	OtelEndpoint    string
	OtelFromEnv     bool
	OtelExportPaths bool
	OtelHeaders     map[string]string
	OtelTimeout     time.Duration
}

// Writer emits one JSON record per line: a report_meta header, one
// scan_result per classification, and a metrics footer at Close. Safe for
// concurrent use.
type Writer struct {
	mu      sync.Mutex
	file    *os.File
	buf     *bufio.Writer
	metrics Metrics
	otel    *otelLogger
}

type metaRecord struct {
	RecordType    string           `json:"record_type"`
	SchemaVersion string           `json:"schema_version"`
	GeneratedAt   string           `json:"generated_at"`
	Host          *sysinfo.Summary `json:"host,omitempty"`
}

type resultRecord struct {
	RecordType string `json:"record_type"`
	risk.ScanResult
}

type metricsRecord struct {
	RecordType string `json:"record_type"`
	Metrics
}

func New(opts Options) (*Writer, error) {
	f, err := os.OpenFile(opts.Path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, err
	}

	w := &Writer{
		file:    f,
		buf:     bufio.NewWriterSize(f, 64*1024),
		metrics: Metrics{StartTime: time.Now().UTC().Format(time.RFC3339)},
	}

	otel, err := newOtelLogger(opts)
	if err != nil {
		logger.Warnf("OTLP export disabled: %v", err)
	} else {
		w.otel = otel
	}

	meta := metaRecord{
		RecordType:    "report_meta",
		SchemaVersion: SchemaVersion,
		GeneratedAt:   w.metrics.StartTime,
		Host:          opts.Host,
	}
	w.mu.Lock()
	w.writeRecordLocked(meta)
	w.mu.Unlock()
	if w.otel != nil {
		w.otel.Emit("report_meta", meta)
	}
	return w, nil
}

// WriteResult appends one classification to the report and updates the
// running metrics.
func (w *Writer) WriteResult(res risk.ScanResult) {
	w.mu.Lock()
	w.writeRecordLocked(resultRecord{RecordType: "scan_result", ScanResult: res})
	switch res.Kind {
	case risk.KindFile:
		w.metrics.FilesScanned++
	case risk.KindURL:
		w.metrics.URLsScanned++
	}
	switch res.Overall {
	case risk.Danger:
		w.metrics.DangerResults++
	case risk.Caution:
		w.metrics.CautionResults++
	default:
		w.metrics.SafeResults++
	}
	w.mu.Unlock()

	if w.otel != nil {
		w.otel.Emit("scan_result", res)
	}
}

// Metrics returns a snapshot of the running counters.
func (w *Writer) Metrics() Metrics {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.metrics
}

// Close writes the metrics footer, flushes, and shuts down the exporter.
func (w *Writer) Close() {
	w.mu.Lock()
	w.metrics.EndTime = time.Now().UTC().Format(time.RFC3339)
	footer := metricsRecord{RecordType: "metrics", Metrics: w.metrics}
	w.writeRecordLocked(footer)
	_ = w.buf.Flush()
	_ = w.file.Sync()
	_ = w.file.Close()
	w.mu.Unlock()

	if w.otel != nil {
		w.otel.Emit("metrics", footer.Metrics)
		w.otel.Shutdown()
	}
}

func (w *Writer) writeRecordLocked(record interface{}) {
	data, err := json.Marshal(record)
	if err != nil {
		logger.Errorf("Could not encode report record: %v", err)
		return
	}
	_, _ = w.buf.Write(data)
	_ = w.buf.WriteByte('\n')
	_ = w.buf.Flush()
}
