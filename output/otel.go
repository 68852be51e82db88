package output

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"downguard/logger"
	"downguard/risk"

	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	otelLog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"
)

type otelLogger struct {
	provider     *sdklog.LoggerProvider
	logger       otelLog.Logger
	timeout      time.Duration
	endpoint     string
	includePaths bool
}

// newOtelLogger returns (nil, nil) when export is simply not configured; an
// error means it was configured and could not start.
func newOtelLogger(opts Options) (*otelLogger, error) {
	endpoint := resolveOtelEndpoint(opts)
	if endpoint == "" {
		return nil, nil
	}
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		return nil, fmt.Errorf("otel endpoint must include scheme (http or https)")
	}

	expOpts := []otlploghttp.Option{otlploghttp.WithEndpointURL(endpoint)}
	if len(opts.OtelHeaders) > 0 {
		expOpts = append(expOpts, otlploghttp.WithHeaders(opts.OtelHeaders))
	}
	if opts.OtelTimeout > 0 {
		expOpts = append(expOpts, otlploghttp.WithTimeout(opts.OtelTimeout))
	}

	exp, err := otlploghttp.New(context.Background(), expOpts...)
	if err != nil {
		return nil, err
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNameKey.String("downguard"),
	)
	provider := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exp)),
		sdklog.WithResource(res),
	)

	return &otelLogger{
		provider:     provider,
		logger:       provider.Logger("downguard"),
		timeout:      opts.OtelTimeout,
		endpoint:     endpoint,
		includePaths: opts.OtelExportPaths,
	}, nil
}

func resolveOtelEndpoint(opts Options) string {
	if endpoint := strings.TrimSpace(opts.OtelEndpoint); endpoint != "" {
		return endpoint
	}
	if !opts.OtelFromEnv {
		return ""
	}
	if endpoint := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_LOGS_ENDPOINT")); endpoint != "" {
		return endpoint
	}
	return strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))
}

func (o *otelLogger) Endpoint() string {
	if o == nil {
		return ""
	}
	return o.endpoint
}

func (o *otelLogger) Emit(recordType string, payload interface{}) {
	if o == nil || o.logger == nil {
		return
	}
	if res, ok := payload.(risk.ScanResult); ok {
		payload = o.sanitizeResult(res)
	}

	var record otelLog.Record
	record.SetTimestamp(time.Now())
	record.SetObservedTimestamp(time.Now())
	record.SetEventName("downguard.record")
	record.AddAttributes(
		otelLog.String("record_type", recordType),
		otelLog.String("schema_version", SchemaVersion),
	)
	if res, ok := payload.(risk.ScanResult); ok {
		record.AddAttributes(
			otelLog.String("downguard.scan.kind", string(res.Kind)),
			otelLog.String("downguard.scan.risk", res.Overall.String()),
			otelLog.Int("downguard.scan.findings", len(res.Findings)),
		)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err == nil {
		record.SetBody(toLogValue(decoded))
	} else {
		record.SetBody(otelLog.StringValue(string(data)))
	}

	o.logger.Emit(context.Background(), record)
}

// sanitizeResult strips local file paths unless export was opted in; the
// base name is enough to correlate records.
func (o *otelLogger) sanitizeResult(res risk.ScanResult) risk.ScanResult {
	if o.includePaths || res.Kind != risk.KindFile {
		return res
	}
	res.Subject = filepath.Base(res.Subject)
	return res
}

func (o *otelLogger) Shutdown() {
	if o == nil || o.provider == nil {
		return
	}
	timeout := o.timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := o.provider.Shutdown(ctx); err != nil {
		logger.Debugf("OTLP shutdown failed: %v", err)
	}
}

func toLogValue(value interface{}) otelLog.Value {
	switch v := value.(type) {
	case nil:
		return otelLog.Value{}
	case string:
		return otelLog.StringValue(v)
	case bool:
		return otelLog.BoolValue(v)
	case float64:
		return otelLog.Float64Value(v)
	case map[string]interface{}:
		kvs := make([]otelLog.KeyValue, 0, len(v))
		for key, item := range v {
			kvs = append(kvs, otelLog.KeyValue{Key: key, Value: toLogValue(item)})
		}
		return otelLog.MapValue(kvs...)
	case []interface{}:
		values := make([]otelLog.Value, 0, len(v))
		for _, item := range v {
			values = append(values, toLogValue(item))
		}
		return otelLog.SliceValue(values...)
	default:
		return otelLog.StringValue(fmt.Sprint(v))
	}
}
