// Package metrics exposes the engine's OTLP instruments and the
// Prometheus HTTP middleware.
package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	documentsImported metric.Int64Counter
	linesFlagged      metric.Int64Counter
	salesFinalized    metric.Int64Counter
	salesUnbalanced   metric.Int64Counter
	stockConflicts    metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "fiscalcore"
	}
	meter := provider.Meter(name)

	documentsImported, err := meter.Int64Counter("fiscalcore_documents_imported_total")
	if err != nil {
		return nil, err
	}
	linesFlagged, err := meter.Int64Counter("fiscalcore_import_lines_flagged_total")
	if err != nil {
		return nil, err
	}
	salesFinalized, err := meter.Int64Counter("fiscalcore_sales_finalized_total")
	if err != nil {
		return nil, err
	}
	salesUnbalanced, err := meter.Int64Counter("fiscalcore_sales_unbalanced_total")
	if err != nil {
		return nil, err
	}
	stockConflicts, err := meter.Int64Counter("fiscalcore_stock_conflicts_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		documentsImported: documentsImported,
		linesFlagged:      linesFlagged,
		salesFinalized:    salesFinalized,
		salesUnbalanced:   salesUnbalanced,
		stockConflicts:    stockConflicts,
	}, nil
}

// RecordDocumentImported increments import counts.
func (m *Metrics) RecordDocumentImported(ctx context.Context, jurisdiction string, lines int) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{attribute.String("jurisdiction", strings.TrimSpace(jurisdiction))}
	m.documentsImported.Add(ctx, 1, metric.WithAttributes(attrs...))
	_ = lines
}

// RecordLineFlagged counts lines marked for manual fiscal review.
func (m *Metrics) RecordLineFlagged(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.linesFlagged.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", strings.TrimSpace(reason))))
}

// RecordSaleFinalized increments finalized sale counts.
func (m *Metrics) RecordSaleFinalized(ctx context.Context) {
	if m == nil {
		return
	}
	m.salesFinalized.Add(ctx, 1)
}

// RecordSaleUnbalanced counts finalize attempts blocked by the balance gate.
func (m *Metrics) RecordSaleUnbalanced(ctx context.Context) {
	if m == nil {
		return
	}
	m.salesUnbalanced.Add(ctx, 1)
}

// RecordStockConflict counts lost stock decrement races.
func (m *Metrics) RecordStockConflict(ctx context.Context) {
	if m == nil {
		return
	}
	m.stockConflicts.Add(ctx, 1)
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}
