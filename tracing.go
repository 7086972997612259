/*
	Copyright NetFoundry Inc.

	Licensed under the Apache License, Version 2.0 (the "License");
	you may not use this file except in compliance with the License.
	You may obtain a copy of the License at

	https://www.apache.org/licenses/LICENSE-2.0

	Unless required by applicable law or agreed to in writing, software
	distributed under the License is distributed on an "AS IS" BASIS,
	WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
	See the License for the specific language governing permissions and
	limitations under the License.
*/

package webconsole

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/michaelquigley/pfxlog"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const (
	TracingExporterNone   = "none"
	TracingExporterStdout = "stdout"
	TracingExporterOtlp   = "otlp"

	DefaultTracingServiceName = "webconsole"
	DefaultOtlpEndpoint       = "localhost:4317"
	DefaultTracingSection     = "tracing"
)

// TracingConfig configures request tracing. Tracing is off unless enabled.
//
//	tracing:
//	  enabled: true
//	  exporter: otlp        # none, stdout or otlp
//	  otlpEndpoint: localhost:4317
//	  file: traces.json     # stdout exporter only, defaults to standard out
//	  sampleRate: 0.5
type TracingConfig struct {
	Enabled      bool
	Exporter     string
	OtlpEndpoint string
	File         string
	SampleRate   float64
	ServiceName  string
}

// DefaultTracingConfig returns a disabled configuration with defaults for every other value.
func DefaultTracingConfig() *TracingConfig {
	return &TracingConfig{
		Exporter:     TracingExporterNone,
		OtlpEndpoint: DefaultOtlpEndpoint,
		SampleRate:   1.0,
		ServiceName:  DefaultTracingServiceName,
	}
}

// Parse parses a configuration map. Missing values keep their current setting.
func (config *TracingConfig) Parse(configMap map[interface{}]interface{}) error {
	if val, ok := configMap["enabled"]; ok {
		enabled, ok := val.(bool)
		if !ok {
			return errors.New("tracing enabled must be a boolean")
		}
		config.Enabled = enabled
	}

	for key, target := range map[string]*string{
		"exporter":     &config.Exporter,
		"otlpEndpoint": &config.OtlpEndpoint,
		"file":         &config.File,
		"serviceName":  &config.ServiceName,
	} {
		if err := parseString(configMap, key, target); err != nil {
			return errors.Wrap(err, "error parsing tracing section")
		}
	}

	if val, ok := configMap["sampleRate"]; ok {
		switch rate := val.(type) {
		case float64:
			config.SampleRate = rate
		case int:
			config.SampleRate = float64(rate)
		default:
			return fmt.Errorf("tracing sampleRate must be a number, got %T", val)
		}
	}

	return nil
}

// Validate checks the exporter and sample rate.
func (config *TracingConfig) Validate() error {
	switch config.Exporter {
	case TracingExporterNone, TracingExporterStdout, TracingExporterOtlp, "":
	default:
		return fmt.Errorf("unsupported tracing exporter [%s]", config.Exporter)
	}

	if config.SampleRate < 0 || config.SampleRate > 1 {
		return fmt.Errorf("tracing sampleRate [%v] must be between 0 and 1", config.SampleRate)
	}

	return nil
}

// TracingProvider owns the OpenTelemetry tracer provider used by the console.
type TracingProvider struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
	closer   io.Closer
}

// NewTracingProvider creates a tracer provider from config and installs it as the global provider. A disabled
// configuration yields a no-op tracer and leaves the global provider alone.
func NewTracingProvider(config *TracingConfig) (*TracingProvider, error) {
	if config == nil || !config.Enabled {
		return &TracingProvider{tracer: noop.NewTracerProvider().Tracer(TracerName)}, nil
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	var exporter sdktrace.SpanExporter
	var closer io.Closer
	var err error

	switch config.Exporter {
	case TracingExporterStdout:
		var out io.Writer = os.Stdout
		if config.File != "" {
			file, fileErr := os.OpenFile(config.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if fileErr != nil {
				return nil, errors.Wrapf(fileErr, "could not open trace file %s", config.File)
			}
			out = file
			closer = file
		}
		exporter, err = stdouttrace.New(stdouttrace.WithWriter(out))
	case TracingExporterOtlp:
		endpoint := config.OtlpEndpoint
		if endpoint == "" {
			endpoint = DefaultOtlpEndpoint
		}
		exporter, err = otlptracegrpc.New(context.Background(),
			otlptracegrpc.WithEndpoint(endpoint),
			otlptracegrpc.WithInsecure(),
		)
	}

	if err != nil {
		if closer != nil {
			_ = closer.Close()
		}
		return nil, errors.Wrapf(err, "could not create %s trace exporter", config.Exporter)
	}

	serviceName := config.ServiceName
	if serviceName == "" {
		serviceName = DefaultTracingServiceName
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", serviceName))),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(config.SampleRate))),
	}
	if exporter != nil {
		opts = append(opts, sdktrace.WithBatcher(exporter))
	}

	provider := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(provider)

	pfxlog.Logger().WithField("exporter", config.Exporter).Info("request tracing enabled")

	return &TracingProvider{
		provider: provider,
		tracer:   provider.Tracer(TracerName),
		closer:   closer,
	}, nil
}

func (p *TracingProvider) Tracer() trace.Tracer {
	return p.tracer
}

func (p *TracingProvider) Enabled() bool {
	return p.provider != nil
}

// Shutdown flushes pending spans.
func (p *TracingProvider) Shutdown(ctx context.Context) error {
	if p.provider == nil {
		return nil
	}

	err := p.provider.Shutdown(ctx)
	if p.closer != nil {
		if closeErr := p.closer.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}
	return err
}
