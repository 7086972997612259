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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_TracingConfig(t *testing.T) {
	t.Run("parses the tracing section", func(t *testing.T) {
		req := require.New(t)
		config := DefaultTracingConfig()

		req.NoError(config.Parse(map[interface{}]interface{}{
			"enabled":      true,
			"exporter":     "otlp",
			"otlpEndpoint": "collector:4317",
			"sampleRate":   0.25,
		}))
		req.NoError(config.Validate())

		req.True(config.Enabled)
		req.Equal(TracingExporterOtlp, config.Exporter)
		req.Equal("collector:4317", config.OtlpEndpoint)
		req.Equal(0.25, config.SampleRate)
		req.Equal(DefaultTracingServiceName, config.ServiceName)
	})

	t.Run("rejects bad values", func(t *testing.T) {
		req := require.New(t)

		req.Error(DefaultTracingConfig().Parse(map[interface{}]interface{}{"enabled": "yes"}))
		req.Error(DefaultTracingConfig().Parse(map[interface{}]interface{}{"sampleRate": "all"}))

		config := DefaultTracingConfig()
		config.Exporter = "zipkin"
		req.Error(config.Validate())

		config = DefaultTracingConfig()
		config.SampleRate = 2
		req.Error(config.Validate())
	})
}

func Test_TracingProvider(t *testing.T) {
	t.Run("disabled tracing is a no-op", func(t *testing.T) {
		req := require.New(t)

		provider, err := NewTracingProvider(DefaultTracingConfig())
		req.NoError(err)
		req.False(provider.Enabled())
		req.NotNil(provider.Tracer())
		req.NoError(provider.Shutdown(context.Background()))
	})

	t.Run("the stdout exporter writes spans to a file", func(t *testing.T) {
		req := require.New(t)
		path := filepath.Join(t.TempDir(), "traces.json")
		config := DefaultTracingConfig()
		config.Enabled = true
		config.Exporter = TracingExporterStdout
		config.File = path

		provider, err := NewTracingProvider(config)
		req.NoError(err)
		req.True(provider.Enabled())

		_, span := provider.Tracer().Start(context.Background(), "test-span")
		span.End()

		req.NoError(provider.Shutdown(context.Background()))

		content, err := os.ReadFile(path)
		req.NoError(err)
		req.Contains(string(content), "test-span")
	})
}
