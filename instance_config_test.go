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
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

const testInstanceConfig = `
web:
  - name: console
    bindPoints:
      - interface: 127.0.0.1:18080
      - interface: 0.0.0.0:18081
        address: console.example.org:443
    apis:
      - binding: webconsole
        options:
          appRoot: /system/console
          defaultPlugin: a
          branding:
            productName: Test Console
      - binding: redirect
        options:
          location: /system/console
      - binding: panic
    options:
      readTimeout: 3s
      minTLSVersion: TLS1.3
`

type panicHandler struct{}

func (panicHandler) Binding() string {
	return "panic"
}

func (panicHandler) Options() map[interface{}]interface{} {
	return nil
}

func (panicHandler) RootPath() string {
	return "/boom"
}

func (panicHandler) IsHandler(r *http.Request) bool {
	return r.URL.Path == "/boom"
}

func (panicHandler) ServeHTTP(http.ResponseWriter, *http.Request) {
	panic("handler exploded")
}

type panicFactory struct{}

func (panicFactory) Binding() string {
	return "panic"
}

func (panicFactory) New(*ServerConfig, map[interface{}]interface{}) (ApiHandler, error) {
	return panicHandler{}, nil
}

func (panicFactory) Validate(*InstanceConfig) error {
	return nil
}

func newTestInstance(t *testing.T, config string) (*InstanceImpl, error) {
	instance, err := NewConsoleInstance(nil, InstallPlugins(newTestPlugin("a", "Alpha")))
	require.NoError(t, err)
	require.NoError(t, instance.GetRegistry().Add(panicFactory{}))

	configMap, err := ParseConfig([]byte(config))
	require.NoError(t, err)

	return instance, instance.LoadConfig(configMap)
}

func Test_InstanceConfig(t *testing.T) {
	t.Run("parses servers, bind points and options", func(t *testing.T) {
		req := require.New(t)
		instance, err := newTestInstance(t, testInstanceConfig)
		req.NoError(err)
		req.True(instance.Enabled())

		serverConfigs := instance.GetConfig().ServerConfigs
		req.Len(serverConfigs, 1)

		serverConfig := serverConfigs[0]
		req.Equal("console", serverConfig.Name)
		req.False(serverConfig.TLSEnabled())
		req.Len(serverConfig.APIs, 3)
		req.Equal(3*time.Second, serverConfig.Options.ReadTimeout)
		req.Equal(DefaultHttpWriteTimeout, serverConfig.Options.WriteTimeout)

		req.Len(serverConfig.BindPoints, 2)
		req.Equal("127.0.0.1:18080", serverConfig.BindPoints[0].Address)
		req.Equal("console.example.org:443", serverConfig.BindPoints[1].Address)
	})

	invalid := map[string]string{
		"missing web section": `other: {}`,
		"web section not an array": `web: {name: x}`,
		"unknown binding": `
web:
  - name: console
    bindPoints: [{interface: "127.0.0.1:18080"}]
    apis: [{binding: unknown}]
`,
		"invalid bind point": `
web:
  - name: console
    bindPoints: [{interface: "127.0.0.1"}]
    apis: [{binding: webconsole}]
`,
		"invalid console options": `
web:
  - name: console
    bindPoints: [{interface: "127.0.0.1:18080"}]
    apis: [{binding: webconsole, options: {appRoot: "system/console"}}]
`,
		"invalid redirect location": `
web:
  - name: console
    bindPoints: [{interface: "127.0.0.1:18080"}]
    apis: [{binding: redirect, options: {location: "elsewhere"}}]
`,
		"inverted tls versions": `
web:
  - name: console
    bindPoints: [{interface: "127.0.0.1:18080"}]
    apis: [{binding: webconsole}]
    options: {minTLSVersion: TLS1.3, maxTLSVersion: TLS1.2}
`,
		"no apis": `
web:
  - name: console
    bindPoints: [{interface: "127.0.0.1:18080"}]
`,
	}

	for name, config := range invalid {
		t.Run(name+" is rejected", func(t *testing.T) {
			req := require.New(t)
			instance, err := newTestInstance(t, config)
			req.Error(err)
			req.False(instance.Enabled())
		})
	}
}

func Test_ServerConfigOptions(t *testing.T) {
	t.Run("absent keys keep the defaults", func(t *testing.T) {
		req := require.New(t)
		options := &ServerConfigOptions{}
		options.Default()

		req.NoError(options.Parse(map[interface{}]interface{}{"idleTimeout": "1m", "maxTLSVersion": "TLS1.2"}))
		req.Equal(time.Minute, options.IdleTimeout)
		req.Equal(DefaultHttpReadTimeout, options.ReadTimeout)
		req.Equal(MinTLSVersion, options.MinTLSVersion)
		req.Equal(MaxTLSVersion-1, options.MaxTLSVersion)
		req.NoError(options.TimeoutOptions.Validate())
		req.NoError(options.TlsVersionOptions.Validate())
	})

	invalid := map[string]map[interface{}]interface{}{
		"non string timeout":  {"readTimeout": 5},
		"malformed timeout":   {"writeTimeout": "soon"},
		"non string version":  {"minTLSVersion": 1.2},
		"unknown tls version": {"maxTLSVersion": "SSL3"},
	}

	for name, optionsMap := range invalid {
		t.Run(name+" fails to parse", func(t *testing.T) {
			req := require.New(t)
			options := &ServerConfigOptions{}
			options.Default()
			req.Error(options.Parse(optionsMap))
		})
	}

	t.Run("a non positive timeout fails validation naming the key", func(t *testing.T) {
		req := require.New(t)
		options := &ServerConfigOptions{}
		options.Default()

		req.NoError(options.Parse(map[interface{}]interface{}{"idleTimeout": "0s"}))
		err := options.TimeoutOptions.Validate()
		req.Error(err)
		req.Contains(err.Error(), "idleTimeout")
	})

	t.Run("inverted tls versions name both versions", func(t *testing.T) {
		req := require.New(t)
		options := &TlsVersionOptions{MinTLSVersion: MaxTLSVersion, MaxTLSVersion: MinTLSVersion}

		err := options.Validate()
		req.Error(err)
		req.Contains(err.Error(), "TLS1.3")
		req.Contains(err.Error(), "TLS1.2")
	})
}

func Test_Server_Handler(t *testing.T) {
	instance, err := newTestInstance(t, testInstanceConfig)
	require.NoError(t, err)
	require.NoError(t, instance.Build())
	require.Len(t, instance.servers, 1)

	server := instance.servers[0]
	require.Len(t, server.HttpServers, 2)

	t.Run("the root redirects to the console", func(t *testing.T) {
		req := require.New(t)
		rec := httptest.NewRecorder()

		server.Handle.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		req.Equal(http.StatusFound, rec.Code)
		req.Equal("/system/console", rec.Header().Get("Location"))

		_, err := uuid.Parse(rec.Header().Get(RequestIdHeader))
		req.NoError(err)
	})

	t.Run("an incoming request id is kept", func(t *testing.T) {
		req := require.New(t)
		rec := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/system/console/a", nil)
		r.Header.Set(RequestIdHeader, "trace-me")

		server.Handle.ServeHTTP(rec, r)

		req.Equal("trace-me", rec.Header().Get(RequestIdHeader))
	})

	t.Run("console pages are compressed", func(t *testing.T) {
		req := require.New(t)
		rec := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/system/console/a", nil)
		r.Header.Set("Accept-Encoding", "gzip")

		server.Handle.ServeHTTP(rec, r)

		req.Equal(http.StatusOK, rec.Code)
		req.Equal("gzip", rec.Header().Get("Content-Encoding"))

		reader, err := gzip.NewReader(bytes.NewReader(rec.Body.Bytes()))
		req.NoError(err)
		body, err := io.ReadAll(reader)
		req.NoError(err)
		req.Contains(string(body), "Test Console")
		req.Contains(string(body), "<p>Alpha content</p>")
	})

	t.Run("a panicking handler answers 500", func(t *testing.T) {
		req := require.New(t)
		rec := httptest.NewRecorder()

		server.Handle.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

		req.Equal(http.StatusInternalServerError, rec.Code)
	})

	t.Run("a custom panic hook takes over", func(t *testing.T) {
		req := require.New(t)
		server.OnHandlerPanic = func(w http.ResponseWriter, _ *http.Request, panicVal interface{}) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		defer func() { server.OnHandlerPanic = nil }()
		rec := httptest.NewRecorder()

		server.Handle.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

		req.Equal(http.StatusServiceUnavailable, rec.Code)
	})
}
