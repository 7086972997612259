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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_ConsoleConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		req := require.New(t)
		config := DefaultConsoleConfig()

		req.Equal(DefaultAppRoot, config.AppRoot)
		req.Equal(DefaultUploadSizeThreshold, config.UploadSizeThreshold)
		req.Equal(DefaultAdminTitle, config.Branding.AdminTitle)
		req.NoError(config.Validate())
	})

	t.Run("parses all options from yaml", func(t *testing.T) {
		req := require.New(t)
		options, err := ParseConfig([]byte(`
appRoot: /admin
contextPath: /ctx
defaultPlugin: logs
branding:
  adminTitle: Ops
  productWeb: https://example.org
  vendorName: Example
upload:
  sizeThreshold: 1024
`))
		req.NoError(err)

		config := DefaultConsoleConfig()
		req.NoError(config.Parse(options))
		req.NoError(config.Validate())

		req.Equal("/admin", config.AppRoot)
		req.Equal("/ctx/admin", config.AppRootPath())
		req.Equal("logs", config.DefaultPlugin)
		req.Equal("Ops", config.Branding.AdminTitle)
		req.Equal(DefaultProductName, config.Branding.ProductName)
		req.Equal("Example", config.Branding.VendorName)
		req.EqualValues(1024, config.UploadSizeThreshold)
	})

	t.Run("rejects invalid values", func(t *testing.T) {
		for name, options := range map[string]map[interface{}]interface{}{
			"relative app root":      {"appRoot": "admin"},
			"trailing slash":         {"appRoot": "/admin/"},
			"non string app root":    {"appRoot": 7},
			"branding not a map":     {"branding": "x"},
			"fractional threshold":   {"upload": map[interface{}]interface{}{"sizeThreshold": 1.5}},
			"negative threshold":     {"upload": map[interface{}]interface{}{"sizeThreshold": -1}},
			"default plugin subpath": {"defaultPlugin": "a/b"},
		} {
			t.Run(name, func(t *testing.T) {
				_, err := parseConsoleOptions(options)
				require.Error(t, err)
			})
		}
	})
}

func Test_ParseConfig(t *testing.T) {
	t.Run("nested maps use interface keys", func(t *testing.T) {
		req := require.New(t)
		configMap, err := ParseConfig([]byte("web:\n  - name: a\n    options:\n      readTimeout: 5s\n"))
		req.NoError(err)

		servers, ok := configMap["web"].([]interface{})
		req.True(ok)
		server, ok := servers[0].(map[interface{}]interface{})
		req.True(ok)
		options, ok := server["options"].(map[interface{}]interface{})
		req.True(ok)
		req.Equal("5s", options["readTimeout"])
	})

	t.Run("an empty document is an empty map", func(t *testing.T) {
		req := require.New(t)
		configMap, err := ParseConfig(nil)
		req.NoError(err)
		req.Empty(configMap)
	})

	t.Run("a non map root is an error", func(t *testing.T) {
		req := require.New(t)
		_, err := ParseConfig([]byte("- a\n- b\n"))
		req.Error(err)
	})

	t.Run("files are loaded", func(t *testing.T) {
		req := require.New(t)
		path := filepath.Join(t.TempDir(), "webconsole.yml")
		req.NoError(os.WriteFile(path, []byte("tracing:\n  enabled: true\n"), 0o600))

		configMap, err := LoadConfigFile(path)
		req.NoError(err)
		req.Contains(configMap, "tracing")

		_, err = LoadConfigFile(filepath.Join(t.TempDir(), "missing.yml"))
		req.Error(err)
	})
}
