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
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func Test_PluginRegistry(t *testing.T) {
	activation := ActivationContext{AppRoot: "/system/console"}

	t.Run("add activates the plugin and derives its registration", func(t *testing.T) {
		req := require.New(t)
		registry := NewPluginRegistry(activation)
		plugin := newTestPlugin("logs", "Logs")

		req.NoError(registry.Add(plugin))

		req.NotNil(plugin.activatedAt)
		req.Equal("/system/console", plugin.activatedAt.AppRoot)
		req.Equal(DefaultProductName, plugin.activatedAt.Branding.ProductName)

		registration := registry.Get("logs")
		req.NotNil(registration)
		req.Same(plugin, registration.Plugin())
		req.Equal("Logs", registration.Chrome().PluginTitle)
		req.Equal("/system/console", registration.Chrome().AppRoot)
		req.Equal(ProbeAbsent, registration.Probe().Source)
		req.Equal(1, registry.Len())
	})

	t.Run("invalid labels are rejected", func(t *testing.T) {
		req := require.New(t)
		registry := NewPluginRegistry(activation)

		req.ErrorIs(registry.Add(newTestPlugin("", "Empty")), ErrInvalidLabel)
		req.ErrorIs(registry.Add(newTestPlugin("a/b", "Slash")), ErrInvalidLabel)
		req.ErrorIs(registry.Add(nil), ErrNilPlugin)
		req.Zero(registry.Len())
	})

	t.Run("duplicate labels are rejected", func(t *testing.T) {
		req := require.New(t)
		registry := NewPluginRegistry(activation)

		req.NoError(registry.Add(newTestPlugin("logs", "Logs")))
		req.ErrorIs(registry.Add(newTestPlugin("logs", "Other")), ErrDuplicateLabel)
		req.Equal("Logs", registry.LabelMap()["logs"])
	})

	t.Run("a failing activation does not install", func(t *testing.T) {
		req := require.New(t)
		registry := NewPluginRegistry(activation)
		plugin := newTestPlugin("logs", "Logs")
		plugin.activateErr = errors.New("no backend")

		req.Error(registry.Add(plugin))
		req.Nil(registry.Get("logs"))
	})

	t.Run("an explicit locator and mime resolver are used", func(t *testing.T) {
		req := require.New(t)
		registry := NewPluginRegistry(activation)
		locator := ResourceLocatorFunc(func(string) (Resource, error) { return nil, nil })
		resolver := MimeResolverFunc(func(string) string { return "text/plain" })

		req.NoError(registry.Add(newTestPlugin("logs", "Logs"), WithResourceLocator(locator), WithMimeResolver(resolver)))

		registration := registry.Get("logs")
		req.Equal(ProbeExplicit, registration.Probe().Source)
		req.Equal("text/plain", registration.Spooler().MimeResolver.MimeType("x.css"))
	})

	t.Run("remove deactivates", func(t *testing.T) {
		req := require.New(t)
		registry := NewPluginRegistry(activation)
		plugin := newTestPlugin("logs", "Logs")
		req.NoError(registry.Add(plugin))

		req.True(registry.Remove("logs"))
		req.Equal(1, plugin.deactivated)
		req.False(registry.Remove("logs"))
		req.Nil(registry.Get("logs"))
	})

	t.Run("labels are sorted and the label map is a snapshot", func(t *testing.T) {
		req := require.New(t)
		registry := NewPluginRegistry(activation)
		req.NoError(registry.Add(newTestPlugin("b", "Beta")))
		req.NoError(registry.Add(newTestPlugin("a", "Alpha")))

		req.Equal([]string{"a", "b"}, registry.Labels())

		labelMap := registry.LabelMap()
		req.Equal(map[string]string{"a": "Alpha", "b": "Beta"}, labelMap)

		labelMap["c"] = "Gamma"
		req.Len(registry.LabelMap(), 2)
	})
}
