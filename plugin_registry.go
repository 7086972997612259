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
	"sort"
	"strings"

	"github.com/michaelquigley/pfxlog"
	gocache "github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
)

// Registration is an installed plugin together with everything derived from it when it was added: the
// probed resource locator, the Spooler built on it and the chrome context of its pages.
type Registration struct {
	plugin  Plugin
	probe   ProbeResult
	spooler *Spooler
	chrome  ChromeContext
}

func (registration *Registration) Plugin() Plugin {
	return registration.plugin
}

func (registration *Registration) Probe() ProbeResult {
	return registration.probe
}

func (registration *Registration) Spooler() *Spooler {
	return registration.spooler
}

func (registration *Registration) Chrome() ChromeContext {
	return registration.chrome
}

type registrationOptions struct {
	locator      ResourceLocatorFunc
	mimeResolver MimeResolver
}

// RegistrationOption customizes PluginRegistry.Add.
type RegistrationOption func(*registrationOptions)

// WithResourceLocator sets the resource locator of a plugin explicitly instead of probing the plugin.
func WithResourceLocator(locator ResourceLocatorFunc) RegistrationOption {
	return func(options *registrationOptions) {
		options.locator = locator
	}
}

// WithMimeResolver overrides the MimeResolver used to serve the plugin's resources.
func WithMimeResolver(resolver MimeResolver) RegistrationOption {
	return func(options *registrationOptions) {
		options.mimeResolver = resolver
	}
}

// PluginRegistry holds the installed plugins of a console keyed by label. It is safe for concurrent use.
type PluginRegistry struct {
	activation ActivationContext
	store      *gocache.Cache
}

// NewPluginRegistry creates an empty registry. The activation context is handed to every plugin added.
func NewPluginRegistry(activation ActivationContext) *PluginRegistry {
	activation.Branding.Default()
	return &PluginRegistry{
		activation: activation,
		store:      gocache.New(gocache.NoExpiration, 0),
	}
}

// Add activates and installs a plugin. Errors if the label is invalid, already registered, or the plugin
// fails to activate.
func (registry *PluginRegistry) Add(plugin Plugin, options ...RegistrationOption) error {
	if plugin == nil {
		return ErrNilPlugin
	}

	label := plugin.Label()
	if label == "" || strings.Contains(label, "/") {
		return errors.Wrapf(ErrInvalidLabel, "label [%s]", label)
	}

	if _, found := registry.store.Get(label); found {
		return errors.Wrapf(ErrDuplicateLabel, "label [%s]", label)
	}

	opts := &registrationOptions{}
	for _, option := range options {
		option(opts)
	}

	if activator, ok := plugin.(Activator); ok {
		activation := registry.activation
		if err := activator.Activate(&activation); err != nil {
			return errors.Wrapf(err, "could not activate plugin [%s]", label)
		}
	}

	probe := ProbeResourceLocator(plugin, opts.locator)

	logger := pfxlog.Logger().WithField("label", label)
	if probe.Err != nil {
		logger.WithError(probe.Err).Warn("resource provider probe failed, plugin serves no resources")
	}

	registration := &Registration{
		plugin:  plugin,
		probe:   probe,
		spooler: NewSpooler(probe.Locator, opts.mimeResolver),
		chrome: ChromeContext{
			Branding:    registry.activation.Branding,
			AppRoot:     registry.activation.AppRoot,
			PluginLabel: label,
			PluginTitle: plugin.Title(),
		},
	}

	if err := registry.store.Add(label, registration, gocache.NoExpiration); err != nil {
		deactivate(plugin)
		return errors.Wrapf(ErrDuplicateLabel, "label [%s]", label)
	}

	logger.WithField("resources", probe.Source.String()).Infof("added console plugin [%s]", plugin.Title())

	return nil
}

// Remove uninstalls and deactivates the plugin with the given label. Returns false if no such plugin is
// registered.
func (registry *PluginRegistry) Remove(label string) bool {
	registration := registry.Get(label)
	if registration == nil {
		return false
	}

	registry.store.Delete(label)
	deactivate(registration.plugin)

	pfxlog.Logger().WithField("label", label).Info("removed console plugin")

	return true
}

// Get returns the registration for label or nil.
func (registry *PluginRegistry) Get(label string) *Registration {
	if val, found := registry.store.Get(label); found {
		if registration, ok := val.(*Registration); ok {
			return registration
		}
	}
	return nil
}

// Labels returns the sorted labels of all installed plugins.
func (registry *PluginRegistry) Labels() []string {
	items := registry.store.Items()
	labels := make([]string, 0, len(items))
	for label := range items {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

// LabelMap returns a snapshot of the installed plugins as label to title, the navigation entries of the
// console.
func (registry *PluginRegistry) LabelMap() map[string]string {
	labelMap := map[string]string{}
	for label, item := range registry.store.Items() {
		if registration, ok := item.Object.(*Registration); ok {
			labelMap[label] = registration.chrome.PluginTitle
		}
	}
	return labelMap
}

// Len returns the number of installed plugins.
func (registry *PluginRegistry) Len() int {
	return registry.store.ItemCount()
}

func deactivate(plugin Plugin) {
	if deactivator, ok := plugin.(Deactivator); ok {
		deactivator.Deactivate()
	}
}
