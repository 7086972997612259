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
	"fmt"

	"github.com/pkg/errors"
)

// PluginInstaller adds plugins to the registry of a newly built Console.
type PluginInstaller func(registry *PluginRegistry) error

// InstallPlugins returns a PluginInstaller adding the given plugins in order.
func InstallPlugins(plugins ...Plugin) PluginInstaller {
	return func(registry *PluginRegistry) error {
		for _, plugin := range plugins {
			if err := registry.Add(plugin); err != nil {
				return err
			}
		}
		return nil
	}
}

// ConsoleFactory is the ApiHandlerFactory for the ConsoleBinding binding. Every Console it builds is
// populated by the factory's installers.
type ConsoleFactory struct {
	installers []PluginInstaller
}

var _ ApiHandlerFactory = &ConsoleFactory{}

func NewConsoleFactory(installers ...PluginInstaller) *ConsoleFactory {
	return &ConsoleFactory{
		installers: installers,
	}
}

func (factory *ConsoleFactory) Binding() string {
	return ConsoleBinding
}

// New parses the api options into a ConsoleConfig and builds a Console with all plugins installed.
func (factory *ConsoleFactory) New(_ *ServerConfig, options map[interface{}]interface{}) (ApiHandler, error) {
	config, err := parseConsoleOptions(options)
	if err != nil {
		return nil, err
	}

	console := NewConsole(config)
	console.options = options

	for i, installer := range factory.installers {
		if err := installer(console.Registry()); err != nil {
			return nil, errors.Wrapf(err, "plugin installer at index [%d] failed", i)
		}
	}

	return console, nil
}

// Validate checks the options of every api section using this binding.
func (factory *ConsoleFactory) Validate(config *InstanceConfig) error {
	for i, serverConfig := range config.ServerConfigs {
		for j, api := range serverConfig.APIs {
			if api.Binding() != factory.Binding() {
				continue
			}
			if _, err := parseConsoleOptions(api.Options()); err != nil {
				return fmt.Errorf("invalid %s options for server [%s] at %s[%d].apis[%d]: %v", factory.Binding(), serverConfig.Name, config.Section, i, j, err)
			}
		}
	}
	return nil
}

func parseConsoleOptions(options map[interface{}]interface{}) (*ConsoleConfig, error) {
	config := DefaultConsoleConfig()

	if err := config.Parse(options); err != nil {
		return nil, errors.Wrap(err, "error parsing console options")
	}

	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "error validating console options")
	}

	return config, nil
}
