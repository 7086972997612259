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
)

// ProbeSource records where a plugin's resource locator came from.
type ProbeSource int

const (
	ProbeAbsent ProbeSource = iota
	ProbeExplicit
	ProbePlugin
	ProbeDelegate
)

func (source ProbeSource) String() string {
	switch source {
	case ProbeExplicit:
		return "explicit"
	case ProbePlugin:
		return "plugin"
	case ProbeDelegate:
		return "delegate"
	default:
		return "absent"
	}
}

// ProbeResult is the outcome of probing a plugin for its resource locator capability. Err is only set when
// probing itself failed, in which case Locator is nil.
type ProbeResult struct {
	Locator ResourceLocatorFunc
	Source  ProbeSource
	Err     error
}

// Found returns true if a locator is available.
func (result ProbeResult) Found() bool {
	return result.Locator != nil
}

// ProbeResourceLocator determines the resource locator of a plugin. An explicit locator always wins.
// Otherwise the plugin's resource provider is inspected: the delegate returned by ResourceProviderDelegate
// if the plugin implements it, or the plugin itself. The provider qualifies if it implements
// ResourceProvider or is a plain locator function.
//
// Method promotion through embedded types means the outermost declaration of GetResource is the one
// used. A GetResource method with any other signature does not qualify.
//
// ProbeResourceLocator never panics. A panicking delegate accessor yields an absent result with Err set.
func ProbeResourceLocator(plugin Plugin, explicit ResourceLocatorFunc) (result ProbeResult) {
	if explicit != nil {
		return ProbeResult{Locator: explicit, Source: ProbeExplicit}
	}

	if plugin == nil {
		return ProbeResult{Source: ProbeAbsent}
	}

	defer func() {
		if panicVal := recover(); panicVal != nil {
			result = ProbeResult{
				Source: ProbeAbsent,
				Err:    fmt.Errorf("panic while probing plugin [%s] for a resource provider: %v", plugin.Label(), panicVal),
			}
		}
	}()

	var provider interface{} = plugin
	source := ProbePlugin

	if delegate, ok := plugin.(ResourceProviderDelegate); ok {
		provider = delegate.ResourceProvider()
		source = ProbeDelegate
	}

	switch p := provider.(type) {
	case nil:
		return ProbeResult{Source: ProbeAbsent}
	case ResourceLocatorFunc:
		if p == nil {
			return ProbeResult{Source: ProbeAbsent}
		}
		return ProbeResult{Locator: p, Source: source}
	case func(string) (Resource, error):
		if p == nil {
			return ProbeResult{Source: ProbeAbsent}
		}
		return ProbeResult{Locator: p, Source: source}
	case ResourceProvider:
		return ProbeResult{Locator: p.GetResource, Source: source}
	}

	return ProbeResult{Source: ProbeAbsent}
}
