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
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/michaelquigley/pfxlog"
	"github.com/openziti/identity"
)

const (
	MinTLSVersion = tls.VersionTLS12
	MaxTLSVersion = tls.VersionTLS13

	DefaultHttpWriteTimeout = time.Second * 10
	DefaultHttpReadTimeout  = time.Second * 5
	DefaultHttpIdleTimeout  = time.Second * 5
)

// TlsVersionMap is a map of configuration strings to TLS version identifiers
var TlsVersionMap = map[string]int{
	"TLS1.0": tls.VersionTLS10,
	"TLS1.1": tls.VersionTLS11,
	"TLS1.2": tls.VersionTLS12,
	"TLS1.3": tls.VersionTLS13,
}

// ReverseTlsVersionMap is a map of TLS version identifiers to configuration strings
var ReverseTlsVersionMap = map[int]string{
	tls.VersionTLS10: "TLS1.0",
	tls.VersionTLS11: "TLS1.1",
	tls.VersionTLS12: "TLS1.2",
	tls.VersionTLS13: "TLS1.3",
}

// InstanceConfig is the root configuration options necessary to start numerous http.Server instances
type InstanceConfig struct {
	SourceConfig map[interface{}]interface{}

	ServerConfigs []*ServerConfig
	Section       string

	DefaultIdentity        identity.Identity
	DefaultIdentitySection string

	//used for loading/validation logic, nil when no default identity is configured
	defaultIdentityConfig *identity.Config

	enabled bool
}

// Parse parses a configuration map, looking for an optional default identity section and an array of ServerConfig's.
// Without any identity servers listen with plain http.
func (config *InstanceConfig) Parse(configMap map[interface{}]interface{}) error {
	config.SourceConfig = configMap

	if config.Section == "" {
		return errors.New("web section not specified for configuration")
	}

	if config.DefaultIdentity != nil {
		config.defaultIdentityConfig = config.DefaultIdentity.GetConfig()
	} else if config.DefaultIdentitySection != "" {
		if identityInterface, ok := configMap[config.DefaultIdentitySection]; ok {
			if identityMap, ok := identityInterface.(map[interface{}]interface{}); ok {
				if identityConfig, err := parseIdentityConfig(identityMap, config.DefaultIdentitySection); err == nil {
					config.defaultIdentityConfig = identityConfig
				} else {
					return fmt.Errorf("error parsing root identity section [%s] : %v", config.DefaultIdentitySection, err)
				}
			} else {
				return fmt.Errorf("root identity section [%s] must be a map", config.DefaultIdentitySection)
			}
		} //no else, the default identity is optional
	}

	sectionVal, ok := configMap[config.Section]
	if !ok {
		return fmt.Errorf("web section [%s] must be defined", config.Section)
	}

	//treat section like an array of maps
	sectionArrayVals, ok := sectionVal.([]interface{})
	if !ok {
		return fmt.Errorf("web section [%s] must be an array", config.Section)
	}

	for i, sectionArrayVal := range sectionArrayVals {
		if sectionMap, ok := sectionArrayVal.(map[interface{}]interface{}); ok {
			serverConfig := &ServerConfig{
				DefaultIdentity: config.DefaultIdentity,
			}
			if err := serverConfig.Parse(sectionMap, config.Section); err != nil {
				return fmt.Errorf("error parsing web configuration [%s] at index [%d]: %v", config.Section, i, err)
			}

			config.ServerConfigs = append(config.ServerConfigs, serverConfig)
		} else {
			return fmt.Errorf("error parsing web configuration [%s] at index [%d]: not a map", config.Section, i)
		}
	}

	return nil
}

// Validate uses a Registry to validate that all ApiConfig bindings may be fulfilled. All other relevant
// InstanceConfig values are also validated.
func (config *InstanceConfig) Validate(registry Registry) error {
	if config.DefaultIdentity == nil && config.defaultIdentityConfig != nil {
		//validate default identity by loading
		if defaultIdentity, err := identity.LoadIdentity(*config.defaultIdentityConfig); err == nil {
			config.DefaultIdentity = defaultIdentity

			if err := config.DefaultIdentity.WatchFiles(); err != nil {
				pfxlog.Logger().Warnf("could not enable file watching on default identity: %v", err)
			}
		} else {
			return fmt.Errorf("could not load default identity: %v", err)
		}

		//add default loaded identity to each web
		for _, serverConfig := range config.ServerConfigs {
			serverConfig.DefaultIdentity = config.DefaultIdentity
		}
	}

	if len(config.ServerConfigs) == 0 {
		return fmt.Errorf("web section [%s] must define at least one server", config.Section)
	}

	presentApis := map[string]ApiHandlerFactory{}

	var errs []error
	for i, serverConfig := range config.ServerConfigs {
		//validate attributes
		if err := serverConfig.Validate(registry); err != nil {
			return fmt.Errorf("could not validate server at %s[%d]: %v", config.Section, i, err)
		}

		for _, api := range serverConfig.APIs {
			presentApis[api.Binding()] = registry.Get(api.Binding())
		}

		if serverConfig.Identity != nil {
			for _, bp := range serverConfig.BindPoints {
				if ve := serverConfig.Identity.ValidFor(hostOnly(bp.Address)); ve != nil {
					errs = append(errs, ve)
				}
			}
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	for presentApiBinding, presentApiFactory := range presentApis {
		if err := presentApiFactory.Validate(config); err != nil {
			return fmt.Errorf("error validating ApiConfig binding %s: %v", presentApiBinding, err)
		}
	}

	//enabled only after validation passes
	config.enabled = true

	return nil
}

// Enabled returns true/false on whether this configuration should be considered "enabled". Set to true after
// Validate passes.
func (config *InstanceConfig) Enabled() bool {
	return config.enabled
}

func hostOnly(address string) string {
	if host, _, err := net.SplitHostPort(address); err == nil {
		return host
	}
	return address
}

// ServerConfigOptions is the shared options for a ServerConfig.
type ServerConfigOptions struct {
	TimeoutOptions
	TlsVersionOptions
}

// Default provides defaults for all necessary values
func (options *ServerConfigOptions) Default() {
	options.TimeoutOptions.Default()
	options.TlsVersionOptions.Default()
}

// Parse parses a configuration map
func (options *ServerConfigOptions) Parse(optionsMap map[interface{}]interface{}) error {
	if err := options.TimeoutOptions.Parse(optionsMap); err != nil {
		return fmt.Errorf("error parsing options: %v", err)
	}

	if err := options.TlsVersionOptions.Parse(optionsMap); err != nil {
		return fmt.Errorf("error parsing options: %v", err)
	}

	return nil
}

// TimeoutOptions represents http timeout options
type TimeoutOptions struct {
	ReadTimeout  time.Duration
	IdleTimeout  time.Duration
	WriteTimeout time.Duration
}

// Default defaults all HTTP timeout options
func (timeoutOptions *TimeoutOptions) Default() {
	timeoutOptions.WriteTimeout = DefaultHttpWriteTimeout
	timeoutOptions.ReadTimeout = DefaultHttpReadTimeout
	timeoutOptions.IdleTimeout = DefaultHttpIdleTimeout
}

// Parse reads readTimeout, idleTimeout and writeTimeout as durations (e.g. "30s"). Absent keys keep
// their current value.
func (timeoutOptions *TimeoutOptions) Parse(config map[interface{}]interface{}) error {
	for _, option := range timeoutOptions.fields() {
		var durationStr string
		if err := parseString(config, option.key, &durationStr); err != nil {
			return err
		}
		if durationStr == "" {
			continue
		}

		duration, err := time.ParseDuration(durationStr)
		if err != nil {
			return fmt.Errorf("could not parse %s [%s] as a duration (e.g. 1m): %v", option.key, durationStr, err)
		}
		*option.target = duration
	}

	return nil
}

// Validate requires every timeout to be positive.
func (timeoutOptions *TimeoutOptions) Validate() error {
	for _, option := range timeoutOptions.fields() {
		if *option.target <= 0 {
			return fmt.Errorf("value [%s] for %s too low, must be positive", option.target.String(), option.key)
		}
	}

	return nil
}

type durationField struct {
	key    string
	target *time.Duration
}

func (timeoutOptions *TimeoutOptions) fields() []durationField {
	return []durationField{
		{key: "readTimeout", target: &timeoutOptions.ReadTimeout},
		{key: "idleTimeout", target: &timeoutOptions.IdleTimeout},
		{key: "writeTimeout", target: &timeoutOptions.WriteTimeout},
	}
}

// TlsVersionOptions bounds the TLS versions a server negotiates. Values are keys of TlsVersionMap.
type TlsVersionOptions struct {
	MinTLSVersion int
	MaxTLSVersion int
}

// Default defaults TLS versions
func (tlsVersionOptions *TlsVersionOptions) Default() {
	tlsVersionOptions.MinTLSVersion = MinTLSVersion
	tlsVersionOptions.MaxTLSVersion = MaxTLSVersion
}

// Parse reads minTLSVersion and maxTLSVersion.
func (tlsVersionOptions *TlsVersionOptions) Parse(config map[interface{}]interface{}) error {
	if err := parseTlsVersion(config, "minTLSVersion", &tlsVersionOptions.MinTLSVersion); err != nil {
		return err
	}
	return parseTlsVersion(config, "maxTLSVersion", &tlsVersionOptions.MaxTLSVersion)
}

// Validate requires minTLSVersion to be at most maxTLSVersion.
func (tlsVersionOptions *TlsVersionOptions) Validate() error {
	if tlsVersionOptions.MinTLSVersion > tlsVersionOptions.MaxTLSVersion {
		return fmt.Errorf("minTLSVersion [%s] must be less than or equal to maxTLSVersion [%s]",
			ReverseTlsVersionMap[tlsVersionOptions.MinTLSVersion], ReverseTlsVersionMap[tlsVersionOptions.MaxTLSVersion])
	}

	return nil
}

func parseTlsVersion(config map[interface{}]interface{}, key string, target *int) error {
	var versionStr string
	if err := parseString(config, key, &versionStr); err != nil {
		return err
	}
	if versionStr == "" {
		return nil
	}

	version, ok := TlsVersionMap[versionStr]
	if !ok {
		return fmt.Errorf("could not use value for %s, invalid value [%s]", key, versionStr)
	}
	*target = version
	return nil
}

func parseIdentityConfig(identityMap map[interface{}]interface{}, pathContext string) (*identity.Config, error) {
	idConfig, err := identity.NewConfigFromMap(identityMap)
	if err != nil {
		return nil, fmt.Errorf("error reading identity: %v", err)
	}

	if err = idConfig.ValidateWithPathContext(pathContext); err != nil {
		return nil, fmt.Errorf("error parsing identity: %v", err)
	}

	return idConfig, nil
}
