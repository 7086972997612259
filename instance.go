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
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/michaelquigley/pfxlog"
	"github.com/openziti/identity"
)

// Instance loads the web configuration section, builds one Server per ServerConfig and runs them until Shutdown.
type Instance interface {
	DefaultHttpHandlerProvider
	Enabled() bool
	LoadConfig(cfgmap map[interface{}]interface{}) error
	Run() error
	Shutdown(ctx context.Context)
	GetRegistry() Registry
	GetDemuxFactory() DemuxFactory
	GetConfig() *InstanceConfig
}

// ShutdownTimeout bounds how long in-flight requests may take once Shutdown is called.
const ShutdownTimeout = time.Second * 15

const (
	DefaultIdentitySection = "identity"
	DefaultConfigSection   = "web"
)

// InstanceImpl is a basic implementation of Instance.
type InstanceImpl struct {
	DefaultHttpHandlerProviderImpl
	Config       *InstanceConfig
	servers      []*Server
	Registry     Registry
	DemuxFactory DemuxFactory
}

// NewConsoleInstance creates an InstanceImpl with the console and redirect bindings registered. Plugins are
// installed into every console built from configuration.
func NewConsoleInstance(defaultIdentity identity.Identity, installers ...PluginInstaller) (*InstanceImpl, error) {
	registry := NewRegistryMap()

	if err := registry.Add(NewConsoleFactory(installers...)); err != nil {
		return nil, err
	}

	if err := registry.Add(&RedirectFactory{}); err != nil {
		return nil, err
	}

	return NewDefaultInstance(registry, defaultIdentity), nil
}

var _ Instance = &InstanceImpl{}

func NewDefaultInstance(registry Registry, defaultIdentity identity.Identity) *InstanceImpl {
	return &InstanceImpl{
		Registry:     registry,
		DemuxFactory: &IsHandledDemuxFactory{},
		Config: &InstanceConfig{
			DefaultIdentitySection: DefaultIdentitySection,
			DefaultIdentity:        defaultIdentity,
			Section:                DefaultConfigSection,
		},
	}
}

// GetRegistry returns the associated Registry
func (i *InstanceImpl) GetRegistry() Registry {
	return i.Registry
}

// GetDemuxFactory returns the associated DemuxFactory
func (i *InstanceImpl) GetDemuxFactory() DemuxFactory {
	return i.DemuxFactory
}

// GetConfig returns the associated InstanceConfig
func (i *InstanceImpl) GetConfig() *InstanceConfig {
	return i.Config
}

// Enabled returns true/false on whether this subconfig should be considered enabled
func (i *InstanceImpl) Enabled() bool {
	return i.Config.Enabled()
}

// LoadConfig parses and validates the web configuration
func (i *InstanceImpl) LoadConfig(cfgmap map[interface{}]interface{}) error {
	if err := i.Config.Parse(cfgmap); err != nil {
		return err
	}

	//validate sets enabled flag to true on success
	if err := i.Config.Validate(i.Registry); err != nil {
		return err
	}

	return nil
}

// Build assembles all the servers from configuration and prepares to have Start() called.
func (i *InstanceImpl) Build() error {
	for _, serverConfig := range i.Config.ServerConfigs {
		server, err := NewServer(i, serverConfig)

		if err != nil {
			return fmt.Errorf("error building server %s: %v", serverConfig.Name, err)
		}

		i.servers = append(i.servers, server)
	}

	return nil
}

// Start calls Start() on all Servers that were built by calling Build() and blocks until they all stop.
func (i *InstanceImpl) Start() error {
	errs := make([]error, len(i.servers))

	wg := sync.WaitGroup{}
	for idx, server := range i.servers {
		idx, server := idx, server
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := server.Start(); err != nil {
				pfxlog.Logger().Errorf("error starting server %s: %v", server.ServerConfig.Name, err)
				errs[idx] = err
			}
		}()
	}
	wg.Wait()

	return errors.Join(errs...)
}

// Run builds and starts the configured servers
func (i *InstanceImpl) Run() error {
	if err := i.Build(); err != nil {
		return err
	}
	return i.Start()
}

// Shutdown stops all running servers, waiting at most ShutdownTimeout or until ctx is done.
func (i *InstanceImpl) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, ShutdownTimeout)
	defer cancel()

	wg := sync.WaitGroup{}
	for _, server := range i.servers {
		server := server
		wg.Add(1)
		go func() {
			defer wg.Done()
			server.Shutdown(ctx)
		}()
	}
	wg.Wait()
}

// DefaultHttpHandlerProvider lets each level (Instance, Server, demux handler, Console) supply the handler used
// when nothing below it matches a request. Lookups walk up the parent chain.
type DefaultHttpHandlerProvider interface {
	GetDefaultHttpHandler() http.Handler
	SetDefaultHttpHandler(handler http.Handler)
	SetParent(parent DefaultHttpHandlerProvider)
}

type DefaultHttpHandlerProviderImpl struct {
	Parent      DefaultHttpHandlerProvider
	HttpHandler http.Handler
}

var _ DefaultHttpHandlerProvider = &DefaultHttpHandlerProviderImpl{}

func handler404(rw http.ResponseWriter, _ *http.Request) {
	rw.WriteHeader(http.StatusNotFound)
	_, _ = rw.Write([]byte{})
}

func (d *DefaultHttpHandlerProviderImpl) GetDefaultHttpHandler() http.Handler {
	if d.HttpHandler == nil && d.Parent != nil {
		if handler := d.Parent.GetDefaultHttpHandler(); handler == nil {
			h := http.HandlerFunc(handler404)
			return &h
		} else {
			return handler
		}
	}

	return d.HttpHandler
}

func (d *DefaultHttpHandlerProviderImpl) SetDefaultHttpHandler(handler http.Handler) {
	d.HttpHandler = handler
}

func (d *DefaultHttpHandlerProviderImpl) SetParent(parent DefaultHttpHandlerProvider) {
	d.Parent = parent
}
