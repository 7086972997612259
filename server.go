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
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"

	"github.com/google/uuid"
	"github.com/michaelquigley/pfxlog"
	"github.com/openziti/foundation/v2/debugz"
	transporttls "github.com/openziti/transport/v2/tls"
	"github.com/openziti/webconsole/middleware"
)

type ContextKey string

// RequestIdHeader carries the request id. Incoming values are kept, otherwise a new one is generated.
const RequestIdHeader = "X-Request-Id"

type ServerContext struct {
	BindPoint    *BindPointConfig
	ServerConfig *ServerConfig
	Config       *InstanceConfig
}

type namedHttpServer struct {
	*http.Server
	ApiBindingList  []string
	BindPointConfig *BindPointConfig
	ServerConfig    *ServerConfig
	InstanceConfig  *InstanceConfig
}

func (s namedHttpServer) NewBaseContext(_ net.Listener) context.Context {
	serverContext := &ServerContext{
		BindPoint:    s.BindPointConfig,
		ServerConfig: s.ServerConfig,
		Config:       s.InstanceConfig,
	}

	ctx := context.Background()
	ctx = context.WithValue(ctx, ServerContextKey, serverContext)

	return ctx
}

// Server represents all the http.Server's and http.Handler's necessary to run a single ServerConfig
type Server struct {
	DefaultHttpHandlerProviderImpl
	HttpServers    []*namedHttpServer
	logWriter      *io.PipeWriter
	Handle         http.Handler
	OnHandlerPanic func(writer http.ResponseWriter, request *http.Request, panicVal interface{})
	ServerConfig   *ServerConfig
}

// NewServer creates a new Server from a ServerConfig. All necessary http.Handler's will be created from the supplied
// DemuxFactory and Registry.
func NewServer(instance Instance, serverConfig *ServerConfig) (*Server, error) {
	logWriter := pfxlog.Logger().Writer()

	var tlsConfig *tls.Config
	if serverConfig.TLSEnabled() {
		tlsConfig = serverConfig.Identity.ServerTLSConfig()
		tlsConfig.ClientAuth = tls.RequestClientCert
		tlsConfig.MinVersion = uint16(serverConfig.Options.MinTLSVersion)
		tlsConfig.MaxVersion = uint16(serverConfig.Options.MaxTLSVersion)
	}

	server := &Server{
		logWriter:    logWriter,
		HttpServers:  []*namedHttpServer{},
		ServerConfig: serverConfig,
	}

	server.SetParent(instance)

	var handlers []ApiHandler
	var apiBindingList []string

	for _, api := range serverConfig.APIs {
		apiFactory := instance.GetRegistry().Get(api.Binding())
		if apiFactory == nil {
			return nil, fmt.Errorf("encountered api binding [%s] which has no associated factory registered", api.Binding())
		}

		handler, err := apiFactory.New(serverConfig, api.Options())
		if err != nil {
			return nil, fmt.Errorf("encountered error building handler for api binding [%s]: %v", api.Binding(), err)
		}

		if provider, ok := handler.(DefaultHttpHandlerProvider); ok {
			provider.SetParent(server)
		}

		handlers = append(handlers, handler)
		apiBindingList = append(apiBindingList, api.Binding())
	}

	demuxHandler, err := instance.GetDemuxFactory().Build(handlers)

	if err != nil {
		return nil, fmt.Errorf("error creating server: %v", err)
	}

	demuxHandler.SetParent(server)
	server.Handle = server.wrapHandler(demuxHandler)

	for _, bindPoint := range serverConfig.BindPoints {
		namedServer := &namedHttpServer{
			ApiBindingList:  apiBindingList,
			ServerConfig:    serverConfig,
			BindPointConfig: bindPoint,
			InstanceConfig:  instance.GetConfig(),
			Server: &http.Server{
				Addr:         bindPoint.InterfaceAddress,
				WriteTimeout: serverConfig.Options.WriteTimeout,
				ReadTimeout:  serverConfig.Options.ReadTimeout,
				IdleTimeout:  serverConfig.Options.IdleTimeout,
				Handler:      server.Handle,
				TLSConfig:    tlsConfig,
				ErrorLog:     log.New(logWriter, "", 0),
			},
		}

		namedServer.BaseContext = namedServer.NewBaseContext

		server.HttpServers = append(server.HttpServers, namedServer)
	}

	return server, nil
}

func (server *Server) wrapHandler(handler http.Handler) http.Handler {
	//innermost/bottom -> outermost/top
	handler = server.wrapPanicRecovery(handler)
	handler = wrapRequestId(handler)
	handler = middleware.NewCompressionHandler(handler)
	return handler
}

// wrapPanicRecovery wraps a http.Handler with another http.Handler that provides recovery.
func (server *Server) wrapPanicRecovery(handler http.Handler) http.Handler {
	wrappedHandler := http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		defer func() {
			if panicVal := recover(); panicVal != nil {
				if server.OnHandlerPanic != nil {
					server.OnHandlerPanic(writer, request, panicVal)
					return
				}
				pfxlog.Logger().WithField("requestId", RequestIdFromRequestContext(request.Context())).
					Errorf("panic caught by server handler: %v\n%v", panicVal, debugz.GenerateLocalStack())
				http.Error(writer, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}
		}()

		handler.ServeHTTP(writer, request)
	})

	return wrappedHandler
}

// wrapRequestId tags every request with an id, available from RequestIdFromRequestContext and echoed in the
// RequestIdHeader response header.
func wrapRequestId(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		requestId := request.Header.Get(RequestIdHeader)
		if requestId == "" || len(requestId) > 64 {
			requestId = uuid.NewString()
		}

		writer.Header().Set(RequestIdHeader, requestId)
		ctx := context.WithValue(request.Context(), RequestIdContextKey, requestId)
		handler.ServeHTTP(writer, request.WithContext(ctx))
	})
}

// Start the server and all underlying http.Server's. Start blocks until every http.Server has stopped.
func (server *Server) Start() error {
	errs := make(chan error, len(server.HttpServers))

	for _, httpServer := range server.HttpServers {
		httpServer := httpServer
		go func() {
			errs <- server.serve(httpServer)
		}()
	}

	var result []error
	for range server.HttpServers {
		if err := <-errs; err != nil {
			result = append(result, err)
		}
	}

	return errors.Join(result...)
}

func (server *Server) serve(httpServer *namedHttpServer) error {
	logger := pfxlog.Logger().WithField("server", httpServer.ServerConfig.Name)

	var listener net.Listener
	var err error

	if cfg := httpServer.TLSConfig; cfg != nil {
		logger.Infof("listening and serving tls on %s with APIs: %v", httpServer.Addr, httpServer.ApiBindingList)
		// make sure to listen to the expected protocols
		cfg.NextProtos = append(cfg.NextProtos, "h2", "http/1.1", "")
		listener, err = transporttls.ListenTLS(httpServer.Addr, httpServer.ServerConfig.Name, cfg)
	} else {
		logger.Infof("listening and serving http on %s with APIs: %v", httpServer.Addr, httpServer.ApiBindingList)
		listener, err = net.Listen("tcp", httpServer.Addr)
	}

	if err != nil {
		return fmt.Errorf("error listening on %s: %v", httpServer.Addr, err)
	}

	if err = httpServer.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("error serving on %s: %v", httpServer.Addr, err)
	}

	return nil
}

// Shutdown stops the server and all underlying http.Server's
func (server *Server) Shutdown(ctx context.Context) {
	for _, httpServer := range server.HttpServers {
		if err := httpServer.Shutdown(ctx); err != nil {
			pfxlog.Logger().WithError(err).Warnf("error shutting down http server on %s", httpServer.Addr)
		}
	}

	_ = server.logWriter.Close()
}
