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

package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/michaelquigley/pfxlog"
	"github.com/openziti/webconsole"
	"github.com/openziti/webconsole/plugins/loglevel"
	"github.com/openziti/webconsole/plugins/markdown"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	configKey   = "config"
	logLevelKey = "log-level"
	notesKey    = "notes"
)

var rootCmd = &cobra.Command{
	Use:   "webconsole",
	Short: "Runs a pluggable web management console",
	Long: `Runs the web console servers defined in the web section of a YAML configuration file. Settings may also
be given as WEBCONSOLE_ prefixed environment variables, e.g. WEBCONSOLE_LOG_LEVEL=debug.`,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().StringP(configKey, "c", "webconsole.yml", "configuration file")
	rootCmd.Flags().StringP(logLevelKey, "l", "info", "log level (trace, debug, info, warning, error)")
	rootCmd.Flags().String(notesKey, "", "markdown file shown on the notes page")

	viper.SetEnvPrefix("WEBCONSOLE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	for _, key := range []string{configKey, logLevelKey, notesKey} {
		_ = viper.BindPFlag(key, rootCmd.Flags().Lookup(key))
	}
}

func setVersion(v string) {
	rootCmd.Version = v
}

func run(cmd *cobra.Command, _ []string) error {
	level, err := logrus.ParseLevel(viper.GetString(logLevelKey))
	if err != nil {
		return errors.Wrap(err, "invalid log level")
	}
	pfxlog.GlobalInit(level, pfxlog.DefaultOptions().SetTrimPrefix("github.com/openziti/"))
	log := pfxlog.Logger()

	configFile := viper.GetString(configKey)
	configMap, err := webconsole.LoadConfigFile(configFile)
	if err != nil {
		return err
	}

	tracingConfig := webconsole.DefaultTracingConfig()
	if section, ok := configMap[webconsole.DefaultTracingSection].(map[interface{}]interface{}); ok {
		if err = tracingConfig.Parse(section); err != nil {
			return err
		}
	}
	if err = tracingConfig.Validate(); err != nil {
		return err
	}

	tracing, err := webconsole.NewTracingProvider(tracingConfig)
	if err != nil {
		return err
	}
	defer func() {
		if err := tracing.Shutdown(context.Background()); err != nil {
			log.WithError(err).Warn("could not flush traces")
		}
	}()

	installers := []webconsole.PluginInstaller{
		loglevel.Installer(nil),
		webconsole.InstallPlugins(markdown.New("about", "About")),
	}
	if notes := viper.GetString(notesKey); notes != "" {
		installers = append(installers, webconsole.InstallPlugins(markdown.New("notes", "Notes", markdown.WithFile(notes))))
	}

	instance, err := webconsole.NewConsoleInstance(nil, installers...)
	if err != nil {
		return err
	}

	if err = instance.LoadConfig(configMap); err != nil {
		return errors.Wrapf(err, "invalid configuration in %s", configFile)
	}

	if err = instance.Build(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	done := make(chan error, 1)
	go func() {
		done <- instance.Start()
	}()

	log.Infof("web console %s started", cmd.Root().Version)

	select {
	case err = <-done:
		return err
	case <-ctx.Done():
		log.Info("shutting down")
		instance.Shutdown(context.Background())
		return <-done
	}
}
