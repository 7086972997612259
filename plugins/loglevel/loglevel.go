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

package loglevel

import (
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"

	"github.com/michaelquigley/pfxlog"
	"github.com/openziti/webconsole"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	Label = "loglevel"
	Title = "Log Level"

	LevelParameter = "level"
)

// Plugin shows the current log level and changes it on POST. The form can be submitted url encoded or as
// multipart/form-data.
type Plugin struct {
	logger *logrus.Logger
}

var _ webconsole.Plugin = &Plugin{}
var _ webconsole.PostHandler = &Plugin{}

// New creates a log level plugin for logger, nil means the standard logrus logger used by pfxlog.
func New(logger *logrus.Logger) *Plugin {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Plugin{logger: logger}
}

func (p *Plugin) Label() string {
	return Label
}

func (p *Plugin) Title() string {
	return Title
}

func (p *Plugin) RenderContent(w io.Writer, r *http.Request) error {
	current := p.logger.GetLevel()

	var sb strings.Builder
	sb.WriteString("<form method=\"post\" enctype=\"multipart/form-data\">\n")
	fmt.Fprintf(&sb, "<p>Current level: <strong id=\"current-level\">%s</strong></p>\n", html.EscapeString(current.String()))
	fmt.Fprintf(&sb, "<select name=\"%s\">\n", LevelParameter)
	for _, level := range logrus.AllLevels {
		selected := ""
		if level == current {
			selected = " selected"
		}
		fmt.Fprintf(&sb, "<option value=\"%[1]s\"%[2]s>%[1]s</option>\n", level.String(), selected)
	}
	sb.WriteString("</select>\n<button type=\"submit\">Apply</button>\n</form>\n")

	if flash, ok := webconsole.GetParameter(r, "updated"); ok && flash != "" {
		fmt.Fprintf(&sb, "<p class=\"info\">Log level set to %s</p>\n", html.EscapeString(flash))
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

// HandlePost applies the submitted level and redirects back to the plugin page. Unknown levels are answered
// with 400.
func (p *Plugin) HandlePost(w http.ResponseWriter, r *http.Request) error {
	value, ok := webconsole.GetParameter(r, LevelParameter)
	if !ok {
		http.Error(w, "missing parameter "+LevelParameter, http.StatusBadRequest)
		return nil
	}

	level, err := logrus.ParseLevel(strings.TrimSpace(value))
	if err != nil {
		http.Error(w, "invalid log level "+value, http.StatusBadRequest)
		return nil
	}

	previous := p.logger.GetLevel()
	p.logger.SetLevel(level)

	pfxlog.Logger().WithField("requestId", webconsole.RequestIdFromRequestContext(r.Context())).
		Infof("log level changed from %s to %s", previous, level)

	webconsole.SendRedirect(w, r, Label+"?updated="+level.String())
	return nil
}

// Installer adds the plugin to a console registry.
func Installer(logger *logrus.Logger) webconsole.PluginInstaller {
	return func(registry *webconsole.PluginRegistry) error {
		if err := registry.Add(New(logger)); err != nil {
			return errors.Wrap(err, "could not install log level plugin")
		}
		return nil
	}
}
