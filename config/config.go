// This file is part of gnunet-go, a GNUnet-implementation in Golang.
// Copyright (C) 2019, 2020 Bernd Fix  >Y<
//
// gnunet-go is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License,
// or (at your option) any later version.
//
// gnunet-go is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.
//
// SPDX-License-Identifier: AGPL3.0-or-later

package config

import (
	"encoding/json"
	"io/ioutil"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/bfix/gospel/logger"
)

///////////////////////////////////////////////////////////////////////
// Request/response configuration

// RequestResponseConfig holds the per-protocol settings an
// reqresp.Engine is built from.
type RequestResponseConfig struct {
	Protocol string `json:"protocol"`         // wire protocol name
	Timeout  string `json:"timeout"`          // e.g. "5s"; empty means the engine default
}

// TimeoutOrDefault parses Timeout, falling back to def on empty string
// or parse failure (logged, never fatal - a malformed duration should
// not keep the service from starting).
func (c *RequestResponseConfig) TimeoutOrDefault(def time.Duration) time.Duration {
	if c == nil || c.Timeout == "" {
		return def
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		logger.Printf(logger.WARN, "[config] invalid timeout %q, using default: %s\n", c.Timeout, err)
		return def
	}
	return d
}

///////////////////////////////////////////////////////////////////////
// Notification configuration

// NotificationConfig sizes the async/sync outbound queues a
// notify.Connection reads from.
type NotificationConfig struct {
	AsyncBuf int `json:"asyncBuf"` // buffer size for the async_rx queue
	SyncBuf  int `json:"syncBuf"`  // buffer size for the sync_rx queue
}

///////////////////////////////////////////////////////////////////////
// Admin configuration

// AdminConfig configures the introspection HTTP surface.
type AdminConfig struct {
	Listen string `json:"listen"` // e.g. "${ADMIN_HOST}:8080"
	Redis  string `json:"redis"`  // optional go-redis address for the event cache; empty disables it
}

///////////////////////////////////////////////////////////////////////
// QUIC transport configuration

// QUICConfig configures the transport layer. TLS material is named by
// path only; certificate handling itself is out of scope.
type QUICConfig struct {
	Listen        string `json:"listen"`        // multiaddress, e.g. "/ip4/0.0.0.0/udp/4001/quic-v1"
	CertFile      string `json:"certFile"`
	KeyFile       string `json:"keyFile"`
	KeepAlive     string `json:"keepAlive"`     // e.g. "15s"
	MaxSubstreams int    `json:"maxSubstreams"` // 0 means unlimited
}

// KeepAliveOrDefault parses KeepAlive the same way
// RequestResponseConfig.TimeoutOrDefault parses its Timeout: falling
// back to def on an empty or malformed value, logged but never fatal.
// transport/quic.Manager takes the parsed result directly as
// Options.KeepAlive.
func (c *QUICConfig) KeepAliveOrDefault(def time.Duration) time.Duration {
	if c == nil || c.KeepAlive == "" {
		return def
	}
	d, err := time.ParseDuration(c.KeepAlive)
	if err != nil {
		logger.Printf(logger.WARN, "[config] invalid keepAlive %q, using default: %s\n", c.KeepAlive, err)
		return def
	}
	return d
}

///////////////////////////////////////////////////////////////////////

// Environ holds the string substitution dictionary applied to every
// string-valued config field via a ${VAR} convention used consistently
// across every config section.
type Environ map[string]string

// Config is the aggregated configuration for the module.
type Config struct {
	Env             Environ                `json:"environ"`
	RequestResponse *RequestResponseConfig `json:"requestResponse"`
	Notification    *NotificationConfig    `json:"notification"`
	Admin           *AdminConfig           `json:"admin"`
	QUIC            *QUICConfig            `json:"quic"`
}

// Cfg is the global configuration, populated by Parse.
var Cfg *Config

// Parse reads a JSON-encoded configuration file and maps it onto Cfg.
func Parse(fileName string) (err error) {
	file, err := ioutil.ReadFile(fileName)
	if err != nil {
		return
	}
	Cfg = new(Config)
	if err = json.Unmarshal(file, Cfg); err == nil {
		applySubstitutions(Cfg, Cfg.Env)
	}
	return
}

var rx = regexp.MustCompile(`\$\{([^\}]*)\}`)

// substString substitutes ${NAME} occurrences in s with values from env.
func substString(s string, env map[string]string) string {
	matches := rx.FindAllStringSubmatch(s, -1)
	for _, m := range matches {
		if len(m[1]) != 0 {
			subst, ok := env[m[1]]
			if !ok {
				continue
			}
			s = strings.Replace(s, "${"+m[1]+"}", subst, -1)
		}
	}
	return s
}

// applySubstitutions traverses the configuration data structure and
// applies string substitutions to all string values.
func applySubstitutions(x interface{}, env map[string]string) {
	var process func(v reflect.Value)
	process = func(v reflect.Value) {
		for i := 0; i < v.NumField(); i++ {
			fld := v.Field(i)
			if !fld.CanSet() {
				continue
			}
			switch fld.Kind() {
			case reflect.String:
				s := fld.Interface().(string)
				for {
					s1 := substString(s, env)
					if s1 == s {
						break
					}
					logger.Printf(logger.DBG, "[config] %s --> %s\n", s, s1)
					fld.SetString(s1)
					s = s1
				}

			case reflect.Struct:
				process(fld)

			case reflect.Ptr:
				e := fld.Elem()
				if e.IsValid() {
					process(fld.Elem())
				} else {
					logger.Printf(logger.ERROR, "[config] 'nil' pointer encountered")
				}
			}
		}
	}
	v := reflect.ValueOf(x)
	switch v.Kind() {
	case reflect.Ptr:
		e := v.Elem()
		if e.IsValid() {
			process(e)
		} else {
			logger.Printf(logger.ERROR, "[config] 'nil' pointer encountered")
		}
	case reflect.Struct:
		process(v)
	}
}
