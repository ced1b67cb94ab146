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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bfix/gospel/logger"
)

const testConfigJSON = `{
	"environ": {"ADMIN_HOST": "127.0.0.1"},
	"requestResponse": {"protocol": "/test/reqresp/1", "timeout": "7s"},
	"notification": {"asyncBuf": 16, "syncBuf": 4},
	"admin": {"listen": "${ADMIN_HOST}:8080", "redis": ""},
	"quic": {"listen": "/ip4/0.0.0.0/udp/4001/quic-v1", "certFile": "cert.pem", "keyFile": "key.pem"}
}`

func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := ioutil.WriteFile(path, []byte(testConfigJSON), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestConfigParse(t *testing.T) {
	logger.SetLogLevel(logger.WARN)

	path := writeTestConfig(t)
	if err := Parse(path); err != nil {
		t.Fatal(err)
	}
	if Cfg.RequestResponse.Protocol != "/test/reqresp/1" {
		t.Fatalf("unexpected protocol: %s", Cfg.RequestResponse.Protocol)
	}
	if Cfg.Admin.Listen != "127.0.0.1:8080" {
		t.Fatalf("expected substitution to apply, got %q", Cfg.Admin.Listen)
	}
	if _, err := json.Marshal(Cfg); err != nil {
		t.Fatal(err)
	}
}

func TestConfigParseMissingFile(t *testing.T) {
	if err := Parse(filepath.Join(os.TempDir(), "does-not-exist.json")); err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}

func TestRequestResponseConfigTimeoutDefault(t *testing.T) {
	var c *RequestResponseConfig
	if d := c.TimeoutOrDefault(5 * time.Second); d != 5*time.Second {
		t.Fatalf("expected default for nil config, got %s", d)
	}
	c = &RequestResponseConfig{Timeout: "not-a-duration"}
	if d := c.TimeoutOrDefault(5 * time.Second); d != 5*time.Second {
		t.Fatalf("expected default for invalid duration, got %s", d)
	}
	c = &RequestResponseConfig{Timeout: "250ms"}
	if d := c.TimeoutOrDefault(5 * time.Second); d != 250*time.Millisecond {
		t.Fatalf("expected 250ms, got %s", d)
	}
}
