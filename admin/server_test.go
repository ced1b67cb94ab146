// This file is part of gnunet-go, a GNUnet-implementation in Golang.
// Copyright (C) 2019-2022 Bernd Fix  >Y<
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

package admin

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHealthzReportsEmptyRegistry(t *testing.T) {
	registry := NewRegistry(nil)
	srv, err := NewServer("127.0.0.1:0", registry, nil)
	if err != nil {
		t.Fatal(err)
	}

	ts := httptest.NewServer(srv.Router)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if _, ok := body["engines"]; !ok {
		t.Fatal("expected an 'engines' field in the health payload")
	}
	if _, ok := body["connections"]; !ok {
		t.Fatal("expected a 'connections' field in the health payload")
	}
}

func TestRPCEngineStatsEmptyRegistry(t *testing.T) {
	registry := NewRegistry(nil)
	srv, err := NewServer("127.0.0.1:0", registry, nil)
	if err != nil {
		t.Fatal(err)
	}

	ts := httptest.NewServer(srv.Router)
	defer ts.Close()

	reqBody := `{"method":"StatsService.EngineStats","params":[{}],"id":1}`
	resp, err := http.Post(ts.URL+"/rpc", "application/json", strings.NewReader(reqBody))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var out struct {
		Result struct {
			Engines []interface{} `json:"engines"`
		} `json:"result"`
		Error interface{} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Error != nil {
		t.Fatalf("unexpected RPC error: %v", out.Error)
	}
	if len(out.Result.Engines) != 0 {
		t.Fatalf("expected no engines registered, got %d", len(out.Result.Engines))
	}
}
