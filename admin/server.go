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
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/bfix/gospel/logger"
	"github.com/gorilla/mux"
	"github.com/gorilla/rpc"
	rpcjson "github.com/gorilla/rpc/json"

	"p2pcore/admin/cache"
)

// Server is the admin introspection HTTP surface: one mux.Router
// carrying a JSON-RPC endpoint (gorilla/rpc) at /rpc and a plain
// JSON snapshot endpoint at /healthz for simple liveness probes.
type Server struct {
	Router   *mux.Router
	Registry *Registry

	httpSrv *http.Server
}

// NewServer builds a Server bound to addr, backed by registry for stats
// and (optionally) events for the recent-event cache; events may be nil.
func NewServer(addr string, registry *Registry, events *cache.Cache) (*Server, error) {
	router := mux.NewRouter()

	rpcSrv := rpc.NewServer()
	rpcSrv.RegisterCodec(rpcjson.NewCodec(), "application/json")
	if err := rpcSrv.RegisterService(&StatsService{registry: registry, events: events}, ""); err != nil {
		return nil, err
	}
	router.Handle("/rpc", rpcSrv)
	router.HandleFunc("/healthz", healthHandler(registry)).Methods(http.MethodGet)

	return &Server{
		Router:   router,
		Registry: registry,
		httpSrv: &http.Server{
			Addr:         addr,
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
		},
	}, nil
}

// Run starts listening and blocks internally on a goroutine; it shuts
// down cleanly when ctx is canceled.
func (s *Server) Run(ctx context.Context) {
	go func() {
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Printf(logger.WARN, "[admin] server listen failed: %s", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
			logger.Printf(logger.WARN, "[admin] server shutdown failed: %s", err)
		}
	}()
}

func healthHandler(registry *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"engines":     registry.EngineSnapshots(),
			"connections": registry.ConnectionSnapshots(),
		})
	}
}
