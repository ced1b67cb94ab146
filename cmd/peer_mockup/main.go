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

// peer_mockup drives two in-process peers over the loopback QUIC
// fabric: one sends an echo-style request/response exchange, the other
// answers it, and both sides run a notification connection in
// parallel. It exists to exercise the wiring end to end (engine,
// connection driver, admin surface) without a real socket.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bfix/gospel/logger"

	"p2pcore/admin"
	"p2pcore/admin/cache"
	"p2pcore/config"
	"p2pcore/handle"
	"p2pcore/notify"
	"p2pcore/peer"
	"p2pcore/reqresp"
	"p2pcore/transport"
	"p2pcore/transport/quic"
)

const echoProtocol peer.ProtocolName = "/p2pcore/echo/1.0.0"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		asServer      bool
		adminAddr     string
		cacheAddr     string
		configFile    string
		reqTimeout    time.Duration
		keepAlive     time.Duration
		maxSubstreams int
		asyncBuf      int
	)
	flag.BoolVar(&asServer, "s", false, "wait for incoming requests instead of sending one")
	flag.StringVar(&adminAddr, "admin", "", "bind address for the admin introspection server, e.g. 127.0.0.1:8091")
	flag.StringVar(&cacheAddr, "cache", "", "redis address backing the admin RecentEvents cache, e.g. 127.0.0.1:6379")
	flag.StringVar(&configFile, "config", "", "JSON config file (config.Config); overrides the flags above where set")
	flag.DurationVar(&reqTimeout, "timeout", reqresp.DefaultTimeout, "request timeout")
	flag.DurationVar(&keepAlive, "keepalive", 0, "QUIC manager keep-alive interval, e.g. 15s (0 disables it)")
	flag.IntVar(&maxSubstreams, "max-substreams", 0, "cap on substreams open at once per connection (0 means unlimited)")
	flag.IntVar(&asyncBuf, "async-buf", 16, "buffer size for a notification connection's async outbound queue")
	flag.Parse()

	if configFile != "" {
		if err := config.Parse(configFile); err != nil {
			fmt.Println("config load failed: " + err.Error())
			return
		}
		if q := config.Cfg.QUIC; q != nil {
			if q.MaxSubstreams != 0 {
				maxSubstreams = q.MaxSubstreams
			}
			keepAlive = q.KeepAliveOrDefault(keepAlive)
		}
		if a := config.Cfg.Admin; a != nil {
			if a.Listen != "" {
				adminAddr = a.Listen
			}
			if a.Redis != "" {
				cacheAddr = a.Redis
			}
		}
		reqTimeout = config.Cfg.RequestResponse.TimeoutOrDefault(reqTimeout)
		if n := config.Cfg.Notification; n != nil && n.AsyncBuf > 0 {
			asyncBuf = n.AsyncBuf
		}
	}

	quicOpts := quic.Options{MaxSubstreams: maxSubstreams, KeepAlive: keepAlive}

	local, err := peer.NewIdentity()
	if err != nil {
		fmt.Println("identity generation failed: " + err.Error())
		return
	}
	remote, err := peer.NewIdentity()
	if err != nil {
		fmt.Println("identity generation failed: " + err.Error())
		return
	}

	fmt.Println("======================================================================")
	fmt.Println("p2pcore peer mock-up (EXPERIMENTAL)")
	fmt.Printf("    local  identity '%s'\n", local.ID().Short())
	fmt.Printf("    remote identity '%s'\n", remote.ID().Short())
	fmt.Println("======================================================================")

	fabric := quic.NewFabric()
	localMgr := quic.NewManager(fabric, local, "/ip4/127.0.0.1/udp/4001/quic-v1", quicOpts)
	remoteMgr := quic.NewManager(fabric, remote, "/ip4/127.0.0.1/udp/4002/quic-v1", quicOpts)
	defer localMgr.Close()
	defer remoteMgr.Close()

	events := cache.New(cacheAddr, "", 0)
	if events != nil {
		defer events.Close()
	}
	registry := admin.NewRegistry(events)
	if adminAddr != "" {
		srv, err := admin.NewServer(adminAddr, registry, events)
		if err != nil {
			fmt.Println("admin server setup failed: " + err.Error())
			return
		}
		srv.Run(ctx)
		logger.Printf(logger.INFO, "admin introspection listening on %s", adminAddr)
	}

	localEngine := startEchoEngine(ctx, localMgr, local.ID(), reqTimeout, registry)
	remoteEngine := startEchoEngine(ctx, remoteMgr, remote.ID(), reqTimeout, registry)

	go answerEchoRequests(remoteEngine.events, remoteEngine.commands, registry)

	a, b := transport.NewMemSubstreamPair()
	localAsync := make(chan []byte, asyncBuf)
	localNotif := make(chan notify.Notification, 16)
	localShutdown := make(chan struct{})
	remoteAsync := make(chan []byte, asyncBuf)
	remoteNotif := make(chan notify.Notification, 16)
	remoteShutdown := make(chan struct{})

	localChat := notify.New(remote.ID(), a, a, localAsync, nil, localNotif, localShutdown, nil)
	remoteChat := notify.New(local.ID(), b, b, remoteAsync, nil, remoteNotif, remoteShutdown, nil)
	registry.RegisterConnection(remote.ID(), localChat)
	registry.RegisterConnection(local.ID(), remoteChat)
	go localChat.Run(ctx)
	go remoteChat.Run(ctx)
	go logInboundChat(local.ID(), localNotif, registry)
	go logInboundChat(remote.ID(), remoteNotif, registry)

	if !asServer {
		localAsync <- []byte("hello from " + local.ID().Short())
	}

	if !asServer {
		reqID := reqresp.RequestID(1)
		if err := localEngine.commands.Send(reqresp.SendRequest{
			Peer:      remote.ID(),
			RequestID: reqID,
			Payload:   []byte("ping"),
			DialOpt:   reqresp.Dial,
		}); err != nil {
			logger.Printf(logger.ERROR, "send request failed: %s", err)
		}
		go watchEvents(localEngine.events, registry)
	}

	sigCh := make(chan os.Signal, 5)
	signal.Notify(sigCh)
	tick := time.NewTicker(5 * time.Minute)
	defer tick.Stop()

loop:
	for {
		select {
		case sig := <-sigCh:
			switch sig {
			case syscall.SIGINT, syscall.SIGTERM:
				logger.Printf(logger.INFO, "terminating on signal '%s'", sig)
				break loop
			case syscall.SIGHUP:
				logger.Println(logger.INFO, "SIGHUP")
			default:
				logger.Println(logger.INFO, "unhandled signal: "+sig.String())
			}
		case now := <-tick.C:
			logger.Println(logger.INFO, "heart beat at "+now.String())
		}
	}
	cancel()
}

// echoEngine bundles the pieces one local protocol instance needs: the
// engine itself plus the command mailbox callers submit into and the raw
// event channel watchers drain.
type echoEngine struct {
	engine   *reqresp.Engine
	commands *handle.Mailbox[reqresp.Command]
	events   <-chan reqresp.Event
}

func startEchoEngine(ctx context.Context, svc transport.Service, local peer.ID, timeout time.Duration, registry *admin.Registry) *echoEngine {
	dispatcher := transport.NewDispatcher(svc)
	transpEv := dispatcher.Subscribe(echoProtocol, 64)

	cmdBox := handle.New[reqresp.Command](32)
	eventsCh := make(chan reqresp.Event, 64)

	cmdRelay := make(chan reqresp.Command)
	go func() {
		for {
			select {
			case c := <-cmdBox.Recv():
				cmdRelay <- c
				cmdBox.Release()
			case <-ctx.Done():
				close(cmdRelay)
				return
			}
		}
	}()

	e := reqresp.NewEngine(svc, local, echoProtocol, timeout, transpEv, cmdRelay, eventsCh, nil)
	registry.RegisterEngine(echoProtocol, e)
	go e.Run(ctx)

	return &echoEngine{engine: e, commands: cmdBox, events: eventsCh}
}

// answerEchoRequests implements the "server" half of the echo protocol:
// every RequestReceived is answered with its own payload. Every event
// is also mirrored into registry's event cache, so RecentEvents has
// something to report even when no other traffic is being inspected.
func answerEchoRequests(events <-chan reqresp.Event, commands *handle.Mailbox[reqresp.Command], registry *admin.Registry) {
	for ev := range events {
		switch e := ev.(type) {
		case reqresp.RequestReceived:
			logger.Printf(logger.INFO, "<<< request %d from %s: %q", e.RequestID, e.Peer.Short(), e.Request)
			registry.RecordEvent("request_received", e.Peer, fmt.Sprintf("request %d: %q", e.RequestID, e.Request))
			if err := commands.Send(reqresp.SendResponse{RequestID: e.RequestID, Payload: e.Request}); err != nil {
				logger.Printf(logger.WARN, "echo response send failed: %s", err)
			}
		case reqresp.RequestFailed:
			logger.Printf(logger.WARN, "request %d to %s failed: %s", e.RequestID, e.Peer.Short(), e.Err)
			registry.RecordEvent("request_failed", e.Peer, e.Err.Error())
		case reqresp.ResponseReceived:
			logger.Printf(logger.INFO, ">>> response %d from %s: %q", e.RequestID, e.Peer.Short(), e.Response)
			registry.RecordEvent("response_received", e.Peer, fmt.Sprintf("request %d: %q", e.RequestID, e.Response))
		}
	}
}

// watchEvents logs every event the "client" half of the echo protocol
// observes, for the non-server run mode.
func watchEvents(events <-chan reqresp.Event, registry *admin.Registry) {
	for ev := range events {
		switch e := ev.(type) {
		case reqresp.ResponseReceived:
			fmt.Printf("received response for request %d: %q\n", e.RequestID, e.Response)
			registry.RecordEvent("response_received", e.Peer, fmt.Sprintf("request %d: %q", e.RequestID, e.Response))
		case reqresp.RequestFailed:
			fmt.Printf("request %d failed: %s\n", e.RequestID, e.Err)
			registry.RecordEvent("request_failed", e.Peer, e.Err.Error())
		}
	}
}

// logInboundChat prints every notification the peer p's connection
// delivers, until the channel is closed on shutdown.
func logInboundChat(p peer.ID, notifRx <-chan notify.Notification, registry *admin.Registry) {
	for n := range notifRx {
		if n.Closed {
			logger.Printf(logger.INFO, "[%s] notification stream closed (err=%v)", p.Short(), n.Err)
			registry.RecordEvent("notify_closed", p, fmt.Sprintf("%v", n.Err))
			return
		}
		fmt.Printf("[%s] notification from %s: %q\n", p.Short(), n.Peer.Short(), n.Frame)
		registry.RecordEvent("notify_frame", n.Peer, fmt.Sprintf("%q", n.Frame))
	}
}
