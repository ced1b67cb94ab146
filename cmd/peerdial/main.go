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

// peerdial resolves a domain's bootstrap-peer TXT records into QUIC
// multiaddresses, so a node can join a network knowing nothing but a
// DNS name. Each TXT value is expected to hold one
// /ip4|ip6/.../udp/<port>/quic-v1/p2p/<id> multiaddress.
package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/bfix/gospel/logger"
	"github.com/miekg/dns"

	"p2pcore/transport"
)

func main() {
	var (
		server  string
		retries int
		timeout time.Duration
	)
	flag.StringVar(&server, "server", "8.8.8.8", "DNS server to query")
	flag.IntVar(&retries, "retries", 5, "query retries before giving up")
	flag.DurationVar(&timeout, "timeout", 3*time.Second, "per-query timeout")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: peerdial [-server addr] [-retries n] <domain>")
		os.Exit(2)
	}
	domain := flag.Arg(0)

	addrs, err := resolveBootstrapPeers(domain, server, retries, timeout)
	if err != nil {
		logger.Printf(logger.ERROR, "[peerdial] resolution of '%s' failed: %s", domain, err)
		os.Exit(1)
	}
	if len(addrs) == 0 {
		logger.Printf(logger.WARN, "[peerdial] no usable bootstrap addresses found for '%s'", domain)
		return
	}
	for _, a := range addrs {
		fmt.Println(a.String())
	}
}

// resolveBootstrapPeers queries domain's TXT records over server and
// parses every value that looks like a QUIC multiaddress. Records that
// fail to parse (comments, unrelated TXT entries sharing the name) are
// skipped rather than treated as a hard failure, the way a bootstrap
// list curated by a third party should be read defensively.
func resolveBootstrapPeers(domain, server string, retries int, timeout time.Duration) ([]*transport.QuicAddr, error) {
	name := dns.Fqdn(domain)
	m := &dns.Msg{
		MsgHdr: dns.MsgHdr{
			RecursionDesired: true,
			Opcode:           dns.OpcodeQuery,
		},
		Question: make([]dns.Question, 1),
	}
	m.Question[0] = dns.Question{
		Name:   name,
		Qtype:  dns.TypeTXT,
		Qclass: dns.ClassINET,
	}

	var lastErr error
	for attempt := 0; attempt < retries; attempt++ {
		m.Id = dns.Id()
		client := &dns.Client{Timeout: timeout}
		in, _, err := client.Exchange(m, net.JoinHostPort(server, "53"))
		if err != nil {
			if strings.HasSuffix(err.Error(), "i/o timeout") {
				logger.Printf(logger.WARN, "[peerdial] query timed out, retrying (%d/%d)", attempt+1, retries)
				lastErr = err
				continue
			}
			return nil, fmt.Errorf("peerdial: dns query: %w", err)
		}

		var out []*transport.QuicAddr
		for _, rr := range in.Answer {
			txt, ok := rr.(*dns.TXT)
			if !ok {
				continue
			}
			for _, chunk := range txt.Txt {
				addr, err := transport.RequirePeerID(chunk)
				if err != nil {
					logger.Printf(logger.DBG, "[peerdial] skipping TXT value %q: %s", chunk, err)
					continue
				}
				out = append(out, addr)
			}
		}
		return out, nil
	}
	return nil, fmt.Errorf("peerdial: resolution of '%s' timed out: %w", domain, lastErr)
}
