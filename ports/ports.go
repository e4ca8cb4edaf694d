// Package ports is the Port Allocator (spec §4.3): it reserves a block of
// free ports for an engine's shared-port handshake by transiently binding
// them and releasing just before the engine consumes them, a benign race the
// engine tolerates.
package ports

import (
	"fmt"
	"net"
)

// Config describes the ports one match's engines rendezvous on: one shared
// port plus a server/client port pair per participant, mirroring
// wire.PortConfig's shape.
type Config struct {
	SharedPort  int
	ServerPorts [2]int
	ClientPorts [][2]int
}

// Allocator reserves non-overlapping port blocks for concurrent games. It
// holds no long-lived sockets: Reserve binds and immediately releases, so
// its only state is the host it binds against.
type Allocator struct {
	host string
}

// NewAllocator builds an Allocator that binds against host ("" for all
// interfaces, "127.0.0.1" to restrict to loopback).
func NewAllocator(host string) *Allocator {
	return &Allocator{host: host}
}

// Reserve returns a Config with a shared port, a server port pair and
// numClients client port pairs, all distinct and all currently free.
func (a *Allocator) Reserve(numClients int) (Config, error) {
	need := 1 + 2 + numClients*2
	raw, err := a.reserveN(need)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		SharedPort:  raw[0],
		ServerPorts: [2]int{raw[1], raw[2]},
	}
	raw = raw[3:]
	for i := 0; i < numClients; i++ {
		cfg.ClientPorts = append(cfg.ClientPorts, [2]int{raw[i*2], raw[i*2+1]})
	}
	return cfg, nil
}

// ReserveOne returns a single free port, used by the Supervisor to pick the
// control port each spawned engine process listens on (distinct from the
// in-match shared-port handshake Reserve allocates).
func (a *Allocator) ReserveOne() (int, error) {
	raw, err := a.reserveN(1)
	if err != nil {
		return 0, err
	}
	return raw[0], nil
}

// reserveN binds n ports simultaneously (so the kernel cannot hand back the
// same port twice within one call), then releases them all.
func (a *Allocator) reserveN(n int) ([]int, error) {
	listeners := make([]net.Listener, 0, n)
	defer func() {
		for _, ln := range listeners {
			_ = ln.Close()
		}
	}()

	ports := make([]int, 0, n)
	for i := 0; i < n; i++ {
		ln, err := net.Listen("tcp", fmt.Sprintf("%s:0", a.host))
		if err != nil {
			return nil, fmt.Errorf("ports: failed to reserve port %d/%d: %w", i+1, n, err)
		}
		listeners = append(listeners, ln)
		ports = append(ports, ln.Addr().(*net.TCPAddr).Port)
	}
	return ports, nil
}
