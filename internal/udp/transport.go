// Package udp is the concrete datagram transport backing chordnet.Network
// (spec §4.4). It owns the UDP socket, reassembles per-source partial
// buffers across reads, and feeds every fully parsed message to a
// chordnet.Dispatcher.
package udp

import (
	"context"
	"log"
	"net"
	"sync"

	"github.com/MasterLogick/MultiChord/internal/chordnet"
	"github.com/MasterLogick/MultiChord/internal/peer"
	"github.com/MasterLogick/MultiChord/internal/wire"
)

const maxDatagramSize = 65507

// Transport implements chordnet.Network over a UDP socket.
type Transport struct {
	conn *net.UDPConn

	mu      sync.Mutex
	partial map[string][]byte // per-source-address reassembly buffer
}

// Listen opens a UDP socket at addr ("host:port") and returns a
// Transport ready to Serve.
func Listen(addr string) (*Transport, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, err
	}
	return &Transport{conn: conn, partial: make(map[string][]byte)}, nil
}

// LocalAddr reports the bound socket address.
func (t *Transport) LocalAddr() string {
	return t.conn.LocalAddr().String()
}

// Close releases the socket.
func (t *Transport) Close() error {
	return t.conn.Close()
}

// Send implements chordnet.Network: best-effort, fire-and-forget.
// Resolution failures and write errors are logged and dropped — the
// overlay treats every send as unreliable by design (spec §4.4).
func (t *Transport) Send(ctx context.Context, remote peer.RemoteNode, msg wire.Message) {
	addr, err := net.ResolveUDPAddr("udp", remote.Address)
	if err != nil {
		log.Printf("[udp] resolve %s: %v", remote.Address, err)
		return
	}
	if _, err := t.conn.WriteToUDP(msg.Encode(), addr); err != nil {
		log.Printf("[udp] write to %s: %v", remote.Address, err)
	}
}

// Serve reads datagrams until ctx is cancelled or the socket closes,
// feeding every fully parsed message to dispatcher. Each source address
// keeps its own reassembly buffer, mirroring the source's
// defaultdict(bytes)-keyed-by-sender pending buffer (spec §4.4).
func (t *Transport) Serve(ctx context.Context, dispatcher chordnet.Dispatcher) error {
	go func() {
		<-ctx.Done()
		t.conn.Close()
	}()

	buf := make([]byte, maxDatagramSize)
	for {
		n, srcAddr, err := t.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			return err
		}

		src := srcAddr.String()
		t.mu.Lock()
		data := append(t.partial[src], buf[:n]...)
		t.mu.Unlock()

		for {
			msg, rest, ok := wire.Parse(data, src)
			if !ok {
				data = rest
				break
			}
			dispatcher.Dispatch(peer.RemoteNode{ID: msg.FromID, Address: src}, *msg)
			data = rest
		}

		t.mu.Lock()
		t.partial[src] = data
		t.mu.Unlock()
	}
}
