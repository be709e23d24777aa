package udp

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/MasterLogick/MultiChord/internal/peer"
	"github.com/MasterLogick/MultiChord/internal/ring"
	"github.com/MasterLogick/MultiChord/internal/wire"
)

type recordingDispatcher struct {
	mu  sync.Mutex
	got []wire.Message
}

func (d *recordingDispatcher) Dispatch(remote peer.RemoteNode, msg wire.Message) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.got = append(d.got, msg)
}

func (d *recordingDispatcher) messages() []wire.Message {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]wire.Message(nil), d.got...)
}

func testID(seed byte) ring.ID {
	var b [ring.Size]byte
	for i := range b {
		b[i] = byte(i) + seed
	}
	return ring.FromBytes(b[:])
}

func TestTransportSendAndServeRoundTrip(t *testing.T) {
	server, err := Listen("127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer server.Close()

	client, err := Listen("127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen client: %v", err)
	}
	defer client.Close()

	disp := &recordingDispatcher{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go server.Serve(ctx, disp)

	from, to := testID(1), testID(2)
	client.Send(context.Background(), peer.RemoteNode{Address: server.LocalAddr()}, wire.NewPingReq(from, to))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(disp.messages()) > 0 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	got := disp.messages()
	if len(got) != 1 {
		t.Fatalf("expected 1 dispatched message, got %d", len(got))
	}
	if got[0].Command != wire.PingReq || got[0].FromID != from || got[0].ToID != to {
		t.Fatalf("unexpected message: %+v", got[0])
	}
}

// TestTransportReassemblesSplitDatagrams exercises the per-source partial
// buffer directly: two raw writes from the same source, split in the
// middle of a message, must still yield one complete dispatched message.
func TestTransportReassemblesSplitDatagrams(t *testing.T) {
	server, err := Listen("127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer server.Close()

	disp := &recordingDispatcher{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go server.Serve(ctx, disp)

	serverAddr, err := net.ResolveUDPAddr("udp", server.LocalAddr())
	if err != nil {
		t.Fatalf("resolve server addr: %v", err)
	}
	raw, err := net.DialUDP("udp", nil, serverAddr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer raw.Close()

	msg := wire.NewGetNodeReq(testID(3), testID(4), testID(5))
	encoded := msg.Encode()
	split := len(encoded) / 2

	if _, err := raw.Write(encoded[:split]); err != nil {
		t.Fatalf("write first half: %v", err)
	}
	time.Sleep(20 * time.Millisecond) // ensure the two datagrams are read in order
	if _, err := raw.Write(encoded[split:]); err != nil {
		t.Fatalf("write second half: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(disp.messages()) > 0 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	got := disp.messages()
	if len(got) != 1 {
		t.Fatalf("expected 1 reassembled message, got %d", len(got))
	}
	if got[0].Command != wire.GetNodeReq || got[0].QueryID != testID(5) {
		t.Fatalf("unexpected reassembled message: %+v", got[0])
	}
}

func TestTransportSendDropsOnUnresolvableAddress(t *testing.T) {
	client, err := Listen("127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer client.Close()

	// Send must not panic or block when the destination address cannot
	// be resolved — it logs and drops, per the fire-and-forget contract.
	client.Send(context.Background(), peer.RemoteNode{Address: "not-an-address"}, wire.NewPingReq(testID(1), testID(2)))
}
