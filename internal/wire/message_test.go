package wire

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/MasterLogick/MultiChord/internal/peer"
	"github.com/MasterLogick/MultiChord/internal/ring"
)

func randID(t *testing.T) ring.ID {
	t.Helper()
	var b [ring.Size]byte
	if _, err := rand.Read(b[:]); err != nil {
		t.Fatalf("rand.Read: %v", err)
	}
	return ring.FromBytes(b[:])
}

func messagesEqual(a, b Message) bool {
	if a.FromID != b.FromID || a.ToID != b.ToID || a.Command != b.Command {
		return false
	}
	switch a.Command {
	case GetNodeReq:
		return a.QueryID == b.QueryID
	case GetNodeResp:
		return a.Node == b.Node
	case GetSwarmResp:
		if len(a.Swarm) != len(b.Swarm) {
			return false
		}
		for i := range a.Swarm {
			if a.Swarm[i] != b.Swarm[i] {
				return false
			}
		}
		return true
	case GetContentResp:
		return bytes.Equal(a.Data, b.Data)
	default:
		return true
	}
}

func sampleMessages(t *testing.T) []Message {
	t.Helper()
	from, to, q := randID(t), randID(t), randID(t)
	node := peer.RemoteNode{ID: randID(t), Address: "10.0.0.1:9001"}
	return []Message{
		NewPingReq(from, to),
		NewPingResp(from, to),
		NewGetNodeReq(from, to, q),
		NewGetNodeResp(from, to, node),
		NewGetSwarmReq(from, to),
		NewGetSwarmResp(from, to, nil), // empty swarm list
		NewGetSwarmResp(from, to, []peer.RemoteNode{node, {ID: randID(t), Address: "10.0.0.2:9002"}}),
		NewGetContentReq(from, to),
		NewGetContentResp(from, to, nil), // empty content
		NewGetContentResp(from, to, []byte("abc")),
	}
}

func TestRoundTrip(t *testing.T) {
	for _, m := range sampleMessages(t) {
		t.Run(m.Command.String(), func(t *testing.T) {
			encoded := m.Encode()
			got, rest, ok := Parse(encoded, "")
			if !ok {
				t.Fatalf("Parse failed on a freshly encoded message")
			}
			if len(rest) != 0 {
				t.Errorf("expected empty remainder, got %d bytes", len(rest))
			}
			if !messagesEqual(*got, m) {
				t.Errorf("round trip mismatch: got %+v, want %+v", got, m)
			}
		})
	}
}

func TestConcatenatedMessagesParseInOrder(t *testing.T) {
	msgs := sampleMessages(t)
	var buf []byte
	for _, m := range msgs {
		buf = append(buf, m.Encode()...)
	}

	for i, want := range msgs {
		got, rest, ok := Parse(buf, "")
		if !ok {
			t.Fatalf("message %d: parse failed, %d bytes remained", i, len(buf))
		}
		if !messagesEqual(*got, want) {
			t.Errorf("message %d mismatch: got %+v, want %+v", i, got, want)
		}
		buf = rest
	}
	if len(buf) != 0 {
		t.Errorf("expected fully drained buffer, got %d bytes left", len(buf))
	}
}

func TestTruncationByOneByteRetainsBuffer(t *testing.T) {
	for _, m := range sampleMessages(t) {
		encoded := m.Encode()
		if len(encoded) == 0 {
			continue
		}
		truncated := encoded[:len(encoded)-1]
		t.Run(m.Command.String(), func(t *testing.T) {
			got, rest, ok := Parse(truncated, "")
			if ok || got != nil {
				t.Fatalf("expected incomplete parse to fail for %s", m.Command)
			}
			if !bytes.Equal(rest, truncated) {
				t.Errorf("expected full input retained on truncation, got %d bytes vs %d", len(rest), len(truncated))
			}
		})
	}
}

func TestUnknownCommandDropsAndResyncs(t *testing.T) {
	from, to := randID(t), randID(t)
	buf := append(from.Bytes(), to.Bytes()...)
	buf = append(buf, 0xFF) // unknown command
	buf = append(buf, []byte("trailing garbage")...)

	got, rest, ok := Parse(buf, "")
	if ok || got != nil {
		t.Fatal("expected nil message for unknown command")
	}
	if len(rest) != 0 {
		t.Errorf("expected empty remainder on unknown command, got %d bytes", len(rest))
	}
}

func TestEmptyAddressAdoptsSenderAddress(t *testing.T) {
	from, to := randID(t), randID(t)
	node := peer.RemoteNode{ID: randID(t), Address: ""}
	m := NewGetNodeResp(from, to, node)

	got, _, ok := Parse(m.Encode(), "203.0.113.5:9002")
	if !ok {
		t.Fatal("parse failed")
	}
	if got.Node.Address != "203.0.113.5:9002" {
		t.Errorf("expected sender address rewrite, got %q", got.Node.Address)
	}
}

func TestFuzzRoundTrip(t *testing.T) {
	for i := 0; i < 1000; i++ {
		msgs := sampleMessages(t)
		m := msgs[rand.Intn(len(msgs))]

		encoded := m.Encode()
		got, rest, ok := Parse(encoded, "")
		if !ok || len(rest) != 0 || !messagesEqual(*got, m) {
			t.Fatalf("fuzz iteration %d: round trip failed for %+v", i, m)
		}

		if len(encoded) == 0 {
			continue
		}
		truncated := encoded[:len(encoded)-1]
		if _, _, ok := Parse(truncated, ""); ok {
			t.Fatalf("fuzz iteration %d: truncated input should not parse", i)
		}
	}
}
