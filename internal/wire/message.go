// Package wire implements the bit-exact (de)serialization of the eight
// overlay message kinds described in spec §4.2. Parsing is tolerant of
// re-fragmentation: an incomplete buffer yields (nil, original-bytes) so a
// caller can append more data and retry, which is what lets a UDP backend
// (internal/udp) and a hypothetical stream backend share one codec.
package wire

import (
	"encoding/binary"
	"fmt"

	"github.com/MasterLogick/MultiChord/internal/peer"
	"github.com/MasterLogick/MultiChord/internal/ring"
)

// Command identifies a message kind. Requests are even, responses are odd;
// a response always satisfies response.Command == request.Command+1.
type Command byte

const (
	PingReq        Command = 0
	PingResp       Command = 1
	GetNodeReq     Command = 2
	GetNodeResp    Command = 3
	GetSwarmReq    Command = 4
	GetSwarmResp   Command = 5
	GetContentReq  Command = 6
	GetContentResp Command = 7
)

// IsResponse reports whether c is a response command (odd).
func (c Command) IsResponse() bool { return c%2 == 1 }

// String renders a command name for logs.
func (c Command) String() string {
	switch c {
	case PingReq:
		return "PingReq"
	case PingResp:
		return "PingResp"
	case GetNodeReq:
		return "GetNodeReq"
	case GetNodeResp:
		return "GetNodeResp"
	case GetSwarmReq:
		return "GetSwarmReq"
	case GetSwarmResp:
		return "GetSwarmResp"
	case GetContentReq:
		return "GetContentReq"
	case GetContentResp:
		return "GetContentResp"
	default:
		return fmt.Sprintf("Command(%d)", byte(c))
	}
}

// headerLen is from_id(64) + to_id(64) + command(1).
const headerLen = ring.Size*2 + 1

// Message is any of the eight overlay messages. Every message carries a
// from/to identifier pair; the payload is kind-specific.
type Message struct {
	FromID  ring.ID
	ToID    ring.ID
	Command Command

	// Payload fields — only the ones relevant to Command are meaningful.
	QueryID ring.ID          // GetNodeReq
	Node    peer.RemoteNode  // GetNodeResp
	Swarm   []peer.RemoteNode // GetSwarmResp
	Data    []byte           // GetContentResp
}

// NewPingReq builds a PingReq.
func NewPingReq(from, to ring.ID) Message {
	return Message{FromID: from, ToID: to, Command: PingReq}
}

// NewPingResp builds a PingResp.
func NewPingResp(from, to ring.ID) Message {
	return Message{FromID: from, ToID: to, Command: PingResp}
}

// NewGetNodeReq builds a GetNodeReq carrying queryID.
func NewGetNodeReq(from, to, queryID ring.ID) Message {
	return Message{FromID: from, ToID: to, Command: GetNodeReq, QueryID: queryID}
}

// NewGetNodeResp builds a GetNodeResp carrying the resolved node.
func NewGetNodeResp(from, to ring.ID, node peer.RemoteNode) Message {
	return Message{FromID: from, ToID: to, Command: GetNodeResp, Node: node}
}

// NewGetSwarmReq builds a GetSwarmReq.
func NewGetSwarmReq(from, to ring.ID) Message {
	return Message{FromID: from, ToID: to, Command: GetSwarmReq}
}

// NewGetSwarmResp builds a GetSwarmResp carrying the swarm member list.
func NewGetSwarmResp(from, to ring.ID, swarm []peer.RemoteNode) Message {
	return Message{FromID: from, ToID: to, Command: GetSwarmResp, Swarm: swarm}
}

// NewGetContentReq builds a GetContentReq.
func NewGetContentReq(from, to ring.ID) Message {
	return Message{FromID: from, ToID: to, Command: GetContentReq}
}

// NewGetContentResp builds a GetContentResp carrying data (possibly empty,
// meaning "I have no content").
func NewGetContentResp(from, to ring.ID, data []byte) Message {
	return Message{FromID: from, ToID: to, Command: GetContentResp, Data: data}
}

// Encode serializes m to its wire form. Serialization is total: every
// validly constructed Message encodes without error.
func (m Message) Encode() []byte {
	buf := make([]byte, 0, headerLen+64)
	buf = append(buf, m.FromID.Bytes()...)
	buf = append(buf, m.ToID.Bytes()...)
	buf = append(buf, byte(m.Command))

	switch m.Command {
	case PingReq, PingResp, GetSwarmReq, GetContentReq:
		// no payload
	case GetNodeReq:
		buf = append(buf, m.QueryID.Bytes()...)
	case GetNodeResp:
		buf = append(buf, encodeRemoteNode(m.Node)...)
	case GetSwarmResp:
		var countBuf [4]byte
		binary.LittleEndian.PutUint32(countBuf[:], uint32(len(m.Swarm)))
		buf = append(buf, countBuf[:]...)
		for _, n := range m.Swarm {
			buf = append(buf, encodeRemoteNode(n)...)
		}
	case GetContentResp:
		var lenBuf [4]byte
		binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(m.Data)))
		buf = append(buf, lenBuf[:]...)
		buf = append(buf, m.Data...)
	}
	return buf
}

// encodeRemoteNode serializes a RemoteNode as id(64) ∥ addr_len(u32 LE) ∥
// utf8(address).
func encodeRemoteNode(n peer.RemoteNode) []byte {
	addr := []byte(n.Address)
	out := make([]byte, 0, ring.Size+4+len(addr))
	out = append(out, n.ID.Bytes()...)
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(addr)))
	out = append(out, lenBuf[:]...)
	out = append(out, addr...)
	return out
}

// decodeRemoteNode parses a RemoteNode from the front of buf, returning
// the parsed node and the remaining bytes. ok is false when buf does not
// yet hold a complete RemoteNode (caller should retain buf and wait for
// more data).
func decodeRemoteNode(buf []byte) (node peer.RemoteNode, rest []byte, ok bool) {
	if len(buf) < ring.Size+4 {
		return peer.RemoteNode{}, buf, false
	}
	id := ring.FromBytes(buf[:ring.Size])
	addrLen := binary.LittleEndian.Uint32(buf[ring.Size : ring.Size+4])
	total := ring.Size + 4 + int(addrLen)
	if len(buf) < total {
		return peer.RemoteNode{}, buf, false
	}
	addr := string(buf[ring.Size+4 : total])
	return peer.RemoteNode{ID: id, Address: addr}, buf[total:], true
}

// Parse reads one message from the front of buf. address is the sender's
// "host:port", used to rewrite an empty address in a parsed RemoteNode —
// peers discover their own public endpoint this way.
//
// Three outcomes:
//   - a complete message: (msg, remainder, true)
//   - an incomplete buffer: (nil, buf, false) with buf untouched, so the
//     caller retries once more bytes arrive
//   - an unknown command byte: (nil, nil, false) — "drop and resync": the
//     buffer is not trustworthy past this point, so the remainder is
//     discarded rather than retained
func Parse(buf []byte, address string) (msg *Message, remainder []byte, ok bool) {
	if len(buf) < headerLen {
		return nil, buf, false
	}
	fromID := ring.FromBytes(buf[:ring.Size])
	toID := ring.FromBytes(buf[ring.Size : ring.Size*2])
	cmd := Command(buf[ring.Size*2])
	rest := buf[headerLen:]

	switch cmd {
	case PingReq, PingResp, GetSwarmReq, GetContentReq:
		return &Message{FromID: fromID, ToID: toID, Command: cmd}, rest, true

	case GetNodeReq:
		if len(rest) < ring.Size {
			return nil, buf, false
		}
		queryID := ring.FromBytes(rest[:ring.Size])
		return &Message{FromID: fromID, ToID: toID, Command: cmd, QueryID: queryID}, rest[ring.Size:], true

	case GetNodeResp:
		node, rest2, ok := decodeRemoteNode(rest)
		if !ok {
			return nil, buf, false
		}
		if node.Address == "" {
			node.Address = address
		}
		return &Message{FromID: fromID, ToID: toID, Command: cmd, Node: node}, rest2, true

	case GetSwarmResp:
		if len(rest) < 4 {
			return nil, buf, false
		}
		count := binary.LittleEndian.Uint32(rest[:4])
		rest = rest[4:]
		swarm := make([]peer.RemoteNode, 0, count)
		for i := uint32(0); i < count; i++ {
			node, next, ok := decodeRemoteNode(rest)
			if !ok {
				return nil, buf, false
			}
			if node.Address == "" {
				node.Address = address
			}
			swarm = append(swarm, node)
			rest = next
		}
		return &Message{FromID: fromID, ToID: toID, Command: cmd, Swarm: swarm}, rest, true

	case GetContentResp:
		if len(rest) < 4 {
			return nil, buf, false
		}
		length := binary.LittleEndian.Uint32(rest[:4])
		total := 4 + int(length)
		if len(rest) < total {
			return nil, buf, false
		}
		data := make([]byte, length)
		copy(data, rest[4:total])
		return &Message{FromID: fromID, ToID: toID, Command: cmd, Data: data}, rest[total:], true

	default:
		// Unknown command: the length and framing of the payload is
		// unknowable, so there is no safe resync point within this
		// buffer. Drop everything.
		return nil, nil, false
	}
}
