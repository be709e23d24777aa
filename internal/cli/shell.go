package cli

import (
	"bufio"
	"context"
	"crypto/sha3"
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"github.com/MasterLogick/MultiChord/internal/chord"
	"github.com/MasterLogick/MultiChord/internal/ring"
)

// shell is the interactive command loop (spec §6 grammar):
// host-local|hl|host PATH, join-remote|jr ID PATH,
// list-virtual-nodes|lvn|ls, help|h, exit|e|q.
type shell struct {
	pool   *chord.Pool
	color  bool
	reader *bufio.Reader
}

func newShell(pool *chord.Pool) *shell {
	return &shell{
		pool:   pool,
		color:  isatty.IsTerminal(os.Stdout.Fd()),
		reader: bufio.NewReader(os.Stdin),
	}
}

func (s *shell) prompt() {
	if s.color {
		fmt.Fprint(os.Stdout, "\033[36mmultichord>\033[0m ")
	} else {
		fmt.Fprint(os.Stdout, "multichord> ")
	}
}

// run reads commands until exit, EOF, or ctx cancellation. Exit code 0
// on clean exit, per spec §6.
func (s *shell) run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		s.prompt()
		line, err := s.reader.ReadString('\n')
		if err != nil {
			return nil // EOF: clean exit
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		cmd, args := fields[0], fields[1:]
		done, err := s.dispatch(ctx, cmd, args)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		if done {
			return nil
		}
	}
}

func (s *shell) dispatch(ctx context.Context, cmd string, args []string) (exit bool, err error) {
	switch cmd {
	case "host-local", "hl", "host":
		return false, s.cmdHostLocal(ctx, args)
	case "join-remote", "jr":
		return false, s.cmdJoinRemote(ctx, args)
	case "list-virtual-nodes", "lvn", "ls":
		return false, s.cmdListVirtualNodes()
	case "help", "h":
		s.cmdHelp()
		return false, nil
	case "exit", "e", "q":
		return true, nil
	default:
		return false, fmt.Errorf("unknown command %q (try 'help')", cmd)
	}
}

func (s *shell) cmdHostLocal(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: host-local PATH")
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}
	digest := sha3.Sum512(data)
	id := ring.FromBytes(digest[:])
	if err := s.pool.HostVirtualNode(ctx, id, newMemFile(data), true); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "hosted %s (%s)\n", id.Hex(), humanize.Bytes(uint64(len(data))))
	return nil
}

func (s *shell) cmdJoinRemote(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: join-remote ID_HEX PATH")
	}
	id, err := parseID(args[0])
	if err != nil {
		return fmt.Errorf("invalid id: %w", err)
	}
	file, err := openContentFile(args[1])
	if err != nil {
		return fmt.Errorf("open %s: %w", args[1], err)
	}
	if err := s.pool.HostVirtualNode(ctx, id, file, false); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "joined %s, fetching content into %s\n", id.Hex(), args[1])
	return nil
}

func (s *shell) cmdListVirtualNodes() error {
	nodes := s.pool.Snapshot()
	if len(nodes) == 0 {
		fmt.Fprintln(os.Stdout, "no hosted virtual nodes")
		return nil
	}
	for _, n := range nodes {
		fmt.Fprintf(os.Stdout, "id: %s\n", n.ID)
		fmt.Fprintf(os.Stdout, "  has content: %v\n", n.HasContent)
		fmt.Fprintf(os.Stdout, "  predecessor: %s\n", orNone(n.Predecessor))
		fmt.Fprintf(os.Stdout, "  successor:   %s\n", orNone(n.Successor))
		fmt.Fprintf(os.Stdout, "  fingers:     %s\n", joinOrNone(n.Fingers))
		fmt.Fprintf(os.Stdout, "  swarm:       %s\n", joinOrNone(n.Swarm))
	}
	return nil
}

func (s *shell) cmdHelp() {
	fmt.Fprintln(os.Stdout, `commands:
  host-local|hl|host PATH       host the content of PATH at its SHA3-512 identifier
  join-remote|jr ID PATH        join an existing identifier, writing fetched content to PATH
  list-virtual-nodes|lvn|ls     list hosted virtual nodes and their routing state
  help|h                        show this message
  exit|e|q                      exit cleanly`)
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "(none)"
	}
	return strings.Join(items, ", ")
}
