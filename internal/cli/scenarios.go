package cli

import (
	"context"
	"crypto/rand"
	"crypto/sha3"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/MasterLogick/MultiChord/internal/chord"
	"github.com/MasterLogick/MultiChord/internal/ring"
)

// runScenarios applies the non-interactive --scenario-* startup flags
// (spec §6), letting scripted tests seed a pool without typing into the
// interactive shell.
func runScenarios(ctx context.Context, cmd *cobra.Command, pool *chord.Pool) error {
	flags := cmd.Flags()

	if hostRandom, _ := flags.GetBool("scenario-host-random"); hostRandom {
		blob := make([]byte, 64)
		if _, err := rand.Read(blob); err != nil {
			return fmt.Errorf("scenario-host-random: %w", err)
		}
		if err := hostBlob(ctx, pool, blob); err != nil {
			return fmt.Errorf("scenario-host-random: %w", err)
		}
	}

	if path, _ := flags.GetString("scenario-local-file"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("scenario-local-file: %w", err)
		}
		if err := hostBlob(ctx, pool, data); err != nil {
			return fmt.Errorf("scenario-local-file: %w", err)
		}
	}

	if joinArgs, _ := flags.GetStringArray("scenario-join-remote"); len(joinArgs) == 2 {
		id, err := parseID(joinArgs[0])
		if err != nil {
			return fmt.Errorf("scenario-join-remote: %w", err)
		}
		file, err := openContentFile(joinArgs[1])
		if err != nil {
			return fmt.Errorf("scenario-join-remote: %w", err)
		}
		if err := pool.HostVirtualNode(ctx, id, file, false); err != nil {
			return fmt.Errorf("scenario-join-remote: %w", err)
		}
	}

	return nil
}

// hostBlob hosts data at its SHA3-512 identifier, backed by an in-memory
// buffer (spec's "file" is an opaque read/write/seek store; for a
// locally-hosted blob there is nothing to read off disk afterward).
func hostBlob(ctx context.Context, pool *chord.Pool, data []byte) error {
	digest := sha3.Sum512(data)
	id := ring.FromBytes(digest[:])

	file := newMemFile(data)
	return pool.HostVirtualNode(ctx, id, file, true)
}
