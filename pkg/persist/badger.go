// Package persist moves exported graph snapshots in and out of durable
// storage: a local badger store for restart recovery, and an optional Neo4j
// mirror for external exploration. Both consume only the export schema, so
// the core never learns about storage backends.
package persist

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log/slog"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/graphweave/graphweave/pkg/types"
)

var (
	keyLatestSeq   = []byte("graphweave/latest_seq")
	snapshotPrefix = []byte("graphweave/snapshot/")
)

// SnapshotStore keeps exported graphs in a local badger database keyed by
// sequence number, with a pointer to the latest.
type SnapshotStore struct {
	db     *badger.DB
	logger *slog.Logger
}

// OpenSnapshotStore opens (or creates) the badger database at path.
func OpenSnapshotStore(path string, logger *slog.Logger) (*SnapshotStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open snapshot store %s: %w", path, err)
	}
	return &SnapshotStore{db: db, logger: logger}, nil
}

// Save persists one exported graph under its sequence number and advances
// the latest pointer.
func (s *SnapshotStore) Save(g *types.ExportedGraph) error {
	raw, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("encode snapshot seq %d: %w", g.Seq, err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(seqKey(g.Seq), raw); err != nil {
			return err
		}
		var seqBuf [8]byte
		binary.BigEndian.PutUint64(seqBuf[:], g.Seq)
		return txn.Set(keyLatestSeq, seqBuf[:])
	})
	if err != nil {
		return fmt.Errorf("save snapshot seq %d: %w", g.Seq, err)
	}
	s.logger.Info("snapshot saved", "seq", g.Seq, "nodes", len(g.Nodes), "edges", len(g.Edges))
	return nil
}

// LoadLatest returns the most recently saved snapshot, or (nil, nil) when
// the store is empty.
func (s *SnapshotStore) LoadLatest() (*types.ExportedGraph, error) {
	var g *types.ExportedGraph
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(keyLatestSeq)
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		var seq uint64
		if err := item.Value(func(val []byte) error {
			if len(val) != 8 {
				return fmt.Errorf("corrupt latest pointer")
			}
			seq = binary.BigEndian.Uint64(val)
			return nil
		}); err != nil {
			return err
		}

		item, err = txn.Get(seqKey(seq))
		if err != nil {
			return fmt.Errorf("latest pointer references missing seq %d: %w", seq, err)
		}
		return item.Value(func(val []byte) error {
			g = &types.ExportedGraph{}
			return json.Unmarshal(val, g)
		})
	})
	if err != nil {
		return nil, fmt.Errorf("load latest snapshot: %w", err)
	}
	return g, nil
}

// Load returns the snapshot saved under the given sequence number.
func (s *SnapshotStore) Load(seq uint64) (*types.ExportedGraph, error) {
	var g *types.ExportedGraph
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(seqKey(seq))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			g = &types.ExportedGraph{}
			return json.Unmarshal(val, g)
		})
	})
	if err == badger.ErrKeyNotFound {
		return nil, fmt.Errorf("snapshot seq %d: %w", seq, types.ErrEntityNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot seq %d: %w", seq, err)
	}
	return g, nil
}

// Close closes the underlying database.
func (s *SnapshotStore) Close() error {
	return s.db.Close()
}

func seqKey(seq uint64) []byte {
	key := make([]byte, len(snapshotPrefix)+8)
	copy(key, snapshotPrefix)
	binary.BigEndian.PutUint64(key[len(snapshotPrefix):], seq)
	return key
}
