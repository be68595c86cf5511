package dump

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/nspcc-dev/neo-go/pkg/core/storage"
	"github.com/nspcc-dev/passkey-registry/ledger"
)

// Snapshot is the snapshot read from the file system.
type Snapshot struct {
	Source Source
	Leases ledger.Leases
	// In the order they were written, suitable for ledger.Ledger.Import.
	Items []storage.KeyValue
}

// Open reads the snapshot with the given ID from the directory.
func Open(dir string, id ID) (*Snapshot, error) {
	pHeader, pItems := snapshotPaths(dir, id)

	bHeader, err := os.ReadFile(pHeader)
	if err != nil {
		return nil, fmt.Errorf("read header of '%s': %w", id, err)
	}

	var hdr header

	if err = json.Unmarshal(bHeader, &hdr); err != nil {
		return nil, fmt.Errorf("%w: decode header of '%s': %w", errCorrupted, id, err)
	}

	f, err := os.Open(pItems)
	if err != nil {
		return nil, fmt.Errorf("open items of '%s': %w", id, err)
	}
	defer f.Close()

	items, err := readItems(f)
	if err != nil {
		return nil, fmt.Errorf("%w: items of '%s': %w", errCorrupted, id, err)
	}

	if len(items) != hdr.Items {
		return nil, fmt.Errorf("%w: '%s' has %d items instead of %d", errCorrupted, id, len(items), hdr.Items)
	}

	return &Snapshot{Source: hdr.Source, Leases: hdr.Leases, Items: items}, nil
}

func readItems(r io.Reader) ([]storage.KeyValue, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 2

	var res []storage.KeyValue

	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return res, nil
		}
		if err != nil {
			return nil, err
		}

		var kv storage.KeyValue

		if kv.Key, err = itemEncoding.DecodeString(rec[0]); err != nil {
			return nil, fmt.Errorf("decode key #%d: %w", len(res), err)
		}

		if kv.Value, err = itemEncoding.DecodeString(rec[1]); err != nil {
			return nil, fmt.Errorf("decode value #%d: %w", len(res), err)
		}

		res = append(res, kv)
	}
}

// IterateDumps opens every committed snapshot in the directory and passes it
// into f. Unrelated files are skipped, missing directory is treated as empty.
func IterateDumps(dir string, f func(ID, *Snapshot)) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read dump directory: %w", err)
	}

	for _, e := range entries {
		name, ok := strings.CutSuffix(e.Name(), headerSuffix)
		if e.IsDir() || !ok {
			continue
		}

		id, ok := parseID(name)
		if !ok {
			continue
		}

		s, err := Open(dir, id)
		if err != nil {
			return err
		}

		f(id, s)
	}

	return nil
}
