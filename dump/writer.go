package dump

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"

	"github.com/nspcc-dev/passkey-registry/ledger"
)

// Writer writes the snapshot. Files are:
//
//	'<label>-<sequence>.json': source, leases and number of items
//	'<label>-<sequence>.csv': 'key,value' records, base64-encoded
//
// Header is written by Commit only, so snapshots without it are ignored by
// readers.
type Writer struct {
	hdr   header
	fHdr  *os.File
	fItem *os.File
	items *csv.Writer
}

// Create starts the snapshot with the given ID in the directory. Fails with
// os.ErrExist if the snapshot already exists. Writer must be closed after
// use.
func Create(dir string, id ID, src Source, leases ledger.Leases) (*Writer, error) {
	if err := id.validate(); err != nil {
		return nil, err
	}

	fHdr, fItem, err := createFiles(dir, id)
	if err != nil {
		return nil, err
	}

	return &Writer{
		hdr:   header{Source: src, Leases: leases},
		fHdr:  fHdr,
		fItem: fItem,
		items: csv.NewWriter(fItem),
	}, nil
}

// Put writes the storage item. Put matches ledger.Ledger.Export callback.
func (x *Writer) Put(key, value []byte) error {
	err := x.items.Write([]string{itemEncoding.EncodeToString(key), itemEncoding.EncodeToString(value)})
	if err != nil {
		return fmt.Errorf("write item #%d: %w", x.hdr.Items, err)
	}

	x.hdr.Items++

	return nil
}

// Commit flushes items and writes the header.
func (x *Writer) Commit() error {
	x.items.Flush()
	if err := x.items.Error(); err != nil {
		return fmt.Errorf("flush items: %w", err)
	}

	enc := json.NewEncoder(x.fHdr)
	enc.SetIndent("", " ")

	if err := enc.Encode(x.hdr); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	return nil
}

// Close releases snapshot files.
func (x *Writer) Close() {
	_ = x.fItem.Close()
	_ = x.fHdr.Close()
}
