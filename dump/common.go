package dump

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nspcc-dev/passkey-registry/ledger"
)

// ID identifies the snapshot in the directory.
type ID struct {
	// Label of the snapshot source (e.g. node name, environment). Must not
	// contain hyphens.
	Label string
	// Sequence number at which the state was pulled.
	Sequence uint32
}

// String returns hyphen-separated ID fields.
func (x ID) String() string {
	return x.Label + sep + strconv.FormatUint(uint64(x.Sequence), 10)
}

func parseID(s string) (ID, bool) {
	label, seq, ok := strings.Cut(s, sep)
	if !ok || label == "" {
		return ID{}, false
	}

	n, err := strconv.ParseUint(seq, 10, 32)
	if err != nil {
		return ID{}, false
	}

	return ID{Label: label, Sequence: uint32(n)}, true
}

func (x ID) validate() error {
	if x.Label == "" || strings.Contains(x.Label, sep) {
		return fmt.Errorf("invalid snapshot label '%s'", x.Label)
	}
	return nil
}

// Source is the kind of the storage the snapshot was taken from.
type Source string

const (
	// SourceLedger is the local ledger storage, snapshot items are ledger
	// keys and can be imported into another ledger.
	SourceLedger Source = "ledger"
	// SourceContract is the storage of the deployed contract.
	SourceContract Source = "contract"
)

// header is the JSON-encoded snapshot metadata.
type header struct {
	Source Source        `json:"source"`
	Leases ledger.Leases `json:"leases"`
	Items  int           `json:"items"`
}

var errCorrupted = errors.New("corrupted snapshot")

const (
	sep          = "-"
	headerSuffix = ".json"
	itemsSuffix  = ".csv"
)

// binary keys and values are base64-encoded in CSV.
var itemEncoding = base64.StdEncoding

func snapshotPaths(dir string, id ID) (hdr, items string) {
	base := filepath.Join(dir, id.String())
	return base + headerSuffix, base + itemsSuffix
}

// createFiles creates snapshot files which must not exist yet.
func createFiles(dir string, id ID) (hdr, items *os.File, err error) {
	pHeader, pItems := snapshotPaths(dir, id)

	items, err = os.OpenFile(pItems, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		return nil, nil, fmt.Errorf("create items file: %w", err)
	}

	hdr, err = os.OpenFile(pHeader, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		_ = items.Close()
		_ = os.Remove(pItems)
		return nil, nil, fmt.Errorf("create header file: %w", err)
	}

	return hdr, items, nil
}
