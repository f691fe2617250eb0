/*
Copyright 2019 Alexander Eldeib.
*/

package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/services/network/mgmt/2019-04-01/network"
	"github.com/pkg/errors"
	uuid "github.com/satori/go.uuid"

	"github.com/alexeldeib/dspm-netconfig/pkg/inventory"
)

const timestampFormat = "20060102T150405Z"

// Snapshot is the document written for one network.
// Definition is the provider's own representation and is what a restore should use.
type Snapshot struct {
	TakenAt    time.Time               `json:"takenAt"`
	Network    inventory.Network       `json:"network"`
	Definition *network.VirtualNetwork `json:"definition,omitempty"`
}

// DefinitionSource fetches the live, complete definition of a network.
type DefinitionSource interface {
	NetworkDefinition(ctx context.Context, vnet inventory.Network) (network.VirtualNetwork, error)
}

// Writer stores network snapshots as JSON files. Existing files are never overwritten.
type Writer struct {
	Dir string
	// Source is optional. Without it only the inventory record is written.
	Source DefinitionSource
	// Now defaults to time.Now.
	Now func() time.Time
}

type file interface {
	Write(b []byte) (int, error)
	Sync() error
	Close() error
}

var createFile = func(path string) (file, error) {
	return os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
}

// Backup writes the full definition of the network and returns the file path.
func (w *Writer) Backup(ctx context.Context, network inventory.Network) (string, error) {
	now := time.Now
	if w.Now != nil {
		now = w.Now
	}

	snapshot := Snapshot{Network: network}
	if w.Source != nil {
		definition, err := w.Source.NetworkDefinition(ctx, network)
		if err != nil {
			return "", errors.Wrapf(err, "failed to read definition of %s", network.Name)
		}
		snapshot.Definition = &definition
	}
	snapshot.TakenAt = now().UTC()

	dir := w.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", errors.Wrapf(err, "failed to create backup directory %s", dir)
	}

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", errors.Wrapf(err, "failed to serialize network %s", network.Name)
	}

	path := filepath.Join(dir, fileName(network.Name, snapshot.TakenAt))
	f, err := createFile(path)
	if err != nil {
		return "", errors.Wrapf(err, "failed to create backup of %s", network.Name)
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		discard(f, path)
		return "", errors.Wrapf(err, "failed to write backup of %s", network.Name)
	}
	if err := f.Sync(); err != nil {
		discard(f, path)
		return "", errors.Wrapf(err, "failed to flush backup of %s", network.Name)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", errors.Wrapf(err, "failed to close backup of %s", network.Name)
	}
	return path, nil
}

// discard drops a partial backup so it cannot be mistaken for a complete one.
func discard(f file, path string) {
	f.Close()
	os.Remove(path)
}

func fileName(network string, taken time.Time) string {
	suffix := strings.Replace(uuid.NewV4().String(), "-", "", -1)[:8]
	return fmt.Sprintf("%s-%s-%s.json", sanitize(network), taken.Format(timestampFormat), suffix)
}

// sanitize keeps network names usable as file names on every platform.
func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		}
		return '_'
	}, name)
}
