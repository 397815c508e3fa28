package snapshot

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// Store persists snapshots by name
type Store interface {
	Save(ctx context.Context, name string, s Snapshot) error
	Load(ctx context.Context, name string) (Snapshot, error)
}

// checkName rejects names that could escape a directory or key prefix
func checkName(name string) error {
	if name == "" || name != filepath.Base(name) || strings.ContainsAny(name, `/\:`) || name == "." || name == ".." {
		return fmt.Errorf("invalid snapshot name %q", name)
	}
	return nil
}
