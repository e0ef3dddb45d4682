package internal

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/sensiblebit/storekit"
)

// LoadAll drains a loader over the given locator, returning every object it
// produces. Objects decoded before a failure are returned alongside the
// error so callers can keep partial results.
func LoadAll(locator string, pass storekit.PassphraseFunc) ([]*storekit.Info, error) {
	l, err := storekit.Open(locator, pass)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := l.Close(); cerr != nil {
			slog.Warn("closing loader", "locator", locator, "error", cerr)
		}
	}()

	var objects []*storekit.Info
	for {
		info, err := l.Load()
		if errors.Is(err, io.EOF) {
			return objects, nil
		}
		if err != nil {
			return objects, fmt.Errorf("loading from %s: %w", locator, err)
		}
		objects = append(objects, info)
	}
}

// ScanFile loads every object from path into the catalog and returns how
// many were stored. Undecodable trailing content is logged, not fatal, so a
// directory scan keeps going.
func ScanFile(c *Catalog, path string, pass storekit.PassphraseFunc) (int, error) {
	objects, err := LoadAll(path, pass)
	if err != nil {
		if len(objects) == 0 {
			return 0, err
		}
		slog.Warn("partial load", "path", path, "error", err)
	}

	stored := 0
	for _, info := range objects {
		if err := c.Insert(info, path); err != nil {
			return stored, err
		}
		stored++
	}
	slog.Info("scanned file", "path", path, "objects", stored)
	return stored, nil
}
