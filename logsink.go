package schemareflect

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
)

// Log appends record to path as one JSON document per line.
// The file is created if needed and never rotated.
func (i *Instance) Log(path string, record any) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode log record: %w", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write log %s: %w", path, err)
	}
	return nil
}

// recordStatus appends a failure description under key
func (i *Instance) recordStatus(key, msg string) {
	if prev, ok := i.status[key]; ok && prev != "" {
		msg = prev + "; " + msg
	}
	i.status[key] = msg
}

// Status returns a copy of the failure descriptions recorded so far, keyed by schema
// name or by "<instance>_engine" for connection failures.
func (i *Instance) Status() map[string]string {
	return maps.Clone(i.status)
}

func (i *Instance) engineStatusKey() string {
	return i.name + "_engine"
}
