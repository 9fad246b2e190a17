// Package manifest describes the adapter manifest the core consumes.
// Schema validation and UI-form derivation belong to the host
// application; this package only carries the fields the core reads
// and a minimal loader for the demonstration command.
package manifest

import (
	"encoding/json"
	"os"

	"github.com/fansqz/dapclient/dapclienterr"
)

// Descriptor is the subset of an adapter manifest the core cares
// about. Identifier feeds initialize's adapterID; Executable,
// Arguments, WorkingDirectory, and Environment describe how to spawn
// the adapter subprocess (used only outside the core, by whatever
// spawns the process — the demonstration command, here).
type Descriptor struct {
	Identifier       string            `json:"identifier"`
	Executable       string            `json:"executable"`
	Arguments        []string          `json:"arguments"`
	WorkingDirectory string            `json:"workingDirectory"`
	Environment      map[string]string `json:"environment"`
}

// LoadFile reads and JSON-decodes a manifest descriptor from disk. It
// validates only what the core needs: that the file exists, is valid
// JSON, and carries a non-empty identifier and executable. Full
// manifest schema validation is out of scope (spec §1).
func LoadFile(path string) (Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Descriptor{}, dapclienterr.Wrap(dapclienterr.ConfigurationNotFound, path, err)
		}
		return Descriptor{}, dapclienterr.Wrap(dapclienterr.ConfigurationInvalid, "reading manifest", err)
	}

	var d Descriptor
	if err := json.Unmarshal(data, &d); err != nil {
		return Descriptor{}, dapclienterr.Wrap(dapclienterr.ConfigurationInvalid, "parsing manifest JSON", err)
	}
	if d.Identifier == "" {
		return Descriptor{}, dapclienterr.New(dapclienterr.ConfigurationInvalid, "manifest missing identifier")
	}
	if d.Executable == "" {
		return Descriptor{}, dapclienterr.New(dapclienterr.ConfigurationInvalid, "manifest missing executable")
	}
	return d, nil
}
