package inventory

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/autovolt/voice-bridge-go/internal/model"
)

type seedFile struct {
	Devices []model.Device `yaml:"devices"`
}

// LoadFile builds an inventory from a YAML seed file.
func LoadFile(path string) (*Inventory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading inventory file: %w", err)
	}
	devices, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return New(devices), nil
}

func Parse(data []byte) ([]model.Device, error) {
	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parsing inventory: %w", err)
	}

	seen := make(map[string]bool, len(seed.Devices))
	for _, d := range seed.Devices {
		if d.ID == "" {
			return nil, fmt.Errorf("parsing inventory: device %q has no id", d.Name)
		}
		if seen[d.ID] {
			return nil, fmt.Errorf("parsing inventory: duplicate device id %q", d.ID)
		}
		seen[d.ID] = true

		for _, sw := range d.Switches {
			if sw.ID == "" || strings.Contains(sw.ID, "_") {
				return nil, fmt.Errorf("parsing inventory: device %q has switch id %q; switch ids must be non-empty and contain no underscore", d.ID, sw.ID)
			}
		}
	}
	return seed.Devices, nil
}
