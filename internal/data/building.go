package data

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// BuildingSize is the plot size a building needs.
type BuildingSize string

const (
	SizeSmall  BuildingSize = "small"
	SizeMedium BuildingSize = "medium"
	SizeBig    BuildingSize = "big"
)

// BuildingInfo holds static data for one building type loaded from YAML.
type BuildingInfo struct {
	Name      string       `yaml:"name"`
	Descname  string       `yaml:"descname"`
	Size      BuildingSize `yaml:"size"`
	BuildTime uint32       `yaml:"build_time"` // simulated milliseconds
	Buildable bool         `yaml:"buildable"`  // false for headquarters and other pre-placed types
}

type buildingListFile struct {
	Buildings []BuildingInfo `yaml:"buildings"`
}

// BuildingTable holds all building types indexed by name.
type BuildingTable struct {
	byName map[string]*BuildingInfo
}

// LoadBuildingTable loads building_list.yaml.
func LoadBuildingTable(path string) (*BuildingTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read building list: %w", err)
	}
	return ParseBuildingTable(raw)
}

// ParseBuildingTable builds a table from building list YAML.
func ParseBuildingTable(raw []byte) (*BuildingTable, error) {
	var f buildingListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse building list: %w", err)
	}
	t := &BuildingTable{byName: make(map[string]*BuildingInfo, len(f.Buildings))}
	for i := range f.Buildings {
		b := &f.Buildings[i]
		if b.Name == "" {
			return nil, fmt.Errorf("building #%d: missing name", i)
		}
		switch b.Size {
		case SizeSmall, SizeMedium, SizeBig:
		case "":
			b.Size = SizeSmall
		default:
			return nil, fmt.Errorf("building %s: unknown size %q", b.Name, b.Size)
		}
		if _, dup := t.byName[b.Name]; dup {
			return nil, fmt.Errorf("building %s: defined twice", b.Name)
		}
		t.byName[b.Name] = b
	}
	return t, nil
}

// Get returns the building type by name, or nil if unknown.
func (t *BuildingTable) Get(name string) *BuildingInfo {
	return t.byName[name]
}

// Names returns all building type names in sorted order.
func (t *BuildingTable) Names() []string {
	names := make([]string, 0, len(t.byName))
	for n := range t.byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Count returns the total number of building types loaded.
func (t *BuildingTable) Count() int {
	return len(t.byName)
}
