package seed

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed sample.yaml
var sample []byte

// Loader reads a seed file, or the embedded sample when no path is set.
type Loader struct {
	filePath string
}

// NewLoader creates a seed loader. An empty filePath selects the sample.
func NewLoader(filePath string) *Loader {
	return &Loader{filePath: filePath}
}

// Load reads and parses the seed data.
func (l *Loader) Load() (File, error) {
	data := sample
	if l.filePath != "" {
		raw, err := os.ReadFile(l.filePath)
		if err != nil {
			return File{}, fmt.Errorf("failed to read seed file: %w", err)
		}
		data = raw
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return File{}, fmt.Errorf("failed to parse seed yaml: %w", err)
	}
	return f, nil
}
