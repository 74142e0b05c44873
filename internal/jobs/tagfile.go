package jobs

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

type tagFileYAML struct {
	Tags []string `yaml:"tags"`
}

// LoadTagFile reads a tag vocabulary file: .yaml/.yml (a list, or a "tags:" key)
// or plain text with one tag per line and # comments.
func LoadTagFile(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseTagFile(path, raw)
}

func ParseTagFile(name string, raw []byte) ([]string, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		var list []string
		if err := yaml.Unmarshal(raw, &list); err == nil {
			return list, nil
		}
		var doc tagFileYAML
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		return doc.Tags, nil
	default:
		var out []string
		sc := bufio.NewScanner(bytes.NewReader(raw))
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			out = append(out, line)
		}
		return out, sc.Err()
	}
}
