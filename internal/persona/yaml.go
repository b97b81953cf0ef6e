package persona

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/xkilldash9x/meander-cli/api/schemas"
)

// LoadTemplateFile parses one YAML persona template.
func LoadTemplateFile(path string) (schemas.PersonaTemplate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return schemas.PersonaTemplate{}, fmt.Errorf("reading persona template: %w", err)
	}
	var tpl schemas.PersonaTemplate
	if err := yaml.Unmarshal(data, &tpl); err != nil {
		return schemas.PersonaTemplate{}, fmt.Errorf("parsing persona template %s: %w", path, err)
	}
	if tpl.Name == "" {
		// Default the name from the filename so a bare trait list is usable.
		tpl.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return tpl, nil
}

// LoadTemplateDir parses every .yaml/.yml file in dir, sorted by filename.
// A missing directory is not an error; it simply yields no templates.
func LoadTemplateDir(dir string) ([]schemas.PersonaTemplate, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading persona template dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	out := make([]schemas.PersonaTemplate, 0, len(names))
	for _, name := range names {
		tpl, err := LoadTemplateFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		out = append(out, tpl)
	}
	return out, nil
}
