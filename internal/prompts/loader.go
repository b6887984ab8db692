// Package prompts holds the model prompt templates. Each embedded JSON file
// maps a prompt key to a template with {{.Name}} placeholders.
package prompts

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"regexp"
	"slices"
	"strings"
	"sync"
)

//go:embed *.json
var files embed.FS

var placeholder = regexp.MustCompile(`\{\{\.([A-Za-z][A-Za-z0-9_]*)\}\}`)

// catalog is every embedded file parsed once, keyed by file name then prompt key.
var catalog = sync.OnceValues(func() (map[string]map[string]string, error) {
	return load(files)
})

func load(fsys fs.FS) (map[string]map[string]string, error) {
	names, err := fs.Glob(fsys, "*.json")
	if err != nil {
		return nil, err
	}
	out := make(map[string]map[string]string, len(names))
	for _, name := range names {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("failed to read prompt file %s: %w", name, err)
		}
		var set map[string]string
		if err := json.Unmarshal(data, &set); err != nil {
			return nil, fmt.Errorf("failed to parse prompt file %s: %w", name, err)
		}
		out[name] = set
	}
	return out, nil
}

// Get returns the raw template stored under key in file (e.g. "ai.json").
func Get(file, key string) (string, error) {
	all, err := catalog()
	if err != nil {
		return "", err
	}
	set, ok := all[file]
	if !ok {
		return "", fmt.Errorf("prompt file %s not found", file)
	}
	tmpl, ok := set[key]
	if !ok {
		return "", fmt.Errorf("prompt key %q not found in %s", key, file)
	}
	return tmpl, nil
}

// Keys lists the prompt keys in file, sorted.
func Keys(file string) ([]string, error) {
	all, err := catalog()
	if err != nil {
		return nil, err
	}
	set, ok := all[file]
	if !ok {
		return nil, fmt.Errorf("prompt file %s not found", file)
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys, nil
}

// Render looks up a template and fills its placeholders. Every placeholder
// must have a value. Values are inserted in a single pass, so placeholder-like
// text inside a value (a resume, say) is left alone.
func Render(file, key string, data map[string]string) (string, error) {
	tmpl, err := Get(file, key)
	if err != nil {
		return "", err
	}
	out, missing := fill(tmpl, data)
	if len(missing) > 0 {
		return "", fmt.Errorf("prompt %s/%s: no value for %s", file, key, strings.Join(missing, ", "))
	}
	return out, nil
}

// fill substitutes placeholders and reports the names that had no value.
func fill(tmpl string, data map[string]string) (string, []string) {
	var missing []string
	out := placeholder.ReplaceAllStringFunc(tmpl, func(m string) string {
		name := placeholder.FindStringSubmatch(m)[1]
		v, ok := data[name]
		if !ok {
			if !slices.Contains(missing, name) {
				missing = append(missing, name)
			}
			return m
		}
		return v
	})
	return out, missing
}
