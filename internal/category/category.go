// Package category holds the canonical spending category vocabulary and the
// keyword table used to guess a category from a transaction description.
package category

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Canonical category names.
const (
	Groceries      = "Groceries"
	Dining         = "Dining"
	Transportation = "Transportation"
	Bills          = "Bills"
	Healthcare     = "Healthcare"
	Entertainment  = "Entertainment"
	Shopping       = "Shopping"
	Other          = "Other"
)

// Rule maps a category to the description keywords that select it.
type Rule struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// Table is an ordered list of rules. The first rule with a matching keyword wins.
type Table struct {
	Rules    []Rule `yaml:"categories"`
	Fallback string `yaml:"fallback,omitempty"`
}

// Default returns the built-in keyword table shared by statement import and
// manual-entry suggestions.
func Default() *Table {
	return &Table{
		Rules: []Rule{
			{Name: Groceries, Keywords: []string{"grocery", "supermarket", "food", "walmart", "kroger", "safeway", "whole foods", "trader joe", "aldi", "lidl", "costco", "rewe", "edeka"}},
			{Name: Dining, Keywords: []string{"restaurant", "cafe", "diner", "mcdonald", "burger", "pizza", "starbucks", "coffee", "kfc", "chipotle", "bistro"}},
			{Name: Transportation, Keywords: []string{"gas", "fuel", "shell", "chevron", "exxon", "uber", "lyft", "taxi", "parking", "toll"}},
			{Name: Bills, Keywords: []string{"electric", "water", "internet", "phone", "utility", "rent", "mortgage", "insurance"}},
			{Name: Healthcare, Keywords: []string{"pharmacy", "doctor", "hospital", "clinic", "dental", "medical", "prescription"}},
			{Name: Entertainment, Keywords: []string{"netflix", "spotify", "cinema", "movie", "theater", "game", "subscription"}},
			{Name: Shopping, Keywords: []string{"amazon", "shop", "store", "mall", "clothing", "electronics"}},
		},
		Fallback: Other,
	}
}

// Categorize returns the first category whose keyword occurs in description,
// compared case-insensitively, or the fallback category.
func (t *Table) Categorize(description string) string {
	desc := strings.ToLower(description)
	for _, rule := range t.Rules {
		for _, kw := range rule.Keywords {
			if kw != "" && strings.Contains(desc, strings.ToLower(kw)) {
				return rule.Name
			}
		}
	}
	if t.Fallback == "" {
		return Other
	}
	return t.Fallback
}

// Names returns the category vocabulary in table order, fallback last.
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.Rules)+1)
	seen := make(map[string]bool, len(t.Rules)+1)
	for _, r := range t.Rules {
		if !seen[r.Name] {
			seen[r.Name] = true
			names = append(names, r.Name)
		}
	}
	fb := t.Fallback
	if fb == "" {
		fb = Other
	}
	if !seen[fb] {
		names = append(names, fb)
	}
	return names
}

// Categorize uses the default table.
func Categorize(description string) string {
	return defaultTable.Categorize(description)
}

var defaultTable = Default()

// Load reads a keyword table from a YAML rules file.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading category rules: %w", err)
	}
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parsing category rules: %w", err)
	}
	if len(t.Rules) == 0 {
		return nil, fmt.Errorf("category rules %s: no categories defined", path)
	}
	return &t, nil
}

// LoadOrDefault returns the table at path, or the default table when path is
// empty or the file does not exist.
func LoadOrDefault(path string) (*Table, error) {
	if path == "" {
		return Default(), nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}
	return Load(path)
}

// Save writes a keyword table as YAML.
func Save(path string, t *Table) error {
	data, err := yaml.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshaling category rules: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing category rules: %w", err)
	}
	return nil
}
