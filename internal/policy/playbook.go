package policy

import (
	"encoding/json"
	"fmt"
	"os"
)

// #region types
// Category is one playbook-governed clause category.
type Category struct {
	Name     string   `json:"name"`
	Required bool     `json:"required"`           // contract must carry this clause
	Passages []string `json:"passages,omitempty"` // approved playbook language
}

// Playbook is the versioned, externally-owned category set consumed by the
// extractor and scorer. It is loaded once at startup, never mutated by the
// core.
type Playbook struct {
	Version    string     `json:"version"`
	Categories []Category `json:"categories"`
}

// #endregion types

// #region load
// LoadPlaybook reads a playbook artifact from disk.
func LoadPlaybook(path string) (Playbook, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Playbook{}, fmt.Errorf("load playbook: %w", err)
	}
	var pb Playbook
	if err := json.Unmarshal(data, &pb); err != nil {
		return Playbook{}, fmt.Errorf("parse playbook: %w", err)
	}
	if len(pb.Categories) == 0 {
		return Playbook{}, fmt.Errorf("parse playbook: no categories in %s", path)
	}
	return pb, nil
}

// DefaultPlaybook returns the built-in category set, used when no playbook
// artifact is configured.
func DefaultPlaybook() Playbook {
	names := []string{
		"Confidentiality",
		"Limitation of Liability",
		"Governing Law",
		"Termination for Cause",
		"Indemnification",
		"Intellectual Property",
		"Dispute Resolution",
		"Force Majeure",
	}
	cats := make([]Category, len(names))
	for i, n := range names {
		cats[i] = Category{Name: n, Required: true}
	}
	return Playbook{Version: "builtin-v1", Categories: cats}
}

// #endregion load

// #region accessors
// Names returns the category names in playbook order.
func (p Playbook) Names() []string {
	out := make([]string, len(p.Categories))
	for i, c := range p.Categories {
		out[i] = c.Name
	}
	return out
}

// Known reports whether name is a playbook category.
func (p Playbook) Known(name string) bool {
	for _, c := range p.Categories {
		if c.Name == name {
			return true
		}
	}
	return false
}

// Required reports whether the named category must be present in every
// contract.
func (p Playbook) Required(name string) bool {
	for _, c := range p.Categories {
		if c.Name == name {
			return c.Required
		}
	}
	return false
}

// #endregion accessors
