// Package sop holds the curated Standard Operating Procedure catalog and its
// pattern-based lookup. The catalog is built once at startup, validated, and
// read-only afterwards, so lookups are safe for unlimited concurrent callers.
package sop

import (
	"strings"

	"github.com/psops/sentry/internal/faults"
)

// Procedure is one curated remediation recipe. TriggerPatterns are matched
// case-insensitively as substrings against error text; the single fallback
// procedure has an empty trigger set and catches everything else.
type Procedure struct {
	Key              string   `yaml:"key" json:"key"`
	Title            string   `yaml:"title" json:"title"`
	RootCause        string   `yaml:"root_cause" json:"root_cause"`
	TriggerPatterns  []string `yaml:"trigger_patterns" json:"trigger_patterns"`
	Symptoms         []string `yaml:"symptoms" json:"symptoms"`
	RemediationSteps []string `yaml:"remediation_steps" json:"remediation_steps"`
	EscalateTo       string   `yaml:"escalate_to" json:"escalate_to"`
	Tags             []string `yaml:"tags,omitempty" json:"tags,omitempty"`
	Fallback         bool     `yaml:"fallback,omitempty" json:"fallback,omitempty"`
}

// Catalog is the immutable, ordered procedure set.
type Catalog struct {
	procedures []Procedure
	fallback   Procedure
}

// NewCatalog validates and builds a catalog. It fails with a
// ProcedureCatalogInvalid fault if a key is duplicated, if a non-fallback
// procedure has no trigger patterns, or if there is not exactly one fallback
// with an empty trigger set. Catalog loading failures are startup-fatal by
// design: the engine must never serve without a fallback.
func NewCatalog(procedures []Procedure) (*Catalog, error) {
	if len(procedures) == 0 {
		return nil, faults.New(faults.KindProcedureCatalogInvalid, "catalog is empty")
	}

	seen := make(map[string]bool, len(procedures))
	var fallback *Procedure
	for i := range procedures {
		p := &procedures[i]
		if p.Key == "" {
			return nil, faults.New(faults.KindProcedureCatalogInvalid, "procedure at index %d has no key", i)
		}
		if seen[p.Key] {
			return nil, faults.New(faults.KindProcedureCatalogInvalid, "duplicate procedure key %q", p.Key)
		}
		seen[p.Key] = true

		if p.Fallback {
			if len(p.TriggerPatterns) != 0 {
				return nil, faults.New(faults.KindProcedureCatalogInvalid,
					"fallback procedure %q must have an empty trigger set", p.Key)
			}
			if fallback != nil {
				return nil, faults.New(faults.KindProcedureCatalogInvalid,
					"multiple fallback procedures: %q and %q", fallback.Key, p.Key)
			}
			fallback = p
			continue
		}
		if len(p.TriggerPatterns) == 0 {
			return nil, faults.New(faults.KindProcedureCatalogInvalid,
				"procedure %q has no trigger patterns and is not the fallback", p.Key)
		}
		for _, pattern := range p.TriggerPatterns {
			if strings.TrimSpace(pattern) == "" {
				return nil, faults.New(faults.KindProcedureCatalogInvalid,
					"procedure %q has an empty trigger pattern", p.Key)
			}
		}
	}
	if fallback == nil {
		return nil, faults.New(faults.KindProcedureCatalogInvalid, "no fallback procedure in catalog")
	}

	return &Catalog{procedures: procedures, fallback: *fallback}, nil
}

// Lookup returns the first procedure, in catalog declaration order, whose
// trigger patterns contain a case-insensitive substring of errorText, along
// with the pattern that matched. When nothing matches it returns the
// fallback procedure and an empty pattern. First match wins; ties between
// overlapping patterns are broken by declaration order on purpose, so the
// catalog order is part of the contract.
func (c *Catalog) Lookup(errorText string) (Procedure, string) {
	lower := strings.ToLower(errorText)
	for _, p := range c.procedures {
		for _, pattern := range p.TriggerPatterns {
			if pattern != "" && strings.Contains(lower, strings.ToLower(pattern)) {
				return p, pattern
			}
		}
	}
	return c.fallback, ""
}

// Fallback returns the designated fallback procedure.
func (c *Catalog) Fallback() Procedure {
	return c.fallback
}

// Procedures returns the catalog in declaration order. Callers must not
// mutate the returned slice.
func (c *Catalog) Procedures() []Procedure {
	return c.procedures
}

// Get returns a procedure by key.
func (c *Catalog) Get(key string) (Procedure, bool) {
	for _, p := range c.procedures {
		if p.Key == key {
			return p, true
		}
	}
	return Procedure{}, false
}

// Len returns the number of procedures in the catalog.
func (c *Catalog) Len() int {
	return len(c.procedures)
}
