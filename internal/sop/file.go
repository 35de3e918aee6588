package sop

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/psops/sentry/internal/faults"
)

// catalogFile is the YAML document shape for a catalog override file.
type catalogFile struct {
	Procedures []Procedure `yaml:"procedures"`
}

// LoadCatalogFile reads a procedure catalog from a YAML file and validates
// it with the same rules as the builtin catalog. The file replaces the
// builtin library entirely; declaration order in the file is the lookup
// order.
func LoadCatalogFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, faults.Wrap(faults.KindProcedureCatalogInvalid, err, "reading catalog file %s", path)
	}

	var doc catalogFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, faults.Wrap(faults.KindProcedureCatalogInvalid, err, "parsing catalog file %s", path)
	}

	return NewCatalog(doc.Procedures)
}

// LoadCatalog returns the catalog from path when it is non-empty, otherwise
// the builtin catalog.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return BuiltinCatalog()
	}
	return LoadCatalogFile(path)
}
