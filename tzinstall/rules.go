package tzinstall

import (
	"github.com/ngrash/go-tzupdate/rulesdata"
)

// RulesData is an opened rules-data file.
type RulesData interface {
	RulesVersion() string
	Validate() error
	Close() error
}

// RulesLoader opens rules-data files for validation.
type RulesLoader interface {
	Load(path string) (RulesData, error)
}

// RulesLoaderFunc adapts a function to RulesLoader.
type RulesLoaderFunc func(path string) (RulesData, error)

// Load calls f(path).
func (f RulesLoaderFunc) Load(path string) (RulesData, error) {
	return f(path)
}

// FileRulesLoader loads rules data with rulesdata.Open.
var FileRulesLoader RulesLoader = RulesLoaderFunc(func(path string) (RulesData, error) {
	r, err := rulesdata.Open(path)
	if err != nil {
		return nil, err
	}
	return r, nil
})
