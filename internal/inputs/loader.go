package inputs

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Loader resolves input map override files across the configured search
// paths. Used for bench setups where no backend delivers the map.
type Loader struct {
	cache       sync.Map
	validator   *Validator
	searchPaths []string
}

func NewLoader(searchPaths []string) (*Loader, error) {
	validator, err := NewValidator()
	if err != nil {
		return nil, fmt.Errorf("failed to create validator: %w", err)
	}

	return &Loader{
		validator:   validator,
		searchPaths: searchPaths,
	}, nil
}

func (l *Loader) Load(mapName string) (*Document, error) {
	// Cache-Check
	if cached, ok := l.cache.Load(mapName); ok {
		return cached.(*Document), nil
	}

	var data []byte
	var err error
	var foundPath string

	for _, searchPath := range l.searchPaths {
		fullPath := filepath.Join(searchPath, mapName+".json")
		data, err = os.ReadFile(fullPath)
		if err == nil {
			foundPath = fullPath
			break
		}
	}

	if data == nil {
		return nil, fmt.Errorf("input map not found: %s (searched in: %v)", mapName, l.searchPaths)
	}

	doc, err := l.validator.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("validation failed for %s: %w", foundPath, err)
	}

	l.cache.Store(mapName, doc)

	return doc, nil
}

func (l *Loader) ClearCache() {
	l.cache.Range(func(key, value interface{}) bool {
		l.cache.Delete(key)
		return true
	})
}
