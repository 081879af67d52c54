package core

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// DecodeFunc turns a cleaned import payload into a batch.
type DecodeFunc func(data []byte) (*Batch, error)

// Format describes one import file format.
type Format struct {
	Key         string   // "csv", "json"
	Label       string   // Display name
	Extensions  []string // Lowercase, with leading dot
	ContentType string
	Decode      DecodeFunc
}

var (
	formats   = make(map[string]Format)
	formatsMu sync.RWMutex
)

func init() {
	RegisterFormat(Format{
		Key:         "csv",
		Label:       "CSV (Title, Description, Duration, Level)",
		Extensions:  []string{".csv"},
		ContentType: "text/csv; charset=utf-8",
		Decode:      DecodeCSV,
	})
	RegisterFormat(Format{
		Key:         "json",
		Label:       "JSON (talk array or settings document)",
		Extensions:  []string{".json"},
		ContentType: "application/json",
		Decode:      DecodeJSON,
	})
}

// RegisterFormat adds an import format.
// Panics if a format with the same key is already registered.
func RegisterFormat(f Format) {
	formatsMu.Lock()
	defer formatsMu.Unlock()

	if _, exists := formats[f.Key]; exists {
		panic(fmt.Sprintf("import format already registered: %s", f.Key))
	}
	formats[f.Key] = f
}

// LookupFormat returns a format by key (case-insensitive).
func LookupFormat(key string) (Format, bool) {
	formatsMu.RLock()
	defer formatsMu.RUnlock()

	f, ok := formats[strings.ToLower(key)]
	return f, ok
}

// FormatForFile returns the format whose extension matches name.
func FormatForFile(name string) (Format, bool) {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return Format{}, false
	}

	formatsMu.RLock()
	defer formatsMu.RUnlock()

	for _, f := range formats {
		for _, e := range f.Extensions {
			if e == ext {
				return f, true
			}
		}
	}
	return Format{}, false
}

// Formats returns all registered formats sorted by key.
func Formats() []Format {
	formatsMu.RLock()
	defer formatsMu.RUnlock()

	result := make([]Format, 0, len(formats))
	for _, f := range formats {
		result = append(result, f)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Key < result[j].Key
	})

	return result
}
