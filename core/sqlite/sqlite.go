// Package sqlite exposes the holder-backed functions to SQL through SQLite
// user functions, supporting both pure Go (modernc.org/sqlite) and CGO
// (mattn/go-sqlite3) drivers.
//
// Build modes:
//   - Default (CGO_ENABLED=0): Uses pure Go modernc.org/sqlite
//   - CGO mode (CGO_ENABLED=1 -tags cgo_sqlite): Uses mattn/go-sqlite3
//
// Installed functions: regexp_extract(input, pattern, group),
// get_json_object(document, path) and rand([seed [, offset]]).
//
// Use Open() instead of sql.Open() so that the functions are registered and
// the correct driver is used.
package sqlite

import (
	"database/sql"
	"sync"

	"github.com/FocuswithJustin/exprholders/core/errors"
)

var (
	registerOnce sync.Once
	registerErr  error
)

// DriverName returns the SQL driver name to use.
func DriverName() string {
	return driverName
}

// DriverType returns a string identifying the underlying implementation.
// Returns "cgo" for mattn/go-sqlite3, "purego" for modernc.org/sqlite.
func DriverType() string {
	return driverType
}

// IsCGO returns true if the CGO implementation is being used.
func IsCGO() bool {
	return driverType == "cgo"
}

// Register installs the holder-backed functions with the driver. It is safe
// to call more than once; Open calls it.
func Register() error {
	registerOnce.Do(func() {
		registerErr = registerFunctions()
	})
	return registerErr
}

// Open opens a SQLite database with the holder-backed functions available.
func Open(dataSourceName string) (*sql.DB, error) {
	if err := Register(); err != nil {
		return nil, errors.Wrap(err, "failed to register functions")
	}
	return sql.Open(driverName, dataSourceName)
}

// OpenReadOnly opens the SQLite database file at path in read-only mode.
func OpenReadOnly(path string) (*sql.DB, error) {
	dsn := "file:" + path + "?mode=ro"
	return Open(dsn)
}

// Info contains information about the SQLite driver configuration.
type Info struct {
	DriverName string   `json:"driver_name"`
	DriverType string   `json:"driver_type"`
	IsCGO      bool     `json:"is_cgo"`
	Package    string   `json:"package"`
	Functions  []string `json:"functions"`
}

// GetInfo returns information about the current SQLite configuration.
func GetInfo() Info {
	names := make([]string, len(scalarFuncs))
	for i, sf := range scalarFuncs {
		names[i] = sf.name
	}
	return Info{
		DriverName: driverName,
		DriverType: driverType,
		IsCGO:      IsCGO(),
		Package:    driverPackage,
		Functions:  names,
	}
}
