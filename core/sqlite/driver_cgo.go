//go:build cgo_sqlite

// CGO SQLite driver using mattn/go-sqlite3.
// This is used when the cgo_sqlite build tag is set.
//
// Build with: go build -tags cgo_sqlite
// Requires: CGO_ENABLED=1
package sqlite

import (
	"database/sql"
	"database/sql/driver"

	sqlite3 "github.com/mattn/go-sqlite3"
)

const (
	driverName    = "sqlite3_holders"
	driverType    = "cgo"
	driverPackage = "github.com/mattn/go-sqlite3"
)

// registerFunctions registers a dedicated driver whose connect hook installs
// every scalarFunc on each new connection.
func registerFunctions() error {
	sql.Register(driverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			for _, sf := range scalarFuncs {
				call := dispatch(sf)
				fn := func(args ...interface{}) (interface{}, error) {
					values := make([]driver.Value, len(args))
					for i, a := range args {
						values[i] = a
					}
					return call(values)
				}
				if err := conn.RegisterFunc(sf.name, fn, sf.deterministic); err != nil {
					return err
				}
			}
			return nil
		},
	})
	return nil
}
