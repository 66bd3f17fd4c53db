//go:build !cgo_sqlite

package sqlite

import (
	"database/sql/driver"

	"modernc.org/sqlite"
)

const (
	driverName    = "sqlite"
	driverType    = "purego"
	driverPackage = "modernc.org/sqlite"
)

// registerFunctions installs every scalarFunc process-wide; modernc applies
// them to each new connection.
func registerFunctions() error {
	for _, sf := range scalarFuncs {
		call := dispatch(sf)
		xFunc := func(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
			return call(args)
		}
		var err error
		if sf.deterministic {
			err = sqlite.RegisterDeterministicScalarFunction(sf.name, sf.nArgs, xFunc)
		} else {
			err = sqlite.RegisterScalarFunction(sf.name, sf.nArgs, xFunc)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
