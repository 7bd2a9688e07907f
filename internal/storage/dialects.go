package storage

import (
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const sqlitePragmaParameter = "_pragma="

// sqliteDefaultPragmas are appended unless the data source name already sets the same pragma.
var sqliteDefaultPragmas = []string{
	"foreign_keys(1)",
	"busy_timeout(5000)",
}

var dialectors = map[string]func(dataSourceName string) gorm.Dialector{
	DriverNameSQLite:   openSQLiteDialector,
	DriverNamePostgres: postgres.Open,
}

func openSQLiteDialector(dataSourceName string) gorm.Dialector {
	return sqlite.Open(withSQLitePragmas(dataSourceName))
}

func withSQLitePragmas(dataSourceName string) string {
	result := dataSourceName
	for _, pragma := range sqliteDefaultPragmas {
		pragmaName := pragma[:strings.Index(pragma, "(")]
		if strings.Contains(result, sqlitePragmaParameter+pragmaName) {
			continue
		}
		separator := "?"
		if strings.Contains(result, "?") {
			separator = "&"
		}
		result += separator + sqlitePragmaParameter + pragma
	}
	return result
}
