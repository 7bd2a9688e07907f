package testutil

import (
	"fmt"
	"log"
	"strings"
	"testing"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/MarkoPoloResearchLab/leadpage/internal/storage"
)

const sqliteMemoryDSNFormat = "file:leadpage-%s?mode=memory&cache=shared&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

// SQLiteTestDatabase names one shared-cache in-memory database. Every connection opened with its
// data source name sees the same tables until the last connection closes.
type SQLiteTestDatabase struct {
	name string
}

func NewSQLiteTestDatabase(testingT *testing.T) SQLiteTestDatabase {
	testingT.Helper()
	return SQLiteTestDatabase{name: storage.NewID()}
}

func (database SQLiteTestDatabase) Configuration() storage.Config {
	return storage.Config{DriverName: storage.DriverNameSQLite, DataSourceName: database.DataSourceName()}
}

func (database SQLiteTestDatabase) DataSourceName() string {
	return fmt.Sprintf(sqliteMemoryDSNFormat, database.name)
}

// OpenMigratedDatabase opens and migrates the database and closes it when the test ends.
func (database SQLiteTestDatabase) OpenMigratedDatabase(testingT *testing.T) *gorm.DB {
	testingT.Helper()

	opened, openErr := storage.OpenDatabase(database.Configuration())
	if openErr != nil {
		testingT.Fatalf("open %s: %v", database.name, openErr)
	}
	testingT.Cleanup(func() {
		if sqlDatabase, sqlErr := opened.DB(); sqlErr == nil {
			_ = sqlDatabase.Close()
		}
	})
	if migrateErr := storage.AutoMigrate(opened); migrateErr != nil {
		testingT.Fatalf("migrate %s: %v", database.name, migrateErr)
	}
	return ConfigureDatabaseLogger(testingT, opened)
}

// NewMigratedDatabase returns a fresh, migrated and seeded database for one test.
func NewMigratedDatabase(testingT *testing.T) *gorm.DB {
	testingT.Helper()
	return NewSQLiteTestDatabase(testingT).OpenMigratedDatabase(testingT)
}

// ConfigureDatabaseLogger routes gorm errors to the test log and drops record-not-found noise.
func ConfigureDatabaseLogger(testingT *testing.T, database *gorm.DB) *gorm.DB {
	testingT.Helper()
	if database == nil {
		testingT.Fatalf("configure database logger: nil database")
	}
	testLogger := logger.New(log.New(testLogWriter{testingT: testingT}, "gorm: ", 0), logger.Config{
		IgnoreRecordNotFoundError: true,
		LogLevel:                  logger.Error,
	})
	return database.Session(&gorm.Session{Logger: testLogger})
}

type testLogWriter struct {
	testingT *testing.T
}

func (writer testLogWriter) Write(data []byte) (int, error) {
	if message := strings.TrimSpace(string(data)); message != "" {
		writer.testingT.Log(message)
	}
	return len(data), nil
}
