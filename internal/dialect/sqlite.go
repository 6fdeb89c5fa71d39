// Package dialect adapts gorm dialectors to the engine's exact-decimal columns.
package dialect

import (
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/migrator"
	"gorm.io/gorm/schema"
)

// numericType is the column type declared on every decimal field.
const numericType = "numeric"

// SQLiteDialector stores numeric columns as text. A NUMERIC column in sqlite
// converts decimal strings to REAL and keeps about 15 significant digits;
// text keeps the exact value shopspring/decimal writes.
type SQLiteDialector struct {
	sqlite.Dialector
}

// SQLite opens dsn with the text-backed numeric mapping.
func SQLite(dsn string) gorm.Dialector {
	return SQLiteDialector{Dialector: sqlite.Dialector{DSN: dsn}}
}

func (d SQLiteDialector) DataTypeOf(field *schema.Field) string {
	if field.DataType == numericType {
		return "text"
	}
	return d.Dialector.DataTypeOf(field)
}

// Migrator binds the sqlite migrator to this dialector so DataTypeOf above
// drives CREATE and ALTER statements.
func (d SQLiteDialector) Migrator(db *gorm.DB) gorm.Migrator {
	return sqlite.Migrator{Migrator: migrator.Migrator{Config: migrator.Config{
		DB:                          db,
		Dialector:                   d,
		CreateIndexAfterCreateTable: true,
	}}}
}
