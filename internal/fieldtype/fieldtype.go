// Package fieldtype maps MySQL driver type names onto a small set of
// semantic families that tool callers can rely on.
package fieldtype

import "strings"

// Families returned by Semantic. The set is stable: callers may switch
// on these values without tracking driver-level type names.
const (
	Integer  = "integer"
	Float    = "float"
	Decimal  = "decimal"
	DateTime = "datetime"
	String   = "string"
	Binary   = "binary"
	JSON     = "json"
	Bit      = "bit"
	Geometry = "geometry"
	Enum     = "enum"
	Set      = "set"
	Null     = "null"
	Unknown  = "unknown"
)

// Semantic maps a ColumnType.DatabaseTypeName value to its family.
// Unrecognized names map to Unknown rather than failing, so new
// server-side types degrade gracefully.
func Semantic(databaseTypeName string) string {
	name := strings.ToUpper(strings.TrimSpace(databaseTypeName))
	name = strings.TrimPrefix(name, "UNSIGNED ")

	switch name {
	case "TINYINT", "SMALLINT", "MEDIUMINT", "INT", "INTEGER", "BIGINT":
		return Integer
	case "FLOAT", "DOUBLE":
		return Float
	case "DECIMAL", "NUMERIC":
		return Decimal
	case "DATE", "TIME", "DATETIME", "TIMESTAMP", "YEAR":
		return DateTime
	case "CHAR", "VARCHAR", "TEXT", "TINYTEXT", "MEDIUMTEXT", "LONGTEXT":
		return String
	case "BINARY", "VARBINARY", "BLOB", "TINYBLOB", "MEDIUMBLOB", "LONGBLOB":
		return Binary
	case "JSON":
		return JSON
	case "BIT":
		return Bit
	case "GEOMETRY":
		return Geometry
	case "ENUM":
		return Enum
	case "SET":
		return Set
	case "NULL":
		return Null
	default:
		return Unknown
	}
}
