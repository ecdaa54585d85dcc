package persistence

// IsSQL reports whether s is backed by a relational database.
func IsSQL(s EntryStore) bool {
	switch s.PersistenceType() {
	case TypePostgres, TypeSQLite:
		return true
	}
	return false
}

// IsInMemory reports whether s loses its contents on restart.
func IsInMemory(s EntryStore) bool {
	return s.PersistenceType() == TypeInMemory
}

// Describe returns a human readable name of the backing store, as shown on
// the appliance status page.
func Describe(s EntryStore) string {
	switch s.PersistenceType() {
	case TypeInMemory:
		return "In-memory"
	case TypeFile:
		return "JSON file"
	case TypePostgres:
		return "PostgreSQL"
	case TypeSQLite:
		return "SQLite"
	default:
		return s.PersistenceType()
	}
}
