package store

import "database/sql"

// Store provides access to all storage repositories.
type Store struct {
	db        *sql.DB
	driver    string
	resources *ResourceStore
}

func NewStore(db *sql.DB, driver string) *Store {
	return &Store{
		db:        db,
		driver:    driver,
		resources: NewResourceStore(newQueryInterceptor(db), Placeholder(driver)),
	}
}

func (s *Store) Resources() *ResourceStore {
	return s.resources
}

// Driver returns the database driver name the store was opened with.
func (s *Store) Driver() string {
	return s.driver
}

func (s *Store) Close() error {
	return s.db.Close()
}
