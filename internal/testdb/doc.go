// Package testdb provides utilities for PostgreSQL integration tests.
//
// Tests call GetTestDBWithT, which skips the test when no database URL is
// configured and otherwise returns a migrated connection. The package only
// depends on goose and the pgx driver so that store implementations can use
// it from their own test files without import cycles.
package testdb
