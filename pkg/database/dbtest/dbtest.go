// Package dbtest opens throwaway in-memory SQLite databases with the
// application schema applied, for use in tests.
package dbtest

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"entgo.io/ent/dialect"
	"github.com/jordanlanch/dealpipe/pkg/database"
	_ "github.com/mattn/go-sqlite3"
)

var seq atomic.Int64

// Open returns a migrated client backed by a private in-memory database.
// The database is closed when the test ends.
func Open(t testing.TB) *database.Client {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared&_fk=1", name, seq.Add(1))

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		t.Fatalf("failed opening sqlite: %v", err)
	}
	// Keep connections alive; the in-memory database disappears with the last one.
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(0)

	client := database.NewFromDB(db, dialect.SQLite, nil)
	if err := client.Migrate(context.Background()); err != nil {
		t.Fatalf("failed migrating schema: %v", err)
	}

	t.Cleanup(func() { _ = client.Close() })
	return client
}

// CreateCompany inserts an active company and returns its id.
func CreateCompany(t testing.TB, c *database.Client, name string) int64 {
	t.Helper()

	now := time.Now().UTC()
	stmt := c.Builder().Insert("companies").
		Columns("name", "is_active", "subscription_status", "created_at", "updated_at").
		Values(name, true, "active", now, now)

	id, err := database.InsertReturningID(context.Background(), c.DB, stmt)
	if err != nil {
		t.Fatalf("failed creating company: %v", err)
	}
	return id
}

// CreateUser inserts a user with the given role in a company and returns its id.
func CreateUser(t testing.TB, c *database.Client, companyID int64, name, email, role string) int64 {
	t.Helper()

	now := time.Now().UTC()
	stmt := c.Builder().Insert("users").
		Columns("company_id", "name", "email", "role", "is_active", "created_at", "updated_at").
		Values(companyID, name, email, role, true, now, now)

	id, err := database.InsertReturningID(context.Background(), c.DB, stmt)
	if err != nil {
		t.Fatalf("failed creating user: %v", err)
	}
	return id
}
