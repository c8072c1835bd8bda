package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/mailroom/core"
	"github.com/trezcool/mailroom/core/template"
	"github.com/trezcool/mailroom/storage/database"
)

// PrepareDB opens the TEST database, migrates it and empties the templates table.
// The test is skipped unless TEST_DBHOST is set.
func PrepareDB(t *testing.T) *sqlx.DB {
	t.Helper()
	if os.Getenv("TEST_DBHOST") == "" {
		t.Skip("TEST_DBHOST not set: skipping database test")
	}
	t.Setenv("ENV", "TEST")
	conf := core.NewConfig()

	if err := database.CreateIfNotExist(conf); err != nil {
		t.Fatalf("database.CreateIfNotExist() failed: %v", err)
	}
	db, err := database.OpenSqlx(conf)
	if err != nil {
		t.Fatalf("database.OpenSqlx() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(context.Background(), db.DB); err != nil {
		t.Fatalf("database.Migrate() failed: %v", err)
	}
	if _, err = db.Exec("TRUNCATE templates"); err != nil {
		t.Fatalf("truncating templates failed: %v", err)
	}
	return db
}

func CreateTemplate(
	t *testing.T,
	repo template.Repository,
	slug string,
	cat template.Category,
	isActive, isSystem bool,
	createdAt ...time.Time,
) template.Template {
	t.Helper()
	tstamp := time.Now().UTC().Truncate(time.Microsecond) // postgres precision
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC().Truncate(time.Microsecond)
	}
	tmpl := template.Template{
		ID:           uuid.NewString(),
		Slug:         slug,
		Name:         "Template " + slug,
		Category:     cat,
		Subject:      "Hello {{firstName}}",
		Body:         "<p>Hello {{firstName}}</p>",
		Placeholders: []string{"firstName"},
		IsActive:     isActive,
		IsSystem:     isSystem,
		CreatedAt:    tstamp,
		UpdatedAt:    tstamp,
	}
	tmpl, err := repo.CreateTemplate(context.Background(), tmpl)
	if err != nil {
		t.Fatalf("CreateTemplate() failed: %v", err)
	}
	return tmpl
}
