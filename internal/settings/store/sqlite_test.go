package store

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"logininfo/internal/database"
	"logininfo/internal/settings"

	"github.com/DATA-DOG/go-sqlmock"
)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.NewDB(":memory:", database.DefaultConfig())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSQLiteStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewSQLite(newTestDB(t))

	rec, err := store.GetSingleton(ctx)
	if err != nil || rec != nil {
		t.Fatalf("GetSingleton on empty table = %v, %v", rec, err)
	}

	created, err := store.Create(ctx, settings.Options{"otherFeature": json.RawMessage(`{"x":1}`)})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if _, err := store.Create(ctx, settings.Options{}); !errors.Is(err, settings.ErrRecordExists) {
		t.Fatalf("second Create error = %v, want ErrRecordExists", err)
	}

	merged, err := settings.MergeRecordNumber(created.Options, "25")
	if err != nil {
		t.Fatalf("MergeRecordNumber error: %v", err)
	}
	if _, err := store.Update(ctx, created, merged); err != nil {
		t.Fatalf("Update error: %v", err)
	}

	got, err := store.GetSingleton(ctx)
	if err != nil {
		t.Fatalf("GetSingleton error: %v", err)
	}
	if got.ID != created.ID {
		t.Fatalf("singleton id changed: %d != %d", got.ID, created.ID)
	}
	if v := settings.ParseLoginInfo(got.Options).Value(); v != "25" {
		t.Fatalf("record number = %q, want 25", v)
	}
	if string(got.Options["otherFeature"]) != `{"x":1}` {
		t.Fatalf("otherFeature changed: %s", got.Options["otherFeature"])
	}
}

func TestSQLiteStoreUpdateMissing(t *testing.T) {
	store := NewSQLite(newTestDB(t))
	_, err := store.Update(context.Background(), &settings.Record{ID: 9}, settings.Options{})
	if !errors.Is(err, settings.ErrRecordNotFound) {
		t.Fatalf("Update error = %v, want ErrRecordNotFound", err)
	}
}

func TestSQLiteStoreTableMissing(t *testing.T) {
	db := newTestDB(t)
	if _, err := db.Exec(`DROP TABLE system_settings`); err != nil {
		t.Fatalf("drop table: %v", err)
	}
	store := NewSQLite(db)

	if _, err := store.GetSingleton(context.Background()); !errors.Is(err, settings.ErrStoreUnavailable) {
		t.Fatalf("GetSingleton error = %v, want ErrStoreUnavailable", err)
	}

	svc := settings.NewService(store, discardLogger())
	if err := svc.EnsureDefault(context.Background(), "10"); err != nil {
		t.Fatalf("EnsureDefault should skip an unavailable store, got %v", err)
	}
}

func TestSQLiteStoreMalformedOptions(t *testing.T) {
	db := newTestDB(t)
	if _, err := db.Exec(`INSERT INTO system_settings (title, options) VALUES ('', 'not json')`); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := NewSQLite(db).GetSingleton(context.Background()); err == nil {
		t.Fatalf("expected decode error for malformed options")
	}
}

var settingsColumns = []string{"id", "title", "options", "created_at", "updated_at"}

func TestSQLiteServiceUpdateIssuesSingleWrite(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unfulfilled expectations: %v", err)
		}
		mockDB.Close()
	})

	now := time.Now()
	before := `{"otherFeature":{"x":1},"pluginLoginInfo":{"recordNumber":"10"}}`
	after := `{"otherFeature":{"x":1},"pluginLoginInfo":{"recordNumber":"25"}}`

	mock.ExpectQuery(regexp.QuoteMeta(`FROM system_settings ORDER BY id LIMIT 1`)).
		WillReturnRows(sqlmock.NewRows(settingsColumns).AddRow(1, "", before, now, now))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE system_settings`)).
		WithArgs(after, int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM system_settings WHERE id = ?`)).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(settingsColumns).AddRow(1, "", after, now, now))

	svc := settings.NewService(NewSQLite(&database.DB{DB: mockDB}), discardLogger())
	actor := settings.Actor{ID: 1, Username: "admin", IsAdmin: true}
	if _, err := svc.UpdateRecordNumber(context.Background(), actor, "25"); err != nil {
		t.Fatalf("UpdateRecordNumber error: %v", err)
	}
}

func TestSQLiteServiceEnsureDefaultCreatesOnce(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unfulfilled expectations: %v", err)
		}
		mockDB.Close()
	})

	now := time.Now()
	doc := `{"pluginLoginInfo":{"recordNumber":"10"}}`

	mock.ExpectQuery(regexp.QuoteMeta(`FROM system_settings ORDER BY id LIMIT 1`)).
		WillReturnRows(sqlmock.NewRows(settingsColumns))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO system_settings`)).
		WithArgs("", doc).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM system_settings WHERE id = ?`)).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(settingsColumns).AddRow(1, "", doc, now, now))

	svc := settings.NewService(NewSQLite(&database.DB{DB: mockDB}), discardLogger())
	if err := svc.EnsureDefault(context.Background(), "10"); err != nil {
		t.Fatalf("EnsureDefault error: %v", err)
	}
}
