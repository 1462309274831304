// Integration tests against a real Postgres instance. Set KERI_TEST_DB to
// a postgres:// connection string to run them; otherwise they are skipped,
// matching how the rest of this module gates its database-backed tests.
package postgres

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"database/sql"
	"os"
	"testing"

	"github.com/keri-id/controller/internal/event"
	"github.com/keri-id/controller/internal/eventdb"
	"github.com/keri-id/controller/internal/primitive"
)

var testDB *sql.DB

func TestMain(m *testing.M) {
	connStr := os.Getenv("KERI_TEST_DB")
	if connStr == "" {
		os.Exit(0)
	}
	var err error
	testDB, err = sql.Open("postgres", connStr)
	if err != nil {
		panic("failed to connect to test database: " + err.Error())
	}
	if _, err := testDB.ExecContext(context.Background(), Schema); err != nil {
		panic("failed to apply schema: " + err.Error())
	}
	os.Exit(m.Run())
}

func testPrefix(t *testing.T) primitive.Identifier {
	t.Helper()
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	return primitive.NewBasicIdentifier(primitive.Ed25519, pub)
}

func TestPostgresAppendAndGetLog(t *testing.T) {
	s := New(testDB)
	prefix := testPrefix(t)
	d0, _ := primitive.Sum(primitive.Blake3_256, []byte("icp"))

	if err := s.AppendLog(prefix, eventdb.StoredEvent{Sn: 0, Digest: d0, Type: event.Icp, Raw: []byte("icp")}); err != nil {
		t.Fatal(err)
	}

	got, found, err := s.ExistingDigestAtSn(prefix, 0)
	if err != nil || !found || !got.Equal(d0) {
		t.Fatalf("got=%+v found=%v err=%v", got, found, err)
	}

	log, err := s.GetLog(prefix, eventdb.QueryParams{})
	if err != nil {
		t.Fatal(err)
	}
	if len(log) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(log))
	}
}
