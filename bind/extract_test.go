package bind_test

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/latticedb/sqlorm/bind"
	"github.com/latticedb/sqlorm/catalog"
	"github.com/latticedb/sqlorm/errs"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func userColumns() []catalog.ColumnDescriptor {
	return []catalog.ColumnDescriptor{
		catalog.Col(userID, false, catalog.PrimaryKey()),
		catalog.Col(userName, false),
		catalog.Col(userAge, true),
	}
}

func TestExtract(t *testing.T) {
	db := openTestDB(t)
	_, err := db.Exec(`CREATE TABLE users ("id" INTEGER NOT NULL PRIMARY KEY, "name" TEXT NOT NULL, "age" INTEGER)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO users ("name", "age") VALUES ('alice', 30), ('ghost', NULL)`)
	require.NoError(t, err)

	rows, err := db.Query(`SELECT "id", "name", "age" FROM users ORDER BY "id"`)
	require.NoError(t, err)
	defer rows.Close()

	require.True(t, rows.Next())
	alice, err := bind.Extract[user](rows, userColumns())
	require.NoError(t, err)
	require.Equal(t, user{ID: 1, Name: "alice", Age: 30}, alice)

	require.True(t, rows.Next())
	ghost, err := bind.Extract[user](rows, userColumns())
	require.NoError(t, err)
	require.Equal(t, user{ID: 2, Name: "ghost", Age: 0}, ghost, "nullable NULL leaves the zero value")
}

func TestExtractUnexpectedNull(t *testing.T) {
	db := openTestDB(t)
	_, err := db.Exec(`CREATE TABLE users ("id" INTEGER NOT NULL PRIMARY KEY, "name" TEXT, "age" INTEGER)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO users ("name", "age") VALUES (NULL, 1)`)
	require.NoError(t, err)

	rows, err := db.Query(`SELECT "id", "name", "age" FROM users`)
	require.NoError(t, err)
	defer rows.Close()

	require.True(t, rows.Next())
	_, err = bind.Extract[user](rows, userColumns())
	require.Error(t, err)
	var un *errs.UnexpectedNull
	require.True(t, errors.As(err, &un))
	require.Equal(t, "name", un.Column)
}

type profile struct {
	ID  int64
	Bio *string
}

var (
	profileID = catalog.NewField[profile, int64]("id", catalog.FieldInt64,
		func(p *profile) int64 { return p.ID }, func(p *profile, v int64) { p.ID = v })
	profileBio = catalog.NewField[profile, *string]("bio", catalog.FieldText,
		func(p *profile) *string { return p.Bio }, func(p *profile, v *string) { p.Bio = v })
)

func profileColumns() []catalog.ColumnDescriptor {
	return []catalog.ColumnDescriptor{
		catalog.Col(profileID, false, catalog.PrimaryKey()),
		catalog.Col(profileBio, true),
	}
}

func TestExtractPointerNullable(t *testing.T) {
	db := openTestDB(t)
	_, err := db.Exec(`CREATE TABLE profiles ("id" INTEGER NOT NULL PRIMARY KEY, "bio" TEXT)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO profiles ("bio") VALUES ('hello'), (NULL)`)
	require.NoError(t, err)

	rows, err := db.Query(`SELECT "id", "bio" FROM profiles ORDER BY "id"`)
	require.NoError(t, err)
	defer rows.Close()

	require.True(t, rows.Next())
	withBio, err := bind.Extract[profile](rows, profileColumns())
	require.NoError(t, err)
	require.NotNil(t, withBio.Bio)
	require.Equal(t, "hello", *withBio.Bio)

	require.True(t, rows.Next())
	withoutBio, err := bind.Extract[profile](rows, profileColumns())
	require.NoError(t, err)
	require.Nil(t, withoutBio.Bio, "NULL decodes to a nil pointer, not a zero value")
}

func TestConvertValue(t *testing.T) {
	tests := []struct {
		name     string
		raw      any
		ft       catalog.FieldType
		expected any
	}{
		{"int64 passthrough", int64(5), catalog.FieldInt64, int64(5)},
		{"int64 narrows to int32", int64(5), catalog.FieldInt32, int32(5)},
		{"int64 to uint64", int64(5), catalog.FieldUint64, uint64(5)},
		{"int64 to float", int64(5), catalog.FieldFloat64, float64(5)},
		{"bytes to text", []byte("hi"), catalog.FieldText, "hi"},
		{"text to blob", "hi", catalog.FieldBlob, []byte("hi")},
		{"int to bool", int64(1), catalog.FieldBool, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := bind.ConvertValue(tt.raw, tt.ft)
			require.NoError(t, err)
			require.Equal(t, tt.expected, got)
		})
	}

	t.Run("unconvertible fails", func(t *testing.T) {
		_, err := bind.ConvertValue("nope", catalog.FieldFloat64)
		require.Error(t, err)
	})
}
