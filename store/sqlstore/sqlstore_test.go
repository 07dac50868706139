/*
   Copyright 2025 The DIRPX Authors.

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

package sqlstore_test

import (
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dirpx.dev/prefx/store"
	"dirpx.dev/prefx/store/sqlstore"
)

func openSQLite(t *testing.T) *sqlstore.Backend {
	t.Helper()
	b, err := sqlstore.OpenSQLite(filepath.Join(t.TempDir(), "prefs.db"), "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestSQLite_SaveLoadDelete(t *testing.T) {
	ctx := context.Background()
	b := openSQLite(t)

	_, ok, err := b.Load(ctx, "volume")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, b.Save(ctx, "volume", 45))
	require.NoError(t, b.Save(ctx, "volume", int64(60)))
	v, ok, err := b.Load(ctx, "volume")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "60", v)

	require.NoError(t, b.Delete(ctx, "volume"))
	_, ok, err = b.Load(ctx, "volume")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLite_ReopenKeepsValues(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "prefs.db")

	b, err := sqlstore.OpenSQLite(path, "settings")
	require.NoError(t, err)
	require.NoError(t, b.Save(ctx, "theme", "dark"))
	require.NoError(t, b.Close())

	b, err = sqlstore.OpenSQLite(path, "settings")
	require.NoError(t, err)
	defer b.Close()
	v, _, err := b.Load(ctx, "theme")
	require.NoError(t, err)
	assert.Equal(t, "dark", v)
}

func TestSQLite_BehindStore(t *testing.T) {
	ctx := context.Background()
	s := store.New(openSQLite(t))

	s.Put("ratio", 0.75)
	require.NoError(t, s.Flush(ctx))
	require.NoError(t, s.Commit(ctx, "enabled", true))

	v, ok, err := s.Lookup(ctx, "ratio")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "0.75", v)

	v, _, _ = s.Lookup(ctx, "enabled")
	assert.Equal(t, "true", v)
	require.NoError(t, s.Close())
}

func TestNew_InvalidTable(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	_, err = sqlstore.New(context.Background(), db, sqlstore.SQLite, "prefs; DROP TABLE x")
	assert.ErrorIs(t, err, sqlstore.ErrInvalidTable)
}

func TestPostgres_QueriesUseNumberedPlaceholders(t *testing.T) {
	ctx := context.Background()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS prefs")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT pref_value FROM prefs WHERE pref_key = $1")).
		WithArgs("theme").
		WillReturnRows(sqlmock.NewRows([]string{"pref_value"}).AddRow("dark"))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO prefs (pref_key, pref_value) VALUES ($1, $2) ON CONFLICT (pref_key) DO UPDATE")).
		WithArgs("volume", "45").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM prefs WHERE pref_key = $1")).
		WithArgs("volume").
		WillReturnResult(sqlmock.NewResult(0, 1))

	b, err := sqlstore.New(ctx, db, sqlstore.Postgres, "")
	require.NoError(t, err)

	v, ok, err := b.Load(ctx, "theme")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "dark", v)

	require.NoError(t, b.Save(ctx, "volume", 45))
	require.NoError(t, b.Delete(ctx, "volume"))
	require.NoError(t, b.Close())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommit_PropagatesDatabaseError(t *testing.T) {
	ctx := context.Background()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	boom := errors.New("connection reset")
	mock.ExpectExec("CREATE TABLE").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO prefs").WithArgs("k", "v").WillReturnError(boom)

	b, err := sqlstore.New(ctx, db, sqlstore.SQLite, "prefs")
	require.NoError(t, err)
	s := store.New(b)
	defer s.Close()

	err = s.Commit(ctx, "k", "v")
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoad_DatabaseError(t *testing.T) {
	ctx := context.Background()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT pref_value").WillReturnError(errors.New("timeout"))

	b, err := sqlstore.New(ctx, db, sqlstore.SQLite, "prefs")
	require.NoError(t, err)

	_, _, err = b.Load(ctx, "k")
	assert.Error(t, err)
}

func TestNew_CreateTableError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE").WillReturnError(errors.New("read-only"))
	_, err = sqlstore.New(context.Background(), db, sqlstore.SQLite, "prefs")
	assert.Error(t, err)
}
