package items

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"give4need/internal/common/errors"
	"give4need/internal/common/logger"
	"give4need/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func newTestRepository(t *testing.T) (*Repository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRepository(db, logger.NewTestLogger(t)), mock, db
}

func docRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "doc"})
}

// ==========================
// Reads
// ==========================

func TestListAvailable(t *testing.T) {
	repo, mock, _ := newTestRepository(t)

	mock.ExpectQuery(queryAvailable).WillReturnRows(docRows().
		AddRow("b", `{"title":"Bike","userId":"u1","available":true,"latitude":1.35,"longitude":103.8}`).
		AddRow("bad", `{"title":"No owner"}`).
		AddRow("a", `{"title":"Lamp","userId":"u2","available":true,"latitude":"n/a"}`))

	items, err := repo.ListAvailable(context.Background())
	require.NoError(t, err)

	require.Len(t, items, 2)
	assert.Equal(t, "b", items[0].ID)
	assert.Equal(t, "a", items[1].ID)
	_, ok := items[1].Position()
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListAvailable_QueryError(t *testing.T) {
	repo, mock, _ := newTestRepository(t)
	mock.ExpectQuery(queryAvailable).WillReturnError(fmt.Errorf("connection refused"))

	_, err := repo.ListAvailable(context.Background())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeItemFetchFailed))
}

func TestListByOwnerAndCategory(t *testing.T) {
	repo, mock, _ := newTestRepository(t)

	mock.ExpectQuery(queryByOwner).WithArgs("u1").WillReturnRows(docRows().
		AddRow("new", `{"title":"New","userId":"u1","datetime":"2024-05-02T00:00:00Z"}`).
		AddRow("old", `{"title":"Old","userId":"u1","datetime":"2024-05-01T00:00:00Z"}`))
	mock.ExpectQuery(queryByCategory).WithArgs("Furniture").WillReturnRows(docRows().
		AddRow("chair", `{"title":"Chair","userId":"u3","category":"Furniture"}`))

	mine, err := repo.ListByOwner(context.Background(), "u1")
	require.NoError(t, err)
	assert.Len(t, mine, 2)
	assert.Equal(t, time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC), mine[0].Datetime)

	furniture, err := repo.ListByCategory(context.Background(), "Furniture")
	require.NoError(t, err)
	require.Len(t, furniture, 1)
	assert.Equal(t, "Furniture", furniture[0].Category)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGet(t *testing.T) {
	repo, mock, _ := newTestRepository(t)

	mock.ExpectQuery(queryByID).WithArgs("item-1").WillReturnRows(docRows().
		AddRow("item-1", `{"title":"Lamp","userId":"u1","available":false}`))
	mock.ExpectQuery(queryByID).WithArgs("missing").WillReturnError(sql.ErrNoRows)

	item, err := repo.Get(context.Background(), "item-1")
	require.NoError(t, err)
	assert.False(t, item.IsAvailable())

	_, err = repo.Get(context.Background(), "missing")
	assert.True(t, errors.HasCode(err, errors.ErrCodeItemNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// Writes
// ==========================

func TestCreateUpdateDelete(t *testing.T) {
	repo, mock, _ := newTestRepository(t)
	item := &models.Item{
		ID:        "item-1",
		Title:     "Lamp",
		Condition: "Good",
		Images:    []string{"a.jpg"},
		UserID:    "u1",
		Datetime:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Available: models.Bool(true),
	}

	mock.ExpectExec(insertItem).WithArgs("item-1", sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(updateItem).WithArgs("item-1", sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(updateItem).WithArgs("item-1", sqlmock.AnyArg()).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(deleteItem).WithArgs("item-1").WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Create(context.Background(), item))
	require.NoError(t, repo.Update(context.Background(), item))

	err := repo.Update(context.Background(), item)
	assert.True(t, errors.HasCode(err, errors.ErrCodeItemNotFound))

	require.NoError(t, repo.Delete(context.Background(), "item-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_DatabaseError(t *testing.T) {
	repo, mock, _ := newTestRepository(t)
	mock.ExpectExec(insertItem).WillReturnError(fmt.Errorf("duplicate key"))

	err := repo.Create(context.Background(), &models.Item{ID: "x", UserID: "u"})
	assert.True(t, errors.HasCode(err, errors.ErrCodeDatabaseFailed))
}
