// Package items stores item documents in PostgreSQL, one JSONB document per row.
package items

import (
	"context"
	"database/sql"
	"fmt"

	"give4need/internal/common/errors"
	"give4need/internal/common/logger"
	"give4need/internal/common/validation"
	"give4need/internal/models"
)

const (
	selectColumns = `SELECT id, doc FROM items`

	queryAvailable  = selectColumns + ` WHERE doc->>'available' = 'true'`
	queryByID       = selectColumns + ` WHERE id = $1`
	queryLatest     = selectColumns + ` ORDER BY doc->>'datetime' DESC`
	queryByCategory = selectColumns + ` WHERE doc->>'category' = $1`
	queryByOwner    = selectColumns + ` WHERE doc->>'userId' = $1 ORDER BY doc->>'datetime' DESC`

	insertItem = `INSERT INTO items (id, doc) VALUES ($1, $2)`
	updateItem = `UPDATE items SET doc = $2 WHERE id = $1`
	deleteItem = `DELETE FROM items WHERE id = $1`
)

type Repository struct {
	db        *sql.DB
	validator *validation.Validator
	logger    logger.Logger
}

func NewRepository(db *sql.DB, log logger.Logger) *Repository {
	return &Repository{
		db:        db,
		validator: validation.MustValidator(validation.ItemDocumentSchema),
		logger:    log.WithFields(map[string]interface{}{"collection": "items"}),
	}
}

// ListAvailable returns items whose stored available flag is true, in table order.
func (r *Repository) ListAvailable(ctx context.Context) ([]*models.Item, error) {
	return r.list(ctx, "list_available", queryAvailable)
}

// ListLatest returns every item, newest first.
func (r *Repository) ListLatest(ctx context.Context) ([]*models.Item, error) {
	return r.list(ctx, "list_latest", queryLatest)
}

func (r *Repository) ListByCategory(ctx context.Context, category string) ([]*models.Item, error) {
	return r.list(ctx, "list_by_category", queryByCategory, category)
}

// ListByOwner returns the owner's items, newest first.
func (r *Repository) ListByOwner(ctx context.Context, userID string) ([]*models.Item, error) {
	return r.list(ctx, "list_by_owner", queryByOwner, userID)
}

// ListAll is used by reindexing.
func (r *Repository) ListAll(ctx context.Context) ([]*models.Item, error) {
	return r.list(ctx, "list_all", selectColumns)
}

func (r *Repository) Get(ctx context.Context, id string) (*models.Item, error) {
	var (
		rowID string
		doc   []byte
	)
	err := r.db.QueryRowContext(ctx, queryByID, id).Scan(&rowID, &doc)
	if err == sql.ErrNoRows {
		return nil, errors.NewItemNotFoundError(id)
	}
	if err != nil {
		return nil, errors.NewDatabaseError("get_item", err)
	}

	item, err := r.decode(rowID, doc)
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (r *Repository) Create(ctx context.Context, item *models.Item) error {
	doc, err := item.Document()
	if err != nil {
		return errors.NewDatabaseError("encode_item", err)
	}
	if _, err := r.db.ExecContext(ctx, insertItem, item.ID, doc); err != nil {
		return errors.NewDatabaseError("insert_item", err)
	}
	return nil
}

func (r *Repository) Update(ctx context.Context, item *models.Item) error {
	doc, err := item.Document()
	if err != nil {
		return errors.NewDatabaseError("encode_item", err)
	}
	res, err := r.db.ExecContext(ctx, updateItem, item.ID, doc)
	if err != nil {
		return errors.NewDatabaseError("update_item", err)
	}
	return requireRow(res, item.ID)
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, deleteItem, id)
	if err != nil {
		return errors.NewDatabaseError("delete_item", err)
	}
	return requireRow(res, id)
}

func requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.NewDatabaseError("rows_affected", err)
	}
	if n == 0 {
		return errors.NewItemNotFoundError(id)
	}
	return nil
}

func (r *Repository) list(ctx context.Context, op, query string, args ...interface{}) ([]*models.Item, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewItemFetchFailedError(fmt.Errorf("%s: %w", op, err))
	}
	defer rows.Close()

	out := []*models.Item{}
	for rows.Next() {
		var (
			id  string
			doc []byte
		)
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, errors.NewItemFetchFailedError(fmt.Errorf("%s scan: %w", op, err))
		}
		item, err := r.decode(id, doc)
		if err != nil {
			r.logger.Warn("skipping invalid item document", map[string]interface{}{
				"itemId": id,
				"error":  err,
			})
			continue
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewItemFetchFailedError(fmt.Errorf("%s rows: %w", op, err))
	}
	return out, nil
}

func (r *Repository) decode(id string, doc []byte) (*models.Item, error) {
	res, err := r.validator.ValidateJSON(doc)
	if err != nil {
		return nil, errors.NewInvalidDocumentError("items", id, err.Error())
	}
	if !res.Valid {
		return nil, errors.NewInvalidDocumentError("items", id, fmt.Sprint(res.GetErrorMessages()))
	}
	item, err := models.ItemFromDocument(id, doc)
	if err != nil {
		return nil, errors.NewInvalidDocumentError("items", id, err.Error())
	}
	return item, nil
}
