// Package search keeps the listing search index in Elasticsearch.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"give4need/internal/common/database"
	apperrors "give4need/internal/common/errors"
	"give4need/internal/common/logger"
	"give4need/internal/models"

	"github.com/elastic/go-elasticsearch/v8/esapi"
)

var ErrMissingIndex = errors.New("index name is required")

type Index struct {
	es     *database.ElasticsearchClient
	index  string
	logger logger.Logger
}

func NewIndex(es *database.ElasticsearchClient, index string, log logger.Logger) (*Index, error) {
	if index == "" {
		return nil, ErrMissingIndex
	}
	return &Index{es: es, index: index, logger: log.WithFields(map[string]interface{}{"index": index})}, nil
}

// EnsureIndex creates the index with its mapping if it does not exist yet.
func (x *Index) EnsureIndex(ctx context.Context) error {
	res, err := esapi.IndicesExistsRequest{Index: []string{x.index}}.Do(ctx, x.es.Client)
	if err != nil {
		return apperrors.NewSearchIndexFailedError("", err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	res, err = esapi.IndicesCreateRequest{Index: x.index, Body: strings.NewReader(IndexMapping)}.Do(ctx, x.es.Client)
	if err != nil {
		return apperrors.NewSearchIndexFailedError("", err)
	}
	defer res.Body.Close()
	if res.IsError() && !strings.Contains(readBody(res.Body), "resource_already_exists_exception") {
		return apperrors.NewSearchIndexFailedError("", fmt.Errorf("create index: %s", res.Status()))
	}
	x.logger.Info("search index created", nil)
	return nil
}

// Put indexes or replaces one listing.
func (x *Index) Put(ctx context.Context, item *models.Item) error {
	doc, err := item.Document()
	if err != nil {
		return apperrors.NewSearchIndexFailedError(item.ID, err)
	}

	res, err := esapi.IndexRequest{
		Index:      x.index,
		DocumentID: item.ID,
		Body:       bytes.NewReader(doc),
	}.Do(ctx, x.es.Client)
	if err != nil {
		return apperrors.NewSearchIndexFailedError(item.ID, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return apperrors.NewSearchIndexFailedError(item.ID, fmt.Errorf("index: %s", res.Status()))
	}

	x.logger.Debug("listing indexed", map[string]interface{}{"itemId": item.ID})
	return nil
}

// Remove deletes one listing. A listing that was never indexed is not an error.
func (x *Index) Remove(ctx context.Context, itemID string) error {
	res, err := esapi.DeleteRequest{Index: x.index, DocumentID: itemID}.Do(ctx, x.es.Client)
	if err != nil {
		return apperrors.NewSearchIndexFailedError(itemID, err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return apperrors.NewSearchIndexFailedError(itemID, fmt.Errorf("delete: %s", res.Status()))
	}
	return nil
}

type searchResponse struct {
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []struct {
			ID     string          `json:"_id"`
			Source json.RawMessage `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// Search runs q and returns matching listings in rank order.
func (x *Index) Search(ctx context.Context, q Query) ([]*models.Item, error) {
	req, err := BuildSearchRequest(x.index, q)
	if err != nil {
		return nil, apperrors.NewSearchQueryFailedError(err)
	}

	res, err := req.Do(ctx, x.es.Client)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, apperrors.NewTimeoutError("elasticsearch", err)
		}
		return nil, apperrors.NewSearchQueryFailedError(err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, apperrors.NewSearchQueryFailedError(fmt.Errorf("search: %s", res.Status()))
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, apperrors.NewSearchQueryFailedError(err)
	}

	items := make([]*models.Item, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		item, err := models.ItemFromDocument(hit.ID, hit.Source)
		if err != nil {
			x.logger.Warn("skipping unreadable search hit", map[string]interface{}{"itemId": hit.ID, "error": err})
			continue
		}
		items = append(items, item)
	}

	x.logger.Debug("search completed", map[string]interface{}{
		"query": q.Text,
		"total": parsed.Hits.Total.Value,
		"hits":  len(items),
	})
	return items, nil
}

func readBody(r io.Reader) string {
	b, _ := io.ReadAll(r)
	return string(b)
}
