package search

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	meili "github.com/meilisearch/meilisearch-go"
)

// DefaultIndexUID is the Meilisearch index used when none is configured.
const DefaultIndexUID = "pages"

// Meili implements Index via Meilisearch.
type Meili struct {
	client  meili.ServiceManager
	uid     string
	healthy atomic.Bool
	done    chan struct{}
	logger  *slog.Logger
}

// NewMeili creates a Meilisearch client and configures the page index. An
// unreachable server is not an error: the index reports unhealthy and a
// background loop reconfigures it once the server comes back.
func NewMeili(url, apiKey, uid string, logger *slog.Logger) *Meili {
	if uid == "" {
		uid = DefaultIndexUID
	}
	m := &Meili{
		client: meili.New(url, meili.WithAPIKey(apiKey)),
		uid:    uid,
		done:   make(chan struct{}),
		logger: logger,
	}

	if _, err := m.client.Health(); err != nil {
		logger.Warn("meilisearch unavailable", "url", url, "error", err)
		m.healthy.Store(false)
	} else {
		m.healthy.Store(true)
		m.configureIndex()
	}

	go m.healthLoop()
	return m
}

func (m *Meili) configureIndex() {
	if _, err := m.client.CreateIndex(&meili.IndexConfig{Uid: m.uid, PrimaryKey: "id"}); err != nil {
		m.logger.Debug("create search index (may already exist)", "index", m.uid, "error", err)
	}

	index := m.client.Index(m.uid)
	filterable := []interface{}{"grant", "creator", "tags"}
	if _, err := index.UpdateFilterableAttributes(&filterable); err != nil {
		m.logger.Warn("update filterable attributes", "index", m.uid, "error", err)
	}
	searchable := []string{"path", "body", "tags"}
	if _, err := index.UpdateSearchableAttributes(&searchable); err != nil {
		m.logger.Warn("update searchable attributes", "index", m.uid, "error", err)
	}
}

func (m *Meili) healthLoop() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			_, err := m.client.Health()
			wasHealthy := m.healthy.Load()
			m.healthy.Store(err == nil)
			if err == nil && !wasHealthy {
				m.logger.Info("meilisearch recovered, reconfiguring index", "index", m.uid)
				m.configureIndex()
			}
		}
	}
}

// Close stops the background health monitor.
func (m *Meili) Close() {
	close(m.done)
}

func (m *Meili) Healthy() bool {
	return m.healthy.Load()
}

func (m *Meili) Upsert(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	if _, err := m.client.Index(m.uid).AddDocuments(docs, nil); err != nil {
		return fmt.Errorf("meilisearch add documents: %w", err)
	}
	return nil
}

func (m *Meili) Delete(ctx context.Context, ids []string) error {
	for _, id := range ids {
		if _, err := m.client.Index(m.uid).DeleteDocument(id, nil); err != nil {
			return fmt.Errorf("meilisearch delete %s: %w", id, err)
		}
	}
	return nil
}

func (m *Meili) Search(ctx context.Context, text string, offset, limit int) ([]Hit, int, error) {
	if !m.healthy.Load() {
		return nil, 0, fmt.Errorf("meilisearch unhealthy")
	}

	resp, err := m.client.MultiSearch(&meili.MultiSearchRequest{
		Queries: []*meili.SearchRequest{{
			IndexUID:              m.uid,
			Query:                 text,
			Limit:                 int64(limit),
			Offset:                int64(offset),
			AttributesToHighlight: []string{"body"},
			AttributesToCrop:      []string{"body"},
			CropLength:            24,
			HighlightPreTag:       "<mark>",
			HighlightPostTag:      "</mark>",
		}},
	})
	if err != nil {
		m.healthy.Store(false)
		return nil, 0, fmt.Errorf("meilisearch search: %w", err)
	}

	var hits []Hit
	total := 0
	for _, sr := range resp.Results {
		total += int(sr.EstimatedTotalHits)
		for _, h := range sr.Hits {
			hits = append(hits, Hit{ID: decodeString(h, "id"), Snippet: decodeFormattedString(h, "body")})
		}
	}
	return hits, total, nil
}

func decodeString(hit meili.Hit, key string) string {
	raw, ok := hit[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}

func decodeFormattedString(hit meili.Hit, key string) string {
	raw, ok := hit["_formatted"]
	if !ok {
		return ""
	}
	var formatted map[string]any
	if err := json.Unmarshal(raw, &formatted); err != nil {
		return ""
	}
	s, _ := formatted[key].(string)
	return strings.TrimSpace(s)
}
