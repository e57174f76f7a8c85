// Package journal archives the balance journal to Elasticsearch.
package journal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/fadedpez/numberledger/pkg/entities"
	"github.com/fadedpez/numberledger/pkg/metrics"
)

// DefaultBatchSize bounds the entries sent in one bulk request
const DefaultBatchSize = 500

// Store is the part of the ledger repository the exporter reads and flags
type Store interface {
	UnexportedJournal(ctx context.Context, limit int) ([]*entities.JournalEntry, error)
	MarkJournalExported(ctx context.Context, ids []string) error
}

// Config holds the archive connection settings
type Config struct {
	URL         string
	Username    string
	Password    string
	IndexPrefix string
	BatchSize   int

	// Transport overrides the HTTP transport, used by tests
	Transport http.RoundTripper
}

// Exporter copies unexported journal entries into monthly indices
type Exporter struct {
	store     Store
	client    *elasticsearch.Client
	prefix    string
	batchSize int
	log       zerolog.Logger
	metrics   *metrics.Ledger

	mu      sync.Mutex
	indices map[string]bool
}

type document struct {
	EntryID      string          `json:"entry_id"`
	UserID       int64           `json:"user_id"`
	Wallet       string          `json:"wallet"`
	Amount       decimal.Decimal `json:"amount"`
	Type         string          `json:"type"`
	ReferenceID  int64           `json:"reference_id,omitempty"`
	Description  string          `json:"description"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
	Timestamp    time.Time       `json:"timestamp"`
}

type bulkResponse struct {
	Errors bool `json:"errors"`
	Items  []map[string]struct {
		ID     string `json:"_id"`
		Status int    `json:"status"`
		Error  *struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error"`
	} `json:"items"`
}

const journalMapping = `{
	"mappings": {
		"properties": {
			"entry_id": { "type": "keyword" },
			"user_id": { "type": "long" },
			"wallet": { "type": "keyword" },
			"amount": { "type": "scaled_float", "scaling_factor": 100 },
			"type": { "type": "keyword" },
			"reference_id": { "type": "long" },
			"description": { "type": "text" },
			"balance_after": { "type": "scaled_float", "scaling_factor": 100 },
			"timestamp": { "type": "date" }
		}
	}
}`

// NewExporter creates an exporter and its Elasticsearch client
func NewExporter(store Store, cfg Config, log zerolog.Logger, m *metrics.Ledger) (*Exporter, error) {
	esCfg := elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Transport: cfg.Transport,
	}

	// Add authentication if provided
	if cfg.Username != "" && cfg.Password != "" {
		esCfg.Username = cfg.Username
		esCfg.Password = cfg.Password
	}

	client, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("error creating Elasticsearch client: %w", err)
	}

	if cfg.IndexPrefix == "" {
		cfg.IndexPrefix = "numberledger"
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}

	return &Exporter{
		store:     store,
		client:    client,
		prefix:    cfg.IndexPrefix,
		batchSize: cfg.BatchSize,
		log:       log,
		metrics:   m,
		indices:   make(map[string]bool),
	}, nil
}

// IndexFor names the monthly index an entry belongs to
func (e *Exporter) IndexFor(at time.Time) string {
	return fmt.Sprintf("%s_journal_%s", e.prefix, at.UTC().Format("2006-01"))
}

// Export archives pending entries batch by batch and returns how many were stored
func (e *Exporter) Export(ctx context.Context) (int, error) {
	total := 0
	for {
		entries, err := e.store.UnexportedJournal(ctx, e.batchSize)
		if err != nil {
			return total, fmt.Errorf("error loading journal: %w", err)
		}
		if len(entries) == 0 {
			return total, nil
		}

		stored, err := e.exportBatch(ctx, entries)
		if len(stored) > 0 {
			if markErr := e.store.MarkJournalExported(ctx, stored); markErr != nil {
				return total, fmt.Errorf("error marking journal exported: %w", markErr)
			}
			total += len(stored)
			e.metrics.Exported(len(stored))
		}
		if err != nil {
			return total, err
		}

		// A partial batch means the backlog is drained; a rejected entry stops the loop too
		if len(entries) < e.batchSize || len(stored) < len(entries) {
			return total, nil
		}
	}
}

// Run is the scheduler task form of Export
func (e *Exporter) Run(ctx context.Context) error {
	n, err := e.Export(ctx)
	if n > 0 {
		e.log.Info().Int("entries", n).Msg("journal exported")
	}
	return err
}

func (e *Exporter) exportBatch(ctx context.Context, entries []*entities.JournalEntry) ([]string, error) {
	var body bytes.Buffer
	for _, entry := range entries {
		index := e.IndexFor(entry.Timestamp)
		if err := e.ensureIndex(ctx, index); err != nil {
			return nil, err
		}

		action := map[string]map[string]string{
			"index": {"_index": index, "_id": entry.ID},
		}
		if err := writeLine(&body, action); err != nil {
			return nil, err
		}
		if err := writeLine(&body, toDocument(entry)); err != nil {
			return nil, err
		}
	}

	res, err := e.client.Bulk(
		bytes.NewReader(body.Bytes()),
		e.client.Bulk.WithContext(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("error sending journal batch: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("error sending journal batch: %s", res.String())
	}

	var parsed bulkResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("error decoding bulk response: %w", err)
	}

	stored := make([]string, 0, len(entries))
	for _, item := range parsed.Items {
		for _, result := range item {
			if result.Error != nil || result.Status >= 300 {
				reason := ""
				if result.Error != nil {
					reason = result.Error.Reason
				}
				e.log.Warn().Str("entry", result.ID).Int("status", result.Status).Str("reason", reason).Msg("journal entry rejected")
				continue
			}
			stored = append(stored, result.ID)
		}
	}
	return stored, nil
}

// ensureIndex creates the index with the journal mapping the first time it is seen
func (e *Exporter) ensureIndex(ctx context.Context, index string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.indices[index] {
		return nil
	}

	res, err := e.client.Indices.Exists([]string{index}, e.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("error checking if journal index exists: %w", err)
	}
	res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		req := esapi.IndicesCreateRequest{
			Index: index,
			Body:  bytes.NewReader([]byte(journalMapping)),
		}

		res, err := req.Do(ctx, e.client)
		if err != nil {
			return fmt.Errorf("error creating journal index: %w", err)
		}
		defer res.Body.Close()

		if res.IsError() {
			return fmt.Errorf("error creating journal index: %s", res.String())
		}
		e.log.Info().Str("index", index).Msg("created journal index")
	default:
		return fmt.Errorf("error checking if journal index exists: status %d", res.StatusCode)
	}

	e.indices[index] = true
	return nil
}

func toDocument(entry *entities.JournalEntry) document {
	return document{
		EntryID:      entry.ID,
		UserID:       entry.UserID,
		Wallet:       string(entry.Wallet),
		Amount:       entry.Amount,
		Type:         string(entry.Type),
		ReferenceID:  entry.ReferenceID,
		Description:  entry.Description,
		BalanceAfter: entry.BalanceAfter,
		Timestamp:    entry.Timestamp.UTC(),
	}
}

func writeLine(buf *bytes.Buffer, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("error marshaling journal line: %w", err)
	}
	buf.Write(data)
	buf.WriteByte('\n')
	return nil
}
