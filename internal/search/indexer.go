// Package search defines the contract with the external search index. The
// engine itself lives outside this core; our only obligation is to hand it
// correct author search keys alongside the paper record whenever authors
// are ingested or edited.
package search

import (
	"context"
	"log/slog"
)

// AuthorEntry pairs an author's display name with its derived search key.
type AuthorEntry struct {
	DisplayName string
	SearchKey   string
}

// Document is the tuple submitted to the index per paper.
type Document struct {
	PaperUID string
	Title    string
	Abstract string
	Authors  []AuthorEntry
}

// Indexer consumes paper documents for indexing.
type Indexer interface {
	IndexPaper(ctx context.Context, doc Document) error
}

// LogIndexer is a stand-in Indexer that records submissions to the log.
// Used in development and tests when no search engine is attached.
type LogIndexer struct {
	log *slog.Logger
}

// NewLogIndexer creates a LogIndexer.
func NewLogIndexer(log *slog.Logger) *LogIndexer {
	return &LogIndexer{log: log}
}

// IndexPaper logs the document instead of indexing it. Never fails.
func (i *LogIndexer) IndexPaper(_ context.Context, doc Document) error {
	i.log.Debug("index paper",
		slog.String("paper_uid", doc.PaperUID),
		slog.Int("authors", len(doc.Authors)),
	)
	return nil
}
