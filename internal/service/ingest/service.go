// Package ingest brings papers from the external archive into storage:
// paper records, ordered author lists with derived search keys, and feed
// membership. It also owns the search-key backfill used after the key
// derivation rules change.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/scitelab/scite-backend/internal/domain"
	"github.com/scitelab/scite-backend/internal/search"
)

// PaperRepo is the slice of the paper repository the service needs.
type PaperRepo interface {
	Create(ctx context.Context, p *domain.Paper) error
	GetByUID(ctx context.Context, uid string) (*domain.Paper, error)
	InsertAuthors(ctx context.Context, paperUID string, authors []domain.Author) error
	ReplaceAuthors(ctx context.Context, paperUID string, authors []domain.Author) error
	ListAuthors(ctx context.Context, paperUID string) ([]domain.Author, error)
	ListAuthorsPage(ctx context.Context, afterID int64, limit int) ([]domain.Author, error)
	UpdateAuthorSearchKey(ctx context.Context, authorID int64, key string) error
}

// FeedRepo records paper membership in feeds.
type FeedRepo interface {
	AddPaper(ctx context.Context, feedUID, paperUID string, pubdate time.Time) error
}

// TxRunner runs a function inside a storage transaction.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// PaperInput is the archive-side description of a paper to ingest.
type PaperInput struct {
	UID         string
	Title       string
	Abstract    string
	URL         string
	Pubdate     time.Time
	UpdatedDate *time.Time
	FeedUIDs    []string
	Authors     []string
}

func (in PaperInput) validate() error {
	if strings.TrimSpace(in.UID) == "" {
		return domain.NewValidationError("uid", "must not be blank")
	}
	if strings.TrimSpace(in.Title) == "" {
		return domain.NewValidationError("title", "must not be blank")
	}
	if in.Pubdate.IsZero() {
		return domain.NewValidationError("pubdate", "must be set")
	}
	return nil
}

// Service ingests papers and maintains author search keys.
type Service struct {
	txm       TxRunner
	papers    PaperRepo
	feeds     FeedRepo
	indexer   search.Indexer
	batchSize int
	now       func() time.Time
	log       *slog.Logger
}

// New creates an ingest service. batchSize bounds the author pages read by
// ReindexAuthors (config ingest.reindex_batch_size).
func New(txm TxRunner, papers PaperRepo, feeds FeedRepo, indexer search.Indexer, batchSize int, log *slog.Logger) *Service {
	return &Service{
		txm:       txm,
		papers:    papers,
		feeds:     feeds,
		indexer:   indexer,
		batchSize: batchSize,
		now:       func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
		log:       log,
	}
}

func buildAuthors(paperUID string, names []string) []domain.Author {
	authors := make([]domain.Author, 0, len(names))
	for i, name := range names {
		authors = append(authors, domain.Author{
			PaperUID:  paperUID,
			Position:  i,
			FullName:  name,
			SearchKey: domain.SearchKeyForName(name),
		})
	}
	return authors
}

// CreatePaper stores a paper with its author list and feed memberships in
// one transaction, then submits it to the search index. An index failure is
// logged but does not fail the ingest; the paper is re-submitted on the
// next reindex.
func (s *Service) CreatePaper(ctx context.Context, in PaperInput) (*domain.Paper, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	now := s.now()
	p := &domain.Paper{
		UID:         in.UID,
		Title:       in.Title,
		Abstract:    in.Abstract,
		URL:         in.URL,
		Pubdate:     in.Pubdate,
		UpdatedDate: in.UpdatedDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	authors := buildAuthors(p.UID, in.Authors)

	err := s.txm.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.papers.Create(ctx, p); err != nil {
			return err
		}
		if err := s.papers.InsertAuthors(ctx, p.UID, authors); err != nil {
			return err
		}
		for _, feedUID := range in.FeedUIDs {
			if err := s.feeds.AddPaper(ctx, feedUID, p.UID, p.Pubdate); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create paper %s: %w", in.UID, err)
	}

	s.submitToIndex(ctx, p, authors)

	return p, nil
}

// UpdateAuthors replaces a paper's author list, rederiving every search
// key, and resubmits the paper to the index.
func (s *Service) UpdateAuthors(ctx context.Context, paperUID string, names []string) error {
	p, err := s.papers.GetByUID(ctx, paperUID)
	if err != nil {
		return fmt.Errorf("update authors for %s: %w", paperUID, err)
	}

	authors := buildAuthors(paperUID, names)

	err = s.txm.RunInTx(ctx, func(ctx context.Context) error {
		return s.papers.ReplaceAuthors(ctx, paperUID, authors)
	})
	if err != nil {
		return fmt.Errorf("update authors for %s: %w", paperUID, err)
	}

	s.submitToIndex(ctx, p, authors)

	return nil
}

func (s *Service) submitToIndex(ctx context.Context, p *domain.Paper, authors []domain.Author) {
	doc := search.Document{
		PaperUID: p.UID,
		Title:    p.Title,
		Abstract: p.Abstract,
		Authors:  make([]search.AuthorEntry, 0, len(authors)),
	}
	for _, a := range authors {
		doc.Authors = append(doc.Authors, search.AuthorEntry{
			DisplayName: a.FullName,
			SearchKey:   a.SearchKey,
		})
	}

	if err := s.indexer.IndexPaper(ctx, doc); err != nil {
		s.log.Warn("search index submission failed",
			slog.String("paper_uid", p.UID),
			slog.String("error", err.Error()),
		)
	}
}

// ReindexAuthors walks the whole author table in id order and rewrites
// every search key that no longer matches the current derivation, then
// resubmits the affected papers to the index. Run after the derivation
// rules change. Restartable: rows already holding the correct key are
// skipped, so a rerun resumes the remaining work.
func (s *Service) ReindexAuthors(ctx context.Context) (scanned, updated int, err error) {
	var afterID int64
	changedPapers := make(map[string]struct{})

	for {
		page, err := s.papers.ListAuthorsPage(ctx, afterID, s.batchSize)
		if err != nil {
			return scanned, updated, fmt.Errorf("reindex authors: %w", err)
		}
		if len(page) == 0 {
			break
		}

		for _, a := range page {
			scanned++
			key := domain.SearchKeyForName(a.FullName)
			if key == a.SearchKey {
				continue
			}
			if err := s.papers.UpdateAuthorSearchKey(ctx, a.ID, key); err != nil {
				return scanned, updated, fmt.Errorf("reindex authors: author %d: %w", a.ID, err)
			}
			updated++
			changedPapers[a.PaperUID] = struct{}{}
		}

		afterID = page[len(page)-1].ID

		s.log.Debug("reindex progress",
			slog.Int("scanned", scanned),
			slog.Int("updated", updated),
			slog.Int64("after_id", afterID),
		)
	}

	for uid := range changedPapers {
		p, err := s.papers.GetByUID(ctx, uid)
		if err != nil {
			return scanned, updated, fmt.Errorf("reindex authors: paper %s: %w", uid, err)
		}
		authors, err := s.papers.ListAuthors(ctx, uid)
		if err != nil {
			return scanned, updated, fmt.Errorf("reindex authors: paper %s: %w", uid, err)
		}
		s.submitToIndex(ctx, p, authors)
	}

	s.log.Info("author reindex finished",
		slog.Int("scanned", scanned),
		slog.Int("updated", updated),
		slog.Int("resubmitted", len(changedPapers)),
	)

	return scanned, updated, nil
}
