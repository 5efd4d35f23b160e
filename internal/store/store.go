// Package store loads the paper arena and shared keyword set from
// Postgres — the "external collaborator" spec §6's set_papers expects to
// be fed by, following the teacher's internal/db connection-and-query
// style but hand-written against database/sql since this module's schema
// has no sqlc generator in tree.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/onnwee/paperscape-layout/internal/circuitbreaker"
	"github.com/onnwee/paperscape-layout/internal/metrics"
	"github.com/onnwee/paperscape-layout/internal/model"
	"github.com/onnwee/paperscape-layout/internal/secrets"
)

// Store loads papers and keywords from a Postgres database. The schema
// is expected to carry the tables papers, paper_refs, paper_categories,
// keywords and paper_keywords; this module does not create them.
type Store struct {
	db *sql.DB
	cb *circuitbreaker.CircuitBreaker
}

// Open connects to Postgres and verifies the connection with a ping,
// mirroring the teacher's db.Init/InitDB shape.
func Open(connStr string) (*Store, error) {
	conn, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", secrets.MaskURL(connStr), err)
	}
	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("ping database %s: %w", secrets.MaskURL(connStr), err)
	}
	return &Store{
		db: conn,
		cb: circuitbreaker.New(circuitbreaker.Config{
			Name:             "store",
			FailureThreshold: 5,
			SuccessThreshold: 2,
			Timeout:          30 * time.Second,
		}),
	}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error { return s.db.Close() }

// LoadKeywords loads the shared keyword set, which is reused (and
// re-scoped per category) by every GraphConditioner pass.
func (s *Store) LoadKeywords(ctx context.Context) ([]*model.Keyword, error) {
	start := time.Now()
	var rows *sql.Rows
	err := s.cb.Call(func() error {
		var qErr error
		rows, qErr = s.db.QueryContext(ctx, `SELECT text FROM keywords ORDER BY text`)
		return qErr
	})
	metrics.StoreFetchDuration.WithLabelValues("keywords").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.StoreFetchErrors.WithLabelValues("keywords").Inc()
		return nil, fmt.Errorf("load keywords: %w", err)
	}
	defer rows.Close()

	var keywords []*model.Keyword
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			metrics.StoreFetchErrors.WithLabelValues("keywords").Inc()
			return nil, fmt.Errorf("scan keyword: %w", err)
		}
		keywords = append(keywords, &model.Keyword{Text: text})
	}
	return keywords, rows.Err()
}

// LoadPapers loads every paper in the arena, sorted ascending by id
// (spec §3's loader ownership rule), wiring up Refs/Cites/Keywords
// in-memory. It does not set Index — callers must pass the result
// through mapenv.SetPapers, which assigns Index after sorting.
func (s *Store) LoadPapers(ctx context.Context, keywords []*model.Keyword) ([]*model.Paper, error) {
	byText := make(map[string]*model.Keyword, len(keywords))
	for _, kw := range keywords {
		byText[kw.Text] = kw
	}

	papers, byID, err := s.loadPaperRows(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.loadCategories(ctx, byID); err != nil {
		return nil, err
	}
	if err := s.loadRefs(ctx, byID); err != nil {
		return nil, err
	}
	if err := s.loadPaperKeywords(ctx, byID, byText); err != nil {
		return nil, err
	}
	return papers, nil
}

func (s *Store) loadPaperRows(ctx context.Context) ([]*model.Paper, map[int64]*model.Paper, error) {
	start := time.Now()
	var rows *sql.Rows
	err := s.cb.Call(func() error {
		var qErr error
		rows, qErr = s.db.QueryContext(ctx, `SELECT id, title, main_cat FROM papers ORDER BY id`)
		return qErr
	})
	metrics.StoreFetchDuration.WithLabelValues("papers").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.StoreFetchErrors.WithLabelValues("papers").Inc()
		return nil, nil, fmt.Errorf("load papers: %w", err)
	}
	defer rows.Close()

	var papers []*model.Paper
	byID := make(map[int64]*model.Paper)
	for rows.Next() {
		var id int64
		var title string
		var mainCat int
		if err := rows.Scan(&id, &title, &mainCat); err != nil {
			metrics.StoreFetchErrors.WithLabelValues("papers").Inc()
			return nil, nil, fmt.Errorf("scan paper: %w", err)
		}
		p := &model.Paper{ID: id, Title: title, MainCat: model.Category(mainCat)}
		papers = append(papers, p)
		byID[id] = p
	}
	return papers, byID, rows.Err()
}

func (s *Store) loadCategories(ctx context.Context, byID map[int64]*model.Paper) error {
	start := time.Now()
	var rows *sql.Rows
	err := s.cb.Call(func() error {
		var qErr error
		rows, qErr = s.db.QueryContext(ctx,
			`SELECT paper_id, category, ordinal FROM paper_categories ORDER BY paper_id, ordinal`)
		return qErr
	})
	metrics.StoreFetchDuration.WithLabelValues("paper_categories").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.StoreFetchErrors.WithLabelValues("paper_categories").Inc()
		return fmt.Errorf("load paper categories: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var paperID int64
		var category, ordinal int
		if err := rows.Scan(&paperID, &category, &ordinal); err != nil {
			metrics.StoreFetchErrors.WithLabelValues("paper_categories").Inc()
			return fmt.Errorf("scan paper category: %w", err)
		}
		p, ok := byID[paperID]
		if !ok || ordinal < 0 || ordinal >= model.MaxCats {
			continue
		}
		p.ExtraCats[ordinal] = model.Category(category)
	}
	return rows.Err()
}

func (s *Store) loadRefs(ctx context.Context, byID map[int64]*model.Paper) error {
	start := time.Now()
	var rows *sql.Rows
	err := s.cb.Call(func() error {
		var qErr error
		rows, qErr = s.db.QueryContext(ctx,
			`SELECT citer_id, cited_id FROM paper_refs ORDER BY citer_id, cited_id`)
		return qErr
	})
	metrics.StoreFetchDuration.WithLabelValues("paper_refs").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.StoreFetchErrors.WithLabelValues("paper_refs").Inc()
		return fmt.Errorf("load paper refs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var citerID, citedID int64
		if err := rows.Scan(&citerID, &citedID); err != nil {
			metrics.StoreFetchErrors.WithLabelValues("paper_refs").Inc()
			return fmt.Errorf("scan paper ref: %w", err)
		}
		citer, ok1 := byID[citerID]
		cited, ok2 := byID[citedID]
		if !ok1 || !ok2 {
			continue
		}
		citer.Refs = append(citer.Refs, cited)
		cited.Cites = append(cited.Cites, citer)
	}
	return rows.Err()
}

func (s *Store) loadPaperKeywords(ctx context.Context, byID map[int64]*model.Paper, byText map[string]*model.Keyword) error {
	start := time.Now()
	var rows *sql.Rows
	err := s.cb.Call(func() error {
		var qErr error
		rows, qErr = s.db.QueryContext(ctx,
			`SELECT pk.paper_id, k.text FROM paper_keywords pk JOIN keywords k ON k.id = pk.keyword_id`)
		return qErr
	})
	metrics.StoreFetchDuration.WithLabelValues("paper_keywords").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.StoreFetchErrors.WithLabelValues("paper_keywords").Inc()
		return fmt.Errorf("load paper keywords: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var paperID int64
		var text string
		if err := rows.Scan(&paperID, &text); err != nil {
			metrics.StoreFetchErrors.WithLabelValues("paper_keywords").Inc()
			return fmt.Errorf("scan paper keyword: %w", err)
		}
		p, ok := byID[paperID]
		kw, kwOK := byText[text]
		if !ok || !kwOK {
			continue
		}
		p.Keywords = append(p.Keywords, kw)
	}
	return rows.Err()
}
