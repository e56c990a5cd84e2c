package plagiarism

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ppiankov/papercheck/internal/model"
)

// queryBatch bounds the number of bound parameters per IN query
const queryBatch = 500

const corpusSchema = `
CREATE TABLE IF NOT EXISTS documents (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	name     TEXT NOT NULL UNIQUE,
	added_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS shingles (
	hash   INTEGER NOT NULL,
	doc_id INTEGER NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	PRIMARY KEY (hash, doc_id)
);
CREATE INDEX IF NOT EXISTS idx_shingles_hash ON shingles(hash);
`

// Corpus is a SQLite store of reference documents, kept as shingle hashes
type Corpus struct {
	db *sql.DB
}

// CorpusDocument describes one stored reference document
type CorpusDocument struct {
	ID       int64
	Name     string
	AddedAt  time.Time
	Shingles int
}

// OpenCorpus opens or creates the corpus database at path
func OpenCorpus(path string) (*Corpus, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(corpusSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create corpus schema: %w", err)
	}
	return &Corpus{db: db}, nil
}

// Close closes the database
func (c *Corpus) Close() error {
	return c.db.Close()
}

// Add stores text under name, replacing any document of the same name.
// It returns the number of distinct shingles stored.
func (c *Corpus) Add(ctx context.Context, name, text string, shingleSize int) (int, error) {
	hashes := HashShingles(Shingles(text, shingleSize))
	if len(hashes) == 0 {
		return 0, fmt.Errorf("document %q has no usable sentences", name)
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE name = ?`, name); err != nil {
		return 0, fmt.Errorf("replace document: %w", err)
	}

	res, err := tx.ExecContext(ctx, `INSERT INTO documents (name, added_at) VALUES (?, ?)`, name, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("insert document: %w", err)
	}
	docID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("document id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO shingles (hash, doc_id) VALUES (?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare shingle insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, h := range hashes {
		if _, err := stmt.ExecContext(ctx, h, docID); err != nil {
			return 0, fmt.Errorf("insert shingle: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return len(hashes), nil
}

// List returns the stored documents ordered by name
func (c *Corpus) List(ctx context.Context) ([]CorpusDocument, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT d.id, d.name, d.added_at, COUNT(s.hash)
		FROM documents d LEFT JOIN shingles s ON s.doc_id = d.id
		GROUP BY d.id ORDER BY d.name`)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var docs []CorpusDocument
	for rows.Next() {
		var d CorpusDocument
		if err := rows.Scan(&d.ID, &d.Name, &d.AddedAt, &d.Shingles); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// Match looks hashes up and returns the share found anywhere in the corpus,
// plus the per-document share keyed by document name.
func (c *Corpus) Match(ctx context.Context, hashes []int64) (float64, map[string]float64, error) {
	if len(hashes) == 0 {
		return 0, nil, nil
	}

	matched := make(map[int64]bool)
	perDoc := make(map[int64]int)

	for start := 0; start < len(hashes); start += queryBatch {
		end := start + queryBatch
		if end > len(hashes) {
			end = len(hashes)
		}
		batch := hashes[start:end]

		args := make([]any, len(batch))
		for i, h := range batch {
			args[i] = h
		}
		query := `SELECT hash, doc_id FROM shingles WHERE hash IN (?` + strings.Repeat(",?", len(batch)-1) + `)`

		if err := c.scanMatches(ctx, query, args, matched, perDoc); err != nil {
			return 0, nil, err
		}
	}

	names, err := c.names(ctx)
	if err != nil {
		return 0, nil, err
	}

	total := float64(len(hashes))
	overlap := make(map[string]float64, len(perDoc))
	for id, n := range perDoc {
		overlap[names[id]] = float64(n) / total
	}
	return float64(len(matched)) / total, overlap, nil
}

func (c *Corpus) scanMatches(ctx context.Context, query string, args []any, matched map[int64]bool, perDoc map[int64]int) error {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("query shingles: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var hash, docID int64
		if err := rows.Scan(&hash, &docID); err != nil {
			return fmt.Errorf("scan shingle: %w", err)
		}
		matched[hash] = true
		perDoc[docID]++
	}
	return rows.Err()
}

func (c *Corpus) names(ctx context.Context) (map[int64]string, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT id, name FROM documents`)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	names := make(map[int64]string)
	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		names[id] = name
	}
	return names, rows.Err()
}

// CorpusScorer scores a document by its overlap with the reference corpus
type CorpusScorer struct {
	corpus     *Corpus
	size       int
	minOverlap float64
}

// NewCorpusScorer creates a scorer over corpus. Sources overlapping less than
// minOverlap are not listed.
func NewCorpusScorer(corpus *Corpus, shingleSize int, minOverlap float64) *CorpusScorer {
	if shingleSize <= 0 {
		shingleSize = DefaultShingleSize
	}
	return &CorpusScorer{corpus: corpus, size: shingleSize, minOverlap: minOverlap}
}

// Name returns the scorer identifier
func (s *CorpusScorer) Name() string { return "corpus" }

// Score returns the share of the document's shingles found in the corpus and
// the matching documents ordered by overlap, highest first.
func (s *CorpusScorer) Score(ctx context.Context, text string) (model.PlagiarismResult, error) {
	if s.corpus == nil {
		return model.PlagiarismResult{}, ErrUnavailable
	}

	hashes := HashShingles(Shingles(text, s.size))
	if len(hashes) == 0 {
		return model.SafePlagiarism(), nil
	}

	score, overlap, err := s.corpus.Match(ctx, hashes)
	if err != nil {
		return model.PlagiarismResult{}, err
	}

	sources := make([]string, 0, len(overlap))
	for name, share := range overlap {
		if share >= s.minOverlap && share > 0 {
			sources = append(sources, name)
		}
	}
	sort.Slice(sources, func(i, j int) bool {
		if overlap[sources[i]] != overlap[sources[j]] {
			return overlap[sources[i]] > overlap[sources[j]]
		}
		return sources[i] < sources[j]
	})

	return model.PlagiarismResult{Score: score, MatchingSources: sources}, nil
}

// Close closes the underlying corpus
func (s *CorpusScorer) Close() error {
	if s.corpus == nil {
		return nil
	}
	return s.corpus.Close()
}
