package indexer

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
	"go.uber.org/zap"
)

const (
	docFile  = "file"
	docChunk = "chunk"

	// PathSearchLimit bounds the number of paths a path search returns.
	PathSearchLimit = 50
	// CodeSearchLimit bounds the number of chunks a code search returns.
	CodeSearchLimit = 10
)

// SearchIndex is the bleve index over file paths and chunk text.
type SearchIndex struct {
	index bleve.Index
	path  string
}

// OpenSearchIndex opens the index at path, creating it when missing. A
// corrupted index is deleted and rebuilt empty.
func OpenSearchIndex(path string, log *zap.SugaredLogger) (*SearchIndex, error) {
	idx, err := bleve.Open(path)
	if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
		idx, err = bleve.New(path, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("failed to create search index: %w", err)
		}
		log.Debugw("search index created", "path", path)
	} else if err != nil {
		log.Warnw("search index unreadable, recreating", "path", path, "error", err)
		if err := os.RemoveAll(path); err != nil {
			return nil, fmt.Errorf("failed to remove corrupted search index: %w", err)
		}
		idx, err = bleve.New(path, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("failed to recreate search index: %w", err)
		}
	}
	return &SearchIndex{index: idx, path: path}, nil
}

// NewMemSearchIndex creates an index that lives only in memory.
func NewMemSearchIndex() (*SearchIndex, error) {
	idx, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create search index: %w", err)
	}
	return &SearchIndex{index: idx}, nil
}

func buildIndexMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()
	doc := bleve.NewDocumentMapping()

	keywordField := func() *mapping.FieldMapping {
		f := bleve.NewTextFieldMapping()
		f.Analyzer = keyword.Name
		f.Store = true
		f.Index = true
		return f
	}
	textField := func() *mapping.FieldMapping {
		f := bleve.NewTextFieldMapping()
		f.Analyzer = standard.Name
		f.Store = false
		f.Index = true
		return f
	}

	doc.AddFieldMappingsAt("doctype", keywordField())
	doc.AddFieldMappingsAt("path", keywordField())
	doc.AddFieldMappingsAt("path_lower", keywordField())
	doc.AddFieldMappingsAt("lang", keywordField())
	doc.AddFieldMappingsAt("path_text", textField())
	doc.AddFieldMappingsAt("symbol", textField())
	doc.AddFieldMappingsAt("text", textField())

	im.DefaultMapping = doc
	return im
}

// pathWords splits a path into words so "internal/engine/agent.go" can be
// matched by "engine agent".
func pathWords(s string) string {
	var b strings.Builder
	prevLower := false
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			// camelCase boundaries become word breaks too
			if unicode.IsUpper(r) && prevLower {
				b.WriteByte(' ')
			}
			b.WriteRune(r)
			prevLower = unicode.IsLower(r)
		default:
			b.WriteByte(' ')
			prevLower = false
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func fileDocID(path string) string { return docFile + ":" + path }

// IndexFile replaces everything indexed for path with its file entry and
// chunks. staleChunks are ids of chunks that no longer exist.
func (s *SearchIndex) IndexFile(file FileInfo, chunks []Chunk, staleChunks []string) error {
	batch := s.index.NewBatch()
	for _, id := range staleChunks {
		batch.Delete(id)
	}
	err := batch.Index(fileDocID(file.Path), map[string]any{
		"doctype":    docFile,
		"path":       file.Path,
		"path_lower": strings.ToLower(file.Path),
		"path_text":  pathWords(file.Path),
		"lang":       string(file.Lang),
	})
	if err != nil {
		return fmt.Errorf("failed to add %s to batch: %w", file.Path, err)
	}
	for _, c := range chunks {
		err := batch.Index(c.ChunkID, map[string]any{
			"doctype": docChunk,
			"path":    c.Path,
			"lang":    c.Lang,
			"symbol":  pathWords(c.Symbol),
			"text":    c.Text,
		})
		if err != nil {
			return fmt.Errorf("failed to add chunk %s to batch: %w", c.ChunkID, err)
		}
	}
	return s.index.Batch(batch)
}

// DeleteFile removes path and the given chunk ids from the index.
func (s *SearchIndex) DeleteFile(path string, chunkIDs []string) error {
	batch := s.index.NewBatch()
	batch.Delete(fileDocID(path))
	for _, id := range chunkIDs {
		batch.Delete(id)
	}
	return s.index.Batch(batch)
}

func termQuery(field, term string) *query.TermQuery {
	q := bleve.NewTermQuery(term)
	q.SetField(field)
	return q
}

func langFilter(langs []string) query.Query {
	if len(langs) == 0 {
		return nil
	}
	dq := bleve.NewDisjunctionQuery()
	for _, l := range langs {
		dq.AddQuery(termQuery("lang", string(NormalizeLanguage(l))))
	}
	return dq
}

// SearchPaths returns up to limit file paths matching text. Matching is
// fuzzy on path words and substring on the whole path.
func (s *SearchIndex) SearchPaths(text string, langs []string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = PathSearchLimit
	}
	conj := bleve.NewConjunctionQuery(termQuery("doctype", docFile))

	text = strings.TrimSpace(text)
	if text != "" {
		fuzzy := bleve.NewMatchQuery(pathWords(text))
		fuzzy.SetField("path_text")
		fuzzy.SetFuzziness(1)

		sub := bleve.NewWildcardQuery("*" + strings.ToLower(text) + "*")
		sub.SetField("path_lower")
		sub.SetBoost(2)

		conj.AddQuery(bleve.NewDisjunctionQuery(fuzzy, sub))
	}
	if lf := langFilter(langs); lf != nil {
		conj.AddQuery(lf)
	}

	req := bleve.NewSearchRequestOptions(conj, limit, 0, false)
	req.Fields = []string{"path"}
	req.SortBy([]string{"-_score", "path"})

	res, err := s.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("path search failed: %w", err)
	}
	paths := make([]string, 0, len(res.Hits))
	for _, hit := range res.Hits {
		if p, ok := hit.Fields["path"].(string); ok {
			paths = append(paths, p)
		}
	}
	return paths, nil
}

// SearchChunks returns the ids of up to limit chunks whose text or symbol
// matches text.
func (s *SearchIndex) SearchChunks(text string, langs []string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = CodeSearchLimit
	}
	body := bleve.NewMatchQuery(text)
	body.SetField("text")

	sym := bleve.NewMatchQuery(pathWords(text))
	sym.SetField("symbol")
	sym.SetBoost(2)

	conj := bleve.NewConjunctionQuery(
		termQuery("doctype", docChunk),
		bleve.NewDisjunctionQuery(body, sym),
	)
	if lf := langFilter(langs); lf != nil {
		conj.AddQuery(lf)
	}

	req := bleve.NewSearchRequestOptions(conj, limit, 0, false)
	req.SortBy([]string{"-_score", "_id"})

	res, err := s.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("code search failed: %w", err)
	}
	ids := make([]string, 0, len(res.Hits))
	for _, hit := range res.Hits {
		ids = append(ids, hit.ID)
	}
	return ids, nil
}

// Count returns the number of indexed documents.
func (s *SearchIndex) Count() (uint64, error) {
	return s.index.DocCount()
}

// Close closes the index.
func (s *SearchIndex) Close() error {
	return s.index.Close()
}
