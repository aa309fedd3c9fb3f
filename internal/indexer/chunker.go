package indexer

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"regexp"
	"strings"

	"github.com/zeebo/blake3"
)

// MaxChunkLines caps paragraph chunks; longer runs are cut into windows.
const MaxChunkLines = 60

var (
	pyDefPattern      = regexp.MustCompile(`^(?:async\s+)?def\s+(\w+)\s*\(`)
	pyClassPattern    = regexp.MustCompile(`^class\s+(\w+)`)
	mdHeaderPattern   = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)
	errNoDeclarations = errors.New("no declarations")
)

// ChunkFile splits content into searchable chunks based on the file's
// language. Every file with text yields at least one chunk.
func ChunkFile(file FileInfo, content []byte) []Chunk {
	var (
		chunks []Chunk
		err    error
	)
	switch file.Lang {
	case LangGo:
		chunks, err = chunkGo(file, content)
	case LangPython:
		chunks, err = chunkPython(file, content)
	case LangMarkdown:
		chunks, err = chunkMarkdown(file, content)
	default:
		err = errNoDeclarations
	}
	if err != nil || len(chunks) == 0 {
		return chunkParagraphs(file, content)
	}
	return chunks
}

// chunkGo uses the Go parser to extract top-level functions and types.
func chunkGo(file FileInfo, content []byte) ([]Chunk, error) {
	fset := token.NewFileSet()
	node, err := parser.ParseFile(fset, file.Path, content, parser.ParseComments)
	if err != nil {
		return nil, err
	}

	lines := bytes.Split(content, []byte("\n"))
	var chunks []Chunk
	for _, decl := range node.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			name := d.Name.Name
			if d.Recv != nil && len(d.Recv.List) > 0 {
				name = fmt.Sprintf("(%s).%s", formatType(d.Recv.List[0].Type), d.Name.Name)
			}
			start := fset.Position(d.Pos()).Line
			if d.Doc != nil {
				start = fset.Position(d.Doc.Pos()).Line
			}
			end := fset.Position(d.End()).Line
			chunks = append(chunks, newChunk(file, lines, name, "function", start, end))

		case *ast.GenDecl:
			if d.Tok != token.TYPE {
				continue
			}
			for _, spec := range d.Specs {
				ts, ok := spec.(*ast.TypeSpec)
				if !ok {
					continue
				}
				start := fset.Position(ts.Pos()).Line
				end := fset.Position(ts.End()).Line
				if len(d.Specs) == 1 {
					start = fset.Position(d.Pos()).Line
					if d.Doc != nil {
						start = fset.Position(d.Doc.Pos()).Line
					}
					end = fset.Position(d.End()).Line
				}
				chunks = append(chunks, newChunk(file, lines, ts.Name.Name, "type", start, end))
			}
		}
	}
	return chunks, nil
}

// chunkPython extracts top-level functions and classes.
func chunkPython(file FileInfo, content []byte) ([]Chunk, error) {
	lines := bytes.Split(content, []byte("\n"))
	var chunks []Chunk
	name, kind, start := "", "", 0

	flush := func(end int) {
		if name != "" {
			chunks = append(chunks, newChunk(file, lines, name, kind, start, end))
		}
	}
	for i, line := range lines {
		s := string(line)
		if m := pyDefPattern.FindStringSubmatch(s); m != nil {
			flush(i)
			name, kind, start = m[1], "function", i+1
		} else if m := pyClassPattern.FindStringSubmatch(s); m != nil {
			flush(i)
			name, kind, start = m[1], "class", i+1
		}
	}
	flush(len(lines))
	return chunks, nil
}

// chunkMarkdown splits a document at its headers.
func chunkMarkdown(file FileInfo, content []byte) ([]Chunk, error) {
	lines := bytes.Split(content, []byte("\n"))
	var chunks []Chunk
	header, start := "", 1

	for i, line := range lines {
		m := mdHeaderPattern.FindStringSubmatch(string(line))
		if m == nil {
			continue
		}
		if header != "" || i > 0 {
			chunks = append(chunks, newChunk(file, lines, header, "section", start, i))
		}
		header, start = m[2], i+1
	}
	if header == "" {
		return nil, errNoDeclarations
	}
	chunks = append(chunks, newChunk(file, lines, header, "section", start, len(lines)))
	return chunks, nil
}

// chunkParagraphs splits content at blank lines, cutting paragraphs longer
// than MaxChunkLines into windows.
func chunkParagraphs(file FileInfo, content []byte) []Chunk {
	lines := bytes.Split(content, []byte("\n"))
	var chunks []Chunk
	start := 0

	emit := func(from, to int) {
		kind := "paragraph"
		if to-from+1 > MaxChunkLines {
			kind = "window"
		}
		for from <= to {
			end := min(to, from+MaxChunkLines-1)
			chunks = append(chunks, newChunk(file, lines, "", kind, from, end))
			from = end + 1
		}
	}
	for i, line := range lines {
		lineNum := i + 1
		if len(bytes.TrimSpace(line)) == 0 {
			if start > 0 {
				emit(start, lineNum-1)
				start = 0
			}
			continue
		}
		if start == 0 {
			start = lineNum
		}
	}
	if start > 0 {
		emit(start, len(lines))
	}
	return chunks
}

func newChunk(file FileInfo, lines [][]byte, symbol, kind string, start, end int) Chunk {
	return Chunk{
		ChunkID:   hashChunk(file.Path, start, end),
		Path:      file.Path,
		Lang:      string(file.Lang),
		Symbol:    symbol,
		Kind:      kind,
		StartLine: start,
		EndLine:   end,
		Text:      extractLines(lines, start, end),
	}
}

func extractLines(lines [][]byte, start, end int) string {
	if start < 1 {
		start = 1
	}
	if end > len(lines) {
		end = len(lines)
	}
	if start > end {
		return ""
	}
	return string(bytes.Join(lines[start-1:end], []byte("\n")))
}

func formatType(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.StarExpr:
		return "*" + formatType(t.X)
	case *ast.SelectorExpr:
		return formatType(t.X) + "." + t.Sel.Name
	case *ast.IndexExpr:
		return formatType(t.X)
	case *ast.IndexListExpr:
		return formatType(t.X)
	default:
		return "?"
	}
}

func hashChunk(path string, start, end int) string {
	sum := blake3.Sum256([]byte(fmt.Sprintf("%s:%d:%d", path, start, end)))
	return hex.EncodeToString(sum[:16])
}

// Snippet trims text to at most n lines.
func Snippet(text string, n int) string {
	lines := strings.Split(text, "\n")
	if len(lines) <= n {
		return text
	}
	return strings.Join(lines[:n], "\n")
}
