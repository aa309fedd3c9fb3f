package engine

// AliasTable assigns stable small integers to file paths in the order
// they first enter the conversation. Entries are never removed.
type AliasTable struct {
	paths []string
	index map[string]int
}

// NewAliasTable rebuilds the table from the paths recorded on exchanges.
func NewAliasTable(exchanges []*Exchange) *AliasTable {
	t := &AliasTable{index: make(map[string]int)}
	for _, e := range exchanges {
		for _, p := range e.Paths {
			t.Add(p)
		}
	}
	return t
}

// Add returns the alias for path, assigning the next one if the path is
// new. added reports whether an entry was created.
func (t *AliasTable) Add(path string) (alias int, added bool) {
	if i, ok := t.index[path]; ok {
		return i, false
	}
	i := len(t.paths)
	t.paths = append(t.paths, path)
	t.index[path] = i
	return i, true
}

// Lookup returns the alias of a known path.
func (t *AliasTable) Lookup(path string) (int, bool) {
	i, ok := t.index[path]
	return i, ok
}

// Resolve decodes an alias back to its path.
func (t *AliasTable) Resolve(alias int) (string, bool) {
	if alias < 0 || alias >= len(t.paths) {
		return "", false
	}
	return t.paths[alias], true
}

func (t *AliasTable) Len() int { return len(t.paths) }

// Paths returns every aliased path, indexed by alias.
func (t *AliasTable) Paths() []string {
	return append([]string(nil), t.paths...)
}
