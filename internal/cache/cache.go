// Package cache implements the analysis cache: a persistent,
// content-hashed record of every file's last analysis, so a rebuild
// only re-analyses files whose content actually changed. The on-disk
// format is a CSV file, one row per analysed file, with set-valued
// columns semicolon-joined.
package cache

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	fabErrors "github.com/metoffice/fab-go/internal/errors"
	"github.com/metoffice/fab-go/internal/types"
)

var header = []string{
	"fpath", "file_hash", "module_defs", "symbol_defs",
	"symbol_deps", "file_deps", "mo_commented_file_deps",
}

// Cache is the open writer used to persist the current run's records as
// they're produced. The previous run's records are read separately by
// Load and are not held here.
type Cache struct {
	path   string
	file   *os.File
	writer *csv.Writer
}

// Load reads path's cache file. A missing file is treated as an empty
// cache (first build); a malformed file is a fatal CacheError, since a
// corrupt cache can silently produce a wrong incremental build.
func Load(path string) (map[types.SourcePath]*types.AnalysedFile, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return map[types.SourcePath]*types.AnalysedFile{}, nil
	}
	if err != nil {
		return nil, fabErrors.NewCacheError(path, err)
	}
	defer f.Close()

	records, err := readRows(f)
	if err != nil {
		return nil, fabErrors.NewCacheError(path, err)
	}
	return records, nil
}

func readRows(f *os.File) (map[types.SourcePath]*types.AnalysedFile, error) {
	r := csv.NewReader(f)
	r.FieldsPerRecord = len(header)

	got, err := r.Read()
	if err == io.EOF {
		return map[types.SourcePath]*types.AnalysedFile{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading cache header: %w", err)
	}
	if len(got) != len(header) {
		return nil, fmt.Errorf("cache header has %d columns, want %d", len(got), len(header))
	}

	out := map[types.SourcePath]*types.AnalysedFile{}
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading cache row: %w", err)
		}
		af, err := rowToAnalysedFile(row)
		if err != nil {
			return nil, err
		}
		out[af.Fpath] = af
	}
	return out, nil
}

func rowToAnalysedFile(row []string) (*types.AnalysedFile, error) {
	var hash uint64
	if _, err := fmt.Sscanf(row[1], "%d", &hash); err != nil {
		return nil, fmt.Errorf("cache row %q: invalid file_hash: %w", row[0], err)
	}
	af, err := types.NewAnalysedFile(
		types.SourcePath(row[0]),
		types.FileHash(hash),
		types.ParseSymbolSet(row[2]),
		types.ParseSymbolSet(row[3]),
		types.ParseSymbolSet(row[4]),
	)
	if err != nil {
		return nil, fmt.Errorf("cache row %q: %w", row[0], err)
	}
	af.FileDeps = types.ParsePathSet(row[5])
	af.MOCommentedFileDeps = types.ParseStringSet(row[6])
	return af, nil
}

// Partition splits current's analysed paths (by content hash) into those
// unchanged from prior and those that need (re-)analysis. A path present in
// prior but absent from current is simply dropped (the file was deleted or
// filtered out); it is never written back.
func Partition(prior map[types.SourcePath]*types.AnalysedFile, current map[types.SourcePath]types.FileHash) (unchanged map[types.SourcePath]*types.AnalysedFile, stale []types.SourcePath) {
	unchanged = map[types.SourcePath]*types.AnalysedFile{}
	for path, hash := range current {
		if prev, ok := prior[path]; ok && prev.FileHash == hash {
			unchanged[path] = prev
			continue
		}
		stale = append(stale, path)
	}
	return unchanged, stale
}

// Open begins a streaming write of a new cache file at path: the header is
// written immediately, and every call to WriteRow appends one row and
// flushes, so an interrupted run still leaves a valid, loadable partial
// cache.
func Open(path string) (*Cache, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fabErrors.NewCacheError(path, err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		f.Close()
		return nil, fabErrors.NewCacheError(path, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return nil, fabErrors.NewCacheError(path, err)
	}
	return &Cache{path: path, file: f, writer: w}, nil
}

// WriteRow appends one AnalysedFile and flushes immediately.
func (c *Cache) WriteRow(af *types.AnalysedFile) error {
	row := []string{
		string(af.Fpath),
		fmt.Sprintf("%d", af.FileHash),
		af.ModuleDefs.Join(),
		af.SymbolDefs.Join(),
		af.SymbolDeps.Join(),
		af.FileDeps.Join(),
		af.MOCommentedFileDeps.Join(),
	}
	if err := c.writer.Write(row); err != nil {
		return fabErrors.NewCacheError(c.path, err)
	}
	c.writer.Flush()
	return c.writer.Error()
}

// Close closes the underlying file.
func (c *Cache) Close() error {
	c.writer.Flush()
	return c.file.Close()
}
