package crawler

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"apartment-hunter/logger"
)

const (
	visitedFile = "visited.txt"
	recordsFile = "listings.jsonl"
)

// Store persists crawl state in a job directory so a crawl can resume
// across process runs: one line per visited URL and one JSON line per
// accumulated record, both append-only.
type Store struct {
	dir     string
	visited map[string]bool
	records []ListingRecord

	visitedOut *os.File
	recordsOut *os.File
}

// OpenStore loads existing state from dir, creating the directory on
// first run.
func OpenStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	s := &Store{
		dir:     dir,
		visited: make(map[string]bool),
	}

	if err := s.loadVisited(); err != nil {
		return nil, err
	}
	if err := s.loadRecords(); err != nil {
		return nil, err
	}

	var err error
	s.visitedOut, err = os.OpenFile(filepath.Join(dir, visitedFile), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	s.recordsOut, err = os.OpenFile(filepath.Join(dir, recordsFile), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		s.visitedOut.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) loadVisited() error {
	f, err := os.Open(filepath.Join(s.dir, visitedFile))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		url := strings.TrimSpace(scanner.Text())
		if url != "" {
			s.visited[url] = true
		}
	}
	return scanner.Err()
}

func (s *Store) loadRecords() error {
	f, err := os.Open(filepath.Join(s.dir, recordsFile))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var rec ListingRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			// A torn trailing line from a killed run is recoverable;
			// the record's URL stays in the visited set either way.
			logger.Warn("Skipping unreadable state line in %s", recordsFile)
			continue
		}
		s.records = append(s.records, rec)
	}
	return scanner.Err()
}

// Visited reports whether a URL was fetched in this or an earlier run.
func (s *Store) Visited(url string) bool {
	return s.visited[url]
}

// MarkVisited records a URL so it is never fetched again.
func (s *Store) MarkVisited(url string) error {
	if s.visited[url] {
		return nil
	}
	if _, err := s.visitedOut.WriteString(url + "\n"); err != nil {
		return err
	}
	s.visited[url] = true
	return nil
}

// Append persists one extracted record.
func (s *Store) Append(rec ListingRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if _, err := s.recordsOut.Write(append(data, '\n')); err != nil {
		return err
	}
	s.records = append(s.records, rec)
	return nil
}

// Records returns all accumulated records, earlier runs included.
func (s *Store) Records() []ListingRecord {
	return s.records
}

// Count returns the accumulated record count.
func (s *Store) Count() int {
	return len(s.records)
}

// Close releases the append handles.
func (s *Store) Close() error {
	var firstErr error
	if err := s.visitedOut.Close(); err != nil {
		firstErr = err
	}
	if err := s.recordsOut.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
