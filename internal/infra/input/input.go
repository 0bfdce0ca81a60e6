// Package input reads case identifiers from delimited files.
package input

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/vietddude/docket/internal/core/domain"
)

const utf8BOM = "\ufeff"

// Open returns a reader for path; "-" is stdin.
func Open(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input: %w", err)
	}
	return f, nil
}

// ReadCaseIDs returns the first field of every record in r, in order.
// Surrounding whitespace is trimmed; records whose first field is blank
// after trimming are skipped.
func ReadCaseIDs(r io.Reader) ([]domain.CaseID, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var ids []domain.CaseID
	for line := 1; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read case ids: %w", err)
		}

		first := record[0]
		if line == 1 {
			first = strings.TrimPrefix(first, utf8BOM)
		}
		first = strings.TrimSpace(first)
		if first == "" {
			continue
		}
		ids = append(ids, domain.CaseID(first))
	}
	return ids, nil
}

// ReadFile reads the case identifiers stored at path.
func ReadFile(path string) ([]domain.CaseID, error) {
	rc, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return ReadCaseIDs(rc)
}
