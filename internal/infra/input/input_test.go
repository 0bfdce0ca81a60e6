package input

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/vietddude/docket/internal/core/domain"
)

func TestReadCaseIDs(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []domain.CaseID
	}{
		{"single column", "J1-CV-20-001\nJ1-CV-20-002\n", []domain.CaseID{"J1-CV-20-001", "J1-CV-20-002"}},
		{"extra columns", "J1-CV-20-001,2020-03-02,Eviction\nJ2-CV-20-009,2020-03-03\n", []domain.CaseID{"J1-CV-20-001", "J2-CV-20-009"}},
		{"bom and blanks", "\ufeffA1\n\n ,x\nA2\n", []domain.CaseID{"A1", "A2"}},
		{"quoted", "\"A,1\",x\n", []domain.CaseID{"A,1"}},
		{"surrounding whitespace", "  J1-CV-20-001\t,x\n\" A2 \"\n", []domain.CaseID{"J1-CV-20-001", "A2"}},
		{"whitespace only", "   \n\t,x\n", nil},
		{"no trailing newline", "A1", []domain.CaseID{"A1"}},
		{"empty", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadCaseIDs(strings.NewReader(tt.in))
			if err != nil {
				t.Fatalf("ReadCaseIDs failed: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ids mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cases.csv")
	if err := os.WriteFile(path, []byte("A1\nA2\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	ids, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if len(ids) != 2 {
		t.Errorf("got %v", ids)
	}

	if _, err := ReadFile(filepath.Join(t.TempDir(), "missing.csv")); err == nil {
		t.Error("expected error for missing file")
	}
}
