package sqlinline

import (
	"regexp"
	"strings"
	"testing"
)

var markerLine = regexp.MustCompile(`^--sql [0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

var allStatements = map[string]string{
	"QCreateJobsTable":      QCreateJobsTable,
	"QCreateJobsClaimIndex": QCreateJobsClaimIndex,
	"QCreatePresetsTable":   QCreatePresetsTable,
	"QInsertJob":            QInsertJob,
	"QClaimJob":             QClaimJob,
	"QCompleteJob":          QCompleteJob,
	"QFailJob":              QFailJob,
	"QSelectJob":            QSelectJob,
	"QSelectPreset":         QSelectPreset,
	"QSelectDefaultPreset":  QSelectDefaultPreset,
	"QSeedDefaultPreset":    QSeedDefaultPreset,
}

// Every statement must open with a unique marker line; the SQL runner refuses
// unmarked statements, and duplicate markers would make the query logs
// ambiguous.
func TestStatementsCarryUniqueMarkers(t *testing.T) {
	seen := map[string]string{}
	for name, stmt := range allStatements {
		first := strings.TrimSpace(strings.SplitN(strings.TrimSpace(stmt), "\n", 2)[0])
		if !markerLine.MatchString(first) {
			t.Errorf("%s: first line %q is not a valid marker", name, first)
			continue
		}
		if prev, dup := seen[first]; dup {
			t.Errorf("%s and %s share marker %q", name, prev, first)
		}
		seen[first] = name
	}
}

func TestSchemaStatementsAreRegistered(t *testing.T) {
	if len(SchemaStatements) != 3 {
		t.Fatalf("SchemaStatements has %d entries, want 3", len(SchemaStatements))
	}
	for i, stmt := range SchemaStatements {
		if !strings.Contains(stmt, "if not exists") {
			t.Errorf("schema statement %d is not idempotent", i)
		}
	}
}
