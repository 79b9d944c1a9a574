package dataset

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"commodity-feature-lab/internal/domain"
	"commodity-feature-lab/internal/registry"
)

// RenderCSV renders rows against the given column specs. Nulls render as
// empty cells, dates as ISO days, floats in Go's shortest round-trip form.
// Output is fully determined by input: same rows, same bytes.
func RenderCSV(rows []*domain.FeatureRow, specs []registry.FeatureSpec) (string, error) {
	var sb strings.Builder

	for i, s := range specs {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(s.Name)
	}
	sb.WriteByte('\n')

	for _, row := range rows {
		for i, s := range specs {
			if i > 0 {
				sb.WriteByte(',')
			}
			v, err := registry.Value(row, s)
			if err != nil {
				return "", err
			}
			sb.WriteString(formatValue(v))
		}
		sb.WriteByte('\n')
	}

	return sb.String(), nil
}

func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case string:
		return quoteCell(t)
	case time.Time:
		return t.Format("2006-01-02")
	default:
		// registry.Value only emits the types above.
		return fmt.Sprintf("%v", t)
	}
}

// quoteCell escapes a string cell per RFC 4180: cells holding a comma,
// quote, or newline are wrapped in double quotes with internal quotes
// doubled. Clean cells pass through untouched so output stays stable.
func quoteCell(s string) string {
	if !strings.ContainsAny(s, ",\"\n") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// LatestRows selects the most recent row of each (entity, group) series.
// These become the inference table: one feature vector per entity,
// describing "today" without any forward-looking column.
func LatestRows(rows []*domain.FeatureRow) []*domain.FeatureRow {
	type seriesKey struct {
		entityID int64
		groupID  string
	}
	latest := make(map[seriesKey]*domain.FeatureRow)
	var order []seriesKey
	for _, r := range rows {
		key := seriesKey{r.EntityID, r.GroupID}
		cur, ok := latest[key]
		if !ok {
			order = append(order, key)
			latest[key] = r
			continue
		}
		if r.Date.After(cur.Date) {
			latest[key] = r
		}
	}

	out := make([]*domain.FeatureRow, 0, len(order))
	for _, key := range order {
		out = append(out, latest[key])
	}
	return out
}

// Artifact file naming. Dates are ISO days so artifact names sort
// chronologically in a directory listing.
func trainingFileName(groupID string, start, end time.Time) string {
	return fmt.Sprintf("train_%s_%s_%s.csv", groupID, start.Format("2006-01-02"), end.Format("2006-01-02"))
}

func inferenceFileName(groupID string, end time.Time) string {
	return fmt.Sprintf("inference_%s_%s.csv", groupID, end.Format("2006-01-02"))
}

func manifestFileName(groupID string, end time.Time) string {
	return fmt.Sprintf("manifest_%s_%s.json", groupID, end.Format("2006-01-02"))
}
