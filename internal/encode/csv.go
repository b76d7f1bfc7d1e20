package encode

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"time"
)

// PageFetcher retrieves one page of rows, mirroring the shape the CSV
// streamer needs from executor.Controller+compiler without importing
// either (keeps this package dependency-free of the request pipeline).
type PageFetcher func(ctx context.Context, page int) (rows []map[string]any, hasMore bool, err error)

// CSV streams rows page by page onto w via encoding/csv, checking ctx
// for cancellation between pages. columns, if non-empty, fixes the
// header row and column order; otherwise the header is derived from
// the first page's row keys, sorted for determinism.
func CSV(ctx context.Context, w io.Writer, columns []string, fetch PageFetcher) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	page := 1
	headerWritten := len(columns) > 0
	cols := columns
	if headerWritten {
		if err := cw.Write(cols); err != nil {
			return err
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		rows, hasMore, err := fetch(ctx, page)
		if err != nil {
			return err
		}

		if !headerWritten {
			cols = columnsFromRows(rows)
			if err := cw.Write(cols); err != nil {
				return err
			}
			headerWritten = true
		}

		for _, row := range rows {
			record := make([]string, len(cols))
			for i, c := range cols {
				record[i] = formatCell(row[c])
			}
			if err := cw.Write(record); err != nil {
				return err
			}
		}
		cw.Flush()
		if err := cw.Error(); err != nil {
			return err
		}

		if !hasMore {
			return nil
		}
		page++
	}
}

// columnsFromRows derives a stable column order from the first row's
// keys, sorted lexically so output is deterministic across requests.
func columnsFromRows(rows []map[string]any) []string {
	if len(rows) == 0 {
		return nil
	}
	cols := make([]string, 0, len(rows[0]))
	for k := range rows[0] {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

// formatCell renders a decoded JSON scalar as CSV text. Byte slices
// never appear here (the downstream client decodes JSON, not SQL rows),
// but times and nil still need explicit handling to avoid Go's default
// verbose formatting.
func formatCell(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		if t {
			return "true"
		}
		return "false"
	case time.Time:
		if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
			return t.Format("2006-01-02")
		}
		return t.Format(time.RFC3339)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprintf("%v", t)
	}
}
