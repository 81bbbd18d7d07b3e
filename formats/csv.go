package formats

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"sort"

	"golang.org/x/sync/errgroup"
	"gopkg.in/cheggaaa/pb.v2"
)

var lineBreaks = regexp.MustCompile(`\x{000D}\x{000A}|[\x{000A}\x{000B}\x{000C}\x{000D}\x{0085}\x{2028}\x{2029}]`)

// CSV writes one row per document. With Fields set, a header is written and
// each row holds those fields in order; dotted names reach into nested
// objects. Without Fields every top-level value is written in key order.
type CSV struct {
	Fields      []string
	Outfile     io.Writer
	Workers     int
	ProgressBar *pb.ProgressBar
}

func (c CSV) Run(ctx context.Context, docs <-chan Document) error {
	w := csv.NewWriter(c.Outfile)
	if len(c.Fields) > 0 {
		if err := w.Write(c.Fields); err != nil {
			return fmt.Errorf("write csv header: %w", err)
		}
	}

	workers := c.Workers
	if workers < 1 {
		workers = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	rows := make(chan []string, workers)
	for range workers {
		g.Go(func() error {
			for doc := range docs {
				select {
				case rows <- c.row(doc):
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			return nil
		})
	}

	done := make(chan error, 1)
	go func() {
		done <- g.Wait()
		close(rows)
	}()

	var writeErr error
	for row := range rows {
		if writeErr != nil {
			continue
		}
		if writeErr = w.Write(row); writeErr == nil {
			c.ProgressBar.Increment()
		}
	}
	w.Flush()

	if err := <-done; err != nil {
		return err
	}
	if writeErr != nil {
		return fmt.Errorf("write csv row: %w", writeErr)
	}
	return w.Error()
}

func (c CSV) row(doc Document) []string {
	if len(c.Fields) == 0 {
		keys := make([]string, 0, len(doc.Source))
		for k := range doc.Source {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		row := make([]string, 0, len(keys))
		for _, k := range keys {
			row = append(row, formatValue(doc.Source[k]))
		}
		return row
	}

	flat := flatten(doc.Source)
	row := make([]string, 0, len(c.Fields))
	for _, field := range c.Fields {
		row = append(row, formatValue(flat[field]))
	}
	return row
}

func formatValue(val any) string {
	switch val := val.(type) {
	case nil:
		return ""
	case int64:
		return fmt.Sprintf("%d", val)
	case float64:
		d := int(val)
		if val == float64(d) {
			return fmt.Sprintf("%d", d)
		}
		return fmt.Sprintf("%f", val)
	default:
		return removeLBR(fmt.Sprintf("%v", val))
	}
}

// flatten adds a dotted key for every value inside a nested object. The
// nested objects themselves are kept.
func flatten(document map[string]any) map[string]any {
	out := make(map[string]any, len(document))
	for k, v := range document {
		out[k] = v
		if nested, ok := v.(map[string]any); ok {
			for nk, nv := range flatten(nested) {
				out[k+"."+nk] = nv
			}
		}
	}
	return out
}

func removeLBR(text string) string {
	return lineBreaks.ReplaceAllString(text, ``)
}
