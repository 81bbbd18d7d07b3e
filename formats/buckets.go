package formats

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"iter"
	"strconv"

	"gopkg.in/cheggaaa/pb.v2"

	"github.com/pteich/elastic-repository/result"
)

// Buckets writes composite aggregation rows as CSV: one column per source
// followed by the document count.
type Buckets struct {
	Fields      []string
	Outfile     io.Writer
	ProgressBar *pb.ProgressBar
}

func (b Buckets) Run(ctx context.Context, rows iter.Seq2[result.CompositeResult, error]) error {
	w := csv.NewWriter(b.Outfile)
	defer w.Flush()

	if err := w.Write(append(append([]string(nil), b.Fields...), "doc_count")); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for row, err := range rows {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		record := make([]string, 0, len(b.Fields)+1)
		for _, field := range b.Fields {
			if v, ok := row.Key[field]; ok && v != nil {
				record = append(record, removeLBR(result.KeyString(v)))
			} else {
				record = append(record, "")
			}
		}
		record = append(record, strconv.FormatInt(row.DocCount, 10))
		if err := w.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
		b.ProgressBar.Increment()
	}

	w.Flush()
	return w.Error()
}
