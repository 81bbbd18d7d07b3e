package formats

import (
	"context"
	"encoding/json"
	"io"

	"gopkg.in/cheggaaa/pb.v2"
)

// Raw writes every document with its id, one JSON object per line.
type Raw struct {
	Outfile     io.Writer
	ProgressBar *pb.ProgressBar
}

type rawHit struct {
	ID     string         `json:"_id"`
	Source map[string]any `json:"_source"`
}

func (r Raw) Run(ctx context.Context, docs <-chan Document) error {
	enc := json.NewEncoder(r.Outfile)
	for doc := range docs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := enc.Encode(rawHit{ID: doc.ID, Source: doc.Source}); err != nil {
			return err
		}
		r.ProgressBar.Increment()
	}
	return nil
}
