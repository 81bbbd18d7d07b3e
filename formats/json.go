package formats

import (
	"context"
	"encoding/json"
	"io"

	"gopkg.in/cheggaaa/pb.v2"
)

// Document is one exported hit.
type Document struct {
	ID     string
	Source map[string]any
}

// JSON writes the source of every document as one line of JSON.
type JSON struct {
	Outfile     io.Writer
	ProgressBar *pb.ProgressBar
}

func (j JSON) Run(ctx context.Context, docs <-chan Document) error {
	enc := json.NewEncoder(j.Outfile)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case doc, ok := <-docs:
			if !ok {
				return nil
			}
			if err := enc.Encode(doc.Source); err != nil {
				return err
			}
			j.ProgressBar.Increment()
		}
	}
}
