package repository

import (
	"context"
)

// Hooks are called after successful writes with the documents exactly as
// they were sent. They are never called for a failed write.
type Hooks interface {
	PostSave(ctx context.Context, id string, document map[string]any)
	PostDelete(ctx context.Context, id string)
	PostSaveBulk(ctx context.Context, documents map[string]map[string]any)
	PostDeleteBulk(ctx context.Context, ids []string)
}

// NopHooks does nothing. Embed it to implement only some hooks.
type NopHooks struct{}

func (NopHooks) PostSave(context.Context, string, map[string]any) {}
func (NopHooks) PostDelete(context.Context, string) {}
func (NopHooks) PostSaveBulk(context.Context, map[string]map[string]any) {}
func (NopHooks) PostDeleteBulk(context.Context, []string) {}
