package cli

import (
	"context"
	"strings"
)

// Food lists catalog items whose name contains the given words.
func (a *App) Food(ctx context.Context, args []string) error {
	items, stale, err := a.nutrition.Search(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}
	renderFood(a.out, items, stale)
	return nil
}
