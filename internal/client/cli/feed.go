package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/dmitrijs2005/fitsync/internal/client/services"
	"github.com/dmitrijs2005/fitsync/internal/filex"
)

const (
	defaultFollow = 30 * time.Second
	maxMediaSize  = 10 << 20
	downloadDir   = "downloads"
)

// Feed shows the newest posts.
func (a *App) Feed(ctx context.Context) error {
	page, err := a.feed.Load(ctx)
	if err != nil {
		return err
	}
	a.cursor = page.NextCursor
	renderFeedPage(a.out, page, a.auth.CurrentUser())
	return nil
}

// More shows the page after the last one shown.
func (a *App) More(ctx context.Context) error {
	if a.cursor == "" {
		a.printf("No more posts. Type 'feed' to refresh.\n")
		return nil
	}
	page, err := a.feed.LoadMore(ctx, a.cursor)
	if err != nil {
		return err
	}
	a.cursor = page.NextCursor
	renderFeedPage(a.out, page, a.auth.CurrentUser())
	return nil
}

// Follow prints the feed and live changes for a while (default 30 seconds).
func (a *App) Follow(ctx context.Context, args []string) error {
	d := defaultFollow
	if len(args) > 0 {
		secs, err := strconv.Atoi(args[0])
		if err != nil || secs <= 0 {
			return fmt.Errorf("usage: follow [seconds]")
		}
		d = time.Duration(secs) * time.Second
	}

	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	a.printf("Following the feed for %s...\n", d)
	me := a.auth.CurrentUser()
	return a.feed.Follow(ctx, func(p *services.FeedPage) {
		if p.Live {
			a.printf("-- new activity --\n")
		}
		renderFeedPage(a.out, p, me)
	})
}

// Post asks for text and an optional image file.
func (a *App) Post(ctx context.Context) error {
	content, err := GetMultiline(a.reader, "What's new?", a.out)
	if err != nil {
		return err
	}
	path, err := getSimpleText(a.reader, "Image file (empty for none)", a.out)
	if err != nil {
		return err
	}

	var media *services.Media
	if path != "" {
		data, err := filex.ReadLimited(path, maxMediaSize)
		if err != nil {
			return err
		}
		media = &services.Media{ContentType: http.DetectContentType(data), Data: data}
	}

	post, res, err := a.feed.CreatePost(ctx, content, media)
	if err != nil {
		return err
	}
	a.printf("Post %s: ", post.ID)
	renderWrite(a.out, res)
	return nil
}

func (a *App) Like(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: like <post id>")
	}
	liked, res, err := a.feed.ToggleLike(ctx, args[0])
	if err != nil {
		return err
	}
	if liked {
		a.printf("Liked. ")
	} else {
		a.printf("Unliked. ")
	}
	renderWrite(a.out, res)
	return nil
}

func (a *App) DeletePost(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: delete <post id>")
	}
	res, err := a.feed.Delete(ctx, args[0])
	if err != nil {
		return err
	}
	renderWrite(a.out, res)
	return nil
}

// Media downloads a post's image into the downloads directory.
func (a *App) Media(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: media <post id>")
	}
	dir, err := filex.EnsureSubDir(downloadDir)
	if err != nil {
		return err
	}
	path := filepath.Join(dir, filepath.Base(args[0]))
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	n, err := a.feed.DownloadMedia(ctx, args[0], f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return err
	}
	a.printf("Saved %d bytes to %s\n", n, path)
	return nil
}
