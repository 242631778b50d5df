package cli

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/dmitrijs2005/fitsync/internal/client/reconciler"
	"github.com/dmitrijs2005/fitsync/internal/client/services"
	"github.com/dmitrijs2005/fitsync/internal/domain"
	"github.com/dustin/go-humanize"
)

// now is a test seam for relative times.
var now = time.Now

func ago(t time.Time) string {
	return humanize.RelTime(t, now(), "ago", "from now")
}

func renderWrite(w io.Writer, res reconciler.WriteResult) {
	switch {
	case res.Synced:
		fmt.Fprintln(w, "Saved.")
	case res.Queued:
		fmt.Fprintln(w, "Saved offline; it will sync when the server is reachable.")
	case res.RemoteErr != nil:
		fmt.Fprintf(w, "Rejected by the server: %v\n", res.RemoteErr)
	}
	if res.LocalErr != nil {
		fmt.Fprintf(w, "Warning: %v\n", res.LocalErr)
	}
}

func renderFeedPage(w io.Writer, p *services.FeedPage, me string) {
	if p.Err != nil {
		fmt.Fprintf(w, "Could not refresh the feed (%v); showing saved posts.\n", p.Err)
	} else if p.Stale {
		fmt.Fprintln(w, "Offline: showing saved posts.")
	}
	for _, id := range p.Removed {
		fmt.Fprintf(w, "- post %s was removed\n", id)
	}
	if len(p.Items) == 0 && len(p.Removed) == 0 {
		fmt.Fprintln(w, "No posts yet.")
		return
	}
	for _, it := range p.Items {
		renderPost(w, it, me)
	}
	if p.NextCursor != "" {
		fmt.Fprintln(w, "Type 'more' for older posts.")
	}
}

func renderPost(w io.Writer, it services.FeedItem, me string) {
	heart := "♡"
	if it.Post.IsLikedBy(me) {
		heart = "♥"
	}
	fmt.Fprintf(w, "[%s] %s · %s · %s %d\n", it.Post.ID, it.AuthorName, ago(it.Post.CreatedAt), heart, it.Post.LikeCount())
	if it.Post.Content != "" {
		for _, line := range strings.Split(it.Post.Content, "\n") {
			fmt.Fprintf(w, "    %s\n", line)
		}
	}
	if it.Post.MediaKey != "" {
		fmt.Fprintf(w, "    (image attached: 'media %s' to download)\n", it.Post.ID)
	}
}

func renderProfile(w io.Writer, p *services.Profile) {
	u := p.User
	fmt.Fprintf(w, "%s <%s>\n", u.Name(), u.Email)
	fmt.Fprintf(w, "  goals: %s kcal, %s ml water, %s steps\n",
		humanize.Comma(int64(u.Goals.Calories)), humanize.Comma(int64(u.Goals.WaterMl)), humanize.Comma(int64(u.Goals.Steps)))
	switch {
	case u.Premium && u.PremiumSince != nil:
		fmt.Fprintf(w, "  premium since %s\n", humanize.Time(*u.PremiumSince))
	case u.Premium:
		fmt.Fprintln(w, "  premium")
	default:
		fmt.Fprintln(w, "  free plan")
	}
	if !u.OnboardingComplete {
		fmt.Fprintln(w, "  onboarding not finished: type 'onboard'")
	}
	if p.Stale {
		fmt.Fprintf(w, "  (offline copy, synced %s)\n", ago(p.SyncedAt))
	}
}

func renderFood(w io.Writer, items []services.NutritionItem, stale bool) {
	if stale {
		fmt.Fprintln(w, "Offline: showing the saved catalog.")
	}
	if len(items) == 0 {
		fmt.Fprintln(w, "No matching items.")
		return
	}
	for _, it := range items {
		n := it.Payload
		fmt.Fprintf(w, "%-24s %-8s %6s kcal  P %s  C %s  F %s\n", n.Name, n.Serving,
			humanize.Ftoa(n.Calories), humanize.Ftoa(n.Protein), humanize.Ftoa(n.Carbs), humanize.Ftoa(n.Fat))
	}
}

func renderStatus(w io.Writer, st *services.Status) {
	user := st.User
	if user == "" {
		user = "not signed in"
	}
	conn := "offline"
	switch {
	case st.Online:
		conn = "online"
	case st.Forced:
		conn = "offline (forced)"
	}
	fmt.Fprintf(w, "user:       %s\nconnection: %s\npending:    %d change(s)\n", user, conn, st.Pending)

	names := make([]string, 0, len(domain.Collections))
	names = append(names, domain.Collections...)
	sort.Strings(names)
	for _, c := range names {
		wm, ok := st.Watermarks[c]
		if !ok {
			fmt.Fprintf(w, "%-11s never synced\n", c+":")
			continue
		}
		fmt.Fprintf(w, "%-11s newest data from %s\n", c+":", ago(wm))
	}
}

// describe turns a discard reason into a short phrase.
func describe(err error) string {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return ve.Error()
	}
	return err.Error()
}
