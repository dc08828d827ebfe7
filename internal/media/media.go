// Package media builds search URLs and resolves "play" requests to a video.
package media

import (
	"bytes"
	"context"
	"fmt"
	log "log/slog"
	"net/url"
	"os/exec"
	"regexp"
	"strings"
	"time"
)

const (
	googleSearch   = "https://www.google.com/search?q="
	youtubeResults = "https://www.youtube.com/results?search_query="
	youtubeWatch   = "https://www.youtube.com/watch?v="

	DefaultYtDlp          = "yt-dlp"
	DefaultResolveTimeout = 10 * time.Second
)

// CommandContext is the function used to create exec.Cmd. Override in tests.
var CommandContext = exec.CommandContext

var youtubeRe = regexp.MustCompile(`(?i)youtube`)

// SearchURL returns the results page for query. Queries mentioning YouTube
// go to YouTube with the word removed, everything else goes to Google.
func SearchURL(query string) (u string, youtube bool) {
	if youtubeRe.MatchString(query) {
		clean := strings.Join(strings.Fields(youtubeRe.ReplaceAllString(query, " ")), " ")
		return ResultsURL(clean), true
	}
	return googleSearch + url.QueryEscape(query), false
}

func ResultsURL(query string) string {
	return youtubeResults + url.QueryEscape(query)
}

func WatchURL(id string) string {
	return youtubeWatch + url.QueryEscape(id)
}

// Player resolves a free-text query to the first matching video with yt-dlp.
type Player struct {
	YtDlp   string
	Timeout time.Duration
}

// Resolve returns a watch URL for the first search hit, or the YouTube results
// page for query when yt-dlp is missing, slow or finds nothing.
func (p Player) Resolve(ctx context.Context, query string) string {
	id, err := p.firstVideoID(ctx, query)
	if err != nil {
		log.Debug("Video resolution failed, using results page", "query", query, "err", err)
		return ResultsURL(query)
	}
	return WatchURL(id)
}

func (p Player) firstVideoID(ctx context.Context, query string) (string, error) {
	bin := p.YtDlp
	if bin == "" {
		bin = DefaultYtDlp
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultResolveTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := CommandContext(ctx, bin, "ytsearch1:"+query, "--get-id", "--no-warnings")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("yt-dlp timed out after %s", timeout)
		}
		return "", fmt.Errorf("yt-dlp: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	for _, line := range strings.Split(stdout.String(), "\n") {
		if id := strings.TrimSpace(line); id != "" {
			return id, nil
		}
	}

	return "", fmt.Errorf("yt-dlp returned no video for %q", query)
}
