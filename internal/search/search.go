// Package search finds tracks for the playlist editor using the YouTube Data
// API. Without an API key, or when the API fails, it answers with
// placeholder results so the editor keeps working.
package search

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PancyStudios/PancyDash/pkg/errors"
	"github.com/PancyStudios/PancyDash/pkg/logger"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

const (
	// MaxResults is how many videos one search returns
	MaxResults = 10
	// MusicCategoryID is YouTube's "Music" video category
	MusicCategoryID = "10"
	platform        = "YouTube"
)

// Result is one search hit
type Result struct {
	Title     string `json:"title"`
	Artist    string `json:"artist"`
	Duration  string `json:"duration"`
	Thumbnail string `json:"thumbnail"`
	URL       string `json:"url"`
	Platform  string `json:"platform"`
}

// Service searches YouTube
type Service struct {
	yt *youtube.Service
}

// NewService creates a search service. An empty apiKey yields a service that
// only returns placeholders.
func NewService(ctx context.Context, apiKey string, opts ...option.ClientOption) (*Service, error) {
	if apiKey == "" {
		logger.Warn("YOUTUBE_API_KEY no configurada, la búsqueda devolverá resultados de ejemplo", "Search")
		return &Service{}, nil
	}
	yt, err := youtube.NewService(ctx, append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("creating YouTube client: %w", err)
	}
	return &Service{yt: yt}, nil
}

// Search returns music videos matching query
func (s *Service) Search(ctx context.Context, query string) ([]Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.BadRequest("Query required")
	}
	if s.yt == nil {
		return sampleResults(query), nil
	}

	results, err := s.youtube(ctx, query)
	if err != nil {
		logger.Error("Error buscando en YouTube: "+err.Error(), "Search")
		return errorResults(query), nil
	}
	return results, nil
}

func (s *Service) youtube(ctx context.Context, query string) ([]Result, error) {
	found, err := s.yt.Search.List([]string{"snippet"}).
		Q(query).
		Type("video").
		VideoCategoryId(MusicCategoryID).
		MaxResults(MaxResults).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("search.list: %w", err)
	}

	ids := make([]string, 0, len(found.Items))
	for _, item := range found.Items {
		if item.Id != nil && item.Id.VideoId != "" {
			ids = append(ids, item.Id.VideoId)
		}
	}
	if len(ids) == 0 {
		return []Result{}, nil
	}

	details, err := s.yt.Videos.List([]string{"contentDetails"}).Id(ids...).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("videos.list: %w", err)
	}
	durations := make(map[string]string, len(details.Items))
	for _, v := range details.Items {
		if v.ContentDetails != nil {
			durations[v.Id] = v.ContentDetails.Duration
		}
	}

	results := make([]Result, 0, len(ids))
	for _, item := range found.Items {
		if item.Id == nil || item.Id.VideoId == "" || item.Snippet == nil || item.Snippet.Title == "" {
			continue
		}
		artist := item.Snippet.ChannelTitle
		if artist == "" {
			artist = "Unknown Artist"
		}
		results = append(results, Result{
			Title:     item.Snippet.Title,
			Artist:    artist,
			Duration:  FormatDuration(durations[item.Id.VideoId]),
			Thumbnail: thumbnail(item.Snippet.Thumbnails),
			URL:       "https://www.youtube.com/watch?v=" + item.Id.VideoId,
			Platform:  platform,
		})
	}
	return results, nil
}

func thumbnail(t *youtube.ThumbnailDetails) string {
	switch {
	case t == nil:
		return ""
	case t.Medium != nil:
		return t.Medium.Url
	case t.Default != nil:
		return t.Default.Url
	}
	return ""
}

var isoDuration = regexp.MustCompile(`^PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?$`)

// FormatDuration turns an ISO 8601 video duration (PT4M13S) into M:SS, or
// H:MM:SS for an hour or more. Unparseable input reads as 0:00.
func FormatDuration(iso string) string {
	m := isoDuration.FindStringSubmatch(iso)
	if m == nil {
		return "0:00"
	}
	part := func(s string) int {
		n, _ := strconv.Atoi(s)
		return n
	}
	h, mins, sec := part(m[1]), part(m[2]), part(m[3])
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, mins, sec)
	}
	return fmt.Sprintf("%d:%02d", mins, sec)
}

func sampleResults(query string) []Result {
	samples := []struct{ suffix, artist, duration, id string }{
		{"Song 1", "Artist Name", "3:45", "dQw4w9WgXcQ"},
		{"Song 2", "Another Artist", "4:12", "L_jWHffIx5E"},
		{"Song 3", "Third Artist", "2:58", "9bZkp7q19f0"},
	}
	out := make([]Result, len(samples))
	for i, s := range samples {
		out[i] = Result{
			Title:     query + " - " + s.suffix,
			Artist:    s.artist,
			Duration:  s.duration,
			Thumbnail: "https://i.ytimg.com/vi/" + s.id + "/maxresdefault.jpg",
			URL:       "https://www.youtube.com/watch?v=" + s.id,
			Platform:  platform,
		}
	}
	return out
}

func errorResults(query string) []Result {
	return []Result{{
		Title:     fmt.Sprintf("Search results for %q", query),
		Artist:    "YouTube Search",
		Duration:  "3:45",
		Thumbnail: "https://i.ytimg.com/vi/dQw4w9WgXcQ/maxresdefault.jpg",
		URL:       "https://www.youtube.com/results?search_query=" + url.QueryEscape(query),
		Platform:  platform,
	}}
}
