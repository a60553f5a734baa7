package repository

import (
	"context"
	"errors"
	"sort"
	"strings"

	"golang-microcap-tracker/internal/tracker/config"
	"golang-microcap-tracker/internal/tracker/dto"
	"golang-microcap-tracker/pkg/logger"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
)

const maxHeadlineSummary = 280

type newsRepository struct {
	cfg    config.News
	parser *gofeed.Parser
	logger *logger.Logger
}

// NewNewsRepository creates a headline source reading the configured RSS/Atom feeds.
func NewNewsRepository(cfg *config.Config, log *logger.Logger) NewsRepository {
	return &newsRepository{
		cfg:    cfg.News,
		parser: gofeed.NewParser(),
		logger: log,
	}
}

// Headlines returns the newest items across all feeds. A failing feed is logged
// and skipped; an error is returned only when every feed failed.
func (r *newsRepository) Headlines(ctx context.Context) ([]dto.Headline, error) {
	var (
		out    []dto.Headline
		failed int
		errs   []error
	)

	for _, url := range r.cfg.Feeds {
		feed, err := r.parser.ParseURLWithContext(url, ctx)
		if err != nil {
			r.logger.Error("Failed to parse RSS feed", logger.ErrorField(err), logger.StringField("url", url))
			failed++
			errs = append(errs, err)
			continue
		}

		source := feed.Title
		for _, item := range feed.Items {
			h := dto.Headline{
				Title:   strings.TrimSpace(item.Title),
				Summary: plainText(item.Description, maxHeadlineSummary),
				Source:  source,
				Link:    item.Link,
			}
			if h.Title == "" {
				continue
			}
			switch {
			case item.PublishedParsed != nil:
				h.PublishedAt = item.PublishedParsed.UTC()
			case item.UpdatedParsed != nil:
				h.PublishedAt = item.UpdatedParsed.UTC()
			}
			out = append(out, h)
		}
	}

	if failed > 0 && failed == len(r.cfg.Feeds) {
		return nil, errors.Join(errs...)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PublishedAt.After(out[j].PublishedAt)
	})
	if r.cfg.MaxItems > 0 && len(out) > r.cfg.MaxItems {
		out = out[:r.cfg.MaxItems]
	}
	return out, nil
}

// plainText strips markup from a feed description and caps its length in runes.
func plainText(html string, max int) string {
	if strings.TrimSpace(html) == "" {
		return ""
	}
	text := html
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(html)); err == nil {
		text = doc.Text()
	}
	text = strings.Join(strings.Fields(text), " ")
	if r := []rune(text); max > 0 && len(r) > max {
		text = strings.TrimSpace(string(r[:max])) + "…"
	}
	return text
}

