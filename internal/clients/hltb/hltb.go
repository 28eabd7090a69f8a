package hltb

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"questlog/internal/config"
	"questlog/internal/models"

	"github.com/PuerkitoBio/goquery"
)

// Client scrapes completion-time estimates from a HowLongToBeat-style
// search page. Callers treat failures as "no estimate", never fatal.
type Client struct {
	httpClient *http.Client
	baseURL    string
	log        *slog.Logger
}

func New(log *slog.Logger, cfg config.HLTBConfig) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		log:        log,
	}
}

// GetCompletionTimes looks a title up and returns the main-story and
// completionist estimates in minutes. Either field is nil when the
// source lists no estimate for it.
func (c *Client) GetCompletionTimes(ctx context.Context, title string) (models.CompletionTimes, error) {
	const op = "clients.hltb.GetCompletionTimes"

	form := url.Values{}
	form.Set("queryString", title)
	form.Set("t", "games")
	form.Set("sorthead", "popular")

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+"/search_results?page=1",
		strings.NewReader(form.Encode()),
	)
	if err != nil {
		return models.CompletionTimes{}, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36")
	req.Header.Set("Referer", c.baseURL)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.CompletionTimes{}, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.CompletionTimes{}, fmt.Errorf("%s: unexpected status %d", op, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return models.CompletionTimes{}, fmt.Errorf("%s: %w", op, err)
	}

	return parseSearchResults(doc), nil
}

// parseSearchResults reads the first result's tidbit grid: labels
// ("Main Story", "Completionist") each followed by a duration cell.
func parseSearchResults(doc *goquery.Document) models.CompletionTimes {
	var times models.CompletionTimes

	first := doc.Find("li.back_darkish, li.search_list_details").First()
	if first.Length() == 0 {
		return times
	}

	var label string
	first.Find("div").Each(func(i int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		switch {
		case text == "Main Story" || text == "Completionist":
			label = text
		case label != "" && text != "":
			if minutes := parseDurationMinutes(text); minutes != nil {
				if label == "Main Story" && times.MainTime == nil {
					times.MainTime = minutes
				}
				if label == "Completionist" && times.CompletionTime == nil {
					times.CompletionTime = minutes
				}
			}
			label = ""
		}
	})

	return times
}

var durationRe = regexp.MustCompile(`([\d.]+)(½)?\s*Hours?`)

// parseDurationMinutes turns strings like "25½ Hours" into minutes.
func parseDurationMinutes(text string) *int {
	m := durationRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}

	hours, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil
	}
	if m[2] != "" {
		hours += 0.5
	}

	minutes := int(math.Round(hours * 60))
	if minutes <= 0 {
		return nil
	}
	return &minutes
}
