package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"questlog/internal/config"
	"questlog/internal/models"

	"golang.org/x/oauth2/clientcredentials"
)

// Client talks to an IGDB-shaped catalog API. Authentication uses the
// Twitch client-credentials grant; the oauth2 transport caches and
// refreshes the token on its own.
type Client struct {
	httpClient *http.Client
	apiURL     string
	clientID   string
	log        *slog.Logger
}

func New(log *slog.Logger, cfg config.CatalogConfig) *Client {
	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
	}

	httpClient := cc.Client(context.Background())
	httpClient.Timeout = cfg.Timeout

	return &Client{
		httpClient: httpClient,
		apiURL:     strings.TrimRight(cfg.APIURL, "/"),
		clientID:   cfg.ClientID,
		log:        log,
	}
}

type igdbGame struct {
	ID                int64  `json:"id"`
	Name              string `json:"name"`
	Summary           string `json:"summary"`
	FirstReleaseDate  int64  `json:"first_release_date"`
	Cover             struct {
		URL string `json:"url"`
	} `json:"cover"`
	InvolvedCompanies []struct {
		Developer bool `json:"developer"`
		Publisher bool `json:"publisher"`
		Company   struct {
			Name string `json:"name"`
		} `json:"company"`
	} `json:"involved_companies"`
}

const gameFields = "fields name,summary,first_release_date,cover.url," +
	"involved_companies.developer,involved_companies.publisher,involved_companies.company.name;"

// Search queries the catalog by title.
func (c *Client) Search(ctx context.Context, query string) ([]models.CatalogGame, error) {
	const op = "clients.catalog.Search"

	body := fmt.Sprintf("search %q; %s limit 10;", query, gameFields)

	games, err := c.queryGames(ctx, body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out := make([]models.CatalogGame, 0, len(games))
	for i := range games {
		out = append(out, mapIgdbGame(&games[i]))
	}

	return out, nil
}

// GetDetails fetches a single catalog entry by its external id.
func (c *Client) GetDetails(ctx context.Context, externalID string) (*models.CatalogGame, error) {
	const op = "clients.catalog.GetDetails"

	id, err := strconv.ParseInt(externalID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%s: invalid external id %q: %w", op, externalID, err)
	}

	body := fmt.Sprintf("%s where id = %d; limit 1;", gameFields, id)

	games, err := c.queryGames(ctx, body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(games) == 0 {
		return nil, fmt.Errorf("%s: no game with id %s", op, externalID)
	}

	mapped := mapIgdbGame(&games[0])
	return &mapped, nil
}

func (c *Client) queryGames(ctx context.Context, body string) ([]igdbGame, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/games", strings.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Client-ID", c.clientID)
	req.Header.Set("Content-Type", "text/plain")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, payload)
	}

	var games []igdbGame
	if err := json.NewDecoder(resp.Body).Decode(&games); err != nil {
		return nil, err
	}

	return games, nil
}

func mapIgdbGame(g *igdbGame) models.CatalogGame {
	out := models.CatalogGame{
		ExternalID:  strconv.FormatInt(g.ID, 10),
		Title:       g.Name,
		Description: g.Summary,
		CoverURL:    normalizeCoverURL(g.Cover.URL),
	}

	if g.FirstReleaseDate > 0 {
		t := time.Unix(g.FirstReleaseDate, 0).UTC()
		out.ReleaseDate = &t
	}

	for _, ic := range g.InvolvedCompanies {
		if ic.Developer && out.Developer == "" {
			out.Developer = ic.Company.Name
		}
		if ic.Publisher && out.Publisher == "" {
			out.Publisher = ic.Company.Name
		}
	}

	return out
}

// normalizeCoverURL upgrades IGDB's protocol-relative thumbnail URLs to
// https full-size covers.
func normalizeCoverURL(url string) string {
	if url == "" {
		return ""
	}
	if strings.HasPrefix(url, "//") {
		url = "https:" + url
	}
	return strings.Replace(url, "t_thumb", "t_cover_big", 1)
}
