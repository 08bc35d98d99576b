// Package news adapts the webz.io news API into trending articles with
// readable text extracted from each source page.
package news

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"gazette/internal/config"
	"gazette/internal/core"
	"gazette/internal/logger"
)

// StatusError reports a non-success HTTP status from the news API.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("news api returned status %d", e.StatusCode)
}

// Client calls the news API and extracts readable text from linked pages.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient builds a news client from configuration. The fetch timeout bounds
// both the API call and each source-page fetch.
func NewClient(cfg config.News) *Client {
	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: config.Duration(cfg.FetchTimeout, 10*time.Second),
		},
	}
}

// apiResponse is the subset of the webz.io newsApiLite payload we consume.
type apiResponse struct {
	Posts []struct {
		Title string `json:"title"`
		URL   string `json:"url"`
	} `json:"posts"`
}

// TrendingArticles fetches the provider's first page of trending posts for a
// country and resolves each post's readable text. Posts whose pages cannot be
// fetched, or whose extracted text is empty, are dropped. A non-success API
// status is returned as a *StatusError.
func (c *Client) TrendingArticles(ctx context.Context, country string) ([]core.TrendingArticle, error) {
	code := countryCode(country)
	query := fmt.Sprintf("published:>now-24h site_category:top_news_%s performance_score:>0 country:%s", code, code)
	endpoint := fmt.Sprintf("%s?token=%s&q=%s", c.baseURL, url.QueryEscape(c.apiKey), url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build news request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch news: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}

	var payload apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode news response: %w", err)
	}

	var articles []core.TrendingArticle
	for _, post := range payload.Posts {
		content := c.pageText(ctx, post.URL)
		if content == "" {
			continue
		}
		articles = append(articles, core.TrendingArticle{
			Title:   post.Title,
			Content: content,
		})
	}

	return articles, nil
}

// pageText fetches a source page and extracts its visible text. Any fetch or
// parse problem yields an empty string; the caller drops the article.
func (c *Client) pageText(ctx context.Context, pageURL string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return ""
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Debug("Failed to fetch article page", "url", pageURL, "error", err.Error())
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return ""
	}

	return ExtractText(doc)
}

// ExtractText strips non-content elements from a parsed page and returns its
// visible text, preferring the first <article> element over the full body.
func ExtractText(doc *goquery.Document) string {
	doc.Find("script, style, footer, nav, aside, noscript").Remove()

	selection := doc.Selection
	if article := doc.Find("article").First(); article.Length() > 0 {
		selection = article
	}

	return strings.Join(strings.Fields(selection.Text()), " ")
}

// countryCode maps the supported country names onto provider codes. Unknown
// values pass through unchanged.
func countryCode(country string) string {
	switch country {
	case "US":
		return "us"
	case "Brazil":
		return "br"
	case "Japan":
		return "jp"
	}
	return country
}
