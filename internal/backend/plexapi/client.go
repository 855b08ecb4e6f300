package plexapi

import (
	"context"
	"crypto/tls"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"plexcache/internal/backend"
	"plexcache/internal/media"
)

// defaultDiscoverURL hosts the plex.tv metadata service that serves account
// watchlists.
const defaultDiscoverURL = "https://metadata.provider.plex.tv"

// HTTPDoer abstracts http.Client.Do for testing.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Client talks to one Plex Media Server. All reads carry the configured
// token; nothing here mutates server state.
type Client struct {
	baseURL     string
	discoverURL string
	token       string
	httpClient  HTTPDoer
	logger      *slog.Logger
}

// Option adjusts client construction.
type Option func(*Client)

// WithHTTPClient substitutes the HTTP transport, primarily for tests.
func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Client) { c.httpClient = doer }
}

// WithDiscoverURL points watchlist requests at an alternate metadata host.
func WithDiscoverURL(u string) Option {
	return func(c *Client) { c.discoverURL = strings.TrimRight(u, "/") }
}

// New builds a client for the server at baseURL. sslVerify false disables
// certificate verification for servers running on self-signed LAN certs.
func New(baseURL, token string, sslVerify bool, logger *slog.Logger, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	token = strings.TrimSpace(token)
	if baseURL == "" {
		return nil, backend.Wrap(backend.ErrConfiguration, "plex base url is required", nil)
	}
	if token == "" {
		return nil, backend.Wrap(backend.ErrConfiguration, "plex token is required", nil)
	}
	if logger == nil {
		logger = slog.Default()
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if !sslVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	c := &Client{
		baseURL:     baseURL,
		discoverURL: defaultDiscoverURL,
		token:       token,
		httpClient:  &http.Client{Transport: transport, Timeout: 30 * time.Second},
		logger:      logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Ping verifies the server answers with this token. A refused or timed-out
// request is a connection error; a 401 means the token is wrong, which is a
// configuration problem.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.get(ctx, c.baseURL, "/", nil)
	return err
}

// ListAccounts returns the single account the token authenticates as. The
// live API has no cross-account visibility; per-user view state requires the
// database snapshot backend.
func (c *Client) ListAccounts(ctx context.Context) ([]media.Account, error) {
	container, err := c.get(ctx, c.baseURL, "/", nil)
	if err != nil {
		return nil, err
	}
	name := container.FriendlyName
	if name == "" {
		name = "owner"
	}
	return []media.Account{{ID: 1, Name: name}}, nil
}

// Close releases nothing; the client holds no persistent connection.
func (c *Client) Close() error { return nil }

// get issues an authenticated GET against base+path and decodes the XML
// MediaContainer response.
func (c *Client) get(ctx context.Context, base, path string, query url.Values) (*mediaContainer, error) {
	endpoint := base + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, backend.Wrap(backend.ErrConfiguration, fmt.Sprintf("build request for %s", path), err)
	}
	req.Header.Set("Accept", "application/xml")
	req.Header.Set("X-Plex-Token", c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, backend.Wrap(backend.ErrConnection, fmt.Sprintf("GET %s", path), err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, backend.Wrap(backend.ErrConfiguration, "plex rejected the token", nil)
	case resp.StatusCode >= 400:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, backend.Wrap(backend.ErrConnection,
			fmt.Sprintf("GET %s returned %d", path, resp.StatusCode),
			fmt.Errorf("%s", strings.TrimSpace(string(body))))
	}

	var container mediaContainer
	if err := xml.NewDecoder(resp.Body).Decode(&container); err != nil {
		return nil, backend.Wrap(backend.ErrConnection, fmt.Sprintf("decode %s response", path), err)
	}
	return &container, nil
}

// mediaContainer is the envelope every Plex XML endpoint returns.
type mediaContainer struct {
	XMLName      xml.Name    `xml:"MediaContainer"`
	Size         int         `xml:"size,attr"`
	FriendlyName string      `xml:"friendlyName,attr"`
	Videos       []video     `xml:"Video"`
	Directories  []directory `xml:"Directory"`
}

type directory struct {
	Key   string `xml:"key,attr"`
	Type  string `xml:"type,attr"`
	Title string `xml:"title,attr"`
}

type video struct {
	RatingKey           string      `xml:"ratingKey,attr"`
	GUID                string      `xml:"guid,attr"`
	Type                string      `xml:"type,attr"`
	Title               string      `xml:"title,attr"`
	GrandparentTitle    string      `xml:"grandparentTitle,attr"`
	LibrarySectionTitle string      `xml:"librarySectionTitle,attr"`
	ParentIndex         int         `xml:"parentIndex,attr"`
	Index               int         `xml:"index,attr"`
	ViewCount           int         `xml:"viewCount,attr"`
	ViewOffset          int64       `xml:"viewOffset,attr"`
	LastViewedAt        int64       `xml:"lastViewedAt,attr"`
	AddedAt             int64       `xml:"addedAt,attr"`
	Media               []mediaElem `xml:"Media"`
}

type mediaElem struct {
	Parts []part `xml:"Part"`
}

type part struct {
	File string `xml:"file,attr"`
}

// kind maps the XML type attribute onto the shared item kinds. Unknown types
// (clips, trailers) map to zero and are skipped by callers.
func (v video) kind() media.Kind {
	switch v.Type {
	case "movie":
		return media.KindMovie
	case "episode":
		return media.KindEpisode
	default:
		return 0
	}
}

// displayTitle prefers "Show - Episode" for episodes so log lines read like
// the server UI.
func (v video) displayTitle() string {
	if v.GrandparentTitle != "" && v.Type == "episode" {
		return v.GrandparentTitle + " - " + v.Title
	}
	return v.Title
}

// files flattens every part path across the item's media renditions.
func (v video) files() []string {
	var out []string
	for _, m := range v.Media {
		for _, p := range m.Parts {
			if p.File != "" {
				out = append(out, p.File)
			}
		}
	}
	return out
}

func unixTime(v int64) time.Time {
	if v == 0 {
		return time.Time{}
	}
	return time.Unix(v, 0).UTC()
}
