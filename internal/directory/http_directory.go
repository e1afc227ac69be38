package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const defaultMaxPages = 100

// HTTPConfig configures the REST directory client. Either SecretKey (a
// static backend API key) or the client-credentials triple must be set.
type HTTPConfig struct {
	BaseURL      string
	SecretKey    string
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string
	PageSize     int
	// MaxPages caps how many pages one listing may fetch.
	MaxPages int
	Timeout  time.Duration
	Logger   *slog.Logger
	// HTTPClient is the base client used for both token and directory calls.
	HTTPClient *http.Client
}

// HTTPDirectory lists organization members through a Clerk-compatible
// backend API (GET /v1/users?organization_id=...).
type HTTPDirectory struct {
	baseURL  string
	pageSize int
	maxPages int
	client   *http.Client
	logger   *slog.Logger
}

// NewHTTPDirectory builds an authenticated directory client. ctx scopes
// token acquisition for the client-credentials flow and should outlive the
// client.
func NewHTTPDirectory(ctx context.Context, cfg HTTPConfig) *HTTPDirectory {
	if cfg.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, cfg.HTTPClient)
	}

	var client *http.Client
	if cfg.SecretKey != "" {
		client = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: cfg.SecretKey,
			TokenType:   "Bearer",
		}))
	} else {
		cc := clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
			Scopes:       cfg.Scopes,
		}
		client = cc.Client(ctx)
	}
	if cfg.Timeout > 0 {
		client.Timeout = cfg.Timeout
	}

	pageSize := cfg.PageSize
	if pageSize <= 0 || pageSize > 500 {
		pageSize = 100
	}
	maxPages := cfg.MaxPages
	if maxPages <= 0 {
		maxPages = defaultMaxPages
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &HTTPDirectory{
		baseURL:  strings.TrimSuffix(cfg.BaseURL, "/"),
		pageSize: pageSize,
		maxPages: maxPages,
		client:   client,
		logger:   logger,
	}
}

type apiUser struct {
	ID                    string `json:"id"`
	FirstName             string `json:"first_name"`
	LastName              string `json:"last_name"`
	ImageURL              string `json:"image_url"`
	PrimaryEmailAddressID string `json:"primary_email_address_id"`
	EmailAddresses        []struct {
		ID           string `json:"id"`
		EmailAddress string `json:"email_address"`
	} `json:"email_addresses"`
}

func (u apiUser) member() Member {
	member := Member{
		ID:       u.ID,
		FullName: strings.TrimSpace(u.FirstName + " " + u.LastName),
		ImageURL: u.ImageURL,
	}
	for _, email := range u.EmailAddresses {
		if email.ID == u.PrimaryEmailAddressID {
			member.PrimaryEmail = email.EmailAddress
			break
		}
	}
	return member
}

// ListOrganizationMembers pages through every member of the organization,
// stopping after the configured page cap.
func (d *HTTPDirectory) ListOrganizationMembers(ctx context.Context, organizationID string) ([]Member, error) {
	members := make([]Member, 0)
	for page := 0; page < d.maxPages; page++ {
		batch, err := d.listPage(ctx, organizationID, page*d.pageSize)
		if err != nil {
			return nil, err
		}
		for _, user := range batch {
			members = append(members, user.member())
		}
		if len(batch) < d.pageSize {
			return members, nil
		}
	}
	d.logger.Warn("directory listing truncated at page limit",
		"organization_id", organizationID,
		"pages", d.maxPages,
		"members", len(members),
	)
	return members, nil
}

func (d *HTTPDirectory) listPage(ctx context.Context, organizationID string, offset int) ([]apiUser, error) {
	query := url.Values{}
	query.Set("organization_id", organizationID)
	query.Set("limit", strconv.Itoa(d.pageSize))
	query.Set("offset", strconv.Itoa(offset))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+"/v1/users?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("directory: new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	res, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("directory: list users: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return nil, fmt.Errorf("%w %d: %s", ErrUnexpectedStatus, res.StatusCode, strings.TrimSpace(string(body)))
	}

	var users []apiUser
	if err := json.NewDecoder(res.Body).Decode(&users); err != nil {
		return nil, fmt.Errorf("directory: decode users: %w", err)
	}
	return users, nil
}
