package api

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"binday/internal/config"
	"binday/internal/models"
)

// Column positions in the two council feeds.
const (
	premisesColID          = 0
	premisesColHouseName   = 1
	premisesColHouseNumber = 2
	premisesColPostcode    = 6

	jobsColPremisesID = 0
	jobsColCode       = 1
	jobsColDate       = 2

	// JobDateLayout is the DD/MM/YY form used by the schedule feed.
	JobDateLayout = "02/01/06"
)

type Client struct {
	config *config.Config
	http   *http.Client
	loc    *time.Location
}

// Probe is the result of a HEAD request against the schedule feed.
type Probe struct {
	LastModified  string
	ContentLength int64
}

func NewClient(cfg *config.Config) *Client {
	return NewClientWithHTTP(cfg, &http.Client{})
}

// NewClientWithHTTP lets callers supply their own transport.
func NewClientWithHTTP(cfg *config.Config, hc *http.Client) *Client {
	return &Client{
		config: cfg,
		http:   hc,
		loc:    cfg.Location(),
	}
}

func (c *Client) createRequest(ctx context.Context, method, url string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.config.Feed.UserAgent)
	req.Header.Set("Accept", "text/csv")
	return req, nil
}

func (c *Client) do(ctx context.Context, op, method, url string) (*http.Response, error) {
	req, err := c.createRequest(ctx, method, url)
	if err != nil {
		return nil, &FetchError{Kind: FailTransport, Op: op, Err: fmt.Errorf("creating request: %w", err)}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &FetchError{Kind: FailTransport, Op: op, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, &FetchError{Kind: FailStatus, Op: op, StatusCode: resp.StatusCode}
	}
	return resp, nil
}

// FindPremises streams the premises feed and returns the first record
// accepted by match.
func (c *Client) FindPremises(ctx context.Context, match func(models.PremisesRecord) bool) (models.PremisesRecord, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Feed.DownloadTimeout)
	defer cancel()

	resp, err := c.do(ctx, "premises", http.MethodGet, c.config.Feed.PremisesURL)
	if err != nil {
		return models.PremisesRecord{}, false, err
	}
	defer resp.Body.Close()

	r := newReader(resp.Body)
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			return models.PremisesRecord{}, false, nil
		}
		if err != nil {
			return models.PremisesRecord{}, false, readError("premises", err)
		}
		if len(row) <= premisesColPostcode {
			continue
		}

		rec := models.PremisesRecord{
			PremisesID:  strings.TrimSpace(row[premisesColID]),
			HouseName:   strings.TrimSpace(row[premisesColHouseName]),
			HouseNumber: strings.TrimSpace(row[premisesColHouseNumber]),
			Postcode:    strings.TrimSpace(row[premisesColPostcode]),
		}
		if match(rec) {
			return rec, true, nil
		}
	}
}

// ProbeJobs issues a HEAD request against the schedule feed.
func (c *Client) ProbeJobs(ctx context.Context) (Probe, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Feed.ProbeTimeout)
	defer cancel()

	resp, err := c.do(ctx, "probe", http.MethodHead, c.config.Feed.JobsURL)
	if err != nil {
		return Probe{}, err
	}
	resp.Body.Close()

	p := Probe{
		LastModified:  resp.Header.Get("Last-Modified"),
		ContentLength: resp.ContentLength,
	}
	if p.LastModified == "" {
		return p, &FetchError{Kind: FailMissingHeader, Op: "probe"}
	}
	if p.ContentLength == 0 {
		return p, &FetchError{Kind: FailEmptyBody, Op: "probe"}
	}
	return p, nil
}

// GetJobs downloads the schedule feed and keeps only the rows belonging to
// premisesID. It also returns the Last-Modified header of the download.
func (c *Client) GetJobs(ctx context.Context, premisesID string) ([]models.ScheduleRow, string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Feed.DownloadTimeout)
	defer cancel()

	resp, err := c.do(ctx, "download", http.MethodGet, c.config.Feed.JobsURL)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.ContentLength == 0 {
		return nil, "", &FetchError{Kind: FailEmptyBody, Op: "download"}
	}

	rows, err := c.decodeJobs(resp.Body, premisesID)
	if err != nil {
		return nil, "", err
	}
	return rows, resp.Header.Get("Last-Modified"), nil
}

func (c *Client) decodeJobs(body io.Reader, premisesID string) ([]models.ScheduleRow, error) {
	var rows []models.ScheduleRow

	r := newReader(body)
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, readError("download", err)
		}
		if len(row) <= jobsColDate || strings.TrimSpace(row[jobsColPremisesID]) != premisesID {
			continue
		}

		cat, ok := models.CategoryFromCode(strings.ToUpper(strings.TrimSpace(row[jobsColCode])))
		if !ok {
			continue
		}
		date, err := ParseJobDate(row[jobsColDate], c.loc)
		if err != nil {
			continue
		}
		rows = append(rows, models.ScheduleRow{
			PremisesID: premisesID,
			Category:   cat,
			Date:       date,
		})
	}
}

// ParseJobDate parses a DD/MM/YY schedule date as midnight in loc.
func ParseJobDate(s string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(JobDateLayout, strings.TrimSpace(s), loc)
}

func newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true
	return cr
}

func readError(op string, err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return &FetchError{Kind: FailDecode, Op: op, Err: err}
	}
	return &FetchError{Kind: FailTransport, Op: op, Err: err}
}
