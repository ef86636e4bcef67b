package core

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"ecourts-backend/lib/scrapers/ecourts/markup"
	"ecourts-backend/lib/timezone"

	"github.com/mazen160/go-random"
	"go.opentelemetry.io/otel/codes"
)

// LastCaseContext is what is kept of the most recent case submission so a
// later order download can rebuild the server side context the portal
// expects.
type LastCaseContext struct {
	StateCode        string          `json:"state_code"`
	DistCode         string          `json:"dist_code"`
	CourtComplexCode string          `json:"court_complex_code"`
	EstCode          string          `json:"est_code"`
	CaseType         string          `json:"case_type"`
	CaseNo           string          `json:"case_no"`
	Year             string          `json:"rgyear"`
	Chain            markup.ChainKey `json:"view_history"`
}

// Status is a snapshot of the session for health reporting.
type Status struct {
	Initialized    bool   `json:"initialized"`
	TokenAvailable bool   `json:"token_available"`
	InitializedAt  string `json:"initialized_at,omitempty"`
}

func (c *Client) isInitialized() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.initialized
}

// EnsureInitialized establishes the session if that has not happened yet.
// It is idempotent and concurrent callers share a single landing page
// request. It reports whether a session is available.
func (c *Client) EnsureInitialized(ctx context.Context) bool {
	if c.isInitialized() {
		return true
	}
	ok, _, _ := c.init.Do("initialize", func() (any, error) {
		return c.initialize(ctx), nil
	})
	return ok.(bool)
}

func (c *Client) initialize(ctx context.Context) bool {
	ctx, span := tracer.Start(ctx, "client:initialize")
	defer span.End()

	if c.isInitialized() {
		return true
	}

	res, err := c.Get(ctx, IndexPath)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch landing page")
		c.tel.ReportWarning(report_client_initialize, err)
		return false
	}

	token := markup.ExtractToken(res.Body())
	if token == "" {
		c.tel.ReportWarning(report_client_initialize, errors.New("no app_token on landing page"))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if token != "" {
		c.token = token
	}
	c.initialized = true
	c.initializedAt = timezone.Now()
	return true
}

// Refresh recovers a stale session. The portal home page is fetched first
// to pick up a fresh token while keeping cookies, if that yields nothing
// the transport is discarded and the session is established from scratch.
func (c *Client) Refresh(ctx context.Context) bool {
	ctx, span := tracer.Start(ctx, "client:refresh")
	defer span.End()

	res, err := c.Get(ctx, HomePath)
	if err == nil {
		token := markup.ExtractToken(res.Body())
		if token != "" {
			c.RotateToken(token)
			c.tel.ReportDebug(report_client_refresh + ": token refreshed in place")
			return true
		}
	} else {
		span.RecordError(err)
	}

	c.tel.ReportDebug(report_client_refresh + ": falling back to full initialization")
	if err := c.resetTransport(false); err != nil {
		span.SetStatus(codes.Error, "failed to reset transport")
		c.tel.ReportBroken(report_client_refresh, err)
		return false
	}
	ok := c.EnsureInitialized(ctx)
	if !ok {
		span.SetStatus(codes.Error, "reinitialization failed")
	}
	return ok
}

func (c *Client) resetTransport(clearLastCase bool) error {
	httpClient, err := c.newHttp()
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.http = httpClient
	c.token = ""
	c.initialized = false
	c.initializedAt = time.Time{}
	if clearLastCase {
		c.lastCase = nil
	}
	return nil
}

// Reset discards cookies, the token and the last case context. The next
// operation establishes a new session.
func (c *Client) Reset() error {
	return c.resetTransport(true)
}

func (c *Client) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// RotateToken stores `token` as the current token, empty tokens are
// ignored.
func (c *Client) RotateToken(token string) {
	if token == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

func (c *Client) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	status := Status{
		Initialized:    c.initialized,
		TokenAvailable: c.token != "",
	}
	if !c.initializedAt.IsZero() {
		status.InitializedAt = timezone.Format(c.initializedAt)
	}
	return status
}

// LastCase returns a copy of the last case context, if any.
func (c *Client) LastCase() (LastCaseContext, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastCase == nil {
		return LastCaseContext{}, false
	}
	return *c.lastCase, true
}

func (c *Client) SetLastCase(lastCase LastCaseContext) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastCase = &lastCase
}

// CaptchaURL is the absolute url of a fresh captcha image, the random
// query defeats caching. The image is bound to the session's cookies so it
// must be fetched through this client, see CaptchaImage.
func (c *Client) CaptchaURL() string {
	buster, err := random.String(32)
	if err != nil {
		buster = strconv.FormatInt(time.Now().UnixNano(), 16)
	}
	return fmt.Sprintf("%s%s?%s", c.BaseUrl.String(), CaptchaImagePath, buster)
}

// CaptchaImage fetches a captcha image within the current session and
// returns its bytes and content type.
func (c *Client) CaptchaImage(ctx context.Context) ([]byte, string, error) {
	ctx, span := tracer.Start(ctx, "client:captchaImage")
	defer span.End()

	if !c.EnsureInitialized(ctx) {
		span.SetStatus(codes.Error, ErrNotInitialized.Error())
		return nil, "", ErrNotInitialized
	}
	res, err := c.Get(ctx, c.CaptchaURL())
	if err != nil {
		span.RecordError(err)
		c.tel.ReportWarning(report_client_captcha, err)
		return nil, "", err
	}
	contentType := res.Header().Get("Content-Type")
	if contentType == "" {
		contentType = "image/png"
	}
	return res.Body(), contentType, nil
}
