package core

import (
	"context"
	"errors"
	"maps"
	"math"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"ecourts-backend/internal/components/telemetry"
	"ecourts-backend/lib/restyutil"
	"ecourts-backend/lib/scrapers/ecourts/markup"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/avast/retry-go/v4"
	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// Portal paths, relative to the base url.
const (
	IndexPath        = "ecourtindia_v6/?p=casestatus/index"
	HomePath         = "ecourtindia_v6/"
	CaptchaImagePath = "ecourtindia_v6/vendor/securimage/securimage_show.php"
)

const userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

var retryableStatus = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// Client owns the portal session: the cookie jar (inside the http client),
// the current anti-CSRF token and the context of the last case submitted.
// All three are guarded by one mutex that is never held across a network
// round trip.
type Client struct {
	BaseUrl *url.URL

	opts    Options
	tel     telemetry.API
	limiter *rate.Limiter
	init    singleflight.Group

	mu            sync.Mutex
	http          *resty.Client
	token         string
	initialized   bool
	initializedAt time.Time
	lastCase      *LastCaseContext
}

func NewClient(opts Options) (*Client, error) {
	opts = opts.withDefaults()
	if !strings.HasSuffix(opts.BaseUrl, "/") {
		opts.BaseUrl += "/"
	}
	baseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, err
	}

	// max burst >= rate just means that no requests will be dropped
	burst := int(math.Ceil(opts.RequestsPerSecond))

	c := &Client{
		BaseUrl: baseUrl,
		opts:    opts,
		tel:     telemetry.NewScopedAPI("ecourts_core", opts.Telemetry),
		limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst),
	}
	httpClient, err := c.newHttp()
	if err != nil {
		return nil, err
	}
	c.http = httpClient
	return c, nil
}

// newHttp creates a transport with an empty cookie jar.
func (c *Client) newHttp() (*resty.Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	client := resty.New()
	client.SetBaseURL(c.opts.BaseUrl)
	client.SetCookieJar(jar)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	client.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(c.BaseUrl.Hostname()))
	client.SetTimeout(c.opts.timeout())
	client.SetHeaders(map[string]string{
		"User-Agent":                userAgent,
		"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
		"Accept-Language":           "en-US,en;q=0.5",
		"DNT":                       "1",
		"Upgrade-Insecure-Requests": "1",
		"Cache-Control":             "max-age=0",
	})

	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return c.limiter.Wait(req.Context())
	})
	telemetry.InstrumentResty(client, c.tel)
	restyutil.InstrumentClient(client, tracer, c.opts.Dump)

	return client, nil
}

// Http returns the live transport, requests made with it share the
// session's cookies.
func (c *Client) Http() *resty.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.http
}

// snapshot returns the transport and token of the same session.
func (c *Client) snapshot() (*resty.Client, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.http, c.token
}

// send performs a request, retrying transport failures and 429/5xx
// responses with exponential backoff. Any final status other than 200 is
// returned as a *TransportError alongside the response. Each attempt is
// given the token belonging to the transport it is sent on.
func (c *Client) send(ctx context.Context, do func(r *resty.Request, token string) (*resty.Response, error)) (*resty.Response, error) {
	var res *resty.Response
	err := retry.Do(
		func() error {
			transport, token := c.snapshot()
			var err error
			res, err = do(transport.R().SetContext(ctx), token)
			if err != nil {
				return err
			}
			if retryableStatus[res.StatusCode()] {
				return &TransportError{StatusCode: res.StatusCode()}
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(uint(c.opts.RetryCount)+1),
		retry.Delay(c.opts.retryDelay()),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		var transportErr *TransportError
		if errors.As(err, &transportErr) {
			return res, transportErr
		}
		return res, &TransportError{Err: err}
	}
	if res.StatusCode() != http.StatusOK {
		return res, &TransportError{StatusCode: res.StatusCode()}
	}
	return res, nil
}

// Get fetches a page or document relative to the base url.
func (c *Client) Get(ctx context.Context, path string) (*resty.Response, error) {
	return c.send(ctx, func(r *resty.Request, _ string) (*resty.Response, error) {
		return r.SetHeader("Referer", c.BaseUrl.String()).Get(path)
	})
}

// AjaxResponse is a successful (200) ajax exchange.
type AjaxResponse struct {
	StatusCode int
	Body       []byte
	// Envelope is the body parsed as JSON, see markup.ParseEnvelope.
	Envelope gjson.Result
	Header   http.Header
}

func (c *Client) ajaxHeaders() map[string]string {
	return map[string]string{
		"X-Requested-With": "XMLHttpRequest",
		"Referer":          c.BaseUrl.String() + IndexPath,
		"Origin":           strings.TrimSuffix(c.BaseUrl.String(), "/"),
		"Accept":           "application/json, text/javascript, */*; q=0.01",
	}
}

// PostAjax submits `form` the way the portal's own scripts do, with
// ajax_req and the current token added. A token carried by the response
// replaces the stored one.
func (c *Client) PostAjax(ctx context.Context, path string, form map[string]string) (AjaxResponse, error) {
	res, err := c.send(ctx, func(r *resty.Request, token string) (*resty.Response, error) {
		data := make(map[string]string, len(form)+2)
		maps.Copy(data, form)
		data["ajax_req"] = "true"
		data["app_token"] = token
		return r.SetHeaders(c.ajaxHeaders()).SetFormData(data).Post(path)
	})
	out := AjaxResponse{}
	if res != nil {
		out.StatusCode = res.StatusCode()
		out.Body = res.Body()
		out.Header = res.Header()
	}
	if err != nil {
		return out, err
	}

	out.Envelope = markup.ParseEnvelope(out.Body)
	c.RotateToken(markup.Token(out.Envelope))
	return out, nil
}

// Ajax is PostAjax with session recovery: when the portal reports a
// session timeout the session is refreshed once and the call is retried
// once. A second timeout is returned as ErrSessionExpired.
func (c *Client) Ajax(ctx context.Context, path string, form map[string]string) (AjaxResponse, error) {
	res, err := c.PostAjax(ctx, path, form)
	if err != nil || !markup.IsSessionTimeout(res.Envelope) {
		return res, err
	}

	c.tel.ReportDebug(report_client_ajax+": session timeout, refreshing", path)
	if !c.Refresh(ctx) {
		return res, ErrSessionExpired
	}
	res, err = c.PostAjax(ctx, path, form)
	if err != nil {
		return res, err
	}
	if markup.IsSessionTimeout(res.Envelope) {
		c.tel.ReportWarning(report_client_ajax, ErrSessionExpired, path)
		return res, ErrSessionExpired
	}
	return res, nil
}
