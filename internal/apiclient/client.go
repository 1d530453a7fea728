// Package apiclient talks to the GrillGauge REST API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	gerrors "github.com/daviddao/grillgauge_viewer/internal/errors"
	"github.com/daviddao/grillgauge_viewer/internal/model"
)

// TokenSource supplies the bearer token for each request. An empty token
// sends no Authorization header.
type TokenSource func() string

// Options configures a Client.
type Options struct {
	BaseURL string
	Timeout time.Duration
	Token   TokenSource
	Logger  *zap.SugaredLogger

	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client
}

// Client is a thin typed wrapper over the REST endpoints. Safe for
// concurrent use.
type Client struct {
	r     *resty.Client
	token TokenSource
	log   *zap.SugaredLogger
}

// New returns a client for opts.BaseURL.
func New(opts Options) *Client {
	var r *resty.Client
	if opts.HTTPClient != nil {
		r = resty.NewWithClient(opts.HTTPClient)
	} else {
		r = resty.New()
	}
	r.SetBaseURL(strings.TrimRight(opts.BaseURL, "/"))
	if opts.Timeout > 0 {
		r.SetTimeout(opts.Timeout)
	}
	r.SetHeader("Accept", "application/json")

	log := opts.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	r.SetLogger(log)

	token := opts.Token
	if token == nil {
		token = func() string { return "" }
	}
	return &Client{r: r, token: token, log: log}
}

func (c *Client) req(ctx context.Context) *resty.Request {
	req := c.r.R().SetContext(ctx)
	if tok := c.token(); tok != "" {
		req.SetAuthToken(tok)
	}
	return req
}

// check turns transport failures and non-2xx responses into *APIError.
func check(op string, resp *resty.Response, err error) error {
	if err != nil {
		return gerrors.NewTransportError(op, err)
	}
	if resp.IsError() {
		msg := strings.TrimSpace(resp.String())
		var body gerrors.APIError
		if json.Unmarshal(resp.Body(), &body) == nil && body.Message != "" {
			msg = body.Message
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode())
		}
		return gerrors.FromStatus(resp.StatusCode(), op+": "+msg)
	}
	return nil
}

func emptyBody(b []byte) bool {
	b = bytes.TrimSpace(b)
	return len(b) == 0 || string(b) == "null"
}

// Hubs returns every hub, with its probes, owned by the user with the given
// email. An empty body means the user has no hubs. A malformed body is an
// error so the caller keeps its previous state.
func (c *Client) Hubs(ctx context.Context, email string) ([]model.Hub, error) {
	resp, err := c.req(ctx).
		SetQueryParam("email", email).
		Get("/ui/hubs")
	if err := check("get hubs", resp, err); err != nil {
		return nil, err
	}
	if emptyBody(resp.Body()) {
		return []model.Hub{}, nil
	}
	var hubs []model.Hub
	if err := json.Unmarshal(resp.Body(), &hubs); err != nil {
		return nil, gerrors.NewValidationError("decode hubs", err)
	}
	return hubs, nil
}

// ReadingsBetween returns readings per probe ID within [start, end]. An
// empty or malformed response yields an empty map, not an error: the chart
// shows "no data" instead of failing. Probes without readings may be absent
// from the map.
func (c *Client) ReadingsBetween(ctx context.Context, probeIDs []int64, start, end time.Time) (map[int64][]model.Reading, error) {
	out := make(map[int64][]model.Reading)
	if len(probeIDs) == 0 {
		return out, nil
	}
	ids := make([]string, len(probeIDs))
	for i, id := range probeIDs {
		ids[i] = strconv.FormatInt(id, 10)
	}

	resp, err := c.req(ctx).
		SetQueryParams(map[string]string{
			"probeIds": strings.Join(ids, ","),
			"start":    start.UTC().Format(time.RFC3339),
			"end":      end.UTC().Format(time.RFC3339),
		}).
		Get("/probe/readings/between")
	if err := check("get readings", resp, err); err != nil {
		return nil, err
	}
	if emptyBody(resp.Body()) {
		return out, nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(resp.Body(), &raw); err != nil {
		c.log.Warnw("malformed readings response", "err", err)
		return out, nil
	}
	for k, v := range raw {
		id, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			continue
		}
		var rs []model.Reading
		if err := json.Unmarshal(v, &rs); err != nil {
			c.log.Warnw("malformed readings for probe", "probe", id, "err", err)
			continue
		}
		out[id] = rs
	}
	return out, nil
}

// UpdateTargetTemp sets a probe's target temperature.
func (c *Client) UpdateTargetTemp(ctx context.Context, probeID int64, target float64) error {
	resp, err := c.req(ctx).
		SetPathParam("id", strconv.FormatInt(probeID, 10)).
		SetQueryParam("targetTemp", strconv.FormatFloat(target, 'f', -1, 64)).
		Put("/probe/targetTemp/{id}")
	return check("update target temp", resp, err)
}

// UpdateProbeName renames a probe.
func (c *Client) UpdateProbeName(ctx context.Context, probeID int64, name string) error {
	resp, err := c.req(ctx).
		SetPathParam("id", strconv.FormatInt(probeID, 10)).
		SetQueryParam("name", name).
		Put("/probe/name/{id}")
	return check("update probe name", resp, err)
}

// UpdateProbe replaces a probe record. When the server echoes the probe
// back, the echoed value is returned; otherwise p is returned unchanged.
func (c *Client) UpdateProbe(ctx context.Context, p model.Probe) (model.Probe, error) {
	resp, err := c.req(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(p).
		Put("/probe")
	if err := check("update probe", resp, err); err != nil {
		return p, err
	}
	if emptyBody(resp.Body()) {
		return p, nil
	}
	var echoed model.Probe
	if err := json.Unmarshal(resp.Body(), &echoed); err != nil {
		return p, nil
	}
	return echoed, nil
}

// UpdateHub replaces a hub record.
func (c *Client) UpdateHub(ctx context.Context, h model.Hub) error {
	resp, err := c.req(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(h).
		Put("/hub")
	return check("update hub", resp, err)
}

// DeleteProbe removes a probe.
func (c *Client) DeleteProbe(ctx context.Context, probeID int64) error {
	resp, err := c.req(ctx).
		SetPathParam("id", strconv.FormatInt(probeID, 10)).
		Delete("/probe/{id}")
	return check("delete probe", resp, err)
}

// DeleteHub removes a hub and its probes.
func (c *Client) DeleteHub(ctx context.Context, hubID int64) error {
	resp, err := c.req(ctx).
		SetPathParam("id", strconv.FormatInt(hubID, 10)).
		Delete("/hub/{id}")
	return check("delete hub", resp, err)
}

// LookupUser resolves an email to a user. 404, an empty body, null, and an
// empty array all mean NotFound; an object or a non-empty array (first
// element) mean Found.
func (c *Client) LookupUser(ctx context.Context, email string) (model.UserResult, error) {
	resp, err := c.req(ctx).
		SetQueryParam("email", email).
		Get("/user")
	if err == nil && resp.StatusCode() == http.StatusNotFound {
		return model.NotFound(), nil
	}
	if err := check("lookup user", resp, err); err != nil {
		return model.NotFound(), err
	}
	return decodeUser(resp.Body())
}

func decodeUser(body []byte) (model.UserResult, error) {
	body = bytes.TrimSpace(body)
	if emptyBody(body) {
		return model.NotFound(), nil
	}
	if body[0] == '[' {
		var us []model.User
		if err := json.Unmarshal(body, &us); err != nil {
			return model.NotFound(), gerrors.NewValidationError("decode user", err)
		}
		if len(us) == 0 {
			return model.NotFound(), nil
		}
		return model.FoundUser(us[0]), nil
	}
	var u model.User
	if err := json.Unmarshal(body, &u); err != nil {
		return model.NotFound(), gerrors.NewValidationError("decode user", err)
	}
	return model.FoundUser(u), nil
}

// ProbeColours returns the palette offered when assigning probe colours.
func (c *Client) ProbeColours(ctx context.Context) ([]string, error) {
	var colours []string
	resp, err := c.req(ctx).
		SetResult(&colours).
		Get("/ui/probe-colours")
	if err := check("get probe colours", resp, err); err != nil {
		return nil, err
	}
	return colours, nil
}

// String identifies the client in logs.
func (c *Client) String() string {
	return fmt.Sprintf("apiclient(%s)", c.r.BaseURL)
}
