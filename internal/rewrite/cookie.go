package rewrite

import (
	"net/http"
	"strings"

	"github.com/mrorigo/blanktrace/internal/auditlog"
	"github.com/mrorigo/blanktrace/internal/config"
	"github.com/mrorigo/blanktrace/internal/policy"
)

// CookieRewriter is rewrite stage 3 (spec §4.5 item 3): strips cookies in
// both directions under the configured policy. allow_list always wins over
// block_list when a host appears in both (spec §4.5's documented tie-break).
type CookieRewriter struct {
	State    *policy.State
	Policy   config.CookiePolicy
	Recorder Recorder
}

// NewCookieRewriter builds a CookieRewriter from resolved configuration.
func NewCookieRewriter(state *policy.State, cookiePolicy config.CookiePolicy, recorder Recorder) *CookieRewriter {
	return &CookieRewriter{State: state, Policy: cookiePolicy, Recorder: recorder}
}

func containsHost(hosts []string, host string) bool {
	for _, h := range hosts {
		if strings.EqualFold(h, host) {
			return true
		}
	}
	return false
}

// ApplyRequest implements Rewriter: strips the Cookie header per policy.
func (c *CookieRewriter) ApplyRequest(ctx *Context, req *http.Request) (*http.Response, error) {
	if req.Header.Get("Cookie") == "" {
		return nil, nil
	}

	if c.Policy.BlockAll {
		c.logAll(ctx, req.Cookies(), true)
		req.Header.Del("Cookie")
		return nil, nil
	}

	allowed := containsHost(c.Policy.AllowList, ctx.Host)
	blocked := containsHost(c.Policy.BlockList, ctx.Host)

	switch {
	case allowed:
		// allow_list wins over block_list: keep every pair unchanged.
		c.logAll(ctx, req.Cookies(), false)
	case blocked:
		c.logAll(ctx, req.Cookies(), true)
		req.Header.Del("Cookie")
		c.maybeAutoBlock(ctx.Host)
	case len(c.Policy.AllowList) > 0:
		// Default-deny: an allow_list is configured and this host isn't on
		// it, so it gets no cookies even though it's not on block_list
		// either (spec §4.5 item 3, §8 S4).
		c.logAll(ctx, req.Cookies(), true)
		req.Header.Del("Cookie")
	}
	return nil, nil
}

// ApplyResponse implements Rewriter: strips Set-Cookie headers per policy.
func (c *CookieRewriter) ApplyResponse(ctx *Context, resp *http.Response) error {
	setCookies := resp.Header.Values("Set-Cookie")
	if len(setCookies) == 0 {
		return nil
	}

	allowed := containsHost(c.Policy.AllowList, ctx.Host) && !c.Policy.BlockAll
	if allowed {
		c.logSetCookies(ctx, setCookies, false)
		return nil
	}

	c.logSetCookies(ctx, setCookies, true)
	resp.Header.Del("Set-Cookie")
	return nil
}

func (c *CookieRewriter) logAll(ctx *Context, cookies []*http.Cookie, blocked bool) {
	if !c.Policy.LogAttempts || c.Recorder == nil {
		return
	}
	for _, cookie := range cookies {
		masked := auditlog.RedactCookieValue(cookie.Name, cookie.Value)
		c.Recorder.Record(auditlog.CookieTrafficEntryAt(ctx.Now, ctx.Host, masked, blocked))
	}
}

func (c *CookieRewriter) logSetCookies(ctx *Context, raw []string, blocked bool) {
	if !c.Policy.LogAttempts || c.Recorder == nil {
		return
	}
	for _, header := range raw {
		name := header
		if i := strings.IndexByte(header, '='); i >= 0 {
			name = header[:i]
		}
		c.Recorder.Record(auditlog.CookieTrafficEntryAt(ctx.Now, ctx.Host, name+"=***", blocked))
	}
}

// maybeAutoBlock additionally marks host blocked in the tracking table when
// cookies.auto_block_trackers is set: a host whose cookies are dropped
// because it is on cookies.block_list is treated as a known tracker even
// before it crosses the hit-count auto-block threshold.
func (c *CookieRewriter) maybeAutoBlock(host string) {
	if c.Policy.AutoBlockTrackers && c.State != nil {
		c.State.Tracking.SetBlocked(host, true)
	}
}
