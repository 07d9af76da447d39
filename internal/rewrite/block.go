package rewrite

import (
	"io"
	"net/http"
	"strings"

	"github.com/mrorigo/blanktrace/internal/auditlog"
	"github.com/mrorigo/blanktrace/internal/config"
	"github.com/mrorigo/blanktrace/internal/policy"
	"github.com/mrorigo/blanktrace/internal/trackercat"
)

// BlockRewriter is rewrite stage 1 (spec §4.5 item 1): whitelist skip,
// explicit blocklist / regex / auto-block-threshold short-circuit, and the
// hit-counter increment that can itself trigger future auto-blocking.
type BlockRewriter struct {
	State      *policy.State
	Policy     config.BlockingPolicy
	Classifier trackercat.Registry
	Recorder   Recorder
}

// NewBlockRewriter builds a BlockRewriter from resolved configuration.
func NewBlockRewriter(state *policy.State, blockingPolicy config.BlockingPolicy, classifier trackercat.Registry, recorder Recorder) *BlockRewriter {
	return &BlockRewriter{State: state, Policy: blockingPolicy, Classifier: classifier, Recorder: recorder}
}

func (b *BlockRewriter) inBlockList(host string) bool {
	for _, blocked := range b.Policy.BlockList {
		if strings.EqualFold(blocked, host) {
			return true
		}
	}
	return false
}

func (b *BlockRewriter) matchesPattern(host string) bool {
	for _, re := range b.Policy.CompiledPatterns {
		if re.MatchString(host) {
			return true
		}
	}
	return false
}

// ApplyRequest implements Rewriter.
func (b *BlockRewriter) ApplyRequest(ctx *Context, req *http.Request) (*http.Response, error) {
	host := ctx.Host

	if b.State.Whitelist.Contains(host) {
		return nil, nil
	}

	alreadyBlocked := b.State.Tracking.IsBlocked(host)
	if b.inBlockList(host) || b.matchesPattern(host) || alreadyBlocked {
		b.recordBlock(ctx, host)
		return blockedResponse(req), nil
	}

	count, becameBlocked := b.State.Tracking.Hit(host, b.Policy.AutoBlock, b.Policy.AutoBlockThreshold)
	category := b.Classifier.Classify(host)
	if category != "" {
		b.State.Tracking.SetCategory(host, category)
	}
	if b.Recorder != nil {
		b.Recorder.Record(auditlog.DomainUpdateEntryAt(ctx.Now, host, count, becameBlocked, category))
	}
	return nil, nil
}

// ApplyResponse implements Rewriter. The block rewriter has nothing to do
// on the response side — blocking is decided entirely up front.
func (b *BlockRewriter) ApplyResponse(ctx *Context, resp *http.Response) error {
	return nil
}

func (b *BlockRewriter) recordBlock(ctx *Context, host string) {
	b.State.Tracking.SetBlocked(host, true)
	if b.Recorder == nil {
		return
	}
	snapshot := b.State.Tracking.Snapshot()[host]
	b.Recorder.Record(auditlog.DomainUpdateEntryAt(ctx.Now, host, snapshot.HitCount, true, snapshot.Category))
}

// blockedResponse builds the synthesized 403 the chain returns to short-
// circuit a blocked host (spec §4.5 item 1).
func blockedResponse(req *http.Request) *http.Response {
	body := "Blocked by BlankTrace"
	return &http.Response{
		StatusCode:    http.StatusForbidden,
		Status:        "403 Forbidden",
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        http.Header{"Content-Type": []string{"text/plain; charset=utf-8"}},
		Body:          io.NopCloser(strings.NewReader(body)),
		ContentLength: int64(len(body)),
		Request:       req,
	}
}
