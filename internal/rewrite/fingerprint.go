package rewrite

import (
	"net/http"

	"github.com/mrorigo/blanktrace/internal/auditlog"
	"github.com/mrorigo/blanktrace/internal/config"
	"github.com/mrorigo/blanktrace/internal/policy"
)

// FingerprintRewriter is rewrite stage 2 (spec §4.5 item 2): refreshes the
// advertised User-Agent/Accept-Language per rotation_mode, strips Referer,
// and logs only actual rotations.
type FingerprintRewriter struct {
	Fingerprint *policy.Fingerprint
	Policy      config.FingerprintPolicy
	Recorder    Recorder
}

// NewFingerprintRewriter builds a FingerprintRewriter from resolved configuration.
func NewFingerprintRewriter(fp *policy.Fingerprint, fingerprintPolicy config.FingerprintPolicy, recorder Recorder) *FingerprintRewriter {
	return &FingerprintRewriter{Fingerprint: fp, Policy: fingerprintPolicy, Recorder: recorder}
}

// ApplyRequest implements Rewriter.
func (f *FingerprintRewriter) ApplyRequest(ctx *Context, req *http.Request) (*http.Response, error) {
	userAgent, acceptLanguage, rotated := f.Fingerprint.Current()

	if f.Policy.RandomizeUserAgent {
		req.Header.Set("User-Agent", userAgent)
	}
	if f.Policy.RandomizeAcceptLanguage {
		req.Header.Set("Accept-Language", acceptLanguage)
	}
	if f.Policy.StripReferer {
		req.Header.Del("Referer")
	}

	if rotated && f.Recorder != nil {
		f.Recorder.Record(auditlog.FingerprintRotationEntryAt(ctx.Now, userAgent, acceptLanguage, string(f.Policy.RotationMode)))
	}
	return nil, nil
}

// ApplyResponse implements Rewriter. Fingerprint rotation is a request-side
// concern only.
func (f *FingerprintRewriter) ApplyResponse(ctx *Context, resp *http.Response) error {
	return nil
}
