// Package cache implements the client-side Content Cache (spec.md
// §4.6) and Link Interceptor. Grounded on the original_source's
// _save_html_file / link-interception script, reworked from a one-off
// Python string concat into a small injectable Go constant plus an
// idempotent injection helper.
package cache

import (
	"fmt"
	"strings"

	"github.com/fr33n0w/rweb"
)

// interceptorTemplate is the fixed click-interceptor script, templated
// only by the current peer's hash. Per spec.md §9's design note, a
// literal string replacement at known HTML boundaries is used rather
// than parsing and rewriting the document — bit-equivalence with a
// reference implementation requires the literal approach.
const interceptorTemplate = `
<script data-rweb-interceptor="1">
(function() {
    var currentServer = %q;

    function navigate(href) {
        var page = href;
        if (page.indexOf('./') === 0) {
            page = page.slice(2);
        }
        if (page.indexOf('/') === 0) {
            page = page.slice(1);
        }
        window.parent.postMessage({
            type: 'lxmf_navigate',
            server: currentServer,
            page: page
        }, '*');
    }

    document.addEventListener('DOMContentLoaded', function() {
        document.addEventListener('click', function(e) {
            var target = e.target;
            while (target && target.tagName !== 'A') {
                target = target.parentElement;
            }
            if (!target) {
                return;
            }
            var href = target.getAttribute('href');
            if (!href) {
                return;
            }
            var isPage = href.slice(-5) === '.html' || href.slice(-4) === '.htm';
            var hasScheme = href.indexOf('://') !== -1;
            if (isPage || !hasScheme) {
                e.preventDefault();
                navigate(href);
            }
        }, true);
    });
})();
</script>
`

// interceptorMarker lets InjectInterceptor detect an already-injected
// script so reinjection is idempotent (spec.md §8 invariant 3).
const interceptorMarker = `data-rweb-interceptor="1"`

// InjectInterceptor concatenates the click-interceptor script into
// html, scoped to peer, before </head> if present, else before
// </body>, else appended — exactly the boundary search order of
// spec.md §4.6. Calling it again on already-injected HTML is a no-op.
func InjectInterceptor(html string, peer rweb.DestinationHash) string {
	if strings.Contains(html, interceptorMarker) {
		return html
	}

	script := fmt.Sprintf(interceptorTemplate, peer.String())

	if idx := strings.Index(html, "</head>"); idx >= 0 {
		return html[:idx] + script + html[idx:]
	}
	if idx := strings.Index(html, "</body>"); idx >= 0 {
		return html[:idx] + script + html[idx:]
	}
	return html + script
}

// CountInterceptors reports how many copies of the interceptor script
// are present, used to assert the idempotence invariant in tests.
func CountInterceptors(html string) int {
	return strings.Count(html, interceptorMarker)
}
