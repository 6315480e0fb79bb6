package rule

import (
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/metafates/gache"
	"github.com/samber/mo"
	"github.com/vidgate/vidgate/filesystem"
	"github.com/vidgate/vidgate/log"
	"github.com/vidgate/vidgate/where"
)

// Engine scans enabled rules in descending priority order and returns the
// first full match. The rule list is replaced as a whole snapshot, never
// mutated in place while matching is in flight.
type Engine struct {
	rules atomic.Pointer[[]*Rule]
	store *gache.Cache[[]*Rule]
}

// NewEngine constructs an Engine backed by the persisted rule registry.
func NewEngine() *Engine {
	e := &Engine{
		store: gache.New[[]*Rule](&gache.Options{
			Path:       where.Rules(),
			FileSystem: &filesystem.GacheFs{},
		}),
	}

	empty := make([]*Rule, 0)
	e.rules.Store(&empty)

	if rules, expired, err := e.store.Get(); err == nil && !expired && rules != nil {
		e.Replace(rules)
	}

	return e
}

// Rules returns the current snapshot.
func (e *Engine) Rules() []*Rule {
	return *e.rules.Load()
}

// Replace atomically swaps the rule list, pre-sorted by descending priority.
func (e *Engine) Replace(rules []*Rule) {
	sorted := make([]*Rule, len(rules))
	copy(sorted, rules)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority > sorted[j].Priority
	})
	e.rules.Store(&sorted)
}

// Save persists the current snapshot.
func (e *Engine) Save() error {
	return e.store.Set(e.Rules())
}

// Match returns the first enabled rule whose base pattern and every condition
// hold for the URL. Scanning stops at the first full match.
func (e *Engine) Match(rawURL string, ctx *Context) mo.Option[*Rule] {
	for _, r := range e.Rules() {
		if !r.Enabled {
			continue
		}
		if matches(r, rawURL, ctx) {
			return mo.Some(r)
		}
	}
	return mo.None[*Rule]()
}

// Apply computes the rewrite a matched rule prescribes.
func (e *Engine) Apply(r *Rule, rawURL string, ctx *Context) *Application {
	headers := make(map[string]string, len(r.Headers)+2)
	for k, v := range r.Headers {
		headers[k] = v
	}

	switch {
	case strings.HasPrefix(r.Target, "http://") || strings.HasPrefix(r.Target, "https://"):
		// Absolute target: proxy through it verbatim.
		headers["X-Proxy-Rule"] = r.ID
		headers["X-Proxy-Target"] = r.Target
		return &Application{URL: r.Target, Headers: headers}

	case strings.Contains(r.Target, ":"):
		// host:port target: preserve the URL, delegate forwarding.
		return &Application{URL: rawURL, ForwardHost: r.Target, Headers: headers}

	default:
		return &Application{
			URL:     strings.ReplaceAll(rawURL, r.Pattern, r.Target),
			Headers: headers,
		}
	}
}

// matches evaluates the base pattern test plus all conditions.
// Any matching panic or compile failure fails this rule only, not the scan.
func matches(r *Rule, rawURL string, ctx *Context) (matched bool) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Warnf("rule %s: matcher panic: %v", r.ID, rec)
			matched = false
		}
	}()

	if !baseMatch(r, rawURL) {
		return false
	}

	for i := range r.Conditions {
		if !conditionHolds(&r.Conditions[i], ctx) {
			return false
		}
	}

	return true
}

func baseMatch(r *Rule, rawURL string) bool {
	switch r.MatchKind {
	case MatchURLPattern:
		if strings.Contains(r.Pattern, "*") {
			re, err := regexp.Compile("^" + strings.ReplaceAll(regexp.QuoteMeta(r.Pattern), `\*`, ".*") + "$")
			if err != nil {
				return false
			}
			return re.MatchString(rawURL)
		}
		if strings.HasPrefix(r.Pattern, "http") {
			return strings.HasPrefix(rawURL, r.Pattern)
		}
		return strings.Contains(rawURL, r.Pattern)

	case MatchDomain:
		parsed, err := url.Parse(rawURL)
		if err != nil {
			return false
		}
		host := parsed.Hostname()
		if strings.HasPrefix(r.Pattern, "*.") {
			return strings.HasSuffix(host, r.Pattern[1:]) || host == r.Pattern[2:]
		}
		return host == r.Pattern

	case MatchPath:
		parsed, err := url.Parse(rawURL)
		if err != nil {
			return false
		}
		path := parsed.Path
		if strings.Contains(r.Pattern, "*") {
			re, err := regexp.Compile("^" + strings.ReplaceAll(regexp.QuoteMeta(r.Pattern), `\*`, ".*") + "$")
			if err != nil {
				return false
			}
			return re.MatchString(path)
		}
		if strings.HasPrefix(r.Pattern, "/") {
			return strings.HasPrefix(path, r.Pattern)
		}
		return strings.Contains(path, r.Pattern)

	case MatchRegex:
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return false
		}
		return re.MatchString(rawURL)

	case MatchExact:
		return rawURL == r.Pattern

	default:
		return false
	}
}

func conditionHolds(c *Condition, ctx *Context) bool {
	if ctx == nil {
		ctx = &Context{}
	}

	var actual string
	switch c.Source {
	case SourceHeader:
		actual = headerValue(ctx.Headers, c.Key)
	case SourceQueryParam:
		actual = ctx.Query[c.Key]
	case SourceTime:
		actual = ctx.Now.Format("15:04")
	case SourceUserAgent:
		actual = ctx.UserAgent
	case SourceReferer:
		actual = ctx.Referer
	default:
		return false
	}

	switch c.Operator {
	case OpEquals:
		return actual == c.Value
	case OpNotEquals:
		return actual != c.Value
	case OpContains:
		return strings.Contains(actual, c.Value)
	case OpNotContains:
		return !strings.Contains(actual, c.Value)
	case OpStartsWith:
		return strings.HasPrefix(actual, c.Value)
	case OpEndsWith:
		return strings.HasSuffix(actual, c.Value)
	case OpRegex:
		re, err := regexp.Compile(c.Value)
		if err != nil {
			return false
		}
		return re.MatchString(actual)
	case OpGreaterThan:
		return compare(actual, c.Value) > 0
	case OpLessThan:
		return compare(actual, c.Value) < 0
	default:
		return false
	}
}

// compare orders numerically when both sides parse as numbers, else lexically.
func compare(a, b string) int {
	fa, errA := strconv.ParseFloat(a, 64)
	fb, errB := strconv.ParseFloat(b, 64)
	if errA == nil && errB == nil {
		switch {
		case fa > fb:
			return 1
		case fa < fb:
			return -1
		default:
			return 0
		}
	}
	return strings.Compare(a, b)
}

// headerValue does a case-insensitive header lookup.
func headerValue(headers map[string]string, key string) string {
	if v, ok := headers[key]; ok {
		return v
	}
	for k, v := range headers {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}
