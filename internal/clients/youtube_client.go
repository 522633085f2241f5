package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/jonboulle/clockwork"
	"github.com/spacesedan/commentflow/internal/models"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"golang.org/x/net/publicsuffix"
)

const (
	YOUTUBE_BASE_URL    = "https://www.youtube.com"
	YOUTUBE_CONSENT_URL = "https://consent.youtube.com/save"
	YOUTUBE_USER_AGENT  = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	SORT_BY_POPULAR = 0
	SORT_BY_RECENT  = 1

	AJAX_RETRIES     = 5
	AJAX_RETRY_SLEEP = 20 * time.Second
	PAGE_SLEEP       = 100 * time.Millisecond

	heartedState = "TOOLBAR_HEART_STATE_HEARTED"
)

var (
	ytCfgRe         = regexp.MustCompile(`ytcfg\.set\s*\(\s*({.+?})\s*\)\s*;`)
	ytInitialDataRe = regexp.MustCompile(`(?:window\s*\[\s*["']ytInitialData["']\s*\]|ytInitialData)\s*=\s*({.+?})\s*;\s*(?:var\s+meta|</script|\n)`)

	commentSectionTargets = map[string]bool{
		"comments-section":                         true,
		"engagement-panel-comments-section":        true,
		"shorts-engagement-panel-comments-section": true,
	}

	ErrSortUnavailable = errors.New("failed to set sorting")
	errStopped         = errors.New("iteration stopped")
)

// YouTubeClient reads comments from a video's watch page and the internal
// continuation API the page itself uses.
type YouTubeClient struct {
	Client     *http.Client
	Clock      clockwork.Clock
	BaseURL    string
	ConsentURL string
	// Language overrides the interface language (hl) sent with continuation requests.
	Language       string
	PageDelay      time.Duration
	AjaxRetryDelay time.Duration
}

func NewYouTubeClient() *YouTubeClient {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		panic(fmt.Errorf("[YouTubeClient] failed to create cookie jar: %w", err))
	}

	base, _ := url.Parse(YOUTUBE_BASE_URL)
	jar.SetCookies(base, []*http.Cookie{{Name: "CONSENT", Value: "YES+cb", Domain: ".youtube.com", Path: "/"}})

	return &YouTubeClient{
		Client:         &http.Client{Jar: jar, Timeout: 30 * time.Second},
		Clock:          clockwork.NewRealClock(),
		BaseURL:        YOUTUBE_BASE_URL,
		ConsentURL:     YOUTUBE_CONSENT_URL,
		PageDelay:      PAGE_SLEEP,
		AjaxRetryDelay: AJAX_RETRY_SLEEP,
	}
}

// Comments lazily walks the comments of videoURL. Nothing is requested until
// the sequence is ranged over; a non-nil error ends the sequence.
func (y *YouTubeClient) Comments(ctx context.Context, videoURL string, sortBy int) iter.Seq2[models.RawComment, error] {
	return func(yield func(models.RawComment, error) bool) {
		err := y.walk(ctx, videoURL, sortBy, func(c models.RawComment) bool {
			return yield(c, nil)
		})
		if err != nil && !errors.Is(err, errStopped) {
			yield(models.RawComment{}, err)
		}
	}
}

func (y *YouTubeClient) walk(ctx context.Context, videoURL string, sortBy int, emit func(models.RawComment) bool) error {
	page, err := y.fetchWatchPage(ctx, videoURL)
	if err != nil {
		return err
	}

	cfgRaw := regexSearch(ytCfgRe, page)
	if cfgRaw == "" || !gjson.Valid(cfgRaw) {
		slog.Warn("[YouTubeClient] No ytcfg found on watch page",
			slog.String("url", videoURL))
		return nil
	}
	if y.Language != "" {
		if cfgRaw, err = sjson.Set(cfgRaw, "INNERTUBE_CONTEXT.client.hl", y.Language); err != nil {
			return fmt.Errorf("[YouTubeClient] failed to set language: %w", err)
		}
	}
	ytcfg := gjson.Parse(cfgRaw)

	data := gjson.Parse(regexSearch(ytInitialDataRe, page))
	itemSection, ok := firstKey(data, "itemSectionRenderer")
	if !ok {
		return nil
	}
	if _, ok := firstKey(itemSection, "continuationItemRenderer"); !ok {
		slog.Info("[YouTubeClient] Comments are disabled", slog.String("url", videoURL))
		return nil
	}

	sortMenu := subMenuItems(data)
	if len(sortMenu) == 0 {
		sectionList, _ := firstKey(data, "sectionListRenderer")
		if continuations := searchKey(sectionList, "continuationEndpoint"); len(continuations) > 0 {
			first, err := y.ajax(ctx, continuations[0], ytcfg)
			if err != nil {
				return err
			}
			sortMenu = subMenuItems(first)
		}
	}
	if sortBy < 0 || sortBy >= len(sortMenu) {
		return ErrSortUnavailable
	}

	continuations := []gjson.Result{sortMenu[sortBy].Get("serviceEndpoint")}
	for len(continuations) > 0 {
		next := continuations[len(continuations)-1]
		continuations = continuations[:len(continuations)-1]

		resp, err := y.ajax(ctx, next, ytcfg)
		if err != nil {
			return err
		}
		if !resp.Exists() {
			break
		}

		if msg, ok := firstKey(resp, "externalErrorMessage"); ok {
			return fmt.Errorf("error returned from server: %s", msg.String())
		}

		actions := searchKey(resp, "reloadContinuationItemsCommand")
		actions = append(actions, searchKey(resp, "appendContinuationItemsAction")...)
		for _, action := range actions {
			target := action.Get("targetId").String()
			for _, item := range action.Get("continuationItems").Array() {
				if commentSectionTargets[target] {
					continuations = append(searchKey(item, "continuationEndpoint"), continuations...)
				}
				if strings.HasPrefix(target, "comment-replies-item") && item.Get("continuationItemRenderer").Exists() {
					if button, ok := firstKey(item, "buttonRenderer"); ok {
						continuations = append(continuations, button.Get("command"))
					}
				}
			}
		}

		toolbarStates := make(map[string]gjson.Result)
		for _, payload := range searchKey(resp, "engagementToolbarStateEntityPayload") {
			toolbarStates[payload.Get("key").String()] = payload
		}

		payloads := searchKey(resp, "commentEntityPayload")
		for i := len(payloads) - 1; i >= 0; i-- {
			if !emit(parseCommentEntity(payloads[i], toolbarStates)) {
				return errStopped
			}
		}

		if err := y.sleep(ctx, y.PageDelay); err != nil {
			return err
		}
	}

	return nil
}

func (y *YouTubeClient) fetchWatchPage(ctx context.Context, videoURL string) (string, error) {
	body, finalURL, err := y.get(ctx, videoURL)
	if err != nil {
		return "", err
	}

	if strings.Contains(finalURL, "consent") {
		slog.Info("[YouTubeClient] Consent page detected, submitting consent form")
		if err := y.submitConsent(ctx, body, videoURL); err != nil {
			return "", err
		}
		if body, _, err = y.get(ctx, videoURL); err != nil {
			return "", err
		}
	}

	return body, nil
}

// submitConsent posts the consent form back with its hidden inputs and the
// choices YouTube expects before redirecting to the video.
func (y *YouTubeClient) submitConsent(ctx context.Context, page, videoURL string) error {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return fmt.Errorf("[YouTubeClient] failed to parse consent page: %w", err)
	}

	params := url.Values{}
	doc.Find(`input[type="hidden"]`).Each(func(_ int, s *goquery.Selection) {
		if name, ok := s.Attr("name"); ok {
			params.Set(name, s.AttrOr("value", ""))
		}
	})
	params.Set("continue", videoURL)
	params.Set("set_eom", "false")
	params.Set("set_ytc", "true")
	params.Set("set_apyt", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, y.ConsentURL+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", YOUTUBE_USER_AGENT)

	resp, err := y.Client.Do(req)
	if err != nil {
		return fmt.Errorf("[YouTubeClient] consent request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (y *YouTubeClient) get(ctx context.Context, target string) (string, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", "", fmt.Errorf("[YouTubeClient] invalid url %q: %w", target, err)
	}
	req.Header.Set("User-Agent", YOUTUBE_USER_AGENT)

	resp, err := y.Client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("[YouTubeClient] failed to fetch %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("[YouTubeClient] unexpected status %d fetching %s", resp.StatusCode, target)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", fmt.Errorf("[YouTubeClient] failed to read %s: %w", target, err)
	}
	return string(body), resp.Request.URL.String(), nil
}

type continuationRequest struct {
	Context      json.RawMessage `json:"context"`
	Continuation string          `json:"continuation"`
}

// ajax follows one continuation endpoint. Transport failures and non-200
// answers are retried; an empty result means YouTube refused the request or
// never answered with 200.
func (y *YouTubeClient) ajax(ctx context.Context, endpoint, ytcfg gjson.Result) (gjson.Result, error) {
	innertubeCtx := ytcfg.Get("INNERTUBE_CONTEXT").Raw
	if innertubeCtx == "" {
		innertubeCtx = "{}"
	}
	payload, err := json.Marshal(continuationRequest{
		Context:      json.RawMessage(innertubeCtx),
		Continuation: endpoint.Get("continuationCommand.token").String(),
	})
	if err != nil {
		return gjson.Result{}, fmt.Errorf("[YouTubeClient] failed to marshal continuation: %w", err)
	}

	target := y.BaseURL + endpoint.Get("commandMetadata.webCommandMetadata.apiUrl").String() +
		"?" + url.Values{"key": {ytcfg.Get("INNERTUBE_API_KEY").String()}}.Encode()

	for attempt := 1; attempt <= AJAX_RETRIES; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
		if err != nil {
			return gjson.Result{}, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", YOUTUBE_USER_AGENT)

		resp, err := y.Client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return gjson.Result{}, ctx.Err()
			}
			slog.Warn("[YouTubeClient] Continuation request failed, will retry",
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()))
			if err := y.sleep(ctx, y.AjaxRetryDelay); err != nil {
				return gjson.Result{}, err
			}
			continue
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return gjson.Result{}, fmt.Errorf("[YouTubeClient] failed to read continuation: %w", err)
		}

		switch resp.StatusCode {
		case http.StatusOK:
			return gjson.ParseBytes(body), nil
		case http.StatusForbidden, http.StatusRequestEntityTooLarge:
			slog.Warn("[YouTubeClient] Continuation refused",
				slog.Int("status", resp.StatusCode))
			return gjson.Result{}, nil
		}

		slog.Warn("[YouTubeClient] Continuation failed, will retry",
			slog.Int("attempt", attempt),
			slog.Int("status", resp.StatusCode))
		if err := y.sleep(ctx, y.AjaxRetryDelay); err != nil {
			return gjson.Result{}, err
		}
	}

	return gjson.Result{}, nil
}

func (y *YouTubeClient) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-y.Clock.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func parseCommentEntity(comment gjson.Result, toolbarStates map[string]gjson.Result) models.RawComment {
	props := comment.Get("properties")
	author := comment.Get("author")
	toolbar := comment.Get("toolbar")
	cid := props.Get("commentId").String()
	state := toolbarStates[props.Get("toolbarStateKey").String()]

	return models.RawComment{
		CID:        cid,
		Text:       props.Get("content.content").String(),
		Time:       props.Get("publishedTime").String(),
		Author:     author.Get("displayName").String(),
		Channel:    author.Get("channelId").String(),
		Photo:      author.Get("avatarThumbnailUrl").String(),
		Votes:      parseCount(toolbar.Get("likeCountNotliked").String()),
		ReplyCount: parseCount(toolbar.Get("replyCount").String()),
		Heart:      state.Get("heartState").String() == heartedState,
		Reply:      strings.Contains(cid, "."),
	}
}

// parseCount turns display counts such as "17", "1,204", "1.2K" or "3M" into
// integers. Anything unreadable counts as zero.
func parseCount(raw string) int {
	s := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(raw), ",", ""))
	if s == "" {
		return 0
	}

	multiplier := 1.0
	switch s[len(s)-1] {
	case 'K':
		multiplier = 1e3
	case 'M':
		multiplier = 1e6
	case 'B':
		multiplier = 1e9
	}
	if multiplier != 1 {
		s = s[:len(s)-1]
	}

	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return int(n*multiplier + 0.5)
}

func regexSearch(re *regexp.Regexp, text string) string {
	m := re.FindStringSubmatch(text)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}

func subMenuItems(data gjson.Result) []gjson.Result {
	menu, ok := firstKey(data, "sortFilterSubMenuRenderer")
	if !ok {
		return nil
	}
	return menu.Get("subMenuItems").Array()
}

func firstKey(root gjson.Result, key string) (gjson.Result, bool) {
	found := searchKey(root, key)
	if len(found) == 0 {
		return gjson.Result{}, false
	}
	return found[0], true
}

// searchKey collects every value stored under key anywhere in root without
// descending into the matches themselves. The walk uses an explicit stack, so
// later siblings are visited first.
func searchKey(root gjson.Result, key string) []gjson.Result {
	var found []gjson.Result
	stack := []gjson.Result{root}

	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch {
		case current.IsObject():
			current.ForEach(func(k, v gjson.Result) bool {
				if k.String() == key {
					found = append(found, v)
				} else {
					stack = append(stack, v)
				}
				return true
			})
		case current.IsArray():
			stack = append(stack, current.Array()...)
		}
	}

	return found
}
