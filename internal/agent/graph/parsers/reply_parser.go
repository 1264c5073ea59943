package parsers

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/vitachat-poc-v1/server/internal/agent/policy"
	errx "github.com/vitachat-poc-v1/server/internal/core/error"
	logx "github.com/vitachat-poc-v1/server/pkg/logger"
)

// basic safety limits to avoid pathological completions
const (
	maxContentLen = 8 * 1024 // 8KB
	maxErrSnippet = 200
)

var ErrEmptyReply = errors.New("generator returned empty reply")

// rolePrefixRe matches a speaker label the model sometimes copies from the
// examples in its prompt.
var rolePrefixRe = regexp.MustCompile(`(?i)^\s*(?:бот|консультант|ассистент|assistant|bot)\s*:\s*`)

// Reply is a generated completion reduced to what the policy guards consume.
type Reply struct {
	Text      string
	ShowCard  bool
	Truncated bool
}

// ParseReply cleans a raw completion: it enforces size and encoding limits,
// drops speaker labels and wrapping quotes and lifts the product card marker.
func ParseReply(content string) (reply *Reply, err error) {
	// panic safety
	defer func() {
		if r := recover(); r != nil {
			logx.Error().Str("component", "reply_parser").Msgf("panic recovered: %v", r)
			err = errx.New(fmt.Errorf("reply parser panic"), http.StatusInternalServerError, errx.SystemErrorMessage)
			reply = nil
		}
	}()

	if !utf8.ValidString(content) {
		return nil, fmt.Errorf("reply invalid utf8: %q", snippet(content))
	}

	reply = &Reply{}
	if len(content) > maxContentLen {
		logx.Warn().
			Str("component", "reply_parser").
			Int("max_len", maxContentLen).
			Int("orig_len", len(content)).
			Msg("content truncated due to size limit")
		content = truncateRunes(content, maxContentLen)
		reply.Truncated = true
	}

	text := strings.TrimSpace(content)
	text = rolePrefixRe.ReplaceAllString(text, "")
	text = unquote(text)
	text, reply.ShowCard = policy.ExtractMarker(text)
	text = strings.TrimSpace(text)
	// A bare marker still asks for the card; the guard supplies the text.
	if text == "" && !reply.ShowCard {
		return nil, ErrEmptyReply
	}
	reply.Text = text
	return reply, nil
}

// unquote strips one pair of matching quotes wrapping the whole reply.
func unquote(s string) string {
	pairs := [][2]string{{`"`, `"`}, {"«", "»"}, {"“", "”"}}
	for _, p := range pairs {
		if len(s) >= len(p[0])+len(p[1]) && strings.HasPrefix(s, p[0]) && strings.HasSuffix(s, p[1]) {
			inner := s[len(p[0]) : len(s)-len(p[1])]
			if !strings.ContainsAny(inner, p[0]+p[1]) {
				return strings.TrimSpace(inner)
			}
		}
	}
	return s
}

// truncateRunes cuts s to at most n bytes without splitting a rune.
func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func snippet(s string) string {
	if len(s) > maxErrSnippet {
		return s[:maxErrSnippet]
	}
	return s
}
