package ingest

import (
	"regexp"
	"strings"
)

// CurlRequest is the HTTP request derived from a pasted cURL command.
// Only GET requests with headers are modeled; -X, --data, cookies and
// multi-line commands are not supported.
type CurlRequest struct {
	URL     string
	Headers map[string]string
}

// TranslationError reports a cURL command that could not be translated.
type TranslationError struct {
	Reason string
}

func (e *TranslationError) Error() string {
	return "curl translation failed: " + e.Reason
}

// Quoted segments are atomic tokens. This is a best-effort heuristic, not a
// shell grammar: escaped quotes inside quotes are deliberately unsupported.
var curlTokenPattern = regexp.MustCompile(`'[^']*'|"[^"]*"|\S+`)

// TranslateCurl parses a user-supplied cURL command into a request
// descriptor. The first token starting with "http" after quote stripping is
// taken as the URL; if several appear, the last one wins. Existing
// dashboards were configured against this overwrite behavior, so it stays.
// "-H" tokens pair with the following token, split on the first colon.
func TranslateCurl(curlText string) (*CurlRequest, error) {
	tokens := curlTokenPattern.FindAllString(curlText, -1)

	req := &CurlRequest{Headers: make(map[string]string)}
	for i := 0; i < len(tokens); i++ {
		tok := stripQuotes(tokens[i])
		if strings.HasPrefix(tok, "http") {
			req.URL = tok
			continue
		}
		if tok == "-H" && i+1 < len(tokens) {
			i++
			name, value, ok := strings.Cut(stripQuotes(tokens[i]), ":")
			if !ok {
				continue
			}
			req.Headers[strings.TrimSpace(name)] = strings.TrimSpace(value)
		}
	}

	if req.URL == "" {
		return nil, &TranslationError{Reason: "no URL found"}
	}
	return req, nil
}

func stripQuotes(tok string) string {
	if len(tok) >= 2 {
		if (tok[0] == '\'' && tok[len(tok)-1] == '\'') || (tok[0] == '"' && tok[len(tok)-1] == '"') {
			return tok[1 : len(tok)-1]
		}
	}
	return tok
}
