package proto

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	// OriginPort is the only destination port the proxy relays to. A target
	// naming any other port is rejected as malformed rather than being sent
	// to port 80 of the same host.
	OriginPort = 80

	connectionClose = "Connection: close"
)

// connectionFields are the header names replaced by "Connection: close".
var connectionFields = []string{"Connection:", "Proxy-connection:"}

type RequestLine struct {
	Method  string
	Target  string
	Version string
}

func (rl RequestLine) String() string {
	return rl.Method + " " + rl.Target + " " + rl.Version
}

// ParseRequestLine splits line on single spaces into method, target and
// version.
func ParseRequestLine(line string) (RequestLine, error) {
	tokens := strings.Split(line, " ")
	if len(tokens) != 3 {
		return RequestLine{}, fmt.Errorf(
			"%w: request line has %d tokens: %q",
			ErrMalformedRequest,
			len(tokens),
			line,
		)
	}

	for _, token := range tokens {
		if token == "" {
			return RequestLine{}, fmt.Errorf("%w: empty token in %q", ErrMalformedRequest, line)
		}
	}

	return RequestLine{Method: tokens[0], Target: tokens[1], Version: tokens[2]}, nil
}

// Target is a proxy-form request target broken into the parts needed to
// resolve the origin and to address it.
type Target struct {
	Host string
	// OriginForm is the path and query exactly as received, "/" when the
	// target has neither.
	OriginForm string
}

// ParseTarget parses an absolute http URI such as "http://example.com/a?b=c".
// Only the scheme and authority go through net/url; the rest of the target
// is kept byte for byte, minus any fragment.
func ParseTarget(raw string) (Target, error) {
	scheme, rest, found := strings.Cut(raw, "://")
	if !found || !strings.EqualFold(scheme, "http") {
		return Target{}, fmt.Errorf("%w: not a proxy-form http target: %q", ErrMalformedRequest, raw)
	}

	authority, originForm := rest, ""
	if i := strings.IndexAny(rest, "/?#"); i >= 0 {
		authority, originForm = rest[:i], rest[i:]
	}

	u, err := url.Parse("http://" + authority)
	if err != nil {
		return Target{}, fmt.Errorf("%w: %w", ErrMalformedRequest, err)
	}

	if u.Hostname() == "" {
		return Target{}, fmt.Errorf("%w: invalid authority %q", ErrMalformedRequest, authority)
	}

	if port := u.Port(); port != "" && port != "80" {
		return Target{}, fmt.Errorf("%w: unsupported port %s", ErrMalformedRequest, port)
	}

	originForm, _, _ = strings.Cut(originForm, "#")
	if originForm == "" || originForm[0] == '?' {
		originForm = "/" + originForm
	}

	return Target{Host: u.Hostname(), OriginForm: originForm}, nil
}

// RewriteHeaders returns a copy of lines where the request line targets the
// origin form and exactly one "Connection: close" header is guaranteed: the
// first Connection or Proxy-connection field is replaced, otherwise one is
// appended.
func RewriteHeaders(lines []string, rl RequestLine, target Target) []string {
	out := make([]string, len(lines), len(lines)+1)
	copy(out, lines)

	rl.Target = target.OriginForm
	out[0] = rl.String()

	if i := connectionFieldIndex(out); i >= 0 {
		out[i] = connectionClose
	} else {
		out = append(out, connectionClose)
	}

	return out
}

// connectionFieldIndex returns the index of the first header line (request
// line excluded) whose first token names a connection field, or -1.
func connectionFieldIndex(lines []string) int {
	for i := 1; i < len(lines); i++ {
		fields := strings.Fields(lines[i])
		if len(fields) == 0 {
			continue
		}

		for _, name := range connectionFields {
			if strings.EqualFold(fields[0], name) {
				return i
			}
		}
	}

	return -1
}

// ParseRequest parses the request line held in lines[0] and its target.
func ParseRequest(lines []string) (RequestLine, Target, error) {
	if len(lines) == 0 {
		return RequestLine{}, Target{}, fmt.Errorf("%w: empty header", ErrMalformedRequest)
	}

	rl, err := ParseRequestLine(lines[0])
	if err != nil {
		return RequestLine{}, Target{}, err
	}

	target, err := ParseTarget(rl.Target)
	if err != nil {
		return RequestLine{}, Target{}, err
	}

	return rl, target, nil
}
