// Package scopex evaluates the scope-pattern grammar used on every protected
// endpoint. A scope is a colon-separated list of segments, where segments may
// contain {name} placeholders and a `*` wildcard:
//
//	group-{groupId}:write-source-*   resolved against {groupId: "42"}
//	→ group-42:write-source-*        which authorizes group-42:write-source-setup
//
// The two sides of a check resolve at different times. Granted patterns are
// bound to their owner once, at token issuance (Bind), and are matched
// verbatim afterwards. Only the required pattern resolves against the live
// request's path parameters: letting a grant template re-resolve per request
// would turn "user-{userId}:read-session-*" into a grant on whichever user
// appears in the URL.
//
// Absence of a matching grant always means deny. Role shortcuts (a sudo role
// implying every scope) are a separate pre-check in the authorization
// middleware; the matcher itself is role-agnostic.
package scopex

import "strings"

const (
	segmentSep      = ":"
	wildcard        = "*"
	placeholderOpen = '{'
	placeholderEnd  = '}'
)

// Resolve substitutes every {name} placeholder in pattern with its value from
// params. Placeholders with no matching parameter are left verbatim, which
// can never widen a grant: an unresolved `{groupId}` only matches the literal
// text `{groupId}`.
func Resolve(pattern string, params map[string]string) string {
	if len(params) == 0 || !strings.ContainsRune(pattern, placeholderOpen) {
		return pattern
	}

	var b strings.Builder
	b.Grow(len(pattern))

	for i := 0; i < len(pattern); {
		if pattern[i] != byte(placeholderOpen) {
			b.WriteByte(pattern[i])
			i++
			continue
		}

		end := strings.IndexByte(pattern[i:], byte(placeholderEnd))
		if end < 0 {
			// Unterminated brace, keep the rest as-is.
			b.WriteString(pattern[i:])
			break
		}

		name := pattern[i+1 : i+end]
		if v, ok := params[name]; ok {
			b.WriteString(v)
		} else {
			b.WriteString(pattern[i : i+end+1])
		}
		i += end + 1
	}

	return b.String()
}

// Bind resolves a set of grant templates against their owner's identity.
// Called once when a token is minted, so a stored template like
// "user-{userId}:read-session-*" becomes a concrete grant on that user and
// can never re-resolve against someone else's request. Placeholders without
// an owner binding stay literal.
func Bind(granted []string, params map[string]string) []string {
	if len(granted) == 0 {
		return granted
	}
	bound := make([]string, len(granted))
	for i, g := range granted {
		bound[i] = Resolve(g, params)
	}
	return bound
}

// Placeholders returns the parameter names referenced by pattern, in order of
// appearance. The authorization middleware uses this to know which path
// parameters to pull from the request.
func Placeholders(pattern string) []string {
	var names []string
	for i := 0; i < len(pattern); {
		if pattern[i] != byte(placeholderOpen) {
			i++
			continue
		}
		end := strings.IndexByte(pattern[i:], byte(placeholderEnd))
		if end < 0 {
			break
		}
		names = append(names, pattern[i+1:i+end])
		i += end + 1
	}
	return names
}

// Match reports whether the (already resolved) granted pattern authorizes the
// (already resolved) required scope. Both must have the same number of
// segments; each required segment must be matched by the corresponding
// granted segment, either literally, by a bare `*` segment, or by a trailing
// `*` matching any suffix.
func Match(granted, required string) bool {
	if granted == "" || required == "" {
		return false
	}

	gs := strings.Split(granted, segmentSep)
	rs := strings.Split(required, segmentSep)
	if len(gs) != len(rs) {
		return false
	}

	for i := range rs {
		if !matchSegment(gs[i], rs[i]) {
			return false
		}
	}
	return true
}

func matchSegment(granted, required string) bool {
	if granted == wildcard {
		return true
	}
	if prefix, ok := strings.CutSuffix(granted, wildcard); ok {
		return strings.HasPrefix(required, prefix)
	}
	return granted == required
}

// Authorize resolves the required scope against the request's path parameters
// and returns true iff any granted pattern matches it. Granted patterns are
// taken as-is: owner binding happened at issuance, and an unbound template
// only ever matches its own literal text.
func Authorize(granted []string, required string, params map[string]string) bool {
	want := Resolve(required, params)
	for _, g := range granted {
		if Match(g, want) {
			return true
		}
	}
	return false
}
