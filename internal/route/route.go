// Copyright 2012 The Gorilla Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package route

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// RouteRegexp maps the variables of a matched proxy path onto a backend path
// template such as /geoserver/{workspace}/ows.
type RouteRegexp struct {
	// The unmodified template.
	Template string
	// Expanded regexp.
	Regexp *regexp.Regexp
	// Reverse template.
	Reverse string
	// Variable names.
	VarsN []string
	// Variable regexps (validators).
	VarsR []*regexp.Regexp
}

// NewRouteRegexp parses a path template. Variables are written {name} or
// {name:pattern}; the default pattern matches a single path segment.
func NewRouteRegexp(tpl string) (*RouteRegexp, error) {
	idxs, err := braceIndices(tpl)
	if err != nil {
		return nil, err
	}

	r := &RouteRegexp{Template: tpl}
	var pattern, reverse strings.Builder
	pattern.WriteByte('^')

	var end int
	for i := 0; i < len(idxs); i += 2 {
		raw := tpl[end:idxs[i]]
		end = idxs[i+1]
		name, patt, found := strings.Cut(tpl[idxs[i]+1:end-1], ":")
		if !found {
			patt = "[^/]+"
		}
		if name == "" || patt == "" {
			return nil, fmt.Errorf("mux: missing name or pattern in %q", tpl[idxs[i]:end])
		}

		fmt.Fprintf(&pattern, "%s(?P<%s>%s)", regexp.QuoteMeta(raw), varGroupName(i/2), patt)
		fmt.Fprintf(&reverse, "%s%%s", strings.ReplaceAll(raw, "%", "%%"))

		validator, err := regexp.Compile("^" + patt + "$")
		if err != nil {
			return nil, err
		}
		r.VarsN = append(r.VarsN, name)
		r.VarsR = append(r.VarsR, validator)
	}

	raw := tpl[end:]
	pattern.WriteString(regexp.QuoteMeta(raw))
	pattern.WriteByte('$')
	reverse.WriteString(strings.ReplaceAll(raw, "%", "%%"))

	r.Regexp, err = regexp.Compile(pattern.String())
	if err != nil {
		return nil, err
	}
	if r.Regexp.NumSubexp() != len(r.VarsN) {
		return nil, fmt.Errorf("mux: route %s contains capture groups, use (?:pattern) instead of (pattern)", tpl)
	}
	r.Reverse = reverse.String()

	return r, nil
}

// Match reports whether path matches the template.
func (r *RouteRegexp) Match(path string) bool {
	return r.Regexp.MatchString(path)
}

// URL builds a path from the template using the given variables.
func (r *RouteRegexp) URL(values map[string]string) (string, error) {
	urlValues := make([]any, len(r.VarsN))
	for k, v := range r.VarsN {
		value, ok := values[v]
		if !ok {
			return "", fmt.Errorf("mux: missing route variable %q", v)
		}
		if !r.VarsR[k].MatchString(value) {
			return "", fmt.Errorf("mux: variable %q doesn't match, expected %q", value, r.VarsR[k].String())
		}
		urlValues[k] = value
	}
	return fmt.Sprintf(r.Reverse, urlValues...), nil
}

// braceIndices returns the first level curly brace indices from a string.
// It returns an error in case of unbalanced braces.
func braceIndices(s string) ([]int, error) {
	var level, idx int
	var idxs []int
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '{':
			if level++; level == 1 {
				idx = i
			}
		case '}':
			if level--; level == 0 {
				idxs = append(idxs, idx, i+1)
			} else if level < 0 {
				return nil, fmt.Errorf("mux: unbalanced braces in %q", s)
			}
		}
	}
	if level != 0 {
		return nil, fmt.Errorf("mux: unbalanced braces in %q", s)
	}
	return idxs, nil
}

func varGroupName(idx int) string {
	return "v" + strconv.Itoa(idx)
}
