package utils

import (
	"encoding/base64"
	"net"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"slices"
	"strings"

	"github.com/delta10/wfs-filter-proxy/internal/wfs"
)

var envVariable = regexp.MustCompile(`\${([^}]+)}`)

func QueryParamsToLower(queryParams url.Values) url.Values {
	lowercaseParams := url.Values{}

	for key, values := range queryParams {
		lowercaseKey := strings.ToLower(key)
		lowercaseParams[lowercaseKey] = append(lowercaseParams[lowercaseKey], values...)
	}

	return lowercaseParams
}

// QueryParamsContainMultipleKeys reports whether a key occurs more than once,
// ignoring case. Such requests are ambiguous to OGC servers.
func QueryParamsContainMultipleKeys(queryParams url.Values) bool {
	params := map[string]bool{}

	for key, values := range queryParams {
		lowercaseKey := strings.ToLower(key)
		if params[lowercaseKey] || len(values) > 1 {
			return true
		}

		params[lowercaseKey] = true
	}

	return false
}

func GenerateBasicAuthHeader(username, password string) string {
	auth := username + ":" + password
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(auth))
}

func CopyHeader(dst, src http.Header) {
	for k, vv := range src {
		for _, v := range vv {
			dst.Add(k, v)
		}
	}
}

func DelHopHeaders(header http.Header) {
	// Hop-by-hop headers. These are removed when sent to the backend.
	// http://www.w3.org/Protocols/rfc2616/rfc2616-sec13.html
	var hopHeaders = []string{
		"Connection",
		"Keep-Alive",
		"Proxy-Authenticate",
		"Proxy-Authorization",
		"Te", // canonicalized version of "TE"
		"Trailers",
		"Transfer-Encoding",
		"Upgrade",
		"Access-Control-Allow-Origin",
	}

	for _, h := range hopHeaders {
		header.Del(h)
	}
}

// EnvSubst replaces ${NAME} with the value of the environment variable NAME,
// or with nothing when it is not set.
func EnvSubst(input string) string {
	return envVariable.ReplaceAllStringFunc(input, func(match string) string {
		return os.Getenv(match[2 : len(match)-1])
	})
}

func ReadUserIP(r *http.Request) string {
	forwardedFor := r.Header.Get("X-Forwarded-For")
	if forwardedFor != "" {
		ips := strings.Split(forwardedFor, ",")
		return strings.TrimSpace(ips[0])
	}

	host, _, _ := net.SplitHostPort(r.RemoteAddr)
	return host
}

func StringInSlice(a string, list []string) bool {
	return slices.Contains(list, a)
}

// TransactionMetadata summarises a WFS Transaction for the audit log.
type TransactionMetadata struct {
	Handle    string
	LockID    string
	TypeNames []string
	Inserts   int
	Updates   int
	Deletes   int
	Natives   int
}

// Line returns the metadata as a log line.
func (m TransactionMetadata) Line() map[string]any {
	line := map[string]any{
		"typeNames": m.TypeNames,
		"inserts":   m.Inserts,
		"updates":   m.Updates,
		"deletes":   m.Deletes,
	}
	if m.Natives > 0 {
		line["natives"] = m.Natives
	}
	if m.Handle != "" {
		line["handle"] = m.Handle
	}
	if m.LockID != "" {
		line["lockId"] = m.LockID
	}
	return line
}

// GetTransactionMetadata counts the actions of t and lists the distinct type
// names they touch. Inserted features count once per feature. Names are
// qualified with the prefixes declared on doc when it is not nil.
func GetTransactionMetadata(doc *wfs.Document, t *wfs.Transaction) TransactionMetadata {
	metadata := TransactionMetadata{
		Handle: t.Handle,
		LockID: t.LockID,
	}

	for _, insert := range t.Inserts() {
		metadata.Inserts += len(insert.Features)
	}
	metadata.Updates = len(t.Updates())
	metadata.Deletes = len(t.Deletes())
	metadata.Natives = len(t.Natives())

	for _, name := range t.TypeNames() {
		if doc != nil {
			name = doc.Qualify(name)
		}
		if s := name.String(); !slices.Contains(metadata.TypeNames, s) {
			metadata.TypeNames = append(metadata.TypeNames, s)
		}
	}

	return metadata
}
