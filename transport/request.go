package transport

import (
	"net/http"
	"net/url"

	"golang.org/x/oauth2"
)

// Request is an immutable description of one API call. The With* and
// MarkRetried methods return modified copies, so a descriptor shared between
// the first attempt and its retry is never mutated in place.
type Request struct {
	Method string
	Path   string // relative to the API root, e.g. "/auth/me"
	Query  url.Values
	Body   any // JSON encoded when non-nil
	Header http.Header

	// Bearer is attached by the auth gateway; the transport only applies it.
	Bearer *oauth2.Token

	// Retried is set once the request has been replayed after a 401.
	Retried bool
}

// NewRequest returns a request descriptor for method and path.
func NewRequest(method, path string, body any) Request {
	return Request{Method: method, Path: path, Body: body}
}

func Get(path string) Request {
	return NewRequest(http.MethodGet, path, nil)
}

func Post(path string, body any) Request {
	return NewRequest(http.MethodPost, path, body)
}

func Put(path string, body any) Request {
	return NewRequest(http.MethodPut, path, body)
}

func Patch(path string, body any) Request {
	return NewRequest(http.MethodPatch, path, body)
}

func Delete(path string) Request {
	return NewRequest(http.MethodDelete, path, nil)
}

// WithQuery returns a copy carrying q. Empty values are dropped.
func (r Request) WithQuery(q url.Values) Request {
	clean := url.Values{}
	for k, vs := range q {
		for _, v := range vs {
			if v != "" {
				clean.Add(k, v)
			}
		}
	}
	r.Query = clean
	return r
}

// WithHeader returns a copy with key set to value.
func (r Request) WithHeader(key, value string) Request {
	h := r.Header.Clone()
	if h == nil {
		h = http.Header{}
	}
	h.Set(key, value)
	r.Header = h
	return r
}

// WithBearer returns a copy authorised with token. A nil token strips any
// previously attached credential.
func (r Request) WithBearer(token *oauth2.Token) Request {
	r.Bearer = token
	return r
}

// MarkRetried returns a copy flagged as a replay.
func (r Request) MarkRetried() Request {
	r.Retried = true
	return r
}

// BearerToken returns the attached access token, or "" when unauthenticated.
func (r Request) BearerToken() string {
	if r.Bearer == nil {
		return ""
	}
	return r.Bearer.AccessToken
}
