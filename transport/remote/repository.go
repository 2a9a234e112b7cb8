// Package remote provides a repository accessed over HTTP(S).
package remote

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	slogcontext "github.com/veqryn/slog-context"

	"ocm.software/open-component-model/artifactresolver/transport"
)

// Options configures a remote repository.
type Options struct {
	Client *http.Client
	// Index remembers checksums of downloaded resources so that unchanged
	// resources are served from local candidates.
	Index transport.Index
}

// Option is a functional option for New.
type Option func(*Options)

// WithClient sets the HTTP client.
func WithClient(client *http.Client) Option {
	return func(o *Options) {
		o.Client = client
	}
}

// WithIndex sets the cached resource index.
func WithIndex(index transport.Index) Option {
	return func(o *Options) {
		o.Index = index
	}
}

// Repository accesses resources below a base URL.
type Repository struct {
	name   string
	base   *url.URL
	client *http.Client
	index  transport.Index
}

var _ transport.Repository = (*Repository)(nil)

// New creates a repository for the base URL.
func New(name, baseURL string, opts ...Option) (*Repository, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid repository url %q: %w", baseURL, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("unsupported repository url scheme %q", base.Scheme)
	}
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}
	if options.Client == nil {
		options.Client = NewHTTPClient()
	}
	return &Repository{name: name, base: base, client: options.Client, index: options.Index}, nil
}

func (r *Repository) Name() string { return r.name }

func (r *Repository) url(path string) string {
	return r.base.JoinPath(path).String()
}

func (r *Repository) logger(ctx context.Context) *slog.Logger {
	return slogcontext.FromCtx(ctx).With(slog.String("realm", "transport"), slog.String("repository", r.name))
}

func (r *Repository) do(ctx context.Context, method, location string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, location, nil)
	if err != nil {
		return nil, err
	}
	return r.send(ctx, req)
}

func (r *Repository) send(ctx context.Context, req *http.Request) (*http.Response, error) {
	method, location := req.Method, req.URL.String()
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, location, err)
	}
	r.logger(ctx).DebugContext(ctx, "http request", slog.String("method", method), slog.String("url", location), slog.Int("status", resp.StatusCode))
	return resp, nil
}

func statusError(resp *http.Response, location string) error {
	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
		return fmt.Errorf("%s: %w", location, transport.ErrNotFound)
	}
	return fmt.Errorf("unexpected status %q for %s %s", resp.Status, resp.Request.Method, location)
}

func drain(resp *http.Response) error {
	_, err := io.Copy(io.Discard, resp.Body)
	return errors.Join(err, resp.Body.Close())
}

func metadataOf(location string, resp *http.Response) transport.Metadata {
	meta := transport.Metadata{
		Location: location,
		Size:     transport.UnknownSize,
		ETag:     strings.Trim(resp.Header.Get("ETag"), `"`),
		SHA1:     strings.ToLower(resp.Header.Get("X-Checksum-Sha1")),
	}
	if cl := resp.Header.Get("Content-Length"); cl != "" {
		if n, err := strconv.ParseInt(cl, 10, 64); err == nil {
			meta.Size = n
		}
	}
	if lm := resp.Header.Get("Last-Modified"); lm != "" {
		if t, err := http.ParseTime(lm); err == nil {
			meta.LastModified = t
		}
	}
	return meta
}

func (r *Repository) Exists(ctx context.Context, path string) (bool, error) {
	_, err := r.GetMetadata(ctx, path)
	if errors.Is(err, transport.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (r *Repository) GetMetadata(ctx context.Context, path string) (_ transport.Metadata, err error) {
	location := r.url(path)
	resp, err := r.do(ctx, http.MethodHead, location)
	if err != nil {
		return transport.Metadata{}, err
	}
	defer func() {
		err = errors.Join(err, drain(resp))
	}()
	if resp.StatusCode != http.StatusOK {
		return transport.Metadata{}, statusError(resp, location)
	}
	return metadataOf(location, resp), nil
}

func (r *Repository) List(ctx context.Context, path string) (_ []string, err error) {
	location := r.url(path)
	if !strings.HasSuffix(location, "/") {
		location += "/"
	}
	resp, err := r.do(ctx, http.MethodGet, location)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = errors.Join(err, drain(resp))
	}()
	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp, location)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "html") {
		return nil, fmt.Errorf("%s is not a directory listing (%s): %w", location, ct, transport.ErrNotFound)
	}
	dir, err := url.Parse(location)
	if err != nil {
		return nil, err
	}
	return parseListing(dir, resp.Body)
}

func (r *Repository) Get(ctx context.Context, path string, candidates transport.Candidates) (transport.Resource, error) {
	location := r.url(path)
	if transport.HasCandidates(candidates) {
		local, err := r.reuse(ctx, path, location, candidates)
		if err != nil || local != nil {
			return local, err
		}
	}
	resp, err := r.do(ctx, http.MethodGet, location)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Join(statusError(resp, location), drain(resp))
	}
	return &resource{repo: r, name: path, meta: metadataOf(location, resp), body: resp.Body}, nil
}

// reuse serves the resource from a candidate, first through the index and
// then through the published sha1 sibling.
func (r *Repository) reuse(ctx context.Context, path, location string, candidates transport.Candidates) (transport.Resource, error) {
	if r.index != nil {
		entry, ok, err := r.index.Lookup(ctx, location)
		if err != nil {
			r.logger(ctx).DebugContext(ctx, "cached resource index lookup failed", slog.String("url", location), slog.String("error", err.Error()))
		}
		if ok {
			meta, err := r.GetMetadata(ctx, path)
			if err != nil {
				return nil, err
			}
			if entry.Unchanged(meta) {
				if local, err := transport.FindCandidate(ctx, path, entry.SHA1, candidates); err != nil || local != nil {
					return local, err
				}
			}
		}
	}
	local, err := transport.ReuseCandidate(ctx, r, path, candidates)
	if err != nil || local == nil {
		return local, err
	}
	if r.index != nil {
		r.recordCandidate(ctx, path, location, local)
	}
	return local, nil
}

func (r *Repository) record(ctx context.Context, location string, meta transport.Metadata, sha string) {
	if r.index == nil || sha == "" {
		return
	}
	entry := transport.IndexEntry{
		SHA1:         sha,
		Size:         meta.Size,
		LastModified: meta.LastModified,
		ETag:         meta.ETag,
		CachedAt:     time.Now(),
	}
	if err := r.index.Store(ctx, location, entry); err != nil {
		r.logger(ctx).WarnContext(ctx, "unable to update cached resource index", slog.String("url", location), slog.String("error", err.Error()))
	}
}

// recordCandidate remembers the content of a reused candidate for location.
func (r *Repository) recordCandidate(ctx context.Context, path, location string, local transport.Resource) {
	meta, err := r.GetMetadata(ctx, path)
	if err != nil {
		r.logger(ctx).DebugContext(ctx, "unable to get metadata for cached resource index", slog.String("url", location), slog.String("error", err.Error()))
		return
	}
	sha, err := fileSHA1(ctx, local)
	if err != nil {
		r.logger(ctx).DebugContext(ctx, "unable to compute sha1 of local candidate", slog.String("candidate", local.Metadata().Location), slog.String("error", err.Error()))
		return
	}
	r.record(ctx, location, meta, sha)
}

func fileSHA1(ctx context.Context, res transport.Resource) (_ string, err error) {
	rc, err := res.Open(ctx)
	if err != nil {
		return "", err
	}
	defer func() {
		err = errors.Join(err, rc.Close())
	}()
	h := sha1.New()
	if _, err := io.Copy(h, rc); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func (r *Repository) Put(ctx context.Context, source string, path string) (err error) {
	f, err := os.Open(source)
	if err != nil {
		return fmt.Errorf("unable to open %s: %w", source, err)
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()
	fi, err := f.Stat()
	if err != nil {
		return err
	}
	location := r.url(path)
	// the client closes the body, f is closed here
	body := func() io.ReadCloser {
		return io.NopCloser(io.NewSectionReader(f, 0, fi.Size()))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, location, body())
	if err != nil {
		return err
	}
	req.ContentLength = fi.Size()
	req.GetBody = func() (io.ReadCloser, error) {
		return body(), nil
	}
	resp, err := r.send(ctx, req)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, drain(resp))
	}()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unable to publish %s: unexpected status %q", location, resp.Status)
	}
	return nil
}

// resource streams the body of a GET response. Opening it a second time
// issues a new request.
type resource struct {
	repo *Repository
	name string
	meta transport.Metadata
	body io.ReadCloser
	// sha1 of the content last written by WriteTo
	written string
}

var _ transport.Recorder = (*resource)(nil)

func (r *resource) Name() string { return r.name }

func (r *resource) Metadata() transport.Metadata { return r.meta }

func (r *resource) IsLocal() bool { return false }

func (r *resource) Open(ctx context.Context) (io.ReadCloser, error) {
	if body := r.body; body != nil {
		r.body = nil
		return body, nil
	}
	resp, err := r.repo.do(ctx, http.MethodGet, r.meta.Location)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Join(statusError(resp, r.meta.Location), drain(resp))
	}
	return resp.Body, nil
}

func (r *resource) WriteTo(ctx context.Context, destination string) (err error) {
	rc, err := r.Open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, rc.Close())
	}()
	h := sha1.New()
	if err := transport.WriteFile(destination, io.TeeReader(rc, h)); err != nil {
		return err
	}
	r.written = hex.EncodeToString(h.Sum(nil))
	return nil
}

// Record stores the checksum of the written content in the cached resource
// index.
func (r *resource) Record(ctx context.Context) {
	r.repo.record(ctx, r.meta.Location, r.meta, r.written)
}

func (r *resource) Close() error {
	if r.body == nil {
		return nil
	}
	body := r.body
	r.body = nil
	return body.Close()
}
