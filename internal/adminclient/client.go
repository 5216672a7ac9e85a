// Package adminclient is the console-side client of the admin API. Reads are
// retried on transport failures; mutations are sent exactly once.
package adminclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/p-n-ai/cbt-admin/internal/api"
	"github.com/p-n-ai/cbt-admin/internal/catalog"
	"github.com/p-n-ai/cbt-admin/internal/platform/apperr"
	"github.com/p-n-ai/cbt-admin/internal/questionbank"
)

const (
	defaultTimeout = 15 * time.Second
	maxReadRetries = 3
)

// TransportError is a network, timeout, auth or server failure. The request
// may be retried if it was a read.
type TransportError struct {
	Op     string
	Status int // 0 when no response arrived
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: server returned %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() []error { return []error{apperr.ErrTransport, e.Err} }

// RemoteError is a domain error reported by the server.
type RemoteError struct {
	Status int
	Body   api.ErrorBody
}

func (e *RemoteError) Error() string {
	if e.Body.Field != "" {
		return fmt.Sprintf("%s (%s)", e.Body.Message, e.Body.Field)
	}
	return e.Body.Message
}

// Unwrap maps the error code to its kind sentinel.
func (e *RemoteError) Unwrap() error {
	switch e.Body.Code {
	case api.CodeValidation:
		return apperr.ErrValidation
	case api.CodeConflict:
		return apperr.ErrConflict
	case api.CodeNotFound:
		return apperr.ErrNotFound
	}
	return nil
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithBackOff sets the retry schedule for reads.
func WithBackOff(fn func() backoff.BackOff) Option {
	return func(c *Client) { c.backoff = fn }
}

// Client talks to the admin API with a bearer token.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	backoff func() backoff.BackOff
}

// New creates a client for baseURL, e.g. "https://admin.example.com".
func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: defaultTimeout},
		backoff: func() backoff.BackOff {
			return backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxReadRetries)
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListExams lists exams. Admin listings include hidden subjects.
func (c *Client) ListExams(ctx context.Context, opts catalog.ListOptions) ([]catalog.Exam, error) {
	q := url.Values{}
	if opts.Category != "" {
		q.Set("category", string(opts.Category))
	}
	if opts.IsActive != nil {
		q.Set("isActive", strconv.FormatBool(*opts.IsActive))
	}
	q.Set("admin", strconv.FormatBool(opts.Admin))

	var out []catalog.Exam
	return out, c.read(ctx, "list exams", "/api/v1/exams?"+q.Encode(), &out)
}

// GetExam fetches the admin view of one exam.
func (c *Client) GetExam(ctx context.Context, id string) (catalog.Exam, error) {
	var out catalog.Exam
	return out, c.read(ctx, "get exam", "/api/v1/exams/"+url.PathEscape(id), &out)
}

// SyncCounts asks the server to recount an exam's questions. Repeating it is
// harmless, so it is retried like a read.
func (c *Client) SyncCounts(ctx context.Context, id string) ([]catalog.CountUpdate, error) {
	var out api.SyncResponse
	err := c.retry(ctx, func() error {
		return c.do(ctx, "sync counts", http.MethodPost, "/api/v1/exams/"+url.PathEscape(id)+"/sync", nil, &out)
	})
	return out.Updates, err
}

// CreateExam creates an exam.
func (c *Client) CreateExam(ctx context.Context, spec catalog.ExamSpec) (catalog.Exam, error) {
	var out catalog.Exam
	return out, c.do(ctx, "create exam", http.MethodPost, "/api/v1/exams", spec, &out)
}

// UpdateExam edits exam details.
func (c *Client) UpdateExam(ctx context.Context, id string, patch catalog.ExamPatch) (catalog.Exam, error) {
	var out catalog.Exam
	return out, c.do(ctx, "update exam", http.MethodPatch, "/api/v1/exams/"+url.PathEscape(id), patch, &out)
}

// RemoveExam deletes an exam.
func (c *Client) RemoveExam(ctx context.Context, id string) error {
	return c.do(ctx, "remove exam", http.MethodDelete, "/api/v1/exams/"+url.PathEscape(id), nil, nil)
}

// AddYear adds a year with seed subjects.
func (c *Client) AddYear(ctx context.Context, id string, spec catalog.YearSpec) (catalog.Exam, error) {
	var out catalog.Exam
	return out, c.do(ctx, "add year", http.MethodPost, examPath(id, "years"), spec, &out)
}

// AddSubject adds a subject to a year.
func (c *Client) AddSubject(ctx context.Context, id string, year int, spec catalog.SubjectSpec) (catalog.Exam, error) {
	var out catalog.Exam
	return out, c.do(ctx, "add subject", http.MethodPost, examPath(id, "years", strconv.Itoa(year), "subjects"), spec, &out)
}

// SetYearAvailability opens or closes a year.
func (c *Client) SetYearAvailability(ctx context.Context, id string, year int, available bool) (catalog.Exam, error) {
	var out catalog.Exam
	body := map[string]bool{"isAvailable": available}
	return out, c.do(ctx, "set year availability", http.MethodPut, examPath(id, "years", strconv.Itoa(year), "availability"), body, &out)
}

// SetSubjectVisibility shows or hides one subject.
func (c *Client) SetSubjectVisibility(ctx context.Context, id string, year int, subject string, visible bool) (catalog.Exam, error) {
	var out catalog.Exam
	body := map[string]bool{"isVisible": visible}
	return out, c.do(ctx, "set subject visibility", http.MethodPut, examPath(id, "years", strconv.Itoa(year), "subjects", subject, "visibility"), body, &out)
}

// BulkUpdateVisibility applies a visibility batch. Unknown targets come back
// as a *catalog.InvalidTargetError listing all of them.
func (c *Client) BulkUpdateVisibility(ctx context.Context, id string, updates []catalog.VisibilityUpdate) (api.BulkVisibilityResponse, error) {
	if err := catalog.ValidateVisibilityBatch(updates); err != nil {
		return api.BulkVisibilityResponse{}, err
	}
	var out api.BulkVisibilityResponse
	return out, c.do(ctx, "bulk visibility", http.MethodPost, examPath(id, "visibility"), api.BulkVisibilityRequest{Updates: updates}, &out)
}

// GetQuestions lists questions of an (exam name, year, subject).
func (c *Client) GetQuestions(ctx context.Context, examName string, year int, subject string) (api.QuestionList, error) {
	q := url.Values{}
	q.Set("examName", examName)
	q.Set("year", strconv.Itoa(year))
	q.Set("subject", subject)
	var out api.QuestionList
	return out, c.read(ctx, "get questions", "/api/v1/questions?"+q.Encode(), &out)
}

// GetQuestion fetches one question.
func (c *Client) GetQuestion(ctx context.Context, id string) (questionbank.Question, error) {
	var out questionbank.Question
	return out, c.read(ctx, "get question", "/api/v1/questions/"+url.PathEscape(id), &out)
}

// CreateQuestion prechecks and sends a new question.
func (c *Client) CreateQuestion(ctx context.Context, d questionbank.Draft) (questionbank.Question, error) {
	if err := d.Precheck(); err != nil {
		return questionbank.Question{}, err
	}
	var out questionbank.Question
	return out, c.do(ctx, "create question", http.MethodPost, "/api/v1/questions", d, &out)
}

// UpdateQuestion prechecks and sends an edited question.
func (c *Client) UpdateQuestion(ctx context.Context, id string, d questionbank.Draft) (questionbank.Question, error) {
	if err := d.Precheck(); err != nil {
		return questionbank.Question{}, err
	}
	var out questionbank.Question
	return out, c.do(ctx, "update question", http.MethodPut, "/api/v1/questions/"+url.PathEscape(id), d, &out)
}

// DeleteQuestion deletes a question, softly unless hard is set.
func (c *Client) DeleteQuestion(ctx context.Context, id string, hard bool) error {
	path := "/api/v1/questions/" + url.PathEscape(id)
	if hard {
		path += "?hard=true"
	}
	return c.do(ctx, "delete question", http.MethodDelete, path, nil, nil)
}

func examPath(id string, parts ...string) string {
	segs := []string{"/api/v1/exams", url.PathEscape(id)}
	for _, p := range parts {
		segs = append(segs, url.PathEscape(p))
	}
	return strings.Join(segs, "/")
}

func (c *Client) read(ctx context.Context, op, path string, out any) error {
	return c.retry(ctx, func() error {
		return c.do(ctx, op, http.MethodGet, path, nil, out)
	})
}

// retry repeats fn while it fails with a TransportError.
func (c *Client) retry(ctx context.Context, fn func() error) error {
	return backoff.Retry(func() error {
		err := fn()
		var te *TransportError
		if err != nil && !errors.As(err, &te) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(c.backoff(), ctx))
}

func (c *Client) do(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encoding request: %w", op, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Op: op, Status: resp.StatusCode, Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden, resp.StatusCode >= 500:
		return &TransportError{Op: op, Status: resp.StatusCode, Err: errors.New(strings.TrimSpace(string(data)))}
	case resp.StatusCode >= 400:
		return remoteError(resp.StatusCode, data)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s: decoding response: %w", op, err)
	}
	return nil
}

func remoteError(status int, data []byte) error {
	var body api.ErrorBody
	if err := json.Unmarshal(data, &body); err != nil || body.Code == "" {
		body = api.ErrorBody{Message: strings.TrimSpace(string(data))}
	}
	if len(body.Targets) > 0 {
		return &catalog.InvalidTargetError{Targets: body.Targets}
	}
	return &RemoteError{Status: status, Body: body}
}
