package mbo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"roster/pkg/client"
	"roster/pkg/config"

	"github.com/cenkalti/backoff/v5"
	"github.com/go-playground/validator/v10"
	"golang.org/x/time/rate"
)

// Function names recorded in metrics and booking logs.
const (
	FnListClassDescriptions = "ListClassDescriptions"
	FnListStaff             = "ListStaff"
	FnListBookings          = "ListBookings"
	FnCreateBooking         = "CreateBooking"
	FnUpdateBooking         = "UpdateBooking"
	FnEndBooking            = "EndBooking"
	FnCancelBooking         = "CancelBooking"
	fnIssueToken            = "IssueToken"
)

const (
	headerAPIKey        = "Api-Key"
	headerSiteID        = "SiteId"
	headerAuthorization = "Authorization"

	listPageSize = 200
)

// Client is the booking system adapter. A rejected request (4xx) is a Result with
// Success false and a nil error; transport failures, 429 and 5xx are retried and then
// returned as errors wrapping ErrTransient.
type Client interface {
	ListClassDescriptions(ctx context.Context, siteID, locationID int) (*Result[[]ClassDescription], error)
	ListStaff(ctx context.Context, siteID, locationID, page int) (*Result[StaffPage], error)
	ListBookings(ctx context.Context, siteID int, query ScheduleQuery) (*Result[[]ClassSchedule], error)
	CreateBooking(ctx context.Context, siteID int, req *ClassScheduleRequest) (*Result[ClassSchedule], error)
	UpdateBooking(ctx context.Context, siteID int, upd *ClassScheduleUpdate) (*Result[ClassSchedule], error)
	EndBooking(ctx context.Context, siteID int, classID int64, endDate time.Time) (*Result[ClassSchedule], error)
	CancelBooking(ctx context.Context, siteID int, classID int64) (*Result[ClassSchedule], error)
}

type mboClient struct {
	http     *client.HttpClient
	cfg      *config.Config
	limiter  *rate.Limiter
	validate *validator.Validate

	mu     sync.Mutex
	tokens map[int]string
}

func NewClient(cfg *config.Config) Client {
	httpClient := client.NewHttpClient(cfg.MboBaseURL, cfg.MboCallTimeout)
	if cfg.MboAPIKey != "" {
		httpClient.WithHeader(headerAPIKey, cfg.MboAPIKey)
	}

	return &mboClient{
		http:     httpClient,
		cfg:      cfg,
		limiter:  rate.NewLimiter(rate.Limit(cfg.MboRateLimitRPS), cfg.MboRateLimitBurst),
		validate: validator.New(),
		tokens:   make(map[int]string),
	}
}

func (c *mboClient) ListClassDescriptions(ctx context.Context, siteID, locationID int) (*Result[[]ClassDescription], error) {
	query := url.Values{}
	query.Set("request.locationId", strconv.Itoa(locationID))

	return listAll(ctx, c, FnListClassDescriptions, siteID, "/class/classdescriptions", query,
		func(r classDescriptionsResponse) ([]ClassDescription, Pagination) {
			return r.ClassDescriptions, r.Pagination
		})
}

func (c *mboClient) ListStaff(ctx context.Context, siteID, locationID, page int) (*Result[StaffPage], error) {
	size := c.cfg.MboStaffPageSize
	if size <= 0 {
		size = listPageSize
	}
	query := url.Values{}
	query.Set("request.locationId", strconv.Itoa(locationID))
	query.Set("request.limit", strconv.Itoa(size))
	query.Set("request.offset", strconv.Itoa(page*size))

	return call[StaffPage](ctx, c, FnListStaff, siteID, client.Request{
		Method: http.MethodGet,
		Path:   "/staff/staff",
		Query:  query,
	})
}

func (c *mboClient) ListBookings(ctx context.Context, siteID int, q ScheduleQuery) (*Result[[]ClassSchedule], error) {
	query := url.Values{}
	for _, id := range q.LocationIDs {
		query.Add("request.locationIds", strconv.Itoa(id))
	}
	for _, id := range q.StaffIDs {
		query.Add("request.staffIds", strconv.FormatInt(id, 10))
	}
	if !q.StartDate.IsZero() {
		query.Set("request.startDate", q.StartDate.Format(DateLayout))
	}
	if !q.EndDate.IsZero() {
		query.Set("request.endDate", q.EndDate.Format(DateLayout))
	}

	return listAll(ctx, c, FnListBookings, siteID, "/class/classschedules", query,
		func(r classSchedulesResponse) ([]ClassSchedule, Pagination) {
			return r.ClassSchedules, r.Pagination
		})
}

func (c *mboClient) CreateBooking(ctx context.Context, siteID int, req *ClassScheduleRequest) (*Result[ClassSchedule], error) {
	if err := c.validatePayload(req); err != nil {
		return nil, err
	}
	return c.postSchedule(ctx, FnCreateBooking, siteID, "/class/addclassschedule", req)
}

func (c *mboClient) UpdateBooking(ctx context.Context, siteID int, upd *ClassScheduleUpdate) (*Result[ClassSchedule], error) {
	if upd == nil || upd.ClassID <= 0 {
		return nil, fmt.Errorf("%w: update requires a class id", ErrInvalidPayload)
	}
	if err := c.validatePayload(upd); err != nil {
		return nil, err
	}
	return c.postSchedule(ctx, FnUpdateBooking, siteID, "/class/updateclassschedule", upd)
}

func (c *mboClient) EndBooking(ctx context.Context, siteID int, classID int64, endDate time.Time) (*Result[ClassSchedule], error) {
	req := &EndScheduleRequest{ClassID: classID, EndDate: endDate.Format(DateLayout)}
	if err := c.validatePayload(req); err != nil {
		return nil, err
	}
	return c.postSchedule(ctx, FnEndBooking, siteID, "/class/endclassschedule", req)
}

func (c *mboClient) CancelBooking(ctx context.Context, siteID int, classID int64) (*Result[ClassSchedule], error) {
	req := &CancelScheduleRequest{ClassID: classID}
	if err := c.validatePayload(req); err != nil {
		return nil, err
	}
	return c.postSchedule(ctx, FnCancelBooking, siteID, "/class/cancelclassschedule", req)
}

func (c *mboClient) postSchedule(ctx context.Context, fn string, siteID int, path string, body any) (*Result[ClassSchedule], error) {
	res, err := call[classScheduleResponse](ctx, c, fn, siteID, client.Request{
		Method: http.MethodPost,
		Path:   path,
		Body:   body,
	})
	if err != nil {
		return nil, err
	}
	return mapResult(res, func(r classScheduleResponse) ClassSchedule { return r.ClassSchedule }), nil
}

func (c *mboClient) validatePayload(payload any) error {
	if payload == nil {
		return fmt.Errorf("%w: empty payload", ErrInvalidPayload)
	}
	if err := c.validate.Struct(payload); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}

func (c *mboClient) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	if c.cfg.MboRetryInitialInterval > 0 {
		b.InitialInterval = c.cfg.MboRetryInitialInterval
	}
	if c.cfg.MboRetryMaxInterval > 0 {
		b.MaxInterval = c.cfg.MboRetryMaxInterval
	}
	return b
}

func (c *mboClient) maxTries() uint {
	if c.cfg.MboMaxRetries < 0 {
		return 1
	}
	return uint(c.cfg.MboMaxRetries) + 1
}

// call runs one request under the rate limiter, a per-attempt timeout and the retry policy.
func call[T any](ctx context.Context, c *mboClient, fn string, siteID int, req client.Request) (*Result[T], error) {
	start := time.Now()
	attempt := 0

	operation := func() (*Result[T], error) {
		attempt++
		if attempt > 1 {
			retriesTotal.WithLabelValues(fn).Inc()
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, backoff.Permanent(err)
		}

		headers, err := c.siteHeaders(ctx, siteID)
		if err != nil {
			return nil, err
		}
		req.Headers = headers

		attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.MboCallTimeout)
		defer cancel()

		resp, err := c.http.Send(attemptCtx, req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, backoff.Permanent(ctx.Err())
			}
			return nil, fmt.Errorf("%w: %s: %v", ErrTransient, fn, err)
		}
		return decodeResponse[T](c, fn, siteID, resp)
	}

	result, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(c.newBackOff()),
		backoff.WithMaxTries(c.maxTries()),
	)

	callDuration.WithLabelValues(fn).Observe(time.Since(start).Seconds())
	switch {
	case err != nil:
		callsTotal.WithLabelValues(fn, callErrored).Inc()
		c.cfg.Log.Warn("Booking system call failed",
			"function", fn,
			"site_id", siteID,
			"attempts", attempt,
			"error", err,
		)
		return nil, err
	case result.Success:
		callsTotal.WithLabelValues(fn, callSucceeded).Inc()
	default:
		callsTotal.WithLabelValues(fn, callRejected).Inc()
		c.cfg.Log.Info("Booking system rejected request",
			"function", fn,
			"site_id", siteID,
			"status", result.Error.StatusCode,
			"message", result.Error.Message,
		)
	}
	return result, nil
}

func decodeResponse[T any](c *mboClient, fn string, siteID int, resp *client.Response) (*Result[T], error) {
	switch {
	case resp.StatusCode == http.StatusUnauthorized && c.authEnabled():
		c.forgetToken(siteID)
		return nil, fmt.Errorf("%w: %s: token rejected", ErrTransient, fn)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
		return nil, fmt.Errorf("%w: %s returned %d: %s", ErrTransient, fn, resp.StatusCode, client.GetErrorMessage(resp))
	case !resp.IsSuccess():
		return rejected[T](remoteError(resp), resp.Body), nil
	}

	var data T
	if len(resp.Body) > 0 {
		if err := resp.DecodeJSON(&data); err != nil {
			return nil, backoff.Permanent(fmt.Errorf("%w: %s: %v", ErrUnexpectedResponse, fn, err))
		}
	}
	return ok(data, resp.Body), nil
}

func remoteError(resp *client.Response) *RemoteError {
	remote := &RemoteError{
		StatusCode: resp.StatusCode,
		Message:    client.GetErrorMessage(resp),
	}

	var body struct {
		Error struct {
			Code string `json:"Code"`
		} `json:"Error"`
	}
	if err := json.Unmarshal(resp.Body, &body); err == nil {
		remote.Code = body.Error.Code
	}
	return remote
}

// listAll follows offset pagination until every item has been read.
func listAll[R any, E any](
	ctx context.Context,
	c *mboClient,
	fn string,
	siteID int,
	path string,
	query url.Values,
	items func(R) ([]E, Pagination),
) (*Result[[]E], error) {
	all := []E{}
	offset := 0
	for {
		pageQuery := url.Values{}
		for k, v := range query {
			pageQuery[k] = v
		}
		pageQuery.Set("request.limit", strconv.Itoa(listPageSize))
		pageQuery.Set("request.offset", strconv.Itoa(offset))

		res, err := call[R](ctx, c, fn, siteID, client.Request{
			Method: http.MethodGet,
			Path:   path,
			Query:  pageQuery,
		})
		if err != nil {
			return nil, err
		}
		if !res.Success {
			return rejected[[]E](res.Error, res.Raw), nil
		}

		page, pagination := items(res.Data)
		all = append(all, page...)
		offset += len(page)
		if len(page) == 0 || offset >= pagination.TotalResults {
			break
		}
	}
	return &Result[[]E]{Success: true, Data: all}, nil
}

func mapResult[A, B any](r *Result[A], f func(A) B) *Result[B] {
	if !r.Success {
		return rejected[B](r.Error, r.Raw)
	}
	return &Result[B]{Success: true, Data: f(r.Data), Raw: r.Raw}
}

func (c *mboClient) authEnabled() bool {
	return c.cfg.MboSourceName != ""
}

func (c *mboClient) siteHeaders(ctx context.Context, siteID int) (map[string]string, error) {
	headers := map[string]string{headerSiteID: strconv.Itoa(siteID)}
	if !c.authEnabled() {
		return headers, nil
	}

	token, err := c.token(ctx, siteID)
	if err != nil {
		return nil, err
	}
	headers[headerAuthorization] = token
	return headers, nil
}

// token returns the cached staff token of a site, issuing one on first use.
func (c *mboClient) token(ctx context.Context, siteID int) (string, error) {
	c.mu.Lock()
	token, found := c.tokens[siteID]
	c.mu.Unlock()
	if found {
		return token, nil
	}

	attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.MboCallTimeout)
	defer cancel()

	resp, err := c.http.Send(attemptCtx, client.Request{
		Method:  http.MethodPost,
		Path:    "/usertoken/issue",
		Body:    tokenRequest{Username: c.cfg.MboSourceName, Password: c.cfg.MboSourcePassword},
		Headers: map[string]string{headerSiteID: strconv.Itoa(siteID)},
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", backoff.Permanent(ctx.Err())
		}
		return "", fmt.Errorf("%w: %s: %v", ErrTransient, fnIssueToken, err)
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
		return "", fmt.Errorf("%w: %s returned %d", ErrTransient, fnIssueToken, resp.StatusCode)
	}
	if !resp.IsSuccess() {
		return "", backoff.Permanent(remoteError(resp))
	}

	var issued tokenResponse
	if err := resp.DecodeJSON(&issued); err != nil || issued.AccessToken == "" {
		return "", backoff.Permanent(fmt.Errorf("%w: %s: missing access token", ErrUnexpectedResponse, fnIssueToken))
	}

	token = issued.AccessToken
	if issued.TokenType != "" {
		token = strings.TrimSpace(issued.TokenType) + " " + token
	}

	c.mu.Lock()
	c.tokens[siteID] = token
	c.mu.Unlock()
	return token, nil
}

func (c *mboClient) forgetToken(siteID int) {
	c.mu.Lock()
	delete(c.tokens, siteID)
	c.mu.Unlock()
}

// IsTransient reports whether err is a retryable booking system failure.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}
