package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/MarcoPoloResearchLab/momentos/internal/moments"
)

const (
	opTotalMoments = "apiclient.total_moments"
	opListMoments  = "apiclient.list_moments"
	opGetMoment    = "apiclient.get_moment"
	opCreateMoment = "apiclient.create_moment"
	opUpdateMoment = "apiclient.update_moment"
)

type totalMomentsResponse struct {
	TotalMoments int64 `json:"total_moments"`
}

type momentListResponse struct {
	Moments []moments.Summary `json:"moments"`
}

// ListQueryValues renders the query parameters of a list request. The search
// parameter is omitted when the search text is blank and otherwise sent as
// entered.
func ListQueryValues(query moments.ListQuery) url.Values {
	values := url.Values{}
	values.Set("page_size", strconv.Itoa(query.PageSize))
	values.Set("current_page", strconv.Itoa(query.CurrentPage))
	values.Set("sort_by", string(query.SortBy))
	if strings.TrimSpace(query.SearchText) != "" {
		values.Set("search", query.SearchText)
	}
	return values
}

// TotalMoments returns the size of the whole collection.
func (c *Client) TotalMoments(ctx context.Context) (int64, error) {
	request, err := c.newRequest(ctx, http.MethodGet, c.resolve(c.endpoints.Total, nil), nil, "")
	if err != nil {
		return 0, err
	}
	var response totalMomentsResponse
	if err := c.do(opTotalMoments, request, &response); err != nil {
		return 0, err
	}
	return response.TotalMoments, nil
}

// ListMoments returns one filtered, sorted page of the collection.
func (c *Client) ListMoments(ctx context.Context, query moments.ListQuery) ([]moments.Summary, error) {
	request, err := c.newRequest(ctx, http.MethodGet, c.resolve(c.endpoints.Collection, ListQueryValues(query)), nil, "")
	if err != nil {
		return nil, err
	}
	var response momentListResponse
	if err := c.do(opListMoments, request, &response); err != nil {
		return nil, err
	}
	if response.Moments == nil {
		return []moments.Summary{}, nil
	}
	return response.Moments, nil
}

// GetMoment returns the full record of one moment.
func (c *Client) GetMoment(ctx context.Context, id moments.MomentID) (moments.Moment, error) {
	query := url.Values{}
	query.Set("id", id.String())
	request, err := c.newRequest(ctx, http.MethodGet, c.resolve(c.endpoints.Moment, query), nil, "")
	if err != nil {
		return moments.Moment{}, err
	}
	var moment moments.Moment
	if err := c.do(opGetMoment, request, &moment); err != nil {
		return moments.Moment{}, err
	}
	if moment.ID == "" {
		moment.ID = id
	}
	return moment, nil
}

// CreateMoment submits the full field set of a new moment.
func (c *Client) CreateMoment(ctx context.Context, payload moments.Payload) error {
	return c.submit(ctx, opCreateMoment, c.resolve(c.endpoints.Create, nil), payload)
}

// UpdateMoment submits only the changed fields of an existing moment.
func (c *Client) UpdateMoment(ctx context.Context, id moments.MomentID, payload moments.Payload) error {
	if payload.Empty() {
		return ErrNothingToSubmit
	}
	path := strings.ReplaceAll(c.endpoints.Update, "{id}", id.String())
	return c.submit(ctx, opUpdateMoment, c.resolve(path, nil), payload)
}

func (c *Client) submit(ctx context.Context, operation, target string, payload moments.Payload) error {
	body, contentType, err := encodeMultipart(payloadFields(payload), payload.Image())
	if err != nil {
		return err
	}
	request, err := c.newRequest(ctx, http.MethodPost, target, body, contentType)
	if err != nil {
		return err
	}
	return c.do(operation, request, nil)
}
