package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/stacklok/jobtracker/internal/applications"
	"github.com/stacklok/jobtracker/internal/httpclient"
	"github.com/stacklok/jobtracker/internal/versions"
)

// Operation names used in errors, logs and spans.
const (
	OpList           = "list"
	OpCreate         = "create"
	OpUpdate         = "update"
	OpChangeStatus   = "change_status"
	OpDelete         = "delete"
	OpStatuses       = "lookup_statuses"
	OpContractTypes  = "lookup_contract_types"
	OpStatusCounts   = "statistics_by_status"
	OpMonthly        = "statistics_per_month"
	OpLogin          = "login"
	OpRegister       = "register"
	OpChangePassword = "change_password"
	OpServerVersion  = "server_version"
)

// Client implements every service interface over HTTP.
type Client struct {
	http    httpclient.Client
	baseURL string
}

var (
	_ ApplicationService = (*Client)(nil)
	_ LookupService      = (*Client)(nil)
	_ StatisticsService  = (*Client)(nil)
	_ UserService        = (*Client)(nil)
)

// NewClient returns a client for the service rooted at baseURL, e.g.
// "http://localhost:5000/api".
func NewClient(baseURL string, client httpclient.Client) *Client {
	return &Client{
		http:    client,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

func (c *Client) url(segments ...string) string {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	return c.baseURL + "/" + strings.Join(escaped, "/")
}

func (c *Client) do(ctx context.Context, op, id, method, target string, body any) (*httpclient.Response, error) {
	resp, err := c.http.Do(ctx, method, target, body)
	if err != nil {
		return nil, networkError(op, id, err)
	}
	return resp, nil
}

// List implements ApplicationService
func (c *Client) List(ctx context.Context) ([]*applications.Record, error) {
	resp, err := c.do(ctx, OpList, "", http.MethodGet, c.url("JobApplication"), nil)
	if err != nil {
		return nil, err
	}
	records, err := decodeEnvelope[[]*applications.Record](OpList, "", resp)
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Create implements ApplicationService
func (c *Client) Create(ctx context.Context, payload *applications.NewApplication) (*applications.Record, error) {
	resp, err := c.do(ctx, OpCreate, "", http.MethodPost, c.url("JobApplication"), payload)
	if err != nil {
		return nil, err
	}
	return decodeRecord(OpCreate, "", resp)
}

// Update implements ApplicationService
func (c *Client) Update(ctx context.Context, record *applications.Record) (*applications.Record, error) {
	resp, err := c.do(ctx, OpUpdate, record.ID, http.MethodPut, c.url("JobApplication"), record)
	if err != nil {
		return nil, err
	}
	return decodeRecord(OpUpdate, record.ID, resp)
}

// ChangeStatus implements ApplicationService
func (c *Client) ChangeStatus(ctx context.Context, id, statusID string) (*applications.Record, error) {
	target := c.url("JobApplication", id, "status", statusID)
	resp, err := c.do(ctx, OpChangeStatus, id, http.MethodPatch, target, nil)
	if err != nil {
		return nil, err
	}
	return decodeRecord(OpChangeStatus, id, resp)
}

// Delete implements ApplicationService
func (c *Client) Delete(ctx context.Context, id string) (*applications.Record, error) {
	resp, err := c.do(ctx, OpDelete, id, http.MethodDelete, c.url("JobApplication", id), nil)
	if err != nil {
		return nil, err
	}
	rec, err := decodeEnvelope[*applications.Record](OpDelete, id, resp)
	if err != nil {
		return nil, err
	}
	// the service may answer a delete with an empty payload
	if rec == nil || rec.ID == "" {
		return &applications.Record{ID: id}, nil
	}
	return rec, nil
}

func decodeRecord(op, id string, resp *httpclient.Response) (*applications.Record, error) {
	rec, err := decodeEnvelope[*applications.Record](op, id, resp)
	if err != nil {
		return nil, err
	}
	if rec == nil || rec.ID == "" {
		return nil, &applications.Error{
			Kind:       applications.KindUnknown,
			Op:         op,
			ID:         id,
			Message:    "response carries no application",
			StatusCode: resp.StatusCode,
		}
	}
	return rec, nil
}

// Statuses implements LookupService
func (c *Client) Statuses(ctx context.Context) ([]LookupItem, error) {
	return c.lookup(ctx, OpStatuses, "statuses")
}

// ContractTypes implements LookupService
func (c *Client) ContractTypes(ctx context.Context) ([]LookupItem, error) {
	return c.lookup(ctx, OpContractTypes, "contract-types")
}

func (c *Client) lookup(ctx context.Context, op, list string) ([]LookupItem, error) {
	resp, err := c.do(ctx, op, "", http.MethodGet, c.url("Lookup", list), nil)
	if err != nil {
		return nil, err
	}
	return decodeFlexible[[]LookupItem](op, resp)
}

// StatusCounts implements StatisticsService
func (c *Client) StatusCounts(ctx context.Context) ([]StatusCount, error) {
	resp, err := c.do(ctx, OpStatusCounts, "", http.MethodGet, c.url("JobApplication", "statistics-by-statuses"), nil)
	if err != nil {
		return nil, err
	}
	return decodeEnvelope[[]StatusCount](OpStatusCounts, "", resp)
}

// MonthlyApplications implements StatisticsService. The service returns an
// object keyed by month; the result keeps the document order of its keys.
func (c *Client) MonthlyApplications(ctx context.Context) ([]MonthlyCount, error) {
	resp, err := c.do(ctx, OpMonthly, "", http.MethodGet, c.url("JobApplication", "statistics-per-months"), nil)
	if err != nil {
		return nil, err
	}
	raw, err := decodeEnvelope[json.RawMessage](OpMonthly, "", resp)
	if err != nil {
		return nil, err
	}
	return parseMonthly(raw)
}

func parseMonthly(raw json.RawMessage) ([]MonthlyCount, error) {
	data := gjson.ParseBytes(raw)
	var out []MonthlyCount
	switch {
	case data.IsObject():
		data.ForEach(func(key, value gjson.Result) bool {
			out = append(out, MonthlyCount{Month: key.String(), Count: int(value.Int())})
			return true
		})
	case data.IsArray():
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, &applications.Error{Kind: applications.KindUnknown, Op: OpMonthly, Message: "malformed monthly statistics", Err: err}
		}
	case data.Type == gjson.Null:
	default:
		return nil, &applications.Error{
			Kind:    applications.KindUnknown,
			Op:      OpMonthly,
			Message: fmt.Sprintf("monthly statistics must be an object, got %s", data.Type),
		}
	}
	return out, nil
}

// Login implements UserService
func (c *Client) Login(ctx context.Context, creds Credentials) (*LoginResult, error) {
	resp, err := c.do(ctx, OpLogin, "", http.MethodPost, c.url("User", "login"), creds)
	if err != nil {
		return nil, err
	}
	result, err := decodeFlexible[*LoginResult](OpLogin, resp)
	if err != nil {
		return nil, err
	}
	if result == nil || result.Token == "" {
		return nil, &applications.Error{
			Kind:       applications.KindAuth,
			Op:         OpLogin,
			Message:    "login response carries no token",
			StatusCode: resp.StatusCode,
		}
	}
	return result, nil
}

// Register implements UserService
func (c *Client) Register(ctx context.Context, user NewUser) error {
	resp, err := c.do(ctx, OpRegister, "", http.MethodPost, c.url("User", "create"), user)
	if err != nil {
		return err
	}
	return acknowledge(OpRegister, resp)
}

// ChangePassword implements UserService
func (c *Client) ChangePassword(ctx context.Context, change PasswordChange) error {
	resp, err := c.do(ctx, OpChangePassword, "", http.MethodPost, c.url("User", "changePassword"), change)
	if err != nil {
		return err
	}
	return acknowledge(OpChangePassword, resp)
}

// acknowledge checks a response whose payload is not needed.
func acknowledge(op string, resp *httpclient.Response) error {
	if isEnvelope(resp.Body) {
		_, err := decodeEnvelope[json.RawMessage](op, "", resp)
		return err
	}
	if err := statusError(op, "", resp); err != nil {
		return err
	}
	if !resp.OK() {
		return &applications.Error{
			Kind:       applications.KindService,
			Op:         op,
			Message:    strings.TrimSpace(string(resp.Body)),
			StatusCode: resp.StatusCode,
		}
	}
	return nil
}

// ServerVersion returns the build information of the service. Services that
// do not publish one answer with a NotFound error.
func (c *Client) ServerVersion(ctx context.Context) (*versions.VersionInfo, error) {
	resp, err := c.do(ctx, OpServerVersion, "", http.MethodGet, c.url("version"), nil)
	if err != nil {
		return nil, err
	}
	info, err := decodeFlexible[*versions.VersionInfo](OpServerVersion, resp)
	if err != nil {
		return nil, err
	}
	if info == nil || info.Version == "" {
		return nil, &applications.Error{
			Kind:       applications.KindUnknown,
			Op:         OpServerVersion,
			Message:    "version response carries no version",
			StatusCode: resp.StatusCode,
		}
	}
	return info, nil
}
