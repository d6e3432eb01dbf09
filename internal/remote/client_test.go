package remote_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/jobtracker/internal/applications"
	"github.com/stacklok/jobtracker/internal/httpclient"
	"github.com/stacklok/jobtracker/internal/remote"
)

// newTestServer creates a new test server with keep-alives disabled.
func newTestServer(handler http.Handler) *httptest.Server {
	server := httptest.NewServer(handler)
	server.Config.SetKeepAlivesEnabled(false)
	return server
}

func newClient(t *testing.T, handler http.HandlerFunc) *remote.Client {
	t.Helper()
	server := newTestServer(handler)
	t.Cleanup(server.Close)
	return remote.NewClient(server.URL+"/api/", httpclient.NewDefaultClient(5*time.Second))
}

func respond(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

const acmeEnvelope = `{"data":{"id":"1","company":"Acme","jobTitle":"Engineer","status":"Wishlist","statusId":"s-w","contractTypeId":"c-1","notes":"","createdAt":"2024-01-01T00:00:00"},"message":"ok","statusCode":200,"success":true}`

func TestClient_Routes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		wantMethod string
		wantPath   string
		wantBody   string
		call       func(c *remote.Client) (*applications.Record, error)
	}{
		{
			name:       "create",
			wantMethod: http.MethodPost,
			wantPath:   "/api/JobApplication",
			wantBody:   "Acme",
			call: func(c *remote.Client) (*applications.Record, error) {
				return c.Create(context.Background(), &applications.NewApplication{Company: "Acme", JobTitle: "Engineer", StatusID: "s-w"})
			},
		},
		{
			name:       "update",
			wantMethod: http.MethodPut,
			wantPath:   "/api/JobApplication",
			wantBody:   `"id":"1"`,
			call: func(c *remote.Client) (*applications.Record, error) {
				return c.Update(context.Background(), &applications.Record{ID: "1", Company: "Acme"})
			},
		},
		{
			name:       "change status",
			wantMethod: http.MethodPatch,
			wantPath:   "/api/JobApplication/1/status/s-w",
			call: func(c *remote.Client) (*applications.Record, error) {
				return c.ChangeStatus(context.Background(), "1", "s-w")
			},
		},
		{
			name:       "delete",
			wantMethod: http.MethodDelete,
			wantPath:   "/api/JobApplication/1",
			call: func(c *remote.Client) (*applications.Record, error) {
				return c.Delete(context.Background(), "1")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, tt.wantMethod, r.Method)
				assert.Equal(t, tt.wantPath, r.URL.Path)
				body, _ := io.ReadAll(r.Body)
				if tt.wantBody != "" {
					assert.Contains(t, string(body), tt.wantBody)
				}
				respond(http.StatusOK, acmeEnvelope)(w, r)
			})

			rec, err := tt.call(client)
			require.NoError(t, err)
			assert.Equal(t, "1", rec.ID)
			assert.Equal(t, applications.StageWishlist, rec.Stage)
		})
	}
}

func TestClient_List(t *testing.T) {
	t.Parallel()

	client := newClient(t, respond(http.StatusOK, `{"data":[
		{"id":"1","company":"Acme","status":"Wishlist"},
		{"id":"2","company":"Globex","status":"Offer"}
	],"message":"","statusCode":200,"success":true,"errorMessages":null}`))

	records, err := client.List(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Globex", records[1].Company)
	assert.Equal(t, applications.StageOffer, records[1].Stage)
}

func TestClient_ErrorMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		handler     http.HandlerFunc
		wantKind    applications.Kind
		wantStatus  int
		wantDetails []string
		wantMessage string
	}{
		{
			name:        "success false with 2xx status",
			handler:     respond(http.StatusOK, `{"data":null,"message":"Validation failed","statusCode":400,"success":false,"errorMessages":["Company is required"]}`),
			wantKind:    applications.KindService,
			wantStatus:  http.StatusOK,
			wantDetails: []string{"Company is required"},
			wantMessage: "Validation failed",
		},
		{
			name:        "envelope with 400 status",
			handler:     respond(http.StatusBadRequest, `{"data":null,"message":"Bad status","statusCode":400,"success":false,"errorMessages":["statusId unknown"]}`),
			wantKind:    applications.KindService,
			wantStatus:  http.StatusBadRequest,
			wantDetails: []string{"statusId unknown"},
			wantMessage: "Bad status",
		},
		{
			name:       "unauthorized",
			handler:    respond(http.StatusUnauthorized, ``),
			wantKind:   applications.KindAuth,
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:        "not found with envelope",
			handler:     respond(http.StatusNotFound, `{"data":null,"message":"Job application not found","statusCode":404,"success":false}`),
			wantKind:    applications.KindNotFound,
			wantStatus:  http.StatusNotFound,
			wantMessage: "Job application not found",
		},
		{
			name:       "server error without envelope",
			handler:    respond(http.StatusInternalServerError, `<html>oops</html>`),
			wantKind:   applications.KindUnknown,
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "malformed 2xx body",
			handler:    respond(http.StatusOK, `not json`),
			wantKind:   applications.KindUnknown,
			wantStatus: http.StatusOK,
		},
		{
			name:       "envelope without record",
			handler:    respond(http.StatusOK, `{"data":null,"message":"","statusCode":200,"success":true}`),
			wantKind:   applications.KindUnknown,
			wantStatus: http.StatusOK,
		},
		{
			name:       "envelope with wrong data shape",
			handler:    respond(http.StatusOK, `{"data":"surprise","success":true}`),
			wantKind:   applications.KindUnknown,
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			client := newClient(t, tt.handler)
			_, err := client.Create(context.Background(), &applications.NewApplication{Company: "Acme"})
			require.Error(t, err)

			var typed *applications.Error
			require.True(t, errors.As(err, &typed), "error %v is not typed", err)
			assert.Equal(t, tt.wantKind, typed.Kind)
			assert.Equal(t, remote.OpCreate, typed.Op)
			assert.Equal(t, tt.wantStatus, typed.StatusCode)
			if tt.wantDetails != nil {
				assert.Equal(t, tt.wantDetails, typed.Details)
			}
			if tt.wantMessage != "" {
				assert.Equal(t, tt.wantMessage, typed.Message)
			}
		})
	}
}

func TestClient_NetworkError(t *testing.T) {
	t.Parallel()

	server := newTestServer(respond(http.StatusOK, acmeEnvelope))
	url := server.URL
	server.Close()

	client := remote.NewClient(url, httpclient.NewDefaultClient(time.Second))
	_, err := client.Delete(context.Background(), "1")
	require.Error(t, err)
	assert.ErrorIs(t, err, applications.ErrNetwork)

	var typed *applications.Error
	require.True(t, errors.As(err, &typed))
	assert.Equal(t, "1", typed.ID)
	assert.Zero(t, typed.StatusCode)
}

func TestClient_DeleteWithoutPayload(t *testing.T) {
	t.Parallel()

	client := newClient(t, respond(http.StatusOK, `{"data":null,"message":"deleted","statusCode":200,"success":true}`))
	rec, err := client.Delete(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", rec.ID)
}

func TestClient_Lookup(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{name: "bare list", body: `[{"id":"a","name":"Wishlist"},{"id":"b","name":"Applied"}]`},
		{name: "enveloped list", body: `{"data":[{"id":"a","name":"Wishlist"},{"id":"b","name":"Applied"}],"success":true}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
				switch r.URL.Path {
				case "/api/Lookup/statuses", "/api/Lookup/contract-types":
					respond(http.StatusOK, tt.body)(w, r)
				default:
					http.NotFound(w, r)
				}
			})

			statuses, err := client.Statuses(context.Background())
			require.NoError(t, err)
			assert.Equal(t, []remote.LookupItem{{ID: "a", Name: "Wishlist"}, {ID: "b", Name: "Applied"}}, statuses)

			types, err := client.ContractTypes(context.Background())
			require.NoError(t, err)
			assert.Len(t, types, 2)
		})
	}
}

func TestClient_Statistics(t *testing.T) {
	t.Parallel()

	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/JobApplication/statistics-by-statuses":
			respond(http.StatusOK, `{"data":[{"statusName":"Applied","total":3},{"statusName":"Offer","total":1}],"success":true}`)(w, r)
		case "/api/JobApplication/statistics-per-months":
			respond(http.StatusOK, `{"data":{"March":4,"January":2,"February":0},"success":true}`)(w, r)
		default:
			http.NotFound(w, r)
		}
	})

	counts, err := client.StatusCounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []remote.StatusCount{{StatusName: "Applied", Total: 3}, {StatusName: "Offer", Total: 1}}, counts)

	monthly, err := client.MonthlyApplications(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []remote.MonthlyCount{
		{Month: "March", Count: 4},
		{Month: "January", Count: 2},
		{Month: "February", Count: 0},
	}, monthly, "document order is preserved")
}

func TestClient_MonthlyShapes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		body    string
		want    []remote.MonthlyCount
		wantErr bool
	}{
		{name: "array", body: `{"data":[{"month":"May","applications":2}],"success":true}`, want: []remote.MonthlyCount{{Month: "May", Count: 2}}},
		{name: "null", body: `{"data":null,"success":true}`},
		{name: "scalar", body: `{"data":7,"success":true}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			client := newClient(t, respond(http.StatusOK, tt.body))
			got, err := client.MonthlyApplications(context.Background())
			if tt.wantErr {
				assert.ErrorIs(t, err, applications.ErrUnknown)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClient_Users(t *testing.T) {
	t.Parallel()

	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/User/login":
			var creds remote.Credentials
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
			if creds.Password != "secret" {
				respond(http.StatusUnauthorized, `"Invalid credentials"`)(w, r)
				return
			}
			respond(http.StatusOK, `{"token":"jwt-token","user":{"firstName":"Ada","fullName":"Ada Lovelace","email":"ada@example.com"}}`)(w, r)
		case "/api/User/create":
			respond(http.StatusOK, `{"data":null,"message":"created","success":true}`)(w, r)
		case "/api/User/changePassword":
			respond(http.StatusBadRequest, `Old password is incorrect`)(w, r)
		default:
			http.NotFound(w, r)
		}
	})

	result, err := client.Login(context.Background(), remote.Credentials{Email: "ada@example.com", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "jwt-token", result.Token)
	assert.Equal(t, "Ada", result.User.FirstName)

	_, err = client.Login(context.Background(), remote.Credentials{Email: "ada@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, applications.ErrAuth)

	require.NoError(t, client.Register(context.Background(), remote.NewUser{Email: "bob@example.com"}))

	err = client.ChangePassword(context.Background(), remote.PasswordChange{Email: "ada@example.com"})
	require.ErrorIs(t, err, applications.ErrService)
	assert.Contains(t, err.Error(), "Old password is incorrect")
}

func TestClient_ServerVersion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		handler  http.HandlerFunc
		want     string
		wantKind error
	}{
		{
			name: "bare build info",
			handler: func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/api/version", r.URL.Path)
				respond(http.StatusOK, `{"version":"v1.2.0","commit":"abc","build_date":"unknown","go_version":"go1.25","platform":"linux/amd64"}`)(w, r)
			},
			want: "v1.2.0",
		},
		{
			name:     "not published",
			handler:  respond(http.StatusNotFound, `404 page not found`),
			wantKind: applications.ErrNotFound,
		},
		{
			name:     "empty version",
			handler:  respond(http.StatusOK, `{"commit":"abc"}`),
			wantKind: applications.ErrUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			client := newClient(t, tt.handler)
			info, err := client.ServerVersion(context.Background())
			if tt.wantKind != nil {
				require.ErrorIs(t, err, tt.wantKind)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, info.Version)
		})
	}
}
