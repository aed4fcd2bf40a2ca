package source

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldreport/internal/config"
	apperrors "fieldreport/internal/errors"
	"fieldreport/internal/infrastructure"
	"fieldreport/pkg/contracts/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(config.BackendConfig{
		BaseURL: server.URL + "/api",
		Timeout: 2 * time.Second,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)), opts...)
	require.NoError(t, err)
	return client
}

func TestFetchPrice(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/Rapporting/GetRapport", r.URL.Path)
		assert.Equal(t, "2024-01-01", r.URL.Query().Get("date"))
		assert.Equal(t, "u7", r.URL.Query().Get("user_id"))
		assert.Equal(t, "trace-9", r.Header.Get("X-Request-ID"))

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `[
			{"article":"Huile","marque":"A","prix":"1,5","contenance":1,"missionDate":"2024-01-01T09:00:00","raisonSocial":"X","adresse":"Rue 1"},
			{"article":"Huile","marque":"B","prix":2,"contenance":null,"missionDate":"garbage","raisonSocial":"X","adresse":"Rue 1"}
		]`)
	})

	ctx := infrastructure.WithTraceID(context.Background(), "trace-9")
	records, err := client.FetchPrice(ctx, domain.ReportQuery{Date: "2024-01-01", UserID: "u7"})
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, 1.5, records[0].Prix)
	assert.Equal(t, time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC), records[0].MissionDate)
	assert.Equal(t, 0.0, records[1].Contenance)
	assert.True(t, records[1].MissionDate.IsZero())
}

func TestFetchQuantity(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/Rapporting/GetRapportQte", r.URL.Path)
		assert.Equal(t, "m1", r.URL.Query().Get("mission_id"))
		io.WriteString(w, `[{"article":"Lait","marque":"Z","qte":30,"contenance":1,"missionDate":"2024-01-01","raisonSocial":"A","adresse":"X","userName":"Awa"}]`)
	})

	records, err := client.FetchQuantity(context.Background(), domain.ReportQuery{MissionID: "m1"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Awa", records[0].UserName)
	assert.Equal(t, 30.0, records[0].Qte)
}

func TestFetchWithLocation(t *testing.T) {
	montreal := time.FixedZone("EDT", -4*3600)
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[
			{"article":"Lait","qte":1,"missionDate":"2024-06-12T00:00:00","raisonSocial":"A","adresse":"X"},
			{"article":"Lait","qte":1,"missionDate":"2024-06-12T00:00:00Z","raisonSocial":"A","adresse":"X"}
		]`)
	}, WithLocation(montreal))

	records, err := client.FetchQuantity(context.Background(), domain.ReportQuery{})
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, 12, records[0].MissionDate.In(montreal).Day())
	assert.Equal(t, 11, records[1].MissionDate.In(montreal).Day())
}

func TestFetchEmptyBodies(t *testing.T) {
	for _, body := range []string{"", "null", "[]"} {
		t.Run(body, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, body)
			})

			records, err := client.FetchPrice(context.Background(), domain.ReportQuery{})
			require.NoError(t, err)
			assert.Empty(t, records)
		})
	}
}

func TestFetchErrors(t *testing.T) {
	tests := []struct {
		name     string
		handler  http.HandlerFunc
		wantType apperrors.ErrorType
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			},
			wantType: apperrors.ErrTypeNetwork,
		},
		{
			name: "not an array",
			handler: func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, `{"message":"oops"}`)
			},
			wantType: apperrors.ErrTypeParsing,
		},
		{
			name: "truncated json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, `[{"article":`)
			},
			wantType: apperrors.ErrTypeParsing,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, tt.handler)

			_, err := client.FetchQuantity(context.Background(), domain.ReportQuery{})
			require.Error(t, err)
			assert.True(t, apperrors.IsType(err, tt.wantType), "got %v", err)
		})
	}
}

func TestFetchUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	base := server.URL
	server.Close()

	client, err := NewClient(config.BackendConfig{BaseURL: base}, nil)
	require.NoError(t, err)

	_, err = client.FetchPrice(context.Background(), domain.ReportQuery{})
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeNetwork))
}

func TestFetchCancelled(t *testing.T) {
	release := make(chan struct{})
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err := client.FetchPrice(ctx, domain.ReportQuery{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFetchRateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "[]")
	}))
	defer server.Close()

	client, err := NewClient(config.BackendConfig{BaseURL: server.URL, RPS: 0.001, Burst: 1}, nil)
	require.NoError(t, err)

	_, err = client.FetchPrice(context.Background(), domain.ReportQuery{})
	require.NoError(t, err)

	// The second call would wait far past the deadline.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = client.FetchPrice(ctx, domain.ReportQuery{})
	assert.Error(t, err)
}

func TestNewClientInvalidURL(t *testing.T) {
	_, err := NewClient(config.BackendConfig{BaseURL: "not a url"}, nil)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConfig))
}
