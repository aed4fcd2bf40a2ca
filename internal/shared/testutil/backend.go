package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"fieldreport/pkg/contracts/domain"
)

const (
	pricePath    = "/api/Rapporting/GetRapport"
	quantityPath = "/api/Rapporting/GetRapportQte"
)

// MissionDate is the mission date used by the fixtures
var MissionDate = time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)

// PriceRecords returns two visits: one client with two oil prices at
// different capacities and a second client with a single reading.
func PriceRecords() []domain.PriceObservation {
	return []domain.PriceObservation{
		{Article: "Huile", Marque: "Lesieur", Prix: 20, Contenance: 1, MissionDate: MissionDate, RaisonSocial: "Epicerie Atlas", Adresse: "Rue 1"},
		{Article: "Huile", Marque: "Cristal", Prix: 9.5, Contenance: 0.5, MissionDate: MissionDate, RaisonSocial: "Epicerie Atlas", Adresse: "Rue 1"},
		{Article: "Sucre", Marque: "Cosumar", Prix: 7, Contenance: 1, MissionDate: MissionDate, RaisonSocial: "Superette Nour", Adresse: "Avenue 2"},
	}
}

// QuantityRecords returns one visit with two articles
func QuantityRecords() []domain.QuantityObservation {
	return []domain.QuantityObservation{
		{Article: "Lait", Marque: "Centrale", Qte: 6, Contenance: 1, MissionDate: MissionDate, RaisonSocial: "Epicerie Atlas", Adresse: "Rue 1", UserName: "Sara"},
		{Article: "Lait", Marque: "Jaouda", Qte: 2, Contenance: 1, MissionDate: MissionDate, RaisonSocial: "Epicerie Atlas", Adresse: "Rue 1", UserName: "Sara"},
		{Article: "Yaourt", Marque: "Danone", Qte: 4, Contenance: 0.1, MissionDate: MissionDate, RaisonSocial: "Epicerie Atlas", Adresse: "Rue 1", UserName: "Sara"},
	}
}

// Backend is a fake survey backend serving fixed record sets
type Backend struct {
	server *httptest.Server

	mu      sync.Mutex
	status  int
	queries []url.Values
}

// NewBackend starts a backend serving price and quantity, closed on test cleanup
func NewBackend(t *testing.T, price []domain.PriceObservation, quantity []domain.QuantityObservation) *Backend {
	t.Helper()

	b := &Backend{status: http.StatusOK}
	mux := http.NewServeMux()
	mux.HandleFunc(pricePath, b.serve(price))
	mux.HandleFunc(quantityPath, b.serve(quantity))

	b.server = httptest.NewServer(mux)
	t.Cleanup(b.server.Close)
	return b
}

func (b *Backend) serve(records any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		status := b.status
		b.queries = append(b.queries, r.URL.Query())
		b.mu.Unlock()

		if status != http.StatusOK {
			http.Error(w, http.StatusText(status), status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(records)
	}
}

// BaseURL returns the value for the backend base_url setting
func (b *Backend) BaseURL() string {
	return b.server.URL + "/api/"
}

// FailWith makes every following request answer with status
func (b *Backend) FailWith(status int) {
	b.mu.Lock()
	b.status = status
	b.mu.Unlock()
}

// Queries returns the query strings received so far
func (b *Backend) Queries() []url.Values {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]url.Values(nil), b.queries...)
}
