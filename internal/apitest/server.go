// Package apitest serves a scripted in-memory copy of the listings backend for tests.
package apitest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/jimezsa/leasecli/internal/models"
)

type Server struct {
	*httptest.Server

	mu           sync.Mutex
	listings     []models.Listing
	rawListings  string
	listingsCode int
	queries      []url.Values
	geocodes     map[string][2]string
	geocodeCalls []string
	statuses     []models.ScraperStatus
	statusCalls  int
	runRequests  []models.RunRequest
	runError     string
	stopCalls    int
}

func New() *Server {
	s := &Server{geocodes: map[string][2]string{}}

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Get("/listings", s.handleListings)
		r.Get("/geocode", s.handleGeocode)
		r.Post("/run-scraper", s.handleRun)
		r.Post("/stop-scraper", s.handleStop)
		r.Get("/scraper-status", s.handleStatus)
	})

	s.Server = httptest.NewServer(r)
	return s
}

func (s *Server) SetListings(listings ...models.Listing) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listings = listings
	s.rawListings = ""
	s.listingsCode = 0
}

// SetListingsResponse replaces the listings response with a raw body and status code.
func (s *Server) SetListingsResponse(code int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listingsCode = code
	s.rawListings = body
}

func (s *Server) Queries() []url.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]url.Values(nil), s.queries...)
}

func (s *Server) SetGeocode(address, lat, lon string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.geocodes[address] = [2]string{lat, lon}
}

func (s *Server) GeocodeCalls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.geocodeCalls...)
}

// QueueStatuses scripts the scraper-status responses. The last one repeats.
func (s *Server) QueueStatuses(statuses ...models.ScraperStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses = append(s.statuses, statuses...)
}

func (s *Server) StatusCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusCalls
}

func (s *Server) RunRequests() []models.RunRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.RunRequest(nil), s.runRequests...)
}

func (s *Server) FailRun(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runError = message
}

func (s *Server) StopCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopCalls
}

func (s *Server) handleListings(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.queries = append(s.queries, r.URL.Query())
	code, raw, listings := s.listingsCode, s.rawListings, s.listings
	s.mu.Unlock()

	if raw != "" || code != 0 {
		if code == 0 {
			code = http.StatusOK
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_, _ = w.Write([]byte(raw))
		return
	}
	if listings == nil {
		listings = []models.Listing{}
	}
	writeJSON(w, http.StatusOK, listings)
}

func (s *Server) handleGeocode(w http.ResponseWriter, r *http.Request) {
	address := r.URL.Query().Get("address")
	if address == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing address parameter"})
		return
	}

	s.mu.Lock()
	s.geocodeCalls = append(s.geocodeCalls, address)
	match, ok := s.geocodes[address]
	s.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusOK, []any{})
		return
	}
	writeJSON(w, http.StatusOK, []map[string]string{{"lat": match[0], "lon": match[1]}})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var req models.RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": err.Error()})
		return
	}

	s.mu.Lock()
	s.runRequests = append(s.runRequests, req)
	runError := s.runError
	s.mu.Unlock()

	if runError != "" {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": runError})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Scraper started successfully"})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.stopCalls++
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Stop signal sent to scraper"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.statusCalls++
	status := models.ScraperStatus{Status: models.StateIdle}
	if len(s.statuses) > 0 {
		status = s.statuses[0]
		if len(s.statuses) > 1 {
			s.statuses = s.statuses[1:]
		}
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, status)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
