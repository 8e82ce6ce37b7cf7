// Package fakeapi serves an in-memory imitation of the MyAussie auth and
// customer APIs for tests.
package fakeapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ogulcanaydogan/aussiebb-go/pkg/model"
)

const (
	Username     = "user@example.com"
	Password     = "hunter2"
	CookieName   = "myaussie_cookie"
	sessionToken = "session-token"
)

// Service is a broadband service exposed by the fake.
type Service struct {
	ID          string
	Plan        string
	RolloverDay int
	UsedMB      float64
	RemainingMB *float64
}

// Server is a running fake API.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	services []Service
	until    time.Time
	requests map[string]int
	failures map[string]int
}

// New starts a fake with the given services and stops it when the test ends.
func New(t testing.TB, services ...Service) *Server {
	t.Helper()
	s := &Server{
		services: services,
		requests: make(map[string]int),
		failures: make(map[string]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", s.handleLogin)
	mux.HandleFunc("GET /api/customer", s.authed(s.handleCustomer))
	mux.HandleFunc("GET /api/broadband/{id}/usage", s.authed(s.handleOverview))
	mux.HandleFunc("GET /api/broadband/{id}/usage/{year}/{month}", s.authed(s.handlePeriod))

	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

// AuthURL is the base URL of the auth API.
func (s *Server) AuthURL() string { return s.URL + "/auth/" }

// APIURL is the base URL of the customer API.
func (s *Server) APIURL() string { return s.URL + "/api/" }

// Requests returns how many times path, relative to APIURL, was requested.
func (s *Server) Requests(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[path]
}

// TotalRequests returns the number of API requests served.
func (s *Server) TotalRequests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.requests {
		n += c
	}
	return n
}

// Fail makes requests for path answer with status.
func (s *Server) Fail(path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[path] = status
}

// Until hides usage for days after t, as if they had not been billed yet.
func (s *Server) Until(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.until = t
}

// SetServices replaces the account's services.
func (s *Server) SetServices(services ...Service) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.services = services
}

// DayUsage is the usage the fake reports for a date.
func DayUsage(d time.Time) (download, upload float64) {
	return float64(d.Day()) * 100, float64(d.Day()) * 10
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if creds.Username != Username || creds.Password != Password {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: CookieName, Value: sessionToken, Path: "/"})
	writeJSON(w, map[string]any{"refreshToken": "refresh-token", "expiresIn": 3600})
}

func (s *Server) authed(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(CookieName)
		if err != nil || c.Value != sessionToken {
			http.Error(w, "unauthenticated", http.StatusUnauthorized)
			return
		}

		path := strings.TrimPrefix(r.URL.Path, "/api/")
		s.mu.Lock()
		s.requests[path]++
		status := s.failures[path]
		s.mu.Unlock()
		if status != 0 {
			http.Error(w, http.StatusText(status), status)
			return
		}
		next(w, r)
	}
}

func (s *Server) lookup(id string) (Service, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, svc := range s.services {
		if svc.ID == id {
			return svc, true
		}
	}
	return Service{}, false
}

func (s *Server) handleCustomer(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	services := append([]Service(nil), s.services...)
	s.mu.Unlock()

	nbn := make([]map[string]any, 0, len(services))
	for _, svc := range services {
		id, err := strconv.Atoi(svc.ID)
		var serviceID any = svc.ID
		if err == nil {
			serviceID = id
		}
		nbn = append(nbn, map[string]any{
			"service_id":  serviceID,
			"plan":        svc.Plan,
			"description": "NBN Fibre to the Premises",
			"nbnDetails": map[string]any{
				"product":  "FTTP",
				"poiName":  "Brunswick",
				"cvcGraph": "https://example.com/cvc.png",
				"speedPotential": map[string]any{
					"downloadMbps": 100,
					"uploadMbps":   40,
					"lastTested":   "2024-06-01T10:00:00Z",
				},
			},
			"nextBillDate":     "2024-07-28T00:00:00Z",
			"openDate":         "2020-02-14",
			"usageAnniversary": svc.RolloverDay,
			"ipAddresses":      []string{"203.0.113.7"},
			"address": map[string]any{
				"subaddresstype":   "Unit",
				"subaddressnumber": "4",
				"streetnumber":     "12",
				"streetname":       "Example",
				"streettype":       "St",
				"locality":         "Brunswick",
				"state":            "VIC",
				"postcode":         3056,
			},
		})
	}

	writeJSON(w, map[string]any{
		"customer_number": 1234567,
		"billing_name":    "Jane Citizen",
		"billformat":      1,
		"brand":           "ABB",
		"postalAddress": map[string]any{
			"address":  "PO Box 1",
			"town":     "Brunswick",
			"state":    "VIC",
			"postcode": "3056",
		},
		"communicationPreferences": map[string]any{
			"outages": map[string]any{"sms": true, "sms247": false, "email": true},
		},
		"phone":               "0400000000",
		"email":               []string{"user@example.com"},
		"payment_method":      "direct_debit",
		"isSuspended":         false,
		"accountBalanceCents": -1250,
		"services":            map[string]any{"NBN": nbn},
		"permissions": map[string]any{
			"createPaymentPlan":          true,
			"updatePaymentDetails":       true,
			"createContact":              true,
			"updateContacts":             true,
			"updateCustomer":             true,
			"changePassword":             true,
			"createTickets":              true,
			"makePayment":                true,
			"purchaseDatablocksNextBill": false,
			"createOrder":                true,
			"viewOrders":                 true,
		},
	})
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	svc, ok := s.lookup(r.PathValue("id"))
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	writeJSON(w, map[string]any{
		"usedMb":        svc.UsedMB,
		"downloadedMb":  svc.UsedMB * 0.9,
		"uploadedMb":    svc.UsedMB * 0.1,
		"remainingMb":   svc.RemainingMB,
		"daysTotal":     30,
		"daysRemaining": 12,
		"lastUpdated":   "2024-07-16 09:00:00",
	})
}

func (s *Server) handlePeriod(w http.ResponseWriter, r *http.Request) {
	svc, ok := s.lookup(r.PathValue("id"))
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	year, err := strconv.Atoi(r.PathValue("year"))
	if err != nil {
		http.Error(w, "bad year", http.StatusBadRequest)
		return
	}
	month, err := strconv.Atoi(r.PathValue("month"))
	if err != nil || month < 1 || month > 12 {
		http.Error(w, "bad month", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	until := s.until
	s.mu.Unlock()

	anchor := time.Date(year, time.Month(month), svc.RolloverDay, 0, 0, 0, 0, time.UTC)
	if svc.RolloverDay > model.DaysIn(year, time.Month(month)) {
		anchor = time.Date(year, time.Month(month)+1, 1, 0, 0, 0, 0, time.UTC)
	}
	start, end := model.BillingPeriodBounds(anchor, svc.RolloverDay)

	data := []map[string]any{}
	for d := start; d.Before(end); d = d.AddDate(0, 0, 1) {
		if !until.IsZero() && d.After(until) {
			break
		}
		down, up := DayUsage(d)
		data = append(data, map[string]any{
			"date":     d.Format(model.DateLayout),
			"download": down,
			"upload":   up,
		})
	}
	writeJSON(w, map[string]any{"data": data})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
