// Package apitest runs an in-process fake of the car-projects REST API for
// tests. It issues real HS256 JWTs, keeps users, vehicles and projects in
// memory, and records every request it receives.
package apitest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/zohaib/garage/pkg/domain"
)

// SigningKey signs every token the fake issues.
var SigningKey = []byte("apitest-signing-key")

// AccessTTL is the lifetime written into issued access tokens.
const AccessTTL = 5 * time.Minute

// Error bodies, matching the real API.
const (
	DetailBadCredentials = "No active account found with the given credentials"
	DetailTokenInvalid   = "Given token not valid for any token type"
	DetailNoCredentials  = "Authentication credentials were not provided."
	ErrVehicleNotFound   = "Please enter a correct registration number. Vehicle not found."
)

// RecordedRequest is what the fake saw for one request.
type RecordedRequest struct {
	Method        string
	Path          string
	Query         string
	Authorization string
	RequestID     string
}

type account struct {
	password string
	user     domain.User
}

type vehicleError struct {
	status  int
	message string
}

// Server is the fake API.
type Server struct {
	*httptest.Server

	mu            sync.Mutex
	accounts      map[string]account
	access        map[string]string // access token -> username
	refresh       map[string]string // refresh token -> username
	refreshFails  bool
	refreshCalls  int
	vehicles      map[string]domain.Vehicle
	vehicleErrors map[string]vehicleError
	projects      map[int]domain.Project
	nextID        int
	requests      []RecordedRequest
}

// New starts a fake API and closes it when the test ends.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		accounts:      make(map[string]account),
		access:        make(map[string]string),
		refresh:       make(map[string]string),
		vehicles:      make(map[string]domain.Vehicle),
		vehicleErrors: make(map[string]vehicleError),
		projects:      make(map[int]domain.Project),
		nextID:        1,
	}
	s.Server = httptest.NewServer(s.routes())
	t.Cleanup(s.Close)
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.record)

	r.Route("/auth", func(rr chi.Router) {
		rr.Post("/jwt/create/", s.createToken)
		rr.Post("/jwt/refresh/", s.refreshToken)
		rr.Get("/users/me/", s.me)
	})
	r.Get("/vehicles/lookup/", s.lookupVehicle)
	r.Route("/projects", func(rr chi.Router) {
		rr.Get("/", s.listProjects)
		rr.Post("/", s.createProject)
		rr.Get("/{id}/", s.getProject)
		rr.Patch("/{id}/", s.updateProject)
		rr.Delete("/{id}/", s.deleteProject)
	})
	return r
}

// --- test controls ---

// AddUser registers an account.
func (s *Server) AddUser(u domain.User, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[u.Username] = account{password: password, user: u}
}

// IssueTokens mints a valid token pair for an existing user.
func (s *Server) IssueTokens(username string) domain.TokenPair {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issueLocked(username)
}

// ExpireAccessTokens invalidates every access token issued so far.
func (s *Server) ExpireAccessTokens() {
	s.mu.Lock()
	s.access = make(map[string]string)
	s.mu.Unlock()
}

// SetRefreshFails makes the refresh endpoint reject every token.
func (s *Server) SetRefreshFails(fail bool) {
	s.mu.Lock()
	s.refreshFails = fail
	s.mu.Unlock()
}

// RefreshCalls returns how many times the refresh endpoint was hit.
func (s *Server) RefreshCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshCalls
}

// AddVehicle registers a vehicle under its registration.
func (s *Server) AddVehicle(v domain.Vehicle) {
	s.mu.Lock()
	s.vehicles[strings.ToUpper(v.Registration)] = v
	s.mu.Unlock()
}

// SetVehicleError makes lookups of reg fail with status and message.
func (s *Server) SetVehicleError(reg string, status int, message string) {
	s.mu.Lock()
	s.vehicleErrors[strings.ToUpper(reg)] = vehicleError{status: status, message: message}
	s.mu.Unlock()
}

// AddProject stores p, assigning an ID when p.ID is zero.
func (s *Server) AddProject(p domain.Project) domain.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == 0 {
		p.ID = s.nextID
	}
	if p.ID >= s.nextID {
		s.nextID = p.ID + 1
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = p.CreatedAt
	}
	s.projects[p.ID] = p
	return p
}

// Project returns the stored project with id.
func (s *Server) Project(id int) (domain.Project, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	return p, ok
}

// Requests returns a copy of every recorded request.
func (s *Server) Requests() []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RecordedRequest, len(s.requests))
	copy(out, s.requests)
	return out
}

// RequestsTo returns the recorded requests whose path is path.
func (s *Server) RequestsTo(path string) []RecordedRequest {
	var out []RecordedRequest
	for _, r := range s.Requests() {
		if r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

// --- handlers ---

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, RecordedRequest{
			Method:        r.Method,
			Path:          r.URL.Path,
			Query:         r.URL.RawQuery,
			Authorization: r.Header.Get("Authorization"),
			RequestID:     r.Header.Get("X-Request-ID"),
		})
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) createToken(w http.ResponseWriter, r *http.Request) {
	var creds domain.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "malformed body"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[creds.Username]
	if !ok || acct.password != creds.Password {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": DetailBadCredentials})
		return
	}
	writeJSON(w, http.StatusOK, s.issueLocked(creds.Username))
}

func (s *Server) refreshToken(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Refresh string `json:"refresh"`
	}
	json.NewDecoder(r.Body).Decode(&body) //nolint:errcheck // empty body is rejected below

	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshCalls++
	username, ok := s.refresh[body.Refresh]
	if s.refreshFails || !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Token is invalid or expired", "code": "token_not_valid"})
		return
	}
	access := s.signLocked(username, "access", AccessTTL)
	s.access[access] = username
	writeJSON(w, http.StatusOK, map[string]string{"access": access})
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	username, status := s.authenticate(r)
	if status != 0 || username == "" {
		writeAuthError(w, status)
		return
	}
	s.mu.Lock()
	u := s.accounts[username].user
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) lookupVehicle(w http.ResponseWriter, r *http.Request) {
	reg := strings.TrimSpace(r.URL.Query().Get("registration"))
	if reg == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Registration number is required"})
		return
	}
	if !domain.ValidRegistrationLen(reg) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Registration number must be between 2 and 7 characters"})
		return
	}
	key := strings.ToUpper(reg)

	s.mu.Lock()
	verr, failing := s.vehicleErrors[key]
	v, found := s.vehicles[key]
	s.mu.Unlock()

	switch {
	case failing:
		writeJSON(w, verr.status, map[string]string{"error": verr.message})
	case found:
		writeJSON(w, http.StatusOK, v)
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": ErrVehicleNotFound})
	}
}

func (s *Server) listProjects(w http.ResponseWriter, r *http.Request) {
	if _, status := s.authenticate(r); status != 0 {
		writeAuthError(w, status)
		return
	}
	s.mu.Lock()
	list := make([]domain.Project, 0, len(s.projects))
	for _, p := range s.projects {
		list = append(list, p)
	}
	s.mu.Unlock()
	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID > list[j].ID
		}
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) getProject(w http.ResponseWriter, r *http.Request) {
	if _, status := s.authenticate(r); status != 0 {
		writeAuthError(w, status)
		return
	}
	p, ok := s.lookupProject(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) createProject(w http.ResponseWriter, r *http.Request) {
	if !s.requireUser(w, r) {
		return
	}
	in := domain.ProjectInput{Price: domain.DefaultProjectPrice, IsActive: true}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "malformed body"})
		return
	}
	if strings.TrimSpace(in.CarName) == "" {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"car_name": {"This field may not be blank."}})
		return
	}
	p := s.AddProject(domain.Project{
		CarName:     in.CarName,
		Description: in.Description,
		Price:       in.Price,
		IsActive:    in.IsActive,
	})
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) updateProject(w http.ResponseWriter, r *http.Request) {
	if !s.requireUser(w, r) {
		return
	}
	p, ok := s.lookupProject(w, r)
	if !ok {
		return
	}
	var patch domain.ProjectPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "malformed body"})
		return
	}
	if patch.CarName != nil {
		if strings.TrimSpace(*patch.CarName) == "" {
			writeJSON(w, http.StatusBadRequest, map[string][]string{"car_name": {"This field may not be blank."}})
			return
		}
		p.CarName = *patch.CarName
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.IsActive != nil {
		p.IsActive = *patch.IsActive
	}
	p.UpdatedAt = time.Now().UTC()

	s.mu.Lock()
	s.projects[p.ID] = p
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) deleteProject(w http.ResponseWriter, r *http.Request) {
	if !s.requireUser(w, r) {
		return
	}
	p, ok := s.lookupProject(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	delete(s.projects, p.ID)
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) lookupProject(w http.ResponseWriter, r *http.Request) (domain.Project, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return domain.Project{}, false
	}
	p, ok := s.Project(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return domain.Project{}, false
	}
	return p, true
}

// authenticate returns the user behind the bearer token. A missing header is
// anonymous (status 0, empty user); an unknown token is a 401.
func (s *Server) authenticate(r *http.Request) (string, int) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return "", 0
	}
	tok, ok := strings.CutPrefix(h, "Bearer ")
	if !ok {
		return "", http.StatusUnauthorized
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	username, ok := s.access[tok]
	if !ok {
		return "", http.StatusUnauthorized
	}
	return username, 0
}

func (s *Server) requireUser(w http.ResponseWriter, r *http.Request) bool {
	username, status := s.authenticate(r)
	if status != 0 || username == "" {
		writeAuthError(w, status)
		return false
	}
	return true
}

func (s *Server) issueLocked(username string) domain.TokenPair {
	pair := domain.TokenPair{
		Access:  s.signLocked(username, "access", AccessTTL),
		Refresh: s.signLocked(username, "refresh", 24*time.Hour),
	}
	s.access[pair.Access] = username
	s.refresh[pair.Refresh] = username
	return pair
}

func (s *Server) signLocked(username, kind string, ttl time.Duration) string {
	now := time.Now()
	claims := jwt.MapClaims{
		"token_type": kind,
		"user_id":    s.accounts[username].user.ID,
		"jti":        uuid.NewString(),
		"iat":        now.Unix(),
		"exp":        now.Add(ttl).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(SigningKey)
	if err != nil {
		panic(fmt.Sprintf("apitest: sign token: %v", err))
	}
	return signed
}

func writeAuthError(w http.ResponseWriter, status int) {
	if status == 0 {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": DetailNoCredentials})
		return
	}
	writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": DetailTokenInvalid, "code": "token_not_valid"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}
