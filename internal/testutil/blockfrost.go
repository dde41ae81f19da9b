package testutil

import (
	"net/http"
	"net/http/httptest"
	"sync"
)

// Route is a canned response of the fake Blockfrost server.
type Route struct {
	Status int
	Body   string

	// Gate, when set, holds the response until it is closed or the request
	// is cancelled.
	Gate chan struct{}
}

// BlockfrostServer is an httptest server answering Blockfrost paths with
// canned responses. Unknown paths answer 404.
type BlockfrostServer struct {
	*httptest.Server

	mu          sync.Mutex
	routes      map[string]Route
	hits        map[string]int
	projectIDs  []string
	inFlight    int
	maxInFlight int
}

// NewBlockfrostServer starts a fake server serving routes keyed by URL path.
func NewBlockfrostServer(routes map[string]Route) *BlockfrostServer {
	s := &BlockfrostServer{
		routes: make(map[string]Route),
		hits:   make(map[string]int),
	}
	for path, r := range routes {
		s.routes[path] = r
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

func (s *BlockfrostServer) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	route, ok := s.routes[r.URL.Path]
	s.hits[r.URL.Path]++
	s.projectIDs = append(s.projectIDs, r.Header.Get("project_id"))
	s.inFlight++
	if s.inFlight > s.maxInFlight {
		s.maxInFlight = s.inFlight
	}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inFlight--
		s.mu.Unlock()
	}()

	if !ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"status_code":404,"error":"Not Found","message":"The requested component has not been found."}`))
		return
	}

	if route.Gate != nil {
		select {
		case <-route.Gate:
		case <-r.Context().Done():
			return
		}
	}

	status := route.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(route.Body))
}

// Set replaces the route for path.
func (s *BlockfrostServer) Set(path string, r Route) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routes[path] = r
}

// Hits returns how many requests reached path.
func (s *BlockfrostServer) Hits(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

// TotalHits returns the number of requests served.
func (s *BlockfrostServer) TotalHits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, h := range s.hits {
		n += h
	}
	return n
}

// ProjectIDs returns the project_id header of every request, in order.
func (s *BlockfrostServer) ProjectIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.projectIDs))
	copy(out, s.projectIDs)
	return out
}

// MaxInFlight returns the highest number of requests served concurrently.
func (s *BlockfrostServer) MaxInFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxInFlight
}

// ScenarioRoutes returns the reference scenario for key: epoch 300, pool
// ABC, 50 ADA controlled and one 6 ADA reward in epoch 299.
func ScenarioRoutes(key string) map[string]Route {
	return map[string]Route{
		"/epochs/latest":                {Body: `{"epoch": 300}`},
		"/accounts/" + key:              {Body: `{"pool_id":"pool1xyz","controlled_amount":"50000000","rewards_sum":"6000000"}`},
		"/pools/pool1xyz/metadata":      {Body: `{"ticker":"ABC","name":"Pool ABC"}`},
		"/accounts/" + key + "/rewards": {Body: `[{"epoch":299,"amount":"6000000"}]`},
	}
}
