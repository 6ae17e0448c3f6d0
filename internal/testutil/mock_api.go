// Package testutil provides testing utilities for the contacts client.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Contact mirrors the wire shape of one contact record.
type Contact struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	GroupID   int    `json:"group_id"`
}

// MockAPI is a configurable mock contacts server for testing. It serves a
// synthetic dataset through the real listing contract (search, sort, group,
// page, limit) and tracks request counts per page.
type MockAPI struct {
	server *httptest.Server

	mu           sync.Mutex
	contacts     []Contact
	failWith     string
	failStatus   int
	RequestCount int
	PageCounts   map[int]int
}

// NewMockAPI creates a mock server seeded with total synthetic contacts.
// Every third contact lands in group 1, the rest in group 2.
func NewMockAPI(total int) *MockAPI {
	m := &MockAPI{
		contacts:   make([]Contact, 0, total),
		PageCounts: map[int]int{},
	}

	for i := 1; i <= total; i++ {
		group := 2
		if i%3 == 0 {
			group = 1
		}
		m.contacts = append(m.contacts, Contact{
			ID:        int64(i),
			FirstName: fmt.Sprintf("First%03d", i),
			LastName:  fmt.Sprintf("Last%03d", i),
			Email:     fmt.Sprintf("contact%03d@example.com", i),
			Phone:     fmt.Sprintf("+1-555-%04d", i),
			GroupID:   group,
		})
	}

	m.server = httptest.NewServer(http.HandlerFunc(m.handleList))
	return m
}

// URL returns the mock server base URL.
func (m *MockAPI) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockAPI) Close() {
	m.server.Close()
}

// Reset clears request tracking and failure injection.
func (m *MockAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.PageCounts = map[int]int{}
	m.failWith = ""
	m.failStatus = 0
}

// FailWith makes subsequent requests return an error envelope with the given
// status and message. Pass status 200 to exercise success:false handling.
func (m *MockAPI) FailWith(status int, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failStatus = status
	m.failWith = message
}

// Recover clears failure injection.
func (m *MockAPI) Recover() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failStatus = 0
	m.failWith = ""
}

// GetRequestCount returns the number of list requests served.
func (m *MockAPI) GetRequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.RequestCount
}

// GetPageCount returns the number of list requests for one page number.
func (m *MockAPI) GetPageCount(page int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.PageCounts[page]
}

func (m *MockAPI) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit < 1 {
		limit = 25
	}

	m.mu.Lock()
	m.RequestCount++
	m.PageCounts[page]++
	failStatus, failWith := m.failStatus, m.failWith
	dataset := m.contacts
	m.mu.Unlock()

	w.Header().Set("Content-Type", "application/json; charset=utf-8")

	if failWith != "" {
		w.WriteHeader(failStatus)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": false,
			"error":   failWith,
		})
		return
	}

	filtered := filterContacts(dataset, q.Get("search"), q.Get("group"))
	sortContacts(filtered, q.Get("sort"), q.Get("direction"))

	total := len(filtered)
	totalPages := (total + limit - 1) / limit

	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"data":    filtered[start:end],
		"total":   total,
		"pagination": map[string]interface{}{
			"hasNext":     page < totalPages,
			"hasPrevious": page > 1,
			"currentPage": page,
			"totalPages":  totalPages,
		},
	})
}

// filterContacts applies search and group filters.
func filterContacts(contacts []Contact, search, group string) []Contact {
	out := make([]Contact, 0, len(contacts))
	groupID, _ := strconv.Atoi(group)
	needle := strings.ToLower(search)

	for _, c := range contacts {
		if groupID != 0 && c.GroupID != groupID {
			continue
		}
		if needle != "" {
			haystack := strings.ToLower(c.FirstName + " " + c.LastName + " " + c.Email)
			if !strings.Contains(haystack, needle) {
				continue
			}
		}
		out = append(out, c)
	}
	return out
}

// sortContacts orders the slice by the requested field.
func sortContacts(contacts []Contact, field, direction string) {
	less := func(a, b Contact) bool { return a.LastName < b.LastName }
	switch field {
	case "first_name":
		less = func(a, b Contact) bool { return a.FirstName < b.FirstName }
	case "email":
		less = func(a, b Contact) bool { return a.Email < b.Email }
	case "id":
		less = func(a, b Contact) bool { return a.ID < b.ID }
	}

	sort.SliceStable(contacts, func(i, j int) bool {
		if direction == "desc" {
			return less(contacts[j], contacts[i])
		}
		return less(contacts[i], contacts[j])
	})
}
