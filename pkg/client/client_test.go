package client_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/contactdeck/contacts-client/internal/testutil"
	"github.com/contactdeck/contacts-client/pkg/client"
	"github.com/contactdeck/contacts-client/pkg/query"
)

func newTestClient(t *testing.T, total int) (*client.Client, *testutil.MockAPI) {
	t.Helper()

	mock := testutil.NewMockAPI(total)
	t.Cleanup(mock.Close)

	c, err := client.New(client.DefaultConfig(mock.URL()))
	if err != nil {
		t.Fatalf("client.New: %v", err)
	}
	return c, mock
}

func TestNew_Validation(t *testing.T) {
	if _, err := client.New(client.Config{}); err == nil {
		t.Error("New should reject an empty base url")
	}
}

func TestClient_FetchPage(t *testing.T) {
	c, _ := newTestClient(t, 120)
	ctx := context.Background()

	page, err := c.FetchPage(ctx, query.Params{PageSize: 25})
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}

	if len(page.Contacts) != 25 {
		t.Errorf("len(Contacts) = %d, want 25", len(page.Contacts))
	}
	if page.Total != 120 || page.TotalPages != 5 {
		t.Errorf("Total/TotalPages = %d/%d, want 120/5", page.Total, page.TotalPages)
	}
	if page.Number != 1 || page.HasPrev || !page.HasNext {
		t.Errorf("pagination flags wrong: %+v", page)
	}
}

func TestClient_FetchPage_LastPage(t *testing.T) {
	c, _ := newTestClient(t, 120)
	ctx := context.Background()

	page, err := c.FetchPage(ctx, query.Params{Page: 5, PageSize: 25})
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}

	if len(page.Contacts) != 20 {
		t.Errorf("len(Contacts) = %d on last page, want 20", len(page.Contacts))
	}
	if page.HasNext || !page.HasPrev {
		t.Errorf("pagination flags wrong on last page: %+v", page)
	}
}

func TestClient_FetchPage_SearchAndSort(t *testing.T) {
	c, _ := newTestClient(t, 30)
	ctx := context.Background()

	page, err := c.FetchPage(ctx, query.Params{
		Search:    "contact003",
		SortField: "email",
		SortDir:   query.SortDesc,
		PageSize:  25,
	})
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}
	if page.Total != 1 || len(page.Contacts) != 1 {
		t.Fatalf("search returned %d/%d, want 1 match", page.Total, len(page.Contacts))
	}
	if !strings.Contains(page.Contacts[0].Email, "contact003") {
		t.Errorf("wrong match: %+v", page.Contacts[0])
	}
}

func TestClient_FetchPage_APIError(t *testing.T) {
	c, mock := newTestClient(t, 10)
	ctx := context.Background()

	// success:false with 200 and a message field.
	mock.FailWith(200, "directory unavailable")

	_, err := c.FetchPage(ctx, query.Params{})
	if err == nil {
		t.Fatal("expected error for success:false response")
	}

	var apiErr *client.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type = %T, want *APIError", err)
	}
	if apiErr.Message != "directory unavailable" {
		t.Errorf("Message = %q, want the server's message verbatim", apiErr.Message)
	}
	if !client.IsAPI(err) || client.IsTransport(err) {
		t.Error("error classification helpers disagree")
	}
}

func TestClient_FetchPage_HTTPError(t *testing.T) {
	c, mock := newTestClient(t, 10)
	ctx := context.Background()

	mock.FailWith(500, "internal error")

	_, err := c.FetchPage(ctx, query.Params{})
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type = %T, want *APIError", err)
	}
	if apiErr.StatusCode != 500 {
		t.Errorf("StatusCode = %d, want 500", apiErr.StatusCode)
	}
}

func TestClient_FetchPage_TransportError(t *testing.T) {
	mock := testutil.NewMockAPI(10)
	c, err := client.New(client.DefaultConfig(mock.URL()))
	if err != nil {
		t.Fatalf("client.New: %v", err)
	}
	mock.Close() // connection refused from here on

	_, err = c.FetchPage(context.Background(), query.Params{})
	var te *client.TransportError
	if !errors.As(err, &te) {
		t.Fatalf("error type = %T, want *TransportError", err)
	}
	if client.IsAPI(err) {
		t.Error("transport failure misclassified as API error")
	}
}
