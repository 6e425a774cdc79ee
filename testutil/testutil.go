// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/danielhkuo/predictroom/cliparse"
	"github.com/danielhkuo/predictroom/coordinator"
	"github.com/danielhkuo/predictroom/db"
	"github.com/danielhkuo/predictroom/models"
	"github.com/danielhkuo/predictroom/store/sqlstore"
)

// TestDBURL is the connection string for the test database
const TestDBURL = ":memory:"

// SetupTestDB creates a fresh in-memory SQLite database with the full schema
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := db.Open(db.TypeSQLite, TestDBURL)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	if err := db.CreateSchema(conn); err != nil {
		conn.Close()
		t.Fatalf("Failed to create schema: %v", err)
	}

	return conn
}

// NewTestCoordinator wires a coordinator to a fresh SQL store. Conflicts
// retry without waiting and with a budget large enough for the
// concurrency tests.
func NewTestCoordinator(t *testing.T, opts ...coordinator.Option) *coordinator.Coordinator {
	t.Helper()

	conn := SetupTestDB(t)
	t.Cleanup(func() { conn.Close() })

	base := []coordinator.Option{
		coordinator.WithBackOff(func() backoff.BackOff { return &backoff.ZeroBackOff{} }),
		coordinator.WithMaxAttempts(50),
	}
	backend := sqlstore.New(conn, db.TypeSQLite).Backend()
	return coordinator.New(backend, append(base, opts...)...)
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:          3318,
		DatabaseURL:   TestDBURL,
		DatabaseType:  db.TypeSQLite,
		StoreBackend:  cliparse.BackendSQL,
		RoomTTL:       7 * 24 * time.Hour,
		PublicBaseURL: "http://predict.test",
	}
}

// CreateTestRoom creates a room owned by creator and returns its ID
func CreateTestRoom(t *testing.T, coord *coordinator.Coordinator, creator string) string {
	t.Helper()

	res, err := coord.CreateRoom(context.Background(), "Test Room", creator, models.CategoryFun)
	if err != nil {
		t.Fatalf("Failed to create test room: %v", err)
	}
	return res.Room.ID
}

// AddTestPrediction adds a prediction closing in one hour and returns its ID.
// options is only used for multiple choice.
func AddTestPrediction(t *testing.T, coord *coordinator.Coordinator, roomID, creator, answerType string, pointValue int64, options ...string) string {
	t.Helper()

	res, err := coord.AddPrediction(context.Background(), roomID, coordinator.PredictionInput{
		Username:   creator,
		Question:   "Who wins?",
		Deadline:   time.Now().Add(time.Hour),
		PointValue: pointValue,
		AnswerType: answerType,
		Options:    options,
	})
	if err != nil {
		t.Fatalf("Failed to add test prediction: %v", err)
	}
	preds := res.Room.Predictions
	return preds[len(preds)-1].ID
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
