package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"maintenance-planner-backend/config"
	"maintenance-planner-backend/internal/blob"
	"maintenance-planner-backend/internal/db"
	"maintenance-planner-backend/internal/metrics"
	"maintenance-planner-backend/internal/model"
	"maintenance-planner-backend/internal/mw"
	"maintenance-planner-backend/internal/notification"
	"maintenance-planner-backend/internal/parse"
	"maintenance-planner-backend/internal/planner"
	"maintenance-planner-backend/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type countingNotifier struct {
	mu    sync.Mutex
	count int
}

func (n *countingNotifier) SendCompletion(context.Context, *model.MaintenanceSchedule) notification.Outcome {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.count++
	return notification.Sent
}

type testServer struct {
	router   *gin.Engine
	db       *gorm.DB
	notifier *countingNotifier
	machine  model.Machine
}

var (
	plannerHeaders  = map[string]string{mw.HeaderUserRoles: "planner", mw.HeaderUserID: "7"}
	operatorHeaders = map[string]string{mw.HeaderUserRoles: "operator"}
	superHeaders    = map[string]string{mw.HeaderUserRoles: "supervisor"}
)

func newTestServer(t *testing.T) *testServer {
	gormDB, err := db.Init(&config.DatabaseConfig{
		Driver:       "sqlite",
		DSN:          fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
		MaxOpenConns: 1,
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB, _ := gormDB.DB()
		sqlDB.Close()
	})

	line := model.Line{Name: "Line 1"}
	require.NoError(t, gormDB.Create(&line).Error)
	machine := model.Machine{LineID: line.ID, Code: "CNC-1", Name: "CNC Lathe", MaintenanceFrequency: "Quarterly", PMPlanYear: "Jul-Jan"}
	require.NoError(t, gormDB.Create(&machine).Error)

	blobs, err := blob.New(t.TempDir())
	require.NoError(t, err)

	st := store.NewGormStore(gormDB)
	notifier := &countingNotifier{}
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	svc := planner.NewService(st, blobs, notifier, parse.NewPlanCache(time.Minute),
		config.StorageConfig{ChecksheetDir: "checksheets", CompletionDir: "completion"}, zap.NewNop(), m)

	handler := NewHandler(svc, st, 1<<20, zap.NewNop())
	router := NewRouter(handler, RouterOptions{
		Server:   config.ServerConfig{RateLimitPerSec: 1000, RateLimitBurst: 1000, CacheTTLSeconds: 30},
		Log:      zap.NewNop(),
		Metrics:  m,
		Gatherer: reg,
	})
	return &testServer{router: router, db: gormDB, notifier: notifier, machine: machine}
}

func (s *testServer) do(method, path string, body io.Reader, contentType string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) json(method, path string, payload any, headers map[string]string) *httptest.ResponseRecorder {
	var body io.Reader
	if payload != nil {
		raw, _ := json.Marshal(payload)
		body = bytes.NewReader(raw)
	}
	return s.do(method, path, body, "application/json", headers)
}

func (s *testServer) multipart(path string, fields map[string]string, fileField, fileName, content string, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		w.WriteField(k, v)
	}
	if fileField != "" {
		fw, _ := w.CreateFormFile(fileField, fileName)
		fw.Write([]byte(content))
	}
	w.Close()
	return s.do(http.MethodPost, path, &buf, w.FormDataContentType(), headers)
}

func (s *testServer) createSchedule(t *testing.T, date string) scheduleResponse {
	w := s.json(http.MethodPost, "/api/maintenance-plans", gin.H{
		"machineId":     s.machine.ID,
		"scheduledDate": date,
		"shift":         "A",
	}, plannerHeaders)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp scheduleResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestRoleGate(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusUnauthorized, s.json(http.MethodGet, "/api/maintenance-plans", nil, nil).Code)
	assert.Equal(t, http.StatusOK, s.json(http.MethodGet, "/api/maintenance-plans", nil, operatorHeaders).Code)
	assert.Equal(t, http.StatusForbidden, s.json(http.MethodPost, "/api/maintenance-plans", gin.H{}, operatorHeaders).Code)
	assert.Equal(t, http.StatusForbidden, s.json(http.MethodPost, "/api/yearly-maintenance-plans", gin.H{}, superHeaders).Code)
}

func TestCreateAndListSchedules(t *testing.T) {
	s := newTestServer(t)

	// Prime the cache so the create below has to invalidate it.
	w := s.json(http.MethodGet, "/api/maintenance-plans", nil, operatorHeaders)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	created := s.createSchedule(t, "2025-06-01")
	assert.Equal(t, "2025-06-01", created.ScheduledDate)
	assert.Equal(t, "scheduled", created.Status)
	assert.Equal(t, "Quarterly", created.MaintenanceFrequency)
	assert.Equal(t, "CNC Lathe", created.MachineName)
	assert.Equal(t, "Line 1", created.LineName)
	assert.False(t, created.PreNotificationSent)

	list := decode[[]scheduleResponse](t, s.json(http.MethodGet, "/api/maintenance-plans", nil, operatorHeaders))
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)
	assert.Empty(t, list[0].History)

	filtered := decode[[]scheduleResponse](t, s.json(http.MethodGet, "/api/maintenance-plans?from=2025-07-01", nil, operatorHeaders))
	assert.Empty(t, filtered)

	testCases := []struct {
		name    string
		payload any
		status  int
	}{
		{name: "bad shift", payload: gin.H{"machineId": s.machine.ID, "scheduledDate": "2025-06-01", "shift": "Q"}, status: http.StatusBadRequest},
		{name: "missing date", payload: gin.H{"machineId": s.machine.ID, "shift": "A"}, status: http.StatusBadRequest},
		{name: "bad date", payload: gin.H{"machineId": s.machine.ID, "scheduledDate": "01/06/2025", "shift": "A"}, status: http.StatusBadRequest},
		{name: "unknown machine", payload: gin.H{"machineId": 999, "scheduledDate": "2025-06-01", "shift": "A"}, status: http.StatusNotFound},
		{name: "malformed body", payload: "not an object", status: http.StatusBadRequest},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.status, s.json(http.MethodPost, "/api/maintenance-plans", tc.payload, plannerHeaders).Code)
		})
	}

	assert.Equal(t, http.StatusBadRequest, s.json(http.MethodGet, "/api/maintenance-plans?status=open", nil, operatorHeaders).Code)
	assert.Equal(t, http.StatusBadRequest, s.json(http.MethodGet, "/api/maintenance-plans?from=june", nil, operatorHeaders).Code)
}

func TestUpdateSchedule(t *testing.T) {
	s := newTestServer(t)
	created := s.createSchedule(t, "2025-06-01")
	path := fmt.Sprintf("/api/maintenance-plans/%d", created.ID)

	w := s.json(http.MethodPut, path, gin.H{"scheduledDate": "2025-06-05"}, plannerHeaders)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "reason")

	w = s.json(http.MethodPut, path, gin.H{"scheduledDate": "2025-06-05", "notes": "line shutdown", "shift": "c"}, plannerHeaders)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[scheduleResponse](t, w)
	assert.Equal(t, "2025-06-05", updated.ScheduledDate)
	assert.Equal(t, "C", updated.Shift)
	require.NotNil(t, updated.PreviousScheduledDate)
	assert.Equal(t, "2025-06-01", *updated.PreviousScheduledDate)
	require.Len(t, updated.History, 1)
	assert.Equal(t, "2025-06-01", updated.History[0].PreviousScheduledDate)
	assert.Equal(t, "2025-06-05", updated.History[0].NewScheduledDate)
	assert.Equal(t, "line shutdown", *updated.History[0].Reason)
	require.NotNil(t, updated.History[0].ChangedByID)
	assert.Equal(t, int64(7), *updated.History[0].ChangedByID)

	w = s.json(http.MethodPut, path, gin.H{"status": "completed"}, plannerHeaders)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Equal(t, http.StatusNotFound, s.json(http.MethodPut, "/api/maintenance-plans/999", gin.H{"shift": "A"}, plannerHeaders).Code)
	assert.Equal(t, http.StatusBadRequest, s.json(http.MethodPut, "/api/maintenance-plans/abc", gin.H{"shift": "A"}, plannerHeaders).Code)
}

func TestCompleteSchedule(t *testing.T) {
	s := newTestServer(t)
	created := s.createSchedule(t, "2025-06-01")
	path := fmt.Sprintf("/api/maintenance-plans/%d/complete", created.ID)

	w := s.multipart(path, nil, "attachment", "report.pdf", "data", superHeaders)
	assert.Equal(t, http.StatusBadRequest, w.Code, "remark is required")

	w = s.multipart(path, map[string]string{"remark": "done"}, "", "", "", superHeaders)
	assert.Equal(t, http.StatusBadRequest, w.Code, "attachment is required")

	assert.Equal(t, http.StatusForbidden, s.multipart(path, map[string]string{"remark": "done"}, "attachment", "r.pdf", "x", operatorHeaders).Code)

	w = s.multipart(path, map[string]string{"remark": "belts replaced"}, "attachment", "report.pdf", "%PDF", superHeaders)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	completed := decode[scheduleResponse](t, w)
	assert.Equal(t, "completed", completed.Status)
	assert.NotNil(t, completed.CompletedAt)
	assert.Equal(t, "belts replaced", completed.CompletionRemark)
	assert.Equal(t, 1, s.notifier.count)

	w = s.multipart(path, map[string]string{"remark": "again"}, "attachment", "report.pdf", "%PDF", superHeaders)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, 1, s.notifier.count)

	w = s.do(http.MethodGet, fmt.Sprintf("/api/maintenance-plans/%d/completion-attachment", created.ID), nil, "", operatorHeaders)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "%PDF", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
}

func TestChecksheetLifecycle(t *testing.T) {
	s := newTestServer(t)
	created := s.createSchedule(t, "2025-06-01")
	path := fmt.Sprintf("/api/maintenance-plans/%d/checksheet", created.ID)

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, path, nil, "", operatorHeaders).Code)

	w := s.multipart(path, nil, "file", "sheet.xlsx", "cells", superHeaders)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	attached := decode[scheduleResponse](t, w)
	assert.True(t, strings.HasPrefix(attached.ChecksheetPath, "checksheets/"))

	w = s.do(http.MethodGet, path, nil, "", operatorHeaders)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "cells", w.Body.String())

	assert.Equal(t, http.StatusForbidden, s.do(http.MethodDelete, path, nil, "", superHeaders).Code)

	w = s.do(http.MethodDelete, path, nil, "", plannerHeaders)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[scheduleResponse](t, w).ChecksheetPath)

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, path, nil, "", operatorHeaders).Code)
}

func TestDeleteSchedule(t *testing.T) {
	s := newTestServer(t)
	created := s.createSchedule(t, "2025-06-01")
	path := fmt.Sprintf("/api/maintenance-plans/%d", created.ID)

	assert.Equal(t, http.StatusNoContent, s.do(http.MethodDelete, path, nil, "", plannerHeaders).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, path, nil, "", operatorHeaders).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodDelete, path, nil, "", plannerHeaders).Code)
}

func TestYearlyPlans(t *testing.T) {
	s := newTestServer(t)

	w := s.json(http.MethodPost, "/api/yearly-maintenance-plans", gin.H{
		"year": 2025,
		"plans": []gin.H{
			{"machineId": s.machine.ID, "frequency": "half-yearly", "jul": "A", "jan": "b"},
		},
	}, plannerHeaders)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	plans := decode[[]yearlyPlanResponse](t, s.json(http.MethodGet, "/api/yearly-maintenance-plans?year=2025", nil, operatorHeaders))
	require.Len(t, plans, 1)
	assert.Equal(t, "Half Yearly", *plans[0].Frequency)
	assert.Equal(t, "B", *plans[0].Jan)
	assert.Equal(t, "A", *plans[0].Jul)
	assert.Nil(t, plans[0].Mar)

	// March is outside "Jul-Jan".
	w = s.json(http.MethodPost, "/api/yearly-maintenance-plans", gin.H{
		"year":  2025,
		"plans": []gin.H{{"machineId": s.machine.ID, "mar": "A"}},
	}, plannerHeaders)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.json(http.MethodPost, "/api/yearly-maintenance-plans", gin.H{
		"year":  2025,
		"plans": []gin.H{{"machineId": s.machine.ID, "frequency": nil}},
	}, plannerHeaders)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	assert.Equal(t, http.StatusBadRequest, s.json(http.MethodGet, "/api/yearly-maintenance-plans?year=abc", nil, operatorHeaders).Code)
}

func TestAllowedMonths(t *testing.T) {
	s := newTestServer(t)

	w := s.json(http.MethodGet, fmt.Sprintf("/api/machines/%d/allowed-months", s.machine.ID), nil, operatorHeaders)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, fmt.Sprintf(`{"machineId":%d,"pmPlanYear":"Jul-Jan","months":[1,7,8,9,10,11,12],"unrestricted":false}`, s.machine.ID), w.Body.String())

	assert.Equal(t, http.StatusNotFound, s.json(http.MethodGet, "/api/machines/999/allowed-months", nil, operatorHeaders).Code)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodGet, "/healthz", nil, "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	s.json(http.MethodGet, "/api/maintenance-plans", nil, operatorHeaders)
	w = s.do(http.MethodGet, "/metrics", nil, "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}
