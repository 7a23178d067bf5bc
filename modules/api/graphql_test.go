package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	domain "github.com/example/kanban-tasks/domain/task"
	"github.com/example/kanban-tasks/modules/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type graphQLResponse struct {
	Data   map[string]json.RawMessage `json:"data"`
	Errors []struct {
		Message    string         `json:"message"`
		Extensions map[string]any `json:"extensions"`
	} `json:"errors"`
}

func doGraphQL(t *testing.T, taskPort task.TaskPort, query string, variables map[string]any) graphQLResponse {
	t.Helper()
	body, err := json.Marshal(GraphQLRequest{Query: query, Variables: variables})
	require.NoError(t, err)

	app := newTestApp(testConfig(), &mockAuthPort{}, taskPort, nil, nil)
	resp, raw := doRequest(t, app, authedRequest(http.MethodPost, "/api/v1/graphql", string(body)))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

	var out graphQLResponse
	require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	return out
}

func TestGraphQL_SchemaBuilds(t *testing.T) {
	_, err := NewGraphQLHandler(&mockTaskPort{}, &mockLogger{})
	require.NoError(t, err)
}

func TestGraphQL_RequiresAuthentication(t *testing.T) {
	app := newTestApp(testConfig(), &mockAuthPort{}, &mockTaskPort{}, nil, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/graphql", strings.NewReader(`{"query":"{ tasks { total } }"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, _ := doRequest(t, app, req)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestGraphQL_RequiresQuery(t *testing.T) {
	app := newTestApp(testConfig(), &mockAuthPort{}, &mockTaskPort{}, nil, nil)

	resp, body := doRequest(t, app, authedRequest(http.MethodPost, "/api/v1/graphql", `{"query":"  "}`))
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "bad_request", decodeError(t, body).Error)
}

func TestGraphQL_Tasks(t *testing.T) {
	var got *task.SearchTasksRequest
	port := &mockTaskPort{
		searchFunc: func(_ context.Context, req *task.SearchTasksRequest) (*domain.Page[*domain.Task], error) {
			got = req
			page := domain.NewPage([]*domain.Task{sampleTask("t1", 2)}, 11, domain.NewPageRequest(req.Page, req.Size))
			return &page, nil
		},
	}

	t.Run("defaults page and size", func(t *testing.T) {
		out := doGraphQL(t, port, `{ tasks { total items { id title status priority version assignedTo } } }`, nil)
		require.Empty(t, out.Errors)
		assert.Equal(t, 0, got.Page)
		assert.Equal(t, defaultGraphQLPageSize, got.Size)
		assert.JSONEq(t, `{"total":11,"items":[{"id":"t1","title":"Write docs","status":"TODO","priority":"MED","version":2,"assignedTo":null}]}`,
			string(out.Data["tasks"]))
	})

	t.Run("passes filters", func(t *testing.T) {
		out := doGraphQL(t, port,
			`query($status: String) { tasks(page: 1, size: 5, status: $status, assignedTo: "unassigned", sortBy: "priority") { page size totalPages } }`,
			map[string]any{"status": "DONE"})
		require.Empty(t, out.Errors)
		assert.Equal(t, 1, got.Page)
		assert.Equal(t, 5, got.Size)
		assert.Equal(t, "DONE", got.Status)
		assert.Equal(t, "unassigned", got.AssignedTo)
		assert.Equal(t, "priority", got.SortBy)
		assert.JSONEq(t, `{"page":1,"size":5,"totalPages":3}`, string(out.Data["tasks"]))
	})
}

func TestGraphQL_TaskErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
		wantMsg  string
	}{
		{
			name:     "not found",
			err:      &domain.NotFoundError{Resource: "Task", ID: "t9"},
			wantCode: "not_found",
			wantMsg:  "Task not found with id: t9",
		},
		{
			name:     "version conflict",
			err:      &domain.ConflictError{TaskID: "t9", Expected: 1, Actual: 2},
			wantCode: "version_conflict",
			wantMsg:  conflictMessage,
		},
		{
			name:     "unclassified",
			err:      errors.New("connection reset"),
			wantCode: "internal_error",
			wantMsg:  internalMessage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			port := &mockTaskPort{
				getFunc: func(context.Context, string) (*domain.Task, error) { return nil, tt.err },
			}
			out := doGraphQL(t, port, `{ task(id: "t9") { id } }`, nil)
			require.Len(t, out.Errors, 1)
			assert.Equal(t, tt.wantMsg, out.Errors[0].Message)
			assert.Equal(t, tt.wantCode, out.Errors[0].Extensions["code"])
		})
	}
}

func TestGraphQL_CreateTask(t *testing.T) {
	var got *task.CreateTaskRequest
	port := &mockTaskPort{
		createFunc: func(_ context.Context, req *task.CreateTaskRequest) (*domain.Task, error) {
			got = req
			created := sampleTask("t1", 0)
			created.Title = req.Title
			return created, nil
		},
	}

	out := doGraphQL(t, port,
		`mutation { createTask(input: {title: "Plan sprint", priority: "HIGH", assignedTo: "user-2"}) { id title version } }`, nil)
	require.Empty(t, out.Errors)
	assert.JSONEq(t, `{"id":"t1","title":"Plan sprint","version":0}`, string(out.Data["createTask"]))

	require.NotNil(t, got)
	assert.Equal(t, "user-1", got.CallerID)
	assert.Equal(t, "Plan sprint", got.Title)
	assert.Equal(t, "HIGH", *got.Priority)
	assert.Equal(t, "user-2", *got.AssignedTo)
	assert.Nil(t, got.Status)
}

func TestGraphQL_CreateTaskValidation(t *testing.T) {
	port := &mockTaskPort{
		createFunc: func(context.Context, *task.CreateTaskRequest) (*domain.Task, error) {
			return nil, &domain.ValidationError{Fields: map[string]string{"title": "Title must be between 3 and 100 characters"}}
		},
	}

	out := doGraphQL(t, port, `mutation { createTask(input: {title: "ab"}) { id } }`, nil)
	require.Len(t, out.Errors, 1)
	assert.Equal(t, "Validation failed", out.Errors[0].Message)
	assert.Equal(t, "validation_failed", out.Errors[0].Extensions["code"])
	fields, ok := out.Errors[0].Extensions["fields"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, fields, "title")
}

func TestGraphQL_UpdateTask(t *testing.T) {
	var got *task.UpdateTaskRequest
	port := &mockTaskPort{
		updateFunc: func(_ context.Context, req *task.UpdateTaskRequest) (*domain.Task, error) {
			got = req
			updated := sampleTask(req.TaskID, 4)
			updated.Status = domain.StatusInProgress
			return updated, nil
		},
	}

	out := doGraphQL(t, port, `mutation { updateTask(id: "t1", version: 3, input: {status: "IN_PROGRESS"}) { status version } }`, nil)
	require.Empty(t, out.Errors)
	assert.JSONEq(t, `{"status":"IN_PROGRESS","version":4}`, string(out.Data["updateTask"]))

	require.NotNil(t, got)
	assert.Equal(t, "t1", got.TaskID)
	assert.Equal(t, "user-1", got.CallerID)
	require.NotNil(t, got.ExpectedVersion)
	assert.Equal(t, int64(3), *got.ExpectedVersion)
	assert.Equal(t, "IN_PROGRESS", *got.Status)
	assert.Nil(t, got.AssignedTo, "an omitted assignee clears it on a full update")
}

func TestGraphQL_UpdateTaskPolicyViolation(t *testing.T) {
	port := &mockTaskPort{
		updateFunc: func(context.Context, *task.UpdateTaskRequest) (*domain.Task, error) {
			return nil, &domain.TransitionError{From: domain.StatusDone, To: domain.StatusInProgress}
		},
	}

	out := doGraphQL(t, port, `mutation { updateTask(id: "t1", input: {status: "IN_PROGRESS"}) { id } }`, nil)
	require.Len(t, out.Errors, 1)
	assert.Equal(t, "policy_violation", out.Errors[0].Extensions["code"])
	assert.Contains(t, out.Errors[0].Message, "DONE to IN_PROGRESS")
}

func TestGraphQL_DeleteTask(t *testing.T) {
	var got *task.DeleteTaskRequest
	port := &mockTaskPort{
		deleteFunc: func(_ context.Context, req *task.DeleteTaskRequest) error {
			got = req
			return nil
		},
	}

	out := doGraphQL(t, port, `mutation { deleteTask(id: "t1") }`, nil)
	require.Empty(t, out.Errors)
	assert.Equal(t, "true", string(out.Data["deleteTask"]))

	require.NotNil(t, got)
	assert.Equal(t, "t1", got.TaskID)
	assert.Equal(t, "user-1", got.CallerID)
	assert.Nil(t, got.ExpectedVersion)
}
