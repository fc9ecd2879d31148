package projects_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/worknest/worknest-go/apierror"
	"github.com/worknest/worknest-go/internal/utils"
	"github.com/worknest/worknest-go/projects"
	"github.com/worknest/worknest-go/users"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *projects.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := projects.NewClient(server.URL, projects.StaticToken("t1"))
	require.NoError(t, err)
	return client
}

func TestNewClient_Validation(t *testing.T) {
	_, err := projects.NewClient("", projects.StaticToken("t"))
	require.Error(t, err)

	_, err = projects.NewClient("http://localhost", nil)
	require.Error(t, err)
}

func TestListProjects_PaginationAndAuth(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/projects", r.URL.Path)
		assert.Equal(t, "Bearer t1", r.Header.Get("Authorization"))
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "10", r.URL.Query().Get("size"))

		_ = json.NewEncoder(w).Encode(projects.Page[projects.Project]{
			Items:      []projects.Project{{ID: "p1", Name: "Website"}},
			TotalItems: 11,
			TotalPages: 2,
			Page:       2,
			Size:       10,
		})
	})

	page, err := client.ListProjects(context.Background(), projects.PageRequest{Page: 2, Size: 10})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Website", page.Items[0].Name)
	assert.False(t, page.HasNext())
	assert.True(t, page.HasPrev())
}

func TestCreateProject(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/projects", r.URL.Path)

		var req projects.CreateProjectRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Website", req.Name)

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(projects.Project{ID: "p1", Name: req.Name})
	})

	p, err := client.CreateProject(context.Background(), projects.CreateProjectRequest{Name: "Website"})
	require.NoError(t, err)
	assert.Equal(t, "p1", p.ID)
}

func TestUpdateProject_PartialBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/projects/p1", r.URL.Path)

		var raw map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		assert.Equal(t, map[string]any{"name": "Renamed"}, raw, "unset fields must be omitted")

		_ = json.NewEncoder(w).Encode(projects.Project{ID: "p1", Name: "Renamed"})
	})

	p, err := client.UpdateProject(context.Background(), "p1", projects.UpdateProjectRequest{
		Name: utils.Ptr("Renamed"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", p.Name)
}

func TestListTasks_Filters(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/projects/p1/tasks", r.URL.Path)
		assert.Equal(t, "s1", r.URL.Query().Get("stageId"))
		assert.Equal(t, "u1", r.URL.Query().Get("assigneeId"))
		assert.Equal(t, "1", r.URL.Query().Get("page"))

		_ = json.NewEncoder(w).Encode(projects.Page[projects.Task]{
			Items: []projects.Task{{ID: "t1", Title: "Fix login", StageID: "s1"}},
		})
	})

	page, err := client.ListTasks(context.Background(), "p1",
		projects.TaskFilter{StageID: "s1", AssigneeID: "u1"},
		projects.PageRequest{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Fix login", page.Items[0].Title)
}

func TestMoveTask(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/tasks/t1/stage", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "s2", body["stageId"])

		_ = json.NewEncoder(w).Encode(projects.Task{ID: "t1", StageID: "s2"})
	})

	task, err := client.MoveTask(context.Background(), "t1", "s2")
	require.NoError(t, err)
	assert.Equal(t, "s2", task.StageID)
}

func TestMoveStage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/stages/s1/position", r.URL.Path)

		var body map[string]int
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, 2, body["position"])

		_ = json.NewEncoder(w).Encode(projects.Stage{ID: "s1", Position: 2})
	})

	stage, err := client.MoveStage(context.Background(), "s1", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, stage.Position)
}

func TestSetUserRole(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/u1/role", r.URL.Path)

		var body map[string]users.RoleType
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, users.RoleAdmin, body["role"])

		_ = json.NewEncoder(w).Encode(users.User{ID: "u1", Role: users.RoleAdmin})
	})

	u, err := client.SetUserRole(context.Background(), "u1", users.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, users.RoleAdmin, u.Role)
}

func TestSetUserRole_RejectsUnknownRole(t *testing.T) {
	client := newTestClient(t, func(http.ResponseWriter, *http.Request) {
		t.Fatal("no request expected")
	})

	_, err := client.SetUserRole(context.Background(), "u1", "ROLE_WIZARD")
	require.Error(t, err)
}

func TestForbidden_MapsToUnauthorizedKind(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message":"managers only"}`))
	})

	_, err := client.CreateProject(context.Background(), projects.CreateProjectRequest{Name: "x"})
	require.Error(t, err)
	assert.True(t, apierror.IsUnauthorized(err))
	assert.Equal(t, "managers only", apierror.MessageOf(err))
}

func TestDeleteProject_NoContent(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/projects/p1", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, client.DeleteProject(context.Background(), "p1"))
}
