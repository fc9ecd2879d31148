package projects

import "time"

// Project is a WorkNest project as returned by the project service.
type Project struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	OwnerID     string    `json:"ownerId,omitempty"`
	CreatedAt   time.Time `json:"createdAt,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt,omitempty"`
}

// Stage is a kanban column within a project. Position orders columns left to
// right, starting at zero.
type Stage struct {
	ID        string `json:"id"`
	ProjectID string `json:"projectId"`
	Name      string `json:"name"`
	Position  int    `json:"position"`
}

// Task is a unit of work placed in a stage.
type Task struct {
	ID          string     `json:"id"`
	ProjectID   string     `json:"projectId"`
	StageID     string     `json:"stageId"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	AssigneeID  string     `json:"assigneeId,omitempty"`
	Priority    Priority   `json:"priority,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	CreatedAt   time.Time  `json:"createdAt,omitempty"`
	UpdatedAt   time.Time  `json:"updatedAt,omitempty"`
}

// Priority of a task.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
)

// CreateProjectRequest is the payload for CreateProject.
type CreateProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// UpdateProjectRequest is the payload for UpdateProject. Nil fields are left
// unchanged by the server.
type UpdateProjectRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

// CreateStageRequest is the payload for CreateStage.
type CreateStageRequest struct {
	Name string `json:"name"`
}

// CreateTaskRequest is the payload for CreateTask.
type CreateTaskRequest struct {
	StageID     string     `json:"stageId"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	AssigneeID  string     `json:"assigneeId,omitempty"`
	Priority    Priority   `json:"priority,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
}

// UpdateTaskRequest is the payload for UpdateTask. Nil fields are left
// unchanged by the server.
type UpdateTaskRequest struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	AssigneeID  *string    `json:"assigneeId,omitempty"`
	Priority    *Priority  `json:"priority,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
}

// TaskFilter narrows ListTasks. Zero values mean no filtering on that field.
type TaskFilter struct {
	StageID    string
	AssigneeID string
}
