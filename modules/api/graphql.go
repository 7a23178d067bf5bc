package api

import (
	"context"
	"errors"
	"fmt"
	"strings"

	domain "github.com/example/kanban-tasks/domain/task"
	"github.com/example/kanban-tasks/modules/task"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"
)

const defaultGraphQLPageSize = 10

// GraphQLRequest is the POST body of /api/v1/graphql.
type GraphQLRequest struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
}

// GraphQLHandler serves the task schema over TaskPort. Mutations run as the
// authenticated caller, with the same semantics as the REST routes.
type GraphQLHandler struct {
	schema graphql.Schema
	tasks  task.TaskPort
	logger types.Logger
}

type callerKey struct{}

// graphQLError carries the error code into the response's extensions.
type graphQLError struct {
	code    string
	message string
	fields  map[string]string
}

func (e *graphQLError) Error() string { return e.message }

func (e *graphQLError) Extensions() map[string]any {
	ext := map[string]any{"code": e.code}
	if len(e.fields) > 0 {
		ext["fields"] = e.fields
	}
	return ext
}

// NewGraphQLHandler builds the schema. It only fails on a malformed schema definition.
func NewGraphQLHandler(tasks task.TaskPort, logger types.Logger) (*GraphQLHandler, error) {
	h := &GraphQLHandler{tasks: tasks, logger: logger}

	schema, err := graphql.NewSchema(h.schemaConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to build task schema: %w", err)
	}
	h.schema = schema
	return h, nil
}

// Serve executes one GraphQL request. Resolver errors are reported in the body
// with status 200.
func (h *GraphQLHandler) Serve(c *fiber.Ctx) error {
	var req GraphQLRequest
	if err := c.BodyParser(&req); err != nil || strings.TrimSpace(req.Query) == "" {
		return writeError(c, fiber.StatusBadRequest, "bad_request", "query is required", nil)
	}

	ctx := context.WithValue(c.UserContext(), callerKey{}, callerID(c))
	result := graphql.Do(graphql.Params{
		Schema:         h.schema,
		RequestString:  req.Query,
		VariableValues: req.Variables,
		OperationName:  req.OperationName,
		Context:        ctx,
	})
	return c.JSON(result)
}

func (h *GraphQLHandler) schemaConfig() graphql.SchemaConfig {
	taskType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Task",
		Fields: graphql.Fields{
			"id":          taskField(graphql.NewNonNull(graphql.ID), func(t *domain.Task) any { return t.ID }),
			"title":       taskField(graphql.NewNonNull(graphql.String), func(t *domain.Task) any { return t.Title }),
			"description": taskField(graphql.String, func(t *domain.Task) any { return t.Description }),
			"status":      taskField(graphql.NewNonNull(graphql.String), func(t *domain.Task) any { return string(t.Status) }),
			"priority":    taskField(graphql.NewNonNull(graphql.String), func(t *domain.Task) any { return string(t.Priority) }),
			"createdBy":   taskField(graphql.NewNonNull(graphql.String), func(t *domain.Task) any { return t.CreatedBy }),
			"assignedTo": taskField(graphql.String, func(t *domain.Task) any {
				if !t.IsAssigned() {
					return nil
				}
				return t.Assignee()
			}),
			"createdAt": taskField(graphql.NewNonNull(graphql.DateTime), func(t *domain.Task) any { return t.CreatedAt }),
			"updatedAt": taskField(graphql.NewNonNull(graphql.DateTime), func(t *domain.Task) any { return t.UpdatedAt }),
			"version":   taskField(graphql.NewNonNull(graphql.Int), func(t *domain.Task) any { return int(t.Version) }),
		},
	})

	pageType := graphql.NewObject(graphql.ObjectConfig{
		Name: "TaskPage",
		Fields: graphql.Fields{
			"items":      pageField(graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(taskType))), func(p *domain.Page[*domain.Task]) any { return p.Items }),
			"total":      pageField(graphql.NewNonNull(graphql.Int), func(p *domain.Page[*domain.Task]) any { return int(p.Total) }),
			"page":       pageField(graphql.NewNonNull(graphql.Int), func(p *domain.Page[*domain.Task]) any { return p.Page }),
			"size":       pageField(graphql.NewNonNull(graphql.Int), func(p *domain.Page[*domain.Task]) any { return p.Size }),
			"totalPages": pageField(graphql.NewNonNull(graphql.Int), func(p *domain.Page[*domain.Task]) any { return p.TotalPages }),
		},
	})

	taskInput := graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "TaskInput",
		Fields: graphql.InputObjectConfigFieldMap{
			"title":       &graphql.InputObjectFieldConfig{Type: graphql.String},
			"description": &graphql.InputObjectFieldConfig{Type: graphql.String},
			"status":      &graphql.InputObjectFieldConfig{Type: graphql.String},
			"priority":    &graphql.InputObjectFieldConfig{Type: graphql.String},
			"assignedTo":  &graphql.InputObjectFieldConfig{Type: graphql.String},
		},
	})

	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"tasks": &graphql.Field{
				Type: graphql.NewNonNull(pageType),
				Args: graphql.FieldConfigArgument{
					"page":       &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
					"size":       &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: defaultGraphQLPageSize},
					"title":      &graphql.ArgumentConfig{Type: graphql.String},
					"status":     &graphql.ArgumentConfig{Type: graphql.String},
					"priority":   &graphql.ArgumentConfig{Type: graphql.String},
					"assignedTo": &graphql.ArgumentConfig{Type: graphql.String},
					"createdBy":  &graphql.ArgumentConfig{Type: graphql.String},
					"sortBy":     &graphql.ArgumentConfig{Type: graphql.String},
					"sortDir":    &graphql.ArgumentConfig{Type: graphql.String},
				},
				Resolve: h.resolveTasks,
			},
			"task": &graphql.Field{
				Type: taskType,
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: h.resolveTask,
			},
		},
	})

	mutation := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"createTask": &graphql.Field{
				Type: graphql.NewNonNull(taskType),
				Args: graphql.FieldConfigArgument{
					"input": &graphql.ArgumentConfig{Type: graphql.NewNonNull(taskInput)},
				},
				Resolve: h.resolveCreateTask,
			},
			"updateTask": &graphql.Field{
				Type: graphql.NewNonNull(taskType),
				Args: graphql.FieldConfigArgument{
					"id":      &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
					"input":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(taskInput)},
					"version": &graphql.ArgumentConfig{Type: graphql.Int},
				},
				Resolve: h.resolveUpdateTask,
			},
			"deleteTask": &graphql.Field{
				Type: graphql.NewNonNull(graphql.Boolean),
				Args: graphql.FieldConfigArgument{
					"id":      &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
					"version": &graphql.ArgumentConfig{Type: graphql.Int},
				},
				Resolve: h.resolveDeleteTask,
			},
		},
	})

	return graphql.SchemaConfig{Query: query, Mutation: mutation}
}

func (h *GraphQLHandler) resolveTasks(p graphql.ResolveParams) (any, error) {
	page, err := h.tasks.SearchTasks(p.Context, &task.SearchTasksRequest{
		Title:      stringArg(p.Args, "title"),
		Status:     stringArg(p.Args, "status"),
		Priority:   stringArg(p.Args, "priority"),
		AssignedTo: stringArg(p.Args, "assignedTo"),
		CreatedBy:  stringArg(p.Args, "createdBy"),
		Page:       intArg(p.Args, "page"),
		Size:       intArg(p.Args, "size"),
		SortBy:     stringArg(p.Args, "sortBy"),
		SortDir:    stringArg(p.Args, "sortDir"),
	})
	if err != nil {
		return nil, h.resolverError("tasks", err)
	}
	return page, nil
}

func (h *GraphQLHandler) resolveTask(p graphql.ResolveParams) (any, error) {
	t, err := h.tasks.GetTask(p.Context, stringArg(p.Args, "id"))
	if err != nil {
		return nil, h.resolverError("task", err)
	}
	return t, nil
}

func (h *GraphQLHandler) resolveCreateTask(p graphql.ResolveParams) (any, error) {
	in := inputArg(p.Args)
	t, err := h.tasks.CreateTask(p.Context, &task.CreateTaskRequest{
		CallerID:    caller(p.Context),
		Title:       stringArg(in, "title"),
		Description: stringArg(in, "description"),
		Status:      optionalStringArg(in, "status"),
		Priority:    optionalStringArg(in, "priority"),
		AssignedTo:  optionalStringArg(in, "assignedTo"),
	})
	if err != nil {
		return nil, h.resolverError("createTask", err)
	}
	return t, nil
}

// resolveUpdateTask is a full update: an omitted assignee clears the assignment.
func (h *GraphQLHandler) resolveUpdateTask(p graphql.ResolveParams) (any, error) {
	in := inputArg(p.Args)
	t, err := h.tasks.UpdateTask(p.Context, &task.UpdateTaskRequest{
		CallerID:        caller(p.Context),
		TaskID:          stringArg(p.Args, "id"),
		Title:           optionalStringArg(in, "title"),
		Description:     optionalStringArg(in, "description"),
		Status:          optionalStringArg(in, "status"),
		Priority:        optionalStringArg(in, "priority"),
		AssignedTo:      optionalStringArg(in, "assignedTo"),
		ExpectedVersion: versionArg(p.Args),
	})
	if err != nil {
		return nil, h.resolverError("updateTask", err)
	}
	return t, nil
}

func (h *GraphQLHandler) resolveDeleteTask(p graphql.ResolveParams) (any, error) {
	err := h.tasks.DeleteTask(p.Context, &task.DeleteTaskRequest{
		CallerID:        caller(p.Context),
		TaskID:          stringArg(p.Args, "id"),
		ExpectedVersion: versionArg(p.Args),
	})
	if err != nil {
		return nil, h.resolverError("deleteTask", err)
	}
	return true, nil
}

// resolverError maps the task error taxonomy the same way writeTaskError does.
func (h *GraphQLHandler) resolverError(op string, err error) error {
	switch kind := domain.Kind(err); kind {
	case "not_found", "policy_violation", "illegal_operation":
		return &graphQLError{code: kind, message: err.Error()}
	case "version_conflict":
		return &graphQLError{code: kind, message: conflictMessage}
	case "bad_input":
		var verr *domain.ValidationError
		var fields map[string]string
		if errors.As(err, &verr) {
			fields = verr.Fields
		}
		return &graphQLError{code: "validation_failed", message: "Validation failed", fields: fields}
	}

	h.logger.Error("GraphQL request failed", "operation", op, "error", err)
	return &graphQLError{code: "internal_error", message: internalMessage}
}

func taskField(typ graphql.Output, get func(*domain.Task) any) *graphql.Field {
	return &graphql.Field{
		Type: typ,
		Resolve: func(p graphql.ResolveParams) (any, error) {
			t, ok := p.Source.(*domain.Task)
			if !ok || t == nil {
				return nil, nil
			}
			return get(t), nil
		},
	}
}

func pageField(typ graphql.Output, get func(*domain.Page[*domain.Task]) any) *graphql.Field {
	return &graphql.Field{
		Type: typ,
		Resolve: func(p graphql.ResolveParams) (any, error) {
			page, ok := p.Source.(*domain.Page[*domain.Task])
			if !ok || page == nil {
				return nil, nil
			}
			return get(page), nil
		},
	}
}

func caller(ctx context.Context) string {
	id, _ := ctx.Value(callerKey{}).(string)
	return id
}

func inputArg(args map[string]any) map[string]any {
	in, _ := args["input"].(map[string]any)
	return in
}

func stringArg(args map[string]any, name string) string {
	s, _ := args[name].(string)
	return s
}

func optionalStringArg(args map[string]any, name string) *string {
	s, ok := args[name].(string)
	if !ok {
		return nil
	}
	return &s
}

func intArg(args map[string]any, name string) int {
	n, _ := args[name].(int)
	return n
}

func versionArg(args map[string]any) *int64 {
	n, ok := args["version"].(int)
	if !ok {
		return nil
	}
	v := int64(n)
	return &v
}
