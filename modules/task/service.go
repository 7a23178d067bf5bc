package task

import (
	"context"
	"fmt"
	"time"

	domain "github.com/example/kanban-tasks/domain/task"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/google/uuid"
)

// CreateInput carries the fields of a new task. Nil status and priority take defaults.
type CreateInput struct {
	Title       string
	Description string
	Status      *string
	Priority    *string
	AssignedTo  *string
}

// UpdateInput is a full update. Nil fields are left untouched, except AssignedTo:
// a nil or empty AssignedTo clears the assignment.
type UpdateInput struct {
	Title           *string
	Description     *string
	Status          *string
	Priority        *string
	AssignedTo      *string
	ExpectedVersion *int64
}

// SearchInput holds raw search parameters as received from a client.
type SearchInput struct {
	Title      string
	Status     string
	Priority   string
	AssignedTo string
	CreatedBy  string
	Page       int
	Size       int
	SortBy     string
	SortDir    string
}

// Service orchestrates the task lifecycle: load, validate, mutate, notify.
type Service struct {
	store    domain.Store
	mutator  *Mutator
	users    UserLookup
	notifier Notifier
	logger   types.Logger
	newID    func() string
	now      func() time.Time
}

// NewService creates a Service. notifier may be nil, in which case no events are sent.
func NewService(store domain.Store, users UserLookup, notifier Notifier, logger types.Logger) *Service {
	return &Service{
		store:    store,
		mutator:  NewMutator(store),
		users:    users,
		notifier: notifier,
		logger:   logger,
		newID:    func() string { return uuid.New().String() },
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Create validates in, resolves the caller and assignee, and stores a new task at version 0.
func (s *Service) Create(ctx context.Context, caller string, in CreateInput) (*domain.Task, error) {
	v := &domain.ValidationError{}
	domain.ValidateTitle(v, in.Title)
	domain.ValidateDescription(v, in.Description)

	status := domain.StatusTodo
	if in.Status != nil {
		if st, ok := domain.ValidateStatus(v, *in.Status); ok {
			status = st
		}
	}
	priority := domain.PriorityMed
	if in.Priority != nil {
		if p, ok := domain.ValidatePriority(v, *in.Priority); ok {
			priority = p
		}
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	if _, err := s.users.Resolve(ctx, caller); err != nil {
		return nil, s.fail("create", err)
	}
	assignee, err := s.resolveAssignee(ctx, in.AssignedTo)
	if err != nil {
		return nil, s.fail("create", err)
	}

	now := s.now()
	t := &domain.Task{
		ID:          s.newID(),
		Title:       in.Title,
		Description: in.Description,
		Status:      status,
		Priority:    priority,
		CreatedBy:   caller,
		AssignedTo:  assignee,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	saved, err := s.mutator.Create(ctx, t)
	if err != nil {
		return nil, s.fail("create", err)
	}

	s.logger.Info("Task created", "task_id", saved.ID, "created_by", caller)
	s.notify(ctx, domain.EventCreated, saved, saved.ID, saved.Version, caller)
	return saved, nil
}

// Get returns the task with the given ID.
func (s *Service) Get(ctx context.Context, id string) (*domain.Task, error) {
	t, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, s.fail("get", err)
	}
	return t, nil
}

// Update performs a full update of the task.
func (s *Service) Update(ctx context.Context, caller, id string, in UpdateInput) (*domain.Task, error) {
	current, err := freshGet(ctx, s.store, id)
	if err != nil {
		return nil, s.fail("update", err)
	}

	v := &domain.ValidationError{}
	if in.Title != nil {
		domain.ValidateTitle(v, *in.Title)
	}
	if in.Description != nil {
		domain.ValidateDescription(v, *in.Description)
	}
	var status *domain.Status
	if in.Status != nil {
		if st, ok := domain.ValidateStatus(v, *in.Status); ok {
			status = &st
		}
	}
	var priority *domain.Priority
	if in.Priority != nil {
		if p, ok := domain.ValidatePriority(v, *in.Priority); ok {
			priority = &p
		}
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}
	// checked again inside the mutation against the re-read state
	if status != nil {
		if err := domain.CheckTransition(current.Status, *status); err != nil {
			return nil, err
		}
	}

	assignee, err := s.resolveAssignee(ctx, in.AssignedTo)
	if err != nil {
		return nil, s.fail("update", err)
	}

	expected := current.Version
	if in.ExpectedVersion != nil {
		expected = *in.ExpectedVersion
	}

	saved, err := s.mutator.Update(ctx, id, expected, func(t *domain.Task) error {
		if status != nil {
			if err := domain.CheckTransition(t.Status, *status); err != nil {
				return err
			}
			t.Status = *status
		}
		if in.Title != nil {
			t.Title = *in.Title
		}
		if in.Description != nil {
			t.Description = *in.Description
		}
		if priority != nil {
			t.Priority = *priority
		}
		t.AssignedTo = assignee
		return nil
	})
	if err != nil {
		return nil, s.fail("update", err)
	}

	s.logger.Info("Task updated", "task_id", id, "version", saved.Version)
	s.notify(ctx, domain.EventUpdated, saved, saved.ID, saved.Version, caller)
	return saved, nil
}

// Patch applies the present fields of p. Absent fields are untouched.
func (s *Service) Patch(ctx context.Context, caller, id string, p domain.Patch) (*domain.Task, error) {
	current, err := freshGet(ctx, s.store, id)
	if err != nil {
		return nil, s.fail("patch", err)
	}

	v := &domain.ValidationError{}
	title, hasTitle := p.Title.Get()
	if hasTitle {
		domain.ValidateTitle(v, title)
	}
	if desc, ok := p.Description.Get(); ok {
		domain.ValidateDescription(v, desc)
	}
	var status *domain.Status
	if raw, ok := p.Status.Get(); ok {
		if st, ok := domain.ValidateStatus(v, raw); ok {
			status = &st
		}
	}
	var priority *domain.Priority
	if raw, ok := p.Priority.Get(); ok {
		if pr, ok := domain.ValidatePriority(v, raw); ok {
			priority = &pr
		}
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}
	if status != nil {
		if err := domain.CheckTransition(current.Status, *status); err != nil {
			return nil, err
		}
	}

	var assignee *string
	if raw, ok := p.AssignedTo.Get(); ok {
		assignee, err = s.resolveAssignee(ctx, &raw)
		if err != nil {
			return nil, s.fail("patch", err)
		}
	}

	expected := current.Version
	if ver, ok := p.Version.Get(); ok {
		expected = ver
	}

	saved, err := s.mutator.Update(ctx, id, expected, func(t *domain.Task) error {
		if status != nil {
			if err := domain.CheckTransition(t.Status, *status); err != nil {
				return err
			}
			t.Status = *status
		}
		if hasTitle {
			t.Title = title
		}
		if !p.Description.IsAbsent() {
			desc, _ := p.Description.Get()
			t.Description = desc
		}
		if priority != nil {
			t.Priority = *priority
		}
		if !p.AssignedTo.IsAbsent() {
			t.AssignedTo = assignee
		}
		return nil
	})
	if err != nil {
		return nil, s.fail("patch", err)
	}

	s.logger.Info("Task patched", "task_id", id, "version", saved.Version)
	s.notify(ctx, domain.EventUpdated, saved, saved.ID, saved.Version, caller)
	return saved, nil
}

// Delete removes the task. A nil expectedVersion uses the currently stored version.
func (s *Service) Delete(ctx context.Context, caller, id string, expectedVersion *int64) error {
	current, err := freshGet(ctx, s.store, id)
	if err != nil {
		return s.fail("delete", err)
	}

	expected := current.Version
	if expectedVersion != nil {
		expected = *expectedVersion
	}

	removed, err := s.mutator.Delete(ctx, id, expected)
	if err != nil {
		return s.fail("delete", err)
	}

	s.logger.Info("Task deleted", "task_id", id)
	s.notify(ctx, domain.EventDeleted, nil, id, removed.Version, caller)
	return nil
}

// Search runs a filtered, sorted and paged query.
func (s *Service) Search(ctx context.Context, in SearchInput) (domain.Page[*domain.Task], error) {
	v := &domain.ValidationError{}
	filter := domain.Filter{
		Title:     in.Title,
		Assignee:  domain.ParseAssigneeFilter(in.AssignedTo),
		CreatedBy: in.CreatedBy,
	}
	if in.Status != "" {
		filter.Status, _ = domain.ValidateStatus(v, in.Status)
	}
	if in.Priority != "" {
		filter.Priority, _ = domain.ValidatePriority(v, in.Priority)
	}
	if err := v.OrNil(); err != nil {
		return domain.Page[*domain.Task]{}, err
	}

	return s.query(ctx, "search", domain.Query{
		Filter: filter,
		Sort:   domain.NormalizeSort(in.SortBy, in.SortDir),
		Page:   domain.NewPageRequest(in.Page, in.Size),
	})
}

// ListAssignedTo pages through the tasks assigned to userID, which must exist.
func (s *Service) ListAssignedTo(ctx context.Context, userID string, page domain.PageRequest, sort domain.Sort) (domain.Page[*domain.Task], error) {
	if _, err := s.users.Resolve(ctx, userID); err != nil {
		return domain.Page[*domain.Task]{}, s.fail("list assigned", err)
	}
	return s.query(ctx, "list assigned", domain.Query{
		Filter: domain.Filter{Assignee: domain.AssigneeFilter{Mode: domain.AssigneeUser, UserID: userID}},
		Sort:   sort,
		Page:   page,
	})
}

// ListCreatedBy pages through the tasks created by userID, which must exist.
func (s *Service) ListCreatedBy(ctx context.Context, userID string, page domain.PageRequest, sort domain.Sort) (domain.Page[*domain.Task], error) {
	if _, err := s.users.Resolve(ctx, userID); err != nil {
		return domain.Page[*domain.Task]{}, s.fail("list created", err)
	}
	return s.query(ctx, "list created", domain.Query{
		Filter: domain.Filter{CreatedBy: userID},
		Sort:   sort,
		Page:   page,
	})
}

func (s *Service) query(ctx context.Context, op string, q domain.Query) (domain.Page[*domain.Task], error) {
	if q.Sort.Field == "" {
		q.Sort = domain.DefaultSort
	}
	q.Page = domain.NewPageRequest(q.Page.Page, q.Page.Size)

	page, err := s.store.Query(ctx, q)
	if err != nil {
		return domain.Page[*domain.Task]{}, s.fail(op, err)
	}
	return page, nil
}

// resolveAssignee returns nil for a nil or empty reference and a NotFound error when
// the user does not exist.
func (s *Service) resolveAssignee(ctx context.Context, ref *string) (*string, error) {
	if ref == nil || *ref == "" {
		return nil, nil
	}
	u, err := s.users.Resolve(ctx, *ref)
	if err != nil {
		return nil, err
	}
	id := u.ID
	return &id, nil
}

func (s *Service) notify(ctx context.Context, kind domain.EventKind, t *domain.Task, id string, version int64, actor string) {
	if s.notifier == nil {
		return
	}
	s.notifier.Dispatch(ctx, domain.Event{
		Kind:       kind,
		TaskID:     id,
		Version:    version,
		Task:       t.Clone(),
		ActorID:    actor,
		OccurredAt: s.now(),
	})
}

// fail passes classified errors through and logs anything else as an internal failure.
func (s *Service) fail(op string, err error) error {
	if domain.IsClassified(err) {
		return err
	}
	s.logger.WithError(err).Error("Task operation failed", "operation", op)
	return fmt.Errorf("failed to %s task: %w", op, err)
}
