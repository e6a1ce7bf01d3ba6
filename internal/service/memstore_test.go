package service

import (
	"context"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/appeal-service/internal/domain"
	"github.com/spec-kit/appeal-service/internal/events"
	"github.com/spec-kit/appeal-service/internal/repository"
	apperrors "github.com/spec-kit/appeal-service/pkg/util"
)

// captureDispatcher records published events for assertions.
type captureDispatcher struct {
	published []events.Event
}

func (d *captureDispatcher) Publish(ctx context.Context, event events.Event) error {
	d.published = append(d.published, event)
	return nil
}

func (d *captureDispatcher) Subscribe(eventType events.EventType, handler events.EventHandler) {}

func (d *captureDispatcher) byType(t events.EventType) []events.Event {
	var result []events.Event
	for _, event := range d.published {
		if event.Type == t {
			result = append(result, event)
		}
	}
	return result
}

// memStore is an in-memory Store backing for service tests. It mirrors
// the pgx repositories closely enough to exercise the orchestration
// paths, including the optimistic version check on workload saves.
type memStore struct {
	appeals       map[int64]domain.Appeal
	nextAppealID  int64
	messages      []domain.AppealMessage
	nextMessageID int64
	workloads     map[int64]domain.AdminWorkload
	expertise     map[expertiseKey]domain.AdminCategoryExpertise
	admins        map[int64]domain.Admin
	nextAdminID   int64
	history       []domain.AppealHistory
	nextHistoryID int64
}

type expertiseKey struct {
	adminID  int64
	category domain.AppealCategory
}

func newMemStore() *memStore {
	return &memStore{
		appeals:   make(map[int64]domain.Appeal),
		workloads: make(map[int64]domain.AdminWorkload),
		expertise: make(map[expertiseKey]domain.AdminCategoryExpertise),
		admins:    make(map[int64]domain.Admin),
	}
}

func (m *memStore) store() *repository.Store {
	return &repository.Store{
		Appeals:   &memAppealRepo{m},
		Messages:  &memMessageRepo{m},
		Workloads: &memWorkloadRepo{m},
		Expertise: &memExpertiseRepo{m},
		Admins:    &memAdminRepo{m},
		History:   &memHistoryRepo{m},
	}
}

// memUnitOfWork hands every Do the same store. A snapshot taken before
// fn restores the store on error, mimicking a rolled-back transaction.
type memUnitOfWork struct {
	m *memStore
}

func (u *memUnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, store *repository.Store) error) error {
	snapshot := u.m.clone()
	if err := fn(ctx, u.m.store()); err != nil {
		*u.m = *snapshot
		return err
	}
	return nil
}

func (m *memStore) clone() *memStore {
	c := newMemStore()
	c.nextAppealID = m.nextAppealID
	c.nextMessageID = m.nextMessageID
	c.nextAdminID = m.nextAdminID
	c.nextHistoryID = m.nextHistoryID
	for k, v := range m.appeals {
		c.appeals[k] = v
	}
	for k, v := range m.workloads {
		c.workloads[k] = v
	}
	for k, v := range m.expertise {
		c.expertise[k] = v
	}
	for k, v := range m.admins {
		c.admins[k] = v
	}
	c.messages = append([]domain.AppealMessage(nil), m.messages...)
	c.history = append([]domain.AppealHistory(nil), m.history...)
	return c
}

func newMemUnitOfWork() (*memStore, repository.UnitOfWork) {
	m := newMemStore()
	return m, &memUnitOfWork{m: m}
}

type memAppealRepo struct{ m *memStore }

func (r *memAppealRepo) Create(ctx context.Context, appeal *domain.Appeal) error {
	r.m.nextAppealID++
	appeal.ID = r.m.nextAppealID
	r.m.appeals[appeal.ID] = *appeal
	return nil
}

func (r *memAppealRepo) Update(ctx context.Context, appeal *domain.Appeal) error {
	if _, ok := r.m.appeals[appeal.ID]; !ok {
		return pgx.ErrNoRows
	}
	r.m.appeals[appeal.ID] = *appeal
	return nil
}

func (r *memAppealRepo) GetByID(ctx context.Context, id int64) (*domain.Appeal, error) {
	appeal, ok := r.m.appeals[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &appeal, nil
}

func (r *memAppealRepo) ListWithFilter(ctx context.Context, filter repository.AppealFilter) ([]domain.Appeal, error) {
	var result []domain.Appeal
	for _, appeal := range r.m.appeals {
		if filter.RequesterID != nil && appeal.RequesterID != *filter.RequesterID {
			continue
		}
		if filter.AdminID != nil && (appeal.AssignedAdminID == nil || *appeal.AssignedAdminID != *filter.AdminID) {
			continue
		}
		if filter.Unassigned && appeal.AssignedAdminID != nil {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, appeal.Status) {
			continue
		}
		if len(filter.Categories) > 0 && !containsCategory(filter.Categories, appeal.Category) {
			continue
		}
		result = append(result, appeal)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return paginate(result, filter.Limit, filter.Offset), nil
}

func (r *memAppealRepo) ListOverdue(ctx context.Context, cutoff time.Time, limit int) ([]domain.Appeal, error) {
	var result []domain.Appeal
	for _, appeal := range r.m.appeals {
		if appeal.Status == domain.AppealStatusClosed || appeal.Status == domain.AppealStatusEscalated {
			continue
		}
		if !appeal.UpdatedAt.Before(cutoff) {
			continue
		}
		result = append(result, appeal)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].UpdatedAt.Before(result[j].UpdatedAt) })
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r *memAppealRepo) CountActiveByCategory(ctx context.Context) (map[domain.AppealCategory]int, error) {
	counts := make(map[domain.AppealCategory]int)
	for _, appeal := range r.m.appeals {
		if appeal.Status == domain.AppealStatusClosed {
			continue
		}
		counts[appeal.Category]++
	}
	return counts, nil
}

type memMessageRepo struct{ m *memStore }

func (r *memMessageRepo) Create(ctx context.Context, msg *domain.AppealMessage) error {
	r.m.nextMessageID++
	msg.ID = r.m.nextMessageID
	r.m.messages = append(r.m.messages, *msg)
	return nil
}

func (r *memMessageRepo) ListByAppeal(ctx context.Context, appealID int64) ([]domain.AppealMessage, error) {
	var result []domain.AppealMessage
	for _, msg := range r.m.messages {
		if msg.AppealID == appealID {
			result = append(result, msg)
		}
	}
	return result, nil
}

func (r *memMessageRepo) MarkRead(ctx context.Context, appealID int64, fromAdmin bool, now time.Time) (int64, error) {
	var count int64
	for i := range r.m.messages {
		msg := &r.m.messages[i]
		if msg.AppealID != appealID || msg.FromAdmin != fromAdmin || msg.Read {
			continue
		}
		msg.MarkRead(now)
		count++
	}
	return count, nil
}

type memWorkloadRepo struct{ m *memStore }

func (r *memWorkloadRepo) Create(ctx context.Context, workload *domain.AdminWorkload) error {
	workload.Version = 0
	r.m.workloads[workload.AdminID] = *workload
	return nil
}

func (r *memWorkloadRepo) Save(ctx context.Context, workload *domain.AdminWorkload) error {
	stored, ok := r.m.workloads[workload.AdminID]
	if !ok || stored.Version != workload.Version {
		return apperrors.NewConflict("workload version conflict", map[string]any{
			"admin_id": workload.AdminID,
			"version":  workload.Version,
		})
	}
	workload.Version++
	r.m.workloads[workload.AdminID] = *workload
	return nil
}

func (r *memWorkloadRepo) GetByAdminID(ctx context.Context, adminID int64) (*domain.AdminWorkload, error) {
	workload, ok := r.m.workloads[adminID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &workload, nil
}

func (r *memWorkloadRepo) ListAvailable(ctx context.Context) ([]domain.AdminWorkload, error) {
	var result []domain.AdminWorkload
	for _, workload := range r.m.workloads {
		if workload.Available {
			result = append(result, workload)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].ActiveAppeals != result[j].ActiveAppeals {
			return result[i].ActiveAppeals < result[j].ActiveAppeals
		}
		return result[i].LastActivityAt.After(result[j].LastActivityAt)
	})
	return result, nil
}

func (r *memWorkloadRepo) ListAll(ctx context.Context) ([]domain.AdminWorkload, error) {
	var result []domain.AdminWorkload
	for _, workload := range r.m.workloads {
		result = append(result, workload)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].AdminID < result[j].AdminID })
	return result, nil
}

type memExpertiseRepo struct{ m *memStore }

func (r *memExpertiseRepo) Create(ctx context.Context, expertise *domain.AdminCategoryExpertise) error {
	r.m.expertise[expertiseKey{expertise.AdminID, expertise.Category}] = *expertise
	return nil
}

func (r *memExpertiseRepo) Save(ctx context.Context, expertise *domain.AdminCategoryExpertise) error {
	key := expertiseKey{expertise.AdminID, expertise.Category}
	if _, ok := r.m.expertise[key]; !ok {
		return pgx.ErrNoRows
	}
	r.m.expertise[key] = *expertise
	return nil
}

func (r *memExpertiseRepo) GetByAdminAndCategory(ctx context.Context, adminID int64, category domain.AppealCategory) (*domain.AdminCategoryExpertise, error) {
	expertise, ok := r.m.expertise[expertiseKey{adminID, category}]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &expertise, nil
}

func (r *memExpertiseRepo) ListByAdmin(ctx context.Context, adminID int64) ([]domain.AdminCategoryExpertise, error) {
	var result []domain.AdminCategoryExpertise
	for key, expertise := range r.m.expertise {
		if key.adminID == adminID {
			result = append(result, expertise)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Category < result[j].Category })
	return result, nil
}

func (r *memExpertiseRepo) ListByCategory(ctx context.Context, category domain.AppealCategory) ([]domain.AdminCategoryExpertise, error) {
	var result []domain.AdminCategoryExpertise
	for key, expertise := range r.m.expertise {
		if key.category == category {
			result = append(result, expertise)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].AdminID < result[j].AdminID })
	return result, nil
}

type memAdminRepo struct{ m *memStore }

func (r *memAdminRepo) Create(ctx context.Context, admin *domain.Admin) error {
	r.m.nextAdminID++
	admin.ID = r.m.nextAdminID
	r.m.admins[admin.ID] = *admin
	return nil
}

func (r *memAdminRepo) Update(ctx context.Context, admin *domain.Admin) error {
	if _, ok := r.m.admins[admin.ID]; !ok {
		return pgx.ErrNoRows
	}
	r.m.admins[admin.ID] = *admin
	return nil
}

func (r *memAdminRepo) GetByID(ctx context.Context, id int64) (*domain.Admin, error) {
	admin, ok := r.m.admins[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &admin, nil
}

func (r *memAdminRepo) GetByEmail(ctx context.Context, email string) (*domain.Admin, error) {
	for _, admin := range r.m.admins {
		if admin.Email == email {
			found := admin
			return &found, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memAdminRepo) ListActive(ctx context.Context) ([]domain.Admin, error) {
	var result []domain.Admin
	for _, admin := range r.m.admins {
		if admin.Active {
			result = append(result, admin)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

type memHistoryRepo struct{ m *memStore }

func (r *memHistoryRepo) Create(ctx context.Context, entry *domain.AppealHistory) error {
	r.m.nextHistoryID++
	entry.ID = r.m.nextHistoryID
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	r.m.history = append(r.m.history, *entry)
	return nil
}

func (r *memHistoryRepo) ListByAppeal(ctx context.Context, appealID int64, limit, offset int) ([]domain.AppealHistory, error) {
	var result []domain.AppealHistory
	for _, entry := range r.m.history {
		if entry.AppealID == appealID {
			result = append(result, entry)
		}
	}
	return paginate(result, limit, offset), nil
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}

func containsStatus(statuses []domain.AppealStatus, status domain.AppealStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

func containsCategory(categories []domain.AppealCategory, category domain.AppealCategory) bool {
	for _, c := range categories {
		if c == category {
			return true
		}
	}
	return false
}
