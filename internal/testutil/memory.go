// Package testutil provides in-memory repositories and fakes of the
// external providers for service and API tests.
package testutil

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ettore-crm/internal/models"
	"github.com/ettore-crm/internal/storage"
	"github.com/ettore-crm/internal/types"
)

// MemoryStore holds every table in memory. Repository views share it so
// joins (drafts with leads) behave like the database. Fail* fields inject
// errors into single operations.
type MemoryStore struct {
	mu sync.Mutex

	users         map[string]*models.User
	settings      map[string]*models.UserSettings
	leads         map[string]*models.Lead
	activities    []*models.LeadActivity
	notifications []*models.Notification
	drafts        map[string]*models.EmailDraft
	emailLogs     []*models.EmailLog
	clock         time.Time

	FailLeadCreate   error
	FailActivity     error
	FailNotification error
	FailEmailLog     error
	FailDraftCreate  error

	// AfterLeadWrite runs once a lead insert or update has been applied.
	AfterLeadWrite func()
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[string]*models.User),
		settings: make(map[string]*models.UserSettings),
		leads:    make(map[string]*models.Lead),
		drafts:   make(map[string]*models.EmailDraft),
		clock:    time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC),
	}
}

func (s *MemoryStore) afterLeadWrite() {
	if s.AfterLeadWrite != nil {
		s.AfterLeadWrite()
	}
}

// tick returns a strictly increasing timestamp so newest-first ordering is
// deterministic. Callers hold mu.
func (s *MemoryStore) tick() time.Time {
	s.clock = s.clock.Add(time.Millisecond)
	return s.clock
}

// Users returns the user repository view
func (s *MemoryStore) Users() *UserRepo { return &UserRepo{s} }

// Settings returns the settings repository view
func (s *MemoryStore) Settings() *SettingsRepo { return &SettingsRepo{s} }

// Leads returns the lead repository view
func (s *MemoryStore) Leads() *LeadRepo { return &LeadRepo{s} }

// Activities returns the activity repository view
func (s *MemoryStore) Activities() *ActivityRepo { return &ActivityRepo{s} }

// Notifications returns the notification repository view
func (s *MemoryStore) Notifications() *NotificationRepo { return &NotificationRepo{s} }

// Drafts returns the draft repository view
func (s *MemoryStore) Drafts() *DraftRepo { return &DraftRepo{s} }

// AddUser stores an account with settings and returns its id. A nil
// settings argument stores the defaults.
func (s *MemoryStore) AddUser(email string, settings *models.UserSettings) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	now := s.tick()
	s.users[id] = &models.User{ID: id, Email: strings.ToLower(email), CreatedAt: now, UpdatedAt: now}
	if settings == nil {
		settings = models.DefaultSettings(id)
	}
	cp := *settings
	cp.UserID = id
	s.settings[id] = &cp
	return id
}

// AddUserWithoutSettings stores an account that never saved its settings
func (s *MemoryStore) AddUserWithoutSettings(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	now := s.tick()
	s.users[id] = &models.User{ID: id, Email: strings.ToLower(email), CreatedAt: now, UpdatedAt: now}
	return id
}

// ActivityLog returns a copy of all activity rows
func (s *MemoryStore) ActivityLog() []models.LeadActivity {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.LeadActivity, len(s.activities))
	for i, a := range s.activities {
		out[i] = *a
	}
	return out
}

// NotificationRows returns a copy of all notification rows
func (s *MemoryStore) NotificationRows() []models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Notification, len(s.notifications))
	for i, n := range s.notifications {
		out[i] = *n
	}
	return out
}

// EmailLogRows returns a copy of all email log rows
func (s *MemoryStore) EmailLogRows() []models.EmailLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.EmailLog, len(s.emailLogs))
	for i, e := range s.emailLogs {
		out[i] = *e
	}
	return out
}

// LeadCount returns the number of stored leads across all owners
func (s *MemoryStore) LeadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.leads)
}

func notFound(op string) error {
	return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
}

// UserRepo is the in-memory user repository
type UserRepo struct{ s *MemoryStore }

// Create inserts a user, rejecting duplicate emails
func (r *UserRepo) Create(_ context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	for _, u := range r.s.users {
		if u.Email == user.Email {
			return fmt.Errorf("failed to create user: %w: users_email_key", storage.ErrDuplicate)
		}
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := r.s.tick()
	user.CreatedAt, user.UpdatedAt = now, now
	cp := *user
	r.s.users[user.ID] = &cp
	return nil
}

// GetByID returns a user by id
func (r *UserRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, notFound("failed to get user")
	}
	cp := *u
	return &cp, nil
}

// GetByEmail returns a user by email, case-insensitively
func (r *UserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range r.s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, notFound("failed to get user")
}

// SettingsRepo is the in-memory settings repository
type SettingsRepo struct{ s *MemoryStore }

// Get returns the settings of a user
func (r *SettingsRepo) Get(_ context.Context, userID string) (*models.UserSettings, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	st, ok := r.s.settings[userID]
	if !ok {
		return nil, notFound("failed to get settings")
	}
	cp := *st
	cp.Services = append([]string{}, st.Services...)
	return &cp, nil
}

// Upsert writes the settings row, keeping the stored webhook key
func (r *SettingsRepo) Upsert(_ context.Context, st *models.UserSettings) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := r.s.tick()
	cp := *st
	cp.Services = append([]string{}, st.Services...)
	if prev, ok := r.s.settings[st.UserID]; ok {
		cp.WebhookAPIKey = prev.WebhookAPIKey
		cp.CreatedAt = prev.CreatedAt
	} else {
		cp.WebhookAPIKey = nil
		cp.CreatedAt = now
	}
	cp.UpdatedAt = now
	r.s.settings[st.UserID] = &cp
	st.CreatedAt, st.UpdatedAt = cp.CreatedAt, cp.UpdatedAt
	return nil
}

// SetAPIKey replaces the webhook key of a user
func (r *SettingsRepo) SetAPIKey(_ context.Context, userID, apiKey string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	st, ok := r.s.settings[userID]
	if !ok {
		return notFound("failed to set api key")
	}
	key := apiKey
	st.WebhookAPIKey = &key
	return nil
}

// LeadRepo is the in-memory lead repository
type LeadRepo struct{ s *MemoryStore }

// Create inserts a lead with status new and priority medium
func (r *LeadRepo) Create(ctx context.Context, ownerID string, f models.LeadFields) (*models.Lead, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.s.FailLeadCreate != nil {
		return nil, r.s.FailLeadCreate
	}
	if _, ok := r.s.users[ownerID]; !ok {
		return nil, fmt.Errorf("failed to create lead: owner %s does not exist", ownerID)
	}

	source := f.Source
	if source == "" {
		source = types.SourceWebhook
	}
	now := r.s.tick()
	lead := &models.Lead{
		ID:          uuid.NewString(),
		UserID:      ownerID,
		Name:        f.Name,
		Email:       f.Email,
		Phone:       f.Phone,
		EventType:   f.EventType,
		EventDate:   f.EventDate,
		BudgetRange: f.BudgetRange,
		Message:     f.Message,
		Status:      types.StatusNew,
		Priority:    types.PriorityMedium,
		Source:      source,
		Notes:       f.Notes,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	r.s.leads[lead.ID] = lead
	r.s.afterLeadWrite()
	cp := *lead
	return &cp, nil
}

func (r *LeadRepo) owned(ownerID, leadID string) (*models.Lead, bool) {
	lead, ok := r.s.leads[leadID]
	if !ok || lead.UserID != ownerID {
		return nil, false
	}
	return lead, true
}

// Get returns a lead of the owner
func (r *LeadRepo) Get(_ context.Context, ownerID, leadID string) (*models.Lead, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	lead, ok := r.owned(ownerID, leadID)
	if !ok {
		return nil, notFound("failed to get lead")
	}
	cp := *lead
	return &cp, nil
}

// Update applies a partial update and returns the previous status
func (r *LeadRepo) Update(ctx context.Context, ownerID, leadID string, u models.LeadUpdate) (*models.Lead, types.LeadStatus, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	lead, ok := r.owned(ownerID, leadID)
	if !ok {
		return nil, "", notFound("failed to update lead")
	}

	previous := lead.Status
	if u.Status != nil {
		lead.Status = *u.Status
	}
	if u.Priority != nil {
		lead.Priority = *u.Priority
	}
	if u.Notes != nil {
		notes := *u.Notes
		lead.Notes = &notes
	}
	lead.UpdatedAt = r.s.tick()
	r.s.afterLeadWrite()

	cp := *lead
	return &cp, previous, nil
}

// List returns the owner's leads newest first
func (r *LeadRepo) List(_ context.Context, ownerID string, filter models.LeadFilter) ([]*models.Lead, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	out := make([]*models.Lead, 0)
	for _, lead := range r.s.leads {
		if lead.UserID != ownerID {
			continue
		}
		if filter.Status != "" && filter.Status != "all" && string(lead.Status) != filter.Status {
			continue
		}
		if search != "" {
			eventType := ""
			if lead.EventType != nil {
				eventType = *lead.EventType
			}
			hay := strings.ToLower(lead.Name + "\x00" + lead.Email + "\x00" + eventType)
			if !strings.Contains(hay, search) {
				continue
			}
		}
		cp := *lead
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// Count returns the number of leads of an owner, optionally with one status
func (r *LeadRepo) Count(_ context.Context, ownerID string, status types.LeadStatus) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, lead := range r.s.leads {
		if lead.UserID == ownerID && (status == "" || lead.Status == status) {
			n++
		}
	}
	return n, nil
}

// ActivityRepo is the in-memory activity repository
type ActivityRepo struct{ s *MemoryStore }

// Create appends an activity
func (r *ActivityRepo) Create(ctx context.Context, a *models.LeadActivity) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.FailActivity != nil {
		return r.s.FailActivity
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.CreatedAt = r.s.tick()
	cp := *a
	r.s.activities = append(r.s.activities, &cp)
	return nil
}

// ListByLead returns the activities of one of the owner's leads, newest first
func (r *ActivityRepo) ListByLead(_ context.Context, ownerID, leadID string) ([]*models.LeadActivity, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*models.LeadActivity, 0)
	for i := len(r.s.activities) - 1; i >= 0; i-- {
		a := r.s.activities[i]
		if a.LeadID == leadID && a.UserID == ownerID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

// NotificationRepo is the in-memory notification and email log repository
type NotificationRepo struct{ s *MemoryStore }

// Create inserts an unread notification
func (r *NotificationRepo) Create(ctx context.Context, n *models.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.FailNotification != nil {
		return r.s.FailNotification
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	n.CreatedAt = r.s.tick()
	n.IsRead = false
	cp := *n
	r.s.notifications = append(r.s.notifications, &cp)
	return nil
}

// List returns the owner's notifications newest first
func (r *NotificationRepo) List(_ context.Context, ownerID string, unreadOnly bool, limit int) ([]*models.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*models.Notification, 0)
	for i := len(r.s.notifications) - 1; i >= 0; i-- {
		n := r.s.notifications[i]
		if n.UserID != ownerID || (unreadOnly && n.IsRead) {
			continue
		}
		cp := *n
		out = append(out, &cp)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// MarkRead flags one of the owner's notifications as read
func (r *NotificationRepo) MarkRead(_ context.Context, ownerID, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, n := range r.s.notifications {
		if n.ID == id && n.UserID == ownerID {
			n.IsRead = true
			return nil
		}
	}
	return notFound("failed to mark notification read")
}

// LogEmail appends an email log row
func (r *NotificationRepo) LogEmail(ctx context.Context, entry *models.EmailLog) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.FailEmailLog != nil {
		return r.s.FailEmailLog
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	entry.SentAt = r.s.tick()
	cp := *entry
	r.s.emailLogs = append(r.s.emailLogs, &cp)
	return nil
}

// DraftRepo is the in-memory draft repository
type DraftRepo struct{ s *MemoryStore }

// Create inserts a draft
func (r *DraftRepo) Create(ctx context.Context, d *models.EmailDraft) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.FailDraftCreate != nil {
		return r.s.FailDraftCreate
	}
	if _, ok := r.s.leads[d.LeadID]; !ok {
		return fmt.Errorf("failed to create draft: lead %s does not exist", d.LeadID)
	}
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	now := r.s.tick()
	d.CreatedAt, d.UpdatedAt = now, now
	cp := *d
	r.s.drafts[d.ID] = &cp
	return nil
}

func (r *DraftRepo) withLead(d *models.EmailDraft) *models.EmailDraft {
	cp := *d
	if lead, ok := r.s.leads[d.LeadID]; ok {
		cp.LeadName = lead.Name
		cp.LeadEmail = lead.Email
		cp.LeadEventType = lead.EventType
	}
	return &cp
}

// List returns the owner's drafts newest first, optionally of one lead
func (r *DraftRepo) List(_ context.Context, ownerID string, leadID *string) ([]*models.EmailDraft, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*models.EmailDraft, 0)
	for _, d := range r.s.drafts {
		if d.UserID != ownerID || (leadID != nil && d.LeadID != *leadID) {
			continue
		}
		out = append(out, r.withLead(d))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// Update edits one of the owner's drafts
func (r *DraftRepo) Update(_ context.Context, ownerID, id string, u models.DraftUpdate) (*models.EmailDraft, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.drafts[id]
	if !ok || d.UserID != ownerID {
		return nil, notFound("failed to update draft")
	}
	if u.Subject != nil {
		d.Subject = *u.Subject
	}
	if u.Content != nil {
		d.Content = *u.Content
	}
	if u.Status != nil {
		d.Status = *u.Status
	}
	d.UpdatedAt = r.s.tick()
	return r.withLead(d), nil
}

// Delete removes one of the owner's drafts
func (r *DraftRepo) Delete(_ context.Context, ownerID, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.drafts[id]
	if !ok || d.UserID != ownerID {
		return notFound("failed to delete draft")
	}
	delete(r.s.drafts, id)
	return nil
}

// Count returns the number of the owner's drafts
func (r *DraftRepo) Count(_ context.Context, ownerID string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, d := range r.s.drafts {
		if d.UserID == ownerID {
			n++
		}
	}
	return n, nil
}
