package repository

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// memStore backs the in-memory repositories used by tests and local
// development. One mutex covers every table so a mutation and its audit
// entry land atomically, matching the transactional pairing of the pg
// repositories.
type memStore struct {
	mu           sync.Mutex
	users        map[string]*User
	tokens       map[string]*RefreshToken
	companies    map[string]*Company
	memberships  []*Membership
	clients      map[string]*Client
	appointments map[string]*Appointment
	audit        []*AuditEntry
}

// NewMemoryRepositories creates repositories over a shared in-memory store.
func NewMemoryRepositories() *Repositories {
	s := &memStore{
		users:        make(map[string]*User),
		tokens:       make(map[string]*RefreshToken),
		companies:    make(map[string]*Company),
		clients:      make(map[string]*Client),
		appointments: make(map[string]*Appointment),
	}
	return &Repositories{
		UserRepo:        &memUserRepository{s: s},
		CompanyRepo:     &memCompanyRepository{s: s},
		ClientRepo:      &memClientRepository{s: s},
		AppointmentRepo: &memAppointmentRepository{s: s},
		AuditRepo:       &memAuditRepository{s: s},
	}
}

func (s *memStore) appendAudit(entry *AuditEntry) {
	entry.ID = uuid.New().String()
	entry.CreatedAt = time.Now()
	s.audit = append(s.audit, entry)
}

func copyUser(u *User) *User {
	c := *u
	return &c
}

func copyAppointment(a *Appointment) *Appointment {
	c := *a
	return &c
}

func copyClient(c *Client) *Client {
	cp := *c
	return &cp
}

func copyMembership(m *Membership) *Membership {
	c := *m
	return &c
}

// ============================================
// Users
// ============================================

type memUserRepository struct {
	s *memStore
}

func (r *memUserRepository) Create(ctx context.Context, user *User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	email := strings.ToLower(user.Email)
	for _, u := range r.s.users {
		if u.Email == email {
			return ErrDuplicateEmail
		}
	}

	user.ID = uuid.New().String()
	user.Email = email
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	r.s.users[user.ID] = copyUser(user)
	return nil
}

func (r *memUserRepository) FindByID(ctx context.Context, id string) (*User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, nil
	}
	return copyUser(u), nil
}

func (r *memUserRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	email = strings.ToLower(email)
	for _, u := range r.s.users {
		if u.Email == email {
			return copyUser(u), nil
		}
	}
	return nil, nil
}

func (r *memUserRepository) UpdatePassword(ctx context.Context, userID, passwordHash string, mustChange bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[userID]
	if !ok {
		return ErrNoRows
	}
	u.Password = passwordHash
	u.MustChangePassword = mustChange
	u.UpdatedAt = time.Now()
	return nil
}

func (r *memUserRepository) SetProvisioning(ctx context.Context, userID string, provisioning bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[userID]
	if !ok {
		return ErrNoRows
	}
	u.Provisioning = provisioning
	u.UpdatedAt = time.Now()
	return nil
}

func (r *memUserRepository) FindProvisioningOlderThan(ctx context.Context, cutoff time.Time) ([]*User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var users []*User
	for _, u := range r.s.users {
		if u.Provisioning && u.CreatedAt.Before(cutoff) {
			users = append(users, copyUser(u))
		}
	}
	return users, nil
}

func (r *memUserRepository) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.users, id)
	return nil
}

func (r *memUserRepository) SaveRefreshToken(ctx context.Context, token *RefreshToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	token.ID = uuid.New().String()
	token.CreatedAt = time.Now()
	r.s.tokens[token.Token] = token
	return nil
}

func (r *memUserRepository) FindRefreshToken(ctx context.Context, token string) (*RefreshToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rt, ok := r.s.tokens[token]
	if !ok {
		return nil, nil
	}
	c := *rt
	return &c, nil
}

func (r *memUserRepository) DeleteRefreshToken(ctx context.Context, token string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.tokens, token)
	return nil
}

func (r *memUserRepository) DeleteUserRefreshTokens(ctx context.Context, userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for k, rt := range r.s.tokens {
		if rt.UserID == userID {
			delete(r.s.tokens, k)
		}
	}
	return nil
}

// ============================================
// Companies & Memberships
// ============================================

type memCompanyRepository struct {
	s *memStore
}

func (r *memCompanyRepository) CreateWithOwner(ctx context.Context, company *Company, ownerUserID string, audit *AuditEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	company.ID = uuid.New().String()
	company.CreatedAt = time.Now()
	company.UpdatedAt = company.CreatedAt
	c := *company
	r.s.companies[company.ID] = &c

	r.s.memberships = append(r.s.memberships, &Membership{
		ID:        uuid.New().String(),
		CompanyID: company.ID,
		UserID:    ownerUserID,
		Role:      "owner",
		Active:    true,
		CreatedAt: time.Now(),
	})

	audit.CompanyID = company.ID
	audit.EntityID = company.ID
	r.s.appendAudit(audit)
	return nil
}

func (r *memCompanyRepository) FindByID(ctx context.Context, id string) (*Company, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.companies[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (r *memCompanyRepository) Update(ctx context.Context, company *Company, audit *AuditEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.companies[company.ID]
	if !ok {
		return ErrNoRows
	}
	company.CreatedAt = existing.CreatedAt
	company.UpdatedAt = time.Now()
	c := *company
	r.s.companies[company.ID] = &c
	r.s.appendAudit(audit)
	return nil
}

func (r *memCompanyRepository) AddMembership(ctx context.Context, member *Membership, audit *AuditEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	member.ID = uuid.New().String()
	member.CreatedAt = time.Now()
	r.s.memberships = append(r.s.memberships, copyMembership(member))
	audit.EntityID = member.ID
	r.s.appendAudit(audit)
	return nil
}

func (r *memCompanyRepository) FindMembership(ctx context.Context, companyID, userID string) (*Membership, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var found *Membership
	for _, m := range r.s.memberships {
		if m.CompanyID == companyID && m.UserID == userID {
			if found == nil || (m.Active && !found.Active) {
				found = m
			}
		}
	}
	if found == nil {
		return nil, nil
	}
	return copyMembership(found), nil
}

func (r *memCompanyRepository) FindActiveMembershipByUser(ctx context.Context, userID string) (*Membership, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, m := range r.s.memberships {
		if m.UserID == userID && m.Active {
			return copyMembership(m), nil
		}
	}
	return nil, nil
}

func (r *memCompanyRepository) FindMemberships(ctx context.Context, companyID string) ([]*Membership, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var members []*Membership
	for _, m := range r.s.memberships {
		if m.CompanyID == companyID {
			c := copyMembership(m)
			if u, ok := r.s.users[m.UserID]; ok {
				c.User = copyUser(u)
			}
			members = append(members, c)
		}
	}
	return members, nil
}

func (r *memCompanyRepository) SetMembershipActive(ctx context.Context, companyID, userID string, active bool, audit *AuditEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, m := range r.s.memberships {
		if m.CompanyID == companyID && m.UserID == userID {
			m.Active = active
			audit.EntityID = m.ID
			r.s.appendAudit(audit)
			return nil
		}
	}
	return ErrNoRows
}

// ============================================
// Clients
// ============================================

type memClientRepository struct {
	s *memStore
}

func (r *memClientRepository) Create(ctx context.Context, client *Client, audit *AuditEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	client.ID = uuid.New().String()
	client.CreatedAt = time.Now()
	client.UpdatedAt = client.CreatedAt
	r.s.clients[client.ID] = copyClient(client)
	audit.EntityID = client.ID
	r.s.appendAudit(audit)
	return nil
}

func (r *memClientRepository) FindByID(ctx context.Context, companyID, id string) (*Client, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.clients[id]
	if !ok || c.CompanyID != companyID {
		return nil, nil
	}
	return copyClient(c), nil
}

func (r *memClientRepository) FindByCompany(ctx context.Context, companyID, search string) ([]*Client, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var clients []*Client
	for _, c := range r.s.clients {
		if c.CompanyID != companyID {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(c.Name), strings.ToLower(search)) {
			continue
		}
		clients = append(clients, copyClient(c))
	}
	return clients, nil
}

func (r *memClientRepository) Update(ctx context.Context, client *Client, audit *AuditEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.clients[client.ID]
	if !ok || existing.CompanyID != client.CompanyID {
		return ErrNoRows
	}
	client.CreatedAt = existing.CreatedAt
	client.UpdatedAt = time.Now()
	r.s.clients[client.ID] = copyClient(client)
	r.s.appendAudit(audit)
	return nil
}

func (r *memClientRepository) Delete(ctx context.Context, companyID, id string, audit *AuditEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.clients[id]
	if !ok || existing.CompanyID != companyID {
		return ErrNoRows
	}
	delete(r.s.clients, id)
	// Soft orphaning: appointment history keeps existing, reference is nulled.
	for _, a := range r.s.appointments {
		if a.ClientID != nil && *a.ClientID == id {
			a.ClientID = nil
		}
	}
	r.s.appendAudit(audit)
	return nil
}

// ============================================
// Appointments
// ============================================

type memAppointmentRepository struct {
	s *memStore
}

func (s *memStore) overlapping(companyID, creatorID string, start, end time.Time, excludeID string) []*Appointment {
	var out []*Appointment
	for _, a := range s.appointments {
		if a.CompanyID != companyID || a.CreatedByUserID != creatorID {
			continue
		}
		if a.ID == excludeID || a.Status == "canceled" {
			continue
		}
		if a.StartAt.Before(end) && start.Before(a.EndAt) {
			out = append(out, a)
		}
	}
	return out
}

func (r *memAppointmentRepository) Create(ctx context.Context, appt *Appointment, audit *AuditEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	// Check and insert under one lock; two concurrent proposals cannot
	// both pass, matching the store-level exclusion constraint.
	if conflicts := r.s.overlapping(appt.CompanyID, appt.CreatedByUserID, appt.StartAt, appt.EndAt, ""); len(conflicts) > 0 {
		ids := make([]string, 0, len(conflicts))
		for _, c := range conflicts {
			ids = append(ids, c.ID)
		}
		return &OverlapError{ConflictingIDs: ids}
	}

	appt.ID = uuid.New().String()
	appt.CreatedAt = time.Now()
	appt.UpdatedAt = appt.CreatedAt
	r.s.appointments[appt.ID] = copyAppointment(appt)

	audit.EntityID = appt.ID
	r.s.appendAudit(audit)
	return nil
}

func (r *memAppointmentRepository) FindByID(ctx context.Context, companyID, id string) (*Appointment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.appointments[id]
	if !ok || a.CompanyID != companyID {
		return nil, nil
	}
	return copyAppointment(a), nil
}

func (r *memAppointmentRepository) FindByCompany(ctx context.Context, companyID string, filters *AppointmentFilters) ([]*Appointment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var appts []*Appointment
	for _, a := range r.s.appointments {
		if a.CompanyID != companyID {
			continue
		}
		if filters != nil {
			if filters.From != nil && !a.EndAt.After(*filters.From) {
				continue
			}
			if filters.To != nil && !a.StartAt.Before(*filters.To) {
				continue
			}
			if len(filters.Status) > 0 && !containsString(filters.Status, a.Status) {
				continue
			}
			if filters.CreatedBy != nil && a.CreatedByUserID != *filters.CreatedBy {
				continue
			}
			if filters.Search != "" {
				needle := strings.ToLower(filters.Search)
				notes := ""
				if a.Notes != nil {
					notes = *a.Notes
				}
				if !strings.Contains(strings.ToLower(a.Title), needle) &&
					!strings.Contains(strings.ToLower(notes), needle) {
					continue
				}
			}
		}
		appts = append(appts, copyAppointment(a))
	}

	sortAppointmentsByStart(appts)
	return appts, nil
}

func (r *memAppointmentRepository) FindOverlapping(ctx context.Context, companyID, creatorID string, start, end time.Time, excludeID string) ([]*Appointment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	conflicts := r.s.overlapping(companyID, creatorID, start, end, excludeID)
	out := make([]*Appointment, 0, len(conflicts))
	for _, c := range conflicts {
		out = append(out, copyAppointment(c))
	}
	sortAppointmentsByStart(out)
	return out, nil
}

func (r *memAppointmentRepository) Update(ctx context.Context, appt *Appointment, audit *AuditEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.appointments[appt.ID]
	if !ok || existing.CompanyID != appt.CompanyID {
		return ErrNoRows
	}

	if appt.Status != "canceled" {
		if conflicts := r.s.overlapping(appt.CompanyID, appt.CreatedByUserID, appt.StartAt, appt.EndAt, appt.ID); len(conflicts) > 0 {
			ids := make([]string, 0, len(conflicts))
			for _, c := range conflicts {
				ids = append(ids, c.ID)
			}
			return &OverlapError{ConflictingIDs: ids}
		}
	}

	appt.CreatedAt = existing.CreatedAt
	appt.UpdatedAt = time.Now()
	r.s.appointments[appt.ID] = copyAppointment(appt)
	r.s.appendAudit(audit)
	return nil
}

func (r *memAppointmentRepository) Delete(ctx context.Context, companyID, id string, audit *AuditEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.appointments[id]
	if !ok || existing.CompanyID != companyID {
		return ErrNoRows
	}
	delete(r.s.appointments, id)
	r.s.appendAudit(audit)
	return nil
}

// ============================================
// Audit log
// ============================================

type memAuditRepository struct {
	s *memStore
}

func (r *memAuditRepository) Append(ctx context.Context, entry *AuditEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.appendAudit(entry)
	return nil
}

func (r *memAuditRepository) FindByCompany(ctx context.Context, companyID string, filters *AuditFilters) ([]*AuditEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var entries []*AuditEntry
	for i := len(r.s.audit) - 1; i >= 0; i-- {
		e := r.s.audit[i]
		if e.CompanyID != companyID {
			continue
		}
		if filters != nil {
			if filters.ActorUserID != nil && e.ActorUserID != *filters.ActorUserID {
				continue
			}
			if filters.ActionPrefix != "" && !strings.HasPrefix(e.Action, filters.ActionPrefix) {
				continue
			}
		}
		c := *e
		entries = append(entries, &c)
	}

	if filters != nil && filters.Offset > 0 {
		if filters.Offset >= len(entries) {
			return nil, nil
		}
		entries = entries[filters.Offset:]
	}
	if filters != nil && filters.Limit > 0 && filters.Limit < len(entries) {
		entries = entries[:filters.Limit]
	}
	return entries, nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func sortAppointmentsByStart(appts []*Appointment) {
	for i := 1; i < len(appts); i++ {
		for j := i; j > 0 && appts[j].StartAt.Before(appts[j-1].StartAt); j-- {
			appts[j], appts[j-1] = appts[j-1], appts[j]
		}
	}
}
