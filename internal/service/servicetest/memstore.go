// Package servicetest provides in-memory stores for service and handler
// tests. Each store guards its state with a mutex and returns the same
// sentinel errors as the pgx repositories.
package servicetest

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/models"
	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/notify"
	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/repository"
)

type Profiles struct {
	mu       sync.Mutex
	profiles map[string]models.Profile
	Err      error
}

func NewProfiles(profiles ...models.Profile) *Profiles {
	p := &Profiles{profiles: map[string]models.Profile{}}
	for _, profile := range profiles {
		p.profiles[profile.ID] = profile
	}
	return p
}

func (p *Profiles) GetByID(ctx context.Context, id string) (models.Profile, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return models.Profile{}, p.Err
	}
	profile, ok := p.profiles[id]
	if !ok {
		return models.Profile{}, repository.ErrProfileNotFound
	}
	return profile, nil
}

func (p *Profiles) ListAlertRecipients(ctx context.Context) ([]models.Profile, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []models.Profile
	for _, profile := range p.profiles {
		if profile.Role == models.RoleAdmin && profile.IsVerified && !profile.IsLocked {
			out = append(out, profile)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (p *Profiles) SetLocked(ctx context.Context, id string, locked bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	profile, ok := p.profiles[id]
	if !ok {
		return repository.ErrProfileNotFound
	}
	profile.IsLocked = locked
	p.profiles[id] = profile
	return nil
}

type TwoFactor struct {
	mu    sync.Mutex
	creds map[string]models.StepUpCredential
}

func NewTwoFactor() *TwoFactor {
	return &TwoFactor{creds: map[string]models.StepUpCredential{}}
}

func (s *TwoFactor) Get(ctx context.Context, userID string) (models.StepUpCredential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cred, ok := s.creds[userID]
	if !ok {
		return models.StepUpCredential{}, repository.ErrTwoFactorNotFound
	}
	cred.BackupCodes = append([]string(nil), cred.BackupCodes...)
	return cred, nil
}

func (s *TwoFactor) Save(ctx context.Context, cred models.StepUpCredential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cred.Enabled = false
	cred.EnabledAt = nil
	s.creds[cred.UserID] = cred
	return nil
}

func (s *TwoFactor) Enable(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cred, ok := s.creds[userID]
	if !ok || cred.Secret == "" {
		return repository.ErrTwoFactorNotFound
	}
	if !cred.Enabled {
		now := time.Now()
		cred.Enabled = true
		cred.EnabledAt = &now
	}
	s.creds[userID] = cred
	return nil
}

func (s *TwoFactor) Delete(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.creds, userID)
	return nil
}

func (s *TwoFactor) ConsumeBackupCode(ctx context.Context, userID string, hash string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cred, ok := s.creds[userID]
	if !ok {
		return false, nil
	}
	for i, h := range cred.BackupCodes {
		if h == hash {
			cred.BackupCodes = append(cred.BackupCodes[:i:i], cred.BackupCodes[i+1:]...)
			s.creds[userID] = cred
			return true, nil
		}
	}
	return false, nil
}

func (s *TwoFactor) ReplaceBackupCodes(ctx context.Context, userID string, hashes []string, salt []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cred, ok := s.creds[userID]
	if !ok {
		return repository.ErrTwoFactorNotFound
	}
	cred.BackupCodes = hashes
	cred.BackupSalt = salt
	s.creds[userID] = cred
	return nil
}

type Events struct {
	mu     sync.Mutex
	events []models.SecurityEvent
	Err    error
}

func NewEvents() *Events {
	return &Events{}
}

func (s *Events) Insert(ctx context.Context, event models.SecurityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.events = append(s.events, event)
	return nil
}

func (s *Events) CountByIPSince(ctx context.Context, eventType models.EventType, ip string, since time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, e := range s.events {
		if e.Type == eventType && e.IPAddress != nil && *e.IPAddress == ip && !e.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (s *Events) CountByUserSince(ctx context.Context, eventType models.EventType, userID string, since time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, e := range s.events {
		if e.Type == eventType && e.UserID != nil && *e.UserID == userID && !e.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (s *Events) List(ctx context.Context, filter models.EventFilter) ([]models.SecurityEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.SecurityEvent
	for i := len(s.events) - 1; i >= 0; i-- {
		e := s.events[i]
		if filter.Severity != "" && e.Severity != filter.Severity {
			continue
		}
		if filter.Type != "" && e.Type != filter.Type {
			continue
		}
		if filter.Resolved != nil && e.Resolved != *filter.Resolved {
			continue
		}
		out = append(out, e)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

func (s *Events) Resolve(ctx context.Context, id string, resolvedBy string, at time.Time) (models.SecurityEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.events {
		if s.events[i].ID == id {
			s.events[i].Resolved = true
			s.events[i].ResolvedBy = &resolvedBy
			s.events[i].ResolvedAt = &at
			return s.events[i], nil
		}
	}
	return models.SecurityEvent{}, repository.ErrEventNotFound
}

func (s *Events) Statistics(ctx context.Context, since time.Time) (models.EventStatistics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var stats models.EventStatistics
	for _, e := range s.events {
		stats.Total++
		switch e.Severity {
		case models.SeverityCritical:
			stats.Critical++
		case models.SeverityHigh:
			stats.High++
		}
		if !e.Resolved {
			stats.Unresolved++
		}
		if e.Type == models.EventLoginFailed && !e.CreatedAt.Before(since) {
			stats.FailedLoginsToday++
		}
	}
	return stats, nil
}

func (s *Events) CountUnresolvedSevere(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, e := range s.events {
		if !e.Resolved && e.Severity.Alerting() {
			count++
		}
	}
	return count, nil
}

// All returns every recorded event in insertion order.
func (s *Events) All() []models.SecurityEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.SecurityEvent(nil), s.events...)
}

func (s *Events) OfType(eventType models.EventType) []models.SecurityEvent {
	var out []models.SecurityEvent
	for _, e := range s.All() {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

type Verifications struct {
	mu            sync.Mutex
	verifications map[string]models.Verification
	agents        map[string]models.Agent
	properties    map[string]models.VerifiableEntity
	order         []string
	// MirrorErr, when set, fails the entity update inside Decide. Like the
	// transaction it stands in for, nothing is written in that case.
	MirrorErr error
}

func NewVerifications() *Verifications {
	return &Verifications{
		verifications: map[string]models.Verification{},
		agents:        map[string]models.Agent{},
		properties:    map[string]models.VerifiableEntity{},
	}
}

func (s *Verifications) AddAgent(agent models.Agent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if agent.VerificationStatus == "" {
		agent.VerificationStatus = models.VerificationPending
	}
	s.agents[agent.ID] = agent
}

func (s *Verifications) AddProperty(id, ownerID string, agentUserID *string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.properties[id] = models.VerifiableEntity{
		Type:               models.EntityProperty,
		ID:                 id,
		OwnerID:            ownerID,
		AgentUserID:        agentUserID,
		VerificationStatus: models.VerificationPending,
	}
}

func (s *Verifications) Agent(id string) models.Agent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.agents[id]
}

func (s *Verifications) Property(id string) models.VerifiableEntity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.properties[id]
}

func (s *Verifications) Create(ctx context.Context, v models.Verification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.verifications[v.ID] = v
	s.order = append(s.order, v.ID)
	return nil
}

func (s *Verifications) GetByID(ctx context.Context, id string) (models.Verification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.verifications[id]
	if !ok {
		return models.Verification{}, repository.ErrVerificationNotFound
	}
	return v, nil
}

func (s *Verifications) List(ctx context.Context, status models.VerificationStatus, limit int) ([]models.Verification, error) {
	return s.filter(func(v models.Verification) bool {
		return status == "" || v.Status == status
	}, limit), nil
}

func (s *Verifications) ListByEntity(ctx context.Context, entityType models.EntityType, entityID string) ([]models.Verification, error) {
	return s.filter(func(v models.Verification) bool {
		return v.EntityType == entityType && v.EntityID == entityID
	}, 0), nil
}

func (s *Verifications) filter(keep func(models.Verification) bool, limit int) []models.Verification {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Verification
	for i := len(s.order) - 1; i >= 0; i-- {
		v := s.verifications[s.order[i]]
		if !keep(v) {
			continue
		}
		out = append(out, v)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func (s *Verifications) CountPending(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, v := range s.verifications {
		if v.Status == models.VerificationPending {
			count++
		}
	}
	return count, nil
}

func (s *Verifications) Entity(ctx context.Context, entityType models.EntityType, id string) (models.VerifiableEntity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch entityType {
	case models.EntityAgent:
		agent, ok := s.agents[id]
		if !ok {
			return models.VerifiableEntity{}, repository.ErrEntityNotFound
		}
		return models.VerifiableEntity{
			Type:               models.EntityAgent,
			ID:                 agent.ID,
			OwnerID:            agent.UserID,
			VerificationStatus: agent.VerificationStatus,
		}, nil
	case models.EntityProperty:
		property, ok := s.properties[id]
		if !ok {
			return models.VerifiableEntity{}, repository.ErrEntityNotFound
		}
		return property, nil
	}
	return models.VerifiableEntity{}, errors.New("unknown entity type")
}

func (s *Verifications) AgentByUserID(ctx context.Context, userID string) (models.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, agent := range s.agents {
		if agent.UserID == userID {
			return agent, nil
		}
	}
	return models.Agent{}, repository.ErrAgentNotFound
}

func (s *Verifications) Decide(ctx context.Context, d repository.Decision) (models.Verification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.verifications[d.VerificationID]
	if !ok {
		return models.Verification{}, repository.ErrVerificationNotFound
	}
	if v.Status != models.VerificationPending {
		return v, repository.ErrAlreadyDecided
	}
	if s.MirrorErr != nil {
		return models.Verification{}, s.MirrorErr
	}

	switch v.EntityType {
	case models.EntityAgent:
		agent, ok := s.agents[v.EntityID]
		if !ok {
			return models.Verification{}, repository.ErrEntityNotFound
		}
		agent.VerificationStatus = d.Outcome
		agent.VerifiedAt = nil
		if d.Outcome == models.VerificationVerified {
			at := d.DecidedAt
			agent.VerifiedAt = &at
		}
		s.agents[agent.ID] = agent
	case models.EntityProperty:
		property, ok := s.properties[v.EntityID]
		if !ok {
			return models.Verification{}, repository.ErrEntityNotFound
		}
		property.VerificationStatus = d.Outcome
		s.properties[property.ID] = property
	}

	at := d.DecidedAt
	reviewer := d.ReviewerID
	v.Status = d.Outcome
	v.ReviewedBy = &reviewer
	v.ReviewNotes = d.Notes
	v.ReviewedAt = &at
	v.UpdatedAt = at
	s.verifications[v.ID] = v
	return v, nil
}

type Reports struct {
	mu      sync.Mutex
	reports map[string]models.Report
	order   []string
	// BeforeCreate runs inside Create before the uniqueness check.
	BeforeCreate func(models.Report)
}

func NewReports() *Reports {
	return &Reports{reports: map[string]models.Report{}}
}

func (s *Reports) FindByReporter(ctx context.Context, reporterID string, entityType models.ReportEntityType, entityID string) (models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.order {
		r := s.reports[id]
		if r.ReporterID == reporterID && r.EntityType == entityType && r.EntityID == entityID {
			return r, nil
		}
	}
	return models.Report{}, repository.ErrReportNotFound
}

// Insert bypasses the uniqueness check, for seeding races.
func (s *Reports) Insert(report models.Report) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports[report.ID] = report
	s.order = append(s.order, report.ID)
}

func (s *Reports) Create(ctx context.Context, report models.Report) error {
	if s.BeforeCreate != nil {
		s.BeforeCreate(report)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.reports {
		if r.ReporterID == report.ReporterID && r.EntityType == report.EntityType && r.EntityID == report.EntityID {
			return repository.ErrDuplicateReport
		}
	}
	report.Status = models.ReportNew
	s.reports[report.ID] = report
	s.order = append(s.order, report.ID)
	return nil
}

func (s *Reports) GetByID(ctx context.Context, id string) (models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reports[id]
	if !ok {
		return models.Report{}, repository.ErrReportNotFound
	}
	return r, nil
}

func (s *Reports) List(ctx context.Context, status models.ReportStatus, limit, offset int) ([]models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Report
	for i := len(s.order) - 1; i >= 0; i-- {
		r := s.reports[s.order[i]]
		if status != "" && r.Status != status {
			continue
		}
		out = append(out, r)
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Reports) Update(ctx context.Context, report models.Report) (models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reports[report.ID]; !ok {
		return models.Report{}, repository.ErrReportNotFound
	}
	report.UpdatedAt = time.Now()
	s.reports[report.ID] = report
	return report, nil
}

func (s *Reports) CountOpen(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, r := range s.reports {
		if !r.Status.Closed() {
			count++
		}
	}
	return count, nil
}

type Audits struct {
	mu     sync.Mutex
	audits map[string]models.SecurityAudit
	order  []string
}

func NewAudits() *Audits {
	return &Audits{audits: map[string]models.SecurityAudit{}}
}

func (s *Audits) Create(ctx context.Context, audit models.SecurityAudit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audits[audit.ID] = audit
	s.order = append(s.order, audit.ID)
	return nil
}

func (s *Audits) GetByID(ctx context.Context, id string) (models.SecurityAudit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.audits[id]
	if !ok {
		return models.SecurityAudit{}, repository.ErrAuditNotFound
	}
	return a, nil
}

func (s *Audits) List(ctx context.Context, status models.AuditStatus) ([]models.SecurityAudit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.SecurityAudit
	for _, id := range s.order {
		a := s.audits[id]
		if status == "" || a.Status == status {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ScheduledDate.After(out[j].ScheduledDate) })
	return out, nil
}

func (s *Audits) Update(ctx context.Context, audit models.SecurityAudit, expected models.AuditStatus) (models.SecurityAudit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.audits[audit.ID]
	if !ok || current.Status != expected {
		return models.SecurityAudit{}, repository.ErrAuditNotFound
	}
	audit.UpdatedAt = time.Now()
	s.audits[audit.ID] = audit
	return audit, nil
}

func (s *Audits) DueBy(ctx context.Context, day time.Time) ([]models.SecurityAudit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.SecurityAudit
	for _, id := range s.order {
		a := s.audits[id]
		if a.Status == models.AuditScheduled && !a.ScheduledDate.After(day) {
			out = append(out, a)
		}
	}
	return out, nil
}

// Outbox records notifications instead of sending them.
type Outbox struct {
	mu       sync.Mutex
	messages []notify.Message
	Err      error
}

func (o *Outbox) Notify(ctx context.Context, msg notify.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.Err != nil {
		return o.Err
	}
	o.messages = append(o.messages, msg)
	return nil
}

func (o *Outbox) Messages() []notify.Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]notify.Message(nil), o.messages...)
}

func (o *Outbox) OfKind(kind notify.Kind) []notify.Message {
	var out []notify.Message
	for _, m := range o.Messages() {
		if m.Kind == kind {
			out = append(out, m)
		}
	}
	return out
}

// Documents is an object store kept in memory.
type Documents struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func NewDocuments() *Documents {
	return &Documents{objects: map[string][]byte{}, types: map[string]string{}}
}

func (d *Documents) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string, meta map[string]string) error {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.objects[key] = buf.Bytes()
	d.types[key] = contentType
	return nil
}

func (d *Documents) PresignedGet(ctx context.Context, key string, expiry time.Duration) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.objects[key]; !ok {
		return "", errors.New("no such object")
	}
	return "https://objects.test/" + key + "?X-Amz-Expires=" + expiry.String(), nil
}

func (d *Documents) Keys() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	keys := make([]string, 0, len(d.objects))
	for k := range d.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (d *Documents) ContentType(key string) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.types[key]
}
