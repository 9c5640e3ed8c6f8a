package service_test

import (
	"sort"
	"time"

	appErrors "github.com/fieldops/campaigntext-backend/internal/errors"
	"github.com/fieldops/campaigntext-backend/internal/model"
	"github.com/fieldops/campaigntext-backend/internal/repository"
)

// memStore is an in-memory P2PStoreInterface covering the same semantics as
// the Postgres implementation, so the engine's assignment logic can be tested
// without a database.
type memStore struct {
	sessions    map[int]*model.Session
	volunteers  map[int]*model.Volunteer
	assignments map[int]*model.Assignment
	contacts    map[int]model.Contact
	nextID      int
}

func newMemStore() *memStore {
	return &memStore{
		sessions:    map[int]*model.Session{},
		volunteers:  map[int]*model.Volunteer{},
		assignments: map[int]*model.Assignment{},
		contacts:    map[int]model.Contact{},
	}
}

func (m *memStore) id() int {
	m.nextID++
	return m.nextID
}

func (m *memStore) addContact(c model.Contact) {
	m.contacts[c.ID] = c
}

// Tx: tests run single-threaded, so the closure just executes in place.
func (m *memStore) Tx(fn func(repository.P2PStoreInterface) error) error {
	return fn(m)
}

func (m *memStore) CreateSession(s *model.Session) error {
	s.ID = m.id()
	s.CreatedAt = time.Now()
	if s.Status == "" {
		s.Status = "active"
	}
	if s.AssignmentMode == "" {
		s.AssignmentMode = model.ModeAutoSplit
	}
	cp := *s
	m.sessions[s.ID] = &cp
	return nil
}

func (m *memStore) GetSession(id int) (*model.Session, error) {
	s, ok := m.sessions[id]
	if !ok {
		return nil, appErrors.NewSessionNotFound(id)
	}
	cp := *s
	return &cp, nil
}

func (m *memStore) GetSessionByCode(code string) (*model.Session, error) {
	var best *model.Session
	for _, s := range m.sessions {
		if s.JoinCode == code && s.Status == "active" {
			if best == nil || s.ID > best.ID {
				best = s
			}
		}
	}
	if best == nil {
		return nil, appErrors.NewJoinCodeInvalid(code)
	}
	cp := *best
	return &cp, nil
}

func (m *memStore) ListSessions() ([]*model.Session, error) {
	ids := make([]int, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(ids)))
	out := []*model.Session{}
	for _, id := range ids {
		cp := *m.sessions[id]
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memStore) UpdateSessionStatus(id int, status string) error {
	if s, ok := m.sessions[id]; ok {
		s.Status = status
	}
	return nil
}

func (m *memStore) UpdateSessionMode(id int, mode string) error {
	if s, ok := m.sessions[id]; ok {
		s.AssignmentMode = mode
	}
	return nil
}

func (m *memStore) DeleteSession(id int) error {
	if _, ok := m.sessions[id]; !ok {
		return appErrors.NewSessionNotFound(id)
	}
	delete(m.sessions, id)
	return nil
}

func (m *memStore) CloseExpiredSessions(now time.Time) (int, error) {
	n := 0
	for _, s := range m.sessions {
		if s.Status == "active" && s.CodeExpiresAt.Before(now) {
			s.Status = "closed"
			n++
		}
	}
	return n, nil
}

func (m *memStore) SessionStats(sessionID int) (*repository.SessionStats, error) {
	stats := &repository.SessionStats{}
	for _, a := range m.assignments {
		if a.SessionID != sessionID {
			continue
		}
		stats.TotalContacts++
		switch a.Status {
		case model.StatusSent, model.StatusInConversation, model.StatusCompleted:
			stats.TotalSent++
		}
		if a.Status == model.StatusInConversation {
			stats.TotalReplies++
		}
		if a.Status == model.StatusPending {
			stats.Remaining++
		}
	}
	for _, v := range m.volunteers {
		if v.SessionID != sessionID {
			continue
		}
		stats.VolunteerCount++
		if v.IsOnline {
			stats.OnlineCount++
		}
	}
	return stats, nil
}

func (m *memStore) CreateVolunteer(v *model.Volunteer) error {
	v.ID = m.id()
	v.IsOnline = true
	v.JoinedAt = time.Now()
	cp := *v
	m.volunteers[v.ID] = &cp
	return nil
}

func (m *memStore) GetVolunteer(id int) (*model.Volunteer, error) {
	v, ok := m.volunteers[id]
	if !ok {
		return nil, appErrors.NewVolunteerNotFound(id)
	}
	cp := *v
	return &cp, nil
}

func (m *memStore) GetVolunteerByName(sessionID int, name string) (*model.Volunteer, error) {
	for _, v := range m.volunteers {
		if v.SessionID == sessionID && v.Name == name {
			cp := *v
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memStore) listVolunteers(sessionID int, onlineOnly bool) []*model.Volunteer {
	ids := []int{}
	for id, v := range m.volunteers {
		if v.SessionID == sessionID && (!onlineOnly || v.IsOnline) {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	out := []*model.Volunteer{}
	for _, id := range ids {
		cp := *m.volunteers[id]
		out = append(out, &cp)
	}
	return out
}

func (m *memStore) ListVolunteers(sessionID int) ([]*model.Volunteer, error) {
	return m.listVolunteers(sessionID, false), nil
}

func (m *memStore) OnlineVolunteers(sessionID int) ([]*model.Volunteer, error) {
	return m.listVolunteers(sessionID, true), nil
}

func (m *memStore) SetVolunteerOnline(id int, online bool) error {
	v, ok := m.volunteers[id]
	if !ok {
		return appErrors.NewVolunteerNotFound(id)
	}
	v.IsOnline = online
	return nil
}

func (m *memStore) VolunteerStats(volunteerID int) (*repository.VolunteerStats, error) {
	stats := &repository.VolunteerStats{}
	for _, a := range m.assignments {
		if a.VolunteerID == nil || *a.VolunteerID != volunteerID {
			continue
		}
		stats.Total++
		switch a.Status {
		case model.StatusSent, model.StatusInConversation, model.StatusCompleted:
			stats.Sent++
		}
		if a.Status == model.StatusPending {
			stats.Remaining++
		}
		if a.Status == model.StatusInConversation {
			stats.ActiveChats++
		}
	}
	return stats, nil
}

func (m *memStore) CreateAssignments(sessionID int, contactIDs []int) error {
	for _, contactID := range contactIDs {
		id := m.id()
		m.assignments[id] = &model.Assignment{
			ID:         id,
			SessionID:  sessionID,
			ContactID:  contactID,
			Status:     model.StatusPending,
			AssignedAt: time.Now(),
		}
	}
	return nil
}

func (m *memStore) GetAssignment(id int) (*model.Assignment, error) {
	a, ok := m.assignments[id]
	if !ok {
		return nil, appErrors.NewAssignmentNotFound(id)
	}
	cp := *a
	return &cp, nil
}

func (m *memStore) withContact(a *model.Assignment) *model.AssignmentWithContact {
	c := m.contacts[a.ContactID]
	return &model.AssignmentWithContact{
		Assignment: *a,
		Phone:      c.Phone,
		FirstName:  c.FirstName,
		LastName:   c.LastName,
		City:       c.City,
	}
}

func (m *memStore) GetAssignmentWithContact(id int) (*model.AssignmentWithContact, error) {
	a, ok := m.assignments[id]
	if !ok {
		return nil, appErrors.NewAssignmentNotFound(id)
	}
	return m.withContact(a), nil
}

func (m *memStore) sortedAssignments() []*model.Assignment {
	ids := make([]int, 0, len(m.assignments))
	for id := range m.assignments {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]*model.Assignment, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.assignments[id])
	}
	return out
}

func (m *memStore) AssignmentsByStatus(volunteerID int, statuses ...model.AssignmentStatus) ([]*model.Assignment, error) {
	out := []*model.Assignment{}
	for _, a := range m.sortedAssignments() {
		if a.VolunteerID == nil || *a.VolunteerID != volunteerID {
			continue
		}
		for _, s := range statuses {
			if a.Status == s {
				cp := *a
				out = append(out, &cp)
				break
			}
		}
	}
	return out, nil
}

func (m *memStore) ActiveLoad(volunteerID int) (int, error) {
	count := 0
	for _, a := range m.assignments {
		if a.VolunteerID != nil && *a.VolunteerID == volunteerID {
			switch a.Status {
			case model.StatusPending, model.StatusSent, model.StatusInConversation:
				count++
			}
		}
	}
	return count, nil
}

func (m *memStore) UnassignedPending(sessionID int, limit int) ([]int, error) {
	ids := []int{}
	for _, a := range m.sortedAssignments() {
		if a.SessionID == sessionID && a.VolunteerID == nil && a.Status == model.StatusPending {
			ids = append(ids, a.ID)
			if limit > 0 && len(ids) == limit {
				break
			}
		}
	}
	return ids, nil
}

func (m *memStore) SetOwner(assignmentID, volunteerID int) error {
	if a, ok := m.assignments[assignmentID]; ok {
		v := volunteerID
		a.VolunteerID = &v
	}
	return nil
}

func (m *memStore) Reassign(assignmentID, toVolunteerID, fromVolunteerID int) error {
	a, ok := m.assignments[assignmentID]
	if !ok {
		return appErrors.NewAssignmentNotFound(assignmentID)
	}
	to := toVolunteerID
	a.VolunteerID = &to
	if a.OriginalVolunteerID == nil {
		from := fromVolunteerID
		a.OriginalVolunteerID = &from
	}
	return nil
}

func (m *memStore) SnapBack(sessionID, volunteerID int) error {
	for _, a := range m.assignments {
		if a.SessionID != sessionID {
			continue
		}
		if a.OriginalVolunteerID != nil && *a.OriginalVolunteerID == volunteerID &&
			(a.Status == model.StatusSent || a.Status == model.StatusInConversation) {
			v := volunteerID
			a.VolunteerID = &v
		}
	}
	for _, a := range m.assignments {
		if a.SessionID == sessionID && a.VolunteerID != nil && *a.VolunteerID == volunteerID {
			a.OriginalVolunteerID = nil
		}
	}
	return nil
}

func (m *memStore) NextPending(volunteerID int) (*model.AssignmentWithContact, error) {
	for _, a := range m.sortedAssignments() {
		if a.VolunteerID != nil && *a.VolunteerID == volunteerID && a.Status == model.StatusPending {
			return m.withContact(a), nil
		}
	}
	return nil, nil
}

func (m *memStore) ActiveConversations(volunteerID int) ([]*model.AssignmentWithContact, error) {
	out := []*model.AssignmentWithContact{}
	for _, a := range m.sortedAssignments() {
		if a.VolunteerID != nil && *a.VolunteerID == volunteerID && a.Status == model.StatusInConversation {
			out = append(out, m.withContact(a))
		}
	}
	return out, nil
}

func (m *memStore) transition(assignmentID int, to model.AssignmentStatus, from ...model.AssignmentStatus) error {
	a, ok := m.assignments[assignmentID]
	if !ok {
		return appErrors.NewAssignmentNotFound(assignmentID)
	}
	for _, f := range from {
		if a.Status == f {
			a.Status = to
			return nil
		}
	}
	return appErrors.NewInvalidTransition(assignmentID, string(a.Status), string(to))
}

func (m *memStore) MarkSent(assignmentID int) error {
	if err := m.transition(assignmentID, model.StatusSent, model.StatusPending); err != nil {
		return err
	}
	now := time.Now()
	m.assignments[assignmentID].SentAt = &now
	return nil
}

func (m *memStore) MarkInConversation(assignmentID int) error {
	return m.transition(assignmentID, model.StatusInConversation, model.StatusSent, model.StatusInConversation)
}

func (m *memStore) MarkCompleted(assignmentID int) error {
	if err := m.transition(assignmentID, model.StatusCompleted,
		model.StatusPending, model.StatusSent, model.StatusInConversation); err != nil {
		return err
	}
	now := time.Now()
	m.assignments[assignmentID].CompletedAt = &now
	return nil
}

func (m *memStore) MarkSkipped(assignmentID int) error {
	return m.transition(assignmentID, model.StatusSkipped, model.StatusPending, model.StatusSent)
}

func (m *memStore) MatchInbound(phone string) (*model.Assignment, error) {
	var best *model.Assignment
	for _, a := range m.sortedAssignments() {
		if a.Status != model.StatusSent && a.Status != model.StatusInConversation {
			continue
		}
		session, ok := m.sessions[a.SessionID]
		if !ok || session.Status != "active" {
			continue
		}
		if m.contacts[a.ContactID].Phone != phone {
			continue
		}
		if best == nil || moreRecentlySent(a, best) {
			best = a
		}
	}
	if best == nil {
		return nil, nil
	}
	cp := *best
	return &cp, nil
}

func moreRecentlySent(a, b *model.Assignment) bool {
	switch {
	case a.SentAt == nil:
		return false
	case b.SentAt == nil:
		return true
	case a.SentAt.Equal(*b.SentAt):
		return a.ID > b.ID
	default:
		return a.SentAt.After(*b.SentAt)
	}
}

var _ repository.P2PStoreInterface = (*memStore)(nil)

// mockMessageRepo records messages and activity in memory.
type mockMessageRepo struct {
	messages []model.Message
	activity []string
}

func (m *mockMessageRepo) Record(msg *model.Message) error {
	msg.ID = len(m.messages) + 1
	msg.Timestamp = time.Now()
	m.messages = append(m.messages, *msg)
	return nil
}

func (m *mockMessageRepo) ListInbound(limit int) ([]model.Message, error) {
	out := []model.Message{}
	for _, msg := range m.messages {
		if msg.Direction == "inbound" {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (m *mockMessageRepo) ListConversation(phone string, sessionID int) ([]model.Message, error) {
	out := []model.Message{}
	for _, msg := range m.messages {
		if msg.Phone == phone && msg.SessionID != nil && *msg.SessionID == sessionID {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (m *mockMessageRepo) LogActivity(message string) error {
	m.activity = append(m.activity, message)
	return nil
}

var _ repository.MessageRepositoryInterface = (*mockMessageRepo)(nil)

// mockContactRepo serves contacts from a map and tracks opt-outs.
type mockContactRepo struct {
	contacts map[int]model.Contact
	optedOut map[string]bool
}

func newMockContactRepo() *mockContactRepo {
	return &mockContactRepo{contacts: map[int]model.Contact{}, optedOut: map[string]bool{}}
}

func (m *mockContactRepo) GetByID(id int) (*model.Contact, error) {
	if c, ok := m.contacts[id]; ok {
		return &c, nil
	}
	return nil, nil
}

func (m *mockContactRepo) GetByIDs(ids []int) ([]model.Contact, error) {
	out := []model.Contact{}
	for _, id := range ids {
		if c, ok := m.contacts[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockContactRepo) ListAll() ([]model.Contact, error) {
	out := []model.Contact{}
	for _, c := range m.contacts {
		out = append(out, c)
	}
	return out, nil
}

func (m *mockContactRepo) Create(c *model.Contact) error {
	c.ID = len(m.contacts) + 1
	m.contacts[c.ID] = *c
	return nil
}

func (m *mockContactRepo) Import(contacts []model.Contact) (int, error) {
	added := 0
	for _, c := range contacts {
		if c.Phone == "" {
			continue
		}
		m.Create(&c)
		added++
	}
	return added, nil
}

func (m *mockContactRepo) Delete(id int) error {
	delete(m.contacts, id)
	return nil
}

func (m *mockContactRepo) DeleteAll() error {
	m.contacts = map[int]model.Contact{}
	return nil
}

func (m *mockContactRepo) IsOptedOut(phone string) (bool, error) {
	return m.optedOut[phone], nil
}

func (m *mockContactRepo) OptOut(phone string) error {
	m.optedOut[phone] = true
	return nil
}

func (m *mockContactRepo) ListOptOuts() ([]string, error) {
	out := []string{}
	for phone := range m.optedOut {
		out = append(out, phone)
	}
	return out, nil
}

var _ repository.ContactRepositoryInterface = (*mockContactRepo)(nil)
