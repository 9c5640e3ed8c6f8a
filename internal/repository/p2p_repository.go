package repository

import (
    "database/sql"
    "fmt"
    "strings"
    "time"

    appErrors "github.com/fieldops/campaigntext-backend/internal/errors"
    "github.com/fieldops/campaigntext-backend/internal/model"
)

// P2PStoreInterface is the persistence contract for the texting engine.
// Compound operations (join, offline, online, batch create) run through Tx so
// concurrent triggers on the same session serialize instead of interleaving.
type P2PStoreInterface interface {
    Tx(fn func(P2PStoreInterface) error) error

    // Sessions
    CreateSession(s *model.Session) error
    GetSession(id int) (*model.Session, error)
    GetSessionByCode(code string) (*model.Session, error)
    ListSessions() ([]*model.Session, error)
    UpdateSessionStatus(id int, status string) error
    UpdateSessionMode(id int, mode string) error
    DeleteSession(id int) error
    CloseExpiredSessions(now time.Time) (int, error)
    SessionStats(sessionID int) (*SessionStats, error)

    // Volunteers
    CreateVolunteer(v *model.Volunteer) error
    GetVolunteer(id int) (*model.Volunteer, error)
    GetVolunteerByName(sessionID int, name string) (*model.Volunteer, error)
    ListVolunteers(sessionID int) ([]*model.Volunteer, error)
    OnlineVolunteers(sessionID int) ([]*model.Volunteer, error)
    SetVolunteerOnline(id int, online bool) error
    VolunteerStats(volunteerID int) (*VolunteerStats, error)

    // Assignments
    CreateAssignments(sessionID int, contactIDs []int) error
    GetAssignment(id int) (*model.Assignment, error)
    GetAssignmentWithContact(id int) (*model.AssignmentWithContact, error)
    AssignmentsByStatus(volunteerID int, statuses ...model.AssignmentStatus) ([]*model.Assignment, error)
    ActiveLoad(volunteerID int) (int, error)
    UnassignedPending(sessionID int, limit int) ([]int, error)
    SetOwner(assignmentID, volunteerID int) error
    Reassign(assignmentID, toVolunteerID, fromVolunteerID int) error
    SnapBack(sessionID, volunteerID int) error
    NextPending(volunteerID int) (*model.AssignmentWithContact, error)
    ActiveConversations(volunteerID int) ([]*model.AssignmentWithContact, error)
    MarkSent(assignmentID int) error
    MarkInConversation(assignmentID int) error
    MarkCompleted(assignmentID int) error
    MarkSkipped(assignmentID int) error
    MatchInbound(phone string) (*model.Assignment, error)
}

// SessionStats are the aggregate progress counters shown on the admin view.
type SessionStats struct {
    TotalContacts  int `json:"totalContacts"`
    TotalSent      int `json:"totalSent"`
    TotalReplies   int `json:"totalReplies"`
    Remaining      int `json:"remaining"`
    VolunteerCount int `json:"volunteerCount"`
    OnlineCount    int `json:"onlineCount"`
}

type VolunteerStats struct {
    Total       int `json:"total"`
    Sent        int `json:"sent"`
    Remaining   int `json:"remaining"`
    ActiveChats int `json:"activeChats"`
}

type dbtx interface {
    Exec(query string, args ...any) (sql.Result, error)
    Query(query string, args ...any) (*sql.Rows, error)
    QueryRow(query string, args ...any) *sql.Row
}

type P2PStore struct {
    DB *sql.DB
    q  dbtx
}

func NewP2PStore(db *sql.DB) *P2PStore {
    return &P2PStore{DB: db, q: db}
}

// Tx runs fn against a store bound to a single transaction. A nested call
// just reuses the enclosing transaction.
func (r *P2PStore) Tx(fn func(P2PStoreInterface) error) error {
    if r.DB == nil {
        return fn(r)
    }
    tx, err := r.DB.Begin()
    if err != nil {
        return err
    }
    if err := fn(&P2PStore{q: tx}); err != nil {
        tx.Rollback()
        return err
    }
    return tx.Commit()
}

// ====================== Sessions ======================

func (r *P2PStore) CreateSession(s *model.Session) error {
    s.CreatedAt = time.Now()
    if s.Status == "" {
        s.Status = "active"
    }
    if s.AssignmentMode == "" {
        s.AssignmentMode = model.ModeAutoSplit
    }
    query := `
        INSERT INTO p2p_sessions (name, message_template, assignment_mode, join_code, status, code_expires_at, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id
    `
    return r.q.QueryRow(query, s.Name, s.MessageTemplate, s.AssignmentMode, s.JoinCode, s.Status, s.CodeExpiresAt, s.CreatedAt).Scan(&s.ID)
}

func scanSession(row *sql.Row) (*model.Session, error) {
    var s model.Session
    err := row.Scan(&s.ID, &s.Name, &s.MessageTemplate, &s.AssignmentMode, &s.JoinCode, &s.Status, &s.CodeExpiresAt, &s.CreatedAt)
    if err != nil {
        return nil, err
    }
    return &s, nil
}

const sessionColumns = `id, name, message_template, assignment_mode, join_code, status, code_expires_at, created_at`

func (r *P2PStore) GetSession(id int) (*model.Session, error) {
    s, err := scanSession(r.q.QueryRow(`SELECT `+sessionColumns+` FROM p2p_sessions WHERE id=$1`, id))
    if err == sql.ErrNoRows {
        return nil, appErrors.NewSessionNotFound(id)
    }
    return s, err
}

// GetSessionByCode resolves the newest active session for a join code. Code
// generation does not enforce uniqueness, so a collision prefers the session
// created last.
func (r *P2PStore) GetSessionByCode(code string) (*model.Session, error) {
    s, err := scanSession(r.q.QueryRow(
        `SELECT `+sessionColumns+` FROM p2p_sessions WHERE join_code=$1 AND status='active' ORDER BY id DESC LIMIT 1`, code))
    if err == sql.ErrNoRows {
        return nil, appErrors.NewJoinCodeInvalid(code)
    }
    return s, err
}

func (r *P2PStore) ListSessions() ([]*model.Session, error) {
    rows, err := r.q.Query(`SELECT ` + sessionColumns + ` FROM p2p_sessions ORDER BY id DESC`)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    sessions := []*model.Session{}
    for rows.Next() {
        s := &model.Session{}
        if err := rows.Scan(&s.ID, &s.Name, &s.MessageTemplate, &s.AssignmentMode, &s.JoinCode, &s.Status, &s.CodeExpiresAt, &s.CreatedAt); err != nil {
            return nil, err
        }
        sessions = append(sessions, s)
    }
    return sessions, rows.Err()
}

func (r *P2PStore) UpdateSessionStatus(id int, status string) error {
    _, err := r.q.Exec(`UPDATE p2p_sessions SET status=$1 WHERE id=$2`, status, id)
    return err
}

func (r *P2PStore) UpdateSessionMode(id int, mode string) error {
    _, err := r.q.Exec(`UPDATE p2p_sessions SET assignment_mode=$1 WHERE id=$2`, mode, id)
    return err
}

func (r *P2PStore) DeleteSession(id int) error {
    res, err := r.q.Exec(`DELETE FROM p2p_sessions WHERE id=$1`, id)
    if err != nil {
        return err
    }
    if n, _ := res.RowsAffected(); n == 0 {
        return appErrors.NewSessionNotFound(id)
    }
    return nil
}

func (r *P2PStore) CloseExpiredSessions(now time.Time) (int, error) {
    res, err := r.q.Exec(`UPDATE p2p_sessions SET status='closed' WHERE status='active' AND code_expires_at < $1`, now)
    if err != nil {
        return 0, err
    }
    n, _ := res.RowsAffected()
    return int(n), nil
}

func (r *P2PStore) SessionStats(sessionID int) (*SessionStats, error) {
    stats := &SessionStats{}
    err := r.q.QueryRow(`
        SELECT
            COUNT(*),
            COUNT(*) FILTER (WHERE status IN ('sent', 'in_conversation', 'completed')),
            COUNT(*) FILTER (WHERE status = 'in_conversation'),
            COUNT(*) FILTER (WHERE status = 'pending')
        FROM p2p_assignments WHERE session_id=$1
    `, sessionID).Scan(&stats.TotalContacts, &stats.TotalSent, &stats.TotalReplies, &stats.Remaining)
    if err != nil {
        return nil, err
    }
    err = r.q.QueryRow(`
        SELECT COUNT(*), COUNT(*) FILTER (WHERE is_online)
        FROM p2p_volunteers WHERE session_id=$1
    `, sessionID).Scan(&stats.VolunteerCount, &stats.OnlineCount)
    if err != nil {
        return nil, err
    }
    return stats, nil
}

// ====================== Volunteers ======================

const volunteerColumns = `id, session_id, name, is_online, joined_at`

func (r *P2PStore) CreateVolunteer(v *model.Volunteer) error {
    v.JoinedAt = time.Now()
    v.IsOnline = true
    query := `
        INSERT INTO p2p_volunteers (session_id, name, is_online, joined_at)
        VALUES ($1, $2, TRUE, $3)
        RETURNING id
    `
    return r.q.QueryRow(query, v.SessionID, v.Name, v.JoinedAt).Scan(&v.ID)
}

func scanVolunteer(row *sql.Row) (*model.Volunteer, error) {
    var v model.Volunteer
    err := row.Scan(&v.ID, &v.SessionID, &v.Name, &v.IsOnline, &v.JoinedAt)
    if err != nil {
        return nil, err
    }
    return &v, nil
}

func (r *P2PStore) GetVolunteer(id int) (*model.Volunteer, error) {
    v, err := scanVolunteer(r.q.QueryRow(`SELECT `+volunteerColumns+` FROM p2p_volunteers WHERE id=$1`, id))
    if err == sql.ErrNoRows {
        return nil, appErrors.NewVolunteerNotFound(id)
    }
    return v, err
}

func (r *P2PStore) GetVolunteerByName(sessionID int, name string) (*model.Volunteer, error) {
    v, err := scanVolunteer(r.q.QueryRow(
        `SELECT `+volunteerColumns+` FROM p2p_volunteers WHERE session_id=$1 AND name=$2`, sessionID, name))
    if err == sql.ErrNoRows {
        return nil, nil // first join with this name
    }
    return v, err
}

func (r *P2PStore) listVolunteers(query string, args ...any) ([]*model.Volunteer, error) {
    rows, err := r.q.Query(query, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    vols := []*model.Volunteer{}
    for rows.Next() {
        v := &model.Volunteer{}
        if err := rows.Scan(&v.ID, &v.SessionID, &v.Name, &v.IsOnline, &v.JoinedAt); err != nil {
            return nil, err
        }
        vols = append(vols, v)
    }
    return vols, rows.Err()
}

func (r *P2PStore) ListVolunteers(sessionID int) ([]*model.Volunteer, error) {
    return r.listVolunteers(`SELECT `+volunteerColumns+` FROM p2p_volunteers WHERE session_id=$1 ORDER BY id`, sessionID)
}

func (r *P2PStore) OnlineVolunteers(sessionID int) ([]*model.Volunteer, error) {
    return r.listVolunteers(`SELECT `+volunteerColumns+` FROM p2p_volunteers WHERE session_id=$1 AND is_online ORDER BY id`, sessionID)
}

func (r *P2PStore) SetVolunteerOnline(id int, online bool) error {
    res, err := r.q.Exec(`UPDATE p2p_volunteers SET is_online=$1 WHERE id=$2`, online, id)
    if err != nil {
        return err
    }
    if n, _ := res.RowsAffected(); n == 0 {
        return appErrors.NewVolunteerNotFound(id)
    }
    return nil
}

func (r *P2PStore) VolunteerStats(volunteerID int) (*VolunteerStats, error) {
    stats := &VolunteerStats{}
    err := r.q.QueryRow(`
        SELECT
            COUNT(*),
            COUNT(*) FILTER (WHERE status IN ('sent', 'in_conversation', 'completed')),
            COUNT(*) FILTER (WHERE status = 'pending'),
            COUNT(*) FILTER (WHERE status = 'in_conversation')
        FROM p2p_assignments WHERE volunteer_id=$1
    `, volunteerID).Scan(&stats.Total, &stats.Sent, &stats.Remaining, &stats.ActiveChats)
    if err != nil {
        return nil, err
    }
    return stats, nil
}

// ====================== Assignments ======================

const assignmentColumns = `id, session_id, volunteer_id, contact_id, status, original_volunteer_id, assigned_at, sent_at, completed_at`

// CreateAssignments bulk-enqueues one pending assignment per contact. Callers
// wrap it in Tx together with session creation so a partial batch never lands.
func (r *P2PStore) CreateAssignments(sessionID int, contactIDs []int) error {
    for _, contactID := range contactIDs {
        _, err := r.q.Exec(
            `INSERT INTO p2p_assignments (session_id, contact_id, status) VALUES ($1, $2, 'pending')`,
            sessionID, contactID,
        )
        if err != nil {
            return err
        }
    }
    return nil
}

func scanAssignment(row *sql.Row) (*model.Assignment, error) {
    var a model.Assignment
    err := row.Scan(&a.ID, &a.SessionID, &a.VolunteerID, &a.ContactID, &a.Status, &a.OriginalVolunteerID, &a.AssignedAt, &a.SentAt, &a.CompletedAt)
    if err != nil {
        return nil, err
    }
    return &a, nil
}

func (r *P2PStore) GetAssignment(id int) (*model.Assignment, error) {
    a, err := scanAssignment(r.q.QueryRow(`SELECT `+assignmentColumns+` FROM p2p_assignments WHERE id=$1`, id))
    if err == sql.ErrNoRows {
        return nil, appErrors.NewAssignmentNotFound(id)
    }
    return a, err
}

func (r *P2PStore) GetAssignmentWithContact(id int) (*model.AssignmentWithContact, error) {
    query := `
        SELECT a.id, a.session_id, a.volunteer_id, a.contact_id, a.status, a.original_volunteer_id,
               a.assigned_at, a.sent_at, a.completed_at, c.phone, c.first_name, c.last_name, c.city
        FROM p2p_assignments a
        JOIN contacts c ON a.contact_id = c.id
        WHERE a.id=$1
    `
    var a model.AssignmentWithContact
    err := r.q.QueryRow(query, id).Scan(
        &a.ID, &a.SessionID, &a.VolunteerID, &a.ContactID, &a.Status, &a.OriginalVolunteerID,
        &a.AssignedAt, &a.SentAt, &a.CompletedAt, &a.Phone, &a.FirstName, &a.LastName, &a.City,
    )
    if err == sql.ErrNoRows {
        return nil, appErrors.NewAssignmentNotFound(id)
    }
    if err != nil {
        return nil, err
    }
    return &a, nil
}

func statusPlaceholders(statuses []model.AssignmentStatus, startPos int) (string, []any) {
    parts := make([]string, len(statuses))
    args := make([]any, len(statuses))
    for i, s := range statuses {
        parts[i] = fmt.Sprintf("$%d", startPos+i)
        args[i] = string(s)
    }
    return strings.Join(parts, ", "), args
}

func (r *P2PStore) AssignmentsByStatus(volunteerID int, statuses ...model.AssignmentStatus) ([]*model.Assignment, error) {
    in, args := statusPlaceholders(statuses, 2)
    query := `SELECT ` + assignmentColumns + ` FROM p2p_assignments WHERE volunteer_id=$1 AND status IN (` + in + `) ORDER BY id`
    rows, err := r.q.Query(query, append([]any{volunteerID}, args...)...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    list := []*model.Assignment{}
    for rows.Next() {
        a := &model.Assignment{}
        if err := rows.Scan(&a.ID, &a.SessionID, &a.VolunteerID, &a.ContactID, &a.Status, &a.OriginalVolunteerID, &a.AssignedAt, &a.SentAt, &a.CompletedAt); err != nil {
            return nil, err
        }
        list = append(list, a)
    }
    return list, rows.Err()
}

// ActiveLoad counts pending + sent + in_conversation for least-loaded routing.
func (r *P2PStore) ActiveLoad(volunteerID int) (int, error) {
    var count int
    err := r.q.QueryRow(
        `SELECT COUNT(*) FROM p2p_assignments WHERE volunteer_id=$1 AND status IN ('pending', 'sent', 'in_conversation')`,
        volunteerID,
    ).Scan(&count)
    return count, err
}

// UnassignedPending lists the unowned pool in creation order. A limit <= 0
// means the whole pool.
func (r *P2PStore) UnassignedPending(sessionID int, limit int) ([]int, error) {
    query := `SELECT id FROM p2p_assignments WHERE session_id=$1 AND volunteer_id IS NULL AND status='pending' ORDER BY id`
    args := []any{sessionID}
    if limit > 0 {
        query += ` LIMIT $2`
        args = append(args, limit)
    }
    rows, err := r.q.Query(query, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    ids := []int{}
    for rows.Next() {
        var id int
        if err := rows.Scan(&id); err != nil {
            return nil, err
        }
        ids = append(ids, id)
    }
    return ids, rows.Err()
}

func (r *P2PStore) SetOwner(assignmentID, volunteerID int) error {
    _, err := r.q.Exec(`UPDATE p2p_assignments SET volunteer_id=$1 WHERE id=$2`, volunteerID, assignmentID)
    return err
}

// Reassign moves ownership and remembers the departing volunteer on the first
// hop only (COALESCE leaves an earlier original owner in place).
func (r *P2PStore) Reassign(assignmentID, toVolunteerID, fromVolunteerID int) error {
    _, err := r.q.Exec(
        `UPDATE p2p_assignments SET volunteer_id=$1, original_volunteer_id=COALESCE(original_volunteer_id, $2) WHERE id=$3`,
        toVolunteerID, fromVolunteerID, assignmentID,
    )
    return err
}

// SnapBack returns conversations marked for the returning volunteer and then
// clears the provenance marker on everything they now own.
func (r *P2PStore) SnapBack(sessionID, volunteerID int) error {
    _, err := r.q.Exec(
        `UPDATE p2p_assignments SET volunteer_id=$1 WHERE original_volunteer_id=$1 AND session_id=$2 AND status IN ('sent', 'in_conversation')`,
        volunteerID, sessionID,
    )
    if err != nil {
        return err
    }
    _, err = r.q.Exec(
        `UPDATE p2p_assignments SET original_volunteer_id=NULL WHERE volunteer_id=$1 AND session_id=$2`,
        volunteerID, sessionID,
    )
    return err
}

func (r *P2PStore) NextPending(volunteerID int) (*model.AssignmentWithContact, error) {
    query := `
        SELECT a.id, a.session_id, a.volunteer_id, a.contact_id, a.status, a.original_volunteer_id,
               a.assigned_at, a.sent_at, a.completed_at, c.phone, c.first_name, c.last_name, c.city
        FROM p2p_assignments a
        JOIN contacts c ON a.contact_id = c.id
        WHERE a.volunteer_id=$1 AND a.status='pending'
        ORDER BY a.id ASC LIMIT 1
    `
    var a model.AssignmentWithContact
    err := r.q.QueryRow(query, volunteerID).Scan(
        &a.ID, &a.SessionID, &a.VolunteerID, &a.ContactID, &a.Status, &a.OriginalVolunteerID,
        &a.AssignedAt, &a.SentAt, &a.CompletedAt, &a.Phone, &a.FirstName, &a.LastName, &a.City,
    )
    if err == sql.ErrNoRows {
        return nil, nil // queue drained
    }
    if err != nil {
        return nil, err
    }
    return &a, nil
}

func (r *P2PStore) ActiveConversations(volunteerID int) ([]*model.AssignmentWithContact, error) {
    query := `
        SELECT a.id, a.session_id, a.volunteer_id, a.contact_id, a.status, a.original_volunteer_id,
               a.assigned_at, a.sent_at, a.completed_at, c.phone, c.first_name, c.last_name, c.city
        FROM p2p_assignments a
        JOIN contacts c ON a.contact_id = c.id
        WHERE a.volunteer_id=$1 AND a.status='in_conversation'
        ORDER BY a.id ASC
    `
    rows, err := r.q.Query(query, volunteerID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    list := []*model.AssignmentWithContact{}
    for rows.Next() {
        a := &model.AssignmentWithContact{}
        if err := rows.Scan(
            &a.ID, &a.SessionID, &a.VolunteerID, &a.ContactID, &a.Status, &a.OriginalVolunteerID,
            &a.AssignedAt, &a.SentAt, &a.CompletedAt, &a.Phone, &a.FirstName, &a.LastName, &a.City,
        ); err != nil {
            return nil, err
        }
        list = append(list, a)
    }
    return list, rows.Err()
}

// transition performs a status-guarded update and distinguishes "row missing"
// from "not in an allowed source state".
func (r *P2PStore) transition(assignmentID int, to model.AssignmentStatus, from []model.AssignmentStatus, setClause string) error {
    in, args := statusPlaceholders(from, 2)
    query := `UPDATE p2p_assignments SET status=$1` + setClause + ` WHERE id=$` + fmt.Sprint(len(from)+2) + ` AND status IN (` + in + `)`
    res, err := r.q.Exec(query, append(append([]any{string(to)}, args...), assignmentID)...)
    if err != nil {
        return err
    }
    if n, _ := res.RowsAffected(); n == 0 {
        current, err := r.GetAssignment(assignmentID)
        if err != nil {
            return err
        }
        return appErrors.NewInvalidTransition(assignmentID, string(current.Status), string(to))
    }
    return nil
}

func (r *P2PStore) MarkSent(assignmentID int) error {
    return r.transition(assignmentID, model.StatusSent, []model.AssignmentStatus{model.StatusPending}, `, sent_at=NOW()`)
}

func (r *P2PStore) MarkInConversation(assignmentID int) error {
    // in_conversation never reverts to sent, so it is an allowed no-op source
    return r.transition(assignmentID, model.StatusInConversation,
        []model.AssignmentStatus{model.StatusSent, model.StatusInConversation}, ``)
}

func (r *P2PStore) MarkCompleted(assignmentID int) error {
    return r.transition(assignmentID, model.StatusCompleted,
        []model.AssignmentStatus{model.StatusPending, model.StatusSent, model.StatusInConversation}, `, completed_at=NOW()`)
}

func (r *P2PStore) MarkSkipped(assignmentID int) error {
    return r.transition(assignmentID, model.StatusSkipped,
        []model.AssignmentStatus{model.StatusPending, model.StatusSent}, ``)
}

// MatchInbound finds the most recently sent assignment for a phone number in
// an active session, still awaiting or holding a conversation.
func (r *P2PStore) MatchInbound(phone string) (*model.Assignment, error) {
    query := `
        SELECT a.id, a.session_id, a.volunteer_id, a.contact_id, a.status, a.original_volunteer_id,
               a.assigned_at, a.sent_at, a.completed_at
        FROM p2p_assignments a
        JOIN contacts c ON a.contact_id = c.id
        JOIN p2p_sessions s ON a.session_id = s.id
        WHERE c.phone=$1 AND s.status='active' AND a.status IN ('sent', 'in_conversation')
        ORDER BY a.sent_at DESC NULLS LAST, a.id DESC
        LIMIT 1
    `
    a, err := scanAssignment(r.q.QueryRow(query, phone))
    if err == sql.ErrNoRows {
        return nil, nil // ordinary inbound, not part of any session
    }
    return a, err
}

var _ P2PStoreInterface = (*P2PStore)(nil)
