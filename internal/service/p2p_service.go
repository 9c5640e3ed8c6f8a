// internal/service/p2p_service.go
package service

import (
    "fmt"
    "log"
    "math/rand"
    "time"

    appErrors "github.com/fieldops/campaigntext-backend/internal/errors"
    "github.com/fieldops/campaigntext-backend/internal/model"
    "github.com/fieldops/campaigntext-backend/internal/repository"
)

// topUpBatchSize caps how many fresh pending assignments a returning
// volunteer picks up after snap-back.
const topUpBatchSize = 20

const joinCodeTTL = 7 * 24 * time.Hour

type P2PService struct {
    Store       repository.P2PStoreInterface
    MessageRepo repository.MessageRepositoryInterface
}

// GenerateJoinCode returns a short numeric code. Uniqueness across still-valid
// sessions is not enforced; joins resolve a collision to the newest session.
func GenerateJoinCode() string {
    return fmt.Sprintf("%d", 1000+rand.Intn(9000))
}

// ====================== Session Controller ======================

func (s *P2PService) CreateSession(name, messageTemplate, assignmentMode string, contactIDs []int) (*model.Session, error) {
    if name == "" || messageTemplate == "" {
        return nil, appErrors.NewValidation("name and message template required")
    }
    if len(contactIDs) == 0 {
        return nil, appErrors.NewValidation("select contacts to text")
    }
    if assignmentMode == "" {
        assignmentMode = model.ModeAutoSplit
    }
    if assignmentMode != model.ModeAutoSplit && assignmentMode != model.ModeClaim {
        return nil, appErrors.NewValidation("assignment_mode must be auto_split or claim")
    }

    session := &model.Session{
        Name:            name,
        MessageTemplate: messageTemplate,
        AssignmentMode:  assignmentMode,
        JoinCode:        GenerateJoinCode(),
        Status:          "active",
        CodeExpiresAt:   time.Now().Add(joinCodeTTL),
    }

    // Session row and the pending batch land together or not at all.
    err := s.Store.Tx(func(store repository.P2PStoreInterface) error {
        if err := store.CreateSession(session); err != nil {
            return err
        }
        return store.CreateAssignments(session.ID, contactIDs)
    })
    if err != nil {
        return nil, err
    }

    s.logActivity(fmt.Sprintf("P2P session created: %s (%d contacts)", name, len(contactIDs)))
    return session, nil
}

// JoinResult is what a volunteer needs to start texting.
type JoinResult struct {
    VolunteerID int    `json:"volunteerId"`
    SessionID   int    `json:"sessionId"`
    SessionName string `json:"sessionName"`
}

// Join signs a volunteer into a session by code. A returning name goes back
// online with snap-back + top-up; a new name gets an auto_split share.
func (s *P2PService) Join(name, code string) (*JoinResult, error) {
    if name == "" || code == "" {
        return nil, appErrors.NewValidation("name and join code required")
    }

    session, err := s.Store.GetSessionByCode(code)
    if err != nil {
        return nil, err
    }
    if time.Now().After(session.CodeExpiresAt) {
        return nil, appErrors.NewJoinCodeExpired(code)
    }

    var volunteer *model.Volunteer
    err = s.Store.Tx(func(store repository.P2PStoreInterface) error {
        var err error
        volunteer, err = store.GetVolunteerByName(session.ID, name)
        if err != nil {
            return err
        }

        if volunteer != nil {
            if err := store.SetVolunteerOnline(volunteer.ID, true); err != nil {
                return err
            }
            if err := store.SnapBack(session.ID, volunteer.ID); err != nil {
                return err
            }
            return s.topUp(store, session.ID, volunteer.ID)
        }

        volunteer = &model.Volunteer{SessionID: session.ID, Name: name}
        if err := store.CreateVolunteer(volunteer); err != nil {
            return err
        }

        if session.AssignmentMode == model.ModeAutoSplit {
            return s.autoSplitShare(store, session.ID, volunteer.ID)
        }
        return nil
    })
    if err != nil {
        return nil, err
    }

    s.logActivity(fmt.Sprintf("%s joined P2P session: %s", name, session.Name))
    return &JoinResult{VolunteerID: volunteer.ID, SessionID: session.ID, SessionName: session.Name}, nil
}

// autoSplitShare hands the joiner an even share of the unowned pending pool:
// ceil(pool / online). Earlier joiners' queues are not rebalanced.
func (s *P2PService) autoSplitShare(store repository.P2PStoreInterface, sessionID, volunteerID int) error {
    pool, err := store.UnassignedPending(sessionID, -1)
    if err != nil {
        return err
    }
    online, err := store.OnlineVolunteers(sessionID)
    if err != nil {
        return err
    }
    onlineCount := len(online)
    if onlineCount < 1 {
        onlineCount = 1
    }
    share := (len(pool) + onlineCount - 1) / onlineCount
    if share > len(pool) {
        share = len(pool)
    }
    for _, id := range pool[:share] {
        if err := store.SetOwner(id, volunteerID); err != nil {
            return err
        }
    }
    return nil
}

// SetVolunteerOnline toggles presence. Going offline redistributes the
// volunteer's work; coming back snaps conversations home and tops up. The
// flag flip and the reassignments commit as one unit.
func (s *P2PService) SetVolunteerOnline(volunteerID int, online bool) error {
    vol, err := s.Store.GetVolunteer(volunteerID)
    if err != nil {
        return err
    }

    return s.Store.Tx(func(store repository.P2PStoreInterface) error {
        if err := store.SetVolunteerOnline(volunteerID, online); err != nil {
            return err
        }
        if !online {
            return s.redistribute(store, vol.SessionID, volunteerID)
        }
        if err := store.SnapBack(vol.SessionID, volunteerID); err != nil {
            return err
        }
        return s.topUp(store, vol.SessionID, volunteerID)
    })
}

// ====================== Redistribution Engine ======================

// redistribute moves a departing volunteer's work to the remaining online
// volunteers: pending round-robin, active conversations each to whoever is
// least loaded at the moment of that move. With nobody online the queue
// stays put, stalled until someone returns.
func (s *P2PService) redistribute(store repository.P2PStoreInterface, sessionID, fromVolunteerID int) error {
    online, err := store.OnlineVolunteers(sessionID)
    if err != nil {
        return err
    }
    targets := excludeVolunteer(online, fromVolunteerID)
    if len(targets) == 0 {
        return nil
    }

    pending, err := store.AssignmentsByStatus(fromVolunteerID, model.StatusPending)
    if err != nil {
        return err
    }
    for i, a := range pending {
        target := targets[i%len(targets)]
        if err := store.Reassign(a.ID, target.ID, fromVolunteerID); err != nil {
            return err
        }
    }

    conversations, err := store.AssignmentsByStatus(fromVolunteerID, model.StatusSent, model.StatusInConversation)
    if err != nil {
        return err
    }
    for _, conv := range conversations {
        target, err := s.leastLoaded(store, targets)
        if err != nil {
            return err
        }
        if target == nil {
            break
        }
        if err := store.Reassign(conv.ID, target.ID, fromVolunteerID); err != nil {
            return err
        }
    }

    log.Printf("redistributed %d pending + %d conversations from volunteer %d", len(pending), len(conversations), fromVolunteerID)
    return nil
}

// leastLoaded recomputes load per call so consecutive conversation moves keep
// the session balanced. Ties resolve to the earliest-joined volunteer.
func (s *P2PService) leastLoaded(store repository.P2PStoreInterface, candidates []*model.Volunteer) (*model.Volunteer, error) {
    var best *model.Volunteer
    bestCount := -1
    for _, v := range candidates {
        count, err := store.ActiveLoad(v.ID)
        if err != nil {
            return nil, err
        }
        if best == nil || count < bestCount {
            best = v
            bestCount = count
        }
    }
    return best, nil
}

// topUp assigns up to topUpBatchSize unowned pending assignments.
func (s *P2PService) topUp(store repository.P2PStoreInterface, sessionID, volunteerID int) error {
    ids, err := store.UnassignedPending(sessionID, topUpBatchSize)
    if err != nil {
        return err
    }
    for _, id := range ids {
        if err := store.SetOwner(id, volunteerID); err != nil {
            return err
        }
    }
    return nil
}

func excludeVolunteer(vols []*model.Volunteer, id int) []*model.Volunteer {
    out := make([]*model.Volunteer, 0, len(vols))
    for _, v := range vols {
        if v.ID != id {
            out = append(out, v)
        }
    }
    return out
}

// ====================== Volunteer queue ======================

type QueueView struct {
    Assignment          *model.AssignmentWithContact   `json:"assignment"`
    ResolvedMessage     *string                        `json:"resolvedMessage"`
    ActiveConversations []*model.AssignmentWithContact `json:"activeConversations"`
    Stats               *repository.VolunteerStats     `json:"stats"`
    MessageTemplate     string                         `json:"messageTemplate"`
}

// Queue returns the volunteer's next pending assignment (pulling one from the
// unowned pool first in claim mode), their open conversations, and progress.
func (s *P2PService) Queue(volunteerID int) (*QueueView, error) {
    vol, err := s.Store.GetVolunteer(volunteerID)
    if err != nil {
        return nil, err
    }
    session, err := s.Store.GetSession(vol.SessionID)
    if err != nil {
        return nil, err
    }

    if session.AssignmentMode == model.ModeClaim {
        err := s.Store.Tx(func(store repository.P2PStoreInterface) error {
            ids, err := store.UnassignedPending(session.ID, 1)
            if err != nil {
                return err
            }
            if len(ids) == 1 {
                return store.SetOwner(ids[0], volunteerID)
            }
            return nil
        })
        if err != nil {
            return nil, err
        }
    }

    next, err := s.Store.NextPending(volunteerID)
    if err != nil {
        return nil, err
    }
    conversations, err := s.Store.ActiveConversations(volunteerID)
    if err != nil {
        return nil, err
    }
    stats, err := s.Store.VolunteerStats(volunteerID)
    if err != nil {
        return nil, err
    }

    view := &QueueView{
        Assignment:          next,
        ActiveConversations: conversations,
        Stats:               stats,
        MessageTemplate:     session.MessageTemplate,
    }
    if next != nil {
        resolved := RenderTemplate(session.MessageTemplate, map[string]string{
            "firstName": next.FirstName,
            "lastName":  next.LastName,
            "city":      next.City,
        })
        view.ResolvedMessage = &resolved
    }
    return view, nil
}

// ====================== Terminal transitions ======================

func (s *P2PService) Complete(assignmentID int) error {
    return s.Store.MarkCompleted(assignmentID)
}

func (s *P2PService) Skip(assignmentID int) error {
    return s.Store.MarkSkipped(assignmentID)
}

// ====================== Admin views ======================

type SessionSummary struct {
    model.Session
    repository.SessionStats
}

func (s *P2PService) ListSessions() ([]SessionSummary, error) {
    sessions, err := s.Store.ListSessions()
    if err != nil {
        return nil, err
    }
    summaries := make([]SessionSummary, 0, len(sessions))
    for _, sess := range sessions {
        stats, err := s.Store.SessionStats(sess.ID)
        if err != nil {
            return nil, err
        }
        summaries = append(summaries, SessionSummary{Session: *sess, SessionStats: *stats})
    }
    return summaries, nil
}

type VolunteerSummary struct {
    model.Volunteer
    repository.VolunteerStats
}

type SessionDetail struct {
    model.Session
    repository.SessionStats
    Volunteers []VolunteerSummary `json:"volunteers"`
}

func (s *P2PService) SessionDetail(sessionID int) (*SessionDetail, error) {
    session, err := s.Store.GetSession(sessionID)
    if err != nil {
        return nil, err
    }
    stats, err := s.Store.SessionStats(sessionID)
    if err != nil {
        return nil, err
    }
    vols, err := s.Store.ListVolunteers(sessionID)
    if err != nil {
        return nil, err
    }

    detail := &SessionDetail{Session: *session, SessionStats: *stats, Volunteers: []VolunteerSummary{}}
    for _, v := range vols {
        vstats, err := s.Store.VolunteerStats(v.ID)
        if err != nil {
            return nil, err
        }
        detail.Volunteers = append(detail.Volunteers, VolunteerSummary{Volunteer: *v, VolunteerStats: *vstats})
    }
    return detail, nil
}

func (s *P2PService) UpdateSession(sessionID int, status, assignmentMode *string) error {
    if _, err := s.Store.GetSession(sessionID); err != nil {
        return err
    }
    if status != nil {
        if err := s.Store.UpdateSessionStatus(sessionID, *status); err != nil {
            return err
        }
    }
    if assignmentMode != nil {
        if *assignmentMode != model.ModeAutoSplit && *assignmentMode != model.ModeClaim {
            return appErrors.NewValidation("assignment_mode must be auto_split or claim")
        }
        if err := s.Store.UpdateSessionMode(sessionID, *assignmentMode); err != nil {
            return err
        }
    }
    return nil
}

func (s *P2PService) DeleteSession(sessionID int) error {
    session, err := s.Store.GetSession(sessionID)
    if err != nil {
        return err
    }
    if err := s.Store.DeleteSession(sessionID); err != nil {
        return err
    }
    s.logActivity("P2P session deleted: " + session.Name)
    return nil
}

// ExpireStaleSessions closes active sessions whose join code lapsed. Run from
// the hourly sweep.
func (s *P2PService) ExpireStaleSessions() (int, error) {
    n, err := s.Store.CloseExpiredSessions(time.Now())
    if err != nil {
        return 0, err
    }
    if n > 0 {
        log.Printf("closed %d sessions with expired join codes", n)
    }
    return n, nil
}

func (s *P2PService) logActivity(msg string) {
    if s.MessageRepo == nil {
        return
    }
    if err := s.MessageRepo.LogActivity(msg); err != nil {
        log.Println("⚠️ failed to write activity log:", err)
    }
}
