package service_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	appErrors "github.com/fieldops/campaigntext-backend/internal/errors"
	"github.com/fieldops/campaigntext-backend/internal/model"
	"github.com/fieldops/campaigntext-backend/internal/service"
)

// seedSession creates a session with one pending assignment per contact,
// bypassing the service so tests control the join code and expiry.
func seedSession(store *memStore, mode string, contactCount int) *model.Session {
	session := &model.Session{
		Name:            "GOTV Weekend",
		MessageTemplate: "Hi {firstName}, will you vote on Tuesday?",
		AssignmentMode:  mode,
		JoinCode:        "4242",
		Status:          "active",
		CodeExpiresAt:   time.Now().Add(24 * time.Hour),
	}
	store.CreateSession(session)

	contactIDs := make([]int, 0, contactCount)
	for i := 1; i <= contactCount; i++ {
		id := store.id()
		store.addContact(model.Contact{
			ID:        id,
			Phone:     fmt.Sprintf("+1512555%04d", id),
			FirstName: fmt.Sprintf("Contact%d", i),
			LastName:  "Tester",
			City:      "Austin",
		})
		contactIDs = append(contactIDs, id)
	}
	store.CreateAssignments(session.ID, contactIDs)
	return session
}

func newP2PService(store *memStore) (*service.P2PService, *mockMessageRepo) {
	msgRepo := &mockMessageRepo{}
	return &service.P2PService{Store: store, MessageRepo: msgRepo}, msgRepo
}

// ownedBy returns the IDs of assignments owned by a volunteer, in any status.
func ownedBy(store *memStore, volunteerID int) []int {
	ids := []int{}
	for _, a := range store.sortedAssignments() {
		if a.VolunteerID != nil && *a.VolunteerID == volunteerID {
			ids = append(ids, a.ID)
		}
	}
	return ids
}

func TestCreateSession(t *testing.T) {
	t.Run("rejects missing fields", func(t *testing.T) {
		svc, _ := newP2PService(newMemStore())

		_, err := svc.CreateSession("", "Hello {firstName}", model.ModeAutoSplit, []int{1})
		var validation *appErrors.ErrValidation
		require.ErrorAs(t, err, &validation)

		_, err = svc.CreateSession("GOTV", "Hello", model.ModeAutoSplit, nil)
		require.ErrorAs(t, err, &validation)

		_, err = svc.CreateSession("GOTV", "Hello", "round_robin", []int{1})
		require.ErrorAs(t, err, &validation)
	})

	t.Run("creates pending unowned assignments", func(t *testing.T) {
		store := newMemStore()
		svc, msgRepo := newP2PService(store)

		session, err := svc.CreateSession("GOTV", "Hello {firstName}", "", []int{1, 2, 3})
		require.NoError(t, err)
		require.Len(t, session.JoinCode, 4)
		require.Equal(t, "active", session.Status)
		require.Equal(t, model.ModeAutoSplit, session.AssignmentMode)
		require.True(t, session.CodeExpiresAt.After(time.Now().Add(6*24*time.Hour)))

		pool, err := store.UnassignedPending(session.ID, -1)
		require.NoError(t, err)
		require.Len(t, pool, 3)
		require.Len(t, msgRepo.activity, 1)
	})
}

func TestJoin(t *testing.T) {
	t.Run("unknown code", func(t *testing.T) {
		svc, _ := newP2PService(newMemStore())

		_, err := svc.Join("Alice", "9999")
		var invalid *appErrors.ErrJoinCodeInvalid
		require.ErrorAs(t, err, &invalid)
	})

	t.Run("expired code", func(t *testing.T) {
		store := newMemStore()
		session := seedSession(store, model.ModeAutoSplit, 2)
		store.sessions[session.ID].CodeExpiresAt = time.Now().Add(-time.Hour)
		svc, _ := newP2PService(store)

		_, err := svc.Join("Alice", "4242")
		var expired *appErrors.ErrJoinCodeExpired
		require.ErrorAs(t, err, &expired)
	})

	t.Run("first joiner takes the whole pool", func(t *testing.T) {
		store := newMemStore()
		seedSession(store, model.ModeAutoSplit, 10)
		svc, _ := newP2PService(store)

		result, err := svc.Join("Alice", "4242")
		require.NoError(t, err)
		require.Len(t, ownedBy(store, result.VolunteerID), 10)
	})

	t.Run("later joiner gets an even share of what is left", func(t *testing.T) {
		store := newMemStore()
		session := seedSession(store, model.ModeAutoSplit, 10)
		// One volunteer already online, holding nothing.
		alice := &model.Volunteer{SessionID: session.ID, Name: "Alice"}
		store.CreateVolunteer(alice)
		svc, _ := newP2PService(store)

		result, err := svc.Join("Bea", "4242")
		require.NoError(t, err)
		// ceil(10 / 2 online) = 5
		require.Len(t, ownedBy(store, result.VolunteerID), 5)
		require.Empty(t, ownedBy(store, alice.ID))
	})

	t.Run("claim mode assigns nothing on join", func(t *testing.T) {
		store := newMemStore()
		seedSession(store, model.ModeClaim, 10)
		svc, _ := newP2PService(store)

		result, err := svc.Join("Alice", "4242")
		require.NoError(t, err)
		require.Empty(t, ownedBy(store, result.VolunteerID))
	})

	t.Run("same name rejoins as the same volunteer", func(t *testing.T) {
		store := newMemStore()
		seedSession(store, model.ModeAutoSplit, 4)
		svc, _ := newP2PService(store)

		first, err := svc.Join("Alice", "4242")
		require.NoError(t, err)
		require.NoError(t, svc.SetVolunteerOnline(first.VolunteerID, false))

		second, err := svc.Join("Alice", "4242")
		require.NoError(t, err)
		require.Equal(t, first.VolunteerID, second.VolunteerID)
		require.True(t, store.volunteers[first.VolunteerID].IsOnline)
	})
}

func TestQueue(t *testing.T) {
	t.Run("claim mode pulls one at a time", func(t *testing.T) {
		store := newMemStore()
		seedSession(store, model.ModeClaim, 5)
		svc, _ := newP2PService(store)

		result, err := svc.Join("Alice", "4242")
		require.NoError(t, err)

		view, err := svc.Queue(result.VolunteerID)
		require.NoError(t, err)
		require.NotNil(t, view.Assignment)
		require.Len(t, ownedBy(store, result.VolunteerID), 1)

		// Second call pulls a second one only because the first is still
		// pending; the next assignment shown stays the first in line.
		view2, err := svc.Queue(result.VolunteerID)
		require.NoError(t, err)
		require.Equal(t, view.Assignment.ID, view2.Assignment.ID)
		require.Len(t, ownedBy(store, result.VolunteerID), 2)
	})

	t.Run("resolves the template for the next contact", func(t *testing.T) {
		store := newMemStore()
		seedSession(store, model.ModeAutoSplit, 1)
		svc, _ := newP2PService(store)

		result, err := svc.Join("Alice", "4242")
		require.NoError(t, err)

		view, err := svc.Queue(result.VolunteerID)
		require.NoError(t, err)
		require.NotNil(t, view.ResolvedMessage)
		require.Equal(t, "Hi Contact1, will you vote on Tuesday?", *view.ResolvedMessage)
		require.Equal(t, 1, view.Stats.Remaining)
	})

	t.Run("drained queue returns no assignment", func(t *testing.T) {
		store := newMemStore()
		seedSession(store, model.ModeClaim, 0)
		svc, _ := newP2PService(store)

		result, err := svc.Join("Alice", "4242")
		require.NoError(t, err)

		view, err := svc.Queue(result.VolunteerID)
		require.NoError(t, err)
		require.Nil(t, view.Assignment)
		require.Nil(t, view.ResolvedMessage)
	})
}

func TestRedistribution(t *testing.T) {
	t.Run("pending round-robin across remaining volunteers", func(t *testing.T) {
		store := newMemStore()
		session := seedSession(store, model.ModeAutoSplit, 4)
		svc, _ := newP2PService(store)

		alice, err := svc.Join("Alice", "4242")
		require.NoError(t, err)
		require.Len(t, ownedBy(store, alice.VolunteerID), 4)

		bea := &model.Volunteer{SessionID: session.ID, Name: "Bea"}
		store.CreateVolunteer(bea)
		carl := &model.Volunteer{SessionID: session.ID, Name: "Carl"}
		store.CreateVolunteer(carl)

		require.NoError(t, svc.SetVolunteerOnline(alice.VolunteerID, false))

		require.Empty(t, ownedBy(store, alice.VolunteerID))
		require.Len(t, ownedBy(store, bea.ID), 2)
		require.Len(t, ownedBy(store, carl.ID), 2)
	})

	t.Run("conversations go to the least loaded", func(t *testing.T) {
		store := newMemStore()
		session := seedSession(store, model.ModeAutoSplit, 6)
		svc, _ := newP2PService(store)

		alice, err := svc.Join("Alice", "4242")
		require.NoError(t, err)

		// Two of Alice's assignments are live conversations.
		assignments := ownedBy(store, alice.VolunteerID)
		require.NoError(t, store.MarkSent(assignments[0]))
		require.NoError(t, store.MarkInConversation(assignments[0]))
		require.NoError(t, store.MarkSent(assignments[1]))
		require.NoError(t, store.MarkInConversation(assignments[1]))

		bea := &model.Volunteer{SessionID: session.ID, Name: "Bea"}
		store.CreateVolunteer(bea)
		carl := &model.Volunteer{SessionID: session.ID, Name: "Carl"}
		store.CreateVolunteer(carl)

		require.NoError(t, svc.SetVolunteerOnline(alice.VolunteerID, false))

		// 4 pending split 2/2, then each conversation goes to whoever is
		// lighter at that moment, so the final load stays 3/3.
		beaLoad, _ := store.ActiveLoad(bea.ID)
		carlLoad, _ := store.ActiveLoad(carl.ID)
		require.Equal(t, 3, beaLoad)
		require.Equal(t, 3, carlLoad)
	})

	t.Run("conversation skips an overloaded volunteer", func(t *testing.T) {
		store := newMemStore()
		session := seedSession(store, model.ModeClaim, 10)
		svc, _ := newP2PService(store)

		alice, err := svc.Join("Alice", "4242")
		require.NoError(t, err)
		bea, err := svc.Join("Bea", "4242")
		require.NoError(t, err)
		carl, err := svc.Join("Carl", "4242")
		require.NoError(t, err)
		dana, err := svc.Join("Dana", "4242")
		require.NoError(t, err)

		ids, err := store.UnassignedPending(session.ID, 10)
		require.NoError(t, err)
		require.Len(t, ids, 10)

		// Alice holds one live conversation; the rest load Bea, Carl and
		// Dana 2/2/5.
		require.NoError(t, store.SetOwner(ids[0], alice.VolunteerID))
		require.NoError(t, store.MarkSent(ids[0]))
		require.NoError(t, store.MarkInConversation(ids[0]))
		for _, id := range ids[1:3] {
			require.NoError(t, store.SetOwner(id, bea.VolunteerID))
		}
		for _, id := range ids[3:5] {
			require.NoError(t, store.SetOwner(id, carl.VolunteerID))
		}
		for _, id := range ids[5:] {
			require.NoError(t, store.SetOwner(id, dana.VolunteerID))
		}

		require.NoError(t, svc.SetVolunteerOnline(alice.VolunteerID, false))

		// The conversation lands on one of the load-2 volunteers; Dana at
		// load 5 is passed over.
		a, err := store.GetAssignment(ids[0])
		require.NoError(t, err)
		require.Contains(t, []int{bea.VolunteerID, carl.VolunteerID}, *a.VolunteerID)

		danaLoad, err := store.ActiveLoad(dana.VolunteerID)
		require.NoError(t, err)
		require.Equal(t, 5, danaLoad)
	})

	t.Run("nobody online leaves the queue stalled", func(t *testing.T) {
		store := newMemStore()
		seedSession(store, model.ModeAutoSplit, 3)
		svc, _ := newP2PService(store)

		alice, err := svc.Join("Alice", "4242")
		require.NoError(t, err)
		require.NoError(t, svc.SetVolunteerOnline(alice.VolunteerID, false))

		require.Len(t, ownedBy(store, alice.VolunteerID), 3)
	})

	t.Run("reassignment records the original owner once", func(t *testing.T) {
		store := newMemStore()
		session := seedSession(store, model.ModeAutoSplit, 1)
		svc, _ := newP2PService(store)

		alice, err := svc.Join("Alice", "4242")
		require.NoError(t, err)
		assignmentID := ownedBy(store, alice.VolunteerID)[0]
		require.NoError(t, store.MarkSent(assignmentID))

		bea := &model.Volunteer{SessionID: session.ID, Name: "Bea"}
		store.CreateVolunteer(bea)
		require.NoError(t, svc.SetVolunteerOnline(alice.VolunteerID, false))

		carl := &model.Volunteer{SessionID: session.ID, Name: "Carl"}
		store.CreateVolunteer(carl)
		require.NoError(t, svc.SetVolunteerOnline(bea.ID, false))

		// Two hops later the assignment still remembers Alice, not Bea.
		a, err := store.GetAssignment(assignmentID)
		require.NoError(t, err)
		require.Equal(t, carl.ID, *a.VolunteerID)
		require.Equal(t, alice.VolunteerID, *a.OriginalVolunteerID)
	})
}

func TestSnapBack(t *testing.T) {
	t.Run("returning volunteer recovers live conversations", func(t *testing.T) {
		store := newMemStore()
		session := seedSession(store, model.ModeAutoSplit, 3)
		svc, _ := newP2PService(store)

		alice, err := svc.Join("Alice", "4242")
		require.NoError(t, err)
		assignments := ownedBy(store, alice.VolunteerID)

		// One live conversation, one completed, one still pending.
		require.NoError(t, store.MarkSent(assignments[0]))
		require.NoError(t, store.MarkInConversation(assignments[0]))
		require.NoError(t, store.MarkSent(assignments[1]))
		require.NoError(t, store.MarkCompleted(assignments[1]))

		bea := &model.Volunteer{SessionID: session.ID, Name: "Bea"}
		store.CreateVolunteer(bea)
		require.NoError(t, svc.SetVolunteerOnline(alice.VolunteerID, false))
		require.Equal(t, bea.ID, *store.assignments[assignments[0]].VolunteerID)

		require.NoError(t, svc.SetVolunteerOnline(alice.VolunteerID, true))

		conv, err := store.GetAssignment(assignments[0])
		require.NoError(t, err)
		require.Equal(t, alice.VolunteerID, *conv.VolunteerID)
		require.Nil(t, conv.OriginalVolunteerID)

		// Completed work stays where it finished.
		done, err := store.GetAssignment(assignments[1])
		require.NoError(t, err)
		require.Equal(t, alice.VolunteerID, *done.VolunteerID)
		require.Equal(t, model.StatusCompleted, done.Status)
	})

	t.Run("top-up is capped per return", func(t *testing.T) {
		store := newMemStore()
		seedSession(store, model.ModeClaim, 25)
		svc, _ := newP2PService(store)

		alice, err := svc.Join("Alice", "4242")
		require.NoError(t, err)
		require.NoError(t, svc.SetVolunteerOnline(alice.VolunteerID, false))

		require.NoError(t, svc.SetVolunteerOnline(alice.VolunteerID, true))
		require.Len(t, ownedBy(store, alice.VolunteerID), 20)
	})
}

func TestTransitions(t *testing.T) {
	store := newMemStore()
	seedSession(store, model.ModeAutoSplit, 2)
	svc, _ := newP2PService(store)

	alice, err := svc.Join("Alice", "4242")
	require.NoError(t, err)
	assignments := ownedBy(store, alice.VolunteerID)

	t.Run("complete locks the assignment", func(t *testing.T) {
		require.NoError(t, svc.Complete(assignments[0]))

		err := svc.Skip(assignments[0])
		var invalid *appErrors.ErrInvalidTransition
		require.ErrorAs(t, err, &invalid)
		require.Equal(t, string(model.StatusCompleted), invalid.From)
	})

	t.Run("skip from pending", func(t *testing.T) {
		require.NoError(t, svc.Skip(assignments[1]))
		a, err := store.GetAssignment(assignments[1])
		require.NoError(t, err)
		require.Equal(t, model.StatusSkipped, a.Status)
	})

	t.Run("unknown assignment", func(t *testing.T) {
		err := svc.Complete(99999)
		var notFound *appErrors.ErrAssignmentNotFound
		require.ErrorAs(t, err, &notFound)
	})
}

func TestSessionAdmin(t *testing.T) {
	t.Run("detail aggregates volunteer stats", func(t *testing.T) {
		store := newMemStore()
		session := seedSession(store, model.ModeAutoSplit, 4)
		svc, _ := newP2PService(store)

		alice, err := svc.Join("Alice", "4242")
		require.NoError(t, err)
		require.NoError(t, store.MarkSent(ownedBy(store, alice.VolunteerID)[0]))

		detail, err := svc.SessionDetail(session.ID)
		require.NoError(t, err)
		require.Equal(t, 4, detail.TotalContacts)
		require.Equal(t, 1, detail.TotalSent)
		require.Len(t, detail.Volunteers, 1)
		require.Equal(t, 3, detail.Volunteers[0].Remaining)
	})

	t.Run("mode update is validated", func(t *testing.T) {
		store := newMemStore()
		session := seedSession(store, model.ModeAutoSplit, 1)
		svc, _ := newP2PService(store)

		bad := "lottery"
		err := svc.UpdateSession(session.ID, nil, &bad)
		var validation *appErrors.ErrValidation
		require.ErrorAs(t, err, &validation)

		claim := model.ModeClaim
		require.NoError(t, svc.UpdateSession(session.ID, nil, &claim))
		require.Equal(t, model.ModeClaim, store.sessions[session.ID].AssignmentMode)
	})

	t.Run("expiry sweep closes stale sessions", func(t *testing.T) {
		store := newMemStore()
		session := seedSession(store, model.ModeAutoSplit, 1)
		store.sessions[session.ID].CodeExpiresAt = time.Now().Add(-time.Hour)
		fresh := seedSession(store, model.ModeAutoSplit, 1)
		svc, _ := newP2PService(store)

		n, err := svc.ExpireStaleSessions()
		require.NoError(t, err)
		require.Equal(t, 1, n)
		require.Equal(t, "closed", store.sessions[session.ID].Status)
		require.Equal(t, "active", store.sessions[fresh.ID].Status)
	})
}

func TestGenerateJoinCode(t *testing.T) {
	for i := 0; i < 50; i++ {
		code := service.GenerateJoinCode()
		require.Len(t, code, 4)
		require.GreaterOrEqual(t, code, "1000")
		require.LessOrEqual(t, code, "9999")
	}
}
