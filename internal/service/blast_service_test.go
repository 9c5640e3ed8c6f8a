package service_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	appErrors "github.com/fieldops/campaigntext-backend/internal/errors"
	"github.com/fieldops/campaigntext-backend/internal/model"
	"github.com/fieldops/campaigntext-backend/internal/service"
)

// mockBlastRepo is safe for concurrent use: the in-process subscriber
// updates statuses from queue goroutines.
type mockBlastRepo struct {
	mu      sync.Mutex
	created []*model.BlastMessage
}

func (m *mockBlastRepo) Create(msg *model.BlastMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg.ID = len(m.created) + 1
	msg.Status = "pending"
	m.created = append(m.created, msg)
	return nil
}

func (m *mockBlastRepo) GetByID(id int) (*model.BlastMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.created {
		if msg.ID == id {
			return msg, nil
		}
	}
	return nil, nil
}

func (m *mockBlastRepo) UpdateStatus(id int, status, lastError string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.created {
		if msg.ID == id {
			msg.Status = status
			msg.LastError = lastError
		}
	}
	return nil
}

// captureQueue records published jobs instead of touching a broker.
type captureQueue struct {
	published []any
	failWith  error
}

func (q *captureQueue) Publish(topic string, payload any) error {
	if q.failWith != nil {
		return q.failWith
	}
	q.published = append(q.published, payload)
	return nil
}

func (q *captureQueue) Subscribe(topic string, handler func(payload any) error) error {
	return nil
}

// middayClock keeps tests out of quiet hours.
func middayClock() time.Time {
	return time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
}

func newBlastService(contactRepo *mockContactRepo) (*service.BlastService, *mockBlastRepo, *captureQueue) {
	blastRepo := &mockBlastRepo{}
	q := &captureQueue{}
	svc := &service.BlastService{
		ContactRepo: contactRepo,
		BlastRepo:   blastRepo,
		Queue:       q,
		Now:         middayClock,
	}
	return svc, blastRepo, q
}

func seedContacts(repo *mockContactRepo, n int) []int {
	ids := []int{}
	for i := 1; i <= n; i++ {
		c := &model.Contact{
			Phone:     "+1512555" + string(rune('0'+i)) + "000",
			FirstName: "Contact",
			LastName:  "Tester",
			City:      "Austin",
		}
		repo.Create(c)
		ids = append(ids, c.ID)
	}
	return ids
}

func TestSendBlast(t *testing.T) {
	t.Run("renders and queues one message per contact", func(t *testing.T) {
		contactRepo := newMockContactRepo()
		ids := seedContacts(contactRepo, 3)
		svc, blastRepo, q := newBlastService(contactRepo)

		result, err := svc.SendBlast(ids, "Hi {firstName} from {city}!", "Reply STOP to opt out.")
		require.NoError(t, err)
		require.Equal(t, 3, result.TotalContacts)
		require.Equal(t, 3, result.Queued)
		require.Zero(t, result.Failed)

		require.Len(t, blastRepo.created, 3)
		require.Contains(t, blastRepo.created[0].RenderedBody, "Hi Contact from Austin!")
		require.Contains(t, blastRepo.created[0].RenderedBody, "Reply STOP to opt out.")
		require.Len(t, q.published, 3)
		job, ok := q.published[0].(service.BlastJob)
		require.True(t, ok)
		require.Equal(t, blastRepo.created[0].ID, job.BlastMessageID)
	})

	t.Run("validates input", func(t *testing.T) {
		svc, _, _ := newBlastService(newMockContactRepo())

		var validation *appErrors.ErrValidation
		_, err := svc.SendBlast(nil, "Hello", "")
		require.ErrorAs(t, err, &validation)

		_, err = svc.SendBlast([]int{1}, "", "")
		require.ErrorAs(t, err, &validation)
	})

	t.Run("skips opted-out contacts", func(t *testing.T) {
		contactRepo := newMockContactRepo()
		ids := seedContacts(contactRepo, 2)
		contactRepo.OptOut(contactRepo.contacts[ids[0]].Phone)
		svc, _, q := newBlastService(contactRepo)

		result, err := svc.SendBlast(ids, "Hello!", "")
		require.NoError(t, err)
		require.Equal(t, 1, result.Queued)
		require.Equal(t, 1, result.Failed)
		require.Len(t, result.Errors, 1)
		require.Equal(t, "Opted out", result.Errors[0].Reason)
		require.Len(t, q.published, 1)
	})

	t.Run("refuses sends during quiet hours", func(t *testing.T) {
		contactRepo := newMockContactRepo()
		ids := seedContacts(contactRepo, 1)
		svc, _, q := newBlastService(contactRepo)
		svc.Now = func() time.Time {
			return time.Date(2026, 6, 1, 22, 30, 0, 0, time.UTC)
		}

		result, err := svc.SendBlast(ids, "Hello!", "")
		require.NoError(t, err)
		require.Zero(t, result.Queued)
		require.Equal(t, 1, result.Failed)
		require.Contains(t, result.Errors[0].Reason, "allowed hours")
		require.Empty(t, q.published)
	})

	t.Run("caps the reported error list", func(t *testing.T) {
		contactRepo := newMockContactRepo()
		ids := []int{}
		for i := 1; i <= 30; i++ {
			c := &model.Contact{Phone: "+1512555" + time.Now().Format("0102") + string(rune('a'+i%26))}
			contactRepo.Create(c)
			contactRepo.OptOut(c.Phone)
			ids = append(ids, c.ID)
		}
		svc, _, _ := newBlastService(contactRepo)

		result, err := svc.SendBlast(ids, "Hello!", "")
		require.NoError(t, err)
		require.Equal(t, 30, result.Failed)
		require.Len(t, result.Errors, 20)
	})

	t.Run("queue failure counts against the contact", func(t *testing.T) {
		contactRepo := newMockContactRepo()
		ids := seedContacts(contactRepo, 1)
		svc, _, q := newBlastService(contactRepo)
		q.failWith = errQueueDown

		result, err := svc.SendBlast(ids, "Hello!", "")
		require.NoError(t, err)
		require.Zero(t, result.Queued)
		require.Equal(t, 1, result.Failed)
	})
}

var errQueueDown = errors.New("broker down")
