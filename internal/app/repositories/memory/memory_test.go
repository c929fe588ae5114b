package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/scribelink/internal/app/models"
	"github.com/yigit/scribelink/internal/app/realtime"
	"github.com/yigit/scribelink/internal/app/repositories"
	"github.com/yigit/scribelink/internal/pkg/apperrors"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []realtime.ChangeEvent
}

func (p *recordingPublisher) Publish(ev realtime.ChangeEvent) {
	p.mu.Lock()
	p.events = append(p.events, ev)
	p.mu.Unlock()
}

func (p *recordingPublisher) ops() []realtime.Op {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]realtime.Op, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Op
	}
	return out
}

func seedProfile(t *testing.T, repos *repositories.Repositories, role models.Role, postal string) models.Profile {
	t.Helper()
	p := models.Profile{ID: uuid.New(), Role: role, Name: string(role), PostalCode: postal, CreatedAt: time.Now().UTC()}
	c := models.Credential{UserID: p.ID, Email: p.ID.String() + "@example.com"}
	require.NoError(t, repos.Accounts.CreateAccount(context.Background(), &p, &c))
	return p
}

func seedExam(t *testing.T, repos *repositories.Repositories, studentID uuid.UUID, name string, date time.Time) models.ExamRequest {
	t.Helper()
	e := models.ExamRequest{ID: uuid.New(), StudentID: studentID, ExamName: name, Date: date, Status: models.ExamStatusOpen, CreatedAt: time.Now().UTC()}
	require.NoError(t, repos.Exams.Create(context.Background(), &e))
	return e
}

func newRequest(student, writer, exam uuid.UUID, st models.MatchStatus) *models.MatchRequest {
	now := time.Now().UTC()
	return &models.MatchRequest{ID: uuid.New(), StudentID: student, WriterID: writer, ExamID: exam, Status: st, CreatedAt: now, UpdatedAt: now}
}

func TestMatchRequestStore_PendingPairIsUnique(t *testing.T) {
	ctx := context.Background()
	repos := Open(nil).Repositories()
	student := seedProfile(t, repos, models.RoleStudent, "560001")
	writer := seedProfile(t, repos, models.RoleWriter, "560001")
	exam := seedExam(t, repos, student.ID, "CAT", time.Now())

	require.NoError(t, repos.MatchRequests.Create(ctx, newRequest(student.ID, writer.ID, exam.ID, models.StatusPending)))
	err := repos.MatchRequests.Create(ctx, newRequest(student.ID, writer.ID, exam.ID, models.StatusPending))
	assert.ErrorIs(t, err, apperrors.ErrDuplicatePending)

	has, err := repos.MatchRequests.HasPending(ctx, student.ID, writer.ID)
	require.NoError(t, err)
	assert.True(t, has)
}

func TestMatchRequestStore_UpdateStatusIsCompareAndSet(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	repos := Open(pub).Repositories()
	student := seedProfile(t, repos, models.RoleStudent, "560001")
	writer := seedProfile(t, repos, models.RoleWriter, "560001")
	exam := seedExam(t, repos, student.ID, "CAT", time.Now())
	m := newRequest(student.ID, writer.ID, exam.ID, models.StatusPending)
	require.NoError(t, repos.MatchRequests.Create(ctx, m))

	updated, err := repos.MatchRequests.UpdateStatus(ctx, m.ID, models.StatusPending, models.StatusAccepted)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, updated.Status)

	_, err = repos.MatchRequests.UpdateStatus(ctx, m.ID, models.StatusPending, models.StatusRejected)
	assert.ErrorIs(t, err, apperrors.ErrStaleStatus)

	_, err = repos.MatchRequests.UpdateStatus(ctx, uuid.New(), models.StatusPending, models.StatusAccepted)
	assert.ErrorIs(t, err, apperrors.ErrMatchRequestNotFound)

	assert.Equal(t, []realtime.Op{realtime.OpInsert, realtime.OpUpdate}, pub.ops())
}

func TestMatchRequestStore_ConcurrentUpdatesOnlyOneWins(t *testing.T) {
	ctx := context.Background()
	repos := Open(nil).Repositories()
	student := seedProfile(t, repos, models.RoleStudent, "560001")
	writer := seedProfile(t, repos, models.RoleWriter, "560001")
	exam := seedExam(t, repos, student.ID, "CAT", time.Now())
	m := newRequest(student.ID, writer.ID, exam.ID, models.StatusPending)
	require.NoError(t, repos.MatchRequests.Create(ctx, m))

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for _, to := range []models.MatchStatus{models.StatusAccepted, models.StatusRejected, models.StatusCancelled} {
		wg.Add(1)
		go func(to models.MatchStatus) {
			defer wg.Done()
			if _, err := repos.MatchRequests.UpdateStatus(ctx, m.ID, models.StatusPending, to); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(to)
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestMatchRequestStore_ListAndCompletedWriters(t *testing.T) {
	ctx := context.Background()
	repos := Open(nil).Repositories()
	student := seedProfile(t, repos, models.RoleStudent, "560001")
	w1 := seedProfile(t, repos, models.RoleWriter, "560001")
	w2 := seedProfile(t, repos, models.RoleWriter, "560001")
	cat := seedExam(t, repos, student.ID, "CAT", time.Now())
	gre := seedExam(t, repos, student.ID, "GRE", time.Now())

	first := newRequest(student.ID, w1.ID, cat.ID, models.StatusCompleted)
	second := newRequest(student.ID, w2.ID, gre.ID, models.StatusCompleted)
	second.CreatedAt = first.CreatedAt.Add(time.Second)
	require.NoError(t, repos.MatchRequests.Create(ctx, first))
	require.NoError(t, repos.MatchRequests.Create(ctx, second))

	ids, err := repos.MatchRequests.CompletedWriterIDs(ctx, "CAT")
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{w1.ID}, ids)

	list, err := repos.MatchRequests.ListForParticipant(ctx, student.ID, models.RoleDisabled)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)

	list, err = repos.MatchRequests.ListForParticipant(ctx, w1.ID, models.RoleWriter)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, first.ID, list[0].ID)
}

func TestMatchRequestStore_DeleteForParticipantSkipsOthers(t *testing.T) {
	ctx := context.Background()
	repos := Open(nil).Repositories()
	student := seedProfile(t, repos, models.RoleStudent, "560001")
	other := seedProfile(t, repos, models.RoleStudent, "560001")
	writer := seedProfile(t, repos, models.RoleWriter, "560001")
	exam := seedExam(t, repos, student.ID, "CAT", time.Now())
	otherExam := seedExam(t, repos, other.ID, "CAT", time.Now())

	mine := newRequest(student.ID, writer.ID, exam.ID, models.StatusPending)
	theirs := newRequest(other.ID, writer.ID, otherExam.ID, models.StatusPending)
	require.NoError(t, repos.MatchRequests.Create(ctx, mine))
	require.NoError(t, repos.MatchRequests.Create(ctx, theirs))

	n, err := repos.MatchRequests.DeleteForParticipant(ctx, []uuid.UUID{mine.ID, theirs.ID}, student.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, err = repos.MatchRequests.GetByID(ctx, theirs.ID)
	assert.NoError(t, err)
}

func TestExamStore_DeleteRefusesWhileReferenced(t *testing.T) {
	ctx := context.Background()
	repos := Open(nil).Repositories()
	student := seedProfile(t, repos, models.RoleStudent, "560001")
	writer := seedProfile(t, repos, models.RoleWriter, "560001")
	exam := seedExam(t, repos, student.ID, "CAT", time.Now())
	require.NoError(t, repos.MatchRequests.Create(ctx, newRequest(student.ID, writer.ID, exam.ID, models.StatusPending)))

	err := repos.Exams.Delete(ctx, exam.ID)
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	n, err := repos.MatchRequests.DeleteByExam(ctx, exam.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	require.NoError(t, repos.Exams.Delete(ctx, exam.ID))
	_, err = repos.Exams.GetByID(ctx, exam.ID)
	assert.ErrorIs(t, err, apperrors.ErrExamNotFound)
}

func TestExamStore_ListByStudentOrders(t *testing.T) {
	ctx := context.Background()
	repos := Open(nil).Repositories()
	student := seedProfile(t, repos, models.RoleStudent, "560001")
	early := seedExam(t, repos, student.ID, "CAT", time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC))
	late := seedExam(t, repos, student.ID, "GRE", time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC))

	byDate, err := repos.Exams.ListByStudent(ctx, student.ID, repositories.ExamOrderByDate)
	require.NoError(t, err)
	require.Len(t, byDate, 2)
	assert.Equal(t, late.ID, byDate[0].ID)

	byCreated, err := repos.Exams.ListByStudent(ctx, student.ID, repositories.ExamOrderByCreated)
	require.NoError(t, err)
	require.Len(t, byCreated, 2)
	assert.Equal(t, late.ID, byCreated[0].ID)
	assert.Equal(t, early.ID, byCreated[1].ID)
}

func TestAccountStore_EmailIsCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	repos := Open(nil).Repositories()
	p := models.Profile{ID: uuid.New(), Role: models.RoleWriter}
	require.NoError(t, repos.Accounts.CreateAccount(ctx, &p, &models.Credential{UserID: p.ID, Email: "Asha@Example.com"}))

	c, err := repos.Accounts.GetCredentialByEmail(ctx, "asha@example.COM")
	require.NoError(t, err)
	assert.Equal(t, p.ID, c.UserID)

	q := models.Profile{ID: uuid.New(), Role: models.RoleStudent}
	err = repos.Accounts.CreateAccount(ctx, &q, &models.Credential{UserID: q.ID, Email: "asha@example.com"})
	assert.ErrorIs(t, err, apperrors.ErrEmailAlreadyExists)

	_, err = repos.Accounts.GetCredentialByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}

func TestProfileStore_ListWritersByPostalCode(t *testing.T) {
	ctx := context.Background()
	repos := Open(nil).Repositories()
	self := seedProfile(t, repos, models.RoleWriter, "560001")
	a := seedProfile(t, repos, models.RoleWriter, "560001")
	seedProfile(t, repos, models.RoleWriter, "110001")
	seedProfile(t, repos, models.RoleStudent, "560001")
	b := seedProfile(t, repos, models.RoleWriter, "560001")

	list, err := repos.Profiles.ListWritersByPostalCode(ctx, "560001", self.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, a.ID, list[0].ID)
	assert.Equal(t, b.ID, list[1].ID)
}
