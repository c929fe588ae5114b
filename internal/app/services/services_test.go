package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/scribelink/internal/app/models"
	"github.com/yigit/scribelink/internal/app/models/dto"
	"github.com/yigit/scribelink/internal/app/repositories"
	"github.com/yigit/scribelink/internal/app/repositories/memory"
	"github.com/yigit/scribelink/internal/pkg/apperrors"
)

// fixture is a memory-backed store set with helpers to seed it.
type fixture struct {
	t        *testing.T
	db       *memory.DB
	repos    *repositories.Repositories
	recorder *captureRecorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := memory.Open(nil)
	return &fixture{t: t, db: db, repos: db.Repositories(), recorder: &captureRecorder{}}
}

func (f *fixture) profile(role models.Role, postal string) models.Profile {
	f.t.Helper()
	p := models.Profile{
		ID:         uuid.New(),
		Role:       role,
		Name:       string(role) + "-" + postal,
		Mobile:     "9876543210",
		Email:      uuid.NewString() + "@example.com",
		PostalCode: postal,
		CreatedAt:  time.Now().UTC(),
	}
	require.NoError(f.t, f.repos.Accounts.CreateAccount(context.Background(), &p, &models.Credential{UserID: p.ID, Email: p.Email}))
	return p
}

func (f *fixture) exam(student models.Profile, name string) models.ExamRequest {
	f.t.Helper()
	e := models.ExamRequest{
		ID:         uuid.New(),
		StudentID:  student.ID,
		Date:       time.Date(2026, 11, 2, 0, 0, 0, 0, time.UTC),
		ExamName:   name,
		Center:     "Hall A",
		PostalCode: student.PostalCode,
		Status:     models.ExamStatusOpen,
		CreatedAt:  time.Now().UTC(),
	}
	require.NoError(f.t, f.repos.Exams.Create(context.Background(), &e))
	return e
}

func (f *fixture) request(student, writer models.Profile, exam models.ExamRequest, status models.MatchStatus) models.MatchRequest {
	f.t.Helper()
	now := time.Now().UTC()
	m := models.MatchRequest{ID: uuid.New(), StudentID: student.ID, WriterID: writer.ID, ExamID: exam.ID, Status: status, CreatedAt: now, UpdatedAt: now}
	require.NoError(f.t, f.repos.MatchRequests.Create(context.Background(), &m))
	return m
}

func sessionOf(p models.Profile) models.Session {
	return models.Session{UserID: p.ID, Email: p.Email, Role: p.Role, SessionID: "sess-" + p.ID.String()[:8]}
}

type captureRecorder struct {
	mu      sync.Mutex
	entries []models.AuditEntry
}

func (r *captureRecorder) Record(_ context.Context, e models.AuditEntry) {
	r.mu.Lock()
	r.entries = append(r.entries, e)
	r.mu.Unlock()
}

func (r *captureRecorder) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.Action
	}
	return out
}

// failingExperience makes the ranking lookup fail.
type failingExperience struct {
	repositories.MatchRequestStore
}

func (failingExperience) CompletedWriterIDs(context.Context, string) ([]uuid.UUID, error) {
	return nil, errors.New("connection reset")
}

// failingWriters makes the writer lookup fail.
type failingWriters struct {
	repositories.ProfileStore
}

func (failingWriters) ListWritersByPostalCode(context.Context, string, uuid.UUID) ([]models.Profile, error) {
	return nil, errors.New("connection reset")
}

// flakyExams fails GetByID for one id and the date ordered listing.
type flakyExams struct {
	repositories.ExamStore
	missing uuid.UUID
}

func (s flakyExams) GetByID(ctx context.Context, id uuid.UUID) (*models.ExamRequest, error) {
	if id == s.missing {
		return nil, errors.New("timeout")
	}
	return s.ExamStore.GetByID(ctx, id)
}

func (s flakyExams) ListByStudent(ctx context.Context, studentID uuid.UUID, order repositories.ExamOrder) ([]models.ExamRequest, error) {
	if order == repositories.ExamOrderByDate {
		return nil, errors.New("column exam_date does not support ordering")
	}
	return s.ExamStore.ListByStudent(ctx, studentID, order)
}

func TestFindCandidates_ExperiencedWritersFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	student := f.profile(models.RoleStudent, "560001")
	writerB := f.profile(models.RoleWriter, "560001")
	writerA := f.profile(models.RoleWriter, "560001")
	f.profile(models.RoleWriter, "110001")
	f.profile(models.RoleStudent, "560001")

	// Writer A helped someone else with a CAT exam before.
	other := f.profile(models.RoleDisabled, "400001")
	oldCat := f.exam(other, "CAT")
	f.request(other, writerA, oldCat, models.StatusCompleted)
	// Writer B only completed a different exam.
	gre := f.exam(other, "GRE")
	f.request(other, writerB, gre, models.StatusCompleted)

	f.exam(student, "CAT")
	matcher := NewMatcherService(f.repos, zerolog.Nop())
	got, err := matcher.FindCandidates(ctx, "560001", "CAT", student.ID)
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, writerA.ID, got[0].Profile.ID)
	assert.True(t, got[0].HasExperience)
	assert.Equal(t, writerB.ID, got[1].Profile.ID)
	assert.False(t, got[1].HasExperience)
}

func TestFindCandidates_NeverIncludesSelfOrNonWriters(t *testing.T) {
	f := newFixture(t)
	self := f.profile(models.RoleWriter, "560001")
	f.profile(models.RoleStudent, "560001")
	f.profile(models.RoleDisabled, "560001")
	w := f.profile(models.RoleWriter, "560001")

	got, err := NewMatcherService(f.repos, zerolog.Nop()).FindCandidates(context.Background(), "560001", "CAT", self.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, w.ID, got[0].Profile.ID)
	for _, c := range got {
		assert.NotEqual(t, self.ID, c.Profile.ID)
		assert.Equal(t, models.RoleWriter, c.Profile.Role)
	}
}

func TestFindCandidates_EmptyPostalCodeIsNotAnError(t *testing.T) {
	f := newFixture(t)
	got, err := NewMatcherService(f.repos, zerolog.Nop()).FindCandidates(context.Background(), "999999", "CAT", uuid.New())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestFindCandidates_RankingFailureReturnsUnrankedList(t *testing.T) {
	f := newFixture(t)
	w1 := f.profile(models.RoleWriter, "560001")
	w2 := f.profile(models.RoleWriter, "560001")
	f.repos.MatchRequests = failingExperience{f.repos.MatchRequests}

	got, err := NewMatcherService(f.repos, zerolog.Nop()).FindCandidates(context.Background(), "560001", "CAT", uuid.New())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, w1.ID, got[0].Profile.ID)
	assert.Equal(t, w2.ID, got[1].Profile.ID)
	assert.False(t, got[0].HasExperience)
	assert.False(t, got[1].HasExperience)
}

func TestFindCandidates_WriterLookupFailureIsAnError(t *testing.T) {
	f := newFixture(t)
	f.repos.Profiles = failingWriters{f.repos.Profiles}
	_, err := NewMatcherService(f.repos, zerolog.Nop()).FindCandidates(context.Background(), "560001", "CAT", uuid.New())
	assert.Error(t, err)
}

func TestCandidatesForExam_RequiresOwnership(t *testing.T) {
	f := newFixture(t)
	owner := f.profile(models.RoleStudent, "560001")
	intruder := f.profile(models.RoleStudent, "560001")
	exam := f.exam(owner, "CAT")

	_, err := NewMatcherService(f.repos, zerolog.Nop()).CandidatesForExam(context.Background(), sessionOf(intruder), exam.ID)
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)
}

func TestTransition_AcceptThenComplete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	student := f.profile(models.RoleStudent, "560001")
	writer := f.profile(models.RoleWriter, "560001")
	exam := f.exam(student, "CAT")
	svc := NewLifecycleService(f.repos, f.recorder, zerolog.Nop())

	m, err := svc.CreateRequest(ctx, sessionOf(student), writer.ID, exam.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, m.Status)

	_, err = svc.Transition(ctx, sessionOf(writer), m.ID, models.StatusAccepted)
	require.NoError(t, err)
	done, err := svc.Transition(ctx, sessionOf(writer), m.ID, models.StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, done.Status)

	stored, err := f.repos.MatchRequests.GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, stored.Status)
	assert.Equal(t, []string{"notification_created", "notification_accepted", "notification_completed"}, f.recorder.actions())
}

func TestTransition_PendingToCompletedIsInvalid(t *testing.T) {
	f := newFixture(t)
	student := f.profile(models.RoleStudent, "560001")
	writer := f.profile(models.RoleWriter, "560001")
	m := f.request(student, writer, f.exam(student, "CAT"), models.StatusPending)

	_, err := NewLifecycleService(f.repos, f.recorder, zerolog.Nop()).Transition(context.Background(), sessionOf(writer), m.ID, models.StatusCompleted)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
}

func TestTransition_FromTerminalStatusNamesIt(t *testing.T) {
	f := newFixture(t)
	student := f.profile(models.RoleStudent, "560001")
	writer := f.profile(models.RoleWriter, "560001")
	m := f.request(student, writer, f.exam(student, "CAT"), models.StatusRejected)

	_, err := NewLifecycleService(f.repos, f.recorder, zerolog.Nop()).Transition(context.Background(), sessionOf(writer), m.ID, models.StatusAccepted)
	require.ErrorIs(t, err, apperrors.ErrInvalidTransition)
	var custom *apperrors.CustomError
	require.True(t, errors.As(err, &custom))
	assert.Equal(t, "request is already rejected", custom.Message)
}

func TestTransition_RoleTable(t *testing.T) {
	tests := []struct {
		name  string
		actor models.Role
		from  models.MatchStatus
		to    models.MatchStatus
		ok    bool
	}{
		{"writer accepts", models.RoleWriter, models.StatusPending, models.StatusAccepted, true},
		{"writer rejects", models.RoleWriter, models.StatusPending, models.StatusRejected, true},
		{"writer cancels assistance", models.RoleWriter, models.StatusAccepted, models.StatusRejected, true},
		{"writer cannot cancel", models.RoleWriter, models.StatusPending, models.StatusCancelled, false},
		{"student cancels pending", models.RoleStudent, models.StatusPending, models.StatusCancelled, true},
		{"student cancels accepted", models.RoleStudent, models.StatusAccepted, models.StatusCancelled, true},
		{"disabled cancels pending", models.RoleDisabled, models.StatusPending, models.StatusCancelled, true},
		{"student cannot accept", models.RoleStudent, models.StatusPending, models.StatusAccepted, false},
		{"student cannot complete", models.RoleStudent, models.StatusAccepted, models.StatusCompleted, false},
		{"completed is terminal", models.RoleWriter, models.StatusCompleted, models.StatusRejected, false},
		{"rejected is terminal", models.RoleStudent, models.StatusRejected, models.StatusCancelled, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			studentRole := models.RoleStudent
			if tt.actor.IsStudent() {
				studentRole = tt.actor
			}
			student := f.profile(studentRole, "560001")
			writer := f.profile(models.RoleWriter, "560001")
			m := f.request(student, writer, f.exam(student, "CAT"), tt.from)

			actor := writer
			if tt.actor.IsStudent() {
				actor = student
			}
			_, err := NewLifecycleService(f.repos, f.recorder, zerolog.Nop()).Transition(context.Background(), sessionOf(actor), m.ID, tt.to)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
			}
		})
	}
}

func TestTransition_NonParticipantIsDenied(t *testing.T) {
	f := newFixture(t)
	student := f.profile(models.RoleStudent, "560001")
	writer := f.profile(models.RoleWriter, "560001")
	otherWriter := f.profile(models.RoleWriter, "560001")
	m := f.request(student, writer, f.exam(student, "CAT"), models.StatusPending)

	_, err := NewLifecycleService(f.repos, f.recorder, zerolog.Nop()).Transition(context.Background(), sessionOf(otherWriter), m.ID, models.StatusAccepted)
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)
}

func TestCreateRequest_DuplicatePending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	student := f.profile(models.RoleStudent, "560001")
	writer := f.profile(models.RoleWriter, "560001")
	exam := f.exam(student, "CAT")
	svc := NewLifecycleService(f.repos, f.recorder, zerolog.Nop())

	first, err := svc.CreateRequest(ctx, sessionOf(student), writer.ID, exam.ID)
	require.NoError(t, err)
	_, err = svc.CreateRequest(ctx, sessionOf(student), writer.ID, exam.ID)
	assert.ErrorIs(t, err, apperrors.ErrDuplicatePending)

	// Once the pending request is cancelled the writer can be asked again.
	_, err = svc.Transition(ctx, sessionOf(student), first.ID, models.StatusCancelled)
	require.NoError(t, err)
	_, err = svc.CreateRequest(ctx, sessionOf(student), writer.ID, exam.ID)
	assert.NoError(t, err)
}

func TestCreateRequest_ConcurrentCreatesYieldOnePending(t *testing.T) {
	f := newFixture(t)
	student := f.profile(models.RoleStudent, "560001")
	writer := f.profile(models.RoleWriter, "560001")
	exam := f.exam(student, "CAT")
	svc := NewLifecycleService(f.repos, f.recorder, zerolog.Nop())

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.CreateRequest(context.Background(), sessionOf(student), writer.ID, exam.ID)
		}(i)
	}
	wg.Wait()

	created := 0
	for _, err := range errs {
		if err == nil {
			created++
		} else {
			assert.ErrorIs(t, err, apperrors.ErrDuplicatePending)
		}
	}
	assert.Equal(t, 1, created)
}

func TestCreateRequest_Guards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	student := f.profile(models.RoleStudent, "560001")
	writer := f.profile(models.RoleWriter, "560001")
	otherStudent := f.profile(models.RoleStudent, "560001")
	exam := f.exam(student, "CAT")
	svc := NewLifecycleService(f.repos, f.recorder, zerolog.Nop())

	_, err := svc.CreateRequest(ctx, sessionOf(writer), writer.ID, exam.ID)
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied, "writers cannot create requests")

	_, err = svc.CreateRequest(ctx, sessionOf(otherStudent), writer.ID, exam.ID)
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied, "exam must be owned by the caller")

	_, err = svc.CreateRequest(ctx, sessionOf(student), otherStudent.ID, exam.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotAWriter)

	_, err = svc.CreateRequest(ctx, sessionOf(student), writer.ID, uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrExamNotFound)
}

func TestDeleteRequest_OnlyParticipants(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	student := f.profile(models.RoleStudent, "560001")
	writer := f.profile(models.RoleWriter, "560001")
	stranger := f.profile(models.RoleStudent, "560001")
	m := f.request(student, writer, f.exam(student, "CAT"), models.StatusRejected)
	svc := NewLifecycleService(f.repos, f.recorder, zerolog.Nop())

	assert.ErrorIs(t, svc.DeleteRequest(ctx, sessionOf(stranger), m.ID), apperrors.ErrPermissionDenied)
	require.NoError(t, svc.DeleteRequest(ctx, sessionOf(writer), m.ID))
	_, err := f.repos.MatchRequests.GetByID(ctx, m.ID)
	assert.ErrorIs(t, err, apperrors.ErrMatchRequestNotFound)
}

func TestDeleteRequests_SkipsForeignRows(t *testing.T) {
	f := newFixture(t)
	student := f.profile(models.RoleStudent, "560001")
	writer := f.profile(models.RoleWriter, "560001")
	other := f.profile(models.RoleStudent, "560001")
	mine := f.request(student, writer, f.exam(student, "CAT"), models.StatusPending)
	theirs := f.request(other, writer, f.exam(other, "CAT"), models.StatusPending)

	n, err := NewLifecycleService(f.repos, f.recorder, zerolog.Nop()).DeleteRequests(context.Background(), sessionOf(student), []uuid.UUID{mine.ID, theirs.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestDeleteExam_RemovesDependentsFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	student := f.profile(models.RoleStudent, "560001")
	exam := f.exam(student, "CAT")
	for i := 0; i < 3; i++ {
		f.request(student, f.profile(models.RoleWriter, "560001"), exam, models.StatusPending)
	}
	svc := NewExamService(f.repos, NewMatcherService(f.repos, zerolog.Nop()), f.recorder, zerolog.Nop())

	require.NoError(t, svc.DeleteExam(ctx, sessionOf(student), exam.ID))

	_, err := f.repos.Exams.GetByID(ctx, exam.ID)
	assert.ErrorIs(t, err, apperrors.ErrExamNotFound)
	list, err := f.repos.MatchRequests.ListForParticipant(ctx, student.ID, student.Role)
	require.NoError(t, err)
	for _, m := range list {
		assert.NotEqual(t, exam.ID, m.ExamID)
	}
	assert.Empty(t, list)
}

func TestDeleteExam_OwnerOnly(t *testing.T) {
	f := newFixture(t)
	owner := f.profile(models.RoleStudent, "560001")
	other := f.profile(models.RoleStudent, "560001")
	exam := f.exam(owner, "CAT")
	svc := NewExamService(f.repos, NewMatcherService(f.repos, zerolog.Nop()), f.recorder, zerolog.Nop())

	assert.ErrorIs(t, svc.DeleteExam(context.Background(), sessionOf(other), exam.ID), apperrors.ErrPermissionDenied)
}

func TestCreateExam_ReturnsRankedCandidates(t *testing.T) {
	f := newFixture(t)
	student := f.profile(models.RoleDisabled, "560001")
	writer := f.profile(models.RoleWriter, "560001")
	svc := NewExamService(f.repos, NewMatcherService(f.repos, zerolog.Nop()), f.recorder, zerolog.Nop())

	res, err := svc.CreateExam(context.Background(), sessionOf(student), &dto.CreateExamRequest{
		Date: "2026-12-01", ExamName: " CAT ", QualificationRequired: "12th pass", Center: "Hall A", PostalCode: "560001",
	})
	require.NoError(t, err)
	assert.Equal(t, "CAT", res.Exam.ExamName)
	assert.Equal(t, models.ExamStatusOpen, res.Exam.Status)
	require.Len(t, res.Candidates, 1)
	assert.Equal(t, writer.ID, res.Candidates[0].Profile.ID)
	assert.Contains(t, f.recorder.actions(), "exam_created")
}

func TestCreateExam_RejectsBadDate(t *testing.T) {
	f := newFixture(t)
	student := f.profile(models.RoleStudent, "560001")
	svc := NewExamService(f.repos, NewMatcherService(f.repos, zerolog.Nop()), f.recorder, zerolog.Nop())
	_, err := svc.CreateExam(context.Background(), sessionOf(student), &dto.CreateExamRequest{Date: "01/12/2026", ExamName: "CAT", PostalCode: "560001"})
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
}

func TestListExams_FallsBackToCreatedOrder(t *testing.T) {
	f := newFixture(t)
	student := f.profile(models.RoleStudent, "560001")
	first := f.exam(student, "CAT")
	second := f.exam(student, "GRE")
	f.repos.Exams = flakyExams{ExamStore: f.repos.Exams}
	svc := NewExamService(f.repos, NewMatcherService(f.repos, zerolog.Nop()), f.recorder, zerolog.Nop())

	list, err := svc.ListExams(context.Background(), sessionOf(student))
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)
}

func TestListForSession_EnrichesAndKeepsRowsOnLookupFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	student := f.profile(models.RoleStudent, "560001")
	writer := f.profile(models.RoleWriter, "560001")
	good := f.exam(student, "CAT")
	broken := f.exam(student, "GRE")
	f.request(student, writer, good, models.StatusAccepted)
	f.request(student, writer, broken, models.StatusRejected)
	f.repos.Exams = flakyExams{ExamStore: f.repos.Exams, missing: broken.ID}

	svc := NewNotificationService(f.repos, zerolog.Nop())
	list, err := svc.ListForSession(ctx, sessionOf(writer))
	require.NoError(t, err)
	require.Len(t, list, 2)

	byExam := map[uuid.UUID]models.EnrichedMatchRequest{}
	for _, r := range list {
		byExam[r.ExamID] = r
	}
	ok := byExam[good.ID]
	require.NotNil(t, ok.Exam)
	assert.Equal(t, "CAT", ok.Exam.ExamName)
	require.NotNil(t, ok.Counterpart)
	assert.Equal(t, student.Name, ok.Counterpart.Name)
	assert.Equal(t, []models.MatchStatus{models.StatusCompleted, models.StatusRejected}, ok.AllowedNext)

	miss := byExam[broken.ID]
	assert.Nil(t, miss.Exam)
	assert.NotNil(t, miss.Counterpart)
	assert.Empty(t, miss.AllowedNext)
}

func TestExport_WritesOneRowPerRequest(t *testing.T) {
	f := newFixture(t)
	student := f.profile(models.RoleStudent, "560001")
	writer := f.profile(models.RoleWriter, "560001")
	f.request(student, writer, f.exam(student, "CAT"), models.StatusPending)

	wb, err := NewNotificationService(f.repos, zerolog.Nop()).Export(context.Background(), sessionOf(student))
	require.NoError(t, err)
	defer wb.Close()

	rows, err := wb.File.GetRows("Requests")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "pending", rows[1][1])
	assert.Equal(t, writer.Name, rows[1][3])
	assert.Equal(t, "CAT", rows[1][6])
}
