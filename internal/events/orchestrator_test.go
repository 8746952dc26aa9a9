package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"calbridge/internal/apperr"
	"calbridge/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/calendar/v3"
)

// MockCalendar implements CalendarService for testing
type MockCalendar struct {
	mock.Mock
}

func (m *MockCalendar) InsertEvent(ctx context.Context, calendarID string, event *calendar.Event, opts models.WriteOptions) (*calendar.Event, error) {
	args := m.Called(calendarID, event, opts)
	ev, _ := args.Get(0).(*calendar.Event)
	return ev, args.Error(1)
}

func (m *MockCalendar) PatchEvent(ctx context.Context, calendarID, eventID string, event *calendar.Event, opts models.WriteOptions) (*calendar.Event, error) {
	args := m.Called(calendarID, eventID, event, opts)
	ev, _ := args.Get(0).(*calendar.Event)
	return ev, args.Error(1)
}

func (m *MockCalendar) GetEvent(ctx context.Context, calendarID, eventID string) (*calendar.Event, error) {
	args := m.Called(calendarID, eventID)
	ev, _ := args.Get(0).(*calendar.Event)
	return ev, args.Error(1)
}

// MockMaterializer implements Materializer for testing
type MockMaterializer struct {
	mock.Mock
}

func (m *MockMaterializer) UploadNew(ctx context.Context, file models.RawFile) (models.AttachmentDescriptor, error) {
	args := m.Called(file.Name)
	return args.Get(0).(models.AttachmentDescriptor), args.Error(1)
}

func (m *MockMaterializer) ResolveExisting(ctx context.Context, objectID string) (models.AttachmentDescriptor, error) {
	args := m.Called(objectID)
	return args.Get(0).(models.AttachmentDescriptor), args.Error(1)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func baseEvent() *calendar.Event {
	return &calendar.Event{
		Summary:     "Quarterly review",
		Location:    "HQ",
		Description: "Numbers",
		Start:       &calendar.EventDateTime{DateTime: "2026-05-04T10:00:00Z"},
		End:         &calendar.EventDateTime{DateTime: "2026-05-04T11:00:00Z"},
		Attendees:   []*calendar.EventAttendee{{Email: "a@example.com"}},
		Reminders:   &calendar.EventReminders{UseDefault: true},
	}
}

func rawFile(name string) models.RawFile {
	return models.RawFile{Name: name, MimeType: "text/plain", Body: strings.NewReader(name)}
}

func descriptor(id string) models.AttachmentDescriptor {
	return models.AttachmentDescriptor{
		FileID:   id,
		FileURL:  "https://drive.example.com/" + id,
		Title:    id,
		MimeType: "text/plain",
	}
}

func TestCreateWithFilesAndExistingIDs(t *testing.T) {
	cal := &MockCalendar{}
	mat := &MockMaterializer{}

	// file1 finishes last so completion order differs from input order.
	mat.On("UploadNew", "file1").After(20*time.Millisecond).Return(descriptor("file1"), nil)
	mat.On("UploadNew", "file2").Return(descriptor("file2"), nil)
	mat.On("ResolveExisting", "existingId").Return(descriptor("existingId"), nil)

	var submitted *calendar.Event
	cal.On("InsertEvent", "team", mock.Anything, models.WriteOptions{SupportsAttachments: true}).
		Run(func(args mock.Arguments) { submitted = args.Get(1).(*calendar.Event) }).
		Return(&calendar.Event{Id: "evt-1"}, nil)

	o := NewOrchestrator(discardLogger(), cal, mat, Options{})
	created, err := o.Create(context.Background(), CreateRequest{
		CalendarID:      "team",
		Event:           baseEvent(),
		Files:           []models.RawFile{rawFile("file1"), rawFile("file2")},
		ExistingFileIDs: []string{"existingId"},
	})

	require.NoError(t, err)
	assert.Equal(t, "evt-1", created.Id)
	require.NotNil(t, submitted)
	require.Len(t, submitted.Attachments, 3)
	assert.Equal(t, "file1", submitted.Attachments[0].FileId)
	assert.Equal(t, "file2", submitted.Attachments[1].FileId)
	assert.Equal(t, "existingId", submitted.Attachments[2].FileId)
	assert.Equal(t, "https://drive.example.com/file1", submitted.Attachments[0].FileUrl)
	assert.Nil(t, submitted.ConferenceData)
	assert.Equal(t, "Quarterly review", submitted.Summary)
	assert.Equal(t, "HQ", submitted.Location)
	assert.Len(t, submitted.Attendees, 1)
	cal.AssertExpectations(t)
	mat.AssertExpectations(t)
}

func TestCreateWithoutAttachments(t *testing.T) {
	cal := &MockCalendar{}
	mat := &MockMaterializer{}

	var submitted *calendar.Event
	cal.On("InsertEvent", "primary", mock.Anything, models.WriteOptions{}).
		Run(func(args mock.Arguments) { submitted = args.Get(1).(*calendar.Event) }).
		Return(&calendar.Event{Id: "evt-2"}, nil)

	o := NewOrchestrator(discardLogger(), cal, mat, Options{})
	_, err := o.Create(context.Background(), CreateRequest{Event: baseEvent()})

	require.NoError(t, err)
	require.NotNil(t, submitted)
	assert.Nil(t, submitted.Attachments)
	mat.AssertNotCalled(t, "UploadNew", mock.Anything)
	mat.AssertNotCalled(t, "ResolveExisting", mock.Anything)
}

func TestCreateStorageFailureAbortsBeforeInsert(t *testing.T) {
	cal := &MockCalendar{}
	mat := &MockMaterializer{}
	mat.On("UploadNew", "file1").Return(descriptor("file1"), nil).Maybe()
	mat.On("UploadNew", "file2").Return(models.AttachmentDescriptor{}, apperr.Storage("failed to upload object", 500, errors.New("boom")))

	o := NewOrchestrator(discardLogger(), cal, mat, Options{Concurrency: 1})
	created, err := o.Create(context.Background(), CreateRequest{
		Event: baseEvent(),
		Files: []models.RawFile{rawFile("file1"), rawFile("file2")},
	})

	require.Error(t, err)
	assert.Nil(t, created)
	assert.True(t, apperr.IsKind(err, apperr.KindStorage))
	assert.Equal(t, 500, apperr.StatusOf(err))
	cal.AssertNotCalled(t, "InsertEvent", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateMissingExistingObject(t *testing.T) {
	cal := &MockCalendar{}
	mat := &MockMaterializer{}
	mat.On("ResolveExisting", "gone").Return(models.AttachmentDescriptor{}, apperr.StorageNotFound("gone", nil))

	o := NewOrchestrator(discardLogger(), cal, mat, Options{})
	_, err := o.Create(context.Background(), CreateRequest{Event: baseEvent(), ExistingFileIDs: []string{"gone"}})

	require.Error(t, err)
	assert.True(t, apperr.IsNotFound(err))
	cal.AssertNotCalled(t, "InsertEvent", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateWithMeetingRoom(t *testing.T) {
	cal := &MockCalendar{}
	mat := &MockMaterializer{}

	var submitted []*calendar.Event
	cal.On("InsertEvent", "primary", mock.Anything, models.WriteOptions{ConferenceDataVersion: 1}).
		Run(func(args mock.Arguments) { submitted = append(submitted, args.Get(1).(*calendar.Event)) }).
		Return(&calendar.Event{Id: "evt"}, nil)

	o := NewOrchestrator(discardLogger(), cal, mat, Options{})
	for i := 0; i < 2; i++ {
		_, err := o.Create(context.Background(), CreateRequest{Event: baseEvent(), MeetingRoom: true})
		require.NoError(t, err)
	}

	require.Len(t, submitted, 2)
	for _, ev := range submitted {
		require.NotNil(t, ev.ConferenceData)
		require.NotNil(t, ev.ConferenceData.CreateRequest)
		assert.Equal(t, "hangoutsMeet", ev.ConferenceData.CreateRequest.ConferenceSolutionKey.Type)
		assert.NotEmpty(t, ev.ConferenceData.CreateRequest.RequestId)
	}
	assert.NotEqual(t, submitted[0].ConferenceData.CreateRequest.RequestId, submitted[1].ConferenceData.CreateRequest.RequestId)
}

func TestCreateWithMeetingRoomAndAttachment(t *testing.T) {
	cal := &MockCalendar{}
	mat := &MockMaterializer{}
	mat.On("ResolveExisting", "doc").Return(descriptor("doc"), nil)
	cal.On("InsertEvent", "primary", mock.Anything, models.WriteOptions{SupportsAttachments: true, ConferenceDataVersion: 1}).
		Return(&calendar.Event{Id: "evt"}, nil)

	o := NewOrchestrator(discardLogger(), cal, mat, Options{SolutionType: "addOn"})
	o.newRequestID = func() string { return "req-a" }

	_, err := o.Create(context.Background(), CreateRequest{Event: baseEvent(), MeetingRoom: true, ExistingFileIDs: []string{"doc"}})
	require.NoError(t, err)

	submitted := cal.Calls[0].Arguments.Get(1).(*calendar.Event)
	assert.Equal(t, "req-a", submitted.ConferenceData.CreateRequest.RequestId)
	assert.Equal(t, "addOn", submitted.ConferenceData.CreateRequest.ConferenceSolutionKey.Type)
}

func TestCreateRejectsInvalidRange(t *testing.T) {
	cal := &MockCalendar{}
	mat := &MockMaterializer{}
	ev := baseEvent()
	ev.Start.DateTime, ev.End.DateTime = ev.End.DateTime, ev.Start.DateTime

	o := NewOrchestrator(discardLogger(), cal, mat, Options{})
	_, err := o.Create(context.Background(), CreateRequest{Event: ev, Files: []models.RawFile{rawFile("f")}})

	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
	mat.AssertNotCalled(t, "UploadNew", mock.Anything)
	cal.AssertNotCalled(t, "InsertEvent", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateSurfacesCalendarFailure(t *testing.T) {
	cal := &MockCalendar{}
	cal.On("InsertEvent", "primary", mock.Anything, mock.Anything).
		Return(nil, apperr.CalendarService("failed to insert event", 403, nil))

	o := NewOrchestrator(discardLogger(), cal, &MockMaterializer{}, Options{})
	_, err := o.Create(context.Background(), CreateRequest{Event: baseEvent()})

	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindCalendarService))
	assert.Equal(t, 403, apperr.StatusOf(err))
}

func existingWithAttachments(ids ...string) *calendar.Event {
	ev := baseEvent()
	ev.Id = "evt-9"
	for _, id := range ids {
		ev.Attachments = append(ev.Attachments, &calendar.EventAttachment{FileId: id, Title: id})
	}
	return ev
}

func attachmentIDs(ev *calendar.Event) []string {
	ids := make([]string, 0, len(ev.Attachments))
	for _, a := range ev.Attachments {
		ids = append(ids, a.FileId)
	}
	return ids
}

func TestUpdateRemovesAttachment(t *testing.T) {
	cal := &MockCalendar{}
	cal.On("GetEvent", "primary", "evt-9").Return(existingWithAttachments("A", "B", "C"), nil)

	var patch *calendar.Event
	cal.On("PatchEvent", "primary", "evt-9", mock.Anything, models.WriteOptions{SupportsAttachments: true}).
		Run(func(args mock.Arguments) { patch = args.Get(2).(*calendar.Event) }).
		Return(&calendar.Event{Id: "evt-9"}, nil)

	o := NewOrchestrator(discardLogger(), cal, &MockMaterializer{}, Options{})
	_, err := o.Update(context.Background(), UpdateRequest{
		EventID:        "evt-9",
		Event:          &calendar.Event{Summary: "Renamed"},
		FileIDToRemove: "B",
	})

	require.NoError(t, err)
	require.NotNil(t, patch)
	assert.Equal(t, []string{"A", "C"}, attachmentIDs(patch))
	assert.Equal(t, "Renamed", patch.Summary)
	assert.Contains(t, patch.ForceSendFields, "Attachments")
}

func TestUpdateRemovalWithoutMatchIsNoop(t *testing.T) {
	cal := &MockCalendar{}
	cal.On("GetEvent", "primary", "evt-9").Return(existingWithAttachments("A", "B", "C"), nil)

	var patch *calendar.Event
	cal.On("PatchEvent", "primary", "evt-9", mock.Anything, models.WriteOptions{SupportsAttachments: true}).
		Run(func(args mock.Arguments) { patch = args.Get(2).(*calendar.Event) }).
		Return(&calendar.Event{Id: "evt-9"}, nil)

	o := NewOrchestrator(discardLogger(), cal, &MockMaterializer{}, Options{})
	_, err := o.Update(context.Background(), UpdateRequest{EventID: "evt-9", FileIDToRemove: "Z"})

	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, attachmentIDs(patch))
}

func TestUpdateRemovingLastAttachmentSendsEmptyList(t *testing.T) {
	cal := &MockCalendar{}
	cal.On("GetEvent", "primary", "evt-9").Return(existingWithAttachments("A"), nil)

	var patch *calendar.Event
	cal.On("PatchEvent", "primary", "evt-9", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { patch = args.Get(2).(*calendar.Event) }).
		Return(&calendar.Event{Id: "evt-9"}, nil)

	o := NewOrchestrator(discardLogger(), cal, &MockMaterializer{}, Options{})
	_, err := o.Update(context.Background(), UpdateRequest{EventID: "evt-9", FileIDToRemove: "A"})

	require.NoError(t, err)
	assert.NotNil(t, patch.Attachments)
	assert.Empty(t, patch.Attachments)
	assert.Contains(t, patch.ForceSendFields, "Attachments")
}

func TestUpdateWithoutRemovalLeavesAttachmentsUntouched(t *testing.T) {
	cal := &MockCalendar{}
	cal.On("GetEvent", "work", "evt-9").Return(existingWithAttachments("A", "B"), nil)

	var patch *calendar.Event
	cal.On("PatchEvent", "work", "evt-9", mock.Anything, models.WriteOptions{SupportsAttachments: false}).
		Run(func(args mock.Arguments) { patch = args.Get(2).(*calendar.Event) }).
		Return(&calendar.Event{Id: "evt-9"}, nil)

	o := NewOrchestrator(discardLogger(), cal, &MockMaterializer{}, Options{})
	_, err := o.Update(context.Background(), UpdateRequest{
		CalendarID: "work",
		EventID:    "evt-9",
		Event:      &calendar.Event{Description: "new"},
	})

	require.NoError(t, err)
	assert.Nil(t, patch.Attachments)
	assert.NotContains(t, patch.ForceSendFields, "Attachments")
}

func TestUpdateInvalidRangeMakesNoCalls(t *testing.T) {
	cal := &MockCalendar{}

	o := NewOrchestrator(discardLogger(), cal, &MockMaterializer{}, Options{})
	_, err := o.Update(context.Background(), UpdateRequest{
		EventID: "evt-9",
		Event: &calendar.Event{
			Start: &calendar.EventDateTime{DateTime: "2026-05-04T11:00:00Z"},
			End:   &calendar.EventDateTime{DateTime: "2026-05-04T10:00:00Z"},
		},
	})

	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
	cal.AssertNotCalled(t, "GetEvent", mock.Anything, mock.Anything)
	cal.AssertNotCalled(t, "PatchEvent", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdatePartialRangeSkipsCheck(t *testing.T) {
	cal := &MockCalendar{}
	cal.On("GetEvent", "primary", "evt-9").Return(existingWithAttachments(), nil)
	cal.On("PatchEvent", "primary", "evt-9", mock.Anything, mock.Anything).Return(&calendar.Event{Id: "evt-9"}, nil)

	o := NewOrchestrator(discardLogger(), cal, &MockMaterializer{}, Options{})
	_, err := o.Update(context.Background(), UpdateRequest{
		EventID: "evt-9",
		Event:   &calendar.Event{Start: &calendar.EventDateTime{DateTime: "2026-05-04T11:00:00Z"}},
	})

	require.NoError(t, err)
	cal.AssertExpectations(t)
}

func TestUpdateMissingEvent(t *testing.T) {
	cal := &MockCalendar{}
	cal.On("GetEvent", "primary", "nope").Return(nil, apperr.CalendarService("failed to get event", 404, nil))

	o := NewOrchestrator(discardLogger(), cal, &MockMaterializer{}, Options{})
	_, err := o.Update(context.Background(), UpdateRequest{EventID: "nope", FileIDToRemove: "A"})

	require.Error(t, err)
	assert.True(t, apperr.IsNotFound(err))
	cal.AssertNotCalled(t, "PatchEvent", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCompositionEnrichmentIsPure(t *testing.T) {
	base := NewComposition(baseEvent())
	withAtt := base.WithAttachments([]models.AttachmentDescriptor{descriptor("x")})
	withConf := withAtt.WithConference("req", "")

	assert.Empty(t, base.Attachments)
	assert.False(t, base.SupportsAttachments)
	assert.Nil(t, withAtt.Conference)
	assert.True(t, withAtt.SupportsAttachments)
	assert.Equal(t, DefaultSolutionType, withConf.Conference.SolutionType)
	assert.Equal(t, models.WriteOptions{SupportsAttachments: true, ConferenceDataVersion: 1}, withConf.WriteOptions())

	empty := base.WithAttachments(nil)
	assert.False(t, empty.SupportsAttachments)
	assert.Nil(t, empty.Event().Attachments)
}
