package services

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net/textproto"
	"testing"
	"time"

	"github.com/alphasafe/alphasafe-api/models"
	"github.com/alphasafe/alphasafe-api/notifications"
	"github.com/alphasafe/alphasafe-api/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
)

type interventionFixture struct {
	db       *gorm.DB
	svc      *InterventionService
	recorder *notifications.Recorder
	storage  *MockStorage
	client   *models.Client
}

func newInterventionFixture(t *testing.T) *interventionFixture {
	t.Helper()

	db := testutil.NewTestDB(t)
	recorder := notifications.NewRecorder()
	storage := NewMockStorage()
	svc := NewInterventionService(db, zap.NewNop(), recorder, notifications.PolicyConfig{}, NewImageService(storage))

	return &interventionFixture{
		db:       db,
		svc:      svc,
		recorder: recorder,
		storage:  storage,
		client:   testutil.CreateClient(t, db, "Condominio Sol"),
	}
}

func (f *interventionFixture) input(status, technician string) InterventionInput {
	clientID := int(f.client.ID)
	return InterventionInput{
		ClientID:       &clientID,
		ServiceType:    []string{models.ServiceAlarm, models.ServiceVideoSurveillance},
		EquipmentModel: strPtr("Ajax Hub 2"),
		SerialNumber:   strPtr("SN-0001"),
		Status:         strPtr(status),
		Technician:     strPtr(technician),
	}
}

func (f *interventionFixture) create(t *testing.T, status, technician string) *models.Intervention {
	t.Helper()
	intervention, err := f.svc.Create(context.Background(), f.input(status, technician))
	require.NoError(t, err)
	return intervention
}

func countPhotos(t *testing.T, db *gorm.DB, interventionID uint) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(&models.Photo{}).Where("intervention_id = ?", interventionID).Count(&count).Error)
	return count
}

func TestValidateIntervention(t *testing.T) {
	valid := func() InterventionInput {
		clientID := 1
		return InterventionInput{
			ClientID:       &clientID,
			ServiceType:    []string{models.ServiceAlarm},
			EquipmentModel: strPtr("Ajax"),
			SerialNumber:   strPtr("SN"),
			Technician:     strPtr("Rui"),
		}
	}

	intervention, err := ValidateIntervention(valid())
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, intervention.Status, "status defaults to In Progress")

	tests := []struct {
		name      string
		mutate    func(in *InterventionInput)
		wantField string
	}{
		{"missing client", func(in *InterventionInput) { in.ClientID = nil }, "client_id"},
		{"zero client", func(in *InterventionInput) { zero := 0; in.ClientID = &zero }, "client_id"},
		{"missing services", func(in *InterventionInput) { in.ServiceType = nil }, "service_type"},
		{"empty services", func(in *InterventionInput) { in.ServiceType = []string{} }, "service_type"},
		{"unknown service", func(in *InterventionInput) { in.ServiceType = []string{"Plumbing"} }, "service_type"},
		{"blank equipment", func(in *InterventionInput) { in.EquipmentModel = strPtr(" ") }, "equipment_model"},
		{"missing serial", func(in *InterventionInput) { in.SerialNumber = nil }, "serial_number"},
		{"missing technician", func(in *InterventionInput) { in.Technician = nil }, "technician"},
		{"bad status", func(in *InterventionInput) { in.Status = strPtr("Em curso") }, "status"},
		{"bad date", func(in *InterventionInput) { in.AssistanceDate = strPtr("tomorrow") }, "assistance_date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid()
			tt.mutate(&in)
			_, err := ValidateIntervention(in)
			var validationErr *ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, tt.wantField, validationErr.Field)
		})
	}
}

func TestValidateInterventionPatch_EmptyDateClears(t *testing.T) {
	date := time.Date(2026, 3, 1, 9, 0, 0, 0, time.Local)
	intervention := &models.Intervention{AssistanceDate: &date}

	in := InterventionInput{AssistanceDate: strPtr("")}
	require.NoError(t, ValidateInterventionPatch(in))
	require.NoError(t, in.ApplyTo(intervention))
	assert.Nil(t, intervention.AssistanceDate)

	in = InterventionInput{AssistanceDate: strPtr("2026-03-02T14:30")}
	require.NoError(t, in.ApplyTo(intervention))
	require.NotNil(t, intervention.AssistanceDate)
	assert.Equal(t, 14, intervention.AssistanceDate.Hour())
}

func TestValidatePhotoURL(t *testing.T) {
	for _, ok := range []string{"https://cdn.example.com/a.png", "http://10.0.0.1/img.jpg", "data:image/png;base64,AAAA"} {
		_, err := ValidatePhotoURL(PhotoInput{URL: strPtr(ok)})
		assert.NoError(t, err, ok)
	}
	for _, bad := range []string{"", "ftp://example.com/a.png", "/relative.png", "data:text/plain,hi"} {
		_, err := ValidatePhotoURL(PhotoInput{URL: strPtr(bad)})
		assert.Equal(t, KindValidation, KindOf(err), bad)
	}
}

func TestInterventionService_CreateLoadsClientAndRejectsUnknownClient(t *testing.T) {
	f := newInterventionFixture(t)

	intervention := f.create(t, models.StatusInProgress, "Rui")
	assert.Equal(t, "Condominio Sol", intervention.Client.Name)
	assert.Equal(t, []string{models.ServiceAlarm, models.ServiceVideoSurveillance}, intervention.ServiceType)
	assert.Empty(t, intervention.Photos)

	in := f.input(models.StatusInProgress, "Rui")
	missing := 999
	in.ClientID = &missing
	_, err := f.svc.Create(context.Background(), in)
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestInterventionService_CreateAssistanceEmitsOneUrgentNotification(t *testing.T) {
	f := newInterventionFixture(t)
	testutil.CreateTechnician(t, f.db, "Rui", "rui@example.com")
	testutil.CreateOfficeTechnician(t, f.db, "Marta", "marta@example.com", true)

	f.create(t, models.StatusAssistance, "Rui")

	requests := f.recorder.Requests()
	require.Len(t, requests, 1)
	assert.True(t, requests[0].Urgent())
	assert.Equal(t, notifications.ChannelEmail, requests[0].Channel)
	assert.Equal(t, "rui@example.com", requests[0].Recipient.Email)
	assert.Equal(t, "Condominio Sol", requests[0].Intervention.Client.Name)
}

func TestInterventionService_CreateWithUnknownTechnicianDoesNotFail(t *testing.T) {
	f := newInterventionFixture(t)

	f.create(t, models.StatusInProgress, "Nobody")
	assert.Empty(t, f.recorder.Requests())
}

func TestInterventionService_BillingOnlyOnTransitionToInvoice(t *testing.T) {
	f := newInterventionFixture(t)
	testutil.CreateTechnician(t, f.db, "Rui", "rui@example.com")
	testutil.CreateOfficeTechnician(t, f.db, "Marta", "marta@example.com", true)
	testutil.CreateOfficeTechnician(t, f.db, "Paulo", "paulo@example.com", false)
	ctx := context.Background()

	intervention := f.create(t, models.StatusInProgress, "Rui")
	f.recorder.Clear()

	_, err := f.svc.Update(ctx, intervention.ID, InterventionInput{Status: strPtr(models.StatusToInvoice)})
	require.NoError(t, err)

	requests := f.recorder.Requests()
	require.Len(t, requests, 1)
	assert.Equal(t, notifications.KindBilling, requests[0].Kind)
	assert.Equal(t, "marta@example.com", requests[0].Recipient.Email)

	for _, status := range []string{models.StatusToInvoice, models.StatusCompleted, models.StatusInProgress, models.StatusCompleted} {
		f.recorder.Clear()
		_, err := f.svc.Update(ctx, intervention.ID, InterventionInput{Status: strPtr(status)})
		require.NoError(t, err)
		for _, req := range f.recorder.Requests() {
			assert.NotEqual(t, notifications.KindBilling, req.Kind, "moving to %s", status)
		}
	}
}

func TestInterventionService_UpdateIntoAssistanceSendsEmailAndPush(t *testing.T) {
	f := newInterventionFixture(t)
	testutil.CreateTechnician(t, f.db, "Rui", "rui@example.com")

	intervention := f.create(t, models.StatusInProgress, "Rui")
	f.recorder.Clear()

	updated, err := f.svc.Update(context.Background(), intervention.ID, InterventionInput{
		Status:         strPtr(models.StatusAssistance),
		AssistanceDate: strPtr("2026-05-04T10:00"),
	})
	require.NoError(t, err)
	require.NotNil(t, updated.AssistanceDate)

	requests := f.recorder.Requests()
	require.Len(t, requests, 2)
	assert.Equal(t, notifications.ChannelEmail, requests[0].Channel)
	assert.Equal(t, notifications.ChannelPush, requests[1].Channel)
	for _, req := range requests {
		assert.True(t, req.Urgent())
	}
}

func TestInterventionService_ReassignNotifiesNewTechnician(t *testing.T) {
	f := newInterventionFixture(t)
	testutil.CreateTechnician(t, f.db, "Rui", "rui@example.com")
	testutil.CreateTechnician(t, f.db, "Ana", "ana@example.com")

	intervention := f.create(t, models.StatusInProgress, "Rui")
	f.recorder.Clear()

	_, err := f.svc.Update(context.Background(), intervention.ID, InterventionInput{Technician: strPtr("Ana")})
	require.NoError(t, err)

	requests := f.recorder.Requests()
	require.Len(t, requests, 1)
	assert.Equal(t, notifications.KindAssignment, requests[0].Kind)
	assert.Equal(t, "ana@example.com", requests[0].Recipient.Email)
}

func TestInterventionService_RecipientsResolvedByName(t *testing.T) {
	f := newInterventionFixture(t)
	testutil.CreateTechnician(t, f.db, "Rui", "rui@example.com")
	testutil.CreateTechnician(t, f.db, "Rui", "rui.costa@example.com")
	testutil.CreateTechnician(t, f.db, "Ana", "ana@example.com")
	office := testutil.CreateOfficeTechnician(t, f.db, "Marta", "marta@example.com", true)
	office.ReceiveAssignmentNotifications = true
	require.NoError(t, f.db.Save(office).Error)
	ctx := context.Background()

	f.create(t, models.StatusInProgress, "Rui")
	var emails []string
	for _, req := range f.recorder.Requests() {
		emails = append(emails, req.Recipient.Email)
	}
	assert.ElementsMatch(t, []string{"rui@example.com", "rui.costa@example.com"}, emails)

	intervention := f.create(t, models.StatusInProgress, "Marta")
	f.recorder.Clear()
	_, err := f.svc.Update(ctx, intervention.ID, InterventionInput{Status: strPtr(models.StatusToInvoice)})
	require.NoError(t, err)

	requests := f.recorder.Requests()
	require.Len(t, requests, 1, "an office assignee is billed once")
	assert.Equal(t, notifications.KindBilling, requests[0].Kind)
	assert.Equal(t, "marta@example.com", requests[0].Recipient.Email)
}

func TestInterventionService_NotificationFailureDoesNotFailWrite(t *testing.T) {
	db := testutil.NewTestDB(t)
	core, logs := observer.New(zap.WarnLevel)
	logger := zap.New(core)

	dispatcher := notifications.NewDispatcher(logger, 10).
		RouteAll(notifications.SenderFunc(func(context.Context, notifications.Request) error {
			return errors.New("smtp down")
		}))
	dispatcher.Start()

	svc := NewInterventionService(db, logger, dispatcher, notifications.PolicyConfig{}, nil)
	client := testutil.CreateClient(t, db, "Acme")
	testutil.CreateTechnician(t, db, "Rui", "rui@example.com")

	clientID := int(client.ID)
	created, err := svc.Create(context.Background(), InterventionInput{
		ClientID:       &clientID,
		ServiceType:    []string{models.ServiceAlarm},
		EquipmentModel: strPtr("Ajax"),
		SerialNumber:   strPtr("SN"),
		Technician:     strPtr("Rui"),
	})
	require.NoError(t, err)
	dispatcher.Close()

	var stored models.Intervention
	require.NoError(t, db.First(&stored, created.ID).Error)
	assert.Equal(t, 1, logs.FilterMessage("notification delivery failed").Len())
}

func TestInterventionService_ListFilters(t *testing.T) {
	f := newInterventionFixture(t)
	ctx := context.Background()
	other := testutil.CreateClient(t, f.db, "Hotel Mar")

	f.create(t, models.StatusInProgress, "Rui Costa")
	f.create(t, models.StatusToInvoice, "Ana Silva")
	in := f.input(models.StatusToInvoice, "Rui Costa")
	otherID := int(other.ID)
	in.ClientID = &otherID
	_, err := f.svc.Create(ctx, in)
	require.NoError(t, err)

	all, err := f.svc.List(ctx, InterventionFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Hotel Mar", all[0].Client.Name, "newest first with client loaded")

	byStatus, err := f.svc.List(ctx, InterventionFilter{Status: models.StatusToInvoice})
	require.NoError(t, err)
	assert.Len(t, byStatus, 2)

	byTechnician, err := f.svc.List(ctx, InterventionFilter{Technician: "rui"})
	require.NoError(t, err)
	assert.Len(t, byTechnician, 2)

	combined, err := f.svc.List(ctx, InterventionFilter{Status: models.StatusToInvoice, Technician: "RUI", ClientID: other.ID})
	require.NoError(t, err)
	require.Len(t, combined, 1)
	assert.Equal(t, other.ID, combined[0].ClientID)

	none, err := f.svc.List(ctx, InterventionFilter{ClientID: f.client.ID, Status: models.StatusCompleted})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestInterventionService_DeleteCascadesPhotos(t *testing.T) {
	f := newInterventionFixture(t)
	ctx := context.Background()

	intervention := f.create(t, models.StatusInProgress, "Rui")
	for _, u := range []string{"https://a.example.com/1.png", "https://a.example.com/2.png", "data:image/png;base64,AAAA"} {
		_, err := f.svc.AddPhoto(ctx, intervention.ID, PhotoInput{URL: strPtr(u)})
		require.NoError(t, err)
	}
	require.EqualValues(t, 3, countPhotos(t, f.db, intervention.ID))

	require.NoError(t, f.svc.Delete(ctx, intervention.ID))

	assert.Zero(t, countPhotos(t, f.db, intervention.ID))
	_, err := f.svc.Get(ctx, intervention.ID)
	assert.Equal(t, KindNotFound, KindOf(err))

	assert.Equal(t, KindNotFound, KindOf(f.svc.Delete(ctx, intervention.ID)))
}

func TestInterventionService_DeleteIsAtomic(t *testing.T) {
	f := newInterventionFixture(t)
	ctx := context.Background()

	intervention := f.create(t, models.StatusInProgress, "Rui")
	for i := 0; i < 2; i++ {
		_, err := f.svc.AddPhoto(ctx, intervention.ID, PhotoInput{URL: strPtr("https://a.example.com/p.png")})
		require.NoError(t, err)
	}

	// Fail the intervention row delete after the photos are gone
	require.NoError(t, f.db.Callback().Delete().Before("gorm:delete").Register("test:fail_intervention_delete", func(tx *gorm.DB) {
		if tx.Statement.Table == "interventions" {
			tx.AddError(errors.New("simulated fault"))
		}
	}))

	err := f.svc.Delete(ctx, intervention.ID)
	require.Error(t, err)
	assert.Equal(t, KindInternal, KindOf(err))

	assert.EqualValues(t, 2, countPhotos(t, f.db, intervention.ID), "photo deletion rolled back")
	_, err = f.svc.Get(ctx, intervention.ID)
	assert.NoError(t, err, "intervention still exists")
}

func newFileHeader(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	h.Set("Content-Type", "application/octet-stream")
	part, err := writer.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	form, err := multipart.NewReader(body, writer.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { form.RemoveAll() })
	require.Len(t, form.File["file"], 1)
	return form.File["file"][0]
}

func TestInterventionService_UploadPhotoPresignsAndDeleteRemovesObject(t *testing.T) {
	f := newInterventionFixture(t)
	ctx := context.Background()
	intervention := f.create(t, models.StatusInProgress, "Rui")

	photo, err := f.svc.UploadPhoto(ctx, intervention.ID, newFileHeader(t, "panel.jpg", []byte("jpeg bytes")))
	require.NoError(t, err)
	require.NotNil(t, photo.StorageKey)
	assert.True(t, f.storage.Exists(*photo.StorageKey))
	assert.Contains(t, photo.URL, "?mock=true")

	loaded, err := f.svc.Get(ctx, intervention.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Photos, 1)
	assert.Contains(t, loaded.Photos[0].URL, *photo.StorageKey)

	require.NoError(t, f.svc.DeletePhoto(ctx, photo.ID))
	assert.False(t, f.storage.Exists(*photo.StorageKey))
	assert.Equal(t, KindNotFound, KindOf(f.svc.DeletePhoto(ctx, photo.ID)))
}

func TestInterventionService_UploadPhotoValidation(t *testing.T) {
	f := newInterventionFixture(t)
	ctx := context.Background()
	intervention := f.create(t, models.StatusInProgress, "Rui")

	_, err := f.svc.UploadPhoto(ctx, intervention.ID, newFileHeader(t, "notes.pdf", []byte("pdf")))
	assert.Equal(t, KindValidation, KindOf(err))

	_, err = f.svc.UploadPhoto(ctx, 999, newFileHeader(t, "a.png", []byte("png")))
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.Empty(t, f.storage.Keys())
}

func TestInterventionService_DeleteKeepsGoingWhenStorageFails(t *testing.T) {
	f := newInterventionFixture(t)
	ctx := context.Background()
	intervention := f.create(t, models.StatusInProgress, "Rui")

	photo, err := f.svc.UploadPhoto(ctx, intervention.ID, newFileHeader(t, "a.webp", []byte("webp")))
	require.NoError(t, err)

	f.storage.FailDelete = true
	require.NoError(t, f.svc.Delete(ctx, intervention.ID))
	assert.Zero(t, countPhotos(t, f.db, intervention.ID))
	assert.True(t, f.storage.Exists(*photo.StorageKey), "object left behind is only logged")
}

func TestInterventionService_UploadWithoutStorage(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := NewInterventionService(db, zap.NewNop(), nil, notifications.PolicyConfig{}, nil)

	_, err := svc.UploadPhoto(context.Background(), 1, newFileHeader(t, "a.png", []byte("png")))
	assert.Equal(t, KindInternal, KindOf(err))
}
