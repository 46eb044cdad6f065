package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"petcare-vet-server/internal/config"
	"petcare-vet-server/internal/middleware"
	"petcare-vet-server/internal/models"
	"petcare-vet-server/internal/services"
	"petcare-vet-server/internal/utils"
)

const testSecret = "handler-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeBooker struct {
	bookFn      func(ctx context.Context, actor services.ActorContext, req services.BookingRequest) (*models.Appointment, error)
	createFn    func(ctx context.Context, actor services.ActorContext, req services.StaffBookingRequest) (*models.Appointment, error)
	listOwnerFn func(ctx context.Context, actor services.ActorContext, status string) ([]models.Appointment, error)
	getOwnerFn  func(ctx context.Context, actor services.ActorContext, id string) (*models.Appointment, error)
	listStoreFn func(ctx context.Context, actor services.ActorContext, q services.StoreQuery) ([]models.Appointment, int64, error)
	getStoreFn  func(ctx context.Context, actor services.ActorContext, id string) (*models.Appointment, error)
}

func (f fakeBooker) Book(ctx context.Context, actor services.ActorContext, req services.BookingRequest) (*models.Appointment, error) {
	if f.bookFn == nil {
		return &models.Appointment{}, nil
	}
	return f.bookFn(ctx, actor, req)
}

func (f fakeBooker) CreateForStore(ctx context.Context, actor services.ActorContext, req services.StaffBookingRequest) (*models.Appointment, error) {
	if f.createFn == nil {
		return &models.Appointment{}, nil
	}
	return f.createFn(ctx, actor, req)
}

func (f fakeBooker) ListForOwner(ctx context.Context, actor services.ActorContext, status string) ([]models.Appointment, error) {
	if f.listOwnerFn == nil {
		return nil, nil
	}
	return f.listOwnerFn(ctx, actor, status)
}

func (f fakeBooker) GetForOwner(ctx context.Context, actor services.ActorContext, id string) (*models.Appointment, error) {
	if f.getOwnerFn == nil {
		return &models.Appointment{}, nil
	}
	return f.getOwnerFn(ctx, actor, id)
}

func (f fakeBooker) ListForStore(ctx context.Context, actor services.ActorContext, q services.StoreQuery) ([]models.Appointment, int64, error) {
	if f.listStoreFn == nil {
		return nil, 0, nil
	}
	return f.listStoreFn(ctx, actor, q)
}

func (f fakeBooker) GetForStore(ctx context.Context, actor services.ActorContext, id string) (*models.Appointment, error) {
	if f.getStoreFn == nil {
		return &models.Appointment{}, nil
	}
	return f.getStoreFn(ctx, actor, id)
}

type fakeApprover struct {
	acceptFn  func(ctx context.Context, actor services.ActorContext, id string, o services.AcceptOverrides) (*models.Appointment, error)
	rejectFn  func(ctx context.Context, actor services.ActorContext, id, reason string) (*models.Appointment, error)
	updateFn  func(ctx context.Context, actor services.ActorContext, id string, p services.AppointmentPatch) (*models.Appointment, error)
	pendingFn func(ctx context.Context, actor services.ActorContext, bookingType string, page, limit int) ([]models.Appointment, int64, error)
}

func (f fakeApprover) Accept(ctx context.Context, actor services.ActorContext, id string, o services.AcceptOverrides) (*models.Appointment, error) {
	if f.acceptFn == nil {
		return &models.Appointment{}, nil
	}
	return f.acceptFn(ctx, actor, id, o)
}

func (f fakeApprover) Reject(ctx context.Context, actor services.ActorContext, id, reason string) (*models.Appointment, error) {
	if f.rejectFn == nil {
		return &models.Appointment{}, nil
	}
	return f.rejectFn(ctx, actor, id, reason)
}

func (f fakeApprover) Update(ctx context.Context, actor services.ActorContext, id string, p services.AppointmentPatch) (*models.Appointment, error) {
	if f.updateFn == nil {
		return &models.Appointment{}, nil
	}
	return f.updateFn(ctx, actor, id, p)
}

func (f fakeApprover) ListPending(ctx context.Context, actor services.ActorContext, bookingType string, page, limit int) ([]models.Appointment, int64, error) {
	if f.pendingFn == nil {
		return nil, 0, nil
	}
	return f.pendingFn(ctx, actor, bookingType, page, limit)
}

type fakeCanceller func(ctx context.Context, actor services.ActorContext, id, reason string) (*models.Appointment, error)

func (f fakeCanceller) Cancel(ctx context.Context, actor services.ActorContext, id, reason string) (*models.Appointment, error) {
	return f(ctx, actor, id, reason)
}

type fakeSlots func(ctx context.Context, storeID, date string) ([]string, error)

func (f fakeSlots) ListAvailableSlots(ctx context.Context, storeID, date string) ([]string, error) {
	return f(ctx, storeID, date)
}

type fakeConsultations struct {
	startFn    func(ctx context.Context, actor services.ActorContext, id string) (*services.StartResult, error)
	completeFn func(ctx context.Context, actor services.ActorContext, id string, p services.ClinicalPayload) (*services.CompleteResult, error)
	petFn      func(ctx context.Context, actor services.ActorContext, id, petID string, p services.ClinicalPayload) (*services.PetCompleteResult, error)
	detailsFn  func(ctx context.Context, actor services.ActorContext, id string) (*services.ConsultationDetails, error)
}

func (f fakeConsultations) Start(ctx context.Context, actor services.ActorContext, id string) (*services.StartResult, error) {
	return f.startFn(ctx, actor, id)
}

func (f fakeConsultations) Complete(ctx context.Context, actor services.ActorContext, id string, p services.ClinicalPayload) (*services.CompleteResult, error) {
	return f.completeFn(ctx, actor, id, p)
}

func (f fakeConsultations) CompleteForPet(ctx context.Context, actor services.ActorContext, id, petID string, p services.ClinicalPayload) (*services.PetCompleteResult, error) {
	return f.petFn(ctx, actor, id, petID, p)
}

func (f fakeConsultations) Details(ctx context.Context, actor services.ActorContext, id string) (*services.ConsultationDetails, error) {
	return f.detailsFn(ctx, actor, id)
}

type fakeRecords struct {
	listFn      func(ctx context.Context, actor services.ActorContext, petID string) ([]models.MedicalRecord, error)
	listOwnerFn func(ctx context.Context, actor services.ActorContext, petID string) ([]models.MedicalRecord, error)
	getFn       func(ctx context.Context, actor services.ActorContext, id string) (*models.MedicalRecord, error)
	updateFn    func(ctx context.Context, actor services.ActorContext, id string, p services.RecordPatch) (*models.MedicalRecord, error)
	deleteFn    func(ctx context.Context, actor services.ActorContext, id string) (*models.MedicalRecord, error)
	restoreFn   func(ctx context.Context, actor services.ActorContext, id string) (*models.MedicalRecord, error)
	attachFn    func(ctx context.Context, actor services.ActorContext, recordID, fileName, fileType string, data []byte) (*models.MedicalRecordAttachment, error)
	getAttFn    func(ctx context.Context, actor services.ActorContext, attachmentID string) (*models.MedicalRecordAttachment, error)
}

func (f fakeRecords) ListByPet(ctx context.Context, actor services.ActorContext, petID string) ([]models.MedicalRecord, error) {
	return f.listFn(ctx, actor, petID)
}

func (f fakeRecords) ListForOwnerPet(ctx context.Context, actor services.ActorContext, petID string) ([]models.MedicalRecord, error) {
	return f.listOwnerFn(ctx, actor, petID)
}

func (f fakeRecords) Get(ctx context.Context, actor services.ActorContext, id string) (*models.MedicalRecord, error) {
	return f.getFn(ctx, actor, id)
}

func (f fakeRecords) Update(ctx context.Context, actor services.ActorContext, id string, p services.RecordPatch) (*models.MedicalRecord, error) {
	return f.updateFn(ctx, actor, id, p)
}

func (f fakeRecords) SoftDelete(ctx context.Context, actor services.ActorContext, id string) (*models.MedicalRecord, error) {
	return f.deleteFn(ctx, actor, id)
}

func (f fakeRecords) Restore(ctx context.Context, actor services.ActorContext, id string) (*models.MedicalRecord, error) {
	return f.restoreFn(ctx, actor, id)
}

func (f fakeRecords) AddAttachment(ctx context.Context, actor services.ActorContext, recordID, fileName, fileType string, data []byte) (*models.MedicalRecordAttachment, error) {
	return f.attachFn(ctx, actor, recordID, fileName, fileType, data)
}

func (f fakeRecords) GetAttachment(ctx context.Context, actor services.ActorContext, attachmentID string) (*models.MedicalRecordAttachment, error) {
	return f.getAttFn(ctx, actor, attachmentID)
}

// plainViews resolves nothing.
type plainViews struct{}

func (plainViews) Appointment(ctx context.Context, a *models.Appointment) services.AppointmentView {
	return services.AppointmentView{Appointment: a}
}

func (plainViews) Appointments(ctx context.Context, list []models.Appointment) []services.AppointmentView {
	out := make([]services.AppointmentView, 0, len(list))
	for i := range list {
		out = append(out, services.AppointmentView{Appointment: &list[i]})
	}
	return out
}

func (plainViews) Record(ctx context.Context, r *models.MedicalRecord) services.RecordView {
	return services.RecordView{MedicalRecord: r, BalanceDue: r.BalanceDue()}
}

func (plainViews) Records(ctx context.Context, list []models.MedicalRecord) []services.RecordView {
	out := make([]services.RecordView, 0, len(list))
	for i := range list {
		out = append(out, services.RecordView{MedicalRecord: &list[i], BalanceDue: list[i].BalanceDue()})
	}
	return out
}

var (
	owner   = services.ActorContext{UserID: "owner-1", Role: models.RoleUser}
	manager = services.ActorContext{UserID: "staff-a", StoreID: "store-a", Role: models.RoleManager}
)

// authed mounts handler behind the real auth middleware.
func authed(method, path string, handler gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Handle(method, path, middleware.AuthMiddleware(testSecret), handler)
	return r
}

func token(t *testing.T, a services.ActorContext) string {
	t.Helper()
	tok, err := utils.GenerateAccessToken(a.UserID, a.Role, a.StoreID, &config.Config{JWTSecret: testSecret, JWTExpirationMinutes: 5})
	require.NoError(t, err)
	return "Bearer " + tok
}

func call(t *testing.T, r http.Handler, method, target string, a services.ActorContext, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader = http.NoBody
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, rd)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", token(t, a))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Kind    string          `json:"kind"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}
