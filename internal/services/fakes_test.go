package services

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"petcare-vet-server/internal/config"
	"petcare-vet-server/internal/models"
	"petcare-vet-server/internal/repository"
)

const (
	storeA = "store-a"
	storeB = "store-b"
)

var (
	testNow = time.Date(2024, 5, 30, 10, 0, 0, 0, time.UTC)

	ownerActor  = ActorContext{UserID: "owner-1", Role: models.RoleUser}
	owner2Actor = ActorContext{UserID: "owner-2", Role: models.RoleUser}
	managerA    = ActorContext{UserID: "staff-a", StoreID: storeA, Role: models.RoleManager}
	managerB    = ActorContext{UserID: "staff-b", StoreID: storeB, Role: models.RoleManager}
)

// memStore is an in-memory repository with the same atomicity as the gorm one:
// claims are exclusive and transitions compare the stored status.
type memStore struct {
	mu          sync.Mutex
	seq         int64
	clock       time.Time
	appts       map[string]*models.Appointment
	claims      map[string]string
	records     map[string]*models.MedicalRecord
	attachments map[string]*models.MedicalRecordAttachment

	// beforeWrite runs at the start of every status write, outside the lock.
	beforeWrite func()
	failWith    error
}

func newMemStore() *memStore {
	return &memStore{
		clock:       testNow,
		appts:       map[string]*models.Appointment{},
		claims:      map[string]string{},
		records:     map[string]*models.MedicalRecord{},
		attachments: map[string]*models.MedicalRecordAttachment{},
	}
}

var (
	_ repository.AppointmentRepository   = (*memStore)(nil)
	_ repository.MedicalRecordRepository = memRecords{}
)

func cloneAppointment(a *models.Appointment) *models.Appointment {
	c := *a
	c.Pets = append([]models.AppointmentPet(nil), a.Pets...)
	return &c
}

func cloneRecord(r *models.MedicalRecord) *models.MedicalRecord {
	c := *r
	c.Attachments = nil
	return &c
}

// tick keeps creation times distinct and ordered.
func (m *memStore) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *memStore) NextNumber(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return 0, m.failWith
	}
	m.seq++
	return m.seq, nil
}

func (m *memStore) checkClaims(id string, keys []string) error {
	for _, k := range keys {
		if holder, ok := m.claims[k]; ok && holder != id {
			return &repository.ClaimError{Key: k}
		}
	}
	return nil
}

func (m *memStore) setClaims(id string, keys []string) {
	for k, holder := range m.claims {
		if holder == id {
			delete(m.claims, k)
		}
	}
	for _, k := range keys {
		m.claims[k] = id
	}
}

func (m *memStore) Create(ctx context.Context, a *models.Appointment, claims []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if err := m.checkClaims(a.ID, claims); err != nil {
		return err
	}
	now := m.tick()
	a.CreatedAt, a.UpdatedAt = now, now
	for i := range a.Pets {
		a.Pets[i].AppointmentID = a.ID
		if a.Pets[i].ID == "" {
			a.Pets[i].ID = uuid.New().String()
		}
	}
	m.appts[a.ID] = cloneAppointment(a)
	m.setClaims(a.ID, claims)
	return nil
}

func (m *memStore) GetByID(ctx context.Context, id string) (*models.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneAppointment(a), nil
}

func matches(a *models.Appointment, f repository.AppointmentFilter) bool {
	if !a.IsActive {
		return false
	}
	if f.StoreID != "" && a.StoreID != f.StoreID {
		return false
	}
	if f.OwnerID != "" && a.OwnerID != f.OwnerID {
		return false
	}
	if f.PetID != "" {
		found := a.PetID == f.PetID
		for _, p := range a.Pets {
			found = found || p.PetID == f.PetID
		}
		if !found {
			return false
		}
	}
	if f.Date != "" && a.AppointmentDate != f.Date {
		return false
	}
	if f.TimeSlot != "" && a.TimeSlot != f.TimeSlot {
		return false
	}
	if len(f.Statuses) > 0 {
		found := false
		for _, s := range f.Statuses {
			found = found || a.Status == s
		}
		if !found {
			return false
		}
	}
	if f.ExcludeStatus != "" && a.Status == f.ExcludeStatus {
		return false
	}
	if f.BookingType != "" && a.BookingType != f.BookingType {
		return false
	}
	if f.ExcludeBookingType != "" && a.BookingType == f.ExcludeBookingType {
		return false
	}
	return true
}

func (m *memStore) Find(ctx context.Context, f repository.AppointmentFilter) ([]models.Appointment, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, 0, m.failWith
	}
	var out []models.Appointment
	for _, a := range m.appts {
		if matches(a, f) {
			out = append(out, *cloneAppointment(a))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.BookingType != b.BookingType {
			return a.BookingType < b.BookingType
		}
		if f.Order == repository.OrderNewest {
			return a.CreatedAt.After(b.CreatedAt)
		}
		if a.AppointmentDate != b.AppointmentDate {
			return a.AppointmentDate < b.AppointmentDate
		}
		return a.TimeSlot < b.TimeSlot
	})
	total := int64(len(out))
	if f.Limit > 0 {
		if f.Offset >= len(out) {
			return []models.Appointment{}, total, nil
		}
		end := f.Offset + f.Limit
		if end > len(out) {
			end = len(out)
		}
		out = out[f.Offset:end]
	}
	return out, total, nil
}

func (m *memStore) Count(ctx context.Context, f repository.AppointmentFilter) (int64, error) {
	f.Limit, f.Offset = 0, 0
	_, total, err := m.Find(ctx, f)
	return total, err
}

func (m *memStore) transition(a *models.Appointment, from models.AppointmentStatus, claims []string) error {
	stored, ok := m.appts[a.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if stored.Status != from {
		return repository.ErrStaleState
	}
	return m.checkClaims(a.ID, claims)
}

func (m *memStore) commit(a *models.Appointment, claims []string) {
	a.UpdatedAt = m.tick()
	m.appts[a.ID] = cloneAppointment(a)
	m.setClaims(a.ID, claims)
}

func (m *memStore) Transition(ctx context.Context, a *models.Appointment, from models.AppointmentStatus, claims []string) error {
	if m.beforeWrite != nil {
		m.beforeWrite()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	if err := m.transition(a, from, claims); err != nil {
		return err
	}
	m.commit(a, claims)
	return nil
}

func (m *memStore) CompleteConsultation(ctx context.Context, a *models.Appointment, from models.AppointmentStatus, claims []string, record *models.MedicalRecord) error {
	if m.beforeWrite != nil {
		m.beforeWrite()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	if err := m.transition(a, from, claims); err != nil {
		return err
	}
	m.putRecord(record)
	m.commit(a, claims)
	return nil
}

// setStatus changes a stored appointment behind the services' back.
func (m *memStore) setStatus(id string, st models.AppointmentStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appts[id].Status = st
}

func (m *memStore) putRecord(r *models.MedicalRecord) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = m.tick()
	}
	m.records[r.ID] = cloneRecord(r)
}

func (m *memStore) recordCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

func (m *memStore) Update(ctx context.Context, r *models.MedicalRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.records[r.ID]
	if !ok {
		return repository.ErrNotFound
	}
	c := cloneRecord(r)
	c.PetID, c.OwnerID, c.StoreID, c.AppointmentID, c.CreatedBy = stored.PetID, stored.OwnerID, stored.StoreID, stored.AppointmentID, stored.CreatedBy
	m.records[r.ID] = c
	return nil
}

func (m *memStore) AddAttachment(ctx context.Context, att *models.MedicalRecordAttachment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if att.ID == "" {
		att.ID = uuid.New().String()
	}
	c := *att
	m.attachments[att.ID] = &c
	return nil
}

func (m *memStore) GetAttachment(ctx context.Context, id string) (*models.MedicalRecordAttachment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	att, ok := m.attachments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *att
	return &c, nil
}

// memRecords exposes the record half of memStore under the interface method names.
type memRecords struct{ *memStore }

func (r memRecords) GetByID(ctx context.Context, id string) (*models.MedicalRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneRecord(rec), nil
}

func (r memRecords) Find(ctx context.Context, f repository.RecordFilter) ([]models.MedicalRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return nil, r.failWith
	}
	var out []models.MedicalRecord
	for _, rec := range r.records {
		if !f.IncludeArchived && !rec.IsActive {
			continue
		}
		if len(f.PetIDs) > 0 {
			found := false
			for _, id := range f.PetIDs {
				found = found || rec.PetID == id
			}
			if !found {
				continue
			}
		}
		if f.StoreID != "" && rec.StoreID != f.StoreID {
			continue
		}
		if f.OwnerID != "" && rec.OwnerID != f.OwnerID {
			continue
		}
		out = append(out, *cloneRecord(rec))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VisitDate.After(out[j].VisitDate) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

// memDirectory serves fixed platform data.
type memDirectory struct {
	pets     map[string]*models.Pet
	users    map[string]*models.User
	services map[string]*models.Service
	stores   map[string]*models.Store
}

func newMemDirectory() *memDirectory {
	d := &memDirectory{
		pets:     map[string]*models.Pet{},
		users:    map[string]*models.User{},
		services: map[string]*models.Service{},
		stores:   map[string]*models.Store{},
	}
	for _, u := range []models.User{
		{BaseModel: models.BaseModel{ID: "owner-1"}, Name: "Olivia Owner", Role: models.RoleUser},
		{BaseModel: models.BaseModel{ID: "owner-2"}, Name: "Oscar Owner", Role: models.RoleUser},
		{BaseModel: models.BaseModel{ID: "staff-a"}, Name: "Dr. Ames", StoreID: storeA, Role: models.RoleManager},
	} {
		u := u
		d.users[u.ID] = &u
	}
	for _, p := range []models.Pet{
		{BaseModel: models.BaseModel{ID: "pet-1"}, OwnerID: "owner-1", Name: "Rex", Species: "dog"},
		{BaseModel: models.BaseModel{ID: "pet-2"}, OwnerID: "owner-1", Name: "Tom", Species: "cat"},
		{BaseModel: models.BaseModel{ID: "pet-3"}, OwnerID: "owner-2", Name: "Kiwi", Species: "bird"},
	} {
		p := p
		d.pets[p.ID] = &p
	}
	d.services["svc-1"] = &models.Service{BaseModel: models.BaseModel{ID: "svc-1"}, StoreID: storeA, Name: "General Checkup", Price: 45, Duration: 30, IsActive: true}
	d.stores[storeA] = &models.Store{BaseModel: models.BaseModel{ID: "s-a"}, StoreID: storeA, Name: "Happy Paws Clinic"}
	d.stores[storeB] = &models.Store{BaseModel: models.BaseModel{ID: "s-b"}, StoreID: storeB, Name: "Riverside Vets"}
	return d
}

func (d *memDirectory) GetPet(ctx context.Context, id string) (*models.Pet, error) {
	if p, ok := d.pets[id]; ok {
		return p, nil
	}
	return nil, repository.ErrNotFound
}

func (d *memDirectory) GetUser(ctx context.Context, id string) (*models.User, error) {
	if u, ok := d.users[id]; ok {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

func (d *memDirectory) GetService(ctx context.Context, id, storeID string) (*models.Service, error) {
	if s, ok := d.services[id]; ok && s.StoreID == storeID {
		return s, nil
	}
	return nil, repository.ErrNotFound
}

func (d *memDirectory) GetStoreByTenantID(ctx context.Context, storeID string) (*models.Store, error) {
	if s, ok := d.stores[storeID]; ok {
		return s, nil
	}
	return nil, repository.ErrNotFound
}

func testConfig(scope string) *config.Config {
	return &config.Config{
		Slots: config.SlotConfig{DayStart: "09:00", DayEnd: "17:00", IntervalMinutes: 30},
		Booking: config.BookingConfig{
			ActiveScope:         scope,
			RoutineMinDaysAhead: 1,
			RoutineMaxDaysAhead: 7,
		},
	}
}

type fixture struct {
	svc   *Services
	store *memStore
	dir   *memDirectory
}

func newFixture(t *testing.T) *fixture {
	return newScopedFixture(t, config.ActiveScopeGlobal)
}

func newScopedFixture(t *testing.T, scope string) *fixture {
	t.Helper()
	store := newMemStore()
	dir := newMemDirectory()
	svc, err := New(testConfig(scope), Deps{
		Appointments: store,
		Records:      memRecords{store},
		Directory:    dir,
		Logger:       zerolog.Nop(),
		Now:          func() time.Time { return testNow },
	})
	require.NoError(t, err)
	return &fixture{svc: svc, store: store, dir: dir}
}

// routine is a valid owner booking two days after testNow.
func routine(petID, slot string) BookingRequest {
	return BookingRequest{
		PetID:           petID,
		StoreID:         storeA,
		AppointmentDate: "2024-06-01",
		TimeSlot:        slot,
		BookingType:     models.BookingRoutine,
		VisitType:       models.VisitCheckup,
		Reason:          "Annual checkup",
	}
}

func emergency(petID string) BookingRequest {
	return BookingRequest{
		PetID:       petID,
		StoreID:     storeA,
		BookingType: models.BookingEmergency,
		VisitType:   models.VisitConsultation,
		Reason:      "Bleeding paw after a fall",
	}
}

func (f *fixture) book(t *testing.T, actor ActorContext, req BookingRequest) *models.Appointment {
	t.Helper()
	a, err := f.svc.Booking.Book(context.Background(), actor, req)
	require.NoError(t, err)
	return a
}

// seed stores an appointment in the given status at storeA.
func (f *fixture) seed(t *testing.T, petID, ownerID string, st models.AppointmentStatus) *models.Appointment {
	t.Helper()
	a := &models.Appointment{
		PetID:           petID,
		OwnerID:         ownerID,
		StoreID:         storeA,
		AppointmentDate: "2024-06-01",
		TimeSlot:        "10:00-10:30",
		BookingType:     models.BookingRoutine,
		VisitType:       models.VisitCheckup,
		Status:          st,
	}
	a.Activate()
	require.NoError(t, f.store.Create(context.Background(), a, nil))
	return a
}

// seedMultiPet stores an in-progress appointment for pet-1 and pet-2.
func (f *fixture) seedMultiPet(t *testing.T) *models.Appointment {
	t.Helper()
	a := &models.Appointment{
		PetID:          "pet-1",
		OwnerID:        "owner-1",
		StoreID:        storeA,
		BookingType:    models.BookingWalkIn,
		VisitType:      models.VisitVaccination,
		Status:         models.StatusInProgress,
		IsMultiplePets: true,
		Pets: []models.AppointmentPet{
			{PetID: "pet-1", Status: models.StatusInProgress},
			{PetID: "pet-2", Status: models.StatusInProgress},
		},
	}
	a.Activate()
	require.NoError(t, f.store.Create(context.Background(), a, nil))
	return a
}

func (f *fixture) seedRecord(petID, storeID string, visit time.Time) *models.MedicalRecord {
	rec := &models.MedicalRecord{
		PetID:         petID,
		OwnerID:       "owner-1",
		StoreID:       storeID,
		StaffID:       "staff-a",
		VisitDate:     visit,
		Diagnosis:     "Routine",
		TotalCost:     100,
		AmountPaid:    40,
		PaymentStatus: models.RecordPaymentPending,
	}
	rec.Activate()
	f.store.mu.Lock()
	f.store.putRecord(rec)
	f.store.mu.Unlock()
	return rec
}

func strPtr(s string) *string { return &s }
