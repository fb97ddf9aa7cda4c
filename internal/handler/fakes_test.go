package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/car-dealership/internal/mailer"
	"github.com/iliyamo/car-dealership/internal/middleware"
	"github.com/iliyamo/car-dealership/internal/model"
	"github.com/iliyamo/car-dealership/internal/queue"
	"github.com/iliyamo/car-dealership/internal/repository"
	"github.com/iliyamo/car-dealership/internal/utils"
)

// ----- users -----

type fakeUsers struct {
	mu     sync.Mutex
	byID   map[uint64]model.User
	nextID uint64
}

func newFakeUsers(seed ...model.User) *fakeUsers {
	f := &fakeUsers{byID: map[uint64]model.User{}, nextID: 1}
	for _, u := range seed {
		f.byID[u.ID] = u
		if u.ID >= f.nextID {
			f.nextID = u.ID + 1
		}
	}
	return f
}

func (f *fakeUsers) emailTaken(email string, except uint64) bool {
	for _, u := range f.byID {
		if u.Email == email && u.ID != except {
			return true
		}
	}
	return false
}

func (f *fakeUsers) Create(_ context.Context, username, email, password, role string, cost int) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.emailTaken(email, 0) {
		return 0, repository.ErrEmailExists
	}
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	id := f.nextID
	f.nextID++
	f.byID[id] = model.User{ID: id, Username: username, Email: email, PasswordHash: hash, Role: role, CreatedAt: time.Now()}
	return id, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, repository.ErrUserNotFound
}

func (f *fakeUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return model.User{}, repository.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeUsers) List(context.Context) ([]model.UserWithActivity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.UserWithActivity
	for _, u := range f.byID {
		out = append(out, model.UserWithActivity{PublicUser: u.Public(), Status: model.ActivityStatus(nil, time.Now())})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f *fakeUsers) Update(_ context.Context, id uint64, username, email, role, password string, cost int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	if f.emailTaken(email, id) {
		return repository.ErrEmailExists
	}
	u.Username, u.Email, u.Role = username, email, role
	if password != "" {
		hash, err := utils.HashPassword(password, cost)
		if err != nil {
			return err
		}
		u.PasswordHash = hash
	}
	f.byID[id] = u
	return nil
}

func (f *fakeUsers) Delete(_ context.Context, id uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return repository.ErrUserNotFound
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeUsers) FirstAdminEmail(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var best *model.User
	for _, u := range f.byID {
		if u.Role != model.RoleAdmin {
			continue
		}
		if best == nil || u.ID < best.ID {
			u := u
			best = &u
		}
	}
	if best == nil {
		return "", repository.ErrUserNotFound
	}
	return best.Email, nil
}

type fakeLogins struct {
	mu   sync.Mutex
	rows []model.LoginLog
	err  error
}

func (f *fakeLogins) Record(_ context.Context, userID uint64, role string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.rows = append(f.rows, model.LoginLog{ID: uint64(len(f.rows) + 1), UserID: userID, Role: role, LoginAt: time.Now()})
	return nil
}

type fakeReports struct {
	dashboard model.Dashboard
	activity  []model.Activity
	daily     []model.CountBucket
	monthly   []model.CountBucket
	gotLimit  int
	err       error
}

func (f *fakeReports) Dashboard(context.Context) (model.Dashboard, error) { return f.dashboard, f.err }

func (f *fakeReports) RecentActivity(_ context.Context, limit int) ([]model.Activity, error) {
	f.gotLimit = limit
	return f.activity, f.err
}

func (f *fakeReports) DailyLogins(context.Context) ([]model.CountBucket, error) { return f.daily, f.err }

func (f *fakeReports) MonthlyRegistrations(context.Context) ([]model.CountBucket, error) {
	return f.monthly, f.err
}

// ----- cars, bookings, reviews -----

type fakeCars struct {
	mu       sync.Mutex
	byID     map[uint64]model.CarDetail
	nextID   uint64
	models   map[uint64]bool
	bookings *fakeBookings
}

func newFakeCars(seed ...model.CarDetail) *fakeCars {
	f := &fakeCars{byID: map[uint64]model.CarDetail{}, nextID: 1, models: map[uint64]bool{1: true, 2: true}}
	for _, c := range seed {
		f.byID[c.ID] = c
		if c.ID >= f.nextID {
			f.nextID = c.ID + 1
		}
	}
	return f
}

func (f *fakeCars) status(id uint64) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byID[id].Status
}

func (f *fakeCars) setStatus(id uint64, status string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.byID[id]
	c.Status = status
	f.byID[id] = c
}

func (f *fakeCars) List(_ context.Context, status string) ([]model.CarDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.CarDetail
	for _, c := range f.byID {
		if status == "" || c.Status == status {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeCars) GetByID(_ context.Context, id uint64) (model.CarDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.byID[id]
	if !ok {
		return model.CarDetail{}, repository.ErrCarNotFound
	}
	return c, nil
}

func (f *fakeCars) Exists(_ context.Context, id uint64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.byID[id]
	return ok, nil
}

func (f *fakeCars) Create(_ context.Context, car model.Car) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.models[car.ModelID] {
		return 0, repository.ErrUnknownModel
	}
	car.ID = f.nextID
	f.nextID++
	f.byID[car.ID] = model.CarDetail{Car: car, ModelName: "Camry", BrandName: "Toyota"}
	return car.ID, nil
}

func (f *fakeCars) Update(_ context.Context, car model.Car) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.byID[car.ID]
	if !ok {
		return repository.ErrCarNotFound
	}
	if !f.models[car.ModelID] {
		return repository.ErrUnknownModel
	}
	d.Car = car
	f.byID[car.ID] = d
	return nil
}

// Delete mirrors the transactional cascade: bookings of the car go
// first, then the car itself.
func (f *fakeCars) Delete(_ context.Context, id uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return repository.ErrCarNotFound
	}
	if f.bookings != nil {
		f.bookings.deleteForCar(id)
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeCars) Brands(context.Context) ([]string, error) { return []string{"BMW", "Tesla", "Toyota"}, nil }

func (f *fakeCars) Years(context.Context) ([]string, error) { return []string{"2023", "2022"}, nil }

type fakeBookings struct {
	mu     sync.Mutex
	byID   map[uint64]model.Booking
	nextID uint64
	cars   *fakeCars
}

func newFakeBookings(cars *fakeCars) *fakeBookings {
	f := &fakeBookings{byID: map[uint64]model.Booking{}, nextID: 1, cars: cars}
	cars.bookings = f
	return f
}

func (f *fakeBookings) add(b model.Booking) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[b.ID] = b
	if b.ID >= f.nextID {
		f.nextID = b.ID + 1
	}
}

func (f *fakeBookings) deleteForCar(carID uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, b := range f.byID {
		if b.CarID == carID {
			delete(f.byID, id)
		}
	}
}

func (f *fakeBookings) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byID)
}

func (f *fakeBookings) Create(_ context.Context, userID, carID uint64, date time.Time, typ string, message *string) (model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b := model.Booking{ID: f.nextID, UserID: userID, CarID: carID, BookingDate: date, Type: typ,
		Status: model.BookingPending, Message: message, CreatedAt: time.Now()}
	f.nextID++
	f.byID[b.ID] = b
	return b, nil
}

func (f *fakeBookings) GetByID(_ context.Context, id uint64) (model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.byID[id]
	if !ok {
		return model.Booking{}, repository.ErrBookingNotFound
	}
	return b, nil
}

func (f *fakeBookings) list(keep func(model.Booking) bool) []model.BookingDetail {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.BookingDetail
	for _, b := range f.byID {
		if keep(b) {
			out = append(out, model.BookingDetail{Booking: b, Year: 2022, ModelName: "Camry", BrandName: "Toyota"})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakeBookings) ListByUser(_ context.Context, userID uint64) ([]model.BookingDetail, error) {
	return f.list(func(b model.Booking) bool { return b.UserID == userID }), nil
}

func (f *fakeBookings) ListAll(context.Context) ([]model.BookingDetail, error) {
	return f.list(func(model.Booking) bool { return true }), nil
}

func (f *fakeBookings) DeletePending(_ context.Context, id, userID uint64) (model.Booking, error) {
	f.mu.Lock()
	b, ok := f.byID[id]
	switch {
	case !ok:
		f.mu.Unlock()
		return model.Booking{}, repository.ErrBookingNotFound
	case b.UserID != userID:
		f.mu.Unlock()
		return model.Booking{}, repository.ErrForbidden
	case b.Status != model.BookingPending:
		f.mu.Unlock()
		return model.Booking{}, repository.ErrBookingNotPending
	}
	delete(f.byID, id)
	f.mu.Unlock()
	f.cars.setStatus(b.CarID, model.CarAvailable)
	return b, nil
}

func (f *fakeBookings) UpdateStatus(_ context.Context, id uint64, status string) (model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.byID[id]
	if !ok {
		return model.Booking{}, repository.ErrBookingNotFound
	}
	b.Status = status
	f.byID[id] = b
	return b, nil
}

type fakeReviews struct {
	mu     sync.Mutex
	byID   map[uint64]model.Review
	nextID uint64
}

func newFakeReviews(seed ...model.Review) *fakeReviews {
	f := &fakeReviews{byID: map[uint64]model.Review{}, nextID: 1}
	for _, r := range seed {
		f.byID[r.ID] = r
		if r.ID >= f.nextID {
			f.nextID = r.ID + 1
		}
	}
	return f
}

func (f *fakeReviews) List(_ context.Context, carID uint64) ([]model.ReviewDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.ReviewDetail
	for _, r := range f.byID {
		if carID == 0 || r.CarID == carID {
			out = append(out, model.ReviewDetail{Review: r})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeReviews) GetByID(_ context.Context, id uint64) (model.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.byID[id]
	if !ok {
		return model.Review{}, repository.ErrReviewNotFound
	}
	return r, nil
}

func (f *fakeReviews) Create(_ context.Context, userID, carID uint64, rating int, comment string) (model.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := model.Review{ID: f.nextID, UserID: userID, CarID: carID, Rating: rating, Comment: comment, CreatedAt: time.Now()}
	f.nextID++
	f.byID[r.ID] = r
	return r, nil
}

func (f *fakeReviews) Update(_ context.Context, id uint64, rating int, comment string) (model.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.byID[id]
	if !ok {
		return model.Review{}, repository.ErrReviewNotFound
	}
	r.Rating, r.Comment = rating, comment
	f.byID[id] = r
	return r, nil
}

func (f *fakeReviews) Delete(_ context.Context, id uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return repository.ErrReviewNotFound
	}
	delete(f.byID, id)
	return nil
}

// ----- contacts and side channels -----

type fakeContacts struct {
	mu        sync.Mutex
	byID      map[uint64]model.Contact
	nextID    uint64
	createErr error
}

func newFakeContacts(seed ...model.Contact) *fakeContacts {
	f := &fakeContacts{byID: map[uint64]model.Contact{}, nextID: 1}
	for _, ct := range seed {
		f.byID[ct.ID] = ct
		if ct.ID >= f.nextID {
			f.nextID = ct.ID + 1
		}
	}
	return f
}

func (f *fakeContacts) Create(_ context.Context, name, email, message string, fileName *string) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return 0, f.createErr
	}
	id := f.nextID
	f.nextID++
	f.byID[id] = model.Contact{ID: id, Name: name, Email: email, Message: message, FileName: fileName,
		Status: model.ContactPending, CreatedAt: time.Now()}
	return id, nil
}

func (f *fakeContacts) List(context.Context) ([]model.Contact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Contact
	for _, ct := range f.byID {
		out = append(out, ct)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f *fakeContacts) GetByID(_ context.Context, id uint64) (model.Contact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ct, ok := f.byID[id]
	if !ok {
		return model.Contact{}, repository.ErrContactNotFound
	}
	return ct, nil
}

func (f *fakeContacts) MarkReplied(_ context.Context, id uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ct, ok := f.byID[id]
	if !ok {
		return repository.ErrContactNotFound
	}
	ct.Status = model.ContactReplied
	f.byID[id] = ct
	return nil
}

func (f *fakeContacts) Delete(_ context.Context, id uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return repository.ErrContactNotFound
	}
	delete(f.byID, id)
	return nil
}

// memFiles is an in-memory storage.Store.
type memFiles struct {
	mu      sync.Mutex
	objects map[string][]byte
	n       int
	saveErr error
}

func newMemFiles() *memFiles { return &memFiles{objects: map[string][]byte{}} }

func (m *memFiles) Save(_ context.Context, ext string, r io.Reader, _ int64, _ string) (string, error) {
	if m.saveErr != nil {
		return "", m.saveErr
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.n++
	ref := "file-" + strconv.Itoa(m.n) + ext
	m.objects[ref] = b
	return ref, nil
}

func (m *memFiles) Open(_ context.Context, ref string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.objects[ref]
	if !ok {
		return nil, errors.New("no such object")
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (m *memFiles) Remove(_ context.Context, ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, ref)
	return nil
}

func (m *memFiles) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

type fakeMail struct {
	mu   sync.Mutex
	sent []mailer.Message
	err  error
}

func (f *fakeMail) Send(_ context.Context, m mailer.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, m)
	return nil
}

type fakeNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (f *fakeNotifier) Broadcast(message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, message)
}

type recordingEvents struct {
	mu     sync.Mutex
	events []queue.Event
	err    error
}

func (r *recordingEvents) Publish(_ context.Context, ev queue.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

func (r *recordingEvents) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

type recordingCache struct {
	mu     sync.Mutex
	groups []string
}

func (r *recordingCache) Invalidate(_ context.Context, groups ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.groups = append(r.groups, groups...)
	return nil
}

// ----- request helpers -----

// as attaches a caller identity the way JWTAuth would.
func as(id uint64, role string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			middleware.SetIdentity(c, middleware.Identity{ID: id, Email: "user@example.com", Role: role})
			return next(c)
		}
	}
}

func doJSON(t *testing.T, e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]any
	decode(t, rec, &body)
	s, _ := body["error"].(string)
	return s
}
