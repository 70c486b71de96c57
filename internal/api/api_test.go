package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"membership/internal/api"
	"membership/internal/attendance"
	"membership/internal/auth"
	"membership/internal/event"
	"membership/internal/payment"
	"membership/internal/queue"
	"membership/internal/sanction"
	"membership/internal/store/memory"
	"membership/internal/student"
)

type fakeGateway struct {
	err error
}

func (g fakeGateway) CreateLink(ctx context.Context, req payment.LinkRequest) (string, string, error) {
	if g.err != nil {
		return "", "", g.err
	}
	return "https://pm.link/test", "REF1", nil
}

type fakeUploader struct{}

func (fakeUploader) Upload(ctx context.Context, data []byte, filename string) (string, error) {
	return "https://cdn.example/" + filename, nil
}

type harness struct {
	t        *testing.T
	router   *gin.Engine
	db       *memory.DB
	students *student.Service
	queue    *queue.InMemory
	gateway  *fakeGateway
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := zerolog.Nop()
	db := memory.New()

	students := student.NewService(db.Students(), 4, log)
	events := event.NewService(db.Events(), log)
	att := attendance.NewService(db.Attendance(), students, events, nil, log)
	sanctions := sanction.NewService(db.Tiers(), db.Sanctions(), att, log)
	agg := sanction.NewAggregator(db.Students(), db.Events(), db.Attendance(), db.Sanctions(), log)
	gw := &fakeGateway{}
	payments := payment.NewService(db.Payments(), students, gw, fakeUploader{}, 10000, log)
	q := queue.NewInMemory(16)

	router := api.NewRouter(api.Deps{
		Students:   students,
		Events:     events,
		Attendance: att,
		Sanctions:  sanctions,
		Recomputer: agg,
		Payments:   payments,
		Signer:     auth.NewSigner("test", "secret", time.Hour, 24*time.Hour),
		Queue:      q,
		Log:        log,
	})
	return &harness{t: t, router: router, db: db, students: students, queue: q, gateway: gw}
}

func (h *harness) do(method, path, token string, body any) *httptest.ResponseRecorder {
	h.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(h.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

type tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func (h *harness) account(id, email string, role student.Role) string {
	h.t.Helper()
	_, err := h.students.Register(context.Background(), student.Registration{
		FirstName: "First" + id, LastName: "Last" + id, Gender: "F",
		IDNumber: id, Email: email, Password: "password123", Role: role,
	})
	require.NoError(h.t, err)
	w := h.do(http.MethodPost, "/v1/auth/login", "", map[string]string{"email": email, "password": "password123"})
	require.Equal(h.t, http.StatusOK, w.Code, w.Body.String())
	return decode[tokens](h.t, w).AccessToken
}

func TestRegisterLoginRefresh(t *testing.T) {
	h := newHarness(t)

	w := h.do(http.MethodPost, "/v1/auth/register", "", map[string]string{
		"first_name": "Ana", "last_name": "Cruz", "gender": "F",
		"id_number": "2021001", "email": "Ana@School.edu", "password": "password123",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = h.do(http.MethodPost, "/v1/auth/register", "", map[string]string{
		"first_name": "Ana", "last_name": "Cruz", "gender": "F",
		"id_number": "2021001", "email": "other@school.edu", "password": "password123",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = h.do(http.MethodPost, "/v1/auth/register", "", map[string]string{
		"first_name": "Ben", "last_name": "Reyes", "gender": "M",
		"id_number": "20-21", "email": "ben@school.edu", "password": "password123",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "id_number")

	w = h.do(http.MethodPost, "/v1/auth/login", "", map[string]string{"email": "ana@school.edu", "password": "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = h.do(http.MethodPost, "/v1/auth/login", "", map[string]string{"email": "ana@school.edu", "password": "password123"})
	require.Equal(t, http.StatusOK, w.Code)
	tok := decode[tokens](t, w)

	w = h.do(http.MethodGet, "/v1/me", tok.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	me := decode[student.Student](t, w)
	assert.Equal(t, "2021001", me.IDNumber)
	assert.Equal(t, student.RoleStudent, me.Role)
	assert.NotContains(t, w.Body.String(), "password")

	w = h.do(http.MethodPost, "/v1/auth/refresh", "", map[string]string{"refresh_token": tok.RefreshToken})
	require.Equal(t, http.StatusOK, w.Code)

	w = h.do(http.MethodPost, "/v1/auth/refresh", "", map[string]string{"refresh_token": tok.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, w.Code, "refresh tokens are single use")
}

func TestPasswordEndpoints(t *testing.T) {
	h := newHarness(t)
	tok := h.account("2021001", "ana@school.edu", student.RoleStudent)

	w := h.do(http.MethodPost, "/v1/me/password/verify", tok, map[string]string{"password": "password123"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"valid":true}`, w.Body.String())

	w = h.do(http.MethodPost, "/v1/me/password", tok, map[string]string{"current_password": "nope-nope", "new_password": "newpassword1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(http.MethodPost, "/v1/me/password", tok, map[string]string{"current_password": "password123", "new_password": "newpassword1"})
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = h.do(http.MethodPost, "/v1/auth/login", "", map[string]string{"email": "ana@school.edu", "password": "newpassword1"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdminGate(t *testing.T) {
	h := newHarness(t)
	tok := h.account("2021001", "ana@school.edu", student.RoleStudent)

	assert.Equal(t, http.StatusUnauthorized, h.do(http.MethodGet, "/v1/admin/students", "", nil).Code)
	assert.Equal(t, http.StatusForbidden, h.do(http.MethodGet, "/v1/admin/students", tok, nil).Code)
	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/v1/events", tok, nil).Code)
}

func TestStudentAdministration(t *testing.T) {
	h := newHarness(t)
	admin := h.account("9000001", "admin@school.edu", student.RoleAdmin)
	h.account("2021001", "ana@school.edu", student.RoleStudent)

	w := h.do(http.MethodPost, "/v1/admin/students/check", admin, map[string]string{"id_number": "2021001"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"exists":true`)
	assert.Contains(t, w.Body.String(), `"role":"student"`)

	w = h.do(http.MethodPost, "/v1/admin/students/check", admin, map[string]string{"id_number": "404"})
	assert.JSONEq(t, `{"exists":false}`, w.Body.String())

	w = h.do(http.MethodPut, "/v1/admin/students/2021001", admin, map[string]string{
		"first_name": "Ana", "last_name": "Santos", "gender": "F", "email": "ana@school.edu", "role": "student",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Santos", decode[student.Student](t, w).LastName)

	w = h.do(http.MethodPut, "/v1/admin/students/2021001", admin, map[string]string{
		"first_name": "Ana", "last_name": "Santos", "gender": "F", "email": "ana@school.edu", "role": "owner",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(http.MethodGet, "/v1/admin/students/2021001/badge.png", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))

	assert.Equal(t, http.StatusNoContent, h.do(http.MethodDelete, "/v1/admin/students/2021001", admin, nil).Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodDelete, "/v1/admin/students/2021001", admin, nil).Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/v1/admin/students/2021001", admin, nil).Code)
}

func TestEventsAndAttendance(t *testing.T) {
	h := newHarness(t)
	admin := h.account("9000001", "admin@school.edu", student.RoleAdmin)
	h.account("2021001", "ana@school.edu", student.RoleStudent)

	w := h.do(http.MethodPost, "/v1/admin/events", admin, map[string]string{"name": "General Assembly", "date": "2024-03-01"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(http.MethodPost, "/v1/admin/events", admin, map[string]string{"name": "General_Assembly", "date": "2024-03-01"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"date":"2024-03-01"`)

	w = h.do(http.MethodPost, "/v1/admin/events", admin, map[string]string{"name": "General_Assembly", "date": "2024-03-02"})
	assert.Equal(t, http.StatusConflict, w.Code)

	rec := map[string]string{"event_name": "General_Assembly", "id_number": "2021001", "slot": "morningIn"}
	w = h.do(http.MethodPost, "/v1/admin/attendance", admin, rec)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = h.do(http.MethodPost, "/v1/admin/attendance", admin, rec)
	assert.Equal(t, http.StatusConflict, w.Code)

	rec["slot"] = "evening"
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodPost, "/v1/admin/attendance", admin, rec).Code)

	rec["slot"] = "morning_out"
	rec["event_name"] = "Missing_Event"
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodPost, "/v1/admin/attendance", admin, rec).Code)

	w = h.do(http.MethodPut, "/v1/admin/events/General_Assembly", admin, map[string]string{"name": "Assembly_2024", "date": "2024-03-05"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = h.do(http.MethodGet, "/v1/admin/events/Assembly_2024/attendance", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"id_number":"2021001"`, "attendance follows a renamed event")

	w = h.do(http.MethodGet, "/v1/admin/events/Assembly_2024/attendance.xlsx", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "Assembly_2024_attendance.xlsx")

	assert.Equal(t, http.StatusNoContent, h.do(http.MethodDelete, "/v1/admin/events/Assembly_2024", admin, nil).Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodDelete, "/v1/admin/events/Assembly_2024", admin, nil).Code)
}

func TestTiersAndSanctions(t *testing.T) {
	h := newHarness(t)
	admin := h.account("9000001", "admin@school.edu", student.RoleAdmin)
	stu := h.account("2021001", "ana@school.edu", student.RoleStudent)

	for _, name := range []string{"A", "B", "C"} {
		w := h.do(http.MethodPost, "/v1/admin/events", admin, map[string]string{"name": name, "date": "2024-03-01"})
		require.Equal(t, http.StatusCreated, w.Code)
	}
	require.Equal(t, http.StatusCreated, h.do(http.MethodPost, "/v1/admin/attendance", admin,
		map[string]string{"event_name": "B", "id_number": "2021001", "slot": "morning_in"}).Code)
	for _, slot := range attendance.Slots {
		require.Equal(t, http.StatusCreated, h.do(http.MethodPost, "/v1/admin/attendance", admin,
			map[string]string{"event_name": "C", "id_number": "2021001", "slot": string(slot)}).Code)
	}

	w := h.do(http.MethodPost, "/v1/admin/tiers", admin, map[string]any{
		"donations": []map[string]any{{"item": "bond paper", "count": 1}}, "min_absences": 1, "max_absences": 3,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, 1, decode[sanction.Tier](t, w).OffenseNumber)

	w = h.do(http.MethodPost, "/v1/admin/tiers", admin, map[string]any{
		"donation_items": []string{"bond paper", "pen"}, "donation_count": []int{2, 1}, "min_absences": 4, "max_absences": 7,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, 2, decode[sanction.Tier](t, w).OffenseNumber)

	w = h.do(http.MethodPost, "/v1/admin/tiers", admin, map[string]any{
		"donation_items": []string{"bond paper", "pen"}, "donation_count": []int{2}, "min_absences": 8, "max_absences": 9,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(http.MethodPost, "/v1/admin/sanctions/recompute", admin, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode[sanction.Result](t, w)
	assert.Equal(t, 2, res.Students)
	assert.Equal(t, 3, res.Events)

	w = h.do(http.MethodGet, "/v1/admin/sanctions/2021001", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 7, decode[sanction.Entry](t, w).TotalAbsences)

	w = h.do(http.MethodGet, "/v1/admin/sanctions", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[struct {
		Sanctions []struct {
			IDNumber      string         `json:"id_number"`
			TotalAbsences int            `json:"total_absences"`
			Offense       *sanction.Tier `json:"offense"`
		} `json:"sanctions"`
	}](t, w)
	require.Len(t, list.Sanctions, 1, "admins are left out of the list")
	require.NotNil(t, list.Sanctions[0].Offense)
	assert.Equal(t, 2, list.Sanctions[0].Offense.OffenseNumber)

	w = h.do(http.MethodGet, "/v1/me/sanction", stu, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total_absences":7`)
	assert.Contains(t, w.Body.String(), `"listed":true`)

	w = h.do(http.MethodGet, "/v1/admin/sanctions.xlsx", admin, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, http.StatusNoContent, h.do(http.MethodDelete, "/v1/admin/tiers/1", admin, nil).Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodDelete, "/v1/admin/tiers/1", admin, nil).Code)
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodDelete, "/v1/admin/tiers/x", admin, nil).Code)

	w = h.do(http.MethodGet, "/v1/tiers", stu, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"offense_number":2`)
	assert.NotContains(t, w.Body.String(), `"offense_number":1`)

	assert.Equal(t, http.StatusNoContent, h.do(http.MethodDelete, "/v1/admin/sanctions/2021001", admin, nil).Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/v1/admin/sanctions/2021001", admin, nil).Code)
}

func TestAsyncRecompute(t *testing.T) {
	h := newHarness(t)
	admin := h.account("9000001", "admin@school.edu", student.RoleAdmin)

	w := h.do(http.MethodPost, "/v1/admin/sanctions/recompute?async=true", admin, nil)
	require.Equal(t, http.StatusAccepted, w.Code)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	msgs, err := h.queue.Consume(ctx)
	require.NoError(t, err)
	msg := <-msgs
	assert.Equal(t, queue.TypeRecompute, msg.Type)
}

func TestPayments(t *testing.T) {
	h := newHarness(t)
	admin := h.account("9000001", "admin@school.edu", student.RoleAdmin)
	stu := h.account("2021001", "ana@school.edu", student.RoleStudent)

	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/v1/me/payment", stu, nil).Code)

	w := h.do(http.MethodPost, "/v1/me/payment/checkout", stu, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	p := decode[payment.Payment](t, w)
	assert.Equal(t, payment.MethodOnline, p.Method)
	assert.Equal(t, "https://pm.link/test", p.CheckoutURL)

	w = h.do(http.MethodPost, "/v1/admin/payments", admin, map[string]string{"id_number": "2021001", "status": "bogus"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(http.MethodPost, "/v1/admin/payments", admin, map[string]string{"id_number": "2021001", "status": "paid", "receipt_date": "2024-03-01"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	p = decode[payment.Payment](t, w)
	assert.Equal(t, payment.StatusPaid, p.Status)
	assert.NotEmpty(t, p.ReceiptNumber)

	w = h.do(http.MethodPost, "/v1/admin/payments", admin, map[string]string{"id_number": "2021001", "status": "paid"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, http.StatusConflict, h.do(http.MethodPost, "/v1/me/payment/checkout", stu, nil).Code)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "receipt.png")
	require.NoError(t, err)
	_, _ = part.Write([]byte("png"))
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/v1/admin/payments/2021001/receipt", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+admin)
	rw := httptest.NewRecorder()
	h.router.ServeHTTP(rw, req)
	require.Equal(t, http.StatusOK, rw.Code, rw.Body.String())
	assert.Contains(t, rw.Body.String(), "https://cdn.example/2021001_receipt.png")

	w = h.do(http.MethodGet, "/v1/admin/payments", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	rows := decode[struct {
		Payments []payment.Row `json:"payments"`
	}](t, w)
	require.Len(t, rows.Payments, 2)
	assert.NotNil(t, rows.Payments[0].Payment)
	assert.Nil(t, rows.Payments[1].Payment, "admin has no payment")

	assert.Equal(t, http.StatusOK, h.do(http.MethodDelete, "/v1/admin/payments/2021001", admin, nil).Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodDelete, "/v1/admin/payments/2021001", admin, nil).Code)
}

func TestCheckoutGatewayFailure(t *testing.T) {
	h := newHarness(t)
	stu := h.account("2021001", "ana@school.edu", student.RoleStudent)
	h.gateway.err = errors.New("connection refused")

	w := h.do(http.MethodPost, "/v1/me/payment/checkout", stu, nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestHealth(t *testing.T) {
	h := newHarness(t)
	w := h.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
