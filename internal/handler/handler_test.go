package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/seat-reservation-engine/internal/middleware"
	"github.com/iliyamo/seat-reservation-engine/internal/payment"
	"github.com/iliyamo/seat-reservation-engine/internal/service"
)

type commitCall struct {
	seatIDs []uint64
	holder  string
	source  string
}

type fakeCommitter struct {
	calls   []commitCall
	ctxErrs []error
	res     *service.CommitResult
	err     error
}

func (f *fakeCommitter) Commit(ctx context.Context, seatIDs []uint64, holderID, source string) (*service.CommitResult, error) {
	f.calls = append(f.calls, commitCall{seatIDs, holderID, source})
	f.ctxErrs = append(f.ctxErrs, ctx.Err())
	if f.err != nil {
		return nil, f.err
	}
	if f.res != nil {
		return f.res, nil
	}
	return &service.CommitResult{SeatIDs: seatIDs, HolderID: holderID}, nil
}

type fakeHolds struct {
	hold *service.Hold
	err  error
	left time.Duration
	ok   bool
}

func (f *fakeHolds) AcquireHold(_ context.Context, seatIDs []uint64, holderID string) (*service.Hold, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.hold, nil
}

func (f *fakeHolds) HoldRemaining(context.Context, uint64) (time.Duration, bool, error) {
	return f.left, f.ok, nil
}

const paidBody = `{"id":"evt_1","type":"checkout.session.completed","data":{"object":{"payment_status":"paid","metadata":{"seat_ids":"[1,2]","holder_id":"user-1","event_id":"7"}}}}`

func postWebhook(t *testing.T, h *WebhookHandler, body, sig string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payment", strings.NewReader(body))
	req.Header.Set(payment.SignatureHeader, sig)
	rec := httptest.NewRecorder()
	require.NoError(t, h.Payment(echo.New().NewContext(req, rec)))
	return rec
}

func nullLog() *logrus.Logger {
	log, _ := test.NewNullLogger()
	return log
}

func newWebhook(c Committer) *WebhookHandler {
	log, _ := test.NewNullLogger()
	return NewWebhookHandler(c, "whsec", 5*time.Minute, log)
}

func TestWebhookRejectsBadSignatureBeforeCommit(t *testing.T) {
	c := &fakeCommitter{}
	rec := postWebhook(t, newWebhook(c), paidBody, "t=1,v1=00")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, c.calls)
}

func TestWebhookCommitsPaidSession(t *testing.T) {
	c := &fakeCommitter{}
	rec := postWebhook(t, newWebhook(c), paidBody, payment.Sign("whsec", time.Now(), []byte(paidBody)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"received":true}`, rec.Body.String())
	require.Len(t, c.calls, 1)
	assert.Equal(t, commitCall{[]uint64{1, 2}, "user-1", service.SourceWebhook}, c.calls[0])
}

func TestWebhookCommitSurvivesDroppedConnection(t *testing.T) {
	c := &fakeCommitter{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req := httptest.NewRequest(http.MethodPost, "/webhooks/payment", strings.NewReader(paidBody)).WithContext(ctx)
	req.Header.Set(payment.SignatureHeader, payment.Sign("whsec", time.Now(), []byte(paidBody)))
	rec := httptest.NewRecorder()
	require.NoError(t, newWebhook(c).Payment(echo.New().NewContext(req, rec)))

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, c.ctxErrs, 1)
	assert.NoError(t, c.ctxErrs[0])
}

func TestWebhookAcknowledgesFailedCommit(t *testing.T) {
	c := &fakeCommitter{err: service.ErrNotOwner}
	rec := postWebhook(t, newWebhook(c), paidBody, payment.Sign("whsec", time.Now(), []byte(paidBody)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, c.calls, 1)
}

// Redelivery of the same callback reaches Commit again, which reports it
// as already committed; the provider still gets 200.
func TestWebhookDuplicateDelivery(t *testing.T) {
	c := &fakeCommitter{res: &service.CommitResult{AlreadyCommitted: true}}
	h := newWebhook(c)
	for i := 0; i < 2; i++ {
		rec := postWebhook(t, h, paidBody, payment.Sign("whsec", time.Now(), []byte(paidBody)))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
	assert.Len(t, c.calls, 2)
}

func TestWebhookIgnoresOtherEvents(t *testing.T) {
	c := &fakeCommitter{}
	body := `{"type":"checkout.session.expired","data":{"object":{"metadata":{"seat_ids":"[1]","holder_id":"u"}}}}`
	rec := postWebhook(t, newWebhook(c), body, payment.Sign("whsec", time.Now(), []byte(body)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, c.calls)
}

func serveSeat(h echo.HandlerFunc, holder, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)
	if holder != "" {
		c.Set(middleware.HolderKey, holder)
	}
	_ = h(c)
	return rec
}

func TestLockMapsEngineErrors(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{service.ErrSeatNotAvailable, http.StatusConflict, "SEAT_NOT_AVAILABLE"},
		{service.ErrSeatsNotFound, http.StatusNotFound, "SEATS_NOT_FOUND"},
		{service.ErrInvalidRequest, http.StatusBadRequest, "INVALID_REQUEST"},
		{errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tc := range cases {
		h := NewSeatHandler(&fakeHolds{err: tc.err}, &fakeCommitter{}, nullLog())
		rec := serveSeat(h.Lock, "user-1", `{"seat_ids":[1,2]}`)
		assert.Equal(t, tc.status, rec.Code)
		assert.JSONEq(t, `{"error":"`+tc.code+`"}`, rec.Body.String())
	}
}

func TestLockLogsInternalErrorsThroughLogger(t *testing.T) {
	log, hook := test.NewNullLogger()
	h := NewSeatHandler(&fakeHolds{err: errors.New("deadlock")}, &fakeCommitter{}, log)

	rec := serveSeat(h.Lock, "user-1", `{"seat_ids":[1]}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.ErrorLevel, entry.Level)
	assert.Equal(t, "seats", entry.Data["component"])
	assert.EqualError(t, entry.Data[logrus.ErrorKey].(error), "deadlock")
}

func TestLockReturnsHold(t *testing.T) {
	exp := time.Now().Add(2 * time.Minute)
	h := NewSeatHandler(&fakeHolds{hold: &service.Hold{EventID: 7, SeatIDs: []uint64{1, 2}, HolderID: "user-1", ExpiresAt: exp}}, &fakeCommitter{}, nullLog())

	rec := serveSeat(h.Lock, "user-1", `{"seat_ids":[1,2]}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ttl_seconds":120`)

	assert.Equal(t, http.StatusUnauthorized, serveSeat(h.Lock, "", `{"seat_ids":[1]}`).Code)
	assert.Equal(t, http.StatusBadRequest, serveSeat(h.Lock, "user-1", `{"seat_ids":[]}`).Code)
}

func TestBookUsesTokenHolder(t *testing.T) {
	c := &fakeCommitter{}
	h := NewSeatHandler(&fakeHolds{}, c, nullLog())

	rec := serveSeat(h.Book, "user-9", `{"seat_ids":[4]}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"BOOKED","seat_ids":[4],"already_committed":false}`, rec.Body.String())
	require.Len(t, c.calls, 1)
	assert.Equal(t, "user-9", c.calls[0].holder)
	assert.Equal(t, service.SourceClient, c.calls[0].source)

	c.err = service.ErrNotLocked
	rec = serveSeat(h.Book, "user-9", `{"seat_ids":[4]}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.JSONEq(t, `{"error":"NOT_LOCKED"}`, rec.Body.String())
}

func TestHoldTTL(t *testing.T) {
	get := func(h *SeatHandler, id string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
		c.SetParamNames("seatId")
		c.SetParamValues(id)
		_ = h.HoldTTL(c)
		return rec
	}
	live := NewSeatHandler(&fakeHolds{left: 90 * time.Second, ok: true}, nil, nullLog())
	rec := get(live, "3")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"seat_id":3,"ttl_seconds":90}`, rec.Body.String())

	gone := NewSeatHandler(&fakeHolds{}, nil, nullLog())
	assert.Equal(t, http.StatusNotFound, get(gone, "3").Code)
	assert.Equal(t, http.StatusBadRequest, get(gone, "x").Code)
}
