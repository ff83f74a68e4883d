package checkout

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeabdala/fanbroj-cli/internal/api"
	"github.com/codeabdala/fanbroj-cli/internal/device"
)

type verifyReply struct {
	result *api.VerifyResult
	err    error
}

type submitCall struct {
	method Method
	plan   string
	device string
	txID   string
}

// fakeBackend is an in-memory Backend. Verification replies are taken
// from verifySeq in order; the last entry repeats.
type fakeBackend struct {
	mu sync.Mutex

	session   api.CheckoutSession
	createErr error
	creates   []string // method of each create call

	verifySeq   []verifyReply
	verifyCalls int

	submitErr error
	submits   []submitCall

	geo    api.GeoPricing
	geoErr error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		session: api.CheckoutSession{
			CheckoutURL: "https://pay.example.com/c/abc123",
			OrderID:     "ord_abc123",
		},
		geo: api.GeoPricing{Country: "SO", Multiplier: 1.0},
	}
}

func (f *fakeBackend) CreateSifaloCheckout(ctx context.Context, plan, deviceID string) (*api.CheckoutSession, error) {
	return f.create("sifalo")
}

func (f *fakeBackend) CreateStripeCheckout(ctx context.Context, plan, deviceID string) (*api.CheckoutSession, error) {
	return f.create("stripe")
}

func (f *fakeBackend) create(method string) (*api.CheckoutSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates = append(f.creates, method)
	if f.createErr != nil {
		return nil, f.createErr
	}
	session := f.session
	return &session, nil
}

func (f *fakeBackend) VerifyPayment(ctx context.Context, orderID, deviceID string) (*api.VerifyResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verifyCalls++
	if len(f.verifySeq) == 0 {
		return &api.VerifyResult{}, nil
	}
	i := f.verifyCalls - 1
	if i >= len(f.verifySeq) {
		i = len(f.verifySeq) - 1
	}
	reply := f.verifySeq[i]
	if reply.err != nil {
		return nil, reply.err
	}
	result := *reply.result
	return &result, nil
}

func (f *fakeBackend) SubmitMpesa(ctx context.Context, plan, deviceID, txID string) error {
	return f.submit(MethodMpesa, plan, deviceID, txID)
}

func (f *fakeBackend) SubmitPaypal(ctx context.Context, plan, deviceID, txID string) error {
	return f.submit(MethodPaypal, plan, deviceID, txID)
}

func (f *fakeBackend) submit(method Method, plan, deviceID, txID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submits = append(f.submits, submitCall{method: method, plan: plan, device: deviceID, txID: txID})
	return f.submitErr
}

func (f *fakeBackend) GeoPricing(ctx context.Context) (*api.GeoPricing, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.geoErr != nil {
		return nil, f.geoErr
	}
	geo := f.geo
	return &geo, nil
}

func (f *fakeBackend) verifyCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.verifyCalls
}

func (f *fakeBackend) createCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.creates)
}

// memMethodStore is an in-memory MethodStore.
type memMethodStore struct {
	mu     sync.Mutex
	method Method
	saved  bool
	setErr error
}

func (s *memMethodStore) LastMethod() (Method, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.saved {
		return "", false
	}
	return s.method, true
}

func (s *memMethodStore) SetLastMethod(m Method) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.setErr != nil {
		return s.setErr
	}
	s.method = m
	s.saved = true
	return nil
}

type testHarness struct {
	ctrl    *Controller
	backend *fakeBackend
	store   *memMethodStore

	mu        sync.Mutex
	opened    []string
	successes int
	refreshes int
}

func newHarness(t *testing.T, backend *fakeBackend) *testHarness {
	t.Helper()
	h := &testHarness{backend: backend, store: &memMethodStore{}}
	h.ctrl = New(Options{
		Backend:      backend,
		Store:        h.store,
		Device:       device.Static("test-device"),
		PollInterval: 5 * time.Millisecond,
		MaxPolls:     5,
		OpenURL: func(url string) error {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.opened = append(h.opened, url)
			return nil
		},
		OnSuccess: func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.successes++
		},
		RefreshEntitlement: func(ctx context.Context) {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.refreshes++
		},
	})
	return h
}

func (h *testHarness) successCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.successes
}

func (h *testHarness) refreshCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.refreshes
}

func (h *testHarness) openedURLs() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.opened...)
}

// openAndWait opens the overlay and waits for pricing to resolve so
// the proceed action is enabled.
func (h *testHarness) openAndWait(t *testing.T, plan PlanID) {
	t.Helper()
	h.ctrl.Open(plan)
	require.Eventually(t, func() bool {
		return h.ctrl.Snapshot().MultiplierReady
	}, 2*time.Second, 2*time.Millisecond, "pricing never resolved")
}

func waitForStep[T Step](t *testing.T, c *Controller) T {
	t.Helper()
	var got T
	require.Eventually(t, func() bool {
		step, ok := c.Snapshot().Step.(T)
		if ok {
			got = step
		}
		return ok
	}, 2*time.Second, 2*time.Millisecond, "never reached step %T", got)
	return got
}

func TestController_OpenClose(t *testing.T) {
	t.Run("open starts on the selection step with the default plan", func(t *testing.T) {
		h := newHarness(t, newFakeBackend())
		h.openAndWait(t, PlanWeekly)

		snap := h.ctrl.Snapshot()
		assert.True(t, snap.Open)
		assert.IsType(t, SelectStep{}, snap.Step)
		assert.Equal(t, PlanWeekly, snap.Plan.ID)
		assert.Equal(t, MethodSifalo, snap.Method)
		assert.True(t, snap.CanProceed())
	})

	t.Run("unknown default plan falls back to monthly", func(t *testing.T) {
		h := newHarness(t, newFakeBackend())
		h.ctrl.Open(PlanID("lifetime"))
		assert.Equal(t, PlanMonthly, h.ctrl.Snapshot().Plan.ID)
	})

	t.Run("reopening resets the step but keeps selections", func(t *testing.T) {
		h := newHarness(t, newFakeBackend())
		h.openAndWait(t, PlanMonthly)
		h.ctrl.SelectPlan(PlanYearly)
		h.ctrl.SelectMethod(MethodMpesa)
		h.ctrl.Proceed(context.Background())
		require.IsType(t, ManualFormStep{}, h.ctrl.Snapshot().Step)

		h.ctrl.Close()
		assert.False(t, h.ctrl.Snapshot().Open)

		h.ctrl.Open(PlanMonthly)
		snap := h.ctrl.Snapshot()
		assert.IsType(t, SelectStep{}, snap.Step)
		// Method survives via the store, plan resets to the open default.
		assert.Equal(t, MethodMpesa, snap.Method)
		assert.Equal(t, PlanMonthly, snap.Plan.ID)
	})

	t.Run("pricing is fetched once and survives reopen", func(t *testing.T) {
		backend := newFakeBackend()
		backend.geo.Multiplier = 2.0
		h := newHarness(t, backend)
		h.openAndWait(t, PlanMonthly)
		h.ctrl.Close()
		h.ctrl.Open(PlanMonthly)

		snap := h.ctrl.Snapshot()
		assert.True(t, snap.MultiplierReady)
		assert.Equal(t, "6.40", snap.DisplayPrice())
	})
}

func TestController_Pricing(t *testing.T) {
	t.Run("proceed stays disabled until the multiplier resolves", func(t *testing.T) {
		backend := newFakeBackend()
		backend.geoErr = errors.New("network down")
		h := newHarness(t, backend)
		h.ctrl.Open(PlanMonthly)

		time.Sleep(20 * time.Millisecond)
		snap := h.ctrl.Snapshot()
		assert.False(t, snap.MultiplierReady)
		assert.False(t, snap.CanProceed())

		h.ctrl.Proceed(context.Background())
		time.Sleep(20 * time.Millisecond)
		assert.Equal(t, 0, backend.createCount())
		assert.IsType(t, SelectStep{}, h.ctrl.Snapshot().Step)
	})

	t.Run("failed fetch is retried on the next open", func(t *testing.T) {
		backend := newFakeBackend()
		backend.geoErr = errors.New("network down")
		h := newHarness(t, backend)
		h.ctrl.Open(PlanMonthly)
		time.Sleep(20 * time.Millisecond)
		require.False(t, h.ctrl.Snapshot().MultiplierReady)

		backend.mu.Lock()
		backend.geoErr = nil
		backend.mu.Unlock()

		h.ctrl.Close()
		h.openAndWait(t, PlanMonthly)
		assert.True(t, h.ctrl.Snapshot().MultiplierReady)
	})

	t.Run("display price falls back to the default multiplier", func(t *testing.T) {
		snap := Snapshot{Plan: mustPlan(t, PlanMonthly)}
		assert.Equal(t, "8.00", snap.DisplayPrice()) // 3.20 x 2.5

		snap.MultiplierReady = true
		snap.Multiplier = 1.0
		assert.Equal(t, "3.20", snap.DisplayPrice())
	})
}

func TestController_Selection(t *testing.T) {
	h := newHarness(t, newFakeBackend())
	h.openAndWait(t, PlanMonthly)

	t.Run("valid plan and method changes apply", func(t *testing.T) {
		h.ctrl.SelectPlan(PlanYearly)
		h.ctrl.SelectMethod(MethodStripe)
		snap := h.ctrl.Snapshot()
		assert.Equal(t, PlanYearly, snap.Plan.ID)
		assert.Equal(t, MethodStripe, snap.Method)
	})

	t.Run("unknown values are ignored", func(t *testing.T) {
		h.ctrl.SelectPlan(PlanID("forever"))
		h.ctrl.SelectMethod(Method("cash"))
		snap := h.ctrl.Snapshot()
		assert.Equal(t, PlanYearly, snap.Plan.ID)
		assert.Equal(t, MethodStripe, snap.Method)
	})

	t.Run("changes are ignored off the selection step", func(t *testing.T) {
		h.ctrl.SelectMethod(MethodMpesa)
		h.ctrl.Proceed(context.Background())
		require.IsType(t, ManualFormStep{}, h.ctrl.Snapshot().Step)

		h.ctrl.SelectPlan(PlanWeekly)
		assert.Equal(t, PlanYearly, h.ctrl.Snapshot().Plan.ID)
		h.ctrl.Back()
	})
}

func TestController_HostedCheckout(t *testing.T) {
	t.Run("confirmed payment reaches the success step", func(t *testing.T) {
		backend := newFakeBackend()
		backend.verifySeq = []verifyReply{
			{result: &api.VerifyResult{}},
			{result: &api.VerifyResult{}},
			{result: &api.VerifyResult{Success: true, Status: "success"}},
		}
		h := newHarness(t, backend)
		h.openAndWait(t, PlanMonthly)
		h.ctrl.Proceed(context.Background())

		success := waitForStep[SuccessStep](t, h.ctrl)
		assert.Equal(t, PlanMonthly, success.Plan)
		assert.Equal(t, []string{"sifalo"}, backend.creates)
		assert.Equal(t, []string{"https://pay.example.com/c/abc123"}, h.openedURLs())

		require.Eventually(t, func() bool {
			return h.successCount() == 1 && h.refreshCount() == 1
		}, 2*time.Second, 2*time.Millisecond)

		// Confirmation is terminal: no further verification requests.
		seen := backend.verifyCount()
		assert.Equal(t, 3, seen)
		time.Sleep(30 * time.Millisecond)
		assert.Equal(t, seen, backend.verifyCount())
	})

	t.Run("stripe method creates a stripe session", func(t *testing.T) {
		backend := newFakeBackend()
		backend.verifySeq = []verifyReply{{result: &api.VerifyResult{Success: true}}}
		h := newHarness(t, backend)
		h.openAndWait(t, PlanMonthly)
		h.ctrl.SelectMethod(MethodStripe)
		h.ctrl.Proceed(context.Background())

		waitForStep[SuccessStep](t, h.ctrl)
		assert.Equal(t, []string{"stripe"}, backend.creates)
	})

	t.Run("explicit failure routes to the error step", func(t *testing.T) {
		backend := newFakeBackend()
		backend.verifySeq = []verifyReply{
			{result: &api.VerifyResult{}},
			{result: &api.VerifyResult{Status: "failed"}},
		}
		h := newHarness(t, backend)
		h.openAndWait(t, PlanMonthly)
		h.ctrl.Proceed(context.Background())

		errStep := waitForStep[ErrorStep](t, h.ctrl)
		assert.Equal(t, msgPaymentFailed, errStep.Message)
		assert.Zero(t, h.successCount())

		// Retry returns to selection with choices intact.
		h.ctrl.Retry()
		snap := h.ctrl.Snapshot()
		assert.IsType(t, SelectStep{}, snap.Step)
		assert.Equal(t, PlanMonthly, snap.Plan.ID)
		assert.Equal(t, MethodSifalo, snap.Method)
	})

	t.Run("timeout lands on the pending-review step", func(t *testing.T) {
		backend := newFakeBackend() // every verify reply is pending
		h := newHarness(t, backend)
		h.openAndWait(t, PlanMonthly)
		h.ctrl.Proceed(context.Background())

		waitForStep[ManualDoneStep](t, h.ctrl)
		assert.Equal(t, 5, backend.verifyCount())
		assert.Zero(t, h.successCount())
	})

	t.Run("verification errors do not stop the loop", func(t *testing.T) {
		backend := newFakeBackend()
		backend.verifySeq = []verifyReply{
			{err: errors.New("timeout")},
			{err: errors.New("connection refused")},
			{result: &api.VerifyResult{Success: true}},
		}
		h := newHarness(t, backend)
		h.openAndWait(t, PlanMonthly)
		h.ctrl.Proceed(context.Background())

		waitForStep[SuccessStep](t, h.ctrl)
		assert.Equal(t, 3, backend.verifyCount())
	})

	t.Run("session creation failure shows the server message inline", func(t *testing.T) {
		backend := newFakeBackend()
		backend.createErr = &api.ServerError{StatusCode: 400, Message: "Qorshaha lama helin"}
		h := newHarness(t, backend)
		h.openAndWait(t, PlanMonthly)
		h.ctrl.Proceed(context.Background())

		require.Eventually(t, func() bool {
			step, ok := h.ctrl.Snapshot().Step.(SelectStep)
			return ok && step.Err != ""
		}, 2*time.Second, 2*time.Millisecond)

		step := h.ctrl.Snapshot().Step.(SelectStep)
		assert.Equal(t, "Qorshaha lama helin", step.Err)
		assert.False(t, h.ctrl.Snapshot().Loading)
		assert.Empty(t, h.openedURLs())
	})

	t.Run("opaque creation failure falls back to the generic message", func(t *testing.T) {
		backend := newFakeBackend()
		backend.createErr = errors.New("dial tcp: connection refused")
		h := newHarness(t, backend)
		h.openAndWait(t, PlanMonthly)
		h.ctrl.Proceed(context.Background())

		require.Eventually(t, func() bool {
			step, ok := h.ctrl.Snapshot().Step.(SelectStep)
			return ok && step.Err == msgGenericError
		}, 2*time.Second, 2*time.Millisecond)
	})

	t.Run("back during polling cancels the loop", func(t *testing.T) {
		backend := newFakeBackend()
		h := newHarness(t, backend)
		h.openAndWait(t, PlanMonthly)
		h.ctrl.Proceed(context.Background())
		waitForStep[PollingStep](t, h.ctrl)

		h.ctrl.Back()
		assert.IsType(t, SelectStep{}, h.ctrl.Snapshot().Step)

		time.Sleep(20 * time.Millisecond)
		seen := backend.verifyCount()
		time.Sleep(40 * time.Millisecond)
		assert.Equal(t, seen, backend.verifyCount(), "verification continued after back")
	})

	t.Run("close during polling discards the session", func(t *testing.T) {
		backend := newFakeBackend()
		h := newHarness(t, backend)
		h.openAndWait(t, PlanMonthly)
		h.ctrl.Proceed(context.Background())
		waitForStep[PollingStep](t, h.ctrl)

		h.ctrl.Close()
		time.Sleep(20 * time.Millisecond)
		seen := backend.verifyCount()
		time.Sleep(40 * time.Millisecond)
		assert.Equal(t, seen, backend.verifyCount())
		assert.False(t, h.ctrl.Snapshot().Open)
	})

	t.Run("poll progress is reflected in the polling step", func(t *testing.T) {
		backend := newFakeBackend()
		h := newHarness(t, backend)
		h.openAndWait(t, PlanMonthly)
		h.ctrl.Proceed(context.Background())

		require.Eventually(t, func() bool {
			step, ok := h.ctrl.Snapshot().Step.(PollingStep)
			return ok && step.Tick >= 2
		}, 2*time.Second, 2*time.Millisecond)

		step := h.ctrl.Snapshot().Step.(PollingStep)
		assert.Equal(t, 5, step.MaxTicks)
		assert.Equal(t, "https://pay.example.com/c/abc123", step.CheckoutURL)
	})
}

func TestController_ManualSubmission(t *testing.T) {
	t.Run("accepted submission reaches the pending-review step", func(t *testing.T) {
		backend := newFakeBackend()
		h := newHarness(t, backend)
		h.openAndWait(t, PlanYearly)
		h.ctrl.SelectMethod(MethodMpesa)
		h.ctrl.Proceed(context.Background())
		require.IsType(t, ManualFormStep{}, h.ctrl.Snapshot().Step)

		h.ctrl.Submit(context.Background(), "SAB1CDE2FG")
		assert.IsType(t, ManualDoneStep{}, h.ctrl.Snapshot().Step)

		require.Len(t, backend.submits, 1)
		call := backend.submits[0]
		assert.Equal(t, MethodMpesa, call.method)
		assert.Equal(t, "yearly", call.plan)
		assert.Equal(t, "test-device", call.device)
		assert.Equal(t, "SAB1CDE2FG", call.txID)
	})

	t.Run("paypal submissions route to the paypal endpoint", func(t *testing.T) {
		backend := newFakeBackend()
		h := newHarness(t, backend)
		h.openAndWait(t, PlanMonthly)
		h.ctrl.SelectMethod(MethodPaypal)
		h.ctrl.Proceed(context.Background())
		h.ctrl.Submit(context.Background(), "7AB12345CD678901E")

		require.Len(t, backend.submits, 1)
		assert.Equal(t, MethodPaypal, backend.submits[0].method)
	})

	t.Run("rejected submission keeps the form with the server message", func(t *testing.T) {
		backend := newFakeBackend()
		backend.submitErr = &api.ServerError{StatusCode: 409, Message: "Transaction-kan hore ayaa loo isticmaalay"}
		h := newHarness(t, backend)
		h.openAndWait(t, PlanMonthly)
		h.ctrl.SelectMethod(MethodMpesa)
		h.ctrl.Proceed(context.Background())
		h.ctrl.Submit(context.Background(), "SAB1CDE2FG")

		form := h.ctrl.Snapshot().Step.(ManualFormStep)
		assert.Equal(t, MethodMpesa, form.Method)
		assert.Equal(t, "Transaction-kan hore ayaa loo isticmaalay", form.Err)
	})

	t.Run("empty reference is a no-op", func(t *testing.T) {
		backend := newFakeBackend()
		h := newHarness(t, backend)
		h.openAndWait(t, PlanMonthly)
		h.ctrl.SelectMethod(MethodMpesa)
		h.ctrl.Proceed(context.Background())

		h.ctrl.Submit(context.Background(), "")
		assert.Empty(t, backend.submits)
		assert.IsType(t, ManualFormStep{}, h.ctrl.Snapshot().Step)
	})
}

func TestController_MethodPersistence(t *testing.T) {
	t.Run("proceed persists the chosen method", func(t *testing.T) {
		h := newHarness(t, newFakeBackend())
		h.openAndWait(t, PlanMonthly)
		h.ctrl.SelectMethod(MethodPaypal)
		h.ctrl.Proceed(context.Background())

		saved, ok := h.store.LastMethod()
		require.True(t, ok)
		assert.Equal(t, MethodPaypal, saved)
	})

	t.Run("stored method is restored on construction", func(t *testing.T) {
		store := &memMethodStore{method: MethodStripe, saved: true}
		ctrl := New(Options{
			Backend: newFakeBackend(),
			Store:   store,
			Device:  device.Static("test-device"),
		})
		assert.Equal(t, MethodStripe, ctrl.Snapshot().Method)
	})

	t.Run("a store write failure does not block checkout", func(t *testing.T) {
		h := newHarness(t, newFakeBackend())
		h.store.setErr = errors.New("disk full")
		h.openAndWait(t, PlanMonthly)
		h.ctrl.SelectMethod(MethodMpesa)
		h.ctrl.Proceed(context.Background())
		assert.IsType(t, ManualFormStep{}, h.ctrl.Snapshot().Step)
	})
}

func mustPlan(t *testing.T, id PlanID) Plan {
	t.Helper()
	plan, ok := PlanByID(id)
	require.True(t, ok)
	return plan
}
