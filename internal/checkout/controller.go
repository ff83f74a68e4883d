package checkout

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/codeabdala/fanbroj-cli/internal/api"
	"github.com/codeabdala/fanbroj-cli/internal/device"
)

// Somali user-facing messages, matching the web checkout.
const (
	msgGenericError  = "Khalad ayaa dhacay"
	msgPaymentFailed = "Lacag-bixinta waa fashilantay. Isku day mar kale."
)

// Backend is the slice of the API client the controller needs.
// *api.Client satisfies this.
type Backend interface {
	CreateSifaloCheckout(ctx context.Context, plan, deviceID string) (*api.CheckoutSession, error)
	CreateStripeCheckout(ctx context.Context, plan, deviceID string) (*api.CheckoutSession, error)
	VerifyPayment(ctx context.Context, orderID, deviceID string) (*api.VerifyResult, error)
	SubmitMpesa(ctx context.Context, plan, deviceID, txID string) error
	SubmitPaypal(ctx context.Context, plan, deviceID, txID string) error
	GeoPricing(ctx context.Context) (*api.GeoPricing, error)
}

// Options configures a Controller.
type Options struct {
	Backend Backend
	Store   MethodStore
	Device  device.Identity
	Logger  *slog.Logger

	// PollInterval / MaxPolls bound the hosted-checkout verification
	// loop. Zero values mean 3 s and 30 (a 90 s ceiling).
	PollInterval time.Duration
	MaxPolls     int

	// OpenURL opens a provider checkout page in the user's browser.
	// Nil disables opening (tests).
	OpenURL func(url string) error

	// OnChange is called after every observable state change.
	OnChange func()
	// OnSuccess is the caller-supplied success callback.
	OnSuccess func()
	// RefreshEntitlement is fired when a payment is confirmed so
	// dependent UI reflects premium status immediately.
	RefreshEntitlement func(ctx context.Context)
}

// Controller owns the checkout session state machine. All mutation
// happens under its mutex; callbacks are invoked outside of it.
type Controller struct {
	opts     Options
	logger   *slog.Logger
	interval time.Duration
	maxPolls int

	mu              sync.Mutex
	open            bool
	step            Step
	plan            PlanID
	method          Method
	loading         bool
	multiplier      float64
	multiplierReady bool
	fetchingGeo     bool

	// gen guards against goroutines from a previous session (closed
	// overlay, back-navigation) mutating the current one.
	gen        int
	pollCancel context.CancelFunc
}

// Snapshot is an immutable view of controller state for rendering.
type Snapshot struct {
	Open            bool
	Step            Step
	Plan            Plan
	Method          Method
	Loading         bool
	Multiplier      float64
	MultiplierReady bool
}

// DisplayPrice returns the selected plan's price under the effective
// region multiplier, formatted to two decimals.
func (s Snapshot) DisplayPrice() string {
	if !s.MultiplierReady {
		return s.Plan.Price(DefaultMultiplier)
	}
	return s.Plan.Price(s.Multiplier)
}

// CanProceed reports whether the proceed action is enabled: the
// multiplier must be resolved and no request may be in flight.
func (s Snapshot) CanProceed() bool {
	_, ok := s.Step.(SelectStep)
	return ok && s.MultiplierReady && !s.Loading
}

// New creates a Controller. The remembered payment method is restored
// from the store; malformed or absent values fall back to sifalo.
func New(opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	interval := opts.PollInterval
	if interval <= 0 {
		interval = 3 * time.Second
	}
	maxPolls := opts.MaxPolls
	if maxPolls <= 0 {
		maxPolls = 30
	}

	method := MethodSifalo
	if opts.Store != nil {
		if saved, ok := opts.Store.LastMethod(); ok {
			method = saved
		}
	}

	return &Controller{
		opts:     opts,
		logger:   logger,
		interval: interval,
		maxPolls: maxPolls,
		step:     SelectStep{},
		plan:     PlanMonthly,
		method:   method,
	}
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	plan, _ := PlanByID(c.plan)
	return Snapshot{
		Open:            c.open,
		Step:            c.step,
		Plan:            plan,
		Method:          c.method,
		Loading:         c.loading,
		Multiplier:      c.multiplier,
		MultiplierReady: c.multiplierReady,
	}
}

// Open resets the session and shows the selection step. Every
// closed→open transition starts from a clean slate; only the region
// multiplier survives across opens (it is a per-client value, and the
// backend re-derives the charged amount at verification time anyway).
func (c *Controller) Open(defaultPlan PlanID) {
	c.mu.Lock()
	c.stopPollingLocked()
	c.open = true
	c.step = SelectStep{}
	c.loading = false
	if _, ok := PlanByID(defaultPlan); ok {
		c.plan = defaultPlan
	} else {
		c.plan = PlanMonthly
	}
	if c.opts.Store != nil {
		if saved, ok := c.opts.Store.LastMethod(); ok {
			c.method = saved
		}
	}
	needGeo := !c.multiplierReady && !c.fetchingGeo
	if needGeo {
		c.fetchingGeo = true
	}
	c.mu.Unlock()

	if needGeo {
		go c.fetchMultiplier()
	}
	c.notify()
}

// Close tears the session down. Any active polling is cancelled before
// state is discarded; the next Open starts fresh.
func (c *Controller) Close() {
	c.mu.Lock()
	c.stopPollingLocked()
	c.open = false
	c.mu.Unlock()
	c.notify()
}

// SelectPlan changes the selected plan. Only valid on the selection
// step.
func (c *Controller) SelectPlan(id PlanID) {
	c.mu.Lock()
	if _, ok := c.step.(SelectStep); !ok || !c.open {
		c.mu.Unlock()
		return
	}
	if _, ok := PlanByID(id); !ok {
		c.mu.Unlock()
		return
	}
	c.plan = id
	c.mu.Unlock()
	c.notify()
}

// SelectMethod changes the selected payment method. Only valid on the
// selection step.
func (c *Controller) SelectMethod(m Method) {
	c.mu.Lock()
	if _, ok := c.step.(SelectStep); !ok || !c.open {
		c.mu.Unlock()
		return
	}
	if _, ok := ParseMethod(string(m)); !ok {
		c.mu.Unlock()
		return
	}
	c.method = m
	c.mu.Unlock()
	c.notify()
}

// Proceed confirms the plan/method selection: it persists the method
// choice and dispatches to the provider flow. Hosted methods create a
// checkout session and start polling; manual methods move to the
// transaction form.
func (c *Controller) Proceed(ctx context.Context) {
	c.mu.Lock()
	if _, ok := c.step.(SelectStep); !ok || !c.open || c.loading || !c.multiplierReady {
		c.mu.Unlock()
		return
	}
	method := c.method
	plan := c.plan

	if c.opts.Store != nil {
		if err := c.opts.Store.SetLastMethod(method); err != nil {
			c.logger.Warn("failed to persist payment method", "error", err)
		}
	}

	switch method {
	case MethodSifalo, MethodStripe:
		c.loading = true
		gen := c.gen
		c.mu.Unlock()
		go c.startHosted(ctx, gen, method, plan)
	case MethodMpesa, MethodPaypal:
		c.step = ManualFormStep{Method: method}
		c.mu.Unlock()
	default:
		c.mu.Unlock()
		return
	}
	c.notify()
}

// Submit sends a manual transaction reference for review. Only valid
// on the manual form step with a non-empty reference.
func (c *Controller) Submit(ctx context.Context, txID string) {
	c.mu.Lock()
	form, ok := c.step.(ManualFormStep)
	if !ok || !c.open || c.loading || txID == "" {
		c.mu.Unlock()
		return
	}
	c.loading = true
	gen := c.gen
	plan := c.plan
	c.mu.Unlock()
	c.notify()

	var err error
	switch form.Method {
	case MethodMpesa:
		err = c.opts.Backend.SubmitMpesa(ctx, string(plan), c.opts.Device.ID(), txID)
	default:
		err = c.opts.Backend.SubmitPaypal(ctx, string(plan), c.opts.Device.ID(), txID)
	}

	c.mu.Lock()
	if gen != c.gen || !c.open {
		c.mu.Unlock()
		return
	}
	c.loading = false
	if err != nil {
		c.logger.Warn("manual payment submission rejected", "method", form.Method, "error", err)
		c.step = ManualFormStep{Method: form.Method, Err: userMessage(err)}
	} else {
		c.logger.Info("manual payment submitted", "method", form.Method, "plan", plan)
		c.step = ManualDoneStep{}
	}
	c.mu.Unlock()
	c.notify()
}

// Back stops any active polling and returns to the selection step with
// error state cleared. Plan and method selections are preserved.
func (c *Controller) Back() {
	c.mu.Lock()
	if !c.open {
		c.mu.Unlock()
		return
	}
	c.stopPollingLocked()
	c.step = SelectStep{}
	c.loading = false
	c.mu.Unlock()
	c.notify()
}

// Retry leaves the terminal error step and returns to selection,
// preserving the plan/method choices.
func (c *Controller) Retry() {
	c.mu.Lock()
	if _, ok := c.step.(ErrorStep); !ok || !c.open {
		c.mu.Unlock()
		return
	}
	c.step = SelectStep{}
	c.mu.Unlock()
	c.notify()
}

// ReopenCheckout re-opens the provider checkout page while polling.
func (c *Controller) ReopenCheckout() {
	c.mu.Lock()
	polling, ok := c.step.(PollingStep)
	c.mu.Unlock()
	if !ok || polling.CheckoutURL == "" || c.opts.OpenURL == nil {
		return
	}
	if err := c.opts.OpenURL(polling.CheckoutURL); err != nil {
		c.logger.Warn("failed to open checkout url", "error", err)
	}
}

// startHosted creates a provider checkout session, opens the returned
// URL and starts the verification loop.
func (c *Controller) startHosted(ctx context.Context, gen int, method Method, plan PlanID) {
	var (
		session *api.CheckoutSession
		err     error
	)
	deviceID := c.opts.Device.ID()
	if method == MethodSifalo {
		session, err = c.opts.Backend.CreateSifaloCheckout(ctx, string(plan), deviceID)
	} else {
		session, err = c.opts.Backend.CreateStripeCheckout(ctx, string(plan), deviceID)
	}

	c.mu.Lock()
	if gen != c.gen || !c.open {
		c.mu.Unlock()
		return
	}
	c.loading = false
	if err != nil {
		c.logger.Warn("checkout session creation failed", "method", method, "error", err)
		c.step = SelectStep{Err: userMessage(err)}
		c.mu.Unlock()
		c.notify()
		return
	}

	c.logger.Info("checkout session created",
		"method", method, "plan", plan, "order_id", session.OrderID)
	c.step = PollingStep{
		Provider:    method,
		Tick:        0,
		MaxTicks:    c.maxPolls,
		CheckoutURL: session.CheckoutURL,
	}

	pollCtx, cancel := context.WithCancel(context.Background())
	c.pollCancel = cancel
	c.mu.Unlock()

	if c.opts.OpenURL != nil {
		if err := c.opts.OpenURL(session.CheckoutURL); err != nil {
			c.logger.Warn("failed to open checkout url", "error", err)
		}
	}
	c.notify()

	go c.poll(pollCtx, gen, session.OrderID, plan)
}

// poll drives the bounded verification loop and applies its resolved
// outcome to the state machine.
func (c *Controller) poll(ctx context.Context, gen int, orderID string, plan PlanID) {
	deviceID := c.opts.Device.ID()

	poller := Poller{
		Interval: c.interval,
		MaxTicks: c.maxPolls,
		OnTick: func(attempt int) {
			c.onPollTick(gen, attempt)
		},
	}

	outcome := poller.Run(ctx, func(ctx context.Context, attempt int) TickStatus {
		result, err := c.opts.Backend.VerifyPayment(ctx, orderID, deviceID)
		if err != nil {
			// Network hiccup: keep polling.
			c.logger.Debug("verification tick failed", "attempt", attempt, "error", err)
			return TickPending
		}
		if result.Success {
			return TickConfirmed
		}
		if result.Status == "failed" {
			return TickFailed
		}
		return TickPending
	})

	c.logger.Info("polling resolved", "order_id", orderID, "outcome", outcome.String())

	c.mu.Lock()
	if gen != c.gen || !c.open {
		c.mu.Unlock()
		return
	}
	c.pollCancel = nil

	var succeeded bool
	switch outcome {
	case OutcomeConfirmed:
		c.plan = plan
		c.step = SuccessStep{Plan: plan}
		succeeded = true
	case OutcomeFailed:
		c.step = ErrorStep{Message: msgPaymentFailed}
	case OutcomeTimedOut:
		// The payment may still land out-of-band; back-office review
		// reconciles it, so this is not an error.
		c.step = ManualDoneStep{}
	case OutcomeCanceled:
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	if succeeded {
		if c.opts.RefreshEntitlement != nil {
			go c.opts.RefreshEntitlement(context.Background())
		}
		if c.opts.OnSuccess != nil {
			c.opts.OnSuccess()
		}
	}
	c.notify()
}

// onPollTick records poll progress for the progress display.
func (c *Controller) onPollTick(gen, attempt int) {
	c.mu.Lock()
	polling, ok := c.step.(PollingStep)
	if !ok || gen != c.gen {
		c.mu.Unlock()
		return
	}
	polling.Tick = attempt
	c.step = polling
	c.mu.Unlock()
	c.notify()
}

// fetchMultiplier resolves the region price multiplier once. While it
// is unresolved the proceed action stays disabled; a failed fetch is
// retried on the next overlay open.
func (c *Controller) fetchMultiplier() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pricing, err := c.opts.Backend.GeoPricing(ctx)

	c.mu.Lock()
	c.fetchingGeo = false
	if err != nil {
		c.mu.Unlock()
		c.logger.Warn("geo pricing fetch failed", "error", err)
		return
	}
	c.multiplier = pricing.Multiplier
	c.multiplierReady = true
	c.mu.Unlock()

	c.logger.Debug("geo pricing resolved",
		"country", pricing.Country, "multiplier", pricing.Multiplier)
	c.notify()
}

// stopPollingLocked cancels any active poll loop and invalidates every
// outstanding async task. Callers must hold c.mu.
func (c *Controller) stopPollingLocked() {
	if c.pollCancel != nil {
		c.pollCancel()
		c.pollCancel = nil
	}
	c.gen++
}

func (c *Controller) notify() {
	if c.opts.OnChange != nil {
		c.opts.OnChange()
	}
}

// userMessage maps an error to the string shown inline: the backend's
// own message when it sent one, a generic localized fallback otherwise.
func userMessage(err error) string {
	var serverErr *api.ServerError
	if errors.As(err, &serverErr) && serverErr.Message != "" {
		return serverErr.Message
	}
	return msgGenericError
}
