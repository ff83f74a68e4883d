package checkout

// Step is the checkout state machine position. It is a closed sum:
// each variant carries exactly the data that step needs, so states
// like "error with no message" cannot be constructed.
type Step interface {
	isStep()
}

// SelectStep is the plan/method selection screen. Err holds an inline
// request failure from a previous proceed attempt, if any.
type SelectStep struct {
	Err string
}

// PollingStep is an active hosted-checkout verification loop.
type PollingStep struct {
	Provider    Method
	Tick        int
	MaxTicks    int
	CheckoutURL string
}

// ManualFormStep collects a transaction reference for a manual method.
// Err holds an inline submission failure, if any.
type ManualFormStep struct {
	Method Method
	Err    string
}

// ManualDoneStep confirms a submission (or polling timeout) now
// awaiting back-office review.
type ManualDoneStep struct{}

// SuccessStep confirms an activated subscription.
type SuccessStep struct {
	Plan PlanID
}

// ErrorStep is a terminal verification failure; retry returns to
// selection.
type ErrorStep struct {
	Message string
}

func (SelectStep) isStep()     {}
func (PollingStep) isStep()    {}
func (ManualFormStep) isStep() {}
func (ManualDoneStep) isStep() {}
func (SuccessStep) isStep()    {}
func (ErrorStep) isStep()      {}
