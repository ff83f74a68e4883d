package checkout

// Method identifies a payment method.
type Method string

const (
	MethodSifalo Method = "sifalo" // EVC Plus / Zaad, hosted checkout
	MethodStripe Method = "stripe" // card, hosted checkout
	MethodMpesa  Method = "mpesa"  // manual tx-code submission
	MethodPaypal Method = "paypal" // manual tx-id submission
)

// MethodInfo carries display metadata for a payment method.
type MethodInfo struct {
	ID       Method
	Label    string
	Subtitle string
	// Manual methods collect a transaction reference and await human
	// review; hosted methods open a provider checkout page and poll.
	Manual bool
}

// Methods lists the selectable payment methods in display order.
var Methods = []MethodInfo{
	{ID: MethodSifalo, Label: "EVC Plus / Zaad", Subtitle: "Somali mobile money"},
	{ID: MethodStripe, Label: "Card", Subtitle: "Visa / Mastercard"},
	{ID: MethodPaypal, Label: "PayPal", Subtitle: "Send & submit", Manual: true},
	{ID: MethodMpesa, Label: "M-Pesa", Subtitle: "Kenya mobile money", Manual: true},
}

// ParseMethod validates a payment method string. Malformed values
// (e.g. from a stale preference entry) are rejected.
func ParseMethod(s string) (Method, bool) {
	m := Method(s)
	switch m {
	case MethodSifalo, MethodStripe, MethodMpesa, MethodPaypal:
		return m, true
	}
	return "", false
}

// Manual reports whether m uses the manual submission flow.
func (m Method) Manual() bool {
	return m == MethodMpesa || m == MethodPaypal
}

// Info returns the display metadata for m.
func (m Method) Info() MethodInfo {
	for _, info := range Methods {
		if info.ID == m {
			return info
		}
	}
	return MethodInfo{ID: m, Label: string(m)}
}
