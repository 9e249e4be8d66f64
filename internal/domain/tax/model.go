package tax

import "time"

// PaymentMethod identifies how an invoice was paid.
type PaymentMethod string

const (
	PaymentCash      PaymentMethod = "cash"
	PaymentCard      PaymentMethod = "card"
	PaymentPagoMovil PaymentMethod = "pago_movil"
	PaymentTransfer  PaymentMethod = "transfer"
)

// Currency is the ISO code of the payment currency.
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyVES Currency = "VES"
)

// Transaction records the tax treatment of a single invoice payment:
// the IGTF levied on it and any IVA retention withheld from it.
type Transaction struct {
	ID        string `json:"id"`
	InvoiceID string `json:"invoice_id"`

	IGTFApplicable   bool    `json:"igtf_applicable"`
	IGTFRate         float64 `json:"igtf_rate"`
	IGTFAmountUSD    float64 `json:"igtf_amount_usd"`
	IGTFAmountVES    float64 `json:"igtf_amount_ves"`
	IGTFExchangeRate float64 `json:"igtf_exchange_rate"`

	RetentionApplicable bool    `json:"retention_applicable"`
	RetentionRate       float64 `json:"retention_rate"`
	IVAAmountUSD        float64 `json:"iva_amount_usd"`
	IVAAmountVES        float64 `json:"iva_amount_ves"`
	IVARetainedUSD      float64 `json:"iva_retained_usd"`
	IVARetainedVES      float64 `json:"iva_retained_ves"`

	PaymentMethod         PaymentMethod `json:"payment_method"`
	PaymentCurrency       Currency      `json:"payment_currency"`
	IsCashForeignCurrency bool          `json:"is_cash_foreign_currency"`

	CustomerIsSpecialTaxpayer bool   `json:"customer_is_special_taxpayer"`
	CustomerRIF               string `json:"customer_rif,omitempty"`

	TransactionDate time.Time `json:"transaction_date"`
	CreatedAt       time.Time `json:"created_at"`
}

// RetentionVoucher is the SENIAT retention receipt handed to a special
// taxpayer when IVA is withheld on their behalf.
type RetentionVoucher struct {
	ID            string `json:"id"`
	VoucherNumber string `json:"voucher_number"`

	InvoiceID     string    `json:"invoice_id"`
	InvoiceNumber string    `json:"invoice_number"`
	InvoiceDate   time.Time `json:"invoice_date"`

	CustomerName    string `json:"customer_name"`
	CustomerRIF     string `json:"customer_rif"`
	CustomerAddress string `json:"customer_address,omitempty"`

	IVABaseUSD         float64 `json:"iva_base_usd"`
	IVABaseVES         float64 `json:"iva_base_ves"`
	IVARate            float64 `json:"iva_rate"`
	IVAAmountUSD       float64 `json:"iva_amount_usd"`
	IVAAmountVES       float64 `json:"iva_amount_ves"`
	RetentionRate      float64 `json:"retention_rate"`
	RetentionAmountUSD float64 `json:"retention_amount_usd"`
	RetentionAmountVES float64 `json:"retention_amount_ves"`

	PaymentMethod string `json:"payment_method"`

	GeneratedAt time.Time `json:"generated_at"`

	SubmittedToSENIAT bool       `json:"submitted_to_seniat,omitempty"`
	SubmittedDate     *time.Time `json:"submitted_date,omitempty"`
	SENIATReference   string     `json:"seniat_reference,omitempty"`
}

// Configuration holds the tunable tax parameters. Rates are fractions,
// not percentages: 0.03 means 3%.
type Configuration struct {
	IGTFRate              float64         `json:"igtf_rate"`
	IGTFApplicableMethods []PaymentMethod `json:"igtf_applicable_methods"`
	IGTFExemptMethods     []PaymentMethod `json:"igtf_exempt_methods"`

	RetentionRate       float64  `json:"retention_rate"`
	SpecialTaxpayerRIFs []string `json:"special_taxpayer_rifs"`

	IVAGeneralRate      float64  `json:"iva_general_rate"`
	IVAReducedRate      float64  `json:"iva_reduced_rate"`
	IVAExemptCategories []string `json:"iva_exempt_categories"`
}

// DefaultConfiguration returns the SENIAT rates in force for pharmacies:
// IGTF 3% on foreign-currency cash, 75% IVA retention for special
// taxpayers, IVA at 16% general and 8% reduced.
func DefaultConfiguration() Configuration {
	return Configuration{
		IGTFRate:              0.03,
		IGTFApplicableMethods: []PaymentMethod{PaymentCash},
		IGTFExemptMethods:     []PaymentMethod{PaymentCard, PaymentPagoMovil, PaymentTransfer},
		RetentionRate:         0.75,
		SpecialTaxpayerRIFs:   []string{},
		IVAGeneralRate:        0.16,
		IVAReducedRate:        0.08,
		IVAExemptCategories:   []string{"medicamentos", "servicios medicos"},
	}
}

// IGTFResult is the outcome of an IGTF calculation.
type IGTFResult struct {
	Applicable bool    `json:"applicable"`
	Rate       float64 `json:"rate"`
	AmountUSD  float64 `json:"amount_usd"`
	AmountVES  float64 `json:"amount_ves"`
}

// RetentionResult is the outcome of a retention calculation.
type RetentionResult struct {
	Applicable  bool    `json:"applicable"`
	Rate        float64 `json:"rate"`
	RetainedUSD float64 `json:"retained_usd"`
	RetainedVES float64 `json:"retained_ves"`
}

// Accumulation sums tax amounts over a declaration period.
type Accumulation struct {
	TotalUSD float64 `json:"total_usd"`
	TotalVES float64 `json:"total_ves"`
	Count    int     `json:"count"`
}
