package fiscalreport

import "time"

// Invoice is the fiscal view of a POS invoice: what SENIAT validation
// and the Z/X reports need, nothing more.
type Invoice struct {
	ID                  string `json:"id"`
	InvoiceNumber       string `json:"invoice_number"`
	FiscalControlNumber string `json:"fiscal_control_number,omitempty"`

	PatientID    string `json:"patient_id,omitempty"`
	CustomerName string `json:"customer_name,omitempty"`
	CustomerCI   string `json:"customer_ci,omitempty"`

	Items    []InvoiceItem `json:"items"`
	Payments []Payment     `json:"payments"`

	SubtotalUSD float64 `json:"subtotal_usd"`
	IVAUSD      float64 `json:"iva_usd"`
	IVAVES      float64 `json:"iva_ves"`
	TotalUSD    float64 `json:"total_usd"`
	TotalVES    float64 `json:"total_ves"`
	ChangeUSD   float64 `json:"change_usd,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// InvoiceItem is one invoice line.
type InvoiceItem struct {
	ProductID    string  `json:"product_id"`
	ProductName  string  `json:"product_name"`
	Quantity     int     `json:"quantity"`
	UnitPriceUSD float64 `json:"unit_price_usd"`
	SubtotalUSD  float64 `json:"subtotal_usd"`
	IVARate      float64 `json:"iva_rate"`
	IVAUSD       float64 `json:"iva_usd"`
	TotalUSD     float64 `json:"total_usd"`
}

// Payment is one payment applied to an invoice.
type Payment struct {
	Method    string  `json:"method"`
	AmountUSD float64 `json:"amount_usd"`
	AmountVES float64 `json:"amount_ves"`
}

// ValidationResult lists the SENIAT compliance problems of an invoice.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// ZReport is the daily fiscal close (cierre de caja fiscal).
type ZReport struct {
	ReportType   string    `json:"report_type"`
	ReportNumber string    `json:"report_number"`
	Date         time.Time `json:"date"`

	TotalSalesUSD   float64 `json:"total_sales_usd"`
	TotalSalesVES   float64 `json:"total_sales_ves"`
	TotalIVAUSD     float64 `json:"total_iva_usd"`
	TotalIVAVES     float64 `json:"total_iva_ves"`
	TotalTaxableUSD float64 `json:"total_taxable_usd"`
	TotalExemptUSD  float64 `json:"total_exempt_usd"`

	TotalTransactions int     `json:"total_transactions"`
	AverageTicketUSD  float64 `json:"average_ticket_usd"`

	PaymentMethods map[string]float64 `json:"payment_methods"`
	ItemsSold      int                `json:"items_sold"`
	SalesByHour    map[int]float64    `json:"sales_by_hour"`
}

// XReport is an interim sales cut that does not close the fiscal day.
type XReport struct {
	ReportType string    `json:"report_type"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`

	TotalSalesUSD float64 `json:"total_sales_usd"`
	TotalSalesVES float64 `json:"total_sales_ves"`
	TotalIVAUSD   float64 `json:"total_iva_usd"`
	TotalIVAVES   float64 `json:"total_iva_ves"`

	TotalTransactions int     `json:"total_transactions"`
	AverageTicketUSD  float64 `json:"average_ticket_usd"`

	TopProducts    []TopProduct       `json:"top_products"`
	PaymentMethods map[string]float64 `json:"payment_methods"`
}

// TopProduct is one row of the best-sellers breakdown.
type TopProduct struct {
	ProductName  string  `json:"product_name"`
	QuantitySold int     `json:"quantity_sold"`
	RevenueUSD   float64 `json:"revenue_usd"`
}

// PsychotropicReport tracks controlled-substance sales for a day.
type PsychotropicReport struct {
	ReportType    string             `json:"report_type"`
	Date          time.Time          `json:"date"`
	TotalItems    int                `json:"total_items"`
	TotalQuantity int                `json:"total_quantity"`
	Items         []PsychotropicItem `json:"items"`
}

type PsychotropicItem struct {
	ProductName  string  `json:"product_name"`
	Quantity     int     `json:"quantity"`
	UnitPriceUSD float64 `json:"unit_price_usd"`
	TotalUSD     float64 `json:"total_usd"`
}
