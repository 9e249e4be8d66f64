package fiscalreport

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"time"
)

// CustomerIdentificationThreshold is the invoice total in USD above
// which SENIAT requires customer identification.
const CustomerIdentificationThreshold = 100.0

// Service implements SENIAT fiscal reporting: invoice validation,
// fiscal numbering, and the Z/X/psychotropic reports. It is stateless;
// callers pass the invoices to aggregate.
type Service struct{}

func NewService() *Service {
	return &Service{}
}

// GenerateInvoiceNumber produces a fiscal invoice number in the form
// INV-YYYYMMDD-XXXX.
func (s *Service) GenerateInvoiceNumber() string {
	return fmt.Sprintf("INV-%s-%04d", time.Now().Format("20060102"), rand.Intn(10000))
}

// GenerateFiscalControlNumber produces a control number in the form
// FC-XXXXX.
func (s *Service) GenerateFiscalControlNumber() string {
	return fmt.Sprintf("FC-%05d", rand.Intn(100000))
}

// RequiresCustomerIdentification reports whether the invoice total
// obliges the pharmacy to record customer identification.
func (s *Service) RequiresCustomerIdentification(totalUSD float64) bool {
	return totalUSD > CustomerIdentificationThreshold
}

// ValidateInvoice checks an invoice against SENIAT requirements:
// invoice number, at least one item and one payment, customer
// identification above the threshold, and IVA recomputed from the items
// within a centavo of the declared amount.
func (s *Service) ValidateInvoice(inv *Invoice) ValidationResult {
	errs := []string{}

	if inv.InvoiceNumber == "" {
		errs = append(errs, "numero de factura es requerido")
	}
	if len(inv.Items) == 0 {
		errs = append(errs, "la factura debe tener al menos un item")
	}
	if inv.TotalUSD > CustomerIdentificationThreshold && inv.PatientID == "" && inv.CustomerCI == "" {
		errs = append(errs, "facturas mayores a $100 requieren informacion del cliente")
	}
	if len(inv.Payments) == 0 {
		errs = append(errs, "debe especificar al menos un metodo de pago")
	}

	var calculatedIVA float64
	for _, item := range inv.Items {
		calculatedIVA += item.SubtotalUSD * item.IVARate
	}
	if diff := calculatedIVA - inv.IVAUSD; diff > 0.01 || diff < -0.01 {
		errs = append(errs, "calculo de IVA incorrecto")
	}

	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

// GenerateZReport builds the daily fiscal close from the invoices
// created on the report date.
func (s *Service) GenerateZReport(sales []*Invoice, date time.Time) *ZReport {
	y, m, d := date.Date()
	var daySales []*Invoice
	for _, sale := range sales {
		sy, sm, sd := sale.CreatedAt.Date()
		if sy == y && sm == m && sd == d {
			daySales = append(daySales, sale)
		}
	}

	report := &ZReport{
		ReportType:     "z_report",
		ReportNumber:   s.GenerateInvoiceNumber(),
		Date:           date,
		PaymentMethods: map[string]float64{},
		SalesByHour:    map[int]float64{},
	}

	for _, sale := range daySales {
		report.TotalSalesUSD += sale.TotalUSD
		report.TotalSalesVES += sale.TotalVES
		report.TotalIVAUSD += sale.IVAUSD
		report.TotalIVAVES += sale.IVAVES
		report.SalesByHour[sale.CreatedAt.Hour()] += sale.TotalUSD

		for _, item := range sale.Items {
			report.ItemsSold += item.Quantity
			if item.IVARate == 0 {
				report.TotalExemptUSD += item.SubtotalUSD
			}
		}
		for _, payment := range sale.Payments {
			report.PaymentMethods[payment.Method] += payment.AmountUSD
		}
	}

	report.TotalTaxableUSD = report.TotalSalesUSD - report.TotalExemptUSD
	report.TotalTransactions = len(daySales)
	if len(daySales) > 0 {
		report.AverageTicketUSD = report.TotalSalesUSD / float64(len(daySales))
	}
	return report
}

// GenerateXReport builds an interim cut over the period without closing
// the fiscal day.
func (s *Service) GenerateXReport(sales []*Invoice, start, end time.Time) *XReport {
	var periodSales []*Invoice
	for _, sale := range sales {
		if sale.CreatedAt.Before(start) || sale.CreatedAt.After(end) {
			continue
		}
		periodSales = append(periodSales, sale)
	}

	report := &XReport{
		ReportType:     "x_cut",
		Start:          start,
		End:            end,
		PaymentMethods: map[string]float64{},
	}

	for _, sale := range periodSales {
		report.TotalSalesUSD += sale.TotalUSD
		report.TotalSalesVES += sale.TotalVES
		report.TotalIVAUSD += sale.IVAUSD
		report.TotalIVAVES += sale.IVAVES
		for _, payment := range sale.Payments {
			report.PaymentMethods[payment.Method] += payment.AmountUSD
		}
	}

	report.TotalTransactions = len(periodSales)
	if len(periodSales) > 0 {
		report.AverageTicketUSD = report.TotalSalesUSD / float64(len(periodSales))
	}
	report.TopProducts = topProducts(periodSales, 10)
	return report
}

// GeneratePsychotropicReport lists controlled-substance sales for the
// report date.
func (s *Service) GeneratePsychotropicReport(sales []*Invoice, date time.Time) *PsychotropicReport {
	y, m, d := date.Date()
	report := &PsychotropicReport{
		ReportType: "psychotropic",
		Date:       date,
		Items:      []PsychotropicItem{},
	}

	for _, sale := range sales {
		sy, sm, sd := sale.CreatedAt.Date()
		if sy != y || sm != m || sd != d {
			continue
		}
		for _, item := range sale.Items {
			name := strings.ToLower(item.ProductName)
			if !strings.Contains(name, "psicotropico") && !strings.Contains(name, "controlada") {
				continue
			}
			report.Items = append(report.Items, PsychotropicItem{
				ProductName:  item.ProductName,
				Quantity:     item.Quantity,
				UnitPriceUSD: item.UnitPriceUSD,
				TotalUSD:     item.TotalUSD,
			})
			report.TotalItems++
			report.TotalQuantity += item.Quantity
		}
	}
	return report
}

// FormatForPrinter renders the invoice as a fiscal printer ticket.
func (s *Service) FormatForPrinter(inv *Invoice) string {
	var b strings.Builder
	rule := strings.Repeat("=", 40)

	fmt.Fprintf(&b, "%s\nFACTURA FISCAL\n%s\n", rule, rule)
	fmt.Fprintf(&b, "Numero: %s\n", inv.InvoiceNumber)
	fmt.Fprintf(&b, "Fecha: %s\n", inv.CreatedAt.Format("02/01/2006 15:04"))
	control := inv.FiscalControlNumber
	if control == "" {
		control = "N/A"
	}
	fmt.Fprintf(&b, "Control Fiscal: %s\n\n", control)

	if inv.CustomerName != "" {
		fmt.Fprintf(&b, "Cliente:\n  Nombre: %s\n", inv.CustomerName)
		if inv.CustomerCI != "" {
			fmt.Fprintf(&b, "  CI/RIF: %s\n", inv.CustomerCI)
		}
		b.WriteString("\n")
	}

	b.WriteString("Items:\n")
	b.WriteString(strings.Repeat("-", 40) + "\n")
	var exempt float64
	for i, item := range inv.Items {
		fmt.Fprintf(&b, "%d. %s\n", i+1, item.ProductName)
		fmt.Fprintf(&b, "   Cantidad: %d x $%.2f\n", item.Quantity, item.UnitPriceUSD)
		fmt.Fprintf(&b, "   Subtotal: $%.2f\n", item.SubtotalUSD)
		if item.IVARate > 0 {
			fmt.Fprintf(&b, "   IVA (%.0f%%): $%.2f\n", item.IVARate*100, item.IVAUSD)
		} else {
			exempt += item.SubtotalUSD
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "%s\nResumen:\n", rule)
	fmt.Fprintf(&b, "  Subtotal Gravado: $%.2f\n", inv.SubtotalUSD)
	fmt.Fprintf(&b, "  IVA (16%%): $%.2f\n", inv.IVAUSD)
	fmt.Fprintf(&b, "  Total Exento: $%.2f\n", exempt)
	fmt.Fprintf(&b, "  TOTAL: $%.2f\n%s\n", inv.TotalUSD, rule)

	b.WriteString("Metodos de Pago:\n")
	for _, payment := range inv.Payments {
		fmt.Fprintf(&b, "  %s: $%.2f\n", payment.Method, payment.AmountUSD)
	}
	if inv.ChangeUSD > 0 {
		fmt.Fprintf(&b, "  Cambio: $%.2f\n", inv.ChangeUSD)
	}

	b.WriteString("\nGracias por su compra\n")
	return b.String()
}

func topProducts(sales []*Invoice, limit int) []TopProduct {
	type entry struct {
		name     string
		quantity int
		revenue  float64
	}
	byProduct := map[string]*entry{}
	for _, sale := range sales {
		for _, item := range sale.Items {
			e, ok := byProduct[item.ProductID]
			if !ok {
				e = &entry{name: item.ProductName}
				byProduct[item.ProductID] = e
			}
			e.quantity += item.Quantity
			e.revenue += item.TotalUSD
		}
	}

	entries := make([]*entry, 0, len(byProduct))
	for _, e := range byProduct {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].revenue > entries[j].revenue })
	if len(entries) > limit {
		entries = entries[:limit]
	}

	out := make([]TopProduct, len(entries))
	for i, e := range entries {
		out[i] = TopProduct{ProductName: e.name, QuantitySold: e.quantity, RevenueUSD: e.revenue}
	}
	return out
}
