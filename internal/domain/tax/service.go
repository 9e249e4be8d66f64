package tax

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/farmasalud/fiscal/internal/domain/auditlog"
)

// ErrVoucherNotFound is returned when a voucher ID does not match any
// generated retention voucher.
var ErrVoucherNotFound = errors.New("retention voucher not found")

// Service is the tax engine. It calculates IGTF and IVA retention,
// records tax transactions, issues retention vouchers, and accumulates
// totals for SENIAT declarations.
type Service struct {
	mu     sync.Mutex
	repo   Repository
	ledger *auditlog.Ledger

	transactions []*Transaction
	vouchers     []*RetentionVoucher
	config       Configuration
}

// NewService creates a tax service. ledger may be nil, in which case
// fiscal events are not written to the audit log.
func NewService(repo Repository, ledger *auditlog.Ledger) *Service {
	return &Service{
		repo:   repo,
		ledger: ledger,
		config: DefaultConfiguration(),
	}
}

// Load restores persisted tax state. A missing configuration document
// keeps the defaults.
func (s *Service) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	txs, err := s.repo.LoadTransactions(ctx)
	if err != nil {
		return err
	}
	vouchers, err := s.repo.LoadVouchers(ctx)
	if err != nil {
		return err
	}
	cfg, err := s.repo.LoadConfiguration(ctx)
	if err != nil {
		return err
	}

	s.transactions = txs
	s.vouchers = vouchers
	if cfg != nil {
		s.config = *cfg
	}
	return nil
}

// DetectIGTF reports whether IGTF applies to a payment. It applies only
// to cash payments in a foreign currency, and the method must be in the
// configured applicable list and not in the exempt list.
func (s *Service) DetectIGTF(method PaymentMethod, currency Currency) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.detectIGTF(method, currency)
}

func (s *Service) detectIGTF(method PaymentMethod, currency Currency) bool {
	isCash := method == PaymentCash
	isForeign := currency != CurrencyVES
	applicable := containsMethod(s.config.IGTFApplicableMethods, method)
	exempt := containsMethod(s.config.IGTFExemptMethods, method)
	return isCash && isForeign && applicable && !exempt
}

// CalculateIGTF computes the IGTF due on a payment. The VES amount is
// derived from the USD amount at the given exchange rate.
func (s *Service) CalculateIGTF(baseUSD float64, exchangeRate float64, method PaymentMethod, currency Currency) IGTFResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calculateIGTF(baseUSD, exchangeRate, method, currency)
}

func (s *Service) calculateIGTF(baseUSD float64, exchangeRate float64, method PaymentMethod, currency Currency) IGTFResult {
	if !s.detectIGTF(method, currency) {
		return IGTFResult{}
	}
	amountUSD := baseUSD * s.config.IGTFRate
	return IGTFResult{
		Applicable: true,
		Rate:       s.config.IGTFRate,
		AmountUSD:  amountUSD,
		AmountVES:  amountUSD * exchangeRate,
	}
}

// IsSpecialTaxpayer reports whether the RIF is on the configured special
// taxpayer list.
func (s *Service) IsSpecialTaxpayer(rif string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isSpecialTaxpayer(rif)
}

func (s *Service) isSpecialTaxpayer(rif string) bool {
	for _, r := range s.config.SpecialTaxpayerRIFs {
		if r == rif {
			return true
		}
	}
	return false
}

// CalculateRetention computes the IVA retention withheld for a special
// taxpayer. Non-special taxpayers get a zero result.
func (s *Service) CalculateRetention(ivaUSD, ivaVES float64, rif string) RetentionResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calculateRetention(ivaUSD, ivaVES, rif)
}

func (s *Service) calculateRetention(ivaUSD, ivaVES float64, rif string) RetentionResult {
	if !s.isSpecialTaxpayer(rif) {
		return RetentionResult{}
	}
	return RetentionResult{
		Applicable:  true,
		Rate:        s.config.RetentionRate,
		RetainedUSD: ivaUSD * s.config.RetentionRate,
		RetainedVES: ivaVES * s.config.RetentionRate,
	}
}

// CreateTransactionInput carries everything needed to record the tax
// treatment of an invoice payment.
type CreateTransactionInput struct {
	InvoiceID       string        `json:"invoice_id"`
	BaseAmountUSD   float64       `json:"base_amount_usd"`
	BaseAmountVES   float64       `json:"base_amount_ves"`
	IVAAmountUSD    float64       `json:"iva_amount_usd"`
	IVAAmountVES    float64       `json:"iva_amount_ves"`
	PaymentMethod   PaymentMethod `json:"payment_method"`
	PaymentCurrency Currency      `json:"payment_currency"`
	CustomerRIF     string        `json:"customer_rif"`
	ExchangeRate    float64       `json:"exchange_rate"`
	UserID          string        `json:"user_id"`
}

// CreateTransaction calculates IGTF and retention for the payment,
// records the transaction, and writes a fiscal event to the audit log.
func (s *Service) CreateTransaction(ctx context.Context, in CreateTransactionInput) (*Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	igtf := s.calculateIGTF(in.BaseAmountUSD, in.ExchangeRate, in.PaymentMethod, in.PaymentCurrency)
	retention := s.calculateRetention(in.IVAAmountUSD, in.IVAAmountVES, in.CustomerRIF)
	now := time.Now()

	tx := &Transaction{
		ID:                        uuid.NewString(),
		InvoiceID:                 in.InvoiceID,
		IGTFApplicable:            igtf.Applicable,
		IGTFRate:                  igtf.Rate,
		IGTFAmountUSD:             igtf.AmountUSD,
		IGTFAmountVES:             igtf.AmountVES,
		IGTFExchangeRate:          in.ExchangeRate,
		RetentionApplicable:       retention.Applicable,
		RetentionRate:             retention.Rate,
		IVAAmountUSD:              in.IVAAmountUSD,
		IVAAmountVES:              in.IVAAmountVES,
		IVARetainedUSD:            retention.RetainedUSD,
		IVARetainedVES:            retention.RetainedVES,
		PaymentMethod:             in.PaymentMethod,
		PaymentCurrency:           in.PaymentCurrency,
		IsCashForeignCurrency:     in.PaymentMethod == PaymentCash && in.PaymentCurrency != CurrencyVES,
		CustomerIsSpecialTaxpayer: s.isSpecialTaxpayer(in.CustomerRIF),
		CustomerRIF:               in.CustomerRIF,
		TransactionDate:           now,
		CreatedAt:                 now,
	}

	s.transactions = append(s.transactions, tx)
	if err := s.repo.SaveTransactions(ctx, s.transactions); err != nil {
		s.transactions = s.transactions[:len(s.transactions)-1]
		return nil, fmt.Errorf("persist tax transaction: %w", err)
	}

	if s.ledger != nil {
		_, err := s.ledger.LogFiscalEvent(ctx, in.UserID, "tax_transaction_created", "tax_transaction", tx.ID,
			&auditlog.FiscalAmount{USD: igtf.AmountUSD, VES: igtf.AmountVES},
			map[string]interface{}{
				"invoice_id":           tx.InvoiceID,
				"igtf_applicable":      tx.IGTFApplicable,
				"retention_applicable": tx.RetentionApplicable,
				"payment_method":       tx.PaymentMethod,
			})
		if err != nil {
			return nil, err
		}
	}

	return tx, nil
}

// VoucherInput carries everything needed to issue a retention voucher.
type VoucherInput struct {
	InvoiceID       string    `json:"invoice_id"`
	InvoiceNumber   string    `json:"invoice_number"`
	InvoiceDate     time.Time `json:"invoice_date"`
	CustomerName    string    `json:"customer_name"`
	CustomerRIF     string    `json:"customer_rif"`
	CustomerAddress string    `json:"customer_address"`
	IVABaseUSD      float64   `json:"iva_base_usd"`
	IVABaseVES      float64   `json:"iva_base_ves"`
	PaymentMethod   string    `json:"payment_method"`
	UserID          string    `json:"user_id"`
}

// GenerateRetentionVoucher issues a SENIAT retention voucher. The IVA is
// computed from the base at the general rate, and the retention from the
// IVA at the configured retention rate.
func (s *Service) GenerateRetentionVoucher(ctx context.Context, in VoucherInput) (*RetentionVoucher, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ivaRate := s.config.IVAGeneralRate
	ivaUSD := in.IVABaseUSD * ivaRate
	ivaVES := in.IVABaseVES * ivaRate
	retainedUSD := ivaUSD * s.config.RetentionRate
	retainedVES := ivaVES * s.config.RetentionRate

	voucher := &RetentionVoucher{
		ID:                 uuid.NewString(),
		VoucherNumber:      newVoucherNumber(),
		InvoiceID:          in.InvoiceID,
		InvoiceNumber:      in.InvoiceNumber,
		InvoiceDate:        in.InvoiceDate,
		CustomerName:       in.CustomerName,
		CustomerRIF:        in.CustomerRIF,
		CustomerAddress:    in.CustomerAddress,
		IVABaseUSD:         in.IVABaseUSD,
		IVABaseVES:         in.IVABaseVES,
		IVARate:            ivaRate,
		IVAAmountUSD:       ivaUSD,
		IVAAmountVES:       ivaVES,
		RetentionRate:      s.config.RetentionRate,
		RetentionAmountUSD: retainedUSD,
		RetentionAmountVES: retainedVES,
		PaymentMethod:      in.PaymentMethod,
		GeneratedAt:        time.Now(),
	}

	s.vouchers = append(s.vouchers, voucher)
	if err := s.repo.SaveVouchers(ctx, s.vouchers); err != nil {
		s.vouchers = s.vouchers[:len(s.vouchers)-1]
		return nil, fmt.Errorf("persist retention voucher: %w", err)
	}

	if s.ledger != nil {
		_, err := s.ledger.LogFiscalEvent(ctx, in.UserID, "retention_voucher_generated", "retention_voucher", voucher.ID,
			&auditlog.FiscalAmount{USD: retainedUSD, VES: retainedVES},
			map[string]interface{}{
				"voucher_number": voucher.VoucherNumber,
				"invoice_number": voucher.InvoiceNumber,
				"customer_rif":   voucher.CustomerRIF,
			})
		if err != nil {
			return nil, err
		}
	}

	return voucher, nil
}

// newVoucherNumber derives an 8-digit voucher number from the current
// time in milliseconds.
func newVoucherNumber() string {
	return fmt.Sprintf("RET-%08d", time.Now().UnixMilli()%100000000)
}

// MarkVoucherSubmitted records the SENIAT submission reference on a
// voucher. Returns ErrVoucherNotFound for an unknown ID.
func (s *Service) MarkVoucherSubmitted(ctx context.Context, voucherID, seniatReference string) (*RetentionVoucher, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var voucher *RetentionVoucher
	for _, v := range s.vouchers {
		if v.ID == voucherID {
			voucher = v
			break
		}
	}
	if voucher == nil {
		return nil, ErrVoucherNotFound
	}

	prev := *voucher
	now := time.Now()
	voucher.SubmittedToSENIAT = true
	voucher.SubmittedDate = &now
	voucher.SENIATReference = seniatReference

	if err := s.repo.SaveVouchers(ctx, s.vouchers); err != nil {
		*voucher = prev
		return nil, fmt.Errorf("persist retention voucher: %w", err)
	}
	return voucher, nil
}

// IGTFAccumulation sums IGTF collected in the declaration period. Only
// transactions where IGTF applied and whose date falls in the period
// count toward the totals.
func (s *Service) IGTFAccumulation(start, end time.Time) Accumulation {
	s.mu.Lock()
	defer s.mu.Unlock()

	var acc Accumulation
	for _, tx := range s.transactions {
		if !tx.IGTFApplicable {
			continue
		}
		if tx.TransactionDate.Before(start) || tx.TransactionDate.After(end) {
			continue
		}
		acc.TotalUSD += tx.IGTFAmountUSD
		acc.TotalVES += tx.IGTFAmountVES
		acc.Count++
	}
	return acc
}

// RetentionAccumulation sums IVA retained in the declaration period.
func (s *Service) RetentionAccumulation(start, end time.Time) Accumulation {
	s.mu.Lock()
	defer s.mu.Unlock()

	var acc Accumulation
	for _, v := range s.vouchers {
		if v.GeneratedAt.Before(start) || v.GeneratedAt.After(end) {
			continue
		}
		acc.TotalUSD += v.RetentionAmountUSD
		acc.TotalVES += v.RetentionAmountVES
		acc.Count++
	}
	return acc
}

// UpdateConfiguration replaces the tax configuration and persists it.
func (s *Service) UpdateConfiguration(ctx context.Context, cfg Configuration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.config
	s.config = cfg
	if err := s.repo.SaveConfiguration(ctx, cfg); err != nil {
		s.config = prev
		return fmt.Errorf("persist tax configuration: %w", err)
	}
	return nil
}

// Configuration returns a copy of the current tax configuration.
func (s *Service) Configuration() Configuration {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg := s.config
	cfg.IGTFApplicableMethods = append([]PaymentMethod(nil), s.config.IGTFApplicableMethods...)
	cfg.IGTFExemptMethods = append([]PaymentMethod(nil), s.config.IGTFExemptMethods...)
	cfg.SpecialTaxpayerRIFs = append([]string(nil), s.config.SpecialTaxpayerRIFs...)
	cfg.IVAExemptCategories = append([]string(nil), s.config.IVAExemptCategories...)
	return cfg
}

// Transactions returns the recorded tax transactions, newest first.
func (s *Service) Transactions() []*Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*Transaction, len(s.transactions))
	for i, tx := range s.transactions {
		out[len(s.transactions)-1-i] = tx
	}
	return out
}

// Vouchers returns the issued retention vouchers, newest first.
func (s *Service) Vouchers() []*RetentionVoucher {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*RetentionVoucher, len(s.vouchers))
	for i, v := range s.vouchers {
		out[len(s.vouchers)-1-i] = v
	}
	return out
}

func containsMethod(methods []PaymentMethod, m PaymentMethod) bool {
	for _, method := range methods {
		if method == m {
			return true
		}
	}
	return false
}
