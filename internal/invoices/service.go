package invoices

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/genba-erp/genba-erp/internal/cashflow"
	"github.com/genba-erp/genba-erp/internal/masterdata/clients"
	"github.com/genba-erp/genba-erp/internal/masterdata/paymentterms"
	"github.com/genba-erp/genba-erp/internal/platform/httpx"
	"github.com/genba-erp/genba-erp/internal/projects"
	"github.com/genba-erp/genba-erp/internal/shared"
	"github.com/genba-erp/genba-erp/internal/webhooks"
	"github.com/genba-erp/genba-erp/report"
)

// RepositoryPort defines data access methods for invoices.
type RepositoryPort interface {
	Create(ctx context.Context, clientID int64, input CreateInvoiceInput, lines []Line, total int64) (*Invoice, error)
	Get(ctx context.Context, id int64) (*Invoice, error)
	ReplaceLines(ctx context.Context, id int64, lines []Line, total int64) (*Invoice, error)
	Issue(ctx context.Context, id int64, expectedPaymentDate time.Time) (*Invoice, error)
	MarkPaid(ctx context.Context, id int64) (*Invoice, error)
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, req ListInvoicesRequest) ([]Invoice, int, error)
}

// ProjectPort resolves the billed project. Implemented by the projects
// service.
type ProjectPort interface {
	GetProject(ctx context.Context, id int64) (*projects.Project, error)
}

// ClientPort resolves the billed client. Implemented by the clients service.
type ClientPort interface {
	GetClient(ctx context.Context, id int64) (*clients.Client, error)
}

// TermPort derives the expected payment date from the client's term.
type TermPort interface {
	ExpectedPaymentDate(ctx context.Context, termableType paymentterms.TermableType, termableID int64, base time.Time) (time.Time, error)
}

// LedgerPort feeds issued invoices into the cash-flow ledger.
type LedgerPort interface {
	CreateEntry(ctx context.Context, input cashflow.CreateEntryInput) (*cashflow.Entry, error)
}

// Renderer turns HTML into a PDF document.
type Renderer interface {
	RenderHTML(ctx context.Context, html string, opts report.RenderOptions) ([]byte, error)
}

// CompanyProfile is the issuer block printed on every invoice.
type CompanyProfile struct {
	Name    string
	Address string
	Phone   string
	Bank    string
}

// Lines renders the profile as the address block under the company name.
func (p CompanyProfile) Lines() []string {
	var out []string
	for _, s := range []string{p.Address, p.Phone, p.Bank} {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Service handles invoice business logic.
type Service struct {
	logger    *slog.Logger
	repo      RepositoryPort
	projects  ProjectPort
	clients   ClientPort
	terms     TermPort
	ledger    LedgerPort
	renderer  Renderer
	company   CompanyProfile
	auditor   shared.Auditor
	publisher webhooks.Publisher
	validate  *validator.Validate
}

// NewService builds a Service instance.
func NewService(logger *slog.Logger, repo RepositoryPort, projectsPort ProjectPort, clientsPort ClientPort,
	terms TermPort, ledger LedgerPort, renderer Renderer, company CompanyProfile,
	auditor shared.Auditor, publisher webhooks.Publisher) *Service {
	return &Service{
		logger:    logger,
		repo:      repo,
		projects:  projectsPort,
		clients:   clientsPort,
		terms:     terms,
		ledger:    ledger,
		renderer:  renderer,
		company:   company,
		auditor:   auditor,
		publisher: publisher,
		validate:  validator.New(),
	}
}

// CreateInvoice opens a draft. The client comes from the project; line
// amounts and the total are derived here.
func (s *Service) CreateInvoice(ctx context.Context, input CreateInvoiceInput) (*Invoice, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, err
	}
	project, err := s.projects.GetProject(ctx, input.ProjectID)
	if err != nil {
		return nil, err
	}
	lines, total := priceLines(input.Lines)
	inv, err := s.repo.Create(ctx, project.ClientID, input, lines, total)
	if err != nil {
		return nil, err
	}
	s.audit(ctx, "invoice.create", inv.ID, map[string]any{"number": inv.Number, "total": inv.Total})
	return inv, nil
}

// UpdateLines replaces a draft's lines, recomputing the total.
func (s *Service) UpdateLines(ctx context.Context, id int64, input UpdateLinesInput) (*Invoice, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, err
	}
	lines, total := priceLines(input.Lines)
	inv, err := s.repo.ReplaceLines(ctx, id, lines, total)
	if err != nil {
		return nil, err
	}
	s.audit(ctx, "invoice.update_lines", id, map[string]any{"total": total})
	return inv, nil
}

// IssueInvoice moves a draft to issued: the expected payment date is derived
// from the client's payment term, an income entry lands on the cash-flow
// ledger, and the event goes out.
func (s *Service) IssueInvoice(ctx context.Context, id int64) (*Invoice, error) {
	inv, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv.Status != StatusDraft {
		return nil, fmt.Errorf("invoice %s already issued: %w", inv.Number, httpx.ErrConflict)
	}

	expected, err := s.terms.ExpectedPaymentDate(ctx, paymentterms.TermableClient, inv.ClientID, inv.IssueDate)
	if err != nil {
		if !errors.Is(err, paymentterms.ErrNoTerm) {
			return nil, err
		}
		// No term configured: due on the issue date.
		expected = inv.IssueDate
	}

	issued, err := s.repo.Issue(ctx, id, expected)
	if err != nil {
		return nil, err
	}

	if _, err := s.ledger.CreateEntry(ctx, cashflow.CreateEntryInput{
		SourceType: cashflow.SourceInvoice,
		SourceID:   issued.ID,
	}); err != nil {
		s.logger.Error("cash-flow entry for issued invoice failed",
			slog.String("number", issued.Number), slog.Any("error", err))
	}

	s.audit(ctx, "invoice.issue", id, map[string]any{
		"number":                issued.Number,
		"total":                 issued.Total,
		"expected_payment_date": expected.Format("2006-01-02"),
	})
	s.publish(ctx, webhooks.NewEvent(webhooks.EventInvoiceIssued, "Invoice", issued.ID, map[string]any{
		"number":     issued.Number,
		"project_id": issued.ProjectID,
		"client_id":  issued.ClientID,
		"total":      issued.Total,
	}, nil))
	return issued, nil
}

// MarkPaid closes an issued invoice against received payment.
func (s *Service) MarkPaid(ctx context.Context, id int64) (*Invoice, error) {
	inv, err := s.repo.MarkPaid(ctx, id)
	if err != nil {
		return nil, err
	}
	s.audit(ctx, "invoice.paid", id, map[string]any{"number": inv.Number})
	return inv, nil
}

// DeleteInvoice removes a draft.
func (s *Service) DeleteInvoice(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.audit(ctx, "invoice.delete", id, nil)
	return nil
}

// GetInvoice returns an invoice with its lines.
func (s *Service) GetInvoice(ctx context.Context, id int64) (*Invoice, error) {
	return s.repo.Get(ctx, id)
}

// ListInvoices returns a page of invoices matching the filter plus the
// unpaged match count.
func (s *Service) ListInvoices(ctx context.Context, req ListInvoicesRequest) ([]Invoice, int, error) {
	return s.repo.List(ctx, req)
}

// RenderPDF produces the printable document for an invoice.
func (s *Service) RenderPDF(ctx context.Context, id int64) ([]byte, error) {
	inv, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	project, err := s.projects.GetProject(ctx, inv.ProjectID)
	if err != nil {
		return nil, err
	}
	client, err := s.clients.GetClient(ctx, inv.ClientID)
	if err != nil {
		return nil, err
	}

	doc := report.InvoiceDocument{
		Number:        inv.Number,
		IssueDate:     inv.IssueDate,
		RecipientName: client.Name,
		CompanyName:   s.company.Name,
		CompanyLines:  s.company.Lines(),
		ProjectName:   project.Name,
		Total:         inv.Total,
	}
	if inv.ExpectedPaymentDate != nil {
		doc.DueDate = *inv.ExpectedPaymentDate
	} else {
		doc.DueDate = inv.IssueDate
	}
	for _, l := range inv.Lines {
		doc.Lines = append(doc.Lines, report.InvoiceDocumentLine{
			Description: l.Description,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			Amount:      l.Amount,
		})
	}

	html, err := report.RenderInvoiceHTML(doc)
	if err != nil {
		return nil, err
	}
	return s.renderer.RenderHTML(ctx, html, report.RenderOptions{Landscape: true})
}

// Resolve lets the cash-flow ledger derive an income entry from an issued
// invoice. Implements the ledger's source handler contract.
func (s *Service) Resolve(ctx context.Context, sourceID int64) (cashflow.SourceDocument, error) {
	inv, err := s.repo.Get(ctx, sourceID)
	if err != nil {
		return cashflow.SourceDocument{}, err
	}
	if inv.Status == StatusDraft {
		return cashflow.SourceDocument{}, fmt.Errorf("invoice %s not issued: %w", inv.Number, httpx.ErrConflict)
	}
	return cashflow.SourceDocument{
		Direction:    cashflow.DirectionIncome,
		Amount:       inv.Total,
		BaseDate:     inv.IssueDate,
		Description:  "請求書 " + inv.Number,
		TermableType: paymentterms.TermableClient,
		TermableID:   inv.ClientID,
	}, nil
}

func priceLines(inputs []LineInput) ([]Line, int64) {
	lines := make([]Line, 0, len(inputs))
	var total int64
	for _, in := range inputs {
		amount := int64(in.Quantity * float64(in.UnitPrice))
		lines = append(lines, Line{
			Description: in.Description,
			Quantity:    in.Quantity,
			UnitPrice:   in.UnitPrice,
			Amount:      amount,
		})
		total += amount
	}
	return lines, total
}

func (s *Service) audit(ctx context.Context, action string, id int64, meta map[string]any) {
	err := s.auditor.Record(ctx, shared.AuditLog{
		ActorID:  shared.ActorID(ctx),
		Action:   action,
		Entity:   "invoices",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	})
	if err != nil {
		s.logger.Warn("audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}

func (s *Service) publish(ctx context.Context, evt webhooks.Event) {
	if err := s.publisher.PublishEvent(ctx, evt); err != nil {
		s.logger.Warn("webhook publish failed", slog.String("event", string(evt.EventType)), slog.Any("error", err))
	}
}
