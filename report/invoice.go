package report

import (
	"fmt"
	"html/template"
	"strings"
	"time"
)

// InvoiceDocument carries everything the invoice layout needs. Amounts are
// yen.
type InvoiceDocument struct {
	Number        string
	IssueDate     time.Time
	DueDate       time.Time
	RecipientName string
	CompanyName   string
	CompanyLines  []string
	ProjectName   string
	Lines         []InvoiceDocumentLine
	Total         int64
}

// InvoiceDocumentLine is one row of the line-item table.
type InvoiceDocumentLine struct {
	Description string
	Quantity    float64
	UnitPrice   int64
	Amount      int64
}

// invoiceTemplate lays out a landscape A4 page: header band, recipient box
// on the left, company and amount box on the right, the line-item table and
// a footer strip.
var invoiceTemplate = template.Must(template.New("invoice").Funcs(template.FuncMap{
	"yen":  formatYen,
	"date": func(t time.Time) string { return t.Format("2006/01/02") },
}).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
  @page { size: A4 landscape; margin: 12mm; }
  body { font-family: "Noto Sans JP", sans-serif; font-size: 11px; color: #222; }
  .header { text-align: center; font-size: 22px; letter-spacing: 12px; border-bottom: 3px double #222; padding-bottom: 6px; }
  .meta { text-align: right; margin-top: 4px; }
  .columns { display: flex; justify-content: space-between; margin-top: 16px; }
  .recipient { width: 46%; border-bottom: 1px solid #222; font-size: 16px; padding: 8px 4px; }
  .company { width: 40%; font-size: 11px; line-height: 1.6; }
  .amount-box { border: 2px solid #222; margin-top: 12px; padding: 8px; width: 46%; font-size: 15px; }
  table.lines { width: 100%; border-collapse: collapse; margin-top: 18px; }
  table.lines th, table.lines td { border: 1px solid #444; padding: 5px 8px; }
  table.lines th { background: #eee; }
  td.num { text-align: right; }
  .footer { margin-top: 18px; border-top: 1px solid #888; padding-top: 6px; font-size: 9px; color: #555; }
</style>
</head>
<body>
  <div class="header">請求書</div>
  <div class="meta">
    <div>No. {{.Number}}</div>
    <div>発行日: {{date .IssueDate}}</div>
    <div>お支払期限: {{date .DueDate}}</div>
  </div>
  <div class="columns">
    <div>
      <div class="recipient">{{.RecipientName}} 御中</div>
      <div class="amount-box">ご請求金額 <strong>{{yen .Total}}</strong>（税込）</div>
    </div>
    <div class="company">
      <strong>{{.CompanyName}}</strong><br>
      {{- range .CompanyLines}}
      {{.}}<br>
      {{- end}}
    </div>
  </div>
  <table class="lines">
    <tr><th>摘要</th><th>数量</th><th>単価</th><th>金額</th></tr>
    {{- range .Lines}}
    <tr>
      <td>{{.Description}}</td>
      <td class="num">{{printf "%.1f" .Quantity}}</td>
      <td class="num">{{yen .UnitPrice}}</td>
      <td class="num">{{yen .Amount}}</td>
    </tr>
    {{- end}}
    <tr><td colspan="3"><strong>合計</strong></td><td class="num"><strong>{{yen .Total}}</strong></td></tr>
  </table>
  <div class="footer">件名: {{.ProjectName}}</div>
</body>
</html>`))

// RenderInvoiceHTML produces the invoice page markup.
func RenderInvoiceHTML(doc InvoiceDocument) (string, error) {
	var buf strings.Builder
	if err := invoiceTemplate.Execute(&buf, doc); err != nil {
		return "", fmt.Errorf("report: render invoice: %w", err)
	}
	return buf.String(), nil
}

// formatYen renders an amount with thousands separators and the yen mark.
func formatYen(v int64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	s := fmt.Sprintf("%d", v)
	var parts []string
	for len(s) > 3 {
		parts = append([]string{s[len(s)-3:]}, parts...)
		s = s[:len(s)-3]
	}
	parts = append([]string{s}, parts...)
	out := "¥" + strings.Join(parts, ",")
	if neg {
		return "-" + out
	}
	return out
}
