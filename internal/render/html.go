package render

import (
	"bytes"
	"html/template"
	"time"

	"github.com/shopspring/decimal"

	"github.com/patchlibrary/feedesk/internal/entity"
)

// HTMLComposer renders a receipt document into a standalone HTML page that
// the PDF renderer feeds to the rasterizer.
type HTMLComposer struct {
	tmpl *template.Template
}

func NewHTMLComposer() *HTMLComposer {
	return &HTMLComposer{tmpl: receiptTemplates}
}

// Compose picks the styled or plain layout per the document settings.
func (h *HTMLComposer) Compose(doc *entity.ReceiptDocument) ([]byte, error) {
	layout := "plain"
	if doc.Settings.StyledLayout {
		layout = "styled"
	}
	var buf bytes.Buffer
	if err := h.tmpl.ExecuteTemplate(&buf, layout, doc); err != nil {
		return nil, newRenderError("compose", err)
	}
	return buf.Bytes(), nil
}

var templateFuncs = template.FuncMap{
	"money": func(d decimal.Decimal) string { return "₹" + d.StringFixed(2) },
	"date":  func(t time.Time) string { return t.Format("02 Jan 2006") },
}

var receiptTemplates = template.Must(
	template.Must(template.New("styled").Funcs(templateFuncs).Parse(styledLayout)).
		New("plain").Funcs(templateFuncs).Parse(plainLayout))

const styledLayout = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
  body { font-family: "Helvetica Neue", Arial, sans-serif; color: #222; margin: 0; }
  .receipt { max-width: 680px; margin: 24px auto; border: 1px solid #ddd; }
  .head { background: {{.Settings.AccentColor}}; color: #fff; padding: 18px 24px; }
  .head h1 { margin: 0; font-size: 22px; letter-spacing: 1px; }
  .head .sub { font-size: 12px; opacity: 0.85; }
  .head img.logo { float: right; height: 48px; }
  .meta { display: flex; justify-content: space-between; padding: 12px 24px;
          border-bottom: 1px solid #eee; font-size: 13px; }
  .meta b { color: {{.Settings.AccentColor}}; }
  table.fields { width: 100%; border-collapse: collapse; font-size: 13px; }
  table.fields td { padding: 8px 24px; border-bottom: 1px solid #f2f2f2; }
  table.fields td.label { width: 38%; color: #666; }
  .amount { padding: 16px 24px; font-size: 18px; font-weight: bold; }
  .words { padding: 0 24px 16px; font-style: italic; font-size: 13px; color: #444; }
  .foot { display: flex; justify-content: space-between; padding: 18px 24px;
          border-top: 1px solid #eee; font-size: 12px; color: #666; }
  img.photo { float: right; height: 96px; margin: 8px 24px; border: 1px solid #ccc; }
</style>
</head>
<body>
<div class="receipt">
  <div class="head">
    {{if .Settings.LogoPath}}<img class="logo" src="{{.Settings.LogoPath}}">{{end}}
    <h1>Patch Library</h1>
    <div class="sub">Fee Receipt</div>
  </div>
  <div class="meta">
    <span>Receipt No: <b>{{.ReceiptNumber}}</b></span>
    <span>Date: {{date .IssuedAt}}</span>
  </div>
  {{if .Settings.IncludePhoto}}{{with .Student.PhotoPath}}<img class="photo" src="{{.}}">{{end}}{{end}}
  <table class="fields">
    <tr><td class="label">Student Name</td><td>{{.Student.Name}}</td></tr>
    <tr><td class="label">Father's Name</td><td>{{.Student.FatherName}}</td></tr>
    <tr><td class="label">Enrollment No</td><td>{{.Student.EnrollmentNo}}</td></tr>
    <tr><td class="label">Seat / Shift</td><td>{{.Student.SeatNumber}} / {{.Student.Shift}}</td></tr>
    <tr><td class="label">Contact</td><td>{{.Student.Contact}}</td></tr>
    <tr><td class="label">Billing Period</td><td>{{.Payment.BillingPeriod}}</td></tr>
    <tr><td class="label">Payment Method</td><td>{{.Payment.Method}}</td></tr>
    {{with .Payment.TxnRef}}<tr><td class="label">Transaction Ref</td><td>{{.}}</td></tr>{{end}}
  </table>
  <div class="amount">Amount Received: {{money .Payment.Amount}}</div>
  <div class="words">{{.AmountInWords}}</div>
  <div class="foot">
    <span>Fees paid till: {{date .Student.FeesPaidTill}}</span>
    <span>Authorised Signatory</span>
  </div>
</div>
</body>
</html>
`

const plainLayout = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
  body { font-family: monospace; font-size: 13px; margin: 32px; }
  hr { border: none; border-top: 1px dashed #999; }
  .row { margin: 4px 0; }
</style>
</head>
<body>
<h2>Patch Library - Fee Receipt</h2>
<div class="row">Receipt No: {{.ReceiptNumber}}</div>
<div class="row">Date: {{date .IssuedAt}}</div>
<hr>
<div class="row">Name: {{.Student.Name}}</div>
<div class="row">Father's Name: {{.Student.FatherName}}</div>
<div class="row">Enrollment: {{.Student.EnrollmentNo}}</div>
<div class="row">Seat/Shift: {{.Student.SeatNumber}} / {{.Student.Shift}}</div>
<div class="row">Billing Period: {{.Payment.BillingPeriod}}</div>
<div class="row">Method: {{.Payment.Method}}</div>
<hr>
<div class="row">Amount: {{money .Payment.Amount}}</div>
<div class="row">In words: {{.AmountInWords}}</div>
<div class="row">Fees paid till: {{date .Student.FeesPaidTill}}</div>
</body>
</html>
`
