package report

import (
	"bytes"
	"context"
	"html/template"
	"os"
	"strconv"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"patient-portal/internal/model"
)

var resultTemplate = template.Must(template.New("result").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<style>
@page { size: A4; margin: 20px; }
body { font-family: Arial, Helvetica, sans-serif; font-size: 12px; margin: 0; padding: 0; }
table { border-collapse: collapse; width: 100%; }
td { padding: 6px; border-bottom: 1px solid #ddd; }
img { max-width: 100%; margin-top: 16px; }
</style>
</head>
<body>
<h1>Ultrasound Result #{{.ID}}</h1>
<table>
<tr><td>Patient</td><td>{{.PatientName}}</td></tr>
<tr><td>Email</td><td>{{.PatientEmail}}</td></tr>
<tr><td>Doctor</td><td>Dr. {{.DoctorName}}</td></tr>
<tr><td>Date</td><td>{{.Date}}</td></tr>
<tr><td>Diagnosis</td><td>{{if .Diagnosis}}{{.Diagnosis}}{{else}}Pending{{end}}</td></tr>
<tr><td>Confidence</td><td>{{if .Percentage}}{{.Percentage}}{{else}}-{{end}}</td></tr>
<tr><td>Status</td><td>{{.Status}}</td></tr>
</table>
{{if .UltrasoundImage}}<img src="{{.UltrasoundImage}}" alt="Ultrasound image">{{end}}
</body>
</html>`))

type resultView struct {
	*model.ResultDetails
	Date string
}

// HTML renders the printable page for a result.
func HTML(details *model.ResultDetails) ([]byte, error) {
	view := resultView{ResultDetails: details, Date: "-"}
	if !details.CreatedAt.IsZero() {
		view.Date = details.CreatedAt.Format("02-Jan-2006")
	}

	var buf bytes.Buffer
	if err := resultTemplate.Execute(&buf, view); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeTemp stores the page in a uniquely named file so concurrent prints of
// the same result never share one.
func writeTemp(id int64, html []byte) (string, error) {
	f, err := os.CreateTemp("", "result_"+strconv.FormatInt(id, 10)+"_*.html")
	if err != nil {
		return "", err
	}
	if _, err := f.Write(html); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

type Renderer interface {
	PDF(ctx context.Context, details *model.ResultDetails) ([]byte, error)
}

// ChromeRenderer prints reports with a headless Chrome instance.
type ChromeRenderer struct {
	Timeout time.Duration
}

func (r ChromeRenderer) PDF(ctx context.Context, details *model.ResultDetails) ([]byte, error) {
	html, err := HTML(details)
	if err != nil {
		return nil, err
	}

	tmpHTML, err := writeTemp(details.ID, html)
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmpHTML)

	timeout := r.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	ctx, cancelTimeout := context.WithTimeout(ctx, timeout)
	defer cancelTimeout()

	chromeCtx, cancel := chromedp.NewContext(ctx)
	defer cancel()

	var pdfBuf []byte
	err = chromedp.Run(chromeCtx,
		chromedp.Navigate("file://"+tmpHTML),
		chromedp.WaitReady("body"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			pdfBuf, _, err = page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(8.27).
				WithPaperHeight(11.7).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, err
	}

	return pdfBuf, nil
}
