package http

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"dh-form/domain"
	"dh-form/i18n"
	"dh-form/report"
	"dh-form/service"
)

//go:embed templates/index.html
var templatesFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templatesFS, "templates/index.html"))

// fieldLabels are the on-screen prefixes of each field; the row index is
// appended (A0, α0, D0, θ0).
var fieldLabels = map[domain.Field]string{
	domain.FieldA:     "A",
	domain.FieldAlpha: "α",
	domain.FieldD:     "D",
	domain.FieldTheta: "θ",
}

type FormHandler struct {
	service *service.FormService
	bundle  *i18n.Bundle
	logger  *slog.Logger
	now     func() time.Time
}

func NewFormHandler(service *service.FormService, bundle *i18n.Bundle, logger *slog.Logger) *FormHandler {
	return &FormHandler{
		service: service,
		bundle:  bundle,
		logger:  logger,
		now:     time.Now,
	}
}

type pageLabels struct {
	Title         string
	ResultHeading string
	Calculate     string
	Clear         string
}

type fieldView struct {
	Name        string
	Label       string
	Placeholder string
	Value       string
	Missing     bool
}

type rowView struct {
	ID        string
	RemoveURL string
	Fields    []fieldView
}

type noticeView struct {
	Kind       string
	Title      string
	Message    string
	DurationMs int64
}

type pageData struct {
	Lang   string
	Labels pageLabels
	Rows   []rowView
	Result service.ResultView
	Notice *noticeView
}

func (h *FormHandler) translator(r *http.Request) *i18n.Translator {
	return h.bundle.Translator(h.bundle.Match(r.Header.Get("Accept-Language")))
}

// Index renders the form for the caller's session.
func (h *FormHandler) Index(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	state, notice, err := h.service.View(r.Context(), SessionID(r))
	if err != nil {
		h.logger.Error("failed to load form", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	tr := h.translator(r)
	data := buildPage(state, notice, tr)

	// Render into a buffer so a template error does not leave a half page.
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		h.logger.Error("failed to render form", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.Warn("failed to write response", "error", err)
	}
}

func buildPage(state domain.FormState, notice *domain.Notice, tr *i18n.Translator) pageData {
	missing := map[string]bool{}
	if notice != nil {
		for _, name := range notice.Fields {
			missing[name] = true
		}
	}

	rows := make([]rowView, len(state.Rows))
	for i, row := range state.Rows {
		fields := make([]fieldView, len(domain.Fields))
		for j, f := range domain.Fields {
			name := service.FieldName(f, row.ID)
			label := fmt.Sprintf("%s%d", fieldLabels[f], i)
			fields[j] = fieldView{
				Name:        name,
				Label:       label,
				Placeholder: tr.T(i18n.KeyPlaceholder, label),
				Value:       row.Value(f),
				Missing:     missing[name],
			}
		}
		rows[i] = rowView{
			ID:        string(row.ID),
			RemoveURL: "/rows/remove?id=" + url.QueryEscape(string(row.ID)),
			Fields:    fields,
		}
	}

	data := pageData{
		Lang: tr.Lang(),
		Labels: pageLabels{
			Title:         tr.T(i18n.KeyPageTitle),
			ResultHeading: tr.T(i18n.KeyResultHeading),
			Calculate:     tr.T(i18n.KeyCalculate),
			Clear:         tr.T(i18n.KeyClear),
		},
		Rows:   rows,
		Result: service.ViewOf(state),
	}
	if notice != nil {
		data.Notice = &noticeView{
			Kind:       string(notice.Kind),
			Title:      tr.T(notice.Title),
			Message:    tr.T(notice.Message),
			DurationMs: notice.Duration.Milliseconds(),
		}
	}
	return data
}

func (h *FormHandler) postForm(w http.ResponseWriter, r *http.Request) (url.Values, bool) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return nil, false
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return nil, false
	}
	return r.PostForm, true
}

func (h *FormHandler) backToForm(w http.ResponseWriter, r *http.Request, op string, err error) {
	if err != nil {
		h.logger.Error("form operation failed", "op", op, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *FormHandler) AddRow(w http.ResponseWriter, r *http.Request) {
	values, ok := h.postForm(w, r)
	if !ok {
		return
	}
	_, err := h.service.AddRow(r.Context(), SessionID(r), values)
	h.backToForm(w, r, "add_row", err)
}

func (h *FormHandler) RemoveRow(w http.ResponseWriter, r *http.Request) {
	values, ok := h.postForm(w, r)
	if !ok {
		return
	}
	id := domain.RowID(r.URL.Query().Get("id"))
	_, err := h.service.RemoveRow(r.Context(), SessionID(r), id, values)
	h.backToForm(w, r, "remove_row", err)
}

func (h *FormHandler) Reset(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.postForm(w, r); !ok {
		return
	}
	_, err := h.service.Reset(r.Context(), SessionID(r))
	h.backToForm(w, r, "reset", err)
}

// Calculate submits the form. Validation and calculation failures end up
// as a notice on the form, so both redirect like a success.
func (h *FormHandler) Calculate(w http.ResponseWriter, r *http.Request) {
	values, ok := h.postForm(w, r)
	if !ok {
		return
	}
	_, err := h.service.Submit(r.Context(), SessionID(r), values)

	var verr *service.ValidationError
	if errors.As(err, &verr) || errors.Is(err, service.ErrComputeFailed) {
		err = nil
	}
	h.backToForm(w, r, "calculate", err)
}

// RateLimited answers a refused submit: back to the form, with a notice
// and the typed values kept.
func (h *FormHandler) RateLimited(w http.ResponseWriter, r *http.Request) {
	values, ok := h.postForm(w, r)
	if !ok {
		return
	}
	_, err := h.service.Throttled(r.Context(), SessionID(r), values)
	h.backToForm(w, r, "rate_limited", err)
}

// ResultPDF downloads the session's current result.
func (h *FormHandler) ResultPDF(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	state, err := h.service.Current(r.Context(), SessionID(r))
	if err != nil {
		h.logger.Error("failed to load form", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if !state.HasResult() {
		http.Error(w, "no result", http.StatusNotFound)
		return
	}

	tr := h.translator(r)
	now := h.now()
	var buf bytes.Buffer
	err = report.WritePDF(&buf, report.Input{
		Rows:        state.Inputs(),
		Result:      state.Result,
		Coord:       state.Coord,
		GeneratedAt: now,
		Labels: report.Labels{
			Title:      tr.T(i18n.KeyReportTitle),
			Result:     tr.T(i18n.KeyResultHeading),
			Parameters: tr.T(i18n.KeyReportParameters),
			Generated:  tr.T(i18n.KeyReportGenerated, now.Format("2006-01-02 15:04")),
		},
	})
	if err != nil {
		h.logger.Error("failed to build pdf", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="denavit-hartenberg.pdf"`)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.Warn("failed to write response", "error", err)
	}
}
