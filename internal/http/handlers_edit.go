package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"expenses/internal/core"
	"expenses/internal/log"
	"expenses/internal/query"
	"expenses/internal/tagedit"
	"expenses/internal/txnclient"

	"github.com/google/uuid"
)

const (
	maxSubmitBody = 1 << 20
	submitTimeout = 30 * time.Second
	// resultsID is the element that reloads the table after a tag edit.
	resultsID = "results"
)

type (
	txnRow struct {
		ID          string
		Date        string
		Description string
		Amount      string
		Debit       bool
		Source      string
		Tags        []string
	}

	resultsView struct {
		Query     string
		ReloadURL string
		Rows      []txnRow
		// Full is set when the page limit was reached.
		Full bool
		Err  string
	}

	filterView struct {
		FromDate    string
		ToDate      string
		Description query.TextFilter
		Source      query.TextFilter
		Tags        query.TextFilter
		TextOps     []core.MatchOp
		TagOps      []core.MatchOp
	}

	editPage struct {
		Title   string
		Nav     string
		Filters filterView
		Results resultsView
	}

	similarPage struct {
		Title    string
		Nav      string
		EditURL  string
		Selected []txnRow
		Similar  []txnRow
		Err      string
	}

	dialogView struct {
		Session string
		IDs     []string
		Op      core.TagEditOp
		Ops     []core.TagEditOp
		Tags    string
		Result  tagedit.Result
		Busy    bool
		Done    bool
		Failed  bool
	}
)

func newTxnRows(txns []core.Transaction) []txnRow {
	rows := make([]txnRow, 0, len(txns))
	for _, t := range txns {
		amount, debit := displayAmount(t.Amount)
		rows = append(rows, txnRow{
			ID:          t.ID,
			Date:        t.Date.String(),
			Description: t.Description,
			Amount:      amount,
			Debit:       debit,
			Source:      t.Source,
			Tags:        t.Tags,
		})
	}
	return rows
}

func newFilterView(f query.Filters) filterView {
	withDefault := func(tf query.TextFilter) query.TextFilter {
		if tf.Op == "" {
			tf.Op = core.OpAll
		}
		return tf
	}
	return filterView{
		FromDate:    isoDate(f.FromDate),
		ToDate:      isoDate(f.ToDate),
		Description: withDefault(f.Description),
		Source:      withDefault(f.Source),
		Tags:        withDefault(f.Tags),
		TextOps:     query.TextOps,
		TagOps:      query.TagOps,
	}
}

func newDialogView(session string, ids []string, op core.TagEditOp, tags string, res tagedit.Result) dialogView {
	if op == "" {
		op = core.TagAdd
	}
	return dialogView{
		Session: session,
		IDs:     ids,
		Op:      op,
		Ops:     []core.TagEditOp{core.TagAdd, core.TagRemove, core.TagClear},
		Tags:    tags,
		Result:  res,
		Busy:    res.State == tagedit.Submitting,
		Done:    res.State == tagedit.Success,
		Failed:  res.State == tagedit.Failed,
	}
}

// search loads one page of results. Backend failures are shown in the
// table instead of failing the page.
func (s *Server) search(ctx context.Context, f query.Filters) resultsView {
	view := resultsView{Query: query.Encode(f)}
	view.ReloadURL = "/edit/results"
	if view.Query != "" {
		view.ReloadURL += "?" + view.Query
	}
	page, err := s.backend.FetchTransactions(ctx, f, s.cfg.PageLimit)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to fetch transactions",
			log.FieldQuery, view.Query,
			log.FieldError, err.Error())
		view.Err = err.Error()
		return view
	}
	view.Rows = newTxnRows(page.Txns)
	view.Full = len(page.Txns) >= s.cfg.PageLimit
	return view
}

func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	f := filtersFromRequest(r)
	s.render(w, r, "edit.html", editPage{
		Title:   "Edit",
		Nav:     "edit",
		Filters: newFilterView(f),
		Results: s.search(r.Context(), f),
	})
}

// handleResults renders the results table alone. The canonical query is
// pushed to the browser history unless the table is only reloading.
func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	f := filtersFromRequest(r)
	html, err := s.fragment("results", s.search(r.Context(), f))
	if err != nil {
		s.slog.LogError(r.Context(), "Template render failed", err, log.OpRender, nil)
		InternalServerError("Failed to render results").Write(w)
		return
	}
	resp := NewHTMXResponse().BodyHTML(html)
	if r.Header.Get("HX-Trigger") != resultsID {
		resp.PushURL(editURL(f))
	}
	resp.Write(w)
}

func (s *Server) handleSimilar(w http.ResponseWriter, r *http.Request) {
	f := filtersFromRequest(r)
	if len(f.IDs) == 0 {
		BadRequestError("Select at least one transaction").Write(w)
		return
	}
	page := similarPage{Title: "Similar", Nav: "edit", EditURL: editURL(query.Filters{IDs: f.IDs})}
	sim, err := s.backend.FetchSimilar(r.Context(), f, s.cfg.PageLimit)
	if err != nil {
		s.logger.WarnContext(r.Context(), "Failed to fetch similar transactions", log.FieldError, err.Error())
		page.Err = err.Error()
	} else {
		page.Selected = newTxnRows(sim.Selected)
		page.Similar = newTxnRows(sim.Similar)
	}
	s.render(w, r, "similar.html", page)
}

// handleDialog opens a tag edit dialog for the checked transactions.
func (s *Server) handleDialog(w http.ResponseWriter, r *http.Request) {
	ids := selectedIDs(r.URL.Query())
	if len(ids) == 0 {
		BadRequestError("Select at least one transaction").Write(w)
		return
	}
	s.render(w, r, "dialog", newDialogView(uuid.NewString(), ids, core.TagAdd, "", tagedit.Result{State: tagedit.Idle}))
}

// handleDialogSubmit runs the dialog's Submitter. A session allows one
// request at a time; a finished session can be submitted again.
func (s *Server) handleDialogSubmit(w http.ResponseWriter, r *http.Request) {
	form, err := parseDialogForm(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	ctx := r.Context()
	if err := form.Edit.Validate(); err != nil {
		res := tagedit.Result{State: tagedit.Failed, Details: "invalid request: \n" + err.Error()}
		s.writeDialog(w, r, form, res, http.StatusUnprocessableEntity)
		return
	}

	sub := s.sessions.GetOrCreate(form.Session, func() *tagedit.Submitter {
		return tagedit.NewSubmitter(s.backend)
	})
	sub.Reset()

	// The edit completes even if the browser goes away.
	submitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), submitTimeout)
	defer cancel()
	res, err := sub.Submit(submitCtx, form.Edit.IDs, form.Edit.Op, form.Edit.Tags)
	if errors.Is(err, tagedit.ErrInFlight) {
		ConflictError("A tag edit is already being submitted").
			TriggerErrorNotification("Please wait for the current edit to finish").
			Write(w)
		return
	}

	status := http.StatusOK
	if res.State == tagedit.Success {
		s.slog.LogTagEdit(ctx, string(form.Edit.Op), len(form.Edit.IDs), form.Edit.Tags)
	} else {
		s.logger.WarnContext(ctx, "Tag edit failed",
			log.FieldSession, form.Session,
			log.FieldError, res.Details)
		status = http.StatusUnprocessableEntity
	}
	s.writeDialog(w, r, form, res, status)
}

func (s *Server) writeDialog(w http.ResponseWriter, r *http.Request, form dialogForm, res tagedit.Result, status int) {
	view := newDialogView(form.Session, form.Edit.IDs, form.Edit.Op, form.RawTags, res)
	html, err := s.fragment("dialog", view)
	if err != nil {
		s.slog.LogError(r.Context(), "Template render failed", err, log.OpRender, nil)
		InternalServerError("Failed to render dialog").Write(w)
		return
	}
	resp := NewHTMXResponse().Status(status).BodyHTML(html)
	switch res.State {
	case tagedit.Success:
		resp.TriggerTagsUpdated(form.Edit.Op, len(form.Edit.IDs)).
			TriggerSuccessNotification(fmt.Sprintf("Updated %d transactions", len(form.Edit.IDs)))
	case tagedit.Failed:
		resp.TriggerErrorNotification("Tag edit failed")
	}
	resp.Write(w)
}

// handleSubmit forwards a JSON tag edit to the backend and answers with
// {"details": ...} and the backend status.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxSubmitBody))
	if err != nil {
		writeDetails(w, http.StatusBadRequest, "Request body was not valid JSON: "+err.Error())
		return
	}
	edit, err := decodeTagEdit(body)
	if err != nil {
		writeDetails(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	if err := s.backend.PatchTags(ctx, edit); err != nil {
		status, details := submitFailure(err)
		s.slog.LogError(ctx, "Tag edit proxy failed", err, log.OpTag, nil)
		writeDetails(w, status, details)
		return
	}
	s.slog.LogTagEdit(ctx, string(edit.Op), len(edit.IDs), edit.Tags)
	writeDetails(w, http.StatusOK, "OK")
}

func submitFailure(err error) (int, string) {
	var fe *txnclient.FetchError
	if errors.As(err, &fe) {
		switch fe.Kind {
		case txnclient.KindStatus:
			return fe.Status, "error updating tags on backend: " + fe.Details
		case txnclient.KindTransport:
			return http.StatusInternalServerError, fmt.Sprintf("error forwarding request to update tags to backend: %v", fe.Err)
		}
	}
	return http.StatusInternalServerError, err.Error()
}

func writeDetails(w http.ResponseWriter, status int, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(struct {
		Details string `json:"details"`
	}{details})
}
