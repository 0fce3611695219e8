package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"expenses/internal/core"
	"expenses/internal/log"
	"expenses/internal/overview"
	"expenses/internal/storage"
)

type txnsResp struct {
	Txns   []core.Transaction `json:"txns"`
	NextID string             `json:"nextId"`
}

type similarResp struct {
	Selected []core.Transaction `json:"selected_txns"`
	Similar  []core.Transaction `json:"similar_txns"`
}

type postTxnResp struct {
	ID int64 `json:"id"`
}

type yearlyResp struct {
	Expenses []overview.YearTag `json:"expenses"`
}

// postTxnReq keeps every field a string so each one gets its own error.
type postTxnReq struct {
	ID          string   `json:"id"`
	Date        string   `json:"date"`
	Description string   `json:"description"`
	Amount      string   `json:"amount"`
	Source      string   `json:"source"`
	Tags        []string `json:"tags"`
}

func toWire(txns []storage.Txn) []core.Transaction {
	out := make([]core.Transaction, 0, len(txns))
	for _, t := range txns {
		out = append(out, t.Transaction())
	}
	return out
}

// nextID is one past the largest id, "0" for an empty page.
func nextID(txns []storage.Txn) string {
	var next int64
	for _, t := range txns {
		next = max(next, t.ID+1)
	}
	return strconv.FormatInt(next, 10)
}

func (s *Server) getTxns(w http.ResponseWriter, r *http.Request) {
	q, err := txnQueryFromParams(r.URL.Query())
	if err != nil {
		respondError(w, http.StatusBadRequest, "error validating request parameters: %v", err)
		return
	}
	txns, err := s.store.QueryTxns(r.Context(), q)
	if err != nil {
		s.fail(w, r, "error fetching transactions", err)
		return
	}
	respondJSON(w, http.StatusOK, txnsResp{Txns: toWire(txns), NextID: nextID(txns)})
}

func (s *Server) postTxn(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		respondError(w, http.StatusBadRequest, "error reading request body: %v", err)
		return
	}
	var req postTxnReq
	if err := json.Unmarshal(body, &req); err != nil {
		respondError(w, http.StatusBadRequest, "error parsing body as a JSON transaction: %v", err)
		return
	}
	if req.ID != "" {
		respondError(w, http.StatusBadRequest, "ID can't be specified when creating a new transaction, got ID %q, want blank", req.ID)
		return
	}
	txn, err := validatePost(req)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid transaction: %v", err)
		return
	}

	id, err := s.store.CreateTxn(r.Context(), txn)
	if err != nil {
		s.fail(w, r, "error creating txn", err)
		return
	}
	s.logger.InfoContext(r.Context(), "Transaction created",
		log.FieldTxnID, id,
		log.FieldSource, txn.Source,
		log.FieldOperation, log.OpCreate)
	respondJSON(w, http.StatusOK, postTxnResp{ID: id})
}

func validatePost(req postTxnReq) (storage.Txn, error) {
	date, err := core.ParseDate(req.Date)
	if err != nil {
		return storage.Txn{}, err
	}
	if err := core.ValidateDescription(req.Description); err != nil {
		return storage.Txn{}, err
	}
	if err := core.ValidateSource(req.Source); err != nil {
		return storage.Txn{}, err
	}
	cents, err := core.ParseAmount(req.Amount)
	if err != nil {
		return storage.Txn{}, err
	}
	tags := core.NormalizeTags(req.Tags)
	if err := core.ValidateTags(tags); err != nil {
		return storage.Txn{}, err
	}
	return storage.Txn{
		Date:        date,
		Description: strings.TrimSpace(req.Description),
		AmountCents: cents,
		Source:      strings.TrimSpace(req.Source),
		Tags:        tags,
	}, nil
}

func (s *Server) getSimilar(w http.ResponseWriter, r *http.Request) {
	v := r.URL.Query()
	raw := strings.TrimSpace(v.Get("ids"))
	if raw == "" {
		respondError(w, http.StatusBadRequest, "url parameter 'ids' was missing or empty")
		return
	}
	ids, err := parseIDs(strings.Fields(raw))
	if err != nil {
		respondError(w, http.StatusBadRequest, "error parsing field ids: %v", err)
		return
	}
	// ids select the reference rows; the other filters scope the candidates.
	v.Del("ids")
	q, err := txnQueryFromParams(v)
	if err != nil {
		respondError(w, http.StatusBadRequest, "error validating request parameters: %v", err)
		return
	}
	res, err := s.store.QuerySimilar(r.Context(), ids, q)
	if err != nil {
		s.fail(w, r, "error finding similar txns", err)
		return
	}
	respondJSON(w, http.StatusOK, similarResp{Selected: toWire(res.Selected), Similar: toWire(res.Similar)})
}

func (s *Server) getOverview(w http.ResponseWriter, r *http.Request) {
	rows, err := s.store.Overview(r.Context())
	if err != nil {
		s.fail(w, r, "error fetching overview", err)
		return
	}
	respondJSON(w, http.StatusOK, rows)
}

func (s *Server) getYearly(w http.ResponseWriter, r *http.Request) {
	v := r.URL.Query()
	from, err := parseYear(v, "fromYear")
	if err != nil {
		respondError(w, http.StatusBadRequest, "error validating request parameters: %v", err)
		return
	}
	to, err := parseYear(v, "toYear")
	if err != nil {
		respondError(w, http.StatusBadRequest, "error validating request parameters: %v", err)
		return
	}
	if from > 0 && to > 0 && from > to {
		respondError(w, http.StatusBadRequest, "fromYear %d is after toYear %d", from, to)
		return
	}
	rows, err := s.store.ExpensesByYearTag(r.Context(), from, to)
	if err != nil {
		s.fail(w, r, "error fetching yearly expenses", err)
		return
	}
	respondJSON(w, http.StatusOK, yearlyResp{Expenses: rows})
}

// fail maps store errors: input problems are 400, the rest 500.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	if isInputError(err) {
		respondError(w, http.StatusBadRequest, "%s: %v", msg, err)
		return
	}
	log.NewStructuredLogger(s.logger).LogError(r.Context(), msg, err, log.OpRead,
		log.NewFields().WithErrorType(log.ErrorTypeDatabase))
	respondError(w, http.StatusInternalServerError, "%s: %v", msg, err)
}

var inputErrors = []error{
	core.ErrInvalidDate, core.ErrInvalidAmount, core.ErrEmptyDescription, core.ErrEmptySource,
	core.ErrInvalidTag, core.ErrTooManyTags, core.ErrInvalidMatchOp, core.ErrInvalidTagEditOp,
	core.ErrInvalidID, core.ErrTooManyIDs, core.ErrDescriptionTooLong, core.ErrSourceTooLong,
}

func isInputError(err error) bool {
	for _, target := range inputErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
