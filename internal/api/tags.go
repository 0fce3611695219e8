package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"expenses/internal/amqp"
	"expenses/internal/core"
	"expenses/internal/log"
)

// Publisher announces applied tag edits.
type Publisher interface {
	PublishTagsChanged(ctx context.Context, msg *amqp.TagsChangedMessage) error
}

// TagStore is the tag mutation side of the store.
type TagStore interface {
	AddTags(ctx context.Context, ids []int64, tags []string) error
	RemoveTags(ctx context.Context, ids []int64, tags []string) error
	ClearTags(ctx context.Context, ids []int64) error
}

// TagService applies batch tag edits and publishes a TagsChanged event
// for each one. A nil publisher disables events.
type TagService struct {
	store     TagStore
	publisher Publisher
	logger    *log.StructuredLogger
}

func NewTagService(store TagStore, publisher Publisher, logger *log.Logger) *TagService {
	if logger == nil {
		logger = log.Default()
	}
	return &TagService{
		store:     store,
		publisher: publisher,
		logger:    log.NewStructuredLogger(logger.WithComponent(log.ComponentAPI)),
	}
}

// Apply runs one edit. Publish failures are logged and do not fail the
// edit, which is already committed.
func (s *TagService) Apply(ctx context.Context, ids []int64, op core.TagEditOp, tags []string) error {
	var err error
	switch op {
	case core.TagAdd:
		err = s.store.AddTags(ctx, ids, tags)
	case core.TagRemove:
		err = s.store.RemoveTags(ctx, ids, tags)
	case core.TagClear:
		err = s.store.ClearTags(ctx, ids)
	default:
		return fmt.Errorf("%w %q", core.ErrInvalidTagEditOp, op)
	}
	if err != nil {
		return err
	}
	s.logger.LogTagEdit(ctx, string(op), len(ids), tags)

	if s.publisher == nil {
		return nil
	}
	strIDs := make([]string, len(ids))
	for i, id := range ids {
		strIDs[i] = strconv.FormatInt(id, 10)
	}
	msg := amqp.NewTagsChangedMessage(core.TagEdit{IDs: strIDs, Op: op, Tags: tags})
	if err := s.publisher.PublishTagsChanged(ctx, msg); err != nil {
		s.logger.LogError(ctx, "Failed to publish tags changed event", err, log.OpPublish,
			log.NewFields().WithErrorType(log.ErrorTypeNetwork))
	}
	return nil
}

type patchTagsReq struct {
	IDs  []string `json:"ids"`
	Tags []string `json:"tags"`
	Op   string   `json:"op"`
}

func (s *Server) patchTags(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		respondError(w, http.StatusBadRequest, "error reading request body: %v", err)
		return
	}
	var req patchTagsReq
	if err := json.Unmarshal(body, &req); err != nil {
		respondError(w, http.StatusBadRequest, "error parsing body as a JSON tag edit: %v", err)
		return
	}
	ids, err := parseIDs(req.IDs)
	if err != nil {
		respondError(w, http.StatusBadRequest, "error validating ids in request: %v", err)
		return
	}
	op := core.TagEditOp(req.Op)
	switch {
	case req.Op == "":
		respondError(w, http.StatusBadRequest, "request body missing field 'op'")
		return
	case !op.Valid():
		respondError(w, http.StatusBadRequest, "unknown op %q, supported ops are add|remove|clear", req.Op)
		return
	case op == core.TagClear && len(req.Tags) != 0:
		respondError(w, http.StatusBadRequest, "field 'tags' can't be specified when 'op' is clear")
		return
	case op != core.TagClear && len(req.Tags) == 0:
		respondError(w, http.StatusBadRequest, "request body missing field 'tags'")
		return
	}
	tags := core.NormalizeTags(req.Tags)
	if err := core.ValidateTags(tags); err != nil {
		respondError(w, http.StatusBadRequest, "error validating tags in request: %v", err)
		return
	}

	if err := s.tags.Apply(r.Context(), ids, op, tags); err != nil {
		s.fail(w, r, fmt.Sprintf("error applying %s", op), err)
		return
	}
	respondJSON(w, http.StatusOK, detailsBody{Details: "OK"})
}
