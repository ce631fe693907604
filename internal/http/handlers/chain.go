package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/yungbote/fabricator/internal/domain/fabrication"
	"github.com/yungbote/fabricator/internal/http/response"
	"github.com/yungbote/fabricator/internal/platform/ctxutil"
	"github.com/yungbote/fabricator/internal/services"
)

type ChainHandler struct {
	chains   services.ChainService
	segments services.SegmentService
	now      func() time.Time
}

func NewChainHandler(chains services.ChainService, segments services.SegmentService) *ChainHandler {
	return &ChainHandler{chains: chains, segments: segments, now: time.Now}
}

type segmentStatus struct {
	ID         uuid.UUID          `json:"id"`
	Offset     int64              `json:"offset"`
	State      types.SegmentState `json:"state"`
	Type       types.SegmentType  `json:"type"`
	BeginAt    time.Time          `json:"begin_at"`
	EndAt      *time.Time         `json:"end_at,omitempty"`
	StorageKey string             `json:"storage_key,omitempty"`
}

type chainStatus struct {
	ID       uuid.UUID        `json:"id"`
	Name     string           `json:"name"`
	Type     types.ChainType  `json:"type"`
	State    types.ChainState `json:"state"`
	EmbedKey *string          `json:"embed_key,omitempty"`
	StartAt  time.Time        `json:"start_at"`
	StopAt   *time.Time       `json:"stop_at,omitempty"`

	// AheadSeconds is how far the last planned segment ends past now.
	AheadSeconds float64        `json:"ahead_seconds"`
	Last         *segmentStatus `json:"last_segment,omitempty"`
}

// GET /chains/:id/status
func (h *ChainHandler) Status(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_chain_id", err)
		return
	}
	chain, err := h.chains.Get(c.Request.Context(), id)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	h.respond(c, chain)
}

// GET /embed/:key/status
func (h *ChainHandler) StatusByEmbedKey(c *gin.Context) {
	chain, err := h.chains.GetByEmbedKey(c.Request.Context(), c.Param("key"))
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	h.respond(c, chain)
}

func (h *ChainHandler) respond(c *gin.Context, chain *types.Chain) {
	if td := ctxutil.GetTraceData(c.Request.Context()); td != nil {
		td.ChainID = chain.ID.String()
	}
	last, err := h.segments.GetLast(c.Request.Context(), chain.ID)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	out := chainStatus{
		ID:       chain.ID,
		Name:     chain.Name,
		Type:     chain.Type,
		State:    chain.State,
		EmbedKey: chain.EmbedKey,
		StartAt:  chain.StartAt,
		StopAt:   chain.StopAt,
	}
	if last != nil {
		out.Last = &segmentStatus{
			ID:         last.ID,
			Offset:     last.Offset,
			State:      last.State,
			Type:       last.Type,
			BeginAt:    last.BeginAt,
			EndAt:      last.EndAt,
			StorageKey: last.StorageKey,
		}
		if last.EndAt != nil {
			out.AheadSeconds = last.EndAt.Sub(h.now()).Seconds()
		}
	}
	response.RespondOK(c, out)
}
