package controller

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"bidding/internal/models"
	"bidding/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type Controller struct {
	service  *service.Service
	validate *validator.Validate
	log      *slog.Logger
}

func NewController(s *service.Service, log *slog.Logger) *Controller {
	if log == nil {
		log = slog.Default()
	}
	return &Controller{
		service:  s,
		validate: validator.New(),
		log:      log,
	}
}

func (c *Controller) Ping(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

//// Bids

func (c *Controller) CreateBid(w http.ResponseWriter, r *http.Request) {
	var req createBidRequest
	if !c.decode(w, r, &req) {
		return
	}

	bid, err := c.service.CreateBid(r.Context(), service.CreateBidRequest{
		TenderId:   req.TenderId,
		TendererId: req.TendererId,
		Items:      req.Items,
	})
	if err != nil {
		c.renderErr(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, bid)
}

func (c *Controller) GetBid(w http.ResponseWriter, r *http.Request) {
	bid, err := c.service.GetBid(r.Context(), chi.URLParam(r, "bidId"))
	if err != nil {
		c.renderErr(w, r, err)
		return
	}
	render.JSON(w, r, bid)
}

func (c *Controller) ListBids(w http.ResponseWriter, r *http.Request) {
	limit, offset, ok := c.pagination(w, r)
	if !ok {
		return
	}

	filter := models.BidFilter{
		TenderId:   r.URL.Query().Get("tenderId"),
		TendererId: r.URL.Query().Get("tendererId"),
	}
	if status := r.URL.Query().Get("status"); status != "" {
		if !models.ValidBidStatus(models.BidStatus(status)) {
			c.badRequest(w, r, "invalid bid status")
			return
		}
		filter.Statuses = []models.BidStatus{models.BidStatus(status)}
	}

	bids, err := c.service.ListBids(r.Context(), filter, limit, offset)
	if err != nil {
		c.renderErr(w, r, err)
		return
	}
	if bids == nil {
		bids = []models.Bid{}
	}
	render.JSON(w, r, bids)
}

func (c *Controller) EditBid(w http.ResponseWriter, r *http.Request) {
	var req editBidRequest
	if !c.decode(w, r, &req) {
		return
	}

	bid, err := c.service.EditBid(r.Context(), chi.URLParam(r, "bidId"), req.Items)
	if err != nil {
		c.renderErr(w, r, err)
		return
	}
	render.JSON(w, r, bid)
}

func (c *Controller) DeleteBid(w http.ResponseWriter, r *http.Request) {
	err := c.service.DeleteBid(r.Context(), chi.URLParam(r, "bidId"))
	if err != nil {
		c.renderErr(w, r, err)
		return
	}
	render.NoContent(w, r)
}

func (c *Controller) SubmitBid(w http.ResponseWriter, r *http.Request) {
	var req submitBidRequest
	if r.ContentLength > 0 && !c.decode(w, r, &req) {
		return
	}

	var bid models.Bid
	var err error
	if req.SecurityRef != "" {
		bid, err = c.service.SubmitBidWithSecurity(r.Context(), chi.URLParam(r, "bidId"), req.SecurityRef)
	} else {
		bid, err = c.service.SubmitBid(r.Context(), chi.URLParam(r, "bidId"))
	}
	if err != nil {
		c.renderErr(w, r, err)
		return
	}
	render.JSON(w, r, bid)
}

func (c *Controller) UpdateBidStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if !c.decode(w, r, &req) {
		return
	}
	if !models.ValidBidStatus(req.Status) {
		c.badRequest(w, r, "invalid bid status")
		return
	}

	bid, err := c.service.UpdateBidStatus(r.Context(), chi.URLParam(r, "bidId"), req.Status)
	if err != nil {
		c.renderErr(w, r, err)
		return
	}
	render.JSON(w, r, bid)
}

func (c *Controller) BidVersions(w http.ResponseWriter, r *http.Request) {
	versions, err := c.service.GetBidVersions(r.Context(), chi.URLParam(r, "bidId"))
	if err != nil {
		c.renderErr(w, r, err)
		return
	}
	render.JSON(w, r, versions)
}

func (c *Controller) BidVersion(w http.ResponseWriter, r *http.Request) {
	version, err := strconv.Atoi(chi.URLParam(r, "version"))
	if err != nil {
		c.badRequest(w, r, "invalid version number")
		return
	}

	v, err := c.service.GetBidVersion(r.Context(), chi.URLParam(r, "bidId"), version)
	if err != nil {
		c.renderErr(w, r, err)
		return
	}
	render.JSON(w, r, v)
}

//// Documents

func (c *Controller) AddDocument(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		c.badRequest(w, r, "missing file upload")
		return
	}
	defer file.Close()

	kind := r.FormValue("kind")
	bid, err := c.service.AddDocument(r.Context(), chi.URLParam(r, "bidId"), header.Filename, kind, file)
	if err != nil {
		c.renderErr(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, bid)
}

func (c *Controller) RemoveDocument(w http.ResponseWriter, r *http.Request) {
	bid, err := c.service.RemoveDocument(r.Context(), chi.URLParam(r, "bidId"), chi.URLParam(r, "documentId"))
	if err != nil {
		c.renderErr(w, r, err)
		return
	}
	render.JSON(w, r, bid)
}

//// Clarifications

func (c *Controller) ListClarifications(w http.ResponseWriter, r *http.Request) {
	clarifications, err := c.service.ListClarifications(r.Context(), chi.URLParam(r, "bidId"))
	if err != nil {
		c.renderErr(w, r, err)
		return
	}
	if clarifications == nil {
		clarifications = []models.Clarification{}
	}
	render.JSON(w, r, clarifications)
}

func (c *Controller) RequestClarification(w http.ResponseWriter, r *http.Request) {
	var req clarificationRequest
	if !c.decode(w, r, &req) {
		return
	}

	clarification, err := c.service.RequestClarification(r.Context(),
		chi.URLParam(r, "bidId"), req.Question, req.EvaluatorId, req.DaysToRespond)
	if err != nil {
		c.renderErr(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, clarification)
}

func (c *Controller) RespondToClarification(w http.ResponseWriter, r *http.Request) {
	var req clarificationResponse
	if !c.decode(w, r, &req) {
		return
	}

	clarification, err := c.service.RespondToClarification(r.Context(),
		chi.URLParam(r, "clarificationId"), req.Response, req.TendererId)
	if err != nil {
		c.renderErr(w, r, err)
		return
	}
	render.JSON(w, r, clarification)
}

func (c *Controller) ExpireClarifications(w http.ResponseWriter, r *http.Request) {
	expired, err := c.service.ExpireClarifications(r.Context(), chi.URLParam(r, "bidId"))
	if err != nil {
		c.renderErr(w, r, err)
		return
	}
	render.JSON(w, r, expireResponse{Expired: expired})
}

//// Compliance

func (c *Controller) ComplianceRequirements(w http.ResponseWriter, r *http.Request) {
	requirements, err := c.service.GetComplianceRequirements(r.Context(), chi.URLParam(r, "tenderId"))
	if err != nil {
		c.renderErr(w, r, err)
		return
	}
	if requirements == nil {
		requirements = []models.ComplianceRequirement{}
	}
	render.JSON(w, r, requirements)
}

func (c *Controller) CheckCompliance(w http.ResponseWriter, r *http.Request) {
	result, err := c.service.CheckBidCompliance(r.Context(), chi.URLParam(r, "bidId"))
	if err != nil {
		c.renderErr(w, r, err)
		return
	}
	render.JSON(w, r, result)
}

func (c *Controller) VerifyComplianceItem(w http.ResponseWriter, r *http.Request) {
	var req complianceVerification
	if !c.decode(w, r, &req) {
		return
	}

	result, err := c.service.VerifyComplianceItem(r.Context(),
		chi.URLParam(r, "itemId"), *req.Compliant, req.Comment, req.EvaluatorId)
	if err != nil {
		c.renderErr(w, r, err)
		return
	}
	render.JSON(w, r, result)
}

//// Service

func (c *Controller) decode(w http.ResponseWriter, r *http.Request, req interface{}) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(req); err != nil {
		c.badRequest(w, r, "error decoding request body")
		return false
	}
	if err := c.validate.Struct(req); err != nil {
		c.badRequest(w, r, err.Error())
		return false
	}
	return true
}

func (c *Controller) pagination(w http.ResponseWriter, r *http.Request) (limit, offset int, ok bool) {
	limit, offset = 20, 0
	var err error

	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil || limit < 0 {
			c.badRequest(w, r, "incorrect limit value")
			return 0, 0, false
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		offset, err = strconv.Atoi(v)
		if err != nil || offset < 0 {
			c.badRequest(w, r, "incorrect offset value")
			return 0, 0, false
		}
	}
	return limit, offset, true
}

func (c *Controller) badRequest(w http.ResponseWriter, r *http.Request, reason string) {
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, errorResponse{Reason: reason})
}

func (c *Controller) renderErr(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound), errors.Is(err, models.ErrNoVersion):
		render.Status(r, http.StatusNotFound)
	case errors.Is(err, models.ErrExpiredOrInvalidState):
		render.Status(r, http.StatusBadRequest)
	case errors.Is(err, models.ErrInvalidTransition),
		errors.Is(err, models.ErrBidNotEditable),
		errors.Is(err, models.ErrDuplicateBid),
		errors.Is(err, models.ErrClarificationPending),
		errors.Is(err, models.ErrClarificationDenied),
		errors.Is(err, models.ErrConcurrentModification):
		render.Status(r, http.StatusConflict)
	case errors.Is(err, models.ErrUnavailable):
		render.Status(r, http.StatusServiceUnavailable)
	default:
		c.log.Error("request failed", "path", r.URL.Path, "error", err)
		render.Status(r, http.StatusInternalServerError)
	}
	render.JSON(w, r, errorResponse{Reason: err.Error()})
}
