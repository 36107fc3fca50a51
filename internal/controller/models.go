package controller

import (
	"bidding/internal/models"
)

type createBidRequest struct {
	TenderId   string           `json:"tenderId" validate:"required"`
	TendererId string           `json:"tendererId" validate:"required"`
	Items      []models.BidItem `json:"items" validate:"dive"`
}

type editBidRequest struct {
	Items []models.BidItem `json:"items" validate:"required,dive"`
}

type submitBidRequest struct {
	SecurityRef string `json:"securityRef"`
}

type updateStatusRequest struct {
	Status models.BidStatus `json:"status" validate:"required"`
}

type clarificationRequest struct {
	Question      string `json:"question" validate:"required"`
	EvaluatorId   string `json:"evaluatorId" validate:"required"`
	DaysToRespond int    `json:"daysToRespond" validate:"gte=0"`
}

type clarificationResponse struct {
	Response   string `json:"response" validate:"required"`
	TendererId string `json:"tendererId" validate:"required"`
}

type complianceVerification struct {
	Compliant   *bool  `json:"compliant" validate:"required"`
	Comment     string `json:"comment"`
	EvaluatorId string `json:"evaluatorId" validate:"required"`
}

type errorResponse struct {
	Reason string `json:"reason"`
}

type expireResponse struct {
	Expired int `json:"expired"`
}
