package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/pahfm/fleet-backend/internal/http/response"
	"github.com/pahfm/fleet-backend/internal/service"
)

type DriveHandler struct {
	svc     service.DriveServiceInterface
	baseURL string
	logger  *slog.Logger
}

func NewDriveHandler(svc service.DriveServiceInterface, baseURL string, logger *slog.Logger) *DriveHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DriveHandler{svc: svc, baseURL: baseURL, logger: logger}
}

type createDriveRequest struct {
	DriverID      uint       `json:"driverId"`
	PassengerIDs  []uint     `json:"passengerIds"`
	StartLocation string     `json:"startLocation"`
	EndLocation   string     `json:"endLocation"`
	Description   string     `json:"description"`
	Date          *time.Time `json:"date"`
}

type driveTokenView struct {
	PassengerID     uint   `json:"passengerId"`
	Token           string `json:"token"`
	VerificationURL string `json:"verificationUrl"`
}

type createDriveResponse struct {
	ID            uint             `json:"id"`
	DriverID      uint             `json:"driverId"`
	StartLocation string           `json:"startLocation"`
	EndLocation   string           `json:"endLocation"`
	Description   string           `json:"description"`
	Date          time.Time        `json:"date"`
	Tokens        []driveTokenView `json:"tokens"`
}

func (h *DriveHandler) Create(w http.ResponseWriter, r *http.Request) {
	var body createDriveRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPayloadBytes)).Decode(&body); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	in := service.CreateDriveInput{
		DriverID:      body.DriverID,
		PassengerIDs:  body.PassengerIDs,
		StartLocation: body.StartLocation,
		EndLocation:   body.EndLocation,
		Description:   body.Description,
	}
	if body.Date != nil {
		in.Date = body.Date.UTC()
	}

	created, err := h.svc.Create(r.Context(), in)
	if err != nil {
		var verr *service.ValidationError
		switch {
		case errors.As(err, &verr):
			response.FieldErrors(w, r, verr.Fields)
		case service.IsNotFound(err):
			response.Error(w, r, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
		default:
			h.logger.ErrorContext(r.Context(), "create drive failed", "error", err.Error())
			response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to create drive", nil)
		}
		return
	}

	out := createDriveResponse{
		ID:            created.Drive.ID,
		DriverID:      created.Drive.DriverID,
		StartLocation: created.Drive.StartLocation,
		EndLocation:   created.Drive.EndLocation,
		Description:   created.Drive.Description,
		Date:          created.Drive.Date,
		Tokens:        make([]driveTokenView, 0, len(created.Tokens)),
	}
	for i := range created.Tokens {
		tok := &created.Tokens[i]
		out.Tokens = append(out.Tokens, driveTokenView{
			PassengerID:     tok.PassengerID,
			Token:           tok.Token.String(),
			VerificationURL: tok.VerificationURL(h.baseURL),
		})
	}
	response.JSON(w, r, http.StatusCreated, out)
}
