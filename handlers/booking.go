package handlers

import (
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	"stylo/models"
	"stylo/services/booking"
	"stylo/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// maxPhotoSize bounds the optional client photo of send-otp.
const maxPhotoSize = 5 << 20

var allowedPhotoExt = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

// BookingHandler serves the public booking session endpoints.
type BookingHandler struct {
	Service booking.BookingService
}

func NewBookingHandler(svc booking.BookingService) *BookingHandler {
	return &BookingHandler{Service: svc}
}

func bindError(c *gin.Context, err error) {
	getLogger(c).Debug("Invalid request body", zap.Error(err))
	utils.JSONError(c, http.StatusBadRequest, utils.CodeValidation, "Datos inválidos: "+err.Error())
}

// StartBooking holds a slot and opens a booking session.
func (h *BookingHandler) StartBooking(c *gin.Context) {
	var req models.StartBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	resp, err := h.Service.StartBooking(c.Request.Context(), req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *BookingHandler) LookupClient(c *gin.Context) {
	var req models.LookupClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	resp, err := h.Service.LookupClient(c.Request.Context(), req.DocumentType, req.DocumentNumber)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *BookingHandler) LookupReniec(c *gin.Context) {
	var req models.LookupReniecRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	resp, err := h.Service.LookupReniec(c.Request.Context(), req.DNI)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// SendOTP accepts JSON or multipart form data; the multipart form may carry a "photo" file.
func (h *BookingHandler) SendOTP(c *gin.Context) {
	var req models.SendOTPRequest
	if err := c.ShouldBind(&req); err != nil {
		bindError(c, err)
		return
	}

	var photo *booking.Photo
	fileHeader, err := c.FormFile("photo")
	switch {
	case err == nil:
		if fileHeader.Size > maxPhotoSize {
			utils.JSONError(c, http.StatusBadRequest, utils.CodeValidation, "La foto no puede superar 5 MB")
			return
		}
		if !allowedPhotoExt[strings.ToLower(filepath.Ext(fileHeader.Filename))] {
			utils.JSONError(c, http.StatusBadRequest, utils.CodeValidation, "Formato de foto no permitido")
			return
		}
		file, err := fileHeader.Open()
		if err != nil {
			utils.RespondError(c, err)
			return
		}
		defer file.Close()
		photo = &booking.Photo{Filename: filepath.Base(fileHeader.Filename), Content: file}
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
	default:
		getLogger(c).Debug("Ignoring unreadable photo field", zap.Error(err))
	}

	resp, err := h.Service.SendOTP(c.Request.Context(), req, photo)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *BookingHandler) ResendOTP(c *gin.Context) {
	var req models.ResendOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	resp, err := h.Service.ResendOTP(c.Request.Context(), req.SessionToken)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// VerifyOTP confirms the booking; success answers 201.
func (h *BookingHandler) VerifyOTP(c *gin.Context) {
	var req models.VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	resp, err := h.Service.VerifyOTP(c.Request.Context(), req.SessionToken, req.OTPCode)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}
