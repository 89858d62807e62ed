package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/AlexZinkM/credlink/internal/model"
	"github.com/AlexZinkM/credlink/scanflow"

	"go.uber.org/zap"
)

// MaxBodyBytes caps the size of a posted credentials body
const MaxBodyBytes = 10 << 10

// CredentialsHandler serves the node side of the hand-over
type CredentialsHandler struct {
	receiver *scanflow.Receiver
	linkCode *model.LinkCode
	logger   *zap.Logger
}

// NewCredentialsHandler creates a new CredentialsHandler advertising endpoint
func NewCredentialsHandler(receiver *scanflow.Receiver, endpoint string, logger *zap.Logger) (*CredentialsHandler, error) {
	if receiver == nil {
		return nil, errors.New("receiver is required")
	}
	lc, err := scanflow.GenerateLinkCode(endpoint)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &CredentialsHandler{
		receiver: receiver,
		linkCode: lc,
		logger:   logger,
	}, nil
}

// LinkCode returns the link code this node advertises
func (h *CredentialsHandler) LinkCode() *model.LinkCode {
	return h.linkCode
}

// Receive handles POST /credentials
// @Summary      Receive credentials
// @Description  Accepts the credentials object read from an elector's NFC tag
// @Tags         credentials
// @Accept       json
// @Produce      json
// @Param        request  body      model.Credentials  true  "Credentials read from the tag"
// @Success      200      {object}  model.ReceiveResponse
// @Failure      400      {object}  model.ErrorResponse
// @Failure      413      {object}  model.ErrorResponse
// @Failure      500      {object}  model.ErrorResponse
// @Router       /credentials [post]
func (h *CredentialsHandler) Receive(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large", model.CodeBodyTooLarge)
			return
		}
		writeError(w, http.StatusBadRequest, "failed to read request body", model.CodeInvalidCredentials)
		return
	}
	defer clear(body)

	if _, err := h.receiver.Accept(body); err != nil {
		if errors.Is(err, scanflow.ErrVault) {
			writeError(w, http.StatusInternalServerError, "failed to store credentials", model.CodeVaultFailure)
			return
		}
		h.logger.Info("rejected credentials post", zap.String("remote", r.RemoteAddr), zap.Int("size", len(body)))
		writeError(w, http.StatusBadRequest, scanflow.NoticeInvalidCredentials, model.CodeInvalidCredentials)
		return
	}

	writeJSON(w, http.StatusOK, model.ReceiveResponse{Status: "ok"})
}

// Status handles GET /credentials
// @Summary      Credentials status
// @Description  Reports whether credentials were loaded. Key material is never returned.
// @Tags         credentials
// @Produce      json
// @Success      200  {object}  model.CredentialsStatus
// @Router       /credentials [get]
func (h *CredentialsHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.receiver.Status())
}

// GetLinkCode handles GET /linkcode
// @Summary      Link code
// @Description  Returns the endpoint URL, its link code and a base64 PNG QR code to scan
// @Tags         credentials
// @Produce      json
// @Success      200  {object}  model.LinkCode
// @Router       /linkcode [get]
func (h *CredentialsHandler) GetLinkCode(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.linkCode)
}

// Health handles GET /health
// @Summary      Health check
// @Tags         health
// @Produce      json
// @Success      200  {object}  model.ReceiveResponse
// @Router       /health [get]
func (h *CredentialsHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, model.ReceiveResponse{Status: "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, model.ErrorResponse{Error: message, Code: code})
}
