package pkg

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"
)

// APIResponse, tüm API yanıtları için standart format.
//
//	{"success": true, "data": {...}}
//	{"success": false, "error": "<mesaj>", "code": "<reason>"}
//
// Code alanı sadece hata yanıtlarında dolar (ör: "token_expired").
type APIResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

// internalMessage, 500 yanıtlarında client'a giden tek mesaj.
// Hatanın detayı sadece server log'una yazılır.
const internalMessage = "internal server error"

// errorLogger, Internal hataların detayını yazan logger.
// main.go SetErrorLogger ile uygulamanın logger'ını bağlar.
var errorLogger logrus.FieldLogger = logrus.StandardLogger()

// SetErrorLogger, Error() içindeki 500 loglamasında kullanılacak logger'ı ayarlar.
func SetErrorLogger(l logrus.FieldLogger) {
	if l != nil {
		errorLogger = l
	}
}

// JSON, başarılı bir yanıt gönderir.
func JSON(w http.ResponseWriter, status int, data any) {
	write(w, status, APIResponse{
		Success: true,
		Data:    data,
	})
}

// Error, hata yanıtı gönderir.
// Status code error'ın Kind'ından gelir. Kind Internal ise (veya error hiç
// *AppError değilse) detay loglanır, client sadece genel mesajı görür.
func Error(w http.ResponseWriter, err error) {
	var e *AppError
	if !errors.As(err, &e) || e.Kind == KindInternal {
		errorLogger.WithError(err).Error("[response] internal error")
		write(w, http.StatusInternalServerError, APIResponse{
			Success: false,
			Error:   internalMessage,
		})
		return
	}

	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}

	code := string(e.Reason)
	if code == "" {
		code = e.Kind.String()
	}

	write(w, e.Kind.Status(), APIResponse{
		Success: false,
		Error:   msg,
		Code:    code,
	})
}

// ErrorWithMessage, özel mesajlı hata yanıtı gönderir.
func ErrorWithMessage(w http.ResponseWriter, status int, message string) {
	write(w, status, APIResponse{
		Success: false,
		Error:   message,
	})
}

func write(w http.ResponseWriter, status int, resp APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		errorLogger.WithError(err).Warn("[response] failed to encode response")
	}
}
