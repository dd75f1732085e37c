// Package pkg, projede paylaşılan utility'leri barındırır.
// Bu dosya domain-level error tanımlarını içerir.
//
// Her error bir Kind (ValidationError, Unauthenticated, Forbidden, ...)
// ve opsiyonel bir Reason taşır. HTTP status code Kind'dan türetilir,
// mesaj içeriğine bakılarak sınıflandırma YAPILMAZ:
//
//	if errors.Is(err, pkg.ErrUnauthorized) { ... }        // Kind eşleşmesi
//	if pkg.ReasonOf(err) == pkg.ReasonTokenExpired { ... } // Reason eşleşmesi
package pkg

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind, error'ın sınıfıdır. Her Kind tek bir HTTP status code'a karşılık gelir.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthenticated
	KindForbidden
	KindNotFound
	KindConflict
)

// Status, Kind'ın HTTP karşılığını döner.
func (k Kind) Status() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation_error"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// Reason, aynı Kind içindeki alt nedeni makine-okunur şekilde taşır.
// Response'ta "code" alanı olarak döner.
type Reason string

const (
	ReasonMissingToken             Reason = "missing_token"
	ReasonTokenInvalid             Reason = "token_invalid"
	ReasonTokenExpired             Reason = "token_expired"
	ReasonTokenUnknownOrReused     Reason = "token_unknown_or_reused"
	ReasonPrincipalNotFound        Reason = "principal_not_found"
	ReasonPrincipalInactive        Reason = "principal_inactive"
	ReasonInvalidCredentials       Reason = "invalid_credentials"
	ReasonCurrentPasswordIncorrect Reason = "current_password_incorrect"
	ReasonInsufficientRole         Reason = "insufficient_role"
	ReasonNotOwner                 Reason = "not_owner"
	ReasonValidation               Reason = "validation"
	ReasonConflict                 Reason = "conflict"
	ReasonNotFound                 Reason = "not_found"
)

// AppError, tüm katmanların döndüğü typed error.
//
// Message client'a gider. Err ise wrap edilen iç hatadır: sadece
// server-side loglanır, response'a ASLA yazılmaz.
type AppError struct {
	Kind    Kind
	Reason  Reason
	Message string
	Err     error
}

func (e *AppError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is, errors.Is desteği: hedef *AppError ise Kind eşleşmesi yeterlidir,
// hedef bir Reason taşıyorsa o da eşleşmelidir.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Reason == "" || t.Reason == e.Reason
}

// Kind bazlı sentinel error'lar.
// Service/repository katmanı bunları direkt döner veya constructor'larla
// Reason + Message ekleyerek yenisini üretir.
var (
	ErrBadRequest    = &AppError{Kind: KindValidation, Message: "bad request"}
	ErrUnauthorized  = &AppError{Kind: KindUnauthenticated, Message: "unauthorized"}
	ErrForbidden     = &AppError{Kind: KindForbidden, Message: "forbidden"}
	ErrNotFound      = &AppError{Kind: KindNotFound, Message: "not found"}
	ErrAlreadyExists = &AppError{Kind: KindConflict, Message: "already exists"}
	ErrInternal      = &AppError{Kind: KindInternal, Message: "internal error"}
)

// Validation, 400 döndüren error üretir.
func Validation(message string) *AppError {
	return &AppError{Kind: KindValidation, Reason: ReasonValidation, Message: message}
}

// Unauthenticated, 401 döndüren error üretir.
func Unauthenticated(reason Reason, message string) *AppError {
	return &AppError{Kind: KindUnauthenticated, Reason: reason, Message: message}
}

// Forbidden, 403 döndüren error üretir.
func Forbidden(reason Reason, message string) *AppError {
	return &AppError{Kind: KindForbidden, Reason: reason, Message: message}
}

// Conflict, 409 döndüren error üretir.
func Conflict(message string) *AppError {
	return &AppError{Kind: KindConflict, Reason: ReasonConflict, Message: message}
}

// NotFound, 404 döndüren error üretir.
func NotFound(message string) *AppError {
	return &AppError{Kind: KindNotFound, Reason: ReasonNotFound, Message: message}
}

// Internal, beklenmeyen bir hatayı 500 olarak sarar.
// err client'a gösterilmez, sadece loglanır.
func Internal(message string, err error) *AppError {
	return &AppError{Kind: KindInternal, Message: message, Err: err}
}

// KindOf, error chain'deki ilk *AppError'ın Kind'ını döner.
// *AppError içermeyen her error Internal sayılır.
func KindOf(err error) Kind {
	var e *AppError
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// ReasonOf, error chain'deki ilk *AppError'ın Reason'ını döner.
func ReasonOf(err error) Reason {
	var e *AppError
	if errors.As(err, &e) {
		return e.Reason
	}
	return ""
}
