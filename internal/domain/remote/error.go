package remote

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidURI     = errors.New("invalid record uri")
	ErrAuthInvalid    = errors.New("authentication invalid")
	ErrRecordNotFound = errors.New("remote record not found")
	ErrUnresolvable   = errors.New("owner endpoint cannot be resolved")
)

// APIError ошибка, которую вернул удаленный репозиторий
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("remote api error %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("remote api error %d: %s", e.Status, e.Message)
}

// Is относит ошибку к категориям ErrAuthInvalid и ErrRecordNotFound
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrAuthInvalid:
		if e.Status == http.StatusUnauthorized {
			return true
		}
		switch e.Code {
		case "ExpiredToken", "InvalidToken", "AuthRequired", "AuthMissing":
			return true
		}
	case ErrRecordNotFound:
		return e.Status == http.StatusNotFound || e.Code == "RecordNotFound"
	}
	return false
}

// IsAuth сообщает, что ошибка относится к аутентификации
func IsAuth(err error) bool {
	return errors.Is(err, ErrAuthInvalid)
}
