package eventbus

import "errors"

// ErrMalformed нарушение схемы/контракта: конверт или payload не разбираются
var ErrMalformed = errors.New("malformed event")

// ErrUnsupportedVersion мажорная версия схемы неизвестна подписчику
var ErrUnsupportedVersion = errors.New("unsupported schema version")

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent помечает ошибку обработчика как неповторяемую: сообщение сразу уходит в DLQ
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent сообщает, что повтор обработки не имеет смысла
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p) || errors.Is(err, ErrMalformed) || errors.Is(err, ErrUnsupportedVersion)
}
